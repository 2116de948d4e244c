package scorer

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

const (
	modeInstance = "instance"
	modePixel    = "pixel"
	modeVideo    = "video"
)

// commandRequest is the input document handed to the external tool.
type commandRequest struct {
	Mode         string   `json:"mode"`
	Predictions  []string `json:"predictions"`
	GroundTruths []string `json:"groundTruths"`
	Config       Config   `json:"config"`
}

// CommandScorer invokes the external benchmark tool as a subprocess. The
// exchange runs over a pair of JSON files in a scratch directory: the
// request document is written to input.json, the tool is started as
// `<binary> [args...] <mode> --input <in> --output <out>`, and the
// averages document is read back from output.json. Tool stdout/stderr
// pass through to the worker's own streams.
type CommandScorer struct {
	binary string
	args   []string
}

// NewCommandScorer builds a scorer around the given executable. Extra
// args are inserted before the mode subcommand, e.g.
// NewCommandScorer("python", "-m", "cityscorer").
func NewCommandScorer(binary string, args ...string) *CommandScorer {
	return &CommandScorer{binary: binary, args: args}
}

func (s *CommandScorer) EvaluateInstanceLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*InstanceAverages, error) {
	var out InstanceAverages
	if err := s.run(ctx, modeInstance, predictions, groundTruths, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CommandScorer) EvaluatePixelLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*PixelAverages, error) {
	var out PixelAverages
	if err := s.run(ctx, modePixel, predictions, groundTruths, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CommandScorer) EvaluateVideoLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*VideoAverages, error) {
	var out VideoAverages
	if err := s.run(ctx, modeVideo, predictions, groundTruths, cfg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *CommandScorer) run(ctx context.Context, mode string, predictions, groundTruths []string, cfg Config, out interface{}) error {
	data, err := json.Marshal(commandRequest{
		Mode:         mode,
		Predictions:  predictions,
		GroundTruths: groundTruths,
		Config:       cfg,
	})
	if err != nil {
		log.WithError(err).Error("failed to marshal scorer request")
		return err
	}

	dir, err := os.MkdirTemp("", "cityscapes-scorer")
	if err != nil {
		log.WithError(err).Error("create tmp dir failed")
		return err
	}
	defer os.RemoveAll(dir)

	inputFilePath := filepath.Join(dir, "input.json")
	outputFilePath := filepath.Join(dir, "output.json")
	if err := os.WriteFile(inputFilePath, data, os.ModePerm); err != nil {
		log.WithError(err).Error("failed to write scorer input")
		return err
	}

	args := make([]string, 0, len(s.args)+5)
	args = append(args, s.args...)
	args = append(args, mode, "--input", inputFilePath, "--output", outputFilePath)
	cmd := exec.CommandContext(ctx, s.binary, args...)
	cmd.Env = os.Environ()
	log.Infof("cmd: %v", cmd.Args)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		log.WithError(err).Errorf("cmd %v start failed", cmd.Args)
		return err
	}
	if err := cmd.Wait(); err != nil {
		log.WithError(err).Errorf("scorer process %d exit with err/signal: %v", cmd.Process.Pid, err)
		return err
	}

	file, err := os.ReadFile(outputFilePath)
	if err != nil {
		log.WithError(err).Error("failed to read scorer output")
		return err
	}
	return json.Unmarshal(file, out)
}
