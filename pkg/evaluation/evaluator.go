// Package evaluation implements the Cityscapes evaluation drivers. An
// evaluator collects per-image model outputs into the benchmark's on-disk
// prediction format inside a scratch directory shared by all ranks, then
// has rank 0 hand matched prediction and ground-truth lists to the
// external scorer and reshape the returned averages into percentage
// metrics.
//
// The lifecycle is Reset, any number of Process calls, Evaluate; repeated
// rounds each start with a fresh Reset. Every rank of the group must
// drive its evaluator through the same sequence. Ranks share a
// filesystem: the scratch directory one rank creates is written by all.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/catalog"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/comm"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/paths"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// Evaluator accumulates model outputs and produces benchmark metrics.
// Evaluate returns (nil, nil) on every rank except rank 0.
type Evaluator interface {
	Reset(ctx context.Context) error
	Process(ctx context.Context, preds []types.Prediction) error
	Evaluate(ctx context.Context) (types.Metrics, error)
}

var (
	// ErrNoGroundTruth reports an empty ground-truth enumeration.
	// Scoring against nothing would silently produce perfect numbers,
	// so this is fatal.
	ErrNoGroundTruth = errors.New("no ground truth images found")

	// ErrNotReset reports Process or Evaluate on an evaluator without a
	// live scratch directory.
	ErrNotReset = errors.New("evaluator has no scratch directory, call Reset first")
)

const (
	scratchPrefix = "cityscapes_eval_"

	instanceGTSuffix = "_gtFine_instanceIds.png"
	labelGTSuffix    = "_gtFine_labelIds.png"
	imageSuffix      = "_leftImg8bit"
)

// RoadSceneCityscapes marks datasets with Cityscapes-convention file
// names. Other road scenes (e.g. VIPER) enumerate ground truth without a
// suffix filter.
const RoadSceneCityscapes = "cityscapes"

// Params carries the construction-time settings shared by the
// evaluators. The zero value is a single-process evaluator over the local
// filesystem.
type Params struct {
	// Communicator coordinates the process group. nil means a world of
	// one.
	Communicator comm.Communicator
	// Resolver localizes the dataset's ground-truth root. nil means
	// local paths only.
	Resolver paths.Resolver
	// RoadScene names the annotation convention of the dataset,
	// RoadSceneCityscapes or another scene type.
	RoadScene string
	// InfStart is the warm-up cutoff for video evaluation: frames with
	// an index at or below it are excluded from scoring.
	InfStart int
	// SkipInterval subsamples video frames, keeping those on the
	// sampling grid anchored at the first frame. Values below 1 keep
	// every frame.
	SkipInterval int
	// SpanWindow is the temporal consistency window handed to the
	// scorer. 0 selects the default of 5.
	SpanWindow int
}

// cityscapesEvaluator holds the scratch-directory lifecycle shared by the
// concrete evaluators.
type cityscapesEvaluator struct {
	meta     catalog.Metadata
	comm     comm.Communicator
	resolver paths.Resolver

	round   int
	tempDir string
}

func newCityscapesEvaluator(datasetName string, p Params) (cityscapesEvaluator, error) {
	meta, err := catalog.Get(datasetName)
	if err != nil {
		return cityscapesEvaluator{}, err
	}
	if meta.GTDir == "" {
		return cityscapesEvaluator{}, fmt.Errorf("dataset %s has no ground-truth directory", datasetName)
	}
	c := p.Communicator
	if c == nil {
		c = comm.NewLocal()
	}
	r := p.Resolver
	if r == nil {
		r = paths.Auto{}
	}
	return cityscapesEvaluator{meta: meta, comm: c, resolver: r}, nil
}

// Reset opens a new evaluation round. Every rank proposes a fresh
// scratch directory; the group adopts the lowest rank's proposal and the
// other ranks discard their own.
func (e *cityscapesEvaluator) Reset(ctx context.Context) error {
	dir, err := os.MkdirTemp("", scratchPrefix)
	if err != nil {
		return err
	}
	e.round++
	agreed, err := e.comm.Agree(ctx, fmt.Sprintf("scratch/%d", e.round), dir)
	if err != nil {
		os.RemoveAll(dir)
		return err
	}
	if agreed != dir {
		if err := os.RemoveAll(dir); err != nil {
			log.WithError(err).Errorf("failed to remove losing scratch directory %s", dir)
		}
	}
	e.tempDir = agreed
	log.Infof("writing cityscapes results to temporary directory %s", e.tempDir)
	return nil
}

// synchronize runs the pre-scoring barrier and reports whether this rank
// carries out the scoring. Non-scoring ranks leave the round.
func (e *cityscapesEvaluator) synchronize(ctx context.Context) (bool, error) {
	if e.tempDir == "" {
		return false, ErrNotReset
	}
	if err := e.comm.Barrier(ctx); err != nil {
		return false, err
	}
	if e.comm.Rank() > 0 {
		e.tempDir = ""
		return false, nil
	}
	return true, nil
}

// groundTruths resolves the dataset root and enumerates annotation files
// matching pattern under its city subdirectories.
func (e *cityscapesEvaluator) groundTruths(ctx context.Context, nameSuffix string) ([]string, string, error) {
	gtDir, err := e.resolver.LocalPath(ctx, e.meta.GTDir)
	if err != nil {
		return nil, "", err
	}
	search := filepath.Join(gtDir, "*", "*"+nameSuffix)
	matches, err := filepath.Glob(search)
	if err != nil {
		return nil, search, err
	}
	return matches, search, nil
}

// predictionFor derives the prediction file Process wrote for one
// ground-truth annotation. Cityscapes annotation names map back to the
// input image name; for other conventions the prediction shares the
// annotation's base name.
func (e *cityscapesEvaluator) predictionFor(gt, gtSuffix, predSuffix string) string {
	base := filepath.Base(gt)
	if strings.HasSuffix(base, gtSuffix) {
		prefix := strings.TrimSuffix(base, gtSuffix)
		return filepath.Join(e.tempDir, prefix+imageSuffix+predSuffix)
	}
	return filepath.Join(e.tempDir, strings.TrimSuffix(base, filepath.Ext(base))+predSuffix)
}

func (e *cityscapesEvaluator) predictionsFor(gts []string, gtSuffix, predSuffix string) []string {
	preds := make([]string, 0, len(gts))
	for _, gt := range gts {
		preds = append(preds, e.predictionFor(gt, gtSuffix, predSuffix))
	}
	return preds
}

// cleanup removes the shared scratch directory and closes the round.
func (e *cityscapesEvaluator) cleanup() {
	if err := os.RemoveAll(e.tempDir); err != nil {
		log.WithError(err).Errorf("failed to remove scratch directory %s", e.tempDir)
	}
	e.tempDir = ""
}
