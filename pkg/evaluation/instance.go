package evaluation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/cityscapes"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/scorer"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// CityscapesInstanceEvaluator scores instance-segmentation outputs with
// the external benchmark tool. For each image it writes a manifest
// listing one mask file, label id and confidence per detected instance,
// plus the binary mask images the manifest references.
type CityscapesInstanceEvaluator struct {
	cityscapesEvaluator
	scorer scorer.InstanceScorer
}

// NewInstanceEvaluator builds the evaluator for a registered dataset.
// The dataset metadata must carry the thing-class list and the
// ground-truth directory.
func NewInstanceEvaluator(datasetName string, sc scorer.InstanceScorer, p Params) (*CityscapesInstanceEvaluator, error) {
	if sc == nil {
		return nil, errors.New("nil instance scorer")
	}
	base, err := newCityscapesEvaluator(datasetName, p)
	if err != nil {
		return nil, err
	}
	if len(base.meta.ThingClasses) == 0 {
		return nil, fmt.Errorf("dataset %s has no thing classes", datasetName)
	}
	return &CityscapesInstanceEvaluator{cityscapesEvaluator: base, scorer: sc}, nil
}

// Process writes the per-image prediction files for a batch.
func (e *CityscapesInstanceEvaluator) Process(ctx context.Context, preds []types.Prediction) error {
	if e.tempDir == "" {
		return ErrNotReset
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range preds {
		pred := &preds[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return e.writePrediction(pred)
		})
	}
	return g.Wait()
}

func (e *CityscapesInstanceEvaluator) writePrediction(pred *types.Prediction) error {
	if pred.Input.FileName == "" {
		return errors.New("prediction record missing input file name")
	}
	basename := pred.Input.Basename()

	var manifest bytes.Buffer
	for i, inst := range pred.Instances {
		if inst.Class < 0 || inst.Class >= len(e.meta.ThingClasses) {
			return fmt.Errorf("instance class %d out of range for dataset %s", inst.Class, e.meta.Name)
		}
		className := e.meta.ThingClasses[inst.Class]
		label, ok := cityscapes.Default.ByName(className)
		if !ok {
			return fmt.Errorf("thing class %q has no cityscapes label", className)
		}
		if inst.Mask == nil {
			return fmt.Errorf("instance %d of %s has no mask", i, basename)
		}
		maskName := fmt.Sprintf("%s_%d_%s.png", basename, i, className)
		if err := writeMaskPNG(filepath.Join(e.tempDir, maskName), inst.Mask); err != nil {
			return err
		}
		fmt.Fprintf(&manifest, "%s %d %v\n", maskName, label.ID, inst.Score)
	}
	return os.WriteFile(filepath.Join(e.tempDir, basename+"_pred.txt"), manifest.Bytes(), 0o644)
}

// Evaluate synchronizes the group, scores the collected predictions on
// rank 0 and removes the scratch directory. The returned mapping has a
// "segm" group with "AP" and "AP50" percentages.
func (e *CityscapesInstanceEvaluator) Evaluate(ctx context.Context) (types.Metrics, error) {
	scoring, err := e.synchronize(ctx)
	if err != nil || !scoring {
		return nil, err
	}

	log.Infof("evaluating results under %s", e.tempDir)

	gts, search, err := e.groundTruths(ctx, instanceGTSuffix)
	if err != nil {
		return nil, err
	}
	if len(gts) == 0 {
		return nil, fmt.Errorf("%w: searched for %s", ErrNoGroundTruth, search)
	}
	preds := e.predictionsFor(gts, instanceGTSuffix, "_pred.txt")

	cfg := scorer.Config{
		PredictionPath:  e.tempDir,
		GTInstancesFile: filepath.Join(e.tempDir, "gtInstances.json"),
	}
	averages, err := e.scorer.EvaluateInstanceLists(ctx, preds, gts, cfg)
	if err != nil {
		return nil, err
	}

	ret := types.Metrics{
		"segm": {
			"AP":   averages.AllAP * 100,
			"AP50": averages.AllAP50 * 100,
		},
	}
	e.cleanup()
	return ret, nil
}
