package evaluation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/cityscapes"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/scorer"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// CityscapesSemSegEvaluator scores semantic-segmentation outputs with the
// external benchmark tool. For each image it writes an 8-bit label image
// with the predicted train ids mapped into the dataset's label-id space.
type CityscapesSemSegEvaluator struct {
	cityscapesEvaluator
	table  *cityscapes.Table
	scorer scorer.PixelScorer
}

// NewSemSegEvaluator builds the evaluator for a registered dataset.
func NewSemSegEvaluator(datasetName string, sc scorer.PixelScorer, p Params) (*CityscapesSemSegEvaluator, error) {
	if sc == nil {
		return nil, errors.New("nil pixel scorer")
	}
	base, err := newCityscapesEvaluator(datasetName, p)
	if err != nil {
		return nil, err
	}
	return &CityscapesSemSegEvaluator{
		cityscapesEvaluator: base,
		table:               cityscapes.Default,
		scorer:              sc,
	}, nil
}

// Process writes the per-image label images for a batch.
func (e *CityscapesSemSegEvaluator) Process(ctx context.Context, preds []types.Prediction) error {
	return processSemSeg(ctx, &e.cityscapesEvaluator, e.table, preds)
}

// processSemSeg writes label images for every record of a batch. Shared
// with the video evaluator, which differs only in its label table.
func processSemSeg(ctx context.Context, e *cityscapesEvaluator, table *cityscapes.Table, preds []types.Prediction) error {
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
			if pred.Input.FileName == "" {
				return errors.New("prediction record missing input file name")
			}
			if pred.SemSeg == nil {
				return fmt.Errorf("prediction for %s has no semantic output", pred.Input.FileName)
			}
			path := filepath.Join(e.tempDir, pred.Input.Basename()+"_pred.png")
			return writeLabelPNG(path, table, pred.SemSeg)
		})
	}
	return g.Wait()
}

// Evaluate synchronizes the group, scores the collected predictions on
// rank 0 and removes the scratch directory. The returned mapping has a
// "sem_seg" group with IoU, iIoU, IoU_sup and iIoU_sup percentages.
func (e *CityscapesSemSegEvaluator) Evaluate(ctx context.Context) (types.Metrics, error) {
	scoring, err := e.synchronize(ctx)
	if err != nil || !scoring {
		return nil, err
	}

	log.Infof("evaluating results under %s", e.tempDir)

	gts, search, err := e.groundTruths(ctx, labelGTSuffix)
	if err != nil {
		return nil, err
	}
	if len(gts) == 0 {
		return nil, fmt.Errorf("%w: searched for %s", ErrNoGroundTruth, search)
	}
	preds := e.predictionsFor(gts, labelGTSuffix, "_pred.png")

	cfg := scorer.Config{PredictionPath: e.tempDir}
	averages, err := e.scorer.EvaluatePixelLists(ctx, preds, gts, cfg)
	if err != nil {
		return nil, err
	}

	ret := types.Metrics{
		"sem_seg": {
			"IoU":      100 * averages.ScoreClasses,
			"iIoU":     100 * averages.ScoreInstClasses,
			"IoU_sup":  100 * averages.ScoreCategories,
			"iIoU_sup": 100 * averages.ScoreInstCategories,
		},
	}
	e.cleanup()
	return ret, nil
}
