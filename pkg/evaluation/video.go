package evaluation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/cityscapes"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/scorer"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// defaultSpanWindow is the temporal consistency window used when the
// params leave it unset.
const defaultSpanWindow = 5

// ViperSemSegEvaluator scores semantic segmentation over video frames.
// Per-image serialization matches the semantic evaluator but uses the
// VIPER label subset; scoring subsamples the frame sequence and adds
// temporal consistency metrics over three span windows.
type ViperSemSegEvaluator struct {
	cityscapesEvaluator
	table  *cityscapes.Table
	scorer scorer.VideoScorer

	roadScene    string
	infStart     int
	skipInterval int
	spanWindow   int
}

// NewViperSemSegEvaluator builds the video evaluator for a registered
// dataset. InfStart and SkipInterval of the params control the frame
// subsampling.
func NewViperSemSegEvaluator(datasetName string, sc scorer.VideoScorer, p Params) (*ViperSemSegEvaluator, error) {
	if sc == nil {
		return nil, errors.New("nil video scorer")
	}
	base, err := newCityscapesEvaluator(datasetName, p)
	if err != nil {
		return nil, err
	}
	span := p.SpanWindow
	if span == 0 {
		span = defaultSpanWindow
	}
	return &ViperSemSegEvaluator{
		cityscapesEvaluator: base,
		table:               cityscapes.Viper16,
		scorer:              sc,
		roadScene:           p.RoadScene,
		infStart:            p.InfStart,
		skipInterval:        p.SkipInterval,
		spanWindow:          span,
	}, nil
}

// Process writes the per-frame label images for a batch.
func (e *ViperSemSegEvaluator) Process(ctx context.Context, preds []types.Prediction) error {
	return processSemSeg(ctx, &e.cityscapesEvaluator, e.table, preds)
}

// Evaluate synchronizes the group, scores the subsampled frame sequence
// on rank 0 and removes the scratch directory. Groups returned:
// "sem_seg" (image IoU plus per-window VIoU), "sem_seg_Vid" (window
// means) and "sem_seg_ImgVid" (image and video combined 1:3).
func (e *ViperSemSegEvaluator) Evaluate(ctx context.Context) (types.Metrics, error) {
	scoring, err := e.synchronize(ctx)
	if err != nil || !scoring {
		return nil, err
	}

	log.Infof("evaluating results under %s", e.tempDir)

	suffix := ""
	if e.roadScene == RoadSceneCityscapes {
		suffix = labelGTSuffix
	}
	all, search, err := e.groundTruths(ctx, suffix)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: searched for %s", ErrNoGroundTruth, search)
	}
	gts, err := subsampleFrames(all, e.infStart, e.skipInterval)
	if err != nil {
		return nil, err
	}
	if len(gts) == 0 {
		return nil, fmt.Errorf("%w: no frames left after temporal subsampling of %s", ErrNoGroundTruth, search)
	}
	preds := e.predictionsFor(gts, labelGTSuffix, "_pred.png")

	cfg := scorer.Config{PredictionPath: e.tempDir, SpanWindow: e.spanWindow}
	averages, err := e.scorer.EvaluateVideoLists(ctx, preds, gts, cfg)
	if err != nil {
		return nil, err
	}

	semSeg := map[string]float64{
		"IoU":         100 * averages.ScoreClasses,
		"IoU_sup":     100 * averages.ScoreCategories,
		"VIoU_5":      100 * averages.ScoreClassesVid5,
		"VIoU_sup_5":  100 * averages.ScoreCategoriesVid5,
		"VIoU_10":     100 * averages.ScoreClassesVid10,
		"VIoU_sup_10": 100 * averages.ScoreCategoriesVid10,
		"VIoU_15":     100 * averages.ScoreClassesVid15,
		"VIoU_sup_15": 100 * averages.ScoreCategoriesVid15,
	}
	vid := map[string]float64{
		"VIoU_total":     (semSeg["VIoU_5"] + semSeg["VIoU_10"] + semSeg["VIoU_15"]) / 3,
		"VIoU_sup_total": (semSeg["VIoU_sup_5"] + semSeg["VIoU_sup_10"] + semSeg["VIoU_sup_15"]) / 3,
	}
	imgVid := map[string]float64{
		"ImgVid_IoU_Total":     (vid["VIoU_total"]*3 + semSeg["IoU"]) / 4,
		"ImgVid_sup_IoU_Total": (vid["VIoU_sup_total"]*3 + semSeg["IoU_sup"]) / 4,
	}

	ret := types.Metrics{
		"sem_seg":        semSeg,
		"sem_seg_Vid":    vid,
		"sem_seg_ImgVid": imgVid,
	}
	e.cleanup()
	return ret, nil
}

// subsampleFrames keeps the frames the temporal scorer consumes: those
// past the warm-up cutoff whose index falls on the sampling grid anchored
// at the first frame of the sorted sequence. The frame index is the last
// underscore-separated token of the base name.
func subsampleFrames(files []string, infStart, skipInterval int) ([]string, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if skipInterval < 1 {
		skipInterval = 1
	}
	start, err := frameIndex(files[0])
	if err != nil {
		return nil, err
	}
	var kept []string
	for _, f := range files {
		idx, err := frameIndex(f)
		if err != nil {
			return nil, err
		}
		if idx > infStart && idx%skipInterval == start%skipInterval {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

func frameIndex(path string) (int, error) {
	base := filepath.Base(path)
	// Cityscapes annotation names end in the annotation kind, not the
	// frame number; the number sits right before the suffix.
	base = strings.TrimSuffix(base, labelGTSuffix)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	parts := strings.Split(base, "_")
	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("cannot parse frame index of %s: %w", path, err)
	}
	return idx, nil
}
