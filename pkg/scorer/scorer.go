// Package scorer bridges to the external Cityscapes benchmark tool. The
// evaluators hand it matched prediction and ground-truth file lists; the
// scoring math itself lives entirely in the external tool.
package scorer

import "context"

// Config carries the per-invocation scorer settings. A Config is built
// fresh for every call and never mutated afterwards; concurrent
// evaluations cannot observe each other's settings.
type Config struct {
	// PredictionPath is the directory holding the prediction files.
	PredictionPath string `json:"predictionPath"`
	// PredictionWalk enables the tool's own directory scan. The
	// evaluators always pass explicit file lists, so it stays off.
	PredictionWalk bool `json:"predictionWalk"`
	// JSONOutput asks the tool to dump a result file next to the
	// predictions. Off; results come back through the bridge.
	JSONOutput bool `json:"jsonOutput"`
	// Colorized toggles ANSI-colored tool output. Off.
	Colorized bool `json:"colorized"`
	// GTInstancesFile caches parsed ground-truth instances between
	// scorer runs. Instance scoring only.
	GTInstancesFile string `json:"gtInstancesFile,omitempty"`
	// SpanWindow is the temporal consistency window. Video scoring only.
	SpanWindow int `json:"spanWindow,omitempty"`
}

// InstanceAverages is the instance-level result document. Values are
// fractions in [0, 1] as the external tool reports them.
type InstanceAverages struct {
	AllAP   float64 `json:"allAp"`
	AllAP50 float64 `json:"allAp50%"`
}

// PixelAverages is the pixel-level result document.
type PixelAverages struct {
	ScoreClasses        float64 `json:"averageScoreClasses"`
	ScoreInstClasses    float64 `json:"averageScoreInstClasses"`
	ScoreCategories     float64 `json:"averageScoreCategories"`
	ScoreInstCategories float64 `json:"averageScoreInstCategories"`
}

// VideoAverages extends the pixel-level document with the temporal
// consistency scores at spans 5, 10 and 15.
type VideoAverages struct {
	PixelAverages
	ScoreClassesVid5     float64 `json:"averageScoreClasses_vid5"`
	ScoreClassesVid10    float64 `json:"averageScoreClasses_vid10"`
	ScoreClassesVid15    float64 `json:"averageScoreClasses_vid15"`
	ScoreCategoriesVid5  float64 `json:"averageScoreCategories_vid5"`
	ScoreCategoriesVid10 float64 `json:"averageScoreCategories_vid10"`
	ScoreCategoriesVid15 float64 `json:"averageScoreCategories_vid15"`
}

// InstanceScorer scores instance-segmentation predictions against
// matched ground-truth annotations. predictions[i] answers
// groundTruths[i].
type InstanceScorer interface {
	EvaluateInstanceLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*InstanceAverages, error)
}

// PixelScorer scores semantic-segmentation label images.
type PixelScorer interface {
	EvaluatePixelLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*PixelAverages, error)
}

// VideoScorer scores temporally subsampled label images with
// consistency windows.
type VideoScorer interface {
	EvaluateVideoLists(ctx context.Context, predictions, groundTruths []string, cfg Config) (*VideoAverages, error)
}
