package types

import (
	"path/filepath"
	"strings"
)

// ImageInput identifies one input image of an inference batch.
type ImageInput struct {
	FileName string `json:"fileName" bson:"fileName"`
}

// Basename returns the file name with directory and extension stripped.
// It keys every per-image artifact the evaluators write.
func (in ImageInput) Basename() string {
	base := filepath.Base(in.FileName)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Mask is a dense binary foreground mask, one byte per pixel in row-major
// order. Any nonzero byte counts as foreground.
type Mask struct {
	Width  int     `json:"width" bson:"width"`
	Height int     `json:"height" bson:"height"`
	Bits   []uint8 `json:"bits" bson:"bits"`
}

// Instance is one detected object instance.
type Instance struct {
	Class int     `json:"class" bson:"class"`
	Score float32 `json:"score" bson:"score"`
	Mask  *Mask   `json:"mask,omitempty" bson:"mask,omitempty"`
}

// SemSeg is a dense per-pixel class prediction in train-id space,
// row-major, one byte per pixel.
type SemSeg struct {
	Width    int     `json:"width" bson:"width"`
	Height   int     `json:"height" bson:"height"`
	TrainIDs []uint8 `json:"trainIDs" bson:"trainIDs"`
}

// Prediction carries the model outputs for a single image. Instance
// evaluators read Instances, semantic evaluators read SemSeg; the other
// field stays empty.
type Prediction struct {
	Input     ImageInput `json:"input" bson:"input"`
	Instances []Instance `json:"instances,omitempty" bson:"instances,omitempty"`
	SemSeg    *SemSeg    `json:"semSeg,omitempty" bson:"semSeg,omitempty"`
}

// Metrics maps a metric group ("segm", "sem_seg", ...) to named scores on
// the 0-100 percentage scale.
type Metrics map[string]map[string]float64
