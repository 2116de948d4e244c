package archs

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/modeling"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

func init() {
	modeling.Register(modeling.ArchONNXInstance, NewInstance)
}

const (
	defaultInstanceSize   = 800
	defaultScoreThreshold = 0.5
)

// InstanceNet runs an exported Mask R-CNN style detector. The model is
// expected to emit boxes, labels, scores and per-instance mask probabilities;
// labels must already be contiguous thing-class indices.
type InstanceNet struct {
	cfg     modeling.Config
	meta    Metadata
	session *ort.DynamicAdvancedSession
}

// NewInstance constructs the detector without touching the model file.
func NewInstance(cfg modeling.Config) (modeling.Model, error) {
	if cfg.Path == "" {
		return nil, errors.New("model path is required")
	}
	return &InstanceNet{cfg: cfg}, nil
}

func (n *InstanceNet) Arch() string   { return modeling.ArchONNXInstance }
func (n *InstanceNet) Device() string { return n.cfg.Device }

func (n *InstanceNet) Init() error {
	if err := initRuntime(); err != nil {
		return err
	}

	n.meta = Metadata{}
	if err := loadMetadata(n.cfg.Path, &n.meta); err != nil {
		return err
	}
	if n.meta.InputName == "" {
		n.meta.InputName = "input"
	}
	if len(n.meta.OutputNames) != 4 {
		n.meta.OutputNames = []string{"boxes", "labels", "scores", "masks"}
	}
	if n.meta.ImageSize <= 0 {
		n.meta.ImageSize = defaultInstanceSize
	}
	if n.meta.ScoreThreshold <= 0 {
		n.meta.ScoreThreshold = defaultScoreThreshold
	}

	options, err := modeling.SessionOptionsForDevice(n.cfg.Device)
	if err != nil {
		return err
	}
	if options != nil {
		defer options.Destroy()
	}

	session, err := ort.NewDynamicAdvancedSession(n.cfg.Path,
		[]string{n.meta.InputName}, n.meta.OutputNames, options)
	if err != nil {
		return fmt.Errorf("failed to create session for %s: %w", n.cfg.Path, err)
	}
	n.session = session
	return nil
}

func (n *InstanceNet) Destroy() error {
	if n.session != nil {
		if err := n.session.Destroy(); err != nil {
			return err
		}
		n.session = nil
	}
	return shutdownRuntime()
}

// Predict runs the detector on one image. Detections below the score
// threshold are dropped; surviving mask probabilities are scaled back to the
// original image resolution and binarized.
func (n *InstanceNet) Predict(img image.Image) ([]types.Instance, error) {
	if n.session == nil {
		return nil, errors.New("model is not initialized")
	}

	input, err := imageTensor(img, n.meta.ImageSize)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	outputs := make([]ort.Value, len(n.meta.OutputNames))
	if err := n.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer destroyValues(outputs)

	labels, ok := outputs[1].(*ort.Tensor[int64])
	if !ok {
		return nil, fmt.Errorf("unexpected labels output type %T", outputs[1])
	}
	scores, ok := outputs[2].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected scores output type %T", outputs[2])
	}
	masks, ok := outputs[3].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected masks output type %T", outputs[3])
	}

	maskShape := masks.GetShape()
	if len(maskShape) != 4 || maskShape[1] != 1 {
		return nil, fmt.Errorf("unexpected masks shape %v", maskShape)
	}
	count, mh, mw := int(maskShape[0]), int(maskShape[2]), int(maskShape[3])
	labelData := labels.GetData()
	scoreData := scores.GetData()
	if len(labelData) < count || len(scoreData) < count {
		return nil, fmt.Errorf("detection outputs disagree: %d masks, %d labels, %d scores",
			count, len(labelData), len(scoreData))
	}

	maskData := masks.GetData()
	plane := mh * mw
	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()

	var instances []types.Instance
	for i := 0; i < count; i++ {
		if scoreData[i] < n.meta.ScoreThreshold {
			continue
		}
		instances = append(instances, types.Instance{
			Class: int(labelData[i]),
			Score: scoreData[i],
			Mask:  binarizeMask(maskData[i*plane:(i+1)*plane], mw, mh, origW, origH),
		})
	}
	return instances, nil
}

// binarizeMask scales a probability mask to the target resolution and keeps
// pixels whose probability is at least one half.
func binarizeMask(probs []float32, w, h, dstW, dstH int) *types.Mask {
	src := image.NewGray(image.Rect(0, 0, w, h))
	for i, v := range probs {
		if v < 0 {
			v = 0
		} else if v > 1 {
			v = 1
		}
		src.Pix[i] = uint8(v * 255)
	}
	scaled := resize.Resize(uint(dstW), uint(dstH), src, resize.Bilinear)
	bits := make([]uint8, dstW*dstH)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			if color.GrayModel.Convert(scaled.At(x, y)).(color.Gray).Y >= 128 {
				bits[y*dstW+x] = 1
			}
		}
	}
	return &types.Mask{Width: dstW, Height: dstH, Bits: bits}
}
