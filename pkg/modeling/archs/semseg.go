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
	modeling.Register(modeling.ArchONNXSemSeg, NewSemSeg)
}

const defaultSemSegSize = 512

// SemSegNet runs an exported semantic-segmentation network. Its output is a
// per-pixel class-score volume; Predict argmaxes that into train ids at the
// original image resolution.
type SemSegNet struct {
	cfg     modeling.Config
	meta    Metadata
	session *ort.DynamicAdvancedSession
}

// NewSemSeg constructs the network without touching the model file.
func NewSemSeg(cfg modeling.Config) (modeling.Model, error) {
	if cfg.Path == "" {
		return nil, errors.New("model path is required")
	}
	return &SemSegNet{cfg: cfg}, nil
}

func (n *SemSegNet) Arch() string   { return modeling.ArchONNXSemSeg }
func (n *SemSegNet) Device() string { return n.cfg.Device }

// Init loads the sidecar metadata and creates the onnxruntime session on the
// configured device.
func (n *SemSegNet) Init() error {
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
	if len(n.meta.OutputNames) == 0 {
		n.meta.OutputNames = []string{"output"}
	}
	if n.meta.ImageSize <= 0 {
		n.meta.ImageSize = defaultSemSegSize
	}

	options, err := modeling.SessionOptionsForDevice(n.cfg.Device)
	if err != nil {
		return err
	}
	if options != nil {
		defer options.Destroy()
	}

	session, err := ort.NewDynamicAdvancedSession(n.cfg.Path,
		[]string{n.meta.InputName}, n.meta.OutputNames[:1], options)
	if err != nil {
		return fmt.Errorf("failed to create session for %s: %w", n.cfg.Path, err)
	}
	n.session = session
	return nil
}

func (n *SemSegNet) Destroy() error {
	if n.session != nil {
		if err := n.session.Destroy(); err != nil {
			return err
		}
		n.session = nil
	}
	return shutdownRuntime()
}

// Predict runs the network on one image and returns a train-id map at the
// image's original resolution.
func (n *SemSegNet) Predict(img image.Image) (*types.SemSeg, error) {
	if n.session == nil {
		return nil, errors.New("model is not initialized")
	}

	input, err := imageTensor(img, n.meta.ImageSize)
	if err != nil {
		return nil, err
	}
	defer input.Destroy()

	outputs := []ort.Value{nil}
	if err := n.session.Run([]ort.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer destroyValues(outputs)

	scores, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", outputs[0])
	}
	shape := scores.GetShape()
	if len(shape) != 4 || shape[0] != 1 {
		return nil, fmt.Errorf("unexpected output shape %v", shape)
	}
	classes, h, w := int(shape[1]), int(shape[2]), int(shape[3])

	ids := argmaxClasses(scores.GetData(), classes, h, w)
	return upsampleTrainIDs(ids, w, h, img.Bounds().Dx(), img.Bounds().Dy()), nil
}

// argmaxClasses picks the highest-scoring class per pixel from a CHW score
// volume. Ties go to the lower class index.
func argmaxClasses(scores []float32, classes, h, w int) []uint8 {
	plane := h * w
	ids := make([]uint8, plane)
	for i := 0; i < plane; i++ {
		best := 0
		bestScore := scores[i]
		for c := 1; c < classes; c++ {
			if s := scores[c*plane+i]; s > bestScore {
				best = c
				bestScore = s
			}
		}
		ids[i] = uint8(best)
	}
	return ids
}

// upsampleTrainIDs scales a train-id map to the target resolution with
// nearest-neighbor sampling so that no new label values are invented.
func upsampleTrainIDs(ids []uint8, w, h, dstW, dstH int) *types.SemSeg {
	if dstW == w && dstH == h {
		return &types.SemSeg{Width: w, Height: h, TrainIDs: ids}
	}
	src := image.NewGray(image.Rect(0, 0, w, h))
	copy(src.Pix, ids)
	scaled := resize.Resize(uint(dstW), uint(dstH), src, resize.NearestNeighbor)
	out := make([]uint8, dstW*dstH)
	for y := 0; y < dstH; y++ {
		for x := 0; x < dstW; x++ {
			out[y*dstW+x] = color.GrayModel.Convert(scaled.At(x, y)).(color.Gray).Y
		}
	}
	return &types.SemSeg{Width: dstW, Height: dstH, TrainIDs: out}
}
