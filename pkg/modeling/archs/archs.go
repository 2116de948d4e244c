// Package archs holds the concrete ONNX-backed architectures. Importing it
// installs them in the modeling registry:
//
//	import _ "github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/modeling/archs"
package archs

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	ort "github.com/yalue/onnxruntime_go"
)

const sharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// Metadata is the sidecar description of an exported model. It sits next to
// the model file under the same name with a .json extension; absent fields
// fall back to per-architecture defaults.
type Metadata struct {
	InputName      string   `json:"input_name"`
	OutputNames    []string `json:"output_names"`
	ImageSize      int      `json:"image_size"`
	Classes        []string `json:"classes"`
	ScoreThreshold float32  `json:"score_threshold"`
}

func loadMetadata(modelPath string, meta *Metadata) error {
	path := strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".json"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read model metadata: %w", err)
	}
	if err := json.Unmarshal(data, meta); err != nil {
		return fmt.Errorf("failed to parse model metadata %s: %w", path, err)
	}
	return nil
}

func initRuntime() error {
	if ort.IsInitialized() {
		return nil
	}
	if p, ok := os.LookupEnv(sharedLibraryEnv); ok {
		ort.SetSharedLibraryPath(p)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}
	return nil
}

func shutdownRuntime() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// imageTensor scales the image to size x size and packs it as a CHW float32
// tensor with channel values in [0, 1].
func imageTensor(img image.Image, size int) (*ort.Tensor[float32], error) {
	scaled := resize.Resize(uint(size), uint(size), img, resize.Bilinear)
	bounds := scaled.Bounds()
	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := scaled.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := y*size + x
			data[i] = float32(r>>8) / 255
			data[plane+i] = float32(g>>8) / 255
			data[2*plane+i] = float32(b>>8) / 255
		}
	}
	return ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), data)
}

func destroyValues(values []ort.Value) {
	for _, v := range values {
		if v != nil {
			_ = v.Destroy()
		}
	}
}
