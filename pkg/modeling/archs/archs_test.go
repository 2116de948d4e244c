package archs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/modeling"
)

func TestBuildRegisteredArchs(t *testing.T) {
	tests := []struct {
		arch string
	}{
		{modeling.ArchONNXSemSeg},
		{modeling.ArchONNXInstance},
	}
	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			m, err := modeling.Build(modeling.Config{
				Arch:   tt.arch,
				Device: "cuda:2",
				Path:   "/models/net.onnx",
			})
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if m.Arch() != tt.arch {
				t.Errorf("Arch() = %q, want %q", m.Arch(), tt.arch)
			}
			if m.Device() != "cuda:2" {
				t.Errorf("Device() = %q, want cuda:2", m.Device())
			}
		})
	}
}

func TestBuildRequiresModelPath(t *testing.T) {
	for _, arch := range []string{modeling.ArchONNXSemSeg, modeling.ArchONNXInstance} {
		if _, err := modeling.Build(modeling.Config{Arch: arch}); err == nil {
			t.Errorf("Build(%s) without path should fail", arch)
		}
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file keeps zero value", func(t *testing.T) {
		var meta Metadata
		if err := loadMetadata(filepath.Join(dir, "absent.onnx"), &meta); err != nil {
			t.Fatalf("loadMetadata() error = %v", err)
		}
		if meta.InputName != "" || meta.ImageSize != 0 {
			t.Errorf("metadata changed without a sidecar file: %+v", meta)
		}
	})

	t.Run("sidecar overrides", func(t *testing.T) {
		model := filepath.Join(dir, "net.onnx")
		sidecar := `{"input_name":"img","output_names":["seg"],"image_size":256,"score_threshold":0.7}`
		if err := os.WriteFile(filepath.Join(dir, "net.json"), []byte(sidecar), 0o644); err != nil {
			t.Fatal(err)
		}
		var meta Metadata
		if err := loadMetadata(model, &meta); err != nil {
			t.Fatalf("loadMetadata() error = %v", err)
		}
		if meta.InputName != "img" {
			t.Errorf("InputName = %q, want img", meta.InputName)
		}
		if len(meta.OutputNames) != 1 || meta.OutputNames[0] != "seg" {
			t.Errorf("OutputNames = %v, want [seg]", meta.OutputNames)
		}
		if meta.ImageSize != 256 {
			t.Errorf("ImageSize = %d, want 256", meta.ImageSize)
		}
		if meta.ScoreThreshold != 0.7 {
			t.Errorf("ScoreThreshold = %v, want 0.7", meta.ScoreThreshold)
		}
	})

	t.Run("garbage sidecar fails", func(t *testing.T) {
		model := filepath.Join(dir, "broken.onnx")
		if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{nope"), 0o644); err != nil {
			t.Fatal(err)
		}
		var meta Metadata
		if err := loadMetadata(model, &meta); err == nil {
			t.Error("expected error for malformed metadata")
		}
	})
}

func TestArgmaxClasses(t *testing.T) {
	// Three classes over a 2x2 plane, channel-major.
	scores := []float32{
		0.5, 0.1, 0.9, 0.2,
		0.3, 0.8, 0.9, 0.1,
		0.2, 0.4, 0.9, 0.3,
	}
	got := argmaxClasses(scores, 3, 2, 2)
	want := []uint8{0, 1, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pixel %d = %d, want %d (ties must keep the lower class)", i, got[i], want[i])
		}
	}
}

func TestUpsampleTrainIDs(t *testing.T) {
	t.Run("identity", func(t *testing.T) {
		ids := []uint8{1, 2, 3, 4}
		out := upsampleTrainIDs(ids, 2, 2, 2, 2)
		if out.Width != 2 || out.Height != 2 {
			t.Fatalf("got %dx%d, want 2x2", out.Width, out.Height)
		}
		for i := range ids {
			if out.TrainIDs[i] != ids[i] {
				t.Errorf("pixel %d = %d, want %d", i, out.TrainIDs[i], ids[i])
			}
		}
	})

	t.Run("doubles without inventing labels", func(t *testing.T) {
		ids := []uint8{1, 2, 3, 4}
		out := upsampleTrainIDs(ids, 2, 2, 4, 4)
		want := []uint8{
			1, 1, 2, 2,
			1, 1, 2, 2,
			3, 3, 4, 4,
			3, 3, 4, 4,
		}
		if out.Width != 4 || out.Height != 4 {
			t.Fatalf("got %dx%d, want 4x4", out.Width, out.Height)
		}
		for i := range want {
			if out.TrainIDs[i] != want[i] {
				t.Errorf("pixel %d = %d, want %d", i, out.TrainIDs[i], want[i])
			}
		}
	})
}

func TestBinarizeMask(t *testing.T) {
	t.Run("threshold at one half", func(t *testing.T) {
		mask := binarizeMask([]float32{0.9, 0.4, 0.5, 0.1}, 2, 2, 2, 2)
		want := []uint8{1, 0, 0, 0}
		for i := range want {
			if mask.Bits[i] != want[i] {
				t.Errorf("bit %d = %d, want %d", i, mask.Bits[i], want[i])
			}
		}
	})

	t.Run("scales to target resolution", func(t *testing.T) {
		mask := binarizeMask([]float32{1.0}, 1, 1, 2, 2)
		if mask.Width != 2 || mask.Height != 2 {
			t.Fatalf("got %dx%d, want 2x2", mask.Width, mask.Height)
		}
		for i, b := range mask.Bits {
			if b != 1 {
				t.Errorf("bit %d = %d, want 1", i, b)
			}
		}
	})
}
