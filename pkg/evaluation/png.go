package evaluation

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/cityscapes"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// writeMaskPNG serializes a binary instance mask as an 8-bit gray PNG.
// Foreground pixels become 255, background 0; the scorer requires exactly
// those two values.
func writeMaskPNG(path string, m *types.Mask) error {
	if m.Width <= 0 || m.Height <= 0 || len(m.Bits) != m.Width*m.Height {
		return fmt.Errorf("mask dimensions %dx%d do not match %d pixels", m.Width, m.Height, len(m.Bits))
	}
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b != 0 {
			img.Pix[i] = 255
		}
	}
	return writePNG(path, img)
}

// writeLabelPNG serializes a train-id map as an 8-bit gray PNG in the
// dataset's label-id space. Train ids without a scored label become the
// ignore sentinel.
func writeLabelPNG(path string, table *cityscapes.Table, s *types.SemSeg) error {
	if s.Width <= 0 || s.Height <= 0 || len(s.TrainIDs) != s.Width*s.Height {
		return fmt.Errorf("label map dimensions %dx%d do not match %d pixels", s.Width, s.Height, len(s.TrainIDs))
	}
	img := image.NewGray(image.Rect(0, 0, s.Width, s.Height))
	for i, t := range s.TrainIDs {
		img.Pix[i] = table.IDForTrainID(t)
	}
	return writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
