package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// instanceDump is the on-disk form of one image's detections: a JSON
// manifest naming the input image and, per instance, the mask PNG sitting
// next to the manifest.
type instanceDump struct {
	FileName  string `json:"fileName"`
	Instances []struct {
		Class int     `json:"class"`
		Score float32 `json:"score"`
		Mask  string  `json:"mask"`
	} `json:"instances"`
}

// loadPredictions reads a prediction dump directory. Semantic kinds expect
// one gray train-id PNG per image named after the input image; the instance
// kind expects one JSON manifest per image with its mask PNGs alongside.
func loadPredictions(ctx context.Context, kind, dir string) ([]types.Prediction, error) {
	if kind == "instance" {
		return loadInstancePredictions(ctx, dir)
	}
	return loadSemSegPredictions(ctx, dir)
}

func listFiles(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no %s predictions under %s", ext, dir)
	}
	return files, nil
}

func loadSemSegPredictions(ctx context.Context, dir string) ([]types.Prediction, error) {
	files, err := listFiles(dir, ".png")
	if err != nil {
		return nil, err
	}
	preds := make([]types.Prediction, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range files {
		i := i
		file := files[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seg, err := decodeTrainIDs(file)
			if err != nil {
				return err
			}
			preds[i] = types.Prediction{
				Input:  types.ImageInput{FileName: filepath.Base(file)},
				SemSeg: seg,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

func loadInstancePredictions(ctx context.Context, dir string) ([]types.Prediction, error) {
	files, err := listFiles(dir, ".json")
	if err != nil {
		return nil, err
	}
	preds := make([]types.Prediction, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i := range files {
		i := i
		file := files[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pred, err := readInstanceDump(file)
			if err != nil {
				return err
			}
			preds[i] = *pred
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}

func readInstanceDump(path string) (*types.Prediction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dump instanceDump
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("failed to parse prediction manifest %s: %w", path, err)
	}
	if dump.FileName == "" {
		return nil, fmt.Errorf("prediction manifest %s misses the input file name", path)
	}

	pred := &types.Prediction{Input: types.ImageInput{FileName: dump.FileName}}
	for _, inst := range dump.Instances {
		mask, err := decodeMask(filepath.Join(filepath.Dir(path), inst.Mask))
		if err != nil {
			return nil, err
		}
		pred.Instances = append(pred.Instances, types.Instance{
			Class: inst.Class,
			Score: inst.Score,
			Mask:  mask,
		})
	}
	return pred, nil
}

func decodeGray(path string) (*image.Gray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray, nil
}

func decodeTrainIDs(path string) (*types.SemSeg, error) {
	gray, err := decodeGray(path)
	if err != nil {
		return nil, err
	}
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	ids := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			ids[y*w+x] = gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y
		}
	}
	return &types.SemSeg{Width: w, Height: h, TrainIDs: ids}, nil
}

func decodeMask(path string) (*types.Mask, error) {
	gray, err := decodeGray(path)
	if err != nil {
		return nil, err
	}
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	bits := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y != 0 {
				bits[y*w+x] = 1
			}
		}
	}
	return &types.Mask{Width: w, Height: h, Bits: bits}, nil
}
