package evaluation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/catalog"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/scorer"
	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

// fakeComm scripts the group coordination of a single test rank.
type fakeComm struct {
	rank     int
	world    int
	agreed   string
	barriers int
}

func (f *fakeComm) Rank() int      { return f.rank }
func (f *fakeComm) WorldSize() int { return f.world }

func (f *fakeComm) Barrier(ctx context.Context) error {
	f.barriers++
	return ctx.Err()
}

func (f *fakeComm) Agree(_ context.Context, _, proposal string) (string, error) {
	if f.agreed != "" {
		return f.agreed, nil
	}
	return proposal, nil
}

// fakeInstanceScorer records its invocation and returns fixed averages.
type fakeInstanceScorer struct {
	preds []string
	gts   []string
	cfg   scorer.Config
	calls int

	averages scorer.InstanceAverages
	err      error
}

func (f *fakeInstanceScorer) EvaluateInstanceLists(_ context.Context, preds, gts []string, cfg scorer.Config) (*scorer.InstanceAverages, error) {
	f.calls++
	f.preds, f.gts, f.cfg = preds, gts, cfg
	if f.err != nil {
		return nil, f.err
	}
	out := f.averages
	return &out, nil
}

type fakePixelScorer struct {
	preds []string
	gts   []string
	cfg   scorer.Config
	calls int

	averages scorer.PixelAverages
	err      error
}

func (f *fakePixelScorer) EvaluatePixelLists(_ context.Context, preds, gts []string, cfg scorer.Config) (*scorer.PixelAverages, error) {
	f.calls++
	f.preds, f.gts, f.cfg = preds, gts, cfg
	if f.err != nil {
		return nil, f.err
	}
	out := f.averages
	return &out, nil
}

type fakeVideoScorer struct {
	preds []string
	gts   []string
	cfg   scorer.Config
	calls int

	averages scorer.VideoAverages
	err      error
}

func (f *fakeVideoScorer) EvaluateVideoLists(_ context.Context, preds, gts []string, cfg scorer.Config) (*scorer.VideoAverages, error) {
	f.calls++
	f.preds, f.gts, f.cfg = preds, gts, cfg
	if f.err != nil {
		return nil, f.err
	}
	out := f.averages
	return &out, nil
}

// registerDataset creates a ground-truth tree and registers metadata
// pointing at it. Returned is the gt root.
func registerDataset(t *testing.T, name string, thing []string, gtFiles []string) string {
	t.Helper()
	gtDir := t.TempDir()
	for _, f := range gtFiles {
		path := filepath.Join(gtDir, f)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir gt subdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("gt"), 0o644); err != nil {
			t.Fatalf("write gt file: %v", err)
		}
	}
	catalog.Register(catalog.Metadata{Name: name, ThingClasses: thing, GTDir: gtDir})
	return gtDir
}

func TestResetAdoptsAgreedDirectory(t *testing.T) {
	sandbox := t.TempDir()
	t.Setenv("TMPDIR", sandbox)

	shared, err := os.MkdirTemp("", scratchPrefix)
	if err != nil {
		t.Fatalf("mkdir shared: %v", err)
	}

	registerDataset(t, "reset_adopt_split", []string{"person"}, []string{"city/x_gtFine_instanceIds.png"})
	fc := &fakeComm{rank: 1, world: 2, agreed: shared}
	ev, err := NewInstanceEvaluator("reset_adopt_split", &fakeInstanceScorer{}, Params{Communicator: fc})
	if err != nil {
		t.Fatalf("NewInstanceEvaluator: %v", err)
	}

	if err := ev.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	if ev.tempDir != shared {
		t.Errorf("tempDir = %q, want agreed directory %q", ev.tempDir, shared)
	}

	// The losing local proposal must be gone: only the shared directory
	// may remain in the sandbox.
	entries, err := os.ReadDir(sandbox)
	if err != nil {
		t.Fatalf("read sandbox: %v", err)
	}
	if len(entries) != 1 || filepath.Join(sandbox, entries[0].Name()) != shared {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("sandbox entries = %v, want only the agreed directory", names)
	}
}

func TestResetKeepsOwnWinningDirectory(t *testing.T) {
	registerDataset(t, "reset_win_split", []string{"person"}, []string{"city/x_gtFine_instanceIds.png"})
	ev, err := NewInstanceEvaluator("reset_win_split", &fakeInstanceScorer{}, Params{})
	if err != nil {
		t.Fatalf("NewInstanceEvaluator: %v", err)
	}
	if err := ev.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	defer os.RemoveAll(ev.tempDir)

	info, err := os.Stat(ev.tempDir)
	if err != nil || !info.IsDir() {
		t.Fatalf("scratch directory %q not usable: %v", ev.tempDir, err)
	}
	if !strings.HasPrefix(filepath.Base(ev.tempDir), scratchPrefix) {
		t.Errorf("scratch directory %q does not carry prefix %q", ev.tempDir, scratchPrefix)
	}
}

func TestProcessBeforeResetFails(t *testing.T) {
	registerDataset(t, "noreset_split", []string{"person"}, []string{"city/x_gtFine_instanceIds.png"})
	ev, err := NewInstanceEvaluator("noreset_split", &fakeInstanceScorer{}, Params{})
	if err != nil {
		t.Fatalf("NewInstanceEvaluator: %v", err)
	}
	err = ev.Process(context.Background(), []types.Prediction{{Input: types.ImageInput{FileName: "a.png"}}})
	if !errors.Is(err, ErrNotReset) {
		t.Errorf("Process error = %v, want ErrNotReset", err)
	}
}

func TestEvaluateOnSecondaryRankReturnsNothing(t *testing.T) {
	registerDataset(t, "rank1_split", []string{"person"}, []string{"city/x_gtFine_instanceIds.png"})
	fc := &fakeComm{rank: 1, world: 2}
	sc := &fakeInstanceScorer{}
	ev, err := NewInstanceEvaluator("rank1_split", sc, Params{Communicator: fc})
	if err != nil {
		t.Fatalf("NewInstanceEvaluator: %v", err)
	}
	if err := ev.Reset(context.Background()); err != nil {
		t.Fatalf("Reset returned error: %v", err)
	}
	defer os.RemoveAll(ev.tempDir)

	metrics, err := ev.Evaluate(context.Background())
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if metrics != nil {
		t.Errorf("metrics = %v, want nil on a secondary rank", metrics)
	}
	if fc.barriers != 1 {
		t.Errorf("barrier entered %d times, want 1", fc.barriers)
	}
	if sc.calls != 0 {
		t.Errorf("scorer invoked %d times on a secondary rank, want 0", sc.calls)
	}
}

func TestUnknownDatasetFails(t *testing.T) {
	_, err := NewInstanceEvaluator("never_registered_split", &fakeInstanceScorer{}, Params{})
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("error = %v, want catalog.ErrNotFound", err)
	}
}

func TestPredictionNameDerivation(t *testing.T) {
	e := &cityscapesEvaluator{tempDir: "/scratch"}
	tests := []struct {
		name       string
		gt         string
		gtSuffix   string
		predSuffix string
		want       string
	}{
		{
			"instance annotation",
			"/gt/frankfurt/frankfurt_000000_000294_gtFine_instanceIds.png",
			instanceGTSuffix, "_pred.txt",
			"/scratch/frankfurt_000000_000294_leftImg8bit_pred.txt",
		},
		{
			"label annotation",
			"/gt/munster/munster_000001_000019_gtFine_labelIds.png",
			labelGTSuffix, "_pred.png",
			"/scratch/munster_000001_000019_leftImg8bit_pred.png",
		},
		{
			"plain frame name",
			"/gt/001/001_00010.png",
			labelGTSuffix, "_pred.png",
			"/scratch/001_00010_pred.png",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.predictionFor(tt.gt, tt.gtSuffix, tt.predSuffix); got != tt.want {
				t.Errorf("predictionFor(%q) = %q, want %q", tt.gt, got, tt.want)
			}
		})
	}
}
