package scorer

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const stubTool = `#!/bin/sh
mode="$1"
shift
while [ "$#" -gt 0 ]; do
	case "$1" in
	--input) input="$2"; shift 2 ;;
	--output) output="$2"; shift 2 ;;
	*) shift ;;
	esac
done
if [ -n "$SCORER_TEST_CAPTURE" ]; then
	cp "$input" "$SCORER_TEST_CAPTURE"
fi
case "$mode" in
instance)
	printf '{"allAp":0.325,"allAp50%%":0.561}' > "$output"
	;;
pixel)
	printf '{"averageScoreClasses":0.71,"averageScoreInstClasses":0.52,"averageScoreCategories":0.88,"averageScoreInstCategories":0.69}' > "$output"
	;;
video)
	printf '{"averageScoreClasses":0.6,"averageScoreCategories":0.8,"averageScoreClasses_vid5":0.5,"averageScoreClasses_vid10":0.4,"averageScoreClasses_vid15":0.3,"averageScoreCategories_vid5":0.7,"averageScoreCategories_vid10":0.65,"averageScoreCategories_vid15":0.62}' > "$output"
	;;
fail)
	exit 3
	;;
esac
`

func writeStub(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cityscorer")
	if err := os.WriteFile(path, []byte(stubTool), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}
	return path
}

func TestCommandScorerInstance(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "request.json")
	t.Setenv("SCORER_TEST_CAPTURE", capture)

	s := NewCommandScorer(writeStub(t))
	cfg := Config{
		PredictionPath:  "/scratch/cityscapes_eval_x",
		GTInstancesFile: "/scratch/cityscapes_eval_x/gtInstances.json",
	}
	preds := []string{"/scratch/a_pred.txt", "/scratch/b_pred.txt"}
	gts := []string{"/gt/a.png", "/gt/b.png"}

	got, err := s.EvaluateInstanceLists(context.Background(), preds, gts, cfg)
	if err != nil {
		t.Fatalf("EvaluateInstanceLists returned error: %v", err)
	}
	if got.AllAP != 0.325 || got.AllAP50 != 0.561 {
		t.Errorf("averages = %+v, want allAp 0.325 allAp50%% 0.561", got)
	}

	data, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("read captured request: %v", err)
	}
	var req commandRequest
	if err := json.Unmarshal(data, &req); err != nil {
		t.Fatalf("unmarshal captured request: %v", err)
	}
	if req.Mode != "instance" {
		t.Errorf("request mode = %q, want instance", req.Mode)
	}
	if len(req.Predictions) != 2 || req.Predictions[1] != "/scratch/b_pred.txt" {
		t.Errorf("request predictions = %v", req.Predictions)
	}
	if len(req.GroundTruths) != 2 || req.GroundTruths[0] != "/gt/a.png" {
		t.Errorf("request ground truths = %v", req.GroundTruths)
	}
	if req.Config != cfg {
		t.Errorf("request config = %+v, want %+v", req.Config, cfg)
	}
}

func TestCommandScorerPixel(t *testing.T) {
	s := NewCommandScorer(writeStub(t))
	got, err := s.EvaluatePixelLists(context.Background(), []string{"p"}, []string{"g"}, Config{})
	if err != nil {
		t.Fatalf("EvaluatePixelLists returned error: %v", err)
	}
	want := PixelAverages{
		ScoreClasses:        0.71,
		ScoreInstClasses:    0.52,
		ScoreCategories:     0.88,
		ScoreInstCategories: 0.69,
	}
	if *got != want {
		t.Errorf("averages = %+v, want %+v", *got, want)
	}
}

func TestCommandScorerVideo(t *testing.T) {
	s := NewCommandScorer(writeStub(t))
	got, err := s.EvaluateVideoLists(context.Background(), []string{"p"}, []string{"g"}, Config{SpanWindow: 5})
	if err != nil {
		t.Fatalf("EvaluateVideoLists returned error: %v", err)
	}
	if got.ScoreClasses != 0.6 || got.ScoreClassesVid15 != 0.3 || got.ScoreCategoriesVid10 != 0.65 {
		t.Errorf("averages = %+v", got)
	}
}

func TestCommandScorerFailure(t *testing.T) {
	s := NewCommandScorer(writeStub(t))
	var out InstanceAverages
	err := s.run(context.Background(), "fail", nil, nil, Config{}, &out)
	if err == nil {
		t.Fatal("expected error from failing tool")
	}
}
