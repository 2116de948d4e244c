package store

import (
	"testing"

	"github.com/dlsrbgg33/detectron2-Faster-RCNN/pkg/types"
)

func TestNewRound(t *testing.T) {
	metrics := types.Metrics{"segm": {"AP": 32.5}}
	round := NewRound("cityscapes_fine_instance_seg_val", "instance", 4, metrics)

	if round.RunID == "" {
		t.Error("round has no run id")
	}
	if round.Dataset != "cityscapes_fine_instance_seg_val" {
		t.Errorf("Dataset = %q", round.Dataset)
	}
	if round.Kind != "instance" {
		t.Errorf("Kind = %q", round.Kind)
	}
	if round.WorldSize != 4 {
		t.Errorf("WorldSize = %d", round.WorldSize)
	}
	if round.Metrics["segm"]["AP"] != 32.5 {
		t.Errorf("Metrics = %v", round.Metrics)
	}
	if round.CreatedAt <= 0 {
		t.Error("CreatedAt is not stamped")
	}

	if other := NewRound("x", "semseg", 1, nil); other.RunID == round.RunID {
		t.Error("run ids must be unique per round")
	}
}
