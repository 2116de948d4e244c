package cityscapes

import "testing"

func TestIDForTrainID(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		trainID uint8
		want    uint8
	}{
		{"road", Default, 0, 7},
		{"sidewalk", Default, 1, 8},
		{"car", Default, 13, 26},
		{"bicycle", Default, 18, 33},
		{"beyond last train id", Default, 19, IgnoreID},
		{"ignore sentinel", Default, 255, IgnoreID},
		{"viper sky", Viper16, 0, 2},
		{"viper truck", Viper16, 15, 27},
		{"viper beyond last train id", Viper16, 16, IgnoreID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.table.IDForTrainID(tt.trainID); got != tt.want {
				t.Errorf("IDForTrainID(%d) = %d, want %d", tt.trainID, got, tt.want)
			}
		})
	}
}

func TestByName(t *testing.T) {
	tests := []struct {
		name         string
		lookup       string
		wantID       int
		wantInstance bool
		wantOK       bool
	}{
		{"car", "car", 26, true, true},
		{"road", "road", 7, false, true},
		{"traffic sign", "traffic sign", 20, false, true},
		{"unknown", "hovercraft", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, ok := Default.ByName(tt.lookup)
			if ok != tt.wantOK {
				t.Fatalf("ByName(%q) ok = %v, want %v", tt.lookup, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if l.ID != tt.wantID || l.HasInstances != tt.wantInstance {
				t.Errorf("ByName(%q) = {ID: %d, HasInstances: %v}, want {ID: %d, HasInstances: %v}",
					tt.lookup, l.ID, l.HasInstances, tt.wantID, tt.wantInstance)
			}
		})
	}
}

func TestByTrainIDFirstWins(t *testing.T) {
	l, ok := Default.ByTrainID(255)
	if !ok {
		t.Fatal("ByTrainID(255) not found")
	}
	if l.Name != "unlabeled" {
		t.Errorf("ByTrainID(255) = %q, want the first 255 entry %q", l.Name, "unlabeled")
	}
}

func TestNewTableFirstLabelWinsTrainID(t *testing.T) {
	table := NewTable([]Label{
		{Name: "first", ID: 10, TrainID: 3},
		{Name: "second", ID: 11, TrainID: 3},
	})
	if l, ok := table.ByTrainID(3); !ok || l.Name != "first" {
		t.Errorf("ByTrainID(3) = %+v, ok = %v, want the first label", l, ok)
	}
	if got := table.IDForTrainID(3); got != 10 {
		t.Errorf("IDForTrainID(3) = %d, want the first label's id 10", got)
	}
}

func TestScoredLabelCounts(t *testing.T) {
	tests := []struct {
		name  string
		table []Label
		want  int
	}{
		{"cityscapes", Labels, 19},
		{"viper16", ViperLabels, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := map[int]bool{}
			for _, l := range tt.table {
				if l.IgnoreInEval {
					continue
				}
				if seen[l.TrainID] {
					t.Errorf("train id %d assigned twice", l.TrainID)
				}
				seen[l.TrainID] = true
				if l.TrainID != len(seen)-1 {
					t.Errorf("train ids not contiguous: got %d at position %d", l.TrainID, len(seen)-1)
				}
			}
			if len(seen) != tt.want {
				t.Errorf("scored labels = %d, want %d", len(seen), tt.want)
			}
		})
	}
}
