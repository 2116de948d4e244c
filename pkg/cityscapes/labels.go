// Package cityscapes carries the label definitions of the Cityscapes
// benchmark and the VIPER subset used for road-scene video evaluation,
// with the lookup tables the evaluators need.
package cityscapes

// Label is one row of a label-definition table.
type Label struct {
	// Name as used in ground-truth annotations and thing-class lists.
	Name string
	// ID written into *_labelIds.png ground-truth images and into the
	// prediction files handed to the external scorer.
	ID int
	// TrainID is the contiguous id models are trained on. 255 marks
	// labels excluded from training.
	TrainID int
	// Category groups labels ("flat", "vehicle", ...).
	Category   string
	CategoryID int
	// HasInstances marks labels that form object instances.
	HasInstances bool
	// IgnoreInEval excludes the label from scoring.
	IgnoreInEval bool
}

// Labels is the full Cityscapes table in dataset order.
var Labels = []Label{
	{Name: "unlabeled", ID: 0, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "ego vehicle", ID: 1, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "rectification border", ID: 2, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "out of roi", ID: 3, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "static", ID: 4, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "dynamic", ID: 5, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "ground", ID: 6, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "road", ID: 7, TrainID: 0, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: false},
	{Name: "sidewalk", ID: 8, TrainID: 1, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: false},
	{Name: "parking", ID: 9, TrainID: 255, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: true},
	{Name: "rail track", ID: 10, TrainID: 255, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: true},
	{Name: "building", ID: 11, TrainID: 2, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "wall", ID: 12, TrainID: 3, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "fence", ID: 13, TrainID: 4, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "guard rail", ID: 14, TrainID: 255, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: true},
	{Name: "bridge", ID: 15, TrainID: 255, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: true},
	{Name: "tunnel", ID: 16, TrainID: 255, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: true},
	{Name: "pole", ID: 17, TrainID: 5, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: false},
	{Name: "polegroup", ID: 18, TrainID: 255, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: true},
	{Name: "traffic light", ID: 19, TrainID: 6, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: false},
	{Name: "traffic sign", ID: 20, TrainID: 7, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: false},
	{Name: "vegetation", ID: 21, TrainID: 8, Category: "nature", CategoryID: 4, HasInstances: false, IgnoreInEval: false},
	{Name: "terrain", ID: 22, TrainID: 9, Category: "nature", CategoryID: 4, HasInstances: false, IgnoreInEval: false},
	{Name: "sky", ID: 23, TrainID: 10, Category: "sky", CategoryID: 5, HasInstances: false, IgnoreInEval: false},
	{Name: "person", ID: 24, TrainID: 11, Category: "human", CategoryID: 6, HasInstances: true, IgnoreInEval: false},
	{Name: "rider", ID: 25, TrainID: 12, Category: "human", CategoryID: 6, HasInstances: true, IgnoreInEval: false},
	{Name: "car", ID: 26, TrainID: 13, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "truck", ID: 27, TrainID: 14, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "bus", ID: 28, TrainID: 15, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "caravan", ID: 29, TrainID: 255, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: true},
	{Name: "trailer", ID: 30, TrainID: 255, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: true},
	{Name: "train", ID: 31, TrainID: 16, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "motorcycle", ID: 32, TrainID: 17, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "bicycle", ID: 33, TrainID: 18, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "license plate", ID: -1, TrainID: -1, Category: "vehicle", CategoryID: 7, HasInstances: false, IgnoreInEval: true},
}

// Table provides lookups over one label set.
type Table struct {
	labels    []Label
	byName    map[string]Label
	byTrainID map[int]Label
	idOfTrain [256]uint8
}

// NewTable builds the lookup structures for a label set. When two labels
// share a train id, the earlier one wins the train-id lookups.
func NewTable(labels []Label) *Table {
	t := &Table{
		labels:    labels,
		byName:    make(map[string]Label, len(labels)),
		byTrainID: make(map[int]Label, len(labels)),
	}
	for i := range t.idOfTrain {
		t.idOfTrain[i] = IgnoreID
	}
	var claimed [256]bool
	for _, l := range labels {
		t.byName[l.Name] = l
		if _, ok := t.byTrainID[l.TrainID]; !ok {
			t.byTrainID[l.TrainID] = l
		}
		if !l.IgnoreInEval && l.TrainID >= 0 && l.TrainID < len(t.idOfTrain) && !claimed[l.TrainID] {
			t.idOfTrain[l.TrainID] = uint8(l.ID)
			claimed[l.TrainID] = true
		}
	}
	return t
}

// IgnoreID is the sentinel written for pixels no scored label claims.
const IgnoreID = 255

// ByName looks a label up by its dataset name.
func (t *Table) ByName(name string) (Label, bool) {
	l, ok := t.byName[name]
	return l, ok
}

// ByTrainID looks a label up by its train id.
func (t *Table) ByTrainID(trainID int) (Label, bool) {
	l, ok := t.byTrainID[trainID]
	return l, ok
}

// IDForTrainID maps a predicted train id to the dataset label id the
// scorer expects, or IgnoreID when the train id is unmapped or the label
// is excluded from scoring.
func (t *Table) IDForTrainID(trainID uint8) uint8 {
	return t.idOfTrain[trainID]
}

// Len returns the number of labels in the table.
func (t *Table) Len() int { return len(t.labels) }

// Default is the lookup table over the Cityscapes labels.
var Default = NewTable(Labels)
