package cityscapes

// ViperLabels is the 16-class VIPER road-scene subset used for video
// semantic evaluation. IDs follow the VIPER category numbering; train ids
// are contiguous in table order.
var ViperLabels = []Label{
	{Name: "unlabeled", ID: 0, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "ambiguous", ID: 1, TrainID: 255, Category: "void", CategoryID: 0, HasInstances: false, IgnoreInEval: true},
	{Name: "sky", ID: 2, TrainID: 0, Category: "sky", CategoryID: 5, HasInstances: false, IgnoreInEval: false},
	{Name: "road", ID: 3, TrainID: 1, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: false},
	{Name: "sidewalk", ID: 4, TrainID: 2, Category: "flat", CategoryID: 1, HasInstances: false, IgnoreInEval: false},
	{Name: "terrain", ID: 6, TrainID: 3, Category: "nature", CategoryID: 4, HasInstances: false, IgnoreInEval: false},
	{Name: "tree", ID: 7, TrainID: 4, Category: "nature", CategoryID: 4, HasInstances: false, IgnoreInEval: false},
	{Name: "vegetation", ID: 8, TrainID: 5, Category: "nature", CategoryID: 4, HasInstances: false, IgnoreInEval: false},
	{Name: "building", ID: 9, TrainID: 6, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "infrastructure", ID: 10, TrainID: 7, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "fence", ID: 11, TrainID: 8, Category: "construction", CategoryID: 2, HasInstances: false, IgnoreInEval: false},
	{Name: "traffic light", ID: 13, TrainID: 9, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: false},
	{Name: "traffic sign", ID: 14, TrainID: 10, Category: "object", CategoryID: 3, HasInstances: false, IgnoreInEval: false},
	{Name: "person", ID: 20, TrainID: 11, Category: "human", CategoryID: 6, HasInstances: true, IgnoreInEval: false},
	{Name: "car", ID: 24, TrainID: 12, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "van", ID: 25, TrainID: 13, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "bus", ID: 26, TrainID: 14, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
	{Name: "truck", ID: 27, TrainID: 15, Category: "vehicle", CategoryID: 7, HasInstances: true, IgnoreInEval: false},
}

// Viper16 is the lookup table over the VIPER road-scene labels.
var Viper16 = NewTable(ViperLabels)
