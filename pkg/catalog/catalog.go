// Package catalog keeps per-dataset metadata the evaluators resolve at
// construction time.
package catalog

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound reports a dataset name with no registered metadata.
var ErrNotFound = errors.New("dataset not registered")

// Metadata describes one evaluation dataset.
type Metadata struct {
	// Name of the dataset split, e.g. "cityscapes_fine_instance_seg_val".
	Name string `json:"name" yaml:"name"`
	// ThingClasses lists instance class names in model output order.
	ThingClasses []string `json:"thingClasses" yaml:"thingClasses"`
	// GTDir locates the ground-truth annotation root. May be a local
	// path or an s3:// URI resolved at evaluation time.
	GTDir string `json:"gtDir" yaml:"gtDir"`
}

var (
	mu       sync.RWMutex
	datasets = map[string]Metadata{}
)

// Register adds or replaces the metadata for a dataset.
func Register(meta Metadata) {
	mu.Lock()
	defer mu.Unlock()
	datasets[meta.Name] = meta
}

// Get resolves the metadata for a dataset name.
func Get(name string) (Metadata, error) {
	mu.RLock()
	defer mu.RUnlock()
	meta, ok := datasets[name]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return meta, nil
}

// Names returns the registered dataset names, unordered.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(datasets))
	for name := range datasets {
		names = append(names, name)
	}
	return names
}
