// Package modeling builds inference models from a name-keyed registry of
// architecture constructors. Building a model never touches weights or the
// compute device; that happens when the caller invokes Init on the result.
package modeling

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownArch is returned by Build when the configured architecture tag
// has no registered constructor.
var ErrUnknownArch = errors.New("unknown model architecture")

// The closed set of architecture tags. Constructors may only be registered
// under one of these names.
const (
	ArchONNXSemSeg   = "onnx_sem_seg"
	ArchONNXInstance = "onnx_instance"
)

// Config selects an architecture and binds it to a compute device.
type Config struct {
	Arch   string `json:"arch" yaml:"arch"`
	Device string `json:"device" yaml:"device"`
	Path   string `json:"path" yaml:"path"`
}

// Model is a constructed inference model. Construction is cheap; Init
// creates the runtime session and Destroy releases it.
type Model interface {
	Arch() string
	Device() string
	Init() error
	Destroy() error
}

// Builder constructs a model from its configuration.
type Builder func(Config) (Model, error)

var builders = make(map[string]Builder)

func knownArch(name string) bool {
	return name == ArchONNXSemSeg || name == ArchONNXInstance
}

// Register installs the constructor for an architecture tag. It is meant to
// be called from init functions; registering an unknown tag, a nil builder,
// or the same tag twice panics.
func Register(name string, b Builder) {
	if b == nil {
		panic(fmt.Sprintf("modeling: nil builder for architecture %q", name))
	}
	if !knownArch(name) {
		panic(fmt.Sprintf("modeling: architecture %q is not a known tag", name))
	}
	if _, ok := builders[name]; ok {
		panic(fmt.Sprintf("modeling: architecture %q registered twice", name))
	}
	builders[name] = b
}

// Build looks up cfg.Arch in the registry and invokes its constructor with
// the full configuration.
func Build(cfg Config) (Model, error) {
	b, ok := builders[cfg.Arch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArch, cfg.Arch)
	}
	return b(cfg)
}

// Archs lists the registered architecture tags in sorted order.
func Archs() []string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
