package coin

import (
	"fmt"
	"strings"

	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/chazu/coinrelief/pkg/kernel/manifold"
	"github.com/chazu/coinrelief/pkg/kernel/model3d"
	"github.com/chazu/coinrelief/pkg/kernel/sdfx"
)

// Kernels lists the backend names NewKernel accepts.
var Kernels = []string{"model3d", "sdfx", "manifold"}

func knownKernel(name string) bool {
	for _, k := range Kernels {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// NewKernel builds the named geometry backend. Resolution is the meshing
// cell size in mm for the sampling backends; manifold is exact and
// ignores it.
func NewKernel(name string, resolution float64) (kernel.Kernel, error) {
	switch strings.ToLower(name) {
	case "", "model3d":
		return model3d.New(resolution), nil
	case "sdfx":
		return sdfx.New(resolution), nil
	case "manifold":
		return manifold.New()
	default:
		return nil, &ConfigError{Field: KeyKernel, Message: fmt.Sprintf("unknown kernel %q", name)}
	}
}
