package relief

import (
	"fmt"
	"strings"

	"github.com/chazu/coinrelief/pkg/base"
)

// Algorithm selects the depth compression strategy.
type Algorithm int

const (
	// AffineSquash scales Z linearly into the relief depth, preserving
	// depth ordering and curvature exactly.
	AffineSquash Algorithm = iota
	// VertexProjection remaps each vertex's Z independently into
	// [0, depth]. Surfaces stacked along Z at the same (X,Y) are not
	// resolved, so non-trivial inputs can self-intersect.
	VertexProjection
	// VertexProjectionWithBackCut is VertexProjection followed by a
	// boolean cut removing everything below z = 0.
	VertexProjectionWithBackCut
)

var algorithmNames = map[Algorithm]string{
	AffineSquash:                "affine",
	VertexProjection:            "projection",
	VertexProjectionWithBackCut: "backcut",
}

func (a Algorithm) String() string {
	if s, ok := algorithmNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// ParseAlgorithm accepts the names printed by String, case-insensitively.
func ParseAlgorithm(s string) (Algorithm, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for a, n := range algorithmNames {
		if n == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown relief algorithm %q, expected affine, projection or backcut", s)
}

// DefaultMargin is the fraction of the coin diameter the X/Y footprint is
// fitted to.
func (a Algorithm) DefaultMargin() float64 {
	if a == AffineSquash {
		return 0.80
	}
	return 0.85
}

// DefaultSegments is the number of side faces of the base cylinder.
func (a Algorithm) DefaultSegments() int {
	if a == AffineSquash {
		return 32
	}
	return 128
}

// BasePlacement is where the base cylinder sits relative to the relief.
func (a Algorithm) BasePlacement() base.Placement {
	if a == VertexProjectionWithBackCut {
		return base.TopAtZero
	}
	return base.Centered
}

// NeedsBackCut reports whether the relief is sliced at z = 0 before
// combination.
func (a Algorithm) NeedsBackCut() bool {
	return a == VertexProjectionWithBackCut
}
