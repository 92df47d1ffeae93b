package kernel

import (
	"errors"
	"fmt"
)

// ErrNonManifold is the sentinel matched by every NonManifoldError.
var ErrNonManifold = errors.New("non-manifold operand")

// NonManifoldError reports a boolean operand that is not a closed,
// non-self-intersecting solid.
type NonManifoldError struct {
	Operand string
	Reason  string
}

func (e *NonManifoldError) Error() string {
	return fmt.Sprintf("non-manifold operand %q: %s", e.Operand, e.Reason)
}

// Is makes errors.Is(err, ErrNonManifold) succeed.
func (e *NonManifoldError) Is(target error) bool {
	return target == ErrNonManifold
}

// Describe renders a diagnosis as a NonManifoldError reason.
func (d Diagnosis) Describe() string {
	return fmt.Sprintf("%d boundary edges, %d non-manifold edges, %d self-intersections",
		d.BoundaryEdges, d.NonManifoldEdges, d.SelfIntersections)
}
