package relief

import (
	"fmt"
	"math"

	"github.com/chazu/coinrelief/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Fit records what Normalize did to a mesh.
type Fit struct {
	Scale      float64
	Bounds     geom.BoundingBox // after scaling
	Degenerate bool             // zero X/Y extent, no scaling applied
}

// Normalize rotates m by the Euler angles (degrees, X then Y then Z) and
// scales it uniformly so that the larger of its X and Y extents equals
// diameter*margin. Z takes part in the scale but not in the fit. A mesh with
// no X/Y extent is left unscaled.
func Normalize(m *geom.Mesh, rotation r3.Vec, diameter, margin float64) (Fit, error) {
	if !(diameter > 0) || math.IsInf(diameter, 1) {
		return Fit{}, fmt.Errorf("normalize: diameter must be positive, got %g", diameter)
	}
	if !(margin > 0 && margin <= 1) {
		return Fit{}, fmt.Errorf("normalize: margin must be in (0, 1], got %g", margin)
	}

	for _, a := range []float64{rotation.X, rotation.Y, rotation.Z} {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return Fit{}, fmt.Errorf("normalize: rotation must be finite, got %v", rotation)
		}
	}

	if rotation != (r3.Vec{}) {
		geom.Rotation(rotation).Apply(m)
	}

	b := geom.Bounds(m)
	maxXY := b.MaxXY()
	if maxXY <= 0 {
		return Fit{Scale: 1, Bounds: b, Degenerate: true}, nil
	}

	scale := diameter * margin / maxXY
	geom.UniformScale(scale).Apply(m)

	return Fit{Scale: scale, Bounds: geom.Bounds(m)}, nil
}
