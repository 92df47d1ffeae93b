package relief

import (
	"fmt"

	"github.com/chazu/coinrelief/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Projection records what Project did to a mesh.
type Projection struct {
	ZRange     float64 // Z extent before compression
	ZScale     float64 // effective depth/ZRange, 1 when degenerate
	Shift      r3.Vec  // total translation applied after compression
	Bounds     geom.BoundingBox
	Degenerate bool // zero Z extent, depth left untouched
}

// Project compresses the depth of m into [0, depth] using alg and centers
// its X/Y footprint on the origin. The relief ends up centered on
// z = depth/2. A mesh without Z extent keeps its Z values.
func Project(m *geom.Mesh, alg Algorithm, depth float64) (Projection, error) {
	if depth <= 0 {
		return Projection{}, fmt.Errorf("project: depth must be positive, got %g", depth)
	}

	b := geom.Bounds(m)
	p := Projection{ZRange: b.Depth(), ZScale: 1}
	if p.ZRange <= 0 {
		p.Degenerate = true
		c := b.Center()
		p.Shift = r3.Vec{X: -c.X, Y: -c.Y}
		m.Translate(p.Shift)
		p.Bounds = geom.Bounds(m)
		return p, nil
	}
	p.ZScale = depth / p.ZRange

	switch alg {
	case AffineSquash:
		squash(m, p.ZScale)
	case VertexProjection, VertexProjectionWithBackCut:
		remapZ(m, b.Min.Z, p.ZRange, depth)
	default:
		return Projection{}, fmt.Errorf("project: unsupported algorithm %v", alg)
	}

	b = geom.Bounds(m)
	c := b.Center()
	p.Shift = r3.Vec{X: -c.X, Y: -c.Y, Z: depth/2 - c.Z}
	m.Translate(p.Shift)
	b = geom.Bounds(m)

	if alg.NeedsBackCut() {
		// The cut plane is z = 0, so the front surface must start exactly there.
		lift := r3.Vec{Z: -b.Min.Z}
		m.Translate(lift)
		p.Shift = r3.Add(p.Shift, lift)
		b = geom.Bounds(m)
	}

	p.Bounds = b
	return p, nil
}

// squash multiplies only the Z scale; X and Y are untouched.
func squash(m *geom.Mesh, zScale float64) {
	geom.AxisScale(r3.Vec{X: 1, Y: 1, Z: zScale}).Apply(m)
}

// remapZ replaces each vertex Z with its normalized height times depth.
// This is a per-vertex operation, not a height-field: vertices sharing an
// (X,Y) location are each flattened independently.
func remapZ(m *geom.Mesh, minZ, zRange, depth float64) {
	for i, v := range m.Vertices {
		m.Vertices[i].Z = (v.Z - minZ) / zRange * depth
	}
}

// BackCutter returns the slab removed from a back-cut relief: a cube of
// edge 2*diameter whose top face lies on z = 0.
func BackCutter(diameter float64) *geom.Mesh {
	return geom.NewBox("cutter",
		r3.Vec{X: -diameter, Y: -diameter, Z: -2 * diameter},
		r3.Vec{X: diameter, Y: diameter, Z: 0},
	)
}
