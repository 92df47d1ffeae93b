// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library. Meshes enter sdfx as exact
// signed distance fields and leave it through marching cubes.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"

	m3d "github.com/chazu/coinrelief/pkg/kernel/model3d"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultResolution is the marching cubes cell size in mm.
const DefaultResolution = 0.2

// minMeshCells keeps tiny solids from being rendered with a degenerate grid.
const minMeshCells = 16

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// meshSDF adapts a model3d mesh distance field to sdf.SDF3. model3d
// reports positive distances inside, sdfx expects negative.
type meshSDF struct {
	field model3d.SDF
	bb    sdf.Box3
}

// Evaluate returns the signed distance from p to the mesh surface.
func (m *meshSDF) Evaluate(p v3.Vec) float64 {
	return -m.field.SDF(model3d.XYZ(p.X, p.Y, p.Z))
}

// BoundingBox returns the mesh bounds.
func (m *meshSDF) BoundingBox() sdf.Box3 {
	return m.bb
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	resolution float64
}

// New returns an SdfxKernel that renders with the given cell size in mm.
// A non-positive resolution selects DefaultResolution.
func New(resolution float64) *SdfxKernel {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &SdfxKernel{resolution: resolution}
}

// Name identifies the backend.
func (k *SdfxKernel) Name() string { return "sdfx" }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) (sdf.SDF3, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok {
		return nil, fmt.Errorf("sdfx: foreign solid %T", s)
	}
	return ss.s, nil
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

// FromMesh turns a closed mesh into a distance field solid.
func (k *SdfxKernel) FromMesh(m *geom.Mesh) (kernel.Solid, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("sdfx: %s is empty", m)
	}
	if errs := m.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("sdfx: %s: %w", m, errs[0])
	}
	// Pad by one cell so the sampling grid always straddles the surface.
	b := geom.Bounds(m)
	pad := k.resolution
	return wrap(&meshSDF{
		field: model3d.MeshToSDF(m3d.ToModel3D(m)),
		bb: sdf.Box3{
			Min: v3.Vec{X: b.Min.X - pad, Y: b.Min.Y - pad, Z: b.Min.Z - pad},
			Max: v3.Vec{X: b.Max.X + pad, Y: b.Max.Y + pad, Z: b.Max.Z + pad},
		},
	}), nil
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Union3D(sa, sb)), nil
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Difference3D(sa, sb)), nil
}

// Intersection returns the intersection of two solids.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(sdf.Intersect3D(sa, sb)), nil
}

func unwrapPair(a, b kernel.Solid) (sdf.SDF3, sdf.SDF3, error) {
	sa, err := unwrap(a)
	if err != nil {
		return nil, nil, err
	}
	sb, err := unwrap(b)
	if err != nil {
		return nil, nil, err
	}
	return sa, sb, nil
}

// ToMesh converts a solid to a triangle mesh using marching cubes. The grid
// is sized so that a cell along the longest axis is about one resolution
// step.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*geom.Mesh, error) {
	sdf3, err := unwrap(s)
	if err != nil {
		return nil, err
	}

	bb := sdf3.BoundingBox()
	size := bb.Size()
	longest := math.Max(size.X, math.Max(size.Y, size.Z))
	cells := int(math.Ceil(longest / k.resolution))
	if cells < minMeshCells {
		cells = minMeshCells
	}

	renderer := render.NewMarchingCubesUniform(cells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no surface")
	}

	tris := make([]r3.Triangle, 0, len(triangles))
	for _, tri := range triangles {
		var t r3.Triangle
		for j := 0; j < 3; j++ {
			v := tri[j]
			t[j] = r3.Vec{X: v.X, Y: v.Y, Z: v.Z}
		}
		tris = append(tris, t)
	}

	m := geom.FromTriangles("solid", tris)
	m.Weld()
	return m, nil
}
