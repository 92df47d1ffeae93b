// Package model3d implements the kernel.Kernel interface using the
// github.com/unixpickle/model3d mesh library. Solids are point-membership
// functions backed by BVH colliders; booleans compose those functions and
// ToMesh re-extracts a surface with marching cubes.
package model3d

import (
	"fmt"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*Model3DKernel)(nil)
var _ kernel.Diagnoser = (*Model3DKernel)(nil)

// DefaultResolution is the marching cubes cell size in mm.
const DefaultResolution = 0.2

// searchIters refines each marching cubes vertex by bisection.
const searchIters = 8

// m3dSolid wraps a model3d.Solid to implement kernel.Solid.
type m3dSolid struct {
	s model3d.Solid
}

// BoundingBox returns the axis-aligned bounding box.
func (s *m3dSolid) BoundingBox() (min, max [3]float64) {
	lo, hi := s.s.Min(), s.s.Max()
	return [3]float64{lo.X, lo.Y, lo.Z}, [3]float64{hi.X, hi.Y, hi.Z}
}

// Model3DKernel implements kernel.Kernel using model3d.
type Model3DKernel struct {
	resolution float64
}

// New returns a kernel that meshes solids with the given cell size in mm.
// A non-positive resolution selects DefaultResolution.
func New(resolution float64) *Model3DKernel {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &Model3DKernel{resolution: resolution}
}

// Name identifies the backend.
func (k *Model3DKernel) Name() string { return "model3d" }

// Resolution returns the marching cubes cell size.
func (k *Model3DKernel) Resolution() float64 { return k.resolution }

func unwrap(s kernel.Solid) (model3d.Solid, error) {
	ms, ok := s.(*m3dSolid)
	if !ok {
		return nil, fmt.Errorf("model3d: foreign solid %T", s)
	}
	return ms.s, nil
}

func wrap(s model3d.Solid) kernel.Solid {
	return &m3dSolid{s: s}
}

// FromMesh converts a mesh into a collider-backed solid. The mesh is not
// checked; see Diagnose.
func (k *Model3DKernel) FromMesh(m *geom.Mesh) (kernel.Solid, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("model3d: %s is empty", m)
	}
	if errs := m.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("model3d: %s: %w", m, errs[0])
	}
	mesh := ToModel3D(m)
	return wrap(model3d.NewColliderSolid(model3d.MeshToCollider(mesh))), nil
}

// Union returns the union of two solids.
func (k *Model3DKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(model3d.JoinedSolid{sa, sb}), nil
}

// Difference returns the difference a - b.
func (k *Model3DKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(&model3d.SubtractedSolid{Positive: sa, Negative: sb}), nil
}

// Intersection returns the intersection of two solids.
func (k *Model3DKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return wrap(model3d.IntersectedSolid{sa, sb}), nil
}

func unwrapPair(a, b kernel.Solid) (model3d.Solid, model3d.Solid, error) {
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

// ToMesh extracts the solid's surface with marching cubes at the kernel
// resolution. Vertices shared between triangles are welded.
func (k *Model3DKernel) ToMesh(s kernel.Solid) (*geom.Mesh, error) {
	ms, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	mesh := model3d.MarchingCubesSearch(ms, k.resolution, searchIters)
	out := FromModel3D("solid", mesh)
	if out.IsEmpty() {
		return nil, fmt.Errorf("model3d: marching cubes produced no surface")
	}
	return out, nil
}

// ToModel3D converts a geom mesh into a model3d mesh, fanning polygons into
// triangles.
func ToModel3D(m *geom.Mesh) *model3d.Mesh {
	tris := m.Triangles()
	out := make([]*model3d.Triangle, len(tris))
	for i, t := range tris {
		out[i] = &model3d.Triangle{coord(t[0]), coord(t[1]), coord(t[2])}
	}
	return model3d.NewMeshTriangles(out)
}

// FromModel3D converts a model3d mesh into a welded geom mesh.
func FromModel3D(name string, m *model3d.Mesh) *geom.Mesh {
	src := m.TriangleSlice()
	tris := make([]r3.Triangle, len(src))
	for i, t := range src {
		tris[i] = r3.Triangle{vec(t[0]), vec(t[1]), vec(t[2])}
	}
	out := geom.FromTriangles(name, tris)
	out.Weld()
	return out
}

func coord(v r3.Vec) model3d.Coord3D {
	return model3d.XYZ(v.X, v.Y, v.Z)
}

func vec(c model3d.Coord3D) r3.Vec {
	return r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
}
