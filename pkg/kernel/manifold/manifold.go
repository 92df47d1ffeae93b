//go:build manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library (https://github.com/elalish/manifold). Manifold provides
// exact, guaranteed-manifold mesh boolean operations and refuses operands
// that are not closed solids.
//
// This package requires the Manifold C library (manifoldc) to be installed.
// Build with: go build -tags=manifold
package manifold

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmanifoldc

#include <stdlib.h>
#include <manifold/manifoldc.h>
*/
import "C"

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// Compile-time interface checks.
var _ kernel.Kernel = (*ManifoldKernel)(nil)
var _ kernel.Solid = (*manifoldSolid)(nil)

// manifoldSolid wraps a C ManifoldManifold pointer and implements kernel.Solid.
type manifoldSolid struct {
	ptr *C.ManifoldManifold
}

// BoundingBox returns the axis-aligned bounding box of the solid.
func (s *manifoldSolid) BoundingBox() (min, max [3]float64) {
	alloc := C.manifold_alloc_box()
	bbox := C.manifold_bounding_box(alloc, s.ptr)
	defer C.manifold_delete_box(bbox)

	min[0] = float64(C.manifold_box_min_x(bbox))
	min[1] = float64(C.manifold_box_min_y(bbox))
	min[2] = float64(C.manifold_box_min_z(bbox))
	max[0] = float64(C.manifold_box_max_x(bbox))
	max[1] = float64(C.manifold_box_max_y(bbox))
	max[2] = float64(C.manifold_box_max_z(bbox))
	return min, max
}

// newSolid wraps a C ManifoldManifold pointer with Go-side finalizer
// for automatic memory management.
func newSolid(ptr *C.ManifoldManifold) *manifoldSolid {
	s := &manifoldSolid{ptr: ptr}
	runtime.SetFinalizer(s, func(s *manifoldSolid) {
		if s.ptr != nil {
			C.manifold_delete_manifold(s.ptr)
			s.ptr = nil
		}
	})
	return s
}

// ManifoldKernel implements kernel.Kernel using the Manifold C library.
type ManifoldKernel struct{}

// New creates a new ManifoldKernel.
func New() (kernel.Kernel, error) {
	return &ManifoldKernel{}, nil
}

// Name identifies the backend.
func (k *ManifoldKernel) Name() string { return "manifold" }

// FromMesh hands a mesh to Manifold as MeshGL. Coincident vertices are
// welded first because Manifold derives topology from shared indices.
// Inputs Manifold rejects come back as a *kernel.NonManifoldError.
func (k *ManifoldKernel) FromMesh(m *geom.Mesh) (kernel.Solid, error) {
	if m.IsEmpty() {
		return nil, fmt.Errorf("manifold: %s is empty", m)
	}
	if errs := m.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("manifold: %s: %w", m, errs[0])
	}

	welded := m.Clone()
	welded.Weld()
	tris := fanIndices(welded)

	props := make([]float32, 0, len(welded.Vertices)*3)
	for _, v := range welded.Vertices {
		props = append(props, float32(v.X), float32(v.Y), float32(v.Z))
	}

	meshGL := C.manifold_meshgl(C.manifold_alloc_meshgl(),
		(*C.float)(unsafe.Pointer(&props[0])), C.size_t(len(welded.Vertices)), C.size_t(3),
		(*C.uint32_t)(unsafe.Pointer(&tris[0])), C.size_t(len(tris)/3),
	)
	defer C.manifold_delete_meshgl(meshGL)

	ptr := C.manifold_of_meshgl(C.manifold_alloc_manifold(), meshGL)
	if status := C.manifold_status(ptr); status != C.MANIFOLD_NO_ERROR {
		C.manifold_delete_manifold(ptr)
		return nil, &kernel.NonManifoldError{
			Operand: m.Name,
			Reason:  fmt.Sprintf("manifold status %d", int(status)),
		}
	}
	return newSolid(ptr), nil
}

// fanIndices triangulates every face as a fan around its first vertex.
func fanIndices(m *geom.Mesh) []uint32 {
	out := make([]uint32, 0, m.TriangleCount()*3)
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			out = append(out, uint32(f[0]), uint32(f[i]), uint32(f[i+1]))
		}
	}
	return out
}

func unwrapPair(a, b kernel.Solid) (*manifoldSolid, *manifoldSolid, error) {
	sa, ok := a.(*manifoldSolid)
	if !ok {
		return nil, nil, fmt.Errorf("manifold: foreign solid %T", a)
	}
	sb, ok := b.(*manifoldSolid)
	if !ok {
		return nil, nil, fmt.Errorf("manifold: foreign solid %T", b)
	}
	return sa, sb, nil
}

// Union returns the boolean union of two solids.
func (k *ManifoldKernel) Union(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return newSolid(C.manifold_union(C.manifold_alloc_manifold(), sa.ptr, sb.ptr)), nil
}

// Difference returns the boolean difference (a minus b).
func (k *ManifoldKernel) Difference(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return newSolid(C.manifold_difference(C.manifold_alloc_manifold(), sa.ptr, sb.ptr)), nil
}

// Intersection returns the boolean intersection of two solids.
func (k *ManifoldKernel) Intersection(a, b kernel.Solid) (kernel.Solid, error) {
	sa, sb, err := unwrapPair(a, b)
	if err != nil {
		return nil, err
	}
	return newSolid(C.manifold_intersection(C.manifold_alloc_manifold(), sa.ptr, sb.ptr)), nil
}

// ToMesh extracts a triangle mesh from the solid using Manifold's MeshGL
// format. The first three vertex properties are always the position.
func (k *ManifoldKernel) ToMesh(s kernel.Solid) (*geom.Mesh, error) {
	ms, ok := s.(*manifoldSolid)
	if !ok {
		return nil, fmt.Errorf("manifold: foreign solid %T", s)
	}

	meshGL := C.manifold_get_meshgl(C.manifold_alloc_meshgl(), ms.ptr)
	defer C.manifold_delete_meshgl(meshGL)

	numVert := int(C.manifold_meshgl_num_vert(meshGL))
	numTri := int(C.manifold_meshgl_num_tri(meshGL))
	if numVert == 0 || numTri == 0 {
		return nil, fmt.Errorf("manifold: result is empty")
	}
	numProp := int(C.manifold_meshgl_num_prop(meshGL))

	propData := make([]float32, numVert*numProp)
	C.manifold_meshgl_vert_properties(
		(*C.float)(unsafe.Pointer(&propData[0])),
		meshGL,
	)
	indices := make([]uint32, numTri*3)
	C.manifold_meshgl_tri_verts(
		(*C.uint32_t)(unsafe.Pointer(&indices[0])),
		meshGL,
	)

	out := &geom.Mesh{
		Name:     "solid",
		Vertices: make([]r3.Vec, numVert),
		Faces:    make([][]int, numTri),
	}
	for i := range out.Vertices {
		base := i * numProp
		out.Vertices[i] = r3.Vec{
			X: float64(propData[base]),
			Y: float64(propData[base+1]),
			Z: float64(propData[base+2]),
		}
	}
	for i := range out.Faces {
		out.Faces[i] = []int{int(indices[i*3]), int(indices[i*3+1]), int(indices[i*3+2])}
	}
	return out, nil
}
