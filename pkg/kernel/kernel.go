// Package kernel defines the abstract geometry kernel interface used for
// boolean solid combination. Implementations (model3d, sdfx, manifold)
// provide the CSG behind this interface so the coin pipeline never
// implements booleans itself.
//
// Every operand handed to a kernel must be a closed, non-self-intersecting
// surface. What happens otherwise is backend specific: some reject the
// input with a NonManifoldError, others silently produce garbage. Callers
// that cannot guarantee the precondition should Diagnose their meshes first.
package kernel

import "github.com/chazu/coinrelief/pkg/geom"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Name identifies the backend in logs.
	Name() string

	// FromMesh converts a closed mesh into a kernel solid.
	FromMesh(m *geom.Mesh) (Solid, error)

	// Boolean operations. Operands are not modified.
	Union(a, b Solid) (Solid, error)
	Difference(a, b Solid) (Solid, error)
	Intersection(a, b Solid) (Solid, error)

	// ToMesh extracts a triangle mesh from the solid.
	ToMesh(s Solid) (*geom.Mesh, error)
}

// Diagnosis summarizes how far a mesh is from satisfying the solid
// precondition.
type Diagnosis struct {
	BoundaryEdges     int
	NonManifoldEdges  int
	SelfIntersections int
}

// OK reports whether no problem was found.
func (d Diagnosis) OK() bool {
	return d.BoundaryEdges == 0 && d.NonManifoldEdges == 0 && d.SelfIntersections == 0
}

// Diagnoser is implemented by kernels that can inspect a mesh before
// accepting it.
type Diagnoser interface {
	Diagnose(m *geom.Mesh) Diagnosis
}

// Diagnose inspects m with k if k supports it, and falls back to an edge
// count otherwise. The fallback cannot see self-intersections.
func Diagnose(k Kernel, m *geom.Mesh) Diagnosis {
	if d, ok := k.(Diagnoser); ok {
		return d.Diagnose(m)
	}
	e := geom.EdgeReport(m)
	return Diagnosis{BoundaryEdges: e.Boundary, NonManifoldEdges: e.NonManifold}
}
