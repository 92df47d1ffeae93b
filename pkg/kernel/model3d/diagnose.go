package model3d

import (
	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/chazu/coinrelief/pkg/kernel"
)

// Diagnose reports open or over-shared edges and self-intersections.
// model3d welds coincident vertices, so triangle soups that are closed in
// space are reported as closed.
func (k *Model3DKernel) Diagnose(m *geom.Mesh) kernel.Diagnosis {
	mesh := ToModel3D(m)
	var d kernel.Diagnosis
	if mesh.NeedsRepair() {
		welded := m.Clone()
		welded.Weld()
		e := geom.EdgeReport(welded)
		d.BoundaryEdges = e.Boundary
		d.NonManifoldEdges = e.NonManifold
	}
	d.SelfIntersections = mesh.SelfIntersections()
	return d
}
