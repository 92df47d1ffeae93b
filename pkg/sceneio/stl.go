package sceneio

import (
	"bufio"
	"io"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/unixpickle/model3d/model3d"
	"gonum.org/v1/gonum/spatial/r3"
)

// DecodeSTL reads an ASCII or binary STL stream into a welded mesh.
// Triangles keep their file order.
func DecodeSTL(r io.Reader) (*geom.Mesh, error) {
	src, err := model3d.ReadSTL(r)
	if err != nil {
		return nil, err
	}
	tris := make([]r3.Triangle, len(src))
	for i, t := range src {
		for j, c := range t {
			tris[i][j] = r3.Vec{X: c.X, Y: c.Y, Z: c.Z}
		}
	}
	m := geom.FromTriangles("stl", tris)
	m.Weld()
	return m, nil
}

// EncodeSTL writes m as binary STL. Polygons are fan triangulated and
// coordinates are rounded to single precision.
func EncodeSTL(w io.Writer, m *geom.Mesh) error {
	src := m.Triangles()
	tris := make([]*model3d.Triangle, len(src))
	for i, t := range src {
		tris[i] = &model3d.Triangle{
			model3d.XYZ(t[0].X, t[0].Y, t[0].Z),
			model3d.XYZ(t[1].X, t[1].Y, t[1].Z),
			model3d.XYZ(t[2].X, t[2].Y, t[2].Z),
		}
	}
	bw := bufio.NewWriter(w)
	if err := model3d.WriteSTL(bw, tris); err != nil {
		return err
	}
	return bw.Flush()
}
