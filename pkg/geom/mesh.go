package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an ordered list of vertex positions plus polygon faces that index
// into it. Nothing about a plain Mesh is guaranteed to be manifold.
type Mesh struct {
	Name     string
	Vertices []r3.Vec
	Faces    [][]int
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices)
}

// FaceCount returns the number of polygon faces.
func (m *Mesh) FaceCount() int {
	return len(m.Faces)
}

// TriangleCount returns the number of triangles the faces fan out into.
func (m *Mesh) TriangleCount() int {
	n := 0
	for _, f := range m.Faces {
		if len(f) >= 3 {
			n += len(f) - 2
		}
	}
	return n
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0 || len(m.Faces) == 0
}

// Clone returns a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:     m.Name,
		Vertices: make([]r3.Vec, len(m.Vertices)),
		Faces:    make([][]int, len(m.Faces)),
	}
	copy(c.Vertices, m.Vertices)
	for i, f := range m.Faces {
		c.Faces[i] = append([]int(nil), f...)
	}
	return c
}

// Triangles fans every face into triangles, in face order.
func (m *Mesh) Triangles() []r3.Triangle {
	tris := make([]r3.Triangle, 0, m.TriangleCount())
	for _, f := range m.Faces {
		for i := 1; i+1 < len(f); i++ {
			tris = append(tris, r3.Triangle{
				m.Vertices[f[0]],
				m.Vertices[f[i]],
				m.Vertices[f[i+1]],
			})
		}
	}
	return tris
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d r3.Vec) {
	for i, v := range m.Vertices {
		m.Vertices[i] = r3.Add(v, d)
	}
}

// FromTriangles builds a mesh with one face per triangle. Vertices are not
// shared between triangles.
func FromTriangles(name string, tris []r3.Triangle) *Mesh {
	m := &Mesh{
		Name:     name,
		Vertices: make([]r3.Vec, 0, len(tris)*3),
		Faces:    make([][]int, 0, len(tris)),
	}
	for _, t := range tris {
		base := len(m.Vertices)
		m.Vertices = append(m.Vertices, t[0], t[1], t[2])
		m.Faces = append(m.Faces, []int{base, base + 1, base + 2})
	}
	return m
}

// Merge concatenates the vertex and face data of meshes into a single mesh.
// Face indices are offset; coincident vertices are not deduplicated.
func Merge(name string, meshes ...*Mesh) *Mesh {
	out := &Mesh{Name: name}
	for _, m := range meshes {
		if m == nil {
			continue
		}
		offset := len(out.Vertices)
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, f := range m.Faces {
			nf := make([]int, len(f))
			for i, idx := range f {
				nf[i] = idx + offset
			}
			out.Faces = append(out.Faces, nf)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (m *Mesh) String() string {
	return fmt.Sprintf("mesh %q (%d vertices, %d faces)", m.Name, len(m.Vertices), len(m.Faces))
}

// Weld merges vertices with bit-identical coordinates and rewrites face
// indices to match. Faces that collapse below three distinct corners are
// kept; Validate does not reject them.
func (m *Mesh) Weld() {
	index := make(map[r3.Vec]int, len(m.Vertices))
	remap := make([]int, len(m.Vertices))
	welded := make([]r3.Vec, 0, len(m.Vertices))
	for i, v := range m.Vertices {
		j, ok := index[v]
		if !ok {
			j = len(welded)
			welded = append(welded, v)
			index[v] = j
		}
		remap[i] = j
	}
	for _, f := range m.Faces {
		for i, idx := range f {
			f[i] = remap[idx]
		}
	}
	m.Vertices = welded
}
