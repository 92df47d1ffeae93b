package geom

import "gonum.org/v1/gonum/spatial/r3"

// NewBox returns a closed axis-aligned box spanning min..max with outward
// facing quads.
func NewBox(name string, min, max r3.Vec) *Mesh {
	b := r3.Box{Min: min, Max: max}
	return &Mesh{
		Name:     name,
		Vertices: b.Vertices(),
		Faces: [][]int{
			{0, 3, 2, 1}, // bottom (-Z)
			{4, 5, 6, 7}, // top (+Z)
			{0, 1, 5, 4}, // front (-Y)
			{2, 3, 7, 6}, // back (+Y)
			{1, 2, 6, 5}, // right (+X)
			{3, 0, 4, 7}, // left (-X)
		},
	}
}
