package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// BoundingBox is a snapshot of the per-axis extents of a vertex set taken at
// one point in time. It goes stale as soon as any vertex moves.
type BoundingBox struct {
	r3.Box
}

// Bounds computes the bounding box over every vertex of m. An empty mesh
// yields the zero box.
func Bounds(m *Mesh) BoundingBox {
	if len(m.Vertices) == 0 {
		return BoundingBox{}
	}
	min := r3.Vec{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	max := r3.Vec{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, v := range m.Vertices {
		min.X = math.Min(min.X, v.X)
		min.Y = math.Min(min.Y, v.Y)
		min.Z = math.Min(min.Z, v.Z)
		max.X = math.Max(max.X, v.X)
		max.Y = math.Max(max.Y, v.Y)
		max.Z = math.Max(max.Z, v.Z)
	}
	return BoundingBox{r3.Box{Min: min, Max: max}}
}

// Width is the X extent.
func (b BoundingBox) Width() float64 { return b.Max.X - b.Min.X }

// Height is the Y extent.
func (b BoundingBox) Height() float64 { return b.Max.Y - b.Min.Y }

// Depth is the Z extent.
func (b BoundingBox) Depth() float64 { return b.Max.Z - b.Min.Z }

// MaxXY returns the larger of the X and Y extents. Z is not considered.
func (b BoundingBox) MaxXY() float64 {
	return math.Max(b.Width(), b.Height())
}
