package geom

import (
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is an Euler rotation (degrees), a per-axis scale and a
// translation. Rotation applies X first, then Y, then Z, all about the fixed
// world axes; scale follows rotation and translation comes last.
type Transform struct {
	Rotation    r3.Vec
	Scale       r3.Vec
	Translation r3.Vec
}

// Rotation returns a transform that only rotates.
func Rotation(deg r3.Vec) Transform {
	return Transform{Rotation: deg, Scale: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// UniformScale returns a transform that scales all three axes by f.
func UniformScale(f float64) Transform {
	return Transform{Scale: r3.Vec{X: f, Y: f, Z: f}}
}

// AxisScale returns a transform that scales each axis independently.
func AxisScale(s r3.Vec) Transform {
	return Transform{Scale: s}
}

// Translation returns a transform that only translates.
func Translation(d r3.Vec) Transform {
	return Transform{Scale: r3.Vec{X: 1, Y: 1, Z: 1}, Translation: d}
}

// EulerXYZ returns the rotation matrix for Euler angles in degrees applied
// in X, Y, Z order.
func EulerXYZ(deg r3.Vec) mgl64.Mat4 {
	rx := mgl64.HomogRotate3DX(mgl64.DegToRad(deg.X))
	ry := mgl64.HomogRotate3DY(mgl64.DegToRad(deg.Y))
	rz := mgl64.HomogRotate3DZ(mgl64.DegToRad(deg.Z))
	return rz.Mul4(ry).Mul4(rx)
}

// Matrix compiles the transform into a single homogeneous matrix.
func (t Transform) Matrix() mgl64.Mat4 {
	s := mgl64.Scale3D(t.Scale.X, t.Scale.Y, t.Scale.Z)
	tr := mgl64.Translate3D(t.Translation.X, t.Translation.Y, t.Translation.Z)
	return tr.Mul4(s).Mul4(EulerXYZ(t.Rotation))
}

// Apply bakes the transform into the vertices of m.
func (t Transform) Apply(m *Mesh) {
	ApplyMatrix(m, t.Matrix())
}

// ApplyMatrix multiplies every vertex of m by the affine matrix mat.
func ApplyMatrix(m *Mesh, mat mgl64.Mat4) {
	for i, v := range m.Vertices {
		p := mat.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
		m.Vertices[i] = r3.Vec{X: p[0], Y: p[1], Z: p[2]}
	}
}
