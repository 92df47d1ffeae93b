// Package base generates the coin blank: a right circular cylinder
// approximated by a fixed number of flat side faces.
package base

import (
	"fmt"
	"math"

	"github.com/chazu/coinrelief/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultThickness is the coin blank thickness in mm.
const DefaultThickness = 3.0

// Placement controls where the cylinder sits along Z.
type Placement int

const (
	// Centered puts the cylinder's mid-plane at z = 0.
	Centered Placement = iota
	// TopAtZero puts the cylinder's top face at z = 0.
	TopAtZero
)

func (p Placement) String() string {
	switch p {
	case Centered:
		return "centered"
	case TopAtZero:
		return "top-at-zero"
	default:
		return fmt.Sprintf("Placement(%d)", int(p))
	}
}

// Cylinder builds a closed prism with the given diameter, thickness and
// number of side faces. Rim vertex i of the bottom ring is at index i and
// its twin on the top ring at segments+i; the two cap centers come last.
// All faces wind counter-clockwise seen from outside.
func Cylinder(diameter, thickness float64, segments int, placement Placement) (*geom.Mesh, error) {
	if diameter <= 0 {
		return nil, fmt.Errorf("base: diameter must be positive, got %g", diameter)
	}
	if thickness <= 0 {
		return nil, fmt.Errorf("base: thickness must be positive, got %g", thickness)
	}
	if segments < 3 {
		return nil, fmt.Errorf("base: need at least 3 segments, got %d", segments)
	}

	var z0, z1 float64
	switch placement {
	case Centered:
		z0, z1 = -thickness/2, thickness/2
	case TopAtZero:
		z0, z1 = -thickness, 0
	default:
		return nil, fmt.Errorf("base: unknown placement %v", placement)
	}

	r := diameter / 2
	m := &geom.Mesh{
		Name:     "base",
		Vertices: make([]r3.Vec, 2*segments+2),
		Faces:    make([][]int, 0, 3*segments),
	}
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / float64(segments)
		x, y := r*math.Cos(a), r*math.Sin(a)
		m.Vertices[i] = r3.Vec{X: x, Y: y, Z: z0}
		m.Vertices[segments+i] = r3.Vec{X: x, Y: y, Z: z1}
	}
	bottom, top := 2*segments, 2*segments+1
	m.Vertices[bottom] = r3.Vec{Z: z0}
	m.Vertices[top] = r3.Vec{Z: z1}

	for i := 0; i < segments; i++ {
		j := (i + 1) % segments
		m.Faces = append(m.Faces,
			[]int{i, j, segments + j, segments + i},
			[]int{bottom, j, i},
			[]int{top, segments + i, segments + j},
		)
	}
	return m, nil
}
