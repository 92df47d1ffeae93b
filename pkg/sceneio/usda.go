package sceneio

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/coinrelief/pkg/geom"
	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
)

// DecodeUSDA parses USDA text and returns one Object per concrete prim in
// depth-first order. Mesh prims carry their geometry with every ancestor
// transform baked in and converted to a Z-up frame.
func DecodeUSDA(src string) ([]Object, error) {
	l, err := parseLayer(src)
	if err != nil {
		return nil, fmt.Errorf("usda: %w", err)
	}
	root, err := upAxisMatrix(l.metadata)
	if err != nil {
		return nil, fmt.Errorf("usda: %w", err)
	}
	var out []Object
	for _, p := range l.prims {
		if err := collect(p, "", root, &out); err != nil {
			return nil, fmt.Errorf("usda: %w", err)
		}
	}
	return out, nil
}

// upAxisMatrix maps the layer's up axis onto Z.
func upAxisMatrix(meta map[string]value) (mgl64.Mat4, error) {
	v, ok := meta["upAxis"]
	if !ok {
		return mgl64.Ident4(), nil
	}
	switch strings.ToUpper(v.text) {
	case "Z":
		return mgl64.Ident4(), nil
	case "Y":
		return mgl64.HomogRotate3DX(math.Pi / 2), nil
	default:
		return mgl64.Mat4{}, fmt.Errorf("unsupported upAxis %q", v.text)
	}
}

func collect(p *prim, parentPath string, parent mgl64.Mat4, out *[]Object) error {
	if p.specifier == "class" {
		return nil
	}
	path := parentPath + "/" + p.name

	local, reset, err := localTransform(p)
	if err != nil {
		return fmt.Errorf("prim %s: %w", path, err)
	}
	world := parent.Mul4(local)
	if reset {
		world = local
	}

	obj := Object{Name: p.name, Path: path, Type: p.typeName}
	if p.typeName == "Mesh" {
		m, err := primMesh(p)
		if err != nil {
			return fmt.Errorf("prim %s: %w", path, err)
		}
		geom.ApplyMatrix(m, world)
		obj.Mesh = m
	}
	*out = append(*out, obj)

	for _, c := range p.children {
		if err := collect(c, path, world, out); err != nil {
			return err
		}
	}
	return nil
}

func primMesh(p *prim) (*geom.Mesh, error) {
	m := &geom.Mesh{Name: p.name}

	if pts, ok := p.attrs["points"]; ok {
		for i, item := range pts.items {
			v, err := vec3(item)
			if err != nil {
				return nil, fmt.Errorf("points[%d]: %w", i, err)
			}
			m.Vertices = append(m.Vertices, v)
		}
	}

	counts, err := ints(p.attrs["faceVertexCounts"])
	if err != nil {
		return nil, fmt.Errorf("faceVertexCounts: %w", err)
	}
	indices, err := ints(p.attrs["faceVertexIndices"])
	if err != nil {
		return nil, fmt.Errorf("faceVertexIndices: %w", err)
	}
	total := 0
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("faceVertexCounts[%d] is negative", i)
		}
		total += c
	}
	if total != len(indices) {
		return nil, fmt.Errorf("faceVertexCounts sum to %d but faceVertexIndices has %d entries", total, len(indices))
	}

	leftHanded := p.attrs["orientation"].text == "leftHanded"
	next := 0
	for _, c := range counts {
		face := append([]int(nil), indices[next:next+c]...)
		next += c
		if leftHanded {
			for i, j := 0, len(face)-1; i < j; i, j = i+1, j-1 {
				face[i], face[j] = face[j], face[i]
			}
		}
		m.Faces = append(m.Faces, face)
	}

	if errs := m.Validate(); len(errs) > 0 {
		return nil, errs[0]
	}
	return m, nil
}

// localTransform composes the prim's xformOpOrder. The first op in the
// order is the outermost, so the last one touches the points first.
func localTransform(p *prim) (mgl64.Mat4, bool, error) {
	local := mgl64.Ident4()
	reset := false
	order, ok := p.attrs["xformOpOrder"]
	if !ok {
		return local, false, nil
	}
	for _, item := range order.items {
		op := item.text
		if op == "!resetXformStack!" {
			local = mgl64.Ident4()
			reset = true
			continue
		}
		invert := strings.HasPrefix(op, "!invert!")
		name := strings.TrimPrefix(op, "!invert!")
		v, ok := p.attrs[name]
		if !ok {
			// Animated ops are posed at their earliest sample.
			if s, animated := p.attrs[name+".timeSamples"]; animated && len(s.items) > 0 {
				v, ok = s.items[0], true
			}
		}
		if !ok {
			return local, reset, fmt.Errorf("xformOpOrder names %q but it has no value", name)
		}
		mat, err := opMatrix(name, v)
		if err != nil {
			return local, reset, fmt.Errorf("%s: %w", name, err)
		}
		if invert {
			mat = mat.Inv()
		}
		local = local.Mul4(mat)
	}
	return local, reset, nil
}

func opMatrix(name string, v value) (mgl64.Mat4, error) {
	parts := strings.Split(name, ":")
	if len(parts) < 2 || parts[0] != "xformOp" {
		return mgl64.Mat4{}, fmt.Errorf("not an xformOp")
	}
	kind := parts[1]
	switch kind {
	case "translate":
		t, err := vec3(v)
		return mgl64.Translate3D(t.X, t.Y, t.Z), err
	case "scale":
		s, err := vec3(v)
		return mgl64.Scale3D(s.X, s.Y, s.Z), err
	case "rotateX", "rotateY", "rotateZ":
		if v.kind != valueNumber {
			return mgl64.Mat4{}, fmt.Errorf("expected a scalar angle")
		}
		return axisRotation(kind[len(kind)-1], v.num), nil
	case "rotateXYZ", "rotateXZY", "rotateYXZ", "rotateYZX", "rotateZXY", "rotateZYX":
		a, err := vec3(v)
		if err != nil {
			return mgl64.Mat4{}, err
		}
		angles := map[byte]float64{'X': a.X, 'Y': a.Y, 'Z': a.Z}
		mat := mgl64.Ident4()
		for _, axis := range []byte(kind[len("rotate"):]) {
			mat = axisRotation(axis, angles[axis]).Mul4(mat)
		}
		return mat, nil
	case "orient":
		if v.kind != valueTuple || len(v.items) != 4 {
			return mgl64.Mat4{}, fmt.Errorf("expected a quaternion (w, x, y, z)")
		}
		var q [4]float64
		for i, item := range v.items {
			q[i] = item.num
		}
		return mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}.Normalize().Mat4(), nil
	case "transform":
		return matrix4(v)
	default:
		return mgl64.Mat4{}, fmt.Errorf("unsupported xformOp %q", kind)
	}
}

func axisRotation(axis byte, deg float64) mgl64.Mat4 {
	rad := mgl64.DegToRad(deg)
	switch axis {
	case 'X':
		return mgl64.HomogRotate3DX(rad)
	case 'Y':
		return mgl64.HomogRotate3DY(rad)
	default:
		return mgl64.HomogRotate3DZ(rad)
	}
}

// matrix4 reads a row-vector matrix4d. Its rows are the columns of the
// equivalent column-vector matrix, which is exactly mgl64's memory layout.
func matrix4(v value) (mgl64.Mat4, error) {
	var m mgl64.Mat4
	if v.kind != valueTuple || len(v.items) != 4 {
		return m, fmt.Errorf("expected a 4x4 matrix")
	}
	for i, row := range v.items {
		if row.kind != valueTuple || len(row.items) != 4 {
			return m, fmt.Errorf("row %d: expected 4 values", i)
		}
		for j, c := range row.items {
			m[i*4+j] = c.num
		}
	}
	return m, nil
}

func vec3(v value) (r3.Vec, error) {
	if v.kind != valueTuple || len(v.items) != 3 {
		return r3.Vec{}, fmt.Errorf("expected a 3-tuple")
	}
	for _, item := range v.items {
		if item.kind != valueNumber {
			return r3.Vec{}, fmt.Errorf("expected numbers in tuple")
		}
	}
	return r3.Vec{X: v.items[0].num, Y: v.items[1].num, Z: v.items[2].num}, nil
}

func ints(v value) ([]int, error) {
	out := make([]int, 0, len(v.items))
	for i, item := range v.items {
		if item.kind != valueNumber || item.num != math.Trunc(item.num) {
			return nil, fmt.Errorf("item %d is not an integer", i)
		}
		out = append(out, int(item.num))
	}
	return out, nil
}
