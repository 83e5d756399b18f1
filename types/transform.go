package types

import "github.com/go-gl/mathgl/mgl32"

// A row-major 3x4 affine transform; the layout expected by the hardware
// acceleration structure instance format (48 bytes).
type Transform [3][4]float32

// Identity transform.
func IdentityTransform() Transform {
	return Transform{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Convert a column-major 4x4 matrix into a row-major 3x4 transform. The
// projective row of m is dropped.
func TransformFromMat4(m mgl32.Mat4) Transform {
	var t Transform
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			t[row][col] = m.At(row, col)
		}
	}
	return t
}

// Expand the transform back to a 4x4 matrix.
func (t Transform) Mat4() mgl32.Mat4 {
	m := mgl32.Ident4()
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			m.Set(row, col, t[row][col])
		}
	}
	return m
}

// Apply the transform to a point.
func (t Transform) Apply(p Vec3) Vec3 {
	var out Vec3
	for row := 0; row < 3; row++ {
		out[row] = t[row][0]*p[0] + t[row][1]*p[1] + t[row][2]*p[2] + t[row][3]
	}
	return out
}

// Transform a bounding box and return the box enclosing the result.
func (t Transform) ApplyAABB(b AABB) AABB {
	if b.Empty() {
		return b
	}
	out := EmptyAABB()
	for _, c := range b.Corners() {
		out = out.Extend(t.Apply(c))
	}
	return out
}
