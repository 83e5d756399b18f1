package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Vertex layout used by the procedural shapes (32 bytes).
type Vertex struct {
	Pos    mgl32.Vec3
	Normal mgl32.Vec3
	UV     mgl32.Vec2
}

// Size of a Vertex in bytes.
const VertexStride = 32

// A Shape is host-side triangle geometry with mesh-local indices.
type Shape struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
}

// A single triangle in the XY plane.
func Triangle() Shape {
	n := mgl32.Vec3{0, 0, 1}
	return Shape{
		Name: "triangle",
		Vertices: []Vertex{
			{Pos: mgl32.Vec3{-0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{0, 0}},
			{Pos: mgl32.Vec3{0.5, -0.5, 0}, Normal: n, UV: mgl32.Vec2{1, 0}},
			{Pos: mgl32.Vec3{0, 0.5, 0}, Normal: n, UV: mgl32.Vec2{0.5, 1}},
		},
		Indices: []uint32{0, 1, 2},
	}
}

// A unit quad in the XZ plane facing +Y.
func Quad() Shape {
	return Grid(1)
}

// An n x n grid of quads spanning [-0.5, 0.5] in the XZ plane.
func Grid(n int) Shape {
	if n < 1 {
		n = 1
	}
	name := "grid"
	if n == 1 {
		name = "quad"
	}

	s := Shape{Name: name}
	step := 1 / float32(n)
	for z := 0; z <= n; z++ {
		for x := 0; x <= n; x++ {
			s.Vertices = append(s.Vertices, Vertex{
				Pos:    mgl32.Vec3{-0.5 + float32(x)*step, 0, -0.5 + float32(z)*step},
				Normal: mgl32.Vec3{0, 1, 0},
				UV:     mgl32.Vec2{float32(x) * step, float32(z) * step},
			})
		}
	}

	row := uint32(n + 1)
	for z := uint32(0); z < uint32(n); z++ {
		for x := uint32(0); x < uint32(n); x++ {
			i0 := z*row + x
			i1 := i0 + 1
			i2 := i0 + row
			i3 := i2 + 1
			s.Indices = append(s.Indices, i0, i2, i1, i1, i2, i3)
		}
	}
	return s
}

// A unit cube centered at the origin with per-face normals.
func Cube() Shape {
	faces := []struct {
		normal, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
	}

	s := Shape{Name: "cube"}
	for _, f := range faces {
		base := uint32(len(s.Vertices))
		center := f.normal.Mul(0.5)
		for _, c := range [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}} {
			pos := center.Add(f.u.Mul(0.5 * c[0])).Add(f.v.Mul(0.5 * c[1]))
			s.Vertices = append(s.Vertices, Vertex{
				Pos:    pos,
				Normal: f.normal,
				UV:     mgl32.Vec2{(c[0] + 1) / 2, (c[1] + 1) / 2},
			})
		}
		s.Indices = append(s.Indices, base, base+1, base+2, base+2, base+3, base)
	}
	return s
}

// A triangle fan of n triangles around the origin in the XY plane.
func Fan(n int) Shape {
	if n < 1 {
		n = 1
	}
	normal := mgl32.Vec3{0, 0, 1}
	s := Shape{
		Name:     "fan",
		Vertices: []Vertex{{Normal: normal, UV: mgl32.Vec2{0.5, 0.5}}},
	}
	for i := 0; i <= n; i++ {
		a := float32(i) / float32(n) * math.Pi
		x, y := float32(math.Cos(float64(a))), float32(math.Sin(float64(a)))
		s.Vertices = append(s.Vertices, Vertex{
			Pos:    mgl32.Vec3{x * 0.5, y * 0.5, 0},
			Normal: normal,
			UV:     mgl32.Vec2{(x + 1) / 2, (y + 1) / 2},
		})
	}
	for i := uint32(1); i <= uint32(n); i++ {
		s.Indices = append(s.Indices, 0, i, i+1)
	}
	return s
}

// Look up a procedural shape by name. Grids and fans take their resolution
// from n.
func ShapeByName(name string, n int) (Shape, bool) {
	switch name {
	case "triangle":
		return Triangle(), true
	case "quad":
		return Quad(), true
	case "grid":
		return Grid(n), true
	case "cube":
		return Cube(), true
	case "fan":
		return Fan(n), true
	}
	return Shape{}, false
}
