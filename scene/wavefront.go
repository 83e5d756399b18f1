package scene

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Corner of a wavefront face; -1 marks a missing uv or normal reference.
type objCorner struct {
	v, vt, vn int
}

type objReader struct {
	positions []mgl32.Vec3
	uvs       []mgl32.Vec2
	normals   []mgl32.Vec3

	shape  Shape
	corner map[objCorner]uint32
}

// Load a wavefront object file as a single shape named after the file.
func LoadWavefront(path string) (Shape, error) {
	f, err := os.Open(path)
	if err != nil {
		return Shape{}, errors.Wrapf(err, "opening %q", path)
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ReadWavefront(name, f)
}

// Parse wavefront object data into a shape. Only geometry statements (v, vt,
// vn and f) are processed; groups, objects and material statements are
// ignored so every face lands in the same shape. Polygons with more than
// three corners are triangulated as fans.
func ReadWavefront(name string, r io.Reader) (Shape, error) {
	p := &objReader{
		shape:  Shape{Name: name},
		corner: make(map[objCorner]uint32),
	}

	var lineNum int
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		var err error
		switch tokens[0] {
		case "v":
			var v mgl32.Vec3
			if v, err = parseObjVec3(tokens); err == nil {
				p.positions = append(p.positions, v)
			}
		case "vn":
			var v mgl32.Vec3
			if v, err = parseObjVec3(tokens); err == nil {
				p.normals = append(p.normals, v)
			}
		case "vt":
			var v mgl32.Vec2
			if v, err = parseObjVec2(tokens); err == nil {
				p.uvs = append(p.uvs, v)
			}
		case "f":
			err = p.parseFace(tokens)
		}
		if err != nil {
			return Shape{}, errors.Wrapf(err, "[%s: %d]", name, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return Shape{}, errors.Wrapf(err, "reading %q", name)
	}

	if len(p.shape.Indices) == 0 {
		return Shape{}, errors.Wrapf(ErrEmptyShape, "wavefront object %q defines no faces", name)
	}
	return p.shape, nil
}

func (p *objReader) parseFace(tokens []string) error {
	if len(tokens) < 4 {
		return errors.Newf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(tokens)-1)
	}

	corners := make([]objCorner, len(tokens)-1)
	expIndices := 0
	for arg, tok := range tokens[1:] {
		parts := strings.Split(tok, "/")
		if arg == 0 {
			expIndices = len(parts)
		} else if len(parts) != expIndices {
			return errors.Newf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(parts))
		}
		if parts[0] == "" {
			return errors.Newf("face argument %d does not include a vertex index", arg)
		}

		c := objCorner{vt: -1, vn: -1}
		var err error
		if c.v, err = resolveObjIndex(parts[0], len(p.positions)); err != nil {
			return errors.Wrapf(err, "vertex coord for face argument %d", arg)
		}
		if len(parts) > 1 && parts[1] != "" {
			if c.vt, err = resolveObjIndex(parts[1], len(p.uvs)); err != nil {
				return errors.Wrapf(err, "tex coord for face argument %d", arg)
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if c.vn, err = resolveObjIndex(parts[2], len(p.normals)); err != nil {
				return errors.Wrapf(err, "normal coord for face argument %d", arg)
			}
		}
		corners[arg] = c
	}

	// Faces without normals get the face normal of their first triangle.
	var faceNormal mgl32.Vec3
	if corners[0].vn < 0 {
		v0, v1, v2 := p.positions[corners[0].v], p.positions[corners[1].v], p.positions[corners[2].v]
		if n := v1.Sub(v0).Cross(v2.Sub(v0)); n.Len() > 0 {
			faceNormal = n.Normalize()
		}
	}

	for i := 1; i+1 < len(corners); i++ {
		for _, c := range [3]objCorner{corners[0], corners[i], corners[i+1]} {
			p.shape.Indices = append(p.shape.Indices, p.vertex(c, faceNormal))
		}
	}
	return nil
}

// Get the shape vertex index for a face corner, emitting a new vertex the
// first time a corner is seen. Corners without a normal are not shared
// between faces.
func (p *objReader) vertex(c objCorner, faceNormal mgl32.Vec3) uint32 {
	if c.vn >= 0 {
		if index, ok := p.corner[c]; ok {
			return index
		}
	}

	v := Vertex{Pos: p.positions[c.v], Normal: faceNormal}
	if c.vn >= 0 {
		v.Normal = p.normals[c.vn]
	}
	if c.vt >= 0 {
		v.UV = p.uvs[c.vt]
	}
	index := uint32(len(p.shape.Vertices))
	p.shape.Vertices = append(p.shape.Vertices, v)
	if c.vn >= 0 {
		p.corner[c] = index
	}
	return index
}

// Convert a 1-based (or negative, end-relative) wavefront index into a
// 0-based list offset.
func resolveObjIndex(token string, listLen int) (int, error) {
	index, err := strconv.ParseInt(token, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = listLen + int(index)
	} else {
		offset = int(index) - 1
	}
	if offset < 0 || offset >= listLen {
		return -1, errors.Newf("index %d out of bounds", index)
	}
	return offset, nil
}

func parseObjVec3(tokens []string) (mgl32.Vec3, error) {
	if len(tokens) < 4 {
		return mgl32.Vec3{}, errors.Newf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, tokens[0], len(tokens)-1)
	}
	var v mgl32.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}

func parseObjVec2(tokens []string) (mgl32.Vec2, error) {
	if len(tokens) < 3 {
		return mgl32.Vec2{}, errors.Newf(`unsupported syntax for "%s"; expected 2 arguments; got %d`, tokens[0], len(tokens)-1)
	}
	var v mgl32.Vec2
	for i := 0; i < 2; i++ {
		f, err := strconv.ParseFloat(tokens[i+1], 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
