package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ammarasyad/Singularity-sub000/accel"
	"github.com/ammarasyad/Singularity-sub000/gpu/soft"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[log]
level = "debug"

[device]
profile = "soft-compact"
memory_budget = 1048576

[build]
scratch_mode = "disjoint"
scratch_floor = 0

[pipeline]
miss_groups = 3

[[object]]
name = "floor"
shape = "grid"
resolution = 4
scale = [4, 1, 4]

[[object]]
shape = "fan"
resolution = 5
translate = [1, 2, 3]
texture = 2
mask = 3
hit_group = 1

[[object]]
shape = "fan"
resolution = 5
rotate_axis = [0, 1, 0]
rotate_deg = 90
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, log.Debug, c.LogLevel())
	assert.Equal(t, "soft-compact", c.Profile().Props.Name)
	assert.EqualValues(t, 1<<20, c.Profile().MemoryBudget)

	// Keys missing from the file keep their defaults.
	opts := c.Options()
	assert.True(t, opts.Compact)
	assert.Equal(t, accel.ScratchDisjoint, opts.ScratchMode)
	assert.Zero(t, opts.ScratchFloor)
	assert.EqualValues(t, 3, c.Groups().Miss)
	assert.EqualValues(t, 1, c.Groups().Hit)

	require.Len(t, c.Objects, 3)
	assert.Equal(t, "fan", c.Objects[1].Shape)
	assert.Equal(t, [3]float32{1, 2, 3}, c.Objects[1].Translate)
}

func TestParseErrors(t *testing.T) {
	type spec struct {
		doc    string
		expErr string
	}
	specs := []spec{
		{"[build]\ncompression = true\n", "compression"},
		{"[log]\nlevel = \"loud\"\n", "log.level"},
		{"[device]\nprofile = \"rtx-9000\"\n", "device.profile"},
		{"[build]\nscratch_mode = \"shared\"\n", "build.scratch_mode"},
		{"[build]\ncompact = false\ndefer_compaction = true\n", "defer_compaction"},
		{"[pipeline]\nmax_recursion = 0\n", "max_recursion"},
		{"[[object]]\nshape = \"teapot\"\n", "object 0"},
		{"[[object]]\nshape = \"cube\"\nrotate_deg = 45\n", "rotate_axis"},
		{"[[object]]\nshape = \"cube\"\ntexture = -1\n", "texture"},
		{"[[object]]\nshape = \"obj\"\n", "path"},
		{"[[object]]\nshape = \"cube\"\npath = \"cube.obj\"\n", "path"},
		{"[log\n", "config"},
	}

	for index, s := range specs {
		_, err := Parse(strings.NewReader(s.doc))
		if err == nil {
			t.Fatalf("[spec %d] expected an error", index)
		}
		if !strings.Contains(err.Error(), s.expErr) {
			t.Fatalf("[spec %d] expected error mentioning %q; got %v", index, s.expErr, err)
		}
	}
}

func TestDefaultRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Encode(&buf))

	c, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestObjectTransform(t *testing.T) {
	o := Object{
		Shape:      "cube",
		Translate:  [3]float32{1, 2, 3},
		RotateAxis: [3]float32{0, 0, 1},
		RotateDeg:  90,
		Scale:      [3]float32{2, 2, 2},
	}
	// (1,0,0) scaled to (2,0,0), rotated to (0,2,0), translated to (1,4,3).
	got := o.Transform().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	assert.True(t, got.ApproxEqualThreshold(mgl32.Vec4{1, 4, 3, 1}, 1e-5), "got %v", got)

	// A zero scale is a unit scale.
	o = Object{Shape: "cube"}
	assert.True(t, o.Transform().ApproxEqual(mgl32.Ident4()))
}

func TestScene(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	dev, _, err := soft.Open(c.Device.Profile)
	require.NoError(t, err)

	geometry, drawables, err := c.Scene(dev)
	require.NoError(t, err)
	defer geometry.Release()

	// The two fans share one mesh.
	require.Len(t, geometry.Meshes(), 2)
	require.Len(t, drawables, 3)
	assert.Same(t, drawables[1].Mesh, drawables[2].Mesh)
	assert.EqualValues(t, 32, drawables[0].Mesh.PrimitiveCount())
	assert.EqualValues(t, 5, drawables[1].Mesh.PrimitiveCount())

	assert.Equal(t, "floor", drawables[0].Name)
	assert.Equal(t, "fan-1", drawables[1].Name)
	assert.EqualValues(t, 2, drawables[1].TextureIndex)
	assert.EqualValues(t, 3, drawables[1].Mask)
	assert.EqualValues(t, 1, drawables[1].HitGroup)
	assert.Equal(t, uint8(0xFF), drawables[2].VisibilityMask())
}

func TestLoadWavefrontObject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "meshes"), 0755))
	obj := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meshes", "panel.obj"), []byte(obj), 0644))

	doc := `
[[object]]
shape = "obj"
path = "meshes/panel.obj"

[[object]]
shape = "obj"
path = "meshes/panel.obj"
translate = [0, 0, 2]
`
	cfgPath := filepath.Join(dir, "scene.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0644))

	c, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "meshes", "panel.obj"), c.Objects[0].Path)

	dev, _, err := soft.Open(c.Device.Profile)
	require.NoError(t, err)
	geometry, drawables, err := c.Scene(dev)
	require.NoError(t, err)
	defer geometry.Release()

	require.Len(t, geometry.Meshes(), 1)
	assert.Equal(t, "panel", geometry.Meshes()[0].Name)
	assert.EqualValues(t, 2, drawables[1].Mesh.PrimitiveCount())
	assert.Equal(t, "obj-1", drawables[1].Name)

	// A missing file surfaces when the scene is generated.
	c.Objects[1].Path = filepath.Join(dir, "missing.obj")
	_, _, err = c.Scene(dev)
	assert.ErrorContains(t, err, "object 1")
}
