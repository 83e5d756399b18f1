package config

import (
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
)

// Shape name of objects loaded from a wavefront file.
const WavefrontShape = "obj"

// A scene object: a procedural shape or a wavefront mesh placed in the world.
type Object struct {
	Name       string `toml:"name"`
	Shape      string `toml:"shape"`
	Resolution int    `toml:"resolution,omitempty"`

	// Wavefront file of "obj" shapes. Relative paths are resolved against
	// the directory of the configuration file.
	Path string `toml:"path,omitempty"`

	Translate  [3]float32 `toml:"translate"`
	RotateAxis [3]float32 `toml:"rotate_axis"`
	RotateDeg  float32    `toml:"rotate_deg"`

	// A zero scale is treated as a unit scale.
	Scale [3]float32 `toml:"scale"`

	Texture  int32  `toml:"texture"`
	Mask     uint8  `toml:"mask,omitempty"`
	HitGroup uint32 `toml:"hit_group,omitempty"`
}

func (o *Object) validate() error {
	if o.Shape == WavefrontShape {
		if o.Path == "" {
			return errors.New("path: required by obj shapes")
		}
	} else {
		if _, ok := scene.ShapeByName(o.Shape, o.Resolution); !ok {
			return errors.Newf("shape: unknown shape %q", o.Shape)
		}
		if o.Path != "" {
			return errors.Newf("path: only valid for obj shapes; got shape %q", o.Shape)
		}
	}
	if o.Resolution < 0 {
		return errors.Newf("resolution: %d is negative", o.Resolution)
	}
	if o.RotateDeg != 0 && mgl32.Vec3(o.RotateAxis).Len() == 0 {
		return errors.New("rotate_axis: rotation requested around a zero axis")
	}
	if o.Texture < 0 {
		return errors.Newf("texture: index %d is negative", o.Texture)
	}
	return nil
}

// Generate or load the object shape.
func (o *Object) shape() (scene.Shape, error) {
	if o.Shape == WavefrontShape {
		return scene.LoadWavefront(o.Path)
	}
	s, _ := scene.ShapeByName(o.Shape, o.Resolution)
	return s, nil
}

// Get the object to world transform: scale, then rotate, then translate.
func (o *Object) Transform() mgl32.Mat4 {
	scale := mgl32.Vec3(o.Scale)
	if scale == (mgl32.Vec3{}) {
		scale = mgl32.Vec3{1, 1, 1}
	}

	m := mgl32.Translate3D(o.Translate[0], o.Translate[1], o.Translate[2])
	if o.RotateDeg != 0 {
		m = m.Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(o.RotateDeg), mgl32.Vec3(o.RotateAxis).Normalize()))
	}
	return m.Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// Create the drawable for this object; index names unnamed objects.
func (o *Object) Drawable(index int, mesh *scene.Mesh) scene.Drawable {
	name := o.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", o.Shape, index)
	}
	d := scene.NewDrawable(name, mesh, o.Texture)
	d.Transform = o.Transform()
	if o.Mask != 0 {
		d.Mask = o.Mask
	}
	d.HitGroup = o.HitGroup
	return d
}
