// Package config loads the TOML description of a structure build: logging,
// the device to build on, build options, pipeline group counts and the scene
// objects.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/ammarasyad/Singularity-sub000/accel"
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/gpu/soft"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/ammarasyad/Singularity-sub000/sbt"
	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
)

type Log struct {
	Level string `toml:"level"`
}

type Device struct {
	Profile string `toml:"profile"`

	// Overrides the profile memory budget when non-zero.
	MemoryBudget uint64 `toml:"memory_budget"`
}

type Build struct {
	Compact         bool   `toml:"compact"`
	DeferCompaction bool   `toml:"defer_compaction"`
	ScratchFloor    uint64 `toml:"scratch_floor"`
	ScratchMode     string `toml:"scratch_mode"`
	FastBuild       bool   `toml:"fast_build"`
}

type Pipeline struct {
	MissGroups   uint32 `toml:"miss_groups"`
	HitGroups    uint32 `toml:"hit_groups"`
	MaxRecursion uint32 `toml:"max_recursion"`
}

type Config struct {
	Log      Log      `toml:"log"`
	Device   Device   `toml:"device"`
	Build    Build    `toml:"build"`
	Pipeline Pipeline `toml:"pipeline"`
	Objects  []Object `toml:"object"`
}

// Settings applied before a file is decoded.
func base() *Config {
	opts := accel.DefaultOptions()
	return &Config{
		Log:    Log{Level: log.Notice.String()},
		Device: Device{Profile: soft.DefaultProfile},
		Build: Build{
			Compact:      opts.Compact,
			ScratchFloor: opts.ScratchFloor,
			ScratchMode:  opts.ScratchMode.String(),
		},
		Pipeline: Pipeline{
			MissGroups:   sbt.DefaultGroups.Miss,
			HitGroups:    sbt.DefaultGroups.Hit,
			MaxRecursion: 1,
		},
	}
}

// Get the built-in configuration: a ground grid, a cube and a triangle.
func Default() *Config {
	c := base()
	c.Objects = []Object{
		{Name: "ground", Shape: "grid", Resolution: 8, Scale: [3]float32{10, 1, 10}, Texture: 0},
		{Name: "box", Shape: "cube", Translate: [3]float32{0, 0.5, 0}, RotateAxis: [3]float32{0, 1, 0}, RotateDeg: 30, Texture: 1},
		{Name: "marker", Shape: "triangle", Translate: [3]float32{2, 1, -1}, Texture: 2, Mask: 0x01},
	}
	return c
}

// Load and validate a configuration file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "config")
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	dir := filepath.Dir(path)
	for i := range c.Objects {
		if p := c.Objects[i].Path; p != "" && !filepath.IsAbs(p) {
			c.Objects[i].Path = filepath.Join(dir, p)
		}
	}
	return c, nil
}

// Decode and validate a configuration. Unknown keys are rejected and keys
// that are not present keep their default value.
func Parse(r io.Reader) (*Config, error) {
	c := base()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Newf("config: %s", strict.String())
		}
		return nil, errors.Wrap(err, "config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Encode the configuration as TOML.
func (c *Config) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "config")
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Check every field. The error names the first offending field.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "config: log.level")
	}
	if _, err := soft.LookupProfile(c.Device.Profile); err != nil {
		return errors.Wrap(err, "config: device.profile")
	}
	if _, err := accel.ParseScratchMode(c.Build.ScratchMode); err != nil {
		return errors.Wrap(err, "config: build.scratch_mode")
	}
	if c.Build.DeferCompaction && !c.Build.Compact {
		return errors.New("config: build.defer_compaction requires build.compact")
	}
	if c.Pipeline.MaxRecursion == 0 {
		return errors.New("config: pipeline.max_recursion must be at least 1")
	}
	for i := range c.Objects {
		if err := c.Objects[i].validate(); err != nil {
			return errors.Wrapf(err, "config: object %d", i)
		}
	}
	return nil
}

// Get the structure build options.
func (c *Config) Options() accel.Options {
	mode, _ := accel.ParseScratchMode(c.Build.ScratchMode)
	return accel.Options{
		Compact:         c.Build.Compact,
		DeferCompaction: c.Build.DeferCompaction,
		ScratchFloor:    c.Build.ScratchFloor,
		ScratchMode:     mode,
		FastBuild:       c.Build.FastBuild,
	}
}

// Get the pipeline shader group counts.
func (c *Config) Groups() sbt.Groups {
	return sbt.Groups{Miss: c.Pipeline.MissGroups, Hit: c.Pipeline.HitGroups}
}

// Get the configured log level.
func (c *Config) LogLevel() log.Level {
	level, _ := log.ParseLevel(c.Log.Level)
	return level
}

// Get the device profile with the configured memory budget applied.
func (c *Config) Profile() soft.Profile {
	profile, _ := soft.LookupProfile(c.Device.Profile)
	if c.Device.MemoryBudget != 0 {
		profile.MemoryBudget = c.Device.MemoryBudget
	}
	return profile
}

// Generate the object shapes, upload them and create one drawable per
// object in file order. Objects sharing a shape, resolution and wavefront
// file share a mesh.
func (c *Config) Scene(dev *gpu.Device) (*scene.Geometry, []scene.Drawable, error) {
	type key struct {
		shape      string
		resolution int
		path       string
	}
	var shapes []scene.Shape
	slot := make(map[key]int)
	objSlot := make([]int, len(c.Objects))
	for i, o := range c.Objects {
		k := key{o.Shape, o.Resolution, o.Path}
		s, ok := slot[k]
		if !ok {
			shape, err := o.shape()
			if err != nil {
				return nil, nil, errors.Wrapf(err, "object %d", i)
			}
			s = len(shapes)
			shapes = append(shapes, shape)
			slot[k] = s
		}
		objSlot[i] = s
	}

	geometry, err := scene.Upload(dev, shapes)
	if err != nil {
		return nil, nil, err
	}

	meshes := geometry.Meshes()
	drawables := make([]scene.Drawable, len(c.Objects))
	for i, o := range c.Objects {
		drawables[i] = o.Drawable(i, meshes[objSlot[i]])
	}
	return geometry, drawables, nil
}
