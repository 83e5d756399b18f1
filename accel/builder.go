package accel

import (
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/cockroachdb/errors"
)

// Builder turns a drawable list into the full set of scene structures.
type Builder struct {
	dev    *gpu.Device
	opts   Options
	logger log.Logger
}

// Create a builder for the given device.
func NewBuilder(dev *gpu.Device, opts Options) *Builder {
	return &Builder{
		dev:    dev,
		opts:   opts,
		logger: log.New("accel"),
	}
}

// The values a renderer binds to trace the scene.
type Output struct {
	TLAS       gpu.StructureAddress
	TLASHandle gpu.StructureHandle

	MeshTable        *gpu.Buffer
	MeshTableAddress gpu.DeviceAddress

	InstanceCount int
}

// Structures holds everything built for one scene load: the bottom-level
// set, the mesh address table and the top-level structure. All three index
// by drawable position.
type Structures struct {
	dev    *gpu.Device
	opts   Options
	logger log.Logger

	drawables []scene.Drawable

	bottom    *BottomLevel
	meshTable *MeshTable
	top       *TopLevel

	meshTableTime time.Duration
}

// Build runs the bottom-level builds, compaction when enabled, the mesh
// table upload and the top-level build, then checks that every table agrees
// on drawable order. Partially built resources are released on failure.
func (b *Builder) Build(drawables []scene.Drawable) (*Structures, error) {
	start := time.Now()

	s := &Structures{
		dev:       b.dev,
		opts:      b.opts,
		logger:    b.logger,
		drawables: append([]scene.Drawable(nil), drawables...),
	}

	var err error
	if s.bottom, err = BuildBottomLevel(b.dev, s.drawables, b.opts); err != nil {
		return nil, err
	}
	if b.opts.Compact && !b.opts.DeferCompaction {
		if err = s.bottom.Compact(); err != nil {
			s.Destroy()
			return nil, err
		}
	}
	if err = s.rebuildTopLevel(); err != nil {
		s.Destroy()
		return nil, err
	}

	b.logger.Noticef(
		"built structures for %d drawables in %d ms",
		len(s.drawables), time.Since(start).Nanoseconds()/1e6,
	)
	return s, nil
}

// Rebuild the mesh table and top-level structure from the current
// bottom-level addresses.
func (s *Structures) rebuildTopLevel() error {
	if s.top != nil {
		s.top.Destroy()
		s.top = nil
	}
	if s.meshTable != nil {
		s.meshTable.Release()
		s.meshTable = nil
	}

	start := time.Now()
	var err error
	if s.meshTable, err = BuildMeshTable(s.dev, s.drawables); err != nil {
		return err
	}
	s.meshTableTime = time.Since(start)

	if s.top, err = BuildTopLevel(s.dev, s.drawables, s.bottom.Addresses(), s.opts); err != nil {
		return err
	}
	return s.verifyOrdering()
}

// Check that instance i, mesh table entry i and bottom-level record i all
// describe drawable i.
func (s *Structures) verifyOrdering() error {
	n := len(s.drawables)
	if s.bottom.Len() != n || s.meshTable.Len() != n || s.top.Len() != n {
		return errors.AssertionFailedf(
			"accel: %d drawables but %d bottom-level records, %d mesh table entries and %d instances",
			n, s.bottom.Len(), s.meshTable.Len(), s.top.Len(),
		)
	}

	records := s.bottom.Records()
	entries := s.meshTable.Entries()
	instances := s.top.Instances()
	for i := range s.drawables {
		d := &s.drawables[i]
		r := records[i]
		if r.Index != i || r.Mesh != d.Mesh {
			return errors.AssertionFailedf("accel: bottom-level record %d belongs to drawable %d", i, r.Index)
		}
		if instances[i].BLAS != r.Address || instances[i].CustomIndex() != uint32(i) {
			return errors.AssertionFailedf("accel: instance %d does not reference bottom-level record %d", i, i)
		}
		e := entries[i]
		if e.Vertices != d.Mesh.Vertices || e.Indices != d.Mesh.Indices || e.FirstIndex != d.Mesh.FirstIndex || e.TextureIndex != d.TextureIndex {
			return errors.AssertionFailedf("accel: mesh table entry %d does not describe drawable %d (%s)", i, i, d.Name)
		}
	}
	return nil
}

// Compact the bottom-level structures and rebuild the top-level structure
// and mesh table against the relocated addresses. Only structures built
// with deferred compaction have anything left to compact.
func (s *Structures) Compact() error {
	if s.bottom == nil {
		return ErrDestroyed
	}
	if err := s.bottom.Compact(); err != nil {
		return err
	}
	return s.rebuildTopLevel()
}

// Get the top-level structure.
func (s *Structures) TLAS() *TopLevel {
	return s.top
}

// Get the bottom-level structures.
func (s *Structures) BottomLevel() *BottomLevel {
	return s.bottom
}

// Get the mesh address table.
func (s *Structures) MeshTable() *MeshTable {
	return s.meshTable
}

// Get the bottom-level records in drawable order.
func (s *Structures) Records() []*Record {
	return s.bottom.Records()
}

// Get the values a renderer binds.
func (s *Structures) Output() Output {
	return Output{
		TLAS:             s.top.Address(),
		TLASHandle:       s.top.Handle(),
		MeshTable:        s.meshTable.Buffer(),
		MeshTableAddress: s.meshTable.Address(),
		InstanceCount:    s.top.Len(),
	}
}

// Destroy every structure and release every buffer owned by the set.
func (s *Structures) Destroy() {
	if s.top != nil {
		s.top.Destroy()
		s.top = nil
	}
	if s.meshTable != nil {
		s.meshTable.Release()
		s.meshTable = nil
	}
	if s.bottom != nil {
		s.bottom.Destroy()
		s.bottom = nil
	}
}
