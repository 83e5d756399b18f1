package accel

import (
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/cockroachdb/errors"
)

// The build state of one bottom-level structure. Record i always belongs to
// drawable i.
type Record struct {
	Index int
	Name  string
	Mesh  *scene.Mesh

	PrimitiveCount uint32

	// Sizes reported by the driver for the initial build.
	BuildSize   uint64
	ScratchSize uint64

	// Size reported by the compacted size query; zero when the structure
	// was built without compaction support.
	CompactedSize uint64

	// Current placement, handle and address. These change when the
	// structure is compacted.
	Region  Region
	Handle  gpu.StructureHandle
	Address gpu.StructureAddress

	build gpu.BuildInfo
}

// BottomLevel owns one bottom-level structure per drawable, all placed in a
// single arena buffer.
type BottomLevel struct {
	dev    *gpu.Device
	logger log.Logger
	opts   Options

	records []*Record
	arena   *Arena

	// The build counter is bumped by every build; compaction remembers the
	// generation it ran for.
	generation          uint64
	compactedGeneration uint64

	scratchSize      uint64
	buildArenaSize   uint64
	buildTime        time.Duration
	compactTime      time.Duration
	compactionPasses int
}

// Build one bottom-level structure per drawable. Structures are placed back
// to back in one arena whose offsets honor the device structure alignment.
// When compaction is enabled the compacted size of every structure is
// queried in the same submission and read back before returning.
func BuildBottomLevel(dev *gpu.Device, drawables []scene.Drawable, opts Options) (*BottomLevel, error) {
	b := &BottomLevel{
		dev:    dev,
		logger: log.New("blas"),
		opts:   opts,
	}
	if err := b.build(drawables); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

func (b *BottomLevel) build(drawables []scene.Drawable) error {
	start := time.Now()
	b.generation++

	flags := b.opts.bottomLevelFlags()
	layout := NewArenaLayout(b.dev.Props.AccelerationStructureAlignment)

	for i := range drawables {
		d := &drawables[i]
		if d.Mesh == nil {
			return errors.Wrapf(ErrMissingMesh, "drawable %d (%s)", i, d.Name)
		}
		prims := d.Mesh.PrimitiveCount()
		if prims == 0 {
			return errors.Wrapf(ErrMalformedGeometry, "drawable %d (%s) with %d indices", i, d.Name, d.Mesh.IndexCount)
		}

		r := &Record{
			Index:          i,
			Name:           d.Name,
			Mesh:           d.Mesh,
			PrimitiveCount: prims,
			build:          triangleBuildInfo(d.Mesh, flags),
		}
		sizes, err := b.dev.BuildSizes(&r.build, prims)
		if err != nil {
			return errors.Wrapf(err, "drawable %d (%s)", i, d.Name)
		}
		r.BuildSize = sizes.StructureSize
		r.ScratchSize = sizes.BuildScratchSize
		layout.Add(r.BuildSize)
		b.records = append(b.records, r)
	}

	if len(b.records) == 0 {
		b.logger.Info("no drawables; skipping bottom-level builds")
		return nil
	}

	var err error
	if b.arena, err = allocateArena(b.dev, "blasArena", layout); err != nil {
		return err
	}
	b.buildArenaSize = layout.Size()

	scratch, scratchOffsets, err := b.allocateScratch()
	if err != nil {
		return err
	}
	defer scratch.Release()

	for i, r := range b.records {
		r.Region = b.arena.Region(i)
		r.Handle, r.Address, err = b.dev.CreateStructure(gpu.StructureInfo{
			Type:   gpu.BottomLevel,
			Buffer: r.Region.Buffer.Handle(),
			Offset: r.Region.Offset,
			Size:   r.Region.Size,
		})
		if err != nil {
			return errors.Wrapf(err, "drawable %d (%s)", i, r.Name)
		}
		r.build.Dst = r.Handle
		r.build.Scratch = scratch.ScratchAddress().Offset(scratchOffsets[i])
	}

	var pool gpu.QueryPoolHandle
	if b.opts.Compact {
		if pool, err = b.dev.CreateQueryPool(gpu.QueryCompactedSize, uint32(len(b.records))); err != nil {
			return err
		}
		defer b.dev.DestroyQueryPool(pool)
	}

	err = b.dev.Submit(func(cb *gpu.CommandBuffer) error {
		if pool != 0 {
			cb.ResetQueryPool(pool, 0, uint32(len(b.records)))
		}
		for _, r := range b.records {
			cb.BuildStructures(r.build)
			if b.opts.ScratchMode == ScratchAliased {
				// The next build reuses the same scratch range.
				cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead | gpu.AccessStructureWrite})
			}
		}
		if b.opts.ScratchMode == ScratchDisjoint {
			cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead})
		}
		if pool != 0 {
			cb.WriteCompactedSizes(b.Handles(), pool, 0)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "building %d bottom-level structures", len(b.records))
	}

	if pool != 0 {
		sizes, err := b.dev.QueryResults(pool, uint32(len(b.records)))
		if err != nil {
			return err
		}
		for i, r := range b.records {
			r.CompactedSize = sizes[i]
		}
	}

	b.buildTime = time.Since(start)
	b.logger.Debugf(
		"built %d bottom-level structures (%d bytes, %d scratch bytes, %s scratch) in %d ms",
		len(b.records), b.buildArenaSize, b.scratchSize, b.opts.ScratchMode, b.buildTime.Nanoseconds()/1e6,
	)
	return nil
}

// Allocate the shared scratch buffer and return the scratch offset used by
// each record.
func (b *BottomLevel) allocateScratch() (*gpu.Buffer, []uint64, error) {
	align := b.dev.Props.MinScratchOffsetAlignment
	offsets := make([]uint64, len(b.records))

	var size uint64
	switch b.opts.ScratchMode {
	case ScratchDisjoint:
		layout := NewArenaLayout(align)
		for i, r := range b.records {
			offsets[i] = layout.Add(r.ScratchSize).Offset
		}
		size = layout.Size()
	default:
		for _, r := range b.records {
			if r.ScratchSize > size {
				size = r.ScratchSize
			}
		}
		size = gpu.AlignUp(size, align)
	}
	if size < b.opts.ScratchFloor {
		size = b.opts.ScratchFloor
	}

	scratch := b.dev.Buffer("blasScratch")
	err := scratch.Allocate(gpu.BufferInfo{
		Size:      size,
		Usage:     gpu.UsageStorage | gpu.UsageDeviceAddress,
		Memory:    gpu.MemoryDeviceLocal,
		Alignment: align,
	})
	if err != nil {
		return nil, nil, err
	}
	b.scratchSize = size
	return scratch, offsets, nil
}

func triangleBuildInfo(mesh *scene.Mesh, flags gpu.BuildFlags) gpu.BuildInfo {
	return gpu.BuildInfo{
		Type:  gpu.BottomLevel,
		Flags: flags,
		Geometry: gpu.Geometry{
			Type:   gpu.GeometryTriangles,
			Opaque: true,
			Triangles: gpu.TriangleGeometry{
				VertexData:   mesh.Vertices,
				VertexStride: mesh.VertexStride,
				MaxVertex:    mesh.VertexCount - 1,
				IndexType:    gpu.IndexUint32,
				IndexData:    mesh.Indices,
			},
		},
		Range: gpu.BuildRange{
			PrimitiveCount:  mesh.PrimitiveCount(),
			PrimitiveOffset: mesh.FirstIndex * uint32(gpu.IndexUint32.Size()),
		},
	}
}

// Get the records in drawable order.
func (b *BottomLevel) Records() []*Record {
	return b.records
}

// Number of structures.
func (b *BottomLevel) Len() int {
	return len(b.records)
}

// Get the current structure handles in drawable order.
func (b *BottomLevel) Handles() []gpu.StructureHandle {
	out := make([]gpu.StructureHandle, len(b.records))
	for i, r := range b.records {
		out[i] = r.Handle
	}
	return out
}

// Get the current structure addresses in drawable order.
func (b *BottomLevel) Addresses() []gpu.StructureAddress {
	out := make([]gpu.StructureAddress, len(b.records))
	for i, r := range b.records {
		out[i] = r.Address
	}
	return out
}

// Get the current arena; nil when there are no structures.
func (b *BottomLevel) Arena() *Arena {
	return b.arena
}

// Returns true if the structures of the current generation are compacted.
func (b *BottomLevel) Compacted() bool {
	return b.generation != 0 && b.compactedGeneration == b.generation
}

// Destroy all structures and release the arena.
func (b *BottomLevel) Destroy() {
	for _, r := range b.records {
		b.dev.DestroyStructure(r.Handle)
		r.Handle = 0
		r.Address = 0
	}
	b.arena.Release()
	b.arena = nil
	b.generation = 0
	b.compactedGeneration = 0
}
