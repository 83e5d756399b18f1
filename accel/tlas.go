package accel

import (
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/ammarasyad/Singularity-sub000/types"
	"github.com/cockroachdb/errors"
)

// TopLevel owns the scene's top-level structure and the instance buffer it
// was built from.
type TopLevel struct {
	dev *gpu.Device

	instances      []Instance
	instanceBuffer *gpu.Buffer
	arena          *Arena

	handle  gpu.StructureHandle
	address gpu.StructureAddress

	buildSize   uint64
	scratchSize uint64
	buildTime   time.Duration
}

// Build the top-level structure with one instance per drawable. Instance i
// references blas[i] and carries custom index i, which is the drawable's
// slot in the mesh address table. An empty drawable list yields a valid
// structure with zero instances.
func BuildTopLevel(dev *gpu.Device, drawables []scene.Drawable, blas []gpu.StructureAddress, opts Options) (*TopLevel, error) {
	if len(drawables) != len(blas) {
		return nil, errors.AssertionFailedf("accel: %d drawables but %d bottom-level structures", len(drawables), len(blas))
	}

	t := &TopLevel{
		dev:            dev,
		instanceBuffer: dev.Buffer("tlasInstances"),
	}
	if err := t.build(drawables, blas, opts); err != nil {
		t.Destroy()
		return nil, err
	}
	return t, nil
}

func (t *TopLevel) build(drawables []scene.Drawable, blas []gpu.StructureAddress, opts Options) error {
	logger := log.New("tlas")
	start := time.Now()

	t.instances = make([]Instance, len(drawables))
	for i := range drawables {
		d := &drawables[i]
		t.instances[i] = NewInstance(
			types.TransformFromMat4(d.Transform),
			uint32(i),
			d.VisibilityMask(),
			d.HitGroup,
			InstanceTriangleFacingCullDisable,
			blas[i],
		)
	}

	// A zero sized buffer cannot be created, so an empty scene still gets
	// room for one record.
	bufSize := uint64(len(t.instances)) * InstanceSize
	if bufSize == 0 {
		bufSize = InstanceSize
	}
	err := t.instanceBuffer.AllocateAndWriteData(t.instances, gpu.BufferInfo{
		Size:      bufSize,
		Usage:     gpu.UsageStructureBuildInput | gpu.UsageDeviceAddress,
		Alignment: 16,
	})
	if err != nil {
		return err
	}

	info := gpu.BuildInfo{
		Type:  gpu.TopLevel,
		Flags: opts.topLevelFlags(),
		Geometry: gpu.Geometry{
			Type:      gpu.GeometryInstances,
			Opaque:    true,
			Instances: gpu.InstanceGeometry{Data: t.instanceBuffer.Address()},
		},
		Range: gpu.BuildRange{PrimitiveCount: uint32(len(t.instances))},
	}
	sizes, err := t.dev.BuildSizes(&info, uint32(len(t.instances)))
	if err != nil {
		return err
	}
	t.buildSize = sizes.StructureSize

	layout := NewArenaLayout(t.dev.Props.AccelerationStructureAlignment)
	layout.Add(sizes.StructureSize)
	if t.arena, err = allocateArena(t.dev, "tlasArena", layout); err != nil {
		return err
	}

	t.scratchSize = gpu.AlignUp(sizes.BuildScratchSize, t.dev.Props.MinScratchOffsetAlignment)
	scratch := t.dev.Buffer("tlasScratch")
	err = scratch.Allocate(gpu.BufferInfo{
		Size:      t.scratchSize,
		Usage:     gpu.UsageStorage | gpu.UsageDeviceAddress,
		Memory:    gpu.MemoryDeviceLocal,
		Alignment: t.dev.Props.MinScratchOffsetAlignment,
	})
	if err != nil {
		return err
	}
	defer scratch.Release()

	region := t.arena.Region(0)
	t.handle, t.address, err = t.dev.CreateStructure(gpu.StructureInfo{
		Type:   gpu.TopLevel,
		Buffer: region.Buffer.Handle(),
		Offset: region.Offset,
		Size:   region.Size,
	})
	if err != nil {
		return err
	}
	info.Dst = t.handle
	info.Scratch = scratch.ScratchAddress()

	err = t.dev.Submit(func(cb *gpu.CommandBuffer) error {
		cb.Barrier(gpu.Barrier{Src: gpu.AccessHostWrite | gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead})
		cb.BuildStructures(info)
		cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessShaderRead})
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "building top-level structure with %d instances", len(t.instances))
	}

	t.buildTime = time.Since(start)
	logger.Debugf(
		"built top-level structure with %d instances (%d bytes) in %d ms",
		len(t.instances), t.buildSize, t.buildTime.Nanoseconds()/1e6,
	)
	return nil
}

// Get the structure handle.
func (t *TopLevel) Handle() gpu.StructureHandle {
	return t.handle
}

// Get the structure device address.
func (t *TopLevel) Address() gpu.StructureAddress {
	return t.address
}

// Get the instance records in drawable order.
func (t *TopLevel) Instances() []Instance {
	return t.instances
}

// Number of instances.
func (t *TopLevel) Len() int {
	return len(t.instances)
}

// Get the instance buffer.
func (t *TopLevel) InstanceBuffer() *gpu.Buffer {
	return t.instanceBuffer
}

// Destroy the structure and release its buffers.
func (t *TopLevel) Destroy() {
	t.dev.DestroyStructure(t.handle)
	t.handle = 0
	t.address = 0
	t.arena.Release()
	t.arena = nil
	t.instanceBuffer.Release()
}
