package soft

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/types"
)

// Size model of the software builder. Build sizes are worst-case estimates;
// a built bottom-level structure only needs compactedBytesPerPrimitive.
const (
	structureHeaderSize        uint64 = 256
	bottomBytesPerPrimitive    uint64 = 128
	bottomScratchBase          uint64 = 512
	bottomScratchPerPrimitive  uint64 = 64
	compactedBytesPerPrimitive uint64 = 72
	topBytesPerInstance        uint64 = 128
	topScratchBase             uint64 = 256
	topScratchPerInstance      uint64 = 64

	// Size of a hardware instance record.
	instanceRecordSize uint64 = 64
)

type structure struct {
	handle  gpu.StructureHandle
	typ     gpu.StructureType
	buffer  gpu.BufferHandle
	offset  uint64
	size    uint64
	address uint64

	built       bool
	compactable bool

	primitives uint32
	instances  []uint64
	bounds     types.AABB
	compacted  uint64
}

// Inspection data for a structure.
type StructureInfo struct {
	Type           gpu.StructureType
	Built          bool
	Compactable    bool
	Size           uint64
	CompactedSize  uint64
	PrimitiveCount uint32

	// Referenced bottom-level structure addresses (top-level only), in
	// instance order.
	Instances []gpu.StructureAddress

	Bounds types.AABB
}

// Look up a live structure by device address.
func (d *Device) StructureInfo(addr gpu.StructureAddress) (StructureInfo, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.structureAt(uint64(addr))
	if !ok {
		return StructureInfo{}, false
	}

	info := StructureInfo{
		Type:           s.typ,
		Built:          s.built,
		Compactable:    s.compactable,
		Size:           s.size,
		CompactedSize:  s.compacted,
		PrimitiveCount: s.primitives,
		Bounds:         s.bounds,
	}
	for _, a := range s.instances {
		info.Instances = append(info.Instances, gpu.StructureAddress(a))
	}
	return info, true
}

// Callers hold d.mu.
func (d *Device) structureAt(addr uint64) (*structure, bool) {
	for _, s := range d.structures {
		if s.address == addr {
			return s, true
		}
	}
	return nil, false
}

func compactedSize(primitives uint32) uint64 {
	return gpu.AlignUp(structureHeaderSize+compactedBytesPerPrimitive*uint64(primitives), 8)
}

func (d *Device) buildSizes(info *gpu.BuildInfo, maxPrimitiveCount uint32) (gpu.BuildSizes, gpu.Result) {
	n := uint64(maxPrimitiveCount)
	switch info.Type {
	case gpu.BottomLevel:
		if info.Geometry.Type != gpu.GeometryTriangles || info.Geometry.Triangles.VertexStride < 12 {
			return gpu.BuildSizes{}, gpu.ErrorValidationFailed
		}
		scratch := bottomScratchBase + bottomScratchPerPrimitive*n
		return gpu.BuildSizes{
			StructureSize:     structureHeaderSize + bottomBytesPerPrimitive*n,
			BuildScratchSize:  scratch,
			UpdateScratchSize: scratch,
		}, gpu.Success
	case gpu.TopLevel:
		if info.Geometry.Type != gpu.GeometryInstances {
			return gpu.BuildSizes{}, gpu.ErrorValidationFailed
		}
		scratch := topScratchBase + topScratchPerInstance*n
		return gpu.BuildSizes{
			StructureSize:     structureHeaderSize + topBytesPerInstance*n,
			BuildScratchSize:  scratch,
			UpdateScratchSize: scratch,
		}, gpu.Success
	}
	return gpu.BuildSizes{}, gpu.ErrorValidationFailed
}

func (d *Device) createStructure(info gpu.StructureInfo) (gpu.StructureHandle, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.buffers[info.Buffer]
	if !ok || a.info.Usage&gpu.UsageStructureStorage == 0 {
		d.logger.Errorf("structure placed in buffer %d without structure storage usage", info.Buffer)
		return 0, gpu.ErrorValidationFailed
	}
	if info.Offset%d.profile.Props.AccelerationStructureAlignment != 0 {
		d.logger.Errorf("structure offset %d is not a multiple of %d", info.Offset, d.profile.Props.AccelerationStructureAlignment)
		return 0, gpu.ErrorValidationFailed
	}
	if info.Size == 0 || info.Offset+info.Size > a.info.Size {
		d.logger.Errorf("structure [%d, %d) exceeds buffer %d of size %d", info.Offset, info.Offset+info.Size, info.Buffer, a.info.Size)
		return 0, gpu.ErrorValidationFailed
	}

	s := &structure{
		handle:  gpu.StructureHandle(d.newHandle()),
		typ:     info.Type,
		buffer:  info.Buffer,
		offset:  info.Offset,
		size:    info.Size,
		address: a.address + info.Offset,
		bounds:  types.EmptyAABB(),
	}
	d.structures[s.handle] = s
	return s.handle, gpu.Success
}

func (d *Device) destroyStructure(handle gpu.StructureHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.structures[handle]; !ok {
		d.logger.Warningf("destroy of unknown structure %d", handle)
		return
	}
	delete(d.structures, handle)
}

func (d *Device) structureAddress(handle gpu.StructureHandle) gpu.StructureAddress {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.structures[handle]
	if !ok {
		return 0
	}
	return gpu.StructureAddress(s.address)
}

// The scratch range a build touches. Callers hold d.mu.
func (d *Device) scratchSize(info *gpu.BuildInfo) uint64 {
	sizes, res := d.buildSizes(info, info.Range.PrimitiveCount)
	if res != gpu.Success {
		return 0
	}
	return sizes.BuildScratchSize
}
