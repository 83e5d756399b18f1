package soft

import (
	"encoding/binary"
	"math"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/types"
	"github.com/cockroachdb/errors"
)

type cmdState uint8

const (
	cmdInitial cmdState = iota
	cmdRecording
	cmdExecutable
	cmdPending
	cmdInvalid
)

type cmdKind uint8

const (
	cmdBuild cmdKind = iota
	cmdBarrier
	cmdCopyStructure
	cmdCopyBuffer
	cmdResetQueries
	cmdWriteProperties
)

type command struct {
	kind cmdKind

	build      gpu.BuildInfo
	barrier    gpu.Barrier
	copyAS     gpu.CopyStructureInfo
	copyBuffer gpu.BufferCopy

	pool       gpu.QueryPoolHandle
	first      uint32
	count      uint32
	queryType  gpu.QueryType
	structures []gpu.StructureHandle
}

type cmdBuffer struct {
	handle gpu.CommandBufferHandle
	state  cmdState
	cmds   []command
}

type span struct {
	start, end uint64
}

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

func (d *Device) allocateCommandBuffer() (gpu.CommandBufferHandle, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb := &cmdBuffer{handle: gpu.CommandBufferHandle(d.newHandle())}
	d.cmdBuffers[cb.handle] = cb
	return cb.handle, gpu.Success
}

func (d *Device) freeCommandBuffer(handle gpu.CommandBufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cb, ok := d.cmdBuffers[handle]; ok && cb.state == cmdPending {
		d.logger.Warningf("command buffer %d freed while pending", handle)
	}
	delete(d.cmdBuffers, handle)
}

func (d *Device) beginCommandBuffer(handle gpu.CommandBufferHandle) gpu.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.cmdBuffers[handle]
	if !ok || cb.state == cmdPending {
		return gpu.ErrorValidationFailed
	}
	cb.state = cmdRecording
	cb.cmds = cb.cmds[:0]
	return gpu.Success
}

func (d *Device) endCommandBuffer(handle gpu.CommandBufferHandle) gpu.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.cmdBuffers[handle]
	if !ok || cb.state != cmdRecording {
		return gpu.ErrorValidationFailed
	}
	cb.state = cmdExecutable
	return gpu.Success
}

// Append a command to a buffer in the recording state.
func (d *Device) record(handle gpu.CommandBufferHandle, c command) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.cmdBuffers[handle]
	if !ok || cb.state != cmdRecording {
		d.logger.Errorf("command recorded into command buffer %d outside of the recording state", handle)
		if ok {
			cb.state = cmdInvalid
		}
		return
	}
	cb.cmds = append(cb.cmds, c)
}

func (d *Device) cmdBuild(handle gpu.CommandBufferHandle, infos []gpu.BuildInfo) {
	for _, info := range infos {
		d.record(handle, command{kind: cmdBuild, build: info})
	}
}

func (d *Device) cmdBarrier(handle gpu.CommandBufferHandle, barrier gpu.Barrier) {
	d.record(handle, command{kind: cmdBarrier, barrier: barrier})
}

func (d *Device) cmdCopyStructure(handle gpu.CommandBufferHandle, info gpu.CopyStructureInfo) {
	d.record(handle, command{kind: cmdCopyStructure, copyAS: info})
}

func (d *Device) cmdCopyBuffer(handle gpu.CommandBufferHandle, region gpu.BufferCopy) {
	d.record(handle, command{kind: cmdCopyBuffer, copyBuffer: region})
}

func (d *Device) cmdResetQueryPool(handle gpu.CommandBufferHandle, pool gpu.QueryPoolHandle, first, count uint32) {
	d.record(handle, command{kind: cmdResetQueries, pool: pool, first: first, count: count})
}

func (d *Device) cmdWriteProperties(handle gpu.CommandBufferHandle, structures []gpu.StructureHandle, queryType gpu.QueryType, pool gpu.QueryPoolHandle, first uint32) {
	list := make([]gpu.StructureHandle, len(structures))
	copy(list, structures)
	d.record(handle, command{kind: cmdWriteProperties, structures: list, queryType: queryType, pool: pool, first: first})
}

func (d *Device) queueSubmit(handle gpu.CommandBufferHandle) gpu.Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	cb, ok := d.cmdBuffers[handle]
	if !ok || cb.state != cmdExecutable {
		d.logger.Errorf("submit of command buffer %d that is not executable", handle)
		return gpu.ErrorValidationFailed
	}

	if err := d.validate(cb); err != nil {
		d.logger.Errorf("submit of command buffer %d rejected: %v", handle, err)
		return gpu.ErrorValidationFailed
	}

	cb.state = cmdPending
	d.pending = append(d.pending, cb)
	d.stats.Submissions++
	return gpu.Success
}

// Check scratch hazards: two builds that touch overlapping scratch memory
// must be separated by a barrier that makes the first build's writes
// available. Callers hold d.mu.
func (d *Device) validate(cb *cmdBuffer) error {
	var inFlight []span
	scratchAlign := d.profile.Props.MinScratchOffsetAlignment

	for index, c := range cb.cmds {
		switch c.kind {
		case cmdBarrier:
			if c.barrier.Src&gpu.AccessStructureWrite != 0 {
				inFlight = inFlight[:0]
			}
		case cmdBuild:
			addr := uint64(c.build.Scratch)
			if addr%scratchAlign != 0 {
				return errors.Newf("command %d: scratch address %#x is not a multiple of %d", index, addr, scratchAlign)
			}
			size := d.scratchSize(&c.build)
			a, ok := d.lookup(addr, size)
			if !ok {
				return errors.Newf("command %d: scratch range [%#x, %#x) is not backed by a buffer", index, addr, addr+size)
			}
			if a.info.Usage&gpu.UsageStorage == 0 {
				return errors.Newf("command %d: scratch buffer %d lacks storage usage", index, a.handle)
			}
			s := span{addr, addr + size}
			for _, other := range inFlight {
				if s.overlaps(other) {
					return errors.Newf("command %d: scratch range [%#x, %#x) overlaps a build still in flight", index, s.start, s.end)
				}
			}
			inFlight = append(inFlight, s)
		}
	}
	return nil
}

func (d *Device) queueWaitIdle() gpu.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.flush()
}

// Execute all pending work in submission order. Callers hold d.mu.
func (d *Device) flush() gpu.Result {
	result := gpu.Success
	for _, cb := range d.pending {
		for index, c := range cb.cmds {
			if err := d.execute(c); err != nil {
				d.logger.Errorf("command buffer %d, command %d: %v", cb.handle, index, err)
				result = gpu.ErrorDeviceLost
				break
			}
		}
		cb.state = cmdExecutable
	}
	d.pending = d.pending[:0]
	return result
}

func (d *Device) execute(c command) error {
	switch c.kind {
	case cmdBuild:
		d.stats.Builds++
		if c.build.Type == gpu.BottomLevel {
			return d.buildBottom(&c.build)
		}
		return d.buildTop(&c.build)
	case cmdBarrier:
		return nil
	case cmdCopyStructure:
		d.stats.Copies++
		return d.copyStructure(c.copyAS)
	case cmdCopyBuffer:
		return d.copyBuffer(c.copyBuffer)
	case cmdResetQueries:
		return d.resetQueries(c.pool, c.first, c.count)
	case cmdWriteProperties:
		return d.writeProperties(c.structures, c.queryType, c.pool, c.first)
	}
	return errors.Newf("unknown command kind %d", c.kind)
}

func (d *Device) buildTarget(info *gpu.BuildInfo) (*structure, error) {
	dst, ok := d.structures[info.Dst]
	if !ok {
		return nil, errors.Newf("build into unknown structure %d", info.Dst)
	}
	if dst.typ != info.Type {
		return nil, errors.Newf("%s build into %s structure %d", info.Type, dst.typ, info.Dst)
	}
	sizes, res := d.buildSizes(info, info.Range.PrimitiveCount)
	if res != gpu.Success {
		return nil, errors.Newf("invalid build geometry for structure %d", info.Dst)
	}
	if dst.size < sizes.StructureSize {
		return nil, errors.Newf("structure %d holds %d bytes; build needs %d", info.Dst, dst.size, sizes.StructureSize)
	}
	if _, ok := d.buffers[dst.buffer]; !ok {
		return nil, errors.Newf("structure %d backing buffer %d was destroyed", info.Dst, dst.buffer)
	}
	return dst, nil
}

func (d *Device) buildBottom(info *gpu.BuildInfo) error {
	dst, err := d.buildTarget(info)
	if err != nil {
		return err
	}

	tri := info.Geometry.Triangles
	count := uint64(info.Range.PrimitiveCount) * 3
	indexSize := tri.IndexType.Size()
	indexData, ok := d.memory(uint64(tri.IndexData)+uint64(info.Range.PrimitiveOffset), count*indexSize)
	if !ok {
		return errors.Newf("index data at %s+%d is not backed by a buffer", tri.IndexData, info.Range.PrimitiveOffset)
	}

	bounds := types.EmptyAABB()
	for i := uint64(0); i < count; i++ {
		var index uint32
		if tri.IndexType == gpu.IndexUint16 {
			index = uint32(binary.LittleEndian.Uint16(indexData[i*2:]))
		} else {
			index = binary.LittleEndian.Uint32(indexData[i*4:])
		}
		if index > tri.MaxVertex {
			return errors.Newf("index %d references vertex %d beyond max vertex %d", i, index, tri.MaxVertex)
		}

		vtxAddr := uint64(tri.VertexData) + uint64(info.Range.FirstVertex+index)*tri.VertexStride
		pos, ok := d.memory(vtxAddr, 12)
		if !ok {
			return errors.Newf("vertex %d at %#x is not backed by a buffer", index, vtxAddr)
		}
		bounds = bounds.Extend(types.Vec3{
			math.Float32frombits(binary.LittleEndian.Uint32(pos[0:])),
			math.Float32frombits(binary.LittleEndian.Uint32(pos[4:])),
			math.Float32frombits(binary.LittleEndian.Uint32(pos[8:])),
		})
	}

	dst.built = true
	dst.compactable = info.Flags&gpu.BuildAllowCompaction != 0
	dst.primitives = info.Range.PrimitiveCount
	dst.instances = nil
	dst.bounds = bounds
	dst.compacted = compactedSize(info.Range.PrimitiveCount)
	return nil
}

func (d *Device) buildTop(info *gpu.BuildInfo) error {
	dst, err := d.buildTarget(info)
	if err != nil {
		return err
	}

	count := uint64(info.Range.PrimitiveCount)
	bounds := types.EmptyAABB()
	instances := make([]uint64, 0, count)

	if count != 0 {
		base := uint64(info.Geometry.Instances.Data) + uint64(info.Range.PrimitiveOffset)
		data, ok := d.memory(base, count*instanceRecordSize)
		if !ok {
			return errors.Newf("instance data at %#x is not backed by a buffer", base)
		}

		for i := uint64(0); i < count; i++ {
			rec := data[i*instanceRecordSize : (i+1)*instanceRecordSize]
			var tr types.Transform
			for row := 0; row < 3; row++ {
				for col := 0; col < 4; col++ {
					off := (row*4 + col) * 4
					tr[row][col] = math.Float32frombits(binary.LittleEndian.Uint32(rec[off:]))
				}
			}
			blasAddr := binary.LittleEndian.Uint64(rec[56:])
			blas, ok := d.structureAt(blasAddr)
			if !ok {
				return errors.Newf("instance %d references unknown structure address %#x", i, blasAddr)
			}
			if blas.typ != gpu.BottomLevel || !blas.built {
				return errors.Newf("instance %d references structure %#x that is not a built bottom-level structure", i, blasAddr)
			}
			bounds = bounds.Union(tr.ApplyAABB(blas.bounds))
			instances = append(instances, blasAddr)
		}
	}

	dst.built = true
	dst.compactable = info.Flags&gpu.BuildAllowCompaction != 0
	dst.primitives = info.Range.PrimitiveCount
	dst.instances = instances
	dst.bounds = bounds
	dst.compacted = gpu.AlignUp(structureHeaderSize+topBytesPerInstance*count, 8)
	return nil
}

func (d *Device) copyStructure(info gpu.CopyStructureInfo) error {
	src, ok := d.structures[info.Src]
	if !ok || !src.built {
		return errors.Newf("copy from structure %d that is not built", info.Src)
	}
	dst, ok := d.structures[info.Dst]
	if !ok {
		return errors.Newf("copy into unknown structure %d", info.Dst)
	}
	if src.typ != dst.typ {
		return errors.Newf("copy between %s and %s structures", src.typ, dst.typ)
	}

	need := src.size
	if info.Mode == gpu.CopyCompact {
		if !src.compactable {
			return errors.Newf("compacting copy of structure %d built without compaction support", info.Src)
		}
		need = src.compacted
	}
	if dst.size < need {
		return errors.Newf("copy of %d bytes into structure %d holding %d bytes", need, info.Dst, dst.size)
	}

	dst.built = true
	dst.compactable = src.compactable
	dst.primitives = src.primitives
	dst.instances = append([]uint64(nil), src.instances...)
	dst.bounds = src.bounds
	dst.compacted = src.compacted
	return nil
}

func (d *Device) copyBuffer(region gpu.BufferCopy) error {
	src, ok := d.buffers[region.Src]
	if !ok || region.SrcOffset+region.Size > src.info.Size {
		return errors.Newf("copy source range [%d, %d) outside buffer %d", region.SrcOffset, region.SrcOffset+region.Size, region.Src)
	}
	dst, ok := d.buffers[region.Dst]
	if !ok || region.DstOffset+region.Size > dst.info.Size {
		return errors.Newf("copy destination range [%d, %d) outside buffer %d", region.DstOffset, region.DstOffset+region.Size, region.Dst)
	}
	if src.info.Usage&gpu.UsageTransferSrc == 0 || dst.info.Usage&gpu.UsageTransferDst == 0 {
		return errors.Newf("buffer copy %d -> %d without transfer usage", region.Src, region.Dst)
	}
	copy(dst.data[region.DstOffset:region.DstOffset+region.Size], src.data[region.SrcOffset:region.SrcOffset+region.Size])
	return nil
}
