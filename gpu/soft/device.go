// Package soft implements the gpu entry point table on host memory. It
// executes structure builds, compaction copies and queries on the CPU and
// validates the hazards a real driver's validation layer would report, which
// makes it suitable for tests and for dry-running scene loads.
package soft

import (
	"sync"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
)

// First device address handed out; keeps zero reserved as the null address.
const baseAddress uint64 = 0x10000

// Default alignment of buffer device addresses.
const defaultBufferAlignment uint64 = 256

type allocation struct {
	handle  gpu.BufferHandle
	info    gpu.BufferInfo
	address uint64
	data    []byte
}

func (a *allocation) contains(addr, size uint64) bool {
	return addr >= a.address && addr+size <= a.address+a.info.Size
}

// Device counters.
type Stats struct {
	LiveBuffers    int
	LiveStructures int
	LiveQueryPools int
	AllocatedBytes uint64
	PeakBytes      uint64
	Submissions    int
	Builds         int
	Copies         int
}

// A software ray tracing device.
type Device struct {
	mu     sync.Mutex
	logger log.Logger

	profile Profile

	nextHandle  uint64
	nextAddress uint64

	buffers    map[gpu.BufferHandle]*allocation
	structures map[gpu.StructureHandle]*structure
	pools      map[gpu.QueryPoolHandle]*queryPool
	cmdBuffers map[gpu.CommandBufferHandle]*cmdBuffer
	pipelines  map[gpu.PipelineHandle]uint32

	// Submitted work that has not been executed yet.
	pending []*cmdBuffer

	stats Stats
}

// Create a software device for the given profile.
func New(profile Profile) *Device {
	return &Device{
		logger:      log.New("soft-device"),
		profile:     profile,
		nextAddress: baseAddress,
		buffers:     make(map[gpu.BufferHandle]*allocation),
		structures:  make(map[gpu.StructureHandle]*structure),
		pools:       make(map[gpu.QueryPoolHandle]*queryPool),
		cmdBuffers:  make(map[gpu.CommandBufferHandle]*cmdBuffer),
		pipelines:   make(map[gpu.PipelineHandle]uint32),
	}
}

// Open a software device by profile name and wrap it in a device context.
func Open(profileName string) (*gpu.Device, *Device, error) {
	profile, err := LookupProfile(profileName)
	if err != nil {
		return nil, nil, err
	}
	sd := New(profile)
	dev, err := sd.Context()
	if err != nil {
		return nil, nil, err
	}
	return dev, sd, nil
}

// Create a device context backed by this device.
func (d *Device) Context() (*gpu.Device, error) {
	return gpu.NewDevice(d.profile.Props, d.Funcs())
}

// Get the device profile.
func (d *Device) Profile() Profile {
	return d.profile
}

// Build the entry point table for this device.
func (d *Device) Funcs() gpu.Funcs {
	return gpu.Funcs{
		CreateBuffer:           d.createBuffer,
		DestroyBuffer:          d.destroyBuffer,
		MapBuffer:              d.mapBuffer,
		GetBufferDeviceAddress: d.bufferAddress,

		GetAccelerationStructureBuildSizes:    d.buildSizes,
		CreateAccelerationStructure:           d.createStructure,
		DestroyAccelerationStructure:          d.destroyStructure,
		GetAccelerationStructureDeviceAddress: d.structureAddress,

		CreateQueryPool:     d.createQueryPool,
		DestroyQueryPool:    d.destroyQueryPool,
		GetQueryPoolResults: d.queryPoolResults,

		GetRayTracingShaderGroupHandles: d.shaderGroupHandles,

		AllocateCommandBuffer: d.allocateCommandBuffer,
		FreeCommandBuffer:     d.freeCommandBuffer,
		BeginCommandBuffer:    d.beginCommandBuffer,
		EndCommandBuffer:      d.endCommandBuffer,
		QueueSubmit:           d.queueSubmit,
		QueueWaitIdle:         d.queueWaitIdle,

		CmdBuildAccelerationStructures:           d.cmdBuild,
		CmdPipelineBarrier:                       d.cmdBarrier,
		CmdCopyAccelerationStructure:             d.cmdCopyStructure,
		CmdCopyBuffer:                            d.cmdCopyBuffer,
		CmdResetQueryPool:                        d.cmdResetQueryPool,
		CmdWriteAccelerationStructuresProperties: d.cmdWriteProperties,
	}
}

// Get a snapshot of the device counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.LiveBuffers = len(d.buffers)
	s.LiveStructures = len(d.structures)
	s.LiveQueryPools = len(d.pools)
	return s
}

// Change the memory budget; zero removes the limit. Existing allocations are
// kept even when they exceed the new budget.
func (d *Device) SetMemoryBudget(bytes uint64) {
	d.mu.Lock()
	d.profile.MemoryBudget = bytes
	d.mu.Unlock()
}

func (d *Device) newHandle() uint64 {
	d.nextHandle++
	return d.nextHandle
}

func (d *Device) createBuffer(info gpu.BufferInfo) (gpu.BufferHandle, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if info.Size == 0 {
		return 0, gpu.ErrorValidationFailed
	}

	if d.profile.MemoryBudget != 0 && d.stats.AllocatedBytes+info.Size > d.profile.MemoryBudget {
		d.logger.Warningf("allocation of %d bytes exceeds memory budget (%d of %d bytes in use)", info.Size, d.stats.AllocatedBytes, d.profile.MemoryBudget)
		return 0, gpu.ErrorOutOfDeviceMemory
	}

	align := defaultBufferAlignment
	if info.Alignment > align {
		if !gpu.IsPowerOfTwo(info.Alignment) {
			return 0, gpu.ErrorValidationFailed
		}
		align = info.Alignment
	}

	addr := gpu.AlignUp(d.nextAddress, align)
	d.nextAddress = addr + info.Size

	a := &allocation{
		handle:  gpu.BufferHandle(d.newHandle()),
		info:    info,
		address: addr,
		data:    make([]byte, info.Size),
	}
	d.buffers[a.handle] = a

	d.stats.AllocatedBytes += info.Size
	if d.stats.AllocatedBytes > d.stats.PeakBytes {
		d.stats.PeakBytes = d.stats.AllocatedBytes
	}

	return a.handle, gpu.Success
}

func (d *Device) destroyBuffer(handle gpu.BufferHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.buffers[handle]
	if !ok {
		d.logger.Warningf("destroy of unknown buffer %d", handle)
		return
	}
	for _, s := range d.structures {
		if s.buffer == handle {
			d.logger.Warningf("buffer %d destroyed while still backing structure %d", handle, s.handle)
		}
	}
	delete(d.buffers, handle)
	d.stats.AllocatedBytes -= a.info.Size
}

func (d *Device) mapBuffer(handle gpu.BufferHandle) ([]byte, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.buffers[handle]
	if !ok || a.info.Memory&gpu.MemoryHostVisible == 0 {
		return nil, gpu.ErrorMemoryMapFailed
	}
	return a.data, gpu.Success
}

func (d *Device) bufferAddress(handle gpu.BufferHandle) gpu.DeviceAddress {
	d.mu.Lock()
	defer d.mu.Unlock()

	a, ok := d.buffers[handle]
	if !ok || a.info.Usage&gpu.UsageDeviceAddress == 0 {
		return 0
	}
	return gpu.DeviceAddress(a.address)
}

// Find the allocation that contains [addr, addr+size). Callers hold d.mu.
func (d *Device) lookup(addr, size uint64) (*allocation, bool) {
	for _, a := range d.buffers {
		if a.contains(addr, size) {
			return a, true
		}
	}
	return nil, false
}

// Get a view of [addr, addr+size) in device memory. Callers hold d.mu.
func (d *Device) memory(addr, size uint64) ([]byte, bool) {
	a, ok := d.lookup(addr, size)
	if !ok {
		return nil, false
	}
	off := addr - a.address
	return a.data[off : off+size], true
}
