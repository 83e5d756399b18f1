package gpu

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
)

// Device limits relevant to ray tracing.
type Properties struct {
	Name string

	// Shader binding table constants.
	ShaderGroupHandleSize      uint32
	ShaderGroupHandleAlignment uint32
	ShaderGroupBaseAlignment   uint32
	MaxRayRecursionDepth       uint32

	// Required placement alignment of structures inside their buffer.
	AccelerationStructureAlignment uint64

	// Required alignment of scratch addresses passed to builds.
	MinScratchOffsetAlignment uint64
}

// Implements Stringer.
func (p Properties) String() string {
	return fmt.Sprintf(
		"Name: %s\nShader groups: handle %d bytes, handle align %d, base align %d, max recursion %d\nStructures: align %d, scratch align %d",
		p.Name,
		p.ShaderGroupHandleSize,
		p.ShaderGroupHandleAlignment,
		p.ShaderGroupBaseAlignment,
		p.MaxRayRecursionDepth,
		p.AccelerationStructureAlignment,
		p.MinScratchOffsetAlignment,
	)
}

// A logical device context. It owns the driver entry point table and the
// buffer -> device address lookup used by every component.
type Device struct {
	Name  string
	Props Properties

	fn Funcs

	mu        sync.Mutex
	live      map[BufferHandle]*Buffer
	addresses map[BufferHandle]DeviceAddress
}

// Create a device context from its properties and entry point table.
func NewDevice(props Properties, fn Funcs) (*Device, error) {
	if err := fn.validate(); err != nil {
		return nil, err
	}

	for _, a := range []uint64{
		uint64(props.ShaderGroupHandleAlignment),
		uint64(props.ShaderGroupBaseAlignment),
		props.AccelerationStructureAlignment,
		props.MinScratchOffsetAlignment,
	} {
		if !IsPowerOfTwo(a) {
			return nil, errors.Newf("gpu device (%s): alignment %d is not a power of two", props.Name, a)
		}
	}

	return &Device{
		Name:      props.Name,
		Props:     props,
		fn:        fn,
		live:      make(map[BufferHandle]*Buffer),
		addresses: make(map[BufferHandle]DeviceAddress),
	}, nil
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}

// Get the number of allocated buffers that have not been released.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// Names of allocated buffers that have not been released.
func (d *Device) LiveBufferNames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, 0, len(d.live))
	for _, b := range d.live {
		names = append(names, b.name)
	}
	return names
}

// Resolve the device address of a buffer. Each buffer is resolved through
// the driver once; later lookups hit the cache.
func (d *Device) resolve(b *Buffer) DeviceAddress {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr, ok := d.addresses[b.handle]; ok {
		return addr
	}
	addr := d.fn.GetBufferDeviceAddress(b.handle)
	d.addresses[b.handle] = addr
	return addr
}

func (d *Device) track(b *Buffer) {
	d.mu.Lock()
	d.live[b.handle] = b
	d.mu.Unlock()
}

func (d *Device) untrack(b *Buffer) {
	d.mu.Lock()
	delete(d.live, b.handle)
	delete(d.addresses, b.handle)
	d.mu.Unlock()
}

// Query the memory requirements of a structure build.
func (d *Device) BuildSizes(info *BuildInfo, maxPrimitiveCount uint32) (BuildSizes, error) {
	sizes, res := d.fn.GetAccelerationStructureBuildSizes(info, maxPrimitiveCount)
	if err := res.Err("vkGetAccelerationStructureBuildSizesKHR"); err != nil {
		return BuildSizes{}, errors.Wrapf(err, "gpu device (%s): %s build size query for %d primitives", d.Name, info.Type, maxPrimitiveCount)
	}
	return sizes, nil
}

// Create a structure object at the given placement and return its handle and
// device address.
func (d *Device) CreateStructure(info StructureInfo) (StructureHandle, StructureAddress, error) {
	handle, res := d.fn.CreateAccelerationStructure(info)
	if err := res.Err("vkCreateAccelerationStructureKHR"); err != nil {
		return 0, 0, errors.Wrapf(err, "gpu device (%s): create %s structure at offset %d size %d", d.Name, info.Type, info.Offset, info.Size)
	}
	return handle, d.fn.GetAccelerationStructureDeviceAddress(handle), nil
}

// Destroy a structure object. The backing buffer is not released.
func (d *Device) DestroyStructure(handle StructureHandle) {
	if handle != 0 {
		d.fn.DestroyAccelerationStructure(handle)
	}
}

// Create a query pool with count slots.
func (d *Device) CreateQueryPool(queryType QueryType, count uint32) (QueryPoolHandle, error) {
	pool, res := d.fn.CreateQueryPool(queryType, count)
	if err := res.Err("vkCreateQueryPool"); err != nil {
		return 0, errors.Wrapf(err, "gpu device (%s): query pool with %d slots", d.Name, count)
	}
	return pool, nil
}

// Destroy a query pool.
func (d *Device) DestroyQueryPool(pool QueryPoolHandle) {
	if pool != 0 {
		d.fn.DestroyQueryPool(pool)
	}
}

// Read back count query results, blocking until they are available.
func (d *Device) QueryResults(pool QueryPoolHandle, count uint32) ([]uint64, error) {
	results, res := d.fn.GetQueryPoolResults(pool, 0, count, true)
	if err := res.Err("vkGetQueryPoolResults"); err != nil {
		return nil, errors.Wrapf(err, "gpu device (%s): reading %d query results", d.Name, count)
	}
	if len(results) != int(count) {
		return nil, errors.AssertionFailedf("gpu device (%s): expected %d query results; got %d", d.Name, count, len(results))
	}
	return results, nil
}

// Fetch the shader group handles of a ray tracing pipeline.
func (d *Device) ShaderGroupHandles(pipeline PipelineHandle, groupCount uint32) ([]byte, error) {
	dataSize := int(groupCount) * int(d.Props.ShaderGroupHandleSize)
	data, res := d.fn.GetRayTracingShaderGroupHandles(pipeline, 0, groupCount, dataSize)
	if err := res.Err("vkGetRayTracingShaderGroupHandlesKHR"); err != nil {
		return nil, errors.Wrapf(err, "gpu device (%s): fetching %d shader group handles", d.Name, groupCount)
	}
	if len(data) < dataSize {
		return nil, errors.AssertionFailedf("gpu device (%s): expected %d bytes of group handles; got %d", d.Name, dataSize, len(data))
	}
	return data[:dataSize], nil
}
