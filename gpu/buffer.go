package gpu

import (
	"reflect"
	"unsafe"

	"github.com/cockroachdb/errors"
)

type Buffer struct {
	// Driver handle.
	handle BufferHandle

	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Allocation parameters.
	info BufferInfo

	// Host view of the buffer; only set for host-visible memory.
	mapped []byte
}

// Get buffer name.
func (b *Buffer) Name() string {
	return b.name
}

// Get buffer size.
func (b *Buffer) Size() uint64 {
	return b.info.Size
}

// Get buffer usage flags.
func (b *Buffer) Usage() BufferUsage {
	return b.info.Usage
}

// Get driver buffer handle.
func (b *Buffer) Handle() BufferHandle {
	return b.handle
}

// Returns true if the buffer is backed by an allocation.
func (b *Buffer) Allocated() bool {
	return b.handle != 0
}

// Allocate a buffer with the given parameters.
func (b *Buffer) Allocate(info BufferInfo) error {
	// If the buffer is already allocated release it
	b.Release()

	if info.Size == 0 {
		return errors.Newf("gpu device (%s): could not allocate buffer %s with zero size", b.device.Name, b.name)
	}

	handle, res := b.device.fn.CreateBuffer(info)
	if err := res.Err("vkCreateBuffer"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): could not allocate buffer %s of size %d", b.device.Name, b.name, info.Size)
	}

	b.handle = handle
	b.info = info
	b.device.track(b)

	if info.Memory&MemoryHostVisible != 0 {
		mapped, res := b.device.fn.MapBuffer(handle)
		if err := res.Err("vkMapMemory"); err != nil {
			b.Release()
			return errors.Wrapf(err, "gpu device (%s): could not map buffer %s", b.device.Name, b.name)
		}
		b.mapped = mapped
	}

	return nil
}

// Allocate a host-visible buffer large enough to hold the given data and copy
// the data into it. The behavior of this method is undefined if a non-slice
// argument is passed or the argument does not use contiguous memory.
func (b *Buffer) AllocateAndWriteData(data interface{}, info BufferInfo) error {
	_, dataLen := getSliceData(data)
	if info.Size < uint64(dataLen) {
		info.Size = uint64(dataLen)
	}
	info.Memory |= MemoryHostVisible | MemoryHostCoherent

	if err := b.Allocate(info); err != nil {
		return err
	}

	return b.WriteData(data, 0)
}

// Write data to a host-visible buffer at the given byte offset. The
// behavior of this method is undefined if a non-slice argument is passed or
// the argument does not use contiguous memory.
func (b *Buffer) WriteData(data interface{}, offset uint64) error {
	if b.mapped == nil {
		return errors.Newf("gpu device (%s): buffer %s is not host-visible", b.device.Name, b.name)
	}

	dataPtr, dataLen := getSliceData(data)
	if dataLen == 0 {
		return nil
	}

	if offset+uint64(dataLen) > b.info.Size {
		return errors.Newf("gpu device (%s): insufficient buffer space (%d) in %s for copying data of length %d at offset %d", b.device.Name, b.info.Size, b.name, dataLen, offset)
	}

	copy(b.mapped[offset:], unsafe.Slice((*byte)(dataPtr), dataLen))
	return nil
}

// Read data from a host-visible buffer into the supplied host slice
// starting at the given byte offset. The behavior of this method is undefined
// if a non-slice argument is passed or if the argument does not use
// contiguous memory.
func (b *Buffer) ReadData(offset uint64, hostBuffer interface{}) error {
	if b.mapped == nil {
		return errors.Newf("gpu device (%s): buffer %s is not host-visible", b.device.Name, b.name)
	}

	dataPtr, dataLen := getSliceData(hostBuffer)
	if dataLen == 0 {
		return nil
	}

	if offset+uint64(dataLen) > b.info.Size {
		return errors.Newf("gpu device (%s): read of %d bytes at offset %d overflows buffer %s (%d bytes)", b.device.Name, dataLen, offset, b.name, b.info.Size)
	}

	copy(unsafe.Slice((*byte)(dataPtr), dataLen), b.mapped[offset:])
	return nil
}

// Release buffer.
func (b *Buffer) Release() {
	if b.handle != 0 {
		b.device.untrack(b)
		b.device.fn.DestroyBuffer(b.handle)
		b.handle = 0
		b.mapped = nil
		b.info = BufferInfo{}
	}
}

// Get the buffer's device address.
func (b *Buffer) Address() DeviceAddress {
	b.requireUsage(UsageDeviceAddress, "device")
	return b.device.resolve(b)
}

// Get the buffer's device address as vertex data.
func (b *Buffer) VertexAddress() VertexAddress {
	b.requireUsage(UsageVertex, "vertex")
	return VertexAddress(b.Address())
}

// Get the buffer's device address as index data.
func (b *Buffer) IndexAddress() IndexAddress {
	b.requireUsage(UsageIndex, "index")
	return IndexAddress(b.Address())
}

// Get the buffer's device address as build scratch memory.
func (b *Buffer) ScratchAddress() ScratchAddress {
	b.requireUsage(UsageStorage, "scratch")
	return ScratchAddress(b.Address())
}

func (b *Buffer) requireUsage(usage BufferUsage, kind string) {
	if b.handle == 0 {
		panic(errors.AssertionFailedf("gpu: %s address requested for unallocated buffer %s", kind, b.name))
	}
	if b.info.Usage&usage == 0 {
		panic(errors.AssertionFailedf("gpu: %s address requested for buffer %s without matching usage (%#x)", kind, b.name, b.info.Usage))
	}
}

// Given an interface{} containing a slice return a pointer to its data and its
// length in bytes. Empty slices yield a nil pointer and zero length.
func getSliceData(data interface{}) (unsafe.Pointer, int) {
	reflVal := reflect.ValueOf(data)

	if reflVal.Kind() != reflect.Slice {
		panic("getSliceData: this function only supports slices")
	}

	sliceElemCount := reflVal.Len()
	if sliceElemCount == 0 {
		return nil, 0
	}

	return unsafe.Pointer(reflVal.Index(0).Addr().Pointer()),
		sliceElemCount * int(reflect.TypeOf(data).Elem().Size())
}
