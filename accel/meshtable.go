package accel

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/scene"
	"github.com/cockroachdb/errors"
)

// Size of a MeshAddressEntry in bytes.
const MeshAddressEntrySize = 24

// One mesh table entry. Hit shaders index the table with the instance custom
// index and fetch triangle data through these addresses.
type MeshAddressEntry struct {
	Vertices     gpu.VertexAddress
	Indices      gpu.IndexAddress
	TextureIndex int32
	FirstIndex   uint32
}

// MeshTable is a device-local storage buffer with one entry per drawable, in
// drawable order.
type MeshTable struct {
	entries []MeshAddressEntry
	buffer  *gpu.Buffer
}

// Build the mesh address table. Entries are written to a staging buffer and
// copied into device-local memory. An empty drawable list still allocates
// room for one entry so the table can always be bound.
func BuildMeshTable(dev *gpu.Device, drawables []scene.Drawable) (*MeshTable, error) {
	t := &MeshTable{
		entries: make([]MeshAddressEntry, len(drawables)),
		buffer:  dev.Buffer("meshAddressTable"),
	}
	for i := range drawables {
		d := &drawables[i]
		if d.Mesh == nil {
			return nil, errors.Wrapf(ErrMissingMesh, "drawable %d (%s)", i, d.Name)
		}
		t.entries[i] = MeshAddressEntry{
			Vertices:     d.Mesh.Vertices,
			Indices:      d.Mesh.Indices,
			TextureIndex: d.TextureIndex,
			FirstIndex:   d.Mesh.FirstIndex,
		}
	}

	size := uint64(len(t.entries)) * MeshAddressEntrySize
	err := t.buffer.Allocate(gpu.BufferInfo{
		Size:   max(size, MeshAddressEntrySize),
		Usage:  gpu.UsageStorage | gpu.UsageTransferDst | gpu.UsageTransferSrc | gpu.UsageDeviceAddress,
		Memory: gpu.MemoryDeviceLocal,
	})
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return t, nil
	}

	staging := dev.Buffer("meshAddressTableStaging")
	err = staging.AllocateAndWriteData(t.entries, gpu.BufferInfo{Usage: gpu.UsageTransferSrc})
	if err != nil {
		t.Release()
		return nil, err
	}
	defer staging.Release()

	err = dev.Submit(func(cb *gpu.CommandBuffer) error {
		cb.CopyBuffer(gpu.BufferCopy{Src: staging.Handle(), Dst: t.buffer.Handle(), Size: size})
		cb.Barrier(gpu.Barrier{Src: gpu.AccessTransferWrite, Dst: gpu.AccessShaderRead})
		return nil
	})
	if err != nil {
		t.Release()
		return nil, errors.Wrapf(err, "uploading %d mesh table entries", len(t.entries))
	}
	return t, nil
}

// Number of entries.
func (t *MeshTable) Len() int {
	return len(t.entries)
}

// Get the entries in drawable order.
func (t *MeshTable) Entries() []MeshAddressEntry {
	return t.entries
}

// Get the device buffer.
func (t *MeshTable) Buffer() *gpu.Buffer {
	return t.buffer
}

// Get the device address of the table.
func (t *MeshTable) Address() gpu.DeviceAddress {
	return t.buffer.Address()
}

// Release the device buffer.
func (t *MeshTable) Release() {
	t.buffer.Release()
}
