package gpu

import "fmt"

// A 64-bit GPU virtual address. The kind-specific wrappers below keep
// vertex, index, structure and scratch pointers from being mixed up.
type DeviceAddress uint64

type (
	VertexAddress    DeviceAddress
	IndexAddress     DeviceAddress
	StructureAddress DeviceAddress
	ScratchAddress   DeviceAddress
)

// Implements Stringer.
func (a DeviceAddress) String() string { return fmt.Sprintf("0x%012x", uint64(a)) }

// Offset the address by the given number of bytes.
func (a DeviceAddress) Offset(bytes uint64) DeviceAddress { return a + DeviceAddress(bytes) }

func (a VertexAddress) String() string    { return DeviceAddress(a).String() }
func (a IndexAddress) String() string     { return DeviceAddress(a).String() }
func (a StructureAddress) String() string { return DeviceAddress(a).String() }
func (a ScratchAddress) String() string   { return DeviceAddress(a).String() }

// Offset the address by the given number of bytes.
func (a VertexAddress) Offset(bytes uint64) VertexAddress { return a + VertexAddress(bytes) }

// Offset the address by the given number of bytes.
func (a IndexAddress) Offset(bytes uint64) IndexAddress { return a + IndexAddress(bytes) }

// Offset the address by the given number of bytes.
func (a ScratchAddress) Offset(bytes uint64) ScratchAddress { return a + ScratchAddress(bytes) }
