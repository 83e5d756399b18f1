package gpu

// Opaque driver object handles. Zero is never a valid handle.
type (
	BufferHandle        uint64
	StructureHandle     uint64
	QueryPoolHandle     uint64
	CommandBufferHandle uint64
	PipelineHandle      uint64
)

type BufferUsage uint32

// Supported buffer usage flags.
const (
	UsageTransferSrc BufferUsage = 1 << iota
	UsageTransferDst
	UsageStorage
	UsageVertex
	UsageIndex
	UsageDeviceAddress
	UsageStructureStorage
	UsageStructureBuildInput
	UsageShaderBindingTable
)

type MemoryFlags uint32

// Supported memory property flags.
const (
	MemoryDeviceLocal MemoryFlags = 1 << iota
	MemoryHostVisible
	MemoryHostCoherent
)

// Buffer allocation parameters.
type BufferInfo struct {
	Size   uint64
	Usage  BufferUsage
	Memory MemoryFlags

	// Required alignment of the buffer's device address. Zero selects the
	// device default.
	Alignment uint64
}

type StructureType uint8

const (
	TopLevel StructureType = iota
	BottomLevel
)

// Implements Stringer.
func (t StructureType) String() string {
	switch t {
	case TopLevel:
		return "top-level"
	case BottomLevel:
		return "bottom-level"
	}
	return "unknown"
}

type BuildFlags uint32

// Structure build flags.
const (
	BuildAllowUpdate BuildFlags = 1 << iota
	BuildAllowCompaction
	BuildPreferFastTrace
	BuildPreferFastBuild
)

type GeometryType uint8

const (
	GeometryTriangles GeometryType = iota
	GeometryInstances
)

type IndexType uint8

const (
	IndexUint32 IndexType = iota
	IndexUint16
)

// Size in bytes of a single index.
func (t IndexType) Size() uint64 {
	if t == IndexUint16 {
		return 2
	}
	return 4
}

// Triangle geometry referenced by device address. Vertex positions are
// three float32 components at the start of each vertex.
type TriangleGeometry struct {
	VertexData   VertexAddress
	VertexStride uint64
	MaxVertex    uint32
	IndexType    IndexType
	IndexData    IndexAddress
}

// Tightly packed array of instance records referenced by device address.
type InstanceGeometry struct {
	Data DeviceAddress
}

type Geometry struct {
	Type      GeometryType
	Opaque    bool
	Triangles TriangleGeometry
	Instances InstanceGeometry
}

// The primitive range consumed by a build. PrimitiveOffset is a byte offset
// into the index data (triangles) or instance data (instances).
type BuildRange struct {
	PrimitiveCount  uint32
	PrimitiveOffset uint32
	FirstVertex     uint32
}

// A single structure build.
type BuildInfo struct {
	Type     StructureType
	Flags    BuildFlags
	Geometry Geometry
	Range    BuildRange

	// Destination structure; ignored by size queries.
	Dst StructureHandle

	// Scratch memory used by the build; ignored by size queries.
	Scratch ScratchAddress
}

// Memory requirements reported for a build.
type BuildSizes struct {
	StructureSize     uint64
	BuildScratchSize  uint64
	UpdateScratchSize uint64
}

// Placement of a structure inside a buffer.
type StructureInfo struct {
	Type   StructureType
	Buffer BufferHandle
	Offset uint64
	Size   uint64
}

type Access uint32

// Memory access scopes used by barriers.
const (
	AccessStructureRead Access = 1 << iota
	AccessStructureWrite
	AccessTransferRead
	AccessTransferWrite
	AccessShaderRead
	AccessHostWrite
)

// A global memory barrier.
type Barrier struct {
	Src Access
	Dst Access
}

type CopyMode uint8

const (
	CopyClone CopyMode = iota
	CopyCompact
)

type CopyStructureInfo struct {
	Src  StructureHandle
	Dst  StructureHandle
	Mode CopyMode
}

type BufferCopy struct {
	Src       BufferHandle
	Dst       BufferHandle
	SrcOffset uint64
	DstOffset uint64
	Size      uint64
}

type QueryType uint8

const (
	QueryCompactedSize QueryType = iota
	QuerySerializationSize
)
