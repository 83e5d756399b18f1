package scene

import (
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// A Mesh references triangle geometry that lives in device memory. Indices
// are absolute into the vertex data, so meshes that share a vertex buffer
// share its base address and differ only by FirstIndex.
type Mesh struct {
	Name string

	// Device addresses of the vertex and index data.
	Vertices gpu.VertexAddress
	Indices  gpu.IndexAddress

	// Number of addressable vertices and the byte distance between them.
	// Vertex positions are the first three float32 of each vertex.
	VertexCount  uint32
	VertexStride uint64

	// The index range drawn by this mesh.
	FirstIndex uint32
	IndexCount uint32
}

// Number of triangles in the mesh.
func (m *Mesh) PrimitiveCount() uint32 {
	return m.IndexCount / 3
}

// Implements Stringer.
func (m *Mesh) String() string {
	return fmt.Sprintf("mesh %q (%d triangles, first index %d)", m.Name, m.PrimitiveCount(), m.FirstIndex)
}

// Default visibility mask; the instance is visible to every ray.
const MaskAll uint8 = 0xFF

// A Drawable places a mesh in the world. The order of the drawable list
// handed to the structure builder defines the instance index seen by hit
// shaders.
type Drawable struct {
	Name string
	Mesh *Mesh

	// Object to world transform.
	Transform mgl32.Mat4

	// Index into the bound texture array.
	TextureIndex int32

	// Visibility mask; zero selects MaskAll.
	Mask uint8

	// Offset of the hit group record used by this instance.
	HitGroup uint32
}

// Create a drawable with an identity transform.
func NewDrawable(name string, mesh *Mesh, textureIndex int32) Drawable {
	return Drawable{
		Name:         name,
		Mesh:         mesh,
		Transform:    mgl32.Ident4(),
		TextureIndex: textureIndex,
		Mask:         MaskAll,
	}
}

// Get the effective visibility mask.
func (d *Drawable) VisibilityMask() uint8 {
	if d.Mask == 0 {
		return MaskAll
	}
	return d.Mask
}
