package scene

import (
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/cockroachdb/errors"
)

var ErrEmptyShape = errors.New("scene: shape has no triangles")

// Geometry owns one shared vertex buffer and one shared index buffer holding
// every uploaded shape.
type Geometry struct {
	vertices *gpu.Buffer
	indices  *gpu.Buffer
	meshes   []*Mesh
}

// Upload shapes into a pair of shared buffers and return one Mesh per shape,
// in input order. Shape indices are rebased so that they are absolute into
// the shared vertex buffer.
func Upload(dev *gpu.Device, shapes []Shape) (*Geometry, error) {
	logger := log.New("geometry")
	start := time.Now()

	g := &Geometry{
		vertices: dev.Buffer("sceneVertices"),
		indices:  dev.Buffer("sceneIndices"),
	}
	if len(shapes) == 0 {
		return g, nil
	}

	var vertices []Vertex
	var indices []uint32
	firstIndex := make([]uint32, len(shapes))
	for si, s := range shapes {
		if len(s.Indices) < 3 {
			return nil, errors.Wrapf(ErrEmptyShape, "shape %d (%s)", si, s.Name)
		}
		base := uint32(len(vertices))
		firstIndex[si] = uint32(len(indices))
		vertices = append(vertices, s.Vertices...)
		for _, idx := range s.Indices {
			if idx >= uint32(len(s.Vertices)) {
				return nil, errors.Newf("scene: shape %d (%s) index %d out of range", si, s.Name, idx)
			}
			indices = append(indices, base+idx)
		}
	}

	usage := gpu.UsageDeviceAddress | gpu.UsageStructureBuildInput | gpu.UsageStorage
	if err := g.vertices.AllocateAndWriteData(vertices, gpu.BufferInfo{Usage: usage | gpu.UsageVertex}); err != nil {
		return nil, err
	}
	if err := g.indices.AllocateAndWriteData(indices, gpu.BufferInfo{Usage: usage | gpu.UsageIndex}); err != nil {
		g.Release()
		return nil, err
	}

	for si, s := range shapes {
		g.meshes = append(g.meshes, &Mesh{
			Name:         s.Name,
			Vertices:     g.vertices.VertexAddress(),
			Indices:      g.indices.IndexAddress(),
			VertexCount:  uint32(len(vertices)),
			VertexStride: VertexStride,
			FirstIndex:   firstIndex[si],
			IndexCount:   uint32(len(s.Indices)),
		})
	}

	logger.Debugf(
		"uploaded %d shapes (%d vertices, %d indices) in %d ms",
		len(shapes), len(vertices), len(indices), time.Since(start).Nanoseconds()/1e6,
	)
	return g, nil
}

// Get the uploaded meshes in upload order.
func (g *Geometry) Meshes() []*Mesh {
	return g.meshes
}

// Find an uploaded mesh by name.
func (g *Geometry) Mesh(name string) (*Mesh, bool) {
	for _, m := range g.meshes {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Release the shared buffers. Meshes become invalid.
func (g *Geometry) Release() {
	g.vertices.Release()
	g.indices.Release()
	g.meshes = nil
}
