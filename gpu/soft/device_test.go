package soft

import (
	"errors"
	"testing"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/types"
)

type testGeometry struct {
	vertices *gpu.Buffer
	indices  *gpu.Buffer
}

func (g testGeometry) release() {
	g.vertices.Release()
	g.indices.Release()
}

// Upload a single triangle spanning [0,1] on X and Y.
func uploadTriangle(t *testing.T, dev *gpu.Device) testGeometry {
	g := testGeometry{vertices: dev.Buffer("vertices"), indices: dev.Buffer("indices")}
	err := g.vertices.AllocateAndWriteData(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		gpu.BufferInfo{Usage: gpu.UsageVertex | gpu.UsageDeviceAddress | gpu.UsageStructureBuildInput},
	)
	if err != nil {
		t.Fatal(err)
	}
	err = g.indices.AllocateAndWriteData(
		[]uint32{0, 1, 2},
		gpu.BufferInfo{Usage: gpu.UsageIndex | gpu.UsageDeviceAddress | gpu.UsageStructureBuildInput},
	)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func triangleBuild(g testGeometry, flags gpu.BuildFlags) gpu.BuildInfo {
	return gpu.BuildInfo{
		Type:  gpu.BottomLevel,
		Flags: flags,
		Geometry: gpu.Geometry{
			Type: gpu.GeometryTriangles,
			Triangles: gpu.TriangleGeometry{
				VertexData:   g.vertices.VertexAddress(),
				VertexStride: 12,
				MaxVertex:    2,
				IndexType:    gpu.IndexUint32,
				IndexData:    g.indices.IndexAddress(),
			},
		},
		Range: gpu.BuildRange{PrimitiveCount: 1},
	}
}

func openTestDevice(t *testing.T) (*gpu.Device, *Device) {
	dev, sd, err := Open("")
	if err != nil {
		t.Fatal(err)
	}
	return dev, sd
}

func allocateStructureBuffer(t *testing.T, dev *gpu.Device, name string, size uint64) *gpu.Buffer {
	buf := dev.Buffer(name)
	err := buf.Allocate(gpu.BufferInfo{Size: size, Usage: gpu.UsageStructureStorage | gpu.UsageDeviceAddress})
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func allocateScratch(t *testing.T, dev *gpu.Device, size uint64) *gpu.Buffer {
	buf := dev.Buffer("scratch")
	err := buf.Allocate(gpu.BufferInfo{
		Size:      size,
		Usage:     gpu.UsageStorage | gpu.UsageDeviceAddress,
		Alignment: dev.Props.MinScratchOffsetAlignment,
	})
	if err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestLookupProfile(t *testing.T) {
	p, err := LookupProfile("")
	if err != nil || p.Props.Name != DefaultProfile {
		t.Fatalf("expected default profile; got %v (err %v)", p.Props.Name, err)
	}
	if _, err = LookupProfile("nope"); err == nil {
		t.Fatal("expected unknown profile lookup to fail")
	}
}

func TestBuildComputesBounds(t *testing.T) {
	dev, sd := openTestDevice(t)
	g := uploadTriangle(t, dev)
	defer g.release()

	info := triangleBuild(g, gpu.BuildAllowCompaction)
	sizes, err := dev.BuildSizes(&info, 1)
	if err != nil {
		t.Fatal(err)
	}

	arena := allocateStructureBuffer(t, dev, "arena", sizes.StructureSize)
	defer arena.Release()
	scratch := allocateScratch(t, dev, sizes.BuildScratchSize)
	defer scratch.Release()

	handle, addr, err := dev.CreateStructure(gpu.StructureInfo{Type: gpu.BottomLevel, Buffer: arena.Handle(), Size: sizes.StructureSize})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.DestroyStructure(handle)

	info.Dst = handle
	info.Scratch = scratch.ScratchAddress()
	err = dev.Submit(func(cb *gpu.CommandBuffer) error {
		cb.BuildStructures(info)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	si, ok := sd.StructureInfo(addr)
	if !ok {
		t.Fatal("expected structure to be found by address")
	}
	if !si.Built || si.PrimitiveCount != 1 || !si.Compactable {
		t.Fatalf("unexpected structure state %+v", si)
	}
	if si.Bounds.Min != types.XYZ(0, 0, 0) || si.Bounds.Max != types.XYZ(1, 1, 0) {
		t.Fatalf("unexpected bounds %v-%v", si.Bounds.Min, si.Bounds.Max)
	}
	if si.CompactedSize >= si.Size {
		t.Fatalf("expected compacted size %d to be smaller than build size %d", si.CompactedSize, si.Size)
	}
}

func TestScratchHazardRequiresBarrier(t *testing.T) {
	dev, _ := openTestDevice(t)
	g := uploadTriangle(t, dev)
	defer g.release()

	info := triangleBuild(g, 0)
	sizes, err := dev.BuildSizes(&info, 1)
	if err != nil {
		t.Fatal(err)
	}

	stride := gpu.AlignUp(sizes.StructureSize, dev.Props.AccelerationStructureAlignment)
	arena := allocateStructureBuffer(t, dev, "arena", 2*stride)
	defer arena.Release()
	scratch := allocateScratch(t, dev, sizes.BuildScratchSize)
	defer scratch.Release()

	var builds []gpu.BuildInfo
	for i := uint64(0); i < 2; i++ {
		h, _, err := dev.CreateStructure(gpu.StructureInfo{Type: gpu.BottomLevel, Buffer: arena.Handle(), Offset: i * stride, Size: sizes.StructureSize})
		if err != nil {
			t.Fatal(err)
		}
		defer dev.DestroyStructure(h)
		b := info
		b.Dst = h
		b.Scratch = scratch.ScratchAddress()
		builds = append(builds, b)
	}

	err = dev.Submit(func(cb *gpu.CommandBuffer) error {
		cb.BuildStructures(builds...)
		return nil
	})
	if !errors.Is(err, gpu.ErrValidationFailed) {
		t.Fatalf("expected aliased scratch without barrier to fail validation; got %v", err)
	}

	err = dev.Submit(func(cb *gpu.CommandBuffer) error {
		for _, b := range builds {
			cb.BuildStructures(b)
			cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead | gpu.AccessStructureWrite})
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected barrier-separated builds to pass; got %v", err)
	}
}

func TestMemoryBudget(t *testing.T) {
	profile, err := LookupProfile("soft-wide")
	if err != nil {
		t.Fatal(err)
	}
	profile.MemoryBudget = 1024

	dev, err := New(profile).Context()
	if err != nil {
		t.Fatal(err)
	}

	a := dev.Buffer("a")
	if err = a.Allocate(gpu.BufferInfo{Size: 1000, Usage: gpu.UsageStorage}); err != nil {
		t.Fatal(err)
	}

	b := dev.Buffer("b")
	err = b.Allocate(gpu.BufferInfo{Size: 100, Usage: gpu.UsageStorage})
	if !errors.Is(err, gpu.ErrOutOfDeviceMemory) {
		t.Fatalf("expected out of device memory error; got %v", err)
	}

	a.Release()
	if err = b.Allocate(gpu.BufferInfo{Size: 100, Usage: gpu.UsageStorage}); err != nil {
		t.Fatalf("expected allocation to succeed after release; got %v", err)
	}
	b.Release()
}

func TestCompactedSizeQueryRequiresFlag(t *testing.T) {
	dev, _ := openTestDevice(t)
	g := uploadTriangle(t, dev)
	defer g.release()

	info := triangleBuild(g, 0)
	sizes, err := dev.BuildSizes(&info, 1)
	if err != nil {
		t.Fatal(err)
	}
	arena := allocateStructureBuffer(t, dev, "arena", sizes.StructureSize)
	defer arena.Release()
	scratch := allocateScratch(t, dev, sizes.BuildScratchSize)
	defer scratch.Release()

	h, _, err := dev.CreateStructure(gpu.StructureInfo{Type: gpu.BottomLevel, Buffer: arena.Handle(), Size: sizes.StructureSize})
	if err != nil {
		t.Fatal(err)
	}
	defer dev.DestroyStructure(h)

	pool, err := dev.CreateQueryPool(gpu.QueryCompactedSize, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.DestroyQueryPool(pool)

	info.Dst = h
	info.Scratch = scratch.ScratchAddress()
	err = dev.Submit(func(cb *gpu.CommandBuffer) error {
		cb.ResetQueryPool(pool, 0, 1)
		cb.BuildStructures(info)
		cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead})
		cb.WriteCompactedSizes([]gpu.StructureHandle{h}, pool, 0)
		return nil
	})
	if !errors.Is(err, gpu.ErrDeviceLost) {
		t.Fatalf("expected compacted size query of a non-compactable structure to fail; got %v", err)
	}
}

func TestStructurePlacementValidation(t *testing.T) {
	dev, _ := openTestDevice(t)

	arena := allocateStructureBuffer(t, dev, "arena", 1024)
	defer arena.Release()

	_, _, err := dev.CreateStructure(gpu.StructureInfo{Type: gpu.BottomLevel, Buffer: arena.Handle(), Offset: 128, Size: 256})
	if !errors.Is(err, gpu.ErrValidationFailed) {
		t.Fatalf("expected misaligned structure to be rejected; got %v", err)
	}

	_, _, err = dev.CreateStructure(gpu.StructureInfo{Type: gpu.BottomLevel, Buffer: arena.Handle(), Offset: 768, Size: 512})
	if !errors.Is(err, gpu.ErrValidationFailed) {
		t.Fatalf("expected out of bounds structure to be rejected; got %v", err)
	}
}

func TestShaderGroupHandles(t *testing.T) {
	dev, sd := openTestDevice(t)

	pipeline := sd.CreatePipeline(4)
	defer sd.DestroyPipeline(pipeline)

	data, err := dev.ShaderGroupHandles(pipeline, 4)
	if err != nil {
		t.Fatal(err)
	}
	size := int(dev.Props.ShaderGroupHandleSize)
	if len(data) != 4*size {
		t.Fatalf("expected %d bytes of handles; got %d", 4*size, len(data))
	}
	if string(data[2*size:3*size]) != string(sd.GroupHandle(pipeline, 2)) {
		t.Fatal("expected group 2 handle to match")
	}

	if _, err = dev.ShaderGroupHandles(pipeline, 5); err == nil {
		t.Fatal("expected request for more groups than the pipeline has to fail")
	}
}
