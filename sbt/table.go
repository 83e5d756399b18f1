// Package sbt lays out ray tracing shader group handles into a shader binding
// table and produces the regions passed to a trace rays dispatch.
package sbt

import (
	"fmt"
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/cockroachdb/errors"
)

// Shader group counts of a pipeline besides its single raygen group.
type Groups struct {
	Miss uint32
	Hit  uint32
}

// Primary and shadow miss shaders plus one closest hit group.
var DefaultGroups = Groups{Miss: 2, Hit: 1}

// A device address range of the table.
type Region struct {
	Address gpu.DeviceAddress
	Stride  uint64
	Size    uint64
}

// Implements Stringer.
func (r Region) String() string {
	return fmt.Sprintf("%s stride %d size %d", r.Address, r.Stride, r.Size)
}

// Region indices.
const (
	RaygenRegion = iota
	MissRegion
	HitRegion
)

// Arguments of a trace rays dispatch.
type TraceRays struct {
	Raygen   Region
	Miss     Region
	Hit      Region
	Callable Region

	Width  uint32
	Height uint32
	Depth  uint32
}

// Table is a host-visible buffer holding shader group handles at the offsets
// of its Layout.
type Table struct {
	layout  Layout
	buffer  *gpu.Buffer
	regions [3]Region
}

// Fetch the group handles of a pipeline and write them into a new table.
func Build(dev *gpu.Device, pipeline gpu.PipelineHandle, groups Groups) (*Table, error) {
	logger := log.New("sbt")
	start := time.Now()

	props := dev.Props
	layout, err := ComputeLayout(props.ShaderGroupHandleSize, props.ShaderGroupHandleAlignment, props.ShaderGroupBaseAlignment, groups.Miss, groups.Hit)
	if err != nil {
		return nil, errors.Wrapf(err, "device %s", props.Name)
	}

	handles, err := dev.ShaderGroupHandles(pipeline, layout.GroupCount())
	if err != nil {
		return nil, err
	}

	data := make([]byte, layout.Size())
	for g := uint32(0); g < layout.GroupCount(); g++ {
		src := handles[uint64(g)*layout.HandleSize : uint64(g+1)*layout.HandleSize]
		copy(data[layout.Offset(g):], src)
	}

	t := &Table{
		layout: layout,
		buffer: dev.Buffer("shaderBindingTable"),
	}
	err = t.buffer.AllocateAndWriteData(data, gpu.BufferInfo{
		Usage:     gpu.UsageShaderBindingTable | gpu.UsageDeviceAddress | gpu.UsageTransferSrc,
		Alignment: layout.BaseAlignment,
	})
	if err != nil {
		return nil, err
	}

	base := t.buffer.Address()
	for i, s := range []Span{layout.Raygen, layout.Miss, layout.Hit} {
		t.regions[i] = Region{Address: base.Offset(s.Offset), Stride: s.Stride, Size: s.Size}
	}

	logger.Debugf("built shader binding table (%s) in %d ms", layout, time.Since(start).Nanoseconds()/1e6)
	return t, nil
}

// Get the table layout.
func (t *Table) Layout() Layout {
	return t.layout
}

// Get the raygen, miss and hit regions.
func (t *Table) Regions() [3]Region {
	return t.regions
}

// Get the table buffer.
func (t *Table) Buffer() *gpu.Buffer {
	return t.buffer
}

// Read back the handle stored for a shader group.
func (t *Table) Handle(group uint32) ([]byte, error) {
	if group >= t.layout.GroupCount() {
		return nil, errors.Newf("sbt: group %d out of range (%d groups)", group, t.layout.GroupCount())
	}
	out := make([]byte, t.layout.HandleSize)
	if err := t.buffer.ReadData(t.layout.Offset(group), out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get the trace rays arguments for a width x height launch. The callable
// region is empty.
func (t *Table) Dispatch(width, height uint32) TraceRays {
	return TraceRays{
		Raygen: t.regions[RaygenRegion],
		Miss:   t.regions[MissRegion],
		Hit:    t.regions[HitRegion],
		Width:  width,
		Height: height,
		Depth:  1,
	}
}

// Release the table buffer.
func (t *Table) Release() {
	t.buffer.Release()
}
