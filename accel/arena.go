package accel

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

// A byte range inside an arena.
type Span struct {
	Offset uint64
	Size   uint64
}

// One-past-the-end offset.
func (s Span) End() uint64 {
	return s.Offset + s.Size
}

// A (buffer, offset, size) triple locating one structure.
type Region struct {
	Buffer *gpu.Buffer
	Span
}

// ArenaLayout packs a sequence of sizes back to back at a fixed alignment:
// after each insertion the running total is rounded up to the alignment, so
// every offset is aligned and no two spans overlap.
type ArenaLayout struct {
	alignment uint64
	spans     []Span
	size      uint64
}

// Create an empty layout. The alignment must be a power of two.
func NewArenaLayout(alignment uint64) *ArenaLayout {
	if !gpu.IsPowerOfTwo(alignment) {
		panic(errors.AssertionFailedf("accel: arena alignment %d is not a power of two", alignment))
	}
	return &ArenaLayout{alignment: alignment}
}

// Append a span of the given size and return its placement.
func (l *ArenaLayout) Add(size uint64) Span {
	s := Span{Offset: l.size, Size: size}

	if s.Offset%l.alignment != 0 {
		panic(errors.AssertionFailedf("accel: arena offset %d is not a multiple of %d", s.Offset, l.alignment))
	}
	if n := len(l.spans); n != 0 && s.Offset < l.spans[n-1].End() {
		panic(errors.AssertionFailedf("accel: arena span at %d overlaps previous span ending at %d", s.Offset, l.spans[n-1].End()))
	}

	l.spans = append(l.spans, s)
	l.size = gpu.AlignUp(l.size+size, l.alignment)
	return s
}

// Total arena size in bytes.
func (l *ArenaLayout) Size() uint64 {
	return l.size
}

// Number of spans.
func (l *ArenaLayout) Len() int {
	return len(l.spans)
}

// Get the placement of span i.
func (l *ArenaLayout) Span(i int) Span {
	return l.spans[i]
}

// Get the layout alignment.
func (l *ArenaLayout) Alignment() uint64 {
	return l.alignment
}

// Check the layout invariants over all spans.
func (l *ArenaLayout) Verify() error {
	for i, s := range l.spans {
		if s.Offset%l.alignment != 0 {
			return errors.AssertionFailedf("accel: span %d offset %d is not a multiple of %d", i, s.Offset, l.alignment)
		}
		if i > 0 && s.Offset < l.spans[i-1].End() {
			return errors.AssertionFailedf("accel: span %d at %d overlaps span %d ending at %d", i, s.Offset, i-1, l.spans[i-1].End())
		}
		if s.End() > l.size {
			return errors.AssertionFailedf("accel: span %d ends at %d beyond arena size %d", i, s.End(), l.size)
		}
	}
	return nil
}

// A device buffer holding structures placed by an ArenaLayout.
type Arena struct {
	buffer *gpu.Buffer
	layout *ArenaLayout
}

// Allocate a device-local structure storage buffer for the layout.
func allocateArena(dev *gpu.Device, name string, layout *ArenaLayout) (*Arena, error) {
	a := &Arena{
		buffer: dev.Buffer(name),
		layout: layout,
	}
	err := a.buffer.Allocate(gpu.BufferInfo{
		Size:      layout.Size(),
		Usage:     gpu.UsageStructureStorage | gpu.UsageDeviceAddress,
		Memory:    gpu.MemoryDeviceLocal,
		Alignment: layout.Alignment(),
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Get the region of structure i.
func (a *Arena) Region(i int) Region {
	return Region{Buffer: a.buffer, Span: a.layout.Span(i)}
}

// Get the arena layout.
func (a *Arena) Layout() *ArenaLayout {
	return a.layout
}

// Get the arena size in bytes.
func (a *Arena) Size() uint64 {
	return a.layout.Size()
}

// Release the backing buffer.
func (a *Arena) Release() {
	if a != nil {
		a.buffer.Release()
	}
}
