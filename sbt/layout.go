package sbt

import (
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

var (
	ErrBadAlignment   = errors.New("sbt: alignment is not a power of two")
	ErrBadHandleSize  = errors.New("sbt: shader group handle size is zero")
	ErrRecursionDepth = errors.New("sbt: ray recursion depth exceeds the device limit")
)

// Placement of one region relative to the start of the table.
type Span struct {
	Offset uint64
	Stride uint64
	Size   uint64
}

// Layout describes where every shader group handle lives in the table. The
// raygen region holds exactly one handle and its stride equals its size; the
// miss and hit regions follow it back to back.
type Layout struct {
	HandleSize      uint64
	HandleAlignment uint64
	BaseAlignment   uint64

	MissCount uint32
	HitCount  uint32

	Raygen Span
	Miss   Span
	Hit    Span
}

// Compute the table layout for one raygen group, missCount miss groups and
// hitCount hit groups.
func ComputeLayout(handleSize, handleAlignment, baseAlignment, missCount, hitCount uint32) (Layout, error) {
	if handleSize == 0 {
		return Layout{}, ErrBadHandleSize
	}
	if !gpu.IsPowerOfTwo(uint64(handleAlignment)) {
		return Layout{}, errors.Wrapf(ErrBadAlignment, "handle alignment %d", handleAlignment)
	}
	if !gpu.IsPowerOfTwo(uint64(baseAlignment)) {
		return Layout{}, errors.Wrapf(ErrBadAlignment, "base alignment %d", baseAlignment)
	}

	l := Layout{
		HandleSize:      uint64(handleSize),
		HandleAlignment: uint64(handleAlignment),
		BaseAlignment:   uint64(baseAlignment),
		MissCount:       missCount,
		HitCount:        hitCount,
	}

	stride := gpu.AlignUp(l.HandleSize, l.HandleAlignment)
	raygen := gpu.AlignUp(stride, l.BaseAlignment)
	l.Raygen = Span{Offset: 0, Stride: raygen, Size: raygen}
	l.Miss = Span{
		Offset: l.Raygen.Offset + l.Raygen.Size,
		Stride: stride,
		Size:   gpu.AlignUp(uint64(missCount)*stride, l.BaseAlignment),
	}
	l.Hit = Span{
		Offset: l.Miss.Offset + l.Miss.Size,
		Stride: stride,
		Size:   gpu.AlignUp(uint64(hitCount)*stride, l.BaseAlignment),
	}
	return l, nil
}

// Total table size in bytes.
func (l Layout) Size() uint64 {
	return l.Hit.Offset + l.Hit.Size
}

// Number of shader groups: one raygen group followed by the miss and hit
// groups.
func (l Layout) GroupCount() uint32 {
	return 1 + l.MissCount + l.HitCount
}

// Get the table offset of the handle for a shader group. Groups are numbered
// in pipeline order: raygen, then miss, then hit.
func (l Layout) Offset(group uint32) uint64 {
	switch {
	case group == 0:
		return l.Raygen.Offset
	case group <= l.MissCount:
		return l.Miss.Offset + uint64(group-1)*l.Miss.Stride
	default:
		return l.Hit.Offset + uint64(group-1-l.MissCount)*l.Hit.Stride
	}
}

// Implements Stringer.
func (l Layout) String() string {
	return fmt.Sprintf(
		"raygen [%d, +%d) miss [%d, +%d) x%d hit [%d, +%d) x%d",
		l.Raygen.Offset, l.Raygen.Size,
		l.Miss.Offset, l.Miss.Size, l.MissCount,
		l.Hit.Offset, l.Hit.Size, l.HitCount,
	)
}

// Check a requested pipeline recursion depth against the device limit.
func CheckRecursionDepth(props gpu.Properties, depth uint32) error {
	if depth == 0 || depth > props.MaxRayRecursionDepth {
		return errors.Wrapf(ErrRecursionDepth, "requested %d, device %s supports %d", depth, props.Name, props.MaxRayRecursionDepth)
	}
	return nil
}
