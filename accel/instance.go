package accel

import (
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/ammarasyad/Singularity-sub000/types"
)

// Size of an Instance record in bytes.
const InstanceSize = 64

type InstanceFlags uint8

// Per-instance build flags.
const (
	InstanceTriangleFacingCullDisable InstanceFlags = 1 << iota
	InstanceTriangleFlipFacing
	InstanceForceOpaque
	InstanceForceNoOpaque
)

// Instance is the hardware instance record consumed by top-level builds. Its
// memory layout is fixed: a row-major 3x4 float transform followed by two
// packed words and the bottom-level structure address.
type Instance struct {
	Transform types.Transform

	// Custom index in the low 24 bits, visibility mask in the high 8.
	CustomIndexAndMask uint32

	// Hit group record offset in the low 24 bits, flags in the high 8.
	SBTOffsetAndFlags uint32

	BLAS gpu.StructureAddress
}

// Create an instance record. The custom index and record offset are
// truncated to 24 bits.
func NewInstance(transform types.Transform, customIndex uint32, mask uint8, sbtOffset uint32, flags InstanceFlags, blas gpu.StructureAddress) Instance {
	return Instance{
		Transform:          transform,
		CustomIndexAndMask: customIndex&0xFFFFFF | uint32(mask)<<24,
		SBTOffsetAndFlags:  sbtOffset&0xFFFFFF | uint32(flags)<<24,
		BLAS:               blas,
	}
}

// Get the custom index visible to hit shaders.
func (in Instance) CustomIndex() uint32 {
	return in.CustomIndexAndMask & 0xFFFFFF
}

// Get the visibility mask.
func (in Instance) Mask() uint8 {
	return uint8(in.CustomIndexAndMask >> 24)
}

// Get the hit group record offset.
func (in Instance) SBTOffset() uint32 {
	return in.SBTOffsetAndFlags & 0xFFFFFF
}

// Get the instance flags.
func (in Instance) Flags() InstanceFlags {
	return InstanceFlags(in.SBTOffsetAndFlags >> 24)
}

// Implements Stringer.
func (in Instance) String() string {
	return fmt.Sprintf("instance %d -> %s (mask %#02x, sbt offset %d)", in.CustomIndex(), in.BLAS, in.Mask(), in.SBTOffset())
}
