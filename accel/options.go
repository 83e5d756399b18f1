package accel

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

// How bottom-level builds share the scratch buffer.
type ScratchMode uint8

const (
	// Every build uses the start of one scratch buffer sized for the
	// largest build; builds are serialized by a barrier after each one.
	ScratchAliased ScratchMode = iota

	// Every build gets a private, aligned scratch range; builds may overlap
	// on the device and a single barrier follows the batch.
	ScratchDisjoint
)

// Implements Stringer.
func (m ScratchMode) String() string {
	switch m {
	case ScratchAliased:
		return "aliased"
	case ScratchDisjoint:
		return "disjoint"
	}
	return "unknown"
}

// Parse a scratch mode name.
func ParseScratchMode(name string) (ScratchMode, error) {
	switch name {
	case "", "aliased":
		return ScratchAliased, nil
	case "disjoint":
		return ScratchDisjoint, nil
	}
	return ScratchAliased, errors.Newf("accel: unknown scratch mode %q", name)
}

// Minimum size of the bottom-level scratch buffer.
const DefaultScratchFloor uint64 = 64 << 10

type Options struct {
	// Build bottom-level structures with compaction support and compact
	// them after building.
	Compact bool

	// Leave compaction to an explicit Structures.Compact call.
	DeferCompaction bool

	// Lower bound for the bottom-level scratch buffer size.
	ScratchFloor uint64

	// Scratch sharing strategy for bottom-level builds.
	ScratchMode ScratchMode

	// Prefer build speed over trace speed.
	FastBuild bool
}

// Get the options used for scene loads.
func DefaultOptions() Options {
	return Options{
		Compact:      true,
		ScratchFloor: DefaultScratchFloor,
		ScratchMode:  ScratchAliased,
	}
}

func (o Options) bottomLevelFlags() gpu.BuildFlags {
	flags := gpu.BuildPreferFastTrace
	if o.FastBuild {
		flags = gpu.BuildPreferFastBuild
	}
	if o.Compact {
		flags |= gpu.BuildAllowCompaction
	}
	return flags
}

func (o Options) topLevelFlags() gpu.BuildFlags {
	if o.FastBuild {
		return gpu.BuildPreferFastBuild
	}
	return gpu.BuildPreferFastTrace
}
