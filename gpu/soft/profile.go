package soft

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

// A software device configuration.
type Profile struct {
	Props gpu.Properties

	// Total device memory; zero means unlimited.
	MemoryBudget uint64
}

// Name of the profile used when none is requested.
const DefaultProfile = "soft-rtx"

var profiles = []Profile{
	{
		Props: gpu.Properties{
			Name:                           "soft-rtx",
			ShaderGroupHandleSize:          32,
			ShaderGroupHandleAlignment:     32,
			ShaderGroupBaseAlignment:       64,
			MaxRayRecursionDepth:           31,
			AccelerationStructureAlignment: 256,
			MinScratchOffsetAlignment:      128,
		},
	},
	{
		Props: gpu.Properties{
			Name:                           "soft-compact",
			ShaderGroupHandleSize:          16,
			ShaderGroupHandleAlignment:     32,
			ShaderGroupBaseAlignment:       64,
			MaxRayRecursionDepth:           1,
			AccelerationStructureAlignment: 256,
			MinScratchOffsetAlignment:      256,
		},
	},
	{
		Props: gpu.Properties{
			Name:                           "soft-wide",
			ShaderGroupHandleSize:          32,
			ShaderGroupHandleAlignment:     64,
			ShaderGroupBaseAlignment:       256,
			MaxRayRecursionDepth:           8,
			AccelerationStructureAlignment: 512,
			MinScratchOffsetAlignment:      256,
		},
		MemoryBudget: 64 << 20,
	},
}

// List the built-in device profiles.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Find a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	for _, p := range profiles {
		if p.Props.Name == name {
			return p, nil
		}
	}
	return Profile{}, errors.Newf("soft device: unknown profile %q", name)
}
