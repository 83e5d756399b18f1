package gpu

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

// Funcs is the table of driver entry points used by this package. It is
// populated once when a device is opened and owned by that Device; nothing
// in the package resolves entry points globally.
type Funcs struct {
	// Memory.
	CreateBuffer           func(info BufferInfo) (BufferHandle, Result)
	DestroyBuffer          func(buf BufferHandle)
	MapBuffer              func(buf BufferHandle) ([]byte, Result)
	GetBufferDeviceAddress func(buf BufferHandle) DeviceAddress

	// Acceleration structures.
	GetAccelerationStructureBuildSizes    func(info *BuildInfo, maxPrimitiveCount uint32) (BuildSizes, Result)
	CreateAccelerationStructure           func(info StructureInfo) (StructureHandle, Result)
	DestroyAccelerationStructure          func(as StructureHandle)
	GetAccelerationStructureDeviceAddress func(as StructureHandle) StructureAddress

	// Queries. With wait set, GetQueryPoolResults blocks until results are
	// available.
	CreateQueryPool     func(queryType QueryType, count uint32) (QueryPoolHandle, Result)
	DestroyQueryPool    func(pool QueryPoolHandle)
	GetQueryPoolResults func(pool QueryPoolHandle, first, count uint32, wait bool) ([]uint64, Result)

	// Pipelines.
	GetRayTracingShaderGroupHandles func(pipeline PipelineHandle, firstGroup, groupCount uint32, dataSize int) ([]byte, Result)

	// Submission.
	AllocateCommandBuffer func() (CommandBufferHandle, Result)
	FreeCommandBuffer     func(cb CommandBufferHandle)
	BeginCommandBuffer    func(cb CommandBufferHandle) Result
	EndCommandBuffer      func(cb CommandBufferHandle) Result
	QueueSubmit           func(cb CommandBufferHandle) Result
	QueueWaitIdle         func() Result

	// Command recording.
	CmdBuildAccelerationStructures           func(cb CommandBufferHandle, infos []BuildInfo)
	CmdPipelineBarrier                       func(cb CommandBufferHandle, barrier Barrier)
	CmdCopyAccelerationStructure             func(cb CommandBufferHandle, info CopyStructureInfo)
	CmdCopyBuffer                            func(cb CommandBufferHandle, region BufferCopy)
	CmdResetQueryPool                        func(cb CommandBufferHandle, pool QueryPoolHandle, first, count uint32)
	CmdWriteAccelerationStructuresProperties func(cb CommandBufferHandle, structures []StructureHandle, queryType QueryType, pool QueryPoolHandle, first uint32)
}

// Check that every entry point has been populated.
func (f *Funcs) validate() error {
	val := reflect.ValueOf(f).Elem()
	var missing []string
	for i := 0; i < val.NumField(); i++ {
		if val.Field(i).IsNil() {
			missing = append(missing, val.Type().Field(i).Name)
		}
	}
	if len(missing) != 0 {
		return errors.Newf("gpu: device is missing entry points %v", missing)
	}
	return nil
}
