package soft

import "github.com/ammarasyad/Singularity-sub000/gpu"

// Create a ray tracing pipeline with the given number of shader groups.
// Pipeline compilation is not modeled; the pipeline only serves group
// handles.
func (d *Device) CreatePipeline(groupCount uint32) gpu.PipelineHandle {
	d.mu.Lock()
	defer d.mu.Unlock()

	handle := gpu.PipelineHandle(d.newHandle())
	d.pipelines[handle] = groupCount
	return handle
}

// Destroy a pipeline.
func (d *Device) DestroyPipeline(handle gpu.PipelineHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pipelines, handle)
}

// Get the opaque handle the device assigns to a shader group.
func (d *Device) GroupHandle(pipeline gpu.PipelineHandle, group uint32) []byte {
	size := d.profile.Props.ShaderGroupHandleSize
	out := make([]byte, size)
	for i := uint32(0); i < size; i++ {
		out[i] = byte(uint32(pipeline)*131 + group*31 + i + 1)
	}
	return out
}

func (d *Device) shaderGroupHandles(pipeline gpu.PipelineHandle, firstGroup, groupCount uint32, dataSize int) ([]byte, gpu.Result) {
	d.mu.Lock()
	total, ok := d.pipelines[pipeline]
	d.mu.Unlock()

	if !ok || firstGroup+groupCount > total {
		return nil, gpu.ErrorValidationFailed
	}

	handleSize := int(d.profile.Props.ShaderGroupHandleSize)
	if dataSize < int(groupCount)*handleSize {
		return nil, gpu.ErrorValidationFailed
	}

	out := make([]byte, 0, dataSize)
	for g := firstGroup; g < firstGroup+groupCount; g++ {
		out = append(out, d.GroupHandle(pipeline, g)...)
	}
	return out, gpu.Success
}
