package gpu

import (
	"github.com/cockroachdb/errors"
)

// A command buffer in the recording state. It is only valid inside the
// callback passed to Device.Submit.
type CommandBuffer struct {
	device *Device
	handle CommandBufferHandle

	// Number of recorded commands.
	commands int
}

// Number of commands recorded so far.
func (cb *CommandBuffer) Len() int {
	return cb.commands
}

// Record structure builds.
func (cb *CommandBuffer) BuildStructures(infos ...BuildInfo) {
	cb.device.fn.CmdBuildAccelerationStructures(cb.handle, infos)
	cb.commands++
}

// Record a global memory barrier.
func (cb *CommandBuffer) Barrier(barrier Barrier) {
	cb.device.fn.CmdPipelineBarrier(cb.handle, barrier)
	cb.commands++
}

// Record a structure copy.
func (cb *CommandBuffer) CopyStructure(info CopyStructureInfo) {
	cb.device.fn.CmdCopyAccelerationStructure(cb.handle, info)
	cb.commands++
}

// Record a buffer to buffer copy.
func (cb *CommandBuffer) CopyBuffer(region BufferCopy) {
	cb.device.fn.CmdCopyBuffer(cb.handle, region)
	cb.commands++
}

// Record a query pool reset.
func (cb *CommandBuffer) ResetQueryPool(pool QueryPoolHandle, first, count uint32) {
	cb.device.fn.CmdResetQueryPool(cb.handle, pool, first, count)
	cb.commands++
}

// Record a query of the compacted size of each structure into consecutive
// pool slots starting at first.
func (cb *CommandBuffer) WriteCompactedSizes(structures []StructureHandle, pool QueryPoolHandle, first uint32) {
	cb.device.fn.CmdWriteAccelerationStructuresProperties(cb.handle, structures, QueryCompactedSize, pool, first)
	cb.commands++
}

// Submit runs one scoped submission: it acquires a command buffer, lets
// record fill it, submits it to the queue and blocks until the queue is idle.
// The command buffer is released on every exit path. There is no timeout; a
// device hang blocks the caller.
func (d *Device) Submit(record func(cb *CommandBuffer) error) error {
	handle, res := d.fn.AllocateCommandBuffer()
	if err := res.Err("vkAllocateCommandBuffers"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): submission", d.Name)
	}
	defer d.fn.FreeCommandBuffer(handle)

	if err := d.fn.BeginCommandBuffer(handle).Err("vkBeginCommandBuffer"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): submission", d.Name)
	}

	cb := &CommandBuffer{device: d, handle: handle}
	if err := record(cb); err != nil {
		// Leave the recording state so the buffer can be freed.
		d.fn.EndCommandBuffer(handle)
		return err
	}

	if err := d.fn.EndCommandBuffer(handle).Err("vkEndCommandBuffer"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): submission", d.Name)
	}
	if err := d.fn.QueueSubmit(handle).Err("vkQueueSubmit"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): submission of %d commands", d.Name, cb.commands)
	}
	if err := d.fn.QueueWaitIdle().Err("vkQueueWaitIdle"); err != nil {
		return errors.Wrapf(err, "gpu device (%s): waiting for %d commands", d.Name, cb.commands)
	}

	return nil
}
