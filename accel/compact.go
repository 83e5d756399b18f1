package accel

import (
	"time"

	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

// Compact relocates every bottom-level structure into a new, tightly sized
// arena using the compacted sizes read back at build time, then destroys the
// originals and releases the build arena. Record order is preserved; record
// handles, addresses and regions are updated in place.
//
// Compaction runs at most once per build generation. If any step fails
// before the copies complete, the original structures stay valid.
func (b *BottomLevel) Compact() error {
	if b.generation == 0 {
		return ErrDestroyed
	}
	if b.compactedGeneration == b.generation {
		return ErrAlreadyCompacted
	}
	if !b.opts.Compact {
		return ErrCompactionDisabled
	}
	start := time.Now()

	if len(b.records) == 0 {
		b.compactedGeneration = b.generation
		return nil
	}

	layout := NewArenaLayout(b.dev.Props.AccelerationStructureAlignment)
	for _, r := range b.records {
		if r.CompactedSize == 0 || r.CompactedSize > r.BuildSize {
			return errors.AssertionFailedf(
				"accel: structure %d (%s) reports compacted size %d for build size %d",
				r.Index, r.Name, r.CompactedSize, r.BuildSize,
			)
		}
		layout.Add(r.CompactedSize)
	}

	arena, err := allocateArena(b.dev, "blasCompactedArena", layout)
	if err != nil {
		return err
	}

	handles := make([]gpu.StructureHandle, len(b.records))
	addresses := make([]gpu.StructureAddress, len(b.records))
	abort := func() {
		for _, h := range handles {
			b.dev.DestroyStructure(h)
		}
		arena.Release()
	}

	for i, r := range b.records {
		region := arena.Region(i)
		handles[i], addresses[i], err = b.dev.CreateStructure(gpu.StructureInfo{
			Type:   gpu.BottomLevel,
			Buffer: region.Buffer.Handle(),
			Offset: region.Offset,
			Size:   region.Size,
		})
		if err != nil {
			abort()
			return errors.Wrapf(err, "compacting structure %d (%s)", i, r.Name)
		}
	}

	err = b.dev.Submit(func(cb *gpu.CommandBuffer) error {
		for i, r := range b.records {
			cb.CopyStructure(gpu.CopyStructureInfo{Src: r.Handle, Dst: handles[i], Mode: gpu.CopyCompact})
		}
		cb.Barrier(gpu.Barrier{Src: gpu.AccessStructureWrite, Dst: gpu.AccessStructureRead})
		return nil
	})
	if err != nil {
		abort()
		return errors.Wrapf(err, "compacting %d bottom-level structures", len(b.records))
	}

	for i, r := range b.records {
		b.dev.DestroyStructure(r.Handle)
		r.Handle = handles[i]
		r.Address = addresses[i]
		r.Region = arena.Region(i)
	}
	b.arena.Release()
	b.arena = arena
	b.compactedGeneration = b.generation
	b.compactionPasses++

	b.compactTime = time.Since(start)
	b.logger.Debugf(
		"compacted %d bottom-level structures from %d to %d bytes in %d ms",
		len(b.records), b.buildArenaSize, layout.Size(), b.compactTime.Nanoseconds()/1e6,
	)
	return nil
}
