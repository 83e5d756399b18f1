package soft

import (
	"github.com/ammarasyad/Singularity-sub000/gpu"
	"github.com/cockroachdb/errors"
)

type queryPool struct {
	typ       gpu.QueryType
	results   []uint64
	available []bool
}

func (d *Device) createQueryPool(queryType gpu.QueryType, count uint32) (gpu.QueryPoolHandle, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if count == 0 {
		return 0, gpu.ErrorValidationFailed
	}
	handle := gpu.QueryPoolHandle(d.newHandle())
	d.pools[handle] = &queryPool{
		typ:       queryType,
		results:   make([]uint64, count),
		available: make([]bool, count),
	}
	return handle, gpu.Success
}

func (d *Device) destroyQueryPool(handle gpu.QueryPoolHandle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pools, handle)
}

func (d *Device) queryPoolResults(handle gpu.QueryPoolHandle, first, count uint32, wait bool) ([]uint64, gpu.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pool, ok := d.pools[handle]
	if !ok || int(first)+int(count) > len(pool.results) {
		return nil, gpu.ErrorValidationFailed
	}

	// Waiting lets the queue drain.
	if wait && len(d.pending) != 0 {
		if res := d.flush(); res != gpu.Success {
			return nil, res
		}
	}

	out := make([]uint64, count)
	for i := uint32(0); i < count; i++ {
		if !pool.available[first+i] {
			// A real device would block forever here.
			return nil, gpu.NotReady
		}
		out[i] = pool.results[first+i]
	}
	return out, gpu.Success
}

func (d *Device) resetQueries(handle gpu.QueryPoolHandle, first, count uint32) error {
	pool, ok := d.pools[handle]
	if !ok || int(first)+int(count) > len(pool.results) {
		return errors.Newf("reset of queries [%d, %d) outside pool %d", first, first+count, handle)
	}
	for i := first; i < first+count; i++ {
		pool.available[i] = false
		pool.results[i] = 0
	}
	return nil
}

func (d *Device) writeProperties(structures []gpu.StructureHandle, queryType gpu.QueryType, handle gpu.QueryPoolHandle, first uint32) error {
	pool, ok := d.pools[handle]
	if !ok || int(first)+len(structures) > len(pool.results) {
		return errors.Newf("%d property queries at slot %d overflow pool %d", len(structures), first, handle)
	}
	if pool.typ != queryType {
		return errors.Newf("query type %d written into pool %d of type %d", queryType, handle, pool.typ)
	}

	for i, h := range structures {
		s, ok := d.structures[h]
		if !ok || !s.built {
			return errors.Newf("property query of structure %d that is not built", h)
		}
		switch queryType {
		case gpu.QueryCompactedSize:
			if !s.compactable {
				return errors.Newf("compacted size query of structure %d built without compaction support", h)
			}
			pool.results[first+uint32(i)] = s.compacted
		case gpu.QuerySerializationSize:
			pool.results[first+uint32(i)] = s.size
		}
		pool.available[first+uint32(i)] = true
	}
	return nil
}
