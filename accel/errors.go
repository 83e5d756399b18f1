package accel

import "github.com/cockroachdb/errors"

var (
	ErrMalformedGeometry  = errors.New("accel: drawable mesh has no triangles")
	ErrMissingMesh        = errors.New("accel: drawable has no mesh")
	ErrAlreadyCompacted   = errors.New("accel: structures of this build generation are already compacted")
	ErrCompactionDisabled = errors.New("accel: structures were built without compaction support")
	ErrDestroyed          = errors.New("accel: structures have been destroyed")
)
