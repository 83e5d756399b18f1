package accel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Per-structure build statistics.
type RecordStats struct {
	Index          int
	Name           string
	PrimitiveCount uint32
	BuildSize      uint64
	CompactedSize  uint64
	ScratchSize    uint64
	Offset         uint64
	Address        string
}

// Build statistics for a structure set.
type Stats struct {
	Records []RecordStats

	TotalPrimitives uint64

	BuildArenaSize     uint64
	CompactedArenaSize uint64
	ScratchSize        uint64
	ScratchMode        ScratchMode

	TopLevelSize        uint64
	TopLevelScratchSize uint64
	InstanceCount       int
	MeshTableSize       uint64

	Compacted bool

	BuildTime     time.Duration
	CompactTime   time.Duration
	MeshTableTime time.Duration
	TopLevelTime  time.Duration
}

// Collect statistics for the current state of the set.
func (s *Structures) Stats() Stats {
	st := Stats{
		ScratchMode: s.opts.ScratchMode,
	}
	if s.bottom != nil {
		b := s.bottom
		st.BuildArenaSize = b.buildArenaSize
		st.ScratchSize = b.scratchSize
		st.Compacted = b.Compacted()
		st.BuildTime = b.buildTime
		st.CompactTime = b.compactTime
		if st.Compacted && b.arena != nil {
			st.CompactedArenaSize = b.arena.Size()
		}
		for _, r := range b.records {
			st.TotalPrimitives += uint64(r.PrimitiveCount)
			st.Records = append(st.Records, RecordStats{
				Index:          r.Index,
				Name:           r.Name,
				PrimitiveCount: r.PrimitiveCount,
				BuildSize:      r.BuildSize,
				CompactedSize:  r.CompactedSize,
				ScratchSize:    r.ScratchSize,
				Offset:         r.Region.Offset,
				Address:        r.Address.String(),
			})
		}
	}
	if s.top != nil {
		st.TopLevelSize = s.top.buildSize
		st.TopLevelScratchSize = s.top.scratchSize
		st.InstanceCount = s.top.Len()
		st.TopLevelTime = s.top.buildTime
	}
	if s.meshTable != nil {
		st.MeshTableSize = uint64(s.meshTable.Len()) * MeshAddressEntrySize
		st.MeshTableTime = s.meshTableTime
	}
	return st
}

// Render the per-structure table and totals.
func (st Stats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"#", "Drawable", "Triangles", "Build size", "Compacted size", "Scratch size", "Offset", "Address"})
	for _, r := range st.Records {
		compacted := "-"
		if r.CompactedSize != 0 {
			compacted = fmt.Sprintf("%d", r.CompactedSize)
		}
		table.Append([]string{
			fmt.Sprintf("%d", r.Index),
			r.Name,
			fmt.Sprintf("%d", r.PrimitiveCount),
			fmt.Sprintf("%d", r.BuildSize),
			compacted,
			fmt.Sprintf("%d", r.ScratchSize),
			fmt.Sprintf("%d", r.Offset),
			r.Address,
		})
	}
	compactedArena := "-"
	if st.Compacted {
		compactedArena = fmt.Sprintf("%d", st.CompactedArenaSize)
	}
	table.SetFooter([]string{
		"", "TOTAL", fmt.Sprintf("%d", st.TotalPrimitives),
		fmt.Sprintf("%d", st.BuildArenaSize), compactedArena,
		fmt.Sprintf("%d (%s)", st.ScratchSize, st.ScratchMode), "", "",
	})
	table.Render()

	fmt.Fprintf(&buf, "Top-level: %d instances, %d bytes, %d scratch bytes\n", st.InstanceCount, st.TopLevelSize, st.TopLevelScratchSize)
	fmt.Fprintf(&buf, "Mesh table: %d bytes\n", st.MeshTableSize)
	fmt.Fprintf(
		&buf, "Timings: build %d ms, compact %d ms, mesh table %d ms, top-level %d ms\n",
		st.BuildTime.Nanoseconds()/1e6, st.CompactTime.Nanoseconds()/1e6,
		st.MeshTableTime.Nanoseconds()/1e6, st.TopLevelTime.Nanoseconds()/1e6,
	)
	return buf.String()
}
