package cmd

import (
	"bytes"
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/sbt"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Print the shader binding table layout for the given device constants.
func ShowSBTLayout(ctx *cli.Context) error {
	setupLogging(ctx)

	layout, err := sbt.ComputeLayout(
		uint32(ctx.Uint("handle-size")),
		uint32(ctx.Uint("handle-align")),
		uint32(ctx.Uint("base-align")),
		uint32(ctx.Uint("miss")),
		uint32(ctx.Uint("hit")),
	)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Region", "Entries", "Offset", "Stride", "Size"})
	rows := []struct {
		name    string
		entries uint32
		span    sbt.Span
	}{
		{"raygen", 1, layout.Raygen},
		{"miss", layout.MissCount, layout.Miss},
		{"hit", layout.HitCount, layout.Hit},
	}
	for _, r := range rows {
		table.Append([]string{
			r.name,
			fmt.Sprintf("%d", r.entries),
			fmt.Sprintf("%d", r.span.Offset),
			fmt.Sprintf("%d", r.span.Stride),
			fmt.Sprintf("%d", r.span.Size),
		})
	}
	table.SetFooter([]string{"", "", "", "TOTAL", fmt.Sprintf("%d", layout.Size())})
	table.Render()

	logger.Noticef("shader binding table layout\n%s", buf.String())
	return nil
}
