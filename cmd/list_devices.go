package cmd

import (
	"bytes"
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/gpu/soft"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// List the available software device profiles.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx)

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Name", "Handle size", "Handle align", "Base align", "Max recursion", "Structure align", "Scratch align", "Memory budget"})
	for _, p := range soft.Profiles() {
		budget := "unlimited"
		if p.MemoryBudget != 0 {
			budget = fmt.Sprintf("%d", p.MemoryBudget)
		}
		name := p.Props.Name
		if name == soft.DefaultProfile {
			name += " (default)"
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%d", p.Props.ShaderGroupHandleSize),
			fmt.Sprintf("%d", p.Props.ShaderGroupHandleAlignment),
			fmt.Sprintf("%d", p.Props.ShaderGroupBaseAlignment),
			fmt.Sprintf("%d", p.Props.MaxRayRecursionDepth),
			fmt.Sprintf("%d", p.Props.AccelerationStructureAlignment),
			fmt.Sprintf("%d", p.Props.MinScratchOffsetAlignment),
			budget,
		})
	}
	table.Render()

	logger.Noticef("software device profiles\n%s", buf.String())
	return nil
}
