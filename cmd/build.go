package cmd

import (
	"bytes"
	"fmt"

	"github.com/ammarasyad/Singularity-sub000/accel"
	"github.com/ammarasyad/Singularity-sub000/config"
	"github.com/ammarasyad/Singularity-sub000/gpu/soft"
	"github.com/ammarasyad/Singularity-sub000/sbt"
	"github.com/cockroachdb/errors"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Load the configuration named by the first argument or fall back to the
// built-in one.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	if ctx.NArg() > 1 {
		return nil, errors.New("expected at most one configuration file argument")
	}
	if ctx.NArg() == 0 {
		logger.Info("no configuration file supplied; using the built-in scene")
		return config.Default(), nil
	}
	return config.Load(ctx.Args().First())
}

// Build the acceleration structures and shader binding table of a scene on
// a software device and report the results.
func BuildScene(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	applyConfigLogging(ctx, cfg)

	sd := soft.New(cfg.Profile())
	dev, err := sd.Context()
	if err != nil {
		return err
	}
	logger.Noticef("using device %q", dev.Name)

	geometry, drawables, err := cfg.Scene(dev)
	if err != nil {
		return err
	}
	defer geometry.Release()

	opts := cfg.Options()
	structs, err := accel.NewBuilder(dev, opts).Build(drawables)
	if err != nil {
		return err
	}
	defer structs.Destroy()

	if opts.DeferCompaction {
		logger.Noticef("structures before compaction\n%s", structs.Stats())
		if err = structs.Compact(); err != nil {
			return err
		}
	}
	logger.Noticef("structure statistics\n%s", structs.Stats())

	if err = sbt.CheckRecursionDepth(dev.Props, cfg.Pipeline.MaxRecursion); err != nil {
		return err
	}
	groups := cfg.Groups()
	pipeline := sd.CreatePipeline(1 + groups.Miss + groups.Hit)
	defer sd.DestroyPipeline(pipeline)

	table, err := sbt.Build(dev, pipeline, groups)
	if err != nil {
		return err
	}
	defer table.Release()
	displayRegions(table.Regions())

	out := structs.Output()
	call := table.Dispatch(uint32(ctx.Uint("width")), uint32(ctx.Uint("height")))
	logger.Noticef(
		"dispatch: tlas %s (%d instances), mesh table %s, launch %dx%dx%d",
		out.TLAS, out.InstanceCount, out.MeshTableAddress, call.Width, call.Height, call.Depth,
	)

	stats := sd.Stats()
	logger.Infof(
		"device: %d submissions, %d builds, %d copies, peak memory %d bytes",
		stats.Submissions, stats.Builds, stats.Copies, stats.PeakBytes,
	)
	return nil
}

func displayRegions(regions [3]sbt.Region) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Region", "Address", "Stride", "Size"})
	for i, name := range []string{"raygen", "miss", "hit"} {
		table.Append([]string{
			name,
			regions[i].Address.String(),
			fmt.Sprintf("%d", regions[i].Stride),
			fmt.Sprintf("%d", regions[i].Size),
		})
	}
	table.Render()
	logger.Noticef("shader binding table\n%s", buf.String())
}
