package cmd

import (
	"os"

	"github.com/ammarasyad/Singularity-sub000/config"
	"github.com/cockroachdb/errors"
	"github.com/urfave/cli"
)

// Write the built-in configuration as TOML, or validate the given file.
func ShowConfig(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg := config.Default()
	if ctx.NArg() != 0 {
		var err error
		if cfg, err = loadConfig(ctx); err != nil {
			return err
		}
		logger.Noticef("configuration %s is valid (%d objects)", ctx.Args().First(), len(cfg.Objects))
	}

	out := os.Stdout
	if path := ctx.String("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "writing configuration")
		}
		defer f.Close()
		out = f
	}
	return cfg.Encode(out)
}
