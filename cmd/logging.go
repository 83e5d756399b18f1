package cmd

import (
	"github.com/ammarasyad/Singularity-sub000/config"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/urfave/cli"
)

var logger = log.New("rtgeom")

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

// Apply the configured log level unless a verbosity flag overrides it.
func applyConfigLogging(ctx *cli.Context, cfg *config.Config) {
	if ctx.GlobalBool("v") || ctx.GlobalBool("vv") {
		return
	}
	log.SetLevel(cfg.LogLevel())
}
