package main

import (
	"os"

	"github.com/ammarasyad/Singularity-sub000/cmd"
	"github.com/ammarasyad/Singularity-sub000/log"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "rtgeom"
	app.Usage = "build ray tracing acceleration structures and shader binding tables"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "build the acceleration structures of a scene",
			Description: `
Load a scene configuration, upload its geometry to a software ray tracing
device and build one bottom-level structure per object, compact them, build
the mesh address table and the top-level structure and lay out the shader
binding table.

Without a configuration file argument a built-in three object scene is used.`,
			ArgsUsage: "[scene.toml]",
			Flags: []cli.Flag{
				cli.UintFlag{
					Name:  "width",
					Value: 1280,
					Usage: "launch width of the reported dispatch",
				},
				cli.UintFlag{
					Name:  "height",
					Value: 720,
					Usage: "launch height of the reported dispatch",
				},
			},
			Action: cmd.BuildScene,
		},
		{
			Name:  "sbt",
			Usage: "print the shader binding table layout for a set of device constants",
			Flags: []cli.Flag{
				cli.UintFlag{
					Name:  "handle-size",
					Value: 32,
					Usage: "shader group handle size in bytes",
				},
				cli.UintFlag{
					Name:  "handle-align",
					Value: 32,
					Usage: "shader group handle alignment",
				},
				cli.UintFlag{
					Name:  "base-align",
					Value: 64,
					Usage: "shader group base alignment",
				},
				cli.UintFlag{
					Name:  "miss",
					Value: 2,
					Usage: "number of miss groups",
				},
				cli.UintFlag{
					Name:  "hit",
					Value: 1,
					Usage: "number of hit groups",
				},
			},
			Action: cmd.ShowSBTLayout,
		},
		{
			Name:   "list-devices",
			Usage:  "list available software device profiles",
			Action: cmd.ListDevices,
		},
		{
			Name:      "config",
			Usage:     "print the built-in scene configuration or validate a configuration file",
			ArgsUsage: "[scene.toml]",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "write the configuration to this file instead of stdout",
				},
			},
			Action: cmd.ShowConfig,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.New("rtgeom").Errorf("%v", err)
		os.Exit(1)
	}
}
