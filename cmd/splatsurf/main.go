package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "splatsurf"
	app.Usage = "convert gaussian splat clouds into surfels"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "YAML configuration file",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable debug logging",
		},
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "print collected metrics on exit",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "info",
			Usage:     "print the splat count and the first records of a cloud",
			ArgsUsage: "cloud.ply",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "n",
					Value: 3,
					Usage: "number of records to print",
				},
			},
			Action: Info,
		},
		{
			Name:  "geometry",
			Usage: "derive one surfel per splat",
			Description: `
Decode color and estimate normals (or normals and covariance) for every splat.
The compute device is used unless --cpu is given.`,
			ArgsUsage: "cloud.ply",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "variant",
					Usage: "color-normal or normal-covariance (overrides config)",
				},
			}, computeFlags...),
			Action: Geometry,
		},
		{
			Name:      "upsample",
			Usage:     "emit factor surfels per splat",
			ArgsUsage: "cloud.ply",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "factor, f",
					Value: 4,
					Usage: "surfels per splat",
				},
			}, computeFlags...),
			Action: Upsample,
		},
		{
			Name:   "adapters",
			Usage:  "list compute adapters and the one that would be selected",
			Action: ListAdapters,
		},
		{
			Name:  "fixture",
			Usage: "write a random splat cloud",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "count, n",
					Value: 1000,
					Usage: "number of splats",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "random seed",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "fixture.ply",
					Usage: "output file",
				},
			},
			Action: Fixture,
		},
		{
			Name:  "uniform",
			Usage: "print the presentation uniform block for an orbit camera",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "width", Value: 1280, Usage: "viewport width"},
				cli.IntFlag{Name: "height", Value: 720, Usage: "viewport height"},
				cli.StringFlag{Name: "mode", Value: "color", Usage: "color or normal"},
				cli.Float64Flag{Name: "yaw", Usage: "extra yaw drag in pixels"},
				cli.Float64Flag{Name: "pitch", Usage: "extra pitch drag in pixels"},
				cli.Float64Flag{Name: "zoom", Usage: "wheel delta"},
			},
			Action: Uniform,
		},
	}
	return app
}

var computeFlags = []cli.Flag{
	cli.BoolFlag{
		Name:  "cpu",
		Usage: "run on the host instead of the compute device",
	},
	cli.StringFlag{
		Name:  "out, o",
		Usage: "write the surfels to this file (.ply or .pcd)",
	},
}
