package main

import (
	"fmt"
	"os"

	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/accel"
	"github.com/ReciprocalNet/ReciprocalNetProject-sub000/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	sceneFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "background, bg",
			Value: "0",
			Usage: "background colour as a grey value or r,g,b",
		},
		cli.StringFlag{
			Name:  "haze",
			Value: "1",
			Usage: "colour distant surfaces fade to when fog is enabled",
		},
		cli.Float64Flag{
			Name:  "fog",
			Usage: "fog density; 0 disables fog",
		},
		cli.Float64Flag{
			Name:  "ri",
			Value: 1,
			Usage: "refractive index of the space the camera is in",
		},
		cli.Float64Flag{
			Name:  "falloff",
			Usage: "light falloff with distance",
		},
		cli.StringFlag{
			Name:  "index",
			Value: string(accel.KDTreeKind),
			Usage: "spatial index for bounded objects: kdtree, grid, bvh or none",
		},
		cli.IntFlag{
			Name:  "kd-depth",
			Value: accel.DefaultMaxDepth,
			Usage: "maximum k-d tree depth",
		},
		cli.IntFlag{
			Name:  "grid-size",
			Value: accel.DefaultGridSize,
			Usage: "uniform grid voxels per axis",
		},
		cli.IntFlag{
			Name:  "leaf-size",
			Value: accel.DefaultLeafSize,
			Usage: "objects below which a BVH node is not split",
		},
	}

	app := cli.NewApp()
	app.Name = "art"
	app.Usage = "render scenes using recursive ray tracing"
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
			Name:   "scenes",
			Usage:  "list the built-in demo scenes",
			Action: cmd.ListScenes,
		},
		{
			Name:   "list-devices",
			Usage:  "list the processors available to the render workers",
			Action: cmd.ListDevices,
		},
		{
			Name:  "info",
			Usage: "assemble a scene and display its statistics",
			Description: `
Assemble a built-in demo scene or a wavefront obj file and display the number
of objects per primitive, the world bounds, the intersection tolerance and the
spatial index statistics.`,
			ArgsUsage: "demo_name | scene_file.obj | scene_url",
			Flags:     sceneFlags,
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "render",
			Usage: "render a single frame",
			Description: `
Render a built-in demo scene or a wavefront obj file (a local path or an
http(s) URL) to a png image. A fragment of the frame can be rendered on its
own with the xstart/xend/ystart/yend flags.`,
			ArgsUsage: "demo_name | scene_file.obj | scene_url",
			Flags: append([]cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 512,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 512,
					Usage: "frame height",
				},
				cli.StringFlag{
					Name:  "sampling, s",
					Value: "raw",
					Usage: "antialiasing mode: raw, grid or adaptive",
				},
				cli.IntFlag{
					Name:  "rays",
					Value: 4,
					Usage: "rays per supersampled pixel",
				},
				cli.Float64Flag{
					Name:  "threshold",
					Value: 0.03,
					Usage: "contrast above which adaptive sampling supersamples",
				},
				cli.IntFlag{
					Name:  "max-level",
					Value: 6,
					Usage: "maximum depth of reflection and refraction rays",
				},
				cli.BoolFlag{
					Name:  "alpha",
					Usage: "store pixel coverage in the alpha channel",
				},
				cli.IntFlag{
					Name:  "workers, w",
					Usage: "number of render workers; 0 uses one per logical cpu",
				},
				cli.StringFlag{
					Name:  "scheduler",
					Value: "naive",
					Usage: "block scheduler: naive or perfect",
				},
				cli.Int64Flag{
					Name:  "seed",
					Usage: "seed for the jitter generators",
				},
				cli.IntFlag{
					Name:  "xstart",
					Value: -1,
					Usage: "first fragment column",
				},
				cli.IntFlag{
					Name:  "xend",
					Value: -1,
					Usage: "last fragment column",
				},
				cli.IntFlag{
					Name:  "ystart",
					Value: -1,
					Usage: "first fragment row, counted from the top",
				},
				cli.IntFlag{
					Name:  "yend",
					Value: -1,
					Usage: "last fragment row",
				},
				cli.StringFlag{
					Name:  "out, o",
					Value: "frame.png",
					Usage: "image filename for the rendered frame",
				},
			}, sceneFlags...),
			Action: cmd.RenderFrame,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
