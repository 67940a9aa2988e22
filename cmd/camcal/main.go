// Package main is the camcal command: it calibrates a camera from chessboard pictures and
// captures such pictures from a network camera.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"go.viam.com/camcal/logging"
)

const (
	flagDebug    = "debug"
	flagConfig   = "config"
	flagImages   = "images"
	flagOut      = "out"
	flagDebugDir = "debug-dir"
	flagPlot     = "plot"
	flagURL      = "url"
	flagCount    = "count"
	flagOutDir   = "out-dir"
)

func main() {
	if err := newApp().RunContext(context.Background(), os.Args); err != nil {
		logging.Global().Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "camcal",
		Usage: "estimate camera intrinsics from chessboard images",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load calibration settings from `FILE` (JSON or YAML)",
			},
		},
		Before: func(c *cli.Context) error {
			logger := logging.NewLogger("camcal")
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("camcal")
			}
			logging.ReplaceGlobal(logger)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "calibrate",
				Usage:     "calibrate from a directory of chessboard images",
				UsageText: "camcal [global options] calibrate --images DIR [--out FILE] [--debug-dir DIR] [--plot FILE]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagImages,
						Usage:    "`DIR` holding the chessboard images",
						Required: true,
					},
					&cli.PathFlag{
						Name:  flagOut,
						Usage: "write the calibration document to `FILE` instead of stdout",
					},
					&cli.PathFlag{
						Name:  flagDebugDir,
						Usage: "save corner overlays and the run log to `DIR`",
					},
					&cli.PathFlag{
						Name:  flagPlot,
						Usage: "save a chart of the per image error to `FILE` (png, svg or pdf)",
					},
				},
				Action: calibrateAction,
			},
			{
				Name:  "capture",
				Usage: "save frames of a network camera where the chessboard is visible",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagURL,
						Usage:    "snapshot `URL` returning one jpeg or png frame per request",
						Required: true,
					},
					&cli.IntFlag{
						Name:  flagCount,
						Usage: "number of frames to keep",
						Value: 15,
					},
					&cli.PathFlag{
						Name:     flagOutDir,
						Usage:    "`DIR` to write the frames to",
						Required: true,
					},
				},
				Action: captureAction,
			},
		},
	}
}
