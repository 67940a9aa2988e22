package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/camcal/config"
	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
	"go.viam.com/camcal/rimage/calibration"
	"go.viam.com/camcal/rimage/detection/chessboard"
	"go.viam.com/camcal/utils"
)

const histogramBins = 12

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String(flagConfig); path != "" {
		return config.Read(path)
	}
	return config.Default(), nil
}

func calibrateAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := logging.Global()
	debugDir := c.Path(flagDebugDir)
	if debugDir != "" {
		if err := os.MkdirAll(debugDir, 0o750); err != nil {
			return errors.Wrap(err, "creating debug directory")
		}
		logFile, err := os.Create(filepath.Join(debugDir, "camcal.log"))
		if err != nil {
			return errors.Wrap(err, "creating run log")
		}
		defer goutils.UncheckedErrorFunc(logFile.Close)
		logger.AddAppender(logging.NewWriterAppender(logFile))
	}

	paths, err := filepath.Glob(filepath.Join(c.Path(flagImages), cfg.ImageGlob))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.Errorf("no image in %q matches %q", c.Path(flagImages), cfg.ImageGlob)
	}
	images, err := readImages(c.Context, paths)
	if err != nil {
		return err
	}

	res, err := calibration.Calibrate(c.Context, images, cfg.CalibrationOptions(logger))
	if err != nil {
		return err
	}

	if err := writeDocument(c, res); err != nil {
		return err
	}
	if err := printReport(c.App.ErrWriter, res, paths); err != nil {
		return err
	}
	if debugDir != "" {
		if err := saveOverlays(debugDir, res, images, paths, cfg); err != nil {
			return err
		}
	}
	if plotPath := c.Path(flagPlot); plotPath != "" {
		if err := calibration.SaveViewErrorPlot(res, plotPath); err != nil {
			return errors.Wrap(err, "saving error chart")
		}
	}
	return nil
}

// readImages decodes the files concurrently, keeping their order.
func readImages(ctx context.Context, paths []string) ([]image.Image, error) {
	images := make([]image.Image, len(paths))
	readers := make([]utils.SimpleFunc, len(paths))
	for i, p := range paths {
		i, p := i, p
		readers[i] = func(context.Context) error {
			img, err := rimage.ReadImageFromFile(p)
			images[i] = img
			return err
		}
	}
	if _, err := utils.RunInParallel(ctx, readers); err != nil {
		return nil, err
	}
	return images, nil
}

func writeDocument(c *cli.Context, res *calibration.CalibrationResult) error {
	out := c.Path(flagOut)
	if out == "" {
		return res.WriteYAML(c.App.Writer)
	}
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "creating calibration document")
	}
	if err := res.WriteYAML(f); err != nil {
		goutils.UncheckedError(f.Close())
		return err
	}
	return f.Close()
}

// printReport writes the per image errors, a histogram of the corner errors and a status line.
func printReport(w io.Writer, res *calibration.CalibrationResult, paths []string) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Image", "Mean (px)", "Max (px)", "Line (px)"})
	for _, ve := range res.ViewErrors {
		t.AppendRow(table.Row{
			ve.Index, filepath.Base(paths[ve.Index]),
			fmt.Sprintf("%.3f", ve.Mean), fmt.Sprintf("%.3f", ve.Max), fmt.Sprintf("%.3f", ve.LineDeviation),
		})
	}
	for _, d := range res.Diagnostics {
		t.AppendRow(table.Row{d.Index, filepath.Base(paths[d.Index]), "skipped", d.Err.Error(), ""})
	}
	t.AppendFooter(table.Row{"", "mean", fmt.Sprintf("%.3f", res.MeanReprojectionError), "", ""})
	t.Render()

	finite := lo.Filter(res.CornerErrors, func(v float64, _ int) bool { return !math.IsInf(v, 0) })
	if len(finite) > 0 {
		fmt.Fprintln(w, "corner error (px):") //nolint:errcheck
		if err := histogram.Fprint(w, histogram.Hist(histogramBins, finite), histogram.Linear(40)); err != nil {
			return err
		}
	}

	c := res.Intrinsics
	summary := fmt.Sprintf("fx=%.2f fy=%.2f cx=%.2f cy=%.2f, mean error %.3f px over %d images",
		c.Fx, c.Fy, c.Cx, c.Cy, res.MeanReprojectionError, len(res.ViewErrors))
	var status string
	switch {
	case res.MeanReprojectionError < 0.5:
		status = color.New(color.Bold, color.FgGreen).Sprint("✔ ") + summary
	case res.MeanReprojectionError < 1:
		status = color.New(color.Bold, color.FgYellow).Sprint("! ") + summary
	default:
		status = color.New(color.Bold, color.FgRed).Sprint("✘ ") + summary
	}
	if len(res.Diagnostics) > 0 {
		status += color.YellowString(" (%d skipped)", len(res.Diagnostics))
	}
	_, err := fmt.Fprintln(w, status)
	return err
}

// saveOverlays draws the detected corners of every used image into dir. Skipped images get a
// plot of their saddle points and X-corners instead.
func saveOverlays(dir string, res *calibration.CalibrationResult, images []image.Image, paths []string, cfg *config.Config) error {
	baseName := func(idx int) string {
		return filepath.Join(dir, strings.TrimSuffix(filepath.Base(paths[idx]), filepath.Ext(paths[idx])))
	}
	for _, view := range res.Correspondences.Views {
		overlay := rimage.DrawChessboardCorners(images[view.Index], view.Corners, cfg.Target.Cols, true)
		if err := rimage.WriteImageToFile(baseName(view.Index)+"_corners.png", overlay); err != nil {
			return err
		}
	}
	for _, d := range res.Diagnostics {
		img := images[d.Index]
		det, err := chessboard.FindChessboard(img, cfg.Target.Rows, cfg.Target.Cols, &cfg.Detection)
		if err != nil {
			continue
		}
		b := img.Bounds()
		if err := chessboard.PlotSaddleMap(det, baseName(d.Index)+"_saddles.png", b.Dx(), b.Dy()); err != nil {
			return err
		}
	}
	return nil
}
