package chessboard

import (
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/testutils/calibtest"
)

func TestFindChessboardRendered(t *testing.T) {
	scene := calibtest.NewStandardScene()
	for _, view := range []int{0, 3, 7} {
		img := scene.RenderView(view, 4)
		det, err := FindChessboard(img, scene.Board.Rows, scene.Board.Cols, &DefaultDetectionConf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, det.Found, test.ShouldBeTrue)
		test.That(t, det.XCorners, test.ShouldHaveLength, 35)
		test.That(t, len(det.Saddles), test.ShouldBeGreaterThanOrEqualTo, 35)

		want := scene.ProjectView(view)
		test.That(t, det.Corners, test.ShouldHaveLength, len(want))
		for i, p := range det.Corners {
			test.That(t, p.Sub(want[i]).Norm(), test.ShouldBeLessThan, 0.25)
		}
	}
}

func TestFindChessboardNotFound(t *testing.T) {
	scene := calibtest.NewStandardScene()

	t.Run("blank image", func(t *testing.T) {
		blank := image.NewGray(image.Rect(0, 0, 320, 240))
		for i := range blank.Pix {
			blank.Pix[i] = 128
		}
		det, err := FindChessboard(blank, 5, 7, &DefaultDetectionConf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, det.Found, test.ShouldBeFalse)
		test.That(t, det.Corners, test.ShouldBeNil)
	})

	t.Run("wrong board size", func(t *testing.T) {
		det, err := FindChessboard(scene.RenderView(0, 2), 6, 8, &DefaultDetectionConf)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, det.Found, test.ShouldBeFalse)
	})

	t.Run("invalid board", func(t *testing.T) {
		_, err := FindChessboard(image.NewGray(image.Rect(0, 0, 10, 10)), 1, 7, &DefaultDetectionConf)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("invalid configuration", func(t *testing.T) {
		conf := DefaultDetectionConf
		conf.SubPix.MaxIterations = 0
		_, err := FindChessboard(image.NewGray(image.Rect(0, 0, 10, 10)), 5, 7, &conf)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "detection.subpix.max-iter")
	})
}

func TestDetector(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	d := NewDetector(DefaultDetectionConf, logger)
	scene := calibtest.NewStandardScene()

	corners, err := d.FindCorners(scene.RenderView(1, 4), 5, 7)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, corners, test.ShouldHaveLength, 35)

	_, err = d.FindCorners(image.NewGray(image.Rect(0, 0, 64, 48)), 5, 7)
	test.That(t, err, test.ShouldBeError, ErrChessboardNotFound)
	test.That(t, logs.FilterMessage("chessboard search").Len(), test.ShouldEqual, 2)
}

func TestDetectionConfigurationValidate(t *testing.T) {
	test.That(t, DefaultDetectionConf.Validate("conf"), test.ShouldBeNil)

	for name, mutate := range map[string]func(c *DetectionConfiguration){
		"conf.saddle.blur-sigma":     func(c *DetectionConfiguration) { c.Saddle.BlurSigma = -1 },
		"conf.saddle.score-rel":      func(c *DetectionConfiguration) { c.Saddle.RelativeThreshold = 1 },
		"conf.saddle.win-size":       func(c *DetectionConfiguration) { c.Saddle.NMSWindowSize = 0 },
		"conf.saddle.max-candidates": func(c *DetectionConfiguration) { c.Saddle.MaxCandidates = 2 },
		"conf.grid.ring-radius":      func(c *DetectionConfiguration) { c.Grid.RingRadiusFactor = 0.6 },
		"conf.grid.tolerance":        func(c *DetectionConfiguration) { c.Grid.Tolerance = 0 },
		"conf.grid.max-seeds":        func(c *DetectionConfiguration) { c.Grid.MaxSeeds = 0 },
		"conf.subpix.win-half-size":  func(c *DetectionConfiguration) { c.SubPix.WindowHalfSize = 0 },
		"conf.subpix.eps":            func(c *DetectionConfiguration) { c.SubPix.Epsilon = 0 },
	} {
		conf := DefaultDetectionConf
		mutate(&conf)
		err := conf.Validate("conf")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, name)
	}
}

func TestPlotSaddleMap(t *testing.T) {
	scene := calibtest.NewStandardScene()
	det, err := FindChessboard(scene.RenderView(0, 2), 5, 7, &DefaultDetectionConf)
	test.That(t, err, test.ShouldBeNil)

	out := filepath.Join(t.TempDir(), "saddles.png")
	test.That(t, PlotSaddleMap(det, out, 640, 480), test.ShouldBeNil)
	f, err := os.Open(out)
	test.That(t, err, test.ShouldBeNil)
	defer f.Close()
	img, _, err := image.Decode(f)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds().Dx(), test.ShouldEqual, 640)
	test.That(t, img.Bounds().Dy(), test.ShouldEqual, 480)
}
