// Package chessboard finds the interior corners of a chessboard calibration target in an image.
package chessboard

import (
	"image"
	"image/color"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage"
)

// ErrChessboardNotFound is returned when no complete rows x cols corner grid is visible.
var ErrChessboardNotFound = errors.New("chessboard not found")

// Detection holds the outcome of every stage of a chessboard search.
type Detection struct {
	// Saddles are the local maxima of the saddle map.
	Saddles []r2.Point
	// XCorners are the saddles that passed the ring test.
	XCorners []r2.Point
	// Corners are the refined corners in raster order, set only when Found.
	Corners []r2.Point
	Found   bool
}

// FindChessboard looks for the rows x cols interior corners of a chessboard. The search works on
// the luminance of the image: saddle points of the blurred image are the corner candidates, the
// ring test keeps the X-junctions, a lattice is grown from seed corners and accepted only if it
// holds exactly one complete rows x cols window, and the corners of that window are refined to
// sub-pixel accuracy on the unblurred image.
func FindChessboard(img image.Image, rows, cols int, cfg *DetectionConfiguration) (*Detection, error) {
	if rows < 2 || cols < 2 {
		return nil, errors.Errorf("board must have at least 2x2 interior corners, got %dx%d", rows, cols)
	}
	if err := cfg.Validate("detection"); err != nil {
		return nil, err
	}

	gray := rimage.ConvertColorImageToLuminanceFloat(img)
	blurred := gray
	if cfg.Saddle.BlurSigma > 0 {
		kernel := rimage.GetGaussian(cfg.Saddle.BlurSigma)
		var err error
		if blurred, err = rimage.ConvolveGrayFloat64(gray, &kernel); err != nil {
			return nil, err
		}
	}

	_, saddles, err := GetSaddleMapPoints(blurred, &cfg.Saddle)
	if err != nil {
		return nil, err
	}
	det := &Detection{Saddles: saddlePoints(saddles)}

	xcorners := saddlePoints(filterXCorners(blurred, saddles, &cfg.Grid))
	det.XCorners = xcorners

	coarse, ok := findGrid(xcorners, rows, cols, &cfg.Grid)
	if !ok {
		return det, nil
	}
	det.Corners = CornerSubPix(gray, coarse, &cfg.SubPix)
	det.Found = true
	return det, nil
}

// Detector finds chessboard corners with a fixed configuration.
type Detector struct {
	cfg    DetectionConfiguration
	logger logging.Logger
}

// NewDetector returns a detector using cfg.
func NewDetector(cfg DetectionConfiguration, logger logging.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// FindCorners returns the rows*cols corners of the board in raster order, or ErrChessboardNotFound.
func (d *Detector) FindCorners(img image.Image, rows, cols int) ([]r2.Point, error) {
	det, err := FindChessboard(img, rows, cols, &d.cfg)
	if err != nil {
		return nil, err
	}
	d.logger.Debugw("chessboard search",
		"saddles", len(det.Saddles), "xcorners", len(det.XCorners), "found", det.Found)
	if !det.Found {
		return nil, ErrChessboardNotFound
	}
	return det.Corners, nil
}

// PlotSaddleMap draws the saddles in red and the verified X-corners in green on a black image and
// saves it to outFile.
func PlotSaddleMap(det *Detection, outFile string, iw, ih int) error {
	toPixels := func(pts []r2.Point) []image.Point {
		out := make([]image.Point, len(pts))
		for i, p := range pts {
			out[i] = image.Point{int(p.X + 0.5), int(p.Y + 0.5)}
		}
		return out
	}
	saddles := rimage.DrawPoints(iw, ih, toPixels(det.Saddles), color.RGBA{255, 0, 0, 255})
	img := rimage.DrawCircles(saddles, det.XCorners, color.RGBA{0, 255, 0, 255})
	return rimage.WriteImageToFile(outFile, img)
}
