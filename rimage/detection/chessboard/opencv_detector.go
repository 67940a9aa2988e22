//go:build withcv

package chessboard

import (
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/camcal/logging"
)

// OpenCVDetector finds chessboard corners with OpenCV's findChessboardCorners and cornerSubPix.
// Unlike Detector it keeps OpenCV's corner order, which starts from whichever outer corner OpenCV
// picks for the board's orientation.
type OpenCVDetector struct {
	subPix SubPixConfiguration
	logger logging.Logger
}

// NewOpenCVDetector returns a detector refining corners with the given sub-pixel settings.
func NewOpenCVDetector(subPix SubPixConfiguration, logger logging.Logger) *OpenCVDetector {
	return &OpenCVDetector{subPix: subPix, logger: logger}
}

// FindCorners returns the rows*cols corners of the board, or ErrChessboardNotFound.
func (d *OpenCVDetector) FindCorners(img image.Image, rows, cols int) ([]r2.Point, error) {
	rgb, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, errors.Wrap(err, "converting image")
	}
	defer rgb.Close() //nolint:errcheck
	gray := gocv.NewMat()
	defer gray.Close() //nolint:errcheck
	gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)

	corners := gocv.NewMat()
	defer corners.Close() //nolint:errcheck
	found := gocv.FindChessboardCorners(gray, image.Pt(cols, rows), &corners,
		gocv.CalibCBAdaptiveThresh|gocv.CalibCBNormalizeImage)
	d.logger.Debugw("opencv chessboard search", "found", found, "corners", corners.Rows())
	if !found || corners.Rows() != rows*cols {
		return nil, ErrChessboardNotFound
	}

	win := d.subPix.WindowHalfSize
	criteria := gocv.NewTermCriteria(gocv.EPS+gocv.MaxIter, d.subPix.MaxIterations, d.subPix.Epsilon)
	gocv.CornerSubPix(gray, &corners, image.Pt(win, win), image.Pt(-1, -1), criteria)

	out := make([]r2.Point, corners.Rows())
	for i := range out {
		v := corners.GetVecfAt(i, 0)
		out[i] = r2.Point{X: float64(v[0]), Y: float64(v[1])}
	}
	return out, nil
}
