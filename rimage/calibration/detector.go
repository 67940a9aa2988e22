package calibration

import (
	"image"

	"github.com/golang/geo/r2"
)

// A Detector finds the rows x cols corners of the calibration pattern in an image. The Index of
// the returned observation is set by the caller.
type Detector interface {
	Detect(img image.Image, rows, cols int) ViewObservation
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(img image.Image, rows, cols int) ViewObservation

// Detect calls f.
func (f DetectorFunc) Detect(img image.Image, rows, cols int) ViewObservation {
	return f(img, rows, cols)
}

// A CornerFinder returns the rows*cols pattern corners of an image in raster order, or an error
// when the pattern is not visible.
type CornerFinder interface {
	FindCorners(img image.Image, rows, cols int) ([]r2.Point, error)
}

type finderDetector struct {
	finder CornerFinder
}

// NewDetector wraps a CornerFinder into a Detector. Any finder error, or a wrong corner count,
// yields an undetected view.
func NewDetector(finder CornerFinder) Detector {
	return &finderDetector{finder: finder}
}

func (d *finderDetector) Detect(img image.Image, rows, cols int) ViewObservation {
	corners, err := d.finder.FindCorners(img, rows, cols)
	if err != nil || len(corners) != rows*cols {
		return ViewObservation{}
	}
	return ViewObservation{Corners: corners, Detected: true}
}
