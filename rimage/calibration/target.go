// Package calibration estimates the intrinsic parameters of a pinhole camera with lens distortion
// from several views of a planar chessboard. Corners found in every image are paired with the
// known board geometry, a closed form estimate is computed from the plane homographies and then
// refined by minimizing the reprojection error with Levenberg-Marquardt.
package calibration

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// CalibrationTarget describes a chessboard by its interior corner counts and square size.
type CalibrationTarget struct {
	Rows       int     `json:"rows"`
	Cols       int     `json:"cols"`
	SquareSize float64 `json:"square_size"`
}

// DefaultTarget is a 7x5 corner board with 3 cm squares, the US letter calibration sheet.
var DefaultTarget = CalibrationTarget{Rows: 5, Cols: 7, SquareSize: 0.03}

// Validate checks that the target has at least 2x2 corners and a positive square size.
func (t CalibrationTarget) Validate() error {
	if t.Rows < 2 || t.Cols < 2 {
		return errors.Wrapf(ErrInvalidTarget, "need at least 2x2 corners, got %dx%d", t.Rows, t.Cols)
	}
	if t.SquareSize <= 0 {
		return errors.Wrapf(ErrInvalidTarget, "square size must be positive, got %v", t.SquareSize)
	}
	return nil
}

// NumCorners is the number of interior corners of the board.
func (t CalibrationTarget) NumCorners() int {
	return t.Rows * t.Cols
}

// ObjectPoints returns the corners in the board frame. Index r*Cols+c is the corner at
// (c*SquareSize, r*SquareSize, 0).
func (t CalibrationTarget) ObjectPoints() []r3.Vector {
	pts := make([]r3.Vector, 0, t.NumCorners())
	for r := 0; r < t.Rows; r++ {
		for c := 0; c < t.Cols; c++ {
			pts = append(pts, r3.Vector{X: float64(c) * t.SquareSize, Y: float64(r) * t.SquareSize})
		}
	}
	return pts
}
