package calibration

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestCalibrationTargetValidate(t *testing.T) {
	test.That(t, DefaultTarget.Validate(), test.ShouldBeNil)
	for _, target := range []CalibrationTarget{
		{Rows: 1, Cols: 7, SquareSize: 0.03},
		{Rows: 5, Cols: 0, SquareSize: 0.03},
		{Rows: 5, Cols: 7, SquareSize: 0},
		{Rows: 5, Cols: 7, SquareSize: -1},
	} {
		err := target.Validate()
		test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
	}
}

func TestObjectPoints(t *testing.T) {
	pts := DefaultTarget.ObjectPoints()
	test.That(t, pts, test.ShouldHaveLength, 35)
	test.That(t, DefaultTarget.NumCorners(), test.ShouldEqual, 35)
	test.That(t, pts[0], test.ShouldResemble, r3.Vector{})
	// columns vary fastest
	test.That(t, pts[1], test.ShouldResemble, r3.Vector{X: 0.03})
	test.That(t, pts[7], test.ShouldResemble, r3.Vector{Y: 0.03})
	test.That(t, pts[8], test.ShouldResemble, r3.Vector{X: 0.03, Y: 0.03})
	test.That(t, pts[34].X, test.ShouldAlmostEqual, 0.18)
	test.That(t, pts[34].Y, test.ShouldAlmostEqual, 0.12)
	for _, p := range pts {
		test.That(t, p.Z, test.ShouldEqual, 0)
	}
}

func TestCorrespondenceSetValidate(t *testing.T) {
	target := CalibrationTarget{Rows: 2, Cols: 2, SquareSize: 1}
	set := &CorrespondenceSet{Target: target, ImageSize: ImageSize{Width: 10, Height: 10}}
	test.That(t, errors.Is(set.Validate(), ErrEmptyCorrespondences), test.ShouldBeTrue)

	set.Views = []ViewObservation{{Index: 0, Corners: make([]r2.Point, 4), Detected: true}}
	test.That(t, set.Validate(), test.ShouldBeNil)

	set.Views = append(set.Views, ViewObservation{Index: 1})
	test.That(t, set.Validate(), test.ShouldNotBeNil)

	set.Views[1] = ViewObservation{Index: 1, Corners: make([]r2.Point, 3), Detected: true}
	err := set.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "has 3 corners, expected 4")

	set.Views = set.Views[:1]
	set.ImageSize = ImageSize{}
	test.That(t, set.Validate(), test.ShouldNotBeNil)
}
