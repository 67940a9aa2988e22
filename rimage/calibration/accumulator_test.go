package calibration

import (
	"context"
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/testutils/calibtest"
)

func TestAccumulate(t *testing.T) {
	scene := calibtest.NewStandardScene()
	views := scene.Project()
	images := placeholderImages(scene, len(views))
	logger := logging.NewTestLogger(t)

	t.Run("keeps image order", func(t *testing.T) {
		set, diags, err := Accumulate(context.Background(), images, targetOf(scene.Board),
			lookupDetector(images, views), AccumulateOptions{Workers: 3, Logger: logger})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, diags, test.ShouldBeEmpty)
		test.That(t, set.ImageSize, test.ShouldResemble, ImageSize{Width: 640, Height: 480})
		test.That(t, set.Views, test.ShouldHaveLength, len(views))
		for i, v := range set.Views {
			test.That(t, v.Index, test.ShouldEqual, i)
			test.That(t, v.Detected, test.ShouldBeTrue)
			test.That(t, v.Corners, test.ShouldResemble, views[i])
		}
		test.That(t, set.Validate(), test.ShouldBeNil)
	})

	t.Run("skips undetected images", func(t *testing.T) {
		corners := append([][]r2.Point(nil), views...)
		corners[2] = nil
		corners[5] = corners[5][:10]
		set, diags, err := Accumulate(context.Background(), images, targetOf(scene.Board),
			lookupDetector(images, corners), AccumulateOptions{Logger: logger})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, set.Views, test.ShouldHaveLength, len(views)-2)
		test.That(t, diags, test.ShouldHaveLength, 2)
		test.That(t, diags[0].Index, test.ShouldEqual, 2)
		test.That(t, diags[0].Stage, test.ShouldEqual, StageDetect)
		test.That(t, errors.Is(diags[0], ErrNotDetected), test.ShouldBeTrue)
		test.That(t, diags[1].Index, test.ShouldEqual, 5)
		test.That(t, errors.Is(diags[1].Err, ErrNotDetected), test.ShouldBeTrue)
		for _, v := range set.Views {
			test.That(t, v.Index, test.ShouldNotBeIn, 2, 5)
		}
	})

	t.Run("skips images of another size", func(t *testing.T) {
		odd := append([]image.Image(nil), images...)
		odd[3] = image.NewGray(image.Rect(0, 0, 320, 240))
		calls := atomic.NewInt32(0)
		detector := lookupDetector(images, views)
		counting := DetectorFunc(func(img image.Image, rows, cols int) ViewObservation {
			calls.Inc()
			return detector.Detect(img, rows, cols)
		})
		set, diags, err := Accumulate(context.Background(), odd, targetOf(scene.Board), counting,
			AccumulateOptions{Workers: 1, Logger: logger})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, int(calls.Load()), test.ShouldEqual, len(images)-1)
		test.That(t, set.Views, test.ShouldHaveLength, len(views)-1)
		test.That(t, diags, test.ShouldHaveLength, 1)
		test.That(t, diags[0].Index, test.ShouldEqual, 3)
		test.That(t, errors.Is(diags[0], ErrImageSizeMismatch), test.ShouldBeTrue)
	})

	t.Run("no images", func(t *testing.T) {
		_, _, err := Accumulate(context.Background(), nil, targetOf(scene.Board), lookupDetector(nil, nil), AccumulateOptions{})
		test.That(t, err, test.ShouldBeError, ErrEmptyInput)
	})

	t.Run("nothing detected", func(t *testing.T) {
		_, diags, err := Accumulate(context.Background(), images, targetOf(scene.Board),
			lookupDetector(nil, nil), AccumulateOptions{})
		test.That(t, errors.Is(err, ErrEmptyCorrespondences), test.ShouldBeTrue)
		test.That(t, diags, test.ShouldHaveLength, len(images))
	})

	t.Run("invalid target", func(t *testing.T) {
		_, _, err := Accumulate(context.Background(), images, CalibrationTarget{Rows: 5, Cols: 7},
			lookupDetector(images, views), AccumulateOptions{})
		test.That(t, errors.Is(err, ErrInvalidTarget), test.ShouldBeTrue)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		set, _, err := Accumulate(ctx, images, targetOf(scene.Board), lookupDetector(images, views), AccumulateOptions{})
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
		test.That(t, set, test.ShouldBeNil)
	})
}

type fakeFinder struct {
	corners []r2.Point
	err     error
}

func (f *fakeFinder) FindCorners(image.Image, int, int) ([]r2.Point, error) {
	return f.corners, f.err
}

func TestNewDetector(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	corners := []r2.Point{{X: 1, Y: 1}, {X: 2, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 2}}

	obs := NewDetector(&fakeFinder{corners: corners}).Detect(img, 2, 2)
	test.That(t, obs.Detected, test.ShouldBeTrue)
	test.That(t, obs.Corners, test.ShouldResemble, corners)

	obs = NewDetector(&fakeFinder{err: errors.New("not found")}).Detect(img, 2, 2)
	test.That(t, obs.Detected, test.ShouldBeFalse)
	test.That(t, obs.Corners, test.ShouldBeNil)

	obs = NewDetector(&fakeFinder{corners: corners[:3]}).Detect(img, 2, 2)
	test.That(t, obs.Detected, test.ShouldBeFalse)
}
