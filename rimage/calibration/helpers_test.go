package calibration

import (
	"image"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/camcal/testutils/calibtest"
)

func targetOf(b calibtest.Board) CalibrationTarget {
	return CalibrationTarget{Rows: b.Rows, Cols: b.Cols, SquareSize: b.SquareSize}
}

func intrinsicsOf(scene *calibtest.Scene) CameraIntrinsics {
	cam := scene.Camera
	return CameraIntrinsics{
		Fx: cam.Fx, Fy: cam.Fy, Cx: cam.Ppx, Cy: cam.Ppy,
		K1: cam.Distortion.RadialK1, K2: cam.Distortion.RadialK2, K3: cam.Distortion.RadialK3,
		P1: cam.Distortion.TangentialP1, P2: cam.Distortion.TangentialP2,
	}
}

// exactEstimate is the ground truth of the scene.
func exactEstimate(scene *calibtest.Scene) *Estimate {
	est := &Estimate{Intrinsics: intrinsicsOf(scene)}
	for i, p := range scene.Poses {
		est.Poses = append(est.Poses, ViewPose{Rotation: p.Rotation, Translation: p.Translation})
		est.Views = append(est.Views, i)
	}
	return est
}

func correspondences(scene *calibtest.Scene, views [][]r2.Point) *CorrespondenceSet {
	set := &CorrespondenceSet{
		Target:    targetOf(scene.Board),
		ImageSize: ImageSize{Width: scene.Camera.Width, Height: scene.Camera.Height},
	}
	for i, corners := range views {
		set.Views = append(set.Views, ViewObservation{Index: i, Corners: corners, Detected: true})
	}
	return set
}

// placeholderImages returns n distinct blank images of the scene's size.
func placeholderImages(scene *calibtest.Scene, n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = image.NewGray(image.Rect(0, 0, scene.Camera.Width, scene.Camera.Height))
	}
	return out
}

// lookupDetector answers with the given corners for the image at the same position in images, and
// finds nothing in images it does not know or whose corners are nil.
func lookupDetector(images []image.Image, corners [][]r2.Point) Detector {
	byImage := map[image.Image][]r2.Point{}
	for i, img := range images {
		byImage[img] = corners[i]
	}
	return DetectorFunc(func(img image.Image, rows, cols int) ViewObservation {
		c, ok := byImage[img]
		if !ok || c == nil {
			return ViewObservation{}
		}
		return ViewObservation{Corners: c, Detected: true}
	})
}

func assertIntrinsicsClose(t *testing.T, got, want CameraIntrinsics, relFocal, absDistortion float64) {
	t.Helper()
	test.That(t, got.Fx, test.ShouldAlmostEqual, want.Fx, relFocal*want.Fx)
	test.That(t, got.Fy, test.ShouldAlmostEqual, want.Fy, relFocal*want.Fy)
	test.That(t, got.Cx, test.ShouldAlmostEqual, want.Cx, relFocal*want.Cx)
	test.That(t, got.Cy, test.ShouldAlmostEqual, want.Cy, relFocal*want.Cy)
	test.That(t, got.K1, test.ShouldAlmostEqual, want.K1, absDistortion)
	test.That(t, got.K2, test.ShouldAlmostEqual, want.K2, absDistortion)
	test.That(t, got.K3, test.ShouldAlmostEqual, want.K3, absDistortion)
	test.That(t, got.P1, test.ShouldAlmostEqual, want.P1, absDistortion)
	test.That(t, got.P2, test.ShouldAlmostEqual, want.P2, absDistortion)
}
