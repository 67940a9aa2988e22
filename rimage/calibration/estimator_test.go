package calibration

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/testutils/calibtest"
)

// pinholeScene is the standard scene without lens distortion, where the closed form is exact.
func pinholeScene() *calibtest.Scene {
	scene := calibtest.NewStandardScene()
	scene.Camera.Distortion = &transform.BrownConrady{}
	return scene
}

func TestEstimateInitialExact(t *testing.T) {
	scene := pinholeScene()
	set := correspondences(scene, scene.Project())

	est, diags, err := EstimateInitial(set)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diags, test.ShouldBeEmpty)
	test.That(t, est.Views, test.ShouldResemble, []int{0, 1, 2, 3, 4, 5, 6, 7})
	assertIntrinsicsClose(t, est.Intrinsics, intrinsicsOf(scene), 1e-6, 1e-12)

	for i, pose := range est.Poses {
		want := scene.Poses[i]
		test.That(t, pose.Rotation.Sub(want.Rotation).Norm(), test.ShouldBeLessThan, 1e-6)
		test.That(t, pose.Translation.Sub(want.Translation).Norm(), test.ShouldBeLessThan, 1e-6)
	}
}

func TestEstimateInitialWithDistortion(t *testing.T) {
	// the closed form ignores distortion, so it only lands close to the truth
	scene := calibtest.NewStandardScene()
	est, _, err := EstimateInitial(correspondences(scene, scene.Project()))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, est.Intrinsics.Fx, test.ShouldAlmostEqual, scene.Camera.Fx, 0.1*scene.Camera.Fx)
	test.That(t, est.Intrinsics.Fy, test.ShouldAlmostEqual, scene.Camera.Fy, 0.1*scene.Camera.Fy)
	test.That(t, est.Intrinsics.K1, test.ShouldEqual, 0)
	for _, pose := range est.Poses {
		test.That(t, pose.Translation.Z, test.ShouldBeGreaterThan, 0)
	}
}

func TestEstimateInitialDegenerateView(t *testing.T) {
	scene := pinholeScene()
	views := scene.Project()
	// every corner of view 4 on a single line
	collinear := make([]r2.Point, len(views[4]))
	for i := range collinear {
		collinear[i] = r2.Point{X: float64(i), Y: 2 * float64(i)}
	}
	views[4] = collinear
	set := correspondences(scene, views)

	est, diags, err := EstimateInitial(set)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diags, test.ShouldHaveLength, 1)
	test.That(t, diags[0].Index, test.ShouldEqual, 4)
	test.That(t, diags[0].Stage, test.ShouldEqual, StageEstimate)
	test.That(t, errors.Is(diags[0], ErrDegenerateView), test.ShouldBeTrue)
	test.That(t, est.Views, test.ShouldResemble, []int{0, 1, 2, 3, 5, 6, 7})
	test.That(t, est.Poses, test.ShouldHaveLength, 7)
	assertIntrinsicsClose(t, est.Intrinsics, intrinsicsOf(scene), 1e-6, 1e-12)
}

func TestEstimateInitialTooFewViews(t *testing.T) {
	scene := pinholeScene()
	views := scene.Project()

	_, _, err := EstimateInitial(correspondences(scene, views[:2]))
	test.That(t, errors.Is(err, ErrUnderdeterminedSystem), test.ShouldBeTrue)

	// three views, one of them unusable
	views[1] = make([]r2.Point, len(views[1]))
	_, diags, err := EstimateInitial(correspondences(scene, views[:3]))
	test.That(t, errors.Is(err, ErrUnderdeterminedSystem), test.ShouldBeTrue)
	test.That(t, diags, test.ShouldHaveLength, 1)

	_, _, err = EstimateInitial(&CorrespondenceSet{Target: DefaultTarget, ImageSize: ImageSize{Width: 1, Height: 1}})
	test.That(t, errors.Is(err, ErrEmptyCorrespondences), test.ShouldBeTrue)
}

func TestEstimateInitialThreeViews(t *testing.T) {
	scene := pinholeScene()
	views := scene.Project()
	est, _, err := EstimateInitial(correspondences(scene, views[1:4]))
	test.That(t, err, test.ShouldBeNil)
	assertIntrinsicsClose(t, est.Intrinsics, intrinsicsOf(scene), 1e-5, 1e-12)
}

func TestEstimateInitialRepeatedViews(t *testing.T) {
	scene := pinholeScene()
	views := scene.Project()
	for a := range views {
		for b := a + 1; b < len(views); b++ {
			set := correspondences(scene, [][]r2.Point{views[a], views[b], views[a], views[b]})
			_, _, err := EstimateInitial(set)
			test.That(t, errors.Is(err, ErrUnderdeterminedSystem), test.ShouldBeTrue)
		}
	}

	// a third distinct pose is enough
	set := correspondences(scene, [][]r2.Point{views[1], views[2], views[1], views[3]})
	est, _, err := EstimateInitial(set)
	test.That(t, err, test.ShouldBeNil)
	assertIntrinsicsClose(t, est.Intrinsics, intrinsicsOf(scene), 1e-5, 1e-12)
}

func TestConicConstraint(t *testing.T) {
	// h_iᵀ B h_j for B = identity is the dot product of the columns
	h := transform.Homography{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	v := conicConstraint(&h, 0, 1)
	b := [6]float64{1, 0, 1, 0, 0, 1}
	dot := 0.
	for k := range v {
		dot += v[k] * b[k]
	}
	test.That(t, dot, test.ShouldAlmostEqual, 1*2+4*5+7*8)
}
