package calibration

import (
	"context"
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/testutils/calibtest"
)

func TestPackParamsRoundTrip(t *testing.T) {
	scene := calibtest.NewStandardScene()
	est := exactEstimate(scene)
	x := packParams(est)
	test.That(t, x, test.ShouldHaveLength, numIntrinsicParams+numPoseParams*len(scene.Poses))
	test.That(t, x[:numIntrinsicParams], test.ShouldResemble, []float64{800, 810, 322, 238, -0.12, 0.05, 0.001, -0.0008, 0})
	test.That(t, unpackParams(x, est.Views), test.ShouldResemble, est)
}

func TestReprojectionJacobian(t *testing.T) {
	scene := calibtest.NewStandardScene()
	set := correspondences(scene, calibtest.AddNoise(scene.Project(), 0.5, 1))
	est := exactEstimate(scene)
	problem := &reprojectionProblem{object: set.Target.ObjectPoints()}
	for _, v := range set.Views {
		problem.views = append(problem.views, v.Corners)
	}
	x := packParams(est)

	analytic := mat.NewDense(problem.NumResiduals(), problem.NumParams(), nil)
	problem.Jacobian(analytic, x)
	numeric := mat.NewDense(problem.NumResiduals(), problem.NumParams(), nil)
	fd.Jacobian(numeric, func(r, x []float64) { problem.Residuals(r, x) }, x, &fd.JacobianSettings{Formula: fd.Central})

	rows, cols := analytic.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			want := numeric.At(i, j)
			test.That(t, analytic.At(i, j), test.ShouldAlmostEqual, want, 1e-4*math.Max(1, math.Abs(want)))
		}
	}
}

func TestRefineRecoversPerturbedEstimate(t *testing.T) {
	scene := calibtest.NewStandardScene()
	set := correspondences(scene, scene.Project())
	start := exactEstimate(scene)
	start.Intrinsics.Fx *= 1.03
	start.Intrinsics.Fy *= 0.98
	start.Intrinsics.Cx += 6
	start.Intrinsics.Cy -= 4
	start.Intrinsics.K1 = 0
	start.Intrinsics.K2 = 0
	start.Intrinsics.P1 = 0
	start.Intrinsics.P2 = 0
	for i := range start.Poses {
		start.Poses[i].Rotation = start.Poses[i].Rotation.Add(r3.Vector{X: 0.01, Y: -0.01})
		start.Poses[i].Translation = start.Poses[i].Translation.Add(r3.Vector{Z: 0.01})
	}

	refined, solver, err := refine(context.Background(), start, set, DefaultTermCriteria)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solver.Converged, test.ShouldBeTrue)
	assertIntrinsicsClose(t, refined.Intrinsics, intrinsicsOf(scene), 1e-3, 1e-3)
	test.That(t, refined.Views, test.ShouldResemble, start.Views)
	for i, pose := range refined.Poses {
		test.That(t, pose.Rotation.Sub(scene.Poses[i].Rotation).Norm(), test.ShouldBeLessThan, 1e-3)
		test.That(t, pose.Translation.Sub(scene.Poses[i].Translation).Norm(), test.ShouldBeLessThan, 1e-3)
	}
}

func TestRefineSubset(t *testing.T) {
	scene := calibtest.NewStandardScene()
	set := correspondences(scene, scene.Project())
	est := exactEstimate(scene)
	est.Views = []int{1, 3, 5, 7}
	est.Poses = []ViewPose{est.Poses[1], est.Poses[3], est.Poses[5], est.Poses[7]}

	refined, err := Refine(context.Background(), est, set, DefaultTermCriteria)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, refined.Views, test.ShouldResemble, []int{1, 3, 5, 7})
	assertIntrinsicsClose(t, refined.Intrinsics, intrinsicsOf(scene), 1e-6, 1e-6)
}

func TestRefineErrors(t *testing.T) {
	scene := calibtest.NewStandardScene()
	set := correspondences(scene, scene.Project())

	est := exactEstimate(scene)
	_, err := Refine(context.Background(), est, set, TermCriteria{})
	test.That(t, err, test.ShouldNotBeNil)

	est.Views = est.Views[:3]
	_, err = Refine(context.Background(), est, set, DefaultTermCriteria)
	test.That(t, err, test.ShouldNotBeNil)

	est = exactEstimate(scene)
	est.Views[0] = 42
	_, err = Refine(context.Background(), est, set, DefaultTermCriteria)
	test.That(t, err, test.ShouldNotBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Refine(ctx, exactEstimate(scene), set, DefaultTermCriteria)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}
