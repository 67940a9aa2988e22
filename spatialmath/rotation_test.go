package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

var (
	th    = math.Pi / 4.
	q45x  = quat.Number{Real: math.Cos(th / 2.), Imag: math.Sin(th / 2.)}
	aa45x = &R4AA{th, 1., 0., 0.}
)

func assertMatrixAlmostEqual(t *testing.T, a, b *RotationMatrix, epsilon float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			test.That(t, a.At(i, j), test.ShouldAlmostEqual, b.At(i, j), epsilon)
		}
	}
}

func TestR4AAQuaternion(t *testing.T) {
	q := aa45x.ToQuat()
	test.That(t, q.Real, test.ShouldAlmostEqual, q45x.Real)
	test.That(t, q.Imag, test.ShouldAlmostEqual, q45x.Imag)
	test.That(t, q.Jmag, test.ShouldAlmostEqual, 0)
	test.That(t, q.Kmag, test.ShouldAlmostEqual, 0)

	back := QuatToR4AA(q)
	test.That(t, back.Theta, test.ShouldAlmostEqual, th)
	test.That(t, back.RX, test.ShouldAlmostEqual, 1)

	test.That(t, R3ToR4(r3.Vector{}), test.ShouldResemble, NewR4AA())
	test.That(t, QuatToR4AA(quat.Number{Real: 1}), test.ShouldResemble, NewR4AA())
}

func TestRotationMatrixOf45DegreesAboutX(t *testing.T) {
	rm := R3ToRotationMatrix(aa45x.ToR3())
	c, s := math.Cos(th), math.Sin(th)
	expected := NewRotationMatrix([]float64{1, 0, 0, 0, c, -s, 0, s, c})
	assertMatrixAlmostEqual(t, rm, expected, 1e-12)

	v := rm.Mul(r3.Vector{Y: 1})
	test.That(t, v.Y, test.ShouldAlmostEqual, c)
	test.That(t, v.Z, test.ShouldAlmostEqual, s)
	test.That(t, rm.Col(1), test.ShouldResemble, v)
}

func TestAxisAngleRoundTrip(t *testing.T) {
	for _, aa := range []r3.Vector{
		{X: 0.1, Y: -0.2, Z: 0.3},
		{X: 1e-9},
		{Z: math.Pi - 1e-6},
		{X: 2, Y: 0.5, Z: -1},
		{X: -0.7, Y: 0.7, Z: 0.01},
	} {
		back := R3ToRotationMatrix(aa).AxisAngle()
		test.That(t, back.X, test.ShouldAlmostEqual, aa.X, 1e-9)
		test.That(t, back.Y, test.ShouldAlmostEqual, aa.Y, 1e-9)
		test.That(t, back.Z, test.ShouldAlmostEqual, aa.Z, 1e-9)
	}
}

func TestOrthonormalizeRotation(t *testing.T) {
	truth := R3ToRotationMatrix(r3.Vector{X: 0.2, Y: 0.4, Z: -0.1})
	noisy := truth.Dense()
	noisy.Set(0, 1, noisy.At(0, 1)+1e-3)
	noisy.Set(2, 2, noisy.At(2, 2)*1.01)

	rm, ok := OrthonormalizeRotation(noisy)
	test.That(t, ok, test.ShouldBeTrue)
	assertMatrixAlmostEqual(t, rm, truth, 1e-2)

	var rtr mat.Dense
	rtr.Mul(rm.Dense().T(), rm.Dense())
	test.That(t, mat.EqualApprox(&rtr, mat.NewDiagDense(3, []float64{1, 1, 1}), 1e-12), test.ShouldBeTrue)
	test.That(t, mat.Det(rm.Dense()), test.ShouldAlmostEqual, 1, 1e-12)

	// A reflection is mapped to a proper rotation.
	reflected := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, -1})
	rm, ok = OrthonormalizeRotation(reflected)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, mat.Det(rm.Dense()), test.ShouldAlmostEqual, 1, 1e-12)
}
