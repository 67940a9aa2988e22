package rimage

import (
	"testing"

	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func rampX(h, w int, slope float64) *mat.Dense {
	m := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			m.Set(y, x, slope*float64(x))
		}
	}
	return m
}

func TestConvolveGrayFloat64Sobel(t *testing.T) {
	m := rampX(6, 8, 3)
	kernel := GetSobelX()
	gx, err := ConvolveGrayFloat64(m, &kernel)
	test.That(t, err, test.ShouldBeNil)
	h, w := gx.Dims()
	test.That(t, h, test.ShouldEqual, 6)
	test.That(t, w, test.ShouldEqual, 8)
	// interior: (x+1 - (x-1)) * slope * (1 + 2 + 1)
	test.That(t, gx.At(3, 4), test.ShouldEqual, 24)
	// replicated border halves the difference
	test.That(t, gx.At(0, 0), test.ShouldEqual, 12)
	test.That(t, gx.At(5, 7), test.ShouldEqual, 12)

	kernel = GetSobelY()
	gy, err := ConvolveGrayFloat64(m, &kernel)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Max(gy), test.ShouldEqual, 0)
	test.That(t, mat.Min(gy), test.ShouldEqual, 0)
}

func TestConvolveGrayFloat64Gaussian(t *testing.T) {
	kernel := GetGaussian(1.2)
	test.That(t, kernel.Width, test.ShouldEqual, 11)
	test.That(t, kernel.At(5, 5), test.ShouldBeGreaterThan, kernel.At(4, 5))
	test.That(t, kernel.At(4, 5), test.ShouldAlmostEqual, kernel.At(5, 6))

	constant := mat.NewDense(9, 9, nil)
	constant.Apply(func(_, _ int, _ float64) float64 { return 42 }, constant)
	blurred, err := ConvolveGrayFloat64(constant, &kernel)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, blurred.At(0, 0), test.ShouldAlmostEqual, 42)
	test.That(t, blurred.At(4, 4), test.ShouldAlmostEqual, 42)

	even := Kernel{[][]float64{{1, 1}, {1, 1}}, 2, 2}
	_, err = ConvolveGrayFloat64(constant, &even)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBilinearAt(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{0, 10, 20, 30})
	test.That(t, BilinearAt(m, 0.5, 0.5), test.ShouldEqual, 15)
	test.That(t, BilinearAt(m, 0, 0), test.ShouldEqual, 0)
	test.That(t, BilinearAt(m, 1, 1), test.ShouldEqual, 30)
	test.That(t, BilinearAt(m, -3, 0), test.ShouldEqual, 0)
	test.That(t, BilinearAt(m, 0.25, 1), test.ShouldEqual, 22.5)
	test.That(t, BilinearAt(m, 5, 5), test.ShouldEqual, 30)
}
