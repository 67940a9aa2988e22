package chessboard

import (
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

// renderJunction returns a size x size anti-aliased X-junction centered at c.
func renderJunction(size int, c r2.Point) *mat.Dense {
	const ss = 8
	m := mat.NewDense(size, size, nil)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			sum := 0.
			for i := 0; i < ss; i++ {
				sy := float64(y) + (float64(i)+0.5)/ss - 0.5
				for j := 0; j < ss; j++ {
					sx := float64(x) + (float64(j)+0.5)/ss - 0.5
					if (sx < c.X) == (sy < c.Y) {
						sum += 30
					} else {
						sum += 225
					}
				}
			}
			m.Set(y, x, sum/(ss*ss))
		}
	}
	return m
}

func TestCornerSubPixMask(t *testing.T) {
	mask := cornerSubPixMask(5)
	test.That(t, mask, test.ShouldHaveLength, 11)
	test.That(t, mask[5][5], test.ShouldEqual, 1)
	test.That(t, mask[0][5], test.ShouldAlmostEqual, 0.36787944117144233)
	test.That(t, mask[0][0], test.ShouldAlmostEqual, mask[10][10])
	test.That(t, mask[2][7], test.ShouldAlmostEqual, mask[7][2])
}

func TestCornerSubPix(t *testing.T) {
	truth := r2.Point{X: 20.3, Y: 19.6}
	gray := renderJunction(41, truth)

	starts := []r2.Point{{X: 22, Y: 18}, {X: 19, Y: 21}, {X: 20, Y: 20}}
	refined := CornerSubPix(gray, starts, &DefaultSubPixConf)
	test.That(t, refined, test.ShouldHaveLength, len(starts))
	for _, p := range refined {
		test.That(t, p.X, test.ShouldAlmostEqual, truth.X, 0.05)
		test.That(t, p.Y, test.ShouldAlmostEqual, truth.Y, 0.05)
	}
}

func TestCornerSubPixFlat(t *testing.T) {
	// no gradient: the system is singular and the corner is kept
	gray := mat.NewDense(30, 30, nil)
	start := []r2.Point{{X: 12.5, Y: 14}}
	test.That(t, CornerSubPix(gray, start, &DefaultSubPixConf), test.ShouldResemble, start)
}
