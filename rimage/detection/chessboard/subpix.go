package chessboard

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage"
)

// dblEpsilonSquared is the determinant below which the normal equations are treated as singular.
const dblEpsilonSquared = 2.220446049250313e-16 * 2.220446049250313e-16

// cornerSubPixMask returns the (2*half+1)² Gaussian weights exp(-(i/half)²) * exp(-(j/half)²).
func cornerSubPixMask(half int) [][]float64 {
	size := 2*half + 1
	mask := make([][]float64, size)
	for i := 0; i < size; i++ {
		y := float64(i-half) / float64(half)
		vy := math.Exp(-y * y)
		mask[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			x := float64(j-half) / float64(half)
			mask[i][j] = vy * math.Exp(-x*x)
		}
	}
	return mask
}

// CornerSubPix refines corner positions to sub-pixel accuracy. At the true corner every image
// gradient in the window is orthogonal to the vector from the corner to the gradient's position,
// so each iteration solves the weighted least squares system
//
//	sum(g gᵀ) q = sum(g gᵀ p)
//
// over a bilinearly sampled window centered on the current estimate, for the new estimate q. It
// stops when the squared update is at most eps², after maxIter iterations, or when the system is
// singular. A corner that ends further than the window half size from its start is left unchanged.
func CornerSubPix(gray *mat.Dense, corners []r2.Point, cfg *SubPixConfiguration) []r2.Point {
	half := cfg.WindowHalfSize
	size := 2*half + 1
	mask := cornerSubPixMask(half)
	eps := cfg.Epsilon * cfg.Epsilon
	h, w := gray.Dims()

	// sampled window with a one pixel margin for the central differences
	patch := make([][]float64, size+2)
	for i := range patch {
		patch[i] = make([]float64, size+2)
	}

	refined := make([]r2.Point, len(corners))
	for k, start := range corners {
		cur := start
		for iter := 0; iter < cfg.MaxIterations; iter++ {
			for i := 0; i < size+2; i++ {
				for j := 0; j < size+2; j++ {
					patch[i][j] = rimage.BilinearAt(gray, cur.X-float64(half+1)+float64(j), cur.Y-float64(half+1)+float64(i))
				}
			}

			var a, b, c, bb1, bb2 float64
			for i := 0; i < size; i++ {
				py := float64(i - half)
				for j := 0; j < size; j++ {
					px := float64(j - half)
					m := mask[i][j]
					tgx := patch[i+1][j+2] - patch[i+1][j]
					tgy := patch[i+2][j+1] - patch[i][j+1]
					gxx := tgx * tgx * m
					gxy := tgx * tgy * m
					gyy := tgy * tgy * m
					a += gxx
					b += gxy
					c += gyy
					bb1 += gxx*px + gxy*py
					bb2 += gxy*px + gyy*py
				}
			}

			det := a*c - b*b
			if math.Abs(det) <= dblEpsilonSquared {
				break
			}
			scale := 1 / det
			next := r2.Point{
				X: cur.X + c*scale*bb1 - b*scale*bb2,
				Y: cur.Y - b*scale*bb1 + a*scale*bb2,
			}
			step := next.Sub(cur)
			cur = next
			if cur.X < 0 || cur.X >= float64(w) || cur.Y < 0 || cur.Y >= float64(h) {
				break
			}
			if step.Dot(step) <= eps {
				break
			}
		}
		if math.Abs(cur.X-start.X) > float64(half) || math.Abs(cur.Y-start.Y) > float64(half) {
			cur = start
		}
		refined[k] = cur
	}
	return refined
}
