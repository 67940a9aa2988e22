package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// normalizePoints centers the points on their centroid and scales them so that their mean distance
// to the origin is sqrt(2). It returns the transformed points and the 3x3 transform applied.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense, error) {
	nPoints := len(pts)
	mu := r2.Point{}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))

	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	if d == 0 {
		return nil, nil, errors.Wrap(ErrDegenerateCorrespondences, "all points coincide")
	}
	scale := math.Sqrt(2) / d
	transform := mat.NewDense(3, 3, []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	})
	pointsTransformed := make([]r2.Point, nPoints)
	for i, pt := range pts {
		pointsTransformed[i] = pt.Sub(mu).Mul(scale)
	}
	return pointsTransformed, transform, nil
}

// NullVector returns the unit right singular vector of a for its smallest singular value, i.e. the
// least squares solution of a*x = 0 with |x| = 1.
func NullVector(a mat.Matrix) ([]float64, error) {
	x, _, err := NullVectorWithValues(a)
	return x, err
}

// NullVectorWithValues is NullVector that also returns the singular values of a, largest first.
// Callers use them to tell whether the null space is one dimensional.
func NullVectorWithValues(a mat.Matrix) ([]float64, []float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDFull); !ok {
		return nil, nil, errors.New("SVD factorization failed")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, c := v.Dims()
	return mat.Col(nil, c-1, &v), svd.Values(nil), nil
}
