package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerateCorrespondences is returned when point correspondences do not constrain a homography.
var ErrDegenerateCorrespondences = errors.New("degenerate point correspondences")

// Homography is a 3x3 matrix (represented as a 2D array) mapping points of one plane to another.
// Indices are [row][column].
type Homography [3][3]float64

// At returns the element at row, col.
func (h *Homography) At(row, col int) float64 {
	return h[row][col]
}

// Apply maps pt through the homography.
func (h *Homography) Apply(pt r2.Point) r2.Point {
	x := h[0][0]*pt.X + h[0][1]*pt.Y + h[0][2]
	y := h[1][0]*pt.X + h[1][1]*pt.Y + h[1][2]
	z := h[2][0]*pt.X + h[2][1]*pt.Y + h[2][2]
	return r2.Point{X: x / z, Y: y / z}
}

// Column returns column j as a 3-vector.
func (h *Homography) Column(j int) [3]float64 {
	return [3]float64{h[0][j], h[1][j], h[2][j]}
}

// Dense returns the homography as a gonum matrix.
func (h *Homography) Dense() *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, h[i][j])
		}
	}
	return m
}

// Inverse returns the inverse homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.Dense()); err != nil {
		return nil, errors.Wrap(err, "homography is not invertible")
	}
	return homographyFromDense(&inv), nil
}

func homographyFromDense(m mat.Matrix) *Homography {
	var h Homography
	scale := m.At(2, 2)
	if math.Abs(scale) < 1e-12 {
		scale = 1
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] = m.At(i, j) / scale
		}
	}
	return &h
}

// EstimateHomography computes the homography mapping src onto dst with the normalized direct
// linear transform: both point sets are centered and scaled to a mean distance of sqrt(2), the
// 2n x 9 system is solved through its smallest singular vector, and the normalization is undone.
// At least 4 correspondences are needed, and they must not be collinear.
func EstimateHomography(src, dst []r2.Point) (*Homography, error) {
	if len(src) != len(dst) {
		return nil, errors.Errorf("point count mismatch: %d != %d", len(src), len(dst))
	}
	if len(src) < 4 {
		return nil, errors.Wrapf(ErrDegenerateCorrespondences, "need at least 4 points, got %d", len(src))
	}
	if isCollinear(src) || isCollinear(dst) {
		return nil, errors.Wrap(ErrDegenerateCorrespondences, "points are collinear")
	}

	srcNorm, tSrc, err := normalizePoints(src)
	if err != nil {
		return nil, err
	}
	dstNorm, tDst, err := normalizePoints(dst)
	if err != nil {
		return nil, err
	}

	a := mat.NewDense(2*len(src), 9, nil)
	for i := range srcNorm {
		x, y := srcNorm[i].X, srcNorm[i].Y
		u, v := dstNorm[i].X, dstNorm[i].Y
		a.SetRow(2*i, []float64{-x, -y, -1, 0, 0, 0, u * x, u * y, u})
		a.SetRow(2*i+1, []float64{0, 0, 0, -x, -y, -1, v * x, v * y, v})
	}
	h, err := NullVector(a)
	if err != nil {
		return nil, err
	}
	hn := mat.NewDense(3, 3, h)

	// H = T_dst^-1 * Hn * T_src
	var tDstInv, tmp, full mat.Dense
	if err := tDstInv.Inverse(tDst); err != nil {
		return nil, errors.Wrap(err, "inverting normalization")
	}
	tmp.Mul(&tDstInv, hn)
	full.Mul(&tmp, tSrc)
	if math.Abs(full.At(2, 2)) < 1e-12 {
		return nil, errors.Wrap(ErrDegenerateCorrespondences, "homography maps the origin to infinity")
	}
	return homographyFromDense(&full), nil
}

// isCollinear reports whether all points lie close to a single line, judged by the ratio of the
// smallest to the largest eigenvalue of their scatter matrix.
func isCollinear(pts []r2.Point) bool {
	var mean r2.Point
	for _, p := range pts {
		mean = mean.Add(p)
	}
	mean = mean.Mul(1 / float64(len(pts)))

	var sxx, sxy, syy float64
	for _, p := range pts {
		d := p.Sub(mean)
		sxx += d.X * d.X
		sxy += d.X * d.Y
		syy += d.Y * d.Y
	}
	trace := sxx + syy
	if trace == 0 {
		return true
	}
	det := sxx*syy - sxy*sxy
	disc := math.Sqrt(math.Max(trace*trace/4-det, 0))
	smallest := trace/2 - disc
	largest := trace/2 + disc
	return smallest/largest < 1e-10
}
