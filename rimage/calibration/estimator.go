package calibration

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/spatialmath"
)

// minViews is the number of homographies needed to solve for the 5 entries of the image of the
// absolute conic up to scale.
const minViews = 3

// conicRankTolerance bounds the second smallest singular value of V relative to the largest. Below
// it the conic is not pinned down, as happens when fewer than 3 views are independent.
const conicRankTolerance = 1e-6

// planePoints drops the z = 0 coordinate of the object points.
func planePoints(target CalibrationTarget) []r2.Point {
	obj := target.ObjectPoints()
	pts := make([]r2.Point, len(obj))
	for i, p := range obj {
		pts[i] = r2.Point{X: p.X, Y: p.Y}
	}
	return pts
}

// EstimateInitial computes a closed form estimate of the intrinsics and of every view's pose from
// the board-to-image homographies, following Zhang's method. Distortion starts at zero. Views whose
// homography cannot be estimated are dropped with a diagnostic; fewer than 3 usable views is an
// error.
func EstimateInitial(set *CorrespondenceSet) (*Estimate, []Diagnostic, error) {
	if err := set.Validate(); err != nil {
		return nil, nil, err
	}
	board := planePoints(set.Target)

	var diags []Diagnostic
	var homographies []*transform.Homography
	var views []int
	for pos, v := range set.Views {
		h, err := transform.EstimateHomography(board, v.Corners)
		if err != nil {
			diags = append(diags, Diagnostic{Stage: StageEstimate, Index: v.Index, Err: errors.Wrapf(ErrDegenerateView, "%v", err)})
			continue
		}
		homographies = append(homographies, h)
		views = append(views, pos)
	}
	if len(homographies) < minViews {
		return nil, diags, errors.Wrapf(ErrUnderdeterminedSystem, "%d usable views, need at least %d", len(homographies), minViews)
	}

	intrinsics, err := intrinsicsFromHomographies(homographies, set.ImageSize)
	if err != nil {
		return nil, diags, err
	}

	est := &Estimate{Intrinsics: *intrinsics}
	for i, h := range homographies {
		pose, err := poseFromHomography(intrinsics, h)
		if err != nil {
			diags = append(diags, Diagnostic{Stage: StageEstimate, Index: set.Views[views[i]].Index, Err: err})
			continue
		}
		est.Poses = append(est.Poses, pose)
		est.Views = append(est.Views, views[i])
	}
	if len(est.Poses) < minViews {
		return nil, diags, errors.Wrapf(ErrUnderdeterminedSystem, "%d views with a pose, need at least %d", len(est.Poses), minViews)
	}
	return est, diags, nil
}

// conicConstraint returns v_ij such that h_iᵀ B h_j = v_ij · b, with b = [B11 B12 B22 B13 B23 B33]
// and h_i the i-th column of the homography.
func conicConstraint(h *transform.Homography, i, j int) [6]float64 {
	hi, hj := h.Column(i), h.Column(j)
	return [6]float64{
		hi[0] * hj[0],
		hi[0]*hj[1] + hi[1]*hj[0],
		hi[1] * hj[1],
		hi[2]*hj[0] + hi[0]*hj[2],
		hi[2]*hj[1] + hi[1]*hj[2],
		hi[2] * hj[2],
	}
}

// intrinsicsFromHomographies solves V b = 0 for the image of the absolute conic B = K⁻ᵀ K⁻¹ and
// extracts fx, fy, cx, cy from it. The homographies are first expressed in image coordinates
// centered on the image and scaled by its mean side, which keeps V well conditioned.
func intrinsicsFromHomographies(homographies []*transform.Homography, size ImageSize) (*CameraIntrinsics, error) {
	scale := float64(size.Width+size.Height) / 2
	ox, oy := float64(size.Width)/2, float64(size.Height)/2
	norm := mat.NewDense(3, 3, []float64{
		1 / scale, 0, -ox / scale,
		0, 1 / scale, -oy / scale,
		0, 0, 1,
	})

	v := mat.NewDense(2*len(homographies), 6, nil)
	for i, h := range homographies {
		var hn mat.Dense
		hn.Mul(norm, h.Dense())
		var nh transform.Homography
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				nh[r][c] = hn.At(r, c)
			}
		}
		v12 := conicConstraint(&nh, 0, 1)
		v11 := conicConstraint(&nh, 0, 0)
		v22 := conicConstraint(&nh, 1, 1)
		v.SetRow(2*i, v12[:])
		for k := range v11 {
			v11[k] -= v22[k]
		}
		v.SetRow(2*i+1, v11[:])
	}

	b, values, err := transform.NullVectorWithValues(v)
	if err != nil {
		return nil, errors.Wrap(ErrUnderdeterminedSystem, err.Error())
	}
	if n := len(values); n < 6 || values[n-2] < conicRankTolerance*values[0] {
		return nil, errors.Wrap(ErrUnderdeterminedSystem, "fewer than 3 independent views")
	}
	if b[0] < 0 {
		for k := range b {
			b[k] = -b[k]
		}
	}
	b11, b12, b22, b13, b23, b33 := b[0], b[1], b[2], b[3], b[4], b[5]

	den := b11*b22 - b12*b12
	if b11 <= 0 || den <= 0 {
		return nil, errors.Wrap(ErrUnderdeterminedSystem, "views do not constrain the intrinsics")
	}
	v0 := (b12*b13 - b11*b23) / den
	lambda := b33 - (b13*b13+v0*(b12*b13-b11*b23))/b11
	if lambda <= 0 {
		return nil, errors.Wrap(ErrUnderdeterminedSystem, "views do not constrain the intrinsics")
	}
	alpha := math.Sqrt(lambda / b11)
	beta := math.Sqrt(lambda * b11 / den)
	gamma := -b12 * alpha * alpha * beta / lambda
	u0 := gamma*v0/beta - b13*alpha*alpha/lambda

	intr := &CameraIntrinsics{
		Fx: alpha * scale,
		Fy: beta * scale,
		Cx: u0*scale + ox,
		Cy: v0*scale + oy,
	}
	for _, x := range []float64{intr.Fx, intr.Fy, intr.Cx, intr.Cy} {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, errors.Wrap(ErrUnderdeterminedSystem, "views do not constrain the intrinsics")
		}
	}
	return intr, nil
}

// poseFromHomography recovers the board pose of one view: r1 = λK⁻¹h1, r2 = λK⁻¹h2, r3 = r1 × r2,
// t = λK⁻¹h3, with the sign of λ putting the board in front of the camera and the rotation
// projected back onto SO(3).
func poseFromHomography(intr *CameraIntrinsics, h *transform.Homography) (ViewPose, error) {
	kinv := func(col [3]float64) r3.Vector {
		return r3.Vector{
			X: (col[0] - intr.Cx*col[2]) / intr.Fx,
			Y: (col[1] - intr.Cy*col[2]) / intr.Fy,
			Z: col[2],
		}
	}
	a1, a2, a3 := kinv(h.Column(0)), kinv(h.Column(1)), kinv(h.Column(2))
	n := (a1.Norm() + a2.Norm()) / 2
	if n == 0 {
		return ViewPose{}, errors.Wrap(ErrDegenerateView, "homography has a null column")
	}
	lambda := 1 / n
	if a3.Z < 0 {
		lambda = -lambda
	}
	r1, r2 := a1.Mul(lambda), a2.Mul(lambda)
	r3v := r1.Cross(r2)
	t := a3.Mul(lambda)

	m := mat.NewDense(3, 3, []float64{
		r1.X, r2.X, r3v.X,
		r1.Y, r2.Y, r3v.Y,
		r1.Z, r2.Z, r3v.Z,
	})
	rot, ok := spatialmath.OrthonormalizeRotation(m)
	if !ok {
		return ViewPose{}, errors.Wrap(ErrDegenerateView, "cannot orthonormalize the rotation")
	}
	return ViewPose{Rotation: rot.AxisAngle(), Translation: t}, nil
}
