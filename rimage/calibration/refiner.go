package calibration

import (
	"context"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/spatialmath"
)

// Layout of the parameter vector: the shared intrinsics, then 6 pose parameters per view.
const (
	paramFx = iota
	paramFy
	paramCx
	paramCy
	paramK1
	paramK2
	paramP1
	paramP2
	paramK3
	numIntrinsicParams
)

const numPoseParams = 6

// distortionParam maps the [k1, k2, k3, p1, p2] order of transform.BrownConrady onto the
// parameter vector.
var distortionParam = [5]int{paramK1, paramK2, paramK3, paramP1, paramP2}

// reprojectionProblem has two residuals per corner, projected minus observed pixel.
type reprojectionProblem struct {
	object []r3.Vector
	views  [][]r2.Point
}

func (p *reprojectionProblem) NumParams() int {
	return numIntrinsicParams + numPoseParams*len(p.views)
}

func (p *reprojectionProblem) NumResiduals() int {
	return 2 * len(p.object) * len(p.views)
}

func (p *reprojectionProblem) Residuals(r, x []float64) {
	for v, obs := range p.views {
		p.viewResiduals(r[2*len(p.object)*v:2*len(p.object)*(v+1)], x, poseOf(x, v).Rotation, obs, v)
	}
}

func (p *reprojectionProblem) viewResiduals(r, x []float64, rotation r3.Vector, obs []r2.Point, v int) {
	rot := spatialmath.R3ToRotationMatrix(rotation)
	t := poseOf(x, v).Translation
	for i, pt := range p.object {
		proj, _ := projectWithJacobian(x, rot.Mul(pt).Add(t), nil)
		r[2*i] = proj.X - obs[i].X
		r[2*i+1] = proj.Y - obs[i].Y
	}
}

// Jacobian fills the intrinsic and translation columns analytically. Rotation columns are central
// differences on the axis-angle vector.
func (p *reprojectionProblem) Jacobian(jac *mat.Dense, x []float64) {
	jac.Zero()
	var rows [2][numIntrinsicParams + 3]float64
	nObj := len(p.object)
	for v, obs := range p.views {
		pose := poseOf(x, v)
		rot := spatialmath.R3ToRotationMatrix(pose.Rotation)
		col := numIntrinsicParams + numPoseParams*v
		for i, pt := range p.object {
			projectWithJacobian(x, rot.Mul(pt).Add(pose.Translation), &rows)
			for k := 0; k < 2; k++ {
				row := 2*(nObj*v+i) + k
				for j := 0; j < numIntrinsicParams; j++ {
					jac.Set(row, j, rows[k][j])
				}
				for j := 0; j < 3; j++ {
					jac.Set(row, col+3+j, rows[k][numIntrinsicParams+j])
				}
			}
		}

		rotJac := mat.NewDense(2*nObj, 3, nil)
		fd.Jacobian(rotJac, func(y, aa []float64) {
			p.viewResiduals(y, x, r3.Vector{X: aa[0], Y: aa[1], Z: aa[2]}, obs, v)
		}, []float64{pose.Rotation.X, pose.Rotation.Y, pose.Rotation.Z}, &fd.JacobianSettings{Formula: fd.Central})
		jac.Slice(2*nObj*v, 2*nObj*(v+1), col, col+3).(*mat.Dense).Copy(rotJac)
	}
}

func poseOf(x []float64, v int) ViewPose {
	o := numIntrinsicParams + numPoseParams*v
	return ViewPose{
		Rotation:    r3.Vector{X: x[o], Y: x[o+1], Z: x[o+2]},
		Translation: r3.Vector{X: x[o+3], Y: x[o+4], Z: x[o+5]},
	}
}

// projectWithJacobian projects a camera frame point with the intrinsics of x. When rows is not
// nil it receives d(u, v) with respect to the intrinsics followed by the 3 translation
// components.
func projectWithJacobian(x []float64, pc r3.Vector, rows *[2][numIntrinsicParams + 3]float64) (r2.Point, bool) {
	dist := transform.BrownConrady{
		RadialK1:     x[paramK1],
		RadialK2:     x[paramK2],
		RadialK3:     x[paramK3],
		TangentialP1: x[paramP1],
		TangentialP2: x[paramP2],
	}
	fx, fy := x[paramFx], x[paramFy]
	xn, yn := pc.X/pc.Z, pc.Y/pc.Z
	xd, yd, dj := dist.TransformWithJacobian(xn, yn)
	proj := r2.Point{X: fx*xd + x[paramCx], Y: fy*yd + x[paramCy]}
	if rows == nil {
		return proj, pc.Z > 0
	}

	*rows = [2][numIntrinsicParams + 3]float64{}
	rows[0][paramFx] = xd
	rows[0][paramCx] = 1
	rows[1][paramFy] = yd
	rows[1][paramCy] = 1
	for j, param := range distortionParam {
		rows[0][param] = fx * dj.Params[0][j]
		rows[1][param] = fy * dj.Params[1][j]
	}

	// d(xn, yn)/d(pc), the translation moves pc one to one
	iz := 1 / pc.Z
	dn := [2][3]float64{
		{iz, 0, -xn * iz},
		{0, iz, -yn * iz},
	}
	for j := 0; j < 3; j++ {
		rows[0][numIntrinsicParams+j] = fx * (dj.Point[0][0]*dn[0][j] + dj.Point[0][1]*dn[1][j])
		rows[1][numIntrinsicParams+j] = fy * (dj.Point[1][0]*dn[0][j] + dj.Point[1][1]*dn[1][j])
	}
	return proj, pc.Z > 0
}

func packParams(est *Estimate) []float64 {
	c := est.Intrinsics
	x := make([]float64, numIntrinsicParams, numIntrinsicParams+numPoseParams*len(est.Poses))
	x[paramFx], x[paramFy], x[paramCx], x[paramCy] = c.Fx, c.Fy, c.Cx, c.Cy
	x[paramK1], x[paramK2], x[paramP1], x[paramP2], x[paramK3] = c.K1, c.K2, c.P1, c.P2, c.K3
	for _, p := range est.Poses {
		x = append(x, p.Rotation.X, p.Rotation.Y, p.Rotation.Z, p.Translation.X, p.Translation.Y, p.Translation.Z)
	}
	return x
}

func unpackParams(x []float64, views []int) *Estimate {
	est := &Estimate{
		Intrinsics: CameraIntrinsics{
			Fx: x[paramFx], Fy: x[paramFy], Cx: x[paramCx], Cy: x[paramCy],
			K1: x[paramK1], K2: x[paramK2], K3: x[paramK3], P1: x[paramP1], P2: x[paramP2],
		},
		Views: append([]int(nil), views...),
	}
	nViews := (len(x) - numIntrinsicParams) / numPoseParams
	for v := 0; v < nViews; v++ {
		est.Poses = append(est.Poses, poseOf(x, v))
	}
	return est
}

// Refine minimizes the reprojection error of every view of initial over the intrinsics, the
// distortion coefficients and the view poses.
func Refine(ctx context.Context, initial *Estimate, set *CorrespondenceSet, criteria TermCriteria) (*Estimate, error) {
	est, _, err := refine(ctx, initial, set, criteria)
	return est, err
}

// refine is Refine that also hands back the solver report.
func refine(ctx context.Context, initial *Estimate, set *CorrespondenceSet, criteria TermCriteria) (*Estimate, *LMResult, error) {
	if err := criteria.Validate("criteria"); err != nil {
		return nil, nil, err
	}
	if len(initial.Poses) != len(initial.Views) {
		return nil, nil, errors.Errorf("estimate has %d poses for %d views", len(initial.Poses), len(initial.Views))
	}
	problem := &reprojectionProblem{object: set.Target.ObjectPoints()}
	for _, pos := range initial.Views {
		if pos < 0 || pos >= len(set.Views) {
			return nil, nil, errors.Errorf("estimate refers to view %d, set has %d", pos, len(set.Views))
		}
		problem.views = append(problem.views, set.Views[pos].Corners)
	}

	solved, err := LevenbergMarquardt(ctx, problem, packParams(initial), LMSettings{Criteria: criteria})
	if err != nil {
		return nil, nil, err
	}
	return unpackParams(solved.X, initial.Views), solved, nil
}
