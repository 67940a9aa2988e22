package calibration

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"

	"go.viam.com/camcal/rimage/transform"
)

// ViewError is the reprojection error of one image, in pixels.
type ViewError struct {
	Index int     `json:"index"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	// LineDeviation is the RMS distance of the undistorted corners to the straight lines through
	// their board rows and columns.
	LineDeviation float64 `json:"line_deviation"`
}

// CalibrationResult is the outcome of a calibration run.
type CalibrationResult struct {
	Intrinsics CameraIntrinsics
	ImageSize  ImageSize
	// MeanReprojectionError is the mean over views of the per-view mean corner error, in pixels.
	MeanReprojectionError float64
	ViewErrors            []ViewError
	// CornerErrors holds the error of every corner, view after view.
	CornerErrors []float64
	// Correspondences are the views the result was computed from.
	Correspondences *CorrespondenceSet
	Diagnostics     []Diagnostic
}

// cornerErrors returns the distance between every observed corner of the view at position pos and
// the projection of its object point.
func cornerErrors(est *Estimate, set *CorrespondenceSet, pose ViewPose, pos int) []float64 {
	obj := set.Target.ObjectPoints()
	obs := set.Views[pos].Corners
	out := make([]float64, len(obj))
	for i, pt := range obj {
		proj, ok := est.Intrinsics.Project(pose, pt)
		if !ok {
			out[i] = math.Inf(1)
			continue
		}
		out[i] = proj.Sub(obs[i]).Norm()
	}
	return out
}

// Evaluate computes the reprojection error of every view of the estimate.
func Evaluate(est *Estimate, set *CorrespondenceSet) *CalibrationResult {
	res := &CalibrationResult{Intrinsics: est.Intrinsics, ImageSize: set.ImageSize, Correspondences: set}
	means := make([]float64, 0, len(est.Views))
	for i, pos := range est.Views {
		errs := stats.Float64Data(cornerErrors(est, set, est.Poses[i], pos))
		res.CornerErrors = append(res.CornerErrors, errs...)
		// only empty data fails
		mean, _ := errs.Mean()
		maxErr, _ := errs.Max()
		res.ViewErrors = append(res.ViewErrors, ViewError{
			Index:         set.Views[pos].Index,
			Mean:          mean,
			Max:           maxErr,
			LineDeviation: LineDeviation(est.Intrinsics.PinholeModel(set.ImageSize), set.Views[pos].Corners, set.Target),
		})
		means = append(means, mean)
	}
	if len(means) > 0 {
		res.MeanReprojectionError, _ = stats.Mean(means)
	}
	return res
}

// Residuals returns the reprojection error of every corner of every view, view after view.
func Residuals(est *Estimate, set *CorrespondenceSet) []float64 {
	var out []float64
	for i, pos := range est.Views {
		out = append(out, cornerErrors(est, set, est.Poses[i], pos)...)
	}
	return out
}

// LineDeviation undistorts the corners of one view with model and returns the RMS distance, in
// pixels, of every corner to the least squares line through its board row and to the one through
// its board column. Projections of straight board lines stay straight once distortion is removed.
func LineDeviation(model *transform.PinholeCameraModel, corners []r2.Point, target CalibrationTarget) float64 {
	undistorted := make([]r2.Point, len(corners))
	for i, c := range corners {
		u := model.UndistortPixel(c)
		undistorted[i] = r2.Point{X: model.Fx*u.X + model.Ppx, Y: model.Fy*u.Y + model.Ppy}
	}

	var sumSq float64
	var n int
	line := make([]r2.Point, 0, max(target.Rows, target.Cols))
	for r := 0; r < target.Rows; r++ {
		line = line[:0]
		for c := 0; c < target.Cols; c++ {
			line = append(line, undistorted[r*target.Cols+c])
		}
		sumSq += lineResidual(line)
		n += len(line)
	}
	for c := 0; c < target.Cols; c++ {
		line = line[:0]
		for r := 0; r < target.Rows; r++ {
			line = append(line, undistorted[r*target.Cols+c])
		}
		sumSq += lineResidual(line)
		n += len(line)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(n))
}

// lineResidual is the sum of squared distances of pts to their total least squares line, the
// smallest eigenvalue of their scatter matrix.
func lineResidual(pts []r2.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
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
	half := (sxx + syy) / 2
	disc := math.Sqrt((sxx-syy)*(sxx-syy)/4 + sxy*sxy)
	return math.Max(half-disc, 0)
}
