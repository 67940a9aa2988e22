package calibration

import (
	"context"
	"fmt"
	"image"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage/detection/chessboard"
)

// State is the progress of a calibration run.
type State int

// A run moves CollectingViews -> Estimating -> Refining -> Evaluated, or ends in Failed.
const (
	StateCollectingViews State = iota
	StateEstimating
	StateRefining
	StateEvaluated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCollectingViews:
		return "collecting-views"
	case StateEstimating:
		return "estimating"
	case StateRefining:
		return "refining"
	case StateEvaluated:
		return "evaluated"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a calibration run. Zero values select the defaults: the chessboard detector,
// DefaultTermCriteria, GOMAXPROCS workers and a silent logger.
type Options struct {
	Target   CalibrationTarget
	Detector Detector
	Criteria TermCriteria
	Workers  int
	Logger   logging.Logger
}

func (opts Options) withDefaults() Options {
	if opts.Logger == nil {
		opts.Logger = logging.NewBlankLogger("calibration")
	}
	if opts.Detector == nil {
		opts.Detector = NewDetector(chessboard.NewDetector(chessboard.DefaultDetectionConf, opts.Logger.Sublogger("chessboard")))
	}
	if opts.Criteria == (TermCriteria{}) {
		opts.Criteria = DefaultTermCriteria
	}
	return opts
}

type run struct {
	state  State
	logger logging.Logger
}

func (r *run) transition(to State, keysAndValues ...interface{}) {
	r.logger.Debugw("calibration state change", append([]interface{}{"from", r.state, "to", to}, keysAndValues...)...)
	r.state = to
}

func (r *run) fail(stage Stage, err error) error {
	r.transition(StateFailed, "stage", stage, "error", err)
	return &StageError{Stage: stage, Err: err}
}

// Calibrate detects the target in every image and estimates the camera intrinsics from the views
// where it was found. Images without the target are reported in the result's Diagnostics. Errors
// are *StageError values wrapping one of the package sentinels.
func Calibrate(ctx context.Context, images []image.Image, opts Options) (*CalibrationResult, error) {
	opts = opts.withDefaults()
	r := &run{state: StateCollectingViews, logger: opts.Logger}
	r.logger.Infow("calibrating", "images", len(images), "rows", opts.Target.Rows, "cols", opts.Target.Cols)

	set, diags, err := Accumulate(ctx, images, opts.Target, opts.Detector, AccumulateOptions{
		Workers: opts.Workers,
		Logger:  opts.Logger,
	})
	if err != nil {
		return nil, r.fail(StageDetect, err)
	}
	r.transition(StateEstimating, "views", len(set.Views))
	return r.solve(ctx, set, diags, opts)
}

// CalibrateCorrespondences estimates the camera intrinsics from views that were already detected.
func CalibrateCorrespondences(ctx context.Context, set *CorrespondenceSet, opts Options) (*CalibrationResult, error) {
	opts = opts.withDefaults()
	r := &run{state: StateEstimating, logger: opts.Logger}
	if err := set.Validate(); err != nil {
		return nil, r.fail(StageEstimate, err)
	}
	return r.solve(ctx, set, nil, opts)
}

func (r *run) solve(ctx context.Context, set *CorrespondenceSet, diags []Diagnostic, opts Options) (*CalibrationResult, error) {
	initial, estDiags, err := EstimateInitial(set)
	diags = append(diags, estDiags...)
	if err != nil {
		return nil, r.fail(StageEstimate, err)
	}
	r.logger.Debugw("initial estimate",
		"fx", initial.Intrinsics.Fx, "fy", initial.Intrinsics.Fy,
		"cx", initial.Intrinsics.Cx, "cy", initial.Intrinsics.Cy)
	r.transition(StateRefining, "views", len(initial.Views))

	if err := ctx.Err(); err != nil {
		return nil, r.fail(StageRefine, err)
	}
	refined, solver, err := refine(ctx, initial, set, opts.Criteria)
	if err != nil {
		return nil, r.fail(StageRefine, err)
	}
	r.logger.Debugw("refinement done", "iterations", solver.Iterations, "converged", solver.Converged, "cost", solver.Cost)
	if err := refined.Intrinsics.PinholeModel(set.ImageSize).CheckValid(); err != nil {
		return nil, r.fail(StageRefine, errors.Wrap(ErrNumericalDivergence, err.Error()))
	}

	result := Evaluate(refined, set)
	result.Diagnostics = diags
	r.transition(StateEvaluated)
	if len(diags) > 0 {
		r.logger.Warnw("images skipped",
			"images", lo.Map(diags, func(d Diagnostic, _ int) int { return d.Index }),
			"reasons", CombineDiagnostics(diags))
	}
	r.logger.Infow("calibration done",
		"views", len(result.ViewErrors),
		"mean_error_px", result.MeanReprojectionError,
		"worst_view", lo.MaxBy(result.ViewErrors, func(a, b ViewError) bool { return a.Mean > b.Mean }).Index)
	return result, nil
}
