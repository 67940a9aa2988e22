package calibration

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

var (
	// ErrNotDetected means the calibration pattern was not found in an image.
	ErrNotDetected = errors.New("calibration pattern not detected")
	// ErrDegenerateView means a view's correspondences do not determine a homography.
	ErrDegenerateView = errors.New("degenerate view")
	// ErrUnderdeterminedSystem means too few usable views remain to solve for the intrinsics.
	ErrUnderdeterminedSystem = errors.New("not enough usable views to determine the intrinsics")
	// ErrNumericalDivergence means the refinement hit singular normal equations or a non-finite cost.
	ErrNumericalDivergence = errors.New("refinement diverged")
	// ErrEmptyInput means no images were given.
	ErrEmptyInput = errors.New("no images given")
	// ErrEmptyCorrespondences means the pattern was found in none of the images.
	ErrEmptyCorrespondences = errors.New("calibration pattern found in no image")
	// ErrImageSizeMismatch means an image differs in size from the first one.
	ErrImageSizeMismatch = errors.New("image size differs from the first image")
	// ErrInvalidTarget means the calibration target description is unusable.
	ErrInvalidTarget = errors.New("invalid calibration target")
)

// Stage names a step of the calibration pipeline.
type Stage string

// The pipeline stages, in execution order.
const (
	StageDetect   Stage = "detect"
	StageEstimate Stage = "estimate"
	StageRefine   Stage = "refine"
	StageEvaluate Stage = "evaluate"
)

// Diagnostic is a recoverable issue with one image: it was skipped, the run went on.
type Diagnostic struct {
	Stage Stage
	Index int
	Err   error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: image %d: %v", d.Stage, d.Index, d.Err)
}

// Unwrap returns the underlying error.
func (d Diagnostic) Unwrap() error {
	return d.Err
}

// CombineDiagnostics joins the diagnostics into a single error, nil if there are none.
func CombineDiagnostics(diags []Diagnostic) error {
	var err error
	for _, d := range diags {
		err = multierr.Append(err, d)
	}
	return err
}

// StageError is the fatal error of a pipeline run, tagged with the stage that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("calibration failed during %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}
