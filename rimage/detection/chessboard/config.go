package chessboard

import "github.com/pkg/errors"

// SaddleConfiguration stores the parameters to process the Hessian determinant image into a relevant saddle points map.
type SaddleConfiguration struct {
	BlurSigma         float64 `json:"blur-sigma"`     // gaussian blur applied before differentiating
	RelativeThreshold float64 `json:"score-rel"`      // saddle scores below this fraction of the maximum are pruned
	NMSWindowSize     int     `json:"win-size"`       // half size of the window for non-maximum suppression
	MaxCandidates     int     `json:"max-candidates"` // strongest saddles kept after suppression
}

// GridConfiguration stores the parameters for verifying X-corners and growing the corner lattice.
type GridConfiguration struct {
	RingRadiusFactor float64 `json:"ring-radius"`  // ring radius as a fraction of the distance to the nearest saddle
	MinContrast      float64 `json:"min-contrast"` // minimum gray level difference seen around an X-corner
	Tolerance        float64 `json:"tolerance"`    // accepted distance to a predicted neighbour, as a fraction of the spacing
	MaxSeeds         int     `json:"max-seeds"`    // number of seed corners tried before giving up
}

// SubPixConfiguration stores the parameters of the sub-pixel corner refinement.
type SubPixConfiguration struct {
	WindowHalfSize int     `json:"win-half-size"`
	MaxIterations  int     `json:"max-iter"`
	Epsilon        float64 `json:"eps"`
}

// DetectionConfiguration stores the parameters necessary for chessboard detection in an image.
type DetectionConfiguration struct {
	Saddle SaddleConfiguration `json:"saddle"`
	Grid   GridConfiguration   `json:"grid"`
	SubPix SubPixConfiguration `json:"subpix"`
}

// DefaultSaddleConf stores the default parameters for saddle detection.
var DefaultSaddleConf = SaddleConfiguration{
	BlurSigma:         1.0,
	RelativeThreshold: 0.05,
	NMSWindowSize:     4,
	MaxCandidates:     1000,
}

// DefaultGridConf stores the default parameters for lattice growth.
var DefaultGridConf = GridConfiguration{
	RingRadiusFactor: 0.35,
	MinContrast:      20,
	Tolerance:        0.35,
	MaxSeeds:         12,
}

// DefaultSubPixConf matches an 11x11 search window, (EPS + MAX_ITER, 30, 0.001) termination.
var DefaultSubPixConf = SubPixConfiguration{
	WindowHalfSize: 5,
	MaxIterations:  30,
	Epsilon:        0.001,
}

// DefaultDetectionConf is the configuration used when none is given.
var DefaultDetectionConf = DetectionConfiguration{
	Saddle: DefaultSaddleConf,
	Grid:   DefaultGridConf,
	SubPix: DefaultSubPixConf,
}

// Validate returns an error naming the first invalid field.
func (cfg *DetectionConfiguration) Validate(path string) error {
	switch {
	case cfg.Saddle.BlurSigma < 0:
		return errors.Errorf("%s.saddle.blur-sigma must be >= 0, got %v", path, cfg.Saddle.BlurSigma)
	case cfg.Saddle.RelativeThreshold <= 0 || cfg.Saddle.RelativeThreshold >= 1:
		return errors.Errorf("%s.saddle.score-rel must be in (0, 1), got %v", path, cfg.Saddle.RelativeThreshold)
	case cfg.Saddle.NMSWindowSize < 1:
		return errors.Errorf("%s.saddle.win-size must be >= 1, got %d", path, cfg.Saddle.NMSWindowSize)
	case cfg.Saddle.MaxCandidates < 4:
		return errors.Errorf("%s.saddle.max-candidates must be >= 4, got %d", path, cfg.Saddle.MaxCandidates)
	case cfg.Grid.RingRadiusFactor <= 0 || cfg.Grid.RingRadiusFactor >= 0.5:
		return errors.Errorf("%s.grid.ring-radius must be in (0, 0.5), got %v", path, cfg.Grid.RingRadiusFactor)
	case cfg.Grid.Tolerance <= 0 || cfg.Grid.Tolerance >= 0.5:
		return errors.Errorf("%s.grid.tolerance must be in (0, 0.5), got %v", path, cfg.Grid.Tolerance)
	case cfg.Grid.MaxSeeds < 1:
		return errors.Errorf("%s.grid.max-seeds must be >= 1, got %d", path, cfg.Grid.MaxSeeds)
	case cfg.SubPix.WindowHalfSize < 1:
		return errors.Errorf("%s.subpix.win-half-size must be >= 1, got %d", path, cfg.SubPix.WindowHalfSize)
	case cfg.SubPix.MaxIterations < 1:
		return errors.Errorf("%s.subpix.max-iter must be >= 1, got %d", path, cfg.SubPix.MaxIterations)
	case cfg.SubPix.Epsilon <= 0:
		return errors.Errorf("%s.subpix.eps must be > 0, got %v", path, cfg.SubPix.Epsilon)
	}
	return nil
}
