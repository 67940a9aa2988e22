// Package config defines the settings of a calibration run and reads them from JSON or YAML files.
package config

import (
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage/calibration"
	"go.viam.com/camcal/rimage/detection/chessboard"
)

// Config describes a calibration run.
type Config struct {
	Target    calibration.CalibrationTarget     `json:"target"`
	Detection chessboard.DetectionConfiguration `json:"detection"`
	Criteria  calibration.TermCriteria          `json:"criteria"`
	// Workers bounds concurrent detection. Zero means GOMAXPROCS.
	Workers int `json:"workers"`
	// ImageGlob selects the images of the input directory.
	ImageGlob string `json:"image_glob"`
}

// Default returns the configuration used for every field a file leaves out.
func Default() *Config {
	return &Config{
		Target:    calibration.DefaultTarget,
		Detection: chessboard.DefaultDetectionConf,
		Criteria:  calibration.DefaultTermCriteria,
		Workers:   runtime.GOMAXPROCS(0),
		ImageGlob: "*.png",
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if err := c.Target.Validate(); err != nil {
		return errors.Wrapf(err, "%s.target", path)
	}
	if err := c.Detection.Validate(path + ".detection"); err != nil {
		return err
	}
	if err := c.Criteria.Validate(path + ".criteria"); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.Errorf("%s.workers must be >= 0, got %d", path, c.Workers)
	}
	if c.ImageGlob == "" {
		return goutils.NewConfigValidationFieldRequiredError(path, "image_glob")
	}
	if _, err := filepath.Match(c.ImageGlob, ""); err != nil {
		return errors.Wrapf(err, "%s.image_glob %q", path, c.ImageGlob)
	}
	return nil
}

// CalibrationOptions returns the pipeline options of the config, detecting with the chessboard
// detector.
func (c *Config) CalibrationOptions(logger logging.Logger) calibration.Options {
	return calibration.Options{
		Target:   c.Target,
		Detector: calibration.NewDetector(chessboard.NewDetector(c.Detection, logger.Sublogger("chessboard"))),
		Criteria: c.Criteria,
		Workers:  c.Workers,
		Logger:   logger,
	}
}
