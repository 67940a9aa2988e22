package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/camcal/logging"
	"go.viam.com/camcal/rimage/calibration"
	"go.viam.com/camcal/rimage/detection/chessboard"
)

func TestFromReaderDefaults(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(""))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Diff(Default(), cfg), test.ShouldBeEmpty)
}

func TestFromReaderYAML(t *testing.T) {
	cfg, err := FromReader(strings.NewReader(`
target:
  rows: 6
  cols: 9
  square_size: 0.025
detection:
  subpix:
    max-iter: 50
criteria:
  epsilon: 0.0001
image_glob: "*.jpg"
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Target, test.ShouldResemble, calibration.CalibrationTarget{Rows: 6, Cols: 9, SquareSize: 0.025})
	test.That(t, cfg.Detection.SubPix.MaxIterations, test.ShouldEqual, 50)
	test.That(t, cfg.Detection.SubPix.Epsilon, test.ShouldEqual, chessboard.DefaultSubPixConf.Epsilon)
	test.That(t, cfg.Detection.Saddle, test.ShouldResemble, chessboard.DefaultSaddleConf)
	test.That(t, cfg.Criteria, test.ShouldResemble, calibration.TermCriteria{MaxIter: 30, Epsilon: 0.0001})
	test.That(t, cfg.ImageGlob, test.ShouldEqual, "*.jpg")
}

func TestFromReaderJSON(t *testing.T) {
	cfg, err := FromReader(strings.NewReader("{\n\t\"workers\": 2,\n\t\"criteria\": {\"max_iter\": 100}\n}"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Workers, test.ShouldEqual, 2)
	test.That(t, cfg.Criteria.MaxIter, test.ShouldEqual, 100)
	test.That(t, cfg.Criteria.Epsilon, test.ShouldEqual, calibration.DefaultTermCriteria.Epsilon)
	test.That(t, cfg.Target, test.ShouldResemble, calibration.DefaultTarget)
}

func TestFromReaderErrors(t *testing.T) {
	for _, tc := range []struct {
		name, doc, msg string
	}{
		{"unknown field", "target:\n  row: 6\n", "row"},
		{"malformed", "target: [1, 2", "failed to decode config"},
		{"bad target", "target:\n  rows: 1\n", "config.target"},
		{"bad detection", "detection:\n  grid:\n    tolerance: 0.9\n", "config.detection.grid.tolerance"},
		{"bad criteria", `{"criteria": {"max_iter": 0}}`, "config.criteria.max_iter"},
		{"negative workers", "workers: -1\n", "config.workers"},
		{"empty glob", "image_glob: \"\"\n", "image_glob"},
		{"bad glob", "image_glob: \"[\"\n", "config.image_glob"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromReader(strings.NewReader(tc.doc))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}

	_, err := FromReader(strings.NewReader("target:\n  square_size: 0\n"))
	test.That(t, errors.Is(err, calibration.ErrInvalidTarget), test.ShouldBeTrue)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "camcal.yaml")
	test.That(t, os.WriteFile(path, []byte("workers: ${CAMCAL_TEST_WORKERS}\n"), 0o600), test.ShouldBeNil)
	t.Setenv("CAMCAL_TEST_WORKERS", "3")

	cfg, err := Read(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Workers, test.ShouldEqual, 3)

	_, err = Read(filepath.Join(dir, "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "missing.yaml")
}

func TestCalibrationOptions(t *testing.T) {
	cfg := Default()
	cfg.Workers = 2
	opts := cfg.CalibrationOptions(logging.NewTestLogger(t))
	test.That(t, opts.Target, test.ShouldResemble, cfg.Target)
	test.That(t, opts.Criteria, test.ShouldResemble, cfg.Criteria)
	test.That(t, opts.Workers, test.ShouldEqual, 2)
	test.That(t, opts.Detector, test.ShouldNotBeNil)
	test.That(t, opts.Logger, test.ShouldNotBeNil)
}
