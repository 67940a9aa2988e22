package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestSaveViewErrorPlot(t *testing.T) {
	res := &CalibrationResult{
		MeanReprojectionError: 0.2,
		ViewErrors: []ViewError{
			{Index: 0, Mean: 0.1, Max: 0.3},
			{Index: 2, Mean: 0.25, Max: 0.6},
			{Index: 3, Mean: 0.25, Max: 0.4},
		},
	}
	p, err := ViewErrorPlot(res)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Y.Min, test.ShouldEqual, 0)

	path := filepath.Join(t.TempDir(), "errors.png")
	test.That(t, SaveViewErrorPlot(res, path), test.ShouldBeNil)
	info, err := os.Stat(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)

	_, err = ViewErrorPlot(&CalibrationResult{})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, SaveViewErrorPlot(&CalibrationResult{}, path), test.ShouldNotBeNil)
}
