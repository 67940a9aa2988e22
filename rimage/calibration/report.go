package calibration

import (
	"image/color"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ViewErrorPlot returns a bar chart of the mean reprojection error of every view, labeled by image
// index, with the overall mean as a dashed line.
func ViewErrorPlot(res *CalibrationResult) (*plot.Plot, error) {
	if len(res.ViewErrors) == 0 {
		return nil, errors.New("result has no view errors")
	}
	p := plot.New()
	p.Title.Text = "Reprojection error per image"
	p.X.Label.Text = "image"
	p.Y.Label.Text = "mean error (px)"

	values := make(plotter.Values, len(res.ViewErrors))
	labels := make([]string, len(res.ViewErrors))
	for i, ve := range res.ViewErrors {
		values[i] = ve.Mean
		labels[i] = strconv.Itoa(ve.Index)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(14))
	if err != nil {
		return nil, errors.Wrap(err, "building bar chart")
	}
	bars.Color = color.RGBA{R: 70, G: 130, B: 180, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(labels...)

	mean := res.MeanReprojectionError
	line := plotter.NewFunction(func(float64) float64 { return mean })
	line.Color = color.RGBA{R: 200, A: 255}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(line)
	p.Legend.Add("mean", line)
	p.Legend.Top = true
	p.Y.Min = 0
	return p, nil
}

// SaveViewErrorPlot writes the chart of ViewErrorPlot to path, in the format given by its
// extension (png, svg, pdf, ...).
func SaveViewErrorPlot(res *CalibrationResult, path string) error {
	p, err := ViewErrorPlot(res)
	if err != nil {
		return err
	}
	width := vg.Length(len(res.ViewErrors))*vg.Points(24) + 2*vg.Inch
	return p.Save(width, 3*vg.Inch, path)
}
