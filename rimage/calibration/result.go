package calibration

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"go.viam.com/camcal/utils"
)

// yamlDecimals is the precision of the values written to the calibration document.
const yamlDecimals = 4

// DistortionInfo holds the distortion coefficients of the calibration document.
type DistortionInfo struct {
	K1 float64 `yaml:"k1"`
	K2 float64 `yaml:"k2"`
	P1 float64 `yaml:"p1"`
	P2 float64 `yaml:"p2"`
	K3 float64 `yaml:"k3"`
}

// CalibrationDocument is the body of the calibration YAML document. K is the camera matrix
// flattened in column-major order.
type CalibrationDocument struct {
	ImageSize      ImageSize      `yaml:"image_size"`
	DistortionInfo DistortionInfo `yaml:"distortion_info"`
	K              []float64      `yaml:"K"`
}

type yamlFile struct {
	Calibration CalibrationDocument `yaml:"calibration"`
}

// FlattenColumnMajor returns the elements of m column after column.
func FlattenColumnMajor(m mat.Matrix) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}

// Document returns the calibration document of the result, every value rounded to 4 decimals.
func (r *CalibrationResult) Document() CalibrationDocument {
	round := func(v float64) float64 { return utils.RoundTo(v, yamlDecimals) }
	k := FlattenColumnMajor(r.Intrinsics.CameraMatrix())
	for i := range k {
		k[i] = round(k[i])
	}
	c := r.Intrinsics
	return CalibrationDocument{
		ImageSize: r.ImageSize,
		DistortionInfo: DistortionInfo{
			K1: round(c.K1),
			K2: round(c.K2),
			P1: round(c.P1),
			P2: round(c.P2),
			K3: round(c.K3),
		},
		K: k,
	}
}

// YAML renders the calibration document.
func (r *CalibrationResult) YAML() ([]byte, error) {
	return yaml.Marshal(yamlFile{Calibration: r.Document()})
}

// WriteYAML writes the calibration document to w.
func (r *CalibrationResult) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlFile{Calibration: r.Document()}); err != nil {
		return errors.Wrap(err, "encoding calibration document")
	}
	return enc.Close()
}

// ParseYAML reads a calibration document back into intrinsics and an image size.
func ParseYAML(data []byte) (*CameraIntrinsics, ImageSize, error) {
	var doc yamlFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, ImageSize{}, errors.Wrap(err, "parsing calibration document")
	}
	cal := doc.Calibration
	if len(cal.K) != 9 {
		return nil, ImageSize{}, errors.Errorf("K must have 9 elements, got %d", len(cal.K))
	}
	// column-major: K[2] is the bottom-left element
	k := mat.NewDense(3, 3, nil)
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			k.Set(i, j, cal.K[3*j+i])
		}
	}
	if k.At(1, 0) != 0 || k.At(2, 0) != 0 || k.At(2, 1) != 0 || k.At(2, 2) != 1 {
		return nil, ImageSize{}, errors.New("K is not an upper triangular camera matrix")
	}
	d := cal.DistortionInfo
	return &CameraIntrinsics{
		Fx: k.At(0, 0),
		Fy: k.At(1, 1),
		Cx: k.At(0, 2),
		Cy: k.At(1, 2),
		K1: d.K1,
		K2: d.K2,
		K3: d.K3,
		P1: d.P1,
		P2: d.P2,
	}, cal.ImageSize, nil
}
