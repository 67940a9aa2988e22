package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"
)

// ConvertColorImageToLuminanceFloat converts an image to a matrix of luminance values in [0, 255],
// indexed [row][column], i.e. [y][x]. Luminance uses the Rec. 601 weights of imaging.Grayscale.
func ConvertColorImageToLuminanceFloat(img image.Image) *mat.Dense {
	gray := imaging.Grayscale(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := mat.NewDense(h, w, nil)
	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+4*w]
		for x := 0; x < w; x++ {
			out.Set(y, x, float64(row[4*x]))
		}
	}
	return out
}

// BilinearAt samples m at the sub-pixel position (x, y). Positions outside the matrix use the
// nearest border value.
func BilinearAt(m *mat.Dense, x, y float64) float64 {
	h, w := m.Dims()
	if x < 0 {
		x = 0
	} else if x > float64(w-1) {
		x = float64(w - 1)
	}
	if y < 0 {
		y = 0
	} else if y > float64(h-1) {
		y = float64(h - 1)
	}

	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 > w-1 {
		x1 = w - 1
	}
	if y1 > h-1 {
		y1 = h - 1
	}
	ax, ay := x-float64(x0), y-float64(y0)

	top := (1-ax)*m.At(y0, x0) + ax*m.At(y0, x1)
	bottom := (1-ax)*m.At(y1, x0) + ax*m.At(y1, x1)
	return (1-ay)*top + ay*bottom
}
