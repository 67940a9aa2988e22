package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/utils"
)

// Kernel is a convolution kernel. Content is indexed [row][column].
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// Size returns the kernel size as (width, height).
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// At returns the value at column x, row y.
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Normalize divides the kernel by the sum of its elements. A zero-sum kernel is left unchanged.
func (k *Kernel) Normalize() *Kernel {
	sum := 0.
	for _, row := range k.Content {
		for _, v := range row {
			sum += v
		}
	}
	if sum == 0 {
		return k
	}
	content := make([][]float64, k.Height)
	for y, row := range k.Content {
		content[y] = make([]float64, k.Width)
		for x, v := range row {
			content[y][x] = v / sum
		}
	}
	return &Kernel{content, k.Height, k.Width}
}

// GetSobelX returns the Kernel corresponding to the Sobel kernel in the x direction.
func GetSobelX() Kernel {
	return Kernel{[][]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}, 3, 3}
}

// GetSobelY returns the Kernel corresponding to the Sobel kernel in the y direction.
func GetSobelY() Kernel {
	return Kernel{[][]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}, 3, 3}
}

// GetGaussian returns a normalized isotropic Gaussian kernel holding four sigma on each side of
// the center, with an odd size of at least 3.
func GetGaussian(sigma float64) Kernel {
	half := int(math.Ceil(4 * sigma))
	if half < 1 {
		half = 1
	}
	size := 2*half + 1
	content := make([][]float64, size)
	for y := 0; y < size; y++ {
		content[y] = make([]float64, size)
		for x := 0; x < size; x++ {
			dx, dy := float64(x-half), float64(y-half)
			content[y][x] = math.Exp(-0.5 * (dx*dx + dy*dy) / (sigma * sigma))
		}
	}
	return *(&Kernel{content, size, size}).Normalize()
}

// ConvolveGrayFloat64 convolves a gray float64 image with the kernel, anchored at the kernel's
// center. Pixels outside the image replicate the nearest border pixel. There is no clamping of
// the output.
func ConvolveGrayFloat64(m *mat.Dense, filter *Kernel) (*mat.Dense, error) {
	if filter.Width%2 == 0 || filter.Height%2 == 0 {
		return nil, errors.Errorf("kernel size must be odd, got %dx%d", filter.Width, filter.Height)
	}
	h, w := m.Dims()
	result := mat.NewDense(h, w, nil)
	halfX, halfY := filter.Width/2, filter.Height/2

	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		sum := 0.
		for ky := 0; ky < filter.Height; ky++ {
			py := utils.ClampInt(y+ky-halfY, 0, h-1)
			for kx := 0; kx < filter.Width; kx++ {
				px := utils.ClampInt(x+kx-halfX, 0, w-1)
				sum += m.At(py, px) * filter.At(kx, ky)
			}
		}
		result.Set(y, x, sum)
	})
	return result, nil
}
