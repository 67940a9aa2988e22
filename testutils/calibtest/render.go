package calibtest

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/spatialmath"
	"go.viam.com/camcal/utils"
)

// Gray levels of the rendered scene.
const (
	DarkLevel       = 30
	LightLevel      = 225
	BackgroundLevel = 128
)

// RenderView renders the board as seen from view. Every pixel averages supersample² samples spread
// over its area, pixel centers lying on integer coordinates. The checkered area spans one square
// beyond the outer corners and is surrounded by a light margin one square wide.
func (s *Scene) RenderView(view, supersample int) *image.Gray {
	intr := s.Camera.PinholeCameraIntrinsics
	img := image.NewGray(image.Rect(0, 0, intr.Width, intr.Height))

	// [xu yu 1]ᵀ ~ [r1 r2 t] [X Y 1]ᵀ, so board coordinates come from its inverse.
	pose := s.Poses[view]
	rot := spatialmath.R3ToRotationMatrix(pose.Rotation)
	planeToCamera := mat.NewDense(3, 3, []float64{
		rot.At(0, 0), rot.At(0, 1), pose.Translation.X,
		rot.At(1, 0), rot.At(1, 1), pose.Translation.Y,
		rot.At(2, 0), rot.At(2, 1), pose.Translation.Z,
	})
	var cameraToPlane mat.Dense
	if err := cameraToPlane.Inverse(planeToCamera); err != nil {
		return img
	}

	if supersample < 1 {
		supersample = 1
	}
	offsets := make([]float64, supersample)
	for k := range offsets {
		offsets[k] = (float64(k)+0.5)/float64(supersample) - 0.5
	}

	utils.ParallelForEachPixel(image.Point{intr.Width, intr.Height}, func(x, y int) {
		sum := 0.
		for _, oy := range offsets {
			for _, ox := range offsets {
				sum += s.sample(&cameraToPlane, float64(x)+ox, float64(y)+oy)
			}
		}
		level := sum / float64(supersample*supersample)
		img.SetGray(x, y, color.Gray{uint8(math.Round(level))})
	})
	return img
}

// RenderAll renders every view.
func (s *Scene) RenderAll(supersample int) []image.Image {
	out := make([]image.Image, len(s.Poses))
	for v := range s.Poses {
		out[v] = s.RenderView(v, supersample)
	}
	return out
}

// sample returns the gray level seen at the continuous pixel position (px, py).
func (s *Scene) sample(cameraToPlane *mat.Dense, px, py float64) float64 {
	n := s.Camera.UndistortPixel(r2.Point{X: px, Y: py})
	bx := cameraToPlane.At(0, 0)*n.X + cameraToPlane.At(0, 1)*n.Y + cameraToPlane.At(0, 2)
	by := cameraToPlane.At(1, 0)*n.X + cameraToPlane.At(1, 1)*n.Y + cameraToPlane.At(1, 2)
	bw := cameraToPlane.At(2, 0)*n.X + cameraToPlane.At(2, 1)*n.Y + cameraToPlane.At(2, 2)
	// the ray hits the plane at depth 1/bw; behind the camera when negative
	if bw <= 0 {
		return BackgroundLevel
	}
	return s.boardLevel(bx/bw, by/bw)
}

func (s *Scene) boardLevel(bx, by float64) float64 {
	sq := s.Board.SquareSize
	minX, maxX := -sq, float64(s.Board.Cols)*sq
	minY, maxY := -sq, float64(s.Board.Rows)*sq
	switch {
	case bx >= minX && bx < maxX && by >= minY && by < maxY:
		if (int(math.Floor(bx/sq))+int(math.Floor(by/sq)))%2 == 0 {
			return DarkLevel
		}
		return LightLevel
	case bx >= minX-sq && bx < maxX+sq && by >= minY-sq && by < maxY+sq:
		return LightLevel
	default:
		return BackgroundLevel
	}
}
