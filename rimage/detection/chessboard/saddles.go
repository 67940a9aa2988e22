package chessboard

import (
	"image"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage"
	"go.viam.com/camcal/utils"
)

// saddle is a candidate X-corner with its saddle score.
type saddle struct {
	pt    image.Point
	score float64
}

// computePixelWiseHessianDeterminant computes hessian components for each pixel and returns a *mat.Dense containing
// the value of the determinant of the Hessian for each pixel.
// The sign and value of the determinant of the Hessian gives location of saddle points.
func computePixelWiseHessianDeterminant(img *mat.Dense) (*mat.Dense, error) {
	nRows, nCols := img.Dims()
	sobelX := rimage.GetSobelX()
	sobelY := rimage.GetSobelY()
	gX, err := rimage.ConvolveGrayFloat64(img, &sobelX)
	if err != nil {
		return nil, err
	}
	gY, err := rimage.ConvolveGrayFloat64(img, &sobelY)
	if err != nil {
		return nil, err
	}
	gXX, err := rimage.ConvolveGrayFloat64(gX, &sobelX)
	if err != nil {
		return nil, err
	}
	gYY, err := rimage.ConvolveGrayFloat64(gY, &sobelY)
	if err != nil {
		return nil, err
	}
	gXY, err := rimage.ConvolveGrayFloat64(gX, &sobelY)
	if err != nil {
		return nil, err
	}
	m1 := mat.NewDense(nRows, nCols, nil)
	m2 := mat.NewDense(nRows, nCols, nil)
	out := mat.NewDense(nRows, nCols, nil)
	m1.MulElem(gXX, gYY)
	m2.MulElem(gXY, gXY)
	out.Sub(m1, m2)
	return out, nil
}

// ComputeSaddleMap returns the saddle score of every pixel of a gray image: the negated determinant
// of the Hessian, clipped at zero. X-junctions are positive, straight edges and flat areas are 0.
func ComputeSaddleMap(gray *mat.Dense) (*mat.Dense, error) {
	hessian, err := computePixelWiseHessianDeterminant(gray)
	if err != nil {
		return nil, err
	}
	hessian.Apply(func(_, _ int, v float64) float64 {
		if v > 0 {
			return 0
		}
		return -v
	}, hessian)
	return hessian, nil
}

// PruneSaddle zeroes every score below `relative` times the maximum score of the map.
func PruneSaddle(s *mat.Dense, relative float64) *mat.Dense {
	thresh := relative * mat.Max(s)
	pruned := mat.DenseCopyOf(s)
	pruned.Apply(func(_, _ int, v float64) float64 {
		if v < thresh {
			return 0
		}
		return v
	}, pruned)
	return pruned
}

// NonMaxSuppression keeps the non-zero values of img that are the maximum of their
// (2*winSize+1)² neighbourhood. Ties go to the first pixel in raster order.
func NonMaxSuppression(img *mat.Dense, winSize int) *mat.Dense {
	h, w := img.Dims()
	imgSup := mat.NewDense(h, w, nil)
	utils.ParallelForEachPixel(image.Point{w, h}, func(x, y int) {
		v := img.At(y, x)
		if v == 0 {
			return
		}
		for ny := utils.ClampInt(y-winSize, 0, h-1); ny <= utils.ClampInt(y+winSize, 0, h-1); ny++ {
			for nx := utils.ClampInt(x-winSize, 0, w-1); nx <= utils.ClampInt(x+winSize, 0, w-1); nx++ {
				nv := img.At(ny, nx)
				if nv > v {
					return
				}
				if nv == v && (ny < y || (ny == y && nx < x)) {
					return
				}
			}
		}
		imgSup.Set(y, x, v)
	})
	return imgSup
}

// GetSaddleMapPoints returns the saddle map of a gray image and its local maxima, strongest first,
// at most cfg.MaxCandidates of them.
func GetSaddleMapPoints(gray *mat.Dense, cfg *SaddleConfiguration) (*mat.Dense, []saddle, error) {
	saddleMap, err := ComputeSaddleMap(gray)
	if err != nil {
		return nil, nil, err
	}
	if mat.Max(saddleMap) == 0 {
		return saddleMap, nil, nil
	}
	nms := NonMaxSuppression(PruneSaddle(saddleMap, cfg.RelativeThreshold), cfg.NMSWindowSize)

	h, w := nms.Dims()
	var saddles []saddle
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if v := nms.At(y, x); v > 0 {
				saddles = append(saddles, saddle{image.Point{x, y}, v})
			}
		}
	}
	sort.SliceStable(saddles, func(i, j int) bool { return saddles[i].score > saddles[j].score })
	if len(saddles) > cfg.MaxCandidates {
		saddles = saddles[:cfg.MaxCandidates]
	}
	return saddleMap, saddles, nil
}

func saddlePoints(saddles []saddle) []r2.Point {
	pts := make([]r2.Point, len(saddles))
	for i, s := range saddles {
		pts[i] = r2.Point{X: float64(s.pt.X), Y: float64(s.pt.Y)}
	}
	return pts
}
