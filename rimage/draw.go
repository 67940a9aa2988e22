package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font/basicfont"
)

// rowPalette is cycled through per grid row when drawing corners.
var rowPalette = []color.Color{
	color.RGBA{255, 0, 0, 255},
	color.RGBA{255, 128, 0, 255},
	color.RGBA{200, 200, 0, 255},
	color.RGBA{0, 200, 0, 255},
	color.RGBA{0, 200, 200, 255},
	color.RGBA{0, 0, 255, 255},
	color.RGBA{255, 0, 255, 255},
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color) {
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetColor(c)
	dc.DrawString(text, float64(p.X), float64(p.Y))
}

// DrawChessboardCorners returns a copy of img with the corners drawn on top. Found grids are drawn
// as a colored polyline in raster order, one color per row of `cols` corners; partial results are
// drawn as red circles.
func DrawChessboardCorners(img image.Image, corners []r2.Point, cols int, found bool) image.Image {
	if !found || cols <= 0 {
		return DrawCircles(img, corners, rowPalette[0])
	}

	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1.5)
	const radius = 4.

	for i, pt := range corners {
		c := rowPalette[(i/cols)%len(rowPalette)]
		dc.SetColor(c)
		dc.DrawCircle(pt.X, pt.Y, radius)
		dc.Stroke()
		if i > 0 {
			prev := corners[i-1]
			dc.DrawLine(prev.X, prev.Y, pt.X, pt.Y)
			dc.Stroke()
		}
	}
	return dc.Image()
}

// DrawPoints returns a black image of the given size with the points drawn as filled dots.
func DrawPoints(width, height int, points []image.Point, c color.Color) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.SetColor(c)
	for _, pt := range points {
		dc.DrawPoint(float64(pt.X), float64(pt.Y), 2.5)
		dc.Fill()
	}
	return dc.Image()
}

// DrawCircles returns a copy of img with a circle outline around every point.
func DrawCircles(img image.Image, points []r2.Point, c color.Color) image.Image {
	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(1.5)
	dc.SetColor(c)
	for _, pt := range points {
		dc.DrawCircle(pt.X, pt.Y, 4)
		dc.Stroke()
	}
	return dc.Image()
}
