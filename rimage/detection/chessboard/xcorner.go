package chessboard

import (
	"math"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage"
)

const ringSamples = 32

// nearestDistances returns, for every point, the distance to its closest other point.
func nearestDistances(pts []r2.Point) []float64 {
	out := make([]float64, len(pts))
	for i, p := range pts {
		best := math.Inf(1)
		for j, q := range pts {
			if i == j {
				continue
			}
			if d := p.Sub(q).Norm(); d < best {
				best = d
			}
		}
		out[i] = best
	}
	return out
}

// isXCorner samples a circle of the given radius around pt. Around an X-junction between four
// squares the circle crosses alternating dark and bright arcs, so its binarized profile switches
// exactly four times. Outer board corners and border corners switch twice.
func isXCorner(gray *mat.Dense, pt r2.Point, radius, minContrast float64) bool {
	var samples [ringSamples]float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for k := range samples {
		angle := 2 * math.Pi * float64(k) / ringSamples
		v := rimage.BilinearAt(gray, pt.X+radius*math.Cos(angle), pt.Y+radius*math.Sin(angle))
		samples[k] = v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < minContrast {
		return false
	}

	mid := (lo + hi) / 2
	transitions := 0
	shortestArc, arc := ringSamples, 0
	first := -1
	for k := 0; k < ringSamples; k++ {
		cur := samples[k] > mid
		next := samples[(k+1)%ringSamples] > mid
		arc++
		if cur != next {
			transitions++
			if first < 0 {
				// the arc before the first switch wraps around and is measured at the end
				first = k
				arc = 0
				continue
			}
			if arc < shortestArc {
				shortestArc = arc
			}
			arc = 0
		}
	}
	if transitions != 4 {
		return false
	}
	// wrapped arc: from the last switch to the first one
	if wrapped := arc + first + 1; wrapped < shortestArc {
		shortestArc = wrapped
	}
	return shortestArc >= 2
}

// filterXCorners keeps the saddles that pass the ring test, in their original order.
func filterXCorners(gray *mat.Dense, saddles []saddle, cfg *GridConfiguration) []saddle {
	pts := saddlePoints(saddles)
	nearest := nearestDistances(pts)
	kept := make([]saddle, 0, len(saddles))
	for i, s := range saddles {
		radius := cfg.RingRadiusFactor * nearest[i]
		if math.IsInf(radius, 1) {
			continue
		}
		radius = math.Max(3, math.Min(radius, 20))
		if isXCorner(gray, pts[i], radius, cfg.MinContrast) {
			kept = append(kept, s)
		}
	}
	return kept
}
