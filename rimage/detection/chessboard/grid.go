package chessboard

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

type gridCoord struct{ i, j int }

// latticeNode is a corner placed in the lattice, with the local steps to its neighbours along the
// i and j axes.
type latticeNode struct {
	idx  int
	u, v r2.Point
}

type lattice struct {
	pts     []r2.Point
	byCoord map[gridCoord]int
	byPoint map[int]gridCoord
}

func newLattice(pts []r2.Point) *lattice {
	return &lattice{pts: pts, byCoord: map[gridCoord]int{}, byPoint: map[int]gridCoord{}}
}

func (l *lattice) place(idx int, c gridCoord) {
	l.byCoord[c] = idx
	l.byPoint[idx] = c
}

// closest returns the unplaced point nearest to pred within maxDist, or -1.
func (l *lattice) closest(pred r2.Point, maxDist float64) int {
	best, bestDist := -1, maxDist
	for idx, p := range l.pts {
		if _, placed := l.byPoint[idx]; placed {
			continue
		}
		if d := p.Sub(pred).Norm(); d <= bestDist {
			best, bestDist = idx, d
		}
	}
	return best
}

// seedAxes finds the two lattice steps at a seed: the nearest neighbour, and the nearest neighbour
// that is not close to parallel to it.
func seedAxes(pts []r2.Point, seed int) (r2.Point, r2.Point, bool) {
	type neighbour struct {
		step r2.Point
		dist float64
	}
	neighbours := make([]neighbour, 0, len(pts))
	for idx, p := range pts {
		if idx == seed {
			continue
		}
		step := p.Sub(pts[seed])
		neighbours = append(neighbours, neighbour{step, step.Norm()})
	}
	if len(neighbours) < 2 {
		return r2.Point{}, r2.Point{}, false
	}
	sort.Slice(neighbours, func(a, b int) bool { return neighbours[a].dist < neighbours[b].dist })

	u := neighbours[0].step
	for _, n := range neighbours[1:] {
		if n.dist > 2*neighbours[0].dist {
			break
		}
		cos := math.Abs(u.Dot(n.step)) / (u.Norm() * n.dist)
		if cos < 0.5 {
			return u, n.step, true
		}
	}
	return r2.Point{}, r2.Point{}, false
}

// growLattice assigns integer lattice coordinates to the points reachable from the seed by
// repeatedly predicting the four neighbours of every placed corner from its local steps. A
// neighbour is accepted when an unplaced point lies within tolerance times the step length of the
// prediction.
func growLattice(pts []r2.Point, seed int, tolerance float64) *lattice {
	l := newLattice(pts)
	u, v, ok := seedAxes(pts, seed)
	if !ok {
		return l
	}

	l.place(seed, gridCoord{0, 0})
	queue := []latticeNode{{seed, u, v}}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		p := pts[node.idx]
		at := l.byPoint[node.idx]

		moves := []struct {
			delta  gridCoord
			step   r2.Point
			alongU bool
		}{
			{gridCoord{1, 0}, node.u, true},
			{gridCoord{-1, 0}, node.u.Mul(-1), true},
			{gridCoord{0, 1}, node.v, false},
			{gridCoord{0, -1}, node.v.Mul(-1), false},
		}
		for _, move := range moves {
			target := gridCoord{at.i + move.delta.i, at.j + move.delta.j}
			if _, taken := l.byCoord[target]; taken {
				continue
			}
			pred := p.Add(move.step)
			found := l.closest(pred, tolerance*math.Min(node.u.Norm(), node.v.Norm()))
			if found < 0 {
				continue
			}
			l.place(found, target)

			step := pts[found].Sub(p)
			next := latticeNode{found, node.u, node.v}
			switch {
			case move.alongU && move.delta.i > 0:
				next.u = step
			case move.alongU:
				next.u = step.Mul(-1)
			case move.delta.j > 0:
				next.v = step
			default:
				next.v = step.Mul(-1)
			}
			queue = append(queue, next)
		}
	}
	return l
}

// fullWindows returns the origin of every fully populated ni x nj block of lattice coordinates.
func (l *lattice) fullWindows(ni, nj int) []gridCoord {
	if len(l.byCoord) < ni*nj {
		return nil
	}
	minI, maxI, minJ, maxJ := math.MaxInt, math.MinInt, math.MaxInt, math.MinInt
	for c := range l.byCoord {
		minI, maxI = min(minI, c.i), max(maxI, c.i)
		minJ, maxJ = min(minJ, c.j), max(maxJ, c.j)
	}

	var origins []gridCoord
	for i0 := minI; i0+ni-1 <= maxI; i0++ {
		for j0 := minJ; j0+nj-1 <= maxJ; j0++ {
			if l.blockFull(i0, j0, ni, nj) {
				origins = append(origins, gridCoord{i0, j0})
			}
		}
	}
	return origins
}

func (l *lattice) blockFull(i0, j0, ni, nj int) bool {
	for i := i0; i < i0+ni; i++ {
		for j := j0; j < j0+nj; j++ {
			if _, ok := l.byCoord[gridCoord{i, j}]; !ok {
				return false
			}
		}
	}
	return true
}

// meanStep averages the displacement between lattice neighbours along i (alongI) or j inside the
// block at origin with extent ni x nj.
func (l *lattice) meanStep(origin gridCoord, ni, nj int, alongI bool) r2.Point {
	var sum r2.Point
	n := 0
	for i := origin.i; i < origin.i+ni; i++ {
		for j := origin.j; j < origin.j+nj; j++ {
			next := gridCoord{i, j + 1}
			if alongI {
				next = gridCoord{i + 1, j}
			}
			nextIdx, ok := l.byCoord[next]
			if !ok || next.i >= origin.i+ni || next.j >= origin.j+nj {
				continue
			}
			sum = sum.Add(l.pts[nextIdx].Sub(l.pts[l.byCoord[gridCoord{i, j}]]))
			n++
		}
	}
	if n == 0 {
		return r2.Point{}
	}
	return sum.Mul(1 / float64(n))
}

// orderWindow returns the corners of the block in raster order: rows of `cols` corners, columns
// varying fastest. The axis holding `cols` corners is the column axis; for square boards it is the
// axis closest to the image x axis. Columns then run towards increasing x and rows towards
// increasing y.
func (l *lattice) orderWindow(origin gridCoord, ni, nj, rows, cols int) []r2.Point {
	stepI := l.meanStep(origin, ni, nj, true)
	stepJ := l.meanStep(origin, ni, nj, false)

	colAlongI := ni == cols
	if rows == cols {
		colAlongI = math.Abs(stepI.X)/stepI.Norm() >= math.Abs(stepJ.X)/stepJ.Norm()
	}
	colStep, rowStep := stepJ, stepI
	if colAlongI {
		colStep, rowStep = stepI, stepJ
	}
	reverseCol := colStep.X < 0
	reverseRow := rowStep.Y < 0

	corners := make([]r2.Point, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			rr, cc := r, c
			if reverseRow {
				rr = rows - 1 - r
			}
			if reverseCol {
				cc = cols - 1 - c
			}
			coord := gridCoord{origin.i + rr, origin.j + cc}
			if colAlongI {
				coord = gridCoord{origin.i + cc, origin.j + rr}
			}
			corners = append(corners, l.pts[l.byCoord[coord]])
		}
	}
	return corners
}

// findGrid tries seeds in order and returns the ordered rows x cols corners of the first lattice
// that holds exactly one fully populated board-sized window.
func findGrid(pts []r2.Point, rows, cols int, cfg *GridConfiguration) ([]r2.Point, bool) {
	if len(pts) < rows*cols {
		return nil, false
	}
	for seed := 0; seed < len(pts) && seed < cfg.MaxSeeds; seed++ {
		l := growLattice(pts, seed, cfg.Tolerance)
		if len(l.byCoord) < rows*cols {
			continue
		}

		type candidate struct {
			origin gridCoord
			ni, nj int
		}
		var windows []candidate
		for _, o := range l.fullWindows(cols, rows) {
			windows = append(windows, candidate{o, cols, rows})
		}
		if rows != cols {
			for _, o := range l.fullWindows(rows, cols) {
				windows = append(windows, candidate{o, rows, cols})
			}
		}
		if len(windows) != 1 {
			continue
		}
		w := windows[0]
		return l.orderWindow(w.origin, w.ni, w.nj, rows, cols), true
	}
	return nil, false
}
