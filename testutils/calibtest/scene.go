// Package calibtest builds synthetic calibration scenes: a known camera, a chessboard target seen
// from known poses, the exact corner projections, and rendered images of the board.
package calibtest

import (
	"math/rand"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/spatialmath"
)

// Board is a chessboard with Rows x Cols interior corners spaced by SquareSize.
type Board struct {
	Rows, Cols int
	SquareSize float64
}

// DefaultBoard is the 7x5 corner board with 3 cm squares.
var DefaultBoard = Board{Rows: 5, Cols: 7, SquareSize: 0.03}

// ObjectPoints returns the corners in the board frame, z = 0, columns varying fastest.
func (b Board) ObjectPoints() []r3.Vector {
	pts := make([]r3.Vector, 0, b.Rows*b.Cols)
	for r := 0; r < b.Rows; r++ {
		for c := 0; c < b.Cols; c++ {
			pts = append(pts, r3.Vector{X: float64(c) * b.SquareSize, Y: float64(r) * b.SquareSize})
		}
	}
	return pts
}

func (b Board) center() r3.Vector {
	return r3.Vector{X: float64(b.Cols-1) * b.SquareSize / 2, Y: float64(b.Rows-1) * b.SquareSize / 2}
}

// Pose places the board in the camera frame: p_cam = R(Rotation) * p_board + Translation, with
// Rotation an axis-angle vector.
type Pose struct {
	Rotation    r3.Vector
	Translation r3.Vector
}

// Apply maps a board point into the camera frame.
func (p Pose) Apply(pt r3.Vector) r3.Vector {
	return spatialmath.R3ToRotationMatrix(p.Rotation).Mul(pt).Add(p.Translation)
}

// DefaultCamera returns a 640x480 camera with moderate barrel distortion.
func DefaultCamera() *transform.PinholeCameraModel {
	return &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
			Width: 640, Height: 480, Fx: 800, Fy: 810, Ppx: 322, Ppy: 238,
		},
		Distortion: &transform.BrownConrady{
			RadialK1: -0.12, RadialK2: 0.05, RadialK3: 0, TangentialP1: 0.001, TangentialP2: -0.0008,
		},
	}
}

// PoseLookingAt returns the pose that rotates the board by rotation and puts its center at the
// given camera frame position.
func PoseLookingAt(b Board, rotation, center r3.Vector) Pose {
	rotated := spatialmath.R3ToRotationMatrix(rotation).Mul(b.center())
	return Pose{Rotation: rotation, Translation: center.Sub(rotated)}
}

// StandardPoses returns eight well spread views that keep the whole board and its margin inside a
// 640x480 image of DefaultCamera. The board axes stay aligned with the image axes within 45
// degrees, so detected corners come out in the same raster order as ObjectPoints.
func StandardPoses(b Board) []Pose {
	specs := []struct{ rot, center r3.Vector }{
		{r3.Vector{X: 0.05, Y: -0.05, Z: 0.02}, r3.Vector{X: 0, Y: 0, Z: 0.45}},
		{r3.Vector{X: 0.35, Y: 0.05, Z: 0}, r3.Vector{X: 0.02, Y: -0.01, Z: 0.5}},
		{r3.Vector{X: -0.35, Y: 0, Z: 0.08}, r3.Vector{X: -0.02, Y: 0.02, Z: 0.5}},
		{r3.Vector{X: 0.02, Y: 0.4, Z: -0.05}, r3.Vector{X: 0.03, Y: 0, Z: 0.48}},
		{r3.Vector{X: 0, Y: -0.4, Z: 0.1}, r3.Vector{X: -0.03, Y: 0.01, Z: 0.48}},
		{r3.Vector{X: 0.25, Y: 0.25, Z: 0.2}, r3.Vector{X: 0.04, Y: 0.03, Z: 0.55}},
		{r3.Vector{X: -0.25, Y: -0.3, Z: -0.15}, r3.Vector{X: -0.04, Y: -0.03, Z: 0.52}},
		{r3.Vector{X: 0.2, Y: -0.2, Z: 0.3}, r3.Vector{X: 0, Y: 0.02, Z: 0.5}},
	}
	poses := make([]Pose, len(specs))
	for i, s := range specs {
		poses[i] = PoseLookingAt(b, s.rot, s.center)
	}
	return poses
}

// Scene is a camera looking at a board from several poses.
type Scene struct {
	Board  Board
	Camera *transform.PinholeCameraModel
	Poses  []Pose
}

// NewStandardScene returns DefaultBoard seen by DefaultCamera from StandardPoses.
func NewStandardScene() *Scene {
	return &Scene{Board: DefaultBoard, Camera: DefaultCamera(), Poses: StandardPoses(DefaultBoard)}
}

// ProjectView returns the exact image positions of the board corners for one view.
func (s *Scene) ProjectView(view int) []r2.Point {
	pose := s.Poses[view]
	pts := s.Board.ObjectPoints()
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		out[i], _ = s.Camera.Project(pose.Apply(p))
	}
	return out
}

// Project returns the exact corner projections of every view.
func (s *Scene) Project() [][]r2.Point {
	out := make([][]r2.Point, len(s.Poses))
	for v := range s.Poses {
		out[v] = s.ProjectView(v)
	}
	return out
}

// AddNoise perturbs every coordinate by sigma times a standard normal draw. The draws depend only
// on seed and on the number of points, so a larger sigma scales the very same perturbation.
func AddNoise(views [][]r2.Point, sigma float64, seed int64) [][]r2.Point {
	rng := rand.New(rand.NewSource(seed)) //nolint:gosec
	out := make([][]r2.Point, len(views))
	for v, pts := range views {
		out[v] = make([]r2.Point, len(pts))
		for i, p := range pts {
			out[v][i] = r2.Point{X: p.X + sigma*rng.NormFloat64(), Y: p.Y + sigma*rng.NormFloat64()}
		}
	}
	return out
}
