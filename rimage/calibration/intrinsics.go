package calibration

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/camcal/rimage/transform"
	"go.viam.com/camcal/spatialmath"
)

// CameraIntrinsics are the focal lengths and principal point in pixels, and the Brown-Conrady
// distortion coefficients. Skew is zero.
type CameraIntrinsics struct {
	Fx float64 `json:"fx"`
	Fy float64 `json:"fy"`
	Cx float64 `json:"cx"`
	Cy float64 `json:"cy"`
	K1 float64 `json:"k1"`
	K2 float64 `json:"k2"`
	K3 float64 `json:"k3"`
	P1 float64 `json:"p1"`
	P2 float64 `json:"p2"`
}

// CameraMatrix returns K = [[fx 0 cx] [0 fy cy] [0 0 1]].
func (c *CameraIntrinsics) CameraMatrix() *mat.Dense {
	return c.PinholeModel(ImageSize{}).GetCameraMatrix()
}

// Distortion returns the distortion coefficients in k1, k2, p1, p2, k3 order.
func (c *CameraIntrinsics) Distortion() []float64 {
	return []float64{c.K1, c.K2, c.P1, c.P2, c.K3}
}

// PinholeModel returns the camera model for images of the given size.
func (c *CameraIntrinsics) PinholeModel(size ImageSize) *transform.PinholeCameraModel {
	return &transform.PinholeCameraModel{
		PinholeCameraIntrinsics: &transform.PinholeCameraIntrinsics{
			Width:  size.Width,
			Height: size.Height,
			Fx:     c.Fx,
			Fy:     c.Fy,
			Ppx:    c.Cx,
			Ppy:    c.Cy,
		},
		Distortion: &transform.BrownConrady{
			RadialK1:     c.K1,
			RadialK2:     c.K2,
			RadialK3:     c.K3,
			TangentialP1: c.P1,
			TangentialP2: c.P2,
		},
	}
}

// Project maps a board point seen from pose to distorted pixel coordinates. The boolean is false
// when the point is not in front of the camera.
func (c *CameraIntrinsics) Project(pose ViewPose, pt r3.Vector) (r2.Point, bool) {
	return c.PinholeModel(ImageSize{}).Project(pose.Apply(pt))
}

// ViewPose places the board in the camera frame: Rotation is an axis-angle vector.
type ViewPose struct {
	Rotation    r3.Vector
	Translation r3.Vector
}

// Apply maps a board point into the camera frame.
func (p ViewPose) Apply(pt r3.Vector) r3.Vector {
	return spatialmath.R3ToRotationMatrix(p.Rotation).Mul(pt).Add(p.Translation)
}

// Estimate is the camera and the pose of every view used by a calibration stage. Views holds, for
// each pose, the position of its view in CorrespondenceSet.Views.
type Estimate struct {
	Intrinsics CameraIntrinsics
	Poses      []ViewPose
	Views      []int
}
