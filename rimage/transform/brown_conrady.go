package transform

import "github.com/pkg/errors"

// BrownConrady is the radial (k1, k2, k3) and tangential (p1, p2) lens distortion model, applied
// to normalized image coordinates:
//
//	x_d = x * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y * (1 + k1*r² + k2*r⁴ + k3*r⁶) + p1*(r² + 2*y²) + 2*p2*x*y
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// NewBrownConrady takes in a slice of floats, [k1, k2, k3, p1, p2], that will be passed into the
// struct in order. Missing trailing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	var params [5]float64
	copy(params[:], inp)
	return &BrownConrady{params[0], params[1], params[2], params[3], params[4]}, nil
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as [k1, k2, k3, p1, p2].
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the normalized point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	radial := 1 + r2*(bc.RadialK1+r2*(bc.RadialK2+r2*bc.RadialK3))
	xd := x*radial + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radial + bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y
	return xd, yd
}

// DistortionJacobian holds the partial derivatives of a distorted point.
type DistortionJacobian struct {
	// Point is [[dxd/dx, dxd/dy], [dyd/dx, dyd/dy]].
	Point [2][2]float64
	// Params is indexed [output][param] with params in [k1, k2, k3, p1, p2] order.
	Params [2][5]float64
}

// TransformWithJacobian distorts (x, y) and returns the partial derivatives of the result with
// respect to the input point and to the model parameters.
func (bc *BrownConrady) TransformWithJacobian(x, y float64) (float64, float64, DistortionJacobian) {
	var jac DistortionJacobian
	xd, yd := bc.Transform(x, y)
	if bc == nil {
		jac.Point = [2][2]float64{{1, 0}, {0, 1}}
		return xd, yd, jac
	}

	k1, k2, k3 := bc.RadialK1, bc.RadialK2, bc.RadialK3
	p1, p2 := bc.TangentialP1, bc.TangentialP2
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2
	radial := 1 + k1*r2 + k2*r4 + k3*r6
	dRadial := 2 * (k1 + 2*k2*r2 + 3*k3*r4) // d(radial)/dx = x*dRadial

	jac.Point[0][0] = radial + x*x*dRadial + 2*p1*y + 6*p2*x
	jac.Point[0][1] = x*y*dRadial + 2*p1*x + 2*p2*y
	jac.Point[1][0] = x*y*dRadial + 2*p1*x + 2*p2*y
	jac.Point[1][1] = radial + y*y*dRadial + 6*p1*y + 2*p2*x

	jac.Params[0] = [5]float64{x * r2, x * r4, x * r6, 2 * x * y, r2 + 2*x*x}
	jac.Params[1] = [5]float64{y * r2, y * r4, y * r6, r2 + 2*y*y, 2 * x * y}
	return xd, yd, jac
}
