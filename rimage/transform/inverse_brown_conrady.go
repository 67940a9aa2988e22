package transform

// InverseBrownConrady maps distorted normalized points back to undistorted ones by inverting a
// BrownConrady model with Newton-Raphson iterations.
type InverseBrownConrady struct {
	BrownConrady
}

// NewInverseBrownConrady takes in [k1, k2, k3, p1, p2] of the forward model to invert.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return &InverseBrownConrady{*forward}, nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the forward model as [k1, k2, k3, p1, p2].
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.BrownConrady.Parameters()
}

// Transform finds the undistorted point that the forward model maps onto (xd, yd), starting from
// the distorted point itself. It stops once the forward residual is below 1e-10 or after 20
// iterations.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}

	const maxIterations = 20
	const tolerance = 1e-10

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xEst, yEst, jac := ibc.BrownConrady.TransformWithJacobian(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		a, b := jac.Point[0][0], jac.Point[0][1]
		c, d := jac.Point[1][0], jac.Point[1][1]
		det := a*d - b*c
		if det == 0 {
			break
		}
		xu -= (d*errX - b*errY) / det
		yu -= (-c*errX + a*errY) / det
	}
	return xu, yu
}
