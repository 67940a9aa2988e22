package calibration

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// TermCriteria stops an iterative solver after MaxIter iterations or once its update falls below
// Epsilon, whichever comes first.
type TermCriteria struct {
	MaxIter int     `json:"max_iter"`
	Epsilon float64 `json:"epsilon"`
}

// DefaultTermCriteria is 30 iterations or an update of 0.001.
var DefaultTermCriteria = TermCriteria{MaxIter: 30, Epsilon: 0.001}

// Validate checks that both bounds are positive.
func (tc TermCriteria) Validate(path string) error {
	if tc.MaxIter < 1 {
		return errors.Errorf("%s.max_iter must be >= 1, got %d", path, tc.MaxIter)
	}
	if tc.Epsilon <= 0 {
		return errors.Errorf("%s.epsilon must be > 0, got %v", path, tc.Epsilon)
	}
	return nil
}

// A LeastSquaresProblem is a vector of residuals r(x) to minimize in the least squares sense.
type LeastSquaresProblem interface {
	NumParams() int
	NumResiduals() int
	// Residuals writes r(x) into r.
	Residuals(r, x []float64)
	// Jacobian writes dr/dx at x into jac, a NumResiduals x NumParams matrix.
	Jacobian(jac *mat.Dense, x []float64)
}

// LMSettings configure LevenbergMarquardt.
type LMSettings struct {
	Criteria TermCriteria
	// InitialLambda is the starting damping, relative to the diagonal of JᵀJ.
	InitialLambda float64
}

// LMIteration records one accepted step.
type LMIteration struct {
	Iter   int
	Cost   float64
	Lambda float64
	// Update is the largest parameter change relative to max(|x_i|, 1).
	Update float64
}

// LMResult is the outcome of LevenbergMarquardt. Cost is half the squared norm of the residuals.
type LMResult struct {
	X          []float64
	Cost       float64
	Iterations int
	Converged  bool
	Trace      []LMIteration
}

// LevenbergMarquardt minimizes the problem starting from x0. Every iteration solves the damped
// normal equations (JᵀJ + λ diag(JᵀJ)) δ = -Jᵀr by Cholesky factorization. A step that lowers
// the cost is accepted and λ shrinks tenfold, otherwise λ grows tenfold and the step is retried.
// It stops once an accepted step moves no parameter by more than Epsilon relative to
// max(|x_i|, 1), or after MaxIter iterations. The context is checked between iterations.
func LevenbergMarquardt(ctx context.Context, problem LeastSquaresProblem, x0 []float64, settings LMSettings) (*LMResult, error) {
	n, m := problem.NumParams(), problem.NumResiduals()
	if len(x0) != n {
		return nil, errors.Errorf("expected %d parameters, got %d", n, len(x0))
	}
	if m < n {
		return nil, errors.Wrapf(ErrUnderdeterminedSystem, "%d residuals for %d parameters", m, n)
	}
	lambda := settings.InitialLambda
	if lambda <= 0 {
		lambda = 1e-3
	}

	x := append([]float64(nil), x0...)
	r := make([]float64, m)
	problem.Residuals(r, x)
	cost := floats.Dot(r, r) / 2
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		return nil, errors.Wrap(ErrNumericalDivergence, "initial cost is not finite")
	}

	res := &LMResult{}
	jac := mat.NewDense(m, n, nil)
	var jtj mat.SymDense
	grad := mat.NewVecDense(n, nil)
	damped := mat.NewSymDense(n, nil)
	var chol mat.Cholesky
	var delta mat.VecDense
	xNew := make([]float64, n)
	rNew := make([]float64, m)

	stale := true
	for iter := 0; iter < settings.Criteria.MaxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res.Iterations = iter + 1
		if stale {
			problem.Jacobian(jac, x)
			jtj.SymOuterK(1, jac.T())
			grad.MulVec(jac.T(), mat.NewVecDense(m, r))
			stale = false
		}

		damped.CopySym(&jtj)
		for i := 0; i < n; i++ {
			damped.SetSym(i, i, jtj.At(i, i)*(1+lambda))
		}
		if ok := chol.Factorize(damped); !ok {
			return nil, errors.Wrapf(ErrNumericalDivergence, "normal equations are singular at iteration %d", iter)
		}
		if err := chol.SolveVecTo(&delta, grad); err != nil {
			return nil, errors.Wrapf(ErrNumericalDivergence, "solving the normal equations: %v", err)
		}

		update := 0.
		for i := range x {
			d := -delta.AtVec(i)
			xNew[i] = x[i] + d
			update = math.Max(update, math.Abs(d)/math.Max(math.Abs(x[i]), 1))
		}
		problem.Residuals(rNew, xNew)
		costNew := floats.Dot(rNew, rNew) / 2
		if math.IsNaN(costNew) {
			return nil, errors.Wrapf(ErrNumericalDivergence, "cost is not a number at iteration %d", iter)
		}

		if costNew >= cost {
			lambda *= 10
			continue
		}
		copy(x, xNew)
		copy(r, rNew)
		cost = costNew
		lambda /= 10
		stale = true
		res.Trace = append(res.Trace, LMIteration{Iter: iter, Cost: cost, Lambda: lambda, Update: update})
		if update < settings.Criteria.Epsilon {
			res.Converged = true
			break
		}
	}

	res.X = x
	res.Cost = cost
	return res, nil
}
