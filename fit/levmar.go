package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Model is a scalar model function evaluated at x with the given parameters.
type Model func(x float64, params []float64) float64

// Error is the recoverable fitting failure of this package. Callers scanning
// many candidate fits skip the failing one and keep going.
type Error struct {
	message string
	deco    []string
}

func (err *Error) Error() string { return "fit: " + err.message }

// Decorate adds the dec string to the decoration slice of strings of the
// error, and returns the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Recoverable marks this error as skippable by order scans.
func (err *Error) Recoverable() bool { return true }

const (
	maxIterations = 200
	lambdaStart   = 1e-3
	lambdaMax     = 1e12
	ftol          = 1e-10
	jacobianStep  = 1e-8
)

// Curve fits the model to the (xs, ys) data by Levenberg-Marquardt least
// squares starting from p0, and returns the fitted parameters together with
// their covariance matrix. The Jacobian is taken numerically by forward
// differences. A fit that does not converge, or whose normal equations turn
// singular, returns a *fit.Error; the input slices are never mutated.
func Curve(f Model, xs, ys, p0 []float64) ([]float64, *mat.Dense, error) {
	n := len(xs)
	m := len(p0)
	if n == 0 || len(ys) != n {
		return nil, nil, &Error{message: fmt.Sprintf("need matching data, got %d x and %d y", n, len(ys)), deco: []string{"Curve"}}
	}
	if n <= m {
		return nil, nil, &Error{message: fmt.Sprintf("%d points cannot constrain %d parameters", n, m), deco: []string{"Curve"}}
	}

	p := append([]float64{}, p0...)
	res := make([]float64, n)
	sse := residuals(f, xs, ys, p, res)
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return nil, nil, &Error{message: "model diverges at the initial guess", deco: []string{"Curve"}}
	}

	jac := mat.NewDense(n, m, nil)
	lambda := lambdaStart
	ptrial := make([]float64, m)
	rtrial := make([]float64, n)
	var converged bool

	for iter := 0; iter < maxIterations; iter++ {
		numJacobian(f, xs, p, jac)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		g := mat.NewVecDense(m, nil)
		g.MulVec(jac.T(), mat.NewVecDense(n, res))

		// damped normal equations
		var a mat.Dense
		a.CloneFrom(&jtj)
		for i := 0; i < m; i++ {
			a.Set(i, i, a.At(i, i)*(1+lambda))
		}
		var delta mat.VecDense
		if err := delta.SolveVec(&a, g); err != nil {
			lambda *= 10
			if lambda > lambdaMax {
				return nil, nil, &Error{message: "singular normal equations", deco: []string{"Curve"}}
			}
			continue
		}

		for i := 0; i < m; i++ {
			ptrial[i] = p[i] + delta.AtVec(i)
		}
		strial := residuals(f, xs, ys, ptrial, rtrial)
		if strial < sse && !math.IsNaN(strial) {
			improvement := sse - strial
			copy(p, ptrial)
			copy(res, rtrial)
			sse = strial
			lambda /= 10
			if improvement <= ftol*(sse+ftol) {
				converged = true
				break
			}
		} else {
			lambda *= 10
			if lambda > lambdaMax {
				break
			}
		}
	}
	if !converged && lambda > lambdaMax {
		return nil, nil, &Error{message: "no convergence", deco: []string{"Curve"}}
	}

	// covariance: inverse of J^T J at the solution, scaled by the residual
	// variance, as the usual asymptotic estimate
	numJacobian(f, xs, p, jac)
	var jtj mat.Dense
	jtj.Mul(jac.T(), jac)
	var inv mat.Dense
	if err := inv.Inverse(&jtj); err != nil {
		return nil, nil, &Error{message: "covariance is singular: " + err.Error(), deco: []string{"Curve"}}
	}
	s2 := sse / float64(n-m)
	inv.Scale(s2, &inv)
	return p, &inv, nil
}

// residuals fills res with ys - f(xs) and returns the sum of squares.
func residuals(f Model, xs, ys, p, res []float64) float64 {
	for i, x := range xs {
		res[i] = ys[i] - f(x, p)
	}
	return floats.Dot(res, res)
}

// numJacobian fills jac with the forward difference Jacobian of the model
// with respect to the parameters. With residuals r = y - f, the step that
// solves (J^T J + lambda diag) delta = J^T r then moves downhill.
func numJacobian(f Model, xs, p []float64, jac *mat.Dense) {
	n := len(xs)
	m := len(p)
	pt := append([]float64{}, p...)
	for j := 0; j < m; j++ {
		h := jacobianStep * math.Abs(p[j])
		if h == 0 {
			h = jacobianStep
		}
		pt[j] = p[j] + h
		for i := 0; i < n; i++ {
			jac.Set(i, j, (f(xs[i], pt)-f(xs[i], p))/h)
		}
		pt[j] = p[j]
	}
}
