//Package fit provides the Lorentzian lineshape and a small nonlinear least
//squares fitter for extracting peak parameters from power spectra.
package fit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Lorentzian evaluates the 4-parameter lineshape
// A/(pi*gamma*(1+((x-x0)/gamma)^2)) + base at x. The parameter vector is
// (x0, gamma, A, base): peak position, half width at half maximum, area
// scale and baseline offset. The full width at half maximum is 2*gamma and
// the peak height above baseline is A/(gamma*pi).
func Lorentzian(x float64, p []float64) float64 {
	u := (x - p[0]) / p[1]
	return p[2]/(math.Pi*p[1]*(1+u*u)) + p[3]
}

// ErrorFromCovariance condenses a fit covariance matrix into a single error
// figure, its Frobenius norm.
func ErrorFromCovariance(cov *mat.Dense) float64 {
	return mat.Norm(cov, 2)
}
