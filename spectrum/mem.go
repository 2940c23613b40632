package spectrum

import (
	"math"

	phonon "github.com/Huaguiyuan/gophonon"
)

// MaxEnt is the maximum entropy spectral estimator: the series is modeled as
// an autoregressive process with a fixed number of prediction coefficients,
// obtained by Burg's recursion, and the model's analytic power spectrum is
// evaluated on the frequency grid. Short, smooth estimates from few samples
// are the point of the method; the coefficient count trades resolution
// against spurious structure (see the scan package).
type MaxEnt struct {
	coefficients int
}

// NewMaxEnt returns a maximum entropy estimator with the given number of
// prediction coefficients.
func NewMaxEnt(coefficients int) *MaxEnt {
	return &MaxEnt{coefficients: coefficients}
}

// Returns the number of prediction coefficients, and sets it to a new value,
// if given.
func (M *MaxEnt) Coefficients(n ...int) int {
	if len(n) > 0 && n[0] > 0 {
		M.coefficients = n[0]
	}
	return M.coefficients
}

func (M *MaxEnt) Label() string { return "M. Entropy" }

func (M *MaxEnt) Estimate(freqs []float64, series []complex128, timeStep float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptySeries, "MaxEnt.Estimate")
	}
	if len(freqs) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptyFreqs, "MaxEnt.Estimate")
	}
	// the linear system is underdetermined otherwise
	if len(series) <= M.coefficients+1 {
		return nil, phonon.NewError(phonon.UnderdeterminedModel, phonon.ErrTooManyCoefs, "MaxEnt.Estimate")
	}
	x := phonon.RealPart(series)
	d, pm := burg(x, M.coefficients)

	psd := make([]float64, len(freqs))
	for i, f := range freqs {
		theta := 2 * math.Pi * f * timeStep
		sumr, sumi := 1.0, 0.0
		for k := 1; k <= len(d); k++ {
			c, s := math.Cos(float64(k)*theta), math.Sin(float64(k)*theta)
			sumr -= d[k-1] * c
			sumi -= d[k-1] * s
		}
		psd[i] = pm * timeStep / (sumr*sumr + sumi*sumi)
	}
	return psd, nil
}

// burg estimates m linear prediction coefficients and the white noise power
// of the series by Burg's recursion: reflection coefficients chosen to
// minimize combined forward and backward prediction error.
func burg(x []float64, m int) (d []float64, pm float64) {
	n := len(x)
	for _, v := range x {
		pm += v * v
	}
	pm /= float64(n)

	d = make([]float64, m)
	wkm := make([]float64, m)
	wk1 := make([]float64, n-1)
	wk2 := make([]float64, n-1)
	copy(wk1, x[:n-1])
	copy(wk2, x[1:])

	for k := 1; k <= m; k++ {
		var num, den float64
		for j := 0; j < n-k; j++ {
			num += wk1[j] * wk2[j]
			den += wk1[j]*wk1[j] + wk2[j]*wk2[j]
		}
		if den == 0 {
			d[k-1] = 0
		} else {
			d[k-1] = 2 * num / den
		}
		pm *= 1 - d[k-1]*d[k-1]
		for i := 1; i < k; i++ {
			d[i-1] = wkm[i-1] - d[k-1]*wkm[k-i-1]
		}
		if k == m {
			break
		}
		copy(wkm[:k], d[:k])
		for j := 0; j < n-k-1; j++ {
			wk1[j] -= wkm[k-1] * wk2[j]
			wk2[j] = wk2[j+1] - wkm[k-1]*wk1[j+1]
		}
	}
	return d, pm
}
