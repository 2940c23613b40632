package spectrum

import (
	"math"
	"math/cmplx"

	phonon "github.com/Huaguiyuan/gophonon"
	"gonum.org/v1/gonum/integrate"
)

// Integration selects how the correlation kernel integrates over lag time.
type Integration int

const (
	Trapezoid Integration = iota
	Rectangular
)

// Kernel evaluates, for every requested frequency independently, the
// autocorrelation weighted oscillatory integral of a single time series. It
// returns one real intensity per frequency. The step subsamples the lag axis.
// External, possibly parallel, kernels can be plugged in through this type;
// CorrelationKernel is the built-in default.
type Kernel func(freqs []float64, series []complex128, timeStep float64, step int, method Integration) ([]float64, error)

// Fourier is the correlation Fourier transform estimator. It delegates the
// per-frequency evaluation to its Kernel, so no intermediate full spectrum is
// ever built.
type Fourier struct {
	step        int
	integration Integration
	kernel      Kernel
}

// NewFourier returns a correlation Fourier estimator with lag step 1,
// trapezoid integration and the built-in kernel.
func NewFourier() *Fourier {
	return &Fourier{step: 1, integration: Trapezoid, kernel: CorrelationKernel}
}

// Returns the lag subsampling step, and sets it to a new value, if given.
func (F *Fourier) Step(n ...int) int {
	if len(n) > 0 && n[0] > 0 {
		F.step = n[0]
	}
	return F.step
}

// Returns the integration method, and sets it to a new value, if given.
func (F *Fourier) Integration(m ...Integration) Integration {
	if len(m) > 0 {
		F.integration = m[0]
	}
	return F.integration
}

// Kernel replaces the correlation kernel.
func (F *Fourier) Kernel(k Kernel) {
	F.kernel = k
}

func (F *Fourier) Label() string { return "Fourier" }

func (F *Fourier) Estimate(freqs []float64, series []complex128, timeStep float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptySeries, "Fourier.Estimate")
	}
	if len(freqs) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptyFreqs, "Fourier.Estimate")
	}
	return F.kernel(freqs, series, timeStep, F.step, F.integration)
}

// CorrelationKernel computes the lag autocorrelation of the series, with the
// unbiased 1/(n-lag) normalization, and integrates its product with
// cos(2 pi f lag) over lag time up to each requested frequency. The lag axis
// is subsampled by step. Intensities are clamped at zero, the spectrum being
// a power density.
func CorrelationKernel(freqs []float64, series []complex128, timeStep float64, step int, method Integration) ([]float64, error) {
	n := len(series)
	if n == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptySeries, "CorrelationKernel")
	}
	if step < 1 {
		step = 1
	}
	nlags := (n + step - 1) / step
	lags := make([]float64, 0, nlags)
	acf := make([]float64, 0, nlags)
	for lag := 0; lag < n; lag += step {
		var acc complex128
		for t := 0; t+lag < n; t++ {
			acc += cmplx.Conj(series[t]) * series[t+lag]
		}
		acf = append(acf, real(acc)/float64(n-lag))
		lags = append(lags, float64(lag)*timeStep)
	}

	psd := make([]float64, len(freqs))
	integrand := make([]float64, len(acf))
	for fi, f := range freqs {
		omega := 2 * math.Pi * f
		for i, c := range acf {
			integrand[i] = c * math.Cos(omega*lags[i])
		}
		var v float64
		if method == Rectangular || len(integrand) < 2 {
			for _, y := range integrand {
				v += y
			}
			v *= timeStep * float64(step)
		} else {
			v = integrate.Trapezoidal(lags, integrand)
		}
		if v < 0 {
			v = 0
		}
		psd[fi] = 2 * v
	}
	return psd, nil
}
