package spectrum

import (
	"log"
	"math/cmplx"

	phonon "github.com/Huaguiyuan/gophonon"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"
)

// FFT is the FFT-of-autocorrelation estimator: the centered, same-length
// autocorrelation of the series, normalized by its length and optionally zero
// padded on the right, is transformed and its magnitude, scaled by
// timeStep/2, is interpolated onto the requested frequency grid.
type FFT struct {
	zeroPadding int
}

// NewFFT returns an FFT estimator padding the autocorrelation with
// zeroPadding trailing zeros. Padding refines the native grid of the
// transform before interpolation; zero disables it.
func NewFFT(zeroPadding int) *FFT {
	if zeroPadding < 0 {
		zeroPadding = 0
	}
	return &FFT{zeroPadding: zeroPadding}
}

// Returns the zero padding length, and sets it to a new value, if given.
func (F *FFT) ZeroPadding(n ...int) int {
	if len(n) > 0 && n[0] >= 0 {
		F.zeroPadding = n[0]
	}
	return F.zeroPadding
}

func (F *FFT) Label() string { return "FFT" }

func (F *FFT) Estimate(freqs []float64, series []complex128, timeStep float64) ([]float64, error) {
	if len(series) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptySeries, "FFT.Estimate")
	}
	if len(freqs) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptyFreqs, "FFT.Estimate")
	}
	if F.zeroPadding > 0 {
		log.Printf("gophonon/spectrum: padding with %d zeros", F.zeroPadding)
	}

	acf := Autocorrelation(series)
	data := make([]complex128, len(acf)+F.zeroPadding)
	copy(data, acf)

	f := fourier.NewCmplxFFT(len(data))
	coeff := f.Coefficients(nil, data)
	ps := make([]float64, len(coeff))
	for i, c := range coeff {
		ps[i] = cmplx.Abs(c) * timeStep / 2.0
	}

	nat := fftFreq(len(data), timeStep)
	inds := make([]int, len(nat))
	floats.Argsort(nat, inds)
	sorted := make([]float64, len(ps))
	for i, idx := range inds {
		sorted[i] = ps[idx]
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(nat, sorted); err != nil {
		return nil, phonon.NewError(phonon.DimensionMismatch, "FFT.Estimate: "+err.Error(), "FFT.Estimate")
	}
	lo, hi := nat[0], nat[len(nat)-1]
	out := make([]float64, len(freqs))
	for i, x := range freqs {
		// clamp, matching constant extrapolation at the grid edges
		if x < lo {
			x = lo
		}
		if x > hi {
			x = hi
		}
		out[i] = pl.Predict(x)
	}
	return out, nil
}

// Autocorrelation returns the same-length, centered autocorrelation of x,
// normalized by len(x): entry j holds the correlation at lag j-len(x)/2.
// It is computed through a zero padded transform of twice the length, so the
// circular product equals the linear correlation.
func Autocorrelation(x []complex128) []complex128 {
	n := len(x)
	pad := make([]complex128, 2*n)
	copy(pad, x)
	f := fourier.NewCmplxFFT(2 * n)
	coeff := f.Coefficients(nil, pad)
	for i, c := range coeff {
		coeff[i] = c * cmplx.Conj(c)
	}
	circ := f.Sequence(nil, coeff)
	scale := complex(1.0/float64(2*n), 0)
	for i := range circ {
		circ[i] *= scale
	}
	// circ[j] is the correlation at lag +j for j < n and at lag j-2n beyond;
	// assemble lags -(n/2) .. n-1-n/2 and divide by n.
	out := make([]complex128, n)
	nrm := complex(float64(n), 0)
	for i := range out {
		lag := i - n/2
		if lag >= 0 {
			out[i] = circ[lag] / nrm
		} else {
			out[i] = circ[2*n+lag] / nrm
		}
	}
	return out
}

// fftFreq returns the discrete Fourier transform sample frequencies for n
// samples spaced d apart, in the standard order: nonnegative frequencies
// first, then the negative ones.
func fftFreq(n int, d float64) []float64 {
	ret := make([]float64, n)
	half := (n - 1) / 2
	for i := 0; i <= half; i++ {
		ret[i] = float64(i) / (float64(n) * d)
	}
	for i := half + 1; i < n; i++ {
		ret[i] = float64(i-n) / (float64(n) * d)
	}
	return ret
}
