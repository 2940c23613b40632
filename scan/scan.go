//Package scan picks the maximum entropy model order that best resolves one
//vibrational peak. For each candidate coefficient count it estimates the
//spectrum, fits a Lorentzian to it and records the width and a normalized
//fitting error; the candidate with the smallest error supplies the canonical
//spectrum and peak position, while the reported width averages every
//candidate, weighted by the inverse root of its error.
package scan

import (
	"fmt"
	"io"
	"log"
	"math"

	phonon "github.com/Huaguiyuan/gophonon"
	"github.com/Huaguiyuan/gophonon/fit"
	"github.com/Huaguiyuan/gophonon/spectrum"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Candidate is one entry of the order scan table: the outcome of fitting a
// Lorentzian to the spectrum estimated with a given coefficient count.
type Candidate struct {
	Coefficients int
	Width        float64 //full width at half maximum, THz
	Error        float64 //fit error normalized by the peak height
	Params       [4]float64
	Spectrum     []float64
}

// Result is the terminal state of the scan for one mode.
type Result struct {
	Mode             int
	Spectrum         []float64 //spectrum of the best candidate
	BestWidth        float64   //error weighted average width, THz
	BestCoefficients int
	Position         float64 //peak position of the best candidate, THz
	MinError         float64
	Scan             []Candidate
}

// halfWidthGuess seeds the Lorentzian gamma parameter.
const halfWidthGuess = 0.1

// Coefficients scans the maximum entropy coefficient count over scanRange,
// in ascending order, for a single mode. Candidates whose Lorentzian fit does
// not converge are logged and skipped; estimation failures abort the scan.
// prog may be nil.
func Coefficients(freqs []float64, series []complex128, timeStep float64, scanRange []int, prog spectrum.Progress) (*Result, error) {
	if len(scanRange) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, "Empty coefficient scan range", "scan.Coefficients")
	}
	const label = "M.E. Method"
	if prog != nil {
		prog(0, label)
	}
	est := spectrum.NewMaxEnt(scanRange[0])
	last := scanRange[len(scanRange)-1]

	candidates := make([]Candidate, 0, len(scanRange))
	for _, ncoef := range scanRange {
		est.Coefficients(ncoef)
		psd, err := est.Estimate(freqs, series, timeStep)
		if err != nil {
			return nil, errDecorate(err, "scan.Coefficients")
		}
		height := floats.Max(psd)
		position := freqs[floats.MaxIdx(psd)]

		params, cov, err := fit.Curve(fit.Lorentzian, freqs, psd,
			[]float64{position, halfWidthGuess, height, 0.0})
		if err != nil {
			log.Printf("gophonon/scan: fitting error, skipping point %d", ncoef)
			continue
		}
		maximum := params[2] / (params[1] * math.Pi)
		cand := Candidate{
			Coefficients: ncoef,
			Width:        2.0 * params[1],
			Error:        fit.ErrorFromCovariance(cov) / maximum,
			Spectrum:     psd,
		}
		copy(cand.Params[:], params)
		candidates = append(candidates, cand)
		if prog != nil {
			prog(float64(ncoef+1)/float64(last), label)
		}
	}
	if len(candidates) == 0 {
		return nil, phonon.NewError(phonon.FitFailure, "No coefficient count could be fitted", "scan.Coefficients")
	}

	widths := make([]float64, len(candidates))
	weights := make([]float64, len(candidates))
	errors := make([]float64, len(candidates))
	for i, c := range candidates {
		widths[i] = c.Width
		weights[i] = math.Sqrt(1.0 / c.Error)
		errors[i] = c.Error
	}
	best := floats.MinIdx(errors)

	return &Result{
		Spectrum:         candidates[best].Spectrum,
		BestWidth:        stat.Mean(widths, weights),
		BestCoefficients: candidates[best].Coefficients,
		Position:         candidates[best].Params[0],
		MinError:         errors[best],
		Scan:             candidates,
	}, nil
}

// Modes runs the coefficient scan over every column of vq and returns one
// Result per mode.
func Modes(freqs []float64, vq *mat.CDense, timeStep float64, scanRange []int, prog spectrum.Progress) ([]*Result, error) {
	_, nmodes := vq.Dims()
	results := make([]*Result, nmodes)
	for col := 0; col < nmodes; col++ {
		n, _ := vq.Dims()
		series := make([]complex128, n)
		for t := 0; t < n; t++ {
			series[t] = vq.At(t, col)
		}
		r, err := Coefficients(freqs, series, timeStep, scanRange, prog)
		if err != nil {
			return nil, errDecorate(err, "scan.Modes")
		}
		r.Mode = col
		results[col] = r
	}
	return results, nil
}

// Report writes the per-peak summary of the scan results, one block per mode.
func Report(w io.Writer, results []*Result) {
	for _, r := range results {
		fmt.Fprintf(w, "Peak # %d\n", r.Mode+1)
		fmt.Fprintf(w, "------------------------------------\n")
		fmt.Fprintf(w, "Estimated width(FWHM): %g THz\n", r.BestWidth)
		fmt.Fprintf(w, "Position: %g THz\n", r.Position)
		fmt.Fprintf(w, "Optimum coefficients num: %d\n", r.BestCoefficients)
		fmt.Fprintf(w, "Fitting Error: %g\n\n", r.MinError)
	}
}

func errDecorate(err error, caller string) error {
	if err2, ok := err.(phonon.Error); ok {
		err2.Decorate(caller)
		return err2
	}
	return err
}
