//Package spectrum estimates power spectral densities of vibrational modes.
//Each estimator maps one time series and a target frequency grid, in THz, to
//a power spectrum aligned with that grid; Compute applies an estimator to
//every column of a (time x mode) matrix. Intensities are returned in eV*ps,
//through the fixed u*A^2*THz conversion constant.
package spectrum

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	phonon "github.com/Huaguiyuan/gophonon"
	"gonum.org/v1/gonum/mat"
)

// UnitConversion converts u*A^2*THz to eV*ps.
const UnitConversion = 6.651206285e-4

// Estimator is one spectral estimation method. Estimate maps a single mode's
// time series and the shared frequency grid to one intensity per grid point.
// Implementations must not retain or mutate their inputs: Compute calls them
// from several goroutines.
type Estimator interface {
	Label() string
	Estimate(freqs []float64, series []complex128, timeStep float64) ([]float64, error)
}

// Progress is called after each finished mode with a value growing
// monotonically from 0 to 1, and the label of the running method. It is an
// observable side effect for interactive use, not needed for correctness.
type Progress func(progress float64, label string)

// ConsoleBar writes a carriage-return progress bar to standard output.
func ConsoleBar(progress float64, label string) {
	const length = 30
	status := ""
	if progress < 0 {
		progress = 0
		status = "Halt ...\n"
	}
	if progress >= 1 {
		progress = 1
		status = "Done...\n"
	}
	block := int(float64(length)*progress + 0.5)
	fmt.Fprintf(os.Stdout, "\r%s: [%s%s] %.2f%% %s", label,
		strings.Repeat("#", block), strings.Repeat("-", length-block),
		progress*100, status)
}

// Options holds the knobs shared by the per-mode composition.
type Options struct {
	cpus     int
	progress Progress
}

// DefaultOptions runs one worker per logical CPU and prints a console
// progress bar.
func DefaultOptions() *Options {
	o := new(Options)
	o.cpus = runtime.NumCPU()
	o.progress = ConsoleBar
	return o
}

// Returns the number of goroutines used for the per-mode fan-out,
// and sets it to a new value, if given.
func (O *Options) Cpus(n ...int) int {
	if len(n) > 0 && n[0] > 0 {
		O.cpus = n[0]
	}
	return O.cpus
}

// Progress replaces the progress sink. A nil sink disables reporting.
func (O *Options) Progress(p Progress) {
	O.progress = p
}

// Compute runs the estimator over every column of vq, one independent
// vibrational degree of freedom per column, and stacks the results into a
// (frequency x mode) matrix scaled by UnitConversion. Modes are computed in
// parallel; per-mode numbers are identical to a sequential run since no
// mode's computation reads another's output.
func Compute(e Estimator, freqs []float64, vq *mat.CDense, timeStep float64, opts ...*Options) (*mat.Dense, error) {
	if len(freqs) == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptyFreqs, "spectrum.Compute")
	}
	nsteps, nmodes := vq.Dims()
	if nsteps == 0 || nmodes == 0 {
		return nil, phonon.NewError(phonon.MissingInput, phonon.ErrEmptySeries, "spectrum.Compute")
	}
	o := DefaultOptions()
	if len(opts) > 0 && opts[0] != nil {
		o = opts[0]
	}

	psd := mat.NewDense(len(freqs), nmodes, nil)
	done := 0
	if o.progress != nil {
		o.progress(0, e.Label())
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	jobs := make(chan int)
	//a zero-value Options carries cpus == 0; at least one worker must drain jobs
	workers := max(1, min(o.cpus, nmodes))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for col := range jobs {
				series := column(vq, col)
				s, err := e.Estimate(freqs, series, timeStep)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = errDecorate(err, "spectrum.Compute")
					}
					mu.Unlock()
					continue
				}
				for i, v := range s {
					psd.Set(i, col, v*UnitConversion)
				}
				mu.Lock()
				done++
				if o.progress != nil {
					o.progress(float64(done)/float64(nmodes), e.Label())
				}
				mu.Unlock()
			}
		}()
	}
	for col := 0; col < nmodes; col++ {
		jobs <- col
	}
	close(jobs)
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	return psd, nil
}

func column(vq *mat.CDense, col int) []complex128 {
	n, _ := vq.Dims()
	s := make([]complex128, n)
	for t := 0; t < n; t++ {
		s[t] = vq.At(t, col)
	}
	return s
}

// errDecorate asserts that the error implements phonon.Error and decorates it
// with the caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2 := err.(phonon.Error)
	err2.Decorate(caller)
	return err2
}
