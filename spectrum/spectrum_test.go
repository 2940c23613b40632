package spectrum

import (
	"fmt"
	"math"
	"testing"

	phonon "github.com/Huaguiyuan/gophonon"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func grid(from, to, step float64) []float64 {
	n := int(math.Round((to-from)/step)) + 1
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = from + float64(i)*step
	}
	return freqs
}

func cosineSeries(f0, dt float64, n int) []complex128 {
	s := make([]complex128, n)
	for t := range s {
		s[t] = complex(math.Cos(2*math.Pi*f0*float64(t)*dt), 0)
	}
	return s
}

func cubic(a float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{a, 0, 0, 0, a, 0, 0, 0, a})
}

// One silent atom and one oscillating at 2 THz, all the way from raw
// positions through derived, mass weighted velocities to the FFT spectrum.
func TestFFTTrajectory(Te *testing.T) {
	const dt = 0.01
	const f0 = 2.0
	const nsteps = 4096
	s, err := phonon.NewStructure(cubic(5), []float64{28.0855, 28.0855}, []int{0, 0})
	if err != nil {
		Te.Error(err)
	}
	traj := make([]*mat.Dense, nsteps)
	time := make([]float64, nsteps)
	for t := range traj {
		time[t] = float64(t) * dt
		x := math.Sin(2 * math.Pi * f0 * time[t])
		traj[t] = mat.NewDense(2, 3, []float64{
			1, 1, 1,
			2.5 + x, 2.5, 2.5})
	}
	d, err := phonon.NewDynamics(s, traj, cubic(5))
	if err != nil {
		Te.Error(err)
	}
	d.SetTime(time)
	vq, err := d.MassWeightedModes()
	if err != nil {
		Te.Error(err)
	}
	freqs := grid(0, 10, 0.01)
	o := DefaultOptions()
	o.Progress(nil)
	o.Cpus(2)
	psd, err := Compute(NewFFT(0), freqs, vq, dt, o)
	if err != nil {
		Te.Error(err)
	}
	nf, nmodes := psd.Dims()
	if nf != len(freqs) || nmodes != 6 {
		Te.Fatal("wrong spectrum dimensions:", nf, nmodes)
	}
	//the global maximum must sit on the moving atom's x column, at 2 THz
	bi, bj, max := 0, 0, 0.0
	for i := 0; i < nf; i++ {
		for j := 0; j < nmodes; j++ {
			if v := psd.At(i, j); v > max {
				bi, bj, max = i, j, v
			}
		}
	}
	fmt.Println("peak:", freqs[bi], "THz on mode", bj, "intensity", max)
	if bj != 3 {
		Te.Error("dominant mode is", bj, "want 3")
	}
	if math.Abs(freqs[bi]-f0) > 0.02 {
		Te.Error("peak at", freqs[bi], "THz, want", f0, "+- 0.02")
	}
	//the silent atom contributes nothing
	col := make([]float64, nf)
	mat.Col(col, 0, psd)
	if floats.Max(col) > 1e-10*max {
		Te.Error("stationary atom carries intensity:", floats.Max(col))
	}
}

func TestMaxEnt(Te *testing.T) {
	const dt = 0.01
	const f0 = 3.0
	series := cosineSeries(f0, dt, 1024)
	freqs := grid(0, 10, 0.05)
	est := NewMaxEnt(2)
	if est.Coefficients() != 2 {
		Te.Error("coefficient getter broken")
	}
	psd, err := est.Estimate(freqs, series, dt)
	if err != nil {
		Te.Error(err)
	}
	peak := freqs[floats.MaxIdx(psd)]
	fmt.Println("maximum entropy peak:", peak, "THz")
	if math.Abs(peak-f0) > 0.05 {
		Te.Error("peak at", peak, "THz, want", f0, "within one grid step")
	}
}

func TestMaxEntTooManyCoefficients(Te *testing.T) {
	series := cosineSeries(1.0, 0.01, 10)
	freqs := grid(0, 5, 0.5)
	_, err := NewMaxEnt(9).Estimate(freqs, series, 0.01)
	fmt.Println("underdetermined error:", err)
	if err == nil {
		Te.Fatal("9 coefficients from 10 samples accepted")
	}
	if phonon.KindOf(err) != phonon.UnderdeterminedModel {
		Te.Error("wrong error kind:", phonon.KindOf(err))
	}
}

func TestFourier(Te *testing.T) {
	const dt = 0.01
	const f0 = 1.5
	series := cosineSeries(f0, dt, 512)
	freqs := grid(0, 5, 0.05)
	est := NewFourier()
	psd, err := est.Estimate(freqs, series, dt)
	if err != nil {
		Te.Error(err)
	}
	peak := freqs[floats.MaxIdx(psd)]
	fmt.Println("correlation Fourier peak:", peak, "THz")
	if math.Abs(peak-f0) > 0.1 {
		Te.Error("peak at", peak, "THz, want", f0)
	}
	for _, v := range psd {
		if v < 0 {
			Te.Error("negative intensity:", v)
		}
	}
	//rectangular integration and lag subsampling keep the peak in place
	est.Integration(Rectangular)
	est.Step(4)
	psd, err = est.Estimate(freqs, series, dt)
	if err != nil {
		Te.Error(err)
	}
	peak = freqs[floats.MaxIdx(psd)]
	fmt.Println("rectangular, subsampled peak:", peak, "THz")
	if math.Abs(peak-f0) > 0.1 {
		Te.Error("peak at", peak, "THz, want", f0)
	}
}

func TestAutocorrelation(Te *testing.T) {
	//the zero-lag entry of a constant series is its squared value
	n := 8
	x := make([]complex128, n)
	for i := range x {
		x[i] = 2
	}
	acf := Autocorrelation(x)
	if len(acf) != n {
		Te.Fatal("autocorrelation length is", len(acf), "want", n)
	}
	zero := acf[n/2] //lag 0 sits at the center
	fmt.Println("acf at lag 0:", zero)
	if math.Abs(real(zero)-4.0) > 1e-9 {
		Te.Error("lag 0 is", zero, "want 4")
	}
	//and the magnitude can never grow away from lag 0
	for i, v := range acf {
		if real(v) > real(zero)+1e-9 {
			Te.Error("lag", i-n/2, "exceeds the zero lag:", v)
		}
	}
}

func TestComputeProgress(Te *testing.T) {
	series := cosineSeries(2.0, 0.01, 256)
	vq := mat.NewCDense(len(series), 3, nil)
	for t, v := range series {
		for j := 0; j < 3; j++ {
			vq.Set(t, j, v)
		}
	}
	var calls []float64
	o := DefaultOptions()
	o.Cpus(3)
	o.Progress(func(p float64, label string) {
		calls = append(calls, p)
	})
	_, err := Compute(NewMaxEnt(4), grid(0, 5, 0.1), vq, 0.01, o)
	if err != nil {
		Te.Error(err)
	}
	fmt.Println("progress calls:", calls)
	if len(calls) == 0 || calls[len(calls)-1] != 1.0 {
		Te.Fatal("progress did not reach 1:", calls)
	}
	for i := 1; i < len(calls); i++ {
		if calls[i] < calls[i-1] {
			Te.Error("progress went backwards:", calls[i-1], "->", calls[i])
		}
	}
}

func TestComputeZeroOptions(Te *testing.T) {
	series := cosineSeries(2.0, 0.01, 256)
	vq := mat.NewCDense(len(series), 2, nil)
	for t, v := range series {
		vq.Set(t, 0, v)
		vq.Set(t, 1, v)
	}
	//a zero-value Options has no cpus and no progress sink; it must still run
	psd, err := Compute(NewMaxEnt(4), grid(0, 5, 0.1), vq, 0.01, &Options{})
	if err != nil {
		Te.Fatal(err)
	}
	r, c := psd.Dims()
	fmt.Println("zero options dims:", r, c)
	if r != 51 || c != 2 {
		Te.Error("wrong dimensions:", r, c)
	}
}

func TestComputeError(Te *testing.T) {
	vq := mat.NewCDense(10, 2, nil)
	o := DefaultOptions()
	o.Progress(nil)
	_, err := Compute(NewMaxEnt(20), grid(0, 5, 0.1), vq, 0.01, o)
	fmt.Println("propagated error:", err)
	if err == nil {
		Te.Error("estimation failure not propagated")
	}
}
