package specplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Huaguiyuan/gophonon/fit"
	"github.com/Huaguiyuan/gophonon/scan"
)

func demoSpectrum() ([]float64, []float64, []float64) {
	params := []float64{2.0, 0.2, 1.0, 0.0}
	n := 501
	freqs := make([]float64, n)
	psd := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i) * 0.01
		psd[i] = fit.Lorentzian(freqs[i], params)
	}
	return freqs, psd, params
}

func TestSpectrum(Te *testing.T) {
	dir := Te.TempDir()
	freqs, psd, params := demoSpectrum()
	name := filepath.Join(dir, "spectrum")
	if err := Spectrum(freqs, psd, params, "test spectrum", name); err != nil {
		Te.Fatal(err)
	}
	if _, err := os.Stat(name + ".png"); err != nil {
		Te.Error("no plot written:", err)
	}
	//without the fit overlay
	if err := Spectrum(freqs, psd, nil, "bare spectrum", filepath.Join(dir, "bare")); err != nil {
		Te.Error(err)
	}
	if err := Spectrum(nil, nil, nil, "empty", filepath.Join(dir, "empty")); err == nil {
		Te.Error("nil data accepted")
	}
}

func TestScan(Te *testing.T) {
	dir := Te.TempDir()
	freqs, psd, params := demoSpectrum()
	var p4 [4]float64
	copy(p4[:], params)
	r := &scan.Result{
		Mode:             0,
		Spectrum:         psd,
		BestWidth:        0.4,
		BestCoefficients: 10,
		Position:         2.0,
		MinError:         0.01,
		Scan: []scan.Candidate{
			{Coefficients: 5, Width: 0.5, Error: 0.05, Params: p4, Spectrum: psd},
			{Coefficients: 10, Width: 0.4, Error: 0.01, Params: p4, Spectrum: psd},
			{Coefficients: 15, Width: 0.45, Error: 0.02, Params: p4, Spectrum: psd},
		},
	}
	name := filepath.Join(dir, "scan")
	if err := Scan(r, freqs, "test scan", name); err != nil {
		Te.Fatal(err)
	}
	for _, suffix := range []string{"_width.png", "_error.png", "_fit.png"} {
		if _, err := os.Stat(name + suffix); err != nil {
			Te.Error("missing", suffix, ":", err)
		}
	}
	//a result without candidates cannot be plotted
	if err := Scan(&scan.Result{Spectrum: psd}, freqs, "empty", filepath.Join(dir, "none")); err == nil {
		Te.Error("empty scan table accepted")
	}
	if err := Scan(nil, freqs, "nil", filepath.Join(dir, "nil")); err == nil {
		Te.Error("nil result accepted")
	}
}
