/*This provides plotting of power spectra and of the maximum entropy order
 * scan diagnostics, in the form of PNG files, as a terminal sink for the
 * analysis results.*/

package specplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/Huaguiyuan/gophonon/fit"
	"github.com/Huaguiyuan/gophonon/scan"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func basicPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func linePoints(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	return pts
}

// Spectrum plots one power spectrum against its frequency grid and saves it
// as plotname.png. If fitParams is non-nil the fitted Lorentzian is drawn on
// top of the data.
func Spectrum(freqs, psd []float64, fitParams []float64, title, plotname string) error {
	if freqs == nil || psd == nil {
		return fmt.Errorf("specplot: given nil data")
	}
	p := basicPlot(title, "Frequency [THz]", "eV * ps")
	data, err := plotter.NewLine(linePoints(freqs, psd))
	if err != nil {
		return err
	}
	p.Add(data)
	p.Legend.Add("Power spectrum", data)
	if fitParams != nil {
		fy := make([]float64, len(freqs))
		for i, x := range freqs {
			fy[i] = fit.Lorentzian(x, fitParams)
		}
		l, err := plotter.NewLine(linePoints(freqs, fy))
		if err != nil {
			return err
		}
		l.Color = color.RGBA{R: 196, A: 255}
		p.Add(l)
		p.Legend.Add("Lorentzian fit", l)
	}
	return p.Save(14*vg.Centimeter, 10*vg.Centimeter, plotname+".png")
}

// Scan saves the three diagnostic views of an order scan result: the peak
// width against the coefficient count (with the weighted best width as a
// horizontal line), the inverse root of the normalized fitting error, and
// the best spectrum with its Lorentzian fit. The files are named
// plotname_width.png, plotname_error.png and plotname_fit.png.
func Scan(r *scan.Result, freqs []float64, title, plotname string) error {
	if r == nil {
		return fmt.Errorf("specplot: given nil scan result")
	}
	if len(r.Scan) == 0 {
		return fmt.Errorf("specplot: scan result carries no candidates")
	}
	coefs := make([]float64, len(r.Scan))
	widths := make([]float64, len(r.Scan))
	inverr := make([]float64, len(r.Scan))
	for i, c := range r.Scan {
		coefs[i] = float64(c.Coefficients)
		widths[i] = c.Width
		inverr[i] = math.Sqrt(1.0 / c.Error)
	}

	p := basicPlot(title+" peak width", "Number of coefficients", "Width [THz]")
	wl, err := plotter.NewLine(linePoints(coefs, widths))
	if err != nil {
		return err
	}
	p.Add(wl)
	best, err := plotter.NewLine(plotter.XYs{
		{X: coefs[0], Y: r.BestWidth},
		{X: coefs[len(coefs)-1], Y: r.BestWidth},
	})
	if err != nil {
		return err
	}
	best.Color = color.RGBA{A: 255}
	p.Add(best)
	if err := p.Save(14*vg.Centimeter, 10*vg.Centimeter, plotname+"_width.png"); err != nil {
		return err
	}

	p = basicPlot(title+" fitting error", "Number of coefficients", "(RMSD/max)^-1")
	el, err := plotter.NewLine(linePoints(coefs, inverr))
	if err != nil {
		return err
	}
	p.Add(el)
	if err := p.Save(14*vg.Centimeter, 10*vg.Centimeter, plotname+"_error.png"); err != nil {
		return err
	}

	bestParams := r.Scan[bestIndex(r)].Params
	return Spectrum(freqs, r.Spectrum, bestParams[:], title+" best curve fitting", plotname+"_fit")
}

func bestIndex(r *scan.Result) int {
	for i, c := range r.Scan {
		if c.Coefficients == r.BestCoefficients {
			return i
		}
	}
	return 0
}
