package fit

import (
	"fmt"
	"math"
	"testing"
)

func TestLorentzian(Te *testing.T) {
	p := []float64{2.0, 0.5, 3.0, 0.1}
	height := p[2]/(math.Pi*p[1]) + p[3]
	if got := Lorentzian(p[0], p); math.Abs(got-height) > 1e-12 {
		Te.Error("peak height is", got, "want", height)
	}
	//half maximum above baseline one gamma away from the center
	half := p[3] + (height-p[3])/2
	if got := Lorentzian(p[0]+p[1], p); math.Abs(got-half) > 1e-12 {
		Te.Error("value at x0+gamma is", got, "want", half)
	}
	fmt.Println("height:", height, "half:", half)
}

func TestCurve(Te *testing.T) {
	truth := []float64{2.5, 0.3, 1.2, 0.05}
	n := 501
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i) * 0.01
		ys[i] = Lorentzian(xs[i], truth)
	}
	p0 := []float64{2.3, 0.1, 0.8, 0.0}
	params, cov, err := Curve(Lorentzian, xs, ys, p0)
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("fitted:", params)
	for i, p := range params {
		if math.Abs(p-truth[i]) > 1e-3 {
			Te.Error("parameter", i, "is", p, "want", truth[i])
		}
	}
	if cov == nil {
		Te.Fatal("no covariance returned")
	}
	e := ErrorFromCovariance(cov)
	fmt.Println("covariance norm:", e)
	if math.IsNaN(e) || e < 0 {
		Te.Error("bad error figure:", e)
	}
}

func TestCurveDiverging(Te *testing.T) {
	xs := []float64{0, 1, 2, 2.5, 3, 4, 5}
	ys := make([]float64, len(xs))
	//gamma of zero puts a NaN in the model at the peak position
	_, _, err := Curve(Lorentzian, xs, ys, []float64{2.5, 0.0, 1.0, 0.0})
	fmt.Println("diverging fit:", err)
	if err == nil {
		Te.Fatal("divergent initial guess accepted")
	}
	ferr, ok := err.(*Error)
	if !ok {
		Te.Fatal("unexpected error type")
	}
	if !ferr.Recoverable() {
		Te.Error("fit errors must be recoverable")
	}
}

func TestCurveBadInput(Te *testing.T) {
	if _, _, err := Curve(Lorentzian, []float64{1, 2}, []float64{1}, []float64{0}); err == nil {
		Te.Error("mismatched data lengths accepted")
	}
	if _, _, err := Curve(Lorentzian, []float64{1, 2}, []float64{1, 2}, []float64{0, 0, 0, 0}); err == nil {
		Te.Error("more parameters than points accepted")
	}
}
