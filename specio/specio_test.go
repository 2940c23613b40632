package specio

import (
	"fmt"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestReadWrite(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "spectrum.dat")
	freqs := []float64{0, 0.5, 1.0, 1.5}
	psd := mat.NewDense(4, 2, []float64{
		0.001, 0.002,
		1.5e-3, 2.5e-3,
		0.25, 1e-8,
		0, 3})
	header := map[string]string{"method": "FFT", "timestep": "0.01"}
	if err := Write(name, freqs, psd, header); err != nil {
		Te.Fatal(err)
	}
	rf, rp, meta, err := Read(name)
	if err != nil {
		Te.Fatal(err)
	}
	fmt.Println("metadata:", meta)
	if meta["method"] != "FFT" || meta["timestep"] != "0.01" {
		Te.Error("metadata not recovered:", meta)
	}
	if len(rf) != len(freqs) {
		Te.Fatal("grid length is", len(rf), "want", len(freqs))
	}
	for i, f := range rf {
		if f != freqs[i] {
			Te.Error("frequency", i, "is", f, "want", freqs[i])
		}
	}
	r, c := rp.Dims()
	if r != 4 || c != 2 {
		Te.Fatal("matrix dims are", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if rp.At(i, j) != psd.At(i, j) {
				Te.Error("element", i, j, "is", rp.At(i, j), "want", psd.At(i, j))
			}
		}
	}
}

func TestWriteMismatch(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "bad.dat")
	err := Write(name, []float64{0, 1}, mat.NewDense(3, 1, nil), nil)
	fmt.Println("mismatch error:", err)
	if err == nil {
		Te.Error("grid and matrix length mismatch accepted")
	}
}

func TestReadMissing(Te *testing.T) {
	_, _, _, err := Read(filepath.Join(Te.TempDir(), "nonexistent.dat"))
	if err == nil {
		Te.Fatal("missing file accepted")
	}
	ferr, ok := err.(Error)
	if !ok {
		Te.Fatal("unexpected error type")
	}
	if ferr.FileName() == "" {
		Te.Error("error carries no file name")
	}
}
