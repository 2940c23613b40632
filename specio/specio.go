//Package specio stores power spectra in a compressed plain text format, so
//batch estimation runs can keep their results without help from any plotting
//or database layer. The file starts with key=value metadata lines, then a
//"** nfreq nmodes" sentinel, then one line per frequency: the frequency
//followed by the intensity of every mode. The whole stream is zstd
//compressed.
package specio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

// Error is the concrete error type for spectrum files. It fullfills
// phonon.Error.
type Error struct {
	message  string
	filename string
	deco     []string
}

func (err Error) Error() string {
	return fmt.Sprintf("spectrum file %s error: %s", err.filename, err.message)
}

// Decorate adds new information to the error.
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

// FileName returns the file the failing operation was associated to.
func (err Error) FileName() string { return err.filename }

// Write stores the frequency grid and the (frequency x mode) intensity
// matrix in name, with the given metadata, which can be nil. The psd row
// count must match the grid length.
func Write(name string, freqs []float64, psd *mat.Dense, header map[string]string) error {
	nf, nmodes := psd.Dims()
	if nf != len(freqs) {
		return Error{fmt.Sprintf("grid has %d frequencies but the matrix %d rows", len(freqs), nf), name, []string{"Write"}}
	}
	f, err := os.Create(name)
	if err != nil {
		return Error{err.Error(), name, []string{"Write"}}
	}
	defer f.Close()
	w, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return Error{err.Error(), name, []string{"Write"}}
	}
	for k, v := range header {
		fmt.Fprintf(w, "%s=%v\n", k, v)
	}
	fmt.Fprintf(w, "** %d %d\n", nf, nmodes)
	for i := 0; i < nf; i++ {
		fields := make([]string, 1, nmodes+1)
		fields[0] = strconv.FormatFloat(freqs[i], 'g', -1, 64)
		for j := 0; j < nmodes; j++ {
			fields = append(fields, strconv.FormatFloat(psd.At(i, j), 'g', -1, 64))
		}
		fmt.Fprintln(w, strings.Join(fields, " "))
	}
	return w.Close()
}

// Read recovers a spectrum file written by Write: the frequency grid, the
// intensity matrix and the metadata.
func Read(name string) ([]float64, *mat.Dense, map[string]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, nil, Error{err.Error(), name, []string{"Read"}}
	}
	defer f.Close()
	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, nil, nil, Error{err.Error(), name, []string{"Read"}}
	}
	defer zr.Close()
	r := bufio.NewReader(zr)

	meta := make(map[string]string)
	var nf, nmodes int
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, nil, nil, Error{"can't read header: " + err.Error(), name, []string{"Read"}}
		}
		line = strings.TrimSuffix(line, "\n")
		if strings.HasPrefix(line, "**") {
			dims := strings.Fields(line)
			if len(dims) != 3 {
				return nil, nil, nil, Error{"malformed dimension line: " + line, name, []string{"Read"}}
			}
			if nf, err = strconv.Atoi(dims[1]); err != nil {
				return nil, nil, nil, Error{"malformed dimension line: " + line, name, []string{"Read"}}
			}
			if nmodes, err = strconv.Atoi(dims[2]); err != nil {
				return nil, nil, nil, Error{"malformed dimension line: " + line, name, []string{"Read"}}
			}
			break
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return nil, nil, nil, Error{"malformed header line: " + line, name, []string{"Read"}}
		}
		meta[kv[0]] = kv[1]
	}

	freqs := make([]float64, nf)
	psd := mat.NewDense(nf, nmodes, nil)
	for i := 0; i < nf; i++ {
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, nil, nil, Error{fmt.Sprintf("can't read row %d: %v", i, err), name, []string{"Read"}}
		}
		fields := strings.Fields(line)
		if len(fields) != nmodes+1 {
			return nil, nil, nil, Error{fmt.Sprintf("row %d has %d fields, want %d", i, len(fields), nmodes+1), name, []string{"Read"}}
		}
		if freqs[i], err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, nil, nil, Error{fmt.Sprintf("bad frequency in row %d: %v", i, err), name, []string{"Read"}}
		}
		for j := 0; j < nmodes; j++ {
			v, err := strconv.ParseFloat(fields[j+1], 64)
			if err != nil {
				return nil, nil, nil, Error{fmt.Sprintf("bad intensity in row %d: %v", i, err), name, []string{"Read"}}
			}
			psd.Set(i, j, v)
		}
	}
	return freqs, psd, meta, nil
}
