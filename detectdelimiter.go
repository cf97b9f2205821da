package ihsflow

import (
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit the
// values in the reader, assuming a CSV-like file.
func DetermineDelimiter(r io.Reader) rune {
	if delimiters := DetectDelimiters(r); len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// DetectDelimiters returns every candidate delimiter that appears
// consistently in the reader. A single-column file yields none.
func DetectDelimiters(r io.Reader) []string {
	d := detector.New()
	return d.DetectDelimiter(r, '"')
}
