package pipeline

import (
	"os"
	"time"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"gopkg.in/guregu/null.v3"
)

const (
	StatusPlanned = "planned"
	StatusOK      = "ok"
	StatusDryRun  = "dry-run"
)

// ManifestEntry records one command. Written is the modification time of the
// command's output, and is null when the output does not exist (not yet
// produced, or consumed by a later command).
type ManifestEntry struct {
	Stage      string    `csv:"stage"`
	Chromosome int       `csv:"chromosome"`
	Process    string    `csv:"process"`
	Command    string    `csv:"command"`
	Output     string    `csv:"output"`
	Written    Timestamp `csv:"written"`
	Status     string    `csv:"status"`
}

type Timestamp struct {
	null.Time
}

// MarshalCSV writes null times as empty cells.
func (n Timestamp) MarshalCSV() (string, error) {
	if !n.Valid {
		return "", nil
	}

	return n.Time.Time.Format(time.RFC3339), nil
}

type Manifest struct {
	Entries []ManifestEntry
}

// Manifest describes every command of the run, labelled with status.
func (p *Pipeline) Manifest(status string) *Manifest {
	m := &Manifest{}
	for _, c := range p.Plan() {
		e := ManifestEntry{
			Stage:      c.Stage.String(),
			Chromosome: c.Chromosome,
			Process:    c.Name(),
			Command:    c.String(),
			Status:     status,
		}
		if len(c.Outputs) > 0 {
			e.Output = c.Outputs[0].Path
			if fi, err := os.Stat(e.Output); err == nil {
				e.Written = Timestamp{null.TimeFrom(fi.ModTime())}
			}
		}
		m.Entries = append(m.Entries, e)
	}

	return m
}

// WriteFile saves the manifest as CSV with a header row.
func (m *Manifest) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}

	if err := gocsv.MarshalFile(&m.Entries, f); err != nil {
		f.Close()
		return pfx.Err(err)
	}

	return f.Close()
}
