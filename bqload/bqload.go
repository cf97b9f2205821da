// Package bqload publishes combined iHS results to BigQuery.
package bqload

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"github.com/carbocation/pfx"
)

type WrappedBigQuery struct {
	Context context.Context
	Client  *bigquery.Client
	Project string
	Dataset string
	Table   string
}

// Schema describes the normalized selscan iHS output (with --alt), one row
// per variant.
func Schema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "id", Type: bigquery.StringFieldType, Required: true},
		{Name: "pos", Type: bigquery.IntegerFieldType},
		{Name: "freq_1", Type: bigquery.FloatFieldType},
		{Name: "ihh_1", Type: bigquery.FloatFieldType},
		{Name: "ihh_0", Type: bigquery.FloatFieldType},
		{Name: "ihs", Type: bigquery.FloatFieldType},
		{Name: "norm_ihs", Type: bigquery.FloatFieldType},
		{Name: "crit", Type: bigquery.IntegerFieldType},
	}
}

// ParseDestination accepts dataset.table or project.dataset.table. The
// project defaults to defaultProject.
func ParseDestination(dest, defaultProject string) (project, dataset, table string, err error) {
	parts := strings.Split(dest, ".")
	for _, p := range parts {
		if p == "" {
			return "", "", "", fmt.Errorf("%q is not a valid BigQuery table", dest)
		}
	}

	switch len(parts) {
	case 2:
		project, dataset, table = defaultProject, parts[0], parts[1]
	case 3:
		project, dataset, table = parts[0], parts[1], parts[2]
	default:
		return "", "", "", fmt.Errorf("%q is not a valid BigQuery table. Use dataset.table or project.dataset.table", dest)
	}

	if project == "" {
		return "", "", "", fmt.Errorf("no project given for BigQuery table %q", dest)
	}

	return project, dataset, table, nil
}

// StripHeaders copies the CSV rows of r to w, leaving out header lines such
// as the one selscan writes at the top of each chromosome's output. A row is
// a header when its second column is the label "pos". Other malformed rows
// are kept, so that the load rejects them. It returns the number of rows left
// out.
func StripHeaders(r io.Reader, w io.Writer) (int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cw := csv.NewWriter(w)

	dropped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return dropped, pfx.Err(err)
		}

		if len(rec) > 1 && strings.EqualFold(strings.TrimSpace(rec[1]), "pos") {
			dropped++
			continue
		}

		if err := cw.Write(rec); err != nil {
			return dropped, pfx.Err(err)
		}
	}

	cw.Flush()

	return dropped, pfx.Err(cw.Error())
}

// LoadCSV replaces the table with the contents of csvPath. Header rows are
// removed on the way, and any row BigQuery cannot parse fails the load.
func (bq *WrappedBigQuery) LoadCSV(csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	go func() {
		dropped, err := StripHeaders(f, pw)
		if dropped > 0 {
			log.Printf("Skipped %d header rows in %s\n", dropped, csvPath)
		}
		pw.CloseWithError(err)
	}()
	defer pr.Close()

	src := bigquery.NewReaderSource(pr)
	src.SourceFormat = bigquery.CSV
	src.Schema = Schema()
	src.MaxBadRecords = 0

	loader := bq.Client.DatasetInProject(bq.Project, bq.Dataset).Table(bq.Table).LoaderFrom(src)
	loader.CreateDisposition = bigquery.CreateIfNeeded
	loader.WriteDisposition = bigquery.WriteTruncate

	job, err := loader.Run(bq.Context)
	if err != nil {
		return pfx.Err(err)
	}

	status, err := job.Wait(bq.Context)
	if err != nil {
		return pfx.Err(err)
	}

	if err := status.Err(); err != nil {
		return pfx.Err(fmt.Errorf("%s.%s.%s: %s", bq.Project, bq.Dataset, bq.Table, err))
	}

	return nil
}
