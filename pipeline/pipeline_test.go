package pipeline

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func quietPipeline(t *testing.T, cfg *Config) (*Pipeline, *bytes.Buffer) {
	t.Helper()
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	p.Logger = log.New(&logs, "", 0)
	return p, &logs
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.GenomeVersion = 0
	if _, err := New(cfg); err == nil {
		t.Error("Expected an error before any stage runs")
	}
}

func TestDryRunLogsEveryCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.OutputDir = filepath.Join(dir, "EUR")
	cfg.Cleanup = true

	p, logs := quietPipeline(t, cfg)
	p.DryRun = true

	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	// split 2, polarize 1, phase 2, subset 1, genetic map 3, scan 3 per
	// chromosome, plus one concatenation
	out := logs.String()
	if n, want := strings.Count(out, "Would run: "), 22*12+1; n != want {
		t.Errorf("Expected %d commands, got %d", want, n)
	}
	if n, want := strings.Count(out, "Would remove "), len(p.Intermediates()); n != want {
		t.Errorf("Expected %d removals, got %d", want, n)
	}
	if !strings.Contains(out, "Would run: plink2 --bfile data/merged --chr 1 ") {
		t.Errorf("First command missing from %q", out[:200])
	}

	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Error("A dry run should not create the output directory")
	}
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig()
	cfg.OutputDir = filepath.Join(t.TempDir(), "EUR")

	p, _ := quietPipeline(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Run(ctx); err == nil {
		t.Fatal("Expected an error")
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Error("Nothing should be created after cancellation")
	}
}

func TestCleanup(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.PlinkPrefix = filepath.Join(dir, "merged")
	cfg.SamplePrefix = filepath.Join(dir, "EUR")
	cfg.WorkDir = dir

	p, _ := quietPipeline(t, cfg)

	l := p.Layout
	remove := []string{l.SplitVCFGz(1), l.PhasedVCF(1), l.PopulationBIM(5), l.GeneticMapMAP(22)}
	keep := []string{l.PopulationVCF(1), l.RecodedVCF(1)}
	for _, path := range append(remove, keep...) {
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	if err := p.Cleanup(); err != nil {
		t.Fatal(err)
	}

	for _, path := range remove {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s should have been removed", path)
		}
	}
	for _, path := range keep {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("%s should have been kept: %v", path, err)
		}
	}

	// Running again with nothing left is fine
	if err := p.Cleanup(); err != nil {
		t.Error(err)
	}
}

func TestPreflight(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.PlinkPrefix = filepath.Join(dir, "merged")
	cfg.SamplePrefix = filepath.Join(dir, "EUR")
	cfg.BeagleJar = filepath.Join(dir, "beagle.jar")
	cfg.AncestralAlleleDir = filepath.Join(dir, "aa")
	cfg.GeneticMapDir = filepath.Join(dir, "beagle")
	cfg.GeneticMapDirShapeit = filepath.Join(dir, "shapeit")
	cfg.Tools.RecodeScript = filepath.Join(dir, "recodeAA.py")
	cfg.Tools.Selscan = "ihsflow-no-such-selscan"

	p, _ := quietPipeline(t, cfg)

	err := p.Preflight()
	if err == nil {
		t.Fatal("Expected preflight problems")
	}
	msg := err.Error()
	for _, want := range []string{"ihsflow-no-such-selscan", "merged.bed", "EUR.txt", "beagle.jar", "chr22_hg19_AA.txt", "plink.chr1.GRCh37.map", "genetic_map_chr9_combined_b37.txt"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Preflight error should mention %s", want)
		}
	}
}

func TestManifestWriteFile(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.SamplePrefix = filepath.Join(dir, "EUR")
	p, _ := quietPipeline(t, cfg)

	// One output already exists
	if err := os.WriteFile(p.Layout.PopulationVCF(9), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	m := p.Manifest(StatusPlanned)
	if want := 22*12 + 1; len(m.Entries) != want {
		t.Fatalf("Expected %d entries, got %d", want, len(m.Entries))
	}

	path := filepath.Join(dir, "manifest.csv")
	if err := m.WriteFile(path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != len(m.Entries)+1 {
		t.Fatalf("Expected a header and %d rows, got %d lines", len(m.Entries), len(lines))
	}
	if lines[0] != "stage,chromosome,process,command,output,written,status" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if want := "split,1,split_chr1_vcf,plink2 --bfile data/merged --chr 1 "; !strings.HasPrefix(lines[1], want) {
		t.Errorf("Unexpected first row %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",data/merged_chr1.vcf,,planned") {
		t.Errorf("A missing output should leave written empty: %q", lines[1])
	}

	var subset ManifestEntry
	for _, e := range m.Entries {
		if e.Process == "subset_chr9_vcf" {
			subset = e
		}
	}
	if !subset.Written.Valid {
		t.Errorf("Expected a write time for %s", subset.Output)
	}
}

func TestPreflightWarnsOnMultiColumnSamples(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.SamplePrefix = filepath.Join(dir, "EUR")
	if err := os.WriteFile(cfg.SamplePrefix+".txt", []byte("HG00096\tHG00096\nHG00097\tHG00097\nHG00099\tHG00099\n"), 0644); err != nil {
		t.Fatal(err)
	}

	p, logs := quietPipeline(t, cfg)

	// Other inputs are missing, so an error is expected regardless
	p.Preflight()

	if !strings.Contains(logs.String(), "more than one column") {
		t.Errorf("Expected a sample list warning, got %q", logs.String())
	}
}

func TestVerifyRejectsPlainTextVCF(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.PlinkPrefix = filepath.Join(dir, "merged")
	p, _ := quietPipeline(t, cfg)

	if err := os.WriteFile(p.Layout.SplitVCFGz(1), []byte("##fileformat=VCFv4.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := p.Verify()
	if err == nil || !strings.Contains(err.Error(), "not gzip-compressed") {
		t.Errorf("Expected a gzip error, got %v", err)
	}
}
