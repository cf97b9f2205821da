package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/ihsflow/pipeline"
)

func parseArgs(t *testing.T, cfg *pipeline.Config, argv ...string) {
	t.Helper()

	fs := flag.NewFlagSet("ihsflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var args cliArgs
	args.register(fs)
	if err := fs.Parse(argv); err != nil {
		t.Fatal(err)
	}

	args.apply(fs, cfg)
}

func yamlConfig(t *testing.T) *pipeline.Config {
	t.Helper()

	path := filepath.Join(t.TempDir(), "ihsflow.yaml")
	yml := "work_dir: scratch\ngenome_version: 38\ncleanup: true\nplink_file: data/merged\n"
	if err := os.WriteFile(path, []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestUnsetFlagsKeepConfigValues(t *testing.T) {
	cfg := yamlConfig(t)

	// -workdir defaults to ".", which must not replace the file's value
	parseArgs(t, cfg, "-sample_file", "EUR")

	if cfg.WorkDir != "scratch" || cfg.GenomeVersion != 38 || !cfg.Cleanup || cfg.PlinkPrefix != "data/merged" {
		t.Errorf("Config values were overridden: %+v", cfg)
	}
	if cfg.SamplePrefix != "EUR" {
		t.Errorf("Expected -sample_file to apply, got %q", cfg.SamplePrefix)
	}
}

func TestExplicitFlagsOverrideConfigValues(t *testing.T) {
	cfg := yamlConfig(t)

	// Setting a flag to its default value still counts
	parseArgs(t, cfg, "-workdir", ".", "-genome_version", "19", "-cleanup=false", "-plink_file", "other/merged")

	if cfg.WorkDir != "." {
		t.Errorf("Expected -workdir . to win, got %q", cfg.WorkDir)
	}
	if cfg.GenomeVersion != 19 || cfg.Cleanup || cfg.PlinkPrefix != "other/merged" {
		t.Errorf("Flags were not applied: %+v", cfg)
	}
}
