package main

import (
	"context"
	"log"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/carbocation/ihsflow"
	"github.com/carbocation/ihsflow/pipeline"
)

func needsStorage(cfg *pipeline.Config, uploadDest string) bool {
	for _, path := range []string{
		uploadDest,
		cfg.PlinkPrefix,
		cfg.SamplePrefix,
		cfg.AncestralAlleleDir,
		cfg.BeagleJar,
		cfg.GeneticMapDir,
		cfg.GeneticMapDirShapeit,
	} {
		if ihsflow.IsGoogleStoragePath(path) {
			return true
		}
	}

	return false
}

// stagedInput is a config setting that may point at Google Storage. Prefix
// settings name the files Suffixes are appended to; settings without
// Suffixes are directories and are staged whole.
type stagedInput struct {
	Name     string
	Setting  *string
	Suffixes []string
}

// stageInputs points cfg at local copies of its gs:// inputs, since the
// external programs only read local files. Every input is copied into its own
// subdirectory of stageDir, named after its flag, so inputs that share a base
// name cannot overwrite each other. When fetch is false, cfg is rewritten but
// nothing is copied, which lets a dry run print the commands that would run.
func stageInputs(ctx context.Context, cfg *pipeline.Config, stageDir string, client *storage.Client, fetch bool) error {
	// Outputs are written relative to the working directory, named after the
	// population.
	if ihsflow.IsGoogleStoragePath(cfg.SamplePrefix) && cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Base(cfg.SamplePrefix)
	}

	for _, in := range []stagedInput{
		{"plink_file", &cfg.PlinkPrefix, []string{".bed", ".bim", ".fam"}},
		{"sample_file", &cfg.SamplePrefix, []string{".txt"}},
		{"beagle_jar", &cfg.BeagleJar, []string{""}},
		{"ancestral_allele_file", &cfg.AncestralAlleleDir, nil},
		{"genetic_map_dir", &cfg.GeneticMapDir, nil},
		{"genetic_map_dir_shapeit", &cfg.GeneticMapDirShapeit, nil},
	} {
		remote := *in.Setting
		if !ihsflow.IsGoogleStoragePath(remote) {
			*in.Setting = ihsflow.ExpandHome(remote)
			continue
		}

		dir := filepath.Join(stageDir, in.Name)

		if in.Suffixes == nil {
			*in.Setting = dir
		} else {
			*in.Setting = filepath.Join(dir, filepath.Base(remote))
		}

		if !fetch {
			continue
		}

		log.Println("Staging", remote, "into", dir)

		if in.Suffixes == nil {
			if _, err := ihsflow.StagePrefixFromGoogleStorage(ctx, remote, dir, client); err != nil {
				return err
			}
			continue
		}

		for _, suffix := range in.Suffixes {
			if _, err := ihsflow.StageFromGoogleStorage(ctx, remote+suffix, dir, client); err != nil {
				return err
			}
		}
	}

	return nil
}
