package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/carbocation/ihsflow"
	"github.com/carbocation/ihsflow/bqload"
	"github.com/carbocation/ihsflow/compileinfo"
	"github.com/carbocation/ihsflow/pipeline"
	sp "github.com/scipipe/scipipe"
)

// flags that map onto pipeline.Config. Only flags that were explicitly set
// override the config file.
type cliArgs struct {
	plinkFile, sampleFile, ancestralDir, beagleJar string
	geneticMapDir, geneticMapDirShapeit            string
	genomeVersion                                  int
	outputDir, workDir                             string
	cleanup                                        bool
}

// register binds the pipeline flags to fs.
func (a *cliArgs) register(fs *flag.FlagSet) {
	fs.StringVar(&a.plinkFile, "plink_file", "", "Base PLINK file prefix (.bed/.bim/.fam).")
	fs.StringVar(&a.sampleFile, "sample_file", "", "Sample FID_IID file for population of interest (without .txt extension). Also names the output directory.")
	fs.StringVar(&a.ancestralDir, "ancestral_allele_file", "", "Directory containing ancestral allele files (chr{N}_hg{19,38}_AA.txt).")
	fs.StringVar(&a.beagleJar, "beagle_jar", "", "Path to the Beagle JAR file.")
	fs.StringVar(&a.geneticMapDir, "genetic_map_dir", "", "Directory containing genetic map files for phasing.")
	fs.StringVar(&a.geneticMapDirShapeit, "genetic_map_dir_shapeit", "", "Directory containing genetic map files for creating MAP files.")
	fs.IntVar(&a.genomeVersion, "genome_version", 0, "Genome version: 19 for hg19, 38 for hg38.")
	fs.StringVar(&a.outputDir, "out", "", "Directory for selscan results and CSVs. Defaults to --sample_file.")
	fs.StringVar(&a.workDir, "workdir", ".", "Directory for the chr{N}_gm genetic map intermediates.")
	fs.BoolVar(&a.cleanup, "cleanup", false, "Remove intermediate files after a successful run?")
}

// apply copies the flags that were set on fs into cfg. Flags left at their
// defaults do not override the config file.
func (a cliArgs) apply(fs *flag.FlagSet, cfg *pipeline.Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "plink_file":
			cfg.PlinkPrefix = a.plinkFile
		case "sample_file":
			cfg.SamplePrefix = a.sampleFile
		case "ancestral_allele_file":
			cfg.AncestralAlleleDir = a.ancestralDir
		case "beagle_jar":
			cfg.BeagleJar = a.beagleJar
		case "genetic_map_dir":
			cfg.GeneticMapDir = a.geneticMapDir
		case "genetic_map_dir_shapeit":
			cfg.GeneticMapDirShapeit = a.geneticMapDirShapeit
		case "genome_version":
			cfg.GenomeVersion = a.genomeVersion
		case "out":
			cfg.OutputDir = a.outputDir
		case "workdir":
			cfg.WorkDir = a.workDir
		case "cleanup":
			cfg.Cleanup = a.cleanup
		}
	})
}

func main() {
	compileinfo.PrintToStdErr()
	sp.InitLogInfo()

	var args cliArgs
	var configPath, manifestPath, stageDir, uploadDest string
	var bqProject, bqDest string
	var dryRun, skipPreflight bool

	args.register(flag.CommandLine)
	flag.StringVar(&configPath, "config", "", "Optional YAML file with settings, tool paths, and Beagle/selscan options. Flags that are set take precedence.")
	flag.StringVar(&manifestPath, "manifest", "", "If set, write a CSV record of every command to this path.")
	flag.BoolVar(&dryRun, "dry-run", false, "Print the commands that would be run, and exit.")
	flag.BoolVar(&skipPreflight, "skip-preflight", false, "Start even if programs or inputs appear to be missing?")
	flag.StringVar(&stageDir, "stage-dir", "ihsflow-staging", "Local directory that gs:// inputs are copied into, one subdirectory per input.")
	flag.StringVar(&uploadDest, "upload", "", "If set, a gs:// path that the combined CSV is copied to.")
	flag.StringVar(&bqProject, "bq-project", "", "Google Cloud project for BigQuery billing.")
	flag.StringVar(&bqDest, "bq-table", "", "If set, load the combined CSV into this BigQuery table (dataset.table or project.dataset.table).")
	flag.Parse()

	cfg := pipeline.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = pipeline.LoadConfig(ihsflow.ExpandHome(configPath))
		if err != nil {
			log.Fatalln(err)
		}
	}
	args.apply(flag.CommandLine, cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize the Google Storage client only if we're pointing to Google
	// Storage paths and will actually read or write them.
	var client *storage.Client
	if !dryRun && needsStorage(cfg, uploadDest) {
		var err error
		client, err = storage.NewClient(ctx)
		if err != nil {
			log.Fatalln(err)
		}
		defer client.Close()
	}

	// A dry run only works out where the staged copies would go.
	if err := stageInputs(ctx, cfg, stageDir, client, !dryRun); err != nil {
		log.Fatalln(err)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	p.DryRun = dryRun

	if !dryRun && !skipPreflight {
		if err := p.Preflight(); err != nil {
			log.Fatalln(err)
		}
	}

	// Written up front, since a failing command ends the program.
	status := pipeline.StatusPlanned
	if dryRun {
		status = pipeline.StatusDryRun
	}
	writeManifest(p, manifestPath, status)

	if err := p.Run(ctx); err != nil {
		log.Fatalln(err)
	}

	if dryRun {
		return
	}

	writeManifest(p, manifestPath, pipeline.StatusOK)

	if uploadDest != "" {
		log.Println("Uploading", p.Layout.CombinedCSV(), "to", uploadDest)
		if err := ihsflow.UploadToGoogleStorage(ctx, p.Layout.CombinedCSV(), uploadDest, client); err != nil {
			log.Fatalln(err)
		}
	}

	if bqDest != "" {
		if err := loadBigQuery(ctx, bqProject, bqDest, p.Layout.CombinedCSV()); err != nil {
			log.Fatalln(err)
		}
	}

	log.Println("Completed")
}

func writeManifest(p *pipeline.Pipeline, path, status string) {
	if path == "" {
		return
	}

	if err := p.Manifest(status).WriteFile(path); err != nil {
		log.Println(err)
		return
	}

	log.Println("Wrote manifest to", path)
}

func loadBigQuery(ctx context.Context, project, dest, csvPath string) error {
	project, dataset, table, err := bqload.ParseDestination(dest, project)
	if err != nil {
		return err
	}

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return err
	}
	defer client.Close()

	bq := &bqload.WrappedBigQuery{
		Context: ctx,
		Client:  client,
		Project: project,
		Dataset: dataset,
		Table:   table,
	}

	log.Printf("Loading %s into %s.%s.%s\n", csvPath, project, dataset, table)

	return bq.LoadCSV(csvPath)
}
