// Package pipeline drives the external programs that turn a merged PLINK
// dataset into genome-wide iHS scores for one population.
//
// Stages run in a fixed order, and within each stage chromosomes 1 through
// 22 run in order. Stages communicate only through the files named by
// Layout; nothing is carried in memory from one stage to the next. The first
// failing program stops the run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/carbocation/ihsflow"
	"github.com/carbocation/pfx"
)

type Pipeline struct {
	Config *Config
	Layout Layout

	// DryRun logs each command without starting anything.
	DryRun bool

	// Logger receives progress messages. Nil uses the standard logger.
	Logger *log.Logger
}

// New validates cfg and returns a Pipeline for it.
func New(cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, pfx.Err(err)
	}

	return &Pipeline{
		Config: cfg,
		Layout: NewLayout(cfg),
	}, nil
}

func (p *Pipeline) logf(format string, v ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, v...)
		return
	}
	log.Printf(format, v...)
}

// Run executes every stage. ctx is only consulted before the workflow starts;
// once it is running, the first failing command ends the program.
func (p *Pipeline) Run(ctx context.Context) error {
	plan := p.Plan()

	if p.DryRun {
		for _, stage := range Stages {
			p.logf("Stage %s\n", stage)
			for _, c := range p.Commands(stage) {
				p.logf("Would run: %s\n", c)
			}
		}
		if p.Config.Cleanup {
			for _, path := range p.Intermediates() {
				p.logf("Would remove %s\n", path)
			}
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return pfx.Err(err)
	}

	for _, dir := range []string{p.Layout.OutputDir(), p.Layout.WorkDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pfx.Err(err)
		}
	}

	wf, err := p.Workflow()
	if err != nil {
		return err
	}

	p.logf("Running %d commands in %d stages\n", len(plan), len(Stages))
	wf.Run()

	if err := p.Verify(); err != nil {
		return pfx.Err(err)
	}

	p.logf("Combined iHS results are in %s\n", p.Layout.CombinedCSV())

	if !p.Config.Cleanup {
		return nil
	}

	return p.Cleanup()
}

// Verify checks that the compressed outputs of the run are gzip files and
// that the combined CSV exists.
func (p *Pipeline) Verify() error {
	for _, c := range p.Plan() {
		for _, out := range c.Outputs {
			if !strings.HasSuffix(out.Path, ".gz") {
				continue
			}

			ok, err := ihsflow.IsGzip(out.Path)
			if err != nil {
				return fmt.Errorf("%s: %w", c.describe(), err)
			}
			if !ok {
				return fmt.Errorf("%s: %s is not gzip-compressed", c.describe(), out.Path)
			}
		}
	}

	if _, err := os.Stat(p.Layout.CombinedCSV()); err != nil {
		return err
	}

	return nil
}

// Intermediates lists the per-chromosome files that are not needed once the
// combined CSV exists. The population VCFs and the selscan outputs are kept.
func (p *Pipeline) Intermediates() []string {
	l := p.Layout

	var out []string
	for _, chr := range Autosomes {
		out = append(out,
			l.SplitVCFGz(chr),
			l.PhasedVCF(chr),
			l.PhasedIndex(chr),
			l.PopulationBIM(chr),
			l.GeneticMapBIM(chr),
			l.GeneticMapMAP(chr),
			l.GeneticMapLog(chr),
		)
	}

	return out
}

// Cleanup removes the intermediate files. Files that are already gone are
// not an error.
func (p *Pipeline) Cleanup() error {
	removed := 0
	for _, path := range p.Intermediates() {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			continue
		} else if err != nil {
			return pfx.Err(err)
		}
		removed++
	}

	p.logf("Removed %d intermediate files\n", removed)

	return nil
}

// Preflight checks that every program can be found and that every static
// input exists, and reports all problems at once.
func (p *Pipeline) Preflight() error {
	var problems []string

	t := p.Config.Tools
	programs := map[string]struct{}{}
	for _, prog := range []string{t.Plink2, t.Plink, t.Gzip, t.Python, t.Java, t.Bcftools, t.Selscan, t.Norm, t.Awk, t.Cat} {
		programs[prog] = struct{}{}
	}
	for prog := range programs {
		if _, err := exec.LookPath(prog); err != nil {
			problems = append(problems, fmt.Sprintf("program %s: %v", prog, err))
		}
	}

	l := p.Layout
	files := append([]string{}, l.PlinkInputs()...)
	files = append(files, l.SampleList(), p.Config.BeagleJar, t.RecodeScript)
	for _, chr := range Autosomes {
		files = append(files, l.AncestralAlleles(chr), l.BeagleMap(chr), l.ShapeitMap(chr))
	}
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			problems = append(problems, fmt.Sprintf("input %s: %v", path, err))
		}
	}

	p.checkSampleList()

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)

	return fmt.Errorf("preflight found %d problem(s):\n\t%s", len(problems), strings.Join(problems, "\n\t"))
}

// checkSampleList warns about multi-column sample files. bcftools reads a
// second column as a new sample name, which is rarely what a PLINK-style
// FID/IID keep file intends.
func (p *Pipeline) checkSampleList() {
	f, err := os.Open(p.Layout.SampleList())
	if err != nil {
		return
	}
	defer f.Close()

	if delims := ihsflow.DetectDelimiters(f); len(delims) > 0 {
		p.logf("Warning: %s appears to have more than one column (delimiter %q). bcftools expects one sample ID per line, optionally followed by a new name.\n", p.Layout.SampleList(), delims[0])
	}
}
