package pipeline

import (
	"strconv"
	"strings"
)

const (
	// Converts `bcftools view -H` records into BIM rows: chr, id, cM (0), bp,
	// ref, alt.
	bimFromVCFProgram = `{print $1, $3, "0", $2, $4, $5}`

	// Drops the allele columns of a BIM to leave a PLINK MAP.
	mapFromBIMProgram = `{print $1, $2, $3, $4}`

	// Rewrites tab-separated selscan output as CSV with every field quoted.
	quotedCSVProgram = `BEGIN{OFS=","; FS="\t"} {for(i=1; i<=NF; i++) {printf "\"%s\"", $i; if(i<NF) printf ","}; printf "\n"}`
)

// Commands returns the commands of one stage in the order they must run.
func (p *Pipeline) Commands(stage Stage) []Command {
	if stage == StageConcatenate {
		return []Command{p.concatenateCommand()}
	}

	var build func(chr int) []Command
	switch stage {
	case StageSplit:
		build = p.splitCommands
	case StagePolarize:
		build = p.polarizeCommands
	case StagePhase:
		build = p.phaseCommands
	case StageSubset:
		build = p.subsetCommands
	case StageGeneticMap:
		build = p.geneticMapCommands
	case StageScan:
		build = p.scanCommands
	default:
		return nil
	}

	var out []Command
	for _, chr := range Autosomes {
		out = append(out, build(chr)...)
	}

	return out
}

// Plan returns every command of every stage, stage by stage.
func (p *Pipeline) Plan() []Command {
	var out []Command
	for _, stage := range Stages {
		out = append(out, p.Commands(stage)...)
	}
	return out
}

// moveTo appends a mv of a file the program named itself into the output
// placeholder.
func moveTo(src, outPort string) string {
	return " && " + shell("mv", src) + " {o:" + outPort + "}"
}

func (p *Pipeline) splitCommands(chr int) []Command {
	t, l := p.Config.Tools, p.Layout

	return []Command{
		{
			Stage:      StageSplit,
			Chromosome: chr,
			Pattern: shell(t.Plink2,
				"--bfile", p.Config.PlinkPrefix,
				"--chr", strconv.Itoa(chr),
				"--recode", "vcf",
				"--out", l.SplitPrefix(chr),
			) + moveTo(l.SplitVCF(chr), "vcf"),
			Outputs: []Port{port("vcf", l.SplitVCF(chr))},
		},
		{
			// -f overwrites an earlier run's output
			Stage:      StageSplit,
			Chromosome: chr,
			Pattern:    shell(t.Gzip, "-f") + " {i:vcf}" + moveTo(l.SplitVCFGz(chr), "vcfgz"),
			Inputs:     []Port{port("vcf", l.SplitVCF(chr))},
			Outputs:    []Port{port("vcfgz", l.SplitVCFGz(chr))},
		},
	}
}

func (p *Pipeline) polarizeCommands(chr int) []Command {
	t, l := p.Config.Tools, p.Layout

	return []Command{{
		Stage:      StagePolarize,
		Chromosome: chr,
		Pattern:    shell(t.Python, t.RecodeScript, l.AncestralAlleles(chr)) + " {i:vcfgz}" + moveTo(l.RecodedVCF(chr), "recoded"),
		Inputs:     []Port{port("vcfgz", l.SplitVCFGz(chr))},
		Outputs:    []Port{port("recoded", l.RecodedVCF(chr))},
	}}
}

func (p *Pipeline) phaseCommands(chr int) []Command {
	t, l, b := p.Config.Tools, p.Layout, p.Config.Beagle

	java := append([]string{t.Java}, b.JavaOptions...)
	java = append(java, "-jar", p.Config.BeagleJar)

	args := []string{
		"map=" + l.BeagleMap(chr),
		"out=" + l.PhasedPrefix(chr),
		"chrom=" + strconv.Itoa(chr),
	}
	if b.Threads > 0 {
		args = append(args, "nthreads="+strconv.Itoa(b.Threads))
	}

	return []Command{
		{
			Stage:      StagePhase,
			Chromosome: chr,
			Pattern:    shell(java...) + " gt={i:recoded} " + shell(args...) + moveTo(l.PhasedVCF(chr), "phased"),
			Inputs:     []Port{port("recoded", l.RecodedVCF(chr))},
			Outputs:    []Port{port("phased", l.PhasedVCF(chr))},
		},
		{
			Stage:      StagePhase,
			Chromosome: chr,
			Pattern:    shell(t.Bcftools, "index") + " {i:phased}" + moveTo(l.PhasedIndex(chr), "csi"),
			Inputs:     []Port{port("phased", l.PhasedVCF(chr))},
			Outputs:    []Port{port("csi", l.PhasedIndex(chr))},
		},
	}
}

func (p *Pipeline) subsetCommands(chr int) []Command {
	t, l := p.Config.Tools, p.Layout

	return []Command{{
		Stage:      StageSubset,
		Chromosome: chr,
		Pattern:    shell(t.Bcftools, "view", "--samples-file", l.SampleList()) + " {i:phased} -Oz -o {o:vcf}",
		Inputs:     []Port{port("phased", l.PhasedVCF(chr))},
		Outputs:    []Port{port("vcf", l.PopulationVCF(chr))},
	}}
}

func (p *Pipeline) geneticMapCommands(chr int) []Command {
	t, l := p.Config.Tools, p.Layout

	return []Command{
		{
			// Without pipefail a bcftools failure would leave an empty BIM.
			Stage:      StageGeneticMap,
			Chromosome: chr,
			Pattern:    "set -o pipefail; " + shell(t.Bcftools, "view") + " {i:vcf} -H | " + shell(t.Awk, bimFromVCFProgram) + " > {o:bim}",
			Inputs:     []Port{port("vcf", l.PopulationVCF(chr))},
			Outputs:    []Port{port("bim", l.PopulationBIM(chr))},
		},
		{
			Stage:      StageGeneticMap,
			Chromosome: chr,
			Pattern: shell(t.Plink, "--bim") + " {i:bim} " + shell(
				"--cm-map", l.ShapeitMap(chr), strconv.Itoa(chr),
				"--make-just-bim",
				"--out", l.GeneticMapPrefix(chr),
			) + moveTo(l.GeneticMapBIM(chr), "gmbim"),
			Inputs:  []Port{port("bim", l.PopulationBIM(chr))},
			Outputs: []Port{port("gmbim", l.GeneticMapBIM(chr))},
		},
		{
			Stage:      StageGeneticMap,
			Chromosome: chr,
			Pattern:    shell(t.Awk, mapFromBIMProgram) + " {i:gmbim} > {o:map}",
			Inputs:     []Port{port("gmbim", l.GeneticMapBIM(chr))},
			Outputs:    []Port{port("map", l.GeneticMapMAP(chr))},
		},
	}
}

func (p *Pipeline) scanCommands(chr int) []Command {
	t, l, s := p.Config.Tools, p.Layout, p.Config.Selscan

	args := []string{
		"--max-extend", strconv.Itoa(s.MaxExtend),
		"--max-gap", strconv.Itoa(s.MaxGap),
		"--gap-scale", strconv.Itoa(s.GapScale),
		"--cutoff", strconv.FormatFloat(s.Cutoff, 'g', -1, 64),
	}
	if s.Alt {
		args = append(args, "--alt")
	}
	if s.Threads > 0 {
		args = append(args, "--threads", strconv.Itoa(s.Threads))
	}
	args = append(args, "--out", l.SelscanPrefix(chr))

	return []Command{
		{
			Stage:      StageScan,
			Chromosome: chr,
			Pattern:    shell(t.Selscan, "--ihs") + " --vcf {i:vcf} --map {i:map} " + shell(args...) + moveTo(l.SelscanOutput(chr), "ihs"),
			Inputs: []Port{
				port("vcf", l.PopulationVCF(chr)),
				port("map", l.GeneticMapMAP(chr)),
			},
			Outputs: []Port{port("ihs", l.SelscanOutput(chr))},
		},
		{
			Stage:      StageScan,
			Chromosome: chr,
			Pattern:    shell(t.Norm, "--ihs", "--bins", strconv.Itoa(s.Bins), "--files") + " {i:ihs}" + moveTo(l.NormalizedOutput(chr), "norm"),
			Inputs:     []Port{port("ihs", l.SelscanOutput(chr))},
			Outputs:    []Port{port("norm", l.NormalizedOutput(chr))},
		},
		{
			Stage:      StageScan,
			Chromosome: chr,
			Pattern:    shell(t.Awk, quotedCSVProgram) + " {i:norm} > {o:csv}",
			Inputs:     []Port{port("norm", l.NormalizedOutput(chr))},
			Outputs:    []Port{port("csv", l.ChromosomeCSV(chr))},
		},
	}
}

// concatenateCommand joins the chromosome CSVs in chromosome order. The files
// are listed one by one rather than with a shell glob, which would sort chr10
// before chr2.
func (p *Pipeline) concatenateCommand() Command {
	inputs := make([]Port, 0, len(Autosomes))
	placeholders := make([]string, 0, len(Autosomes))
	for _, chr := range Autosomes {
		name := "chr" + strconv.Itoa(chr)
		inputs = append(inputs, port(name, p.Layout.ChromosomeCSV(chr)))
		placeholders = append(placeholders, "{i:"+name+"}")
	}

	return Command{
		Stage:   StageConcatenate,
		Pattern: shell(p.Config.Tools.Cat) + " " + strings.Join(placeholders, " ") + " > {o:combined}",
		Inputs:  inputs,
		Outputs: []Port{port("combined", p.Layout.CombinedCSV())},
	}
}
