package pipeline

import (
	"fmt"
	"path/filepath"
)

// Autosomes are processed in this order by every stage.
var Autosomes = func() []int {
	out := make([]int, 22)
	for i := range out {
		out[i] = i + 1
	}
	return out
}()

// Layout names every file the pipeline reads or writes. Each stage finds its
// inputs purely by these names, so they must stay stable between stages.
type Layout struct {
	cfg *Config
}

func NewLayout(cfg *Config) Layout {
	return Layout{cfg: cfg}
}

// OutputDir holds the selscan results and the per-chromosome and combined CSVs.
func (l Layout) OutputDir() string {
	if l.cfg.OutputDir != "" {
		return l.cfg.OutputDir
	}
	return l.cfg.SamplePrefix
}

func (l Layout) WorkDir() string {
	if l.cfg.WorkDir != "" {
		return l.cfg.WorkDir
	}
	return "."
}

// stem is used to name files inside OutputDir, so a sample prefix such as
// pops/EUR yields pops/EUR/EUR_chr1_iHS rather than nesting the directory twice.
func (l Layout) stem() string {
	return filepath.Base(l.cfg.SamplePrefix)
}

func (l Layout) PlinkInputs() []string {
	return []string{l.cfg.PlinkPrefix + ".bed", l.cfg.PlinkPrefix + ".bim", l.cfg.PlinkPrefix + ".fam"}
}

func (l Layout) SampleList() string {
	return l.cfg.SamplePrefix + ".txt"
}

// SplitPrefix is passed to plink2 --out.
func (l Layout) SplitPrefix(chr int) string {
	return fmt.Sprintf("%s_chr%d", l.cfg.PlinkPrefix, chr)
}

func (l Layout) SplitVCF(chr int) string {
	return l.SplitPrefix(chr) + ".vcf"
}

func (l Layout) SplitVCFGz(chr int) string {
	return l.SplitVCF(chr) + ".gz"
}

func (l Layout) AncestralAlleles(chr int) string {
	return filepath.Join(l.cfg.AncestralAlleleDir, fmt.Sprintf("chr%d_hg%d_AA.txt", chr, l.cfg.GenomeVersion))
}

// RecodedVCF is the file the recoding script leaves next to its input.
func (l Layout) RecodedVCF(chr int) string {
	return l.SplitPrefix(chr) + l.cfg.RecodedSuffix + ".vcf.gz"
}

func (l Layout) BeagleMap(chr int) string {
	return filepath.Join(l.cfg.GeneticMapDir, fmt.Sprintf(l.cfg.BeagleMapTemplate(), chr))
}

func (l Layout) PhasedPrefix(chr int) string {
	return l.SplitPrefix(chr) + "_phased_beagle"
}

func (l Layout) PhasedVCF(chr int) string {
	return l.PhasedPrefix(chr) + ".vcf.gz"
}

// PhasedIndex is the default CSI index bcftools index writes.
func (l Layout) PhasedIndex(chr int) string {
	return l.PhasedVCF(chr) + ".csi"
}

func (l Layout) PopulationVCF(chr int) string {
	return fmt.Sprintf("%s_chr%d_phased.vcf.gz", l.cfg.SamplePrefix, chr)
}

func (l Layout) PopulationBIM(chr int) string {
	return fmt.Sprintf("%s_chr%d_phased.bim", l.cfg.SamplePrefix, chr)
}

func (l Layout) ShapeitMap(chr int) string {
	return filepath.Join(l.cfg.GeneticMapDirShapeit, fmt.Sprintf(l.cfg.Selscan.MapTemplate, chr))
}

func (l Layout) GeneticMapPrefix(chr int) string {
	return filepath.Join(l.WorkDir(), fmt.Sprintf("chr%d_gm", chr))
}

func (l Layout) GeneticMapBIM(chr int) string {
	return l.GeneticMapPrefix(chr) + ".bim"
}

func (l Layout) GeneticMapLog(chr int) string {
	return l.GeneticMapPrefix(chr) + ".log"
}

func (l Layout) GeneticMapMAP(chr int) string {
	return l.GeneticMapPrefix(chr) + ".map"
}

func (l Layout) SelscanPrefix(chr int) string {
	return filepath.Join(l.OutputDir(), fmt.Sprintf("%s_chr%d_iHS", l.stem(), chr))
}

// SelscanOutput is the raw iHS file; selscan adds ".alt" when --alt is set.
func (l Layout) SelscanOutput(chr int) string {
	if l.cfg.Selscan.Alt {
		return l.SelscanPrefix(chr) + ".ihs.alt.out"
	}
	return l.SelscanPrefix(chr) + ".ihs.out"
}

func (l Layout) NormalizedOutput(chr int) string {
	return fmt.Sprintf("%s.%dbins.norm", l.SelscanOutput(chr), l.cfg.Selscan.Bins)
}

func (l Layout) ChromosomeCSV(chr int) string {
	return l.SelscanPrefix(chr) + ".csv"
}

func (l Layout) CombinedCSV() string {
	return filepath.Join(l.OutputDir(), l.stem()+"_allChr_iHS.csv")
}
