package pipeline

import "testing"

func TestLayoutNestedSamplePrefix(t *testing.T) {
	cfg := testConfig()
	cfg.SamplePrefix = "pops/EUR"
	cfg.WorkDir = "scratch"
	l := NewLayout(cfg)

	for got, want := range map[string]string{
		l.SampleList():        "pops/EUR.txt",
		l.OutputDir():         "pops/EUR",
		l.PopulationVCF(4):    "pops/EUR_chr4_phased.vcf.gz",
		l.PopulationBIM(4):    "pops/EUR_chr4_phased.bim",
		l.GeneticMapMAP(4):    "scratch/chr4_gm.map",
		l.SelscanPrefix(4):    "pops/EUR/EUR_chr4_iHS",
		l.ChromosomeCSV(4):    "pops/EUR/EUR_chr4_iHS.csv",
		l.CombinedCSV():       "pops/EUR/EUR_allChr_iHS.csv",
		l.RecodedVCF(4):       "data/merged_chr4_recodedAA_recodedAA.vcf.gz",
		l.PhasedIndex(4):      "data/merged_chr4_phased_beagle.vcf.gz.csi",
		l.AncestralAlleles(4): "aa/chr4_hg19_AA.txt",
		l.ShapeitMap(4):       "maps/shapeit/genetic_map_chr4_combined_b37.txt",
	} {
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	}
}

func TestLayoutDefaults(t *testing.T) {
	cfg := testConfig()
	cfg.WorkDir = ""
	l := NewLayout(cfg)

	if l.WorkDir() != "." || l.GeneticMapPrefix(1) != "chr1_gm" {
		t.Errorf("Got workdir %s, prefix %s", l.WorkDir(), l.GeneticMapPrefix(1))
	}
	if len(Autosomes) != 22 || Autosomes[0] != 1 || Autosomes[21] != 22 {
		t.Errorf("Unexpected autosomes %v", Autosomes)
	}
}
