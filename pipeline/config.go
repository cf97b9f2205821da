package pipeline

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"gopkg.in/yaml.v3"
)

// Tools holds the executable used for each external program. Bare names are
// resolved against $PATH.
type Tools struct {
	Plink2       string `yaml:"plink2"`
	Plink        string `yaml:"plink"`
	Gzip         string `yaml:"gzip"`
	Python       string `yaml:"python"`
	RecodeScript string `yaml:"recode_script"`
	Java         string `yaml:"java"`
	Bcftools     string `yaml:"bcftools"`
	Selscan      string `yaml:"selscan"`
	Norm         string `yaml:"norm"`
	Awk          string `yaml:"awk"`
	Cat          string `yaml:"cat"`
}

type BeagleOptions struct {
	JavaOptions []string `yaml:"java_options"` // E.g., -Xmx32g
	Threads     int      `yaml:"nthreads"`     // 0 lets Beagle decide

	// MapTemplate is formatted with the chromosome number. The GRCh37 maps
	// are used for every genome version unless this is set, e.g. to
	// plink.chr%d.GRCh38.map.
	MapTemplate string `yaml:"map_template"`
}

type SelscanOptions struct {
	MaxExtend int     `yaml:"max_extend"`
	MaxGap    int     `yaml:"max_gap"`
	GapScale  int     `yaml:"gap_scale"`
	Cutoff    float64 `yaml:"cutoff"`
	Alt       bool    `yaml:"alt"`
	Threads   int     `yaml:"threads"`
	Bins      int     `yaml:"bins"`

	// MapTemplate names the SHAPEIT-style genetic map for a chromosome.
	MapTemplate string `yaml:"map_template"`
}

type Config struct {
	PlinkPrefix          string `yaml:"plink_file"`
	SamplePrefix         string `yaml:"sample_file"` // Sample list is SamplePrefix + ".txt"
	AncestralAlleleDir   string `yaml:"ancestral_allele_file"`
	BeagleJar            string `yaml:"beagle_jar"`
	GeneticMapDir        string `yaml:"genetic_map_dir"`
	GeneticMapDirShapeit string `yaml:"genetic_map_dir_shapeit"`
	GenomeVersion        int    `yaml:"genome_version"`

	OutputDir     string `yaml:"output_dir"` // Defaults to SamplePrefix
	WorkDir       string `yaml:"work_dir"`
	RecodedSuffix string `yaml:"recoded_suffix"`
	Cleanup       bool   `yaml:"cleanup"`

	Tools   Tools          `yaml:"tools"`
	Beagle  BeagleOptions  `yaml:"beagle"`
	Selscan SelscanOptions `yaml:"selscan"`
}

const defaultBeagleMapTemplate = "plink.chr%d.GRCh37.map"

func DefaultConfig() *Config {
	return &Config{
		WorkDir:       ".",
		RecodedSuffix: "_recodedAA_recodedAA",
		Tools: Tools{
			Plink2:       "plink2",
			Plink:        "plink",
			Gzip:         "gzip",
			Python:       "python",
			RecodeScript: "recodeAA.py",
			Java:         "java",
			Bcftools:     "bcftools",
			Selscan:      "selscan",
			Norm:         "norm",
			Awk:          "awk",
			Cat:          "cat",
		},
		Beagle: BeagleOptions{
			MapTemplate: defaultBeagleMapTemplate,
		},
		Selscan: SelscanOptions{
			MaxExtend:   1000000,
			MaxGap:      500000,
			GapScale:    50000,
			Cutoff:      0.05,
			Alt:         true,
			Bins:        100,
			MapTemplate: "genetic_map_chr%d_combined_b37.txt",
		},
	}
}

// LoadConfig overlays the YAML file at path on top of DefaultConfig. Keys
// that do not name a setting are an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return cfg, nil
}

// Validate checks the configuration before any external program is started.
func (c *Config) Validate() error {
	var missing []string
	for _, v := range []struct{ name, value string }{
		{"plink_file", c.PlinkPrefix},
		{"sample_file", c.SamplePrefix},
		{"ancestral_allele_file", c.AncestralAlleleDir},
		{"beagle_jar", c.BeagleJar},
		{"genetic_map_dir", c.GeneticMapDir},
		{"genetic_map_dir_shapeit", c.GeneticMapDirShapeit},
	} {
		if v.value == "" {
			missing = append(missing, v.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	// These name files that are handed to bash unquoted.
	for _, v := range []struct{ name, value string }{
		{"plink_file", c.PlinkPrefix},
		{"sample_file", c.SamplePrefix},
		{"output_dir", c.OutputDir},
		{"work_dir", c.WorkDir},
	} {
		if strings.ContainsAny(v.value, " \t\n'\"$`;&|<>(){}*?") {
			return fmt.Errorf("%s %q must not contain spaces or shell metacharacters", v.name, v.value)
		}
	}

	if c.GenomeVersion != 19 && c.GenomeVersion != 38 {
		return fmt.Errorf("invalid genome version %d. Use 19 for hg19 or 38 for hg38", c.GenomeVersion)
	}

	if c.Selscan.Bins < 1 {
		return fmt.Errorf("selscan bins must be positive, got %d", c.Selscan.Bins)
	}

	if c.Selscan.MapTemplate == "" || !strings.Contains(c.Selscan.MapTemplate, "%d") {
		return fmt.Errorf("selscan map_template %q must contain %%d", c.Selscan.MapTemplate)
	}

	if c.Beagle.MapTemplate != "" && !strings.Contains(c.Beagle.MapTemplate, "%d") {
		return fmt.Errorf("beagle map_template %q must contain %%d", c.Beagle.MapTemplate)
	}

	return nil
}

// BeagleMapTemplate returns the genetic map name pattern used for phasing.
func (c *Config) BeagleMapTemplate() string {
	if c.Beagle.MapTemplate != "" {
		return c.Beagle.MapTemplate
	}

	return defaultBeagleMapTemplate
}
