package pipeline

import (
	"fmt"
	"strings"

	shellquote "github.com/kballard/go-shellquote"
)

type Stage int

const (
	StageSplit Stage = iota + 1
	StagePolarize
	StagePhase
	StageSubset
	StageGeneticMap
	StageScan
	StageConcatenate
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageSplit,
	StagePolarize,
	StagePhase,
	StageSubset,
	StageGeneticMap,
	StageScan,
	StageConcatenate,
}

func (s Stage) String() string {
	switch s {
	case StageSplit:
		return "split"
	case StagePolarize:
		return "polarize"
	case StagePhase:
		return "phase"
	case StageSubset:
		return "subset"
	case StageGeneticMap:
		return "geneticmap"
	case StageScan:
		return "scan"
	case StageConcatenate:
		return "concatenate"
	}

	return fmt.Sprintf("stage(%d)", int(s))
}

// Port binds a {i:Name} or {o:Name} placeholder to a file.
type Port struct {
	Name string
	Path string
}

// Command is one scipipe process. Pattern is run by bash once its Inputs
// exist; every Input must be the Output of an earlier Command. Files that no
// Command produces, such as reference maps, are written into the Pattern
// directly.
//
// Programs that choose their own output names are followed by a mv into the
// {o:...} placeholder, so that scipipe can move the finished file into place.
type Command struct {
	Stage      Stage
	Chromosome int // 0 for commands that span all chromosomes
	Pattern    string
	Inputs     []Port
	Outputs    []Port
}

// Name is unique within a run and names the scipipe process.
func (c Command) Name() string {
	name := c.Stage.String()
	if c.Chromosome != 0 {
		name += fmt.Sprintf("_chr%d", c.Chromosome)
	}
	if len(c.Outputs) > 0 {
		name += "_" + c.Outputs[0].Name
	}
	return name
}

// String renders the command line with every placeholder replaced by its
// path.
func (c Command) String() string {
	var pairs []string
	for _, in := range c.Inputs {
		pairs = append(pairs, "{i:"+in.Name+"}", in.Path)
	}
	for _, out := range c.Outputs {
		pairs = append(pairs, "{o:"+out.Name+"}", out.Path)
	}

	return strings.NewReplacer(pairs...).Replace(c.Pattern)
}

func (c Command) describe() string {
	if c.Chromosome == 0 {
		return c.Stage.String()
	}
	return fmt.Sprintf("%s chr%d", c.Stage, c.Chromosome)
}

// shell quotes literal arguments. Placeholders must stay outside of it.
func shell(args ...string) string {
	return shellquote.Join(args...)
}

func port(name, path string) Port {
	return Port{Name: name, Path: path}
}
