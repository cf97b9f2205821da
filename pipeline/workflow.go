package pipeline

import (
	"fmt"

	"github.com/carbocation/pfx"
	sp "github.com/scipipe/scipipe"
)

// afterPort carries the output of the previous command into a process that
// does not otherwise read it, so that processes start strictly in Plan order.
const afterPort = "after"

// Workflow assembles the Plan into a scipipe workflow with a single task
// slot. Each process waits for the file produced by the process before it,
// so chromosomes run one at a time and every stage finishes before the next
// one starts.
//
// Out-ports that nothing reads, such as that of the final cat, are drained by
// the workflow itself. scipipe stops the program when a command exits
// non-zero, and skips a process whose output already exists.
func (p *Pipeline) Workflow() (*sp.Workflow, error) {
	plan := p.Plan()

	after, err := ordering(plan)
	if err != nil {
		return nil, pfx.Err(err)
	}

	wf := sp.NewWorkflow("ihsflow", 1)

	producers := map[string]*sp.OutPort{}
	var prev *sp.OutPort

	for i, c := range plan {
		pattern := c.Pattern
		if after[i] {
			pattern += " # {i:" + afterPort + "}"
		}

		proc := wf.NewProc(c.Name(), pattern)
		for _, out := range c.Outputs {
			proc.SetPathStatic(out.Name, out.Path)
		}
		for _, in := range c.Inputs {
			proc.In(in.Name).Connect(producers[in.Path])
		}
		if after[i] {
			proc.In(afterPort).Connect(prev)
		}

		for _, out := range c.Outputs {
			producers[out.Path] = proc.Out(out.Name)
		}
		prev = proc.Out(c.Outputs[0].Name)
	}

	return wf, nil
}

// ordering reports, for each command of plan, whether it must also wait on
// the first output of the command before it. Commands that already read that
// file are ordered by their input. Every input must be written by an earlier
// command.
func ordering(plan []Command) ([]bool, error) {
	after := make([]bool, len(plan))
	written := map[string]struct{}{}
	prevPath := ""

	for i, c := range plan {
		if len(c.Outputs) == 0 {
			return nil, fmt.Errorf("%s: command has no output", c.describe())
		}

		chained := i == 0
		for _, in := range c.Inputs {
			if _, exists := written[in.Path]; !exists {
				return nil, fmt.Errorf("%s: no earlier command writes %s", c.describe(), in.Path)
			}
			if in.Path == prevPath {
				chained = true
			}
		}
		after[i] = !chained

		for _, out := range c.Outputs {
			written[out.Path] = struct{}{}
		}
		prevPath = c.Outputs[0].Path
	}

	return after, nil
}
