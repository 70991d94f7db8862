package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"groupmixer/internal/api"
	"groupmixer/internal/solver"
)

// RecommendCommand runs a short trial solve and derives simulated-annealing
// parameters sized to a desired runtime.
type RecommendCommand struct {
	Meta
}

func (c *RecommendCommand) Help() string {
	return strings.TrimSpace(`
Usage: groupmixer recommend [file]

  Reads an ApiInput JSON document's problem/objectives/constraints from
  file (or stdin when file is omitted or "-"), runs a short trial solve,
  and prints a recommended SolverConfiguration JSON.

Options:

  -runtime-seconds=N   Desired full-run duration to size max_iterations
                        against (default 60). Falls back to
                        solver.stop_conditions.time_limit_seconds in the
                        input document when set and this flag is not.
`)
}

func (c *RecommendCommand) Synopsis() string {
	return "Derive solver parameters sized to a target runtime"
}

func (c *RecommendCommand) Run(args []string) int {
	fs := c.FlagSet("recommend")
	runtimeSeconds := fs.Uint64("runtime-seconds", 0, "desired runtime in seconds")
	if err := fs.Parse(args); err != nil {
		c.UI.Error(commandErrorText(c))
		return 1
	}

	raw, err := c.readInput(fs.Args())
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error reading input: %s", err))
		return 1
	}

	input, err := api.DecodeInput(raw)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error decoding input: %s", err))
		return 1
	}

	desired := *runtimeSeconds
	if desired == 0 {
		if t := input.Solver.StopConditions.TimeLimitSeconds; t != nil {
			desired = *t
		} else {
			desired = 60
		}
	}

	config, err := solver.Recommend(input.Problem, input.Objectives, input.Constraints, desired, c.Logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error deriving recommendation: %s", err))
		return 1
	}

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error encoding recommendation: %s", err))
		return 1
	}
	c.UI.Output(string(out))
	return 0
}
