package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"groupmixer/internal/api"
	"groupmixer/internal/solver"
)

// SolveCommand runs the full preprocess -> initial placement -> annealing
// pipeline against a JSON ApiInput and prints the resulting SolverResult.
type SolveCommand struct {
	Meta
}

func (c *SolveCommand) Help() string {
	return strings.TrimSpace(`
Usage: groupmixer solve [file]

  Reads an ApiInput JSON document from file (or stdin when file is
  omitted or "-") and runs the simulated-annealing solver against it,
  printing the resulting SolverResult JSON to stdout.

Options:

  -pretty     Print the schedule table and score breakdown alongside the
              JSON result.
`)
}

func (c *SolveCommand) Synopsis() string {
	return "Run the solver against a problem definition"
}

func (c *SolveCommand) Run(args []string) int {
	fs := c.FlagSet("solve")
	pretty := fs.Bool("pretty", false, "also print a human-readable breakdown")
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

	result, err := solver.Solve(input, c.Logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error running solver: %s", err))
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error encoding result: %s", err))
		return 1
	}
	c.UI.Output(string(out))

	if *pretty {
		c.UI.Output("")
		c.UI.Output(solver.ScoreBreakdown(result))
		c.UI.Output("")
		c.UI.Output(solver.ScheduleTable(result))
	}

	return 0
}
