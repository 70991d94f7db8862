package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"groupmixer/internal/api"
	"groupmixer/internal/solver"
)

// EvaluateCommand scores a supplied initial schedule once, without entering
// the annealing loop.
type EvaluateCommand struct {
	Meta
}

func (c *EvaluateCommand) Help() string {
	return strings.TrimSpace(`
Usage: groupmixer evaluate [file]

  Reads an ApiInput JSON document (with an initial_schedule) from file
  (or stdin when file is omitted or "-"), constructs the corresponding
  state, and prints its SolverResult without running any iterations.
`)
}

func (c *EvaluateCommand) Synopsis() string {
	return "Score a schedule without optimizing it"
}

func (c *EvaluateCommand) Run(args []string) int {
	fs := c.FlagSet("evaluate")
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

	result, err := solver.Evaluate(input, c.Logger)
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error evaluating schedule: %s", err))
		return 1
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		c.UI.Error(fmt.Sprintf("Error encoding result: %s", err))
		return 1
	}
	c.UI.Output(string(out))
	return 0
}
