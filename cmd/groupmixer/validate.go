package main

import (
	"fmt"
	"strings"

	"groupmixer/internal/api"
	"groupmixer/internal/solver"
)

// ValidateCommand runs only the preprocessor and reports whether an
// ApiInput document is accepted, without running the solver.
type ValidateCommand struct {
	Meta
}

func (c *ValidateCommand) Help() string {
	return strings.TrimSpace(`
Usage: groupmixer validate [file]

  Reads an ApiInput JSON document from file (or stdin when file is
  omitted or "-") and runs preprocessing only, reporting any rejection
  without entering the solver loop.
`)
}

func (c *ValidateCommand) Synopsis() string {
	return "Check a problem definition for preprocessor errors"
}

func (c *ValidateCommand) Run(args []string) int {
	fs := c.FlagSet("validate")
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

	if err := solver.Validate(input, c.Logger); err != nil {
		c.UI.Error(fmt.Sprintf("invalid: %s", err))
		return 1
	}

	c.UI.Output("ok")
	return 0
}
