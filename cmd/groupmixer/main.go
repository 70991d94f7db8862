// Package main is the groupmixer CLI: a thin hashicorp/cli dispatcher over
// the solve/validate/recommend/evaluate/schema entry points in
// groupmixer/internal/solver.
package main

import (
	"os"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
)

func main() {
	os.Exit(Run(os.Args[1:]))
}

// Run builds the command tree and executes it against args, returning the
// process exit code. Split out from main so tests can invoke it directly.
func Run(args []string) int {
	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "groupmixer",
		Level: hclog.LevelFromString(os.Getenv("GROUPMIXER_LOG_LEVEL")),
	})

	ui := &cli.BasicUi{
		Writer:      os.Stdout,
		ErrorWriter: os.Stderr,
		Reader:      os.Stdin,
	}

	meta := Meta{UI: ui, Stdin: os.Stdin, Logger: logger}

	c := cli.NewCLI("groupmixer", version)
	c.Args = args
	c.Commands = map[string]cli.CommandFactory{
		"solve": func() (cli.Command, error) {
			return &SolveCommand{Meta: meta}, nil
		},
		"validate": func() (cli.Command, error) {
			return &ValidateCommand{Meta: meta}, nil
		},
		"recommend": func() (cli.Command, error) {
			return &RecommendCommand{Meta: meta}, nil
		},
		"evaluate": func() (cli.Command, error) {
			return &EvaluateCommand{Meta: meta}, nil
		},
		"schema": func() (cli.Command, error) {
			return &SchemaCommand{Meta: meta}, nil
		},
	}

	exitStatus, err := c.Run()
	if err != nil {
		ui.Error(err.Error())
		return 1
	}
	return exitStatus
}

const version = "0.1.0"
