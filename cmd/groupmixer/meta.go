package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
)

// Meta holds the state shared by every subcommand: the UI to write through,
// the input stream to read a document from, and the logger handed down to
// the solver, mirroring the Meta embedding pattern nomad's command package
// uses for its shared flags.
type Meta struct {
	UI     cli.Ui
	Stdin  io.Reader
	Logger hclog.Logger
}

// FlagSet returns a flag.FlagSet whose own output is discarded; callers
// report parse errors through the command's UI instead.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// readInput loads the JSON document for a subcommand: from the named file
// argument, or from m.Stdin when args is empty or "-".
func (m *Meta) readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		stdin := m.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func commandErrorText(cmd cli.Command) string {
	return fmt.Sprintf("%s\n\n%s", cmd.Synopsis(), cmd.Help())
}
