package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/cli"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCommandPrintsValidJSON(t *testing.T) {
	ui := cli.NewMockUi()
	cmd := &SchemaCommand{Meta{UI: ui, Logger: hclog.NewNullLogger()}}

	code := cmd.Run(nil)
	require.Equal(t, 0, code)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(ui.OutputWriter.String()), &doc))
	assert.Equal(t, "ApiInput", doc["title"])
}

func TestValidateCommandAcceptsWellFormedInputFromStdin(t *testing.T) {
	ui := cli.NewMockUi()
	cmd := &ValidateCommand{Meta{UI: ui, Stdin: strings.NewReader(trivialInputJSON), Logger: hclog.NewNullLogger()}}

	code := cmd.Run(nil)
	assert.Equal(t, 0, code)
	assert.Contains(t, ui.OutputWriter.String(), "ok")
}

func TestValidateCommandRejectsMalformedInput(t *testing.T) {
	ui := cli.NewMockUi()
	cmd := &ValidateCommand{Meta{
		UI:     ui,
		Stdin:  strings.NewReader(`{not valid json`),
		Logger: hclog.NewNullLogger(),
	}}

	code := cmd.Run(nil)
	assert.Equal(t, 1, code)
}

const trivialInputJSON = `{
	"problem": {
		"people": [{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"}],
		"groups": [{"id":"g1","size":2},{"id":"g2","size":2}],
		"num_sessions": 1
	},
	"objectives": [{"type":"maximize_unique_contacts","weight":1}],
	"constraints": [],
	"solver": {"solver_type":"SimulatedAnnealing","stop_conditions":{"max_iterations":10},"solver_params":{"initial_temperature":5,"final_temperature":0.5,"cooling_schedule":"geometric"}}
}`
