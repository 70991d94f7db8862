package main

import (
	"encoding/json"
	"strings"
)

// SchemaCommand prints a hand-built JSON Schema for the ApiInput document,
// covering the fields DecodeInput actually reads (SPEC_FULL.md §7 — no
// JSON-schema-generation library is in the pack, so this is assembled by
// hand rather than reflected).
type SchemaCommand struct {
	Meta
}

func (c *SchemaCommand) Help() string {
	return strings.TrimSpace(`
Usage: groupmixer schema

  Prints the JSON Schema describing the ApiInput document accepted by
  solve/validate/recommend/evaluate.
`)
}

func (c *SchemaCommand) Synopsis() string {
	return "Print the input JSON schema"
}

func (c *SchemaCommand) Run(args []string) int {
	out, err := json.MarshalIndent(apiInputSchema, "", "  ")
	if err != nil {
		c.UI.Error(err.Error())
		return 1
	}
	c.UI.Output(string(out))
	return 0
}

var apiInputSchema = map[string]any{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title":   "ApiInput",
	"type":    "object",
	"required": []string{"problem", "objectives", "constraints", "solver"},
	"properties": map[string]any{
		"problem": map[string]any{
			"type":     "object",
			"required": []string{"people", "groups", "num_sessions"},
			"properties": map[string]any{
				"people": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"id"},
						"properties": map[string]any{
							"id":         map[string]any{"type": "string"},
							"attributes": map[string]any{"type": "object"},
							"sessions": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "integer"},
							},
						},
					},
				},
				"groups": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type":     "object",
						"required": []string{"id", "size"},
						"properties": map[string]any{
							"id":   map[string]any{"type": "string"},
							"size": map[string]any{"type": "integer", "minimum": 1},
						},
					},
				},
				"num_sessions": map[string]any{"type": "integer", "minimum": 1},
			},
		},
		"objectives": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"type", "weight"},
				"properties": map[string]any{
					"type":   map[string]any{"type": "string", "enum": []string{"maximize_unique_contacts"}},
					"weight": map[string]any{"type": "number"},
				},
			},
		},
		"constraints": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"type"},
				"properties": map[string]any{
					"type": map[string]any{
						"type": "string",
						"enum": []string{
							"RepeatEncounter",
							"AttributeBalance",
							"MustStayTogether",
							"ShouldStayTogether",
							"ShouldNotBeTogether",
							"ImmovablePerson",
							"ImmovablePeople",
							"PairMeetingCount",
						},
					},
				},
			},
		},
		"solver": map[string]any{
			"type":     "object",
			"required": []string{"solver_type", "stop_conditions"},
			"properties": map[string]any{
				"solver_type": map[string]any{"type": "string", "enum": []string{"SimulatedAnnealing"}},
				"stop_conditions": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"max_iterations":            map[string]any{"type": "integer"},
						"time_limit_seconds":        map[string]any{"type": "integer"},
						"no_improvement_iterations": map[string]any{"type": "integer"},
					},
				},
				"solver_params": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"initial_temperature":       map[string]any{"type": "number"},
						"final_temperature":         map[string]any{"type": "number"},
						"cooling_schedule":          map[string]any{"type": "string", "enum": []string{"geometric", "linear"}},
						"reheat_cycles":             map[string]any{"type": "integer"},
						"reheat_after_no_improvement": map[string]any{"type": "integer"},
						"seed":                      map[string]any{"type": "integer"},
					},
				},
				"logging":          map[string]any{"type": "object"},
				"allowed_sessions": map[string]any{"type": "array", "items": map[string]any{"type": "integer"}},
			},
		},
		"initial_schedule": map[string]any{
			"type": "object",
			"description": "session_{i} -> group id -> ordered person ids",
		},
	},
}
