package api

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInputDispatchesConstraintTaggedUnion(t *testing.T) {
	raw := []byte(`{
		"problem": {
			"people": [{"id":"a"},{"id":"b"},{"id":"c"}],
			"groups": [{"id":"g1","size":3}],
			"num_sessions": 1
		},
		"objectives": [{"type":"maximize_unique_contacts","weight":1}],
		"constraints": [
			{"type":"MustStayTogether","people":["a","b"]},
			{"type":"ImmovablePerson","person_id":"c","group_id":"g1"},
			{"type":"PairMeetingCount","people":["a","b"],"target_meetings":1,"mode":"AtLeast","penalty_weight":50}
		],
		"solver": {"solver_type":"SimulatedAnnealing","stop_conditions":{},"solver_params":{"initial_temperature":100,"final_temperature":1,"cooling_schedule":"linear","seed":7}}
	}`)

	input, err := DecodeInput(raw)
	require.NoError(t, err)
	require.Len(t, input.Constraints, 3)

	must, ok := input.Constraints[0].(*MustStayTogetherParams)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, must.People)

	pm, ok := input.Constraints[2].(*PairMeetingCountParams)
	require.True(t, ok)
	assert.Equal(t, [2]string{"a", "b"}, pm.People)
	assert.Equal(t, PairMeetingAtLeast, pm.Mode)

	sap, ok := input.Solver.SolverParams.(SimulatedAnnealingParams)
	require.True(t, ok)
	assert.Equal(t, "linear", sap.CoolingSchedule)
	assert.Equal(t, int64(7), sap.Seed)
}

func TestDecodeInputRejectsUnrecognizedConstraintType(t *testing.T) {
	raw := []byte(`{
		"problem": {"people":[{"id":"a"}],"groups":[{"id":"g1","size":1}],"num_sessions":1},
		"objectives": [],
		"constraints": [{"type":"NotARealConstraint"}],
		"solver": {"solver_type":"SimulatedAnnealing","stop_conditions":{},"solver_params":{}}
	}`)

	_, err := DecodeInput(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized type")
}

func TestDecodeInputRejectsPairMeetingCountWithoutTwoPeople(t *testing.T) {
	raw := []byte(`{
		"problem": {"people":[{"id":"a"},{"id":"b"},{"id":"c"}],"groups":[{"id":"g1","size":3}],"num_sessions":1},
		"objectives": [],
		"constraints": [{"type":"PairMeetingCount","people":["a","b","c"],"target_meetings":1,"mode":"Exact"}],
		"solver": {"solver_type":"SimulatedAnnealing","stop_conditions":{},"solver_params":{}}
	}`)

	_, err := DecodeInput(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires exactly two people")
}

func TestEncodeResultRoundTripsScheduleMap(t *testing.T) {
	result := &SolverResult{
		RunID:      "test-run",
		FinalScore: 12.5,
		Schedule: ScheduleMap{
			"session_0": {"g1": {"a", "b"}},
		},
		UniqueContacts: 1,
	}

	out, err := EncodeResult(result)
	require.NoError(t, err)

	var decoded SolverResult
	require.NoError(t, json.Unmarshal(out, &decoded))

	if diff := cmp.Diff(result.Schedule, decoded.Schedule); diff != "" {
		t.Fatalf("schedule round-trip mismatch (-want +got):\n%s", diff)
	}
}
