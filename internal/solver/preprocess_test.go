package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupmixer/internal/api"
)

func TestPreprocessRejectsInsufficientCapacity(t *testing.T) {
	input := trivialInput()
	input.Problem.Groups = []api.Group{{ID: "g1", Size: 2}, {ID: "g2", Size: 2}}

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total group capacity")
}

func TestPreprocessRejectsDuplicatePersonID(t *testing.T) {
	input := trivialInput()
	input.Problem.People[1].ID = input.Problem.People[0].ID

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate person id")
}

func TestPreprocessRejectsOutOfRangeSession(t *testing.T) {
	input := trivialInput()
	input.Problem.People[0].Sessions = []int{0, 5}

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out-of-range session")
}

func TestPreprocessBuildsCliqueAndPropagatesImmovability(t *testing.T) {
	input := trivialInput()
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b"}},
		&api.ImmovablePersonParams{PersonID: "a", GroupID: "g1"},
	)

	st, err := Preprocess(input, testLogger())
	require.NoError(t, err)

	for sess := 0; sess < st.NumSessions; sess++ {
		assert.Equal(t, st.Immovable[sess][st.PersonOf["a"]], st.Immovable[sess][st.PersonOf["b"]],
			"clique members must share the same immovable group in session %d", sess)
		assert.Equal(t, st.GroupOf["g1"], st.Immovable[sess][st.PersonOf["b"]])
		// propagateImmovability clears CliqueOfPerson for the pinned session,
		// since every member is now individually pinned there.
		assert.Equal(t, -1, st.CliqueOfPerson[sess][st.PersonOf["a"]])
	}
}

func TestPreprocessAcceptsCliqueThatFitsLargestGroup(t *testing.T) {
	input := trivialInput()
	input.Problem.Groups = []api.Group{{ID: "g1", Size: 2}, {ID: "g2", Size: 4}}
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b", "c"}},
	)
	// blow capacity check too: 2+4=6 == len(people), fine.

	_, err := Preprocess(input, testLogger())
	// 3-person clique fits in g2 (size 4), so this should succeed.
	require.NoError(t, err)
}

func TestPreprocessRejectsCliqueExceedingEveryGroup(t *testing.T) {
	input := trivialInput()
	input.Problem.Groups = []api.Group{{ID: "g1", Size: 3}, {ID: "g2", Size: 3}}
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b", "c", "d"}},
	)

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds every group's capacity")
}

func TestPreprocessRejectsForbiddenPairInsideClique(t *testing.T) {
	input := trivialInput()
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b"}},
		&api.ShouldNotBeTogetherParams{People: []string{"a", "b"}, PenaltyWeight: 10},
	)

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicts with a must-stay-together clique")
}

func TestPreprocessRejectsPairMeetingTargetExceedingSubset(t *testing.T) {
	input := trivialInput()
	input.Constraints = append(input.Constraints,
		&api.PairMeetingCountParams{
			RawPeople:      []string{"a", "b"},
			Sessions:       []int{0},
			TargetMeetings: 3,
			Mode:           api.PairMeetingAtLeast,
			PenaltyWeight:  5,
		},
	)

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds session subset size")
}

func TestPreprocessRejectsPairMeetingAtLeastExceedingCoParticipation(t *testing.T) {
	input := trivialInput()
	input.Problem.People[0].Sessions = []int{0} // "a" only attends session 0
	input.Constraints = append(input.Constraints,
		&api.PairMeetingCountParams{
			RawPeople:      []string{"a", "b"},
			Sessions:       []int{0, 1},
			TargetMeetings: 2,
			Mode:           api.PairMeetingAtLeast,
			PenaltyWeight:  5,
		},
	)

	_, err := Preprocess(input, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds co-participation count")
}

func TestPreprocessDefaultWeightsApplyOnDecode(t *testing.T) {
	raw := []byte(`{
		"problem": {
			"people": [{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"}],
			"groups": [{"id":"g1","size":2},{"id":"g2","size":2}],
			"num_sessions": 1
		},
		"objectives": [{"type":"maximize_unique_contacts","weight":1}],
		"constraints": [{"type":"ShouldStayTogether","people":["a","b"]}],
		"solver": {"solver_type":"SimulatedAnnealing","stop_conditions":{},"solver_params":{}}
	}`)

	input, err := api.DecodeInput(raw)
	require.NoError(t, err)
	require.Len(t, input.Constraints, 1)
	ss, ok := input.Constraints[0].(*api.ShouldStayTogetherParams)
	require.True(t, ok)
	assert.Equal(t, api.DefaultConstraintWeight, ss.PenaltyWeight)
}
