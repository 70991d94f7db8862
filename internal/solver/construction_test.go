package solver

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupmixer/internal/api"
)

func TestBuildInitialScheduleHonorsWarmStart(t *testing.T) {
	input := trivialInput()
	st, err := Preprocess(input, testLogger())
	require.NoError(t, err)

	initial := api.ScheduleMap{
		"session_0": {
			"g1": {"a", "b"},
		},
	}
	rng := rand.New(rand.NewSource(1))
	require.NoError(t, BuildInitialSchedule(st, initial, rng))

	g1 := st.GroupOf["g1"]
	assert.Equal(t, g1, st.Location[0][st.PersonOf["a"]].Group)
	assert.Equal(t, g1, st.Location[0][st.PersonOf["b"]].Group)
}

func TestBuildInitialSchedulePlacesCliqueAsUnit(t *testing.T) {
	input := trivialInput()
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b"}},
	)
	st, err := Preprocess(input, testLogger())
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(7))
	require.NoError(t, BuildInitialSchedule(st, nil, rng))

	for sess := 0; sess < st.NumSessions; sess++ {
		assert.Equal(t, st.Location[sess][st.PersonOf["a"]].Group, st.Location[sess][st.PersonOf["b"]].Group)
	}
}

func TestBuildInitialScheduleEveryoneParticipatingIsPlaced(t *testing.T) {
	st := buildTrivialState()
	for sess := 0; sess < st.NumSessions; sess++ {
		total := 0
		for g := 0; g < st.NumGroups; g++ {
			total += len(st.Schedule[sess][g])
		}
		assert.Equal(t, st.NumPeople, total)
	}
}

func TestBuildInitialScheduleFailsWhenImmovableGroupIsFull(t *testing.T) {
	input := trivialInput()
	input.Problem.Groups = []api.Group{{ID: "g1", Size: 1}, {ID: "g2", Size: 5}}
	input.Constraints = append(input.Constraints,
		&api.ImmovablePersonParams{PersonID: "a", GroupID: "g1"},
		&api.ImmovablePersonParams{PersonID: "b", GroupID: "g1"},
	)
	st, err := Preprocess(input, testLogger())
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	err = BuildInitialSchedule(st, nil, rng)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group is full")
}

func TestLocationIndexAgreesWithSchedule(t *testing.T) {
	st := buildTrivialState()
	for sess := 0; sess < st.NumSessions; sess++ {
		for g := 0; g < st.NumGroups; g++ {
			for pos, p := range st.Schedule[sess][g] {
				loc := st.Location[sess][p]
				assert.Equal(t, g, loc.Group)
				assert.Equal(t, pos, loc.Position)
			}
		}
	}
}
