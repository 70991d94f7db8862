package solver

import (
	"math/rand"

	"github.com/hashicorp/go-hclog"

	"groupmixer/internal/api"
)

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

// trivialInput builds a 6-person, 2-group, 2-session problem with no
// constraints beyond a repeat-encounter weight and a unique-contacts
// objective, matching the "trivial sanity" scenario used across the solver
// package's tests.
func trivialInput() *api.ApiInput {
	people := make([]api.Person, 6)
	for i := range people {
		people[i] = api.Person{ID: personName(i)}
	}
	return &api.ApiInput{
		Problem: api.ProblemDefinition{
			People: people,
			Groups: []api.Group{
				{ID: "g1", Size: 3},
				{ID: "g2", Size: 3},
			},
			NumSessions: 2,
		},
		Objectives: []api.Objective{
			{Type: api.ObjectiveMaximizeUniqueContacts, Weight: 1.0},
		},
		Constraints: []api.Constraint{
			&api.RepeatEncounterParams{PenaltyWeight: 1.0},
		},
		Solver: api.SolverConfiguration{
			SolverType: api.SolverTypeSimulatedAnnealing,
		},
	}
}

func personName(i int) string {
	return string(rune('a' + i))
}

func buildTrivialState() *State {
	st, err := Preprocess(trivialInput(), testLogger())
	if err != nil {
		panic(err)
	}
	rng := rand.New(rand.NewSource(42))
	if err := BuildInitialSchedule(st, nil, rng); err != nil {
		panic(err)
	}
	return st
}
