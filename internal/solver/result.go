package solver

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/hashicorp/go-hclog"

	"groupmixer/internal/api"
)

func newSeededRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// scheduleToMap renders the integer-indexed schedule into the external,
// round-trippable ScheduleMap shape (spec.md §6): "session_{i}" -> group
// id -> ordered person ids.
func scheduleToMap(s *State) api.ScheduleMap {
	out := make(api.ScheduleMap, s.NumSessions)
	for sess := 0; sess < s.NumSessions; sess++ {
		key := fmt.Sprintf("session_%d", sess)
		groups := make(map[string][]string, s.NumGroups)
		for g := 0; g < s.NumGroups; g++ {
			ids := make([]string, len(s.Schedule[sess][g]))
			for i, p := range s.Schedule[sess][g] {
				ids[i] = s.PersonID[p]
			}
			groups[s.GroupID[g]] = ids
		}
		out[key] = groups
	}
	return out
}

// Solve runs the full preprocess -> initial placement -> annealing
// pipeline against a decoded ApiInput (spec.md §6's solver entry point).
func Solve(input *api.ApiInput, logger hclog.Logger) (*api.SolverResult, error) {
	return SolveWithProgress(input, logger, nil)
}

// SolveWithProgress is Solve with an optional progress callback attached
// to the driver (spec.md §4.7).
func SolveWithProgress(input *api.ApiInput, logger hclog.Logger, progress api.ProgressCallback) (*api.SolverResult, error) {
	state, err := Preprocess(input, logger)
	if err != nil {
		return nil, err
	}

	seed := int64(0)
	if sap, ok := input.Solver.SolverParams.(api.SimulatedAnnealingParams); ok {
		seed = sap.Seed
	}
	rng := newSeededRand(seed)

	if err := BuildInitialSchedule(state, input.InitialSchedule, rng); err != nil {
		return nil, err
	}

	sap, _ := input.Solver.SolverParams.(api.SimulatedAnnealingParams)
	return Run(state, Options{
		Params:           sap,
		Stop:             input.Solver.StopConditions,
		Logging:          input.Solver.Logging,
		ProgressCallback: progress,
		Logger:           logger,
	})
}

// Evaluate implements the "evaluate" subcommand's contract (SPEC_FULL.md
// §7): construct state from the supplied initial schedule and score it
// once, without entering the annealing loop.
func Evaluate(input *api.ApiInput, logger hclog.Logger) (*api.SolverResult, error) {
	state, err := Preprocess(input, logger)
	if err != nil {
		return nil, err
	}
	rng := newSeededRand(1)
	if err := BuildInitialSchedule(state, input.InitialSchedule, rng); err != nil {
		return nil, err
	}
	return toSolverResult(state, 0)
}

// Validate runs only the preprocessor, discarding the resulting state;
// it implements the "validate" subcommand's contract.
func Validate(input *api.ApiInput, logger hclog.Logger) error {
	_, err := Preprocess(input, logger)
	return err
}
