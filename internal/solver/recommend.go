package solver

import (
	"math"
	"time"

	"github.com/hashicorp/go-hclog"

	"groupmixer/internal/api"
)

const trialIterations uint64 = 10000

// Recommend runs a short, high-temperature trial solve and derives
// initial_temperature/final_temperature/cooling_schedule/max_iterations
// settings sized to desiredRuntimeSeconds (SPEC_FULL.md §7, ported from
// the original's calculate_recommended_settings: choose an initial
// temperature that would accept the largest observed uphill move with
// probability 0.01, derived by P = exp(-delta/T) => T = -delta/ln(P)).
func Recommend(problem api.ProblemDefinition, objectives []api.Objective, constraints []api.Constraint, desiredRuntimeSeconds uint64, logger hclog.Logger) (*api.SolverConfiguration, error) {
	trialObjectives := objectives
	if len(trialObjectives) == 0 {
		trialObjectives = []api.Objective{{Type: api.ObjectiveMaximizeUniqueContacts, Weight: 1.0}}
	}

	trialInput := &api.ApiInput{
		Problem:     problem,
		Objectives:  trialObjectives,
		Constraints: constraints,
		Solver: api.SolverConfiguration{
			SolverType: api.SolverTypeSimulatedAnnealing,
			StopConditions: api.StopConditions{
				MaxIterations: uint64Ptr(trialIterations),
			},
		},
	}

	state, err := Preprocess(trialInput, logger)
	if err != nil {
		return nil, err
	}
	rng := newSeededRand(1)
	if err := BuildInitialSchedule(state, nil, rng); err != nil {
		return nil, err
	}

	var lastUpdate *api.ProgressUpdate
	capture := func(p *api.ProgressUpdate) bool {
		lastUpdate = p
		return true
	}

	start := time.Now()
	zero := uint64(0)
	_, err = Run(state, Options{
		Params: api.SimulatedAnnealingParams{
			InitialTemperature: 1000000,
			FinalTemperature:   1000000,
			CoolingSchedule:    "geometric",
			ReheatAfterNoImprovement: &zero,
		},
		Stop:             api.StopConditions{MaxIterations: uint64Ptr(trialIterations)},
		Logging:          api.LoggingOptions{LogFrequency: uint64Ptr(1)},
		ProgressCallback: capture,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	trialSecs := time.Since(start).Seconds()

	if lastUpdate == nil {
		return nil, &api.ValidationError{Message: "trial run produced no progress"}
	}

	maxUphill := lastUpdate.BiggestAttemptedIncrease
	if lastUpdate.BiggestAcceptedIncrease > maxUphill {
		maxUphill = lastUpdate.BiggestAcceptedIncrease
	}

	var initTemp float64
	if maxUphill > 0 {
		initTemp = -maxUphill / math.Log(0.01)
	} else {
		initTemp = 1.0
	}
	finalTemp := -1.0 / math.Log(0.00001)

	tPerIter := trialSecs / float64(trialIterations)
	targetSecs := float64(desiredRuntimeSeconds) * 0.9
	var totalIters uint64
	if tPerIter > 0 {
		totalIters = uint64(math.Round(targetSecs / tPerIter))
	} else {
		totalIters = 2000000
	}

	noImprovement := totalIters / 2
	recommendedParams := api.SimulatedAnnealingParams{
		InitialTemperature: initTemp,
		FinalTemperature:   finalTemp,
		CoolingSchedule:    "geometric",
	}
	return &api.SolverConfiguration{
		SolverType: api.SolverTypeSimulatedAnnealing,
		StopConditions: api.StopConditions{
			MaxIterations:           uint64Ptr(totalIters),
			TimeLimitSeconds:        uint64Ptr(desiredRuntimeSeconds),
			NoImprovementIterations: uint64Ptr(noImprovement),
		},
		SolverParams: recommendedParams,
		RawSolverParams: map[string]any{
			"initial_temperature": recommendedParams.InitialTemperature,
			"final_temperature":   recommendedParams.FinalTemperature,
			"cooling_schedule":    recommendedParams.CoolingSchedule,
		},
	}, nil
}

func uint64Ptr(v uint64) *uint64 { return &v }
