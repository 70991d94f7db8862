package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupmixer/internal/api"
)

func runTrivial(t *testing.T, maxIter uint64) *api.SolverResult {
	t.Helper()
	input := trivialInput()
	maxIterCopy := maxIter
	input.Solver.StopConditions = api.StopConditions{MaxIterations: &maxIterCopy}
	input.Solver.SolverParams = api.SimulatedAnnealingParams{
		InitialTemperature: 10,
		FinalTemperature:   0.1,
		CoolingSchedule:    "geometric",
		Seed:               99,
	}
	result, err := Solve(input, testLogger())
	require.NoError(t, err)
	return result
}

func TestSolveTrivialSanityMaximizesContacts(t *testing.T) {
	result := runTrivial(t, 10000)
	// 6 people, 2 groups of 3, 2 sessions: 2*3 = 6 unique pairs possible per
	// session-group; the best achievable spread across 2 sessions with no
	// repeats is bounded by C(6,2)=15, and a good run should comfortably
	// beat a random single placement.
	assert.GreaterOrEqual(t, result.UniqueContacts, 12)
}

func TestRunRespectsProgressCallbackCancellation(t *testing.T) {
	st := buildTrivialState()
	calls := 0
	freq := uint64(1)
	maxIter := uint64(1000)
	_, err := Run(st, Options{
		Params: api.SimulatedAnnealingParams{InitialTemperature: 5, FinalTemperature: 0.5, CoolingSchedule: "geometric", Seed: 3},
		Stop:   api.StopConditions{MaxIterations: &maxIter},
		Logging: api.LoggingOptions{LogFrequency: &freq},
		ProgressCallback: func(u *api.ProgressUpdate) bool {
			calls++
			return calls < 3
		},
		Logger: testLogger(),
	})
	require.NoError(t, err)
	// three periodic calls (the third returns false and stops the loop),
	// plus the final progress event Run always emits on termination.
	assert.Equal(t, 4, calls)
}

func TestResolveReheatThresholdFallbacks(t *testing.T) {
	noImp := uint64(40)
	assert.Equal(t, uint64(10), resolveReheatThreshold(Options{Stop: api.StopConditions{NoImprovementIterations: &noImp}}))

	maxIter := uint64(500)
	assert.Equal(t, uint64(50), resolveReheatThreshold(Options{Stop: api.StopConditions{MaxIterations: &maxIter}}))

	assert.Equal(t, uint64(1000), resolveReheatThreshold(Options{}))

	explicit := uint64(7)
	assert.Equal(t, uint64(7), resolveReheatThreshold(Options{
		Params: api.SimulatedAnnealingParams{ReheatAfterNoImprovement: &explicit},
	}))
}

func TestBestSeenCostNeverWorsensAcrossAcceptedMoves(t *testing.T) {
	st := buildTrivialState()
	maxIter := uint64(2000)

	var lastBest float64 = 1e18
	freq := uint64(1)
	_, err := Run(st, Options{
		Params:  api.SimulatedAnnealingParams{InitialTemperature: 50, FinalTemperature: 0.1, CoolingSchedule: "geometric", Seed: 11},
		Stop:    api.StopConditions{MaxIterations: &maxIter},
		Logging: api.LoggingOptions{LogFrequency: &freq},
		ProgressCallback: func(u *api.ProgressUpdate) bool {
			assert.LessOrEqual(t, u.BestScore, lastBest+1e-6)
			lastBest = u.BestScore
			return true
		},
		Logger: testLogger(),
	})
	require.NoError(t, err)
}

func TestEvaluateRunsNoIterations(t *testing.T) {
	input := trivialInput()
	result, err := Evaluate(input, testLogger())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), result.NoImprovementCount)
}

func TestValidateAcceptsWellFormedInput(t *testing.T) {
	require.NoError(t, Validate(trivialInput(), testLogger()))
}

func TestValidateRejectsMalformedInput(t *testing.T) {
	input := trivialInput()
	input.Problem.Groups = nil
	err := Validate(input, testLogger())
	require.Error(t, err)
}
