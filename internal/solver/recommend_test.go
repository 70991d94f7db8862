package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupmixer/internal/api"
)

func TestRecommendProducesUsableConfiguration(t *testing.T) {
	input := trivialInput()
	config, err := Recommend(input.Problem, input.Objectives, input.Constraints, 5, testLogger())
	require.NoError(t, err)

	require.NotNil(t, config.StopConditions.MaxIterations)
	assert.Greater(t, *config.StopConditions.MaxIterations, uint64(0))
	require.NotNil(t, config.StopConditions.TimeLimitSeconds)
	assert.Equal(t, uint64(5), *config.StopConditions.TimeLimitSeconds)

	sap, ok := config.SolverParams.(api.SimulatedAnnealingParams)
	require.True(t, ok)
	assert.Greater(t, sap.InitialTemperature, 0.0)
	assert.Greater(t, sap.FinalTemperature, 0.0)
	assert.Equal(t, "geometric", sap.CoolingSchedule)

	assert.Equal(t, sap.InitialTemperature, config.RawSolverParams["initial_temperature"])
}
