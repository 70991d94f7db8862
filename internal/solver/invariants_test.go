package solver

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func newCapturingLogger() (hclog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "test",
		Level:  hclog.Warn,
		Output: &buf,
	})
	return logger, &buf
}

func TestCheckInvariantsNoopWhenDisabled(t *testing.T) {
	st := buildTrivialState()
	logger, buf := newCapturingLogger()
	st.Logger = logger
	st.DebugValidateInvariants = false

	st.Location[0][0] = location{Group: st.Location[0][0].Group + 1, Position: 0}
	checkInvariants(st, nil)

	assert.Empty(t, buf.String())
}

func TestCheckInvariantsFlagsLocationDisagreement(t *testing.T) {
	st := buildTrivialState()
	logger, buf := newCapturingLogger()
	st.Logger = logger
	st.DebugValidateInvariants = true

	p := st.Schedule[0][0][0]
	st.Location[0][p] = location{Group: st.Location[0][p].Group, Position: st.Location[0][p].Position + 1}
	checkInvariants(st, nil)

	assert.Contains(t, buf.String(), "invariant violation")
	assert.Contains(t, buf.String(), "disagrees with schedule slot")
}

func TestCheckInvariantsFlagsDuplicateAssignment(t *testing.T) {
	st := buildTrivialState()
	logger, buf := newCapturingLogger()
	st.Logger = logger
	st.DebugValidateInvariants = true

	p := st.Schedule[0][0][0]
	other := 0
	for g := 0; g < st.NumGroups; g++ {
		if g != st.Location[0][p].Group {
			other = g
			break
		}
	}
	st.Schedule[0][other] = append(st.Schedule[0][other], p)
	checkInvariants(st, nil)

	assert.Contains(t, buf.String(), "assigned to more than one group")
}

func TestCheckInvariantsFlagsOverCapacity(t *testing.T) {
	st := buildTrivialState()
	logger, buf := newCapturingLogger()
	st.Logger = logger
	st.DebugValidateInvariants = true

	extra := st.Schedule[0][1][0]
	st.Schedule[0][0] = append(st.Schedule[0][0], extra)
	checkInvariants(st, nil)

	assert.Contains(t, buf.String(), "over capacity")
}

func TestCheckInvariantsCleanStateProducesNoWarnings(t *testing.T) {
	st := buildTrivialState()
	logger, buf := newCapturingLogger()
	st.Logger = logger
	st.DebugValidateInvariants = true

	checkInvariants(st, nil)

	assert.Empty(t, buf.String())
}
