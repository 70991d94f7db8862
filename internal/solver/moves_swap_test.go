package solver

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groupmixer/internal/api"
)

// findSwapCandidate returns two participating, non-clique people in
// different groups in sess, or fails the test if none exist.
func findSwapCandidate(t *testing.T, st *State, sess int) (int, int) {
	t.Helper()
	for a := 0; a < st.NumPeople; a++ {
		if !st.Participation[sess][a] || st.CliqueOfPerson[sess][a] >= 0 {
			continue
		}
		for b := a + 1; b < st.NumPeople; b++ {
			if !st.Participation[sess][b] || st.CliqueOfPerson[sess][b] >= 0 {
				continue
			}
			if st.Location[sess][a].Group != st.Location[sess][b].Group {
				return a, b
			}
		}
	}
	require.Fail(t, "no swap candidate found")
	return 0, 0
}

func TestSwapDeltaMatchesFullRecalculation(t *testing.T) {
	st := buildTrivialState()
	sess := 0
	a, b := findSwapCandidate(t, st, sess)
	move := SwapMove{Session: sess, A: a, B: b}

	before := st.TotalCost
	delta := SwapDelta(st, move)
	require.False(t, math.IsInf(delta, 1))

	ApplySwap(st, move)
	assert.InDelta(t, before+delta, st.TotalCost, 1e-6)

	reported := st.TotalCost
	st.Recalculate()
	assert.InDelta(t, reported, st.TotalCost, 1e-3)
}

func TestSwapWithinSameGroupIsNoop(t *testing.T) {
	st := buildTrivialState()
	sess := 0
	group := st.Location[sess][0].Group
	var a, b int = -1, -1
	for p := 0; p < st.NumPeople; p++ {
		if st.Location[sess][p].Group == group {
			if a < 0 {
				a = p
			} else if b < 0 {
				b = p
			}
		}
	}
	require.GreaterOrEqual(t, a, 0)
	require.GreaterOrEqual(t, b, 0)

	delta := SwapDelta(st, SwapMove{Session: sess, A: a, B: b})
	assert.Equal(t, 0.0, delta)
}

func TestSwapRejectsCliqueMembers(t *testing.T) {
	input := trivialInput()
	input.Constraints = append(input.Constraints,
		&api.MustStayTogetherParams{People: []string{"a", "b"}},
	)
	st, err := Preprocess(input, testLogger())
	require.NoError(t, err)
	require.NoError(t, BuildInitialSchedule(st, nil, rand.New(rand.NewSource(3))))

	sess := 0
	aIdx := st.PersonOf["a"]
	var other int
	for p := 0; p < st.NumPeople; p++ {
		if p != aIdx && st.Location[sess][p].Group != st.Location[sess][aIdx].Group {
			other = p
			break
		}
	}
	delta := SwapDelta(st, SwapMove{Session: sess, A: aIdx, B: other})
	assert.True(t, math.IsInf(delta, 1))
}

func TestSwapThenSwapBackRestoresState(t *testing.T) {
	st := buildTrivialState()
	sess := 0
	a, b := findSwapCandidate(t, st, sess)

	before := st.TotalCost
	beforeContact := copyContact(st)

	move := SwapMove{Session: sess, A: a, B: b}
	ApplySwap(st, move)

	// swap back: a and b are now in each other's original groups, so the
	// inverse move is the same pair.
	reverse := SwapMove{Session: sess, A: a, B: b}
	ApplySwap(st, reverse)

	assert.InDelta(t, before, st.TotalCost, 1e-6)
	assertContactEqual(t, beforeContact, st.Contact)
}

func copyContact(st *State) [][]int {
	out := make([][]int, len(st.Contact))
	for i := range out {
		out[i] = append([]int(nil), st.Contact[i]...)
	}
	return out
}

func assertContactEqual(t *testing.T, want, got [][]int) {
	t.Helper()
	for i := range want {
		for j := range want[i] {
			assert.Equal(t, want[i][j], got[i][j], "contact[%d][%d]", i, j)
		}
	}
}

func TestUniqueContactsAndRepetitionMatchContactMatrix(t *testing.T) {
	st := buildTrivialState()
	uniq, rep := 0, 0
	for i := 0; i < st.NumPeople; i++ {
		for j := i + 1; j < st.NumPeople; j++ {
			c := st.Contact[i][j]
			if c > 0 {
				uniq++
			}
			if c > 1 {
				rep += (c - 1) * (c - 1)
			}
		}
	}
	assert.Equal(t, uniq, st.UniqueContacts)
	assert.Equal(t, rep, st.RepetitionPenalty)
}
