package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findTransferCandidate(t *testing.T, st *State, sess int) TransferMove {
	t.Helper()
	for p := 0; p < st.NumPeople; p++ {
		if !st.Participation[sess][p] || st.Immovable[sess][p] >= 0 || st.CliqueOfPerson[sess][p] >= 0 {
			continue
		}
		from := st.Location[sess][p].Group
		if len(st.Schedule[sess][from]) <= 1 {
			continue
		}
		for g := 0; g < st.NumGroups; g++ {
			if g == from {
				continue
			}
			if len(st.Schedule[sess][g]) < st.GroupCap[g] {
				return TransferMove{Session: sess, Person: p, FromGroup: from, ToGroup: g}
			}
		}
	}
	require.Fail(t, "no transfer candidate found")
	return TransferMove{}
}

func TestTransferDeltaMatchesFullRecalculation(t *testing.T) {
	st := buildTrivialState()
	move := findTransferCandidate(t, st, 0)

	before := st.TotalCost
	delta := TransferDelta(st, move)
	require.False(t, math.IsInf(delta, 1))

	ApplyTransfer(st, move)
	assert.InDelta(t, before+delta, st.TotalCost, 1e-6)

	reported := st.TotalCost
	st.Recalculate()
	assert.InDelta(t, reported, st.TotalCost, 1e-3)
}

func TestTransferRejectsWhenSourceWouldEmpty(t *testing.T) {
	st := NewState(3, 2, 1, testLogger())
	st.GroupCap = []int{1, 2}
	for p := 0; p < 3; p++ {
		st.Participation[0][p] = true
		st.PersonAttr[p] = map[string]int{}
	}
	st.WContacts = 1.0
	st.Schedule[0][0] = []int{0}
	st.Schedule[0][1] = []int{1, 2}
	rebuildLocationIndex(st)
	st.Recalculate()

	delta := TransferDelta(st, TransferMove{Session: 0, Person: 0, FromGroup: 0, ToGroup: 1})
	assert.True(t, math.IsInf(delta, 1))
}

func TestTransferThenReverseRestoresState(t *testing.T) {
	st := buildTrivialState()
	move := findTransferCandidate(t, st, 0)

	before := st.TotalCost
	beforeContact := copyContact(st)

	ApplyTransfer(st, move)

	reverse := TransferMove{Session: move.Session, Person: move.Person, FromGroup: move.ToGroup, ToGroup: move.FromGroup}
	reverseDelta := TransferDelta(st, reverse)
	require.False(t, math.IsInf(reverseDelta, 1))
	ApplyTransfer(st, reverse)

	assert.InDelta(t, before, st.TotalCost, 1e-6)
	assertContactEqual(t, beforeContact, st.Contact)
}

func TestTransferRejectsImmovablePerson(t *testing.T) {
	st := buildTrivialState()
	// widen every group so some target has room; only the pin below can
	// make the transfer infeasible.
	st.GroupCap = []int{6, 6}
	sess := 0
	p := 0
	st.Immovable[sess][p] = st.Location[sess][p].Group

	for g := 0; g < st.NumGroups; g++ {
		if g != st.Location[sess][p].Group && len(st.Schedule[sess][g]) < st.GroupCap[g] {
			delta := TransferDelta(st, TransferMove{Session: sess, Person: p, FromGroup: st.Location[sess][p].Group, ToGroup: g})
			assert.True(t, math.IsInf(delta, 1))
			return
		}
	}
}
