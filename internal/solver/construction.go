package solver

import (
	"fmt"
	"math/rand"

	"groupmixer/internal/api"
)

// BuildInitialSchedule implements spec.md §4.2: honor a warm-start partial
// schedule where possible, place immovables, then cliques as units, then
// everyone else, each into a group with spare capacity. After placement it
// rebuilds the location index and runs a full scoring recalculation.
func BuildInitialSchedule(st *State, initial api.ScheduleMap, rng *rand.Rand) error {
	remaining := make([][]int, st.NumSessions) // remaining capacity per session/group
	for sess := 0; sess < st.NumSessions; sess++ {
		remaining[sess] = append([]int(nil), st.GroupCap...)
		for g := 0; g < st.NumGroups; g++ {
			st.Schedule[sess][g] = st.Schedule[sess][g][:0]
		}
	}
	placed := make([][]bool, st.NumSessions)
	for sess := range placed {
		placed[sess] = make([]bool, st.NumPeople)
	}

	place := func(sess, person, group int) {
		st.Schedule[sess][group] = append(st.Schedule[sess][group], person)
		remaining[sess][group]--
		placed[sess][person] = true
	}

	// Step 1: warm-start from the partial initial schedule.
	if initial != nil {
		for sessKey, groups := range initial {
			sess, ok := parseSessionKey(sessKey, st.NumSessions)
			if !ok {
				continue
			}
			for groupID, people := range groups {
				g, ok := st.GroupOf[groupID]
				if !ok {
					continue
				}
				for _, pid := range people {
					p, ok := st.PersonOf[pid]
					if !ok || !st.Participation[sess][p] || placed[sess][p] {
						continue
					}
					if remaining[sess][g] <= 0 {
						continue
					}
					place(sess, p, g)
				}
			}
		}
	}

	// Step 2: immovable placements (including clique-propagated ones).
	for sess := 0; sess < st.NumSessions; sess++ {
		for p := 0; p < st.NumPeople; p++ {
			req := st.Immovable[sess][p]
			if req < 0 || !st.Participation[sess][p] || placed[sess][p] {
				continue
			}
			if remaining[sess][req] <= 0 {
				return &api.ValidationError{Message: fmt.Sprintf(
					"cannot place immovable person %s into group %s in session %d: group is full",
					st.PersonID[p], st.GroupID[req], sess)}
			}
			place(sess, p, req)
		}
	}

	// Step 3: cliques, as a unit, into a uniformly-random group with room.
	for _, c := range st.Cliques {
		for sess := 0; sess < st.NumSessions; sess++ {
			if !c.activeIn(sess) {
				continue
			}
			var participating []int
			allPlaced := true
			for _, p := range c.Members {
				if !st.Participation[sess][p] {
					continue
				}
				participating = append(participating, p)
				if !placed[sess][p] {
					allPlaced = false
				}
			}
			if len(participating) == 0 || allPlaced {
				continue
			}
			need := len(participating)
			var candidates []int
			for g := 0; g < st.NumGroups; g++ {
				if remaining[sess][g] >= need {
					candidates = append(candidates, g)
				}
			}
			if len(candidates) == 0 {
				return &api.ValidationError{Message: fmt.Sprintf(
					"no group has room for must-stay-together clique of %d people in session %d", need, sess)}
			}
			chosen := candidates[rng.Intn(len(candidates))]
			for _, p := range participating {
				if placed[sess][p] {
					continue
				}
				place(sess, p, chosen)
			}
		}
	}

	// Step 4: everyone else, uniformly at random among groups with room.
	for sess := 0; sess < st.NumSessions; sess++ {
		for p := 0; p < st.NumPeople; p++ {
			if !st.Participation[sess][p] || placed[sess][p] {
				continue
			}
			var candidates []int
			for g := 0; g < st.NumGroups; g++ {
				if remaining[sess][g] > 0 {
					candidates = append(candidates, g)
				}
			}
			if len(candidates) == 0 {
				return &api.ValidationError{Message: fmt.Sprintf(
					"no group has room for person %s in session %d", st.PersonID[p], sess)}
			}
			chosen := candidates[rng.Intn(len(candidates))]
			place(sess, p, chosen)
		}
	}

	rebuildLocationIndex(st)
	st.Recalculate()
	return nil
}

func rebuildLocationIndex(st *State) {
	for sess := 0; sess < st.NumSessions; sess++ {
		for g := 0; g < st.NumGroups; g++ {
			for pos, p := range st.Schedule[sess][g] {
				st.Location[sess][p] = location{Group: g, Position: pos}
			}
		}
	}
}

func parseSessionKey(key string, numSessions int) (int, bool) {
	var idx int
	n, err := fmt.Sscanf(key, "session_%d", &idx)
	if n != 1 || err != nil || idx < 0 || idx >= numSessions {
		return 0, false
	}
	return idx, true
}
