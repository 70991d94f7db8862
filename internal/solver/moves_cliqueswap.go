package solver

import "math"

// CliqueSwapMove moves an entire clique as a unit from its source group
// into a target group, swapping places with a chosen list of people T
// from the target group.
type CliqueSwapMove struct {
	Session     int
	CliqueIndex int
	FromGroup   int
	ToGroup     int
	T           []int // people currently in ToGroup being displaced into FromGroup
}

// CliqueSwapDelta computes the exact cost change for m (spec.md §4.4
// "Clique-swap"). Feasibility follows the clause list verbatim: the
// clique must be active in s, fully co-located in FromGroup, none of its
// active members individually pinned to a group other than ToGroup, none
// of T individually pinned to a group other than FromGroup, |T| at least
// the active member count, and T disjoint from the clique.
func CliqueSwapDelta(s *State, m CliqueSwapMove) float64 {
	sess := m.Session
	c := s.Cliques[m.CliqueIndex]
	if !c.activeIn(sess) {
		return math.Inf(1)
	}

	var active []int
	for _, p := range c.Members {
		if !s.Participation[sess][p] {
			continue
		}
		if s.Location[sess][p].Group != m.FromGroup {
			return math.Inf(1)
		}
		active = append(active, p)
	}
	if len(active) == 0 {
		return math.Inf(1)
	}
	for _, p := range active {
		if req := s.Immovable[sess][p]; req >= 0 && req != m.ToGroup {
			return math.Inf(1)
		}
	}
	if len(m.T) < len(active) {
		return math.Inf(1)
	}
	activeSet := make(map[int]bool, len(active))
	for _, p := range active {
		activeSet[p] = true
	}
	for _, t := range m.T {
		if activeSet[t] {
			return math.Inf(1)
		}
		if req := s.Immovable[sess][t]; req >= 0 && req != m.FromGroup {
			return math.Inf(1)
		}
	}

	delta := 0.0

	// active and T swap places rather than merge: active ends up in
	// ToGroup, T ends up in FromGroup, so no pair between an active
	// member and a T member ever becomes co-located in either
	// direction. The only pairs that change are each side against the
	// group remainder it leaves behind and the remainder it arrives at.
	remainderFrom := remainderExcluding(s.Schedule[sess][m.FromGroup], append(append([]int(nil), active...), m.T...))
	remainderTo := remainderExcluding(s.Schedule[sess][m.ToGroup], m.T)
	for _, p := range active {
		for _, mem := range remainderFrom {
			if !s.Participation[sess][mem] {
				continue
			}
			delta += contactLossDelta(s, p, mem)
		}
		for _, mem := range remainderTo {
			if !s.Participation[sess][mem] {
				continue
			}
			delta += contactGainDelta(s, p, mem)
		}
	}
	for _, t := range m.T {
		for _, mem := range remainderTo {
			if !s.Participation[sess][mem] {
				continue
			}
			delta += contactLossDelta(s, t, mem)
		}
		for _, mem := range remainderFrom {
			if !s.Participation[sess][mem] {
				continue
			}
			delta += contactGainDelta(s, t, mem)
		}
	}
	// contacts among the T people themselves, and among active clique
	// members themselves, are unaffected: both sets move as a block and
	// stay mutually co-located in their new group.

	delta += cliqueSwapBalanceDelta(s, sess, m, active, remainderFrom, remainderTo)
	delta += cliqueSwapPairDelta(s, sess, active, m.T, m.FromGroup, m.ToGroup)
	delta += cliqueSwapImmovableDelta(s, sess, active, m.T, m.FromGroup, m.ToGroup)

	return delta
}

func remainderExcluding(members []int, excluded []int) []int {
	excludeSet := make(map[int]bool, len(excluded))
	for _, e := range excluded {
		excludeSet[e] = true
	}
	var out []int
	for _, m := range members {
		if !excludeSet[m] {
			out = append(out, m)
		}
	}
	return out
}

func cliqueSwapBalanceDelta(s *State, sess int, m CliqueSwapMove, active, remainderFrom, remainderTo []int) float64 {
	delta := 0.0
	newFrom := append(append([]int(nil), remainderFrom...), m.T...)
	newTo := append(append([]int(nil), remainderTo...), active...)
	for _, bal := range s.Balances {
		if !bal.activeIn(sess) {
			continue
		}
		switch bal.Group {
		case m.FromGroup:
			before := groupBalancePenalty(s, sess, m.FromGroup, bal)
			delta += hypotheticalBalancePenalty(s, sess, newFrom, bal) - before
		case m.ToGroup:
			before := groupBalancePenalty(s, sess, m.ToGroup, bal)
			delta += hypotheticalBalancePenalty(s, sess, newTo, bal) - before
		}
	}
	return delta
}

func cliqueSwapPairDelta(s *State, sess int, active, t []int, fromGroup, toGroup int) float64 {
	delta := 0.0
	// moved[p] = 1 if p is an active clique member (now in toGroup), 2 if
	// p is in T (now in fromGroup).
	moved := make(map[int]int, len(active)+len(t))
	for _, p := range active {
		moved[p] = 1
	}
	for _, p := range t {
		moved[p] = 2
	}
	resolvedGroup := func(p int) int {
		switch moved[p] {
		case 1:
			return toGroup
		case 2:
			return fromGroup
		default:
			return s.Location[sess][p].Group
		}
	}

	checkPairs := func(pairs []*weightedPair, violateIf func(sameGroup bool) bool) float64 {
		d := 0.0
		for _, pr := range pairs {
			if !pr.activeIn(sess) {
				continue
			}
			if moved[pr.A] == 0 && moved[pr.B] == 0 {
				continue
			}
			beforeSame := s.Location[sess][pr.A].Group == s.Location[sess][pr.B].Group
			afterSame := resolvedGroup(pr.A) == resolvedGroup(pr.B)
			before, after := 0.0, 0.0
			if violateIf(beforeSame) {
				before = pr.Weight
			}
			if violateIf(afterSame) {
				after = pr.Weight
			}
			d += after - before
		}
		return d
	}

	delta += checkPairs(s.ForbiddenPairs, func(same bool) bool { return same })
	delta += checkPairs(s.ShouldPairs, func(same bool) bool { return !same })

	for _, pm := range s.PairMeetings {
		if !pm.Sessions[sess] {
			continue
		}
		if moved[pm.A] == 0 && moved[pm.B] == 0 {
			continue
		}
		wasTogether := s.Location[sess][pm.A].Group == s.Location[sess][pm.B].Group
		nowTogether := resolvedGroup(pm.A) == resolvedGroup(pm.B)
		if wasTogether == nowTogether {
			continue
		}
		before := pairMeetingPenalty(pm)
		next := pm.CurrentMeetings
		if nowTogether {
			next++
		} else {
			next--
		}
		after := pairMeetingPenalty(&pairMeeting{Mode: pm.Mode, TargetMeetings: pm.TargetMeetings, PenaltyWeight: pm.PenaltyWeight, CurrentMeetings: next})
		delta += after - before
	}

	return delta
}

func cliqueSwapImmovableDelta(s *State, sess int, active, t []int, fromGroup, toGroup int) float64 {
	delta := 0.0
	for _, p := range active {
		req := s.Immovable[sess][p]
		if req < 0 {
			continue
		}
		before := 0.0
		if fromGroup != req {
			before = immovableWeight
		}
		after := 0.0
		if toGroup != req {
			after = immovableWeight
		}
		delta += after - before
	}
	for _, p := range t {
		req := s.Immovable[sess][p]
		if req < 0 {
			continue
		}
		before := 0.0
		if toGroup != req {
			before = immovableWeight
		}
		after := 0.0
		if fromGroup != req {
			after = immovableWeight
		}
		delta += after - before
	}
	return delta
}

// ApplyCliqueSwap mutates the schedule to reflect m, then performs a full
// rescore: clique-swap touches too many structures (two whole groups'
// membership, every pair constraint referencing any touched person) to
// update cheaply, matching spec.md §4.5's call-out that clique-swap is the
// one move family that falls back to Recalculate.
func ApplyCliqueSwap(s *State, m CliqueSwapMove) {
	sess := m.Session
	c := s.Cliques[m.CliqueIndex]

	var active []int
	for _, p := range c.Members {
		if s.Participation[sess][p] {
			active = append(active, p)
		}
	}

	fromRemainder := remainderExcluding(s.Schedule[sess][m.FromGroup], append(append([]int(nil), active...), m.T...))
	toRemainder := remainderExcluding(s.Schedule[sess][m.ToGroup], m.T)

	newFrom := append(append([]int(nil), fromRemainder...), m.T...)
	newTo := append(append([]int(nil), toRemainder...), active...)

	s.Schedule[sess][m.FromGroup] = newFrom
	s.Schedule[sess][m.ToGroup] = newTo

	rebuildLocationIndex(s)
	s.Recalculate()

	checkInvariants(s, map[string]interface{}{
		"move": "clique_swap", "session": sess, "clique": m.CliqueIndex,
		"from_group": m.FromGroup, "to_group": m.ToGroup, "t": m.T,
	})
}
