package solver

import (
	"math"

	"groupmixer/internal/api"
)

// SwapMove exchanges two people between their current groups in session s.
type SwapMove struct {
	Session int
	A, B    int
}

// SwapDelta computes the exact change in total cost from applying move,
// without mutating state (spec.md §4.4 "Swap"). Returns +Inf for an
// infeasible move.
func SwapDelta(s *State, m SwapMove) float64 {
	sess := m.Session
	if !s.Participation[sess][m.A] || !s.Participation[sess][m.B] {
		return math.Inf(1)
	}
	locA := s.Location[sess][m.A]
	locB := s.Location[sess][m.B]
	if locA.Group == locB.Group {
		return 0
	}
	if ci := s.CliqueOfPerson[sess][m.A]; ci >= 0 {
		return math.Inf(1)
	}
	if ci := s.CliqueOfPerson[sess][m.B]; ci >= 0 {
		return math.Inf(1)
	}

	groupA := s.Schedule[sess][locA.Group]
	groupB := s.Schedule[sess][locB.Group]

	delta := 0.0

	// a leaves groupA, b leaves groupB; contact deltas with each group's
	// other (participating) members.
	for _, mem := range groupA {
		if mem == m.A || !s.Participation[sess][mem] {
			continue
		}
		delta += contactLossDelta(s, m.A, mem)
	}
	for _, mem := range groupB {
		if mem == m.B || !s.Participation[sess][mem] {
			continue
		}
		delta += contactLossDelta(s, m.B, mem)
	}
	// a joins groupB (excluding b), b joins groupA (excluding a).
	for _, mem := range groupB {
		if mem == m.B || !s.Participation[sess][mem] {
			continue
		}
		delta += contactGainDelta(s, m.A, mem)
	}
	for _, mem := range groupA {
		if mem == m.A || !s.Participation[sess][mem] {
			continue
		}
		delta += contactGainDelta(s, m.B, mem)
	}

	delta += attributeBalanceSwapDelta(s, sess, locA.Group, locB.Group, m.A, m.B)
	delta += forbiddenPairSwapDelta(s, sess, m.A, m.B, locA.Group, locB.Group)
	delta += shouldPairSwapDelta(s, sess, m.A, m.B, locA.Group, locB.Group)
	delta += pairMeetingSwapDelta(s, sess, m.A, m.B)

	// immovable placements: a moves locA.Group -> locB.Group, b the reverse.
	for _, mv := range [][3]int{{m.A, locA.Group, locB.Group}, {m.B, locB.Group, locA.Group}} {
		req := s.Immovable[sess][mv[0]]
		if req < 0 {
			continue
		}
		if mv[1] == req {
			delta += immovableWeight
		}
		if mv[2] == req {
			delta -= immovableWeight
		}
	}

	return delta
}

// contactLossDelta returns the cost change from person p losing one
// contact with other (spec.md §4.4: squared-term delta plus unique-contact
// delta when the pair's count drops to zero).
func contactLossDelta(s *State, p, other int) float64 {
	c := s.Contact[p][other]
	delta := 0.0
	if c > 1 {
		delta += (square(c-2) - square(c-1)) * s.WRepetition
	}
	if c == 1 {
		delta += s.WContacts // losing the pair increases cost (minus sign already applied via +w_contacts)
	}
	return delta
}

// contactGainDelta returns the cost change from person p gaining one
// contact with other.
func contactGainDelta(s *State, p, other int) float64 {
	c := s.Contact[p][other]
	delta := 0.0
	if c >= 1 {
		delta += (square(c) - square(maxInt(c-1, 0))) * s.WRepetition
	}
	if c == 0 {
		delta -= s.WContacts
	}
	return delta
}

func square(x int) float64 {
	f := float64(x)
	return f * f
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// attributeBalanceSwapDelta computes the four-term delta spec.md §4.4
// describes: before/after penalty for each of the two affected groups,
// restricted to constraints applying to that session and group.
func attributeBalanceSwapDelta(s *State, sess, groupA, groupB, a, b int) float64 {
	delta := 0.0
	for _, bal := range s.Balances {
		if !bal.activeIn(sess) {
			continue
		}
		switch bal.Group {
		case groupA:
			delta += balanceDeltaForGroup(s, sess, groupA, bal, a, b)
		case groupB:
			delta += balanceDeltaForGroup(s, sess, groupB, bal, b, a)
		}
	}
	return delta
}

// balanceDeltaForGroup computes the before/after penalty for one group
// whose membership loses `leaving` and gains `arriving`.
func balanceDeltaForGroup(s *State, sess, group int, bal *attributeBalance, leaving, arriving int) float64 {
	before := groupBalancePenalty(s, sess, group, bal)
	members := append([]int(nil), s.Schedule[sess][group]...)
	after := make([]int, 0, len(members))
	replaced := false
	for _, m := range members {
		if m == leaving && !replaced {
			replaced = true
			after = append(after, arriving)
			continue
		}
		after = append(after, m)
	}
	afterPenalty := hypotheticalBalancePenalty(s, sess, after, bal)
	return afterPenalty - before
}

func hypotheticalBalancePenalty(s *State, sess int, members []int, bal *attributeBalance) float64 {
	actual := make(map[int]int)
	for _, p := range members {
		if !s.Participation[sess][p] {
			continue
		}
		vi, ok := s.PersonAttr[p][bal.AttributeKey]
		if !ok || vi < 0 {
			continue
		}
		actual[vi]++
	}
	penalty := 0.0
	for vi, desired := range bal.DesiredValues {
		a := actual[vi]
		var dev int
		switch bal.Mode {
		case api.AttributeBalanceAtLeast:
			if desired > a {
				dev = desired - a
			}
		default:
			dev = desired - a
			if dev < 0 {
				dev = -dev
			}
		}
		penalty += float64(dev*dev) * bal.PenaltyWeight
	}
	return penalty
}

func forbiddenPairSwapDelta(s *State, sess, a, b, groupA, groupB int) float64 {
	delta := 0.0
	for _, p := range s.ForbiddenPairs {
		if !p.activeIn(sess) {
			continue
		}
		if p.A != a && p.B != a && p.A != b && p.B != b {
			continue
		}
		before := 0.0
		if s.Location[sess][p.A].Group == s.Location[sess][p.B].Group {
			before = p.Weight
		}
		afterGroupOf := func(person int) int {
			switch person {
			case a:
				return groupB
			case b:
				return groupA
			default:
				return s.Location[sess][person].Group
			}
		}
		after := 0.0
		if afterGroupOf(p.A) == afterGroupOf(p.B) {
			after = p.Weight
		}
		delta += after - before
	}
	return delta
}

func shouldPairSwapDelta(s *State, sess, a, b, groupA, groupB int) float64 {
	delta := 0.0
	for _, p := range s.ShouldPairs {
		if !p.activeIn(sess) {
			continue
		}
		if p.A != a && p.B != a && p.A != b && p.B != b {
			continue
		}
		before := 0.0
		if s.Location[sess][p.A].Group != s.Location[sess][p.B].Group {
			before = p.Weight
		}
		afterGroupOf := func(person int) int {
			switch person {
			case a:
				return groupB
			case b:
				return groupA
			default:
				return s.Location[sess][person].Group
			}
		}
		after := 0.0
		if afterGroupOf(p.A) != afterGroupOf(p.B) {
			after = p.Weight
		}
		delta += after - before
	}
	return delta
}

func pairMeetingSwapDelta(s *State, sess, a, b int) float64 {
	delta := 0.0
	for _, pm := range s.PairMeetings {
		if !pm.Sessions[sess] {
			continue
		}
		if pm.A != a && pm.B != a && pm.A != b && pm.B != b {
			continue
		}
		wasTogether := s.Location[sess][pm.A].Group == s.Location[sess][pm.B].Group
		groupOf := func(person int) int {
			switch person {
			case a:
				return s.Location[sess][b].Group
			case b:
				return s.Location[sess][a].Group
			default:
				return s.Location[sess][person].Group
			}
		}
		nowTogether := groupOf(pm.A) == groupOf(pm.B)
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

// ApplySwap mutates the schedule, location index, and every cached counter
// to reflect SwapMove m. Caller must have seen a finite SwapDelta first
// (spec.md §4.5's precondition contract).
func ApplySwap(s *State, m SwapMove) {
	sess := m.Session
	locA := s.Location[sess][m.A]
	locB := s.Location[sess][m.B]
	if locA.Group == locB.Group {
		return
	}

	delta := SwapDelta(s, m)

	groupA := s.Schedule[sess][locA.Group]
	groupB := s.Schedule[sess][locB.Group]

	for _, mem := range groupA {
		if mem == m.A || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, m.A, mem, -1)
	}
	for _, mem := range groupB {
		if mem == m.B || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, m.B, mem, -1)
	}

	groupA[locA.Position] = m.B
	groupB[locB.Position] = m.A
	s.Location[sess][m.A] = location{Group: locB.Group, Position: locB.Position}
	s.Location[sess][m.B] = location{Group: locA.Group, Position: locA.Position}

	for _, mem := range groupB {
		if mem == m.A || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, m.A, mem, +1)
	}
	for _, mem := range groupA {
		if mem == m.B || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, m.B, mem, +1)
	}

	recomputeForbiddenShouldImmovableCounts(s)
	s.recalcPairMeetings()
	s.AttributeBalancePenalty = s.recalcAttributeBalance()

	s.TotalCost += delta

	checkInvariants(s, map[string]interface{}{"move": "swap", "session": sess, "a": m.A, "b": m.B})
}

// repetitionContribution is a pair's contribution to RepetitionPenalty at
// a given contact count (spec.md §3: "(contact[i][j] - 1)^2 when > 1").
func repetitionContribution(c int) int {
	if c > 1 {
		return (c - 1) * (c - 1)
	}
	return 0
}

// updateContactCounters applies one ±1 contact change between p and other
// to the contact matrix and the unique/repetition counters.
func updateContactCounters(s *State, p, other int, sign int) {
	c := s.Contact[p][other]
	newC := c + sign
	s.RepetitionPenalty += repetitionContribution(newC) - repetitionContribution(c)
	if sign > 0 && c == 0 {
		s.UniqueContacts++
	}
	if sign < 0 && newC == 0 {
		s.UniqueContacts--
	}
	s.Contact[p][other] = newC
	s.Contact[other][p] = newC
}

func recomputeForbiddenShouldImmovableCounts(s *State) {
	s.ForbiddenViolations = s.recalcForbidden()
	s.ShouldViolations = s.recalcShould()
	s.ImmovableViolations = s.recalcImmovable()
}
