package solver

import "math"

// TransferMove moves one person from their current group to another group
// with spare capacity, in a single session.
type TransferMove struct {
	Session   int
	Person    int
	FromGroup int
	ToGroup   int
}

// TransferDelta computes the exact cost change for m (spec.md §4.4
// "Transfer"). Returns +Inf when infeasible: the person does not
// participate in s, is immovable in s, is in a clique in s, is not in
// FromGroup, the source group would be left empty, or the target group
// lacks capacity.
func TransferDelta(s *State, m TransferMove) float64 {
	sess := m.Session
	p := m.Person
	if !s.Participation[sess][p] {
		return math.Inf(1)
	}
	if s.Immovable[sess][p] >= 0 {
		return math.Inf(1)
	}
	if s.CliqueOfPerson[sess][p] >= 0 {
		return math.Inf(1)
	}
	loc := s.Location[sess][p]
	if loc.Group != m.FromGroup {
		return math.Inf(1)
	}
	fromMembers := s.Schedule[sess][m.FromGroup]
	if len(fromMembers) <= 1 {
		return math.Inf(1) // source group must remain non-empty
	}
	toMembers := s.Schedule[sess][m.ToGroup]
	if len(toMembers) >= s.GroupCap[m.ToGroup] {
		return math.Inf(1)
	}

	delta := 0.0
	for _, mem := range fromMembers {
		if mem == p || !s.Participation[sess][mem] {
			continue
		}
		delta += contactLossDelta(s, p, mem)
	}
	for _, mem := range toMembers {
		if !s.Participation[sess][mem] {
			continue
		}
		delta += contactGainDelta(s, p, mem)
	}

	delta += balanceDeltaForTransferSource(s, sess, m.FromGroup, p)
	delta += balanceDeltaForTransferTarget(s, sess, m.ToGroup, p)

	delta += forbiddenPairTransferDelta(s, sess, p, m.ToGroup)
	delta += shouldPairTransferDelta(s, sess, p, m.ToGroup)
	delta += pairMeetingTransferDelta(s, sess, p, m.ToGroup)

	return delta
}

func balanceDeltaForTransferSource(s *State, sess, group, leaving int) float64 {
	delta := 0.0
	for _, bal := range s.Balances {
		if bal.Group != group || !bal.activeIn(sess) {
			continue
		}
		before := groupBalancePenalty(s, sess, group, bal)
		after := make([]int, 0, len(s.Schedule[sess][group]))
		for _, m := range s.Schedule[sess][group] {
			if m == leaving {
				continue
			}
			after = append(after, m)
		}
		delta += hypotheticalBalancePenalty(s, sess, after, bal) - before
	}
	return delta
}

func balanceDeltaForTransferTarget(s *State, sess, group, arriving int) float64 {
	delta := 0.0
	for _, bal := range s.Balances {
		if bal.Group != group || !bal.activeIn(sess) {
			continue
		}
		before := groupBalancePenalty(s, sess, group, bal)
		after := make([]int, 0, len(s.Schedule[sess][group])+1)
		after = append(after, s.Schedule[sess][group]...)
		after = append(after, arriving)
		delta += hypotheticalBalancePenalty(s, sess, after, bal) - before
	}
	return delta
}

func forbiddenPairTransferDelta(s *State, sess, p, toGroup int) float64 {
	delta := 0.0
	for _, fp := range s.ForbiddenPairs {
		if !fp.activeIn(sess) {
			continue
		}
		if fp.A != p && fp.B != p {
			continue
		}
		other := fp.A
		if other == p {
			other = fp.B
		}
		before := 0.0
		if s.Location[sess][p].Group == s.Location[sess][other].Group {
			before = fp.Weight
		}
		after := 0.0
		if toGroup == s.Location[sess][other].Group {
			after = fp.Weight
		}
		delta += after - before
	}
	return delta
}

func shouldPairTransferDelta(s *State, sess, p, toGroup int) float64 {
	delta := 0.0
	for _, sp := range s.ShouldPairs {
		if !sp.activeIn(sess) {
			continue
		}
		if sp.A != p && sp.B != p {
			continue
		}
		other := sp.A
		if other == p {
			other = sp.B
		}
		before := 0.0
		if s.Location[sess][p].Group != s.Location[sess][other].Group {
			before = sp.Weight
		}
		after := 0.0
		if toGroup != s.Location[sess][other].Group {
			after = sp.Weight
		}
		delta += after - before
	}
	return delta
}

func pairMeetingTransferDelta(s *State, sess, p, toGroup int) float64 {
	delta := 0.0
	for _, pm := range s.PairMeetings {
		if !pm.Sessions[sess] {
			continue
		}
		if pm.A != p && pm.B != p {
			continue
		}
		other := pm.A
		if other == p {
			other = pm.B
		}
		wasTogether := s.Location[sess][p].Group == s.Location[sess][other].Group
		nowTogether := toGroup == s.Location[sess][other].Group
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

// ApplyTransfer mutates state to reflect m. Caller must have seen a finite
// TransferDelta first.
func ApplyTransfer(s *State, m TransferMove) {
	sess := m.Session
	p := m.Person
	delta := TransferDelta(s, m)

	fromMembers := s.Schedule[sess][m.FromGroup]
	toMembers := s.Schedule[sess][m.ToGroup]

	for _, mem := range fromMembers {
		if mem == p || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, p, mem, -1)
	}

	loc := s.Location[sess][p]
	last := len(fromMembers) - 1
	fromMembers[loc.Position] = fromMembers[last]
	s.Location[sess][fromMembers[loc.Position]] = location{Group: m.FromGroup, Position: loc.Position}
	s.Schedule[sess][m.FromGroup] = fromMembers[:last]

	newPos := len(toMembers)
	s.Schedule[sess][m.ToGroup] = append(toMembers, p)
	s.Location[sess][p] = location{Group: m.ToGroup, Position: newPos}

	for _, mem := range s.Schedule[sess][m.ToGroup] {
		if mem == p || !s.Participation[sess][mem] {
			continue
		}
		updateContactCounters(s, p, mem, +1)
	}

	recomputeForbiddenShouldImmovableCounts(s)
	s.recalcPairMeetings()
	s.AttributeBalancePenalty = s.recalcAttributeBalance()

	s.TotalCost += delta

	checkInvariants(s, map[string]interface{}{
		"move": "transfer", "session": sess, "person": p,
		"from_group": m.FromGroup, "to_group": m.ToGroup,
	})
}
