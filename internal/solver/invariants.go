package solver

import "fmt"

// checkInvariants re-derives per-session group membership from the
// schedule and reports any disagreement with the location index, any
// person assigned to more than one group in a session, or any group over
// its capacity. It is the post-move invariant check spec.md §7 calls for
// and is a no-op unless DebugValidateInvariants is set, since it walks
// the whole schedule on every call.
func checkInvariants(s *State, context map[string]interface{}) {
	if !s.DebugValidateInvariants {
		return
	}
	for sess := 0; sess < s.NumSessions; sess++ {
		seen := make(map[int]bool, s.NumPeople)
		for g := 0; g < s.NumGroups; g++ {
			members := s.Schedule[sess][g]
			if len(members) > s.GroupCap[g] {
				s.warnInvariant(context, fmt.Sprintf(
					"session %d group %d over capacity: %d members > cap %d",
					sess, g, len(members), s.GroupCap[g]))
			}
			for pos, p := range members {
				if seen[p] {
					s.warnInvariant(context, fmt.Sprintf(
						"session %d: person %d assigned to more than one group",
						sess, p))
					continue
				}
				seen[p] = true
				loc := s.Location[sess][p]
				if loc.Group != g || loc.Position != pos {
					s.warnInvariant(context, fmt.Sprintf(
						"session %d: person %d location index {group %d pos %d} disagrees with schedule slot {group %d pos %d}",
						sess, p, loc.Group, loc.Position, g, pos))
				}
			}
		}
	}
}

func (s *State) warnInvariant(context map[string]interface{}, message string) {
	s.Logger.Warn(WarnInvariantViolation(message, context, s.DebugDumpInvariantContext))
}
