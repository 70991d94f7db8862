package solver

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	hashset "github.com/hashicorp/go-set/v3"

	"groupmixer/internal/api"
	"groupmixer/internal/dsu"
)

// Preprocess validates the raw input and builds every immutable table on
// a freshly allocated State (spec.md §4.1, steps 1-10, in order).
func Preprocess(input *api.ApiInput, logger hclog.Logger) (*State, error) {
	problem := input.Problem

	// Step 1: capacity check.
	totalCapacity := 0
	for _, g := range problem.Groups {
		totalCapacity += g.Size
	}
	if totalCapacity < len(problem.People) {
		return nil, &api.ValidationError{Message: fmt.Sprintf(
			"total group capacity %d is less than the number of people %d", totalCapacity, len(problem.People))}
	}

	// Step 2: id <-> index maps; uniqueness enforced by map overwrite
	// detection.
	numPeople := len(problem.People)
	numGroups := len(problem.Groups)
	numSessions := problem.NumSessions

	st := NewState(numPeople, numGroups, numSessions, logger)

	var errs *multierror.Error

	for i, p := range problem.People {
		if _, dup := st.PersonOf[p.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate person id %q", p.ID))
			continue
		}
		st.PersonID[i] = p.ID
		st.PersonOf[p.ID] = i
	}
	for i, g := range problem.Groups {
		if _, dup := st.GroupOf[g.ID]; dup {
			errs = multierror.Append(errs, fmt.Errorf("duplicate group id %q", g.ID))
			continue
		}
		st.GroupID[i] = g.ID
		st.GroupOf[g.ID] = i
		st.GroupCap[i] = g.Size
	}
	if errs.ErrorOrNil() != nil {
		return nil, &api.ValidationError{Message: errs.Error()}
	}

	// Step 3: attribute dictionaries, from attribute-balance constraints only.
	for _, c := range input.Constraints {
		if ab, ok := c.(*api.AttributeBalanceParams); ok {
			if st.AttrIndex[ab.AttributeKey] == nil {
				st.AttrIndex[ab.AttributeKey] = make(map[string]int)
			}
		}
	}
	for key, dict := range st.AttrIndex {
		for pi, p := range problem.People {
			v, ok := p.Attributes[key]
			if !ok {
				continue
			}
			if _, seen := dict[v]; !seen {
				dict[v] = len(dict)
			}
			if st.PersonAttr[pi] == nil {
				st.PersonAttr[pi] = make(map[string]int)
			}
			st.PersonAttr[pi][key] = dict[v]
		}
	}
	for pi := range st.PersonAttr {
		if st.PersonAttr[pi] == nil {
			st.PersonAttr[pi] = make(map[string]int)
		}
	}

	// Step 4: participation matrix; reject out-of-range sessions.
	for pi, p := range problem.People {
		if p.Sessions == nil {
			for sess := 0; sess < numSessions; sess++ {
				st.Participation[sess][pi] = true
			}
			continue
		}
		for _, sess := range p.Sessions {
			if sess < 0 || sess >= numSessions {
				errs = multierror.Append(errs, fmt.Errorf("person %q references out-of-range session %d", p.ID, sess))
				continue
			}
			st.Participation[sess][pi] = true
		}
	}
	if err := validateSessionRefs(input.Constraints, numSessions); err != nil {
		errs = multierror.Append(errs, err)
	}
	if errs.ErrorOrNil() != nil {
		return nil, &api.ValidationError{Message: errs.Error()}
	}

	if err := resolveObjectivesAndWeights(st, input.Objectives, input.Constraints); err != nil {
		return nil, err
	}

	// Step 5: clique construction via per-session union-find.
	rawCliques, err := buildCliques(st, input.Constraints)
	if err != nil {
		return nil, err
	}
	st.Cliques = rawCliques
	for ci, c := range st.Cliques {
		for sess := 0; sess < numSessions; sess++ {
			if !c.activeIn(sess) {
				continue
			}
			for _, p := range c.Members {
				st.CliqueOfPerson[sess][p] = ci
			}
		}
	}

	// Step 6 & 7: forbidden and should-together pair expansion.
	forbidden, err := expandPairs(st, input.Constraints, "ShouldNotBeTogether")
	if err != nil {
		return nil, err
	}
	st.ForbiddenPairs = forbidden
	if err := rejectPairsInsideCliques(st, forbidden); err != nil {
		return nil, err
	}

	should, err := expandPairs(st, input.Constraints, "ShouldStayTogether")
	if err != nil {
		return nil, err
	}
	if err := rejectPairOverlap(forbidden, should); err != nil {
		return nil, err
	}
	st.ShouldPairs = should

	// Step 8: pair-meeting-count.
	pairMeetings, err := buildPairMeetings(st, input.Constraints)
	if err != nil {
		return nil, err
	}
	st.PairMeetings = pairMeetings

	// Step 9: immovable placements.
	if err := buildImmovables(st, input.Constraints); err != nil {
		return nil, err
	}

	// Step 10: immovability-through-cliques propagation.
	if err := propagateImmovability(st); err != nil {
		return nil, err
	}

	if err := buildBalances(st, input.Constraints); err != nil {
		return nil, err
	}

	st.BaselineScore = computeBaselineScore(st)

	if len(input.Solver.AllowedSessions) > 0 {
		st.AllowedSessions = make(map[int]bool, len(input.Solver.AllowedSessions))
		for _, s := range input.Solver.AllowedSessions {
			st.AllowedSessions[s] = true
		}
	}

	return st, nil
}

func validateSessionRefs(constraints []api.Constraint, numSessions int) error {
	check := func(sessions []int, label string) error {
		for _, s := range sessions {
			if s < 0 || s >= numSessions {
				return fmt.Errorf("%s references out-of-range session %d", label, s)
			}
		}
		return nil
	}
	for _, c := range constraints {
		var err error
		switch v := c.(type) {
		case *api.AttributeBalanceParams:
			err = check(v.Sessions, "AttributeBalance")
		case *api.MustStayTogetherParams:
			err = check(v.Sessions, "MustStayTogether")
		case *api.ShouldStayTogetherParams:
			err = check(v.Sessions, "ShouldStayTogether")
		case *api.ShouldNotBeTogetherParams:
			err = check(v.Sessions, "ShouldNotBeTogether")
		case *api.ImmovablePersonParams:
			err = check(v.Sessions, "ImmovablePerson")
		case *api.ImmovablePeopleParams:
			err = check(v.Sessions, "ImmovablePeople")
		case *api.PairMeetingCountParams:
			err = check(v.Sessions, "PairMeetingCount")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func resolveObjectivesAndWeights(st *State, objectives []api.Objective, constraints []api.Constraint) error {
	for _, o := range objectives {
		if o.Type == api.ObjectiveMaximizeUniqueContacts {
			st.WContacts = o.Weight
		}
	}
	for _, c := range constraints {
		if re, ok := c.(*api.RepeatEncounterParams); ok {
			st.WRepetition = re.PenaltyWeight
		}
	}
	return nil
}

// sessionSetOrNil turns an explicit []int into a map, or nil for "all
// sessions" (spec.md §4.1's wildcard collapse).
func sessionSetOrNil(sessions []int, numSessions int) map[int]bool {
	if len(sessions) == 0 {
		return nil
	}
	m := make(map[int]bool, len(sessions))
	for _, s := range sessions {
		m[s] = true
	}
	if len(m) == numSessions {
		return nil
	}
	return m
}

func personIndices(st *State, ids []string) ([]int, error) {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		idx, ok := st.PersonOf[id]
		if !ok {
			return nil, fmt.Errorf("unknown person id %q", id)
		}
		out = append(out, idx)
	}
	return out, nil
}

func buildCliques(st *State, constraints []api.Constraint) ([]*clique, error) {
	// dedupe[key] -> clique, where key is the sorted member list joined.
	type built struct {
		members []int
		active  map[int]bool // nil == all
	}
	dedupe := make(map[string]*built)

	for sess := 0; sess < st.NumSessions; sess++ {
		forest := dsu.New(st.NumPeople)
		touched := hashset.New[int](0)

		for _, c := range constraints {
			mst, ok := c.(*api.MustStayTogetherParams)
			if !ok {
				continue
			}
			sessions := sessionSetOrNil(mst.Sessions, st.NumSessions)
			if sessions != nil && !sessions[sess] {
				continue
			}
			people, err := personIndices(st, mst.People)
			if err != nil {
				return nil, &api.ValidationError{Message: err.Error()}
			}
			for _, p := range people {
				touched.Insert(p)
			}
			for i := 1; i < len(people); i++ {
				forest.Union(people[0], people[i])
			}
		}

		components := forest.Components()
		for root, members := range components {
			if len(members) < 2 || !touched.Contains(root) {
				continue
			}
			var actual []int
			for _, m := range members {
				if touched.Contains(m) {
					actual = append(actual, m)
				}
			}
			if len(actual) < 2 {
				continue
			}
			if len(actual) > maxGroupSize(st) {
				return nil, &api.ValidationError{Message: fmt.Sprintf(
					"must-stay-together group of %d people in session %d exceeds every group's capacity", len(actual), sess)}
			}
			sort.Ints(actual)
			key := fmt.Sprint(actual)
			b, ok := dedupe[key]
			if !ok {
				b = &built{members: actual, active: map[int]bool{}}
				dedupe[key] = b
			}
			b.active[sess] = true
		}
	}

	seen := make(map[int]bool)
	var cliques []*clique
	for _, b := range dedupe {
		for _, m := range b.members {
			if seen[m] {
				return nil, &api.ValidationError{Message: fmt.Sprintf(
					"person index %d belongs to more than one must-stay-together clique", m)}
			}
		}
		for _, m := range b.members {
			seen[m] = true
		}
		active := b.active
		if len(active) == st.NumSessions {
			active = nil
		}
		cliques = append(cliques, &clique{Members: b.members, ActiveSessions: active})
	}
	return cliques, nil
}

func maxGroupSize(st *State) int {
	max := 0
	for _, c := range st.GroupCap {
		if c > max {
			max = c
		}
	}
	return max
}

func expandPairs(st *State, constraints []api.Constraint, kind string) ([]*weightedPair, error) {
	var out []*weightedPair
	for _, c := range constraints {
		var people []string
		var weight float64
		var sessions []int
		switch kind {
		case "ShouldNotBeTogether":
			v, ok := c.(*api.ShouldNotBeTogetherParams)
			if !ok {
				continue
			}
			people, weight, sessions = v.People, v.PenaltyWeight, v.Sessions
		case "ShouldStayTogether":
			v, ok := c.(*api.ShouldStayTogetherParams)
			if !ok {
				continue
			}
			people, weight, sessions = v.People, v.PenaltyWeight, v.Sessions
		}
		idx, err := personIndices(st, people)
		if err != nil {
			return nil, &api.ValidationError{Message: err.Error()}
		}
		active := sessionSetOrNil(sessions, st.NumSessions)
		for i := 0; i < len(idx); i++ {
			for j := i + 1; j < len(idx); j++ {
				a, b := idx[i], idx[j]
				if a > b {
					a, b = b, a
				}
				out = append(out, &weightedPair{A: a, B: b, Weight: weight, ActiveSessions: active})
			}
		}
	}
	return out, nil
}

func rejectPairsInsideCliques(st *State, pairs []*weightedPair) error {
	for _, p := range pairs {
		for sess := 0; sess < st.NumSessions; sess++ {
			if !p.activeIn(sess) {
				continue
			}
			ca := st.CliqueOfPerson[sess][p.A]
			cb := st.CliqueOfPerson[sess][p.B]
			if ca >= 0 && ca == cb {
				return &api.ValidationError{Message: fmt.Sprintf(
					"should-not-be-together pair (%s, %s) conflicts with a must-stay-together clique in session %d",
					st.PersonID[p.A], st.PersonID[p.B], sess)}
			}
		}
	}
	return nil
}

func rejectPairOverlap(forbidden, should []*weightedPair) error {
	key := func(p *weightedPair) (int, int) { return p.A, p.B }
	forbiddenSet := make(map[[2]int][]*weightedPair)
	for _, p := range forbidden {
		a, b := key(p)
		forbiddenSet[[2]int{a, b}] = append(forbiddenSet[[2]int{a, b}], p)
	}
	for _, p := range should {
		a, b := key(p)
		for _, f := range forbiddenSet[[2]int{a, b}] {
			if sessionsOverlap(f.ActiveSessions, p.ActiveSessions) {
				return &api.ValidationError{Message: fmt.Sprintf(
					"pair (%d, %d) is both should-stay-together and should-not-be-together on an overlapping session", a, b)}
			}
		}
	}
	return nil
}

func sessionsOverlap(a, b map[int]bool) bool {
	if a == nil || b == nil {
		return true
	}
	for s := range a {
		if b[s] {
			return true
		}
	}
	return false
}

func buildPairMeetings(st *State, constraints []api.Constraint) ([]*pairMeeting, error) {
	var out []*pairMeeting
	for _, c := range constraints {
		v, ok := c.(*api.PairMeetingCountParams)
		if !ok {
			continue
		}
		idx, err := personIndices(st, v.People[:])
		if err != nil {
			return nil, &api.ValidationError{Message: err.Error()}
		}
		sessions := v.Sessions
		if len(sessions) == 0 {
			sessions = make([]int, st.NumSessions)
			for i := range sessions {
				sessions[i] = i
			}
		}
		sessSet := make(map[int]bool, len(sessions))
		for _, s := range sessions {
			sessSet[s] = true
		}
		if v.TargetMeetings > len(sessSet) {
			return nil, &api.ValidationError{Message: fmt.Sprintf(
				"pair-meeting-count target %d exceeds session subset size %d", v.TargetMeetings, len(sessSet))}
		}
		if v.Mode == api.PairMeetingAtLeast {
			coParticipation := 0
			for s := range sessSet {
				if st.Participation[s][idx[0]] && st.Participation[s][idx[1]] {
					coParticipation++
				}
			}
			if v.TargetMeetings > coParticipation {
				return nil, &api.ValidationError{Message: fmt.Sprintf(
					"pair-meeting-count AtLeast target %d exceeds co-participation count %d", v.TargetMeetings, coParticipation)}
			}
		}
		out = append(out, &pairMeeting{
			A: idx[0], B: idx[1],
			Sessions:       sessSet,
			TargetMeetings: v.TargetMeetings,
			Mode:           v.Mode,
			PenaltyWeight:  v.PenaltyWeight,
		})
	}
	return out, nil
}

func buildImmovables(st *State, constraints []api.Constraint) error {
	set := func(person, group int, sessions []int) error {
		apply := func(sess int) error {
			if st.Immovable[sess][person] >= 0 && st.Immovable[sess][person] != group {
				return fmt.Errorf("conflicting immovable placements for %s in session %d", st.PersonID[person], sess)
			}
			st.Immovable[sess][person] = group
			return nil
		}
		if len(sessions) == 0 {
			for s := 0; s < st.NumSessions; s++ {
				if err := apply(s); err != nil {
					return err
				}
			}
			return nil
		}
		for _, s := range sessions {
			if err := apply(s); err != nil {
				return err
			}
		}
		return nil
	}

	for _, c := range constraints {
		switch v := c.(type) {
		case *api.ImmovablePersonParams:
			p, ok := st.PersonOf[v.PersonID]
			if !ok {
				return &api.ValidationError{Message: fmt.Sprintf("unknown person id %q", v.PersonID)}
			}
			g, ok := st.GroupOf[v.GroupID]
			if !ok {
				return &api.ValidationError{Message: fmt.Sprintf("unknown group id %q", v.GroupID)}
			}
			if err := set(p, g, v.Sessions); err != nil {
				return &api.ValidationError{Message: err.Error()}
			}
		case *api.ImmovablePeopleParams:
			g, ok := st.GroupOf[v.GroupID]
			if !ok {
				return &api.ValidationError{Message: fmt.Sprintf("unknown group id %q", v.GroupID)}
			}
			for _, id := range v.People {
				p, ok := st.PersonOf[id]
				if !ok {
					return &api.ValidationError{Message: fmt.Sprintf("unknown person id %q", id)}
				}
				if err := set(p, g, v.Sessions); err != nil {
					return &api.ValidationError{Message: err.Error()}
				}
			}
		}
	}
	return nil
}

// propagateImmovability implements spec.md §4.1 step 10: pinning one
// clique member pins every member, and narrows the clique's active-session
// set to exclude the now individually-pinned session.
func propagateImmovability(st *State) error {
	for sess := 0; sess < st.NumSessions; sess++ {
		for p := 0; p < st.NumPeople; p++ {
			req := st.Immovable[sess][p]
			if req < 0 {
				continue
			}
			ci := st.CliqueOfPerson[sess][p]
			if ci < 0 {
				continue
			}
			c := st.Cliques[ci]
			for _, m := range c.Members {
				if m == p {
					continue
				}
				if existing := st.Immovable[sess][m]; existing >= 0 && existing != req {
					return &api.ValidationError{Message: fmt.Sprintf(
						"clique immovability conflict for %s in session %d", st.PersonID[m], sess)}
				}
				st.Immovable[sess][m] = req
			}
			if c.ActiveSessions == nil {
				c.ActiveSessions = make(map[int]bool, st.NumSessions)
				for s := 0; s < st.NumSessions; s++ {
					if s != sess {
						c.ActiveSessions[s] = true
					}
				}
			} else {
				delete(c.ActiveSessions, sess)
			}
			for _, m := range c.Members {
				st.CliqueOfPerson[sess][m] = -1
			}
		}
	}
	return nil
}

func buildBalances(st *State, constraints []api.Constraint) error {
	for _, c := range constraints {
		v, ok := c.(*api.AttributeBalanceParams)
		if !ok {
			continue
		}
		g, ok := st.GroupOf[v.GroupID]
		if !ok {
			return &api.ValidationError{Message: fmt.Sprintf("unknown group id %q", v.GroupID)}
		}
		dict := st.AttrIndex[v.AttributeKey]
		desired := make(map[int]int, len(v.DesiredValues))
		for value, count := range v.DesiredValues {
			vi, ok := dict[value]
			if !ok {
				continue // value never observed among people; desired count stays unused
			}
			desired[vi] = count
		}
		st.Balances = append(st.Balances, &attributeBalance{
			Group:         g,
			AttributeKey:  v.AttributeKey,
			DesiredValues: desired,
			PenaltyWeight: v.PenaltyWeight,
			Mode:          v.Mode,
			Sessions:      sessionSetOrNil(v.Sessions, st.NumSessions),
		})
	}
	return nil
}

// computeBaselineScore implements spec.md §4.1's "added to the cost so
// the reported total stays non-negative for monitoring" constant.
func computeBaselineScore(st *State) float64 {
	n := float64(st.NumPeople)
	maxPairs := n * (n - 1) / 2
	maxGroupCap := float64(maxGroupSize(st))
	sessionBound := n * float64(st.NumSessions) * (maxGroupCap - 1) / 2
	bound := maxPairs
	if sessionBound < bound {
		bound = sessionBound
	}
	return st.WContacts * bound
}
