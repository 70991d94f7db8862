// Package solver implements the group-assignment optimization core: an
// integer-indexed schedule, delta-scoring for swap/transfer/clique-swap
// moves, the constraint preprocessor, and the simulated-annealing driver.
package solver

import (
	"github.com/hashicorp/go-hclog"

	"groupmixer/internal/api"
)

const immovableWeight = 1000.0

// clique is a canonicalized must-stay-together group: sorted member
// indices plus the set of sessions it is active in. A nil ActiveSessions
// means "active in every session" (the wildcard spec.md §4.1 step 5 and
// §9 calls out).
type clique struct {
	Members        []int
	ActiveSessions map[int]bool // nil == all sessions
}

func (c *clique) activeIn(session int) bool {
	if c.ActiveSessions == nil {
		return true
	}
	return c.ActiveSessions[session]
}

// weightedPair is a forbidden or should-together pair constraint after
// expansion (spec.md §4.1 steps 6-7).
type weightedPair struct {
	A, B           int
	Weight         float64
	ActiveSessions map[int]bool // nil == all sessions
}

func (p *weightedPair) activeIn(session int) bool {
	if p.ActiveSessions == nil {
		return true
	}
	return p.ActiveSessions[session]
}

// pairMeeting is one PairMeetingCount constraint after expansion.
type pairMeeting struct {
	A, B            int
	Sessions        map[int]bool // never nil after preprocessing; always explicit
	TargetMeetings  int
	Mode            api.PairMeetingMode
	PenaltyWeight   float64
	CurrentMeetings int
}

// attributeBalance is one AttributeBalanceParams constraint, resolved to
// an integer group index and attribute-value indices.
type attributeBalance struct {
	Group         int
	AttributeKey  string
	DesiredValues map[int]int // value index -> desired count
	PenaltyWeight float64
	Mode          api.AttributeBalanceMode
	Sessions      map[int]bool // nil == all sessions
}

func (b *attributeBalance) activeIn(session int) bool {
	if b.Sessions == nil {
		return true
	}
	return b.Sessions[session]
}

// location is where a person sits in a given session.
type location struct {
	Group    int
	Position int
}

// State is the single owning record for everything the solver mutates or
// reads during a run: schedule, derived indices, counters, and the
// immutable preprocessed constraint tables. Spec.md §9 calls for exactly
// this shape — one plain-field record passed by reference into move
// functions — to avoid a graph of cross-references between scoring and
// mutation code.
type State struct {
	Logger hclog.Logger

	// --- fixed universes, built once ---
	NumPeople   int
	NumGroups   int
	NumSessions int

	PersonID []string // index -> id
	PersonOf map[string]int
	GroupID  []string // index -> id
	GroupOf  map[string]int
	GroupCap []int // index -> capacity

	// Participation[session][person] == true if person takes part in session.
	Participation [][]bool

	// AttrIndex maps each attribute key to its observed value strings'
	// indices; only the index matters for balance scoring.
	AttrIndex map[string]map[string]int // key -> value -> index
	// PersonAttr[person][key] = value index; the key is absent if unset.
	PersonAttr []map[string]int

	// --- preprocessed, immutable constraint tables ---
	Cliques        []*clique
	CliqueOfPerson [][]int // [session][person] -> clique index, or -1

	ForbiddenPairs []*weightedPair
	ShouldPairs    []*weightedPair
	PairMeetings   []*pairMeeting
	Balances       []*attributeBalance

	// Immovable[session][person] -> required group, or -1 if unpinned.
	Immovable [][]int

	AllowedSessions map[int]bool // nil == every session eligible

	WContacts   float64
	WRepetition float64
	BaselineScore float64

	// --- mutable state ---
	Schedule [][][]int // [session][group] -> ordered person indices
	Location [][]location // [session][person] -> slot

	Contact [][]int // symmetric; diagonal unused

	UniqueContacts    int
	RepetitionPenalty int

	AttributeBalancePenalty float64

	ForbiddenViolations int
	ShouldViolations    int
	CliqueViolations    int
	ImmovableViolations int

	TotalCost float64

	// DebugValidateInvariants and DebugDumpInvariantContext mirror
	// api.LoggingOptions; the driver copies them in before Run starts
	// (spec.md §7). checkInvariants is a no-op unless the first is set.
	DebugValidateInvariants   bool
	DebugDumpInvariantContext bool
}

// NewState allocates a State with every fixed-size table sized, but no
// schedule or scoring populated yet; Preprocess fills the constraint
// tables and BuildInitialSchedule + Recalculate populate the rest.
func NewState(numPeople, numGroups, numSessions int, logger hclog.Logger) *State {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	s := &State{
		Logger:      logger,
		NumPeople:   numPeople,
		NumGroups:   numGroups,
		NumSessions: numSessions,
		PersonOf:    make(map[string]int, numPeople),
		GroupOf:     make(map[string]int, numGroups),
		GroupCap:    make([]int, numGroups),
		PersonID:    make([]string, numPeople),
		GroupID:     make([]string, numGroups),
		AttrIndex:   make(map[string]map[string]int),
		PersonAttr:  make([]map[string]int, numPeople),
	}

	s.Participation = make([][]bool, numSessions)
	s.CliqueOfPerson = make([][]int, numSessions)
	s.Immovable = make([][]int, numSessions)
	s.Schedule = make([][][]int, numSessions)
	s.Location = make([][]location, numSessions)
	for sess := 0; sess < numSessions; sess++ {
		s.Participation[sess] = make([]bool, numPeople)
		s.CliqueOfPerson[sess] = make([]int, numPeople)
		s.Immovable[sess] = make([]int, numPeople)
		for p := 0; p < numPeople; p++ {
			s.CliqueOfPerson[sess][p] = -1
			s.Immovable[sess][p] = -1
		}
		s.Schedule[sess] = make([][]int, numGroups)
		s.Location[sess] = make([]location, numPeople)
	}

	s.Contact = make([][]int, numPeople)
	for i := range s.Contact {
		s.Contact[i] = make([]int, numPeople)
	}

	return s
}

// Snapshot deep-copies the mutable portion of the state (schedule,
// location index, contact matrix, counters) — what the driver holds as
// its best-seen record (spec.md §5 "resource ownership").
func (s *State) Snapshot() *snapshot {
	sched := make([][][]int, s.NumSessions)
	loc := make([][]location, s.NumSessions)
	for sess := 0; sess < s.NumSessions; sess++ {
		sched[sess] = make([][]int, s.NumGroups)
		for g := 0; g < s.NumGroups; g++ {
			sched[sess][g] = append([]int(nil), s.Schedule[sess][g]...)
		}
		loc[sess] = append([]location(nil), s.Location[sess]...)
	}
	contact := make([][]int, s.NumPeople)
	for i := range contact {
		contact[i] = append([]int(nil), s.Contact[i]...)
	}
	return &snapshot{
		schedule:                sched,
		location:                loc,
		contact:                 contact,
		uniqueContacts:          s.UniqueContacts,
		repetitionPenalty:       s.RepetitionPenalty,
		attributeBalancePenalty: s.AttributeBalancePenalty,
		forbiddenViolations:     s.ForbiddenViolations,
		shouldViolations:        s.ShouldViolations,
		cliqueViolations:        s.CliqueViolations,
		immovableViolations:     s.ImmovableViolations,
		pairMeetingCounts:       pairMeetingCounts(s.PairMeetings),
		totalCost:               s.TotalCost,
		weightedConstraintPenalty: s.WeightedConstraintPenalty(),
	}
}

// Restore replaces the mutable state with a previously taken snapshot.
func (s *State) Restore(snap *snapshot) {
	s.Schedule = snap.schedule
	s.Location = snap.location
	s.Contact = snap.contact
	s.UniqueContacts = snap.uniqueContacts
	s.RepetitionPenalty = snap.repetitionPenalty
	s.AttributeBalancePenalty = snap.attributeBalancePenalty
	s.ForbiddenViolations = snap.forbiddenViolations
	s.ShouldViolations = snap.shouldViolations
	s.CliqueViolations = snap.cliqueViolations
	s.ImmovableViolations = snap.immovableViolations
	for i, pm := range s.PairMeetings {
		pm.CurrentMeetings = snap.pairMeetingCounts[i]
	}
	s.TotalCost = snap.totalCost
}

type snapshot struct {
	schedule                [][][]int
	location                [][]location
	contact                 [][]int
	uniqueContacts          int
	repetitionPenalty       int
	attributeBalancePenalty float64
	forbiddenViolations     int
	shouldViolations        int
	cliqueViolations        int
	immovableViolations     int
	pairMeetingCounts       []int
	totalCost               float64
	weightedConstraintPenalty float64
}

func pairMeetingCounts(pms []*pairMeeting) []int {
	out := make([]int, len(pms))
	for i, pm := range pms {
		out[i] = pm.CurrentMeetings
	}
	return out
}

// WeightedConstraintPenalty sums the weighted penalty contributions
// forbidden pairs, should-together pairs, immovable placements, and
// pair-meeting-count constraints (spec.md §4.3 "total cost" formula).
func (s *State) WeightedConstraintPenalty() float64 {
	return s.weightedForbidden() + s.weightedShould() + float64(s.ImmovableViolations)*immovableWeight + s.weightedPairMeetings()
}

func (s *State) weightedForbidden() float64 {
	sum := 0.0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, p := range s.ForbiddenPairs {
			if !p.activeIn(sess) {
				continue
			}
			if !s.Participation[sess][p.A] || !s.Participation[sess][p.B] {
				continue
			}
			if s.Location[sess][p.A].Group == s.Location[sess][p.B].Group {
				sum += p.Weight
			}
		}
	}
	return sum
}

func (s *State) weightedShould() float64 {
	sum := 0.0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, p := range s.ShouldPairs {
			if !p.activeIn(sess) {
				continue
			}
			if !s.Participation[sess][p.A] || !s.Participation[sess][p.B] {
				continue
			}
			if s.Location[sess][p.A].Group != s.Location[sess][p.B].Group {
				sum += p.Weight
			}
		}
	}
	return sum
}

func (s *State) weightedPairMeetings() float64 {
	sum := 0.0
	for _, pm := range s.PairMeetings {
		sum += pairMeetingPenalty(pm)
	}
	return sum
}

func pairMeetingPenalty(pm *pairMeeting) float64 {
	switch pm.Mode {
	case api.PairMeetingAtLeast:
		if missing := pm.TargetMeetings - pm.CurrentMeetings; missing > 0 {
			return float64(missing) * pm.PenaltyWeight
		}
		return 0
	case api.PairMeetingExact:
		diff := pm.CurrentMeetings - pm.TargetMeetings
		if diff < 0 {
			diff = -diff
		}
		return float64(diff) * pm.PenaltyWeight
	case api.PairMeetingAtMost:
		if over := pm.CurrentMeetings - pm.TargetMeetings; over > 0 {
			return float64(over) * pm.PenaltyWeight
		}
		return 0
	default:
		return 0
	}
}

// Recalculate performs a full from-scratch recomputation of every derived
// counter (spec.md §4.3). It is the only place contact/unique/repetition
// are derived other than the incremental updates in the move-application
// functions, and is used to heal floating-point drift at driver
// termination (spec.md §7).
func (s *State) Recalculate() {
	for i := range s.Contact {
		for j := range s.Contact[i] {
			s.Contact[i][j] = 0
		}
	}

	for sess := 0; sess < s.NumSessions; sess++ {
		for g := 0; g < s.NumGroups; g++ {
			members := s.Schedule[sess][g]
			for ai := 0; ai < len(members); ai++ {
				a := members[ai]
				if !s.Participation[sess][a] {
					continue
				}
				for bi := ai + 1; bi < len(members); bi++ {
					b := members[bi]
					if !s.Participation[sess][b] {
						continue
					}
					s.Contact[a][b]++
					s.Contact[b][a]++
				}
			}
		}
	}

	uniqueContacts := 0
	repetitionPenalty := 0
	for i := 0; i < s.NumPeople; i++ {
		for j := i + 1; j < s.NumPeople; j++ {
			c := s.Contact[i][j]
			if c > 0 {
				uniqueContacts++
			}
			if c > 1 {
				repetitionPenalty += (c - 1) * (c - 1)
			}
		}
	}
	s.UniqueContacts = uniqueContacts
	s.RepetitionPenalty = repetitionPenalty

	s.AttributeBalancePenalty = s.recalcAttributeBalance()
	s.ForbiddenViolations = s.recalcForbidden()
	s.ShouldViolations = s.recalcShould()
	s.CliqueViolations = s.recalcClique()
	s.ImmovableViolations = s.recalcImmovable()
	s.recalcPairMeetings()

	s.TotalCost = s.WRepetition*float64(s.RepetitionPenalty) +
		s.AttributeBalancePenalty +
		s.WeightedConstraintPenalty() -
		s.WContacts*float64(s.UniqueContacts) +
		s.BaselineScore
}

func (s *State) recalcAttributeBalance() float64 {
	sum := 0.0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, b := range s.Balances {
			if !b.activeIn(sess) {
				continue
			}
			sum += groupBalancePenalty(s, sess, b.Group, b)
		}
	}
	return sum
}

// groupBalancePenalty computes one constraint's penalty against one
// session's group membership, by actual counting (spec.md §4.3).
func groupBalancePenalty(s *State, session, group int, b *attributeBalance) float64 {
	actual := make(map[int]int)
	for _, p := range s.Schedule[session][group] {
		if !s.Participation[session][p] {
			continue
		}
		vi, ok := s.PersonAttr[p][b.AttributeKey]
		if !ok || vi < 0 {
			continue
		}
		actual[vi]++
	}
	penalty := 0.0
	for vi, desired := range b.DesiredValues {
		a := actual[vi]
		var dev int
		switch b.Mode {
		case api.AttributeBalanceAtLeast:
			if desired > a {
				dev = desired - a
			}
		default: // Exact
			dev = desired - a
			if dev < 0 {
				dev = -dev
			}
		}
		penalty += float64(dev*dev) * b.PenaltyWeight
	}
	return penalty
}

func (s *State) recalcForbidden() int {
	count := 0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, p := range s.ForbiddenPairs {
			if !p.activeIn(sess) {
				continue
			}
			if !s.Participation[sess][p.A] || !s.Participation[sess][p.B] {
				continue
			}
			if s.Location[sess][p.A].Group == s.Location[sess][p.B].Group {
				count++
			}
		}
	}
	return count
}

func (s *State) recalcShould() int {
	count := 0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, p := range s.ShouldPairs {
			if !p.activeIn(sess) {
				continue
			}
			if !s.Participation[sess][p.A] || !s.Participation[sess][p.B] {
				continue
			}
			if s.Location[sess][p.A].Group != s.Location[sess][p.B].Group {
				count++
			}
		}
	}
	return count
}

// recalcClique counts, per session and active clique, how many
// participating members sit outside the clique's majority group — an
// unweighted, informational-only tally (spec.md §4.3).
func (s *State) recalcClique() int {
	count := 0
	for sess := 0; sess < s.NumSessions; sess++ {
		for _, c := range s.Cliques {
			if !c.activeIn(sess) {
				continue
			}
			groupCounts := make(map[int]int)
			participating := 0
			for _, p := range c.Members {
				if !s.Participation[sess][p] {
					continue
				}
				participating++
				groupCounts[s.Location[sess][p].Group]++
			}
			if participating == 0 {
				continue
			}
			best := 0
			for _, n := range groupCounts {
				if n > best {
					best = n
				}
			}
			count += participating - best
		}
	}
	return count
}

func (s *State) recalcImmovable() int {
	count := 0
	for sess := 0; sess < s.NumSessions; sess++ {
		for p := 0; p < s.NumPeople; p++ {
			req := s.Immovable[sess][p]
			if req < 0 || !s.Participation[sess][p] {
				continue
			}
			if s.Location[sess][p].Group != req {
				count++
			}
		}
	}
	return count
}

func (s *State) recalcPairMeetings() {
	for _, pm := range s.PairMeetings {
		count := 0
		for sess := range pm.Sessions {
			if !s.Participation[sess][pm.A] || !s.Participation[sess][pm.B] {
				continue
			}
			if s.Location[sess][pm.A].Group == s.Location[sess][pm.B].Group {
				count++
			}
		}
		pm.CurrentMeetings = count
	}
}
