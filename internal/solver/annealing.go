package solver

import (
	"math"
	"math/rand"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"

	"groupmixer/internal/api"
)

const (
	maxTransferProbability   = 0.30
	maxCliqueSwapProbability = 0.10
	recentWindow             = 200
)

// Options bundles everything a Run needs beyond the preprocessed State:
// the algorithm parameters, stop conditions, the caller's progress
// callback, and the logger every component shares (spec.md §4.6/§4.7).
type Options struct {
	Params          api.SimulatedAnnealingParams
	Stop            api.StopConditions
	Logging         api.LoggingOptions
	ProgressCallback api.ProgressCallback
	Logger          hclog.Logger
}

// Driver owns the single PRNG and telemetry counters for one run
// (spec.md §5: "the random source is a single PRNG owned by the
// driver").
type Driver struct {
	state   *State
	opts    Options
	rng     *rand.Rand
	logger  hclog.Logger

	best        *snapshot
	bestCost    float64
	noImprove   uint64
	cycleBase   uint64
	reheats     uint64
	localEscapes uint64

	swapsTried, swapsAccepted         uint64
	transfersTried, transfersAccepted uint64
	cliqueTried, cliqueAccepted       uint64

	recentAccepted int
	recentTotal    int

	sumAttemptedDelta float64
	countAttempted    uint64
	sumAcceptedDelta  float64
	countAccepted     uint64

	biggestAttemptedIncrease float64
	biggestAcceptedIncrease  float64

	startTime time.Time
}

// Run executes the simulated-annealing driver to completion (spec.md
// §4.6/§4.7) and returns the result built from the best-seen schedule.
func Run(state *State, opts Options) (*api.SolverResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	seed := opts.Params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		logger.Info("no seed supplied, derived one from current time", "seed", seed)
	}

	d := &Driver{
		state:     state,
		opts:      opts,
		rng:       rand.New(rand.NewSource(seed)),
		logger:    logger,
		startTime: time.Now(),
	}

	state.DebugValidateInvariants = opts.Logging.DebugValidateInvariants
	state.DebugDumpInvariantContext = opts.Logging.DebugDumpInvariantContext

	if opts.Logging.LogInitialState {
		logger.Info("initial state", "total_cost", state.TotalCost, "unique_contacts", state.UniqueContacts)
	}
	if opts.Logging.LogInitialScoreBreakdown {
		logger.Info("initial score breakdown", breakdownFields(state)...)
	}

	d.best = state.Snapshot()
	d.bestCost = state.TotalCost

	maxIterations := uint64(0)
	if opts.Stop.MaxIterations != nil {
		maxIterations = *opts.Stop.MaxIterations
	}

	reheatThreshold := resolveReheatThreshold(opts)

	var i uint64
	for i = 0; maxIterations == 0 || i < maxIterations; i++ {
		if opts.Stop.TimeLimitSeconds != nil {
			if time.Since(d.startTime).Seconds() >= float64(*opts.Stop.TimeLimitSeconds) {
				d.logStop("time_limit_seconds")
				break
			}
		}
		if opts.Stop.NoImprovementIterations != nil && d.noImprove >= *opts.Stop.NoImprovementIterations {
			d.logStop("no_improvement_iterations")
			break
		}

		temperature := d.temperatureAt(i, maxIterations, reheatThreshold)

		d.runIteration(i, temperature)
		d.afterIteration()

		if opts.Logging.LogFrequency != nil && *opts.Logging.LogFrequency > 0 && i%(*opts.Logging.LogFrequency) == 0 {
			if opts.ProgressCallback != nil {
				update := d.progressUpdate(i, maxIterations, temperature)
				if !opts.ProgressCallback(update) {
					d.logStop("progress callback requested cancellation")
					i++
					break
				}
			}
		}
	}

	state.Restore(d.best)
	state.Recalculate()

	if opts.Logging.LogFinalScoreBreakdown {
		logger.Info("final score breakdown", breakdownFields(state)...)
	}
	if opts.Logging.LogDurationAndScore {
		logger.Info("run complete", "elapsed_seconds", time.Since(d.startTime).Seconds(), "final_score", state.TotalCost)
	}
	if opts.ProgressCallback != nil {
		final := d.progressUpdate(i, maxIterations, opts.Params.FinalTemperature)
		opts.ProgressCallback(final)
	}

	return toSolverResult(state, d.noImprove)
}

func (d *Driver) logStop(reason string) {
	if d.opts.Logging.LogStopCondition {
		d.logger.Info("stop condition reached", "reason", reason)
	}
}

// resolveReheatThreshold implements the Open Question decision recorded
// in DESIGN.md: when ReheatAfterNoImprovement is unset, derive one from
// whatever stop conditions are available.
func resolveReheatThreshold(opts Options) uint64 {
	if opts.Params.ReheatAfterNoImprovement != nil {
		return *opts.Params.ReheatAfterNoImprovement
	}
	if opts.Stop.NoImprovementIterations != nil {
		v := *opts.Stop.NoImprovementIterations / 4
		if v == 0 {
			v = 1
		}
		return v
	}
	if opts.Stop.MaxIterations != nil {
		v := *opts.Stop.MaxIterations / 10
		if v == 0 {
			v = 1
		}
		return v
	}
	return 1000
}

// temperatureAt implements spec.md §4.6's temperature schedule: fixed
// cycles when ReheatCycles > 0, otherwise no-improvement-triggered
// reheat.
func (d *Driver) temperatureAt(i, maxIterations, reheatThreshold uint64) float64 {
	p := d.opts.Params
	if p.ReheatCycles != nil && *p.ReheatCycles > 0 && maxIterations > 0 {
		k := *p.ReheatCycles
		cycleLen := (maxIterations + k - 1) / k
		if cycleLen == 0 {
			cycleLen = 1
		}
		j := i % cycleLen
		return coolingValue(p, j, cycleLen)
	}

	if d.noImprove >= reheatThreshold {
		d.cycleBase = i
		d.noImprove = 0
		d.reheats++
	}
	span := maxIterations
	if span > d.cycleBase {
		span -= d.cycleBase
	} else {
		span = 1
	}
	return coolingValue(p, i-d.cycleBase, span)
}

func coolingValue(p api.SimulatedAnnealingParams, j, span uint64) float64 {
	if span <= 1 {
		return p.InitialTemperature
	}
	frac := float64(j) / float64(span-1)
	if frac > 1 {
		frac = 1
	}
	if p.CoolingSchedule == "linear" {
		return p.InitialTemperature - frac*(p.InitialTemperature-p.FinalTemperature)
	}
	// geometric: T0 * (Tf/T0)^frac
	ratio := p.FinalTemperature / p.InitialTemperature
	return p.InitialTemperature * math.Pow(ratio, frac)
}

// runIteration implements one pass of spec.md §4.6's per-iteration steps
// 2-6 (step 1's cancellation check, step 7's best-seen tracking via
// afterIteration, and step 8's progress reporting live in Run).
func (d *Driver) runIteration(iteration uint64, temperature float64) {
	sess := d.pickSession()
	if sess < 0 {
		return
	}

	kind := d.pickMoveFamily(sess)

	switch kind {
	case moveTransfer:
		if d.tryTransfer(sess, temperature) {
			return
		}
		fallthrough
	case moveCliqueSwap:
		if kind == moveCliqueSwap && d.tryCliqueSwap(sess, temperature) {
			return
		}
		d.trySwap(sess, temperature)
	default:
		d.trySwap(sess, temperature)
	}
}

type moveKind int

const (
	moveSwap moveKind = iota
	moveTransfer
	moveCliqueSwap
)

func (d *Driver) pickSession() int {
	if d.state.AllowedSessions != nil {
		var allowed []int
		for s := range d.state.AllowedSessions {
			allowed = append(allowed, s)
		}
		if len(allowed) == 0 {
			return -1
		}
		return allowed[d.rng.Intn(len(allowed))]
	}
	if d.state.NumSessions == 0 {
		return -1
	}
	return d.rng.Intn(d.state.NumSessions)
}

// pickMoveFamily implements spec.md §4.6 step 3: a weighted coin over
// (transfer, clique-swap, swap=remainder), each probability derived from
// session occupancy.
func (d *Driver) pickMoveFamily(sess int) moveKind {
	transferP := spareCapacityFraction(d.state, sess)
	if transferP > maxTransferProbability {
		transferP = maxTransferProbability
	}
	cliqueP := cliqueLockedFraction(d.state, sess)
	if cliqueP > maxCliqueSwapProbability {
		cliqueP = maxCliqueSwapProbability
	}

	r := d.rng.Float64()
	switch {
	case r < transferP:
		return moveTransfer
	case r < transferP+cliqueP:
		return moveCliqueSwap
	default:
		return moveSwap
	}
}

func spareCapacityFraction(s *State, sess int) float64 {
	total, spare := 0, 0
	for g := 0; g < s.NumGroups; g++ {
		total += s.GroupCap[g]
		spare += s.GroupCap[g] - len(s.Schedule[sess][g])
	}
	if total == 0 {
		return 0
	}
	return float64(spare) / float64(total)
}

func cliqueLockedFraction(s *State, sess int) float64 {
	if s.NumPeople == 0 {
		return 0
	}
	locked := 0
	for p := 0; p < s.NumPeople; p++ {
		if s.CliqueOfPerson[sess][p] >= 0 {
			locked++
		}
	}
	return float64(locked) / float64(s.NumPeople)
}

func (d *Driver) trySwap(sess int, temperature float64) bool {
	a, b, ok := d.sampleSwapCandidate(sess)
	if !ok {
		return false
	}
	move := SwapMove{Session: sess, A: a, B: b}
	delta := SwapDelta(d.state, move)
	d.swapsTried++
	accepted := d.accept(delta, temperature)
	if accepted {
		ApplySwap(d.state, move)
		d.swapsAccepted++
		d.afterAccept(delta)
	}
	d.afterAttempt(delta)
	return true
}

func (d *Driver) sampleSwapCandidate(sess int) (int, int, bool) {
	var eligible []int
	for p := 0; p < d.state.NumPeople; p++ {
		if d.state.Participation[sess][p] && d.state.CliqueOfPerson[sess][p] < 0 {
			eligible = append(eligible, p)
		}
	}
	if len(eligible) < 2 {
		return 0, 0, false
	}
	a := eligible[d.rng.Intn(len(eligible))]
	b := a
	for tries := 0; tries < 10 && b == a; tries++ {
		b = eligible[d.rng.Intn(len(eligible))]
	}
	if b == a {
		return 0, 0, false
	}
	return a, b, true
}

func (d *Driver) tryTransfer(sess int, temperature float64) bool {
	move, ok := d.sampleTransferCandidate(sess)
	if !ok {
		return false
	}
	delta := TransferDelta(d.state, move)
	d.transfersTried++
	accepted := d.accept(delta, temperature)
	if accepted {
		ApplyTransfer(d.state, move)
		d.transfersAccepted++
		d.afterAccept(delta)
	}
	d.afterAttempt(delta)
	return true
}

func (d *Driver) sampleTransferCandidate(sess int) (TransferMove, bool) {
	var eligiblePeople []int
	for p := 0; p < d.state.NumPeople; p++ {
		if d.state.Participation[sess][p] && d.state.Immovable[sess][p] < 0 && d.state.CliqueOfPerson[sess][p] < 0 {
			eligiblePeople = append(eligiblePeople, p)
		}
	}
	var spareGroups []int
	for g := 0; g < d.state.NumGroups; g++ {
		if len(d.state.Schedule[sess][g]) < d.state.GroupCap[g] {
			spareGroups = append(spareGroups, g)
		}
	}
	if len(eligiblePeople) == 0 || len(spareGroups) == 0 {
		return TransferMove{}, false
	}
	for tries := 0; tries < 10; tries++ {
		p := eligiblePeople[d.rng.Intn(len(eligiblePeople))]
		from := d.state.Location[sess][p].Group
		if len(d.state.Schedule[sess][from]) <= 1 {
			continue
		}
		to := spareGroups[d.rng.Intn(len(spareGroups))]
		if to == from {
			continue
		}
		return TransferMove{Session: sess, Person: p, FromGroup: from, ToGroup: to}, true
	}
	return TransferMove{}, false
}

func (d *Driver) tryCliqueSwap(sess int, temperature float64) bool {
	move, ok := d.sampleCliqueSwapCandidate(sess)
	if !ok {
		return false
	}
	delta := CliqueSwapDelta(d.state, move)
	d.cliqueTried++
	accepted := d.accept(delta, temperature)
	if accepted {
		ApplyCliqueSwap(d.state, move)
		d.cliqueAccepted++
		d.afterAccept(delta)
	}
	d.afterAttempt(delta)
	return true
}

func (d *Driver) sampleCliqueSwapCandidate(sess int) (CliqueSwapMove, bool) {
	var candidates []int
	for ci, c := range d.state.Cliques {
		if c.activeIn(sess) {
			candidates = append(candidates, ci)
		}
	}
	if len(candidates) == 0 {
		return CliqueSwapMove{}, false
	}
	ci := candidates[d.rng.Intn(len(candidates))]
	c := d.state.Cliques[ci]

	var active []int
	fromGroup := -1
	for _, p := range c.Members {
		if !d.state.Participation[sess][p] {
			continue
		}
		active = append(active, p)
		fromGroup = d.state.Location[sess][p].Group
	}
	if len(active) == 0 || fromGroup < 0 {
		return CliqueSwapMove{}, false
	}

	var toGroups []int
	for g := 0; g < d.state.NumGroups; g++ {
		if g != fromGroup {
			toGroups = append(toGroups, g)
		}
	}
	if len(toGroups) == 0 {
		return CliqueSwapMove{}, false
	}
	toGroup := toGroups[d.rng.Intn(len(toGroups))]

	members := d.state.Schedule[sess][toGroup]
	activeSet := make(map[int]bool, len(active))
	for _, p := range active {
		activeSet[p] = true
	}
	var pool []int
	for _, m := range members {
		if !activeSet[m] {
			pool = append(pool, m)
		}
	}
	if len(pool) < len(active) {
		return CliqueSwapMove{}, false
	}
	d.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	t := append([]int(nil), pool[:len(active)]...)

	return CliqueSwapMove{Session: sess, CliqueIndex: ci, FromGroup: fromGroup, ToGroup: toGroup, T: t}, true
}

// accept implements the Metropolis criterion (spec.md §4.6 step 5):
// accept if delta <= 0, or with probability exp(-delta/T) otherwise.
func (d *Driver) accept(delta, temperature float64) bool {
	if math.IsInf(delta, 1) {
		return false
	}
	if delta <= 0 {
		return true
	}
	if temperature <= 0 {
		return false
	}
	return d.rng.Float64() < math.Exp(-delta/temperature)
}

func (d *Driver) afterAttempt(delta float64) {
	if math.IsInf(delta, 1) {
		return
	}
	d.countAttempted++
	d.sumAttemptedDelta += delta
	if delta > d.biggestAttemptedIncrease {
		d.biggestAttemptedIncrease = delta
	}
	d.recentTotal++
	if d.recentTotal > recentWindow {
		d.recentTotal = recentWindow
	}
}

func (d *Driver) afterAccept(delta float64) {
	d.countAccepted++
	d.sumAcceptedDelta += delta
	if delta > d.biggestAcceptedIncrease {
		d.biggestAcceptedIncrease = delta
	}
	if delta > 0 {
		d.localEscapes++
	}
	d.recentAccepted++
	if d.recentAccepted > recentWindow {
		d.recentAccepted = recentWindow
	}
}

// afterIteration advances the no-improvement counter once per iteration,
// whether or not a move was attempted or accepted this round: it counts
// "iterations since the last improvement", not "rejections since the
// last acceptance". Resets on a new best so the no_improvement_iterations
// stop condition and the no-improvement reheat in temperatureAt actually
// fire once the search stalls in a local optimum.
func (d *Driver) afterIteration() {
	if d.state.TotalCost < d.bestCost {
		d.bestCost = d.state.TotalCost
		d.best = d.state.Snapshot()
		d.noImprove = 0
	} else {
		d.noImprove++
	}
}

func (d *Driver) progressUpdate(iteration, maxIterations uint64, temperature float64) *api.ProgressUpdate {
	overall := 0.0
	if d.countAttempted > 0 {
		overall = float64(d.countAccepted) / float64(d.countAttempted)
	}
	recent := 0.0
	if d.recentTotal > 0 {
		recent = float64(d.recentAccepted) / float64(d.recentTotal)
	}
	avgAttempted := 0.0
	if d.countAttempted > 0 {
		avgAttempted = d.sumAttemptedDelta / float64(d.countAttempted)
	}
	avgAccepted := 0.0
	if d.countAccepted > 0 {
		avgAccepted = d.sumAcceptedDelta / float64(d.countAccepted)
	}
	coolingProgress := 0.0
	if maxIterations > 0 {
		coolingProgress = float64(iteration) / float64(maxIterations)
	}

	return &api.ProgressUpdate{
		Iteration:     iteration,
		MaxIterations: maxIterations,
		Temperature:   temperature,
		CurrentScore:  d.state.TotalCost,
		BestScore:     d.bestCost,
		CurrentContacts: d.state.UniqueContacts,
		BestContacts:    d.best.uniqueContacts,

		CurrentRepetitionPenalty: float64(d.state.RepetitionPenalty),
		BestRepetitionPenalty:    float64(d.best.repetitionPenalty),
		CurrentBalancePenalty:    d.state.AttributeBalancePenalty,
		BestBalancePenalty:       d.best.attributeBalancePenalty,
		CurrentConstraintPenalty: d.state.WeightedConstraintPenalty(),
		BestConstraintPenalty:    d.best.weightedConstraintPenalty,

		SwapsTried: d.swapsTried, SwapsAccepted: d.swapsAccepted,
		TransfersTried: d.transfersTried, TransfersAccepted: d.transfersAccepted,
		CliqueSwapsTried: d.cliqueTried, CliqueSwapsAccepted: d.cliqueAccepted,

		OverallAcceptanceRate: overall,
		RecentAcceptanceRate:  recent,
		AvgAttemptedMoveDelta: avgAttempted,
		AvgAcceptedMoveDelta:  avgAccepted,
		BiggestAttemptedIncrease: d.biggestAttemptedIncrease,
		BiggestAcceptedIncrease:  d.biggestAcceptedIncrease,

		ReheatsPerformed:      d.reheats,
		IterationsSinceReheat: iteration - d.cycleBase,
		LocalOptimaEscapes:    d.localEscapes,
		NoImprovementCount:    d.noImprove,
		ElapsedSeconds:        time.Since(d.startTime).Seconds(),
		CoolingProgress:       coolingProgress,
	}
}

func breakdownFields(s *State) []interface{} {
	return []interface{}{
		"total_cost", s.TotalCost,
		"unique_contacts", s.UniqueContacts,
		"repetition_penalty", s.RepetitionPenalty,
		"attribute_balance_penalty", s.AttributeBalancePenalty,
		"forbidden_violations", s.ForbiddenViolations,
		"should_violations", s.ShouldViolations,
		"clique_violations", s.CliqueViolations,
		"immovable_violations", s.ImmovableViolations,
	}
}

func toSolverResult(s *State, noImprove uint64) (*api.SolverResult, error) {
	runID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	return &api.SolverResult{
		RunID:                     runID,
		FinalScore:                s.TotalCost,
		Schedule:                  scheduleToMap(s),
		UniqueContacts:            s.UniqueContacts,
		RepetitionPenalty:         s.RepetitionPenalty,
		AttributeBalancePenalty:   s.AttributeBalancePenalty,
		ConstraintPenalty:         s.ForbiddenViolations + s.ShouldViolations + s.ImmovableViolations,
		NoImprovementCount:        noImprove,
		WeightedRepetitionPenalty: s.WRepetition * float64(s.RepetitionPenalty),
		WeightedConstraintPenalty: s.WeightedConstraintPenalty(),
	}, nil
}
