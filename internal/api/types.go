// Package api defines the external input/output contract for the group
// assignment solver: the problem definition, objectives and constraints
// supplied by a caller, the solver configuration, and the result and
// progress records returned to it.
package api

// ApiInput is the complete, self-contained specification for one solver run.
type ApiInput struct {
	Problem    ProblemDefinition `json:"problem" mapstructure:"problem"`
	Objectives []Objective       `json:"objectives" mapstructure:"objectives"`
	// Constraints holds the decoded, typed constraint list. Callers going
	// through DecodeInput never populate this directly; it is filled in
	// from RawConstraints during decoding.
	Constraints []Constraint `json:"-" mapstructure:"-"`
	// RawConstraints carries the tagged-union JSON form on the wire; see
	// decode.go for how each element is dispatched by its "type" field.
	RawConstraints []map[string]any `json:"constraints" mapstructure:"constraints"`
	Solver         SolverConfiguration `json:"solver" mapstructure:"solver"`
	// InitialSchedule optionally warm-starts construction; see ScheduleMap.
	InitialSchedule ScheduleMap `json:"initial_schedule,omitempty" mapstructure:"-"`
}

// ProblemDefinition names the people, groups, and number of sessions.
type ProblemDefinition struct {
	People      []Person `json:"people" mapstructure:"people"`
	Groups      []Group  `json:"groups" mapstructure:"groups"`
	NumSessions int      `json:"num_sessions" mapstructure:"num_sessions"`
}

// Person is one member of the population to be scheduled.
type Person struct {
	ID         string            `json:"id" mapstructure:"id"`
	Attributes map[string]string `json:"attributes" mapstructure:"attributes"`
	// Sessions is nil when the person participates in every session.
	Sessions []int `json:"sessions,omitempty" mapstructure:"sessions"`
}

// Group is a destination with a fixed per-session capacity.
type Group struct {
	ID   string `json:"id" mapstructure:"id"`
	Size int    `json:"size" mapstructure:"size"`
}

// Objective weights a term of the optimization function.
//
// The only recognized Type today is "maximize_unique_contacts".
type Objective struct {
	Type   string  `json:"type" mapstructure:"type"`
	Weight float64 `json:"weight" mapstructure:"weight"`
}

const ObjectiveMaximizeUniqueContacts = "maximize_unique_contacts"

// ScheduleMap is the external, round-trippable representation of a schedule:
// "session_{i}" -> group id -> ordered person ids.
type ScheduleMap map[string]map[string][]string

// SolverConfiguration selects an algorithm and bounds its run.
type SolverConfiguration struct {
	SolverType      string          `json:"solver_type" mapstructure:"solver_type"`
	StopConditions  StopConditions  `json:"stop_conditions" mapstructure:"stop_conditions"`
	SolverParams    SolverParams    `json:"-" mapstructure:"-"`
	RawSolverParams map[string]any  `json:"solver_params" mapstructure:"solver_params"`
	Logging         LoggingOptions  `json:"logging" mapstructure:"logging"`
	// AllowedSessions restricts which sessions the driver may propose moves
	// for. Nil means every session is eligible.
	AllowedSessions []int `json:"allowed_sessions,omitempty" mapstructure:"allowed_sessions"`
}

const SolverTypeSimulatedAnnealing = "SimulatedAnnealing"

// StopConditions bounds a run; the driver halts on whichever fires first.
type StopConditions struct {
	MaxIterations           *uint64 `json:"max_iterations,omitempty" mapstructure:"max_iterations"`
	TimeLimitSeconds        *uint64 `json:"time_limit_seconds,omitempty" mapstructure:"time_limit_seconds"`
	NoImprovementIterations *uint64 `json:"no_improvement_iterations,omitempty" mapstructure:"no_improvement_iterations"`
}

// SolverParams is the algorithm-specific parameter union. Today only
// SimulatedAnnealingParams exists; the field is still typed as an interface
// so a future solver_type can slot in without reshaping SolverConfiguration.
type SolverParams interface {
	isSolverParams()
}

// SimulatedAnnealingParams configures temperature, cooling, and reheating.
type SimulatedAnnealingParams struct {
	InitialTemperature float64 `json:"initial_temperature" mapstructure:"initial_temperature"`
	FinalTemperature   float64 `json:"final_temperature" mapstructure:"final_temperature"`
	// CoolingSchedule is "geometric" or "linear".
	CoolingSchedule string `json:"cooling_schedule" mapstructure:"cooling_schedule"`
	// ReheatCycles, when > 0, splits the run into that many fixed cooling
	// cycles instead of reheating on a no-improvement threshold.
	ReheatCycles *uint64 `json:"reheat_cycles,omitempty" mapstructure:"reheat_cycles"`
	// ReheatAfterNoImprovement resets the temperature to InitialTemperature
	// once this many iterations pass without a new best. Nil picks a
	// default; see annealing.go.
	ReheatAfterNoImprovement *uint64 `json:"reheat_after_no_improvement,omitempty" mapstructure:"reheat_after_no_improvement"`
	// Seed makes the run reproducible. Zero means "derive one from the
	// current time", matching the ambient-PRNG behavior the spec warns
	// against defaulting to silently.
	Seed int64 `json:"seed,omitempty" mapstructure:"seed"`
}

func (SimulatedAnnealingParams) isSolverParams() {}

// LoggingOptions controls what the driver reports and which debug-only
// invariant checks run.
type LoggingOptions struct {
	LogFrequency            *uint64 `json:"log_frequency,omitempty" mapstructure:"log_frequency"`
	LogInitialState         bool    `json:"log_initial_state" mapstructure:"log_initial_state"`
	LogDurationAndScore     bool    `json:"log_duration_and_score" mapstructure:"log_duration_and_score"`
	DisplayFinalSchedule    bool    `json:"display_final_schedule" mapstructure:"display_final_schedule"`
	LogInitialScoreBreakdown bool   `json:"log_initial_score_breakdown" mapstructure:"log_initial_score_breakdown"`
	LogFinalScoreBreakdown  bool    `json:"log_final_score_breakdown" mapstructure:"log_final_score_breakdown"`
	LogStopCondition        bool    `json:"log_stop_condition" mapstructure:"log_stop_condition"`
	// DebugValidateInvariants turns on the post-move invariant checks from
	// §4.4/§7: expensive, intended for development only.
	DebugValidateInvariants bool `json:"debug_validate_invariants" mapstructure:"debug_validate_invariants"`
	// DebugDumpInvariantContext includes the offending move's parameters
	// in any invariant-violation warning.
	DebugDumpInvariantContext bool `json:"debug_dump_invariant_context" mapstructure:"debug_dump_invariant_context"`
}

// SolverResult is what a run returns on success.
type SolverResult struct {
	RunID                     string      `json:"run_id"`
	FinalScore                float64     `json:"final_score"`
	Schedule                  ScheduleMap `json:"schedule"`
	UniqueContacts            int         `json:"unique_contacts"`
	RepetitionPenalty         int         `json:"repetition_penalty"`
	AttributeBalancePenalty   float64     `json:"attribute_balance_penalty"`
	ConstraintPenalty         int         `json:"constraint_penalty"`
	NoImprovementCount        uint64      `json:"no_improvement_count"`
	WeightedRepetitionPenalty float64     `json:"weighted_repetition_penalty"`
	WeightedConstraintPenalty float64     `json:"weighted_constraint_penalty"`
}

// ProgressUpdate is emitted periodically during a run; see the progress
// reporting contract in spec §4.7.
type ProgressUpdate struct {
	Iteration      uint64  `json:"iteration"`
	MaxIterations  uint64  `json:"max_iterations"`
	Temperature    float64 `json:"temperature"`
	CurrentScore   float64 `json:"current_score"`
	BestScore      float64 `json:"best_score"`
	CurrentContacts int    `json:"current_contacts"`
	BestContacts    int    `json:"best_contacts"`

	CurrentRepetitionPenalty float64 `json:"current_repetition_penalty"`
	BestRepetitionPenalty    float64 `json:"best_repetition_penalty"`
	CurrentBalancePenalty    float64 `json:"current_balance_penalty"`
	BestBalancePenalty       float64 `json:"best_balance_penalty"`
	CurrentConstraintPenalty float64 `json:"current_constraint_penalty"`
	BestConstraintPenalty    float64 `json:"best_constraint_penalty"`

	SwapsTried         uint64 `json:"swaps_tried"`
	SwapsAccepted      uint64 `json:"swaps_accepted"`
	TransfersTried     uint64 `json:"transfers_tried"`
	TransfersAccepted  uint64 `json:"transfers_accepted"`
	CliqueSwapsTried   uint64 `json:"clique_swaps_tried"`
	CliqueSwapsAccepted uint64 `json:"clique_swaps_accepted"`

	OverallAcceptanceRate  float64 `json:"overall_acceptance_rate"`
	RecentAcceptanceRate   float64 `json:"recent_acceptance_rate"`
	AvgAttemptedMoveDelta  float64 `json:"avg_attempted_move_delta"`
	AvgAcceptedMoveDelta   float64 `json:"avg_accepted_move_delta"`
	BiggestAttemptedIncrease float64 `json:"biggest_attempted_increase"`
	BiggestAcceptedIncrease  float64 `json:"biggest_accepted_increase"`

	ReheatsPerformed        uint64  `json:"reheats_performed"`
	IterationsSinceReheat   uint64  `json:"iterations_since_reheat"`
	LocalOptimaEscapes      uint64  `json:"local_optima_escapes"`
	NoImprovementCount      uint64  `json:"no_improvement_count"`
	ElapsedSeconds          float64 `json:"elapsed_seconds"`
	CoolingProgress         float64 `json:"cooling_progress"`
}

// ProgressCallback is invoked synchronously, on the driver's own goroutine,
// between iterations. It must not retain the pointer it is given, and may
// read but never mutate solver state through any handle it's been loaned.
// Returning false requests cancellation before the next iteration starts.
type ProgressCallback func(*ProgressUpdate) bool
