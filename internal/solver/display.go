package solver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/ryanuber/columnize"

	"groupmixer/internal/api"
)

// ScoreBreakdown renders a human-readable summary of a result's cost
// components, in the same "Field | Value" columnized shape the rest of
// the pack's CLI output uses.
func ScoreBreakdown(result *api.SolverResult) string {
	rows := []string{
		"Metric | Value",
		fmt.Sprintf("Final score | %.4f", result.FinalScore),
		fmt.Sprintf("Unique contacts | %d", result.UniqueContacts),
		fmt.Sprintf("Repetition penalty | %d", result.RepetitionPenalty),
		fmt.Sprintf("Attribute balance penalty | %.4f", result.AttributeBalancePenalty),
		fmt.Sprintf("Constraint penalty | %d", result.ConstraintPenalty),
		fmt.Sprintf("Weighted repetition penalty | %.4f", result.WeightedRepetitionPenalty),
		fmt.Sprintf("Weighted constraint penalty | %.4f", result.WeightedConstraintPenalty),
		fmt.Sprintf("No-improvement count at termination | %d", result.NoImprovementCount),
	}
	return columnize.SimpleFormat(rows)
}

// ScheduleTable renders the final schedule, one block per session, groups
// sorted by id for determinism.
func ScheduleTable(result *api.SolverResult) string {
	var b strings.Builder
	sessions := make([]string, 0, len(result.Schedule))
	for k := range result.Schedule {
		sessions = append(sessions, k)
	}
	sort.Strings(sessions)

	for _, sess := range sessions {
		b.WriteString(color.New(color.Bold).Sprintf("%s\n", sess))
		groups := result.Schedule[sess]
		groupIDs := make([]string, 0, len(groups))
		for g := range groups {
			groupIDs = append(groupIDs, g)
		}
		sort.Strings(groupIDs)
		rows := []string{"Group | Members"}
		for _, g := range groupIDs {
			rows = append(rows, fmt.Sprintf("%s | %s", g, strings.Join(groups[g], ", ")))
		}
		b.WriteString(columnize.SimpleFormat(rows))
		b.WriteString("\n")
	}
	return b.String()
}

// WarnInvariantViolation formats a debug-mode invariant failure message
// (spec.md §7), optionally dumping the offending move and group contents.
func WarnInvariantViolation(message string, context map[string]interface{}, dump bool) string {
	if !dump || len(context) == 0 {
		return color.New(color.FgYellow).Sprintf("invariant violation: %s", message)
	}
	var parts []string
	for k, v := range context {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return color.New(color.FgYellow).Sprintf("invariant violation: %s (%s)", message, strings.Join(parts, ", "))
}
