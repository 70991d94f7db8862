package api

import (
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
)

// constraintBuilders maps the wire "type" discriminator to a zero-value
// factory for mapstructure to decode into. Keeping this table as the single
// dispatch point is what spec §9 means by modeling the tagged union as a
// closed sum type rather than an open dispatch hierarchy.
var constraintBuilders = map[string]func() Constraint{
	"RepeatEncounter":     func() Constraint { return &RepeatEncounterParams{} },
	"AttributeBalance":    func() Constraint { return &AttributeBalanceParams{} },
	"MustStayTogether":    func() Constraint { return &MustStayTogetherParams{} },
	"ShouldStayTogether":  func() Constraint { return &ShouldStayTogetherParams{} },
	"ShouldNotBeTogether": func() Constraint { return &ShouldNotBeTogetherParams{} },
	"ImmovablePerson":     func() Constraint { return &ImmovablePersonParams{} },
	"ImmovablePeople":     func() Constraint { return &ImmovablePeopleParams{} },
	"PairMeetingCount":    func() Constraint { return &PairMeetingCountParams{} },
}

// DecodeInput parses a raw JSON document into an ApiInput, resolving the
// constraints tagged union and applying the literal defaults the spec
// documents for fields the wire format is allowed to omit.
func DecodeInput(data []byte) (*ApiInput, error) {
	var input ApiInput
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("malformed input: %v", err)}
	}

	constraints, err := decodeConstraints(input.RawConstraints)
	if err != nil {
		return nil, err
	}
	input.Constraints = constraints

	params, err := decodeSolverParams(input.Solver.SolverType, input.Solver.RawSolverParams)
	if err != nil {
		return nil, err
	}
	input.Solver.SolverParams = params

	applyConstraintDefaults(input.Constraints)
	return &input, nil
}

func decodeConstraints(raw []map[string]any) ([]Constraint, error) {
	var errs *multierror.Error
	out := make([]Constraint, 0, len(raw))

	for i, entry := range raw {
		tag, _ := entry["type"].(string)
		build, ok := constraintBuilders[tag]
		if !ok {
			errs = multierror.Append(errs, fmt.Errorf("constraints[%d]: unrecognized type %q", i, tag))
			continue
		}
		target := build()
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("constraints[%d]: %w", i, err))
			continue
		}
		if err := dec.Decode(entry); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("constraints[%d] (%s): %w", i, tag, err))
			continue
		}
		if pm, ok := target.(*PairMeetingCountParams); ok {
			if len(pm.RawPeople) != 2 {
				errs = multierror.Append(errs, fmt.Errorf("constraints[%d]: PairMeetingCount requires exactly two people", i))
				continue
			}
			pm.People = [2]string{pm.RawPeople[0], pm.RawPeople[1]}
		}
		out = append(out, target)
	}

	if errs != nil && errs.Len() > 0 {
		return nil, &ValidationError{Message: errs.Error()}
	}
	return out, nil
}

func decodeSolverParams(solverType string, raw map[string]any) (SolverParams, error) {
	switch solverType {
	case SolverTypeSimulatedAnnealing, "":
		params := SimulatedAnnealingParams{
			CoolingSchedule: "geometric",
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:           &params,
			WeaklyTypedInput: true,
			TagName:          "mapstructure",
		})
		if err != nil {
			return nil, &ValidationError{Message: err.Error()}
		}
		if err := dec.Decode(raw); err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("solver_params: %v", err)}
		}
		return params, nil
	default:
		return nil, &ValidationError{Message: fmt.Sprintf("unknown solver_type %q", solverType)}
	}
}

// applyConstraintDefaults fills in the literal defaults spec §9 calls out
// for should-together and forbidden-pair weights (1000 when omitted), and
// extends the same default to PairMeetingCount for consistency: spec §9
// is silent on it, but leaving an omitted penalty_weight at the JSON zero
// value would make the constraint toothless rather than merely unweighted.
func applyConstraintDefaults(constraints []Constraint) {
	for i, c := range constraints {
		switch v := c.(type) {
		case *ShouldStayTogetherParams:
			if v.PenaltyWeight == 0 {
				v.PenaltyWeight = DefaultConstraintWeight
			}
		case *ShouldNotBeTogetherParams:
			if v.PenaltyWeight == 0 {
				v.PenaltyWeight = DefaultConstraintWeight
			}
		case *PairMeetingCountParams:
			if v.PenaltyWeight == 0 {
				v.PenaltyWeight = DefaultConstraintWeight
			}
		}
		constraints[i] = c
	}
}

// EncodeResult renders a SolverResult back to the wire JSON form.
func EncodeResult(result *SolverResult) ([]byte, error) {
	return json.MarshalIndent(result, "", "  ")
}
