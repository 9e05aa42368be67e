// Package validate checks normalized LLM responses for well-formedness and
// domain-numeric constraints, and provides a retry-or-fallback combinator so
// callers never consume a response that violates their declared constraints.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nobodyrpg/nobody/internal/llm"
)

// Constraints describes what a caller requires of a response.
type Constraints struct {
	// RequireJSON demands that the response text parse as JSON. When false,
	// only non-emptiness is checked.
	RequireJSON bool

	MaxRealmLevel  *int
	MinCombatPower *int64
	MaxCombatPower *int64
	MaxCurrentAge  *int
}

// DefaultConstraints returns the constraints most callers start from:
// JSON required, no numeric bounds.
func DefaultConstraints() Constraints {
	return Constraints{RequireJSON: true}
}

// ErrEmptyResponse means the response text was empty after trimming.
var ErrEmptyResponse = errors.New("response text is empty")

// JSONError reports that the response text was not valid JSON.
type JSONError struct {
	Cause string
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("invalid json: %s", e.Cause)
}

// MissingFieldError reports that none of a field's accepted JSON paths
// yielded a value.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// ConstraintError reports a violated numeric bound.
type ConstraintError struct {
	Message string
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("numerical constraint violation: %s", e.Message)
}

// Each logical field is addressed by a prioritized list of JSON paths: the
// nested character-update location first, then the flat top-level fallback.
var (
	realmLevelPaths  = [][]string{{"character_update", "realm_level"}, {"realm_level"}}
	combatPowerPaths = [][]string{{"character_update", "combat_power"}, {"combat_power"}}
	currentAgePaths  = [][]string{{"character_update", "current_age"}, {"current_age"}}
)

// Response validates resp against cons. Rules, in order: empty text fails;
// non-JSON callers succeed immediately; otherwise the text must parse as
// JSON and every declared bound must be located and satisfied.
func Response(resp *llm.Response, cons Constraints) error {
	if strings.TrimSpace(resp.Text) == "" {
		return ErrEmptyResponse
	}
	if !cons.RequireJSON {
		return nil
	}

	doc, err := ParseJSON(resp.Text)
	if err != nil {
		return err
	}
	return Numeric(doc, cons)
}

// ParseJSON parses response text into a generic document.
func ParseJSON(text string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &JSONError{Cause: err.Error()}
	}
	return doc, nil
}

// Numeric checks every bound declared in cons against doc.
func Numeric(doc map[string]any, cons Constraints) error {
	if cons.MaxRealmLevel != nil {
		level, ok := lookupNumber(doc, realmLevelPaths)
		if !ok {
			return &MissingFieldError{Field: "realm_level"}
		}
		if int(level) > *cons.MaxRealmLevel {
			return &ConstraintError{Message: fmt.Sprintf(
				"realm_level %d exceeds max %d", int(level), *cons.MaxRealmLevel)}
		}
	}

	if cons.MinCombatPower != nil || cons.MaxCombatPower != nil {
		power, ok := lookupNumber(doc, combatPowerPaths)
		if !ok {
			return &MissingFieldError{Field: "combat_power"}
		}
		if cons.MinCombatPower != nil && int64(power) < *cons.MinCombatPower {
			return &ConstraintError{Message: fmt.Sprintf(
				"combat_power %d is below min %d", int64(power), *cons.MinCombatPower)}
		}
		if cons.MaxCombatPower != nil && int64(power) > *cons.MaxCombatPower {
			return &ConstraintError{Message: fmt.Sprintf(
				"combat_power %d exceeds max %d", int64(power), *cons.MaxCombatPower)}
		}
	}

	if cons.MaxCurrentAge != nil {
		age, ok := lookupNumber(doc, currentAgePaths)
		if !ok {
			return &MissingFieldError{Field: "current_age"}
		}
		if int(age) > *cons.MaxCurrentAge {
			return &ConstraintError{Message: fmt.Sprintf(
				"current_age %d exceeds max %d", int(age), *cons.MaxCurrentAge)}
		}
	}

	return nil
}

// lookupNumber resolves the first path that yields a numeric value.
func lookupNumber(doc map[string]any, paths [][]string) (float64, bool) {
	for _, path := range paths {
		if v, ok := walk(doc, path); ok {
			if n, ok := v.(float64); ok {
				return n, true
			}
		}
	}
	return 0, false
}

func walk(doc map[string]any, path []string) (any, bool) {
	var cur any = doc
	for _, seg := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}
