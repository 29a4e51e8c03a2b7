package domain

import (
	"fmt"
	"strings"
	"time"
)

// MatchMode decides how a criteria's conditions combine.
type MatchMode string

// Match modes.
const (
	MatchAll MatchMode = "all"
	MatchAny MatchMode = "any"
)

// Operator compares a record field against a condition value.
type Operator string

// Supported operators. Comparisons are case-insensitive.
const (
	OpEquals     Operator = "equals"
	OpNotEquals  Operator = "not_equals"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpIsEmpty    Operator = "is_empty"
	OpIsNotEmpty Operator = "is_not_empty"
)

// Condition is a single field test.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// SearchCriteria is the structured filter stored in a SavedSearch.
type SearchCriteria struct {
	Match      MatchMode   `json:"match,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// SavedSearch is a named, reusable record filter for one entity type.
type SavedSearch struct {
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	EntityType EntityType     `json:"entity_type"`
	Criteria   SearchCriteria `json:"criteria"`
}

// Validate checks the criteria shape.
func (c *SearchCriteria) Validate() error {
	switch c.Match {
	case MatchAll, MatchAny:
	case "":
		c.Match = MatchAll
	default:
		return fmt.Errorf("match must be %q or %q", MatchAll, MatchAny)
	}
	if len(c.Conditions) == 0 {
		return fmt.Errorf("at least one condition is required")
	}
	for i, cond := range c.Conditions {
		if strings.TrimSpace(cond.Field) == "" {
			return fmt.Errorf("condition %d: field is required", i)
		}
		switch cond.Operator {
		case OpEquals, OpNotEquals, OpContains, OpStartsWith:
			if cond.Value == "" {
				return fmt.Errorf("condition %d: %s needs a value", i, cond.Operator)
			}
		case OpIsEmpty, OpIsNotEmpty:
		default:
			return fmt.Errorf("condition %d: unknown operator %q", i, cond.Operator)
		}
	}
	return nil
}

// Matches reports whether the record satisfies the criteria.
func (c *SearchCriteria) Matches(r *Record) bool {
	if len(c.Conditions) == 0 {
		return true
	}
	for _, cond := range c.Conditions {
		ok := cond.matches(r)
		if c.Match == MatchAny && ok {
			return true
		}
		if c.Match != MatchAny && !ok {
			return false
		}
	}
	return c.Match != MatchAny
}

func (cond Condition) matches(r *Record) bool {
	got := strings.ToLower(strings.TrimSpace(r.Field(cond.Field)))
	want := strings.ToLower(strings.TrimSpace(cond.Value))

	switch cond.Operator {
	case OpEquals:
		return got == want
	case OpNotEquals:
		return got != want
	case OpContains:
		return strings.Contains(got, want)
	case OpStartsWith:
		return strings.HasPrefix(got, want)
	case OpIsEmpty:
		return got == ""
	case OpIsNotEmpty:
		return got != ""
	}
	return false
}

// Touch updates the UpdatedAt timestamp.
func (s *SavedSearch) Touch() {
	s.UpdatedAt = time.Now()
}
