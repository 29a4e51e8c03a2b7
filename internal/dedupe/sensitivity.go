// Package dedupe finds duplicate CRM records and plans how to merge them.
//
// Everything here is a pure computation over an in-memory snapshot: the
// caller fetches records, the package normalizes, scores and groups them,
// and the caller applies any resulting MergePlan through its own storage.
package dedupe

import (
	"fmt"
	"strings"

	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

// Sensitivity controls normalization strictness and the match threshold.
type Sensitivity string

// Sensitivity levels.
const (
	High   Sensitivity = "High"   // exact match after normalization
	Medium Sensitivity = "Medium" // fuzzy, edit-distance based
	Low    Sensitivity = "Low"    // fuzzy, looser normalization
)

// ParseSensitivity parses a case-sensitive sensitivity name.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case High, Medium, Low:
		return Sensitivity(s), nil
	default:
		return "", domainerrors.InvalidSensitivity(s)
	}
}

func (s Sensitivity) exact() bool {
	return s == High
}

// Thresholds maps each sensitivity to the minimum pair score that counts as a duplicate.
type Thresholds struct {
	High   float64 `toml:"high" yaml:"high" json:"high"`
	Medium float64 `toml:"medium" yaml:"medium" json:"medium"`
	Low    float64 `toml:"low" yaml:"low" json:"low"`
}

// DefaultThresholds returns the built-in thresholds.
// High must stay at 1.0: anything lower would let a non-exact pair through.
func DefaultThresholds() Thresholds {
	return Thresholds{
		High:   1.0,
		Medium: 0.75,
		Low:    0.5,
	}
}

// For returns the threshold for a sensitivity.
func (t Thresholds) For(s Sensitivity) float64 {
	switch s {
	case High:
		return t.High
	case Medium:
		return t.Medium
	default:
		return t.Low
	}
}

// Validate checks that thresholds lie in (0,1] and loosen from High to Low.
func (t Thresholds) Validate() error {
	for name, v := range map[string]float64{"high": t.High, "medium": t.Medium, "low": t.Low} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("threshold %s must be in (0, 1], got %v", name, v)
		}
	}
	if t.Medium > t.High || t.Low > t.Medium {
		return fmt.Errorf("thresholds must satisfy low <= medium <= high")
	}
	return nil
}

// FieldSet is an ordered set of field names to compare.
type FieldSet []string

// NewFieldSet builds a FieldSet, trimming names and dropping repeats
// while keeping first-seen order. An empty result is an EmptyFieldSet error.
func NewFieldSet(names []string) (FieldSet, error) {
	seen := make(map[string]bool, len(names))
	fs := make(FieldSet, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		fs = append(fs, n)
	}
	if len(fs) == 0 {
		return nil, domainerrors.EmptyFieldSet()
	}
	return fs, nil
}
