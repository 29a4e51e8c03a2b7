package domain

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// CustomFieldKind is the value type of a custom field.
type CustomFieldKind string

// Supported custom field kinds.
const (
	CustomFieldText    CustomFieldKind = "text"
	CustomFieldNumber  CustomFieldKind = "number"
	CustomFieldDate    CustomFieldKind = "date" // YYYY-MM-DD
	CustomFieldBoolean CustomFieldKind = "boolean"
	CustomFieldEmail   CustomFieldKind = "email"
	CustomFieldSelect  CustomFieldKind = "select"
)

// IsValid reports whether k is a known kind.
func (k CustomFieldKind) IsValid() bool {
	switch k {
	case CustomFieldText, CustomFieldNumber, CustomFieldDate,
		CustomFieldBoolean, CustomFieldEmail, CustomFieldSelect:
		return true
	}
	return false
}

// ValidationRules constrains the values a custom field accepts.
// Nil pointers mean "no constraint".
type ValidationRules struct {
	MinLength *int     `json:"min_length,omitempty"`
	MaxLength *int     `json:"max_length,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

// SelectOption is one allowed value of a select field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CustomFieldDefinition declares an extra field on Contacts or Companies.
type CustomFieldDefinition struct {
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	ID         string          `json:"id"`
	EntityType EntityType      `json:"entity_type"`
	Name       string          `json:"name"`
	Kind       CustomFieldKind `json:"kind"`
	Options    []SelectOption  `json:"options,omitempty"`
	Rules      ValidationRules `json:"rules"`
	SortOrder  int             `json:"sort_order"`
	Required   bool            `json:"required"`
}

// CustomFieldValue holds a record's value for one definition.
// Both sides are referenced by ID only.
type CustomFieldValue struct {
	UpdatedAt    time.Time `json:"updated_at"`
	ID           string    `json:"id"`
	DefinitionID string    `json:"definition_id"`
	RecordID     string    `json:"record_id"`
	Value        string    `json:"value"`
}

// ValidateValue checks a raw value against the definition's kind and rules.
func (d *CustomFieldDefinition) ValidateValue(value string) error {
	if strings.TrimSpace(value) == "" {
		if d.Required {
			return fmt.Errorf("%s is required", d.Name)
		}
		return nil
	}

	switch d.Kind {
	case CustomFieldNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s must be a number", d.Name)
		}
		if d.Rules.Min != nil && n < *d.Rules.Min {
			return fmt.Errorf("%s must be at least %g", d.Name, *d.Rules.Min)
		}
		if d.Rules.Max != nil && n > *d.Rules.Max {
			return fmt.Errorf("%s must be at most %g", d.Name, *d.Rules.Max)
		}
		return nil
	case CustomFieldDate:
		if _, err := time.Parse(time.DateOnly, value); err != nil {
			return fmt.Errorf("%s must be a date (YYYY-MM-DD)", d.Name)
		}
		return nil
	case CustomFieldBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be true or false", d.Name)
		}
		return nil
	case CustomFieldEmail:
		if _, err := mail.ParseAddress(value); err != nil {
			return fmt.Errorf("%s must be an email address", d.Name)
		}
	case CustomFieldSelect:
		if !slices.ContainsFunc(d.Options, func(o SelectOption) bool { return o.Value == value }) {
			return fmt.Errorf("%s must be one of the defined options", d.Name)
		}
		return nil
	}

	length := utf8.RuneCountInString(value)
	if d.Rules.MinLength != nil && length < *d.Rules.MinLength {
		return fmt.Errorf("%s must be at least %d characters", d.Name, *d.Rules.MinLength)
	}
	if d.Rules.MaxLength != nil && length > *d.Rules.MaxLength {
		return fmt.Errorf("%s must be at most %d characters", d.Name, *d.Rules.MaxLength)
	}
	if d.Rules.Pattern != "" {
		re, err := regexp.Compile(d.Rules.Pattern)
		if err != nil {
			return fmt.Errorf("%s has an invalid pattern: %w", d.Name, err)
		}
		if !re.MatchString(value) {
			return fmt.Errorf("%s does not match the required format", d.Name)
		}
	}
	return nil
}

// Validate checks the definition itself.
func (d *CustomFieldDefinition) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !d.Kind.IsValid() {
		return fmt.Errorf("unknown kind %q", d.Kind)
	}
	if d.Kind == CustomFieldSelect && len(d.Options) == 0 {
		return fmt.Errorf("select fields need at least one option")
	}
	if d.Rules.Pattern != "" {
		if _, err := regexp.Compile(d.Rules.Pattern); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	if d.Rules.MinLength != nil && d.Rules.MaxLength != nil && *d.Rules.MinLength > *d.Rules.MaxLength {
		return fmt.Errorf("min_length exceeds max_length")
	}
	if d.Rules.Min != nil && d.Rules.Max != nil && *d.Rules.Min > *d.Rules.Max {
		return fmt.Errorf("min exceeds max")
	}
	return nil
}
