package domain

import (
	"strings"
	"time"

	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

// EntityType identifies which kind of CRM record a Record holds.
type EntityType string

// Supported entity types.
const (
	EntityTypeContact EntityType = "Contact"
	EntityTypeCompany EntityType = "Company"
)

// EntityTypes lists every supported entity type in display order.
var EntityTypes = []EntityType{EntityTypeContact, EntityTypeCompany}

// ParseEntityType parses a case-sensitive entity type name.
func ParseEntityType(s string) (EntityType, error) {
	switch EntityType(s) {
	case EntityTypeContact, EntityTypeCompany:
		return EntityType(s), nil
	default:
		return "", domainerrors.UnsupportedEntityType(s)
	}
}

// String implements fmt.Stringer.
func (e EntityType) String() string {
	return string(e)
}

// Well-known field names. Records may carry any other field as well.
const (
	FieldEmail = "Email"
	FieldPhone = "Phone"
	FieldName  = "Name"
)

// Record is a Contact or Company as seen by duplicate detection.
// Fields maps a field name to its raw, un-normalized value.
type Record struct {
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
	DeletedAt  *time.Time        `json:"deleted_at,omitempty"`
	Fields     map[string]string `json:"fields"`
	ID         string            `json:"id"`
	EntityType EntityType        `json:"entity_type"`
	MergedInto string            `json:"merged_into,omitempty"` // Master record ID once merged away
}

// Field returns the raw value for a field, or "" when absent.
func (r *Record) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// FilledFieldCount counts fields holding a non-blank value.
func (r *Record) FilledFieldCount() int {
	n := 0
	for _, v := range r.Fields {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// IsActive reports whether the record is neither deleted nor merged away.
func (r *Record) IsActive() bool {
	return r.DeletedAt == nil && r.MergedInto == ""
}

// Touch updates the UpdatedAt timestamp.
func (r *Record) Touch() {
	r.UpdatedAt = time.Now()
}

// MergeHistory is the audit row written when a merge plan is applied.
type MergeHistory struct {
	AppliedAt    time.Time         `json:"applied_at"`
	Fields       map[string]string `json:"fields"`
	ID           string            `json:"id"`
	EntityType   EntityType        `json:"entity_type"`
	MasterID     string            `json:"master_id"`
	DuplicateIDs []string          `json:"duplicate_ids"`
}
