// Package search keeps a Bleve index of normalized record keys so a new or
// edited record can be checked for likely duplicates without scoring it
// against the whole table.
package search

import (
	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
)

// candidateSensitivity fixes how keys are normalized for the index. Medium
// strips email tags, phone trunk prefixes and accents, which is as loose as
// exact-term lookups can usefully get.
const candidateSensitivity = dedupe.Medium

// CandidateDocument is the indexed form of one active record.
type CandidateDocument struct {
	ID         string `json:"id"`
	EntityType string `json:"entity_type"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Name       string `json:"name,omitempty"`
}

// NewCandidateDocument normalizes a record's identifying fields.
func NewCandidateDocument(r *domain.Record) *CandidateDocument {
	return &CandidateDocument{
		ID:         r.ID,
		EntityType: string(r.EntityType),
		Email:      dedupe.Normalize(domain.FieldEmail, r.Field(domain.FieldEmail), candidateSensitivity),
		Phone:      dedupe.Normalize(domain.FieldPhone, r.Field(domain.FieldPhone), candidateSensitivity),
		Name:       dedupe.Normalize(domain.FieldName, r.Field(domain.FieldName), candidateSensitivity),
	}
}

// IsEmpty reports whether the document carries no key worth indexing.
func (d *CandidateDocument) IsEmpty() bool {
	return d.Email == "" && d.Phone == "" && d.Name == ""
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *CandidateDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"entity_type": d.EntityType,
	}
	if d.Email != "" {
		m["email"] = d.Email
	}
	if d.Phone != "" {
		m["phone"] = d.Phone
	}
	if d.Name != "" {
		m["name"] = d.Name
	}
	return m
}
