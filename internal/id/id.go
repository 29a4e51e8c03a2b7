package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

// Prefixes for the entities Contactly stores.
const (
	PrefixContact          = "con"
	PrefixCompany          = "com"
	PrefixCustomField      = "cfd"
	PrefixCustomFieldValue = "cfv"
	PrefixSavedSearch      = "srch"
	PrefixMerge            = "mrg"
)

// Generate creates a prefixed unique ID using NanoID.
// Format: prefix-nanoid (e.g., "con-V1StGXR8_Z5jdHi6B-myT").
//
// Returns an error if the system has insufficient entropy for secure random generation.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// ForRecord generates an ID whose prefix reflects the record's entity type.
func ForRecord(entityType domain.EntityType) (string, error) {
	if entityType == domain.EntityTypeCompany {
		return Generate(PrefixCompany)
	}
	return Generate(PrefixContact)
}
