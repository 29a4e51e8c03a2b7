// Package service holds the CRM use cases: record management, custom
// fields, saved searches and duplicate detection/merging.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/store"
)

// RecordFetcher supplies the snapshot a scan or merge runs against.
type RecordFetcher interface {
	ListRecords(ctx context.Context, entityType domain.EntityType) ([]domain.Record, error)
}

// MergeApplier persists a merge plan atomically.
type MergeApplier interface {
	ApplyMergePlan(ctx context.Context, plan *dedupe.MergePlan) (*domain.MergeHistory, error)
}

// RecordStore is the record persistence used by the services.
// *sqlite.Store implements it.
type RecordStore interface {
	RecordFetcher
	MergeApplier

	CreateRecord(ctx context.Context, r *domain.Record) error
	CreateRecords(ctx context.Context, records []*domain.Record) error
	GetRecord(ctx context.Context, recordID string) (*domain.Record, error)
	GetRecordsByIDs(ctx context.Context, ids []string) ([]domain.Record, error)
	UpdateRecordFields(ctx context.Context, recordID string, fields map[string]string) (*domain.Record, error)
	DeleteRecord(ctx context.Context, recordID string) error
	ListMergeHistory(ctx context.Context, masterID string) ([]*domain.MergeHistory, error)
}

// CustomFieldStore persists custom field definitions and values.
type CustomFieldStore interface {
	GetRecord(ctx context.Context, recordID string) (*domain.Record, error)
	CreateCustomFieldDefinition(ctx context.Context, d *domain.CustomFieldDefinition) error
	GetCustomFieldDefinition(ctx context.Context, definitionID string) (*domain.CustomFieldDefinition, error)
	ListCustomFieldDefinitions(ctx context.Context, entityType domain.EntityType) ([]*domain.CustomFieldDefinition, error)
	SetCustomFieldValue(ctx context.Context, definitionID, recordID, value string) (*domain.CustomFieldValue, error)
	ListCustomFieldValues(ctx context.Context, recordID string) ([]*domain.CustomFieldValue, error)
}

// SavedSearchStore persists saved searches. *store.Store implements it.
type SavedSearchStore interface {
	CreateSavedSearch(ctx context.Context, ss *domain.SavedSearch) error
	GetSavedSearch(ctx context.Context, id string) (*domain.SavedSearch, error)
	ListSavedSearches(ctx context.Context, entityType domain.EntityType) ([]*domain.SavedSearch, error)
	UpdateSavedSearch(ctx context.Context, ss *domain.SavedSearch) error
	DeleteSavedSearch(ctx context.Context, id string) error
}

// CandidateIndexer keeps the duplicate candidate index in step with records.
// *search.CandidateIndex implements it.
type CandidateIndexer interface {
	Index(ctx context.Context, r *domain.Record) error
	IndexRecords(ctx context.Context, records []domain.Record) error
	Delete(ctx context.Context, ids ...string) error
	FindCandidates(ctx context.Context, entityType domain.EntityType, probe *domain.Record, limit int) ([]search.Candidate, error)
}

// storeError translates storage sentinels into domain errors. Anything
// else is returned unchanged.
func storeError(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(what + " not found").WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists):
		return domainerrors.AlreadyExists(what + " already exists").WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(err.Error()).WithCause(err)
	}
	return err
}

// parseEntityType accepts an empty string as "any" when allowAny is set.
func parseEntityType(s string, allowAny bool) (domain.EntityType, error) {
	if s == "" && allowAny {
		return "", nil
	}
	return domain.ParseEntityType(s)
}

// cleanFields trims keys and drops entries whose key is blank.
func cleanFields(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k = strings.TrimSpace(k); k != "" {
			out[k] = v
		}
	}
	return out
}
