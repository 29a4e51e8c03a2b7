package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/id"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/validation"
)

// RecordService manages Contacts and Companies.
type RecordService struct {
	store     RecordStore
	searches  SavedSearchStore
	index     CandidateIndexer
	logger    *slog.Logger
	validator *validation.Validator
}

// NewRecordService creates a new record service.
func NewRecordService(store RecordStore, searches SavedSearchStore, index CandidateIndexer, logger *slog.Logger) *RecordService {
	return &RecordService{
		store:     store,
		searches:  searches,
		index:     index,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateRecordRequest contains fields for creating a record.
type CreateRecordRequest struct {
	EntityType string            `json:"entity_type" validate:"required"`
	Fields     map[string]string `json:"fields" validate:"required,min=1"`
}

// CreateRecord stores a new record and adds it to the candidate index.
func (s *RecordService) CreateRecord(ctx context.Context, req CreateRecordRequest) (*domain.Record, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	r, err := newRecord(entityType, req.Fields)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRecord(ctx, r); err != nil {
		return nil, storeError(err, "record")
	}
	s.reindex(ctx, r)

	s.logger.Info("record created", "id", r.ID, "entity_type", entityType)
	return r, nil
}

// ImportRecordsRequest carries already-parsed import rows.
type ImportRecordsRequest struct {
	EntityType string              `json:"entity_type" validate:"required"`
	Rows       []map[string]string `json:"rows" validate:"required,min=1,max=5000"`
}

// ImportRecords stores every row as a new record in one transaction.
func (s *RecordService) ImportRecords(ctx context.Context, req ImportRecordsRequest) ([]*domain.Record, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(req.Rows))
	snapshot := make([]domain.Record, 0, len(req.Rows))
	for _, row := range req.Rows {
		r, err := newRecord(entityType, row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
		snapshot = append(snapshot, *r)
	}

	if err := s.store.CreateRecords(ctx, records); err != nil {
		return nil, storeError(err, "record")
	}
	if err := s.index.IndexRecords(ctx, snapshot); err != nil {
		s.logger.Warn("failed to index imported records", "count", len(records), "error", err)
	}

	s.logger.Info("records imported", "entity_type", entityType, "count", len(records))
	return records, nil
}

func newRecord(entityType domain.EntityType, fields map[string]string) (*domain.Record, error) {
	recordID, err := id.ForRecord(entityType)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &domain.Record{
		ID:         recordID,
		EntityType: entityType,
		Fields:     cleanFields(fields),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// GetRecord returns a record by ID, including deleted and merged records.
func (s *RecordService) GetRecord(ctx context.Context, recordID string) (*domain.Record, error) {
	r, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("record %s not found", recordID)
		}
		return nil, err
	}
	return r, nil
}

// ListRecords returns the active records of an entity type.
func (s *RecordService) ListRecords(ctx context.Context, entityType string) ([]domain.Record, error) {
	et, err := domain.ParseEntityType(entityType)
	if err != nil {
		return nil, err
	}
	return s.store.ListRecords(ctx, et)
}

// UpdateRecordRequest replaces a record's fields.
type UpdateRecordRequest struct {
	Fields map[string]string `json:"fields" validate:"required"`
}

// UpdateRecord replaces the fields of an active record.
func (s *RecordService) UpdateRecord(ctx context.Context, recordID string, req UpdateRecordRequest) (*domain.Record, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	r, err := s.store.UpdateRecordFields(ctx, recordID, cleanFields(req.Fields))
	if err != nil {
		return nil, storeError(err, "record")
	}
	s.reindex(ctx, r)
	return r, nil
}

// DeleteRecord soft-deletes an active record.
func (s *RecordService) DeleteRecord(ctx context.Context, recordID string) error {
	if err := s.store.DeleteRecord(ctx, recordID); err != nil {
		return storeError(err, "record")
	}
	if err := s.index.Delete(ctx, recordID); err != nil {
		s.logger.Warn("failed to drop record from candidate index", "id", recordID, "error", err)
	}
	s.logger.Info("record deleted", "id", recordID)
	return nil
}

// SearchRecordsRequest filters records by a saved search or inline criteria.
// Exactly one of SavedSearchID and Criteria must be set.
type SearchRecordsRequest struct {
	EntityType    string                 `json:"entity_type" validate:"required"`
	SavedSearchID string                 `json:"saved_search_id,omitempty" validate:"required_without=Criteria,excluded_with=Criteria"`
	Criteria      *domain.SearchCriteria `json:"criteria,omitempty" validate:"required_without=SavedSearchID"`
}

// SearchRecords returns the active records matching the request's criteria.
func (s *RecordService) SearchRecords(ctx context.Context, req SearchRecordsRequest) ([]domain.Record, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	criteria, err := resolveCriteria(ctx, s.searches, entityType, req.SavedSearchID, req.Criteria)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListRecords(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return filterRecords(records, criteria), nil
}

// MergeHistory lists the merges folded into a master record.
func (s *RecordService) MergeHistory(ctx context.Context, masterID string) ([]*domain.MergeHistory, error) {
	return s.store.ListMergeHistory(ctx, masterID)
}

func (s *RecordService) reindex(ctx context.Context, r *domain.Record) {
	if err := s.index.Index(ctx, r); err != nil {
		s.logger.Warn("failed to update candidate index", "id", r.ID, "error", err)
	}
}

// resolveCriteria returns either the inline criteria or the saved search's,
// checking that a saved search belongs to entityType.
func resolveCriteria(ctx context.Context, searches SavedSearchStore, entityType domain.EntityType, savedSearchID string, inline *domain.SearchCriteria) (*domain.SearchCriteria, error) {
	if savedSearchID == "" {
		c := *inline
		if err := c.Validate(); err != nil {
			return nil, domainerrors.ValidationWithDetails("invalid criteria", map[string]string{"criteria": err.Error()})
		}
		return &c, nil
	}

	ss, err := searches.GetSavedSearch(ctx, savedSearchID)
	if err != nil {
		return nil, storeError(err, "saved search")
	}
	if ss.EntityType != entityType {
		return nil, domainerrors.Validationf("saved search %s filters %s records, not %s", ss.ID, ss.EntityType, entityType)
	}
	return &ss.Criteria, nil
}

func filterRecords(records []domain.Record, criteria *domain.SearchCriteria) []domain.Record {
	out := make([]domain.Record, 0, len(records))
	for i := range records {
		if criteria.Matches(&records[i]) {
			out = append(out, records[i])
		}
	}
	return out
}
