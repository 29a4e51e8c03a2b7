package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/id"
	"github.com/contactlyapp/contactly-server/internal/validation"
)

// SavedSearchService manages named record filters.
type SavedSearchService struct {
	store     SavedSearchStore
	logger    *slog.Logger
	validator *validation.Validator
}

// NewSavedSearchService creates a new saved search service.
func NewSavedSearchService(store SavedSearchStore, logger *slog.Logger) *SavedSearchService {
	return &SavedSearchService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
	}
}

// SavedSearchRequest contains fields for creating or replacing a saved search.
type SavedSearchRequest struct {
	Name       string                `json:"name" validate:"required,notblank,max=100"`
	EntityType string                `json:"entity_type" validate:"required"`
	Criteria   domain.SearchCriteria `json:"criteria"`
}

func (s *SavedSearchService) check(req *SavedSearchRequest) (domain.EntityType, error) {
	if err := s.validator.Validate(req); err != nil {
		return "", err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return "", err
	}
	if err := req.Criteria.Validate(); err != nil {
		return "", domainerrors.ValidationWithDetails("invalid criteria", map[string]string{"criteria": err.Error()})
	}
	return entityType, nil
}

// Create stores a new saved search. Names are unique per entity type, ignoring case.
func (s *SavedSearchService) Create(ctx context.Context, req SavedSearchRequest) (*domain.SavedSearch, error) {
	entityType, err := s.check(&req)
	if err != nil {
		return nil, err
	}

	searchID, err := id.Generate(id.PrefixSavedSearch)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ss := &domain.SavedSearch{
		ID:         searchID,
		Name:       req.Name,
		EntityType: entityType,
		Criteria:   req.Criteria,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateSavedSearch(ctx, ss); err != nil {
		return nil, storeError(err, "saved search")
	}

	s.logger.Info("saved search created", "id", ss.ID, "name", ss.Name, "entity_type", entityType)
	return ss, nil
}

// Get returns a saved search by ID.
func (s *SavedSearchService) Get(ctx context.Context, searchID string) (*domain.SavedSearch, error) {
	ss, err := s.store.GetSavedSearch(ctx, searchID)
	if err != nil {
		return nil, storeError(err, "saved search")
	}
	return ss, nil
}

// List returns saved searches for one entity type, or all when entityType is empty.
func (s *SavedSearchService) List(ctx context.Context, entityType string) ([]*domain.SavedSearch, error) {
	et, err := parseEntityType(entityType, true)
	if err != nil {
		return nil, err
	}
	return s.store.ListSavedSearches(ctx, et)
}

// Update replaces a saved search's name, entity type and criteria.
func (s *SavedSearchService) Update(ctx context.Context, searchID string, req SavedSearchRequest) (*domain.SavedSearch, error) {
	entityType, err := s.check(&req)
	if err != nil {
		return nil, err
	}

	ss, err := s.store.GetSavedSearch(ctx, searchID)
	if err != nil {
		return nil, storeError(err, "saved search")
	}
	ss.Name = req.Name
	ss.EntityType = entityType
	ss.Criteria = req.Criteria

	if err := s.store.UpdateSavedSearch(ctx, ss); err != nil {
		return nil, storeError(err, "saved search")
	}
	return ss, nil
}

// Delete removes a saved search.
func (s *SavedSearchService) Delete(ctx context.Context, searchID string) error {
	if err := s.store.DeleteSavedSearch(ctx, searchID); err != nil {
		return storeError(err, "saved search")
	}
	s.logger.Info("saved search deleted", "id", searchID)
	return nil
}
