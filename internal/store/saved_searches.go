package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/contactlyapp/contactly-server/internal/domain"
)

const (
	savedSearchPrefix    = "search:"
	savedSearchNameIndex = "name"
	savedSearchTypeIndex = "entity_type"
)

// ErrSavedSearchNameTaken is returned when another saved search for the same
// entity type already uses the name.
var ErrSavedSearchNameTaken = ErrAlreadyExists.WithMessage("saved search name already in use")

// savedSearchNameKey folds name case so "VIP" and "vip" collide.
func savedSearchNameKey(entityType domain.EntityType, name string) string {
	return strings.ToLower(string(entityType) + ":" + strings.TrimSpace(name))
}

func (s *Store) initSavedSearches() {
	s.SavedSearches = NewEntity[domain.SavedSearch](s, savedSearchPrefix).
		WithUniqueIndex(savedSearchNameIndex, func(ss *domain.SavedSearch) []string {
			return []string{savedSearchNameKey(ss.EntityType, ss.Name)}
		}, strings.ToLower).
		WithIndex(savedSearchTypeIndex, func(ss *domain.SavedSearch) []string {
			return []string{string(ss.EntityType)}
		})
}

// CreateSavedSearch stores a new saved search.
func (s *Store) CreateSavedSearch(ctx context.Context, ss *domain.SavedSearch) error {
	if err := s.SavedSearches.Create(ctx, ss.ID, ss); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrSavedSearchNameTaken.WithCause(err)
		}
		return fmt.Errorf("create saved search: %w", err)
	}
	s.logger.Debug("saved search created", "id", ss.ID, "entity_type", ss.EntityType, "name", ss.Name)
	return nil
}

// GetSavedSearch returns a saved search by ID.
func (s *Store) GetSavedSearch(ctx context.Context, id string) (*domain.SavedSearch, error) {
	ss, err := s.SavedSearches.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithMessage("saved search not found")
		}
		return nil, fmt.Errorf("get saved search: %w", err)
	}
	return ss, nil
}

// GetSavedSearchByName looks a saved search up by entity type and name,
// ignoring case.
func (s *Store) GetSavedSearchByName(ctx context.Context, entityType domain.EntityType, name string) (*domain.SavedSearch, error) {
	ss, err := s.SavedSearches.GetByIndex(ctx, savedSearchNameIndex, savedSearchNameKey(entityType, name))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound.WithMessage("saved search not found")
		}
		return nil, fmt.Errorf("get saved search by name: %w", err)
	}
	return ss, nil
}

// ListSavedSearches returns every saved search for an entity type, or all of
// them when entityType is empty.
func (s *Store) ListSavedSearches(ctx context.Context, entityType domain.EntityType) ([]*domain.SavedSearch, error) {
	if entityType != "" {
		return s.SavedSearches.ListByIndex(ctx, savedSearchTypeIndex, string(entityType))
	}

	result := []*domain.SavedSearch{}
	for ss, err := range s.SavedSearches.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list saved searches: %w", err)
		}
		result = append(result, ss)
	}
	return result, nil
}

// UpdateSavedSearch replaces an existing saved search.
func (s *Store) UpdateSavedSearch(ctx context.Context, ss *domain.SavedSearch) error {
	ss.Touch()
	if err := s.SavedSearches.Update(ctx, ss.ID, ss); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return ErrNotFound.WithMessage("saved search not found")
		case errors.Is(err, ErrAlreadyExists):
			return ErrSavedSearchNameTaken.WithCause(err)
		}
		return fmt.Errorf("update saved search: %w", err)
	}
	return nil
}

// DeleteSavedSearch removes a saved search. Deleting a missing one is not an error.
func (s *Store) DeleteSavedSearch(ctx context.Context, id string) error {
	if err := s.SavedSearches.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete saved search: %w", err)
	}
	return nil
}
