package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/service"
)

func (s *Server) registerSavedSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createSavedSearch",
		Method:        http.MethodPost,
		Path:          "/api/v1/saved-searches",
		Summary:       "Create saved search",
		Description:   "Stores a named record filter for one entity type",
		Tags:          []string{"Saved Searches"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateSavedSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedSearches",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved-searches",
		Summary:     "List saved searches",
		Description: "Returns saved searches, optionally for one entity type",
		Tags:        []string{"Saved Searches"},
	}, s.handleListSavedSearches)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSavedSearch",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved-searches/{id}",
		Summary:     "Get saved search",
		Description: "Returns a saved search by ID",
		Tags:        []string{"Saved Searches"},
	}, s.handleGetSavedSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSavedSearch",
		Method:      http.MethodPut,
		Path:        "/api/v1/saved-searches/{id}",
		Summary:     "Update saved search",
		Description: "Replaces a saved search's name, entity type and criteria",
		Tags:        []string{"Saved Searches"},
	}, s.handleUpdateSavedSearch)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSavedSearch",
		Method:      http.MethodDelete,
		Path:        "/api/v1/saved-searches/{id}",
		Summary:     "Delete saved search",
		Description: "Deletes a saved search",
		Tags:        []string{"Saved Searches"},
	}, s.handleDeleteSavedSearch)
}

// === DTOs ===

// SavedSearchBody is the request body for creating or replacing a saved search.
type SavedSearchBody struct {
	Name       string                `json:"name" doc:"Display name, unique per entity type"`
	EntityType string                `json:"entity_type" doc:"Contact or Company"`
	Criteria   domain.SearchCriteria `json:"criteria" doc:"Conditions records must match"`
}

func (b SavedSearchBody) request() service.SavedSearchRequest {
	return service.SavedSearchRequest{
		Name:       b.Name,
		EntityType: b.EntityType,
		Criteria:   b.Criteria,
	}
}

// CreateSavedSearchInput wraps the create request for Huma.
type CreateSavedSearchInput struct {
	Body SavedSearchBody
}

// UpdateSavedSearchInput wraps the update request for Huma.
type UpdateSavedSearchInput struct {
	ID   string `path:"id" doc:"Saved search ID"`
	Body SavedSearchBody
}

// SavedSearchIDInput identifies a saved search by path.
type SavedSearchIDInput struct {
	ID string `path:"id" doc:"Saved search ID"`
}

// ListSavedSearchesInput contains parameters for listing saved searches.
type ListSavedSearchesInput struct {
	EntityType string `query:"entity_type" doc:"Contact or Company; empty lists all"`
}

// SavedSearchOutput wraps a saved search for Huma.
type SavedSearchOutput struct {
	Body *domain.SavedSearch
}

// SavedSearchListResponse contains saved searches.
type SavedSearchListResponse struct {
	SavedSearches []*domain.SavedSearch `json:"saved_searches" doc:"Saved searches"`
}

// SavedSearchListOutput wraps the saved search list for Huma.
type SavedSearchListOutput struct {
	Body SavedSearchListResponse
}

// === Handlers ===

func (s *Server) handleCreateSavedSearch(ctx context.Context, input *CreateSavedSearchInput) (*SavedSearchOutput, error) {
	ss, err := s.services.SavedSearches.Create(ctx, input.Body.request())
	if err != nil {
		return nil, err
	}
	return &SavedSearchOutput{Body: ss}, nil
}

func (s *Server) handleListSavedSearches(ctx context.Context, input *ListSavedSearchesInput) (*SavedSearchListOutput, error) {
	list, err := s.services.SavedSearches.List(ctx, input.EntityType)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*domain.SavedSearch{}
	}
	return &SavedSearchListOutput{Body: SavedSearchListResponse{SavedSearches: list}}, nil
}

func (s *Server) handleGetSavedSearch(ctx context.Context, input *SavedSearchIDInput) (*SavedSearchOutput, error) {
	ss, err := s.services.SavedSearches.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SavedSearchOutput{Body: ss}, nil
}

func (s *Server) handleUpdateSavedSearch(ctx context.Context, input *UpdateSavedSearchInput) (*SavedSearchOutput, error) {
	ss, err := s.services.SavedSearches.Update(ctx, input.ID, input.Body.request())
	if err != nil {
		return nil, err
	}
	return &SavedSearchOutput{Body: ss}, nil
}

func (s *Server) handleDeleteSavedSearch(ctx context.Context, input *SavedSearchIDInput) (*struct{}, error) {
	if err := s.services.SavedSearches.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}
