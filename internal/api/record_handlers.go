package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/service"
)

func (s *Server) registerRecordRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createRecord",
		Method:        http.MethodPost,
		Path:          "/api/v1/records",
		Summary:       "Create record",
		Description:   "Creates a contact or company record",
		Tags:          []string{"Records"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "listRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/records",
		Summary:     "List records",
		Description: "Returns the active records of one entity type, ordered by ID",
		Tags:        []string{"Records"},
	}, s.handleListRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "importRecords",
		Method:      http.MethodPost,
		Path:        "/api/v1/records/import",
		Summary:     "Import records",
		Description: "Creates many records of one entity type in a single transaction",
		Tags:        []string{"Records"},
	}, s.handleImportRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchRecords",
		Method:      http.MethodPost,
		Path:        "/api/v1/records/search",
		Summary:     "Search records",
		Description: "Filters active records by a saved search or inline criteria",
		Tags:        []string{"Records"},
	}, s.handleSearchRecords)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecord",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}",
		Summary:     "Get record",
		Description: "Returns a record by ID, including merged and deleted records",
		Tags:        []string{"Records"},
	}, s.handleGetRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateRecord",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{id}",
		Summary:     "Update record",
		Description: "Replaces the fields of an active record",
		Tags:        []string{"Records"},
	}, s.handleUpdateRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteRecord",
		Method:      http.MethodDelete,
		Path:        "/api/v1/records/{id}",
		Summary:     "Delete record",
		Description: "Soft-deletes an active record",
		Tags:        []string{"Records"},
	}, s.handleDeleteRecord)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecordMerges",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}/merges",
		Summary:     "Get merge history",
		Description: "Lists merges that folded duplicates into this record",
		Tags:        []string{"Records"},
	}, s.handleGetRecordMerges)
}

// === DTOs ===

// RecordResponse contains record data in API responses.
type RecordResponse struct {
	ID         string            `json:"id" doc:"Record ID"`
	EntityType string            `json:"entity_type" doc:"Contact or Company"`
	Fields     map[string]string `json:"fields" doc:"Raw field values by field name"`
	MergedInto string            `json:"merged_into,omitempty" doc:"Master record ID once merged away"`
	CreatedAt  time.Time         `json:"created_at" doc:"Creation time"`
	UpdatedAt  time.Time         `json:"updated_at" doc:"Last update time"`
	DeletedAt  *time.Time        `json:"deleted_at,omitempty" doc:"Deletion or merge time"`
}

func recordResponse(r *domain.Record) RecordResponse {
	return RecordResponse{
		ID:         r.ID,
		EntityType: string(r.EntityType),
		Fields:     r.Fields,
		MergedInto: r.MergedInto,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		DeletedAt:  r.DeletedAt,
	}
}

func recordResponses(records []domain.Record) []RecordResponse {
	resp := make([]RecordResponse, len(records))
	for i := range records {
		resp[i] = recordResponse(&records[i])
	}
	return resp
}

// RecordOutput wraps a single record for Huma.
type RecordOutput struct {
	Body RecordResponse
}

// RecordListResponse contains a list of records.
type RecordListResponse struct {
	Records []RecordResponse `json:"records" doc:"Records"`
	Total   int              `json:"total" doc:"Number of records returned"`
}

// RecordListOutput wraps a record list for Huma.
type RecordListOutput struct {
	Body RecordListResponse
}

// CreateRecordInput wraps the create record request for Huma.
type CreateRecordInput struct {
	Body struct {
		EntityType string            `json:"entity_type" doc:"Contact or Company"`
		Fields     map[string]string `json:"fields" doc:"Field values by field name"`
	}
}

// ListRecordsInput contains parameters for listing records.
type ListRecordsInput struct {
	EntityType string `query:"entity_type" doc:"Contact or Company"`
}

// ImportRecordsInput wraps the import request for Huma.
type ImportRecordsInput struct {
	Body struct {
		EntityType string              `json:"entity_type" doc:"Contact or Company"`
		Rows       []map[string]string `json:"rows" doc:"Already parsed rows, one map per record"`
	}
}

// SearchRecordsInput wraps the search request for Huma.
type SearchRecordsInput struct {
	Body struct {
		EntityType    string                 `json:"entity_type" doc:"Contact or Company"`
		SavedSearchID string                 `json:"saved_search_id,omitempty" doc:"Saved search to apply"`
		Criteria      *domain.SearchCriteria `json:"criteria,omitempty" doc:"Inline criteria, used when no saved search is given"`
	}
}

// RecordIDInput identifies a record by path.
type RecordIDInput struct {
	ID string `path:"id" doc:"Record ID"`
}

// UpdateRecordInput wraps the update request for Huma.
type UpdateRecordInput struct {
	ID   string `path:"id" doc:"Record ID"`
	Body struct {
		Fields map[string]string `json:"fields" doc:"New field values; replaces all fields"`
	}
}

// MergeHistoryResponse lists the merges applied to a master record.
type MergeHistoryResponse struct {
	Merges []*domain.MergeHistory `json:"merges" doc:"Applied merges, oldest first"`
}

// MergeHistoryOutput wraps the merge history for Huma.
type MergeHistoryOutput struct {
	Body MergeHistoryResponse
}

// === Handlers ===

func (s *Server) handleCreateRecord(ctx context.Context, input *CreateRecordInput) (*RecordOutput, error) {
	r, err := s.services.Records.CreateRecord(ctx, service.CreateRecordRequest{
		EntityType: input.Body.EntityType,
		Fields:     input.Body.Fields,
	})
	if err != nil {
		return nil, err
	}
	return &RecordOutput{Body: recordResponse(r)}, nil
}

func (s *Server) handleListRecords(ctx context.Context, input *ListRecordsInput) (*RecordListOutput, error) {
	records, err := s.services.Records.ListRecords(ctx, input.EntityType)
	if err != nil {
		return nil, err
	}
	return &RecordListOutput{Body: RecordListResponse{Records: recordResponses(records), Total: len(records)}}, nil
}

func (s *Server) handleImportRecords(ctx context.Context, input *ImportRecordsInput) (*RecordListOutput, error) {
	imported, err := s.services.Records.ImportRecords(ctx, service.ImportRecordsRequest{
		EntityType: input.Body.EntityType,
		Rows:       input.Body.Rows,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]RecordResponse, len(imported))
	for i, r := range imported {
		resp[i] = recordResponse(r)
	}
	return &RecordListOutput{Body: RecordListResponse{Records: resp, Total: len(resp)}}, nil
}

func (s *Server) handleSearchRecords(ctx context.Context, input *SearchRecordsInput) (*RecordListOutput, error) {
	records, err := s.services.Records.SearchRecords(ctx, service.SearchRecordsRequest{
		EntityType:    input.Body.EntityType,
		SavedSearchID: input.Body.SavedSearchID,
		Criteria:      input.Body.Criteria,
	})
	if err != nil {
		return nil, err
	}
	return &RecordListOutput{Body: RecordListResponse{Records: recordResponses(records), Total: len(records)}}, nil
}

func (s *Server) handleGetRecord(ctx context.Context, input *RecordIDInput) (*RecordOutput, error) {
	r, err := s.services.Records.GetRecord(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &RecordOutput{Body: recordResponse(r)}, nil
}

func (s *Server) handleUpdateRecord(ctx context.Context, input *UpdateRecordInput) (*RecordOutput, error) {
	r, err := s.services.Records.UpdateRecord(ctx, input.ID, service.UpdateRecordRequest{Fields: input.Body.Fields})
	if err != nil {
		return nil, err
	}
	return &RecordOutput{Body: recordResponse(r)}, nil
}

func (s *Server) handleDeleteRecord(ctx context.Context, input *RecordIDInput) (*struct{}, error) {
	if err := s.services.Records.DeleteRecord(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleGetRecordMerges(ctx context.Context, input *RecordIDInput) (*MergeHistoryOutput, error) {
	merges, err := s.services.Records.MergeHistory(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if merges == nil {
		merges = []*domain.MergeHistory{}
	}
	return &MergeHistoryOutput{Body: MergeHistoryResponse{Merges: merges}}, nil
}
