package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/service"
)

func (s *Server) registerDuplicateRoutes() {
	limited := huma.Middlewares{s.rateLimited}

	huma.Register(s.api, huma.Operation{
		OperationID: "scanDuplicates",
		Method:      http.MethodPost,
		Path:        "/api/v1/duplicates/scan",
		Summary:     "Scan for duplicates",
		Description: "Groups the active records of one entity type into duplicate clusters",
		Tags:        []string{"Duplicates"},
		Middlewares: limited,
	}, s.handleScanDuplicates)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkDuplicates",
		Method:      http.MethodPost,
		Path:        "/api/v1/duplicates/check",
		Summary:     "Check a record for duplicates",
		Description: "Returns likely duplicates of an existing or proposed record",
		Tags:        []string{"Duplicates"},
		Middlewares: limited,
	}, s.handleCheckDuplicates)

	huma.Register(s.api, huma.Operation{
		OperationID: "previewMerge",
		Method:      http.MethodPost,
		Path:        "/api/v1/duplicates/merge/preview",
		Summary:     "Preview merge",
		Description: "Computes the merged field values without writing anything",
		Tags:        []string{"Duplicates"},
		Middlewares: limited,
	}, s.handlePreviewMerge)

	huma.Register(s.api, huma.Operation{
		OperationID: "applyMerge",
		Method:      http.MethodPost,
		Path:        "/api/v1/duplicates/merge",
		Summary:     "Merge duplicates",
		Description: "Folds duplicates into the master record and retires them",
		Tags:        []string{"Duplicates"},
		Middlewares: limited,
	}, s.handleApplyMerge)
}

// === DTOs ===

// ScanDuplicatesInput wraps the scan request for Huma.
type ScanDuplicatesInput struct {
	Body struct {
		EntityType    string   `json:"entity_type" doc:"Contact or Company"`
		Fields        []string `json:"fields" doc:"Fields compared between records, e.g. Email, Phone, Name"`
		Sensitivity   string   `json:"sensitivity" doc:"High, Medium or Low"`
		SavedSearchID string   `json:"saved_search_id,omitempty" doc:"Restrict the scan to records matching this saved search"`
	}
}

// ScanDuplicatesOutput wraps the scan result for Huma.
type ScanDuplicatesOutput struct {
	Body *service.ScanResult
}

// CheckDuplicatesInput wraps the check request for Huma.
type CheckDuplicatesInput struct {
	Body struct {
		EntityType    string            `json:"entity_type" doc:"Contact or Company"`
		RecordID      string            `json:"record_id,omitempty" doc:"Existing record to check"`
		Fields        map[string]string `json:"fields,omitempty" doc:"Proposed record values, used when no record_id is given"`
		CompareFields []string          `json:"compare_fields,omitempty" doc:"Fields to compare; defaults to the filled Email, Phone and Name"`
		Sensitivity   string            `json:"sensitivity" doc:"High, Medium or Low"`
		Limit         int               `json:"limit,omitempty" doc:"Maximum matches to return"`
	}
}

// CheckDuplicatesOutput wraps the check result for Huma.
type CheckDuplicatesOutput struct {
	Body *service.CheckResult
}

// MergeInput wraps a merge request for Huma.
type MergeInput struct {
	Body struct {
		EntityType   string   `json:"entity_type" doc:"Contact or Company"`
		MasterID     string   `json:"master_id" doc:"Record that survives the merge"`
		DuplicateIDs []string `json:"duplicate_ids" doc:"Records folded into the master, in priority order"`
	}
}

func (in *MergeInput) request() service.MergeRequest {
	return service.MergeRequest{
		EntityType:   in.Body.EntityType,
		MasterID:     in.Body.MasterID,
		DuplicateIDs: in.Body.DuplicateIDs,
	}
}

// MergePlanOutput wraps a merge preview for Huma.
type MergePlanOutput struct {
	Body *dedupe.MergePlan
}

// MergeResultOutput wraps an applied merge for Huma.
type MergeResultOutput struct {
	Body *service.MergeResult
}

// === Handlers ===

func (s *Server) handleScanDuplicates(ctx context.Context, input *ScanDuplicatesInput) (*ScanDuplicatesOutput, error) {
	result, err := s.services.Duplicates.Scan(ctx, service.ScanRequest{
		EntityType:    input.Body.EntityType,
		Fields:        input.Body.Fields,
		Sensitivity:   input.Body.Sensitivity,
		SavedSearchID: input.Body.SavedSearchID,
	})
	if err != nil {
		return nil, err
	}
	return &ScanDuplicatesOutput{Body: result}, nil
}

func (s *Server) handleCheckDuplicates(ctx context.Context, input *CheckDuplicatesInput) (*CheckDuplicatesOutput, error) {
	result, err := s.services.Duplicates.Check(ctx, service.CheckRequest{
		EntityType:    input.Body.EntityType,
		RecordID:      input.Body.RecordID,
		Fields:        input.Body.Fields,
		CompareFields: input.Body.CompareFields,
		Sensitivity:   input.Body.Sensitivity,
		Limit:         input.Body.Limit,
	})
	if err != nil {
		return nil, err
	}
	return &CheckDuplicatesOutput{Body: result}, nil
}

func (s *Server) handlePreviewMerge(ctx context.Context, input *MergeInput) (*MergePlanOutput, error) {
	plan, err := s.services.Duplicates.Merge(ctx, input.request())
	if err != nil {
		return nil, err
	}
	return &MergePlanOutput{Body: plan}, nil
}

func (s *Server) handleApplyMerge(ctx context.Context, input *MergeInput) (*MergeResultOutput, error) {
	result, err := s.services.Duplicates.ApplyMerge(ctx, input.request())
	if err != nil {
		return nil, err
	}
	return &MergeResultOutput{Body: result}, nil
}
