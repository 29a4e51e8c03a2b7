package service

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/contactlyapp/contactly-server/internal/config"
	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/search"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/validation"
)

// checkFields are compared when a check request names no fields. Only the
// ones the probe actually fills are used, since a blank field scores 0.
var checkFields = []string{domain.FieldEmail, domain.FieldPhone, domain.FieldName}

func probeFields(probe *domain.Record) []string {
	var out []string
	for _, f := range checkFields {
		if strings.TrimSpace(probe.Field(f)) != "" {
			out = append(out, f)
		}
	}
	return out
}

// DuplicateService runs duplicate scans and merges.
type DuplicateService struct {
	records   RecordStore
	searches  SavedSearchStore
	index     CandidateIndexer
	grouper   *dedupe.Grouper
	cfg       config.DedupeConfig
	logger    *slog.Logger
	validator *validation.Validator
}

// NewDuplicateService creates a new duplicate service.
func NewDuplicateService(
	records RecordStore,
	searches SavedSearchStore,
	index CandidateIndexer,
	cfg config.DedupeConfig,
	logger *slog.Logger,
) *DuplicateService {
	return &DuplicateService{
		records:   records,
		searches:  searches,
		index:     index,
		grouper:   dedupe.NewGrouper(logger, cfg.Thresholds),
		cfg:       cfg,
		logger:    logger,
		validator: validation.New(),
	}
}

// ScanRequest asks for duplicate groups among one entity type's records.
type ScanRequest struct {
	EntityType    string   `json:"entity_type" validate:"required"`
	Fields        []string `json:"fields"`
	Sensitivity   string   `json:"sensitivity" validate:"required"`
	SavedSearchID string   `json:"saved_search_id,omitempty"`
}

// ScanResult is the outcome of one scan. ScanID correlates logs and
// responses; group IDs are only meaningful within it.
type ScanResult struct {
	ScanID      string                  `json:"scan_id"`
	EntityType  domain.EntityType       `json:"entity_type"`
	Sensitivity dedupe.Sensitivity      `json:"sensitivity"`
	Threshold   float64                 `json:"threshold"`
	RecordCount int                     `json:"record_count"`
	Groups      []dedupe.DuplicateGroup `json:"groups"`
}

// Scan groups the active records of an entity type into duplicate clusters.
// A saved search, when given, narrows the snapshot before grouping.
func (s *DuplicateService) Scan(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	sensitivity, err := dedupe.ParseSensitivity(req.Sensitivity)
	if err != nil {
		return nil, err
	}
	fields, err := dedupe.NewFieldSet(req.Fields)
	if err != nil {
		return nil, err
	}

	var criteria *domain.SearchCriteria
	if req.SavedSearchID != "" {
		if criteria, err = resolveCriteria(ctx, s.searches, entityType, req.SavedSearchID, nil); err != nil {
			return nil, err
		}
	}

	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}

	scanID := uuid.NewString()
	logger := s.logger.With("scan_id", scanID)

	records, err := s.records.ListRecords(ctx, entityType)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, domainerrors.ScanCanceled(ctxErr)
		}
		return nil, err
	}
	if criteria != nil {
		records = filterRecords(records, criteria)
	}

	groups, err := s.grouper.Group(ctx, records, fields, sensitivity, dedupe.GroupOptions{
		Workers:    s.cfg.Workers,
		MaxRecords: s.cfg.MaxRecords,
	})
	if err != nil {
		logger.Warn("duplicate scan failed", "entity_type", entityType, "error", err)
		return nil, err
	}

	logger.Info("duplicate scan finished",
		"entity_type", entityType,
		"sensitivity", sensitivity,
		"fields", []string(fields),
		"records", len(records),
		"groups", len(groups),
	)

	return &ScanResult{
		ScanID:      scanID,
		EntityType:  entityType,
		Sensitivity: sensitivity,
		Threshold:   s.grouper.Threshold(sensitivity),
		RecordCount: len(records),
		Groups:      groups,
	}, nil
}

// MergeRequest names a master record and the duplicates to fold into it.
type MergeRequest struct {
	EntityType   string   `json:"entity_type" validate:"required"`
	MasterID     string   `json:"master_id"`
	DuplicateIDs []string `json:"duplicate_ids"`
}

// Merge computes the merge plan without persisting anything.
func (s *DuplicateService) Merge(ctx context.Context, req MergeRequest) (*dedupe.MergePlan, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListRecords(ctx, entityType)
	if err != nil {
		return nil, err
	}
	return dedupe.Resolve(req.MasterID, req.DuplicateIDs, dedupe.IndexRecords(records))
}

// MergeResult is an applied merge.
type MergeResult struct {
	Plan    *dedupe.MergePlan    `json:"plan"`
	History *domain.MergeHistory `json:"history"`
	Master  *domain.Record       `json:"master"`
}

// ApplyMerge computes the plan from a fresh snapshot and persists it.
// If a participant changed between the snapshot and the write, the merge
// is rejected with a conflict and nothing is stored.
func (s *DuplicateService) ApplyMerge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	plan, err := s.Merge(ctx, req)
	if err != nil {
		return nil, err
	}

	history, err := s.records.ApplyMergePlan(ctx, plan)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.Conflict("merge participants changed, rescan and retry").WithCause(err)
		}
		return nil, err
	}

	master, err := s.records.GetRecord(ctx, plan.MasterID)
	if err != nil {
		return nil, err
	}
	if err := s.index.Index(ctx, master); err != nil {
		s.logger.Warn("failed to reindex merge master", "id", master.ID, "error", err)
	}
	if err := s.index.Delete(ctx, plan.DuplicateIDs...); err != nil {
		s.logger.Warn("failed to drop merged duplicates from candidate index", "error", err)
	}

	return &MergeResult{Plan: plan, History: history, Master: master}, nil
}

// CheckRequest asks whether a record, existing or proposed, already has
// duplicates. Either RecordID or Fields must be set.
type CheckRequest struct {
	EntityType    string            `json:"entity_type" validate:"required"`
	RecordID      string            `json:"record_id,omitempty" validate:"required_without=Fields"`
	Fields        map[string]string `json:"fields,omitempty" validate:"required_without=RecordID"`
	CompareFields []string          `json:"compare_fields,omitempty"`
	Sensitivity   string            `json:"sensitivity" validate:"required"`
	Limit         int               `json:"limit,omitempty" validate:"gte=0,lte=200"`
}

// CheckMatch is one likely duplicate.
type CheckMatch struct {
	Record *domain.Record `json:"record"`
	Score  float64        `json:"score"`
}

// CheckResult lists likely duplicates, best first.
type CheckResult struct {
	Threshold float64      `json:"threshold"`
	Matches   []CheckMatch `json:"matches"`
}

// Check scores a probe record against existing records of its type and keeps
// those whose similarity reaches the sensitivity threshold.
func (s *DuplicateService) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}
	sensitivity, err := dedupe.ParseSensitivity(req.Sensitivity)
	if err != nil {
		return nil, err
	}
	probe := &domain.Record{EntityType: entityType, Fields: cleanFields(req.Fields)}
	if req.RecordID != "" {
		if probe, err = s.records.GetRecord(ctx, req.RecordID); err != nil {
			return nil, storeError(err, "record")
		}
		if probe.EntityType != entityType {
			return nil, domainerrors.Validationf("record %s is a %s", probe.ID, probe.EntityType)
		}
	}

	compare := req.CompareFields
	if len(compare) == 0 {
		compare = probeFields(probe)
	}
	fields, err := dedupe.NewFieldSet(compare)
	if err != nil {
		return nil, err
	}

	records, err := s.checkPool(ctx, entityType, probe, fields, sensitivity)
	if err != nil {
		return nil, err
	}

	threshold := s.grouper.Threshold(sensitivity)
	result := &CheckResult{Threshold: threshold, Matches: []CheckMatch{}}
	for i := range records {
		r := &records[i]
		if !r.IsActive() || r.EntityType != entityType || r.ID == probe.ID {
			continue
		}
		if score := dedupe.Score(probe, r, fields, sensitivity); score >= threshold {
			result.Matches = append(result.Matches, CheckMatch{Record: r, Score: score})
		}
	}
	slices.SortFunc(result.Matches, func(a, b CheckMatch) int {
		return cmp.Or(cmp.Compare(b.Score, a.Score), cmp.Compare(a.Record.ID, b.Record.ID))
	})
	if req.Limit > 0 && len(result.Matches) > req.Limit {
		result.Matches = result.Matches[:req.Limit]
	}
	return result, nil
}

// exactKeyFields are indexed as whole terms, so an exact match on them is
// always a candidate hit. Name is not: fuzzy name lookups skip short tokens.
var exactKeyFields = []string{domain.FieldEmail, domain.FieldPhone}

// checkPool returns the records a probe is scored against. At High every
// compared field must match exactly, so when all of them are exact keys the
// candidate index narrows the pool without losing matches. Any other request
// can match values the index never returns and scores the full snapshot,
// the same set Scan groups.
func (s *DuplicateService) checkPool(ctx context.Context, entityType domain.EntityType, probe *domain.Record, fields dedupe.FieldSet, sensitivity dedupe.Sensitivity) ([]domain.Record, error) {
	narrow := sensitivity == dedupe.High
	for _, f := range fields {
		if !slices.Contains(exactKeyFields, f) {
			narrow = false
			break
		}
	}
	if !narrow {
		return s.records.ListRecords(ctx, entityType)
	}

	candidates, err := s.index.FindCandidates(ctx, entityType, probe, search.DefaultCandidateLimit)
	if err != nil {
		return nil, err
	}
	if len(candidates) == search.DefaultCandidateLimit {
		// Possibly truncated; exact matches may rank below fuzzy name hits.
		return s.records.ListRecords(ctx, entityType)
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	return s.records.GetRecordsByIDs(ctx, ids)
}

// ReindexAll rebuilds candidate index entries for every active record.
func (s *DuplicateService) ReindexAll(ctx context.Context) (int, error) {
	total := 0
	for _, et := range domain.EntityTypes {
		records, err := s.records.ListRecords(ctx, et)
		if err != nil {
			return total, err
		}
		if err := s.index.IndexRecords(ctx, records); err != nil {
			return total, err
		}
		total += len(records)
	}
	s.logger.Info("candidate index rebuilt", "records", total)
	return total, nil
}
