package dedupe

import (
	"slices"
	"strings"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

// FieldConflict records a non-empty duplicate value the plan discards.
type FieldConflict struct {
	Field        string `json:"field"`
	KeptValue    string `json:"kept_value"`
	KeptFrom     string `json:"kept_from"`
	DroppedValue string `json:"dropped_value"`
	DroppedFrom  string `json:"dropped_from"`
}

// MergePlan describes how to fold duplicates into a master record.
// Applying it is the storage layer's job.
type MergePlan struct {
	Fields       map[string]string `json:"fields"`
	FieldSources map[string]string `json:"field_sources"` // field -> record ID that supplied the value
	EntityType   domain.EntityType `json:"entity_type"`
	MasterID     string            `json:"master_id"`
	DuplicateIDs []string          `json:"duplicate_ids"`
	Conflicts    []FieldConflict   `json:"conflicts"`

	// UpdatedAt of every participant in the snapshot the plan was built
	// from. Applying the plan fails if any of them has moved on.
	Versions map[string]time.Time `json:"versions"`
}

// Resolve validates a merge request against a record snapshot and computes
// the merged field values.
//
// For every field present on any participant the master's value wins when
// non-blank; otherwise the first non-blank duplicate value in the given order
// is used. Fields blank everywhere are left out.
func Resolve(masterID string, duplicateIDs []string, recordsByID map[string]*domain.Record) (*MergePlan, error) {
	if len(duplicateIDs) == 0 {
		return nil, domainerrors.InvalidMergeRequest("at least one duplicate id is required")
	}
	seen := make(map[string]bool, len(duplicateIDs))
	for _, id := range duplicateIDs {
		if id == masterID {
			return nil, domainerrors.InvalidMergeRequestf("master %s cannot also be a duplicate", masterID)
		}
		if seen[id] {
			return nil, domainerrors.InvalidMergeRequestf("duplicate id %s listed more than once", id)
		}
		seen[id] = true
	}

	master, ok := recordsByID[masterID]
	if !ok || master == nil {
		return nil, domainerrors.RecordNotFound(masterID)
	}
	dups := make([]*domain.Record, 0, len(duplicateIDs))
	for _, id := range duplicateIDs {
		r, ok := recordsByID[id]
		if !ok || r == nil {
			return nil, domainerrors.RecordNotFound(id)
		}
		if r.EntityType != master.EntityType {
			return nil, domainerrors.InvalidMergeRequestf(
				"record %s is a %s, master %s is a %s", id, r.EntityType, masterID, master.EntityType)
		}
		dups = append(dups, r)
	}

	plan := &MergePlan{
		EntityType:   master.EntityType,
		MasterID:     masterID,
		DuplicateIDs: slices.Clone(duplicateIDs),
		Fields:       make(map[string]string),
		FieldSources: make(map[string]string),
		Conflicts:    []FieldConflict{},
		Versions:     map[string]time.Time{masterID: master.UpdatedAt},
	}
	for _, d := range dups {
		plan.Versions[d.ID] = d.UpdatedAt
	}

	for _, field := range fieldUnion(master, dups) {
		value, source := master.Field(field), masterID
		if isBlank(value) {
			value, source = "", ""
			for _, d := range dups {
				if v := d.Field(field); !isBlank(v) {
					value, source = v, d.ID
					break
				}
			}
		}
		if source == "" {
			continue
		}
		plan.Fields[field] = value
		plan.FieldSources[field] = source

		for _, d := range dups {
			v := d.Field(field)
			if d.ID == source || isBlank(v) || strings.TrimSpace(v) == strings.TrimSpace(value) {
				continue
			}
			plan.Conflicts = append(plan.Conflicts, FieldConflict{
				Field:        field,
				KeptValue:    value,
				KeptFrom:     source,
				DroppedValue: v,
				DroppedFrom:  d.ID,
			})
		}
	}

	return plan, nil
}

// IndexRecords keys a snapshot by record ID.
func IndexRecords(records []domain.Record) map[string]*domain.Record {
	byID := make(map[string]*domain.Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}
	return byID
}

func fieldUnion(master *domain.Record, dups []*domain.Record) []string {
	set := make(map[string]struct{}, len(master.Fields))
	for f := range master.Fields {
		set[f] = struct{}{}
	}
	for _, d := range dups {
		for f := range d.Fields {
			set[f] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
