package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contactlyapp/contactly-server/internal/dedupe"
	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/id"
	"github.com/contactlyapp/contactly-server/internal/store"
)

// ApplyMergePlan persists a merge plan in a single transaction:
//   - the master's fields become the plan's fields
//   - each duplicate is soft-deleted and points at the master
//   - duplicate custom field values move to the master unless the master
//     already has a value for that field; the first duplicate in plan order wins
//   - a merge_history row records the plan
//
// If the master or any duplicate is no longer active, no longer of the
// plan's entity type, or was updated after the plan's snapshot, nothing is
// written and store.ErrNotFound is returned.
func (s *Store) ApplyMergePlan(ctx context.Context, plan *dedupe.MergePlan) (*domain.MergeHistory, error) {
	if plan == nil || plan.MasterID == "" || len(plan.DuplicateIDs) == 0 {
		return nil, store.ErrInvalidInput.WithMessage("merge plan needs a master and at least one duplicate")
	}

	historyID, err := id.Generate(id.PrefixMerge)
	if err != nil {
		return nil, err
	}
	fieldsJSON, err := encodeFields(plan.Fields)
	if err != nil {
		return nil, err
	}
	dupsJSON, err := json.Marshal(plan.DuplicateIDs)
	if err != nil {
		return nil, fmt.Errorf("encode duplicate ids: %w", err)
	}
	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := checkParticipants(ctx, tx, plan); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ts := formatTime(now)

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = ? WHERE id = ?`,
		fieldsJSON, ts, plan.MasterID); err != nil {
		return nil, fmt.Errorf("update master: %w", err)
	}

	for _, dupID := range plan.DuplicateIDs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET merged_into = ?, deleted_at = ?, updated_at = ? WHERE id = ?`,
			plan.MasterID, ts, ts, dupID); err != nil {
			return nil, fmt.Errorf("retire duplicate %s: %w", dupID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE custom_field_values SET record_id = ?, updated_at = ?
			WHERE record_id = ? AND definition_id NOT IN (
				SELECT definition_id FROM custom_field_values WHERE record_id = ?
			)`,
			plan.MasterID, ts, dupID, plan.MasterID); err != nil {
			return nil, fmt.Errorf("move custom field values of %s: %w", dupID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM custom_field_values WHERE record_id = ?`, dupID); err != nil {
			return nil, fmt.Errorf("drop custom field values of %s: %w", dupID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO merge_history (id, entity_type, master_id, duplicate_ids, fields, plan, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		historyID,
		string(plan.EntityType),
		plan.MasterID,
		string(dupsJSON),
		fieldsJSON,
		string(planJSON),
		ts,
	); err != nil {
		return nil, fmt.Errorf("insert merge history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("merge applied",
		"merge_id", historyID,
		"master_id", plan.MasterID,
		"duplicates", len(plan.DuplicateIDs),
	)

	return &domain.MergeHistory{
		ID:           historyID,
		EntityType:   plan.EntityType,
		MasterID:     plan.MasterID,
		DuplicateIDs: append([]string(nil), plan.DuplicateIDs...),
		Fields:       plan.Fields,
		AppliedAt:    now,
	}, nil
}

// checkParticipants runs inside the merge transaction, so a participant
// edited or retired after it passes cannot slip in before the write.
func checkParticipants(ctx context.Context, tx *sql.Tx, plan *dedupe.MergePlan) error {
	ids := append([]string{plan.MasterID}, plan.DuplicateIDs...)
	for _, rid := range ids {
		if _, ok := plan.Versions[rid]; !ok {
			return store.ErrInvalidInput.WithMessage(fmt.Sprintf("merge plan has no version for %s", rid))
		}
	}

	args := append([]any{string(plan.EntityType)}, toAny(ids)...)
	rows, err := tx.QueryContext(ctx,
		`SELECT id, updated_at FROM records WHERE entity_type = ? AND `+activeRecord+
			` AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return fmt.Errorf("check merge participants: %w", err)
	}
	defer rows.Close()

	current := make(map[string]time.Time, len(ids))
	for rows.Next() {
		var rid, updatedAt string
		if err := rows.Scan(&rid, &updatedAt); err != nil {
			return fmt.Errorf("check merge participants: %w", err)
		}
		t, err := parseTime(updatedAt)
		if err != nil {
			return err
		}
		current[rid] = t
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("check merge participants: %w", err)
	}

	for _, rid := range ids {
		t, ok := current[rid]
		if !ok {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("merge participant %s is no longer active", rid))
		}
		if !t.Equal(plan.Versions[rid]) {
			return store.ErrNotFound.WithMessage(fmt.Sprintf("merge participant %s changed since the plan was computed", rid))
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ListMergeHistory returns the merges folded into a master, oldest first.
func (s *Store) ListMergeHistory(ctx context.Context, masterID string) ([]*domain.MergeHistory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, master_id, duplicate_ids, fields, applied_at
		FROM merge_history WHERE master_id = ? ORDER BY applied_at, id`, masterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := []*domain.MergeHistory{}
	for rows.Next() {
		var (
			h          domain.MergeHistory
			entityType string
			dups       string
			fields     string
			appliedAt  string
		)
		if err := rows.Scan(&h.ID, &entityType, &h.MasterID, &dups, &fields, &appliedAt); err != nil {
			return nil, err
		}
		h.EntityType = domain.EntityType(entityType)
		if err := json.Unmarshal([]byte(dups), &h.DuplicateIDs); err != nil {
			return nil, fmt.Errorf("decode duplicate ids of %s: %w", h.ID, err)
		}
		if err := json.Unmarshal([]byte(fields), &h.Fields); err != nil {
			return nil, fmt.Errorf("decode fields of %s: %w", h.ID, err)
		}
		if h.AppliedAt, err = parseTime(appliedAt); err != nil {
			return nil, err
		}
		history = append(history, &h)
	}
	return history, rows.Err()
}
