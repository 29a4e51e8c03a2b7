package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/store"
)

// recordColumns is the ordered list of columns selected in record queries.
// Must match the scan order in scanRecord.
const recordColumns = `id, entity_type, fields, created_at, updated_at, deleted_at, merged_into`

const activeRecord = `deleted_at IS NULL AND merged_into IS NULL`

func scanRecord(sc scanner) (*domain.Record, error) {
	var r domain.Record

	var (
		entityType string
		fields     string
		createdAt  string
		updatedAt  string
		deletedAt  sql.NullString
		mergedInto sql.NullString
	)

	err := sc.Scan(
		&r.ID,
		&entityType,
		&fields,
		&createdAt,
		&updatedAt,
		&deletedAt,
		&mergedInto,
	)
	if err != nil {
		return nil, err
	}

	r.EntityType = domain.EntityType(entityType)
	r.MergedInto = mergedInto.String
	if err := json.Unmarshal([]byte(fields), &r.Fields); err != nil {
		return nil, fmt.Errorf("decode fields of record %s: %w", r.ID, err)
	}
	if r.Fields == nil {
		r.Fields = map[string]string{}
	}

	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if r.DeletedAt, err = parseNullableTime(deletedAt); err != nil {
		return nil, err
	}

	return &r, nil
}

func encodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		return "{}", nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}
	return string(data), nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRecord(ctx context.Context, db execer, r *domain.Record) error {
	fields, err := encodeFields(r.Fields)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (id, entity_type, fields, created_at, updated_at, deleted_at, merged_into)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		string(r.EntityType),
		fields,
		formatTime(r.CreatedAt),
		formatTime(r.UpdatedAt),
		nullTimeString(r.DeletedAt),
		nullString(r.MergedInto),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("record " + r.ID + " already exists")
	}
	return err
}

// CreateRecord inserts a new record.
// Returns store.ErrAlreadyExists on duplicate ID.
func (s *Store) CreateRecord(ctx context.Context, r *domain.Record) error {
	return insertRecord(ctx, s.db, r)
}

// CreateRecords inserts a batch of records in one transaction. Either every
// record is written or none is.
func (s *Store) CreateRecords(ctx context.Context, records []*domain.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := insertRecord(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("records imported", "count", len(records))
	return nil
}

// GetRecord retrieves a record by ID, whether active, deleted or merged away.
// Returns store.ErrNotFound if the record does not exist.
func (s *Store) GetRecord(ctx context.Context, recordID string) (*domain.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, recordID)

	r, err := scanRecord(row)
	if err != nil {
		return nil, notFound(err, "record")
	}
	return r, nil
}

// GetRecordsByIDs returns the records that exist among ids, ordered by ID.
// Missing IDs are skipped.
func (s *Store) GetRecordsByIDs(ctx context.Context, ids []string) ([]domain.Record, error) {
	if len(ids) == 0 {
		return []domain.Record{}, nil
	}

	args := make([]any, len(ids))
	for i, recordID := range ids {
		args[i] = recordID
	}
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id IN (`+placeholders(len(ids))+`) ORDER BY id`,
		args...)
}

// ListRecords returns every active record of an entity type ordered by ID.
// This is the snapshot duplicate scans run against.
func (s *Store) ListRecords(ctx context.Context, entityType domain.EntityType) ([]domain.Record, error) {
	return s.queryRecords(ctx,
		`SELECT `+recordColumns+` FROM records WHERE entity_type = ? AND `+activeRecord+` ORDER BY id`,
		string(entityType))
}

// CountRecords returns the number of active records of an entity type.
func (s *Store) CountRecords(ctx context.Context, entityType domain.EntityType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE entity_type = ? AND `+activeRecord,
		string(entityType)).Scan(&n)
	return n, err
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateRecordFields replaces the fields of an active record.
// Returns store.ErrNotFound if the record is missing, deleted or merged away.
func (s *Store) UpdateRecordFields(ctx context.Context, recordID string, fields map[string]string) (*domain.Record, error) {
	encoded, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = ? WHERE id = ? AND `+activeRecord,
		encoded, formatTime(time.Now()), recordID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrNotFound.WithMessage("record not found")
	}
	return s.GetRecord(ctx, recordID)
}

// DeleteRecord soft-deletes an active record.
// Returns store.ErrNotFound if the record is missing or already inactive.
func (s *Store) DeleteRecord(ctx context.Context, recordID string) error {
	now := formatTime(time.Now())
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET deleted_at = ?, updated_at = ? WHERE id = ? AND `+activeRecord,
		now, now, recordID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound.WithMessage("record not found")
	}
	return nil
}
