package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/id"
	"github.com/contactlyapp/contactly-server/internal/store"
)

const customFieldColumns = `id, entity_type, name, kind, options, rules, sort_order, required, created_at, updated_at`

// scanCustomFieldDefinition decodes the JSON option and rule columns into
// their typed forms so callers never see raw JSON.
func scanCustomFieldDefinition(sc scanner) (*domain.CustomFieldDefinition, error) {
	var d domain.CustomFieldDefinition

	var (
		entityType string
		kind       string
		options    string
		rules      string
		required   int
		createdAt  string
		updatedAt  string
	)

	err := sc.Scan(
		&d.ID,
		&entityType,
		&d.Name,
		&kind,
		&options,
		&rules,
		&d.SortOrder,
		&required,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	d.EntityType = domain.EntityType(entityType)
	d.Kind = domain.CustomFieldKind(kind)
	d.Required = required != 0

	if err := json.Unmarshal([]byte(options), &d.Options); err != nil {
		return nil, fmt.Errorf("decode options of %s: %w", d.ID, err)
	}
	if err := json.Unmarshal([]byte(rules), &d.Rules); err != nil {
		return nil, fmt.Errorf("decode rules of %s: %w", d.ID, err)
	}

	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateCustomFieldDefinition inserts a definition.
// Returns store.ErrAlreadyExists when the entity type already has a field of that name.
func (s *Store) CreateCustomFieldDefinition(ctx context.Context, d *domain.CustomFieldDefinition) error {
	options := d.Options
	if options == nil {
		options = []domain.SelectOption{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	rulesJSON, err := json.Marshal(d.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	required := 0
	if d.Required {
		required = 1
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_field_definitions (`+customFieldColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID,
		string(d.EntityType),
		d.Name,
		string(d.Kind),
		string(optionsJSON),
		string(rulesJSON),
		d.SortOrder,
		required,
		formatTime(d.CreatedAt),
		formatTime(d.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists.WithMessage("custom field " + d.Name + " already exists")
	}
	return err
}

// GetCustomFieldDefinition retrieves a definition by ID.
func (s *Store) GetCustomFieldDefinition(ctx context.Context, definitionID string) (*domain.CustomFieldDefinition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+customFieldColumns+` FROM custom_field_definitions WHERE id = ?`, definitionID)

	d, err := scanCustomFieldDefinition(row)
	if err != nil {
		return nil, notFound(err, "custom field")
	}
	return d, nil
}

// ListCustomFieldDefinitions returns an entity type's definitions in display order.
func (s *Store) ListCustomFieldDefinitions(ctx context.Context, entityType domain.EntityType) ([]*domain.CustomFieldDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+customFieldColumns+` FROM custom_field_definitions
		 WHERE entity_type = ? ORDER BY sort_order, name COLLATE NOCASE`,
		string(entityType))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	defs := []*domain.CustomFieldDefinition{}
	for rows.Next() {
		d, err := scanCustomFieldDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// SetCustomFieldValue stores value for the record under definitionID,
// replacing any earlier value. The value must already be validated.
func (s *Store) SetCustomFieldValue(ctx context.Context, definitionID, recordID, value string) (*domain.CustomFieldValue, error) {
	valueID, err := id.Generate(id.PrefixCustomFieldValue)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO custom_field_values (id, definition_id, record_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (definition_id, record_id)
		DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		valueID, definitionID, recordID, value, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("set custom field value: %w", err)
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, definition_id, record_id, value, updated_at
		FROM custom_field_values WHERE definition_id = ? AND record_id = ?`,
		definitionID, recordID)
	return scanCustomFieldValue(row)
}

func scanCustomFieldValue(sc scanner) (*domain.CustomFieldValue, error) {
	var (
		v         domain.CustomFieldValue
		updatedAt string
	)
	if err := sc.Scan(&v.ID, &v.DefinitionID, &v.RecordID, &v.Value, &updatedAt); err != nil {
		return nil, notFound(err, "custom field value")
	}
	var err error
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// ListCustomFieldValues returns a record's custom field values ordered by definition.
func (s *Store) ListCustomFieldValues(ctx context.Context, recordID string) ([]*domain.CustomFieldValue, error) {
	return s.queryCustomFieldValues(ctx, s.db, `
		SELECT v.id, v.definition_id, v.record_id, v.value, v.updated_at
		FROM custom_field_values v
		JOIN custom_field_definitions d ON d.id = v.definition_id
		WHERE v.record_id = ?
		ORDER BY d.sort_order, d.name COLLATE NOCASE`, recordID)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) queryCustomFieldValues(ctx context.Context, db querier, query string, args ...any) ([]*domain.CustomFieldValue, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []*domain.CustomFieldValue{}
	for rows.Next() {
		v, err := scanCustomFieldValue(rows)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}
