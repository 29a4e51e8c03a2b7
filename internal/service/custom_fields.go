package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/id"
	"github.com/contactlyapp/contactly-server/internal/store"
	"github.com/contactlyapp/contactly-server/internal/validation"
)

// CustomFieldService manages user-defined fields on Contacts and Companies.
type CustomFieldService struct {
	store     CustomFieldStore
	logger    *slog.Logger
	validator *validation.Validator
}

// NewCustomFieldService creates a new custom field service.
func NewCustomFieldService(store CustomFieldStore, logger *slog.Logger) *CustomFieldService {
	return &CustomFieldService{
		store:     store,
		logger:    logger,
		validator: validation.New(),
	}
}

// CreateCustomFieldRequest contains fields for defining a custom field.
type CreateCustomFieldRequest struct {
	EntityType string                 `json:"entity_type" validate:"required"`
	Name       string                 `json:"name" validate:"required,notblank,max=100"`
	Kind       domain.CustomFieldKind `json:"kind" validate:"required,oneof=text number date boolean email select"`
	Options    []domain.SelectOption  `json:"options,omitempty" validate:"omitempty,max=200,dive"`
	Rules      domain.ValidationRules `json:"rules"`
	SortOrder  int                    `json:"sort_order"`
	Required   bool                   `json:"required"`
}

// CreateDefinition defines a new custom field.
func (s *CustomFieldService) CreateDefinition(ctx context.Context, req CreateCustomFieldRequest) (*domain.CustomFieldDefinition, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	entityType, err := domain.ParseEntityType(req.EntityType)
	if err != nil {
		return nil, err
	}

	definitionID, err := id.Generate(id.PrefixCustomField)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	def := &domain.CustomFieldDefinition{
		ID:         definitionID,
		EntityType: entityType,
		Name:       req.Name,
		Kind:       req.Kind,
		Options:    req.Options,
		Rules:      req.Rules,
		SortOrder:  req.SortOrder,
		Required:   req.Required,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := def.Validate(); err != nil {
		return nil, domainerrors.ValidationWithDetails("invalid custom field", map[string]string{"definition": err.Error()})
	}

	if err := s.store.CreateCustomFieldDefinition(ctx, def); err != nil {
		return nil, storeError(err, "custom field")
	}

	s.logger.Info("custom field created", "id", def.ID, "entity_type", entityType, "name", def.Name, "kind", def.Kind)
	return def, nil
}

// ListDefinitions returns an entity type's custom fields in display order.
func (s *CustomFieldService) ListDefinitions(ctx context.Context, entityType string) ([]*domain.CustomFieldDefinition, error) {
	et, err := domain.ParseEntityType(entityType)
	if err != nil {
		return nil, err
	}
	return s.store.ListCustomFieldDefinitions(ctx, et)
}

// SetValueRequest carries a raw custom field value.
type SetValueRequest struct {
	Value string `json:"value"`
}

// SetValue validates value against the definition and stores it on the record.
func (s *CustomFieldService) SetValue(ctx context.Context, recordID, definitionID string, req SetValueRequest) (*domain.CustomFieldValue, error) {
	def, err := s.store.GetCustomFieldDefinition(ctx, definitionID)
	if err != nil {
		return nil, storeError(err, "custom field")
	}

	r, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFoundf("record %s not found", recordID)
		}
		return nil, err
	}
	if !r.IsActive() {
		return nil, domainerrors.Conflictf("record %s is no longer active", recordID)
	}
	if r.EntityType != def.EntityType {
		return nil, domainerrors.Validationf("custom field %s applies to %s records, not %s", def.Name, def.EntityType, r.EntityType)
	}

	if err := def.ValidateValue(req.Value); err != nil {
		return nil, domainerrors.ValidationWithDetails("invalid value", map[string]string{def.Name: err.Error()})
	}

	v, err := s.store.SetCustomFieldValue(ctx, definitionID, recordID, req.Value)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("custom field value set", "record_id", recordID, "field", def.Name)
	return v, nil
}

// ListValues returns a record's custom field values.
func (s *CustomFieldService) ListValues(ctx context.Context, recordID string) ([]*domain.CustomFieldValue, error) {
	return s.store.ListCustomFieldValues(ctx, recordID)
}
