package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/contactlyapp/contactly-server/internal/domain"
	"github.com/contactlyapp/contactly-server/internal/service"
)

func (s *Server) registerCustomFieldRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createCustomField",
		Method:        http.MethodPost,
		Path:          "/api/v1/custom-fields",
		Summary:       "Create custom field",
		Description:   "Defines a custom field for contacts or companies",
		Tags:          []string{"Custom Fields"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateCustomField)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCustomFields",
		Method:      http.MethodGet,
		Path:        "/api/v1/custom-fields",
		Summary:     "List custom fields",
		Description: "Returns an entity type's custom fields in display order",
		Tags:        []string{"Custom Fields"},
	}, s.handleListCustomFields)

	huma.Register(s.api, huma.Operation{
		OperationID: "setCustomFieldValue",
		Method:      http.MethodPut,
		Path:        "/api/v1/records/{id}/custom-fields/{fieldID}",
		Summary:     "Set custom field value",
		Description: "Validates and stores a custom field value on a record",
		Tags:        []string{"Custom Fields"},
	}, s.handleSetCustomFieldValue)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCustomFieldValues",
		Method:      http.MethodGet,
		Path:        "/api/v1/records/{id}/custom-fields",
		Summary:     "List custom field values",
		Description: "Returns a record's custom field values",
		Tags:        []string{"Custom Fields"},
	}, s.handleListCustomFieldValues)
}

// === DTOs ===

// CreateCustomFieldInput wraps the custom field definition for Huma.
type CreateCustomFieldInput struct {
	Body struct {
		EntityType string                 `json:"entity_type" doc:"Contact or Company"`
		Name       string                 `json:"name" doc:"Field name, unique per entity type"`
		Kind       string                 `json:"kind" enum:"text,number,date,boolean,email,select" doc:"Value kind"`
		Options    []domain.SelectOption  `json:"options,omitempty" doc:"Allowed values for select fields"`
		Rules      domain.ValidationRules `json:"rules,omitempty" doc:"Extra value constraints"`
		SortOrder  int                    `json:"sort_order,omitempty" doc:"Display order"`
		Required   bool                   `json:"required,omitempty" doc:"Whether a blank value is rejected"`
	}
}

// CustomFieldOutput wraps a custom field definition for Huma.
type CustomFieldOutput struct {
	Body *domain.CustomFieldDefinition
}

// ListCustomFieldsInput contains parameters for listing custom fields.
type ListCustomFieldsInput struct {
	EntityType string `query:"entity_type" doc:"Contact or Company"`
}

// CustomFieldListResponse contains custom field definitions.
type CustomFieldListResponse struct {
	Fields []*domain.CustomFieldDefinition `json:"fields" doc:"Custom field definitions"`
}

// CustomFieldListOutput wraps the definition list for Huma.
type CustomFieldListOutput struct {
	Body CustomFieldListResponse
}

// SetCustomFieldValueInput wraps a custom field value for Huma.
type SetCustomFieldValueInput struct {
	ID      string `path:"id" doc:"Record ID"`
	FieldID string `path:"fieldID" doc:"Custom field definition ID"`
	Body    struct {
		Value string `json:"value" doc:"Raw value, validated against the definition"`
	}
}

// CustomFieldValueOutput wraps a stored value for Huma.
type CustomFieldValueOutput struct {
	Body *domain.CustomFieldValue
}

// CustomFieldValuesResponse contains a record's custom field values.
type CustomFieldValuesResponse struct {
	Values []*domain.CustomFieldValue `json:"values" doc:"Custom field values"`
}

// CustomFieldValuesOutput wraps the value list for Huma.
type CustomFieldValuesOutput struct {
	Body CustomFieldValuesResponse
}

// === Handlers ===

func (s *Server) handleCreateCustomField(ctx context.Context, input *CreateCustomFieldInput) (*CustomFieldOutput, error) {
	def, err := s.services.CustomFields.CreateDefinition(ctx, service.CreateCustomFieldRequest{
		EntityType: input.Body.EntityType,
		Name:       input.Body.Name,
		Kind:       domain.CustomFieldKind(input.Body.Kind),
		Options:    input.Body.Options,
		Rules:      input.Body.Rules,
		SortOrder:  input.Body.SortOrder,
		Required:   input.Body.Required,
	})
	if err != nil {
		return nil, err
	}
	return &CustomFieldOutput{Body: def}, nil
}

func (s *Server) handleListCustomFields(ctx context.Context, input *ListCustomFieldsInput) (*CustomFieldListOutput, error) {
	defs, err := s.services.CustomFields.ListDefinitions(ctx, input.EntityType)
	if err != nil {
		return nil, err
	}
	if defs == nil {
		defs = []*domain.CustomFieldDefinition{}
	}
	return &CustomFieldListOutput{Body: CustomFieldListResponse{Fields: defs}}, nil
}

func (s *Server) handleSetCustomFieldValue(ctx context.Context, input *SetCustomFieldValueInput) (*CustomFieldValueOutput, error) {
	v, err := s.services.CustomFields.SetValue(ctx, input.ID, input.FieldID, service.SetValueRequest{Value: input.Body.Value})
	if err != nil {
		return nil, err
	}
	return &CustomFieldValueOutput{Body: v}, nil
}

func (s *Server) handleListCustomFieldValues(ctx context.Context, input *RecordIDInput) (*CustomFieldValuesOutput, error) {
	values, err := s.services.CustomFields.ListValues(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if values == nil {
		values = []*domain.CustomFieldValue{}
	}
	return &CustomFieldValuesOutput{Body: CustomFieldValuesResponse{Values: values}}, nil
}
