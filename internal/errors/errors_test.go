package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := InvalidSensitivity("Extreme")

	assert.True(t, Is(err, ErrInvalidSensitivity))
	assert.False(t, Is(err, ErrEmptyFieldSet))

	wrapped := fmt.Errorf("scan: %w", err)
	assert.True(t, Is(wrapped, ErrInvalidSensitivity))
}

func TestRecordNotFound_AlsoInvalidMergeRequest(t *testing.T) {
	err := RecordNotFound("con-1")

	assert.True(t, Is(err, ErrRecordNotFound))
	assert.True(t, Is(err, ErrInvalidMergeRequest))
	assert.Equal(t, http.StatusNotFound, err.HTTPStatus())
	assert.Equal(t, map[string]string{"record_id": "con-1"}, err.Details)
	assert.Equal(t, "record con-1 not found", err.Error())

	// The implication runs one way only.
	assert.False(t, Is(InvalidMergeRequest("bad"), ErrRecordNotFound))
}

func TestScanCanceled_UnwrapsContextError(t *testing.T) {
	err := ScanCanceled(context.DeadlineExceeded)

	assert.True(t, Is(err, ErrScanCanceled))
	assert.True(t, Is(err, context.DeadlineExceeded))
	assert.Equal(t, http.StatusServiceUnavailable, err.GetStatus())
}

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeRecordNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeInvalidSensitivity, http.StatusBadRequest},
		{CodeUnsupportedEntityType, http.StatusBadRequest},
		{CodeEmptyFieldSet, http.StatusBadRequest},
		{CodeInvalidMergeRequest, http.StatusBadRequest},
		{CodeScanCanceled, http.StatusServiceUnavailable},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "at least one field is required", EmptyFieldSet().Error())

	wrapped := Wrap(fmt.Errorf("disk full"), CodeInternal, "save record")
	assert.Equal(t, "save record: disk full", wrapped.Error())
}

func TestError_WithDetailsKeepsCode(t *testing.T) {
	err := ErrValidation.WithDetails(map[string]string{"name": "required"})

	assert.Equal(t, CodeValidation, err.Code)
	assert.NotNil(t, err.Details)
	assert.Nil(t, ErrValidation.Details, "sentinel must not be mutated")
}
