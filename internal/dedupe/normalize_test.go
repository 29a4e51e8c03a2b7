package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

func TestNormalize_Email(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		s    Sensitivity
		want string
	}{
		{"lowercase and trim", "  Jane.Doe@Example.COM ", High, "jane.doe@example.com"},
		{"high keeps tag", "jane+crm@example.com", High, "jane+crm@example.com"},
		{"medium strips tag", "jane+crm@example.com", Medium, "jane@example.com"},
		{"low strips tag", "Jane+News@Example.com", Low, "jane@example.com"},
		{"plus in domain untouched", "jane@ex+ample.com", Medium, "jane@ex+ample.com"},
		{"no at sign", "not an email", Medium, "not an email"},
		{"empty", "", Medium, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize("Email", tt.raw, tt.s))
		})
	}
}

func TestNormalize_Phone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		s    Sensitivity
		want string
	}{
		{"strips punctuation", "(555) 123-4567", High, "5551234567"},
		{"high keeps country code", "+1 555 123 4567", High, "15551234567"},
		{"medium drops country code", "+1 555 123 4567", Medium, "5551234567"},
		{"ten digits untouched", "555.123.4567", Low, "5551234567"},
		{"only one digit dropped", "+44 20 7946 09581", Medium, "420794609581"},
		{"no digits", "n/a", Medium, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize("Phone", tt.raw, tt.s))
		})
	}
}

func TestNormalize_Name(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		s    Sensitivity
		want string
	}{
		{"lowercase and collapse", "  Jane   DOE ", High, "jane doe"},
		{"punctuation removed", "Doe, Jane.", Medium, "doe jane"},
		{"apostrophe joins", "O'Brien", Medium, "obrien"},
		{"hyphen splits", "Mary-Kate Smith", Medium, "mary kate smith"},
		{"accents folded below high", "Zoë Renée", Medium, "zoe renee"},
		{"accents kept at high", "Zoë", High, "zoë"},
		{"low sorts tokens", "Doe, Jane", Low, "doe jane"},
		{"low sorts first last", "Jane Doe", Low, "doe jane"},
		{"medium keeps order", "Jane Doe", Medium, "jane doe"},
		{"empty", "   ", Low, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize("Name", tt.raw, tt.s))
		})
	}
}

func TestNormalize_OtherField(t *testing.T) {
	assert.Equal(t, "acme corp", Normalize("Company", "  ACME   Corp ", High))
}

func TestParseSensitivity(t *testing.T) {
	for _, v := range []string{"High", "Medium", "Low"} {
		s, err := ParseSensitivity(v)
		require.NoError(t, err)
		assert.Equal(t, Sensitivity(v), s)
	}

	for _, v := range []string{"high", "HIGH", "", "Extreme"} {
		_, err := ParseSensitivity(v)
		assert.ErrorIs(t, err, domainerrors.ErrInvalidSensitivity, v)
	}
}

func TestNewFieldSet(t *testing.T) {
	fs, err := NewFieldSet([]string{"Email", " Name ", "Email", ""})
	require.NoError(t, err)
	assert.Equal(t, FieldSet{"Email", "Name"}, fs)

	_, err = NewFieldSet(nil)
	assert.ErrorIs(t, err, domainerrors.ErrEmptyFieldSet)

	_, err = NewFieldSet([]string{"  ", ""})
	assert.ErrorIs(t, err, domainerrors.ErrEmptyFieldSet)
}

func TestThresholds(t *testing.T) {
	d := DefaultThresholds()
	require.NoError(t, d.Validate())
	assert.Equal(t, 1.0, d.For(High))
	assert.Equal(t, 0.75, d.For(Medium))
	assert.Equal(t, 0.5, d.For(Low))

	assert.Error(t, Thresholds{High: 1, Medium: 0, Low: 0.5}.Validate())
	assert.Error(t, Thresholds{High: 1.2, Medium: 0.8, Low: 0.5}.Validate())
	assert.Error(t, Thresholds{High: 0.8, Medium: 0.9, Low: 0.5}.Validate())
}
