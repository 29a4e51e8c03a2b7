package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

func TestParseEntityType(t *testing.T) {
	et, err := ParseEntityType("Contact")
	require.NoError(t, err)
	assert.Equal(t, EntityTypeContact, et)

	et, err = ParseEntityType("Company")
	require.NoError(t, err)
	assert.Equal(t, EntityTypeCompany, et)

	for _, bad := range []string{"contact", "Lead", ""} {
		_, err := ParseEntityType(bad)
		assert.ErrorIs(t, err, domainerrors.ErrUnsupportedEntityType, bad)
	}
}

func TestRecord_FilledFieldCount(t *testing.T) {
	r := &Record{Fields: map[string]string{
		"Email": "a@x.com",
		"Phone": "   ",
		"Name":  "",
		"City":  "Lyon",
	}}

	assert.Equal(t, 2, r.FilledFieldCount())
}

func TestRecord_FieldOnNilMap(t *testing.T) {
	r := &Record{}
	assert.Equal(t, "", r.Field("Email"))
}

func TestRecord_IsActive(t *testing.T) {
	r := &Record{ID: "con-1"}
	assert.True(t, r.IsActive())

	r.MergedInto = "con-2"
	assert.False(t, r.IsActive())

	now := time.Now()
	r = &Record{ID: "con-3", DeletedAt: &now}
	assert.False(t, r.IsActive())
}
