package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
	"github.com/contactlyapp/contactly-server/internal/store/sqlite"
)

// seedDatabase writes three contacts, two of which share an email address.
func seedDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "contactly.db")
	db, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.Record{
		{ID: "con-1", EntityType: domain.EntityTypeContact, CreatedAt: base, UpdatedAt: base,
			Fields: map[string]string{"Name": "Jane Doe", "Email": "jane@acme.com", "Phone": "555-0100"}},
		{ID: "con-2", EntityType: domain.EntityTypeContact, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour),
			Fields: map[string]string{"Name": "Jane Doe", "Email": "JANE@acme.com"}},
		{ID: "con-3", EntityType: domain.EntityTypeContact, CreatedAt: base, UpdatedAt: base,
			Fields: map[string]string{"Name": "Bob Smith", "Email": "bob@other.org"}},
	}
	require.NoError(t, db.CreateRecords(context.Background(), records))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestScan_Text(t *testing.T) {
	db := seedDatabase(t)

	out, err := run(t, "scan", "--db", db, "--fields", "Email", "--sensitivity", "High")
	require.NoError(t, err)

	assert.Contains(t, out, "Found 1 duplicate group(s) among 3 Contact records")
	assert.Contains(t, out, "* con-1")
	assert.Contains(t, out, "  con-2")
	assert.NotContains(t, out, "con-3")
}

func TestScan_YAML(t *testing.T) {
	db := seedDatabase(t)

	out, err := run(t, "scan", "--db", db, "-f", "Email", "-s", "High", "-o", "yaml")
	require.NoError(t, err)

	var view scanView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Contact", view.EntityType)
	assert.Equal(t, "High", view.Sensitivity)
	assert.Equal(t, 3, view.Records)
	require.Len(t, view.Groups, 1)
	assert.Equal(t, []string{"con-1", "con-2"}, view.Groups[0].Records)
	assert.Equal(t, "con-1", view.Groups[0].SuggestedMaster)
}

func TestScan_Errors(t *testing.T) {
	db := seedDatabase(t)

	_, err := run(t, "scan", "--db", db, "--sensitivity", "high")
	require.ErrorIs(t, err, domainerrors.ErrInvalidSensitivity)

	_, err = run(t, "scan", "--db", db, "--entity-type", "Deal")
	require.ErrorIs(t, err, domainerrors.ErrUnsupportedEntityType)

	_, err = run(t, "scan", "--db", db, "--output", "json")
	require.Error(t, err)

	_, err = run(t, "scan", "--db", filepath.Join(t.TempDir(), "missing.db"))
	require.Error(t, err)
}

func TestMerge_PreviewThenApply(t *testing.T) {
	db := seedDatabase(t)

	out, err := run(t, "merge", "--db", db, "con-1", "con-2")
	require.NoError(t, err)
	assert.Contains(t, out, "Merge preview for Contact con-1")
	assert.Contains(t, out, "Email: jane@acme.com (from con-1)")
	assert.Contains(t, out, "--apply")

	// A preview writes nothing.
	out, err = run(t, "scan", "--db", db, "-f", "Email", "-s", "High")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 duplicate group(s)")

	out, err = run(t, "merge", "--db", db, "--apply", "-o", "yaml", "con-1", "con-2")
	require.NoError(t, err)

	var view planView
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.True(t, view.Applied)
	assert.Equal(t, "con-1", view.Master)
	assert.Equal(t, "555-0100", view.Fields["Phone"])
	require.Len(t, view.Conflicts, 1)
	assert.Equal(t, "JANE@acme.com", view.Conflicts[0].Dropped)

	out, err = run(t, "scan", "--db", db, "-f", "Email", "-s", "High")
	require.NoError(t, err)
	assert.Contains(t, out, "No duplicates among 2 Contact records")

	_, err = run(t, "merge", "--db", db, "--apply", "con-1", "con-2")
	require.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
}

func TestMerge_Errors(t *testing.T) {
	db := seedDatabase(t)

	_, err := run(t, "merge", "--db", db, "con-1")
	require.Error(t, err)

	_, err = run(t, "merge", "--db", db, "con-1", "con-1")
	require.ErrorIs(t, err, domainerrors.ErrInvalidMergeRequest)

	_, err = run(t, "merge", "--db", db, "con-1", "con-404")
	require.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
}
