package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

func TestDuplicateService_Scan_HighEmail(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	id1 := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "a@x.com"})
	id2 := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "A@X.com"})
	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "b@y.com"})

	res, err := ts.duplicates.Scan(ctx, ScanRequest{
		EntityType:  "Contact",
		Fields:      []string{"Email"},
		Sensitivity: "High",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ScanID)
	assert.Equal(t, 3, res.RecordCount)
	assert.Equal(t, 1.0, res.Threshold)
	require.Len(t, res.Groups, 1)

	group := res.Groups[0]
	assert.ElementsMatch(t, []string{id1, id2}, group.RecordIDs)
	assert.Equal(t, 1.0, group.Score)
	assert.Equal(t, 1, group.ID)
}

func TestDuplicateService_Scan_Errors(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  ScanRequest
		want error
	}{
		{
			name: "lowercase sensitivity",
			req:  ScanRequest{EntityType: "Contact", Fields: []string{"Email"}, Sensitivity: "high"},
			want: domainerrors.ErrInvalidSensitivity,
		},
		{
			name: "unknown entity type",
			req:  ScanRequest{EntityType: "Deal", Fields: []string{"Email"}, Sensitivity: "High"},
			want: domainerrors.ErrUnsupportedEntityType,
		},
		{
			name: "no fields",
			req:  ScanRequest{EntityType: "Contact", Sensitivity: "Medium"},
			want: domainerrors.ErrEmptyFieldSet,
		},
		{
			name: "blank fields only",
			req:  ScanRequest{EntityType: "Contact", Fields: []string{" ", ""}, Sensitivity: "Low"},
			want: domainerrors.ErrEmptyFieldSet,
		},
		{
			name: "missing entity type",
			req:  ScanRequest{Fields: []string{"Email"}, Sensitivity: "High"},
			want: domainerrors.ErrValidation,
		},
		{
			name: "missing sensitivity",
			req:  ScanRequest{EntityType: "Contact", Fields: []string{"Email"}},
			want: domainerrors.ErrValidation,
		},
		{
			name: "unknown saved search",
			req:  ScanRequest{EntityType: "Contact", Fields: []string{"Email"}, Sensitivity: "Low", SavedSearchID: "srch-missing"},
			want: domainerrors.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.duplicates.Scan(ctx, tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDuplicateService_Scan_SavedSearchNarrows(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	acme1 := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Name": "Jane Doe", "Company": "Acme"})
	acme2 := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Name": "Jane Doe", "Company": "acme"})
	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Name": "Jane Doe", "Company": "Globex"})

	ss, err := ts.searches.Create(ctx, SavedSearchRequest{
		Name:       "Acme",
		EntityType: "Contact",
		Criteria: domain.SearchCriteria{Conditions: []domain.Condition{
			{Field: "Company", Operator: domain.OpEquals, Value: "ACME"},
		}},
	})
	require.NoError(t, err)

	res, err := ts.duplicates.Scan(ctx, ScanRequest{
		EntityType:    "Contact",
		Fields:        []string{"Name"},
		Sensitivity:   "High",
		SavedSearchID: ss.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.RecordCount)
	require.Len(t, res.Groups, 1)
	assert.ElementsMatch(t, []string{acme1, acme2}, res.Groups[0].RecordIDs)

	_, err = ts.duplicates.Scan(ctx, ScanRequest{
		EntityType:    "Company",
		Fields:        []string{"Name"},
		Sensitivity:   "High",
		SavedSearchID: ss.ID,
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDuplicateService_Scan_TooManyRecords(t *testing.T) {
	ts := setupTestServices(t)
	ts.duplicates.cfg.MaxRecords = 2
	ctx := context.Background()

	for range 3 {
		ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "a@x.com"})
	}

	_, err := ts.duplicates.Scan(ctx, ScanRequest{EntityType: "Contact", Fields: []string{"Email"}, Sensitivity: "High"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestDuplicateService_Scan_Canceled(t *testing.T) {
	ts := setupTestServices(t)
	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "a@x.com"})
	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "a@x.com"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ts.duplicates.Scan(ctx, ScanRequest{EntityType: "Contact", Fields: []string{"Email"}, Sensitivity: "High"})
	require.ErrorIs(t, err, domainerrors.ErrScanCanceled)
}

func TestDuplicateService_Merge_KeepsDuplicateName(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	master := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "jane@x.com", "Name": ""})
	dup := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "jane@x.com", "Name": "Jane"})

	plan, err := ts.duplicates.Merge(ctx, MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{dup}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", plan.Fields["Name"])
	assert.Equal(t, dup, plan.FieldSources["Name"])
	assert.Equal(t, master, plan.FieldSources["Email"])

	// Preview only: nothing changed.
	r, err := ts.records.GetRecord(ctx, dup)
	require.NoError(t, err)
	assert.True(t, r.IsActive())
}

func TestDuplicateService_Merge_Invalid(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	master := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Name": "A"})
	company := ts.mustCreate(t, domain.EntityTypeCompany, map[string]string{"Name": "A"})

	tests := []struct {
		name string
		req  MergeRequest
		want []error
	}{
		{
			name: "master listed as duplicate",
			req:  MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{master}},
			want: []error{domainerrors.ErrInvalidMergeRequest},
		},
		{
			name: "no duplicates",
			req:  MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{}},
			want: []error{domainerrors.ErrInvalidMergeRequest},
		},
		{
			name: "unknown duplicate",
			req:  MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{"con-missing"}},
			want: []error{domainerrors.ErrRecordNotFound, domainerrors.ErrInvalidMergeRequest},
		},
		{
			name: "duplicate of another entity type is outside the snapshot",
			req:  MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{company}},
			want: []error{domainerrors.ErrRecordNotFound},
		},
		{
			name: "unsupported entity type",
			req:  MergeRequest{EntityType: "Lead", MasterID: master, DuplicateIDs: []string{"x"}},
			want: []error{domainerrors.ErrUnsupportedEntityType},
		},
		{
			name: "missing entity type",
			req:  MergeRequest{MasterID: master, DuplicateIDs: []string{"x"}},
			want: []error{domainerrors.ErrValidation},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.duplicates.Merge(ctx, tt.req)
			for _, want := range tt.want {
				require.ErrorIs(t, err, want)
			}
		})
	}
}

func TestDuplicateService_ApplyMerge(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	master := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "jane@x.com"})
	dup := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "JANE@x.com", "Name": "Jane"})

	res, err := ts.duplicates.ApplyMerge(ctx, MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{dup}})
	require.NoError(t, err)
	assert.Equal(t, "Jane", res.Master.Field("Name"))
	assert.Equal(t, master, res.History.MasterID)

	merged, err := ts.records.GetRecord(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, master, merged.MergedInto)

	scan, err := ts.duplicates.Scan(ctx, ScanRequest{EntityType: "Contact", Fields: []string{"Email"}, Sensitivity: "High"})
	require.NoError(t, err)
	assert.Empty(t, scan.Groups)

	history, err := ts.records.MergeHistory(ctx, master)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Applying the same merge again fails: the duplicate is gone from the snapshot.
	_, err = ts.duplicates.ApplyMerge(ctx, MergeRequest{EntityType: "Contact", MasterID: master, DuplicateIDs: []string{dup}})
	require.ErrorIs(t, err, domainerrors.ErrRecordNotFound)
}

func TestDuplicateService_Check(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	jane := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "jane@example.com", "Name": "Jane Doe"})
	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "robert.stone@company.org", "Name": "Bob Stone"})

	res, err := ts.duplicates.Check(ctx, CheckRequest{
		EntityType:  "Contact",
		Fields:      map[string]string{"Email": "Jane+crm@Example.com"},
		Sensitivity: "Medium",
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, jane, res.Matches[0].Record.ID)
	assert.Equal(t, 1.0, res.Matches[0].Score)

	// An existing record never matches itself.
	res, err = ts.duplicates.Check(ctx, CheckRequest{EntityType: "Contact", RecordID: jane, Sensitivity: "High"})
	require.NoError(t, err)
	assert.Empty(t, res.Matches)

	_, err = ts.duplicates.Check(ctx, CheckRequest{EntityType: "Contact", Sensitivity: "High"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.duplicates.Check(ctx, CheckRequest{EntityType: "Contact", Fields: map[string]string{"Title": "CEO"}, Sensitivity: "High"})
	require.ErrorIs(t, err, domainerrors.ErrEmptyFieldSet)
}

func TestDuplicateService_Check_AgreesWithScan(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	com := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "john.doe@example.com"})
	org := ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "john.doe@example.org"})

	scan, err := ts.duplicates.Scan(ctx, ScanRequest{
		EntityType:  "Contact",
		Fields:      []string{"Email"},
		Sensitivity: "Medium",
	})
	require.NoError(t, err)
	require.Len(t, scan.Groups, 1)
	assert.InDelta(t, 0.85, scan.Groups[0].Score, 1e-9)

	// The index has no term linking the two addresses; the check still
	// finds what the scan grouped.
	res, err := ts.duplicates.Check(ctx, CheckRequest{
		EntityType:    "Contact",
		RecordID:      com,
		CompareFields: []string{"Email"},
		Sensitivity:   "Medium",
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, org, res.Matches[0].Record.ID)
	assert.InDelta(t, scan.Groups[0].Score, res.Matches[0].Score, 1e-9)

	res, err = ts.duplicates.Check(ctx, CheckRequest{
		EntityType:  "Contact",
		Fields:      map[string]string{"Email": "John.Doe@Example.com"},
		Sensitivity: "High",
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, com, res.Matches[0].Record.ID)

	res, err = ts.duplicates.Check(ctx, CheckRequest{
		EntityType:  "Contact",
		Fields:      map[string]string{"Email": "john.doe@example.net"},
		Sensitivity: "Medium",
		Limit:       1,
	})
	require.NoError(t, err)
	require.Len(t, res.Matches, 1)
}

func TestDuplicateService_ReindexAll(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	ts.mustCreate(t, domain.EntityTypeContact, map[string]string{"Email": "a@x.com"})
	ts.mustCreate(t, domain.EntityTypeCompany, map[string]string{"Name": "Acme"})

	n, err := ts.duplicates.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := ts.index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}
