package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactlyapp/contactly-server/internal/domain"
	domainerrors "github.com/contactlyapp/contactly-server/internal/errors"
)

func vipCriteria() domain.SearchCriteria {
	return domain.SearchCriteria{Conditions: []domain.Condition{
		{Field: "Tier", Operator: domain.OpEquals, Value: "vip"},
	}}
}

func TestSavedSearchService_Lifecycle(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	ss, err := ts.searches.Create(ctx, SavedSearchRequest{Name: "VIPs", EntityType: "Contact", Criteria: vipCriteria()})
	require.NoError(t, err)
	assert.Equal(t, domain.MatchAll, ss.Criteria.Match)

	got, err := ts.searches.Get(ctx, ss.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIPs", got.Name)

	updated, err := ts.searches.Update(ctx, ss.ID, SavedSearchRequest{Name: "Top accounts", EntityType: "Company", Criteria: vipCriteria()})
	require.NoError(t, err)
	assert.Equal(t, domain.EntityTypeCompany, updated.EntityType)

	companies, err := ts.searches.List(ctx, "Company")
	require.NoError(t, err)
	assert.Len(t, companies, 1)

	contacts, err := ts.searches.List(ctx, "Contact")
	require.NoError(t, err)
	assert.Empty(t, contacts)

	require.NoError(t, ts.searches.Delete(ctx, ss.ID))
	_, err = ts.searches.Get(ctx, ss.ID)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestSavedSearchService_Errors(t *testing.T) {
	ts := setupTestServices(t)
	ctx := context.Background()

	_, err := ts.searches.Create(ctx, SavedSearchRequest{Name: "VIPs", EntityType: "Contact", Criteria: vipCriteria()})
	require.NoError(t, err)

	_, err = ts.searches.Create(ctx, SavedSearchRequest{Name: "vips", EntityType: "Contact", Criteria: vipCriteria()})
	require.ErrorIs(t, err, domainerrors.ErrAlreadyExists)

	_, err = ts.searches.Create(ctx, SavedSearchRequest{Name: "Empty", EntityType: "Contact"})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = ts.searches.Create(ctx, SavedSearchRequest{Name: "X", EntityType: "Lead", Criteria: vipCriteria()})
	require.ErrorIs(t, err, domainerrors.ErrUnsupportedEntityType)

	_, err = ts.searches.List(ctx, "Lead")
	require.ErrorIs(t, err, domainerrors.ErrUnsupportedEntityType)

	_, err = ts.searches.Update(ctx, "srch-missing", SavedSearchRequest{Name: "X", EntityType: "Contact", Criteria: vipCriteria()})
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}
