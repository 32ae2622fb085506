package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func businessItem(name string, score int, dist float64) *model.ResultItem {
	it := model.NewBusinessItem(&model.BusinessRecord{
		ID:      "places-" + name,
		Name:    name,
		Type:    model.TypeCorporateOffice,
		City:    "Denver",
		Sources: []model.Source{model.SourcePlaces},
	})
	it.OverallScore = score
	it.DistanceMiles = dist
	it.Relevance = 0.5
	return it
}

// --- Settings ---

func TestSQLite_Settings(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, found, err := st.GetSetting(ctx, "scoring.rules")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, st.SetSetting(ctx, "scoring.rules", "rule.event_space.points=20"))
	require.NoError(t, st.SetSetting(ctx, "scoring.rules", "rule.event_space.points=25"))

	v, found, err := st.GetSetting(ctx, "scoring.rules")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "rule.event_space.points=25", v)
}

func TestSQLite_EmptySettingIsFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetSetting(ctx, "k", ""))
	v, found, err := st.GetSetting(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, v)
}

// --- Prospects ---

func TestSQLite_Prospects_SaveListDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	low, err := st.SaveProspect(ctx, "Denver, CO", "", businessItem("Low Co", 40, 2.5))
	require.NoError(t, err)
	high, err := st.SaveProspect(ctx, "Denver, CO", "call monday", businessItem("High Co", 85, 1.2))
	require.NoError(t, err)
	assert.NotEmpty(t, high.ID)
	assert.NotEqual(t, low.ID, high.ID)
	assert.Equal(t, model.KindBusiness, high.Kind)
	assert.Equal(t, "High Co", high.Name)

	list, err := st.ListProspects(ctx, ProspectFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "High Co", list[0].Name)
	assert.Equal(t, "call monday", list[0].Notes)
	assert.InDelta(t, 1.2, list[0].DistanceMiles, 1e-9)
	require.NotNil(t, list[0].Item.Business)
	assert.Equal(t, "Denver", list[0].Item.Business.City)
	assert.Equal(t, []model.Source{model.SourcePlaces}, list[0].Item.Sources)

	list, err = st.ListProspects(ctx, ProspectFilter{MinScore: 50})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, high.ID, list[0].ID)

	list, err = st.ListProspects(ctx, ProspectFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, low.ID, list[0].ID)

	require.NoError(t, st.DeleteProspect(ctx, low.ID))
	err = st.DeleteProspect(ctx, low.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	list, err = st.ListProspects(ctx, ProspectFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSQLite_Prospects_KindFilter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveProspect(ctx, "Denver, CO", "", businessItem("Acme", 60, 1))
	require.NoError(t, err)
	area := model.NewAreaItem(&model.AreaRecord{ID: "80202", Name: "Denver 80202", MarketPotential: 70, Source: model.SourceDemographics})
	_, err = st.SaveProspect(ctx, "Denver, CO", "", area)
	require.NoError(t, err)

	list, err := st.ListProspects(ctx, ProspectFilter{Kind: model.KindArea})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Denver 80202", list[0].Name)
	require.NotNil(t, list[0].Item.Area)
	assert.Equal(t, 70, list[0].Item.Area.MarketPotential)
}

func TestSQLite_SaveProspect_Invalid(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveProspect(ctx, "Denver", "", nil)
	assert.Error(t, err)

	bad := businessItem("Bad", 120, 1)
	_, err = st.SaveProspect(ctx, "Denver", "", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid result item")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.SetSetting(ctx, "a", "b"))

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
