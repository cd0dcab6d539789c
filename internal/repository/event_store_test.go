package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourCast/internal/domain/models"
	"TourCast/pkg/warehouse"
)

func newTestStore(t *testing.T) *SQLEventStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	c, err := warehouse.NewClient(warehouse.WithDialect(warehouse.SQLite), warehouse.WithDSN(dsn))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	s := NewSQLEventStore(c, "cultural_tourism_events")
	require.NoError(t, s.Init(context.Background()))
	return s
}

func rec(y int, m time.Month, d int, state, region, artForm string, visitors float64) models.EventRecord {
	return models.EventRecord{
		Date:            time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		State:           state,
		Region:          region,
		Event:           "Festival",
		ArtForm:         artForm,
		TourismLevel:    "Medium",
		Visitors:        visitors,
		RevenueINR:      visitors * 100,
		LocalEmployment: visitors / 10,
	}
}

func seed(t *testing.T, s *SQLEventStore) {
	t.Helper()
	s.SetChunkSize(2)
	require.NoError(t, s.StoreBatch(context.Background(), []models.EventRecord{
		rec(2023, 1, 15, "Kerala", "South", "Kathakali", 100),
		rec(2023, 2, 10, "Kerala", "South", "Kathakali", 200),
		rec(2023, 7, 1, "Kerala", "South", "Folk Music", 300),
		rec(2024, 1, 20, "Rajasthan", "North", "Folk Music", 400),
		rec(2024, 11, 5, "Goa", "West", "", 500),
	}))
}

func TestSQLEventStoreQueryRoundTrip(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	rows, err := s.Query(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "2023-01-15", rows[0].Date)
	assert.Equal(t, "Kerala", rows[0].State)
	require.NotNil(t, rows[0].Visitors)
	assert.Equal(t, 100.0, *rows[0].Visitors)
	assert.Equal(t, 10000.0, *rows[0].RevenueINR)
	assert.Equal(t, "2024-11-05", rows[4].Date)
}

func TestSQLEventStoreFilterPushDown(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	cases := []struct {
		name   string
		filter models.Filter
		want   int
	}{
		{"state", models.Filter{State: models.StringPtr("Kerala")}, 3},
		{"art form", models.Filter{ArtForm: models.StringPtr("Folk Music")}, 2},
		{"year", models.Filter{Year: models.IntPtr(2024)}, 2},
		{"quarter", models.Filter{Quarter: models.IntPtr(1)}, 3},
		{"month", models.Filter{Month: models.IntPtr(11)}, 1},
		{"conjunctive", models.Filter{State: models.StringPtr("Kerala"), Quarter: models.IntPtr(3)}, 1},
		{"no match", models.Filter{Region: models.StringPtr("East")}, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rows, err := s.Query(ctx, tc.filter)
			require.NoError(t, err)
			assert.Len(t, rows, tc.want)
		})
	}
}

func TestSQLEventStoreNullMetrics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO cultural_tourism_events (event_date, state, region) VALUES (?, ?, ?)",
		"2023-05-01", "Assam", "East")
	require.NoError(t, err)

	rows, err := s.Query(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Visitors)
	assert.Nil(t, rows[0].LocalEmployment)
}

func TestSQLEventStoreDistinct(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	states, err := s.Distinct(ctx, models.DimState)
	require.NoError(t, err)
	assert.Equal(t, []string{"Goa", "Kerala", "Rajasthan"}, states)

	arts, err := s.Distinct(ctx, models.DimArtForm)
	require.NoError(t, err)
	assert.Equal(t, []string{"Folk Music", "Kathakali"}, arts, "empty values are not listed")

	_, err = s.Distinct(ctx, models.Dimension("visitors; DROP TABLE x"))
	assert.ErrorIs(t, err, models.ErrInvalidDimension)
}

func TestSQLEventStoreStats(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	st, err := s.Stats(ctx, models.Filter{State: models.StringPtr("Kerala")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalEvents)
	assert.Equal(t, 600.0, st.TotalVisitors)
	assert.Equal(t, 60000.0, st.TotalRevenue)
	assert.InDelta(t, 60.0, st.TotalEmployment, 1e-9)
	assert.Equal(t, 200.0, st.AvgVisitorsPerEvent)
	assert.Equal(t, 20000.0, st.AvgRevenuePerEvent)

	empty, err := s.Stats(ctx, models.Filter{State: models.StringPtr("Nowhere")})
	require.NoError(t, err)
	assert.Equal(t, models.EventStats{}, empty)
}

func TestSQLEventStoreHealthAndEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.StoreBatch(context.Background(), nil))
	assert.NoError(t, s.Health(context.Background()))
	assert.NoError(t, s.Close())
}
