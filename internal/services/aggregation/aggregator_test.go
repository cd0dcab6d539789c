package aggregation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TourCast/internal/domain/models"
)

func f64(v float64) *float64 { return &v }

func row(date, state, region string, visitors float64) models.EventRow {
	return models.EventRow{
		Date:            date,
		State:           state,
		Region:          region,
		Event:           "Pushkar Fair",
		ArtForm:         "Folk Music",
		TourismLevel:    "High",
		Visitors:        f64(visitors),
		RevenueINR:      f64(visitors * 10),
		LocalEmployment: f64(1),
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateEmptyInput(t *testing.T) {
	res, err := New().Aggregate(nil, models.Filter{}, models.Daily, models.MetricVisitors)
	require.NoError(t, err)
	assert.Empty(t, res.Points)
	assert.Zero(t, res.Skipped)
}

func TestAggregateSumsDailyBuckets(t *testing.T) {
	rows := []models.EventRow{
		row("2024-01-02", "Kerala", "South", 100),
		row("2024-01-01", "Kerala", "South", 50),
		row("2024-01-02", "Goa", "West", 25),
	}
	res, err := New().Aggregate(rows, models.Filter{}, models.Daily, models.MetricVisitors)
	require.NoError(t, err)
	require.Len(t, res.Points, 2)
	assert.Equal(t, day(2024, 1, 1), res.Points[0].Timestamp)
	assert.Equal(t, 50.0, res.Points[0].Value)
	assert.Equal(t, day(2024, 1, 2), res.Points[1].Timestamp)
	assert.Equal(t, 125.0, res.Points[1].Value)
}

func TestAggregateTotalsMatchInput(t *testing.T) {
	var rows []models.EventRow
	want := 0.0
	for i := 0; i < 90; i++ {
		d := day(2023, 1, 1).AddDate(0, 0, i*3)
		v := float64(i * 7 % 13)
		rows = append(rows, row(d.Format("2006-01-02"), "Kerala", "South", v))
		want += v
	}
	for _, g := range []models.Granularity{models.Daily, models.Monthly} {
		res, err := New().Aggregate(rows, models.Filter{}, g, models.MetricVisitors)
		require.NoError(t, err)
		got := 0.0
		for i, p := range res.Points {
			got += p.Value
			if i > 0 {
				assert.True(t, p.Timestamp.After(res.Points[i-1].Timestamp), "strictly ascending")
			}
		}
		assert.Equal(t, want, got, string(g))
	}
}

func TestAggregateMonthlyCollapse(t *testing.T) {
	rows := []models.EventRow{
		row("2024-01-05", "Kerala", "South", 10),
		row("2024-01-31", "Kerala", "South", 20),
		row("2024-03-01", "Kerala", "South", 5),
	}
	res, err := New().Aggregate(rows, models.Filter{}, models.Monthly, models.MetricVisitors)
	require.NoError(t, err)
	require.Len(t, res.Points, 2, "february is absent, not zero-filled")
	assert.Equal(t, day(2024, 1, 1), res.Points[0].Timestamp)
	assert.Equal(t, 30.0, res.Points[0].Value)
	assert.Equal(t, day(2024, 3, 1), res.Points[1].Timestamp)
}

func TestAggregateFiltersAreConjunctive(t *testing.T) {
	rows := []models.EventRow{
		row("2024-01-05", "Kerala", "South", 10),
		row("2024-04-05", "Kerala", "South", 20),
		row("2024-01-06", "Goa", "West", 40),
		row("2023-01-05", "Kerala", "South", 80),
	}
	agg := New()

	all, err := agg.Aggregate(rows, models.Filter{}, models.Monthly, models.MetricVisitors)
	require.NoError(t, err)

	state := "Kerala"
	year, quarter := 2024, 1
	narrow := models.Filter{State: &state, Year: &year, Quarter: &quarter}
	res, err := agg.Aggregate(rows, narrow, models.Monthly, models.MetricVisitors)
	require.NoError(t, err)
	require.Len(t, res.Points, 1)
	assert.Equal(t, 10.0, res.Points[0].Value)

	sum := func(ps []models.TimeSeriesPoint) float64 {
		s := 0.0
		for _, p := range ps {
			s += p.Value
		}
		return s
	}
	assert.LessOrEqual(t, sum(res.Points), sum(all.Points))
}

func TestAggregateSkipPolicyCountsInvalidRows(t *testing.T) {
	bad := row("not-a-date", "Kerala", "South", 1)
	missing := row("2024-01-01", "Kerala", "South", 1)
	missing.Visitors = nil
	negative := row("2024-01-01", "Kerala", "South", -5)
	nan := row("2024-01-01", "Kerala", "South", math.NaN())
	otherState := row("garbage", "Goa", "West", 1)

	rows := []models.EventRow{bad, missing, negative, nan, otherState, row("2024-01-01", "Kerala", "South", 7)}
	state := "Kerala"
	res, err := New().Aggregate(rows, models.Filter{State: &state}, models.Daily, models.MetricVisitors)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Skipped, "rows outside the categorical filter are not validated")
	require.Len(t, res.Points, 1)
	assert.Equal(t, 7.0, res.Points[0].Value)
}

func TestAggregateAbortPolicy(t *testing.T) {
	rows := []models.EventRow{
		row("2024-01-01", "Kerala", "South", 7),
		row("2024-01-02", "Kerala", "South", -1),
	}
	_, err := New(WithPolicy(PolicyAbort)).Aggregate(rows, models.Filter{}, models.Daily, models.MetricVisitors)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidRecord))
	var ire *models.InvalidRecordError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, 1, ire.Index)
	assert.Contains(t, ire.Reason, "negative")
}

func TestAggregateMetricSelection(t *testing.T) {
	rows := []models.EventRow{row("2024-01-01", "Kerala", "South", 3)}
	res, err := New().Aggregate(rows, models.Filter{}, models.Daily, models.MetricRevenue)
	require.NoError(t, err)
	assert.Equal(t, 30.0, res.Points[0].Value)

	// a NULL in a column that is not aggregated does not invalidate the row
	rows[0].Visitors = nil
	res, err = New().Aggregate(rows, models.Filter{}, models.Daily, models.MetricEmployment)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 1.0, res.Points[0].Value)
}

func TestAggregateRejectsBadArguments(t *testing.T) {
	_, err := New().Aggregate(nil, models.Filter{}, "weekly", models.MetricVisitors)
	assert.ErrorIs(t, err, models.ErrInvalidGranularity)
	_, err = New().Aggregate(nil, models.Filter{}, models.Daily, "profit")
	assert.ErrorIs(t, err, models.ErrInvalidMetric)
}

func TestWithPolicyFallsBackToSkip(t *testing.T) {
	assert.Equal(t, PolicySkip, New(WithPolicy("ignore")).Policy())
	assert.Equal(t, PolicyAbort, New(WithPolicy(PolicyAbort)).Policy())
}

func TestRecordsValidatesFiltersAndSorts(t *testing.T) {
	missingRevenue := row("2023-01-03", "Goa", "West", 50)
	missingRevenue.RevenueINR = nil
	rows := []models.EventRow{
		row("2023-02-01", "Kerala", "South", 10),
		row("2023-01-05", "Kerala", "South", 20),
		row("2023-01-05", "Goa", "West", 30),
		missingRevenue,
		row("not-a-date", "Goa", "West", 5),
		row("2022-12-31", "Goa", "West", 40),
	}

	recs, skipped, err := New().Records(rows, models.Filter{Year: models.IntPtr(2023)})
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	require.Len(t, recs, 3)
	assert.Equal(t, day(2023, time.January, 5), recs[0].Date)
	assert.Equal(t, "Goa", recs[0].State)
	assert.Equal(t, "Kerala", recs[1].State)
	assert.Equal(t, day(2023, time.February, 1), recs[2].Date)
	assert.Equal(t, 100.0, recs[2].RevenueINR)

	goa, _, err := New().Records(rows, models.Filter{State: models.StringPtr("Goa")})
	require.NoError(t, err)
	require.Len(t, goa, 2)
	assert.Equal(t, day(2022, time.December, 31), goa[0].Date)
}

func TestRecordsAbortPolicy(t *testing.T) {
	rows := []models.EventRow{row("2023-01-01", "Goa", "West", 1), row("2023-01-02", "Goa", "West", -3)}
	_, _, err := New(WithPolicy(PolicyAbort)).Records(rows, models.Filter{})
	var ire *models.InvalidRecordError
	require.True(t, errors.As(err, &ire))
	assert.Equal(t, 1, ire.Index)
}
