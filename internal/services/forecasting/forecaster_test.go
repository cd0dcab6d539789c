package forecasting

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"TourCast/internal/domain/models"
)

type fakeEngine struct {
	calls int
	fn    func(series []models.TimeSeriesPoint, horizon int) ([]models.ForecastPoint, error)
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Fit(_ context.Context, series []models.TimeSeriesPoint, _ models.Granularity, horizon int) ([]models.ForecastPoint, error) {
	e.calls++
	return e.fn(series, horizon)
}

func echoEngine() *fakeEngine {
	return &fakeEngine{fn: func(series []models.TimeSeriesPoint, horizon int) ([]models.ForecastPoint, error) {
		var out []models.ForecastPoint
		for _, p := range series {
			out = append(out, models.ForecastPoint{Timestamp: p.Timestamp, PointEstimate: p.Value, LowerBound: p.Value, UpperBound: p.Value})
		}
		last := series[len(series)-1]
		for h := 1; h <= horizon; h++ {
			out = append(out, models.ForecastPoint{Timestamp: last.Timestamp.AddDate(0, h, 0), PointEstimate: last.Value, LowerBound: last.Value - 1, UpperBound: last.Value + 1})
		}
		return out, nil
	}}
}

func monthlySeries(n int, value func(i int) float64) []models.TimeSeriesPoint {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.TimeSeriesPoint, n)
	for i := range out {
		out[i] = models.TimeSeriesPoint{Timestamp: start.AddDate(0, i, 0), Value: value(i)}
	}
	return out
}

func dailySeries(n int, value func(i int) float64) []models.TimeSeriesPoint {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.TimeSeriesPoint, n)
	for i := range out {
		out[i] = models.TimeSeriesPoint{Timestamp: start.AddDate(0, 0, i), Value: value(i)}
	}
	return out
}

func seasonal(i int) float64 {
	return 1000 + 10*float64(i) + 300*math.Sin(2*math.Pi*float64(i)/12)
}

func TestForecastInsufficientDataNeverCallsEngine(t *testing.T) {
	eng := echoEngine()
	f := NewForecaster(eng)
	for _, n := range []int{0, 1, 29} {
		_, err := f.Forecast(context.Background(), monthlySeries(n, seasonal), models.Monthly, 12)
		var ide *models.InsufficientDataError
		require.True(t, errors.As(err, &ide), "n=%d", n)
		assert.Equal(t, n, ide.Have)
		assert.Equal(t, 30, ide.Need)
		assert.False(t, errors.Is(err, models.ErrFitFailure))
	}
	assert.Zero(t, eng.calls)

	_, err := f.Forecast(context.Background(), monthlySeries(30, seasonal), models.Monthly, 12)
	require.NoError(t, err)
	assert.Equal(t, 1, eng.calls)
}

func TestForecastRejectsCallerMistakes(t *testing.T) {
	f := NewForecaster(echoEngine())
	_, err := f.Forecast(context.Background(), monthlySeries(40, seasonal), models.Monthly, 0)
	assert.ErrorIs(t, err, models.ErrInvalidHorizon)

	s := monthlySeries(40, seasonal)
	s[5], s[6] = s[6], s[5]
	_, err = f.Forecast(context.Background(), s, models.Monthly, 3)
	assert.ErrorIs(t, err, models.ErrUnsortedSeries)

	_, err = f.Forecast(context.Background(), monthlySeries(40, seasonal), "hourly", 3)
	assert.ErrorIs(t, err, models.ErrInvalidGranularity)
}

func TestForecastEngineFailuresBecomeFitErrors(t *testing.T) {
	series := monthlySeries(36, seasonal)
	cases := map[string]func([]models.TimeSeriesPoint, int) ([]models.ForecastPoint, error){
		"error": func([]models.TimeSeriesPoint, int) ([]models.ForecastPoint, error) {
			return nil, errors.New("boom")
		},
		"panic": func([]models.TimeSeriesPoint, int) ([]models.ForecastPoint, error) {
			panic("singular")
		},
		"short": func(s []models.TimeSeriesPoint, h int) ([]models.ForecastPoint, error) {
			out, _ := echoEngine().fn(s, h)
			return out[:len(out)-1], nil
		},
		"nan": func(s []models.TimeSeriesPoint, h int) ([]models.ForecastPoint, error) {
			out, _ := echoEngine().fn(s, h)
			out[len(out)-1].PointEstimate = math.NaN()
			return out, nil
		},
		"inverted": func(s []models.TimeSeriesPoint, h int) ([]models.ForecastPoint, error) {
			out, _ := echoEngine().fn(s, h)
			out[len(out)-1].LowerBound = out[len(out)-1].UpperBound + 1
			return out, nil
		},
		"moved": func(s []models.TimeSeriesPoint, h int) ([]models.ForecastPoint, error) {
			out, _ := echoEngine().fn(s, h)
			out[0].Timestamp = out[0].Timestamp.Add(time.Hour)
			return out, nil
		},
	}
	for name, fn := range cases {
		fn := fn
		t.Run(name, func(t *testing.T) {
			_, err := NewForecaster(&fakeEngine{fn: fn}).Forecast(context.Background(), series, models.Monthly, 6)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrFitFailure))
			assert.False(t, errors.Is(err, models.ErrInsufficientData))
			var fe *models.FitError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "fake", fe.Engine)
		})
	}
}

func TestNativeMonthlyHorizonAndBounds(t *testing.T) {
	series := monthlySeries(48, seasonal)
	f := NewForecaster(NewNativeEngine(DefaultSettings()))
	fc, err := f.Forecast(context.Background(), series, models.Monthly, 24)
	require.NoError(t, err)

	require.Len(t, fc.Points, 48+24)
	future := fc.Future()
	require.Len(t, future, 24)
	last := series[len(series)-1].Timestamp
	for i, p := range future {
		assert.Equal(t, last.AddDate(0, i+1, 0), p.Timestamp)
		assert.Equal(t, 1, p.Timestamp.Day())
	}
	for i, p := range fc.Points {
		assert.LessOrEqual(t, p.LowerBound, p.PointEstimate, "point %d", i)
		assert.LessOrEqual(t, p.PointEstimate, p.UpperBound, "point %d", i)
		if i < len(series) {
			assert.Equal(t, series[i].Timestamp, p.Timestamp)
		}
	}
	assert.False(t, fc.LowConfidence)
	assert.Equal(t, "native", fc.Engine)
	assert.Equal(t, last, fc.HistoryEnd)

	// future uncertainty widens with distance
	firstWidth := future[0].UpperBound - future[0].LowerBound
	lastWidth := future[23].UpperBound - future[23].LowerBound
	assert.GreaterOrEqual(t, lastWidth, firstWidth)
}

func TestNativeExtrapolatesLinearTrend(t *testing.T) {
	line := func(i int) float64 { return 100 + 2*float64(i) }
	series := monthlySeries(48, line)
	fc, err := NewForecaster(NewNativeEngine(DefaultSettings())).Forecast(context.Background(), series, models.Monthly, 6)
	require.NoError(t, err)
	for h, p := range fc.Future() {
		want := line(48 + h)
		assert.InDelta(t, want, p.PointEstimate, want*0.05, "step %d", h+1)
	}
}

func TestNativeDailyCalendarStepping(t *testing.T) {
	series := dailySeries(60, func(i int) float64 {
		v := 200.0
		if i%7 >= 5 {
			v += 80
		}
		return v + float64(i)
	})
	fc, err := NewForecaster(NewNativeEngine(DefaultSettings())).Forecast(context.Background(), series, models.Daily, 10)
	require.NoError(t, err)
	future := fc.Future()
	require.Len(t, future, 10)
	last := series[len(series)-1].Timestamp
	for i, p := range future {
		assert.Equal(t, last.AddDate(0, 0, i+1), p.Timestamp)
	}
}

func TestNativeFlatSeriesIsLowConfidence(t *testing.T) {
	for name, v := range map[string]float64{"constant": 500, "zeros": 0} {
		v := v
		t.Run(name, func(t *testing.T) {
			series := monthlySeries(36, func(int) float64 { return v })
			fc, err := NewForecaster(NewNativeEngine(DefaultSettings())).Forecast(context.Background(), series, models.Monthly, 12)
			require.NoError(t, err)
			assert.True(t, fc.LowConfidence)
			for _, p := range fc.Points {
				assert.InDelta(t, v, p.PointEstimate, 1e-3*math.Max(1, v))
			}
		})
	}
}

func TestNativeHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewForecaster(NewNativeEngine(DefaultSettings())).Forecast(ctx, monthlySeries(36, seasonal), models.Monthly, 3)
	assert.ErrorIs(t, err, models.ErrFitFailure)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChangepointsPlacement(t *testing.T) {
	tt := make([]float64, 100)
	for i := range tt {
		tt[i] = float64(i) / 99
	}
	cps := changepoints(tt, 25, 0.8)
	require.Len(t, cps, 25)
	assert.LessOrEqual(t, cps[len(cps)-1], 0.8)
	for i := 1; i < len(cps); i++ {
		assert.Greater(t, cps[i], cps[i-1])
	}
	assert.Len(t, changepoints(tt[:10], 25, 0.8), 7)
	assert.Nil(t, changepoints(tt[:1], 25, 0.8))
}

func TestPresets(t *testing.T) {
	daily := Preset(models.Daily, DefaultSettings())
	require.Len(t, daily.Seasonalities, 3)
	assert.Equal(t, Seasonality{Name: "yearly", PeriodDays: 365.25, Order: 10}, daily.Seasonalities[0])
	assert.Equal(t, Seasonality{Name: "weekly", PeriodDays: 7, Order: 3}, daily.Seasonalities[1])
	assert.Equal(t, Seasonality{Name: "monthly", PeriodDays: 30.5, Order: 5}, daily.Seasonalities[2])

	monthly := Preset(models.Monthly, DefaultSettings())
	assert.Equal(t, []Seasonality{{Name: "yearly", PeriodDays: 365.25, Order: 5}}, monthly.Seasonalities)
	assert.Equal(t, 0.05, monthly.ChangepointPriorScale)
	assert.Equal(t, 10.0, monthly.SeasonalityPriorScale)
	assert.Equal(t, 0.8, monthly.IntervalWidth)

	s := DefaultSettings()
	s.DisableMonthlySeasonality = true
	assert.Len(t, Preset(models.Daily, s).Seasonalities, 2)
}

func TestRidgeEffectiveDegreesOfFreedom(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		1, 0,
		1, 1,
		1, 2,
		1, 3,
	})
	y := []float64{1, 3, 2, 5}

	_, edf, err := ridge(X, y, []float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 2, edf, 1e-9, "unpenalised fit uses every column")

	_, edf, err = ridge(X, y, []float64{1e12, 1e12})
	require.NoError(t, err)
	assert.InDelta(t, 0, edf, 1e-6)

	_, edf, err = ridge(X, y, []float64{0, 1})
	require.NoError(t, err)
	assert.Greater(t, edf, 1.0)
	assert.Less(t, edf, 2.0)
}

func TestResidualSDChargesFittedParameters(t *testing.T) {
	resid := []float64{1, -1, 1, -1, 1, -1, 1, -1, 1, -1}
	assert.InDelta(t, 1, residualSD(resid, 0), 1e-12)
	assert.InDelta(t, math.Sqrt(2), residualSD(resid, 5), 1e-12)
	assert.InDelta(t, math.Sqrt(10), residualSD(resid, 12), 1e-12, "at least one degree of freedom")
	assert.Zero(t, residualSD(nil, 0))
}
