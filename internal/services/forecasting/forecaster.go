package forecasting

import (
	"context"
	"fmt"
	"math"
	"time"

	"TourCast/internal/domain/models"
	domsvc "TourCast/internal/domain/service"
	applogger "TourCast/pkg/logger"
)

// DefaultMinPoints is the shortest series that is ever forecast.
const DefaultMinPoints = 30

// Option configures Forecaster.
type Option func(*Forecaster)

// WithMinPoints sets the insufficient-data threshold.
func WithMinPoints(n int) Option {
	return func(f *Forecaster) {
		if n >= 2 {
			f.minPoints = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *applogger.Logger) Option {
	return func(f *Forecaster) {
		if l != nil {
			f.log = l
		}
	}
}

// Forecaster gates a series before it reaches an engine and checks what
// comes back. It adds no timeout of its own; engines honour ctx.
type Forecaster struct {
	engine    domsvc.ForecastEngine
	minPoints int
	log       *applogger.Logger
}

// NewForecaster wraps engine.
func NewForecaster(engine domsvc.ForecastEngine, opts ...Option) *Forecaster {
	f := &Forecaster{engine: engine, minPoints: DefaultMinPoints, log: applogger.Nop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// MinPoints returns the insufficient-data threshold.
func (f *Forecaster) MinPoints() int { return f.minPoints }

// Engine returns the name of the wrapped engine.
func (f *Forecaster) Engine() string { return f.engine.Name() }

// Forecast fits the series and returns in-sample plus horizon future points.
// Short series fail with *models.InsufficientDataError without calling the
// engine; any engine problem is reported as *models.FitError.
func (f *Forecaster) Forecast(ctx context.Context, series []models.TimeSeriesPoint, g models.Granularity, horizon int) (*models.Forecast, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("%w: got %d", models.ErrInvalidHorizon, horizon)
	}
	if !models.IsValidGranularity(g) {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidGranularity, g)
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Timestamp.After(series[i-1].Timestamp) {
			return nil, fmt.Errorf("%w: index %d", models.ErrUnsortedSeries, i)
		}
	}
	if len(series) < f.minPoints {
		return nil, &models.InsufficientDataError{Have: len(series), Need: f.minPoints}
	}

	start := time.Now()
	points, err := f.fit(ctx, series, g, horizon)
	if err == nil {
		err = checkOutput(series, points, horizon)
	}
	if err != nil {
		f.log.Warn("forecast engine failed",
			applogger.String("engine", f.engine.Name()),
			applogger.Int("points", len(series)),
			applogger.Int("horizon", horizon),
			applogger.Error(err),
		)
		return nil, &models.FitError{Engine: f.engine.Name(), Err: err}
	}

	f.log.Debug("forecast fitted",
		applogger.String("engine", f.engine.Name()),
		applogger.String("granularity", string(g)),
		applogger.Int("points", len(series)),
		applogger.Int("horizon", horizon),
		applogger.Duration("elapsed", time.Since(start)),
	)

	return &models.Forecast{
		Engine:        f.engine.Name(),
		Granularity:   g,
		Horizon:       horizon,
		HistoryEnd:    series[len(series)-1].Timestamp,
		LowConfidence: lowConfidence(series),
		Points:        points,
	}, nil
}

func (f *Forecaster) fit(ctx context.Context, series []models.TimeSeriesPoint, g models.Granularity, horizon int) (points []models.ForecastPoint, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return f.engine.Fit(ctx, series, g, horizon)
}

// checkOutput rejects engine output with the wrong length, moved in-sample
// timestamps, future timestamps that do not advance, non-finite values or
// inverted bounds.
func checkOutput(series []models.TimeSeriesPoint, points []models.ForecastPoint, horizon int) error {
	n := len(series)
	if len(points) != n+horizon {
		return fmt.Errorf("malformed engine output: %d points, want %d", len(points), n+horizon)
	}
	prev := series[n-1].Timestamp
	for i, p := range points {
		if i < n {
			if !p.Timestamp.Equal(series[i].Timestamp) {
				return fmt.Errorf("malformed engine output: in-sample timestamp %d moved", i)
			}
		} else {
			if !p.Timestamp.After(prev) {
				return fmt.Errorf("malformed engine output: future timestamp %d not ascending", i)
			}
			prev = p.Timestamp
		}
		if !finite(p.PointEstimate) || !finite(p.LowerBound) || !finite(p.UpperBound) {
			return fmt.Errorf("malformed engine output: non-finite value at %d", i)
		}
		if p.LowerBound > p.PointEstimate || p.PointEstimate > p.UpperBound {
			return fmt.Errorf("malformed engine output: bounds out of order at %d", i)
		}
	}
	return nil
}

// lowConfidence flags flat or all-zero histories.
func lowConfidence(series []models.TimeSeriesPoint) bool {
	first := series[0].Value
	distinct, nonZero := false, false
	for _, p := range series {
		if p.Value != first {
			distinct = true
		}
		if math.Abs(p.Value) > 0 {
			nonZero = true
		}
	}
	return !distinct || !nonZero
}
