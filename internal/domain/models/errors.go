package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRecord marks a row that failed validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInsufficientData marks a series too short to forecast.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrFitFailure marks an engine that could not produce a usable forecast.
	ErrFitFailure = errors.New("forecast unavailable")
	// ErrUndefinedGrowthRate is returned when the historical baseline is zero.
	ErrUndefinedGrowthRate = errors.New("growth rate undefined for zero baseline")
	// ErrInvalidHorizon is returned for a horizon below one period.
	ErrInvalidHorizon = errors.New("horizon must be at least 1")
	// ErrUnsortedSeries is returned when timestamps are not strictly ascending.
	ErrUnsortedSeries = errors.New("series timestamps must be strictly ascending")
	// ErrInvalidGranularity is returned for an unknown bucket width.
	ErrInvalidGranularity = errors.New("invalid granularity")
	// ErrInvalidMetric is returned for an unknown metric.
	ErrInvalidMetric = errors.New("invalid metric")
	// ErrInvalidDimension is returned for an unknown filter dimension.
	ErrInvalidDimension = errors.New("invalid dimension")
)

// InvalidRecordError names the offending row.
type InvalidRecordError struct {
	Index  int
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record at index %d: %s", e.Index, e.Reason)
}

func (e *InvalidRecordError) Unwrap() error { return ErrInvalidRecord }

// InsufficientDataError reports how many points were available.
type InsufficientDataError struct {
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: have %d points, need at least %d", e.Have, e.Need)
}

func (e *InsufficientDataError) Unwrap() error { return ErrInsufficientData }

// FitError wraps an engine failure.
type FitError struct {
	Engine string
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s engine: %v", e.Engine, e.Err)
}

// Is matches ErrFitFailure while Unwrap keeps the cause reachable.
func (e *FitError) Is(target error) bool { return target == ErrFitFailure }

func (e *FitError) Unwrap() error { return e.Err }
