package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TourCast/internal/domain/models"
	domrepo "TourCast/internal/domain/repository"
	applogger "TourCast/pkg/logger"
	"TourCast/pkg/warehouse"
)

const (
	defaultChunkSize = 1000
	eventColumns     = "event_date, state, region, event, art_form, tourism_level, visitors, revenue_inr, local_employment"
)

// dimensionColumns whitelists the columns Distinct may read.
var dimensionColumns = map[models.Dimension]string{
	models.DimRegion:       "region",
	models.DimState:        "state",
	models.DimEvent:        "event",
	models.DimArtForm:      "art_form",
	models.DimTourismLevel: "tourism_level",
}

// SQLEventStore implements EventStore over any supported warehouse dialect.
type SQLEventStore struct {
	db        *sql.DB
	dialect   warehouse.Dialect
	table     string
	client    *warehouse.Client
	chunkSize int
	l         *applogger.Logger
}

// NewSQLEventStore creates an event store over table.
func NewSQLEventStore(client *warehouse.Client, table string) *SQLEventStore {
	return &SQLEventStore{
		db:        client.DB(),
		dialect:   client.Dialect(),
		table:     table,
		client:    client,
		chunkSize: defaultChunkSize,
		l:         applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (s *SQLEventStore) SetLogger(l *applogger.Logger) {
	if l != nil {
		s.l = l
	}
}

// SetChunkSize bounds rows per INSERT statement.
func (s *SQLEventStore) SetChunkSize(n int) {
	if n > 0 {
		s.chunkSize = n
	}
}

// Init creates the events table if it does not exist.
func (s *SQLEventStore) Init(ctx context.Context) error {
	if err := s.client.InitSchema(ctx, s.dialect.EventsSchema(s.table)); err != nil {
		s.l.Error("warehouse init schema error", applogger.String("table", s.table), applogger.Error(err))
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// where renders the filter as a parameterised WHERE clause.
func (s *SQLEventStore) where(f models.Filter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	for _, d := range models.Dimensions() {
		if v := f.Categorical(d); v != nil {
			conds = append(conds, dimensionColumns[d]+" = ?")
			args = append(args, *v)
		}
	}
	if f.Year != nil {
		conds = append(conds, s.dialect.Year("event_date")+" = ?")
		args = append(args, *f.Year)
	}
	if f.Quarter != nil {
		conds = append(conds, s.dialect.Quarter("event_date")+" = ?")
		args = append(args, *f.Quarter)
	}
	if f.Month != nil {
		conds = append(conds, s.dialect.Month("event_date")+" = ?")
		args = append(args, *f.Month)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Query returns raw rows matching f, oldest first. Rows are not validated.
func (s *SQLEventStore) Query(ctx context.Context, f models.Filter) ([]models.EventRow, error) {
	start := time.Now()
	where, args := s.where(f)
	q := fmt.Sprintf(`SELECT %s, state, region, event, art_form, tourism_level, visitors, revenue_inr, local_employment
FROM %s%s
ORDER BY event_date ASC`, s.dialect.DateText("event_date"), s.table, where)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("warehouse query error",
			applogger.String("table", s.table),
			applogger.String("filter", f.CanonicalKey()),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := make([]models.EventRow, 0, 1024)
	for rows.Next() {
		var (
			r                             models.EventRow
			visitors, revenue, employment sql.NullFloat64
		)
		if err := rows.Scan(&r.Date, &r.State, &r.Region, &r.Event, &r.ArtForm, &r.TourismLevel, &visitors, &revenue, &employment); err != nil {
			s.l.Error("warehouse query scan error", applogger.String("table", s.table), applogger.Error(err))
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.Visitors = nullable(visitors)
		r.RevenueINR = nullable(revenue)
		r.LocalEmployment = nullable(employment)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.l.Error("warehouse query rows error", applogger.String("table", s.table), applogger.Error(err))
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("warehouse query",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

// Distinct lists the non-empty values of a dimension in ascending order.
func (s *SQLEventStore) Distinct(ctx context.Context, d models.Dimension) ([]string, error) {
	col, ok := dimensionColumns[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidDimension, d)
	}
	q := fmt.Sprintf("SELECT DISTINCT %s FROM %s WHERE %s <> '' ORDER BY %s", col, s.table, col, col)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("warehouse distinct error", applogger.String("column", col), applogger.Error(err))
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", col, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Stats returns totals and per-event averages for rows matching f.
// Averages skip NULL metrics, matching SQL AVG.
func (s *SQLEventStore) Stats(ctx context.Context, f models.Filter) (models.EventStats, error) {
	var st models.EventStats
	where, args := s.where(f)
	q := fmt.Sprintf(`SELECT COUNT(*),
    COALESCE(SUM(visitors), 0), COUNT(visitors),
    COALESCE(SUM(revenue_inr), 0), COUNT(revenue_inr),
    COALESCE(SUM(local_employment), 0)
FROM %s%s`, s.table, where)

	var visitorsN, revenueN int64
	err := s.db.QueryRowContext(ctx, q, args...).Scan(
		&st.TotalEvents,
		&st.TotalVisitors, &visitorsN,
		&st.TotalRevenue, &revenueN,
		&st.TotalEmployment,
	)
	if err != nil {
		s.l.Error("warehouse stats error",
			applogger.String("table", s.table),
			applogger.String("filter", f.CanonicalKey()),
			applogger.Error(err),
		)
		return st, fmt.Errorf("stats: %w", err)
	}
	if visitorsN > 0 {
		st.AvgVisitorsPerEvent = st.TotalVisitors / float64(visitorsN)
	}
	if revenueN > 0 {
		st.AvgRevenuePerEvent = st.TotalRevenue / float64(revenueN)
	}
	return st, nil
}

// StoreBatch inserts records with multi-row VALUES statements.
func (s *SQLEventStore) StoreBatch(ctx context.Context, records []models.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	for start := 0; start < len(records); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(records) {
			end = len(records)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, r := range records[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				s.dialect.DateArg(r.Date),
				r.State,
				r.Region,
				r.Event,
				r.ArtForm,
				r.TourismLevel,
				r.Visitors,
				r.RevenueINR,
				r.LocalEmployment,
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", s.table, eventColumns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("warehouse insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("insert events: %w", err)
		}
	}
	return nil
}

func (s *SQLEventStore) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *SQLEventStore) Close() error {
	return nil // client is owned by the caller
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var _ domrepo.EventStore = (*SQLEventStore)(nil)
