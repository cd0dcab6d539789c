package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// Dialect names a supported SQL backend. Its methods render the few
// expressions that differ between them; everything else is portable SQL
// with "?" placeholders.
type Dialect string

const (
	ClickHouse Dialect = "clickhouse"
	MySQL      Dialect = "mysql"
	SQLite     Dialect = "sqlite"
)

// ParseDialect validates a configured driver name.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case ClickHouse, MySQL, SQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported warehouse driver %q", s)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// DateText renders a date column as "YYYY-MM-DD" text.
func (d Dialect) DateText(col string) string {
	switch d {
	case ClickHouse:
		return "toString(" + col + ")"
	case MySQL:
		return "DATE_FORMAT(" + col + ", '%Y-%m-%d')"
	default:
		return "substr(" + col + ", 1, 10)"
	}
}

// Year renders the calendar year of a date column.
func (d Dialect) Year(col string) string {
	switch d {
	case ClickHouse:
		return "toYear(" + col + ")"
	case MySQL:
		return "YEAR(" + col + ")"
	default:
		return "CAST(strftime('%Y', " + col + ") AS INTEGER)"
	}
}

// Month renders the month number (1..12) of a date column.
func (d Dialect) Month(col string) string {
	switch d {
	case ClickHouse:
		return "toMonth(" + col + ")"
	case MySQL:
		return "MONTH(" + col + ")"
	default:
		return "CAST(strftime('%m', " + col + ") AS INTEGER)"
	}
}

// Quarter renders the calendar quarter (1..4) of a date column.
func (d Dialect) Quarter(col string) string {
	switch d {
	case ClickHouse:
		return "toQuarter(" + col + ")"
	case MySQL:
		return "QUARTER(" + col + ")"
	default:
		return "((" + d.Month(col) + " + 2) / 3)"
	}
}

// DateArg converts a date to the bind value the driver stores correctly.
func (d Dialect) DateArg(t time.Time) interface{} {
	t = t.UTC()
	if d == SQLite {
		return t.Format("2006-01-02")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EventsSchema returns idempotent DDL for the events table.
func (d Dialect) EventsSchema(table string) []string {
	switch d {
	case ClickHouse:
		return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    event_date       Date,
    state            LowCardinality(String),
    region           LowCardinality(String),
    event            String,
    art_form         LowCardinality(String),
    tourism_level    LowCardinality(String),
    visitors         Nullable(Float64),
    revenue_inr      Nullable(Float64),
    local_employment Nullable(Float64)
) ENGINE = MergeTree ORDER BY (state, event_date)`, table)}
	case MySQL:
		return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id               BIGINT AUTO_INCREMENT PRIMARY KEY,
    event_date       DATE NOT NULL,
    state            VARCHAR(64) NOT NULL,
    region           VARCHAR(64) NOT NULL,
    event            VARCHAR(128) NOT NULL DEFAULT '',
    art_form         VARCHAR(64) NOT NULL DEFAULT '',
    tourism_level    VARCHAR(32) NOT NULL DEFAULT '',
    visitors         DOUBLE NULL,
    revenue_inr      DOUBLE NULL,
    local_employment DOUBLE NULL,
    KEY idx_state_date (state, event_date)
)`, table)}
	default:
		idx := "idx_" + strings.ReplaceAll(table, ".", "_") + "_state_date"
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    event_date       TEXT NOT NULL,
    state            TEXT NOT NULL,
    region           TEXT NOT NULL,
    event            TEXT NOT NULL DEFAULT '',
    art_form         TEXT NOT NULL DEFAULT '',
    tourism_level    TEXT NOT NULL DEFAULT '',
    visitors         REAL,
    revenue_inr      REAL,
    local_employment REAL
)`, table),
			fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (state, event_date)", idx, table),
		}
	}
}
