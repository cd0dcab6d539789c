package warehouse

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMySQLDSN(t *testing.T) {
	got, err := toMySQLDSN("mysql://tour:secret@db:3306/tourism")
	require.NoError(t, err)
	assert.Equal(t, "tour:secret@tcp(db:3306)/tourism?parseTime=true&loc=UTC&interpolateParams=true", got)

	raw := "tour:secret@tcp(db:3306)/tourism"
	got, err = toMySQLDSN(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = toMySQLDSN("mariadb://db:3306/tourism")
	assert.Error(t, err)
}

func TestClickHouseDSN(t *testing.T) {
	dsn := clickHouseDSN(ClientConfig{
		Host: "ch", Port: 9000, Database: "tourism", User: "default",
		ReadTimeout: 30 * time.Second, AsyncInsert: true, WaitForAsync: true,
	})
	assert.Contains(t, dsn, "clickhouse://default:@ch:9000/tourism?")
	assert.Contains(t, dsn, "async_insert=1")
	assert.Contains(t, dsn, "wait_for_async_insert=1")
	assert.Contains(t, dsn, "read_timeout=30s")
}

func TestBuildDSNRequiresTarget(t *testing.T) {
	_, err := buildDSN(ClientConfig{Dialect: ClickHouse})
	assert.Error(t, err)
	_, err = buildDSN(ClientConfig{Dialect: MySQL})
	assert.Error(t, err)
	_, err = buildDSN(ClientConfig{Dialect: "oracle", DSN: "x"})
	assert.Error(t, err)
}

func TestParseDialect(t *testing.T) {
	d, err := ParseDialect("SQLite")
	require.NoError(t, err)
	assert.Equal(t, SQLite, d)
	_, err = ParseDialect("postgres")
	assert.Error(t, err)
}

func TestSQLiteClientSchemaAndExpressions(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "wh.db")
	c, err := NewClient(WithDialect(SQLite), WithDSN(dsn))
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.InitSchema(ctx, SQLite.EventsSchema("events")))
	// idempotent
	require.NoError(t, c.InitSchema(ctx, SQLite.EventsSchema("events")))

	_, err = c.DB().ExecContext(ctx,
		"INSERT INTO events (event_date, state, region, visitors) VALUES (?, ?, ?, ?)",
		SQLite.DateArg(time.Date(2023, 11, 5, 0, 0, 0, 0, time.UTC)), "Kerala", "South", 10.0)
	require.NoError(t, err)

	var day string
	var year, month, quarter int
	q := "SELECT " + SQLite.DateText("event_date") + ", " + SQLite.Year("event_date") + ", " +
		SQLite.Month("event_date") + ", " + SQLite.Quarter("event_date") + " FROM events"
	require.NoError(t, c.DB().QueryRowContext(ctx, q).Scan(&day, &year, &month, &quarter))
	assert.Equal(t, "2023-11-05", day)
	assert.Equal(t, 2023, year)
	assert.Equal(t, 11, month)
	assert.Equal(t, 4, quarter)
	assert.NoError(t, c.Health(ctx))
}
