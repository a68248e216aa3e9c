package output

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

type execCall struct {
	sql  string
	args []any
}

type fakeDB struct {
	calls []execCall
	err   error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func TestPostgresSink(t *testing.T) {
	db := &fakeDB{}
	s := newPostgresSink(db, "", "crawl-1", 0)

	require.NoError(t, s.WriteHeader(plugin.RecordFields))
	require.NoError(t, s.WriteRecord(sampleRecord()))
	require.NoError(t, s.Close())

	require.Len(t, db.calls, 2)
	assert.Contains(t, db.calls[0].sql, `CREATE TABLE IF NOT EXISTS "hacico_products"`)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(db.calls[1].sql), `INSERT INTO "hacico_products"`))

	r := sampleRecord()
	assert.Equal(t, []any{
		"crawl-1", r.Title, r.Type, r.Price, r.InStock, r.Image, r.Size, r.Length, r.Diameter, r.URL, r.Country,
	}, db.calls[1].args)
}

func TestPostgresSinkQuotesTable(t *testing.T) {
	db := &fakeDB{}
	s := newPostgresSink(db, `cigars"; DROP TABLE x; --`, "c", 0)

	require.NoError(t, s.WriteHeader(plugin.RecordFields))
	assert.Contains(t, db.calls[0].sql, `"cigars""; DROP TABLE x; --"`)
}

func TestPostgresSinkRejectsOtherColumns(t *testing.T) {
	db := &fakeDB{}
	s := newPostgresSink(db, "t", "c", 0)

	err := s.WriteHeader([]string{"title", "price"})
	assert.Error(t, err)
	assert.Empty(t, db.calls)
}

func TestPostgresSinkPropagatesErrors(t *testing.T) {
	db := &fakeDB{err: errors.New("connection reset")}
	s := newPostgresSink(db, "t", "c", 0)

	err := s.WriteRecord(sampleRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "postgres", s.Name())
}
