package output

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

const defaultTable = "hacico_products"

// execer is the subset of pgxpool.Pool the sink needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresSink inserts each record as a row tagged with the crawl id.
type PostgresSink struct {
	db      execer
	close   func()
	table   string
	crawlID string
	timeout time.Duration
	mu      sync.Mutex
}

// PostgresConfig holds connection settings for the Postgres sink.
type PostgresConfig struct {
	DSN      string
	Table    string
	MaxConns int32
	Timeout  time.Duration
}

// NewPostgresSink connects to the database and verifies the connection.
func NewPostgresSink(ctx context.Context, cfg PostgresConfig, crawlID string) (*PostgresSink, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := newPostgresSink(pool, cfg.Table, crawlID, cfg.Timeout)
	s.close = pool.Close
	return s, nil
}

func newPostgresSink(db execer, table, crawlID string, timeout time.Duration) *PostgresSink {
	if table == "" {
		table = defaultTable
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PostgresSink{
		db:      db,
		table:   pgx.Identifier{table}.Sanitize(),
		crawlID: crawlID,
		timeout: timeout,
	}
}

func (s *PostgresSink) Name() string { return "postgres" }

// WriteHeader creates the table. The column set is fixed, so any other
// field list is rejected.
func (s *PostgresSink) WriteHeader(fields []string) error {
	if !slices.Equal(fields, plugin.RecordFields) {
		return fmt.Errorf("postgres sink: unsupported field list %v", fields)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		id         BIGSERIAL PRIMARY KEY,
		crawl_id   TEXT NOT NULL,
		title      TEXT NOT NULL,
		type       TEXT NOT NULL,
		price      NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		in_stock   BOOLEAN NOT NULL,
		image      TEXT NOT NULL,
		size       TEXT NOT NULL,
		length     NUMERIC(8,2) NOT NULL,
		diameter   NUMERIC(8,2) NOT NULL,
		url        TEXT NOT NULL,
		country    TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	return nil
}

func (s *PostgresSink) WriteRecord(r plugin.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table+` (crawl_id, title, type, price, in_stock, image, size, length, diameter, url, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.crawlID, r.Title, r.Type, r.Price, r.InStock, r.Image, r.Size, r.Length, r.Diameter, r.URL, r.Country,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.close != nil {
		s.close()
		s.close = nil
	}
	return nil
}
