package database

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for the article mirror.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Postgres writes article rows into a Postgres table.
type Postgres struct {
	pool  pool
	table string
}

// NewPostgres creates a Postgres-backed Provider using the provided config.
func NewPostgres(ctx context.Context, cfg Config) (*Postgres, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "articles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Postgres{
		pool:  p,
		table: table,
	}, nil
}

// NewPostgresWithPool constructs a Postgres provider from an existing pool
// (primarily for testing).
func NewPostgresWithPool(pool pool, table string) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "articles"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Postgres{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (p *Postgres) Close() error {
	if p == nil || p.pool == nil {
		return nil
	}
	p.pool.Close()
	return nil
}

// SaveArticle upserts an article row keyed by URL. Re-crawls of the same
// URL refresh the stored payload instead of accumulating duplicates.
func (p *Postgres) SaveArticle(ctx context.Context, row Row) error {
	if p == nil || p.pool == nil {
		return fmt.Errorf("article mirror is not configured")
	}
	if row.URL == "" {
		return fmt.Errorf("row url is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	section,
	category,
	url,
	filename,
	title,
	content_hash,
	payload,
	crawled_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (url) DO UPDATE SET
	run_id = EXCLUDED.run_id,
	category = EXCLUDED.category,
	filename = EXCLUDED.filename,
	title = EXCLUDED.title,
	content_hash = EXCLUDED.content_hash,
	payload = EXCLUDED.payload,
	crawled_at = EXCLUDED.crawled_at`, p.table)

	args := []any{
		row.RunID,
		row.Section,
		row.Category,
		row.URL,
		row.Filename,
		row.Title,
		row.ContentHash,
		row.Payload,
		row.CrawledAt,
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

// FindContaining returns the filenames of rows in section whose serialized
// payload contains literal, mirroring a raw-text scan over the record files.
// position() keeps the check an exact substring match, so literals with %
// or _ do not act as wildcards.
func (p *Postgres) FindContaining(ctx context.Context, section, literal string) ([]string, error) {
	if p == nil || p.pool == nil {
		return nil, fmt.Errorf("article mirror is not configured")
	}
	if literal == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`
SELECT filename FROM %s
WHERE section = $1
  AND position($2 in payload::text) > 0
ORDER BY filename`, p.table)

	rows, err := p.pool.Query(ctx, query, section, literal)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan article filename: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate article filenames: %w", err)
	}
	return names, nil
}
