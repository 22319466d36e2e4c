package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yigit/applytrack/internal/pkg/apperrors"
	"github.com/yigit/applytrack/internal/pkg/logger"
)

// PostgresBackend stores each collection as a table of JSONB documents
// keyed by UUID.
type PostgresBackend struct {
	Pool *pgxpool.Pool

	mu          sync.Mutex
	collections map[string]*postgresCollection
}

var _ Backend = (*PostgresBackend)(nil)

// PostgresOptions configures OpenPostgres.
type PostgresOptions struct {
	URI            string
	ConnectTimeout time.Duration
	MaxConns       int
	// Collections are created as tables when missing.
	Collections []string
}

// OpenPostgres creates a PostgreSQL connection pool and makes sure the
// collection tables exist.
func OpenPostgres(ctx context.Context, opts PostgresOptions) (*PostgresBackend, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(opts.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgxpool config: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = int32(opts.MaxConns)
	}

	// Drop connections that died while idle in the pool
	poolConfig.BeforeAcquire = func(ctx context.Context, conn *pgx.Conn) bool {
		if err := conn.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("Unhealthy connection detected")
			return false
		}
		return true
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewUnavailableError("postgres ping", err)
	}

	b := &PostgresBackend{Pool: pool, collections: make(map[string]*postgresCollection)}
	for _, name := range opts.Collections {
		if err := b.ensureTable(ctx, name); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *PostgresBackend) ensureTable(ctx context.Context, name string) error {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		doc JSONB NOT NULL DEFAULT '{}'::jsonb
	)`, pgx.Identifier{name}.Sanitize())
	if _, err := b.Pool.Exec(ctx, stmt); err != nil {
		return wrapError(name, "create table", err)
	}
	return nil
}

// Collection returns the handle for the named table.
func (b *PostgresBackend) Collection(name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &postgresCollection{name: name, table: pgx.Identifier{name}.Sanitize(), pool: b.Pool}
		b.collections[name] = c
	}
	return c
}

// Ping checks a pooled connection.
func (b *PostgresBackend) Ping(ctx context.Context) error {
	if err := b.Pool.Ping(ctx); err != nil {
		return apperrors.NewUnavailableError("postgres ping", err)
	}
	return nil
}

// Close closes the pool.
func (b *PostgresBackend) Close(context.Context) error {
	if b.Pool != nil {
		b.Pool.Close()
	}
	return nil
}

type postgresCollection struct {
	name  string
	table string
	pool  *pgxpool.Pool
}

func (c *postgresCollection) Name() string { return c.name }

func (c *postgresCollection) InsertOne(ctx context.Context, doc Document) (string, error) {
	payload, err := json.Marshal(doc.withoutID())
	if err != nil {
		return "", fmt.Errorf("%s insert: encode document: %w", c.name, err)
	}
	id := uuid.NewString()
	query := fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1::uuid, $2::jsonb)`, c.table)
	if _, err := c.pool.Exec(ctx, query, id, string(payload)); err != nil {
		return "", wrapError(c.name, "insert", err)
	}
	return id, nil
}

func (c *postgresCollection) UpdateByID(ctx context.Context, id string, doc Document) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.ErrMalformedID
	}
	payload, err := json.Marshal(doc.withoutID())
	if err != nil {
		return fmt.Errorf("%s update: encode document: %w", c.name, err)
	}
	query := fmt.Sprintf(`UPDATE %s SET doc = doc || $2::jsonb WHERE id = $1::uuid`, c.table)
	if _, err := c.pool.Exec(ctx, query, id, string(payload)); err != nil {
		return wrapError(c.name, "update", err)
	}
	return nil
}

func (c *postgresCollection) FindByID(ctx context.Context, id string) (Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrMalformedID
	}
	query := fmt.Sprintf(`SELECT id::text, doc FROM %s WHERE id = $1::uuid`, c.table)
	return c.queryOne(ctx, query, id)
}

func (c *postgresCollection) FindOne(ctx context.Context, filter Filter) (Document, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id::text, doc FROM %s%s LIMIT 1`, c.table, where)
	return c.queryOne(ctx, query, args...)
}

func (c *postgresCollection) queryOne(ctx context.Context, query string, args ...any) (Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := c.pool.QueryRow(ctx, query, args...).Scan(&id, &raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, wrapError(c.name, "find", err)
	}
	return decodeRow(id, raw)
}

func (c *postgresCollection) Find(ctx context.Context, filter Filter) ([]Document, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id::text, doc FROM %s%s`, c.table, where)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(c.name, "find", err)
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, wrapError(c.name, "find", err)
		}
		doc, err := decodeRow(id, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(c.name, "find", err)
	}
	return out, nil
}

func (c *postgresCollection) DeleteByID(ctx context.Context, id string) (int64, error) {
	if _, err := uuid.Parse(id); err != nil {
		return 0, apperrors.ErrMalformedID
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1::uuid`, c.table)
	tag, err := c.pool.Exec(ctx, query, id)
	if err != nil {
		return 0, wrapError(c.name, "delete", err)
	}
	return tag.RowsAffected(), nil
}

func (c *postgresCollection) DeleteMany(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(`DELETE FROM %s%s`, c.table, where)
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, wrapError(c.name, "delete", err)
	}
	return tag.RowsAffected(), nil
}

func (c *postgresCollection) Count(ctx context.Context, filter Filter) (int64, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, c.table, where)
	if err := c.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, wrapError(c.name, "count", err)
	}
	return n, nil
}

func (c *postgresCollection) GroupCount(ctx context.Context, field string, filter Filter) ([]GroupCount, error) {
	where, args, err := postgresWhere(filter)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT doc->>%s AS bucket, COUNT(*) FROM %s%s GROUP BY bucket`,
		quoteLiteral(field), c.table, where)
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapError(c.name, "aggregate", err)
	}
	defer rows.Close()

	out := make([]GroupCount, 0)
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Key, &g.Count); err != nil {
			return nil, wrapError(c.name, "aggregate", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(c.name, "aggregate", err)
	}
	return out, nil
}

// EnsureIndex creates an expression index on doc->>'field'. Unlike MongoDB,
// a unique index here does not treat two missing values as duplicates.
func (c *postgresCollection) EnsureIndex(ctx context.Context, field string, unique bool) error {
	kind := "INDEX"
	if unique {
		kind = "UNIQUE INDEX"
	}
	stmt := fmt.Sprintf(`CREATE %s IF NOT EXISTS %s ON %s ((doc->>%s))`,
		kind, indexName(c.name, field), c.table, quoteLiteral(field))
	if _, err := c.pool.Exec(ctx, stmt); err != nil {
		return wrapError(c.name, "create index", err)
	}
	return nil
}

func indexName(collection, field string) string {
	return pgx.Identifier{collection + "_" + field + "_idx"}.Sanitize()
}

// postgresWhere translates a Filter into a WHERE clause with positional
// arguments. String equality compares doc->>'field' so the expression
// indexes apply; other values compare as JSONB.
func postgresWhere(f Filter) (string, []any, error) {
	if f.IsZero() {
		return "", nil, nil
	}

	var (
		conds []string
		args  []any
	)
	for _, field := range f.eqFields() {
		v := f.Eq[field]
		if field == IDField {
			s, _ := v.(string)
			if _, err := uuid.Parse(s); err != nil {
				return "", nil, apperrors.ErrMalformedID
			}
			args = append(args, s)
			conds = append(conds, fmt.Sprintf("id = $%d::uuid", len(args)))
			continue
		}
		key := quoteLiteral(field)
		switch t := v.(type) {
		case nil:
			conds = append(conds, fmt.Sprintf("(doc->%s IS NULL OR doc->%s = 'null'::jsonb)", key, key))
		case string:
			args = append(args, t)
			conds = append(conds, fmt.Sprintf("doc->>%s = $%d", key, len(args)))
		default:
			payload, err := json.Marshal(t)
			if err != nil {
				return "", nil, fmt.Errorf("encode filter value for %s: %w", field, err)
			}
			args = append(args, string(payload))
			conds = append(conds, fmt.Sprintf("doc->%s = $%d::jsonb", key, len(args)))
		}
	}
	for _, field := range f.NonEmpty {
		conds = append(conds, fmt.Sprintf("COALESCE(doc->>%s, '') <> ''", quoteLiteral(field)))
	}

	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// quoteLiteral renders s as a SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// decodeRow turns a stored JSONB payload into a Document. Numbers decode as
// float64, timestamps as RFC 3339 strings.
func decodeRow(id string, raw []byte) (Document, error) {
	doc := Document{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", id, err)
		}
	}
	doc[IDField] = id
	return doc, nil
}
