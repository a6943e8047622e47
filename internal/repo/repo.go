package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// SQLStore implements Repository over database/sql. Statements are written
// with ? placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	logger  *zap.Logger
	opts    options
}

// NewPostgres opens a pgx pool with the desired search_path and exposes it
// through database/sql.
func NewPostgres(ctx context.Context, databaseURL, schema string, logger *zap.Logger, opts ...Option) (*SQLStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	s := newSQLStore(stdlib.OpenDBFromPool(pool), dialectPostgres, logger, opts...)
	s.pool = pool

	if err := s.Ping(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, opts ...Option) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger.With(zap.String("component", "repo"), zap.String("dialect", d.String())),
		opts:    buildOptions(opts),
	}
}

// Close releases the database handle and the underlying pool.
func (s *SQLStore) Close() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("close database", zap.Error(err))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", s.dialect, err)
	}
	return nil
}

// RunMigrations applies the migrations under the dialect's directory of
// filesystem.
func (s *SQLStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	sub, err := fs.Sub(filesystem, s.dialect.String())
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", s.dialect, err)
	}
	if s.pool != nil {
		return ApplyMigrations(ctx, s.pool, sub)
	}
	return ApplySQLMigrations(ctx, s.db, sub)
}

// Seed inserts the default service rows and the war mode singleton when
// they are missing.
func (s *SQLStore) Seed(ctx context.Context) error {
	now := s.opts.clock()
	const statusQ = `
INSERT INTO system_status (service, status, performance, last_updated)
VALUES (?, ?, ?, ?)
ON CONFLICT (service) DO NOTHING;
`
	for _, item := range defaultSystemStatuses(now) {
		if _, err := s.exec(ctx, statusQ, item.Service, item.Status, item.Performance, item.LastUpdated); err != nil {
			return fmt.Errorf("seed system status %s: %w", item.Service, err)
		}
	}

	const warQ = `
INSERT INTO war_mode (slot, is_active, level)
VALUES (1, ?, ?)
ON CONFLICT (slot) DO NOTHING;
`
	w := defaultWarMode()
	if _, err := s.exec(ctx, warQ, w.IsActive, w.Level); err != nil {
		return fmt.Errorf("seed war mode: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, classify(err)
	}
	return res, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// getRow runs a single-row query. No row yields (nil, nil).
func getRow[T any](ctx context.Context, s *SQLStore, scan func(rowScanner) (*T, error), query string, args ...any) (*T, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(query), args...)
	out, err := scan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify(err)
	}
	return out, nil
}

func listRows[T any](ctx context.Context, s *SQLStore, scan func(rowScanner) (*T, error), query string, args ...any) ([]T, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

// updateRow applies a merge-patch to one row by id and returns the updated
// row. An empty patch just reads the row back.
func updateRow[T any](ctx context.Context, s *SQLStore, scan func(rowScanner) (*T, error), table, columns string, id int64, sets assignments) (*T, error) {
	if len(sets) == 0 {
		return getRow(ctx, s, scan, "SELECT "+columns+" FROM "+table+" WHERE id = ?", id)
	}
	q, args := buildUpdate(table, columns, "id = ?", sets)
	return getRow(ctx, s, scan, q, append(args, id)...)
}

func buildUpdate(table, columns, cond string, sets assignments) (string, []any) {
	parts := make([]string, len(sets))
	args := make([]any, 0, len(sets)+1)
	for i, set := range sets {
		parts[i] = set.column + " = ?"
		args = append(args, set.value)
	}
	q := "UPDATE " + table + " SET " + strings.Join(parts, ", ") + " WHERE " + cond + " RETURNING " + columns
	return q, args
}

// where collects AND-ed predicates for filtered listings.
type where struct {
	conds []string
	args  []any
}

func (w *where) eq(column string, value any) {
	w.conds = append(w.conds, column+" = ?")
	w.args = append(w.args, value)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

func limitClause(limit int) string {
	if limit < 0 {
		return ""
	}
	return " LIMIT " + strconv.Itoa(limit)
}

// classify maps driver constraint errors onto ErrConflict and
// ErrInvalidReference.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrInvalidReference, pgErr.ConstraintName)
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrConflict, liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", ErrInvalidReference, liteErr.Error())
		}
		msg := liteErr.Error()
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return fmt.Errorf("%w: %s", ErrConflict, msg)
		case strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return fmt.Errorf("%w: %s", ErrInvalidReference, msg)
		}
	}
	return err
}

// dbTime scans a timestamp column. SQLite may hand back text for
// expression and RETURNING columns, so string forms are parsed too.
type dbTime struct {
	Time  time.Time
	Valid bool
}

var dbTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, " m="); i > 0 {
		s = s[:i]
	}
	for _, layout := range dbTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("scan timestamp: unrecognised value %q", s)
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func rawJSON(data []byte) json.RawMessage {
	return normalizeRaw(data)
}

func timeParam(t *time.Time) any {
	if t == nil {
		return nil
	}
	return normalizeTime(*t)
}

func int64Param(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func stringParam(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
