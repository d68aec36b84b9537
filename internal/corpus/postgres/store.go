package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/pkg/lang"
)

// DB is the subset of [pgxpool.Pool] used by [Store]. Tests substitute a
// pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var _ DB = (*pgxpool.Pool)(nil)

// psql builds statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store is a PostgreSQL-backed phrase table. It is safe for concurrent use.
type Store struct {
	db DB
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{db: pool}, nil
}

// NewStoreFromDB wraps an already connected and migrated db.
func NewStoreFromDB(db DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.db.Close()
}

// Ping reports whether the database is reachable. It backs the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Load reads every row ordered by position and builds an immutable
// [corpus.Index]. The stored version label, if any, is attached to the index.
func (s *Store) Load(ctx context.Context) (*corpus.Index, error) {
	query, args, err := psql.Select("value").From("corpus_meta").Where(sq.Eq{"name": "version"}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres store: build version query: %w", err)
	}
	var version string
	err = s.db.QueryRow(ctx, query, args...).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres store: load version: %w", err)
	}

	query, args, err = psql.Select("key", "seri", "es", "en").
		From("phrase_entries").
		OrderBy("position", "key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("postgres store: build load query: %w", err)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres store: load: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (corpus.PhraseEntry, error) {
		var r corpus.PhraseRow
		if err := row.Scan(&r.Key, &r.Seri, &r.ES, &r.EN); err != nil {
			return corpus.PhraseEntry{}, err
		}
		return r.Entry(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres store: scan: %w", err)
	}

	ix, err := corpus.NewIndex(entries, corpus.WithVersion(version))
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}
	return ix, nil
}

// Import replaces the stored table with the contents of ix in a single
// transaction. Enumeration order of ix becomes the stored position.
func (s *Store) Import(ctx context.Context, ix *corpus.Index) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres store: import: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM phrase_entries`); err != nil {
		return fmt.Errorf("postgres store: import: clear: %w", err)
	}

	if ix.Len() > 0 {
		insert := psql.Insert("phrase_entries").Columns("key", "position", "seri", "es", "en")
		for i, e := range ix.All() {
			insert = insert.Values(e.Key, i, e.TextIn(lang.Seri), e.TextIn(lang.Spanish), e.TextIn(lang.English))
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("postgres store: import: build insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres store: import: insert: %w", err)
		}
	}

	query, args, err := psql.Insert("corpus_meta").
		Columns("name", "value").
		Values("version", ix.Version()).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value").
		ToSql()
	if err != nil {
		return fmt.Errorf("postgres store: import: build version upsert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres store: import: version: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres store: import: commit: %w", err)
	}
	return nil
}
