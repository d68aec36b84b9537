// Package sqlite stores the phrase table in a single SQLite file, for
// deployments without a database server. It mirrors the postgres store: the
// table is read once into an immutable [corpus.Index] and replaced wholesale
// by Import.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/pkg/lang"
)

const schema = `
CREATE TABLE IF NOT EXISTS phrase_entries (
	key       TEXT    PRIMARY KEY,
	position  INTEGER NOT NULL,
	seri      TEXT    NOT NULL DEFAULT '',
	es        TEXT    NOT NULL DEFAULT '',
	en        TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_phrase_entries_position ON phrase_entries (position);

CREATE TABLE IF NOT EXISTS corpus_meta (
	name   TEXT PRIMARY KEY,
	value  TEXT NOT NULL
);
`

// insertChunk bounds the rows per INSERT to stay under SQLite's host
// parameter limit.
const insertChunk = 500

// Store is a SQLite-backed phrase table. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with WAL mode enabled
// and initialises the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: open %q: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite store: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database file is usable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Load reads every row ordered by position and builds an immutable
// [corpus.Index] labelled with the stored version.
func (s *Store) Load(ctx context.Context) (*corpus.Index, error) {
	var version string
	err := sq.Select("value").From("corpus_meta").Where(sq.Eq{"name": "version"}).
		RunWith(s.db).QueryRowContext(ctx).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite store: load version: %w", err)
	}

	rows, err := sq.Select("key", "seri", "es", "en").
		From("phrase_entries").
		OrderBy("position", "key").
		RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: load: %w", err)
	}
	defer rows.Close()

	var entries []corpus.PhraseEntry
	for rows.Next() {
		var r corpus.PhraseRow
		if err := rows.Scan(&r.Key, &r.Seri, &r.ES, &r.EN); err != nil {
			return nil, fmt.Errorf("sqlite store: scan: %w", err)
		}
		entries = append(entries, r.Entry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite store: scan: %w", err)
	}

	ix, err := corpus.NewIndex(entries, corpus.WithVersion(version))
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	return ix, nil
}

// Import replaces the stored table with the contents of ix in a single
// transaction. Enumeration order of ix becomes the stored position.
func (s *Store) Import(ctx context.Context, ix *corpus.Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite store: import: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM phrase_entries`); err != nil {
		return fmt.Errorf("sqlite store: import: clear: %w", err)
	}

	var (
		insert sq.InsertBuilder
		n      int
	)
	flush := func() error {
		if n == 0 {
			return nil
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("sqlite store: import: insert: %w", err)
		}
		n = 0
		return nil
	}
	for i, e := range ix.All() {
		if n == 0 {
			insert = sq.Insert("phrase_entries").Columns("key", "position", "seri", "es", "en")
		}
		insert = insert.Values(e.Key, i, e.TextIn(lang.Seri), e.TextIn(lang.Spanish), e.TextIn(lang.English))
		if n++; n == insertChunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	_, err = sq.Insert("corpus_meta").
		Columns("name", "value").
		Values("version", ix.Version()).
		Suffix("ON CONFLICT (name) DO UPDATE SET value = excluded.value").
		RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite store: import: version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite store: import: commit: %w", err)
	}
	return nil
}
