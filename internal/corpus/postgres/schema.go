// Package postgres stores the phrase table in PostgreSQL so that curators can
// edit it without redeploying the service.
//
// The table is read once at startup into an immutable [corpus.Index]; the
// service never writes to it while serving.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	ix, err := store.Load(ctx)
package postgres

import (
	"context"
	"fmt"
)

const ddlPhraseEntries = `
CREATE TABLE IF NOT EXISTS phrase_entries (
    key         TEXT         PRIMARY KEY,
    position    INTEGER      NOT NULL,
    seri        TEXT         NOT NULL DEFAULT '',
    es          TEXT         NOT NULL DEFAULT '',
    en          TEXT         NOT NULL DEFAULT '',
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_phrase_entries_position
    ON phrase_entries (position);
`

const ddlCorpusMeta = `
CREATE TABLE IF NOT EXISTS corpus_meta (
    name   TEXT PRIMARY KEY,
    value  TEXT NOT NULL
);
`

// Migrate creates the phrase table and its metadata table if they do not
// exist. It is idempotent.
func Migrate(ctx context.Context, db DB) error {
	for _, stmt := range []string{ddlPhraseEntries, ddlCorpusMeta} {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
