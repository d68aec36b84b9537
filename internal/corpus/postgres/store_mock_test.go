package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/MrWong99/cmiique/internal/corpus"
	"github.com/MrWong99/cmiique/internal/corpus/corpustest"
	"github.com/MrWong99/cmiique/internal/corpus/postgres"
)

func newMockStore(t *testing.T) (*postgres.Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	t.Cleanup(mock.Close)
	return postgres.NewStoreFromDB(mock), mock
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStore_Load_Mock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(mock pgxmock.PgxPoolIface)
		wantErr     bool
		wantLen     int
		wantVersion string
	}{
		{
			name: "rows and version",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM corpus_meta")).
					WithArgs("version").
					WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow("pg-2"))
				mock.ExpectQuery(regexp.QuoteMeta("SELECT key, seri, es, en FROM phrase_entries ORDER BY position, key")).
					WillReturnRows(pgxmock.NewRows([]string{"key", "seri", "es", "en"}).
						AddRow("thanks", "Tahejöc", "Gracias", "Thank you").
						AddRow("see_you", "", "Hasta luego", "See you later"))
			},
			wantLen:     2,
			wantVersion: "pg-2",
		},
		{
			name: "no version row",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT value FROM corpus_meta").
					WithArgs("version").
					WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery("SELECT key, seri, es, en FROM phrase_entries").
					WillReturnRows(pgxmock.NewRows([]string{"key", "seri", "es", "en"}))
			},
			wantLen: 0,
		},
		{
			name: "version query fails",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT value FROM corpus_meta").
					WithArgs("version").
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
		{
			name: "duplicate keys rejected",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery("SELECT value FROM corpus_meta").
					WithArgs("version").
					WillReturnError(pgx.ErrNoRows)
				mock.ExpectQuery("SELECT key, seri, es, en FROM phrase_entries").
					WillReturnRows(pgxmock.NewRows([]string{"key", "seri", "es", "en"}).
						AddRow("water", "Ax", "Agua", "Water").
						AddRow("water", "Ax", "Agua", "Water"))
			},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store, mock := newMockStore(t)
			tc.setup(mock)

			ix, err := store.Load(context.Background())
			if (err != nil) != tc.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tc.wantErr)
			}
			if !tc.wantErr {
				if ix.Len() != tc.wantLen {
					t.Errorf("Len() = %d, want %d", ix.Len(), tc.wantLen)
				}
				if ix.Version() != tc.wantVersion {
					t.Errorf("Version() = %q, want %q", ix.Version(), tc.wantVersion)
				}
			}
			expectationsMet(t, mock)
		})
	}
}

func TestStore_Import_Mock(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	src, err := corpus.NewIndex([]corpus.PhraseEntry{
		corpustest.Entry("thanks", "Tahejöc", "Gracias", "Thank you"),
		corpustest.Entry("greeting", "Hant", "Hola", "Hello"),
	}, corpus.WithVersion("pg-1"))
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM phrase_entries").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO phrase_entries (key,position,seri,es,en)")).
		WithArgs("thanks", 0, "Tahejöc", "Gracias", "Thank you", "greeting", 1, "Hant", "Hola", "Hello").
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO corpus_meta (name,value)")).
		WithArgs("version", "pg-1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := store.Import(context.Background(), src); err != nil {
		t.Fatalf("Import: %v", err)
	}
	expectationsMet(t, mock)
}

func TestStore_Import_EmptyIndex(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	empty, err := corpus.NewIndex(nil)
	if err != nil {
		t.Fatal(err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM phrase_entries").WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO corpus_meta").
		WithArgs("version", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	if err := store.Import(context.Background(), empty); err != nil {
		t.Fatalf("Import: %v", err)
	}
	expectationsMet(t, mock)
}

func TestStore_Import_RollsBackOnError(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM phrase_entries").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := store.Import(context.Background(), corpustest.Index())
	if err == nil {
		t.Fatal("expected error")
	}
	expectationsMet(t, mock)
}

func TestStore_Ping_Mock(t *testing.T) {
	t.Parallel()
	store, mock := newMockStore(t)

	mock.ExpectPing()
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	mock.ExpectPing().WillReturnError(errors.New("down"))
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	expectationsMet(t, mock)
}

func TestMigrate_Mock(t *testing.T) {
	t.Parallel()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS phrase_entries").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS corpus_meta").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	if err := postgres.Migrate(context.Background(), mock); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	expectationsMet(t, mock)
}
