package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/internradar/internradar/internal/model"
)

// sqlColumns mirrors columns in snake_case.
var sqlColumns = []string{
	"company", "role", "platform", "posting_date", "deadline", "link",
	"status", "scam_status", "cover_message",
	"stipend", "duration", "location", "skills", "mode", "scam_flags",
}

// insertColumns is sqlColumns plus the identity key written on Save.
var insertColumns = append(append([]string{}, sqlColumns...), "identity")

// SQLiteStore keeps the posting set in a SQLite database. Row order is
// insertion order. Each row carries model.IdentityKey in a unique identity
// column; postings without a key store NULL there.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// postings table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS postings (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		company       TEXT NOT NULL DEFAULT '',
		role          TEXT NOT NULL DEFAULT '',
		platform      TEXT NOT NULL DEFAULT '',
		posting_date  TEXT NOT NULL DEFAULT '',
		deadline      TEXT NOT NULL DEFAULT '',
		link          TEXT NOT NULL DEFAULT '',
		status        TEXT NOT NULL DEFAULT '',
		scam_status   TEXT NOT NULL DEFAULT '',
		cover_message TEXT NOT NULL DEFAULT '',
		stipend       TEXT NOT NULL DEFAULT '',
		duration      TEXT NOT NULL DEFAULT '',
		location      TEXT NOT NULL DEFAULT '',
		skills        TEXT NOT NULL DEFAULT '',
		mode          TEXT NOT NULL DEFAULT '',
		scam_flags    TEXT NOT NULL DEFAULT '',
		identity      TEXT
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating postings table: %w", err)
	}
	if err := ensureIdentityColumn(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// ensureIdentityColumn adds the identity column to databases created before
// it existed and indexes it. NULLs never collide in a SQLite unique index.
func ensureIdentityColumn(db *sql.DB) error {
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('postings') WHERE name = 'identity'`).Scan(&n); err != nil {
		return fmt.Errorf("inspecting postings table: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec(`ALTER TABLE postings ADD COLUMN identity TEXT`); err != nil {
			return fmt.Errorf("adding identity column: %w", err)
		}
	}
	if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS postings_identity ON postings(identity)`); err != nil {
		return fmt.Errorf("indexing identity column: %w", err)
	}
	return nil
}

// Load returns every stored posting in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]model.Posting, error) {
	rows, err := sq.Select(sqlColumns...).
		From("postings").
		OrderBy("seq").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying postings: %w", err)
	}
	defer rows.Close()

	var postings []model.Posting
	for rows.Next() {
		vals := make([]string, len(sqlColumns))
		ptrs := make([]any, len(vals))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		postings = append(postings, fromRow(func(col string) string {
			for i, c := range columns {
				if c == col {
					return vals[i]
				}
			}
			return ""
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings: %w", err)
	}
	return postings, nil
}

// Save replaces the table contents with postings in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, postings []model.Posting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := sq.Delete("postings").RunWith(tx).ExecContext(ctx); err != nil {
		return fmt.Errorf("clearing postings: %w", err)
	}

	for _, p := range postings {
		row := toRow(p)
		vals := make([]any, len(row), len(row)+1)
		for i, v := range row {
			vals[i] = v
		}
		vals = append(vals, identityValue(p))
		if _, err := sq.Insert("postings").
			Columns(insertColumns...).
			Values(vals...).
			RunWith(tx).
			ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting posting %s: %w", p.Link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing postings: %w", err)
	}
	return nil
}

func identityValue(p model.Posting) sql.NullString {
	key := model.IdentityKey(p)
	return sql.NullString{String: key, Valid: key != ""}
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
