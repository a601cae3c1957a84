// Package sqlite implements the append-only store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lookout-analytics/rfpharvest/pkg/harvest/notice"
	"github.com/lookout-analytics/rfpharvest/pkg/harvest/store"
)

type sqliteStore struct {
	db *sql.DB
}

// Open opens (creating if necessary) the notice log at path with WAL
// mode enabled, so the analyzer can read while a run appends.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS rfps (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	rfp_id TEXT NOT NULL DEFAULT '',
	hash TEXT NOT NULL,
	source TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '',
	agency TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	posted_date TEXT NOT NULL DEFAULT '',
	close_date TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	amount TEXT NOT NULL DEFAULT '',
	recipient TEXT NOT NULL DEFAULT '',
	recipient_state TEXT NOT NULL DEFAULT '',
	pi_name TEXT NOT NULL DEFAULT '',
	keyword_match INTEGER NOT NULL DEFAULT 0,
	matched_keywords TEXT NOT NULL DEFAULT '',
	key_terms TEXT NOT NULL DEFAULT '',
	scrape_date TEXT NOT NULL DEFAULT '',
	scrape_timestamp TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_rfps_hash ON rfps(hash);
CREATE INDEX IF NOT EXISTS idx_rfps_state ON rfps(state);
CREATE INDEX IF NOT EXISTS idx_rfps_source ON rfps(source);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// Append writes the batch in one transaction. A failure rolls the whole
// batch back, leaving previously persisted rows untouched.
func (s *sqliteStore) Append(ctx context.Context, rows []notice.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO rfps (
	rfp_id, hash, source, state, title, agency, status,
	posted_date, close_date, url, description, amount,
	recipient, recipient_state, pi_name,
	keyword_match, matched_keywords, key_terms,
	scrape_date, scrape_timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		match := 0
		if r.KeywordMatch {
			match = 1
		}
		_, err := stmt.ExecContext(ctx,
			r.RFPID, r.Hash, r.Source, r.State, r.Title, r.Agency, r.Status,
			r.PostedDate, r.CloseDate, r.URL, r.Description, r.Amount,
			r.Recipient, r.RecipientState, r.PIName,
			match,
			strings.Join(r.MatchedKeywords, ", "),
			strings.Join(r.KeyTerms, ", "),
			r.ScrapeDate,
			r.ScrapeTimestamp.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// All returns every stored row in insertion order.
func (s *sqliteStore) All(ctx context.Context) ([]notice.Row, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT rfp_id, hash, source, state, title, agency, status,
	posted_date, close_date, url, description, amount,
	recipient, recipient_state, pi_name,
	keyword_match, matched_keywords, key_terms,
	scrape_date, scrape_timestamp
FROM rfps
ORDER BY id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notice.Row
	for rows.Next() {
		var (
			r       notice.Row
			match   int
			kwJoin  string
			ktJoin  string
			tsValue string
		)
		err := rows.Scan(
			&r.RFPID, &r.Hash, &r.Source, &r.State, &r.Title, &r.Agency, &r.Status,
			&r.PostedDate, &r.CloseDate, &r.URL, &r.Description, &r.Amount,
			&r.Recipient, &r.RecipientState, &r.PIName,
			&match, &kwJoin, &ktJoin,
			&r.ScrapeDate, &tsValue,
		)
		if err != nil {
			return nil, err
		}
		r.KeywordMatch = match != 0
		r.MatchedKeywords = splitJoined(kwJoin)
		r.KeyTerms = splitJoined(ktJoin)
		if tsValue != "" {
			if parsed, perr := time.Parse(time.RFC3339, tsValue); perr == nil {
				r.ScrapeTimestamp = parsed
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of stored rows.
func (s *sqliteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rfps`).Scan(&n)
	return n, err
}

func splitJoined(joined string) []string {
	if joined == "" {
		return nil
	}
	parts := strings.Split(joined, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
