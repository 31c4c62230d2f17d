// Package sqlite exports travel warning records into a two-table SQLite
// database: advisory metadata in travel_warnings_meta, the full HTML
// body in travel_warnings_content. Downstream consumers query the meta
// table and join content only when they need the body.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/wanderdata/tripfetch/pkg/store"
)

// ErrMinRows is returned when an export would write fewer advisories
// than the configured floor. Matches the store's no-shrink rule: a
// sudden small dataset is more likely a broken run than a real change.
var ErrMinRows = errors.New("sqlite: export below min-rows floor")

const schema = `
CREATE TABLE IF NOT EXISTS travel_warnings_meta (
	content_id             TEXT PRIMARY KEY,
	title                  TEXT NOT NULL,
	country_name           TEXT,
	country_code           TEXT,
	iso3_country_code      TEXT,
	warning                INTEGER NOT NULL DEFAULT 0,
	partial_warning        INTEGER NOT NULL DEFAULT 0,
	situation_warning      INTEGER NOT NULL DEFAULT 0,
	situation_part_warning INTEGER NOT NULL DEFAULT 0,
	last_modified_iso      TEXT,
	effective_iso          TEXT,
	fetched_at             TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS travel_warnings_content (
	content_id TEXT PRIMARY KEY REFERENCES travel_warnings_meta(content_id),
	content    TEXT NOT NULL
);
`

// Sink writes travel warning exports to a SQLite file.
type Sink struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (and if necessary creates) the database and its schema.
func Open(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Sink{
		db:     db,
		logger: log.With().Str("component", "sqlite-sink").Logger(),
	}, nil
}

// Close closes the underlying database.
func (s *Sink) Close() error {
	return s.db.Close()
}

// Rows returns the number of advisories currently in the database.
func (s *Sink) Rows(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM travel_warnings_meta`).Scan(&n)
	return n, err
}

// Export upserts every successful record into the database in one
// transaction. Failure records are skipped. The export is refused
// outright when the number of successes is below minRows, leaving the
// database untouched.
func (s *Sink) Export(ctx context.Context, records []store.Record, minRows int) (int, error) {
	successes := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if rec.Status == store.StatusSuccess {
			successes = append(successes, rec)
		}
	}
	if len(successes) < minRows {
		return 0, fmt.Errorf("%w: %d successes, floor %d", ErrMinRows, len(successes), minRows)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	metaStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO travel_warnings_meta (
			content_id, title, country_name, country_code, iso3_country_code,
			warning, partial_warning, situation_warning, situation_part_warning,
			last_modified_iso, effective_iso, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_id) DO UPDATE SET
			title = excluded.title,
			country_name = excluded.country_name,
			country_code = excluded.country_code,
			iso3_country_code = excluded.iso3_country_code,
			warning = excluded.warning,
			partial_warning = excluded.partial_warning,
			situation_warning = excluded.situation_warning,
			situation_part_warning = excluded.situation_part_warning,
			last_modified_iso = excluded.last_modified_iso,
			effective_iso = excluded.effective_iso,
			fetched_at = excluded.fetched_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare meta: %w", err)
	}
	defer metaStmt.Close()

	contentStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO travel_warnings_content (content_id, content)
		VALUES (?, ?)
		ON CONFLICT(content_id) DO UPDATE SET content = excluded.content`)
	if err != nil {
		return 0, fmt.Errorf("prepare content: %w", err)
	}
	defer contentStmt.Close()

	for _, rec := range successes {
		p := rec.Payload
		_, err := metaStmt.ExecContext(ctx,
			rec.ID,
			stringField(p, "title"),
			stringField(p, "country_name"),
			stringField(p, "country_code"),
			stringField(p, "iso3_country_code"),
			boolInt(p, "warning"),
			boolInt(p, "partial_warning"),
			boolInt(p, "situation_warning"),
			boolInt(p, "situation_part_warning"),
			stringField(p, "last_modified_iso"),
			stringField(p, "effective_iso"),
			rec.FetchedAt.Format("2006-01-02T15:04:05Z07:00"),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert meta %s: %w", rec.ID, err)
		}
		if content := stringField(p, "content"); content != "" {
			if _, err := contentStmt.ExecContext(ctx, rec.ID, content); err != nil {
				return 0, fmt.Errorf("upsert content %s: %w", rec.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info().
		Int("advisories", len(successes)).
		Msg("Exported travel warnings")
	return len(successes), nil
}

func stringField(p map[string]any, key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func boolInt(p map[string]any, key string) int {
	if v, ok := p[key].(bool); ok && v {
		return 1
	}
	return 0
}
