// Package sqlite implements store.Store on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/taxonaut/concord/pkg/concord/bridge"
	"github.com/taxonaut/concord/pkg/concord/inherit"
	"github.com/taxonaut/concord/pkg/concord/match"
	"github.com/taxonaut/concord/pkg/concord/resolve"
	"github.com/taxonaut/concord/pkg/concord/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and initializes the
// schema.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
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

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS bridge_batches (
	batch_id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bridge_rows (
	batch_id TEXT NOT NULL,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	"rank" INTEGER NOT NULL,
	tier TEXT NOT NULL,
	confidence REAL NOT NULL,
	score REAL NOT NULL,
	method TEXT NOT NULL,
	rationale TEXT,
	algorithm_version TEXT,
	matched_at TEXT,
	PRIMARY KEY(batch_id, source_id, "rank"),
	FOREIGN KEY(batch_id) REFERENCES bridge_batches(batch_id)
);

CREATE TABLE IF NOT EXISTS bridge_skipped (
	batch_id TEXT NOT NULL,
	source_id TEXT NOT NULL,
	reason TEXT,
	PRIMARY KEY(batch_id, source_id)
);

CREATE TABLE IF NOT EXISTS resolutions (
	entity_title TEXT NOT NULL,
	context_id TEXT NOT NULL,
	level_used INTEGER NOT NULL,
	method TEXT NOT NULL,
	confidence REAL NOT NULL,
	source_identifier TEXT,
	matched_text TEXT,
	rationale TEXT,
	resolved_at TEXT
);

CREATE TABLE IF NOT EXISTS imputed_attributes (
	entity_id TEXT NOT NULL,
	attribute_name TEXT NOT NULL,
	value TEXT,
	source_level INTEGER NOT NULL,
	source_identifier TEXT,
	provenance TEXT NOT NULL,
	confidence REAL NOT NULL,
	imputed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_bridge_rows_source ON bridge_rows(batch_id, source_id);
CREATE INDEX IF NOT EXISTS idx_resolutions_context ON resolutions(context_id);
CREATE INDEX IF NOT EXISTS idx_imputed_entity ON imputed_attributes(entity_id);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveBridge writes a whole build as one transaction under its batch id.
func (s *sqliteStore) SaveBridge(ctx context.Context, res bridge.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bridge_batches (batch_id, created_at) VALUES (?, ?)`,
		res.BatchID, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return err
	}

	for _, row := range res.Rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bridge_rows
			 (batch_id, source_id, target_id, "rank", tier, confidence, score, method, rationale, algorithm_version, matched_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.BatchID, row.SourceID, row.TargetID, row.Rank,
			row.Tier.String(), row.Confidence, row.Score, row.Method.String(),
			row.Rationale, row.AlgorithmVersion,
			row.MatchedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}

	for _, sk := range res.Skipped {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO bridge_skipped (batch_id, source_id, reason) VALUES (?, ?, ?)`,
			res.BatchID, sk.SourceID, sk.Reason,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBridgeRows returns all rows of a batch ordered by source id then rank.
func (s *sqliteStore) GetBridgeRows(ctx context.Context, batchID string) ([]bridge.Row, error) {
	return s.queryRows(ctx,
		`SELECT batch_id, source_id, target_id, "rank", tier, confidence, score, method, rationale, algorithm_version, matched_at
		 FROM bridge_rows WHERE batch_id = ? ORDER BY source_id, "rank"`, batchID)
}

// GetRowsForSource returns one source entity's ranked rows within a batch.
func (s *sqliteStore) GetRowsForSource(ctx context.Context, batchID, sourceID string) ([]bridge.Row, error) {
	return s.queryRows(ctx,
		`SELECT batch_id, source_id, target_id, "rank", tier, confidence, score, method, rationale, algorithm_version, matched_at
		 FROM bridge_rows WHERE batch_id = ? AND source_id = ? ORDER BY "rank"`, batchID, sourceID)
}

func (s *sqliteStore) queryRows(ctx context.Context, query string, args ...any) ([]bridge.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bridge.Row
	for rows.Next() {
		var r bridge.Row
		var tier, method, matchedAt string
		if err := rows.Scan(&r.BatchID, &r.SourceID, &r.TargetID, &r.Rank,
			&tier, &r.Confidence, &r.Score, &method,
			&r.Rationale, &r.AlgorithmVersion, &matchedAt); err != nil {
			return nil, err
		}
		r.Tier, _ = match.ParseTier(tier)
		r.Method, _ = match.ParseMethod(method)
		if t, err := time.Parse(time.RFC3339Nano, matchedAt); err == nil {
			r.MatchedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetSkipped returns the skipped-entity diagnostics of a batch.
func (s *sqliteStore) GetSkipped(ctx context.Context, batchID string) ([]bridge.Skipped, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, reason FROM bridge_skipped WHERE batch_id = ? ORDER BY source_id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bridge.Skipped
	for rows.Next() {
		var sk bridge.Skipped
		if err := rows.Scan(&sk.SourceID, &sk.Reason); err != nil {
			return nil, err
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

// LatestBatchID returns the most recently written batch id, if any.
func (s *sqliteStore) LatestBatchID(ctx context.Context) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT batch_id FROM bridge_batches ORDER BY created_at DESC, batch_id DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

// SaveResolutions appends resolution results.
func (s *sqliteStore) SaveResolutions(ctx context.Context, results []resolve.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resolutions
			 (entity_title, context_id, level_used, method, confidence, source_identifier, matched_text, rationale, resolved_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.EntityTitle, r.ContextID, r.LevelUsed, r.Method.String(),
			r.Confidence, r.SourceIdentifier, r.MatchedText, r.Rationale,
			r.ResolvedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetResolutions returns resolutions for one context id.
func (s *sqliteStore) GetResolutions(ctx context.Context, contextID string) ([]resolve.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_title, context_id, level_used, method, confidence, source_identifier, matched_text, rationale, resolved_at
		 FROM resolutions WHERE context_id = ? ORDER BY entity_title`, contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []resolve.Result
	for rows.Next() {
		var r resolve.Result
		var method, resolvedAt string
		if err := rows.Scan(&r.EntityTitle, &r.ContextID, &r.LevelUsed, &method,
			&r.Confidence, &r.SourceIdentifier, &r.MatchedText, &r.Rationale, &resolvedAt); err != nil {
			return nil, err
		}
		r.Method, _ = resolve.ParseMethod(method)
		if t, err := time.Parse(time.RFC3339Nano, resolvedAt); err == nil {
			r.ResolvedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveImputedAttributes appends materialized attribute rows.
func (s *sqliteStore) SaveImputedAttributes(ctx context.Context, batch []inherit.BatchRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range batch {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO imputed_attributes
			 (entity_id, attribute_name, value, source_level, source_identifier, provenance, confidence, imputed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			row.EntityID, row.AttributeName, row.Value, row.SourceLevel,
			row.SourceIdentifier, row.Provenance.String(), row.Confidence,
			row.ImputedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetImputedAttributes returns materialized attributes for one entity.
func (s *sqliteStore) GetImputedAttributes(ctx context.Context, entityID string) ([]inherit.BatchRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_id, attribute_name, value, source_level, source_identifier, provenance, confidence, imputed_at
		 FROM imputed_attributes WHERE entity_id = ? ORDER BY attribute_name`, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []inherit.BatchRow
	for rows.Next() {
		var row inherit.BatchRow
		var prov, imputedAt string
		if err := rows.Scan(&row.EntityID, &row.AttributeName, &row.Value, &row.SourceLevel,
			&row.SourceIdentifier, &prov, &row.Confidence, &imputedAt); err != nil {
			return nil, err
		}
		row.Provenance, _ = inherit.ParseProvenance(prov)
		if t, err := time.Parse(time.RFC3339Nano, imputedAt); err == nil {
			row.ImputedAt = t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
