package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"aging/internal"
)

// DB is the run journal: one row per recomputation pass plus the sources it skipped.
// Normalized tables are never stored; they are rebuilt from the source files.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  outlets TEXT NOT NULL,
  categories TEXT NOT NULL,
  metric TEXT NOT NULL,
  loaded INTEGER NOT NULL,
  skipped INTEGER NOT NULL,
  rowCount INTEGER NOT NULL,
  groupCount INTEGER NOT NULL,
  cacheHit INTEGER NOT NULL DEFAULT 0,
  timingsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_runs_traceId ON runs(traceId);

CREATE TABLE IF NOT EXISTS load_failures (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId INTEGER NOT NULL,
  outlet TEXT NOT NULL,
  path TEXT NOT NULL,
  kind TEXT NOT NULL,
  detail TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);
CREATE INDEX IF NOT EXISTS idx_load_failures_runId ON load_failures(runId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertRun(run internal.RunRecord) (int64, error) {
	tx, err := d.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	timingsJSON, _ := json.Marshal(map[string]float64{"totalMs": run.DurationMs})
	result, err := tx.Exec(`
INSERT INTO runs (traceId, outlets, categories, metric, loaded, skipped, rowCount, groupCount, cacheHit, timingsJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, joinOrAll(run.Outlets), joinOrAll(run.Categories), run.Metric, run.Loaded, run.Skipped, run.Rows, run.Groups, boolToInt(run.CacheHit), string(timingsJSON))
	if err != nil {
		return 0, err
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(run.Failures) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO load_failures (runId, outlet, path, kind, detail) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()
		for _, f := range run.Failures {
			if _, err := stmt.Exec(runID, f.Outlet, f.Path, f.Kind, f.Detail); err != nil {
				return 0, err
			}
		}
	}

	return runID, tx.Commit()
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := d.conn.Query(`
SELECT id, traceId, outlets, categories, metric, loaded, skipped, rowCount, groupCount, cacheHit, timingsJson, createdAt
FROM runs ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var cacheHit int
		var timingsJSON string
		if err := rows.Scan(
			&row.ID, &row.TraceID, &row.Outlets, &row.Categories, &row.Metric,
			&row.Loaded, &row.Skipped, &row.Rows, &row.Groups, &cacheHit, &timingsJSON, &row.CreatedAt,
		); err != nil {
			return nil, err
		}
		row.CacheHit = cacheHit != 0
		var timings map[string]float64
		_ = json.Unmarshal([]byte(timingsJSON), &timings)
		row.DurationMs = timings["totalMs"]
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) ListLoadFailures(runID int) ([]internal.LoadFailureRow, error) {
	rows, err := d.conn.Query(`SELECT outlet, path, kind, detail FROM load_failures WHERE runId = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LoadFailureRow
	for rows.Next() {
		var f internal.LoadFailureRow
		if err := rows.Scan(&f.Outlet, &f.Path, &f.Kind, &f.Detail); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func joinOrAll(values []string) string {
	if values == nil {
		return "*"
	}
	return strings.Join(values, ",")
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
