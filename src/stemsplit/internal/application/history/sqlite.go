package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/lib/cerr"
	_ "modernc.org/sqlite"
)

var _ Store = &SQLiteStore{}

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	errctx := cerr.Field("path", path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errctx.Wrap(err).Error("Failed to open history database")
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errctx.Wrap(err).Error("Failed to migrate history database")
	}

	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS job_history (
  job_id TEXT PRIMARY KEY,
  run_id TEXT NOT NULL,
  source TEXT NOT NULL,
  output_dir TEXT NOT NULL,
  model TEXT NOT NULL DEFAULT '',
  device TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  error_kind TEXT NOT NULL DEFAULT '',
  error TEXT NOT NULL DEFAULT '',
  uploads TEXT NOT NULL DEFAULT '',
  started_at TEXT NOT NULL DEFAULT '',
  finished_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS job_history_run ON job_history(run_id);
`)
	return err
}

func (s *SQLiteStore) Record(ctx context.Context, record Record) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO job_history(job_id, run_id, source, output_dir, model, device, status, error_kind, error, uploads, started_at, finished_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(job_id) DO UPDATE SET
  status=excluded.status,
  device=excluded.device,
  error_kind=excluded.error_kind,
  error=excluded.error,
  uploads=excluded.uploads,
  finished_at=excluded.finished_at;
`,
		record.JobID, record.RunID, record.Source, record.OutputDir, record.Model, record.Device,
		record.Status, record.ErrorKind, record.Error, strings.Join(record.Uploads, "\n"),
		formatTime(record.StartedAt), formatTime(record.FinishedAt))

	if err != nil {
		return cerr.Field("job_id", record.JobID).Wrap(err).Error("Failed to insert history record")
	}

	return nil
}

func (s *SQLiteStore) ListRun(ctx context.Context, runID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT job_id, run_id, source, output_dir, model, device, status, error_kind, error, uploads, started_at, finished_at
FROM job_history WHERE run_id=? ORDER BY started_at, source;
`, runID)
	if err != nil {
		return nil, cerr.Field("run_id", runID).Wrap(err).Error("Failed to query history")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r          Record
			uploads    string
			startedAt  string
			finishedAt string
		)

		if err := rows.Scan(&r.JobID, &r.RunID, &r.Source, &r.OutputDir, &r.Model, &r.Device,
			&r.Status, &r.ErrorKind, &r.Error, &uploads, &startedAt, &finishedAt); err != nil {
			return nil, cerr.Wrap(err).Error("Failed to scan history row")
		}

		r.Uploads = []string{}
		if uploads != "" {
			r.Uploads = strings.Split(uploads, "\n")
		}
		r.StartedAt = parseTime(startedAt)
		r.FinishedAt = parseTime(finishedAt)

		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, cerr.Wrap(err).Error("Failed to read history rows")
	}

	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}

	return t
}
