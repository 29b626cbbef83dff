// Package history persists run reports so later runs can gate against
// a baseline. The validation core never touches this package; it is
// host-side plumbing used by the CLI.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tracegate/tracegate/internal/health"
	"github.com/tracegate/tracegate/internal/postexec"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Run is one persisted validation run.
type Run struct {
	PipelineID    string           `json:"pipeline_id"`
	SchemaVersion string           `json:"schema_version"`
	RunToken      string           `json:"run_token"`
	CreatedAt     time.Time        `json:"created_at"`
	Report        *postexec.Report `json:"report"`
	Health        *health.Score    `json:"health"`
}

// Store provides durable storage for run history.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and the schema automatically; safe to call
// against an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect history db: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := stampVersion(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func stampVersion(db *sql.DB) error {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if n == 0 {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save persists one run. The report and health score are stored both
// as scalar columns (for indexed lookups) and as JSON (for full
// re-hydration).
func (s *Store) Save(ctx context.Context, run *Run) error {
	if run.Report == nil || run.Health == nil {
		return fmt.Errorf("save run %s: report and health are required", run.RunToken)
	}
	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	healthJSON, err := json.Marshal(run.Health)
	if err != nil {
		return fmt.Errorf("marshal health: %w", err)
	}

	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (pipeline_id, schema_version, run_token, created_at,
		                  health_overall, completeness, chains_broken,
		                  report_json, health_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.PipelineID, run.SchemaVersion, run.RunToken,
		createdAt.Format(time.RFC3339Nano),
		run.Health.Overall, run.Report.CompletenessPct, run.Report.ChainsBroken,
		string(reportJSON), string(healthJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunToken, err)
	}
	return nil
}

// LatestBaseline returns the most recent run for a pipeline, or
// (nil, nil) when the pipeline has no history yet.
func (s *Store) LatestBaseline(ctx context.Context, pipelineID string) (*Run, error) {
	rows, err := s.queryRuns(ctx, pipelineID, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Runs returns up to limit runs for a pipeline, newest first.
func (s *Store) Runs(ctx context.Context, pipelineID string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.queryRuns(ctx, pipelineID, limit)
}

func (s *Store) queryRuns(ctx context.Context, pipelineID string, limit int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pipeline_id, schema_version, run_token, created_at, report_json, health_json
		FROM runs
		WHERE pipeline_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		pipelineID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs for %q: %w", pipelineID, err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		var (
			run        Run
			createdAt  string
			reportJSON string
			healthJSON string
		)
		if err := rows.Scan(&run.PipelineID, &run.SchemaVersion, &run.RunToken,
			&createdAt, &reportJSON, &healthJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		run.Report = &postexec.Report{}
		if err := json.Unmarshal([]byte(reportJSON), run.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report for %s: %w", run.RunToken, err)
		}
		run.Health = &health.Score{}
		if err := json.Unmarshal([]byte(healthJSON), run.Health); err != nil {
			return nil, fmt.Errorf("unmarshal health for %s: %w", run.RunToken, err)
		}
		out = append(out, &run)
	}
	return out, rows.Err()
}
