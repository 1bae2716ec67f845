package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/config"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS review_records (
  id INTEGER PRIMARY KEY,
  project_key TEXT NOT NULL,
  repo_slug TEXT NOT NULL,
  commit_id TEXT,
  pr_id INTEGER,
  review_type TEXT NOT NULL,
  trigger_type TEXT NOT NULL,
  author_name TEXT NOT NULL DEFAULT '',
  author_email TEXT NOT NULL DEFAULT '',
  diff_content TEXT NOT NULL DEFAULT '',
  review_feedback TEXT NOT NULL,
  diff_size INTEGER NOT NULL DEFAULT 0,
  added_lines INTEGER NOT NULL DEFAULT 0,
  removed_lines INTEGER NOT NULL DEFAULT 0,
  llm_provider TEXT NOT NULL DEFAULT '',
  llm_model TEXT NOT NULL DEFAULT '',
  email_sent INTEGER NOT NULL DEFAULT 0,
  email_recipients TEXT NOT NULL DEFAULT '[]',
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS review_failures (
  id INTEGER PRIMARY KEY,
  stage TEXT NOT NULL,
  error_type TEXT NOT NULL,
  error_message TEXT NOT NULL,
  stack_trace TEXT NOT NULL DEFAULT '',
  event_type TEXT NOT NULL DEFAULT '',
  event_key TEXT NOT NULL DEFAULT '',
  payload TEXT NOT NULL DEFAULT '',
  project_key TEXT NOT NULL DEFAULT '',
  repo_slug TEXT NOT NULL DEFAULT '',
  commit_id TEXT,
  pr_id INTEGER,
  author_name TEXT NOT NULL DEFAULT '',
  author_email TEXT NOT NULL DEFAULT '',
  retry_count INTEGER NOT NULL DEFAULT 0,
  resolved INTEGER NOT NULL DEFAULT 0,
  resolved_at TEXT,
  resolution_notes TEXT NOT NULL DEFAULT '',
  created_at TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_review_records_repo ON review_records(project_key, repo_slug);
CREATE INDEX IF NOT EXISTS idx_review_records_commit ON review_records(commit_id);
CREATE INDEX IF NOT EXISTS idx_review_records_pr ON review_records(pr_id);
CREATE INDEX IF NOT EXISTS idx_review_records_created ON review_records(created_at);
CREATE INDEX IF NOT EXISTS idx_review_failures_stage ON review_failures(stage);
CREATE INDEX IF NOT EXISTS idx_review_failures_resolved ON review_failures(resolved);
`

type DB struct {
	*sql.DB
}

// DefaultDBPath returns the default database path
func DefaultDBPath() string {
	return filepath.Join(config.DataDir(), "reviews.db")
}

// Open opens or creates the database at the given path
func Open(dbPath string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Open with WAL mode and busy timeout
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	wrapped := &DB{db}

	// Initialize schema (CREATE IF NOT EXISTS is idempotent)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	// Run migrations for existing databases
	if err := wrapped.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return wrapped, nil
}

// migrate runs any needed migrations for existing databases
func (db *DB) migrate() error {
	// Migration: add llm_provider/llm_model columns to review_records if missing
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('review_records') WHERE name = 'llm_provider'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check llm_provider column: %w", err)
	}
	if count == 0 {
		_, err = db.Exec(`ALTER TABLE review_records ADD COLUMN llm_provider TEXT NOT NULL DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("add llm_provider column: %w", err)
		}
		_, err = db.Exec(`ALTER TABLE review_records ADD COLUMN llm_model TEXT NOT NULL DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("add llm_model column: %w", err)
		}
	}

	// Migration: add authorship and diff content columns to
	// review_records if missing
	err = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('review_records') WHERE name = 'diff_content'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check diff_content column: %w", err)
	}
	if count == 0 {
		for _, stmt := range []string{
			`ALTER TABLE review_records ADD COLUMN author_name TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE review_records ADD COLUMN author_email TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE review_records ADD COLUMN diff_content TEXT NOT NULL DEFAULT ''`,
		} {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("add review authorship columns: %w", err)
			}
		}
	}

	// Migration: add resolution_notes column to review_failures if missing
	err = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('review_failures') WHERE name = 'resolution_notes'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check resolution_notes column: %w", err)
	}
	if count == 0 {
		_, err = db.Exec(`ALTER TABLE review_failures ADD COLUMN resolution_notes TEXT NOT NULL DEFAULT ''`)
		if err != nil {
			return fmt.Errorf("add resolution_notes column: %w", err)
		}
	}

	// Migration: add author/retry columns to review_failures if missing
	err = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('review_failures') WHERE name = 'retry_count'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("check retry_count column: %w", err)
	}
	if count == 0 {
		for _, stmt := range []string{
			`ALTER TABLE review_failures ADD COLUMN author_name TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE review_failures ADD COLUMN author_email TEXT NOT NULL DEFAULT ''`,
			`ALTER TABLE review_failures ADD COLUMN retry_count INTEGER NOT NULL DEFAULT 0`,
		} {
			if _, err := db.Exec(stmt); err != nil {
				return fmt.Errorf("add failure audit columns: %w", err)
			}
		}
	}

	return nil
}

func parseSQLiteTime(s string) time.Time {
	// Try RFC3339 first (what we write for resolved_at)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// Try SQLite datetime format (from datetime('now'))
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	// Try with timezone
	if t, err := time.Parse("2006-01-02T15:04:05Z07:00", s); err == nil {
		return t
	}
	return time.Time{}
}
