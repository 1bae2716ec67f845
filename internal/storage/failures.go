package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// CreateFailure inserts a failure record and returns its ID.
func (db *DB) CreateFailure(rec *FailureRecord) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO review_failures
		  (stage, error_type, error_message, stack_trace, event_type,
		   event_key, payload, project_key, repo_slug, commit_id, pr_id,
		   author_name, author_email)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Stage, rec.ErrorType, rec.ErrorMessage, rec.StackTrace,
		rec.EventType, rec.EventKey, rec.Payload,
		rec.ProjectKey, rec.RepoSlug, rec.CommitID, rec.PRID,
		rec.AuthorName, rec.AuthorEmail)
	if err != nil {
		return 0, fmt.Errorf("insert failure: %w", err)
	}
	return res.LastInsertId()
}

// GetFailure returns the failure with the given ID, or sql.ErrNoRows.
func (db *DB) GetFailure(id int64) (*FailureRecord, error) {
	row := db.QueryRow(`
		SELECT id, stage, error_type, error_message, stack_trace, event_type,
		       event_key, payload, project_key, repo_slug, commit_id, pr_id,
		       author_name, author_email, retry_count,
		       resolved, resolved_at, resolution_notes, created_at
		FROM review_failures WHERE id = ?`, id)
	return scanFailure(row)
}

// FailureFilter narrows ListFailures and CountFailures. Zero-valued
// fields are ignored.
type FailureFilter struct {
	ProjectKey     string
	RepoSlug       string
	CommitID       string
	PRID           int64
	UnresolvedOnly bool
}

func (f FailureFilter) where() (string, []interface{}) {
	var clause string
	var args []interface{}
	if f.ProjectKey != "" {
		clause += " AND project_key = ?"
		args = append(args, f.ProjectKey)
	}
	if f.RepoSlug != "" {
		clause += " AND repo_slug = ?"
		args = append(args, f.RepoSlug)
	}
	if f.CommitID != "" {
		clause += " AND commit_id = ?"
		args = append(args, f.CommitID)
	}
	if f.PRID != 0 {
		clause += " AND pr_id = ?"
		args = append(args, f.PRID)
	}
	if f.UnresolvedOnly {
		clause += " AND resolved = 0"
	}
	return clause, args
}

// ListFailures returns failures matching the filter, newest first.
func (db *DB) ListFailures(filter FailureFilter, offset, limit int) ([]*FailureRecord, error) {
	query := `
		SELECT id, stage, error_type, error_message, stack_trace, event_type,
		       event_key, payload, project_key, repo_slug, commit_id, pr_id,
		       author_name, author_email, retry_count,
		       resolved, resolved_at, resolution_notes, created_at
		FROM review_failures WHERE 1=1`
	clause, args := filter.where()
	query += clause + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var failures []*FailureRecord
	for rows.Next() {
		rec, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		failures = append(failures, rec)
	}
	return failures, rows.Err()
}

// CountFailures returns the number of failure records matching the
// filter.
func (db *DB) CountFailures(filter FailureFilter) (int, error) {
	clause, args := filter.where()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM review_failures WHERE 1=1`+clause, args...).Scan(&n)
	return n, err
}

// GetFailureStats aggregates failure counts per pipeline stage.
func (db *DB) GetFailureStats() (*FailureStats, error) {
	stats := &FailureStats{ByStage: make(map[string]int)}

	err := db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN resolved = 0 THEN 1 ELSE 0 END), 0)
		FROM review_failures`).Scan(&stats.Total, &stats.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("failure totals: %w", err)
	}

	rows, err := db.Query(`SELECT stage, COUNT(*) FROM review_failures GROUP BY stage`)
	if err != nil {
		return nil, fmt.Errorf("failures by stage: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stage string
		var n int
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		stats.ByStage[stage] = n
	}
	return stats, rows.Err()
}

// MarkFailureResolved flags a failure as handled. Returns
// sql.ErrNoRows when the failure does not exist.
func (db *DB) MarkFailureResolved(id int64, notes string) error {
	res, err := db.Exec(`
		UPDATE review_failures SET resolved = 1, resolved_at = ?, resolution_notes = ?
		WHERE id = ?`, time.Now().UTC().Format(time.RFC3339), notes, id)
	if err != nil {
		return fmt.Errorf("resolve failure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanFailure(row rowScanner) (*FailureRecord, error) {
	var rec FailureRecord
	var commitID sql.NullString
	var prID sql.NullInt64
	var resolved int
	var resolvedAt sql.NullString
	var createdAt string

	err := row.Scan(&rec.ID, &rec.Stage, &rec.ErrorType, &rec.ErrorMessage,
		&rec.StackTrace, &rec.EventType, &rec.EventKey, &rec.Payload,
		&rec.ProjectKey, &rec.RepoSlug, &commitID, &prID,
		&rec.AuthorName, &rec.AuthorEmail, &rec.RetryCount,
		&resolved, &resolvedAt, &rec.ResolutionNotes, &createdAt)
	if err != nil {
		return nil, err
	}

	if commitID.Valid {
		rec.CommitID = &commitID.String
	}
	if prID.Valid {
		rec.PRID = &prID.Int64
	}
	rec.Resolved = resolved != 0
	if resolvedAt.Valid {
		t := parseSQLiteTime(resolvedAt.String)
		rec.ResolvedAt = &t
	}
	rec.CreatedAt = parseSQLiteTime(createdAt)
	return &rec, nil
}
