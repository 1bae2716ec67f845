package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// CreateReview inserts a review record and returns it with ID and
// CreatedAt populated.
func (db *DB) CreateReview(rec *ReviewRecord) (*ReviewRecord, error) {
	recipients, err := json.Marshal(rec.EmailRecipients)
	if err != nil {
		return nil, fmt.Errorf("marshal recipients: %w", err)
	}
	if rec.EmailRecipients == nil {
		recipients = []byte("[]")
	}

	res, err := db.Exec(`
		INSERT INTO review_records
		  (project_key, repo_slug, commit_id, pr_id, review_type, trigger_type,
		   author_name, author_email, diff_content,
		   review_feedback, diff_size, added_lines, removed_lines,
		   llm_provider, llm_model, email_sent, email_recipients)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ProjectKey, rec.RepoSlug, rec.CommitID, rec.PRID,
		string(rec.ReviewType), string(rec.TriggerType),
		rec.AuthorName, rec.AuthorEmail, rec.DiffContent,
		rec.ReviewFeedback, rec.DiffSize, rec.AddedLines, rec.RemovedLines,
		rec.LLMProvider, rec.LLMModel, rec.EmailSent, string(recipients))
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("review id: %w", err)
	}
	return db.GetReview(id)
}

// GetReview returns the review with the given ID, or sql.ErrNoRows.
func (db *DB) GetReview(id int64) (*ReviewRecord, error) {
	row := db.QueryRow(`
		SELECT id, project_key, repo_slug, commit_id, pr_id, review_type,
		       trigger_type, author_name, author_email, diff_content,
		       review_feedback, diff_size, added_lines,
		       removed_lines, llm_provider, llm_model, email_sent,
		       email_recipients, created_at
		FROM review_records WHERE id = ?`, id)
	return scanReview(row)
}

// ReviewFilter narrows ListReviews and CountReviews. Zero-valued
// fields are ignored.
type ReviewFilter struct {
	ProjectKey string
	RepoSlug   string
	CommitID   string
	PRID       int64
}

// where renders the filter as SQL predicates appended to a WHERE 1=1
// base clause.
func (f ReviewFilter) where() (string, []interface{}) {
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
	return clause, args
}

// ListReviews returns reviews matching the filter, newest first.
func (db *DB) ListReviews(filter ReviewFilter, offset, limit int) ([]*ReviewRecord, error) {
	query := `
		SELECT id, project_key, repo_slug, commit_id, pr_id, review_type,
		       trigger_type, author_name, author_email, diff_content,
		       review_feedback, diff_size, added_lines,
		       removed_lines, llm_provider, llm_model, email_sent,
		       email_recipients, created_at
		FROM review_records WHERE 1=1`
	clause, args := filter.where()
	query += clause + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []*ReviewRecord
	for rows.Next() {
		rec, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, rec)
	}
	return reviews, rows.Err()
}

// LatestReviews returns the most recent reviews across all repos.
func (db *DB) LatestReviews(limit int) ([]*ReviewRecord, error) {
	return db.ListReviews(ReviewFilter{}, 0, limit)
}

// CountReviews returns the number of review records matching the
// filter.
func (db *DB) CountReviews(filter ReviewFilter) (int, error) {
	clause, args := filter.where()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM review_records WHERE 1=1`+clause, args...).Scan(&n)
	return n, err
}

// GetReviewStats aggregates review counts by type and trigger.
func (db *DB) GetReviewStats() (*ReviewStats, error) {
	stats := &ReviewStats{
		ByType:     make(map[string]int),
		ByTrigger:  make(map[string]int),
		ByProvider: make(map[string]int),
	}

	err := db.QueryRow(`
		SELECT COUNT(*),
		       COALESCE(SUM(email_sent), 0),
		       COALESCE(SUM(added_lines), 0),
		       COALESCE(SUM(removed_lines), 0)
		FROM review_records`).
		Scan(&stats.Total, &stats.EmailsSent, &stats.TotalAdded, &stats.TotalRemoved)
	if err != nil {
		return nil, fmt.Errorf("review totals: %w", err)
	}

	rows, err := db.Query(`SELECT review_type, COUNT(*) FROM review_records GROUP BY review_type`)
	if err != nil {
		return nil, fmt.Errorf("reviews by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		stats.ByType[typ] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trows, err := db.Query(`SELECT trigger_type, COUNT(*) FROM review_records GROUP BY trigger_type`)
	if err != nil {
		return nil, fmt.Errorf("reviews by trigger: %w", err)
	}
	defer trows.Close()
	for trows.Next() {
		var trigger string
		var n int
		if err := trows.Scan(&trigger, &n); err != nil {
			return nil, err
		}
		stats.ByTrigger[trigger] = n
	}
	if err := trows.Err(); err != nil {
		return nil, err
	}

	prows, err := db.Query(`SELECT llm_provider, COUNT(*) FROM review_records WHERE llm_provider != '' GROUP BY llm_provider`)
	if err != nil {
		return nil, fmt.Errorf("reviews by provider: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var provider string
		var n int
		if err := prows.Scan(&provider, &n); err != nil {
			return nil, err
		}
		stats.ByProvider[provider] = n
	}
	return stats, prows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(row rowScanner) (*ReviewRecord, error) {
	var rec ReviewRecord
	var commitID sql.NullString
	var prID sql.NullInt64
	var emailSent int
	var recipients, createdAt string

	err := row.Scan(&rec.ID, &rec.ProjectKey, &rec.RepoSlug, &commitID, &prID,
		&rec.ReviewType, &rec.TriggerType,
		&rec.AuthorName, &rec.AuthorEmail, &rec.DiffContent,
		&rec.ReviewFeedback, &rec.DiffSize, &rec.AddedLines, &rec.RemovedLines,
		&rec.LLMProvider, &rec.LLMModel, &emailSent, &recipients, &createdAt)
	if err != nil {
		return nil, err
	}

	if commitID.Valid {
		rec.CommitID = &commitID.String
	}
	if prID.Valid {
		rec.PRID = &prID.Int64
	}
	rec.EmailSent = emailSent != 0
	rec.CreatedAt = parseSQLiteTime(createdAt)
	if err := json.Unmarshal([]byte(recipients), &rec.EmailRecipients); err != nil {
		rec.EmailRecipients = nil
	}
	return &rec, nil
}
