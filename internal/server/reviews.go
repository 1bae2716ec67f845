package server

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
)

const maxListLimit = 100

// parseLimit reads a limit query parameter, clamped to maxListLimit.
func parseLimit(r *http.Request, def int) int {
	limit := def
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	return limit
}

func parseOffset(r *http.Request) int {
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func (s *Server) handleLatestReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	reviews, err := s.db.LatestReviews(parseLimit(r, 10))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeReviewList(w, reviews)
}

// writeReviewList sends a list response with the full diff text
// stripped; the single-review endpoint serves it.
func writeReviewList(w http.ResponseWriter, reviews []*storage.ReviewRecord) {
	for _, rec := range reviews {
		rec.DiffContent = ""
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reviews": reviews,
		"count":   len(reviews),
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	filter := storage.ReviewFilter{
		ProjectKey: q.Get("project_key"),
		RepoSlug:   q.Get("repo_slug"),
		CommitID:   q.Get("commit_id"),
	}
	if v := q.Get("pr_id"); v != "" {
		prID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pr_id parameter")
			return
		}
		filter.PRID = prID
	}

	reviews, err := s.db.ListReviews(filter, parseOffset(r), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeReviewList(w, reviews)
}

func (s *Server) handleGetReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	review, err := s.db.GetReview(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "review not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleReviewStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.db.GetReviewStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
