package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
)

func (s *Server) handleLatestFailures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.listFailures(w, r, false, parseLimit(r, 10))
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.listFailures(w, r, false, parseLimit(r, 50))
}

func (s *Server) handleUnresolvedFailures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.listFailures(w, r, true, parseLimit(r, 50))
}

func (s *Server) listFailures(w http.ResponseWriter, r *http.Request, unresolvedOnly bool, limit int) {
	q := r.URL.Query()
	filter := storage.FailureFilter{
		ProjectKey:     q.Get("project_key"),
		RepoSlug:       q.Get("repo_slug"),
		CommitID:       q.Get("commit_id"),
		UnresolvedOnly: unresolvedOnly,
	}
	if v := q.Get("pr_id"); v != "" {
		prID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid pr_id parameter")
			return
		}
		filter.PRID = prID
	}

	failures, err := s.db.ListFailures(filter, parseOffset(r), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	// Trim the heavyweight fields from list responses; the single
	// failure endpoint returns them in full.
	for _, f := range failures {
		f.StackTrace = ""
		f.Payload = ""
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"failures": failures,
		"count":    len(failures),
	})
}

func (s *Server) handleGetFailure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	failure, err := s.db.GetFailure(id)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "failure not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, failure)
}

func (s *Server) handleFailureStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := s.db.GetFailureStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type resolveFailureRequest struct {
	FailureID int64  `json:"failure_id"`
	Notes     string `json:"notes,omitempty"`
}

func (s *Server) handleResolveFailure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req resolveFailureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FailureID == 0 {
		writeError(w, http.StatusBadRequest, "failure_id is required")
		return
	}

	err := s.db.MarkFailureResolved(req.FailureID, req.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "failure not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("database error: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "resolved",
		"failure_id": req.FailureID,
	})
}
