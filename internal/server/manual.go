package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/engine"
)

type manualReviewRequest struct {
	ProjectKey string `json:"project_key"`
	RepoSlug   string `json:"repo_slug"`
	PRID       int64  `json:"pr_id,omitempty"`
	CommitID   string `json:"commit_id,omitempty"`
}

func (s *Server) handleManualReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req manualReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fc := engine.FailureContext{
		EventType: "manual",
		EventKey:  "manual_review",
	}

	if err := validateManualRequest(req); err != nil {
		engine.LogFailure(s.db, engine.StageParameterValidation, err, fc)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var outcome *engine.Outcome
	var err error
	if req.PRID != 0 {
		outcome, err = s.engine.ReviewPullRequest(r.Context(), req.ProjectKey, req.RepoSlug, req.PRID, true, fc)
	} else {
		outcome, err = s.engine.ReviewCommit(r.Context(), req.ProjectKey, req.RepoSlug, req.CommitID, true, fc)
	}
	if err != nil {
		writeStageError(w, err)
		return
	}

	switch outcome.Status {
	case engine.StatusNoDiff:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  engine.StatusNoDiff,
			"message": "no diff found, nothing to review",
		})
	case engine.StatusNoIssues:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  engine.StatusNoIssues,
			"message": "no issues found",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    outcome.Status,
			"review":    outcome.Review,
			"record_id": outcome.RecordID,
		})
	}
}

func validateManualRequest(req manualReviewRequest) error {
	if req.ProjectKey == "" || req.RepoSlug == "" {
		return fmt.Errorf("project_key and repo_slug are required")
	}
	if req.PRID == 0 && req.CommitID == "" {
		return fmt.Errorf("either pr_id or commit_id is required")
	}
	if req.PRID != 0 && req.CommitID != "" {
		return fmt.Errorf("pr_id and commit_id are mutually exclusive")
	}
	return nil
}

// writeStageError maps a pipeline stage failure onto an HTTP status
// that names the failing stage.
func writeStageError(w http.ResponseWriter, err error) {
	var stageErr *engine.StageError
	if !errors.As(err, &stageErr) {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusInternalServerError
	switch stageErr.Stage {
	case engine.StageFetchDiff, engine.StageLLMReview:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, ErrorResponse{Error: stageErr.Err.Error(), Stage: stageErr.Stage})
}
