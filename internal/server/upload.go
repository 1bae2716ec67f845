package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/engine"
)

const maxDiffUpload = 10 << 20 // 10 MiB

func (s *Server) handleReviewDiff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	fc := engine.FailureContext{
		EventType: "manual",
		EventKey:  "diff_upload",
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDiffUpload+(1<<20))
	if err := r.ParseMultipartForm(maxDiffUpload); err != nil {
		s.rejectDiff(w, fc, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	fc.AuthorName = r.FormValue("author_name")
	fc.AuthorEmail = r.FormValue("author_email")

	file, header, err := r.FormFile("file")
	if err != nil {
		s.rejectDiff(w, fc, fmt.Errorf("missing diff file: %w", err))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".diff" && ext != ".patch" {
		s.rejectDiff(w, fc, fmt.Errorf("unsupported file type %q, expected .diff or .patch", ext))
		return
	}
	if header.Size > maxDiffUpload {
		s.rejectDiff(w, fc, fmt.Errorf("file too large (%d bytes, max %d)", header.Size, maxDiffUpload))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxDiffUpload+1))
	if err != nil {
		s.rejectDiff(w, fc, fmt.Errorf("read diff file: %w", err))
		return
	}
	if len(content) > maxDiffUpload {
		s.rejectDiff(w, fc, fmt.Errorf("file too large (max %d bytes)", maxDiffUpload))
		return
	}
	if !utf8.Valid(content) {
		s.rejectDiff(w, fc, fmt.Errorf("diff file is not valid UTF-8"))
		return
	}
	diff := string(content)
	if strings.TrimSpace(diff) == "" {
		s.rejectDiff(w, fc, fmt.Errorf("diff file is empty"))
		return
	}

	result, err := s.engine.ReviewDiffUpload(r.Context(), diff, fc)
	if err != nil {
		writeStageError(w, err)
		return
	}

	var recordID interface{}
	if result.RecordID != 0 {
		recordID = result.RecordID
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          "success",
		"review_markdown": result.Review,
		"metadata": map[string]interface{}{
			"record_id":     recordID,
			"filename":      header.Filename,
			"project_key":   "MANUAL",
			"repo_slug":     "diff-upload",
			"author_name":   r.FormValue("author_name"),
			"llm_provider":  result.Provider,
			"llm_model":     result.Model,
			"total_lines":   result.Stats.TotalLines,
			"lines_added":   result.Stats.AddedLines,
			"lines_removed": result.Stats.RemovedLines,
		},
	})
}

// rejectDiff records a diff_validation failure and returns 400. The
// LLM is never consulted for a rejected upload.
func (s *Server) rejectDiff(w http.ResponseWriter, fc engine.FailureContext, err error) {
	engine.LogFailure(s.db, engine.StageDiffValidation, err, fc)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Stage: engine.StageDiffValidation})
}
