package engine

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
)

// Pipeline stages, used to classify failures.
const (
	StagePayloadValidation   = "payload_validation"
	StageWebhookParsing      = "webhook_parsing"
	StageParameterValidation = "parameter_validation"
	StageDiffValidation      = "diff_validation"
	StageFetchDiff           = "bitbucket_fetch_diff"
	StageLLMReview           = "llm_review"
	StageEmailSend           = "email_send"
	StageDatabaseSave        = "database_save"
	StageUnknown             = "unknown"
)

// StageError tags an error with the pipeline stage it occurred in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// FailureContext carries the intake-level identity of the work being
// processed so that failure rows can be traced back to their trigger.
type FailureContext struct {
	EventType   string
	EventKey    string
	Payload     string
	ProjectKey  string
	RepoSlug    string
	CommitID    *string
	PRID        *int64
	AuthorName  string
	AuthorEmail string
}

// FailureStore is the slice of storage the failure logger needs.
type FailureStore interface {
	CreateFailure(rec *storage.FailureRecord) (int64, error)
}

// LogFailure records a pipeline failure. It never propagates an error:
// bookkeeping must not break the pipeline it observes. Returns the
// failure row ID, or 0 when the write itself failed.
func LogFailure(store FailureStore, stage string, err error, fc FailureContext) int64 {
	return logFailureStack(store, stage, err, fc, nil)
}

// LogPanic records a recovered panic with its stack trace under the
// unknown stage.
func LogPanic(store FailureStore, recovered interface{}, fc FailureContext) int64 {
	err := fmt.Errorf("panic: %v", recovered)
	return logFailureStack(store, StageUnknown, err, fc, debug.Stack())
}

func logFailureStack(store FailureStore, stage string, err error, fc FailureContext, stack []byte) int64 {
	rec := &storage.FailureRecord{
		Stage:        stage,
		ErrorType:    fmt.Sprintf("%T", err),
		ErrorMessage: err.Error(),
		StackTrace:   string(stack),
		EventType:    fc.EventType,
		EventKey:     fc.EventKey,
		Payload:      fc.Payload,
		ProjectKey:   fc.ProjectKey,
		RepoSlug:     fc.RepoSlug,
		CommitID:     fc.CommitID,
		PRID:         fc.PRID,
		AuthorName:   fc.AuthorName,
		AuthorEmail:  fc.AuthorEmail,
	}
	id, dbErr := store.CreateFailure(rec)
	if dbErr != nil {
		log.Printf("failure bookkeeping: could not record %s failure (%v): %v", stage, err, dbErr)
		return 0
	}
	log.Printf("recorded %s failure #%d: %v", stage, id, err)
	return id
}
