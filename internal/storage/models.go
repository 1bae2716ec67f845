package storage

import "time"

// ReviewType distinguishes how a review was initiated.
type ReviewType string

const (
	ReviewTypeAuto   ReviewType = "auto"
	ReviewTypeManual ReviewType = "manual"
)

// TriggerType distinguishes what kind of change was reviewed.
type TriggerType string

const (
	TriggerCommit      TriggerType = "commit"
	TriggerPullRequest TriggerType = "pull_request"
	TriggerDiffUpload  TriggerType = "diff_upload"
)

// ReviewRecord is one persisted review of a commit, pull request, or
// uploaded diff. The relevant one of CommitID/PRID is set for commit
// and PR reviews; diff uploads set neither.
type ReviewRecord struct {
	ID              int64       `json:"id"`
	ProjectKey      string      `json:"project_key"`
	RepoSlug        string      `json:"repo_slug"`
	CommitID        *string     `json:"commit_id,omitempty"`
	PRID            *int64      `json:"pr_id,omitempty"`
	ReviewType      ReviewType  `json:"review_type"`
	TriggerType     TriggerType `json:"trigger_type"`
	AuthorName      string      `json:"author_name,omitempty"`
	AuthorEmail     string      `json:"author_email,omitempty"`
	DiffContent     string      `json:"diff_content,omitempty"`
	ReviewFeedback  string      `json:"review_feedback"`
	DiffSize        int         `json:"diff_size"`
	AddedLines      int         `json:"added_lines"`
	RemovedLines    int         `json:"removed_lines"`
	LLMProvider     string      `json:"llm_provider,omitempty"`
	LLMModel        string      `json:"llm_model,omitempty"`
	EmailSent       bool        `json:"email_sent"`
	EmailRecipients []string    `json:"email_recipients"`
	CreatedAt       time.Time   `json:"created_at"`
}

// FailureRecord is one pipeline failure captured for later inspection.
type FailureRecord struct {
	ID              int64      `json:"id"`
	Stage           string     `json:"stage"`
	ErrorType       string     `json:"error_type"`
	ErrorMessage    string     `json:"error_message"`
	StackTrace      string     `json:"stack_trace,omitempty"`
	EventType       string     `json:"event_type,omitempty"`
	EventKey        string     `json:"event_key,omitempty"`
	Payload         string     `json:"payload,omitempty"`
	ProjectKey      string     `json:"project_key,omitempty"`
	RepoSlug        string     `json:"repo_slug,omitempty"`
	CommitID        *string    `json:"commit_id,omitempty"`
	PRID            *int64     `json:"pr_id,omitempty"`
	AuthorName      string     `json:"author_name,omitempty"`
	AuthorEmail     string     `json:"author_email,omitempty"`
	RetryCount      int        `json:"retry_count"`
	Resolved        bool       `json:"resolved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ReviewStats summarizes the review_records table.
type ReviewStats struct {
	Total        int            `json:"total"`
	ByType       map[string]int `json:"by_type"`
	ByTrigger    map[string]int `json:"by_trigger"`
	ByProvider   map[string]int `json:"by_provider"`
	EmailsSent   int            `json:"emails_sent"`
	TotalAdded   int            `json:"total_added_lines"`
	TotalRemoved int            `json:"total_removed_lines"`
}

// FailureStats summarizes the review_failures table.
type FailureStats struct {
	Total      int            `json:"total"`
	Unresolved int            `json:"unresolved"`
	ByStage    map[string]int `json:"by_stage"`
}
