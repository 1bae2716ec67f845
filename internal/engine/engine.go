// Package engine orchestrates the review pipeline: fetch a diff,
// generate a review, notify the author, persist the outcome, and keep
// failure bookkeeping for every stage along the way.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/bitbucket"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/llm"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/mail"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/storage"
)

// DiffSource fetches diffs and change metadata from the code host.
type DiffSource interface {
	GetPullRequestDiff(ctx context.Context, projectKey, repoSlug string, prID int64) (string, error)
	GetCommitDiff(ctx context.Context, projectKey, repoSlug, commitID string) (string, error)
	GetPullRequestInfo(ctx context.Context, projectKey, repoSlug string, prID int64) (*bitbucket.PullRequestInfo, error)
	GetCommitInfo(ctx context.Context, projectKey, repoSlug, commitID string) (*bitbucket.CommitInfo, error)
}

// ReviewGenerator turns a diff into review feedback.
type ReviewGenerator interface {
	GetCodeReview(ctx context.Context, diff string) (string, error)
	Provider() string
	Model() string
}

// Notifier delivers review results.
type Notifier interface {
	Send(ctx context.Context, msg mail.Message) error
}

// Outcome statuses for foreground callers.
const (
	StatusSuccess  = "success"
	StatusNoDiff   = "no_diff"
	StatusNoIssues = "no_issues"
)

// Outcome is the result of one review unit.
type Outcome struct {
	Status   string
	Review   string
	RecordID int64
}

// Engine runs the review pipeline.
type Engine struct {
	diffs  DiffSource
	gen    ReviewGenerator
	mailer Notifier
	db     *storage.DB
}

func New(diffs DiffSource, gen ReviewGenerator, mailer Notifier, db *storage.DB) *Engine {
	return &Engine{diffs: diffs, gen: gen, mailer: mailer, db: db}
}

// unit is one reviewable change with its bookkeeping identity.
type unit struct {
	projectKey string
	repoSlug   string
	commitID   *string
	prID       *int64
	reviewType storage.ReviewType
	trigger    storage.TriggerType
	manual     bool
	fc         FailureContext
}

func (u unit) describe() string {
	if u.prID != nil {
		return fmt.Sprintf("%s/%s PR #%d", u.projectKey, u.repoSlug, *u.prID)
	}
	if u.commitID != nil {
		return fmt.Sprintf("%s/%s commit %s", u.projectKey, u.repoSlug, shortSHA(*u.commitID))
	}
	return fmt.Sprintf("%s/%s", u.projectKey, u.repoSlug)
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}

func reviewType(manual bool) storage.ReviewType {
	if manual {
		return storage.ReviewTypeManual
	}
	return storage.ReviewTypeAuto
}

// ReviewPullRequest runs the pipeline for one pull request.
func (e *Engine) ReviewPullRequest(ctx context.Context, projectKey, repoSlug string, prID int64, manual bool, fc FailureContext) (*Outcome, error) {
	fc.ProjectKey = projectKey
	fc.RepoSlug = repoSlug
	fc.PRID = &prID
	return e.processUnit(ctx, unit{
		projectKey: projectKey,
		repoSlug:   repoSlug,
		prID:       &prID,
		reviewType: reviewType(manual),
		trigger:    storage.TriggerPullRequest,
		manual:     manual,
		fc:         fc,
	})
}

// ReviewCommit runs the pipeline for one commit.
func (e *Engine) ReviewCommit(ctx context.Context, projectKey, repoSlug, commitID string, manual bool, fc FailureContext) (*Outcome, error) {
	fc.ProjectKey = projectKey
	fc.RepoSlug = repoSlug
	fc.CommitID = &commitID
	return e.processUnit(ctx, unit{
		projectKey: projectKey,
		repoSlug:   repoSlug,
		commitID:   &commitID,
		reviewType: reviewType(manual),
		trigger:    storage.TriggerCommit,
		manual:     manual,
		fc:         fc,
	})
}

// ProcessWebhookEvent dispatches a parsed webhook event through the
// pipeline. It is meant to run in the background: stage errors are
// already recorded as failure rows, so they are logged and dropped
// here rather than returned to the (long-gone) HTTP caller.
func (e *Engine) ProcessWebhookEvent(event *WebhookEvent, rawPayload []byte) {
	fc := FailureContext{
		EventType: "webhook",
		EventKey:  event.EventKey,
		Payload:   string(rawPayload),
	}
	defer func() {
		if r := recover(); r != nil {
			LogPanic(e.db, r, fc)
		}
	}()

	ctx := context.Background()

	switch {
	case IsPullRequestEvent(event.EventKey):
		projectKey, repoSlug, prID, err := PullRequestUnit(event)
		if err != nil {
			LogFailure(e.db, StagePayloadValidation, err, fc)
			return
		}
		if _, err := e.ReviewPullRequest(ctx, projectKey, repoSlug, prID, false, fc); err != nil {
			log.Printf("webhook PR review failed: %v", err)
		}

	case event.EventKey == EventRefsChanged:
		projectKey, repoSlug, commits, skipped, err := CommitBatch(event)
		if err != nil {
			LogFailure(e.db, StagePayloadValidation, err, fc)
			return
		}
		// A malformed change entry gets its own failure row; its
		// siblings still process.
		bfc := fc
		bfc.ProjectKey = projectKey
		bfc.RepoSlug = repoSlug
		for _, serr := range skipped {
			LogFailure(e.db, StagePayloadValidation, serr, bfc)
		}
		// One commit failing must not stop its siblings.
		for _, sha := range commits {
			if _, err := e.ReviewCommit(ctx, projectKey, repoSlug, sha, false, fc); err != nil {
				log.Printf("webhook commit review failed for %s: %v", shortSHA(sha), err)
			}
		}

	default:
		log.Printf("ignoring webhook event %q", event.EventKey)
	}
}

// processUnit is the shared pipeline. Every failure is recorded while
// it still has context; the returned StageError lets foreground
// callers map stages onto HTTP responses.
func (e *Engine) processUnit(ctx context.Context, u unit) (*Outcome, error) {
	log.Printf("reviewing %s (trigger=%s)", u.describe(), u.trigger)

	var diff string
	var err error
	if u.prID != nil {
		diff, err = e.diffs.GetPullRequestDiff(ctx, u.projectKey, u.repoSlug, *u.prID)
	} else {
		diff, err = e.diffs.GetCommitDiff(ctx, u.projectKey, u.repoSlug, *u.commitID)
	}
	if err != nil {
		LogFailure(e.db, StageFetchDiff, err, u.fc)
		return nil, stageErr(StageFetchDiff, err)
	}
	if strings.TrimSpace(diff) == "" {
		log.Printf("no diff for %s, skipping review", u.describe())
		return &Outcome{Status: StatusNoDiff}, nil
	}

	raw, err := e.gen.GetCodeReview(ctx, diff)
	if err != nil {
		LogFailure(e.db, StageLLMReview, err, u.fc)
		return nil, stageErr(StageLLMReview, err)
	}
	feedback := llm.ParseFeedback(raw)
	if feedback.Clean {
		log.Printf("no issues found for %s", u.describe())
		return &Outcome{Status: StatusNoIssues}, nil
	}
	if feedback.Text == "" {
		err := fmt.Errorf("empty review from %s", e.gen.Provider())
		LogFailure(e.db, StageLLMReview, err, u.fc)
		return nil, stageErr(StageLLMReview, err)
	}

	recipients, author := e.resolveRecipients(ctx, u)
	u.fc.AuthorName = author.BestName()
	u.fc.AuthorEmail = author.EmailAddress
	emailSent := false
	if len(recipients) == 0 {
		log.Printf("no recipients for %s, skipping email", u.describe())
	} else if err := e.sendReviewEmail(ctx, u, recipients, feedback.Text); errors.Is(err, mail.ErrOptedOut) {
		// Opt-out drops the email; the record must say not sent.
		log.Printf("email opt-out active, not sending for %s", u.describe())
	} else if err != nil {
		// Email failure is recorded but never blocks persistence.
		LogFailure(e.db, StageEmailSend, err, u.fc)
	} else {
		emailSent = true
	}

	stats := CountDiffLines(diff)
	rec, err := e.db.CreateReview(&storage.ReviewRecord{
		ProjectKey:      u.projectKey,
		RepoSlug:        u.repoSlug,
		CommitID:        u.commitID,
		PRID:            u.prID,
		ReviewType:      u.reviewType,
		TriggerType:     u.trigger,
		AuthorName:      author.BestName(),
		AuthorEmail:     author.EmailAddress,
		DiffContent:     diff,
		ReviewFeedback:  feedback.Text,
		DiffSize:        len(diff),
		AddedLines:      stats.AddedLines,
		RemovedLines:    stats.RemovedLines,
		LLMProvider:     e.gen.Provider(),
		LLMModel:        e.gen.Model(),
		EmailSent:       emailSent,
		EmailRecipients: recipients,
	})
	if err != nil {
		LogFailure(e.db, StageDatabaseSave, err, u.fc)
		return nil, stageErr(StageDatabaseSave, err)
	}

	log.Printf("review #%d saved for %s (email_sent=%t)", rec.ID, u.describe(), emailSent)
	return &Outcome{Status: StatusSuccess, Review: feedback.Text, RecordID: rec.ID}, nil
}

// resolveRecipients looks up who should get the review email, and the
// author identity for the record. For a commit the sole recipient is
// the author; for a PR the author comes first, then reviewers in
// payload order, deduped by address. Lookup problems degrade to no
// recipients rather than failing the review.
func (e *Engine) resolveRecipients(ctx context.Context, u unit) ([]string, bitbucket.User) {
	if u.commitID != nil {
		info, err := e.diffs.GetCommitInfo(ctx, u.projectKey, u.repoSlug, *u.commitID)
		if err != nil || info == nil {
			log.Printf("could not resolve author for %s: %v", u.describe(), err)
			return nil, bitbucket.User{}
		}
		if info.Author.EmailAddress == "" {
			return nil, info.Author
		}
		return []string{info.Author.EmailAddress}, info.Author
	}

	info, err := e.diffs.GetPullRequestInfo(ctx, u.projectKey, u.repoSlug, *u.prID)
	if err != nil || info == nil {
		log.Printf("could not resolve author for %s: %v", u.describe(), err)
		return nil, bitbucket.User{}
	}

	var recipients []string
	seen := make(map[string]bool)
	add := func(addr string) {
		if addr != "" && !seen[addr] {
			seen[addr] = true
			recipients = append(recipients, addr)
		}
	}
	add(info.Author.User.EmailAddress)
	for _, reviewer := range info.Reviewers {
		add(reviewer.User.EmailAddress)
	}
	return recipients, info.Author.User
}

func (e *Engine) sendReviewEmail(ctx context.Context, u unit, recipients []string, review string) error {
	label := "AI Code Review"
	if u.manual {
		label = "AI Code Review (Manual)"
	}

	var subjectID string
	if u.commitID != nil {
		subjectID = "Commit " + shortSHA(*u.commitID)
	} else {
		subjectID = fmt.Sprintf("PR #%d", *u.prID)
	}

	msg := mail.Message{
		To:      recipients[:1],
		CC:      recipients[1:],
		Subject: fmt.Sprintf("%s - %s", label, subjectID),
		Body:    mail.FormatReviewHTML(fmt.Sprintf("🤖 **%s**\n\n%s", label, review)),
	}
	return e.mailer.Send(ctx, msg)
}

// DiffUploadResult is what a diff upload returns to the caller.
type DiffUploadResult struct {
	Review   string
	RecordID int64
	Stats    DiffStats
	Provider string
	Model    string
}

// ReviewDiffUpload reviews an uploaded diff. No email is attempted and
// the record is always persisted; a persistence failure is recorded
// and swallowed so the caller still receives the review text.
func (e *Engine) ReviewDiffUpload(ctx context.Context, diff string, fc FailureContext) (*DiffUploadResult, error) {
	fc.ProjectKey = "MANUAL"
	fc.RepoSlug = "diff-upload"

	raw, err := e.gen.GetCodeReview(ctx, diff)
	if err != nil {
		LogFailure(e.db, StageLLMReview, err, fc)
		return nil, stageErr(StageLLMReview, err)
	}
	feedback := llm.ParseFeedback(raw)
	if feedback.Text == "" && !feedback.Clean {
		err := fmt.Errorf("empty review from %s", e.gen.Provider())
		LogFailure(e.db, StageLLMReview, err, fc)
		return nil, stageErr(StageLLMReview, err)
	}

	stats := CountDiffLines(diff)
	result := &DiffUploadResult{
		Review:   raw,
		Stats:    stats,
		Provider: e.gen.Provider(),
		Model:    e.gen.Model(),
	}

	rec, err := e.db.CreateReview(&storage.ReviewRecord{
		ProjectKey:     "MANUAL",
		RepoSlug:       "diff-upload",
		ReviewType:     storage.ReviewTypeManual,
		TriggerType:    storage.TriggerDiffUpload,
		AuthorName:     fc.AuthorName,
		AuthorEmail:    fc.AuthorEmail,
		DiffContent:    diff,
		ReviewFeedback: raw,
		DiffSize:       len(diff),
		AddedLines:     stats.AddedLines,
		RemovedLines:   stats.RemovedLines,
		LLMProvider:    e.gen.Provider(),
		LLMModel:       e.gen.Model(),
	})
	if err != nil {
		LogFailure(e.db, StageDatabaseSave, err, fc)
		return result, nil
	}
	result.RecordID = rec.ID
	return result, nil
}
