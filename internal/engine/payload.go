package engine

import (
	"encoding/json"
	"fmt"
)

// Webhook event keys we act on. Anything else is acknowledged and
// ignored.
const (
	EventPROpened         = "pr:opened"
	EventPRModified       = "pr:modified"
	EventPRFromRefUpdated = "pr:from_ref_updated"
	EventRefsChanged      = "repo:refs_changed"
)

// WebhookEvent is the subset of a Bitbucket Server webhook payload the
// pipeline needs.
type WebhookEvent struct {
	EventKey    string        `json:"eventKey"`
	Date        string        `json:"date"`
	Test        bool          `json:"test"`
	Repository  *Repository   `json:"repository"`
	PullRequest *PullRequest  `json:"pullRequest"`
	Changes     []Change      `json:"changes"`
}

type Repository struct {
	Slug    string  `json:"slug"`
	Project Project `json:"project"`
}

type Project struct {
	Key string `json:"key"`
}

type PullRequest struct {
	ID      int64 `json:"id"`
	ToRef   *Ref  `json:"toRef"`
	FromRef *Ref  `json:"fromRef"`
}

type Ref struct {
	Repository *Repository `json:"repository"`
}

type Change struct {
	ToHash string `json:"toHash"`
}

// ParseWebhookEvent decodes a raw webhook body. A decode error here is
// a webhook_parsing failure at the intake boundary.
func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	return &event, nil
}

// IsPullRequestEvent reports whether the event key names a PR event we
// review.
func IsPullRequestEvent(eventKey string) bool {
	switch eventKey {
	case EventPROpened, EventPRModified, EventPRFromRefUpdated:
		return true
	}
	return false
}

// PullRequestUnit extracts the review coordinates for a PR event. The
// project and repo come from the PR's target (toRef) side, which is
// where the change will land.
func PullRequestUnit(event *WebhookEvent) (projectKey, repoSlug string, prID int64, err error) {
	pr := event.PullRequest
	if pr == nil {
		return "", "", 0, fmt.Errorf("event %s has no pullRequest", event.EventKey)
	}
	if pr.ToRef == nil || pr.ToRef.Repository == nil {
		return "", "", 0, fmt.Errorf("event %s pull request %d has no target repository", event.EventKey, pr.ID)
	}
	repo := pr.ToRef.Repository
	if repo.Project.Key == "" || repo.Slug == "" {
		return "", "", 0, fmt.Errorf("event %s pull request %d has incomplete repository coordinates", event.EventKey, pr.ID)
	}
	return repo.Project.Key, repo.Slug, pr.ID, nil
}

// CommitBatch extracts the commit hashes for a refs-changed event,
// preserving payload order. A change entry without a toHash is skipped
// and reported in skipped so the caller can record it; sibling commits
// still process.
func CommitBatch(event *WebhookEvent) (projectKey, repoSlug string, commits []string, skipped []error, err error) {
	if event.Repository == nil {
		return "", "", nil, nil, fmt.Errorf("event %s has no repository", event.EventKey)
	}
	if event.Repository.Project.Key == "" || event.Repository.Slug == "" {
		return "", "", nil, nil, fmt.Errorf("event %s has incomplete repository coordinates", event.EventKey)
	}
	for i, change := range event.Changes {
		if change.ToHash == "" {
			skipped = append(skipped, fmt.Errorf("event %s change %d has no toHash", event.EventKey, i))
			continue
		}
		commits = append(commits, change.ToHash)
	}
	if len(commits) == 0 && len(skipped) == 0 {
		return "", "", nil, nil, fmt.Errorf("event %s has no commits", event.EventKey)
	}
	return event.Repository.Project.Key, event.Repository.Slug, commits, skipped, nil
}
