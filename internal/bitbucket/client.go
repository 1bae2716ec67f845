// Package bitbucket is a minimal client for the Bitbucket Server
// (Enterprise) REST 1.0 API, covering the calls the review pipeline
// needs: diffs, pull request info, and commit info.
//
// All lookups degrade to a zero value on non-2xx responses ("not found"
// is an ordinary outcome, not an error); only transport failures are
// returned as errors.
package bitbucket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// User is an identity attached to commits and pull requests. The email
// address is not always populated by the server.
type User struct {
	Name         string `json:"name"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// BestName returns the display name, falling back to the short name.
func (u User) BestName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Name
}

// Participant wraps a user in the role Bitbucket assigns on a PR
// (author, reviewer).
type Participant struct {
	User User `json:"user"`
}

// PullRequestInfo is the subset of PR metadata the pipeline consumes.
type PullRequestInfo struct {
	ID        int64         `json:"id"`
	Title     string        `json:"title"`
	Author    Participant   `json:"author"`
	Reviewers []Participant `json:"reviewers"`
}

// CommitInfo is the subset of commit metadata the pipeline consumes.
type CommitInfo struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Author  User   `json:"author"`
}

// Client talks to one Bitbucket Server instance. It is safe for
// concurrent use; the underlying http.Client pools connections.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a Bitbucket client. The timeout bounds every
// individual API call.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    trimTrailingSlash(baseURL),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// get performs a GET against the REST 1.0 API. It returns the body for
// 2xx responses, (nil, nil) for any other status, and an error only for
// transport failures.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := c.baseURL + "/rest/api/1.0" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bitbucket request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read bitbucket response %s: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Bitbucket API error: %d on %s", resp.StatusCode, endpoint)
		return nil, nil
	}
	return body, nil
}

// diffQuery matches the parameters the review pipeline has always used:
// a little context, whitespace noise suppressed.
func diffQuery() url.Values {
	q := url.Values{}
	q.Set("contextLines", "3")
	q.Set("whitespace", "ignore-all")
	return q
}

// GetPullRequestDiff returns the unified diff for a pull request, or
// "" if the PR has no diff or does not exist.
func (c *Client) GetPullRequestDiff(ctx context.Context, projectKey, repoSlug string, prID int64) (string, error) {
	endpoint := fmt.Sprintf("/projects/%s/repos/%s/pull-requests/%d/diff", projectKey, repoSlug, prID)
	body, err := c.get(ctx, endpoint, diffQuery())
	if err != nil {
		return "", err
	}
	if len(body) > 0 {
		log.Printf("Retrieved diff for PR %d (%d bytes)", prID, len(body))
	}
	return string(body), nil
}

// GetCommitDiff returns the unified diff for a single commit, or "" if
// the commit has no diff or does not exist.
func (c *Client) GetCommitDiff(ctx context.Context, projectKey, repoSlug, commitID string) (string, error) {
	endpoint := fmt.Sprintf("/projects/%s/repos/%s/commits/%s/diff", projectKey, repoSlug, commitID)
	body, err := c.get(ctx, endpoint, diffQuery())
	if err != nil {
		return "", err
	}
	if len(body) > 0 {
		log.Printf("Retrieved diff for commit %s (%d bytes)", commitID, len(body))
	}
	return string(body), nil
}

// GetPullRequestInfo returns PR metadata including author and reviewer
// identities, or nil if the PR does not exist.
func (c *Client) GetPullRequestInfo(ctx context.Context, projectKey, repoSlug string, prID int64) (*PullRequestInfo, error) {
	endpoint := fmt.Sprintf("/projects/%s/repos/%s/pull-requests/%d", projectKey, repoSlug, prID)
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var info PullRequestInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode PR info: %w", err)
	}
	return &info, nil
}

// GetCommitInfo returns commit metadata including author identity, or
// nil if the commit does not exist.
func (c *Client) GetCommitInfo(ctx context.Context, projectKey, repoSlug, commitID string) (*CommitInfo, error) {
	endpoint := fmt.Sprintf("/projects/%s/repos/%s/commits/%s", projectKey, repoSlug, commitID)
	body, err := c.get(ctx, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var info CommitInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode commit info: %w", err)
	}
	return &info, nil
}

// TestConnection verifies the server is reachable and the token works.
func (c *Client) TestConnection(ctx context.Context) error {
	body, err := c.get(ctx, "/application-properties", nil)
	if err != nil {
		return err
	}
	if body == nil {
		return fmt.Errorf("bitbucket server rejected the request")
	}

	var props struct {
		Version     string `json:"version"`
		DisplayName string `json:"displayName"`
	}
	if err := json.Unmarshal(body, &props); err != nil {
		return fmt.Errorf("decode application properties: %w", err)
	}
	log.Printf("Connected to %s (version %s)", props.DisplayName, props.Version)
	return nil
}

// PRPath renders the human-readable coordinate used in log lines.
func PRPath(projectKey, repoSlug string, prID int64) string {
	return projectKey + "/" + repoSlug + "/pull-requests/" + strconv.FormatInt(prID, 10)
}
