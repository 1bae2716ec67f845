// Package llm generates code reviews by sending diffs to a configured
// LLM provider. Providers return the model's raw feedback text; an
// empty result means the provider produced nothing usable, which
// callers treat as a generation failure.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/config"
	"github.com/pandiarajan-src/ai-code-reviewer/internal/guidelines"
)

const (
	// maxPromptChars bounds the assembled prompt to stay inside model
	// context windows.
	maxPromptChars = 80000

	// maxGuidelineChars bounds the guidelines section when the combined
	// prompt overflows; the diff gets whatever room remains.
	maxGuidelineChars = 15000

	// templateReserve is headroom for the prompt template text itself.
	templateReserve = 2000

	maxResponseTokens = 2000
)

// Options configures a Client.
type Options struct {
	Provider   string // "openai", "local_ollama", or "anthropic"
	APIKey     string
	Endpoint   string // openai-compatible chat completions URL
	Model      string
	OllamaHost string
	Timeout    time.Duration

	// Guidelines is optional; when set, relevant sections are injected
	// into the prompt.
	Guidelines *guidelines.Loader
}

// Client produces code reviews from diff text. Safe for concurrent use.
type Client struct {
	provider   string
	apiKey     string
	endpoint   string
	model      string
	ollamaHost string
	httpClient *http.Client
	anthropic  *anthropic.Client
	guides     *guidelines.Loader
}

// NewClient creates a review generator for the configured provider.
func NewClient(opts Options) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 120 * time.Second
	}

	c := &Client{
		provider:   opts.Provider,
		apiKey:     opts.APIKey,
		endpoint:   opts.Endpoint,
		model:      opts.Model,
		ollamaHost: strings.TrimRight(opts.OllamaHost, "/"),
		httpClient: &http.Client{Timeout: opts.Timeout},
		guides:     opts.Guidelines,
	}

	switch opts.Provider {
	case "openai", "local_ollama":
	case "anthropic":
		client := anthropic.NewClient(option.WithAPIKey(opts.APIKey))
		c.anthropic = &client
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", opts.Provider)
	}
	return c, nil
}

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GetCodeReview sends the diff to the provider and returns the model's
// feedback text. An empty string with a nil error means the provider
// returned nothing usable.
func (c *Client) GetCodeReview(ctx context.Context, diffContent string) (string, error) {
	prompt := c.buildPrompt(cleanDiff(diffContent))

	switch c.provider {
	case "openai":
		return c.openAIReview(ctx, prompt)
	case "local_ollama":
		return c.ollamaReview(ctx, prompt)
	case "anthropic":
		return c.anthropicReview(ctx, prompt)
	}
	return "", fmt.Errorf("unknown LLM provider %q", c.provider)
}

// buildPrompt assembles the review prompt and enforces the size cap.
// Guidelines failures are logged and skipped; they never block a review.
func (c *Client) buildPrompt(diffContent string) string {
	guidelinesSection := c.guidelinesSection(diffContent)

	prompt := fmt.Sprintf(config.ReviewPromptTemplate, guidelinesSection, diffContent)
	if len(prompt) <= maxPromptChars {
		return prompt
	}

	log.Printf("Prompt too long (%d chars), truncating to %d", len(prompt), maxPromptChars)
	if len(guidelinesSection) > maxGuidelineChars {
		guidelinesSection = guidelinesSection[:maxGuidelineChars] + "\n\n[... guidelines truncated ...]"
	}

	available := maxPromptChars - len(guidelinesSection) - templateReserve
	if available < 0 {
		available = 0
	}
	if len(diffContent) > available {
		diffContent = diffContent[:available] + "\n\n[... diff truncated ...]"
	}
	return fmt.Sprintf(config.ReviewPromptTemplate, guidelinesSection, diffContent)
}

func (c *Client) guidelinesSection(diffContent string) string {
	if c.guides == nil {
		return ""
	}

	doc, err := c.guides.Load()
	if err != nil {
		log.Printf("Error loading guidelines: %v, proceeding without guidelines", err)
		return ""
	}

	language := DetectLanguage(diffContent)
	extracted := guidelines.ExtractLanguageSection(doc, language)
	if extracted == "" {
		return ""
	}
	if language != "" {
		log.Printf("Detected language %s, including matching guidelines", language)
	}

	return fmt.Sprintf(`
### Coding Guidelines

The following coding guidelines MUST be followed:

%s
`, extracted)
}

// cleanDiff strips content that wastes prompt budget: binary file
// markers and minified single-line blobs.
func cleanDiff(diffContent string) string {
	lines := strings.Split(diffContent, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, "Binary files") && strings.Contains(line, "differ") {
			continue
		}
		if len(line) > 500 {
			line = line[:500] + "... [line truncated]"
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

const systemPrompt = "You are an expert code reviewer. Provide constructive, specific feedback on code changes."

func (c *Client) openAIReview(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"max_tokens":  maxResponseTokens,
		"temperature": 0.1,
	}

	body, status, err := c.postJSON(ctx, c.endpoint, payload, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("openai API error: %d - %s", status, truncateForLog(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", nil
	}

	review := strings.TrimSpace(result.Choices[0].Message.Content)
	log.Printf("Received openai review (%d characters)", len(review))
	return review, nil
}

func (c *Client) ollamaReview(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.1,
			"top_p":       0.9,
			"num_predict": maxResponseTokens,
		},
	}

	body, status, err := c.postJSON(ctx, c.ollamaHost+"/api/generate", payload, nil)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("ollama API error: %d - %s", status, truncateForLog(body))
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	review := strings.TrimSpace(result.Response)
	log.Printf("Received ollama review (%d characters)", len(review))
	return review, nil
}

func (c *Client) anthropicReview(ctx context.Context, prompt string) (string, error) {
	msg, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxResponseTokens,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	review := strings.TrimSpace(text)
	log.Printf("Received anthropic review (%d characters)", len(review))
	return review, nil
}

func (c *Client) postJSON(ctx context.Context, url string, payload any, headers map[string]string) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// TestConnection verifies the provider is reachable with a one-token
// request. Used by the health endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	switch c.provider {
	case "openai":
		payload := map[string]any{
			"model":      c.model,
			"messages":   []map[string]string{{"role": "user", "content": "Hello"}},
			"max_tokens": 5,
		}
		body, status, err := c.postJSON(ctx, c.endpoint, payload, map[string]string{
			"Authorization": "Bearer " + c.apiKey,
		})
		if err != nil {
			return err
		}
		if status != http.StatusOK {
			return fmt.Errorf("openai API error: %d - %s", status, truncateForLog(body))
		}
		return nil
	case "local_ollama":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ollamaHost+"/api/tags", nil)
		if err != nil {
			return err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("ollama API error: %d", resp.StatusCode)
		}
		return nil
	case "anthropic":
		_, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(c.model),
			MaxTokens: 5,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock("Hello")),
			},
		})
		return err
	}
	return fmt.Errorf("unknown LLM provider %q", c.provider)
}

func truncateForLog(body []byte) string {
	const max = 300
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
