package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pandiarajan-src/ai-code-reviewer/internal/guidelines"
)

func newOpenAIClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		Provider: "openai",
		APIKey:   "test-key",
		Endpoint: srv.URL,
		Model:    "gpt-4o",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func openAIResponse(content string) string {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func TestNewClientUnknownProvider(t *testing.T) {
	_, err := NewClient(Options{Provider: "bard"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOpenAIReview(t *testing.T) {
	var gotAuth string
	var gotPayload map[string]any
	c := newOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(openAIResponse("### Issues\n- bug")))
	})

	review, err := c.GetCodeReview(context.Background(), "diff --git a/x.go b/x.go\n+bad()")
	if err != nil {
		t.Fatalf("GetCodeReview failed: %v", err)
	}
	if review != "### Issues\n- bug" {
		t.Errorf("review = %q", review)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPayload["model"] != "gpt-4o" {
		t.Errorf("model = %v", gotPayload["model"])
	}
	messages := gotPayload["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(messages))
	}
	user := messages[1].(map[string]any)
	if !strings.Contains(user["content"].(string), "+bad()") {
		t.Error("prompt does not contain the diff")
	}
}

func TestOpenAIReviewServerError(t *testing.T) {
	c := newOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := c.GetCodeReview(context.Background(), "+x")
	if err == nil {
		t.Fatal("expected error on 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should name the status: %v", err)
	}
}

func TestOpenAIReviewNoChoices(t *testing.T) {
	c := newOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	})

	review, err := c.GetCodeReview(context.Background(), "+x")
	if err != nil {
		t.Fatalf("GetCodeReview failed: %v", err)
	}
	if review != "" {
		t.Errorf("review = %q, want empty", review)
	}
}

func TestOllamaReview(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["stream"] != false {
			t.Errorf("stream = %v, want false", payload["stream"])
		}
		w.Write([]byte(`{"response":"No issues found."}`))
	}))
	defer srv.Close()

	c, err := NewClient(Options{
		Provider:   "local_ollama",
		Model:      "codellama",
		OllamaHost: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	review, err := c.GetCodeReview(context.Background(), "+x")
	if err != nil {
		t.Fatalf("GetCodeReview failed: %v", err)
	}
	if review != "No issues found." {
		t.Errorf("review = %q", review)
	}
	if gotPath != "/api/generate" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestBuildPromptTruncation(t *testing.T) {
	c, err := NewClient(Options{Provider: "openai", Endpoint: "http://unused", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	hugeDiff := strings.Repeat("+line of change\n", 10000)
	prompt := c.buildPrompt(hugeDiff)

	if len(prompt) > maxPromptChars {
		t.Errorf("prompt length %d exceeds cap %d", len(prompt), maxPromptChars)
	}
	if !strings.Contains(prompt, "[... diff truncated ...]") {
		t.Error("truncated prompt missing diff marker")
	}
}

func TestBuildPromptSmallDiffUntouched(t *testing.T) {
	c, err := NewClient(Options{Provider: "openai", Endpoint: "http://unused", Model: "gpt-4o"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	prompt := c.buildPrompt("+one line")
	if strings.Contains(prompt, "truncated") {
		t.Error("small diff should not be truncated")
	}
	if !strings.Contains(prompt, "+one line") {
		t.Error("prompt missing diff content")
	}
}

func TestBuildPromptIncludesGuidelines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidelines.md")
	content := "## General\n- be kind\n\n## Go\n- check errors\n\n## Python\n- use type hints\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := NewClient(Options{
		Provider:   "openai",
		Endpoint:   "http://unused",
		Model:      "gpt-4o",
		Guidelines: guidelines.NewLoader(path),
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	prompt := c.buildPrompt("diff --git a/main.go b/main.go\n+func main() {}")
	if !strings.Contains(prompt, "check errors") {
		t.Error("prompt missing Go guidelines")
	}
	if !strings.Contains(prompt, "be kind") {
		t.Error("prompt missing general guidelines")
	}
	if strings.Contains(prompt, "type hints") {
		t.Error("prompt should not include Python guidelines for a Go diff")
	}
}

func TestBuildPromptGuidelinesLoadErrorIgnored(t *testing.T) {
	c, err := NewClient(Options{
		Provider:   "openai",
		Endpoint:   "http://unused",
		Model:      "gpt-4o",
		Guidelines: guidelines.NewLoader("/nonexistent/guidelines.md"),
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	prompt := c.buildPrompt("+x")
	if !strings.Contains(prompt, "+x") {
		t.Error("prompt should still be built when guidelines are unavailable")
	}
}

func TestCleanDiff(t *testing.T) {
	diff := strings.Join([]string{
		"diff --git a/img.png b/img.png",
		"Binary files a/img.png and b/img.png differ",
		"+normal line",
		"+" + strings.Repeat("x", 600),
	}, "\n")

	cleaned := cleanDiff(diff)
	if strings.Contains(cleaned, "Binary files") {
		t.Error("binary marker not removed")
	}
	if !strings.Contains(cleaned, "+normal line") {
		t.Error("normal line dropped")
	}
	if !strings.Contains(cleaned, "[line truncated]") {
		t.Error("long line not truncated")
	}
	for _, line := range strings.Split(cleaned, "\n") {
		if len(line) > 520 {
			t.Errorf("line still too long: %d chars", len(line))
		}
	}
}
