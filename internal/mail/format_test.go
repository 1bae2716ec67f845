package mail

import (
	"strings"
	"testing"
)

func TestFormatReviewHTML(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantInclude []string
		wantExclude []string
	}{
		{
			"h3 header",
			"### Summary\ntext",
			[]string{"<h3>Summary</h3>"},
			nil,
		},
		{
			"h4 header",
			"#### Details\ntext",
			[]string{"<h4>Details</h4>"},
			nil,
		},
		{
			"bold",
			"this is **important** stuff",
			[]string{"<strong>important</strong>"},
			[]string{"**"},
		},
		{
			"fenced code with language",
			"```go\nfunc main() {}\n```",
			[]string{`<pre><code class="go">func main() {}`, "</code></pre>"},
			nil,
		},
		{
			"fenced code without language",
			"```\nx = 1\n```",
			[]string{`<pre><code class="">x = 1`},
			nil,
		},
		{
			"inline code",
			"use `fmt.Errorf` here",
			[]string{"<code>fmt.Errorf</code>"},
			nil,
		},
		{
			"indented bullet",
			"   - first point",
			[]string{"<li>first point</li>"},
			nil,
		},
		{
			"newlines become breaks",
			"line one\nline two",
			[]string{"line one<br>\nline two"},
			nil,
		},
		{
			"plain text passes through",
			"nothing special <here>",
			[]string{"nothing special <here>"},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatReviewHTML(tt.input)
			for _, want := range tt.wantInclude {
				if !strings.Contains(got, want) {
					t.Errorf("output missing %q:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.wantExclude {
				if strings.Contains(got, unwanted) {
					t.Errorf("output should not contain %q:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestFormatReviewHTMLWrapper(t *testing.T) {
	got := FormatReviewHTML("hello")
	for _, want := range []string{"<html>", "<body>", "font-family: Arial, sans-serif", "max-width: 800px", "</html>"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}
