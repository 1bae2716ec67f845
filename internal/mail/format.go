package mail

import (
	"regexp"
	"strings"
)

// The formatter recognizes a deliberately small, fixed set of patterns
// in review feedback: level 3/4 headers, bold spans, fenced code blocks
// with an optional language tag, inline code spans, and bullet lines
// with a three-space indent. Everything else passes through as literal
// text. It is not a markdown parser and must not become one: review
// content is trusted model output and the email templates depend on the
// pass-through behavior.
var (
	h3Pattern     = regexp.MustCompile(`(?m)^### (.*)$`)
	h4Pattern     = regexp.MustCompile(`(?m)^#### (.*)$`)
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	fencePattern  = regexp.MustCompile("(?s)```(\\w*)\n(.*?)```")
	inlinePattern = regexp.MustCompile("`([^`]+)`")
	bulletPattern = regexp.MustCompile(`(?m)^   - (.*)$`)
)

// FormatReviewHTML converts review feedback text into a self-contained
// HTML document suitable for email rendering.
func FormatReviewHTML(review string) string {
	html := h3Pattern.ReplaceAllString(review, "<h3>$1</h3>")
	html = h4Pattern.ReplaceAllString(html, "<h4>$1</h4>")
	html = boldPattern.ReplaceAllString(html, "<strong>$1</strong>")
	html = fencePattern.ReplaceAllString(html, `<pre><code class="$1">$2</code></pre>`)
	html = inlinePattern.ReplaceAllString(html, "<code>$1</code>")
	html = bulletPattern.ReplaceAllString(html, "   <li>$1</li>")
	html = strings.ReplaceAll(html, "\n", "<br>\n")

	return `
<html>
<body>
<div style="font-family: Arial, sans-serif; max-width: 800px;">
` + html + `
</div>
</body>
</html>
`
}
