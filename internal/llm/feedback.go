package llm

import "strings"

// CleanSentinel is the exact literal the review prompt instructs the
// model to emit when a diff has no problems. The comparison lives here
// and nowhere else; a prompt change that alters the literal only has to
// be mirrored in this file.
const CleanSentinel = "No issues found."

// Feedback is the structured result of a review: either the model found
// nothing (Clean) or it produced actionable text.
type Feedback struct {
	Clean bool
	Text  string
}

// ParseFeedback classifies raw model output. Equality with the sentinel
// is exact and case-sensitive after trimming surrounding whitespace; any
// other text, including an empty string, is actionable.
func ParseFeedback(raw string) Feedback {
	if strings.TrimSpace(raw) == CleanSentinel {
		return Feedback{Clean: true}
	}
	return Feedback{Text: raw}
}
