package llm

import "testing"

func TestParseFeedback(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantClean bool
		wantText  string
	}{
		{"clean exact", "No issues found.", true, ""},
		{"clean with whitespace", "  No issues found.\n", true, ""},
		{"issues found", "### Issues\n- bug on line 3", false, "### Issues\n- bug on line 3"},
		{"clean phrase embedded in feedback", "Mostly fine. No issues found. Except one thing.", false, "Mostly fine. No issues found. Except one thing."},
		{"different casing is not clean", "no issues found.", false, "no issues found."},
		{"missing period is not clean", "No issues found", false, "No issues found"},
		{"empty", "", false, ""},
		{"whitespace only", "   \n\t", false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseFeedback(tt.raw)
			if got.Clean != tt.wantClean {
				t.Errorf("Clean = %t, want %t", got.Clean, tt.wantClean)
			}
			if got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}
