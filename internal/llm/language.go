package llm

import (
	"path"
	"regexp"
	"strings"
)

// filePattern extracts changed file paths from unified diff headers.
var filePattern = regexp.MustCompile(`(?m)(?:^diff --git a/.*? b/|^\+\+\+ b/)(\S+)`)

// extensionLanguages maps file extensions to the language names used as
// section headings in the guidelines document.
var extensionLanguages = map[string]string{
	".go":     "Go",
	".py":     "Python",
	".cs":     "C#",
	".csproj": "C#",
	".cpp":    "C++",
	".cc":     "C++",
	".cxx":    "C++",
	".h":      "C++",
	".hpp":    "C++",
	".swift":  "Swift",
	".m":      "Objective-C",
	".mm":     "Objective-C",
	".js":     "JavaScript/TypeScript",
	".jsx":    "JavaScript/TypeScript",
	".ts":     "JavaScript/TypeScript",
	".tsx":    "JavaScript/TypeScript",
	".java":   "Java",
	".rb":     "Ruby",
	".rs":     "Rust",
}

// DetectLanguage guesses the dominant programming language of a diff by
// counting recognized file extensions. Returns "" when nothing matches.
func DetectLanguage(diff string) string {
	matches := filePattern.FindAllStringSubmatch(diff, -1)
	if len(matches) == 0 {
		return ""
	}

	counts := make(map[string]int)
	for _, m := range matches {
		ext := strings.ToLower(path.Ext(m[1]))
		if lang, ok := extensionLanguages[ext]; ok {
			counts[lang]++
		}
	}

	best := ""
	bestCount := 0
	for lang, n := range counts {
		if n > bestCount || (n == bestCount && lang < best) {
			best = lang
			bestCount = n
		}
	}
	return best
}
