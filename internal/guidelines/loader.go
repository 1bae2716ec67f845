// Package guidelines loads a markdown coding-guidelines document and
// extracts the sections relevant to a detected language. The document
// layout is one "## <Language>" heading per language plus an optional
// "## General" section that always applies.
package guidelines

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Loader reads and caches a guidelines file. Safe for concurrent use.
type Loader struct {
	path string

	mu     sync.Mutex
	cached string
	loaded bool
}

// NewLoader creates a loader for the given file path.
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Path returns the configured guidelines file path.
func (l *Loader) Path() string {
	return l.path
}

// Load returns the guidelines file content, reading it at most once.
func (l *Loader) Load() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.cached, nil
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return "", fmt.Errorf("read guidelines file: %w", err)
	}

	l.cached = string(data)
	l.loaded = true
	return l.cached, nil
}

// Reset clears the cache so the next Load re-reads the file.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = ""
	l.loaded = false
}

// ExtractLanguageSection returns the parts of the guidelines that apply
// to the given language: the "General" section plus the matching
// language section. With an empty language only the general section is
// returned. If no headings match, the full document is returned so a
// heading-free guidelines file still reaches the prompt.
func ExtractLanguageSection(doc, language string) string {
	sections := splitSections(doc)
	if len(sections) == 0 {
		return strings.TrimSpace(doc)
	}

	var parts []string
	for _, s := range sections {
		if strings.EqualFold(s.title, "General") || strings.EqualFold(s.title, "General Principles") {
			parts = append(parts, s.body)
		}
	}
	if language != "" {
		for _, s := range sections {
			if strings.EqualFold(s.title, language) {
				parts = append(parts, s.body)
			}
		}
	}

	if len(parts) == 0 {
		return strings.TrimSpace(doc)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

type section struct {
	title string
	body  string // includes the heading line
}

func splitSections(doc string) []section {
	var sections []section
	var current *section
	var buf []string

	flush := func() {
		if current != nil {
			current.body = strings.TrimSpace(strings.Join(buf, "\n"))
			sections = append(sections, *current)
		}
		buf = nil
	}

	for _, line := range strings.Split(doc, "\n") {
		if title, ok := strings.CutPrefix(line, "## "); ok {
			flush()
			current = &section{title: strings.TrimSpace(title)}
		}
		if current != nil {
			buf = append(buf, line)
		}
	}
	flush()
	return sections
}
