package engine

import "strings"

// DiffStats summarizes a unified diff.
type DiffStats struct {
	TotalLines   int
	AddedLines   int
	RemovedLines int
}

// CountDiffLines tallies added and removed lines in a unified diff.
// File header lines (+++/---) do not count as changes.
func CountDiffLines(diff string) DiffStats {
	var stats DiffStats
	for _, line := range strings.Split(diff, "\n") {
		stats.TotalLines++
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			stats.AddedLines++
		case strings.HasPrefix(line, "-"):
			stats.RemovedLines++
		}
	}
	return stats
}
