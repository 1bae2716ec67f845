package engine

import "testing"

func TestCountDiffLines(t *testing.T) {
	diff := `diff --git a/main.go b/main.go
--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 package main
-func old() {}
+func new() {}
+func extra() {}
`

	stats := CountDiffLines(diff)
	if stats.AddedLines != 2 {
		t.Errorf("AddedLines = %d, want 2", stats.AddedLines)
	}
	if stats.RemovedLines != 1 {
		t.Errorf("RemovedLines = %d, want 1", stats.RemovedLines)
	}
	if stats.TotalLines != 9 {
		t.Errorf("TotalLines = %d, want 9", stats.TotalLines)
	}
}

func TestCountDiffLinesHeadersExcluded(t *testing.T) {
	// +++ and --- are file headers, not changes
	stats := CountDiffLines("+++ b/file\n--- a/file")
	if stats.AddedLines != 0 || stats.RemovedLines != 0 {
		t.Errorf("headers counted as changes: +%d -%d", stats.AddedLines, stats.RemovedLines)
	}
}
