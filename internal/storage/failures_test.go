package storage

import (
	"database/sql"
	"errors"
	"testing"
)

func TestCreateAndGetFailure(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateFailure(&FailureRecord{
		Stage:        "llm_review",
		ErrorType:    "*errors.errorString",
		ErrorMessage: "provider timeout",
		StackTrace:   "goroutine 1 [running]:\n...",
		EventType:    "webhook",
		EventKey:     "pr:opened",
		Payload:      `{"eventKey":"pr:opened"}`,
		ProjectKey:   "PROJ",
		RepoSlug:     "widget",
		PRID:         intPtr(42),
		AuthorName:   "J. Doe",
		AuthorEmail:  "jdoe@example.com",
	})
	if err != nil {
		t.Fatalf("CreateFailure failed: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero failure ID")
	}

	got, err := db.GetFailure(id)
	if err != nil {
		t.Fatalf("GetFailure failed: %v", err)
	}
	if got.Stage != "llm_review" {
		t.Errorf("Stage = %q", got.Stage)
	}
	if got.PRID == nil || *got.PRID != 42 {
		t.Errorf("PRID = %v, want 42", got.PRID)
	}
	if got.Resolved {
		t.Error("new failure should be unresolved")
	}
	if got.ResolvedAt != nil {
		t.Error("ResolvedAt should be nil for unresolved failure")
	}
	if got.StackTrace == "" || got.Payload == "" {
		t.Error("stack trace and payload should round-trip")
	}
	if got.AuthorName != "J. Doe" || got.AuthorEmail != "jdoe@example.com" {
		t.Errorf("author = %q <%q>", got.AuthorName, got.AuthorEmail)
	}
	if got.RetryCount != 0 {
		t.Errorf("RetryCount = %d, want 0", got.RetryCount)
	}
}

func TestListFailuresUnresolvedOnly(t *testing.T) {
	db := openTestDB(t)

	var ids []int64
	for _, stage := range []string{"bitbucket_fetch_diff", "llm_review", "email_send"} {
		id, err := db.CreateFailure(&FailureRecord{
			Stage:        stage,
			ErrorType:    "*errors.errorString",
			ErrorMessage: "boom",
		})
		if err != nil {
			t.Fatalf("CreateFailure failed: %v", err)
		}
		ids = append(ids, id)
	}

	if err := db.MarkFailureResolved(ids[0], "fixed config"); err != nil {
		t.Fatalf("MarkFailureResolved failed: %v", err)
	}

	all, err := db.ListFailures(FailureFilter{}, 0, 100)
	if err != nil {
		t.Fatalf("ListFailures failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all failures = %d, want 3", len(all))
	}

	unresolved, err := db.ListFailures(FailureFilter{UnresolvedOnly: true}, 0, 100)
	if err != nil {
		t.Fatalf("ListFailures unresolved failed: %v", err)
	}
	if len(unresolved) != 2 {
		t.Errorf("unresolved failures = %d, want 2", len(unresolved))
	}
	for _, f := range unresolved {
		if f.ID == ids[0] {
			t.Error("resolved failure returned in unresolved list")
		}
	}
}

func TestListFailuresCoordinateFilter(t *testing.T) {
	db := openTestDB(t)

	seeds := []*FailureRecord{
		{Stage: "llm_review", ErrorType: "e", ErrorMessage: "m", ProjectKey: "PROJ", RepoSlug: "widget", PRID: intPtr(42)},
		{Stage: "llm_review", ErrorType: "e", ErrorMessage: "m", ProjectKey: "PROJ", RepoSlug: "gadget", CommitID: strPtr("aaa111")},
		{Stage: "llm_review", ErrorType: "e", ErrorMessage: "m", ProjectKey: "OTHER", RepoSlug: "widget"},
	}
	for _, rec := range seeds {
		if _, err := db.CreateFailure(rec); err != nil {
			t.Fatalf("seed failure: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter FailureFilter
		want   int
	}{
		{"all", FailureFilter{}, 3},
		{"by project", FailureFilter{ProjectKey: "PROJ"}, 2},
		{"by repo", FailureFilter{RepoSlug: "widget"}, 2},
		{"by commit", FailureFilter{CommitID: "aaa111"}, 1},
		{"by pr", FailureFilter{PRID: 42}, 1},
		{"no match", FailureFilter{ProjectKey: "PROJ", RepoSlug: "missing"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListFailures(tt.filter, 0, 100)
			if err != nil {
				t.Fatalf("ListFailures failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d failures, want %d", len(got), tt.want)
			}
		})
	}
}

func TestMarkFailureResolved(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateFailure(&FailureRecord{
		Stage:        "database_save",
		ErrorType:    "*errors.errorString",
		ErrorMessage: "disk full",
	})
	if err != nil {
		t.Fatalf("CreateFailure failed: %v", err)
	}

	if err := db.MarkFailureResolved(id, "freed space"); err != nil {
		t.Fatalf("MarkFailureResolved failed: %v", err)
	}

	got, err := db.GetFailure(id)
	if err != nil {
		t.Fatalf("GetFailure failed: %v", err)
	}
	if !got.Resolved {
		t.Error("failure not marked resolved")
	}
	if got.ResolvedAt == nil || got.ResolvedAt.IsZero() {
		t.Error("ResolvedAt not set")
	}
	if got.ResolutionNotes != "freed space" {
		t.Errorf("ResolutionNotes = %q", got.ResolutionNotes)
	}
}

func TestMarkFailureResolvedMissing(t *testing.T) {
	db := openTestDB(t)

	err := db.MarkFailureResolved(12345, "")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestFailureStats(t *testing.T) {
	db := openTestDB(t)

	stages := []string{"llm_review", "llm_review", "email_send"}
	var lastID int64
	for _, stage := range stages {
		id, err := db.CreateFailure(&FailureRecord{
			Stage:        stage,
			ErrorType:    "*errors.errorString",
			ErrorMessage: "boom",
		})
		if err != nil {
			t.Fatalf("CreateFailure failed: %v", err)
		}
		lastID = id
	}
	if err := db.MarkFailureResolved(lastID, ""); err != nil {
		t.Fatalf("MarkFailureResolved failed: %v", err)
	}

	stats, err := db.GetFailureStats()
	if err != nil {
		t.Fatalf("GetFailureStats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.Unresolved != 2 {
		t.Errorf("Unresolved = %d, want 2", stats.Unresolved)
	}
	if stats.ByStage["llm_review"] != 2 {
		t.Errorf("ByStage[llm_review] = %d, want 2", stats.ByStage["llm_review"])
	}
}

func TestCountFailures(t *testing.T) {
	db := openTestDB(t)

	id, err := db.CreateFailure(&FailureRecord{Stage: "unknown", ErrorType: "*errors.errorString", ErrorMessage: "boom"})
	if err != nil {
		t.Fatalf("CreateFailure failed: %v", err)
	}
	if _, err := db.CreateFailure(&FailureRecord{Stage: "unknown", ErrorType: "*errors.errorString", ErrorMessage: "boom"}); err != nil {
		t.Fatalf("CreateFailure failed: %v", err)
	}
	if err := db.MarkFailureResolved(id, ""); err != nil {
		t.Fatalf("MarkFailureResolved failed: %v", err)
	}

	total, err := db.CountFailures(FailureFilter{})
	if err != nil {
		t.Fatalf("CountFailures failed: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	unresolved, err := db.CountFailures(FailureFilter{UnresolvedOnly: true})
	if err != nil {
		t.Fatalf("CountFailures unresolved failed: %v", err)
	}
	if unresolved != 1 {
		t.Errorf("unresolved = %d, want 1", unresolved)
	}
}
