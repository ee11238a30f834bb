package formatters

import (
	"strings"
	"testing"
	"time"

	"resumind/internal/types"
)

func sampleExport(resume string) types.SessionExport {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	session := types.Session{
		ID:             "sess-1",
		Status:         types.StatusInProgress,
		ProgressState:  types.ProgressState{"percentage": 40},
		ResumeMarkdown: resume,
		MessageCount:   2,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	if resume != "" {
		completed := created.Add(10 * time.Minute)
		session.Status = types.StatusCompleted
		session.ProgressState = types.ProgressState{"percentage": 100}
		session.CompletedAt = &completed
	}
	return types.SessionExport{
		Session: session,
		Messages: []types.Message{
			{ID: "m1", SessionID: "sess-1", Role: types.RoleAI, Content: "Tell me about yourself."},
			{ID: "m2", SessionID: "sess-1", Role: types.RoleUser, Content: "My name is Ada."},
		},
	}
}

func TestSessionExportTextFormat(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleExport("# Ada\n\nEngineer.\n"), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, want := range []string{
		"=== INTERVIEW SESSION ===",
		"ID: sess-1",
		"Status: completed",
		"Progress: 100%",
		"1. [interviewer] Tell me about yourself.",
		"2. [you] My name is Ada.",
		"=== RESUME ===",
		"# Ada",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestSessionExportTextUnfinished(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleExport(""), "text")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "No resume yet") {
		t.Errorf("expected unfinished note, got:\n%s", out)
	}
	if strings.Contains(out, "=== RESUME ===") {
		t.Errorf("unexpected resume section for unfinished session:\n%s", out)
	}
}

func TestSessionExportMarkdownLeadsWithResume(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleExport("# Ada\n\nEngineer.\n"), "markdown")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.HasPrefix(out, "# Ada\n") {
		t.Errorf("markdown output should start with the resume, got:\n%s", out)
	}
	if !strings.Contains(out, "## Interview Transcript") {
		t.Errorf("markdown output missing transcript section:\n%s", out)
	}
}

func TestSessionListFormats(t *testing.T) {
	export := sampleExport("")
	list := types.SessionList{Sessions: []*types.Session{&export.Session}, Total: 7}

	text, err := GlobalRegistry.Format(list, "text")
	if err != nil {
		t.Fatalf("Format(text) error = %v", err)
	}
	if !strings.Contains(text, "Showing 1 of 7") || !strings.Contains(text, "sess-1") {
		t.Errorf("unexpected text listing:\n%s", text)
	}

	markdown, err := GlobalRegistry.Format(list, "markdown")
	if err != nil {
		t.Fatalf("Format(markdown) error = %v", err)
	}
	if !strings.Contains(markdown, "| sess-1 | in_progress | 40% | 2 |") {
		t.Errorf("unexpected markdown listing:\n%s", markdown)
	}
}

func TestJSONFallbackForUnknownType(t *testing.T) {
	out, err := GlobalRegistry.Format(map[string]int{"answers": 3}, "json")
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(out, "\"answers\": 3") {
		t.Errorf("unexpected json output:\n%s", out)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := GlobalRegistry.Format(sampleExport(""), "yaml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
