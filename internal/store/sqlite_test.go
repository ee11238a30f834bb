package store

import (
	"context"
	"log/slog"
	"testing"

	appErrors "resumind/internal/errors"
	"resumind/internal/interview"
	"resumind/internal/types"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:", appErrors.NewLogger(slog.LevelError))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestNewSQLiteInitializesSchema(t *testing.T) {
	path := t.TempDir() + "/sessions.db"
	logger := appErrors.NewLogger(slog.LevelError)

	s, err := NewSQLite(path, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening must re-run the schema statements without error.
	s, err = NewSQLite(path, logger)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("close after reopen: %v", err)
	}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("session has no ID")
	}
	if created.Status != types.StatusInProgress {
		t.Errorf("status = %q", created.Status)
	}
	if pct := created.Percentage(); pct != 0 {
		t.Errorf("percentage = %d, want 0", pct)
	}

	got, err := s.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != created.ID || got.Status != types.StatusInProgress {
		t.Errorf("got %+v", got)
	}
	if got.MessageCount != 0 {
		t.Errorf("message count = %d, want 0", got.MessageCount)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetSession(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionNotFound) {
		t.Errorf("error = %v, want session not found", err)
	}
}

func TestAppendMessageAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, err := s.CreateSession(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.AppendMessage(ctx, session.ID, types.RoleAI, "Welcome!", nil); err != nil {
		t.Fatalf("append ai: %v", err)
	}
	if _, err := s.AppendMessage(ctx, session.ID, types.RoleUser, "Hi, I'm Ada.", nil); err != nil {
		t.Fatalf("append user: %v", err)
	}
	meta := map[string]any{"source": "gemini"}
	if _, err := s.AppendMessage(ctx, session.ID, types.RoleAI, "Tell me more.", meta); err != nil {
		t.Fatalf("append with metadata: %v", err)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.MessageCount != 3 {
		t.Errorf("message count = %d, want 3", got.MessageCount)
	}

	messages, err := s.Messages(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 3 {
		t.Fatalf("len(messages) = %d, want 3", len(messages))
	}
	wantContents := []string{"Welcome!", "Hi, I'm Ada.", "Tell me more."}
	wantRoles := []types.MessageRole{types.RoleAI, types.RoleUser, types.RoleAI}
	for i, msg := range messages {
		if msg.Content != wantContents[i] {
			t.Errorf("messages[%d].Content = %q, want %q", i, msg.Content, wantContents[i])
		}
		if msg.Role != wantRoles[i] {
			t.Errorf("messages[%d].Role = %q, want %q", i, msg.Role, wantRoles[i])
		}
		if msg.SessionID != session.ID {
			t.Errorf("messages[%d].SessionID = %q", i, msg.SessionID)
		}
	}
	if messages[2].Metadata["source"] != "gemini" {
		t.Errorf("metadata = %v", messages[2].Metadata)
	}
}

func TestAppendMessageMissingSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.AppendMessage(context.Background(), "missing", types.RoleUser, "hello", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionNotFound) {
		t.Errorf("error = %v, want session not found", err)
	}
}

func TestUpdateMessageMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	msg, err := s.AppendMessage(ctx, session.ID, types.RoleAI, "q", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateMessageMetadata(ctx, msg.ID, map[string]any{"tokens": float64(42)}); err != nil {
		t.Fatalf("update metadata: %v", err)
	}

	messages, err := s.Messages(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if messages[0].Metadata["tokens"] != float64(42) {
		t.Errorf("metadata = %v", messages[0].Metadata)
	}

	err = s.UpdateMessageMetadata(ctx, "missing", nil)
	if !appErrors.CodeIs(err, appErrors.ErrCodeMessageNotFound) {
		t.Errorf("error = %v, want message not found", err)
	}
}

func TestUpdateProgressMonotone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)

	progress := types.ProgressState{"percentage": 40, "topic": "education"}
	updated, err := s.UpdateProgress(ctx, session.ID, progress)
	if err != nil {
		t.Fatal(err)
	}
	if pct := updated.Percentage(); pct != 40 {
		t.Errorf("percentage = %d, want 40", pct)
	}
	if updated.ProgressState["topic"] != "education" {
		t.Errorf("extra keys lost: %v", updated.ProgressState)
	}

	// A lower incoming percentage keeps the persisted one.
	updated, err = s.UpdateProgress(ctx, session.ID, types.ProgressState{"percentage": 20})
	if err != nil {
		t.Fatal(err)
	}
	if pct := updated.Percentage(); pct != 40 {
		t.Errorf("percentage = %d, want 40 after regression attempt", pct)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pct := got.Percentage(); pct != 40 {
		t.Errorf("persisted percentage = %d, want 40", pct)
	}
}

func TestUpdateProgressTerminal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	if _, err := s.CompleteSession(ctx, session.ID, "# Done", nil); err != nil {
		t.Fatal(err)
	}

	_, err := s.UpdateProgress(ctx, session.ID, types.ProgressState{"percentage": 50})
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionFinished) {
		t.Errorf("error = %v, want session finished", err)
	}
}

func TestAdvanceProgress(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)

	// No messages yet: progress stays where it is.
	updated, err := s.AdvanceProgress(ctx, session.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if pct := updated.Percentage(); pct != 0 {
		t.Errorf("percentage = %d, want 0 with no messages", pct)
	}

	_, _ = s.AppendMessage(ctx, session.ID, types.RoleAI, "q1", nil)
	_, _ = s.AppendMessage(ctx, session.ID, types.RoleUser, "a1", nil)

	updated, err = s.AdvanceProgress(ctx, session.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	want := interview.AdvanceProgress(session.ID, 2, 0, false)
	if pct := updated.Percentage(); pct != want {
		t.Errorf("percentage = %d, want %d", pct, want)
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if pct := got.Percentage(); pct != want {
		t.Errorf("persisted percentage = %d, want %d", pct, want)
	}

	updated, err = s.AdvanceProgress(ctx, session.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if pct := updated.Percentage(); pct != 100 {
		t.Errorf("force-complete percentage = %d, want 100", pct)
	}
}

func TestCompleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	progress := types.ProgressState{"percentage": 80}

	completed, err := s.CompleteSession(ctx, session.ID, "# Ada Lovelace", progress)
	if err != nil {
		t.Fatal(err)
	}
	if completed.Status != types.StatusCompleted {
		t.Errorf("status = %q", completed.Status)
	}
	if pct := completed.Percentage(); pct != 100 {
		t.Errorf("percentage = %d, want 100", pct)
	}
	if completed.ResumeMarkdown != "# Ada Lovelace" {
		t.Errorf("resume = %q", completed.ResumeMarkdown)
	}
	if completed.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	got, err := s.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != types.StatusCompleted || got.ResumeMarkdown != "# Ada Lovelace" {
		t.Errorf("persisted session = %+v", got)
	}
	if got.CompletedAt == nil {
		t.Error("persisted completed_at not set")
	}
}

func TestCompleteAbandonedSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	if _, err := s.AbandonSession(ctx, session.ID); err != nil {
		t.Fatal(err)
	}

	_, err := s.CompleteSession(ctx, session.ID, "# Late", nil)
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionFinished) {
		t.Errorf("error = %v, want session finished", err)
	}
}

func TestAbandonSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	updated, err := s.AbandonSession(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != types.StatusAbandoned {
		t.Errorf("status = %q", updated.Status)
	}

	_, err = s.AbandonSession(ctx, "missing")
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionNotFound) {
		t.Errorf("error = %v, want session not found", err)
	}
}

func TestDeleteSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session, _ := s.CreateSession(ctx)
	_, _ = s.AppendMessage(ctx, session.ID, types.RoleAI, "q", nil)

	if err := s.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := s.GetSession(ctx, session.ID)
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionNotFound) {
		t.Errorf("error = %v, want session not found", err)
	}

	messages, err := s.Messages(ctx, session.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 0 {
		t.Errorf("messages survived delete: %d", len(messages))
	}

	err = s.DeleteSession(ctx, session.ID)
	if !appErrors.CodeIs(err, appErrors.ErrCodeSessionNotFound) {
		t.Errorf("second delete error = %v, want session not found", err)
	}
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		session, err := s.CreateSession(ctx)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, session.ID)
	}
	if _, err := s.CompleteSession(ctx, ids[0], "# Done", nil); err != nil {
		t.Fatal(err)
	}

	sessions, total, err := s.ListSessions(ctx, ListFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(sessions) != 3 {
		t.Errorf("all: total = %d, len = %d, want 3/3", total, len(sessions))
	}

	status := types.StatusCompleted
	sessions, total, err = s.ListSessions(ctx, ListFilter{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(sessions) != 1 {
		t.Fatalf("completed: total = %d, len = %d, want 1/1", total, len(sessions))
	}
	if sessions[0].ID != ids[0] {
		t.Errorf("completed session = %q, want %q", sessions[0].ID, ids[0])
	}

	sessions, total, err = s.ListSessions(ctx, ListFilter{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(sessions) != 2 {
		t.Errorf("paged: total = %d, len = %d, want 3/2", total, len(sessions))
	}

	sessions, _, err = s.ListSessions(ctx, ListFilter{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Errorf("second page len = %d, want 1", len(sessions))
	}
}

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateSession(ctx)
	b, _ := s.CreateSession(ctx)
	_, _ = s.CreateSession(ctx)
	_, _ = s.AppendMessage(ctx, a.ID, types.RoleAI, "q", nil)
	_, _ = s.AppendMessage(ctx, a.ID, types.RoleUser, "a", nil)
	_, _ = s.CompleteSession(ctx, a.ID, "# Done", nil)
	_, _ = s.AbandonSession(ctx, b.ID)

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Sessions != 3 {
		t.Errorf("sessions = %d, want 3", stats.Sessions)
	}
	if stats.InProgress != 1 || stats.Completed != 1 || stats.Abandoned != 1 {
		t.Errorf("breakdown = %+v", stats)
	}
	if stats.Messages != 2 {
		t.Errorf("messages = %d, want 2", stats.Messages)
	}
}
