package interview

import (
	"context"
	"errors"
	"testing"

	"resumind/internal/types"
)

// fakeProvider satisfies TurnProvider with canned responses.
type fakeProvider struct {
	turn  types.Turn
	usage *types.TokenUsage
	err   error
	calls int
}

func (f *fakeProvider) GenerateIntro(ctx context.Context, sessionID string) (types.Turn, *types.TokenUsage, error) {
	f.calls++
	return f.turn, f.usage, f.err
}

func (f *fakeProvider) ProcessTurn(ctx context.Context, sessionID string, history []types.Message) (types.Turn, *types.TokenUsage, error) {
	f.calls++
	return f.turn, f.usage, f.err
}

func (f *fakeProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	return &ModelInfo{Name: "fake", Available: true}
}

func (f *fakeProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{"enabled": true}
}

func (f *fakeProvider) Close() error { return nil }

func newTestOrchestrator(t *testing.T, provider TurnProvider) *Orchestrator {
	t.Helper()
	logger := testLogger(t)
	return &Orchestrator{
		provider:  provider,
		heuristic: NewHeuristicInterviewer(nil, logger),
		logger:    logger,
	}
}

func modelTurn(message string, pct int) types.Turn {
	ps := types.ProgressState{}
	ps.SetPercentage(pct)
	return types.Turn{AIMessage: message, ProgressState: ps}
}

func TestProcessTurnUsesProvider(t *testing.T) {
	fake := &fakeProvider{
		turn:  modelTurn("Tell me about a project you led.", 40),
		usage: &types.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
	o := newTestOrchestrator(t, fake)

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(2), 30)

	if result.Source != types.SourceGemini {
		t.Errorf("source = %q, want gemini", result.Source)
	}
	if result.Turn.AIMessage != "Tell me about a project you led." {
		t.Errorf("message = %q", result.Turn.AIMessage)
	}
	if result.TokenUsage == nil || result.TokenUsage.TotalTokens != 15 {
		t.Errorf("token usage = %+v", result.TokenUsage)
	}
	if pct := result.Turn.Percentage(); pct != 40 {
		t.Errorf("percentage = %d, want 40", pct)
	}
}

func TestProcessTurnFallsBackOnError(t *testing.T) {
	fake := &fakeProvider{err: errors.New("upstream unavailable")}
	o := newTestOrchestrator(t, fake)

	var gotOp, gotReason string
	o.SetFallbackHook(func(operation, reason string) {
		gotOp = operation
		gotReason = reason
	})

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(2), 0)

	if result.Source != types.SourceHeuristic {
		t.Errorf("source = %q, want heuristic", result.Source)
	}
	if result.Turn.AIMessage == "" {
		t.Error("fallback turn has no message")
	}
	if result.TokenUsage != nil {
		t.Error("heuristic turns must not report token usage")
	}
	if gotOp != "turn" {
		t.Errorf("hook operation = %q, want turn", gotOp)
	}
	if gotReason != "other" {
		t.Errorf("hook reason = %q, want other", gotReason)
	}
}

func TestProcessTurnHeuristicOnly(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	if o.ModelEnabled() {
		t.Error("ModelEnabled() = true with no provider")
	}
	if o.GetModelInfo(context.Background()) != nil {
		t.Error("model info should be nil in heuristic-only mode")
	}
	if stats := o.GetCircuitBreakerStats(); stats["enabled"] != false {
		t.Errorf("breaker stats = %v", stats)
	}

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(1), 0)
	if result.Source != types.SourceHeuristic {
		t.Errorf("source = %q, want heuristic", result.Source)
	}
}

func TestProcessTurnIntro(t *testing.T) {
	t.Run("model intro sanitized", func(t *testing.T) {
		turn := modelTurn("Welcome! What is your name?", 50)
		turn.Completed = true
		turn.ResumeMarkdown = "# Nobody"
		o := newTestOrchestrator(t, &fakeProvider{turn: turn})

		result := o.ProcessTurn(context.Background(), "s-1", nil, 0)

		if result.Turn.Completed {
			t.Error("intro must not complete the interview")
		}
		if result.Turn.ResumeMarkdown != "" {
			t.Error("intro must not carry a resume")
		}
		if pct := result.Turn.Percentage(); pct != 0 {
			t.Errorf("intro percentage = %d, want 0", pct)
		}
	})

	t.Run("intro error falls back", func(t *testing.T) {
		fake := &fakeProvider{err: errors.New("boom")}
		o := newTestOrchestrator(t, fake)

		var gotOp string
		o.SetFallbackHook(func(operation, reason string) { gotOp = operation })

		result := o.ProcessTurn(context.Background(), "s-1", nil, 0)

		if result.Source != types.SourceHeuristic {
			t.Errorf("source = %q, want heuristic", result.Source)
		}
		if gotOp != "intro" {
			t.Errorf("hook operation = %q, want intro", gotOp)
		}
		if pct := result.Turn.Percentage(); pct != 0 {
			t.Errorf("intro percentage = %d, want 0", pct)
		}
	})
}

func TestFinalizeTurnMonotone(t *testing.T) {
	o := newTestOrchestrator(t, &fakeProvider{turn: modelTurn("next", 25)})

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(3), 60)
	if pct := result.Turn.Percentage(); pct != 60 {
		t.Errorf("percentage = %d, want previous 60", pct)
	}
}

func TestFinalizeTurnCapsBeforeCompletion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeProvider{turn: modelTurn("almost there", 99)})

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(4), 0)
	if result.Turn.Completed {
		t.Fatal("turn should not be completed")
	}
	if pct := result.Turn.Percentage(); pct != 95 {
		t.Errorf("percentage = %d, want cap 95", pct)
	}
}

func TestFinalizeTurnCompletion(t *testing.T) {
	t.Run("synthesizes missing resume", func(t *testing.T) {
		turn := modelTurn("Thanks, we are done.", 80)
		turn.Completed = true
		o := newTestOrchestrator(t, &fakeProvider{turn: turn})

		result := o.ProcessTurn(context.Background(), "s-1", buildHistory(5), 70)

		if pct := result.Turn.Percentage(); pct != 100 {
			t.Errorf("percentage = %d, want 100", pct)
		}
		if result.Turn.ResumeMarkdown == "" {
			t.Error("completed turn must carry a resume")
		}
	})

	t.Run("keeps model resume", func(t *testing.T) {
		turn := modelTurn("Done.", 100)
		turn.Completed = true
		turn.ResumeMarkdown = "# Ada Lovelace"
		o := newTestOrchestrator(t, &fakeProvider{turn: turn})

		result := o.ProcessTurn(context.Background(), "s-1", buildHistory(5), 70)
		if result.Turn.ResumeMarkdown != "# Ada Lovelace" {
			t.Errorf("resume = %q", result.Turn.ResumeMarkdown)
		}
	})

	t.Run("drops resume on unfinished turn", func(t *testing.T) {
		turn := modelTurn("One more question.", 50)
		turn.ResumeMarkdown = "# Too Early"
		o := newTestOrchestrator(t, &fakeProvider{turn: turn})

		result := o.ProcessTurn(context.Background(), "s-1", buildHistory(2), 0)
		if result.Turn.ResumeMarkdown != "" {
			t.Errorf("resume = %q, want empty", result.Turn.ResumeMarkdown)
		}
	})
}

func TestFinalizeTurnNilProgress(t *testing.T) {
	o := newTestOrchestrator(t, &fakeProvider{turn: types.Turn{AIMessage: "next"}})

	result := o.ProcessTurn(context.Background(), "s-1", buildHistory(2), 30)
	if result.Turn.ProgressState == nil {
		t.Fatal("progress state must be initialized")
	}
	if pct := result.Turn.Percentage(); pct != 30 {
		t.Errorf("percentage = %d, want floor 30", pct)
	}
}

func TestOrchestratorBankManagement(t *testing.T) {
	o := newTestOrchestrator(t, nil)

	if o.QuestionBank().Len() != len(defaultQuestions) {
		t.Fatalf("default bank size = %d", o.QuestionBank().Len())
	}

	o.SetQuestionBank(NewQuestionBank([]string{"Only question?"}))
	if o.QuestionBank().Len() != 1 {
		t.Errorf("bank size after swap = %d", o.QuestionBank().Len())
	}
}
