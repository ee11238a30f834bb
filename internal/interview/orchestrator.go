package interview

import (
	"context"

	"resumind/internal/config"
	"resumind/internal/errors"
	"resumind/internal/types"
)

// FallbackHook is invoked whenever the model path fails and the heuristic
// takes over, with a short failure classification for metrics.
type FallbackHook func(operation, reason string)

// Orchestrator is the single entry point for producing interview turns. It
// routes to the model-backed provider when one is configured and healthy,
// and to the heuristic interviewer otherwise. It never returns an error:
// every failure mode degrades to a deterministic turn.
type Orchestrator struct {
	provider   TurnProvider
	heuristic  *HeuristicInterviewer
	logger     *errors.Logger
	onFallback FallbackHook
}

// NewOrchestrator builds an orchestrator from configuration. Without an API
// key the model path is skipped entirely and every turn is heuristic; this
// is a supported deployment mode, not a degradation.
func NewOrchestrator(cfg *config.AIConfig, bank *QuestionBank, logger *errors.Logger) (*Orchestrator, error) {
	o := &Orchestrator{
		heuristic: NewHeuristicInterviewer(bank, logger),
		logger:    logger,
	}

	if cfg.Enabled() {
		provider, err := NewGeminiTurnProvider(cfg, logger)
		if err != nil {
			return nil, err
		}
		o.provider = provider
	} else {
		logger.Info("No AI API key configured, running in heuristic-only mode")
	}

	return o, nil
}

// NewOrchestratorWithProvider builds an orchestrator around an explicit
// turn provider. A nil provider yields heuristic-only mode.
func NewOrchestratorWithProvider(provider TurnProvider, bank *QuestionBank, logger *errors.Logger) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		heuristic: NewHeuristicInterviewer(bank, logger),
		logger:    logger,
	}
}

// SetFallbackHook registers a callback for fallback events.
func (o *Orchestrator) SetFallbackHook(hook FallbackHook) {
	o.onFallback = hook
}

// SetQuestionBank swaps the heuristic question bank at runtime.
func (o *Orchestrator) SetQuestionBank(bank *QuestionBank) {
	o.heuristic.SetBank(bank)
}

// QuestionBank returns the heuristic's current bank.
func (o *Orchestrator) QuestionBank() *QuestionBank {
	return o.heuristic.Bank()
}

// ModelEnabled reports whether a model-backed provider is configured.
func (o *Orchestrator) ModelEnabled() bool {
	return o.provider != nil
}

// GetModelInfo returns model availability, or nil in heuristic-only mode.
func (o *Orchestrator) GetModelInfo(ctx context.Context) *ModelInfo {
	if o.provider == nil {
		return nil
	}
	return o.provider.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns provider circuit breaker statistics.
func (o *Orchestrator) GetCircuitBreakerStats() map[string]any {
	if o.provider == nil {
		return map[string]any{"enabled": false}
	}
	return o.provider.GetCircuitBreakerStats()
}

// Close releases the provider, if any.
func (o *Orchestrator) Close() error {
	if o.provider == nil {
		return nil
	}
	return o.provider.Close()
}

// ProcessTurn produces the next turn for a session. An empty history means
// a fresh session and yields the intro turn. prevPercentage is the last
// persisted progress; the returned turn's percentage never falls below it.
func (o *Orchestrator) ProcessTurn(ctx context.Context, sessionID string, history []types.Message, prevPercentage int) types.TurnResult {
	if len(history) == 0 {
		return o.intro(ctx, sessionID)
	}

	if o.provider != nil {
		turn, usage, err := o.provider.ProcessTurn(ctx, sessionID, history)
		if err == nil {
			return types.TurnResult{
				Turn:       o.finalizeTurn(turn, prevPercentage, history),
				Source:     types.SourceGemini,
				TokenUsage: usage,
			}
		}
		o.fallback("turn", sessionID, err)
	}

	turn := o.heuristic.ProcessTurn(sessionID, history)
	return types.TurnResult{
		Turn:   o.finalizeTurn(turn, prevPercentage, history),
		Source: types.SourceHeuristic,
	}
}

// intro produces the first turn of a session. Intros always report zero
// progress and are never completions, whatever the model says.
func (o *Orchestrator) intro(ctx context.Context, sessionID string) types.TurnResult {
	if o.provider != nil {
		turn, usage, err := o.provider.GenerateIntro(ctx, sessionID)
		if err == nil {
			turn.Completed = false
			turn.ResumeMarkdown = ""
			turn.ProgressState = ensureProgress(turn.ProgressState)
			turn.ProgressState.SetPercentage(0)
			return types.TurnResult{Turn: turn, Source: types.SourceGemini, TokenUsage: usage}
		}
		o.fallback("intro", sessionID, err)
	}

	return types.TurnResult{
		Turn:   o.heuristic.GenerateIntro(sessionID),
		Source: types.SourceHeuristic,
	}
}

// finalizeTurn enforces the progress invariants on a turn from either
// engine: progress is monotone against the stored value, stays at or below
// 95 until completion, and is exactly 100 with a resume attached once the
// interview completes.
func (o *Orchestrator) finalizeTurn(turn types.Turn, prevPercentage int, history []types.Message) types.Turn {
	turn.ProgressState = ensureProgress(turn.ProgressState)

	if turn.Completed {
		turn.ProgressState.SetPercentage(100)
		if turn.ResumeMarkdown == "" {
			// The model declared completion without a resume; synthesize
			// one from the transcript rather than completing empty-handed.
			turn.ResumeMarkdown = SynthesizeResume(history)
		}
		return turn
	}

	pct := clampPercentage(turn.Percentage(), 0, 95)
	if pct < prevPercentage {
		pct = prevPercentage
	}
	if pct > 95 {
		pct = 95
	}
	turn.ProgressState.SetPercentage(pct)
	turn.ResumeMarkdown = ""
	return turn
}

func (o *Orchestrator) fallback(operation, sessionID string, err error) {
	reason := classifyFailure(err)
	o.logger.Warn("Falling back to heuristic interviewer",
		"operation", operation,
		"session_id", sessionID,
		"reason", reason,
		"error", err.Error())
	if o.onFallback != nil {
		o.onFallback(operation, reason)
	}
}

func ensureProgress(p types.ProgressState) types.ProgressState {
	if p == nil {
		return types.ProgressState{}
	}
	return p
}
