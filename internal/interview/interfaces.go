package interview

import (
	"context"

	"resumind/internal/types"
)

// TurnProvider generates interview turns from a transcript. Implementations
// may fail; the orchestrator treats any error as a signal to fall back to
// the heuristic interviewer.
type TurnProvider interface {
	GenerateIntro(ctx context.Context, sessionID string) (types.Turn, *types.TokenUsage, error)
	ProcessTurn(ctx context.Context, sessionID string, history []types.Message) (types.Turn, *types.TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
