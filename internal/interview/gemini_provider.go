package interview

import (
	"context"
	"fmt"
	"time"

	"resumind/internal/config"
	resumindErrors "resumind/internal/errors"
	"resumind/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/genai"
)

// GeminiTurnProvider implements TurnProvider for Google Gemini.
//
// Each turn is a single GenerateContent call behind a circuit breaker.
// There is deliberately no retry loop: the orchestrator has a deterministic
// fallback, so a failed call should surface immediately instead of holding
// the client while the upstream recovers.
type GeminiTurnProvider struct {
	client       *genai.Client
	config       *config.AIConfig
	breaker      *TurnCircuitBreaker
	modelBreaker *ModelCircuitBreaker
	logger       *resumindErrors.Logger
}

// Ensure GeminiTurnProvider implements TurnProvider
var _ TurnProvider = (*GeminiTurnProvider)(nil)

// NewGeminiTurnProvider creates a Gemini-backed turn provider
func NewGeminiTurnProvider(cfg *config.AIConfig, logger *resumindErrors.Logger) (*GeminiTurnProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, resumindErrors.NewAIError(resumindErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiTurnProvider{
		client:       client,
		config:       cfg,
		breaker:      NewTurnCircuitBreaker(cfg, logger),
		modelBreaker: NewModelCircuitBreaker(cfg, logger),
		logger:       logger,
	}, nil
}

// GenerateIntro asks the model to open a fresh interview session.
func (g *GeminiTurnProvider) GenerateIntro(ctx context.Context, sessionID string) (types.Turn, *types.TokenUsage, error) {
	return g.generate(ctx, "intro", sessionID, buildIntroPrompt(g.config.WelcomeContext), 0)
}

// ProcessTurn asks the model for the next turn given the transcript so far.
func (g *GeminiTurnProvider) ProcessTurn(ctx context.Context, sessionID string, history []types.Message) (types.Turn, *types.TokenUsage, error) {
	_, userMessages := countRoles(history)
	return g.generate(ctx, "turn", sessionID, buildTurnPrompt(history), userMessages)
}

// generate runs one model call with tracing and circuit breaker protection,
// then normalizes the response into a Turn.
func (g *GeminiTurnProvider) generate(ctx context.Context, operation, sessionID, prompt string, userMessages int) (types.Turn, *types.TokenUsage, error) {
	tracer := otel.Tracer("resumind.interview.gemini")
	ctx, span := tracer.Start(ctx, "gemini.interview_"+operation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.String("session.id", sessionID),
		attribute.Int("input.user_messages", userMessages),
	)
	if g.config.Temperature != nil {
		span.SetAttributes(attribute.Float64("ai.temperature", float64(*g.config.Temperature)))
	}

	genaiConfig := g.buildTurnSchema()
	if g.useSystemPrompts() {
		genaiConfig.SystemInstruction = genai.NewContentFromText(g.systemPrompt(), genai.RoleUser)
	}

	callCtx := ctx
	if g.config.Timeout != nil {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, *g.config.Timeout)
		defer cancel()
	}

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.client.Models.GenerateContent(callCtx, g.config.Model, genai.Text(prompt), genaiConfig)
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.String("failure.kind", classifyFailure(err)),
		)
		return types.Turn{}, nil, resumindErrors.NewAIError(resumindErrors.ErrCodeAIServiceFailed,
			"Failed to generate interview "+operation, err).
			WithContext("session_id", sessionID)
	}

	turn, err := parseTurnPayload(result.Text(), userMessages)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(
			attribute.Bool("success", false),
			attribute.String("failure.kind", classifyFailure(err)),
		)
		return types.Turn{}, nil, err
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Bool("turn.completed", turn.Completed),
		attribute.Int("turn.percentage", turn.Percentage()),
	)
	return turn, tokenUsage, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiTurnProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout())
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"provider", g.config.Provider,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	if model.DisplayName != "" {
		modelInfo.DisplayName = model.DisplayName
	}
	if model.Version != "" {
		modelInfo.Version = model.Version
	}

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiTurnProvider) GetCircuitBreakerStats() map[string]any {
	stats := map[string]any{
		"turn_operations":  g.breaker.GetStats(),
		"model_operations": g.modelBreaker.GetModelStats(),
	}
	stats["overall_healthy"] = g.breaker.IsHealthy() && g.modelBreaker.IsModelHealthy()
	return stats
}

// Close implements TurnProvider
func (g *GeminiTurnProvider) Close() error {
	// Gemini client doesn't have a Close method in current single-shot usage
	return nil
}

// buildTurnSchema creates the response schema for interview turns. The
// schema keeps the model honest about the envelope; parseTurnPayload still
// repairs the looser encodings that slip through.
func (g *GeminiTurnProvider) buildTurnSchema() *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"assistant_message": {Type: genai.TypeString},
				"completed":         {Type: genai.TypeBoolean},
				"progress_state": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"percentage": {Type: genai.TypeInteger},
					},
					Required: []string{"percentage"},
				},
				"resume_markdown": {Type: genai.TypeString},
				"metadata":        {Type: genai.TypeString},
			},
			Required: []string{"assistant_message", "completed", "progress_state"},
		},
	}

	// Apply temperature configuration if set
	if g.config.Temperature != nil && *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}

	return cfg
}

func (g *GeminiTurnProvider) useSystemPrompts() bool {
	return g.config.UseSystemPrompts == nil || *g.config.UseSystemPrompts
}

func (g *GeminiTurnProvider) systemPrompt() string {
	if g.config.SystemPrompt != "" {
		return g.config.SystemPrompt
	}
	return DefaultSystemPrompt
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *types.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &types.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}

func modelCheckTimeout() time.Duration {
	if config.GlobalConfig != nil && config.GlobalConfig.Observability.HealthCheck.AIModelCheckTimeout > 0 {
		return config.GlobalConfig.Observability.HealthCheck.AIModelCheckTimeout
	}
	return 10 * time.Second
}
