package interview

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	resumindErrors "resumind/internal/errors"
	"resumind/internal/types"

	"google.golang.org/api/googleapi"
)

// parseTurnPayload validates and normalizes a model response into a Turn.
// Models are held to the schema loosely: field aliases, stringly-typed
// booleans and missing progress are all repaired, but a response without a
// usable assistant message is rejected so the caller can fall back.
// userMessages is the number of user messages in the transcript, used to
// derive progress when the model omits it.
func parseTurnPayload(raw string, userMessages int) (types.Turn, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return types.Turn{}, resumindErrors.NewAIError(resumindErrors.ErrCodeInvalidAIResponse,
			"Model response is not a JSON object", err)
	}

	message := stringField(payload, "assistant_message")
	if message == "" {
		message = stringField(payload, "question")
	}
	if message == "" {
		return types.Turn{}, resumindErrors.NewAIError(resumindErrors.ErrCodeInvalidAIResponse,
			"Model response has no assistant message", nil)
	}

	completed := boolField(payload, "completed")

	progress := types.ProgressState{}
	if ps, ok := payload["progress_state"].(map[string]any); ok {
		progress = types.ProgressState(ps).Clone()
	}
	pct, ok := NormalizePercentage(progress["percentage"])
	if !ok {
		// Roughly five exchanges to a full interview.
		pct = clampPercentage(20*userMessages, 0, 100)
	}
	if completed {
		pct = 100
	}
	progress.SetPercentage(pct)

	turn := types.Turn{
		AIMessage:     message,
		ProgressState: progress,
		Completed:     completed,
		Metadata:      metadataField(payload),
	}

	// A resume only accompanies a finished interview.
	if completed {
		turn.ResumeMarkdown = stringField(payload, "resume_markdown")
	}

	return turn, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// boolField coerces the looser boolean encodings models produce. Anything
// unrecognized means false.
func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return v != 0
	}
	return false
}

// metadataField normalizes the optional metadata: objects pass through,
// bare strings become a summary, everything else is dropped.
func metadataField(m map[string]any) map[string]any {
	switch v := m["metadata"].(type) {
	case map[string]any:
		return v
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return map[string]any{"summary": s}
		}
	}
	return nil
}

// classifyFailure buckets a provider error for logging and metric labels.
func classifyFailure(err error) string {
	if err == nil {
		return "none"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests:
			return "rate_limited"
		case http.StatusUnauthorized, http.StatusForbidden:
			return "auth"
		case http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return "api_unavailable"
		}
		return "api_error"
	}

	if resumindErrors.CodeIs(err, resumindErrors.ErrCodeInvalidAIResponse) {
		return "bad_payload"
	}

	return "other"
}
