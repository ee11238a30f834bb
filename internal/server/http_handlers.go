package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler provides a health check endpoint covering the session store
// and the AI model path.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	timeout := s.getHealthCheckTimeout()
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "resumind",
		"version": s.Version,
	}
	overallHealthy := true

	// Store connectivity
	storeStatus := map[string]any{"available": true}
	if err := s.Store.Ping(ctx); err != nil {
		storeStatus["available"] = false
		storeStatus["error"] = err.Error()
		overallHealthy = false
	}
	response["store"] = storeStatus

	// Model availability. Heuristic-only mode is healthy: the engine
	// always has an interviewer to fall back on.
	degraded := false
	if s.Orchestrator.ModelEnabled() {
		modelStatus := map[string]any{"mode": "gemini"}
		if info := s.Orchestrator.GetModelInfo(ctx); info != nil {
			modelStatus["model"] = info
			if !info.Available {
				degraded = true
			}
		}
		response["ai_model"] = modelStatus
	} else {
		response["ai_model"] = map[string]any{"mode": "heuristic-only"}
	}

	response["circuit_breakers"] = s.Orchestrator.GetCircuitBreakerStats()

	switch {
	case !overallHealthy:
		response["status"] = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	case degraded:
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statsHandler provides server statistics including session counts and rate
// limiting info.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "resumind",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
		},
	}

	if stats, err := s.Store.GetStats(r.Context()); err == nil {
		response["sessions"] = stats
	} else {
		s.Logger.LogError(err, "Failed to collect session stats")
		response["sessions"] = map[string]any{"error": "unavailable"}
	}

	response["question_bank"] = map[string]any{
		"size":          s.Orchestrator.QuestionBank().Len(),
		"watch_enabled": s.bankWatcher != nil && s.bankWatcher.IsRunning(),
	}

	// Add rate limiting stats if enabled
	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// parseJSONRequest parses JSON request body into the provided struct
func parseJSONRequest(r *http.Request, v any) error {
	if r.Header.Get("Content-Type") != "application/json" {
		return fmt.Errorf("content-type must be application/json")
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fmt.Errorf("request body too large (limit is %d bytes)", maxBytesErr.Limit)
		}
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			log.Printf("Failed to close request body: %v", err)
		}
	}()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	err := json.NewEncoder(w).Encode(response)
	if err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
