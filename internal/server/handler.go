package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	resumindErrors "resumind/internal/errors"
	"resumind/internal/interview"
	"resumind/internal/observability"
	"resumind/internal/store"
	"resumind/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// createSessionHandler starts a new interview session and produces the
// intro turn.
func (s *Server) createSessionHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumind.api")
		ctx, span := tracer.Start(ctx, "api.create_session")
		defer span.End()

		metrics := om.GetMetrics()

		session, err := s.Store.CreateSession(ctx)
		if err != nil {
			span.RecordError(err)
			metrics.RecordBusinessMetric(ctx, "session_started", false, om)
			writeStoreError(w, err, "Failed to create session")
			return
		}
		span.SetAttributes(attribute.String("session.id", session.ID))

		// The intro turn never fails; the orchestrator degrades to the
		// heuristic interviewer on any model error.
		var result types.TurnResult
		_ = metrics.TrackTurnOperation(ctx, "intro", func(ctx context.Context) *observability.TurnOperationResult {
			result = s.Orchestrator.ProcessTurn(ctx, session.ID, nil, 0)
			return &observability.TurnOperationResult{
				Source:     string(result.Source),
				TokenUsage: (*observability.TokenUsage)(result.TokenUsage),
			}
		}, om)

		if _, err := s.Store.AppendMessage(ctx, session.ID, types.RoleAI, result.Turn.AIMessage, turnMessageMetadata(result)); err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to store intro message")
			return
		}

		updated, err := s.Store.UpdateProgress(ctx, session.ID, result.Turn.ProgressState)
		if err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to store session progress")
			return
		}

		metrics.RecordBusinessMetric(ctx, "session_started", true, om,
			attribute.String("source", string(result.Source)))
		span.SetAttributes(attribute.Bool("success", true))

		writeJSON(w, http.StatusCreated, TurnResponse{
			Session: updated,
			Turn:    result.Turn,
			Source:  result.Source,
		})
	}
}

// createMessageHandler accepts a user answer and produces the next turn.
func (s *Server) createMessageHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumind.api")
		ctx, span := tracer.Start(ctx, "api.message")
		defer span.End()

		sessionID := r.PathValue("id")
		span.SetAttributes(attribute.String("session.id", sessionID))

		var req MessageRequest
		if err := parseJSONRequest(r, &req); err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.Content) == "" {
			writeErrorResponse(w, "Missing message content", "content field is required", http.StatusBadRequest)
			return
		}

		session, err := s.Store.GetSession(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to load session")
			return
		}
		if session.Status.IsTerminal() {
			writeErrorResponse(w, "Session finished",
				"The interview has already finished; start a new session", http.StatusConflict)
			return
		}

		if _, err := s.Store.AppendMessage(ctx, sessionID, types.RoleUser, req.Content, nil); err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to store message")
			return
		}

		history, err := s.Store.Messages(ctx, sessionID)
		if err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to load transcript")
			return
		}

		metrics := om.GetMetrics()
		var result types.TurnResult
		_ = metrics.TrackTurnOperation(ctx, "turn", func(ctx context.Context) *observability.TurnOperationResult {
			result = s.Orchestrator.ProcessTurn(ctx, sessionID, history, session.Percentage())
			return &observability.TurnOperationResult{
				Source:     string(result.Source),
				TokenUsage: (*observability.TokenUsage)(result.TokenUsage),
			}
		}, om)

		if _, err := s.Store.AppendMessage(ctx, sessionID, types.RoleAI, result.Turn.AIMessage, turnMessageMetadata(result)); err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to store message")
			return
		}

		var updated *types.Session
		if result.Turn.Completed {
			updated, err = s.Store.CompleteSession(ctx, sessionID, result.Turn.ResumeMarkdown, result.Turn.ProgressState)
		} else {
			updated, err = s.Store.UpdateProgress(ctx, sessionID, result.Turn.ProgressState)
		}
		if err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to store session progress")
			return
		}

		metrics.RecordBusinessMetric(ctx, "turn_processed", true, om,
			attribute.String("source", string(result.Source)),
			attribute.Bool("completed", result.Turn.Completed))
		if result.Turn.Completed {
			metrics.RecordBusinessMetric(ctx, "session_completed", true, om,
				attribute.String("source", string(result.Source)))
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.String("turn.source", string(result.Source)),
			attribute.Bool("turn.completed", result.Turn.Completed),
			attribute.Int("turn.percentage", result.Turn.Percentage()),
		)

		writeJSON(w, http.StatusOK, TurnResponse{
			Session: updated,
			Turn:    result.Turn,
			Source:  result.Source,
		})
	}
}

// createAdvanceHandler manually advances a session's progress without a
// conversational turn. forceComplete finishes the interview on the spot.
func (s *Server) createAdvanceHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("resumind.api")
		ctx, span := tracer.Start(ctx, "api.advance")
		defer span.End()

		sessionID := r.PathValue("id")
		span.SetAttributes(attribute.String("session.id", sessionID))

		// The body is optional; an empty POST advances one notch.
		var req AdvanceRequest
		if r.ContentLength > 0 {
			if err := parseJSONRequest(r, &req); err != nil {
				span.RecordError(err)
				writeErrorResponse(w, "Invalid request body", err.Error(), http.StatusBadRequest)
				return
			}
		}

		session, err := s.Store.AdvanceProgress(ctx, sessionID, req.ForceComplete)
		if err != nil {
			span.RecordError(err)
			writeStoreError(w, err, "Failed to advance session progress")
			return
		}

		if req.ForceComplete {
			history, err := s.Store.Messages(ctx, sessionID)
			if err != nil {
				span.RecordError(err)
				writeStoreError(w, err, "Failed to load transcript")
				return
			}
			session, err = s.Store.CompleteSession(ctx, sessionID,
				interview.SynthesizeResume(history), session.ProgressState)
			if err != nil {
				span.RecordError(err)
				writeStoreError(w, err, "Failed to complete session")
				return
			}
			om.GetMetrics().RecordBusinessMetric(ctx, "session_completed", true, om,
				attribute.String("source", "forced"))
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Bool("force_complete", req.ForceComplete),
			attribute.Int("session.percentage", session.Percentage()),
		)

		writeJSON(w, http.StatusOK, session)
	}
}

// getSessionHandler returns a session and its transcript.
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")

	session, err := s.Store.GetSession(ctx, sessionID)
	if err != nil {
		writeStoreError(w, err, "Failed to load session")
		return
	}

	messages, err := s.Store.Messages(ctx, sessionID)
	if err != nil {
		writeStoreError(w, err, "Failed to load transcript")
		return
	}

	writeJSON(w, http.StatusOK, SessionDetailResponse{
		Session:  session,
		Messages: messages,
	})
}

// listSessionsHandler returns a paged session listing, optionally filtered
// by status.
func (s *Server) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{Limit: 50}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := types.ParseSessionStatus(raw)
		if !ok {
			writeErrorResponse(w, "Invalid status filter",
				"status must be one of in_progress, completed, abandoned", http.StatusBadRequest)
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeErrorResponse(w, "Invalid limit", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			writeErrorResponse(w, "Invalid offset", "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		filter.Offset = offset
	}

	sessions, total, err := s.Store.ListSessions(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []*types.Session{}
	}

	writeJSON(w, http.StatusOK, SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

// listMessagesHandler returns a session's transcript in insertion order.
func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("id")

	// Existence check first so a missing session is a 404, not an empty list.
	if _, err := s.Store.GetSession(ctx, sessionID); err != nil {
		writeStoreError(w, err, "Failed to load session")
		return
	}

	messages, err := s.Store.Messages(ctx, sessionID)
	if err != nil {
		writeStoreError(w, err, "Failed to load transcript")
		return
	}
	if messages == nil {
		messages = []types.Message{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// deleteSessionHandler removes a session and its transcript.
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// turnMessageMetadata builds the metadata stored alongside an AI message.
func turnMessageMetadata(result types.TurnResult) map[string]any {
	metadata := map[string]any{"source": string(result.Source)}
	if result.TokenUsage != nil {
		metadata["tokens"] = map[string]any{
			"input":  result.TokenUsage.InputTokens,
			"output": result.TokenUsage.OutputTokens,
			"total":  result.TokenUsage.TotalTokens,
		}
	}
	if len(result.Turn.Metadata) > 0 {
		metadata["turn"] = result.Turn.Metadata
	}
	return metadata
}

// writeStoreError maps a storage error to the right HTTP status.
func writeStoreError(w http.ResponseWriter, err error, message string) {
	switch {
	case resumindErrors.CodeIs(err, resumindErrors.ErrCodeSessionNotFound),
		resumindErrors.CodeIs(err, resumindErrors.ErrCodeMessageNotFound):
		writeErrorResponse(w, "Session not found", err.Error(), http.StatusNotFound)
	case resumindErrors.CodeIs(err, resumindErrors.ErrCodeSessionFinished):
		writeErrorResponse(w, "Session finished", err.Error(), http.StatusConflict)
	default:
		writeErrorResponse(w, message, err.Error(), http.StatusInternalServerError)
	}
}

// createRateLimitMiddleware adds observability to rate limiting
func (s *Server) createRateLimitMiddleware(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	originalMiddleware := s.rateLimitMiddleware()

	return func(next http.HandlerFunc) http.HandlerFunc {
		return originalMiddleware(func(w http.ResponseWriter, r *http.Request) {
			// Wrap the ResponseWriter to detect rate limit responses
			wrapper := &responseWrapper{ResponseWriter: w, statusCode: 200}

			next(wrapper, r)

			// If rate limited, record metric
			if wrapper.statusCode == http.StatusTooManyRequests {
				metrics := om.GetMetrics()
				metrics.RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path),
					attribute.String("method", r.Method))
			}
		})
	}
}

// responseWrapper wraps http.ResponseWriter to capture status code
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
