// Package store persists interview sessions and their transcripts.
package store

import (
	"context"

	"resumind/internal/types"
)

// ListFilter narrows and pages ListSessions results. A nil Status means all
// sessions; Limit of zero means no limit.
type ListFilter struct {
	Status *types.SessionStatus
	Limit  int
	Offset int
}

// Stats is an aggregate snapshot of the store.
type Stats struct {
	Sessions   int64 `json:"sessions"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Abandoned  int64 `json:"abandoned"`
	Messages   int64 `json:"messages"`
}

// Store defines the persistence interface for interview sessions.
type Store interface {
	// CreateSession creates a fresh in-progress session with zero progress.
	CreateSession(ctx context.Context) (*types.Session, error)

	// GetSession retrieves a session by ID.
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)

	// ListSessions returns sessions matching the filter, newest first, plus
	// the total match count before paging.
	ListSessions(ctx context.Context, filter ListFilter) ([]*types.Session, int, error)

	// DeleteSession removes a session and its messages.
	DeleteSession(ctx context.Context, sessionID string) error

	// AppendMessage appends a message to a session's transcript and bumps
	// the session's message count.
	AppendMessage(ctx context.Context, sessionID string, role types.MessageRole, content string, metadata map[string]any) (*types.Message, error)

	// Messages returns a session's transcript in insertion order.
	Messages(ctx context.Context, sessionID string) ([]types.Message, error)

	// UpdateMessageMetadata replaces the metadata of a stored message.
	UpdateMessageMetadata(ctx context.Context, messageID string, metadata map[string]any) error

	// UpdateProgress stores a new progress state for an in-progress session.
	// The embedded percentage never regresses: a lower incoming value keeps
	// the persisted one.
	UpdateProgress(ctx context.Context, sessionID string, progress types.ProgressState) (*types.Session, error)

	// AdvanceProgress recomputes the session's percentage from its message
	// count and stores the result. forceComplete jumps straight to 100.
	AdvanceProgress(ctx context.Context, sessionID string, forceComplete bool) (*types.Session, error)

	// CompleteSession transitions an in-progress session to completed,
	// attaching the final resume and pinning progress at 100.
	CompleteSession(ctx context.Context, sessionID string, resumeMarkdown string, progress types.ProgressState) (*types.Session, error)

	// AbandonSession transitions an in-progress session to abandoned.
	AbandonSession(ctx context.Context, sessionID string) (*types.Session, error)

	// GetStats returns aggregate counts.
	GetStats(ctx context.Context) (*Stats, error)

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying database.
	Close() error
}
