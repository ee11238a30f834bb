package types

import (
	"fmt"
	"time"
)

// MessageRole identifies who authored a message in an interview session.
type MessageRole string

const (
	RoleUser MessageRole = "user"
	RoleAI   MessageRole = "ai"
)

// ParseRole maps a stored role string to a MessageRole. Unknown values are
// treated as AI authored so that history replay keeps working against old
// or hand-edited data.
func ParseRole(s string) MessageRole {
	if s == string(RoleUser) {
		return RoleUser
	}
	return RoleAI
}

// Message is a single entry in an interview transcript.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ProgressState is the free-form progress document attached to a session.
// Only the "percentage" key has engine-level meaning; everything else is
// passed through untouched.
type ProgressState map[string]any

// Percentage returns the embedded completion percentage, coercing numeric
// JSON representations. The second return reports whether a usable value
// was present.
func (p ProgressState) Percentage() (int, bool) {
	if p == nil {
		return 0, false
	}
	switch v := p["percentage"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}

// SetPercentage stores a completion percentage, clamped to [0, 100].
func (p ProgressState) SetPercentage(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	p["percentage"] = pct
}

// Clone returns a shallow copy so callers can mutate progress without
// aliasing the stored state.
func (p ProgressState) Clone() ProgressState {
	if p == nil {
		return ProgressState{}
	}
	out := make(ProgressState, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Turn is the result of one interview exchange: the assistant's next
// message plus the updated session bookkeeping.
type Turn struct {
	AIMessage      string         `json:"aiMessage"`
	ProgressState  ProgressState  `json:"progressState"`
	Completed      bool           `json:"completed"`
	ResumeMarkdown string         `json:"resumeMarkdown,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// Percentage is shorthand for the turn's progress percentage, 0 when unset.
func (t *Turn) Percentage() int {
	pct, _ := t.ProgressState.Percentage()
	return pct
}

// SessionStatus is the lifecycle state of an interview session.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// ParseSessionStatus maps a stored status string to a SessionStatus. The
// boolean reports whether the value was recognized; unknown values recover
// to in_progress so a damaged row never becomes unreadable.
func ParseSessionStatus(s string) (SessionStatus, bool) {
	switch SessionStatus(s) {
	case StatusInProgress, StatusCompleted, StatusAbandoned:
		return SessionStatus(s), true
	}
	return StatusInProgress, false
}

// CanTransition reports whether a status change is allowed. Sessions only
// move forward: in_progress may complete or be abandoned, terminal states
// stay put.
func (s SessionStatus) CanTransition(to SessionStatus) bool {
	if s == to {
		return true
	}
	return s == StatusInProgress && (to == StatusCompleted || to == StatusAbandoned)
}

// IsTerminal reports whether the session can accept further turns.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Session is an interview session record.
type Session struct {
	ID             string        `json:"id"`
	Status         SessionStatus `json:"status"`
	ProgressState  ProgressState `json:"progressState"`
	ResumeMarkdown string        `json:"resumeMarkdown,omitempty"`
	MessageCount   int           `json:"messageCount"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
}

// Percentage is shorthand for the session's progress percentage, 0 when unset.
func (s *Session) Percentage() int {
	pct, _ := s.ProgressState.Percentage()
	return pct
}

// SessionExport bundles a session with its transcript for output.
type SessionExport struct {
	Session  Session   `json:"session"`
	Messages []Message `json:"messages"`
}

// SessionList is a paged view of stored sessions. Total counts all matches
// before paging.
type SessionList struct {
	Sessions []*Session `json:"sessions"`
	Total    int        `json:"total"`
}

// TokenUsage captures model token consumption for one AI call.
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// TurnSource identifies which engine produced a turn.
type TurnSource string

const (
	SourceGemini    TurnSource = "gemini"
	SourceHeuristic TurnSource = "heuristic"
)

// TurnResult is the orchestrator's output: the turn itself plus where it
// came from and what it cost.
type TurnResult struct {
	Turn       Turn        `json:"turn"`
	Source     TurnSource  `json:"source"`
	TokenUsage *TokenUsage `json:"tokenUsage,omitempty"`
}
