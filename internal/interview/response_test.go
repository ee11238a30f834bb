package interview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	resumindErrors "resumind/internal/errors"

	"google.golang.org/api/googleapi"
)

func TestParseTurnPayloadValid(t *testing.T) {
	raw := `{
		"assistant_message": "What was your last role?",
		"completed": false,
		"progress_state": {"percentage": 35, "topics": ["work"]},
		"metadata": {"tone": "friendly"}
	}`

	turn, err := parseTurnPayload(raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.AIMessage != "What was your last role?" {
		t.Errorf("message = %q", turn.AIMessage)
	}
	if turn.Completed {
		t.Error("completed = true, want false")
	}
	if pct := turn.Percentage(); pct != 35 {
		t.Errorf("percentage = %d, want 35", pct)
	}
	if topics, ok := turn.ProgressState["topics"]; !ok {
		t.Error("extra progress keys must pass through")
	} else if _, ok := topics.([]any); !ok {
		t.Errorf("topics = %T, want slice", topics)
	}
	if turn.Metadata["tone"] != "friendly" {
		t.Errorf("metadata = %v", turn.Metadata)
	}
}

func TestParseTurnPayloadQuestionAlias(t *testing.T) {
	turn, err := parseTurnPayload(`{"question": "Where did you study?"}`, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if turn.AIMessage != "Where did you study?" {
		t.Errorf("message = %q", turn.AIMessage)
	}
}

func TestParseTurnPayloadRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `next question please`},
		{"json array", `[1, 2, 3]`},
		{"missing message", `{"completed": false}`},
		{"blank message", `{"assistant_message": "   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTurnPayload(tt.raw, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !resumindErrors.CodeIs(err, resumindErrors.ErrCodeInvalidAIResponse) {
				t.Errorf("error code = %v, want invalid AI response", err)
			}
		})
	}
}

func TestParseTurnPayloadCompletedCoercion(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"bool true", `{"assistant_message": "done", "completed": true}`, true},
		{"string true", `{"assistant_message": "done", "completed": "true"}`, true},
		{"string yes", `{"assistant_message": "done", "completed": "Yes"}`, true},
		{"number one", `{"assistant_message": "done", "completed": 1}`, true},
		{"bool false", `{"assistant_message": "q", "completed": false}`, false},
		{"string false", `{"assistant_message": "q", "completed": "false"}`, false},
		{"number zero", `{"assistant_message": "q", "completed": 0}`, false},
		{"absent", `{"assistant_message": "q"}`, false},
		{"garbage", `{"assistant_message": "q", "completed": ["maybe"]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := parseTurnPayload(tt.raw, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if turn.Completed != tt.want {
				t.Errorf("completed = %v, want %v", turn.Completed, tt.want)
			}
		})
	}
}

func TestParseTurnPayloadProgressRepair(t *testing.T) {
	t.Run("missing progress derives from transcript", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q"}`, 3)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 60 {
			t.Errorf("derived percentage = %d, want 60", pct)
		}
	})

	t.Run("derived percentage caps at 100", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q"}`, 9)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 100 {
			t.Errorf("derived percentage = %d, want 100", pct)
		}
	})

	t.Run("progress_state wrong type replaced", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q", "progress_state": "almost"}`, 1)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 20 {
			t.Errorf("percentage = %d, want 20", pct)
		}
	})

	t.Run("string percentage coerced", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q", "progress_state": {"percentage": "45"}}`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 45 {
			t.Errorf("percentage = %d, want 45", pct)
		}
	})

	t.Run("out of range clamped", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q", "progress_state": {"percentage": 180}}`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 100 {
			t.Errorf("percentage = %d, want 100", pct)
		}
	})

	t.Run("completion forces 100", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "done", "completed": true, "progress_state": {"percentage": 60}}`, 2)
		if err != nil {
			t.Fatal(err)
		}
		if pct := turn.Percentage(); pct != 100 {
			t.Errorf("percentage = %d, want 100", pct)
		}
	})
}

func TestParseTurnPayloadMetadata(t *testing.T) {
	t.Run("string becomes summary", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q", "metadata": " covered education "}`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if turn.Metadata["summary"] != "covered education" {
			t.Errorf("metadata = %v", turn.Metadata)
		}
	})

	t.Run("unusable type dropped", func(t *testing.T) {
		turn, err := parseTurnPayload(`{"assistant_message": "q", "metadata": [1, 2]}`, 0)
		if err != nil {
			t.Fatal(err)
		}
		if turn.Metadata != nil {
			t.Errorf("metadata = %v, want nil", turn.Metadata)
		}
	})
}

func TestParseTurnPayloadResumeOnlyOnCompletion(t *testing.T) {
	turn, err := parseTurnPayload(`{"assistant_message": "q", "resume_markdown": "# Premature"}`, 1)
	if err != nil {
		t.Fatal(err)
	}
	if turn.ResumeMarkdown != "" {
		t.Error("resume attached to an unfinished turn")
	}

	turn, err = parseTurnPayload(`{"assistant_message": "done", "completed": true, "resume_markdown": "# Final"}`, 5)
	if err != nil {
		t.Fatal(err)
	}
	if turn.ResumeMarkdown != "# Final" {
		t.Errorf("resume = %q, want # Final", turn.ResumeMarkdown)
	}
}

type fakeTimeoutError struct{}

func (fakeTimeoutError) Error() string   { return "deadline exceeded" }
func (fakeTimeoutError) Timeout() bool   { return true }
func (fakeTimeoutError) Temporary() bool { return true }

func TestClassifyFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "none"},
		{"timeout", fakeTimeoutError{}, "timeout"},
		{"wrapped timeout", fmt.Errorf("call failed: %w", fakeTimeoutError{}), "timeout"},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, "rate_limited"},
		{"auth", &googleapi.Error{Code: http.StatusForbidden}, "auth"},
		{"server error", &googleapi.Error{Code: http.StatusBadGateway}, "api_unavailable"},
		{"other api error", &googleapi.Error{Code: http.StatusBadRequest}, "api_error"},
		{"bad payload", resumindErrors.NewAIError(resumindErrors.ErrCodeInvalidAIResponse, "bad", nil), "bad_payload"},
		{"plain error", errors.New("boom"), "other"},
		{"context cancel", context.Canceled, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyFailure(tt.err); got != tt.want {
				t.Errorf("classifyFailure() = %q, want %q", got, tt.want)
			}
		})
	}
}
