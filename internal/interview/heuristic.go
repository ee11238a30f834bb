package interview

import (
	"strings"
	"sync/atomic"

	"resumind/internal/errors"
	"resumind/internal/types"
)

// HeuristicInterviewer runs the scripted fallback interview. It never fails:
// given a session identifier and a transcript it always produces the next
// turn, with question order, opener choice and progress derived
// deterministically from the session identifier.
type HeuristicInterviewer struct {
	bank   atomic.Pointer[QuestionBank]
	logger *errors.Logger
}

// NewHeuristicInterviewer creates a heuristic interviewer over the given
// bank. A nil bank selects the built-in questions.
func NewHeuristicInterviewer(bank *QuestionBank, logger *errors.Logger) *HeuristicInterviewer {
	h := &HeuristicInterviewer{logger: logger}
	if bank == nil {
		bank = DefaultQuestionBank()
	}
	h.bank.Store(bank)
	return h
}

// SetBank swaps the question bank. In-flight sessions keep a consistent
// order only while the bank size stays the same; the watcher logs a warning
// when it changes.
func (h *HeuristicInterviewer) SetBank(bank *QuestionBank) {
	if bank == nil {
		return
	}
	old := h.bank.Swap(bank)
	if old.Len() != bank.Len() {
		h.logger.Warn("Question bank size changed",
			"old_size", old.Len(),
			"new_size", bank.Len())
	}
}

// Bank returns the current question bank.
func (h *HeuristicInterviewer) Bank() *QuestionBank {
	return h.bank.Load()
}

// GenerateIntro produces the first turn of a fresh session: a greeting plus
// the session's first question, at zero progress.
func (h *HeuristicInterviewer) GenerateIntro(sessionID string) types.Turn {
	bank := h.bank.Load()
	opener := introOpeners[pickIndex(sessionID, len(introOpeners))]
	order := questionOrder(sessionID, bank.Len())
	progress := types.ProgressState{}
	progress.SetPercentage(0)

	return types.Turn{
		AIMessage:     opener + "\n\n" + bank.Question(order[0]),
		ProgressState: progress,
		Completed:     false,
	}
}

// ProcessTurn produces the next turn for a session in progress. The stage is
// the count of AI messages already sent: each one carried a question, so the
// next question index is the stage itself, and the interview completes once
// every question has been asked.
func (h *HeuristicInterviewer) ProcessTurn(sessionID string, history []types.Message) types.Turn {
	bank := h.bank.Load()
	stage, answered := countRoles(history)

	if stage >= bank.Len() {
		progress := types.ProgressState{}
		progress.SetPercentage(100)
		return types.Turn{
			AIMessage:      closingMessage,
			ProgressState:  progress,
			Completed:      true,
			ResumeMarkdown: SynthesizeResume(history),
			Metadata:       turnAnalysis(history),
		}
	}

	order := questionOrder(sessionID, bank.Len())
	progress := types.ProgressState{}
	progress.SetPercentage(heuristicPercentage(answered, bank.Len()))

	return types.Turn{
		AIMessage:     bank.Question(order[stage]),
		ProgressState: progress,
		Completed:     false,
		Metadata:      turnAnalysis(history),
	}
}

// turnAnalysis summarizes the transcript for clients: answer count plus a
// best-effort topic per answer. Purely advisory, nothing reads it back.
func turnAnalysis(history []types.Message) map[string]any {
	answers := userAnswers(history)
	if len(answers) == 0 {
		return nil
	}
	topics := make([]string, 0, len(answers))
	for _, a := range answers {
		if topic := answerTopic(a); topic != "" {
			topics = append(topics, topic)
		}
	}
	meta := map[string]any{"answersCollected": len(answers)}
	if len(topics) > 0 {
		meta["topics"] = topics
	}
	return meta
}

// answerTopic extracts a single keyword for an answer: the first vocabulary
// term present as a whole token, else the first word longer than four
// characters, else empty.
func answerTopic(answer string) string {
	lower := strings.ToLower(answer)
	tokens := tokenSet(lower)
	for _, term := range topicVocabulary {
		if tokens[term] {
			return term
		}
	}
	for _, w := range strings.Fields(lower) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if len(w) > 4 {
			return w
		}
	}
	return ""
}

// countRoles returns the number of AI and user messages in the transcript.
func countRoles(history []types.Message) (ai, user int) {
	for _, m := range history {
		if m.Role == types.RoleUser {
			user++
		} else {
			ai++
		}
	}
	return ai, user
}

// heuristicPercentage maps answered-question count to a progress percentage:
// proportional to the bank size, capped at 95 until completion, with an
// early floor so the bar visibly moves from the first exchange.
func heuristicPercentage(answered, total int) int {
	if total <= 0 {
		return 0
	}
	pct := (95*answered + total - 1) / total
	if pct > 95 {
		pct = 95
	}
	if answered <= 1 && pct < 10 {
		pct = 10
	}
	return pct
}
