package interview

import "strings"

// defaultQuestions is the built-in interview question bank. A custom bank
// can be supplied at construction or hot-swapped at runtime; the heuristic
// asks every question exactly once, in a per-session order.
var defaultQuestions = []string{
	"Tell me about your most recent role. What were you responsible for day to day?",
	"What professional achievement are you most proud of, and what was your part in it?",
	"Which skills and tools do you rely on most in your work?",
	"What is your educational background, including any certifications or courses that matter for your field?",
	"What kind of role are you looking for next, and what would make it a great fit?",
}

// introOpeners are the greeting variants prepended to the first question.
var introOpeners = []string{
	"Hi! I'm here to help you put together a resume. I'll ask a few questions about your experience, one at a time.",
	"Welcome! Let's build your resume together. I'll walk you through a short set of questions about your background.",
	"Hello! To draft your resume I need to learn a bit about you first. Answer in as much detail as you like.",
}

// closingMessage is sent with the final, completed turn.
const closingMessage = "That's everything I need. Thank you for the detailed answers! I've put together a draft resume from our conversation. Look it over and feel free to edit any section."

// QuestionBank is an immutable set of interview questions.
type QuestionBank struct {
	questions []string
}

// NewQuestionBank builds a bank from the given questions. Blank lines are
// dropped; an empty result falls back to the built-in bank.
func NewQuestionBank(questions []string) *QuestionBank {
	cleaned := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			cleaned = append(cleaned, q)
		}
	}
	if len(cleaned) == 0 {
		cleaned = defaultQuestions
	}
	return &QuestionBank{questions: cleaned}
}

// DefaultQuestionBank returns the built-in bank.
func DefaultQuestionBank() *QuestionBank {
	return &QuestionBank{questions: defaultQuestions}
}

// Len returns the number of questions in the bank.
func (b *QuestionBank) Len() int {
	return len(b.questions)
}

// Question returns the question at the given bank index.
func (b *QuestionBank) Question(i int) string {
	return b.questions[i]
}

// Questions returns a copy of the bank's questions.
func (b *QuestionBank) Questions() []string {
	out := make([]string, len(b.questions))
	copy(out, b.questions)
	return out
}
