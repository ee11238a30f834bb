package interview

import (
	"fmt"
	"strings"

	"resumind/internal/types"
)

// transcriptWindow caps how many transcript lines are sent to the model.
// Older context matters less than the recent exchange, and the cap keeps
// token usage flat for long sessions.
const transcriptWindow = 20

// DefaultSystemPrompt is the system-level instruction for the interview model.
const DefaultSystemPrompt = `You are a friendly professional interviewer helping a person build their resume through conversation. Your core principles are:

- Ask ONE question at a time, building on what the person already told you
- Cover work history, achievements, skills, education and career goals
- NEVER invent facts about the person; the resume must contain only what they said
- Keep questions short, warm and specific
- When you have enough material for a complete resume, finish the interview

You MUST reply with a single JSON object and nothing else, with these fields:
- "assistant_message": your next message to the person (required)
- "completed": true only when the interview is finished
- "progress_state": an object with a "percentage" number from 0 to 100
- "resume_markdown": the full resume in Markdown, ONLY when completed is true
- "metadata": optional object with notes about the conversation`

// DefaultIntroPrompt is the user prompt for the very first turn.
const DefaultIntroPrompt = `Start a resume-building interview. Greet the person briefly, explain that you will ask a few questions about their background, and ask your first question. Set "completed" to false and "progress_state" to {"percentage": 0}.`

// buildTurnPrompt renders the conversation so far and asks the model for the
// next turn. Only the trailing transcriptWindow lines are included.
func buildTurnPrompt(history []types.Message) string {
	lines := make([]string, 0, len(history))
	for _, m := range history {
		speaker := "Interviewer"
		if m.Role == types.RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, strings.ReplaceAll(m.Content, "\n", " ")))
	}
	if len(lines) > transcriptWindow {
		lines = lines[len(lines)-transcriptWindow:]
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\nContinue the interview. Reply with the JSON object described in your instructions.")
	return b.String()
}

// buildIntroPrompt returns the first-turn prompt, optionally prefaced with
// deployment-specific context from configuration.
func buildIntroPrompt(welcomeContext string) string {
	if welcomeContext = strings.TrimSpace(welcomeContext); welcomeContext != "" {
		return welcomeContext + "\n\n" + DefaultIntroPrompt
	}
	return DefaultIntroPrompt
}
