package interview

import (
	"strings"

	"resumind/internal/types"
)

// Keyword sets for routing interview answers into resume sections. Matching
// is case-insensitive substring search over the whole answer.
var (
	goalKeywords = []string{
		"looking for", "next role", "goal", "want to", "would like",
		"ideal", "aiming", "aspire", "career",
	}
	skillKeywords = []string{
		"skill", "tool", "technolog", "proficien", "experienced with",
		"work with", "stack", "language",
	}
	achievementKeywords = []string{
		"achiev", "proud", "award", "led", "launched", "delivered",
		"improved", "increased", "reduced", "built", "shipped",
	}
	educationKeywords = []string{
		"degree", "university", "college", "studied", "graduat",
		"certif", "course", "bootcamp", "diploma", "education",
	}
	// Matched against whole lowercase tokens, not substrings, so "go" does
	// not fire on "good".
	topicVocabulary = []string{
		"python", "go", "golang", "java", "javascript", "typescript",
		"sql", "data", "design", "sales", "marketing", "management",
		"cloud", "aws", "docker", "kubernetes", "testing", "security",
		"analytics", "react", "linux", "devops", "finance", "support",
	}
)

const (
	placeholderName      = "Candidate"
	placeholderObjective = "Seeking a role that matches my experience and strengths."
	placeholderSkills    = "- See interview notes"
	placeholderStory     = "Details to be filled in."
)

// SynthesizeResume builds a resume markdown document from the user's
// interview answers. Purely lexical: each answer is routed to the section
// whose keywords it matches, and every answer lands somewhere so no input
// is silently dropped. Output is deterministic for a given transcript.
func SynthesizeResume(history []types.Message) string {
	answers := userAnswers(history)

	name := extractName(answers)
	var objective, education string
	var achievements, notes []string
	seen := map[string]bool{}
	var skillOrder []string
	addSkill := func(s string) {
		key := strings.ToLower(s)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		skillOrder = append(skillOrder, titleCase(s))
	}

	for _, a := range answers {
		lower := strings.ToLower(a)

		// Skill sentences are comma (or semicolon) lists; split them into
		// individual entries, first occurrence wins across answers.
		if containsAny(lower, skillKeywords) {
			for _, chunk := range strings.Split(strings.ReplaceAll(a, ";", ","), ",") {
				addSkill(strings.TrimSpace(chunk))
			}
		}
		tokens := tokenSet(lower)
		for _, term := range topicVocabulary {
			if tokens[term] {
				addSkill(term)
			}
		}

		switch {
		case objective == "" && containsAny(lower, goalKeywords):
			objective = a
		case containsAny(lower, achievementKeywords):
			achievements = append(achievements, a)
		case education == "" && containsAny(lower, educationKeywords):
			education = a
		case containsAny(lower, skillKeywords):
			// Already split into skill entries above.
		default:
			notes = append(notes, a)
		}
	}

	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(name)
	b.WriteString("\n\n## Objective\n\n")
	if objective != "" {
		b.WriteString(objective)
	} else {
		b.WriteString(placeholderObjective)
	}

	b.WriteString("\n\n## Skills\n\n")
	if len(skillOrder) > 0 {
		for _, s := range skillOrder {
			b.WriteString("- ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	} else {
		b.WriteString(placeholderSkills)
		b.WriteString("\n")
	}

	b.WriteString("\n## Experience & Achievements\n\n")
	if len(achievements) > 0 {
		for _, a := range achievements {
			b.WriteString("- ")
			b.WriteString(a)
			b.WriteString("\n")
		}
	} else {
		b.WriteString(placeholderStory)
		b.WriteString("\n")
	}

	b.WriteString("\n## Education\n\n")
	if education != "" {
		b.WriteString(education)
	} else {
		b.WriteString(placeholderStory)
	}
	b.WriteString("\n")

	if len(notes) > 0 {
		b.WriteString("\n## Interview Notes\n\n")
		for _, n := range notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}

	return b.String()
}

// userAnswers returns trimmed, non-empty user messages in order.
func userAnswers(history []types.Message) []string {
	var out []string
	for _, m := range history {
		if m.Role != types.RoleUser {
			continue
		}
		if s := strings.TrimSpace(m.Content); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractName scans answers for a "my name is ..." self-introduction and
// returns the following words, up to the end of the clause.
func extractName(answers []string) string {
	const marker = "my name is "
	for _, a := range answers {
		lower := strings.ToLower(a)
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		rest := a[idx+len(marker):]
		if cut := strings.IndexAny(rest, ".,;!?\n"); cut >= 0 {
			rest = rest[:cut]
		}
		words := strings.Fields(rest)
		if len(words) > 3 {
			words = words[:3]
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}
	return placeholderName
}

// tokenSet splits a lowercase string into alphanumeric words.
func tokenSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		out[w] = true
	}
	return out
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
