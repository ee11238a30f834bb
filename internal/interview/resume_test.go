package interview

import (
	"strings"
	"testing"

	"resumind/internal/types"
)

func transcript(answers ...string) []types.Message {
	history := []types.Message{aiMsg("question")}
	for _, a := range answers {
		history = append(history, userMsg(a), aiMsg("next question"))
	}
	return history
}

func TestSynthesizeResumeName(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{"simple", "Hi, my name is Ada Lovelace.", "# Ada Lovelace"},
		{"case insensitive", "MY NAME IS Grace Hopper, nice to meet you", "# Grace Hopper"},
		{"clause cut at punctuation", "my name is Alan Turing; I work on computers", "# Alan Turing"},
		{"capped at three words", "my name is One Two Three Four Five", "# One Two Three"},
		{"absent", "I never introduce myself", "# Candidate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := SynthesizeResume(transcript(tt.answer))
			if !strings.HasPrefix(md, tt.want+"\n") {
				t.Errorf("resume header = %q, want prefix %q", firstLine(md), tt.want)
			}
		})
	}
}

func TestSynthesizeResumeSectionRouting(t *testing.T) {
	md := SynthesizeResume(transcript(
		"My name is Ada Lovelace.",
		"I'm looking for a senior engineering role with real impact.",
		"I led a migration that reduced costs by 40 percent.",
		"I have a degree in mathematics from Cambridge.",
		"I mostly work with Python, SQL and cloud tooling like Docker.",
	))

	checks := []struct {
		section string
		content string
	}{
		{"## Objective", "looking for a senior engineering role"},
		{"## Experience & Achievements", "led a migration"},
		{"## Education", "degree in mathematics"},
		{"## Skills", "- Python"},
		{"## Skills", "- Sql"},
		{"## Skills", "- Docker"},
	}

	for _, c := range checks {
		if !strings.Contains(md, c.section) {
			t.Errorf("resume missing section %q", c.section)
		}
		if !strings.Contains(md, c.content) {
			t.Errorf("resume missing content %q in:\n%s", c.content, md)
		}
	}
}

func TestSynthesizeResumeSkillListSplitting(t *testing.T) {
	md := SynthesizeResume(transcript(
		"My skills are distributed systems, mentoring, Rust",
	))

	for _, want := range []string{
		"- My skills are distributed systems\n",
		"- Mentoring\n",
		"- Rust\n",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("resume missing skill entry %q in:\n%s", want, md)
		}
	}
}

func TestSynthesizeResumeSkillDeduplication(t *testing.T) {
	md := SynthesizeResume(transcript(
		"I have many skills, Rust, SQL",
		"Beyond my main skills, rust, Docker",
	))

	if got := strings.Count(md, "ust\n"); got != 1 {
		t.Errorf("Rust listed %d times, want 1:\n%s", got, md)
	}
	// First-seen casing wins over the later lowercase duplicate and over
	// the vocabulary harvest of the same token.
	if !strings.Contains(md, "- Rust\n") {
		t.Errorf("missing deduplicated entry:\n%s", md)
	}
	if !strings.Contains(md, "- SQL\n") {
		t.Errorf("comma entry must win over vocabulary casing:\n%s", md)
	}
	if i, j := strings.Index(md, "- Rust\n"), strings.Index(md, "- Docker\n"); i < 0 || j < 0 || i > j {
		t.Fatalf("skills not in first-seen order:\n%s", md)
	}
}

func TestSynthesizeResumePlaceholders(t *testing.T) {
	md := SynthesizeResume(nil)

	for _, want := range []string{
		"# Candidate",
		placeholderObjective,
		placeholderSkills,
		placeholderStory,
	} {
		if !strings.Contains(md, want) {
			t.Errorf("empty-transcript resume missing placeholder %q", want)
		}
	}
}

func TestSynthesizeResumeTopicTokenBoundaries(t *testing.T) {
	// "go" must match as a word, not inside "good" or "goal".
	md := SynthesizeResume(transcript("The results were good, ahead of our goal."))
	if strings.Contains(md, "- Go\n") {
		t.Errorf("false positive skill match:\n%s", md)
	}

	md = SynthesizeResume(transcript("I write Go services all day."))
	if !strings.Contains(md, "- Go\n") {
		t.Errorf("missed whole-word skill match:\n%s", md)
	}
}

func TestSynthesizeResumeNoAnswerDropped(t *testing.T) {
	answers := []string{
		"My name is Ada.",
		"Something that matches no keyword lists at all.",
	}
	md := SynthesizeResume(transcript(answers...))
	if !strings.Contains(md, "## Interview Notes") {
		t.Fatalf("unrouted answers must land in interview notes:\n%s", md)
	}
	if !strings.Contains(md, answers[1]) {
		t.Errorf("answer dropped from resume: %q", answers[1])
	}
}

func TestSynthesizeResumeDeterministic(t *testing.T) {
	history := transcript("My name is Ada.", "I work with Python.")
	if SynthesizeResume(history) != SynthesizeResume(history) {
		t.Error("same transcript produced different resumes")
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
