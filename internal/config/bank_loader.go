package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadQuestionBank reads a question bank file: one question per line, blank
// lines and '#' comments ignored. Returns an error for a missing or empty
// file so a misconfigured path is caught at startup rather than silently
// falling back.
func LoadQuestionBank(path string) ([]string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve question bank path '%s': %w", path, err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open question bank file '%s': %w", absPath, err)
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		questions = append(questions, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read question bank file '%s': %w", absPath, err)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("question bank file '%s' contains no questions", absPath)
	}

	return questions, nil
}
