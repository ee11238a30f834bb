package formatters

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"resumind/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	// Register default formatters
	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "SessionExport", &SessionExportTextFormatter{})
	registry.RegisterFormatter("markdown", "SessionExport", &SessionExportMarkdownFormatter{})
	registry.RegisterFormatter("text", "SessionList", &SessionListTextFormatter{})
	registry.RegisterFormatter("markdown", "SessionList", &SessionListMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.SessionExport:
		return "SessionExport"
	case types.SessionList:
		return "SessionList"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// roleLabel maps a message role to its transcript label.
func roleLabel(role types.MessageRole) string {
	if role == types.RoleUser {
		return "you"
	}
	return "interviewer"
}

func formatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// SessionExportTextFormatter handles text formatting for exported sessions
type SessionExportTextFormatter struct{}

func (sef *SessionExportTextFormatter) Format(data any) (string, error) {
	export, ok := data.(types.SessionExport)
	if !ok {
		return "", fmt.Errorf("expected SessionExport, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== INTERVIEW SESSION ===\n")
	output.WriteString(fmt.Sprintf("ID: %s\n", export.Session.ID))
	output.WriteString(fmt.Sprintf("Status: %s\n", export.Session.Status))
	output.WriteString(fmt.Sprintf("Progress: %d%%\n", export.Session.Percentage()))
	output.WriteString(fmt.Sprintf("Messages: %d\n", export.Session.MessageCount))
	output.WriteString(fmt.Sprintf("Created: %s\n", formatTimestamp(export.Session.CreatedAt)))
	if export.Session.CompletedAt != nil {
		output.WriteString(fmt.Sprintf("Completed: %s\n", formatTimestamp(*export.Session.CompletedAt)))
	}
	output.WriteString("\n")

	if len(export.Messages) > 0 {
		output.WriteString("=== TRANSCRIPT ===\n\n")
		for i, message := range export.Messages {
			output.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, roleLabel(message.Role), message.Content))
		}
		output.WriteString("\n")
	}

	if export.Session.ResumeMarkdown != "" {
		output.WriteString("=== RESUME ===\n\n")
		output.WriteString(export.Session.ResumeMarkdown)
		if !strings.HasSuffix(export.Session.ResumeMarkdown, "\n") {
			output.WriteString("\n")
		}
	} else {
		output.WriteString("No resume yet: the interview has not finished.\n")
	}

	return output.String(), nil
}

func (sef *SessionExportTextFormatter) SupportedType() string {
	return "SessionExport"
}

// SessionExportMarkdownFormatter handles markdown formatting for exported
// sessions. The resume is emitted as-is, so a completed session renders as
// the resume itself followed by the transcript.
type SessionExportMarkdownFormatter struct{}

func (sem *SessionExportMarkdownFormatter) Format(data any) (string, error) {
	export, ok := data.(types.SessionExport)
	if !ok {
		return "", fmt.Errorf("expected SessionExport, got %T", data)
	}

	var output strings.Builder

	if export.Session.ResumeMarkdown != "" {
		output.WriteString(export.Session.ResumeMarkdown)
		if !strings.HasSuffix(export.Session.ResumeMarkdown, "\n") {
			output.WriteString("\n")
		}
		output.WriteString("\n")
	} else {
		output.WriteString("# Interview Session\n\nNo resume yet: the interview has not finished.\n\n")
	}

	output.WriteString("## Interview Transcript\n\n")
	output.WriteString(fmt.Sprintf("**Session:** %s  \n", export.Session.ID))
	output.WriteString(fmt.Sprintf("**Status:** %s  \n", export.Session.Status))
	output.WriteString(fmt.Sprintf("**Progress:** %d%%\n\n", export.Session.Percentage()))

	for _, message := range export.Messages {
		output.WriteString(fmt.Sprintf("**%s:** %s\n\n", roleLabel(message.Role), message.Content))
	}

	return output.String(), nil
}

func (sem *SessionExportMarkdownFormatter) SupportedType() string {
	return "SessionExport"
}

// SessionListTextFormatter handles text formatting for session listings
type SessionListTextFormatter struct{}

func (slf *SessionListTextFormatter) Format(data any) (string, error) {
	list, ok := data.(types.SessionList)
	if !ok {
		return "", fmt.Errorf("expected SessionList, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== INTERVIEW SESSIONS ===\n")
	output.WriteString(fmt.Sprintf("Showing %d of %d\n\n", len(list.Sessions), list.Total))

	if len(list.Sessions) == 0 {
		output.WriteString("No sessions found.\n")
		return output.String(), nil
	}

	for _, session := range list.Sessions {
		output.WriteString(fmt.Sprintf("%s  %-11s  %3d%%  %2d messages  %s\n",
			session.ID,
			session.Status,
			session.Percentage(),
			session.MessageCount,
			formatTimestamp(session.UpdatedAt)))
	}

	return output.String(), nil
}

func (slf *SessionListTextFormatter) SupportedType() string {
	return "SessionList"
}

// SessionListMarkdownFormatter handles markdown formatting for session listings
type SessionListMarkdownFormatter struct{}

func (slm *SessionListMarkdownFormatter) Format(data any) (string, error) {
	list, ok := data.(types.SessionList)
	if !ok {
		return "", fmt.Errorf("expected SessionList, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# Interview Sessions\n\n")
	output.WriteString(fmt.Sprintf("Showing %d of %d\n\n", len(list.Sessions), list.Total))

	if len(list.Sessions) == 0 {
		output.WriteString("No sessions found.\n")
		return output.String(), nil
	}

	output.WriteString("| Session | Status | Progress | Messages | Updated |\n")
	output.WriteString("|---------|--------|----------|----------|--------|\n")
	for _, session := range list.Sessions {
		output.WriteString(fmt.Sprintf("| %s | %s | %d%% | %d | %s |\n",
			session.ID,
			session.Status,
			session.Percentage(),
			session.MessageCount,
			formatTimestamp(session.UpdatedAt)))
	}

	return output.String(), nil
}

func (slm *SessionListMarkdownFormatter) SupportedType() string {
	return "SessionList"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
