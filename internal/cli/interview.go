package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"resumind/internal/common"
	"resumind/internal/errors"
	"resumind/internal/interview"
	"resumind/internal/store"
	"resumind/internal/types"

	"github.com/spf13/cobra"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run an interview session in the terminal",
	Long: `Run a resume interview in the terminal. The interviewer asks one question
at a time; answer each on its own line. Type /done to finish early with the
answers given so far, or /quit to abandon the session without a resume.

With --script the answers are read from a file (one per line) instead of
stdin, which is useful for scripted or repeatable runs. The finished session
and its resume are printed or written per --output and --format.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if interviewConfig.OutputFormat == "" {
			interviewConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(interviewConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runInterview,
}

var (
	interviewConfig    common.CommandConfig
	interviewStorePath string
	interviewScript    string
)

func init() {
	interviewCmd.Flags().StringVarP(&interviewConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	interviewCmd.Flags().StringVar(&interviewConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	interviewCmd.Flags().StringVar(&interviewStorePath, "store", "", "SQLite database path (overrides config)")
	interviewCmd.Flags().StringVar(&interviewScript, "script", "", "Read answers from a file instead of stdin")

	// Add completion for format flag
	_ = interviewCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runInterview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	storePath := interviewStorePath
	if storePath == "" {
		storePath = cfg.Store.Path
	}
	sessionStore, err := store.NewSQLite(storePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := sessionStore.Close(); err != nil {
			logger.Warn("Failed to close session store", "error", err)
		}
	}()

	bank, err := loadConfiguredBank(cfg)
	if err != nil {
		return err
	}
	orchestrator, err := interview.NewOrchestrator(&cfg.AI, bank, logger)
	if err != nil {
		return fmt.Errorf("failed to create interview engine: %w", err)
	}
	defer func() {
		if err := orchestrator.Close(); err != nil {
			logger.Warn("Failed to close interview engine", "error", err)
		}
	}()

	answers, err := loadScriptAnswers(logger)
	if err != nil {
		return err
	}

	session, err := sessionStore.CreateSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	logger.Info("Interview session started",
		"session_id", session.ID,
		"model_enabled", orchestrator.ModelEnabled(),
		"scripted", answers != nil)

	intro := orchestrator.ProcessTurn(ctx, session.ID, nil, 0)
	if _, err := sessionStore.AppendMessage(ctx, session.ID, types.RoleAI, intro.Turn.AIMessage, turnMetadata(intro)); err != nil {
		return fmt.Errorf("failed to record intro: %w", err)
	}
	session, err = sessionStore.UpdateProgress(ctx, session.ID, intro.Turn.ProgressState)
	if err != nil {
		return fmt.Errorf("failed to record progress: %w", err)
	}

	interactive := answers == nil
	if interactive {
		fmt.Printf("%s\n\n> ", intro.Turn.AIMessage)
	}

	stdin := bufio.NewScanner(os.Stdin)
	finished := false
	for !finished {
		answer, ok := nextAnswer(stdin, &answers)
		if !ok {
			// Input ran out before the interview did; wrap up with what we have.
			break
		}
		switch answer {
		case "/quit":
			if _, err := sessionStore.AbandonSession(ctx, session.ID); err != nil {
				return fmt.Errorf("failed to abandon session: %w", err)
			}
			logger.Info("Interview session abandoned", "session_id", session.ID)
			return nil
		case "/done":
			finished = true
			continue
		}

		if _, err := sessionStore.AppendMessage(ctx, session.ID, types.RoleUser, answer, nil); err != nil {
			return fmt.Errorf("failed to record answer: %w", err)
		}
		history, err := sessionStore.Messages(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load transcript: %w", err)
		}

		result := orchestrator.ProcessTurn(ctx, session.ID, history, session.Percentage())
		if _, err := sessionStore.AppendMessage(ctx, session.ID, types.RoleAI, result.Turn.AIMessage, turnMetadata(result)); err != nil {
			return fmt.Errorf("failed to record reply: %w", err)
		}

		if result.Turn.Completed {
			session, err = sessionStore.CompleteSession(ctx, session.ID, result.Turn.ResumeMarkdown, result.Turn.ProgressState)
			if err != nil {
				return fmt.Errorf("failed to complete session: %w", err)
			}
			if interactive {
				fmt.Printf("%s\n\n", result.Turn.AIMessage)
			}
			finished = true
			continue
		}

		session, err = sessionStore.UpdateProgress(ctx, session.ID, result.Turn.ProgressState)
		if err != nil {
			return fmt.Errorf("failed to record progress: %w", err)
		}
		if interactive {
			fmt.Printf("%s\n[%d%% complete]\n\n> ", result.Turn.AIMessage, session.Percentage())
		}
	}

	// Early finish or exhausted script: synthesize from the transcript so far.
	if !session.Status.IsTerminal() {
		session, err = sessionStore.AdvanceProgress(ctx, session.ID, true)
		if err != nil {
			return fmt.Errorf("failed to advance progress: %w", err)
		}
		history, err := sessionStore.Messages(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("failed to load transcript: %w", err)
		}
		session, err = sessionStore.CompleteSession(ctx, session.ID, interview.SynthesizeResume(history), session.ProgressState)
		if err != nil {
			return fmt.Errorf("failed to complete session: %w", err)
		}
	}

	messages, err := sessionStore.Messages(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("failed to load transcript: %w", err)
	}
	logger.Info("Interview session completed",
		"session_id", session.ID,
		"messages", len(messages))

	export := types.SessionExport{Session: *session, Messages: messages}
	return common.NewOutputHandler(logger).HandleOutput(export, interviewConfig)
}

// loadScriptAnswers reads the --script file into a list of answers, or
// returns nil when running interactively.
func loadScriptAnswers(logger *errors.Logger) ([]string, error) {
	if interviewScript == "" {
		return nil, nil
	}
	contents, err := common.NewFileProcessor(logger).ValidateAndReadFiles(interviewScript)
	if err != nil {
		return nil, err
	}
	var answers []string
	for _, line := range strings.Split(contents[0], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			answers = append(answers, line)
		}
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("script file %s contains no answers", interviewScript)
	}
	return answers, nil
}

// nextAnswer pulls the next non-blank answer from the script, or from stdin
// when no script was given.
func nextAnswer(stdin *bufio.Scanner, script *[]string) (string, bool) {
	if *script != nil {
		if len(*script) == 0 {
			return "", false
		}
		answer := (*script)[0]
		*script = (*script)[1:]
		return answer, true
	}
	for stdin.Scan() {
		if line := strings.TrimSpace(stdin.Text()); line != "" {
			return line, true
		}
		fmt.Print("> ")
	}
	return "", false
}

// turnMetadata records where a turn came from on its transcript message.
func turnMetadata(result types.TurnResult) map[string]any {
	metadata := map[string]any{"source": string(result.Source)}
	if result.TokenUsage != nil {
		metadata["tokens"] = map[string]any{
			"input":  result.TokenUsage.InputTokens,
			"output": result.TokenUsage.OutputTokens,
			"total":  result.TokenUsage.TotalTokens,
		}
	}
	return metadata
}
