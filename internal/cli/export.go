package cli

import (
	"context"

	"resumind/internal/common"
	"resumind/internal/store"
	"resumind/internal/types"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Export a stored session and its resume",
	Long: `Export an interview session from the session store: the session record,
the full transcript, and the resume if the interview finished. The markdown
format prints the resume itself, which makes this the way to get a finished
resume back out of the store.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if exportConfig.OutputFormat == "" {
			exportConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(exportConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runExport,
}

var exportConfig common.CommandConfig

func init() {
	exportCmd.Flags().StringVarP(&exportConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().StringVar(&exportConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")

	_ = exportCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	sessionID := args[0]

	exportSession := func(ctx context.Context, st store.Store) (types.SessionExport, error) {
		session, err := st.GetSession(ctx, sessionID)
		if err != nil {
			return types.SessionExport{}, err
		}
		messages, err := st.Messages(ctx, sessionID)
		if err != nil {
			return types.SessionExport{}, err
		}
		logger.Info("Exporting session",
			"session_id", sessionID,
			"status", session.Status,
			"messages", len(messages))
		return types.SessionExport{Session: *session, Messages: messages}, nil
	}

	return common.RunStoreCommand(cmd.Context(), logger, exportConfig, cfg.Store.Path, exportSession)
}
