package cli

import (
	"context"
	"fmt"

	"resumind/internal/common"
	"resumind/internal/store"
	"resumind/internal/types"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored interview sessions",
	Long: `List interview sessions from the session store, newest first.
Filter by status with --status (in_progress, completed, abandoned) and page
through results with --limit and --offset.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		if sessionsConfig.OutputFormat == "" {
			sessionsConfig.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(sessionsConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runSessions,
}

var (
	sessionsConfig common.CommandConfig
	sessionsStatus string
	sessionsLimit  int
	sessionsOffset int
)

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	sessionsCmd.Flags().StringVar(&sessionsConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	sessionsCmd.Flags().StringVar(&sessionsStatus, "status", "", "Filter by status: in_progress, completed, abandoned")
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 0, "Maximum sessions to list (0 = all)")
	sessionsCmd.Flags().IntVar(&sessionsOffset, "offset", 0, "Number of sessions to skip")
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	filter := store.ListFilter{Limit: sessionsLimit, Offset: sessionsOffset}
	if sessionsStatus != "" {
		status, ok := types.ParseSessionStatus(sessionsStatus)
		if !ok {
			return fmt.Errorf("invalid status '%s' (must be in_progress, completed, or abandoned)", sessionsStatus)
		}
		filter.Status = &status
	}

	listSessions := func(ctx context.Context, st store.Store) (types.SessionList, error) {
		sessions, total, err := st.ListSessions(ctx, filter)
		if err != nil {
			return types.SessionList{}, err
		}
		logger.Debug("Listed sessions", "returned", len(sessions), "total", total)
		return types.SessionList{Sessions: sessions, Total: total}, nil
	}

	return common.RunStoreCommand(cmd.Context(), logger, sessionsConfig, cfg.Store.Path, listSessions)
}
