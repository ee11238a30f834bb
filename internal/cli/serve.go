package cli

import (
	"fmt"

	"resumind/internal/config"
	"resumind/internal/interview"
	"resumind/internal/server"
	"resumind/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP interview service",
	Long: `Start an HTTP server that hosts interview sessions over a REST API.

Available endpoints:
- POST /interview/sessions: Start a new interview session
- GET /interview/sessions: List stored sessions
- GET /interview/sessions/{id}: Fetch a session and its transcript
- DELETE /interview/sessions/{id}: Delete a session
- GET /interview/sessions/{id}/messages: Fetch the session transcript
- POST /interview/sessions/{id}/messages: Answer the current question
- POST /interview/sessions/{id}/advance: Manually advance session progress
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("store", "", "SQLite database path (overrides config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")

	// Bind flags to viper config keys
	bindFlag := func(key, flagName string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}

	bindFlag("server.port", "port")
	bindFlag("server.host", "host")
	bindFlag("store.path", "store")
	bindFlag("server.tls.mode", "tls-mode")
	bindFlag("server.tls.certfile", "cert-file")
	bindFlag("server.tls.keyfile", "key-file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	// Validate TLS configuration after applying overrides
	tempConfig := &config.Config{Server: cfg.Server}
	if err := tempConfig.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	sessionStore, err := store.NewSQLite(cfg.Store.Path, logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}

	bank, err := loadConfiguredBank(cfg)
	if err != nil {
		return err
	}

	orchestrator, err := interview.NewOrchestrator(&cfg.AI, bank, logger)
	if err != nil {
		return fmt.Errorf("failed to create interview engine: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxRequestSize,
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, orchestrator, sessionStore, logger).Start()
}

// loadConfiguredBank builds the fallback question bank from configuration.
// An unset file means the built-in defaults.
func loadConfiguredBank(cfg *config.Config) (*interview.QuestionBank, error) {
	if cfg.AI.QuestionBank.File == "" {
		return nil, nil
	}
	questions, err := config.LoadQuestionBank(cfg.AI.QuestionBank.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load question bank: %w", err)
	}
	return interview.NewQuestionBank(questions), nil
}
