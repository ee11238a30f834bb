package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"resumind/internal/config"
	"resumind/internal/interview"
	"resumind/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// Start starts the HTTP server with all configured components
func (s *Server) Start() error {
	om, err := s.initializeObservability()
	if err != nil {
		return err
	}
	defer s.shutdownObservability(om)

	s.wireFallbackMetrics(om)
	s.startBankWatcher()

	httpServer, err := s.setupHTTPServer(om)
	if err != nil {
		return err
	}

	s.displayServerInfo()

	return s.startWithGracefulShutdown(httpServer)
}

// initializeObservability sets up observability components
func (s *Server) initializeObservability() (*observability.ObservabilityManager, error) {
	obsConfig := observability.ObservabilityConfig{
		ServiceName:    s.AppConfig.Observability.ServiceName,
		ServiceVersion: s.Version,
		Enabled:        s.AppConfig.Observability.Enabled,
		ConsoleOutput:  s.AppConfig.Observability.ConsoleOutput,
		PrettyPrint:    s.AppConfig.Observability.Console.PrettyPrint,
		SampleRate:     s.AppConfig.Observability.SampleRate,
		Prometheus: observability.PrometheusConfig{
			Enabled:  s.AppConfig.Observability.Prometheus.Enabled,
			Endpoint: s.AppConfig.Observability.Prometheus.Endpoint,
			Port:     s.AppConfig.Observability.Prometheus.Port,
		},
	}

	om, err := observability.NewObservabilityManager(obsConfig, s.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	return om, nil
}

// shutdownObservability handles observability cleanup
func (s *Server) shutdownObservability(om *observability.ObservabilityManager) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := om.Shutdown(ctx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown observability")
	}
}

// wireFallbackMetrics records a metric every time the orchestrator falls
// back to the heuristic interviewer.
func (s *Server) wireFallbackMetrics(om *observability.ObservabilityManager) {
	metrics := om.GetMetrics()
	s.Orchestrator.SetFallbackHook(func(operation, reason string) {
		metrics.RecordBusinessMetric(context.Background(), "heuristic_fallback", true, om,
			attribute.String("operation", operation),
			attribute.String("reason", reason))
	})
}

// startBankWatcher starts the question bank file watcher when configured.
func (s *Server) startBankWatcher() {
	bankCfg := s.AppConfig.AI.QuestionBank
	if bankCfg.File == "" || !bankCfg.Watch {
		return
	}

	s.bankWatcher = NewBankWatcher(bankCfg.File, bankCfg.DebounceDelay, func() {
		questions, err := config.LoadQuestionBank(bankCfg.File)
		if err != nil {
			s.Logger.LogError(err, "Failed to reload question bank, keeping current bank",
				"file", bankCfg.File)
			return
		}
		s.Orchestrator.SetQuestionBank(interview.NewQuestionBank(questions))
		s.Logger.Info("Question bank reloaded", "file", bankCfg.File, "questions", len(questions))
	}, s.Logger)

	if err := s.bankWatcher.Start(); err != nil {
		s.Logger.LogError(err, "Failed to start question bank watcher")
		s.bankWatcher = nil
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer(om *observability.ObservabilityManager) (*http.Server, error) {
	mux := s.setupRoutes(om)
	handler := om.HTTPMiddleware()(mux)
	addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.ReadTimeout,
		WriteTimeout: s.WriteTimeout,
		IdleTimeout:  s.IdleTimeout,
	}

	if s.TLSConfig.Mode == "server" {
		tlsConfig, err := s.buildTLSConfig()
		if err != nil {
			return nil, err
		}
		httpServer.TLSConfig = tlsConfig
	}

	return httpServer, nil
}

// buildTLSConfig translates the TLS settings into a tls.Config.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	switch s.TLSConfig.MinVersion {
	case "", "1.2":
		tlsConfig.MinVersion = tls.VersionTLS12
	case "1.3":
		tlsConfig.MinVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unsupported TLS minimum version: %s", s.TLSConfig.MinVersion)
	}

	return tlsConfig, nil
}

// startWithGracefulShutdown starts the HTTP server and handles graceful shutdown
func (s *Server) startWithGracefulShutdown(server *http.Server) error {
	// Channel to receive OS signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", server.Addr,
			"tls_enabled", server.TLSConfig != nil)

		var err error
		if server.TLSConfig != nil {
			err = server.ListenAndServeTLS(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	// Wait for either a signal or server error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		s.Logger.Info("Received shutdown signal, starting graceful shutdown",
			"signal", sig.String())

		return s.performGracefulShutdown(server)
	}
}

// performGracefulShutdown handles the graceful shutdown process
func (s *Server) performGracefulShutdown(server *http.Server) error {
	// Create a context with timeout for graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if s.bankWatcher != nil {
		if err := s.bankWatcher.Stop(); err != nil {
			s.Logger.LogError(err, "Failed to stop question bank watcher")
		}
	}

	// Clean up rate limiter if enabled
	s.cleanupRateLimiter()

	// Attempt graceful shutdown of HTTP server
	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	if err := s.Orchestrator.Close(); err != nil {
		s.Logger.LogError(err, "Failed to close interview orchestrator")
	}
	if err := s.Store.Close(); err != nil {
		s.Logger.LogError(err, "Failed to close session store")
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// cleanupRateLimiter cleans up the rate limiter resources
func (s *Server) cleanupRateLimiter() {
	if s.RateLimiter != nil {
		s.RateLimiter.Close()
		s.Logger.Info("Rate limiter cleaned up")
	}
}
