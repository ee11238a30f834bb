package server

import (
	"time"

	"resumind/internal/config"
	resumindErrors "resumind/internal/errors"
	"resumind/internal/interview"
	"resumind/internal/store"
	"resumind/internal/types"
)

// MessageRequest is the body for posting a user message to a session.
type MessageRequest struct {
	Content string `json:"content"`
}

// AdvanceRequest is the body for the manual progress advance endpoint.
type AdvanceRequest struct {
	ForceComplete bool `json:"forceComplete"`
}

// TurnResponse is returned after each posted message: the assistant's reply
// plus the updated session.
type TurnResponse struct {
	Session *types.Session   `json:"session"`
	Turn    types.Turn       `json:"turn"`
	Source  types.TurnSource `json:"source"`
}

// SessionListResponse wraps a paged session listing.
type SessionListResponse struct {
	Sessions []*types.Session `json:"sessions"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit,omitempty"`
	Offset   int              `json:"offset,omitempty"`
}

// SessionDetailResponse is a session plus its transcript.
type SessionDetailResponse struct {
	Session  *types.Session  `json:"session"`
	Messages []types.Message `json:"messages"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// Interview engine and persistence
	Orchestrator *interview.Orchestrator
	Store        store.Store

	// Question bank hot reload
	bankWatcher *BankWatcher

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Logger
	Logger *resumindErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	RateLimit      *config.RateLimitConfig
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, orchestrator *interview.Orchestrator, sessionStore store.Store, logger *resumindErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		Orchestrator:   orchestrator,
		Store:          sessionStore,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
	}
}
