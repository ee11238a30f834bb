package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayEngineInfo()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	fmt.Println("Available endpoints:")
	fmt.Println("  GET    /health                            - Health check")
	fmt.Println("  GET    /stats                             - Server statistics")
	fmt.Println("  POST   /interview/sessions                - Start an interview session")
	fmt.Println("  GET    /interview/sessions                - List sessions")
	fmt.Println("  GET    /interview/sessions/{id}           - Session with transcript")
	fmt.Println("  DELETE /interview/sessions/{id}           - Delete a session")
	fmt.Println("  GET    /interview/sessions/{id}/messages  - Session transcript")
	fmt.Println("  POST   /interview/sessions/{id}/messages  - Answer and get the next turn")
	fmt.Println("  POST   /interview/sessions/{id}/advance   - Manually advance progress")
}

// displayEngineInfo shows which interview engine is active
func (s *Server) displayEngineInfo() {
	if s.Orchestrator.ModelEnabled() {
		fmt.Println("Interview engine: Gemini with heuristic fallback")
	} else {
		fmt.Println("Interview engine: heuristic only (no AI API key configured)")
	}
	fmt.Printf("Question bank: %d questions\n", s.Orchestrator.QuestionBank().Len())
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /interview endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
		fmt.Println("WARNING: No rate limiting configured!")
	}
}
