package server

import (
	"net/http"

	"github.com/bench-hub/bench-hub/internal/executioncontext"
)

// newExecutionContext creates the request-scoped context passed to handlers.
// It enriches the logger with request fields so every log line of a request
// carries the same request_id, method and uri.
func (s *Server) newExecutionContext(r *http.Request) *executioncontext.ExecutionContext {
	requestID, enhancedLogger := s.loggerWithRequest(r)

	return executioncontext.NewExecutionContext(
		r.Context(),
		requestID,
		enhancedLogger,
		r.Method,
		r.URL.Path,
	)
}
