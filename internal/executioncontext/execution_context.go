package executioncontext

import (
	"context"
	"log/slog"
	"time"
)

// ExecutionContext contains execution context for API operations. This pattern
// enables type-safe passing of request-scoped state to handlers, which receive
// an ExecutionContext instead of a raw http.Request.
//
// The ExecutionContext contains:
//   - Logger: A request-scoped logger with enriched fields (request_id, method, uri, etc.)
//   - RequestID: the transaction ID from the caller or a generated UUID
//   - StartedAt: when the request began, for elapsed-time logging
type ExecutionContext struct {
	Ctx       context.Context
	RequestID string
	Logger    *slog.Logger
	Method    string
	URI       string
	StartedAt time.Time
}

func NewExecutionContext(
	ctx context.Context,
	requestID string,
	logger *slog.Logger,
	method string,
	uri string,
) *ExecutionContext {
	return &ExecutionContext{
		Ctx:       ctx,
		RequestID: requestID,
		Logger:    logger,
		Method:    method,
		URI:       uri,
		StartedAt: time.Now(),
	}
}
