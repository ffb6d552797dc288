// Package handlers implements the REST API operations. Handlers receive an
// ExecutionContext plus request/response wrappers instead of raw net/http
// types, so they can be tested without a live server.
package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/engine"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

type Handlers struct {
	queue       *engine.Manager
	registry    *engine.Registry
	broadcaster *engine.Broadcaster
	corpus      abstractions.Corpus
	providers   map[string]api.ProviderResource
	storage     abstractions.Storage
	validate    *validator.Validate
}

func New(
	queue *engine.Manager,
	registry *engine.Registry,
	broadcaster *engine.Broadcaster,
	corpus abstractions.Corpus,
	providers map[string]api.ProviderResource,
	storage abstractions.Storage,
	validate *validator.Validate,
) *Handlers {
	return &Handlers{
		queue:       queue,
		registry:    registry,
		broadcaster: broadcaster,
		corpus:      corpus,
		providers:   providers,
		storage:     storage,
		validate:    validate,
	}
}

// errorResponse writes a service error with its message code, or wraps an
// unclassified error as an internal server error.
func (h *Handlers) errorResponse(ctx *executioncontext.ExecutionContext, w http_wrappers.ResponseWrapper, err error) {
	var serviceError abstractions.ServiceError
	if errors.As(err, &serviceError) {
		w.ErrorWithMessageCode(ctx.RequestID, serviceError.MessageCode(), serviceError.MessageParams()...)
		return
	}
	w.ErrorWithMessageCode(ctx.RequestID, messages.InternalServerError, "Error", err.Error())
}
