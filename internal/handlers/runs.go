package handlers

import (
	"net/http"

	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/internal/serialization"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// HandleSubmitRun handles POST /api/v1/runs. A valid submission is accepted
// immediately; the run executes when the queue reaches it.
func (h *Handlers) HandleSubmitRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	bodyBytes, err := r.BodyAsBytes()
	if err != nil {
		w.ErrorWithMessageCode(ctx.RequestID, messages.InternalServerError, "Error", err.Error())
		return
	}

	config := &api.RunConfig{}
	if err := serialization.Unmarshal(h.validate, ctx, bodyBytes, config); err != nil {
		w.ErrorWithMessageCode(ctx.RequestID, messages.InvalidSubmission, "Error", err.Error())
		return
	}

	run, err := h.queue.Submit(config)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}

	w.WriteJSON(api.SubmitResponse{RunID: run.ID, Status: run.Status}, http.StatusAccepted)
}

// HandleListRuns handles GET /api/v1/runs, newest first.
func (h *Handlers) HandleListRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	offset, limit, err := PageParams(r)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}

	summaries := h.registry.List()
	total := len(summaries)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page, err := CreatePage(total, offset, limit, ctx, r)
	if err != nil {
		h.errorResponse(ctx, w, err)
		return
	}

	w.WriteJSON(api.RunResourceList{
		Page:  *page,
		Items: summaries[offset:end],
	}, http.StatusOK)
}

// HandleGetRun handles GET /api/v1/runs/{run_id}.
func (h *Handlers) HandleGetRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	runID := r.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		w.ErrorWithMessageCode(ctx.RequestID, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	run, ok := h.registry.Get(runID)
	if !ok {
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
		return
	}
	w.WriteJSON(run, http.StatusOK)
}

// HandleCancelRun handles POST /api/v1/runs/{run_id}/cancel. Cancelling a
// run that already finished is a no-op reported as accepted=false.
func (h *Handlers) HandleCancelRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	runID := r.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		w.ErrorWithMessageCode(ctx.RequestID, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	if _, ok := h.registry.Get(runID); !ok {
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
		return
	}

	accepted := h.queue.Cancel(runID)
	w.WriteJSON(api.CancelResponse{Accepted: accepted}, http.StatusOK)
}

// HandleDeleteRun handles DELETE /api/v1/runs/{run_id}. Only terminal runs
// can be deleted.
func (h *Handlers) HandleDeleteRun(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	runID := r.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if runID == "" {
		w.ErrorWithMessageCode(ctx.RequestID, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_RUN_ID)
		return
	}

	run, ok := h.registry.Get(runID)
	if !ok {
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
		return
	}
	if !run.Status.Terminal() {
		w.ErrorWithMessageCode(ctx.RequestID, messages.RunNotTerminal, "RunId", runID, "Status", run.Status)
		return
	}

	if !h.registry.Delete(runID) {
		// the run finished being deleted by a concurrent request
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
		return
	}
	w.WriteJSON(api.DeleteResponse{DeletedCount: 1}, http.StatusOK)
}

// HandleDeleteRuns handles DELETE /api/v1/runs with a batch body. Unknown
// and non-terminal IDs are skipped; the response reports how many runs were
// actually removed.
func (h *Handlers) HandleDeleteRuns(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	bodyBytes, err := r.BodyAsBytes()
	if err != nil {
		w.ErrorWithMessageCode(ctx.RequestID, messages.InternalServerError, "Error", err.Error())
		return
	}

	request := &api.DeleteRunsRequest{}
	if err := serialization.Unmarshal(h.validate, ctx, bodyBytes, request); err != nil {
		w.ErrorWithMessageCode(ctx.RequestID, messages.InvalidSubmission, "Error", err.Error())
		return
	}

	count := h.registry.DeleteMany(request.RunIDs)
	w.WriteJSON(api.DeleteResponse{DeletedCount: count}, http.StatusOK)
}

// HandleQueueStatus handles GET /api/v1/queue.
func (h *Handlers) HandleQueueStatus(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	w.WriteJSON(h.queue.Status(), http.StatusOK)
}
