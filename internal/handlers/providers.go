package handlers

import (
	"net/http"
	"sort"

	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// HandleListProviders handles GET /api/v1/providers. API keys never appear
// in the response.
func (h *Handlers) HandleListProviders(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	items := make([]api.ProviderResource, 0, len(h.providers))
	for _, provider := range h.providers {
		items = append(items, provider)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ProviderID < items[j].ProviderID })

	w.WriteJSON(api.ProviderResourceList{
		TotalCount: len(items),
		Items:      items,
	}, http.StatusOK)
}

// HandleGetProvider handles GET /api/v1/providers/{provider_id}.
func (h *Handlers) HandleGetProvider(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	providerID := r.PathValue(constants.PATH_PARAMETER_PROVIDER_ID)
	if providerID == "" {
		w.ErrorWithMessageCode(ctx.RequestID, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_PROVIDER_ID)
		return
	}

	provider, ok := h.providers[providerID]
	if !ok {
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "provider", "ResourceId", providerID)
		return
	}
	w.WriteJSON(provider, http.StatusOK)
}
