package handlers

import (
	"net/http"

	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// HandleListBenchmarks handles GET /api/v1/benchmarks.
func (h *Handlers) HandleListBenchmarks(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	items := h.corpus.List()
	w.WriteJSON(api.BenchmarkResourceList{
		TotalCount: len(items),
		Items:      items,
	}, http.StatusOK)
}

// HandleGetBenchmark handles GET /api/v1/benchmarks/{benchmark_id}.
func (h *Handlers) HandleGetBenchmark(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	benchmarkID := r.PathValue(constants.PATH_PARAMETER_BENCHMARK_ID)
	if benchmarkID == "" {
		w.ErrorWithMessageCode(ctx.RequestID, messages.MissingPathParameter, "ParameterName", constants.PATH_PARAMETER_BENCHMARK_ID)
		return
	}

	benchmark, ok := h.corpus.Benchmark(benchmarkID)
	if !ok {
		w.ErrorWithMessageCode(ctx.RequestID, messages.ResourceNotFound, "Type", "benchmark", "ResourceId", benchmarkID)
		return
	}
	w.WriteJSON(benchmark, http.StatusOK)
}
