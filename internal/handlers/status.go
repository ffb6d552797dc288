package handlers

import (
	"net/http"
	"time"

	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/http_wrappers"
)

const storagePingTimeout = 2 * time.Second

type StatusResponse struct {
	Service    string    `json:"service"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Storage    string    `json:"storage"`
	StorageOK  bool      `json:"storage_ok"`
	Benchmarks int       `json:"benchmarks"`
	Providers  int       `json:"providers"`
	QueueDepth int       `json:"queue_depth"`
}

// HandleStatus handles GET /api/v1/status with a deeper readiness view than
// the health endpoint: it pings the results store and reports queue depth.
func (h *Handlers) HandleStatus(ctx *executioncontext.ExecutionContext, r http_wrappers.RequestWrapper, w http_wrappers.ResponseWrapper) {
	storageName := "none"
	storageOK := true
	if h.storage != nil {
		storageName = h.storage.GetDatasourceName()
		if err := h.storage.Ping(storagePingTimeout); err != nil {
			storageOK = false
			ctx.Logger.Error("Storage ping failed", "datasource", storageName, "error", err.Error())
		}
	}

	queueStatus := h.queue.Status()
	depth := len(queueStatus.Queued)

	w.WriteJSON(StatusResponse{
		Service:    "bench-hub",
		Status:     "running",
		Timestamp:  time.Now().UTC(),
		Storage:    storageName,
		StorageOK:  storageOK,
		Benchmarks: len(h.corpus.List()),
		Providers:  len(h.providers),
		QueueDepth: depth,
	}, http.StatusOK)
}
