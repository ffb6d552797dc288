package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

const (
	// writeWait bounds a single event write to a slow client
	writeWait = 10 * time.Second
	// pingPeriod keeps idle streams alive while a run sits in the backlog
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin enforcement happens in the CORS middleware
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleStreamEvents handles GET /api/v1/runs/{run_id}/events. It upgrades
// the connection to a websocket and pushes progress events until the run
// reaches a terminal phase or the client goes away. Events are transient:
// a subscriber that connects after the run finished receives only the
// terminal event reconstructed from the run's final state.
//
// This handler takes the raw net/http types because the websocket upgrade
// needs to hijack the underlying connection.
func (h *Handlers) HandleStreamEvents(ctx *executioncontext.ExecutionContext, w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue(constants.PATH_PARAMETER_RUN_ID)
	if _, ok := h.registry.Get(runID); !ok {
		writeErrorBeforeUpgrade(ctx, w, messages.ResourceNotFound, "Type", "run", "ResourceId", runID)
		return
	}

	// subscribe before the terminal check so no event can fall between them
	events, cancel := h.broadcaster.Subscribe(runID)
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		ctx.Logger.Error("Progress stream upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	run, ok := h.registry.Get(runID)
	if !ok {
		return
	}
	if run.Status.Terminal() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(terminalEvent(run)); err != nil {
			ctx.Logger.Info("Progress stream client went away", "error", err.Error())
		}
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		return
	}

	// drain client frames so close and pong handling work
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
				ctx.Logger.Info("Progress stream client went away", "error", err.Error())
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Ctx.Done():
			return
		}
	}
}

// terminalEvent reconstructs the final progress event from a finished run.
func terminalEvent(run *api.RunResource) api.ProgressEvent {
	event := api.ProgressEvent{RunID: run.ID}
	if run.AggregateScore != nil {
		event.RunningScore = *run.AggregateScore
	}
	switch run.Status {
	case api.StateCompleted:
		event.Phase = api.PhaseRunCompleted
	case api.StateCancelled:
		event.Phase = api.PhaseRunCancelled
	default:
		event.Phase = api.PhaseRunFailed
		event.Message = run.ErrorMessage
	}
	return event
}

// writeErrorBeforeUpgrade replies with the service's JSON error shape on the
// plain HTTP connection, for failures detected before the upgrade.
func writeErrorBeforeUpgrade(ctx *executioncontext.ExecutionContext, w http.ResponseWriter, messageCode *messages.MessageCode, messageParams ...any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(messageCode.GetCode())
	json.NewEncoder(w).Encode(api.Error{
		MessageCode: messages.GetErrorMessage(messageCode),
		Message:     messages.GetErrorMessage(messageCode, messageParams...),
		Trace:       ctx.RequestID,
	})
}
