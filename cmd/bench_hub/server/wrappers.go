package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/logging"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// ReqWrapper adapts *http.Request to the RequestWrapper interface consumed
// by the handlers.
type ReqWrapper struct {
	Request *http.Request
	body    []byte
	read    bool
}

func NewRequestWrapper(r *http.Request) *ReqWrapper {
	return &ReqWrapper{Request: r}
}

func (r *ReqWrapper) Method() string { return r.Request.Method }

func (r *ReqWrapper) URI() string {
	if r.Request.URL != nil {
		return r.Request.URL.RequestURI()
	}
	return r.Request.RequestURI
}

func (r *ReqWrapper) Header(key string) string { return r.Request.Header.Get(key) }

func (r *ReqWrapper) SetHeader(key string, value string) { r.Request.Header.Set(key, value) }

func (r *ReqWrapper) Path() string {
	if r.Request.URL != nil {
		return r.Request.URL.Path
	}
	return ""
}

func (r *ReqWrapper) Query(key string) []string {
	if r.Request.URL == nil {
		return nil
	}
	return r.Request.URL.Query()[key]
}

// BodyAsBytes reads and caches the request body, so handlers can read it
// more than once.
func (r *ReqWrapper) BodyAsBytes() ([]byte, error) {
	if r.read {
		return r.body, nil
	}
	if r.Request.Body == nil {
		r.read = true
		return nil, nil
	}
	body, err := io.ReadAll(r.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	r.body = body
	r.read = true
	return r.body, nil
}

func (r *ReqWrapper) PathValue(name string) string { return r.Request.PathValue(name) }

// RespWrapper adapts http.ResponseWriter to the ResponseWrapper interface.
// Error responses always carry the service's JSON error shape with the
// request ID as the trace.
type RespWrapper struct {
	writer  http.ResponseWriter
	execctx *executioncontext.ExecutionContext
}

func NewRespWrapper(w http.ResponseWriter, execctx *executioncontext.ExecutionContext) *RespWrapper {
	return &RespWrapper{writer: w, execctx: execctx}
}

// Error maps a service error to its message code, or falls back to an
// internal server error for unclassified errors.
func (w *RespWrapper) Error(err error, requestId string) {
	if serviceError, ok := err.(abstractions.ServiceError); ok {
		w.ErrorWithMessageCode(requestId, serviceError.MessageCode(), serviceError.MessageParams()...)
		return
	}
	w.ErrorWithMessageCode(requestId, messages.UnknownError, "Error", err.Error())
}

func (w *RespWrapper) ErrorWithMessageCode(requestId string, messageCode *messages.MessageCode, messageParams ...any) {
	message := messages.GetErrorMessage(messageCode, messageParams...)
	code := messageCode.GetCode()

	w.DeleteHeader("Content-Length")
	w.SetHeader("Content-Type", "application/json; charset=utf-8")
	w.SetHeader("X-Content-Type-Options", "nosniff")
	w.SetStatusCode(code)

	jsonBytes, err := json.Marshal(api.Error{
		MessageCode: messageCode.GetMessage(),
		Message:     message,
		Trace:       requestId,
	})
	if err != nil {
		// the error struct is trivially serializable so this cannot happen
		fmt.Fprintf(w.writer, `{"message":%q,"trace":%q}`, message, requestId)
	} else {
		w.writer.Write(jsonBytes)
	}

	logging.LogRequestFailed(w.execctx, code, message)
}

func (w *RespWrapper) SetHeader(key string, value string)  { w.writer.Header().Set(key, value) }
func (w *RespWrapper) DeleteHeader(key string)             { w.writer.Header().Del(key) }
func (w *RespWrapper) SetStatusCode(code int)              { w.writer.WriteHeader(code) }
func (w *RespWrapper) Write(buf []byte) (n int, err error) { return w.writer.Write(buf) }

func (w *RespWrapper) WriteJSON(v any, code int) {
	jsonBytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		w.ErrorWithMessageCode(w.execctx.RequestID, messages.InternalServerError, "Error", err.Error())
		return
	}

	w.SetHeader("Content-Type", "application/json; charset=utf-8")
	w.SetStatusCode(code)
	w.writer.Write(jsonBytes)

	logging.LogRequestSuccess(w.execctx, code, v)
}
