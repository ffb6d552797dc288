package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/config"
	"github.com/bench-hub/bench-hub/internal/engine"
	"github.com/bench-hub/bench-hub/internal/executioncontext"
	"github.com/bench-hub/bench-hub/internal/logging"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/internal/validation"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// fakeRequest implements http_wrappers.RequestWrapper for handler tests.
type fakeRequest struct {
	method     string
	uri        string
	body       []byte
	pathValues map[string]string
	query      url.Values
	headers    map[string]string
}

func (r *fakeRequest) Method() string { return r.method }
func (r *fakeRequest) URI() string    { return r.uri }
func (r *fakeRequest) Header(key string) string {
	return r.headers[key]
}
func (r *fakeRequest) SetHeader(key string, value string) {
	if r.headers == nil {
		r.headers = map[string]string{}
	}
	r.headers[key] = value
}
func (r *fakeRequest) Path() string { return r.uri }
func (r *fakeRequest) Query(key string) []string {
	if r.query == nil {
		return nil
	}
	return r.query[key]
}
func (r *fakeRequest) BodyAsBytes() ([]byte, error) { return r.body, nil }
func (r *fakeRequest) PathValue(name string) string { return r.pathValues[name] }

// fakeResponse implements http_wrappers.ResponseWrapper and records what the
// handler wrote.
type fakeResponse struct {
	status  int
	body    []byte
	headers map[string]string
	errCode *messages.MessageCode
}

func (w *fakeResponse) Error(err error, requestId string) {
	w.ErrorWithMessageCode(requestId, messages.UnknownError, "Error", err.Error())
}

func (w *fakeResponse) ErrorWithMessageCode(requestId string, messageCode *messages.MessageCode, messageParams ...any) {
	w.status = messageCode.GetCode()
	w.errCode = messageCode
	w.body = []byte(messages.GetErrorMessage(messageCode, messageParams...))
}

func (w *fakeResponse) SetHeader(key string, value string) {
	if w.headers == nil {
		w.headers = map[string]string{}
	}
	w.headers[key] = value
}
func (w *fakeResponse) DeleteHeader(key string)  { delete(w.headers, key) }
func (w *fakeResponse) SetStatusCode(code int)   { w.status = code }
func (w *fakeResponse) Write(buf []byte) (int, error) {
	w.body = append(w.body, buf...)
	return len(buf), nil
}
func (w *fakeResponse) WriteJSON(v any, code int) {
	w.status = code
	w.body, _ = json.Marshal(v)
}

func (w *fakeResponse) decode(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(w.body, v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.body, err)
	}
}

// testCorpus is a single-benchmark corpus answered by testProvider.
type testCorpus struct{}

var testQuestions = []api.Question{
	{Prompt: "What color is the sky?", Expected: "blue"},
	{Prompt: "What color is grass?", Expected: "green"},
}

func (testCorpus) Questions(benchmarkID string, limit int) ([]api.Question, error) {
	if benchmarkID != "colors" {
		return nil, fmt.Errorf("unknown benchmark %q", benchmarkID)
	}
	questions := testQuestions
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}
	return append([]api.Question(nil), questions...), nil
}

func (testCorpus) Benchmark(benchmarkID string) (api.BenchmarkResource, bool) {
	if benchmarkID != "colors" {
		return api.BenchmarkResource{}, false
	}
	return api.BenchmarkResource{
		BenchmarkID: "colors",
		Name:        "Colors",
		Family:      api.FamilyExactMatch,
		Questions:   len(testQuestions),
	}, true
}

func (testCorpus) List() []api.BenchmarkResource {
	b, _ := testCorpus{}.Benchmark("colors")
	return []api.BenchmarkResource{b}
}

type testProvider struct {
	gate chan struct{}
}

func (p *testProvider) Name() string { return "stub" }

func (p *testProvider) Generate(ctx context.Context, model string, prompt string, settings api.InferenceSettings) (string, error) {
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
			return "", abstractions.NewProviderError(abstractions.ProviderTimeout, ctx.Err())
		}
	}
	switch prompt {
	case "What color is the sky?":
		return "blue", nil
	default:
		return "green", nil
	}
}

type testFactory struct {
	provider abstractions.Provider
}

func (f *testFactory) New(providerConfig api.ProviderResource, runConfig *api.RunConfig) (abstractions.Provider, error) {
	return f.provider, nil
}

var handlerProviders = map[string]api.ProviderResource{
	"stub": {ProviderID: "stub", ProviderName: "Stub", ProviderType: "openai_compatible"},
	"zeta": {ProviderID: "zeta", ProviderName: "Zeta", ProviderType: "ollama"},
}

type testEnv struct {
	handlers *Handlers
	registry *engine.Registry
	queue    *engine.Manager
}

func newTestEnv(t *testing.T, provider abstractions.Provider) *testEnv {
	t.Helper()
	logger := logging.FallbackLogger()
	registry, err := engine.NewRegistry(logger, nil)
	if err != nil {
		t.Fatalf("failed to create registry: %v", err)
	}
	broadcaster := engine.NewBroadcaster(logger)
	engineConf := &config.EngineConfig{
		ProviderTimeout: time.Second,
		RetryAttempts:   1,
		RetryBackoff:    time.Millisecond,
	}
	executor := engine.NewExecutor(registry, broadcaster, testCorpus{}, &testFactory{provider: provider}, handlerProviders, engineConf, logger)
	queue := engine.NewManager(registry, executor, broadcaster, testCorpus{}, handlerProviders, logger)

	ctx, cancel := context.WithCancel(context.Background())
	queue.Start(ctx)
	t.Cleanup(func() {
		cancel()
		<-queue.Done()
	})

	validate, err := validation.NewValidator()
	if err != nil {
		t.Fatalf("failed to create validator: %v", err)
	}
	return &testEnv{
		handlers: New(queue, registry, broadcaster, testCorpus{}, handlerProviders, nil, validate),
		registry: registry,
		queue:    queue,
	}
}

func testContext() *executioncontext.ExecutionContext {
	return executioncontext.NewExecutionContext(context.Background(), "test-request", logging.FallbackLogger(), "GET", "/api/v1/runs")
}

func waitTerminal(t *testing.T, registry *engine.Registry, runID string) *api.RunResource {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, ok := registry.Get(runID)
		if !ok {
			t.Fatalf("run %s disappeared", runID)
		}
		if run.Status.Terminal() {
			return run
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("run %s never became terminal", runID)
	return nil
}

func TestHandleSubmitRunAcceptsValidConfig(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	body := []byte(`{"provider":"stub","model":"m","benchmarks":["colors"]}`)
	w := &fakeResponse{}
	env.handlers.HandleSubmitRun(testContext(), &fakeRequest{method: "POST", uri: "/api/v1/runs", body: body}, w)

	if w.status != 202 {
		t.Fatalf("expected 202, got %d: %s", w.status, w.body)
	}
	response := api.SubmitResponse{}
	w.decode(t, &response)
	if response.RunID == "" || response.Status != api.StateQueued {
		t.Fatalf("unexpected submit response: %+v", response)
	}

	run := waitTerminal(t, env.registry, response.RunID)
	if run.Status != api.StateCompleted {
		t.Fatalf("expected run to complete, got %s (%s)", run.Status, run.ErrorMessage)
	}
}

func TestHandleSubmitRunRejectsMalformedBody(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleSubmitRun(testContext(), &fakeRequest{body: []byte(`{not json`)}, w)
	if w.status != 400 {
		t.Fatalf("expected 400, got %d", w.status)
	}
}

func TestHandleSubmitRunRejectsMissingFields(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleSubmitRun(testContext(), &fakeRequest{body: []byte(`{"provider":"stub"}`)}, w)
	if w.status != 400 {
		t.Fatalf("expected 400, got %d", w.status)
	}
}

func TestHandleSubmitRunRejectsUnknownProvider(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	body := []byte(`{"provider":"nope","model":"m","benchmarks":["colors"]}`)
	w := &fakeResponse{}
	env.handlers.HandleSubmitRun(testContext(), &fakeRequest{body: body}, w)

	if w.status != 400 {
		t.Fatalf("expected 400, got %d", w.status)
	}
	if w.errCode != messages.UnknownProvider {
		t.Fatalf("expected UnknownProvider, got %q", w.body)
	}
}

func TestHandleSubmitRunRejectsUnknownBenchmark(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	body := []byte(`{"provider":"stub","model":"m","benchmarks":["nope"]}`)
	w := &fakeResponse{}
	env.handlers.HandleSubmitRun(testContext(), &fakeRequest{body: body}, w)

	if w.errCode != messages.UnknownBenchmark {
		t.Fatalf("expected UnknownBenchmark, got %q", w.body)
	}
}

func TestHandleGetRunNotFound(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleGetRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": "missing"}}, w)
	if w.status != 404 {
		t.Fatalf("expected 404, got %d", w.status)
	}
}

func TestHandleGetRunReturnsResource(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	submitted, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	waitTerminal(t, env.registry, submitted.ID)

	w := &fakeResponse{}
	env.handlers.HandleGetRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": submitted.ID}}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	run := api.RunResource{}
	w.decode(t, &run)
	if run.ID != submitted.ID || run.Status != api.StateCompleted {
		t.Fatalf("unexpected run resource: %+v", run)
	}
	if run.Results["colors"].Score != 1.0 {
		t.Fatalf("expected perfect score, got %v", run.Results["colors"].Score)
	}
}

func TestHandleListRunsPaginates(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, &testProvider{gate: gate})
	defer close(gate)

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
		if err != nil {
			t.Fatalf("failed to submit: %v", err)
		}
		ids = append(ids, run.ID)
		time.Sleep(2 * time.Millisecond)
	}

	w := &fakeResponse{}
	env.handlers.HandleListRuns(testContext(), &fakeRequest{
		uri:   "/api/v1/runs?limit=2",
		query: url.Values{"limit": {"2"}},
	}, w)

	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	list := api.RunResourceList{}
	w.decode(t, &list)
	if list.TotalCount != 3 || len(list.Items) != 2 {
		t.Fatalf("expected 2 of 3 runs, got %d of %d", len(list.Items), list.TotalCount)
	}
	if list.Items[0].ID != ids[2] {
		t.Fatal("expected newest run first")
	}
	if list.Next == nil {
		t.Fatal("expected a next page link")
	}
}

func TestHandleListRunsRejectsBadQuery(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleListRuns(testContext(), &fakeRequest{
		uri:   "/api/v1/runs?limit=abc",
		query: url.Values{"limit": {"abc"}},
	}, w)
	if w.status != 400 {
		t.Fatalf("expected 400, got %d", w.status)
	}
}

func TestHandleCancelRunTerminalReportsNotAccepted(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	run, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	waitTerminal(t, env.registry, run.ID)

	w := &fakeResponse{}
	env.handlers.HandleCancelRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": run.ID}}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	response := api.CancelResponse{}
	w.decode(t, &response)
	if response.Accepted {
		t.Fatal("expected cancel of a terminal run to not be accepted")
	}
}

func TestHandleCancelRunNotFound(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleCancelRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": "missing"}}, w)
	if w.status != 404 {
		t.Fatalf("expected 404, got %d", w.status)
	}
}

func TestHandleDeleteRunRejectsNonTerminal(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, &testProvider{gate: gate})
	defer close(gate)

	run, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}

	w := &fakeResponse{}
	env.handlers.HandleDeleteRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": run.ID}}, w)
	if w.status != 409 {
		t.Fatalf("expected 409, got %d", w.status)
	}
	if _, ok := env.registry.Get(run.ID); !ok {
		t.Fatal("expected the run to survive the rejected delete")
	}
}

func TestHandleDeleteRunRemovesTerminal(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	run, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	waitTerminal(t, env.registry, run.ID)

	w := &fakeResponse{}
	env.handlers.HandleDeleteRun(testContext(), &fakeRequest{pathValues: map[string]string{"run_id": run.ID}}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d: %s", w.status, w.body)
	}
	if _, ok := env.registry.Get(run.ID); ok {
		t.Fatal("expected the run to be gone")
	}
}

func TestHandleDeleteRunsBatchSkipsNonTerminal(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, &testProvider{gate: gate})

	done, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	pending, err := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	if err != nil {
		t.Fatalf("failed to submit: %v", err)
	}
	close(gate)
	waitTerminal(t, env.registry, done.ID)
	waitTerminal(t, env.registry, pending.ID)

	// a missing ID exercises the skip path
	body, _ := json.Marshal(api.DeleteRunsRequest{RunIDs: []string{done.ID, "missing"}})
	w := &fakeResponse{}
	env.handlers.HandleDeleteRuns(testContext(), &fakeRequest{body: body}, w)

	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	response := api.DeleteResponse{}
	w.decode(t, &response)
	if response.DeletedCount != 1 {
		t.Fatalf("expected 1 deleted, got %d", response.DeletedCount)
	}
}

func TestHandleQueueStatus(t *testing.T) {
	gate := make(chan struct{})
	env := newTestEnv(t, &testProvider{gate: gate})
	defer close(gate)

	first, _ := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})
	second, _ := env.queue.Submit(&api.RunConfig{Provider: "stub", Model: "m", Benchmarks: []string{"colors"}})

	// wait for the worker to pick up the first run
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if env.queue.Status().CurrentRunID == first.ID {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	w := &fakeResponse{}
	env.handlers.HandleQueueStatus(testContext(), &fakeRequest{}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	status := api.QueueStatus{}
	w.decode(t, &status)
	if status.CurrentRunID != first.ID {
		t.Fatalf("expected current run %s, got %s", first.ID, status.CurrentRunID)
	}
	if len(status.Queued) != 1 || status.Queued[0] != second.ID {
		t.Fatalf("unexpected backlog: %v", status.Queued)
	}
}

func TestHandleListBenchmarks(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleListBenchmarks(testContext(), &fakeRequest{}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	list := api.BenchmarkResourceList{}
	w.decode(t, &list)
	if list.TotalCount != 1 || list.Items[0].BenchmarkID != "colors" {
		t.Fatalf("unexpected benchmark list: %+v", list)
	}
}

func TestHandleGetBenchmarkNotFound(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleGetBenchmark(testContext(), &fakeRequest{pathValues: map[string]string{"benchmark_id": "nope"}}, w)
	if w.status != 404 {
		t.Fatalf("expected 404, got %d", w.status)
	}
}

func TestHandleListProvidersSorted(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleListProviders(testContext(), &fakeRequest{}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	list := api.ProviderResourceList{}
	w.decode(t, &list)
	if list.TotalCount != 2 {
		t.Fatalf("expected 2 providers, got %d", list.TotalCount)
	}
	if list.Items[0].ProviderID != "stub" || list.Items[1].ProviderID != "zeta" {
		t.Fatalf("expected providers sorted by id, got %+v", list.Items)
	}
}

func TestHandleGetProvider(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleGetProvider(testContext(), &fakeRequest{pathValues: map[string]string{"provider_id": "stub"}}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	provider := api.ProviderResource{}
	w.decode(t, &provider)
	if provider.ProviderID != "stub" {
		t.Fatalf("unexpected provider: %+v", provider)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleHealth(testContext(), &fakeRequest{}, w, "1.2.3", "2026-08-28")
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	health := HealthResponse{}
	w.decode(t, &health)
	if health.Status != STATUS_HEALTHY || health.Build != "1.2.3" {
		t.Fatalf("unexpected health response: %+v", health)
	}
}

func TestHandleStatusReportsCatalogSizes(t *testing.T) {
	env := newTestEnv(t, &testProvider{})

	w := &fakeResponse{}
	env.handlers.HandleStatus(testContext(), &fakeRequest{}, w)
	if w.status != 200 {
		t.Fatalf("expected 200, got %d", w.status)
	}
	status := StatusResponse{}
	w.decode(t, &status)
	if status.Benchmarks != 1 || status.Providers != 2 {
		t.Fatalf("unexpected status response: %+v", status)
	}
	if status.Storage != "none" || !status.StorageOK {
		t.Fatalf("expected no storage configured, got %+v", status)
	}
}
