package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/bench-hub/bench-hub/cmd/bench_hub/server"
	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/config"
	"github.com/bench-hub/bench-hub/internal/corpus"
	"github.com/bench-hub/bench-hub/internal/engine"
	"github.com/bench-hub/bench-hub/internal/logging"
	"github.com/bench-hub/bench-hub/internal/validation"
	benchapi "github.com/bench-hub/bench-hub/pkg/api"
)

var (
	// api to be used throughout all the test suites
	api *apiFeature
)

type apiFeature struct {
	baseURL    *url.URL
	server     *server.Server
	httpServer *http.Server
	stopWorker context.CancelFunc
	client     *http.Client
}

// scenarioConfig keeps per-scenario state so scenarios do not overwrite
// data from other scenarios
type scenarioConfig struct {
	scenarioName string
	apiFeature   *apiFeature
	response     *http.Response
	body         []byte

	lastRunID string
	runs      []string
}

// cannedProvider answers every prompt with a fixed response, so runs finish
// deterministically without a live model backend.
type cannedProvider struct{}

func (cannedProvider) Name() string { return "canned" }

func (cannedProvider) Generate(ctx context.Context, model string, prompt string, settings benchapi.InferenceSettings) (string, error) {
	return "I don't know the answer, the correct option might be B or 42.", nil
}

type cannedFactory struct{}

func (cannedFactory) New(providerConfig benchapi.ProviderResource, runConfig *benchapi.RunConfig) (abstractions.Provider, error) {
	return cannedProvider{}, nil
}

var fvtProviderConfigs = map[string]benchapi.ProviderResource{
	"canned": {ProviderID: "canned", ProviderName: "Canned", ProviderType: "openai_compatible"},
}

func logDebug(format string, a ...any) {
	fmt.Printf(format, a...)
}

func checkBaseURL(uri *url.URL, from string) {
	if uri == nil {
		panic("Invalid baseURL: nil from " + from)
	}
	if uri.String() == "" {
		panic("Empty baseURL from  " + from)
	}
}

func createApiFeature() (*apiFeature, error) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	if serverURL := os.Getenv("SERVER_URL"); serverURL != "" {
		uri, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("Invalid SERVER_URL: %v", err)
		}
		checkBaseURL(uri, serverURL)
		return &apiFeature{client: client, baseURL: uri}, nil
	}

	port := 8080
	if sport := os.Getenv("PORT"); sport != "" {
		if eport, err := strconv.Atoi(sport); err != nil {
			logDebug("Invalid PORT: %v\n", err.Error())
		} else {
			port = eport
		}
	}

	uri := fmt.Sprintf("http://localhost:%d", port)
	baseURL, err := url.Parse(uri)
	if err != nil {
		panic(fmt.Errorf("Invalid baseURL: %v", err))
	}
	checkBaseURL(baseURL, uri)

	api := &apiFeature{client: client, baseURL: baseURL}
	if err := api.startLocalServer(port); err != nil {
		return nil, err
	}
	return api, nil
}

func (a *apiFeature) startLocalServer(port int) error {
	logger := logging.FallbackLogger()

	validate, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}

	readyDir, err := os.MkdirTemp("", "bench-hub-fvt")
	if err != nil {
		return err
	}
	serviceConfig := &config.Config{
		Service: &config.ServiceConfig{
			Version:   "0.0.1",
			Build:     "local",
			BuildDate: time.Now().Format(time.RFC3339),
			Port:      port,
			ReadyFile: filepath.Join(readyDir, "ready"),
			LocalMode: true,
		},
		Engine: &config.EngineConfig{
			ProviderTimeout: 5 * time.Second,
			RetryAttempts:   1,
			RetryBackoff:    time.Millisecond,
		},
	}

	benchCorpus := corpus.NewCorpus()
	registry, err := engine.NewRegistry(logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create registry: %w", err)
	}
	broadcaster := engine.NewBroadcaster(logger)
	executor := engine.NewExecutor(registry, broadcaster, benchCorpus, cannedFactory{}, fvtProviderConfigs, serviceConfig.Engine, logger)
	queue := engine.NewManager(registry, executor, broadcaster, benchCorpus, fvtProviderConfigs, logger)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	queue.Start(workerCtx)
	a.stopWorker = stopWorker

	a.server, err = server.NewServer(logger, serviceConfig, fvtProviderConfigs, nil, validate, queue, registry, broadcaster, benchCorpus)
	if err != nil {
		return err
	}

	handler, err := a.server.SetupRoutes()
	if err != nil {
		return err
	}
	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	// Start server in background
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	go func() {
		a.httpServer.Serve(listener)
	}()

	return nil
}

func (a *apiFeature) cleanup(ctx context.Context, _ *godog.Scenario, _ error) (context.Context, error) {
	if a.stopWorker != nil {
		a.stopWorker()
	}
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		a.httpServer.Shutdown(ctx)
	}
	return ctx, nil
}

func (tc *scenarioConfig) theServiceIsRunning(ctx context.Context) error {
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}

	return nil
}

func (tc *scenarioConfig) checkHealthEndpoint() error {
	if err := tc.iSendARequestTo("GET", "/api/v1/health"); err != nil {
		return fmt.Errorf("failed to send health check request: %w for URL %s", err, tc.apiFeature.baseURL.String())
	}
	if tc.response.StatusCode != 200 {
		return fmt.Errorf("expected status 200, got %d", tc.response.StatusCode)
	}

	match := "\"status\": \"healthy\""
	if !strings.Contains(string(tc.body), match) {
		return fmt.Errorf("expected body to contain %s, got %s", match, string(tc.body))
	}

	return nil
}

func (tc *scenarioConfig) iSendARequestTo(method, path string) error {
	return tc.iSendARequestToWithBody(method, path, "")
}

func extractRunID(body []byte) (string, error) {
	obj := make(map[string]interface{})
	err := json.Unmarshal(body, &obj)
	if err != nil {
		return "", err
	}
	if id, ok := obj["run_id"]; ok {
		return id.(string), nil
	}
	if id, ok := obj["id"]; ok {
		return id.(string), nil
	}
	return "", nil
}

func (tc *scenarioConfig) iSendARequestToWithBody(method, path, body string) error {
	if strings.Contains(path, "{id}") {
		if tc.lastRunID == "" {
			return fmt.Errorf("last run ID is not set")
		}
		path = strings.Replace(path, "{id}", tc.lastRunID, 1)
	}

	url := fmt.Sprintf("%s%s", tc.apiFeature.baseURL.String(), path)
	var entity io.Reader
	if body != "" {
		entity = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, entity)
	if err != nil {
		return err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	tc.response, err = tc.apiFeature.client.Do(req)
	if err != nil {
		return err
	}

	tc.body, err = io.ReadAll(tc.response.Body)
	if err != nil {
		return err
	}
	defer tc.response.Body.Close()

	// remember submitted runs so the scenario can clean them up
	if method == http.MethodPost && path == "/api/v1/runs" && tc.response.StatusCode == http.StatusAccepted {
		tc.lastRunID, err = extractRunID(tc.body)
		if err != nil {
			return err
		}
		if tc.lastRunID == "" {
			return fmt.Errorf("response does not contain a run ID in response %s", string(tc.body))
		}
		tc.runs = append(tc.runs, tc.lastRunID)
		logDebug("Submitted run %s\n", tc.lastRunID)
	}

	return nil
}

// iSendARequestToWithDocBody accepts the body as a Gherkin docstring, which
// is the only way to pass JSON through a step without escaping every quote.
func (tc *scenarioConfig) iSendARequestToWithDocBody(method, path string, body *godog.DocString) error {
	return tc.iSendARequestToWithBody(method, path, body.Content)
}

func (tc *scenarioConfig) theResponseStatusShouldBe(status int) error {
	if tc.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.response.StatusCode, string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldBeJSON() error {
	contentType := tc.response.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("expected JSON content type, got %s", contentType)
	}

	var js interface{}
	if err := json.Unmarshal(tc.body, &js); err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}

	return nil
}

func (tc *scenarioConfig) theResponseShouldContainWithValue(key, value string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return err
	}

	if fmt.Sprintf("%v", data[key]) != value {
		return fmt.Errorf("expected %s to be %s, got %v", key, value, data[key])
	}

	return nil
}

func (tc *scenarioConfig) theResponseShouldContain(key string) error {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.body, &data); err != nil {
		return err
	}

	if _, ok := data[key]; !ok {
		return fmt.Errorf("response does not contain key: %s", key)
	}

	return nil
}

// theRunShouldReachStateWithinSeconds polls the run resource until it shows
// the wanted status or the deadline passes.
func (tc *scenarioConfig) theRunShouldReachStateWithinSeconds(wanted string, seconds int) error {
	if tc.lastRunID == "" {
		return fmt.Errorf("last run ID is not set")
	}

	deadline := time.Now().Add(time.Duration(seconds) * time.Second)
	lastStatus := ""
	for time.Now().Before(deadline) {
		if err := tc.iSendARequestTo("GET", "/api/v1/runs/"+tc.lastRunID); err != nil {
			return err
		}
		var run map[string]interface{}
		if err := json.Unmarshal(tc.body, &run); err != nil {
			return err
		}
		lastStatus, _ = run["status"].(string)
		if lastStatus == wanted {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return fmt.Errorf("run %s never reached status %s, last seen %s", tc.lastRunID, wanted, lastStatus)
}

func (tc *scenarioConfig) theResponseShouldContainPrometheusMetrics() error {
	bodyStr := string(tc.body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		return fmt.Errorf("response does not appear to be Prometheus metrics format")
	}
	return nil
}

func (tc *scenarioConfig) theMetricsShouldInclude(metricName string) error {
	bodyStr := string(tc.body)
	if !strings.Contains(bodyStr, metricName) {
		return fmt.Errorf("metrics do not include %s", metricName)
	}
	return nil
}

func (tc *scenarioConfig) saveScenarioName(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	tc.scenarioName = sc.Name
	return ctx, nil
}

// runCleanup cancels and deletes every run the scenario submitted.
func (tc *scenarioConfig) runCleanup(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
	for _, id := range tc.runs {
		_ = tc.iSendARequestTo("POST", "/api/v1/runs/"+id+"/cancel")

		tc.lastRunID = id
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if err := tc.iSendARequestTo("DELETE", "/api/v1/runs/"+id); err != nil {
				return ctx, err
			}
			// a still-running run rejects the delete; retry until terminal
			if tc.response.StatusCode == http.StatusOK || tc.response.StatusCode == http.StatusNotFound {
				break
			}
			time.Sleep(50 * time.Millisecond)
		}
		logDebug("Deleted run %s with status %d\n", id, tc.response.StatusCode)
	}
	tc.runs = nil
	return ctx, nil
}

func createScenarioConfig(apiConfig *apiFeature) *scenarioConfig {
	conf := new(scenarioConfig)
	conf.apiFeature = apiConfig
	return conf
}

func setUpTestConf() {
	apiFeature, err := createApiFeature()
	if err != nil {
		panic(fmt.Errorf("failed to create API feature: %v", err))
	}
	api = apiFeature
}

func waitForService() {
	tc := createScenarioConfig(api)
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			return
		}
	}
	panic("Stopped API Tests. Service is not ready for testing.\n")
}

func tidyUpTests() {
	if api != nil {
		api.cleanup(context.Background(), nil, nil)
	}
}

func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(setUpTestConf)
	ctx.BeforeSuite(waitForService)
	ctx.AfterSuite(tidyUpTests)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := createScenarioConfig(api)

	ctx.Before(tc.saveScenarioName)
	ctx.After(tc.runCleanup)

	ctx.Step(`^the service is running$`, tc.theServiceIsRunning)
	ctx.Step(`^I send a (GET|DELETE|POST) request to "([^"]*)"$`, tc.iSendARequestTo)
	ctx.Step(`^I send a (POST|PUT|PATCH|DELETE) request to "([^"]*)" with body "([^"]*)"$`, tc.iSendARequestToWithBody)
	ctx.Step(`^I send a (POST|PUT|PATCH|DELETE) request to "([^"]*)" with body:$`, tc.iSendARequestToWithDocBody)
	ctx.Step(`^the response code should be (\d+)$`, tc.theResponseStatusShouldBe)
	ctx.Step(`^the response should be JSON$`, tc.theResponseShouldBeJSON)
	ctx.Step(`^the response should contain "([^"]*)" with value "([^"]*)"$`, tc.theResponseShouldContainWithValue)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
	ctx.Step(`^the run should reach status "([^"]*)" within (\d+) seconds$`, tc.theRunShouldReachStateWithinSeconds)
	ctx.Step(`^the response should contain Prometheus metrics$`, tc.theResponseShouldContainPrometheusMetrics)
	ctx.Step(`^the metrics should include "([^"]*)"$`, tc.theMetricsShouldInclude)
}
