package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/config"
	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/engine"
	"github.com/bench-hub/bench-hub/internal/handlers"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/pkg/api"
)

type Server struct {
	httpServer      *http.Server
	port            int
	logger          *slog.Logger
	serviceConfig   *config.Config
	providerConfigs map[string]api.ProviderResource
	storage         abstractions.Storage
	validate        *validator.Validate
	queue           *engine.Manager
	registry        *engine.Registry
	broadcaster     *engine.Broadcaster
	corpus          abstractions.Corpus
}

// NewServer creates the HTTP server. Routing uses the standard library
// ServeMux: route handlers build an ExecutionContext plus request/response
// wrappers, switch on the HTTP method and dispatch into the handlers
// package. The progress stream route is the exception and receives the raw
// net/http types because the websocket upgrade hijacks the connection.
func NewServer(logger *slog.Logger,
	serviceConfig *config.Config,
	providerConfigs map[string]api.ProviderResource,
	storage abstractions.Storage,
	validate *validator.Validate,
	queue *engine.Manager,
	registry *engine.Registry,
	broadcaster *engine.Broadcaster,
	corpus abstractions.Corpus) (*Server, error) {

	if logger == nil {
		return nil, fmt.Errorf("logger is required for the server")
	}
	if (serviceConfig == nil) || (serviceConfig.Service == nil) {
		return nil, fmt.Errorf("service config is required for the server")
	}
	if validate == nil {
		return nil, fmt.Errorf("validator is required for the server")
	}
	if queue == nil || registry == nil || broadcaster == nil {
		return nil, fmt.Errorf("engine is required for the server")
	}
	if corpus == nil {
		return nil, fmt.Errorf("corpus is required for the server")
	}

	return &Server{
		port:            serviceConfig.Service.Port,
		logger:          logger,
		serviceConfig:   serviceConfig,
		providerConfigs: providerConfigs,
		storage:         storage,
		validate:        validate,
		queue:           queue,
		registry:        registry,
		broadcaster:     broadcaster,
		corpus:          corpus,
	}, nil
}

func (s *Server) GetPort() int {
	return s.port
}

// loggerWithRequest enhances the logger with request-specific fields so logs
// can be correlated across services via the request_id.
func (s *Server) loggerWithRequest(r *http.Request) (string, *slog.Logger) {
	requestID := r.Header.Get("X-Global-Transaction-Id")
	if requestID == "" {
		requestID = uuid.New().String() // generate a UUID if not present
	}

	enhancedLogger := s.logger.With(constants.LOG_REQUEST_ID, requestID)

	method := r.Method
	if method != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_METHOD, method)
	}

	uri := ""
	if r.URL != nil {
		uri = r.URL.Path
	}
	if uri == "" {
		uri = r.RequestURI
	}
	if uri != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_URI, uri)
	}

	userAgent := r.Header.Get("User-Agent")
	if userAgent != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_USER_AGENT, userAgent)
	}

	remoteAddr := r.RemoteAddr
	if remoteAddr != "" {
		enhancedLogger = enhancedLogger.With(constants.LOG_REMOTE_ADR, remoteAddr)
	}

	return requestID, enhancedLogger
}

func (s *Server) setupRoutes() (http.Handler, error) {
	router := http.NewServeMux()
	h := handlers.New(s.queue, s.registry, s.broadcaster, s.corpus, s.providerConfigs, s.storage, s.validate)

	build := ""
	buildDate := ""
	if s.serviceConfig.Service != nil {
		build = s.serviceConfig.Service.Build
		buildDate = s.serviceConfig.Service.BuildDate
	}

	// Health and status endpoints
	router.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch req.Method() {
		case http.MethodGet:
			h.HandleHealth(ctx, req, resp, build, buildDate)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleStatus(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Run collection endpoints
	router.HandleFunc("/api/v1/runs", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleSubmitRun(ctx, req, resp)
		case http.MethodGet:
			h.HandleListRuns(ctx, req, resp)
		case http.MethodDelete:
			h.HandleDeleteRuns(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Individual run endpoints
	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetRun(ctx, req, resp)
		case http.MethodDelete:
			h.HandleDeleteRun(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}/cancel", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodPost:
			h.HandleCancelRun(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Progress stream endpoint: websocket upgrade, takes the raw types
	router.HandleFunc(fmt.Sprintf("/api/v1/runs/{%s}/events", constants.PATH_PARAMETER_RUN_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleStreamEvents(ctx, w, r)
		default:
			resp := NewRespWrapper(w, ctx)
			req := NewRequestWrapper(r)
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Queue endpoint
	router.HandleFunc("/api/v1/queue", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleQueueStatus(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Benchmark catalog endpoints
	router.HandleFunc("/api/v1/benchmarks", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleListBenchmarks(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/benchmarks/{%s}", constants.PATH_PARAMETER_BENCHMARK_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetBenchmark(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Provider catalog endpoints
	router.HandleFunc("/api/v1/providers", func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleListProviders(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	router.HandleFunc(fmt.Sprintf("/api/v1/providers/{%s}", constants.PATH_PARAMETER_PROVIDER_ID), func(w http.ResponseWriter, r *http.Request) {
		ctx := s.newExecutionContext(r)
		resp := NewRespWrapper(w, ctx)
		req := NewRequestWrapper(r)
		switch r.Method {
		case http.MethodGet:
			h.HandleGetProvider(ctx, req, resp)
		default:
			resp.ErrorWithMessageCode(ctx.RequestID, messages.MethodNotAllowed, "Method", req.Method(), "Api", req.URI())
		}
	})

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Enable CORS in local mode only (for development/testing)
	handler := http.Handler(router)
	if s.serviceConfig.Service.LocalMode {
		handler = CorsMiddleware(handler, s.serviceConfig)
	}

	// trace spans for every route, then metrics outermost
	handler = otelhttp.NewHandler(handler, "bench-hub",
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}))
	handler = Middleware(handler)

	return handler, nil
}

// SetupRoutes exposes the route setup for testing
func (s *Server) SetupRoutes() (http.Handler, error) {
	return s.setupRoutes()
}

func (s *Server) Start() error {
	handler, err := s.setupRoutes()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Writing the server ready message", "file", s.serviceConfig.Service.ReadyFile)
	err = SetReady(s.serviceConfig, s.logger)
	if err != nil {
		return err
	}

	s.logger.Info("Server starting", "port", s.port)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server gracefully...")

	return s.httpServer.Shutdown(ctx)
}
