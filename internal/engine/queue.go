package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/messages"
	"github.com/bench-hub/bench-hub/internal/metrics"
	"github.com/bench-hub/bench-hub/internal/serviceerrors"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// Manager serializes run execution: a single worker goroutine drains a FIFO
// backlog, so at most one run is in the running state at any instant.
// Submission, cancellation and status queries are safe from any goroutine.
type Manager struct {
	registry    *Registry
	executor    *Executor
	broadcaster *Broadcaster
	corpus      abstractions.Corpus
	providers   map[string]api.ProviderResource
	logger      *slog.Logger

	mu            sync.Mutex
	backlog       []string
	currentRunID  string
	cancelCurrent context.CancelFunc

	wake chan struct{}
	done chan struct{}
}

func NewManager(
	registry *Registry,
	executor *Executor,
	broadcaster *Broadcaster,
	corpus abstractions.Corpus,
	providers map[string]api.ProviderResource,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		registry:    registry,
		executor:    executor,
		broadcaster: broadcaster,
		corpus:      corpus,
		providers:   providers,
		logger:      logger,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Start launches the worker goroutine. Cancelling ctx stops the worker after
// the current run finishes its cooperative cancellation.
func (m *Manager) Start(ctx context.Context) {
	go m.work(ctx)
}

// Done is closed once the worker goroutine has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Submit validates a run configuration, registers the run and appends it to
// the backlog. The run executes when every run ahead of it has finished.
func (m *Manager) Submit(config *api.RunConfig) (*api.RunResource, error) {
	if _, ok := m.providers[config.Provider]; !ok {
		return nil, serviceerrors.NewServiceError(messages.UnknownProvider, "ProviderId", config.Provider)
	}
	for _, benchmarkID := range config.Benchmarks {
		if _, ok := m.corpus.Benchmark(benchmarkID); !ok {
			return nil, serviceerrors.NewServiceError(messages.UnknownBenchmark, "BenchmarkId", benchmarkID)
		}
	}

	run, err := m.registry.Create(config)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.backlog = append(m.backlog, run.ID)
	depth := len(m.backlog)
	m.mu.Unlock()
	metrics.QueueDepth.Set(float64(depth))

	select {
	case m.wake <- struct{}{}:
	default:
	}

	m.logger.Info("Run queued", constants.LOG_RUN_ID, run.ID, "queue_depth", depth)
	return run, nil
}

// Cancel requests cancellation of a run. A queued run is removed from the
// backlog and never starts; the running run is signalled to stop at the next
// question boundary. Cancelling a terminal or unknown run is a no-op and
// reports false.
func (m *Manager) Cancel(runID string) bool {
	m.mu.Lock()
	if m.currentRunID == runID && m.cancelCurrent != nil {
		cancel := m.cancelCurrent
		m.mu.Unlock()
		cancel()
		m.logger.Info("Cancellation requested for running run", constants.LOG_RUN_ID, runID)
		return true
	}
	for i, queued := range m.backlog {
		if queued == runID {
			m.backlog = append(m.backlog[:i], m.backlog[i+1:]...)
			depth := len(m.backlog)
			m.mu.Unlock()
			metrics.QueueDepth.Set(float64(depth))
			m.registry.Finalize(runID, api.StateCancelled, "", nil)
			m.broadcaster.Publish(api.ProgressEvent{RunID: runID, Phase: api.PhaseRunCancelled})
			metrics.RunsTotal.WithLabelValues(string(api.StateCancelled)).Inc()
			m.logger.Info("Queued run cancelled", constants.LOG_RUN_ID, runID)
			return true
		}
	}
	m.mu.Unlock()
	return false
}

// Status reports the worker slot occupant and the backlog in FIFO order.
func (m *Manager) Status() api.QueueStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return api.QueueStatus{
		CurrentRunID: m.currentRunID,
		Queued:       append([]string{}, m.backlog...),
	}
}

func (m *Manager) work(ctx context.Context) {
	defer close(m.done)
	for {
		runID, ok := m.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-m.wake:
				continue
			}
		}
		m.execute(ctx, runID)
	}
}

func (m *Manager) pop() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.backlog) == 0 {
		return "", false
	}
	runID := m.backlog[0]
	m.backlog = m.backlog[1:]
	metrics.QueueDepth.Set(float64(len(m.backlog)))
	return runID, true
}

func (m *Manager) execute(ctx context.Context, runID string) {
	run, ok := m.registry.Get(runID)
	if !ok || run.Status != api.StateQueued {
		// cancelled out of the backlog in the window between pop and here
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.currentRunID = runID
	m.cancelCurrent = cancel
	m.mu.Unlock()
	metrics.RunActive.Set(1)

	defer func() {
		cancel()
		m.mu.Lock()
		m.currentRunID = ""
		m.cancelCurrent = nil
		m.mu.Unlock()
		metrics.RunActive.Set(0)
	}()

	if !m.registry.MarkRunning(runID) {
		return
	}
	m.logger.Info("Run started", constants.LOG_RUN_ID, runID)

	finalState := m.executor.Execute(runCtx, run)
	m.logger.Info("Run finished", constants.LOG_RUN_ID, runID, "status", finalState)
}
