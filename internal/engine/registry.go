// Package engine implements the run orchestration core: the run registry,
// the FIFO queue manager with its single execution worker, the benchmark
// executor and the progress broadcaster.
package engine

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// Registry holds the canonical state of every run. All mutations to a single
// run are applied under the registry lock, so concurrent readers always see
// an internally consistent snapshot; reads return deep copies so callers can
// never mutate engine state.
//
// The registry writes through to durable storage on creation and on every
// status transition, and reloads persisted runs on start. Runs found in a
// non-terminal state at load time are marked failed: their worker is gone.
type Registry struct {
	mu      sync.RWMutex
	runs    map[string]*api.RunResource
	storage abstractions.Storage
	logger  *slog.Logger
}

func NewRegistry(logger *slog.Logger, storage abstractions.Storage) (*Registry, error) {
	r := &Registry{
		runs:    make(map[string]*api.RunResource),
		storage: storage,
		logger:  logger,
	}
	if storage != nil {
		persisted, err := storage.LoadRuns()
		if err != nil {
			return nil, err
		}
		for i := range persisted {
			run := persisted[i]
			if !run.Status.Terminal() {
				run.Status = api.StateFailed
				run.ErrorMessage = "run interrupted by service restart"
				now := time.Now().UTC()
				run.UpdatedAt = now
				run.CompletedAt = &now
				if err := storage.SaveRun(&run); err != nil {
					logger.Error("Failed to persist interrupted run", "run_id", run.ID, "error", err.Error())
				}
			}
			r.runs[run.ID] = &run
		}
		logger.Info("Registry loaded persisted runs", "count", len(persisted))
	}
	return r, nil
}

// Create registers a new queued run for the validated config and returns its
// generated run ID.
func (r *Registry) Create(config *api.RunConfig) (*api.RunResource, error) {
	now := time.Now().UTC()
	run := &api.RunResource{
		Resource: api.Resource{
			ID:        uuid.New().String(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		RunConfig: *config,
		Status:    api.StateQueued,
	}

	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	r.persist(run)
	r.logger.Info("Run created", "run_id", run.ID, "provider", config.Provider, "model", config.Model)
	return copyRun(run), nil
}

// Get returns a snapshot of one run.
func (r *Registry) Get(id string) (*api.RunResource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, false
	}
	return copyRun(run), true
}

// List returns run summaries, most recent first.
func (r *Registry) List() []api.RunSummary {
	r.mu.RLock()
	summaries := make([]api.RunSummary, 0, len(r.runs))
	for _, run := range r.runs {
		summaries = append(summaries, api.RunSummary{
			ID:             run.ID,
			Provider:       run.Provider,
			Model:          run.Model,
			Benchmarks:     append([]string(nil), run.Benchmarks...),
			Status:         run.Status,
			CreatedAt:      run.CreatedAt,
			StartedAt:      copyTime(run.StartedAt),
			CompletedAt:    copyTime(run.CompletedAt),
			AggregateScore: copyFloat(run.AggregateScore),
		})
	}
	r.mu.RUnlock()

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// MarkRunning transitions a queued run into the running state. Only the
// queue manager calls this, which keeps status transitions single-writer.
func (r *Registry) MarkRunning(id string) bool {
	r.mu.Lock()
	run, ok := r.runs[id]
	if !ok || run.Status != api.StateQueued {
		r.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	run.Status = api.StateRunning
	run.StartedAt = &now
	run.UpdatedAt = now
	snapshot := copyRun(run)
	r.mu.Unlock()

	r.persist(snapshot)
	return true
}

// AppendResult writes one finished benchmark's result into a running run.
// Results are immutable once the run is terminal.
func (r *Registry) AppendResult(id string, result api.BenchmarkResult) bool {
	r.mu.Lock()
	run, ok := r.runs[id]
	if !ok || run.Status.Terminal() {
		r.mu.Unlock()
		return false
	}
	if run.Results == nil {
		run.Results = make(map[string]api.BenchmarkResult)
	}
	run.Results[result.BenchmarkID] = result
	run.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()
	return true
}

// Finalize transitions a run into a terminal state, recording the error
// message for failed runs and the aggregate score when available.
func (r *Registry) Finalize(id string, status api.State, errorMessage string, aggregate *float64) bool {
	if !status.Terminal() {
		return false
	}

	r.mu.Lock()
	run, ok := r.runs[id]
	if !ok || run.Status.Terminal() {
		r.mu.Unlock()
		return false
	}
	now := time.Now().UTC()
	run.Status = status
	run.CompletedAt = &now
	run.UpdatedAt = now
	run.ErrorMessage = errorMessage
	run.AggregateScore = copyFloat(aggregate)
	snapshot := copyRun(run)
	r.mu.Unlock()

	r.persist(snapshot)
	r.logger.Info("Run finalized", "run_id", id, "status", status)
	return true
}

// Delete removes a terminal run. Deleting an unknown or non-terminal run
// removes nothing.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	run, ok := r.runs[id]
	if !ok || !run.Status.Terminal() {
		r.mu.Unlock()
		return false
	}
	delete(r.runs, id)
	r.mu.Unlock()

	if r.storage != nil {
		if _, err := r.storage.DeleteRun(id); err != nil {
			r.logger.Error("Failed to delete persisted run", "run_id", id, "error", err.Error())
		}
	}
	return true
}

// DeleteMany removes every terminal run in ids and reports how many were
// removed. Unknown and non-terminal IDs are skipped, never an error.
func (r *Registry) DeleteMany(ids []string) int {
	count := 0
	for _, id := range ids {
		if r.Delete(id) {
			count++
		}
	}
	return count
}

func (r *Registry) persist(run *api.RunResource) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveRun(run); err != nil {
		// persistence is best-effort; the in-memory registry stays canonical
		r.logger.Error("Failed to persist run", "run_id", run.ID, "error", err.Error())
	}
}

func copyRun(run *api.RunResource) *api.RunResource {
	out := *run
	out.Benchmarks = append([]string(nil), run.Benchmarks...)
	out.StartedAt = copyTime(run.StartedAt)
	out.CompletedAt = copyTime(run.CompletedAt)
	out.AggregateScore = copyFloat(run.AggregateScore)
	if run.Results != nil {
		out.Results = make(map[string]api.BenchmarkResult, len(run.Results))
		for k, v := range run.Results {
			out.Results[k] = v
		}
	}
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}
