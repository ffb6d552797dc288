package api

import (
	"fmt"
	"time"
)

// State represents the run lifecycle enum
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

func (s State) String() string {
	return string(s)
}

// Terminal reports whether the state is final. Results of a run in a
// terminal state are immutable.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

func GetState(s string) (State, error) {
	switch s {
	case string(StateQueued):
		return StateQueued, nil
	case string(StateRunning):
		return StateRunning, nil
	case string(StateCompleted):
		return StateCompleted, nil
	case string(StateFailed):
		return StateFailed, nil
	case string(StateCancelled):
		return StateCancelled, nil
	default:
		return State(s), fmt.Errorf("invalid run state: %s", s)
	}
}

// InferenceSettings are the generation parameters for every provider call of
// a run. They are fixed at submission time and never change for the run's
// lifetime.
type InferenceSettings struct {
	Temperature *float32 `json:"temperature,omitempty" validate:"omitempty,gte=0,lte=2"`
	TopP        *float32 `json:"top_p,omitempty" validate:"omitempty,gte=0,lte=1"`
	TopK        *int     `json:"top_k,omitempty" validate:"omitempty,gte=1"`
	MaxTokens   *int     `json:"max_tokens,omitempty" validate:"omitempty,gte=1"`
	Seed        *int     `json:"seed,omitempty"`
}

// RunConfig represents the run submission request schema
type RunConfig struct {
	Provider   string   `json:"provider" validate:"required"`
	Model      string   `json:"model" validate:"required"`
	Benchmarks []string `json:"benchmarks" validate:"required,min=1,dive,required"`
	// SampleSize bounds the questions drawn per benchmark. Unset means
	// every available question.
	SampleSize *int              `json:"sample_size,omitempty" validate:"omitempty,gte=1"`
	Settings   InferenceSettings `json:"inference_settings"`
	BaseURL    string            `json:"base_url,omitempty" validate:"omitempty,url"`
	APIKey     string            `json:"api_key,omitempty"`
}

// BenchmarkResult is the normalized per-benchmark outcome. Every benchmark
// family converges on this shape regardless of how raw answers are scored.
type BenchmarkResult struct {
	BenchmarkID     string  `json:"benchmark_id"`
	QuestionsTested int     `json:"questions_tested"`
	Correct         int     `json:"correct"`
	Score           float64 `json:"score"`
	// Detail carries benchmark family specific display payload, e.g. a
	// refusal rate. Never used for scoring.
	Detail map[string]any `json:"detail,omitempty"`
}

// RunResource represents the run resource response
type RunResource struct {
	Resource
	RunConfig
	Status      State                      `json:"status"`
	StartedAt   *time.Time                 `json:"started_at,omitempty"`
	CompletedAt *time.Time                 `json:"completed_at,omitempty"`
	Results     map[string]BenchmarkResult `json:"results,omitempty"`
	// AggregateScore is the unweighted mean of per-benchmark scores,
	// present once the run is terminal and at least one benchmark finished.
	AggregateScore *float64 `json:"aggregate_score,omitempty"`
	// ErrorMessage is present iff Status == failed
	ErrorMessage string `json:"error,omitempty"`
}

// RunSummary is the listing shape: configuration and outcome without the
// per-benchmark result payloads.
type RunSummary struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	Model          string     `json:"model"`
	Benchmarks     []string   `json:"benchmarks"`
	Status         State      `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	AggregateScore *float64   `json:"aggregate_score,omitempty"`
}

// RunResourceList represents the run listing with pagination
type RunResourceList struct {
	Page
	Items []RunSummary `json:"items"`
}

// SubmitResponse is returned by POST /api/v1/runs
type SubmitResponse struct {
	RunID  string `json:"run_id"`
	Status State  `json:"status"`
}

// CancelResponse is returned by POST /api/v1/runs/{run_id}/cancel
type CancelResponse struct {
	Accepted bool `json:"accepted"`
}

// DeleteRunsRequest is the batch delete request body
type DeleteRunsRequest struct {
	RunIDs []string `json:"run_ids" validate:"required,min=1"`
}

// DeleteResponse reports how many runs were removed
type DeleteResponse struct {
	DeletedCount int `json:"deleted_count"`
}

// QueueStatus reports the worker slot and FIFO backlog
type QueueStatus struct {
	CurrentRunID string   `json:"current_run_id,omitempty"`
	Queued       []string `json:"queued"`
}
