package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/internal/config"
	"github.com/bench-hub/bench-hub/internal/constants"
	"github.com/bench-hub/bench-hub/internal/metrics"
	"github.com/bench-hub/bench-hub/internal/scoring"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// Executor runs one benchmark run to completion: it resolves the provider,
// walks every requested benchmark question by question, scores each answer
// and publishes progress. It owns the retry policy for transient provider
// failures; providers themselves never retry.
type Executor struct {
	registry    *Registry
	broadcaster *Broadcaster
	corpus      abstractions.Corpus
	factory     abstractions.ProviderFactory
	providers   map[string]api.ProviderResource
	engineConf  *config.EngineConfig
	logger      *slog.Logger
}

func NewExecutor(
	registry *Registry,
	broadcaster *Broadcaster,
	corpus abstractions.Corpus,
	factory abstractions.ProviderFactory,
	providers map[string]api.ProviderResource,
	engineConf *config.EngineConfig,
	logger *slog.Logger,
) *Executor {
	return &Executor{
		registry:    registry,
		broadcaster: broadcaster,
		corpus:      corpus,
		factory:     factory,
		providers:   providers,
		engineConf:  engineConf,
		logger:      logger,
	}
}

// Execute drives one run from running to a terminal state and returns that
// state. Cancelling ctx stops the run cooperatively at the next question
// boundary; benchmarks already finished keep their results.
func (e *Executor) Execute(ctx context.Context, run *api.RunResource) (finalState api.State) {
	logger := e.logger.With(constants.LOG_RUN_ID, run.ID, constants.LOG_PROVIDER, run.Provider)

	defer func() {
		if r := recover(); r != nil {
			message := fmt.Sprintf("internal error: %v", r)
			logger.Error("Run panicked", "error", message)
			finalState = api.StateFailed
			e.finish(run.ID, api.StateFailed, message, nil)
		}
	}()

	providerConf, ok := e.providers[run.Provider]
	if !ok {
		// submission validates the provider, so this only happens if the
		// provider catalog changed while the run sat in the backlog
		message := fmt.Sprintf("provider %q is no longer configured", run.Provider)
		e.finish(run.ID, api.StateFailed, message, nil)
		return api.StateFailed
	}

	provider, err := e.factory.New(providerConf, &run.RunConfig)
	if err != nil {
		message := fmt.Sprintf("provider setup failed: %v", err)
		logger.Error("Provider setup failed", "error", err.Error())
		e.finish(run.ID, api.StateFailed, message, nil)
		return api.StateFailed
	}

	sample := 0
	if run.SampleSize != nil {
		sample = *run.SampleSize
	}

	var scores []float64
	for _, benchmarkID := range run.Benchmarks {
		if ctx.Err() != nil {
			e.finish(run.ID, api.StateCancelled, "", aggregate(scores))
			return api.StateCancelled
		}

		result, err := e.executeBenchmark(ctx, run, provider, benchmarkID, sample)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				e.finish(run.ID, api.StateCancelled, "", aggregate(scores))
				return api.StateCancelled
			}
			logger.Error("Benchmark failed", constants.LOG_BENCHMARK, benchmarkID, "error", err.Error())
			e.finish(run.ID, api.StateFailed, err.Error(), aggregate(scores))
			return api.StateFailed
		}

		e.registry.AppendResult(run.ID, result)
		scores = append(scores, result.Score)
		total := result.QuestionsTested
		if s, ok := result.Detail["skipped"].(int); ok {
			total += s
		}
		e.broadcaster.Publish(api.ProgressEvent{
			RunID:          run.ID,
			BenchmarkID:    benchmarkID,
			QuestionIndex:  total,
			QuestionsTotal: total,
			RunningScore:   result.Score,
			Phase:          api.PhaseBenchmarkCompleted,
		})
		logger.Info("Benchmark completed",
			constants.LOG_BENCHMARK, benchmarkID,
			"score", result.Score,
			"questions", result.QuestionsTested)
	}

	e.finish(run.ID, api.StateCompleted, "", aggregate(scores))
	return api.StateCompleted
}

// executeBenchmark walks one benchmark's questions. A retryable provider
// failure is retried with exponential backoff up to the configured attempt
// ceiling; a question whose attempts are exhausted, or that hits a fatal
// provider error, is skipped and left out of the tested count entirely.
func (e *Executor) executeBenchmark(
	ctx context.Context,
	run *api.RunResource,
	provider abstractions.Provider,
	benchmarkID string,
	sample int,
) (api.BenchmarkResult, error) {
	benchmark, ok := e.corpus.Benchmark(benchmarkID)
	if !ok {
		return api.BenchmarkResult{}, fmt.Errorf("unknown benchmark %q", benchmarkID)
	}
	questions, err := e.corpus.Questions(benchmarkID, sample)
	if err != nil {
		return api.BenchmarkResult{}, err
	}

	e.broadcaster.Publish(api.ProgressEvent{
		RunID:          run.ID,
		BenchmarkID:    benchmarkID,
		QuestionsTotal: len(questions),
		Phase:          api.PhaseBenchmarkStarted,
	})

	tested := 0
	correct := 0
	skipped := 0
	uncertain := 0
	for i, question := range questions {
		if ctx.Err() != nil {
			return api.BenchmarkResult{}, context.Canceled
		}

		generated, err := e.generateWithRetry(ctx, provider, run, question.Prompt)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return api.BenchmarkResult{}, context.Canceled
			}
			// skipped questions are a gap in the tested count, not a miss
			skipped++
			metrics.QuestionsScored.WithLabelValues(benchmarkID, "skipped").Inc()
			e.logger.Warn("Question skipped",
				constants.LOG_RUN_ID, run.ID,
				constants.LOG_BENCHMARK, benchmarkID,
				"question_index", i+1,
				"error", err.Error())
		} else {
			scored, err := scoring.Score(benchmark.Family, question, generated)
			if err != nil {
				return api.BenchmarkResult{}, fmt.Errorf("scoring %s question %d: %w", benchmarkID, i+1, err)
			}
			tested++
			if scored.Correct {
				correct++
				metrics.QuestionsScored.WithLabelValues(benchmarkID, "correct").Inc()
			} else {
				metrics.QuestionsScored.WithLabelValues(benchmarkID, "incorrect").Inc()
			}
			if v, ok := scored.Detail["expresses_uncertainty"].(bool); ok && v {
				uncertain++
			}
		}

		running := 0.0
		if tested > 0 {
			running = float64(correct) / float64(tested)
		}
		e.broadcaster.Publish(api.ProgressEvent{
			RunID:          run.ID,
			BenchmarkID:    benchmarkID,
			QuestionIndex:  i + 1,
			QuestionsTotal: len(questions),
			RunningScore:   running,
			Phase:          api.PhaseQuestionScored,
		})
	}

	result := api.BenchmarkResult{
		BenchmarkID:     benchmarkID,
		QuestionsTested: tested,
		Correct:         correct,
		Score:           0,
	}
	if tested > 0 {
		result.Score = float64(correct) / float64(tested)
	}
	if skipped > 0 {
		result.Detail = map[string]any{"skipped": skipped}
	}
	if benchmark.Family == api.FamilyTruthfulness && tested > 0 {
		if result.Detail == nil {
			result.Detail = map[string]any{}
		}
		result.Detail["refusal_rate"] = float64(uncertain) / float64(tested)
	}
	return result, nil
}

// generateWithRetry makes the provider call for one question, retrying
// retryable provider failures with exponential backoff. The backoff sleep
// is interruptible by cancellation.
func (e *Executor) generateWithRetry(
	ctx context.Context,
	provider abstractions.Provider,
	run *api.RunResource,
	prompt string,
) (string, error) {
	attempts := e.engineConf.GetRetryAttempts()
	backoff := e.engineConf.GetRetryBackoff()
	timeout := e.engineConf.GetProviderTimeout()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		generated, err := provider.Generate(callCtx, run.Model, prompt, run.Settings)
		cancel()
		metrics.ProviderCallDuration.WithLabelValues(run.Provider).Observe(time.Since(start).Seconds())

		if err == nil {
			return generated, nil
		}
		if ctx.Err() != nil {
			return "", context.Canceled
		}
		lastErr = err

		pe := abstractions.AsProviderError(err)
		if pe == nil || !pe.Retryable() || attempt == attempts {
			break
		}

		metrics.ProviderRetries.WithLabelValues(run.Provider, string(pe.Kind)).Inc()
		select {
		case <-ctx.Done():
			return "", context.Canceled
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return "", lastErr
}

// finish publishes the terminal event and records the terminal state.
func (e *Executor) finish(runID string, status api.State, message string, aggregate *float64) {
	score := 0.0
	if aggregate != nil {
		score = *aggregate
	}

	e.registry.Finalize(runID, status, message, aggregate)

	event := api.ProgressEvent{RunID: runID, RunningScore: score}
	switch status {
	case api.StateCompleted:
		event.Phase = api.PhaseRunCompleted
	case api.StateCancelled:
		event.Phase = api.PhaseRunCancelled
	default:
		event.Phase = api.PhaseRunFailed
		event.Message = message
	}
	e.broadcaster.Publish(event)
	metrics.RunsTotal.WithLabelValues(string(status)).Inc()
}

// aggregate is the unweighted mean of finished benchmark scores, nil when no
// benchmark finished.
func aggregate(scores []float64) *float64 {
	if len(scores) == 0 {
		return nil
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	mean := sum / float64(len(scores))
	return &mean
}
