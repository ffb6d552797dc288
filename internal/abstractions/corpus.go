package abstractions

import "github.com/bench-hub/bench-hub/pkg/api"

// Corpus exposes the benchmark question sets. Question order is stable
// across calls so that sampling the first N questions is deterministic.
type Corpus interface {
	// Questions returns up to limit questions for the benchmark, in the
	// corpus's fixed order. A limit <= 0 returns every question.
	Questions(benchmarkID string, limit int) ([]api.Question, error)

	// Benchmark returns the catalog entry for one benchmark.
	Benchmark(benchmarkID string) (api.BenchmarkResource, bool)

	// List returns the catalog, ordered by benchmark ID.
	List() []api.BenchmarkResource
}
