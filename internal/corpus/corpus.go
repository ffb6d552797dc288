// Package corpus holds the built-in benchmark question sets. The sets are
// embedded so that the engine is runnable without external dataset files;
// ordering within a set is fixed, which makes first-N sampling deterministic.
package corpus

import (
	"fmt"
	"sort"

	"github.com/bench-hub/bench-hub/internal/abstractions"
	"github.com/bench-hub/bench-hub/pkg/api"
)

type benchmark struct {
	resource  api.BenchmarkResource
	questions []api.Question
}

// Corpus is an immutable catalog of benchmarks. Safe for concurrent use.
type Corpus struct {
	benchmarks map[string]benchmark
}

var _ abstractions.Corpus = (*Corpus)(nil)

// NewCorpus returns the built-in corpus.
func NewCorpus() *Corpus {
	c := &Corpus{benchmarks: make(map[string]benchmark)}
	c.register(api.BenchmarkResource{
		BenchmarkID: "mmlu",
		Name:        "MMLU (sample)",
		Description: "Multiple-choice knowledge questions across subjects",
		Family:      api.FamilyMultipleChoice,
	}, mmluQuestions)
	c.register(api.BenchmarkResource{
		BenchmarkID: "truthfulqa",
		Name:        "TruthfulQA (sample)",
		Description: "Measures whether the model expresses uncertainty when it should",
		Family:      api.FamilyTruthfulness,
	}, truthfulQAQuestions)
	c.register(api.BenchmarkResource{
		BenchmarkID: "hellaswag",
		Name:        "HellaSwag (sample)",
		Description: "Commonsense continuation, answered A or B",
		Family:      api.FamilyChoiceAB,
	}, hellaSwagQuestions)
	c.register(api.BenchmarkResource{
		BenchmarkID: "gsm8k_lite",
		Name:        "GSM8K lite",
		Description: "Short arithmetic word problems with a numeric answer",
		Family:      api.FamilyNumeric,
	}, gsm8kQuestions)
	return c
}

func (c *Corpus) register(resource api.BenchmarkResource, questions []api.Question) {
	resource.Questions = len(questions)
	c.benchmarks[resource.BenchmarkID] = benchmark{resource: resource, questions: questions}
}

// Questions returns up to limit questions in the fixed corpus order.
// A limit <= 0 returns every question.
func (c *Corpus) Questions(benchmarkID string, limit int) ([]api.Question, error) {
	b, ok := c.benchmarks[benchmarkID]
	if !ok {
		return nil, fmt.Errorf("unknown benchmark: %s", benchmarkID)
	}
	questions := b.questions
	if limit > 0 && limit < len(questions) {
		questions = questions[:limit]
	}
	// callers must not be able to mutate the corpus
	out := make([]api.Question, len(questions))
	copy(out, questions)
	return out, nil
}

func (c *Corpus) Benchmark(benchmarkID string) (api.BenchmarkResource, bool) {
	b, ok := c.benchmarks[benchmarkID]
	return b.resource, ok
}

func (c *Corpus) List() []api.BenchmarkResource {
	out := make([]api.BenchmarkResource, 0, len(c.benchmarks))
	for _, b := range c.benchmarks {
		out = append(out, b.resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BenchmarkID < out[j].BenchmarkID })
	return out
}
