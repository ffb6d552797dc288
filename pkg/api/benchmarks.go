package api

// Family identifies the scoring family of a benchmark. Each family defines
// its own comparison between the expected answer and the generated text.
type Family string

const (
	FamilyMultipleChoice Family = "multiple_choice"
	FamilyExactMatch     Family = "exact_match"
	FamilyTruthfulness   Family = "truthfulness"
	FamilyChoiceAB       Family = "choice_ab"
	FamilyNumeric        Family = "numeric"
)

// BenchmarkResource describes one benchmark suite in the corpus catalog.
type BenchmarkResource struct {
	BenchmarkID string `json:"benchmark_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Family      Family `json:"family"`
	Questions   int    `json:"questions"`
}

// BenchmarkResourceList represents response for listing benchmarks
type BenchmarkResourceList struct {
	TotalCount int                 `json:"total_count"`
	Items      []BenchmarkResource `json:"items,omitempty"`
}

// Question is one corpus entry. The corpus guarantees a stable order across
// calls so that sampling the first N questions is deterministic.
type Question struct {
	// Prompt is the fully rendered provider prompt
	Prompt string `json:"prompt"`
	// Expected is the reference answer interpreted by the scoring family
	Expected string `json:"expected"`
	// Choices are the candidate answers for multiple-choice families
	Choices []string `json:"choices,omitempty"`
	// ExpectUncertainty marks truthfulness questions whose correct
	// behavior is to express uncertainty rather than answer.
	ExpectUncertainty bool `json:"expect_uncertainty,omitempty"`
}
