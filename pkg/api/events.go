package api

// Phase represents the progress event phase enum
type Phase string

const (
	PhaseBenchmarkStarted   Phase = "benchmark_started"
	PhaseQuestionScored     Phase = "question_scored"
	PhaseBenchmarkCompleted Phase = "benchmark_completed"
	PhaseRunCompleted       Phase = "run_completed"
	PhaseRunFailed          Phase = "run_failed"
	PhaseRunCancelled       Phase = "run_cancelled"
)

// Terminal reports whether the phase ends the event stream for a run.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseRunCompleted, PhaseRunFailed, PhaseRunCancelled:
		return true
	default:
		return false
	}
}

// ProgressEvent is a transient live-progress notification. Events are pushed
// to subscribers in production order and are never retained for replay; a
// late subscriber polls the run resource for cumulative state instead.
type ProgressEvent struct {
	RunID          string  `json:"run_id"`
	BenchmarkID    string  `json:"benchmark_id,omitempty"`
	QuestionIndex  int     `json:"question_index,omitempty"`
	QuestionsTotal int     `json:"questions_total,omitempty"`
	RunningScore   float64 `json:"running_score_so_far"`
	Phase          Phase   `json:"phase"`
	// Message is only set on run_failed and carries the fatal error text
	Message string `json:"message,omitempty"`
}
