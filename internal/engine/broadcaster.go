package engine

import (
	"log/slog"
	"sync"

	"github.com/bench-hub/bench-hub/internal/metrics"
	"github.com/bench-hub/bench-hub/pkg/api"
)

// subscriberBuffer is the per-subscriber event channel capacity. A consumer
// that falls further behind than this loses events rather than stalling the
// executor.
const subscriberBuffer = 16

// Broadcaster fans progress events out to per-run subscribers. Publishing
// never blocks: a slow subscriber drops events, the run itself is unaffected.
// Subscriber channels are closed when the run reaches a terminal phase, so
// consumers can range over them.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]map[int]chan api.ProgressEvent
	nextID int
	logger *slog.Logger
}

func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subs:   make(map[string]map[int]chan api.ProgressEvent),
		logger: logger,
	}
}

// Subscribe registers interest in one run's progress stream. The returned
// cancel function is idempotent and must be called when the consumer goes
// away; it closes the channel unless the terminal event already did.
func (b *Broadcaster) Subscribe(runID string) (<-chan api.ProgressEvent, func()) {
	ch := make(chan api.ProgressEvent, subscriberBuffer)

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[runID] == nil {
		b.subs[runID] = make(map[int]chan api.ProgressEvent)
	}
	b.subs[runID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if runSubs, ok := b.subs[runID]; ok {
			if _, live := runSubs[id]; live {
				delete(runSubs, id)
				close(ch)
				if len(runSubs) == 0 {
					delete(b.subs, runID)
				}
			}
		}
	}
	return ch, cancel
}

// Publish delivers an event to every subscriber of its run. On a terminal
// phase the run's subscriber set is torn down after delivery.
func (b *Broadcaster) Publish(event api.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	runSubs := b.subs[event.RunID]
	for _, ch := range runSubs {
		select {
		case ch <- event:
		default:
			metrics.ProgressEventsDropped.Inc()
		}
	}

	if event.Phase.Terminal() && runSubs != nil {
		for _, ch := range runSubs {
			close(ch)
		}
		delete(b.subs, event.RunID)
	}
}

// SubscriberCount reports how many consumers are attached to a run.
func (b *Broadcaster) SubscriberCount(runID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[runID])
}
