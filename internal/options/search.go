package options

import (
	"context"
	"sync"
	"time"
)

// DefaultDebounce is the pause after the last keystroke before a lookup fires.
const DefaultDebounce = 300 * time.Millisecond

// Result is the outcome of one lookup.
type Result[T any] struct {
	Query string
	Items []T
	Err   error
}

// Search debounces search-as-you-type lookups. Only the lookup for the latest
// query is delivered; results of superseded queries are dropped.
type Search[T any] struct {
	fetch func(ctx context.Context, query string) ([]T, error)
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	results chan Result[T]
}

// NewSearch creates a debounced lookup. A zero delay uses DefaultDebounce.
func NewSearch[T any](fetch func(ctx context.Context, query string) ([]T, error), delay time.Duration) *Search[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Search[T]{fetch: fetch, delay: delay, results: make(chan Result[T], 1)}
}

// Results delivers the latest lookup result. Older undelivered results are replaced.
func (s *Search[T]) Results() <-chan Result[T] {
	return s.results
}

// Type records a new query and restarts the debounce window.
func (s *Search[T]) Type(ctx context.Context, query string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() {
		if !s.current(seq) {
			return
		}
		items, err := s.fetch(ctx, query)
		s.deliver(seq, Result[T]{Query: query, Items: items, Err: err})
	})
}

// Stop cancels a pending lookup and drops any in flight.
func (s *Search[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Search[T]) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq
}

func (s *Search[T]) deliver(seq uint64, r Result[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return
	}
	select {
	case <-s.results:
	default:
	}
	s.results <- r
}
