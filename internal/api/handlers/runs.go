package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"quant-backtest/internal/backtest"
	"quant-backtest/internal/model"
)

// Run is a completed backtest kept for later retrieval.
type Run struct {
	ID       string
	Strategy string
	Prices   *model.Panel
	Result   *backtest.Result
	Created  time.Time
}

// RunStore keeps completed runs in memory until they expire.
type RunStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	runs   map[string]*Run
	latest string
	now    func() time.Time
}

// NewRunStore creates a store whose entries live for ttl.
func NewRunStore(ttl time.Duration) *RunStore {
	return &RunStore{
		ttl:  ttl,
		runs: make(map[string]*Run),
		now:  time.Now,
	}
}

// Put stores a result and returns its new ID.
func (s *RunStore) Put(strategy string, prices *model.Panel, res *backtest.Result) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()

	run := &Run{
		ID:       uuid.NewString(),
		Strategy: strategy,
		Prices:   prices,
		Result:   res,
		Created:  s.now(),
	}
	s.runs[run.ID] = run
	s.latest = run.ID
	return run
}

// Get returns a run that has not expired.
func (s *RunStore) Get(id string) (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()
	run, ok := s.runs[id]
	return run, ok
}

// Latest returns the most recently stored run, if it is still live.
func (s *RunStore) Latest() (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()
	run, ok := s.runs[s.latest]
	return run, ok
}

// Len returns the number of live runs.
func (s *RunStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict()
	return len(s.runs)
}

// evict must be called with mu held.
func (s *RunStore) evict() {
	now := s.now()
	for id, run := range s.runs {
		if now.Sub(run.Created) > s.ttl {
			delete(s.runs, id)
		}
	}
}
