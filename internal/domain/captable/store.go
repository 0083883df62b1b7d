package captable

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// State is what listeners and readers observe: the current snapshot,
// whether a refresh is running and the last refresh error, if any.
type State struct {
	Snapshot Snapshot `json:"snapshot"`
	Loading  bool     `json:"loading"`
	Err      string   `json:"error,omitempty"`
}

// Store holds the current cap-table snapshot. Snapshots are replaced
// wholesale, so readers never observe a partially refreshed view.
type Store struct {
	source Source
	logger *slog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	snapshot  Snapshot
	inflight  int
	lastErr   string
	listeners map[int]func(State)
	nextID    int
}

// NewStore creates a store fed by source. The store starts empty; call
// Refresh to load it.
func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		source:    source,
		logger:    logger,
		now:       time.Now,
		snapshot:  Snapshot{Companies: []Company{}, Investments: []Investment{}},
		listeners: map[int]func(State){},
	}
}

// Refresh fetches companies and investments and replaces the snapshot.
// On failure the previous snapshot is kept and the error is recorded.
// Concurrent refreshes are not merged; the last one to finish wins.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()

	companies, err := s.source.FetchCompanies(ctx)
	var investments []Investment
	if err == nil {
		investments, err = s.source.FetchInvestments(ctx)
	}

	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.lastErr = err.Error()
	} else {
		if companies == nil {
			companies = []Company{}
		}
		if investments == nil {
			investments = []Investment{}
		}
		s.snapshot = Snapshot{Companies: companies, Investments: investments, FetchedAt: s.now()}
		s.lastErr = ""
	}
	state := s.stateLocked()
	listeners := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}

	if err != nil {
		s.logger.Warn("cap table refresh failed", "error", err)
		return fmt.Errorf("refreshing cap table: %w", err)
	}
	s.logger.Debug("cap table refreshed", "companies", len(state.Snapshot.Companies), "investments", len(state.Snapshot.Investments))
	return nil
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	return State{Snapshot: s.snapshot, Loading: s.inflight > 0, Err: s.lastErr}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe registers fn to be called after every refresh. The returned
// function removes it.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Company returns the company with id from the current snapshot.
func (s *Store) Company(id uint64) (Company, error) {
	snap := s.Snapshot()
	for _, c := range snap.Companies {
		if c.ID == id {
			return c, nil
		}
	}
	return Company{}, fmt.Errorf("%w: %d", ErrCompanyNotFound, id)
}

// DefaultResubscribeDelay is how long Follow waits before subscribing
// again when no delay is given.
const DefaultResubscribeDelay = 5 * time.Second

// Follow keeps the store current until ctx ends. Whenever the
// subscription to stream fails or ends, the store refreshes to catch up
// on missed events and subscribes again after delay. A stream that never
// subscribes degrades to a refresh every delay.
func (s *Store) Follow(ctx context.Context, stream EventStream, delay time.Duration) {
	if delay <= 0 {
		delay = DefaultResubscribeDelay
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		events, err := stream.WatchEvents(ctx)
		if err == nil {
			s.Watch(ctx, events)
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Debug("contract events unavailable", "error", err, "retry_in", delay)
		} else {
			s.logger.Warn("contract event stream ended, resubscribing", "retry_in", delay)
		}
		// errors are recorded in the state
		_ = s.Refresh(ctx)

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
	}
}

// Watch refreshes the store for every CompanyCreated or InvestmentMade
// event until ctx ends or events is closed.
func (s *Store) Watch(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case EventCompanyCreated, EventInvestmentMade:
				s.logger.Info("contract event", "kind", ev.Kind, "company_id", ev.CompanyID)
				if obs, ok := s.source.(EventObserver); ok {
					obs.Observe(ev)
				}
				// errors are recorded in the state
				_ = s.Refresh(ctx)
			}
		}
	}
}
