package dedup

import (
	"context"
	"time"

	"sjsage522/listingscout/internal/listing"
	"sjsage522/listingscout/logger"
)

// State is the persisted dedup record: when each listing id was last seen,
// and when the last run finished.
type State struct {
	Seen    map[string]time.Time
	LastRun time.Time
}

// NewState returns an empty state
func NewState() State {
	return State{Seen: make(map[string]time.Time)}
}

// Has reports whether id was seen by an earlier run
func (s State) Has(id string) bool {
	_, ok := s.Seen[id]
	return ok
}

// Clone returns a deep copy
func (s State) Clone() State {
	c := State{Seen: make(map[string]time.Time, len(s.Seen)), LastRun: s.LastRun}
	for id, at := range s.Seen {
		c.Seen[id] = at
	}
	return c
}

// Backend is the persistence substrate of the store. Commit must replace the
// previous state in one step: a reader sees either the old or the new state.
type Backend interface {
	Load(ctx context.Context) (State, error)
	Commit(ctx context.Context, state State) error
}

// Store partitions listings into new and already seen, and persists what it saw.
// It is the only component touching the backend.
type Store struct {
	backend Backend
	log     *logger.Logger
}

// NewStore creates a store over backend
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, log: logger.ForStore()}
}

// Load reads the last committed state. A missing state is empty, not an error.
func (s *Store) Load(ctx context.Context) (State, error) {
	state, err := s.backend.Load(ctx)
	if err != nil {
		return State{}, err
	}
	if state.Seen == nil {
		state.Seen = make(map[string]time.Time)
	}
	s.log.Debug().Int("known", len(state.Seen)).Time("last_run", state.LastRun).Msg("state loaded")
	return state, nil
}

// Diff splits listings by id membership in state. Field changes on a known id
// do not make it new. A repeated id within the batch is new at most once.
func (s *Store) Diff(listings []listing.Listing, state State) (fresh, seen []listing.Listing) {
	batch := make(map[string]bool, len(listings))
	for _, l := range listings {
		if state.Has(l.ID) || batch[l.ID] {
			seen = append(seen, l)
			continue
		}
		batch[l.ID] = true
		fresh = append(fresh, l)
	}
	return fresh, seen
}

// Observe returns a copy of state with every listing marked as seen at `at`
// and LastRun set to `at`. The input state is left untouched.
func (s *Store) Observe(state State, listings []listing.Listing, at time.Time) State {
	next := state.Clone()
	for _, l := range listings {
		next.Seen[l.ID] = at
	}
	next.LastRun = at
	return next
}

// Commit persists state atomically
func (s *Store) Commit(ctx context.Context, state State) error {
	if err := s.backend.Commit(ctx, state); err != nil {
		return err
	}
	s.log.Info().Int("known", len(state.Seen)).Msg("state committed")
	return nil
}
