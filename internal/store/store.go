// Package store holds the current leaderboard snapshot and refreshes it from
// a source.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/circuitbreaker"
	"github.com/yourorg/trader-leaderboard/internal/fetch"
	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/telemetry"
	"github.com/yourorg/trader-leaderboard/internal/validation"
)

// ErrTraderNotFound is returned for an id the snapshot does not hold.
var ErrTraderNotFound = errors.New("trader not found")

// ErrNotLoaded is returned before the first successful load.
var ErrNotLoaded = errors.New("leaderboard not loaded")

// Snapshot is an immutable, validated trader collection.
type Snapshot struct {
	traders  []model.Trader
	byID     map[string]int
	LoadedAt time.Time
	Source   string
}

// NewSnapshot validates traders and indexes them by id.
func NewSnapshot(traders []model.Trader, source string, loadedAt time.Time) *Snapshot {
	valid := validation.FilterInvalidConcurrently(traders, validation.DefaultValidationOptions())
	validation.AssignTradeRanks(valid)

	byID := make(map[string]int, len(valid))
	for i, t := range valid {
		byID[t.RecordID()] = i
	}
	return &Snapshot{traders: valid, byID: byID, LoadedAt: loadedAt, Source: source}
}

// Len is the number of traders.
func (s *Snapshot) Len() int { return len(s.traders) }

// Traders returns a copy of the collection in source order.
func (s *Snapshot) Traders() []model.Trader {
	out := make([]model.Trader, len(s.traders))
	copy(out, s.traders)
	return out
}

// Trader looks up one trader by id.
func (s *Snapshot) Trader(id string) (model.Trader, error) {
	i, ok := s.byID[id]
	if !ok {
		return model.Trader{}, fmt.Errorf("trader %q: %w", id, ErrTraderNotFound)
	}
	return s.traders[i], nil
}

// Store owns the current snapshot. Readers take a snapshot and keep using
// it; a refresh swaps the pointer and never mutates a published snapshot.
type Store struct {
	source  fetch.Source
	breaker *circuitbreaker.CircuitBreaker
	current atomic.Pointer[Snapshot]
	now     func() time.Time

	onRefresh func(snap *Snapshot, err error)
}

// New creates a store over source. breaker may be nil.
func New(source fetch.Source, breaker *circuitbreaker.CircuitBreaker) *Store {
	return &Store{source: source, breaker: breaker, now: time.Now}
}

// WithRefreshHook registers a callback run after every load attempt.
func (s *Store) WithRefreshHook(hook func(snap *Snapshot, err error)) *Store {
	s.onRefresh = hook
	return s
}

// Breaker returns the guard in front of refreshes, or nil.
func (s *Store) Breaker() *circuitbreaker.CircuitBreaker { return s.breaker }

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Current is Snapshot with an error when nothing has been loaded yet.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}
	return snap, nil
}

// Load reads the source and publishes the first snapshot. It is Refresh
// under another name so callers read naturally at startup.
func (s *Store) Load(ctx context.Context) error {
	return s.Refresh(ctx)
}

// Refresh fetches the source, validates the result and publishes it when
// the breaker accepts it. On failure the previous snapshot stays current.
func (s *Store) Refresh(ctx context.Context) error {
	ctx, span := telemetry.Tracer().Start(ctx, "store.Refresh")
	defer span.End()

	snap, err := s.refresh(ctx)
	telemetry.RecordError(ctx, err)
	if s.onRefresh != nil {
		s.onRefresh(snap, err)
	}
	return err
}

func (s *Store) refresh(ctx context.Context) (*Snapshot, error) {
	traders, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching from %s: %w", s.source.Name(), err)
	}

	snap := NewSnapshot(traders, s.source.Name(), s.now())
	if dropped := len(traders) - snap.Len(); dropped > 0 {
		logrus.WithField("dropped", dropped).Info("Dropped invalid traders")
	}

	if s.breaker != nil {
		if err := s.breaker.Check(snap.traders); err != nil {
			return nil, fmt.Errorf("rejecting snapshot: %w", err)
		}
	} else if snap.Len() == 0 {
		return nil, fmt.Errorf("rejecting snapshot: %w", fetch.ErrNoTraders)
	}

	s.current.Store(snap)
	logrus.WithFields(logrus.Fields{
		"traders": snap.Len(),
		"source":  snap.Source,
	}).Info("Leaderboard snapshot published")
	return snap, nil
}

// Run refreshes every interval until ctx is done. A non-positive interval
// returns immediately.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil {
				logrus.Warnf("Leaderboard refresh failed: %v", err)
			}
		}
	}
}
