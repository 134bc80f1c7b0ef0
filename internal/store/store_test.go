package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/trader-leaderboard/internal/circuitbreaker"
	"github.com/yourorg/trader-leaderboard/internal/fetch"
	"github.com/yourorg/trader-leaderboard/internal/model"
)

type stubSource struct {
	mu      sync.Mutex
	traders []model.Trader
	err     error
	calls   int
}

func (s *stubSource) Fetch(context.Context) ([]model.Trader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.traders, s.err
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) set(traders []model.Trader, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traders, s.err = traders, err
}

func traders(n int) []model.Trader {
	out := make([]model.Trader, n)
	for i := range out {
		out[i] = model.Trader{ID: model.IntID(i + 1), Rank: i + 1, Name: "t", WinRate: model.NewPercent(50)}
	}
	return out
}

func TestSnapshot(t *testing.T) {
	in := traders(3)
	in = append(in, model.Trader{ID: "", Rank: 9, Name: "invalid"})
	in[0].TokenTrades = []model.TokenTrade{{ID: "7", Name: "A"}, {ID: "8", Name: "B"}}

	snap := NewSnapshot(in, "stub", time.Now())
	assert.Equal(t, 3, snap.Len())

	tr, err := snap.Trader("1")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.TokenTrades[0].Rank)
	assert.Equal(t, 2, tr.TokenTrades[1].Rank)

	_, err = snap.Trader("99")
	assert.ErrorIs(t, err, ErrTraderNotFound)

	copied := snap.Traders()
	copied[0].Name = "mutated"
	again, _ := snap.Trader("1")
	assert.Equal(t, "t", again.Name)
}

func TestStore_LoadAndRefresh(t *testing.T) {
	src := &stubSource{traders: traders(4)}
	var hooks []error
	s := New(src, circuitbreaker.New(circuitbreaker.Thresholds{MinTraders: 1, MaxShrink: 0.5})).
		WithRefreshHook(func(_ *Snapshot, err error) { hooks = append(hooks, err) })

	_, err := s.Current()
	assert.ErrorIs(t, err, ErrNotLoaded)

	require.NoError(t, s.Load(context.Background()))
	first := s.Snapshot()
	require.NotNil(t, first)
	assert.Equal(t, 4, first.Len())

	// shrink beyond the threshold keeps the old snapshot
	src.set(traders(1), nil)
	err = s.Refresh(context.Background())
	require.Error(t, err)
	assert.Same(t, first, s.Snapshot())

	// fetch errors keep the old snapshot too
	src.set(nil, errors.New("offline"))
	require.Error(t, s.Refresh(context.Background()))
	assert.Same(t, first, s.Snapshot())

	assert.Len(t, hooks, 3)
	assert.NoError(t, hooks[0])
}

func TestStore_WithoutBreakerRejectsEmpty(t *testing.T) {
	src := &stubSource{traders: []model.Trader{{ID: "", Name: "invalid"}}}
	s := New(src, nil)

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, fetch.ErrNoTraders)
	assert.Nil(t, s.Snapshot())
}

func TestStore_Run(t *testing.T) {
	src := &stubSource{traders: traders(2)}
	s := New(src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	s.Run(ctx, 10*time.Millisecond)

	src.mu.Lock()
	calls := src.calls
	src.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
	assert.NotNil(t, s.Snapshot())
}

func TestStore_RunDisabled(t *testing.T) {
	src := &stubSource{traders: traders(2)}
	New(src, nil).Run(context.Background(), 0)
	assert.Equal(t, 0, src.calls)
}

func TestSnapshot_TextIDs(t *testing.T) {
	traders, err := fetch.DecodeBytes([]byte(`[
		{"id": "trader-abc", "rank": 1, "name": "Anna"},
		{"id": {"nested": true}, "rank": 2, "name": "no usable id"},
		{"id": 3, "rank": 3, "name": "Cid"}
	]`))
	require.NoError(t, err)

	snap := NewSnapshot(traders, "bytes", time.Now())
	assert.Equal(t, 2, snap.Len())
	tr, err := snap.Trader("trader-abc")
	require.NoError(t, err)
	assert.Equal(t, "Anna", tr.Name)
	_, err = snap.Trader("3")
	assert.NoError(t, err)
}

func TestStore_EmbeddedFixture(t *testing.T) {
	s := New(fetch.NewEmbeddedSource(), circuitbreaker.New(circuitbreaker.DefaultThresholds()))
	require.NoError(t, s.Load(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, 8, snap.Len())
	tr, err := snap.Trader("1")
	require.NoError(t, err)
	assert.Len(t, tr.TokenTrades, 3)
}
