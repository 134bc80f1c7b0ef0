package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/trader-leaderboard/internal/aggregate"
	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/table"
)

var errViewNotFound = errors.New("view not found")

// View kinds accepted by POST /api/views.
const (
	kindLeaderboard = "leaderboard"
	kindTrades      = "trades"
)

// liveView hides the record type of a table.View from the registry.
type liveView interface {
	Dispatch(wallet table.WalletContext, action table.Action) table.Result
	Body() viewBody
	HasSortKey(key string) bool
}

// viewBody is the serialized state and rows of a view.
type viewBody struct {
	ID       string            `json:"id,omitempty"`
	Kind     string            `json:"kind"`
	TraderID model.ID          `json:"traderId,omitempty"`
	State    table.State       `json:"state"`
	Columns  []column          `json:"columns"`
	Rows     interface{}       `json:"rows"`
	Summary  aggregate.Summary `json:"summary"`
}

type column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

func columns[T table.Record](schema *table.Schema[T]) []column {
	fields := schema.Fields()
	out := make([]column, 0, len(fields))
	for _, f := range fields {
		out = append(out, column{Key: f.Key, Label: f.Label})
	}
	return out
}

// traderRow is a leaderboard row with its presentation hints.
type traderRow struct {
	model.Trader
	Tier        table.Tier `json:"tier"`
	ShortWallet string     `json:"shortWallet"`
}

func traderRows(traders []model.Trader) []traderRow {
	out := make([]traderRow, 0, len(traders))
	for _, t := range traders {
		t.TokenTrades = nil
		out = append(out, traderRow{Trader: t, Tier: table.TierFor(t.Rank), ShortWallet: t.ShortWallet()})
	}
	return out
}

// tradeRow is a token trade row; Rank is its natural position.
type tradeRow struct {
	model.TokenTrade
	Rank        int    `json:"rank"`
	IsHolding   bool   `json:"isHolding"`
	ShortWallet string `json:"shortWallet"`
}

func tradeRows(trades []model.TokenTrade) []tradeRow {
	out := make([]tradeRow, 0, len(trades))
	for _, t := range trades {
		out = append(out, tradeRow{TokenTrade: t, Rank: t.Rank, IsHolding: t.IsHolding(), ShortWallet: t.ShortWallet()})
	}
	return out
}

type leaderboardView struct {
	view *table.View[model.Trader]
}

func (v leaderboardView) Dispatch(wallet table.WalletContext, a table.Action) table.Result {
	return v.view.Dispatch(wallet, a)
}

func (v leaderboardView) HasSortKey(key string) bool { return v.view.Schema().Has(key) }

func (v leaderboardView) Body() viewBody {
	rows := v.view.Rows()
	return viewBody{
		Kind:    kindLeaderboard,
		State:   v.view.State(),
		Columns: columns(v.view.Schema()),
		Rows:    traderRows(rows),
		Summary: aggregate.Summarize(rows),
	}
}

type tradesView struct {
	traderID model.ID
	view     *table.View[model.TokenTrade]
}

func (v tradesView) Dispatch(wallet table.WalletContext, a table.Action) table.Result {
	return v.view.Dispatch(wallet, a)
}

func (v tradesView) HasSortKey(key string) bool { return v.view.Schema().Has(key) }

func (v tradesView) Body() viewBody {
	rows := v.view.Rows()
	return viewBody{
		Kind:     kindTrades,
		TraderID: v.traderID,
		State:    v.view.State(),
		Columns:  columns(v.view.Schema()),
		Rows:     tradeRows(rows),
		Summary:  aggregate.SummarizeTrades(rows),
	}
}

// managedView serializes events for one view.
type managedView struct {
	mu       sync.Mutex
	id       string
	live     liveView
	lastSeen time.Time
}

func (m *managedView) body() viewBody {
	b := m.live.Body()
	b.ID = m.id
	return b
}

// registry holds live views with an idle TTL and a capacity cap. When full,
// the least recently used view is evicted.
type registry struct {
	mu       sync.Mutex
	views    map[string]*managedView
	ttl      time.Duration
	capacity int
	now      func() time.Time
	onChange func(n int)
}

func newRegistry(ttl time.Duration, capacity int) *registry {
	return &registry{
		views:    make(map[string]*managedView),
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
	}
}

func (r *registry) add(live liveView) *managedView {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)
	for r.capacity > 0 && len(r.views) >= r.capacity {
		r.evictOldestLocked()
	}

	mv := &managedView{id: uuid.NewString(), live: live, lastSeen: now}
	r.views[mv.id] = mv
	r.changedLocked()
	return mv
}

func (r *registry) get(id string) (*managedView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mv, ok := r.views[id]
	if !ok {
		return nil, errViewNotFound
	}
	now := r.now()
	if r.expired(mv, now) {
		delete(r.views, id)
		r.changedLocked()
		return nil, errViewNotFound
	}
	mv.lastSeen = now
	return mv, nil
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[id]; !ok {
		return false
	}
	delete(r.views, id)
	r.changedLocked()
	return true
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func (r *registry) expired(mv *managedView, now time.Time) bool {
	return r.ttl > 0 && now.Sub(mv.lastSeen) > r.ttl
}

func (r *registry) pruneLocked(now time.Time) {
	for id, mv := range r.views {
		if r.expired(mv, now) {
			delete(r.views, id)
		}
	}
}

func (r *registry) evictOldestLocked() {
	var oldest *managedView
	for _, mv := range r.views {
		if oldest == nil || mv.lastSeen.Before(oldest.lastSeen) {
			oldest = mv
		}
	}
	if oldest != nil {
		delete(r.views, oldest.id)
	}
}

func (r *registry) changedLocked() {
	if r.onChange != nil {
		r.onChange(len(r.views))
	}
}
