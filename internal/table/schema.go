package table

import (
	"strings"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// Record is the accessor set every table row exposes regardless of kind.
type Record interface {
	RecordID() string
	RecordRank() int
}

// Field is one sortable column.
type Field[T Record] struct {
	Key   string
	Label string
	Value func(T) Value
}

// Schema describes how a record kind is sorted, searched and scoped.
type Schema[T Record] struct {
	Kind       string
	DefaultKey string
	Tabs       []Tab

	fields     map[string]Field[T]
	order      []string
	searchable []func(T) string
	activity   func(T) model.Minutes
	inTab      func(Tab, T) bool
}

// NewSchema creates an empty schema. Fields, searchable extractors and
// scoping hooks are added with the builder methods.
func NewSchema[T Record](kind, defaultKey string, tabs ...Tab) *Schema[T] {
	return &Schema[T]{
		Kind:       kind,
		DefaultKey: defaultKey,
		Tabs:       tabs,
		fields:     make(map[string]Field[T]),
	}
}

// WithField registers a sortable column. Registration order is the display
// order.
func (s *Schema[T]) WithField(key, label string, value func(T) Value) *Schema[T] {
	if _, exists := s.fields[key]; !exists {
		s.order = append(s.order, key)
	}
	s.fields[key] = Field[T]{Key: key, Label: label, Value: value}
	return s
}

// WithSearch designates a field as searchable by the free-text filter.
func (s *Schema[T]) WithSearch(extract func(T) string) *Schema[T] {
	s.searchable = append(s.searchable, extract)
	return s
}

// WithActivity sets the "minutes since last trade" accessor used for
// time-frame scoping.
func (s *Schema[T]) WithActivity(activity func(T) model.Minutes) *Schema[T] {
	s.activity = activity
	return s
}

// WithTabScope sets the predicate deciding which records a tab shows.
func (s *Schema[T]) WithTabScope(inTab func(Tab, T) bool) *Schema[T] {
	s.inTab = inTab
	return s
}

// Has reports whether key names a sortable column.
func (s *Schema[T]) Has(key string) bool {
	_, ok := s.fields[key]
	return ok
}

// Field returns the column registered under key.
func (s *Schema[T]) Field(key string) (Field[T], bool) {
	f, ok := s.fields[key]
	return f, ok
}

// Fields returns the columns in display order.
func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.fields[k])
	}
	return out
}

// HasTab reports whether the schema offers tab.
func (s *Schema[T]) HasTab(tab Tab) bool {
	for _, t := range s.Tabs {
		if t == tab {
			return true
		}
	}
	return false
}

// DefaultTab is the first tab offered by the schema.
func (s *Schema[T]) DefaultTab() Tab {
	if len(s.Tabs) == 0 {
		return ""
	}
	return s.Tabs[0]
}

// Scope keeps the records shown under tab within the time frame. The result
// is a new slice in the original order.
func (s *Schema[T]) Scope(records []T, tab Tab, tf TimeFrame) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if s.inTab != nil && !s.inTab(tab, r) {
			continue
		}
		if s.activity != nil && !tf.Contains(s.activity(r)) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// TraderKind and TradeKind name the two record kinds.
const (
	TraderKind = "traders"
	TradeKind  = "trades"
)

// TraderSchema is the leaderboard table: ranked traders.
func TraderSchema() *Schema[model.Trader] {
	return NewSchema[model.Trader](TraderKind, "rank", TabTraders, TabGroups).
		WithField("rank", "Rank", func(t model.Trader) Value { return Number(float64(t.Rank)) }).
		WithField("name", "Trader", func(t model.Trader) Value { return Text(t.Name) }).
		WithField("followers", "Followers", func(t model.Trader) Value { return FromCount(t.Followers) }).
		WithField("tokens", "Tokens", func(t model.Trader) Value { return FromCount(t.Tokens) }).
		WithField("winRate", "Win Rate", func(t model.Trader) Value { return FromPercent(t.WinRate) }).
		WithField("trades", "Trades", func(t model.Trader) Value { return FromTrades(t.Trades) }).
		WithField("avgBuy", "Avg Buy", func(t model.Trader) Value { return FromAmount(t.AvgBuy) }).
		WithField("avgEntry", "Avg Entry", func(t model.Trader) Value { return FromMoney(t.AvgEntry) }).
		WithField("avgHold", "Avg Hold", func(t model.Trader) Value { return FromMinutes(t.AvgHold) }).
		WithField("realizedPNL", "Realized PNL", func(t model.Trader) Value { return FromPNL(t.RealizedPNL) }).
		WithField("totalInvested", "Invested", func(t model.Trader) Value { return FromAmount(t.TotalInvested) }).
		WithField("roi", "ROI", func(t model.Trader) Value { return FromPercent(t.ROI) }).
		WithField("lastTrade", "Last Trade", func(t model.Trader) Value { return FromMinutes(t.LastTrade) }).
		WithSearch(func(t model.Trader) string { return t.Name }).
		WithSearch(func(t model.Trader) string { return t.Wallet }).
		WithActivity(func(t model.Trader) model.Minutes { return t.LastTrade }).
		WithTabScope(func(tab Tab, _ model.Trader) bool { return tab == TabTraders })
}

// TradeSchema is a trader's per-token trade table.
func TradeSchema() *Schema[model.TokenTrade] {
	return NewSchema[model.TokenTrade](TradeKind, "lastTrade", TabTrades, TabTokens, TabGroups).
		WithField("name", "Token", func(t model.TokenTrade) Value { return Text(t.Name) }).
		WithField("lastTrade", "Last Trade", func(t model.TokenTrade) Value { return FromMinutes(t.LastTrade) }).
		WithField("mc", "MC", func(t model.TokenTrade) Value { return FromMoney(t.MarketCap) }).
		WithField("invested", "Invested", func(t model.TokenTrade) Value { return FromAmount(t.Invested) }).
		WithField("realizedPNL", "Realized PNL", func(t model.TokenTrade) Value { return FromPNL(t.RealizedPNL) }).
		WithField("roi", "ROI", func(t model.TokenTrade) Value { return FromPercent(t.ROI) }).
		WithField("trades", "Trades", func(t model.TokenTrade) Value { return FromTrades(t.Trades) }).
		WithField("holding", "Holding", func(t model.TokenTrade) Value { return FromAmount(t.Holding) }).
		WithField("avgBuy", "Avg Buy", func(t model.TokenTrade) Value { return FromMoney(t.AvgBuy) }).
		WithField("avgSell", "Avg Sell", func(t model.TokenTrade) Value { return FromMoney(t.AvgSell) }).
		WithField("held", "Held", func(t model.TokenTrade) Value { return FromMinutes(t.Held) }).
		WithSearch(func(t model.TokenTrade) string { return t.Name }).
		WithSearch(func(t model.TokenTrade) string { return t.Wallet }).
		WithActivity(func(t model.TokenTrade) model.Minutes { return t.LastTrade }).
		WithTabScope(func(tab Tab, t model.TokenTrade) bool {
			switch tab {
			case TabTrades:
				return true
			case TabTokens:
				return t.IsHolding()
			}
			return false
		})
}

// searchText returns the case-folded searchable fields of a record.
func (s *Schema[T]) searchText(r T) []string {
	out := make([]string, 0, len(s.searchable))
	for _, extract := range s.searchable {
		out = append(out, strings.ToLower(extract(r)))
	}
	return out
}
