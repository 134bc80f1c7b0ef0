package table

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

func TestFilter(t *testing.T) {
	records := []model.Trader{
		trader(1, 1, "Anna", "9xK3aaaaLm2Q"),
		trader(2, 2, "Bob", "7pQzbbbbWq1T"),
	}
	schema := TraderSchema()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "name substring", query: "ann", want: []string{"Anna"}},
		{name: "case insensitive", query: "BOB", want: []string{"Bob"}},
		{name: "wallet substring", query: "lm2q", want: []string{"Anna"}},
		{name: "empty keeps all", query: "", want: []string{"Anna", "Bob"}},
		{name: "whitespace keeps all", query: "   ", want: []string{"Anna", "Bob"}},
		{name: "no match", query: "zed", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(Filter(schema, records, tt.query)))
		})
	}
}

func TestFilter_Idempotent(t *testing.T) {
	records := []model.Trader{
		trader(1, 1, "Anna", ""),
		trader(2, 2, "Joanna", ""),
		trader(3, 3, "Bob", ""),
	}
	schema := TraderSchema()
	once := Filter(schema, records, "anna")
	twice := Filter(schema, once, "anna")
	assert.Equal(t, once, twice)
	assert.Equal(t, []string{"Anna", "Joanna"}, names(once))
}

func TestFilter_TradesByTokenName(t *testing.T) {
	trades := []model.TokenTrade{
		{ID: "1", Name: "BONK", Wallet: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"},
		{ID: "2", Name: "WIF", Wallet: "EKpQGSJtjMFqKZ9KQanSqYXRcF8fBopzLHYxdM65zcjm"},
	}
	got := Filter(TradeSchema(), trades, "wif")
	if assert.Len(t, got, 1) {
		assert.Equal(t, "WIF", got[0].Name)
	}
}
