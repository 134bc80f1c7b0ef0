package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/table"
)

func testView() liveView {
	traders := []model.Trader{{ID: "1", Rank: 1, Name: "a"}}
	return leaderboardView{view: table.NewView(table.TraderSchema(), traders, nil)}
}

func TestRegistry_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	r := newRegistry(time.Hour, 2)
	now := time.Now()
	r.now = func() time.Time { return now }

	var sizes []int
	r.onChange = func(n int) { sizes = append(sizes, n) }

	first := r.add(testView())
	now = now.Add(time.Second)
	second := r.add(testView())
	now = now.Add(time.Second)

	// touching first makes second the eviction candidate
	_, err := r.get(first.id)
	require.NoError(t, err)
	now = now.Add(time.Second)
	r.add(testView())

	assert.Equal(t, 2, r.len())
	_, err = r.get(second.id)
	assert.ErrorIs(t, err, errViewNotFound)
	_, err = r.get(first.id)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, sizes)
}

func TestRegistry_IdleTTL(t *testing.T) {
	r := newRegistry(time.Minute, 10)
	now := time.Now()
	r.now = func() time.Time { return now }

	mv := r.add(testView())
	now = now.Add(30 * time.Second)
	_, err := r.get(mv.id)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = r.get(mv.id)
	assert.ErrorIs(t, err, errViewNotFound)
	assert.Equal(t, 0, r.len())
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry(0, 0)
	mv := r.add(testView())
	assert.True(t, r.remove(mv.id))
	assert.False(t, r.remove(mv.id))
}

func TestActionRequest_ToAction(t *testing.T) {
	tests := []struct {
		req     actionRequest
		want    table.Action
		wantErr bool
	}{
		{actionRequest{Type: "sort", Key: "roi"}, table.SortAction{Key: "roi"}, false},
		{actionRequest{Type: "SEARCH", Query: "ann"}, table.SearchAction{Query: "ann"}, false},
		{actionRequest{Type: "tab", Tab: "groups"}, table.TabAction{Tab: table.TabGroups}, false},
		{actionRequest{Type: "timeframe", TimeFrame: "monthly"}, table.TimeFrameAction{TimeFrame: table.Monthly}, false},
		{actionRequest{Type: "open", RecordID: "4"}, table.OpenAction{ID: "4"}, false},
		{actionRequest{Type: "dismiss"}, table.DismissPromptAction{}, false},
		{actionRequest{Type: "sort"}, nil, true},
		{actionRequest{Type: "tab", Tab: "friends"}, nil, true},
		{actionRequest{Type: "jump"}, nil, true},
	}
	for _, tt := range tests {
		got, err := tt.req.toAction()
		if tt.wantErr {
			assert.Error(t, err, tt.req.Type)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
