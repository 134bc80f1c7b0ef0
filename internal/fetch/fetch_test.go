package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/model"
)

const twoTraders = `{"traders": [
	{"id": 1, "rank": 1, "name": "Anna", "wallet": "9xK3aaaaLm2Q", "winRate": "40%"},
	{"id": "2", "rank": 2, "name": "Bob", "wallet": "7pQzbbbbWq1T", "winRate": "75%"}
]}`

func TestDecodeBytes(t *testing.T) {
	traders, err := DecodeBytes([]byte(twoTraders))
	require.NoError(t, err)
	require.Len(t, traders, 2)
	assert.Equal(t, model.ID("2"), traders[1].ID)
	assert.Equal(t, model.NewPercent(75), traders[1].WinRate)

	traders, err = DecodeBytes([]byte(`[{"id": 3, "rank": 1, "name": "Cid"}]`))
	require.NoError(t, err)
	assert.Equal(t, "Cid", traders[0].Name)

	_, err = DecodeBytes([]byte(`{"traders": []}`))
	assert.ErrorIs(t, err, ErrNoTraders)

	_, err = DecodeBytes([]byte(`{"traders": [`))
	assert.Error(t, err)
}

func TestDecodeBytes_IDsAndPercentColumns(t *testing.T) {
	doc := `[
		{"id": "trader-abc", "rank": 1, "name": "Anna", "winRate": 1},
		{"id": 2, "rank": 2, "name": "Bob", "winRate": 0.5}
	]`
	traders, err := DecodeBytes([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, model.ID("trader-abc"), traders[0].ID)
	assert.Equal(t, model.ID("2"), traders[1].ID)
	assert.Equal(t, model.NewPercent(100), traders[0].WinRate)
	assert.Equal(t, model.NewPercent(50), traders[1].WinRate)
}

func TestEmbeddedSource(t *testing.T) {
	traders, err := NewEmbeddedSource().Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, traders, 8)
	assert.Equal(t, "Cupsey", traders[0].Name)
	assert.NotEmpty(t, traders[0].TokenTrades)
	assert.False(t, traders[3].Followers.Valid, "N/A followers decode as unknown")
	assert.False(t, traders[5].WinRate.Valid, "-- win rate decodes as malformed")
	assert.Equal(t, model.NewPercent(58), traders[2].WinRate, "fractional win rate")
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traders.json")
	require.NoError(t, os.WriteFile(path, []byte(twoTraders), 0o600))

	traders, err := NewFileSource(path).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, traders, 2)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Fetch(context.Background())
	assert.Error(t, err)
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoTraders))
	}))
	defer srv.Close()

	traders, err := NewHTTPSource(srv.URL, "secret").Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, traders, 2)
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "").WithHTTPClient(srv.Client()).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

type countingSource struct {
	calls atomic.Int32
	err   error
}

func (s *countingSource) Fetch(context.Context) ([]model.Trader, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return []model.Trader{{ID: "1", Rank: 1, Name: "a"}}, nil
}

func (s *countingSource) Name() string { return "counting" }

func TestCachedSource(t *testing.T) {
	inner := &countingSource{}
	cached := NewCachedSource(inner, time.Minute)
	now := time.Now()
	cached.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, err := cached.Fetch(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), inner.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load())

	cached.Invalidate()
	_, err = cached.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestFallbackSource(t *testing.T) {
	failing := &countingSource{err: errors.New("boom")}
	working := &countingSource{}

	traders, err := NewFallbackSource(failing, working).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, traders, 1)

	_, err = NewFallbackSource(failing).Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}

func TestNewSource(t *testing.T) {
	assert.IsType(t, &EmbeddedSource{}, NewSource(config.DataConfig{}))
	assert.IsType(t, &HTTPSource{}, NewSource(config.DataConfig{Source: "https://example.com/traders.json"}))
	assert.IsType(t, &FileSource{}, NewSource(config.DataConfig{Source: "./traders.json"}))
	assert.IsType(t, &CachedSource{}, NewSource(config.DataConfig{CacheTTL: time.Second}))
	assert.IsType(t, &FallbackSource{}, NewSource(config.DataConfig{Source: "./traders.json", Fallback: true}))
}

func TestNewSource_FallsBackToEmbedded(t *testing.T) {
	src := NewSource(config.DataConfig{
		Source:   filepath.Join(t.TempDir(), "missing.json"),
		Fallback: true,
	})
	traders, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, traders, 8)
}
