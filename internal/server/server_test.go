package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/trader-leaderboard/internal/circuitbreaker"
	"github.com/yourorg/trader-leaderboard/internal/config"
	"github.com/yourorg/trader-leaderboard/internal/fetch"
	"github.com/yourorg/trader-leaderboard/internal/store"
	"github.com/yourorg/trader-leaderboard/internal/table"
	"github.com/yourorg/trader-leaderboard/internal/telemetry"
	"github.com/yourorg/trader-leaderboard/internal/wallet"
)

func newTestServer(t *testing.T, mutate ...func(*config.Config)) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Server.RateLimitRPS = 0
	cfg.Wallet.JWTSecret = "test-secret"
	for _, m := range mutate {
		m(&cfg)
	}

	st := store.New(fetch.NewEmbeddedSource(), circuitbreaker.New(circuitbreaker.DefaultThresholds()))
	require.NoError(t, st.Load(context.Background()))
	wallets, err := wallet.NewManager(cfg.Wallet)
	require.NoError(t, err)

	srv, err := New(cfg, st, wallets, telemetry.NewMetrics())
	require.NoError(t, err)
	return srv.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

// connect runs the challenge/sign/connect flow and returns a bearer token.
func connect(t *testing.T, h http.Handler) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	rec := do(t, h, "POST", "/api/wallet/challenge", map[string]string{"address": address}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var c wallet.Challenge
	decode(t, rec, &c)

	sig, err := crypto.Sign(accounts.TextHash([]byte(c.Message)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	rec = do(t, h, "POST", "/api/wallet/connect", map[string]string{
		"address":   address,
		"signature": hexutil.Encode(sig),
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var session wallet.Session
	decode(t, rec, &session)
	return session.Token
}

type rowsBody struct {
	State table.State `json:"state"`
	Rows  []struct {
		ID   int    `json:"id"`
		Rank int    `json:"rank"`
		Name string `json:"name"`
		Tier string `json:"tier"`
	} `json:"rows"`
	Summary struct {
		Traders int `json:"traders"`
	} `json:"summary"`
}

func (b rowsBody) ranks() []int {
	out := make([]int, 0, len(b.Rows))
	for _, r := range b.Rows {
		out = append(out, r.Rank)
	}
	return out
}

func (b rowsBody) ids() []int {
	out := make([]int, 0, len(b.Rows))
	for _, r := range b.Rows {
		out = append(out, r.ID)
	}
	return out
}

func TestHealthAndStatus(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec = do(t, h, "GET", "/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]interface{}
	decode(t, rec, &status)
	assert.Equal(t, "operational", status["status"])
	assert.Equal(t, "closed", status["circuit_state"])
	assert.EqualValues(t, 8, status["snapshot"].(map[string]interface{})["traders"])

	rec = do(t, h, "GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "leaderboard_requests_total")
}

func TestMetricsDisabled(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Server.EnableMetrics = false })
	rec := do(t, h, "GET", "/metrics", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListTraders(t *testing.T) {
	h := newTestServer(t)

	tests := []struct {
		name  string
		query string
		ranks []int
	}{
		{"default rank order", "", []int{1, 2, 3, 4, 5, 6, 7, 8}},
		{"win rate ascending, malformed lowest", "?sort=winRate", []int{6, 7, 4, 5, 3, 8, 2, 1}},
		{"win rate descending", "?sort=winRate&dir=desc", []int{1, 2, 8, 3, 5, 4, 7, 6}},
		{"daily frame", "?timeframe=daily", []int{1, 2, 4}},
		{"search by name", "?q=ANSEM", []int{2}},
		{"groups tab is empty", "?tab=groups", []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, "GET", "/api/traders"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var body rowsBody
			decode(t, rec, &body)
			assert.Equal(t, tt.ranks, body.ranks())
			assert.Equal(t, len(tt.ranks), body.Summary.Traders)
		})
	}

	for _, bad := range []string{"?tab=tokens", "?timeframe=yearly", "?sort=rank&dir=up", "?sort=bogus"} {
		rec := do(t, h, "GET", "/api/traders"+bad, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestListTraders_Tiers(t *testing.T) {
	h := newTestServer(t)
	var body rowsBody
	decode(t, do(t, h, "GET", "/api/traders", nil, ""), &body)

	tiers := make([]string, 0, 4)
	for _, r := range body.Rows[:4] {
		tiers = append(tiers, r.Tier)
	}
	assert.Equal(t, []string{"gold", "silver", "bronze", "none"}, tiers)
}

func TestGetTrader(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "GET", "/api/traders/1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Trader struct {
			Name string `json:"name"`
		} `json:"trader"`
		Trades []struct {
			Rank int `json:"rank"`
		} `json:"trades"`
	}
	decode(t, rec, &detail)
	assert.Equal(t, "Cupsey", detail.Trader.Name)
	require.Len(t, detail.Trades, 3)
	assert.Equal(t, 1, detail.Trades[0].Rank)

	rec = do(t, h, "GET", "/api/traders/99", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var errBody ErrorResponse
	decode(t, rec, &errBody)
	assert.Equal(t, "not_found", errBody.State)
	assert.Equal(t, "error", errBody.Status)

	rec = do(t, h, "GET", "/api/traders/abc", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListTrades(t *testing.T) {
	h := newTestServer(t)

	var body rowsBody
	rec := do(t, h, "GET", "/api/traders/1/trades?tab=tokens", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &body)
	assert.Equal(t, []int{102, 103}, body.ids())

	rec = do(t, h, "GET", "/api/traders/1/trades?q=bonk", nil, "")
	decode(t, rec, &body)
	assert.Equal(t, []int{101}, body.ids())

	rec = do(t, h, "GET", "/api/traders/1/trades?sort=winRate", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type actionBody struct {
	Permitted bool                   `json:"permitted"`
	Prompt    string                 `json:"prompt"`
	Navigate  *table.NavigateRequest `json:"navigate"`
	View      struct {
		ID string `json:"id"`
		rowsBody
	} `json:"view"`
}

func TestViewLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/views", map[string]string{"kind": "leaderboard"}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	actions := "/api/views/" + created.ID + "/actions"

	// disconnected sort: denied, prompt raised, order unchanged
	var res actionBody
	rec = do(t, h, "POST", actions, map[string]string{"type": "sort", "key": "winRate"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.False(t, res.Permitted)
	assert.Equal(t, table.PromptConnectWallet, res.Prompt)
	assert.Equal(t, table.DefaultSort("rank"), res.View.State.Sort)
	require.NotNil(t, res.View.State.Prompt)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, res.View.ranks())

	// unknown columns are rejected before the gate sees them
	rec = do(t, h, "POST", actions, map[string]string{"type": "sort", "key": "bogus"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, h, "GET", "/api/views/"+created.ID, nil, "")
	var current rowsBody
	decode(t, rec, &current)
	assert.Equal(t, table.DefaultSort("rank"), current.State.Sort)

	// tab and time frame are not gated
	rec = do(t, h, "POST", actions, map[string]string{"type": "timeframe", "timeFrame": "weekly"}, "")
	res = actionBody{}
	decode(t, rec, &res)
	assert.True(t, res.Permitted)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, res.View.ranks())

	token := connect(t, h)

	rec = do(t, h, "POST", actions, map[string]string{"type": "sort", "key": "winRate"}, token)
	res = actionBody{}
	decode(t, rec, &res)
	assert.True(t, res.Permitted)
	assert.Empty(t, res.Prompt)
	assert.Equal(t, []int{4, 5, 3, 2, 1}, res.View.ranks())

	rec = do(t, h, "POST", actions, map[string]interface{}{"type": "open", "recordId": 2}, token)
	res = actionBody{}
	decode(t, rec, &res)
	assert.Equal(t, &table.NavigateRequest{Kind: table.TraderKind, ID: "2"}, res.Navigate)

	rec = do(t, h, "POST", actions, map[string]interface{}{"type": "open", "recordId": 99}, token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "POST", actions, map[string]string{"type": "fly"}, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "GET", "/api/views/"+created.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "DELETE", "/api/views/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, h, "GET", "/api/views/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTradesView(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) { c.Views.GatedActions = "none" })

	rec := do(t, h, "POST", "/api/views", map[string]interface{}{"kind": "trades", "traderId": 99}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, "POST", "/api/views", map[string]interface{}{"kind": "trades", "traderId": 1}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	decode(t, rec, &created)

	rec = do(t, h, "POST", "/api/views/"+created.ID+"/actions", map[string]string{"type": "tab", "tab": "tokens"}, "")
	var res actionBody
	decode(t, rec, &res)
	assert.True(t, res.Permitted)
	assert.Equal(t, []int{102, 103}, res.View.ids())

	rec = do(t, h, "POST", "/api/views/"+created.ID+"/actions", map[string]string{"type": "tab", "tab": "traders"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, "POST", "/api/wallet/challenge", map[string]string{"address": "nope"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, "POST", "/api/wallet/disconnect", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := connect(t, h)
	var session map[string]interface{}
	decode(t, do(t, h, "GET", "/api/wallet/session", nil, token), &session)
	assert.Equal(t, true, session["connected"])

	rec = do(t, h, "POST", "/api/wallet/disconnect", nil, token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	decode(t, do(t, h, "GET", "/api/wallet/session", nil, token), &session)
	assert.Equal(t, false, session["connected"])
}

func TestCircuitEndpoints(t *testing.T) {
	h := newTestServer(t)

	var status map[string]interface{}
	decode(t, do(t, h, "GET", "/circuit", nil, ""), &status)
	assert.Equal(t, "closed", status["state"])
	assert.EqualValues(t, 8, status["last_good_trader_count"])

	rec := do(t, h, "POST", "/circuit/reset", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, "POST", "/api/refresh", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestMiddleware(t *testing.T) {
	h := newTestServer(t, func(c *config.Config) {
		c.Server.RateLimitRPS = 1
		c.Server.RateLimitBurst = 1
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/traders", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))

	rec = do(t, h, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestNew_RejectsBadPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Views.GatedActions = "sort,teleport"
	st := store.New(fetch.NewEmbeddedSource(), nil)
	wallets, err := wallet.NewManager(cfg.Wallet)
	require.NoError(t, err)

	_, err = New(cfg, st, wallets, nil)
	assert.Error(t, err)
}
