package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yourorg/trader-leaderboard/internal/aggregate"
	"github.com/yourorg/trader-leaderboard/internal/model"
	"github.com/yourorg/trader-leaderboard/internal/store"
	"github.com/yourorg/trader-leaderboard/internal/table"
	"github.com/yourorg/trader-leaderboard/internal/telemetry"
	"github.com/yourorg/trader-leaderboard/internal/wallet"
)

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   Version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(s.startTime).String(),
		"version": Version,
		"views":   s.views.len(),
	}

	if snap := s.store.Snapshot(); snap != nil {
		status["snapshot"] = map[string]interface{}{
			"traders":  snap.Len(),
			"source":   snap.Source,
			"loadedAt": snap.LoadedAt.UTC().Format(time.RFC3339),
		}
	} else {
		status["status"] = "loading"
	}
	if cb := s.store.Breaker(); cb != nil {
		status["circuit_state"] = cb.GetState().String()
	}

	writeJSON(w, http.StatusOK, status)
}

// handleMetrics exposes Prometheus metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Server.EnableMetrics || s.metrics == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Metrics disabled")
		return
	}
	s.metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleCircuitStatus(w http.ResponseWriter, r *http.Request) {
	cb := s.store.Breaker()
	if cb == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Circuit breaker not enabled")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":                  cb.GetState().String(),
		"last_good_trader_count": len(cb.LastGood()),
	})
}

func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	cb := s.store.Breaker()
	if cb == nil {
		errorResponse(w, http.StatusServiceUnavailable, "Circuit breaker not enabled")
		return
	}
	cb.Reset()
	s.metrics.SetBreakerState(int(cb.GetState()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":   cb.GetState().String(),
		"message": "Circuit breaker reset",
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Refresh(r.Context()); err != nil {
		errorResponse(w, http.StatusBadGateway, "Refresh failed: "+err.Error())
		return
	}
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"traders":  snap.Len(),
		"loadedAt": snap.LoadedAt.UTC().Format(time.RFC3339),
	})
}

// listResponse is the body of the stateless list endpoints.
type listResponse struct {
	State    table.State       `json:"state"`
	Columns  []column          `json:"columns"`
	Rows     interface{}       `json:"rows"`
	Summary  aggregate.Summary `json:"summary"`
	Total    int               `json:"total"`
	LoadedAt time.Time         `json:"loadedAt"`
}

func (s *Server) snapshot(w http.ResponseWriter) (*store.Snapshot, bool) {
	snap, err := s.store.Current()
	if err != nil {
		errorResponse(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return snap, true
}

func (s *Server) handleListTraders(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	schema := table.TraderSchema()
	state, err := stateFromQuery(r.URL.Query(), schema)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	_, span := telemetry.Tracer().Start(r.Context(), "table.Query")
	rows := table.Query(schema, snap.Traders(), state)
	span.End()

	writeJSON(w, http.StatusOK, listResponse{
		State:    state,
		Columns:  columns(schema),
		Rows:     traderRows(rows),
		Summary:  aggregate.Summarize(rows),
		Total:    snap.Len(),
		LoadedAt: snap.LoadedAt,
	})
}

// traderDetail is a trader profile: the trader and its trades in natural
// order.
type traderDetail struct {
	Trader  traderRow         `json:"trader"`
	Trades  []tradeRow        `json:"trades"`
	Summary aggregate.Summary `json:"summary"`
}

func (s *Server) lookupTrader(w http.ResponseWriter, r *http.Request) (model.Trader, bool) {
	snap, ok := s.snapshot(w)
	if !ok {
		return model.Trader{}, false
	}
	t, err := snap.Trader(r.PathValue("id"))
	if err != nil {
		notFound(w, err.Error())
		return model.Trader{}, false
	}
	return t, true
}

func (s *Server) handleGetTrader(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTrader(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, traderDetail{
		Trader:  traderRows([]model.Trader{t})[0],
		Trades:  tradeRows(t.TokenTrades),
		Summary: aggregate.SummarizeTrades(t.TokenTrades),
	})
}

func (s *Server) handleListTrades(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookupTrader(w, r)
	if !ok {
		return
	}
	schema := table.TradeSchema()
	state, err := stateFromQuery(r.URL.Query(), schema)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	_, span := telemetry.Tracer().Start(r.Context(), "table.Query")
	rows := table.Query(schema, t.TokenTrades, state)
	span.End()

	writeJSON(w, http.StatusOK, listResponse{
		State:   state,
		Columns: columns(schema),
		Rows:    tradeRows(rows),
		Summary: aggregate.SummarizeTrades(rows),
		Total:   len(t.TokenTrades),
	})
}

// stateFromQuery reads tab, timeframe, q, sort and dir. A sort key without
// a direction sorts ascending.
func stateFromQuery[T table.Record](q url.Values, schema *table.Schema[T]) (table.State, error) {
	state := table.State{
		Sort:      table.DefaultSort(schema.DefaultKey),
		Tab:       schema.DefaultTab(),
		TimeFrame: table.AllTime,
		Query:     strings.TrimSpace(q.Get("q")),
	}

	if v := q.Get("tab"); v != "" {
		tab, err := table.ParseTab(v)
		if err != nil {
			return state, err
		}
		if !schema.HasTab(tab) {
			return state, errors.New("tab " + string(tab) + " is not available here")
		}
		state.Tab = tab
	}
	tf, err := table.ParseTimeFrame(q.Get("timeframe"))
	if err != nil {
		return state, err
	}
	state.TimeFrame = tf

	dir, err := table.ParseDirection(q.Get("dir"))
	if err != nil {
		return state, err
	}
	if key := q.Get("sort"); key != "" {
		if !schema.Has(key) {
			return state, fmt.Errorf("%w %q", table.ErrUnknownSortKey, key)
		}
		if dir == table.None {
			dir = table.Ascending
		}
		state.Sort = table.SortState{Key: key, Direction: dir}
	}
	return state, nil
}

type createViewRequest struct {
	Kind     string   `json:"kind"`
	TraderID model.ID `json:"traderId"`
}

func (s *Server) handleCreateView(w http.ResponseWriter, r *http.Request) {
	var req createViewRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}

	var live liveView
	switch strings.ToLower(req.Kind) {
	case "", kindLeaderboard:
		live = leaderboardView{view: table.NewView(table.TraderSchema(), snap.Traders(), s.gate())}
	case kindTrades:
		t, err := snap.Trader(string(req.TraderID))
		if err != nil {
			notFound(w, err.Error())
			return
		}
		live = tradesView{traderID: req.TraderID, view: table.NewView(table.TradeSchema(), t.TokenTrades, s.gate())}
	default:
		errorResponse(w, http.StatusBadRequest, "Unknown view kind "+strconv.Quote(req.Kind))
		return
	}

	mv := s.views.add(live)
	mv.mu.Lock()
	body := mv.body()
	mv.mu.Unlock()
	writeJSON(w, http.StatusCreated, body)
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	mv, err := s.views.get(r.PathValue("id"))
	if err != nil {
		notFound(w, err.Error())
		return
	}
	mv.mu.Lock()
	body := mv.body()
	mv.mu.Unlock()
	writeJSON(w, http.StatusOK, body)
}

type actionRequest struct {
	Type      string `json:"type"`
	Key       string `json:"key,omitempty"`
	Query     string `json:"query,omitempty"`
	Tab       string `json:"tab,omitempty"`
	TimeFrame string `json:"timeFrame,omitempty"`
	RecordID  model.ID `json:"recordId,omitempty"`
}

func (a actionRequest) toAction() (table.Action, error) {
	switch table.ActionType(strings.ToLower(strings.TrimSpace(a.Type))) {
	case table.ActionSort:
		if a.Key == "" {
			return nil, errors.New("sort action requires a key")
		}
		return table.SortAction{Key: a.Key}, nil
	case table.ActionSearch:
		return table.SearchAction{Query: a.Query}, nil
	case table.ActionTab:
		tab, err := table.ParseTab(a.Tab)
		if err != nil {
			return nil, err
		}
		return table.TabAction{Tab: tab}, nil
	case table.ActionTimeFrame:
		tf, err := table.ParseTimeFrame(a.TimeFrame)
		if err != nil {
			return nil, err
		}
		return table.TimeFrameAction{TimeFrame: tf}, nil
	case table.ActionOpen:
		return table.OpenAction{ID: string(a.RecordID)}, nil
	case table.ActionDismissPrompt:
		return table.DismissPromptAction{}, nil
	}
	return nil, errors.New("unknown action type " + strconv.Quote(a.Type))
}

type actionResponse struct {
	Permitted bool                   `json:"permitted"`
	Prompt    string                 `json:"prompt,omitempty"`
	Navigate  *table.NavigateRequest `json:"navigate,omitempty"`
	View      viewBody               `json:"view"`
}

func (s *Server) handleViewAction(w http.ResponseWriter, r *http.Request) {
	mv, err := s.views.get(r.PathValue("id"))
	if err != nil {
		notFound(w, err.Error())
		return
	}
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	action, err := req.toAction()
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if sa, ok := action.(table.SortAction); ok && !mv.live.HasSortKey(sa.Key) {
		errorResponse(w, http.StatusBadRequest, fmt.Sprintf("%s %q", table.ErrUnknownSortKey, sa.Key))
		return
	}

	caller := s.wallets.FromRequest(r)

	_, span := telemetry.Tracer().Start(r.Context(), "view.Dispatch")
	mv.mu.Lock()
	res := mv.live.Dispatch(caller, action)
	body := mv.body()
	mv.mu.Unlock()
	span.End()

	if res.Err != nil {
		if errors.Is(res.Err, table.ErrRecordNotFound) {
			notFound(w, res.Err.Error())
			return
		}
		errorResponse(w, http.StatusBadRequest, res.Err.Error())
		return
	}

	resp := actionResponse{Permitted: res.Permitted, Navigate: res.Navigate, View: body}
	if res.Prompted {
		resp.Prompt = table.PromptConnectWallet
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if !s.views.remove(r.PathValue("id")) {
		notFound(w, errViewNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletChallenge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	c, err := s.wallets.Challenge(req.Address)
	if err != nil {
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleWalletConnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address   string `json:"address"`
		Signature string `json:"signature"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := s.wallets.Connect(req.Address, req.Signature)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, session)
	case errors.Is(err, wallet.ErrInvalidAddress):
		errorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, wallet.ErrInvalidSignature), errors.Is(err, wallet.ErrChallengeExpired):
		errorResponse(w, http.StatusUnauthorized, err.Error())
	default:
		errorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleWalletDisconnect(w http.ResponseWriter, r *http.Request) {
	token := wallet.BearerToken(r)
	if token == "" {
		errorResponse(w, http.StatusUnauthorized, wallet.ErrUnauthorized.Error())
		return
	}
	if err := s.wallets.Disconnect(token); err != nil {
		errorResponse(w, http.StatusUnauthorized, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletSession(w http.ResponseWriter, r *http.Request) {
	caller := s.wallets.FromRequest(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"connected": caller.Connected(),
		"address":   caller.Address,
	})
}
