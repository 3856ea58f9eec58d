// Package simapi serves the simulator over HTTP for the web front end.
package simapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"laddersim/internal/domain"
	"laddersim/internal/engine"
	"laddersim/internal/notify"
	"laddersim/internal/store"
)

// Server exposes one simulator session. Every request runs under a single
// mutex, since the engine belongs to one logical user.
type Server struct {
	mu    sync.Mutex
	eng   *engine.Engine
	snaps store.SnapshotStore // nil disables persistence
	hub   *notify.Hub
	log   *slog.Logger
}

// NewServer creates a server around an initialized engine.
func NewServer(eng *engine.Engine, snaps store.SnapshotStore, log *slog.Logger) *Server {
	return &Server{eng: eng, snaps: snaps, hub: notify.NewHub(), log: log}
}

// Hub returns the hub that receives every state change.
func (s *Server) Hub() *notify.Hub { return s.hub }

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("GET /api/dates", s.handleDates)
	mux.HandleFunc("GET /api/ladder", s.handleLadder)
	mux.HandleFunc("GET /api/series/{code}", s.handleSeries)
	mux.HandleFunc("POST /api/orders/deferred", s.handleDeferred)
	mux.HandleFunc("POST /api/orders/conditional", s.handleConditional)
	mux.HandleFunc("DELETE /api/orders/{id}", s.handleCancel)
	mux.HandleFunc("POST /api/sell", s.handleSell)
	mux.HandleFunc("POST /api/advance", s.handleAdvance)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trades", s.handleTrades)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/ws", s.handleWS)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// persist saves the session after a mutation and notifies subscribers. A
// failed save is logged; the in-memory state stays authoritative.
func (s *Server) persist(ctx context.Context, typ string, events []domain.Event) {
	s.hub.Publish(notify.Event{Type: typ, Date: s.eng.CurrentDay(), Events: events})
	if s.snaps == nil {
		return
	}
	if err := s.snaps.Save(ctx, s.eng.Snapshot()); err != nil {
		s.log.Error("saving snapshot", "error", err)
	}
}

func (s *Server) state() StateResponse { return BuildState(s.eng) }

// BuildState assembles the state view of eng.
func BuildState(eng *engine.Engine) StateResponse {
	resp := StateResponse{
		CurrentDate: eng.CurrentDay(),
		Account:     eng.Overview(),
		Holdings:    eng.Holdings(),
		Orders:      eng.Orders(engine.Filter{}),
	}
	if next, ok := eng.NextDay(); ok {
		resp.NextDate = next
		resp.Pending = eng.PendingFor(next)
	}
	if resp.Orders == nil {
		resp.Orders = []domain.ConditionalOrder{}
	}
	return resp
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.state())
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, DatesResponse{Dates: s.eng.Calendar().Days(), Current: s.eng.CurrentDay()})
}

func (s *Server) handleLadder(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := s.eng.CurrentDay()
	if d := r.URL.Query().Get("date"); d != "" {
		nd, err := domain.NormalizeDate(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		date = nd
	}
	days := 0
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = n
	}

	stocks := s.eng.Feed().Filter(date, days)
	if stocks == nil {
		stocks = []domain.LadderStock{}
	}
	writeJSON(w, LadderResponse{Date: date, Days: days, Stocks: stocks})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := strings.TrimSpace(r.PathValue("code"))
	ser, ok := s.eng.Prices().Series(code)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown instrument "+code)
		return
	}

	days := 120
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid days parameter")
			return
		}
		days = min(n, 500)
	}
	end := s.eng.CurrentDay()
	if e := r.URL.Query().Get("end"); e != "" {
		ne, err := domain.NormalizeDate(e)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = ne
	}

	bars := ser.Window(end, days)
	if bars == nil {
		bars = []domain.DailyBar{}
	}
	writeJSON(w, SeriesResponse{Code: ser.Code(), Name: ser.Name(), IsST: ser.Instrument.IsST, Bars: bars})
}

func (s *Server) handleDeferred(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.eng.PlaceDeferredBuy(req.Code, req.Price, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.persist(r.Context(), notify.TypeOrder, nil)
	writeJSONStatus(w, http.StatusCreated, t)
}

func (s *Server) handleConditional(w http.ResponseWriter, r *http.Request) {
	var req OrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	trigger := req.TriggerPrice
	if trigger == 0 {
		p, err := s.eng.LimitUpPrice(req.Code)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		trigger = p
	}
	o, err := s.eng.PlaceConditionalOrder(req.Code, trigger, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.persist(r.Context(), notify.TypeOrder, nil)
	writeJSONStatus(w, http.StatusCreated, o)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.eng.Cancel(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	s.persist(r.Context(), notify.TypeOrder, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		t   domain.Trade
		err error
	)
	if req.Quantity == 0 {
		t, err = s.eng.SellAll(req.Code)
	} else {
		t, err = s.eng.Sell(req.Code, req.Price, req.Quantity)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.persist(r.Context(), notify.TypeOrder, nil)
	writeJSONStatus(w, http.StatusCreated, t)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req AdvanceRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		events []domain.Event
		err    error
	)
	switch {
	case req.Date != "":
		events, err = s.eng.AdvanceToDate(req.Date)
	case req.Step == 1:
		events, err = s.eng.Step()
	case req.Step == -1:
		events, err = s.eng.Back()
	default:
		writeError(w, http.StatusBadRequest, "date or step (+1/-1) required")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.persist(r.Context(), notify.TypeAdvance, events)

	for _, ev := range events {
		s.log.Info("settled", "event", ev.String())
	}
	if events == nil {
		events = []domain.Event{}
	}
	writeJSON(w, AdvanceResponse{CurrentDate: s.eng.CurrentDay(), Events: events})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, s.eng.Summary())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := engine.Filter{
		Status: domain.Status(strings.ToUpper(q.Get("status"))),
		Code:   q.Get("code"),
	}
	if d := q.Get("date"); d != "" {
		nd, err := domain.NormalizeDate(d)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		f.Date = nd
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	resp := HistoryResponse{Trades: s.eng.Trades(f), ConditionOrders: s.eng.Orders(f)}
	if resp.Trades == nil {
		resp.Trades = []domain.Trade{}
	}
	if resp.ConditionOrders == nil {
		resp.ConditionOrders = []domain.ConditionalOrder{}
	}
	writeJSON(w, resp)
}

// handleReset starts over from the initial fund. With ?export=true the
// response body is the archived history.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	export, _ := strconv.ParseBool(r.URL.Query().Get("export"))

	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	var out io.Writer
	if export {
		out = &buf
	}
	if err := s.eng.Reset(out); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persist(r.Context(), notify.TypeReset, nil)

	if export {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="laddersim-`+s.eng.CurrentDay()+`.json"`)
		w.Write(buf.Bytes())
		return
	}
	writeJSON(w, s.state())
}

// handleEvents streams state changes as server-sent events until the client
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	id, ch := s.hub.Subscribe(16)
	defer s.hub.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case e, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				s.log.Error("encoding event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownInstrument), errors.Is(err, domain.ErrUnknownDay):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientPosition),
		errors.Is(err, domain.ErrSettlementCycle),
		errors.Is(err, domain.ErrNoFutureTradingDay),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrMissingPriceBar):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
