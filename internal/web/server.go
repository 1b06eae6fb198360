// Package web exposes a read-only status API over the persisted cycle
// history: recent trades, performance series, current portfolio and a
// live advice stream.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"upbot/internal/domain"
)

const (
	defaultListLimit    = 50
	maxListLimit        = 500
	advicePollInterval  = 2 * time.Second
	adviceHeartbeatRate = 30 * time.Second
)

type historyReader interface {
	RecentTrades(limit int) ([]domain.TradeRecord, error)
	PerformanceSeries(limit int) ([]domain.PerformanceRecord, error)
	LatestPortfolio() ([]domain.RawBalance, error)
}

type adviceReader interface {
	EventsAfter(index uint64) ([]domain.AdviceEventRecord, error)
}

// Server serves the status endpoints. It never writes to the stores.
type Server struct {
	addr    string
	history historyReader
	advices adviceReader
	logger  *zap.Logger
}

// NewServer creates a status server over the given readers.
func NewServer(addr string, history historyReader, advices adviceReader, logger *zap.Logger) *Server {
	return &Server{addr: addr, history: history, advices: advices, logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is
// cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/trades", s.handleTrades)
	mux.HandleFunc("/performance", s.handlePerformance)
	mux.HandleFunc("/portfolio", s.handlePortfolio)
	mux.HandleFunc("/advices/stream", s.handleAdviceStream)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", zap.String("addr", s.addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.history.RecentTrades(listLimit(r))
	if err != nil {
		s.serveError(w, "load trades", err)
		return
	}

	out := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		out = append(out, newTradeView(t))
	}
	writeJSON(w, out)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	series, err := s.history.PerformanceSeries(listLimit(r))
	if err != nil {
		s.serveError(w, "load performance", err)
		return
	}

	out := make([]performanceView, 0, len(series))
	for _, p := range series {
		out = append(out, newPerformanceView(p))
	}
	writeJSON(w, out)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	balances, err := s.history.LatestPortfolio()
	if err != nil {
		s.serveError(w, "load portfolio", err)
		return
	}

	out := make([]balanceView, 0, len(balances))
	for _, b := range balances {
		out = append(out, balanceView{
			Currency:    b.Currency,
			Balance:     b.Balance.String(),
			AvgBuyPrice: b.AvgBuyPrice.String(),
		})
	}
	writeJSON(w, out)
}

// handleAdviceStream pushes journaled advice events over SSE, polling
// the journal for new entries.
func (s *Server) handleAdviceStream(w http.ResponseWriter, r *http.Request) {
	if s.advices == nil {
		http.Error(w, "advice journal not available", http.StatusServiceUnavailable)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	heartbeat := time.NewTicker(adviceHeartbeatRate)
	defer heartbeat.Stop()
	poll := time.NewTicker(advicePollInterval)
	defer poll.Stop()

	lastIndex := uint64(0)
	send := func() error {
		records, err := s.advices.EventsAfter(lastIndex)
		if err != nil {
			return err
		}
		for _, record := range records {
			payload, err := json.Marshal(record.Event)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "event: advice\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
			lastIndex = record.Index
		}
		return nil
	}

	if err := send(); err != nil {
		s.serveError(w, "load advice events", err)
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case <-poll.C:
			if err := send(); err != nil {
				s.logger.Warn("advice stream poll failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) serveError(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, zap.Error(err))
	http.Error(w, msg, http.StatusInternalServerError)
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type tradeView struct {
	Timestamp  time.Time `json:"ts"`
	Action     string    `json:"action"`
	Currency   string    `json:"currency"`
	Amount     string    `json:"amount"`
	Price      string    `json:"price"`
	TotalValue string    `json:"total_value"`
	Reason     string    `json:"reason,omitempty"`
}

func newTradeView(t domain.TradeRecord) tradeView {
	return tradeView{
		Timestamp:  t.Timestamp,
		Action:     t.Action.String(),
		Currency:   t.Currency,
		Amount:     t.Amount.String(),
		Price:      t.Price.String(),
		TotalValue: t.TotalValue.String(),
		Reason:     t.Reason,
	}
}

type performanceView struct {
	Timestamp            time.Time `json:"ts"`
	Profit               string    `json:"profit"`
	ProfitRate           string    `json:"profit_rate"`
	CumulativeProfit     string    `json:"cumulative_profit"`
	CumulativeProfitRate string    `json:"cumulative_profit_rate"`
}

func newPerformanceView(p domain.PerformanceRecord) performanceView {
	return performanceView{
		Timestamp:            p.Timestamp,
		Profit:               p.Profit.String(),
		ProfitRate:           p.ProfitRate.String(),
		CumulativeProfit:     p.CumulativeProfit.String(),
		CumulativeProfitRate: p.CumulativeProfitRate.String(),
	}
}

type balanceView struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	AvgBuyPrice string `json:"avg_buy_price"`
}
