// Package storage persists cycle outcomes: executed trades, per-cycle
// performance and the latest portfolio state.
package storage

import (
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"upbot/internal/domain"
)

const timeLayout = time.RFC3339Nano

// Store is a SQLite-backed persistence layer. Trades and performance
// are append-only; portfolio rows are upserted by currency. Monetary
// values are stored as decimal strings to avoid float drift.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore opens (or creates) the database at path and runs migrations.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode lets the status API read while a cycle is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	logger.Info("sqlite store opened", zap.String("path", path))
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   TEXT NOT NULL,
			action      TEXT NOT NULL,
			currency    TEXT NOT NULL,
			amount      TEXT NOT NULL,
			price       TEXT NOT NULL,
			total_value TEXT NOT NULL,
			reason      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,

		`CREATE TABLE IF NOT EXISTS performance (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp              TEXT NOT NULL,
			profit                 TEXT NOT NULL,
			profit_rate            TEXT NOT NULL,
			cumulative_profit      TEXT NOT NULL,
			cumulative_profit_rate TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_performance_ts ON performance(timestamp)`,

		`CREATE TABLE IF NOT EXISTS portfolio (
			currency         TEXT PRIMARY KEY,
			balance          TEXT NOT NULL,
			avg_buy_price    TEXT NOT NULL,
			total_investment TEXT NOT NULL,
			updated_at       TEXT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(err, "exec migration")
		}
	}
	return nil
}

// RecordCycle persists the outcome of one trading cycle atomically.
// trade is nil on hold cycles; perf is nil when PnL could not be
// computed. The portfolio upsert always runs so the table reflects the
// latest observed state.
func (s *Store) RecordCycle(trade *domain.TradeRecord, perf *domain.PerformanceRecord, snapshot domain.PortfolioSnapshot, cashCurrency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin cycle tx")
	}
	defer tx.Rollback()

	if trade != nil {
		_, err = tx.Exec(`INSERT INTO trades (timestamp, action, currency, amount, price, total_value, reason)
			VALUES (?,?,?,?,?,?,?)`,
			trade.Timestamp.UTC().Format(timeLayout), trade.Action.String(), trade.Currency,
			trade.Amount.String(), trade.Price.String(), trade.TotalValue.String(), trade.Reason)
		if err != nil {
			return errors.Wrap(err, "insert trade")
		}
	}

	if perf != nil {
		_, err = tx.Exec(`INSERT INTO performance (timestamp, profit, profit_rate, cumulative_profit, cumulative_profit_rate)
			VALUES (?,?,?,?,?)`,
			perf.Timestamp.UTC().Format(timeLayout), perf.Profit.String(), perf.ProfitRate.String(),
			perf.CumulativeProfit.String(), perf.CumulativeProfitRate.String())
		if err != nil {
			return errors.Wrap(err, "insert performance")
		}
	}

	now := time.Now().UTC().Format(timeLayout)
	upsert := `INSERT INTO portfolio (currency, balance, avg_buy_price, total_investment, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(currency) DO UPDATE SET
			balance=excluded.balance,
			avg_buy_price=excluded.avg_buy_price,
			total_investment=excluded.total_investment,
			updated_at=excluded.updated_at`

	if _, err = tx.Exec(upsert, cashCurrency, snapshot.CashBalance.String(), "0", "0", now); err != nil {
		return errors.Wrap(err, "upsert cash balance")
	}
	asset := snapshot.TargetAsset
	if _, err = tx.Exec(upsert, asset.Currency, asset.Balance.String(),
		asset.AvgBuyPrice.String(), asset.Investment.String(), now); err != nil {
		return errors.Wrap(err, "upsert asset position")
	}

	return errors.Wrap(tx.Commit(), "commit cycle tx")
}

// LatestPerformance returns the most recent performance row, or nil
// when no cycle has completed yet.
func (s *Store) LatestPerformance() (*domain.PerformanceRecord, error) {
	row := s.db.QueryRow(`SELECT timestamp, profit, profit_rate, cumulative_profit, cumulative_profit_rate
		FROM performance ORDER BY id DESC LIMIT 1`)

	rec, err := scanPerformance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "latest performance")
	}
	return rec, nil
}

// CumulativeBuyInvestment sums total_value across all buy trades. It
// anchors the lifetime profit rate denominator.
func (s *Store) CumulativeBuyInvestment() (decimal.Decimal, error) {
	var raw sql.NullString
	err := s.db.QueryRow(`SELECT SUM(total_value) FROM trades WHERE action = 'buy'`).Scan(&raw)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "sum buy investment")
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return parseDecimal(raw.String)
}

// TradeHistory returns all trades in chronological order.
func (s *Store) TradeHistory() ([]domain.TradeRecord, error) {
	return s.queryTrades(`SELECT timestamp, action, currency, amount, price, total_value, reason
		FROM trades ORDER BY id ASC`)
}

// RecentTrades returns the latest trades, newest first.
func (s *Store) RecentTrades(limit int) ([]domain.TradeRecord, error) {
	return s.queryTrades(`SELECT timestamp, action, currency, amount, price, total_value, reason
		FROM trades ORDER BY id DESC LIMIT ?`, limit)
}

func (s *Store) queryTrades(query string, args ...any) ([]domain.TradeRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query trades")
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var (
			t                               domain.TradeRecord
			ts, action, amount, price, totalValue string
		)
		if err := rows.Scan(&ts, &action, &t.Currency, &amount, &price, &totalValue, &t.Reason); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		if t.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, errors.Wrap(err, "parse trade timestamp")
		}
		parsed, ok := domain.ActionFromString(action)
		if !ok {
			return nil, errors.Errorf("unknown trade action %q", action)
		}
		t.Action = parsed
		if t.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if t.Price, err = parseDecimal(price); err != nil {
			return nil, err
		}
		if t.TotalValue, err = parseDecimal(totalValue); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, errors.Wrap(rows.Err(), "iterate trades")
}

// PerformanceSeries returns the latest performance rows, newest first.
func (s *Store) PerformanceSeries(limit int) ([]domain.PerformanceRecord, error) {
	rows, err := s.db.Query(`SELECT timestamp, profit, profit_rate, cumulative_profit, cumulative_profit_rate
		FROM performance ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query performance")
	}
	defer rows.Close()

	var series []domain.PerformanceRecord
	for rows.Next() {
		rec, err := scanPerformance(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan performance")
		}
		series = append(series, *rec)
	}
	return series, errors.Wrap(rows.Err(), "iterate performance")
}

// LatestPortfolio returns the stored portfolio rows.
func (s *Store) LatestPortfolio() ([]domain.RawBalance, error) {
	rows, err := s.db.Query(`SELECT currency, balance, avg_buy_price FROM portfolio ORDER BY currency`)
	if err != nil {
		return nil, errors.Wrap(err, "query portfolio")
	}
	defer rows.Close()

	var balances []domain.RawBalance
	for rows.Next() {
		var (
			b                    domain.RawBalance
			balance, avgBuyPrice string
		)
		if err := rows.Scan(&b.Currency, &balance, &avgBuyPrice); err != nil {
			return nil, errors.Wrap(err, "scan portfolio")
		}
		if b.Balance, err = parseDecimal(balance); err != nil {
			return nil, err
		}
		if b.AvgBuyPrice, err = parseDecimal(avgBuyPrice); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, errors.Wrap(rows.Err(), "iterate portfolio")
}

// Close closes the database.
func (s *Store) Close() error {
	s.logger.Info("closing sqlite store")
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerformance(row rowScanner) (*domain.PerformanceRecord, error) {
	var (
		rec                                      domain.PerformanceRecord
		ts, profit, rate, cumProfit, cumRate string
	)
	if err := row.Scan(&ts, &profit, &rate, &cumProfit, &cumRate); err != nil {
		return nil, err
	}

	var err error
	if rec.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return nil, errors.Wrap(err, "parse performance timestamp")
	}
	if rec.Profit, err = parseDecimal(profit); err != nil {
		return nil, err
	}
	if rec.ProfitRate, err = parseDecimal(rate); err != nil {
		return nil, err
	}
	if rec.CumulativeProfit, err = parseDecimal(cumProfit); err != nil {
		return nil, err
	}
	if rec.CumulativeProfitRate, err = parseDecimal(cumRate); err != nil {
		return nil, err
	}
	return &rec, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse decimal %q", raw)
	}
	return d, nil
}
