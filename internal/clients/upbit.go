// Package clients contains HTTP clients for the external collaborators:
// the Upbit exchange, the LLM advice provider and the Slack notifier.
package clients

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"upbot/internal/domain"
)

const (
	upbitBaseURL        = "https://api.upbit.com/v1"
	upbitRequestTimeout = 10 * time.Second
)

// ErrUnavailable marks a collaborator that could not be reached or
// returned an error. Callers must treat it as missing data, never as
// stale or zero values.
var ErrUnavailable = errors.New("collaborator unavailable")

// UpbitClient talks to the Upbit REST API. It serves as both the market
// data source and the account/order collaborator.
type UpbitClient struct {
	baseURL    string
	accessKey  string
	secretKey  string
	httpClient *http.Client
}

// NewUpbitClient creates an Upbit API client. Keys may be empty for
// public (market data only) usage.
func NewUpbitClient(accessKey, secretKey string) *UpbitClient {
	return &UpbitClient{
		baseURL:    upbitBaseURL,
		accessKey:  accessKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: upbitRequestTimeout},
	}
}

type tickerResponse struct {
	TradePrice       float64 `json:"trade_price"`
	AccTradeVolume24 float64 `json:"acc_trade_volume_24h"`
}

// CurrentPrice returns the latest trade price for the market.
func (c *UpbitClient) CurrentPrice(ctx context.Context, market string) (decimal.Decimal, error) {
	var tickers []tickerResponse
	if err := c.getPublic(ctx, "/ticker", url.Values{"markets": {market}}, &tickers); err != nil {
		return decimal.Zero, err
	}
	if len(tickers) == 0 {
		return decimal.Zero, errors.Wrapf(ErrUnavailable, "no ticker for market %s", market)
	}
	return decimal.NewFromFloat(tickers[0].TradePrice), nil
}

// Volume24h returns the accumulated 24h trade volume for the market.
func (c *UpbitClient) Volume24h(ctx context.Context, market string) (decimal.Decimal, error) {
	var tickers []tickerResponse
	if err := c.getPublic(ctx, "/ticker", url.Values{"markets": {market}}, &tickers); err != nil {
		return decimal.Zero, err
	}
	if len(tickers) == 0 {
		return decimal.Zero, errors.Wrapf(ErrUnavailable, "no ticker for market %s", market)
	}
	return decimal.NewFromFloat(tickers[0].AccTradeVolume24), nil
}

type candleResponse struct {
	TimeUTC      string  `json:"candle_date_time_utc"`
	OpeningPrice float64 `json:"opening_price"`
	HighPrice    float64 `json:"high_price"`
	LowPrice     float64 `json:"low_price"`
	TradePrice   float64 `json:"trade_price"`
	AccVolume    float64 `json:"candle_acc_trade_volume"`
}

// DayCandles fetches the most recent daily candles in chronological order.
func (c *UpbitClient) DayCandles(ctx context.Context, market string, count int) ([]domain.Candle, error) {
	return c.candles(ctx, "/candles/days", market, count)
}

// MinuteCandles fetches the most recent candles of the given minute
// unit (1, 3, 5, 15, ...) in chronological order.
func (c *UpbitClient) MinuteCandles(ctx context.Context, market string, unit, count int) ([]domain.Candle, error) {
	return c.candles(ctx, fmt.Sprintf("/candles/minutes/%d", unit), market, count)
}

func (c *UpbitClient) candles(ctx context.Context, path, market string, count int) ([]domain.Candle, error) {
	query := url.Values{"market": {market}, "count": {strconv.Itoa(count)}}

	var raw []candleResponse
	if err := c.getPublic(ctx, path, query, &raw); err != nil {
		return nil, err
	}

	candles := make([]domain.Candle, len(raw))
	for i, r := range raw {
		t, err := time.Parse("2006-01-02T15:04:05", r.TimeUTC)
		if err != nil {
			return nil, errors.Wrapf(err, "parse candle time %q", r.TimeUTC)
		}
		candles[i] = domain.Candle{
			Time:   t.UTC(),
			Open:   decimal.NewFromFloat(r.OpeningPrice),
			High:   decimal.NewFromFloat(r.HighPrice),
			Low:    decimal.NewFromFloat(r.LowPrice),
			Close:  decimal.NewFromFloat(r.TradePrice),
			Volume: decimal.NewFromFloat(r.AccVolume),
		}
	}

	// the API returns newest first; summaries expect input order oldest first
	sort.Slice(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })

	return candles, nil
}

type accountResponse struct {
	Currency    string `json:"currency"`
	Balance     string `json:"balance"`
	AvgBuyPrice string `json:"avg_buy_price"`
}

// Holdings returns the raw account balances. An authenticated empty
// list means "no holdings"; transport and API errors wrap
// ErrUnavailable so the two are distinguishable.
func (c *UpbitClient) Holdings(ctx context.Context) ([]domain.RawBalance, error) {
	var raw []accountResponse
	if err := c.doSigned(ctx, http.MethodGet, "/accounts", nil, &raw); err != nil {
		return nil, err
	}

	balances := make([]domain.RawBalance, 0, len(raw))
	for _, r := range raw {
		balance, err := decimal.NewFromString(r.Balance)
		if err != nil {
			return nil, errors.Wrapf(err, "parse balance for %s", r.Currency)
		}
		avgBuyPrice, err := decimal.NewFromString(r.AvgBuyPrice)
		if err != nil {
			return nil, errors.Wrapf(err, "parse avg buy price for %s", r.Currency)
		}
		balances = append(balances, domain.RawBalance{
			Currency:    r.Currency,
			Balance:     balance,
			AvgBuyPrice: avgBuyPrice,
		})
	}

	return balances, nil
}

type orderResponse struct {
	UUID   string `json:"uuid"`
	Market string `json:"market"`
	Volume string `json:"volume"`
	Price  string `json:"price"`
}

// Execute places a market order. Buys spend a cash amount (ord_type
// "price"), sells liquidate an asset quantity (ord_type "market").
func (c *UpbitClient) Execute(ctx context.Context, action domain.Action, amount decimal.Decimal, market string) (*domain.OrderResult, error) {
	params := url.Values{"market": {market}, "identifier": {uuid.NewString()}}
	switch action {
	case domain.ActionBuy:
		params.Set("side", "bid")
		params.Set("ord_type", "price")
		params.Set("price", amount.String())
	case domain.ActionSell:
		params.Set("side", "ask")
		params.Set("ord_type", "market")
		params.Set("volume", amount.String())
	default:
		return nil, errors.Errorf("cannot execute action %s", action)
	}

	var raw orderResponse
	if err := c.doSigned(ctx, http.MethodPost, "/orders", params, &raw); err != nil {
		return nil, err
	}

	result := &domain.OrderResult{OrderID: raw.UUID, Market: raw.Market}
	if raw.Volume != "" {
		volume, err := decimal.NewFromString(raw.Volume)
		if err != nil {
			return nil, errors.Wrap(err, "parse order volume")
		}
		result.Volume = volume
	}
	if raw.Price != "" {
		price, err := decimal.NewFromString(raw.Price)
		if err != nil {
			return nil, errors.Wrap(err, "parse order price")
		}
		result.Price = price
	}

	return result, nil
}

func (c *UpbitClient) getPublic(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

func (c *UpbitClient) doSigned(ctx context.Context, method, path string, params url.Values, out any) error {
	if c.accessKey == "" || c.secretKey == "" {
		return errors.Wrap(ErrUnavailable, "upbit API keys are not configured")
	}

	token, err := c.authToken(params)
	if err != nil {
		return errors.Wrap(err, "sign request")
	}

	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	return c.do(req, out)
}

// authToken builds the JWT Upbit expects: HS256 over the access key, a
// nonce, and a SHA512 hash of the query string when parameters exist.
func (c *UpbitClient) authToken(params url.Values) (string, error) {
	claims := jwt.MapClaims{
		"access_key": c.accessKey,
		"nonce":      uuid.NewString(),
	}

	if len(params) > 0 {
		hash := sha512.Sum512([]byte(params.Encode()))
		claims["query_hash"] = hex.EncodeToString(hash[:])
		claims["query_hash_alg"] = "SHA512"
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.secretKey))
}

func (c *UpbitClient) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "upbit request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(ErrUnavailable, "read upbit response: %v", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return errors.Wrapf(ErrUnavailable, "upbit returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "unmarshal upbit response")
	}

	return nil
}
