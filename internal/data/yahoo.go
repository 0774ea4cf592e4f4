package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"quant-backtest/internal/model"
)

// ErrNoData is returned when a fetch yields no rows at all.
var ErrNoData = errors.New("no data returned")

// APIError represents an error from an upstream data API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string // for rate limit errors
}

func (e *APIError) Error() string {
	return e.Message
}

// newAPIError maps an HTTP status to a typed error.
func newAPIError(resp *http.Response) *APIError {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "UNAUTHORIZED",
			Message:    "Unauthorized: upstream rejected the request credentials",
		}
	case http.StatusNotFound:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "NOT_FOUND",
			Message:    "Requested symbol or resource was not found",
		}
	case http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "RATE_LIMIT_EXCEEDED",
			Message:    fmt.Sprintf("Rate limit exceeded. Retry after: %s", retryAfter),
			RetryAfter: retryAfter,
		}
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "API_ERROR",
			Message:    fmt.Sprintf("API returned status %d: %s", resp.StatusCode, resp.Status),
		}
	}
}

// YahooClient fetches end-of-day bars from the Yahoo Finance chart API.
type YahooClient struct {
	BaseURL string
	Client  *http.Client
	Cache   *ResponseCache[[]model.Bar] // nil disables caching

	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewYahooClient creates a client limited to requestsPerSecond
// (<= 0 means unlimited). If baseURL is empty, defaults to
// "https://query1.finance.yahoo.com".
func NewYahooClient(baseURL string, requestsPerSecond float64, logger *slog.Logger) *YahooClient {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &YahooClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       Meta    `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// Meta is the instrument metadata returned with a chart.
type Meta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	InstrumentType     string  `json:"instrumentType"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	Timezone           string  `json:"exchangeTimezoneName"`
}

func (c *YahooClient) chart(ctx context.Context, ticker string, start, end time.Time) (*chartResult, error) {
	if ticker == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return nil, fmt.Errorf("start must be before end")
	}

	u, err := url.Parse(c.BaseURL + "/v8/finance/chart/" + url.PathEscape(ticker))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("interval", "1d")
	q.Set("events", "div,split")
	if start.IsZero() || end.IsZero() {
		q.Set("range", "5d")
	} else {
		q.Set("period1", fmt.Sprint(start.Unix()))
		q.Set("period2", fmt.Sprint(end.Unix()))
	}
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	began := time.Now()
	resp, err := c.Client.Do(req)
	if err != nil {
		c.logger.Error("yahoo request failed", "ticker", ticker, "err", err, "duration", time.Since(began))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("yahoo response", "ticker", ticker, "status", resp.StatusCode, "duration", time.Since(began))

	if resp.StatusCode != http.StatusOK {
		apiErr := newAPIError(resp)
		c.logger.Error("yahoo error", "ticker", ticker, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	var body chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if e := body.Chart.Error; e != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Code: e.Code, Message: e.Description}
	}
	if len(body.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	return &body.Chart.Result[0], nil
}

// FetchBars returns daily OHLCV bars for ticker in [start, end].
// Rows with a missing close are dropped; a missing adjusted close falls back
// to close.
func (c *YahooClient) FetchBars(ctx context.Context, ticker string, start, end time.Time) ([]model.Bar, error) {
	key := GenerateCacheKey(ticker, start, end)
	if bars, ok := c.Cache.Get(key); ok {
		c.logger.Debug("cache hit", "ticker", ticker, "bars", len(bars))
		return bars, nil
	}

	res, err := c.chart(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(res.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	quote := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	bars := make([]model.Bar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		cl := at(quote.Close, i)
		if cl == nil {
			continue
		}
		b := model.Bar{
			Date:     model.DayKey(time.Unix(ts, 0).UTC()),
			Ticker:   ticker,
			Open:     deref(at(quote.Open, i)),
			High:     deref(at(quote.High, i)),
			Low:      deref(at(quote.Low, i)),
			Close:    *cl,
			AdjClose: *cl,
			Volume:   deref(at(quote.Volume, i)),
		}
		if a := at(adj, i); a != nil {
			b.AdjClose = *a
		}
		bars = append(bars, b)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	c.logger.Info("fetched bars", "ticker", ticker, "bars", len(bars))
	c.Cache.Set(key, bars)
	return bars, nil
}

// FetchEOD fetches every ticker, skipping (and logging) the ones that fail.
// It errors only when no ticker returned data.
func (c *YahooClient) FetchEOD(ctx context.Context, tickers []string, start, end time.Time) ([]model.Bar, error) {
	var all []model.Bar
	for _, t := range tickers {
		bars, err := c.FetchBars(ctx, t, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("no data for ticker", "ticker", t, "err", err)
			continue
		}
		all = append(all, bars...)
	}
	if len(all) == 0 {
		c.logger.Error("no EOD data returned", "tickers", len(tickers))
		return nil, ErrNoData
	}
	model.SortBars(all)
	return all, nil
}

// FetchPrices returns a wide adjusted-close panel on the dates every ticker traded.
func (c *YahooClient) FetchPrices(ctx context.Context, tickers []string, start, end time.Time) (*model.Panel, error) {
	bars, err := c.FetchEOD(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	return model.PivotBars(bars, model.FieldAdjClose)
}

// Meta returns instrument metadata for ticker.
func (c *YahooClient) Meta(ctx context.Context, ticker string) (Meta, error) {
	res, err := c.chart(ctx, ticker, time.Time{}, time.Time{})
	if err != nil {
		return Meta{}, err
	}
	return res.Meta, nil
}

// LatestPrice returns the most recent close for ticker.
func (c *YahooClient) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	m, err := c.Meta(ctx, ticker)
	if err != nil {
		return 0, err
	}
	if m.RegularMarketPrice <= 0 {
		return 0, fmt.Errorf("%s: %w", ticker, ErrNoData)
	}
	return m.RegularMarketPrice, nil
}

func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
