package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"chart-terminal/internal/config"
	"chart-terminal/internal/market"
	"chart-terminal/internal/model"
)

// Client fetches historical bars from the remote live-quote API. It is
// the orchestrator's secondary source and fills the freshest gap when the
// primary store falls behind.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a quote API client with connection pooling.
func NewClient(baseURL, apiKey string, log *zap.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        config.HTTPPoolConnections,
		MaxIdleConnsPerHost: config.HTTPPoolMaxSize,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(config.QuoteFetchTimeoutSec * float64(time.Second)),
		},
		log: log,
	}
}

// chartResponse is the provider's chart payload shape.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// intervalFor maps a resolution tier to the provider's interval token.
func intervalFor(r model.Resolution) string {
	switch r {
	case model.ResolutionSecond, model.ResolutionMinute:
		return "1m"
	case model.ResolutionFiveMinute:
		return "5m"
	case model.ResolutionHour:
		return "60m"
	default:
		return "1d"
	}
}

// FetchSeries fetches bars for a symbol in [from, to]. Null bars in the
// payload are skipped and counted as malformed rows; parse failures of
// the payload itself return MalformedError.
func (c *Client) FetchSeries(ctx context.Context, symbol string, resolution model.Resolution, from, to time.Time, limit int) ([]model.PricePoint, error) {
	u := fmt.Sprintf("%s/%s?interval=%s&period1=%d&period2=%d&includePrePost=true",
		c.baseURL, url.PathEscape(symbol), intervalFor(resolution), from.Unix(), to.Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	req.Header.Set("User-Agent", "chart-terminal/1.0")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			c.log.Warn("quote fetch timeout",
				zap.String("symbol", symbol),
				zap.Time("from", from),
				zap.Time("to", to),
				zap.Int("rowBudget", limit))
			return nil, &TimeoutError{Symbol: symbol}
		}
		return nil, fmt.Errorf("quote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &NotFoundError{Symbol: symbol}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("quote API returned HTTP %d: %s", resp.StatusCode, body)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &MalformedError{Symbol: symbol, Reason: err.Error()}
	}
	if payload.Chart.Error != nil {
		if payload.Chart.Error.Code == "Not Found" {
			return nil, &NotFoundError{Symbol: symbol}
		}
		return nil, &MalformedError{Symbol: symbol, Reason: payload.Chart.Error.Description}
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	skipped := 0
	for i, ts := range result.Timestamp {
		// Providers truncate individual arrays independently; a bar is
		// usable only when every OHLC array covers this index.
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) ||
			quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			skipped++
			continue
		}
		p := model.PricePoint{
			Timestamp: ts * 1000,
			Open:      *quote.Open[i],
			High:      *quote.High[i],
			Low:       *quote.Low[i],
			Close:     *quote.Close[i],
			Session:   market.SessionAt(time.Unix(ts, 0)),
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			p.Volume = *quote.Volume[i]
		}
		points = append(points, p)
		if len(points) >= limit {
			break
		}
	}

	if skipped > 0 {
		c.log.Warn("skipped malformed quote bars", zap.String("symbol", symbol), zap.Int("skipped", skipped))
	}
	return points, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
