package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wonny/indexcast/internal/contracts"
	"github.com/wonny/indexcast/pkg/config"
	"github.com/wonny/indexcast/pkg/httputil"
	"github.com/wonny/indexcast/pkg/logger"
)

// Client handles communication with Yahoo Finance
// ⭐ SSOT: Yahoo Finance 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	historyURL string
}

// NewClient creates a new Yahoo Finance client
func NewClient(httpClient *httputil.Client, cfg config.YahooConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("yahoo"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		historyURL: strings.TrimRight(cfg.HistoryURL, "/"),
	}
}

// Symbol maps aliases such as SPX to the Yahoo ticker
func (c *Client) Symbol(symbol string) string {
	return contracts.CanonicalSymbol(symbol)
}

// FetchDaily returns daily bars in [from, to], oldest first
// 차트 API 실패 시 히스토리 HTML 테이블로 폴백
func (c *Client) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]contracts.Bar, error) {
	ticker := c.Symbol(symbol)
	log := c.logger.WithFields(map[string]interface{}{
		"symbol": ticker,
		"from":   from.Format(contracts.DateLayout),
		"to":     to.Format(contracts.DateLayout),
	})

	bars, chartErr := c.fetchChart(ctx, ticker, from, to)
	if chartErr == nil {
		log.WithField("bars", len(bars)).Info("Fetched daily history from chart API")
		return bars, nil
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", contracts.ErrProvider, ctx.Err())
	}

	log.WithError(chartErr).Warn("Chart API failed, falling back to history page")

	bars, htmlErr := c.fetchHistoryPage(ctx, ticker, from, to)
	if htmlErr != nil {
		return nil, fmt.Errorf("%w: yahoo %s: chart: %v; history page: %v",
			contracts.ErrProvider, ticker, chartErr, htmlErr)
	}

	log.WithField("bars", len(bars)).Info("Fetched daily history from history page")
	return bars, nil
}

// chartURL builds the v8 chart request for a date range
func (c *Client) chartURL(ticker string, from, to time.Time) string {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Add(24*time.Hour).Unix()))
	params.Set("events", "history")
	params.Set("includePrePost", "false")
	return fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())
}

func (c *Client) fetchChart(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	var chart chartResponse
	err := c.httpClient.GetJSON(ctx, c.chartURL(ticker, from, to), &chart)
	if err != nil {
		// 4xx 응답도 chart.error 페이로드를 담고 있음
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.Body != "" {
			return nil, fmt.Errorf("chart status %d: %s", statusErr.StatusCode, statusErr.Body)
		}
		return nil, err
	}
	return chart.bars(from, to)
}

// normalize sorts by date, keeps the last bar per date and applies [from, to]
func normalize(bars []contracts.Bar, from, to time.Time) []contracts.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	fromDay := truncateDay(from)
	toDay := truncateDay(to)

	out := make([]contracts.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Date.Before(fromDay) || b.Date.After(toDay) {
			continue
		}
		// Yahoo 는 장중 마지막 바를 같은 날짜로 한 번 더 보내는 경우가 있음
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
