package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/indexcast/internal/contracts"
)

// historyDateLayouts Yahoo 히스토리 테이블 날짜 포맷
var historyDateLayouts = []string{"Jan 2, 2006", "Jan 02, 2006", "2006-01-02"}

// fetchHistoryPage scrapes the quote history table
func (c *Client) fetchHistoryPage(ctx context.Context, ticker string, from, to time.Time) ([]contracts.Bar, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Add(24*time.Hour).Unix()))
	params.Set("frequency", "1d")
	pageURL := fmt.Sprintf("%s/quote/%s/history/?%s", c.historyURL, url.PathEscape(ticker), params.Encode())

	body, err := c.httpClient.GetBody(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	bars, err := parseHistoryHTML(string(body))
	if err != nil {
		return nil, err
	}

	bars = normalize(bars, from, to)
	if len(bars) == 0 {
		return nil, fmt.Errorf("history page returned no bars in range")
	}
	return bars, nil
}

// parseHistoryHTML parses Date | Open | High | Low | Close | Adj Close | Volume rows
// 배당/분할 행 (셀 7개 미만)은 무시
func parseHistoryHTML(html string) ([]contracts.Bar, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse history html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("history table not found")
	}

	var bars []contracts.Bar
	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 7 {
			return
		}

		date, ok := parseHistoryDate(strings.TrimSpace(cells.Eq(0).Text()))
		if !ok {
			return
		}

		cell := func(i int) (float64, bool) {
			return parseNumber(cells.Eq(i).Text())
		}
		open, ok1 := cell(1)
		high, ok2 := cell(2)
		low, ok3 := cell(3)
		closePrice, ok4 := cell(4)
		if !(ok1 && ok2 && ok3 && ok4) {
			return
		}
		volume, _ := cell(6)

		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: int64(volume),
		})
	})

	return bars, nil
}

func parseHistoryDate(s string) (time.Time, bool) {
	for _, layout := range historyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
