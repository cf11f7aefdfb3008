package yahoo

import (
	"fmt"
	"time"

	"github.com/wonny/indexcast/internal/contracts"
)

// chartResponse is the response structure from Yahoo Finance chart API
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				Currency  string `json:"currency"`
				GMTOffset int64  `json:"gmtoffset"`
				Timezone  string `json:"exchangeTimezoneName"`
			} `json:"meta"`
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

// bars converts the payload to daily bars; null closes (holidays) are skipped
func (r *chartResponse) bars(from, to time.Time) ([]contracts.Bar, error) {
	if r.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", r.Chart.Error.Code, r.Chart.Error.Description)
	}
	if len(r.Chart.Result) == 0 || len(r.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("chart returned no data")
	}

	result := r.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart returned no quote block")
	}
	quote := result.Indicators.Quote[0]

	bars := make([]contracts.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c == nil {
			continue
		}
		// 거래소 현지 날짜 기준 (^GSPC 09:30 ET 타임스탬프)
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		bars = append(bars, contracts.Bar{
			Date:   truncateDay(local),
			Open:   orDefault(at(quote.Open, i), *c),
			High:   orDefault(at(quote.High, i), *c),
			Low:    orDefault(at(quote.Low, i), *c),
			Close:  *c,
			Volume: int64(orDefault(at(quote.Volume, i), 0)),
		})
	}

	bars = normalize(bars, from, to)
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart returned no bars in range")
	}
	return bars, nil
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
