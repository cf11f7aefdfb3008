package contracts

import (
	"context"
	"fmt"
	"time"
)

// DateLayout 날짜 직렬화 포맷 (일봉 기준)
const DateLayout = "2006-01-02"

// Bar 일봉 1개
// ⭐ SSOT: 식별자는 Date, 수신 후 변경하지 않음
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// ValidateBars checks that bars are strictly increasing by date
func ValidateBars(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		prev, cur := bars[i-1].Date, bars[i].Date
		if cur.Equal(prev) {
			return fmt.Errorf("%w: duplicate timestamp %s at index %d",
				ErrMalformedSeries, cur.Format(DateLayout), i)
		}
		if cur.Before(prev) {
			return fmt.Errorf("%w: %s at index %d precedes %s",
				ErrMalformedSeries, cur.Format(DateLayout), i, prev.Format(DateLayout))
		}
	}
	return nil
}

// HistoryProvider yields a time-ordered daily bar series
// ⭐ SSOT: 히스토리 수집 인터페이스 (Yahoo, DB 캐시)
type HistoryProvider interface {
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]Bar, error)
}
