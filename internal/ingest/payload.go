// Package ingest books transactions that arrive from external feeds, either
// posted to the messaging webhook or consumed from an AMQP queue.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformed marks a payload that can never be booked as sent
var ErrMalformed = errors.New("malformed payload")

// Payload is the receipt summary a feed delivers. Total may be a JSON number
// or a string such as "12.50".
type Payload struct {
	Total    decimal.Decimal `json:"total"`
	Date     string          `json:"date"`
	Merchant string          `json:"merchant"`
}

// ParsePayload decodes a JSON payload
func ParsePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &p, nil
}

// Amount converts the total into the currency's smallest unit, rounding
// half away from zero at the given number of minor digits.
func (p Payload) Amount(minorDigits int32) (int64, error) {
	if !p.Total.IsPositive() {
		return 0, fmt.Errorf("%w: total must be positive, got %s", ErrMalformed, p.Total.String())
	}
	minor := p.Total.Shift(minorDigits).Round(0)
	if !minor.IsPositive() {
		return 0, fmt.Errorf("%w: total %s rounds to zero", ErrMalformed, p.Total.String())
	}
	if minor.GreaterThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("%w: total %s is too large", ErrMalformed, p.Total.String())
	}
	return minor.IntPart(), nil
}

// When parses the payload date, either a calendar day or an RFC3339 instant
func (p Payload) When() (time.Time, error) {
	s := strings.TrimSpace(p.Date)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrMalformed)
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q is neither YYYY-MM-DD nor RFC3339", ErrMalformed, s)
	}
	return t.UTC(), nil
}
