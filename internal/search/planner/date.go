package planner

import (
	"strings"
	"time"

	"campus_marketplace/platform/apperr"
)

var dateShorthands = map[string]time.Duration{
	"24h": 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"30d": 30 * 24 * time.Hour,
	"90d": 90 * 24 * time.Hour,
}

// ParseDateFrom reads a dateFrom filter. It accepts RFC3339 or one of the
// shorthands 24h, 7d, 30d and 90d, resolved against now and truncated to the
// minute. Blank input means no filter.
func ParseDateFrom(value string, now time.Time) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if d, ok := dateShorthands[strings.ToLower(value)]; ok {
		from := now.UTC().Add(-d).Truncate(time.Minute)
		return &from, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperr.Validation("dateFrom must be RFC3339 or one of 24h, 7d, 30d, 90d").WithDetails(value)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
