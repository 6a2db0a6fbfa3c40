package social

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// timestampLayouts covers the string formats platforms actually return.
// Tried in order; RFC3339 dominates in practice.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp normalizes a platform timestamp string into absolute time.
// It accepts ISO-8601/RFC3339 variants, RFC1123 dates, and plain UNIX
// seconds (with optional fraction).
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}

	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return FromUnixSeconds(secs), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// FromUnixSeconds converts UNIX seconds (optionally fractional) to time.Time.
func FromUnixSeconds(secs float64) time.Time {
	whole := int64(secs)
	frac := secs - float64(whole)
	return time.Unix(whole, int64(frac*float64(time.Second))).UTC()
}
