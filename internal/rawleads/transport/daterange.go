package transport

import (
	"strings"
	"time"

	"telecall_backend/platform/apperr"
)

const dateOnly = "2006-01-02"

// ParseDateRange parses the optional stats bounds. Each bound accepts RFC 3339
// or a plain date; a plain "to" date covers that whole day.
func ParseDateRange(from, to string) (*time.Time, *time.Time, error) {
	start, err := parseBound(from, false)
	if err != nil {
		return nil, nil, apperr.Validation("from must be RFC 3339 or YYYY-MM-DD").WithDetails(map[string]string{"from": from})
	}
	end, err := parseBound(to, true)
	if err != nil {
		return nil, nil, apperr.Validation("to must be RFC 3339 or YYYY-MM-DD").WithDetails(map[string]string{"to": to})
	}
	if start != nil && end != nil && start.After(*end) {
		return nil, nil, apperr.Validation("from must not be after to")
	}
	return start, end, nil
}

func parseBound(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
