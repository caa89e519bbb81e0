package utils

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a Go duration ("5m") or integer milliseconds ("300000").
// An empty string yields fallback.
func ParseDuration(d string, fallback time.Duration) (time.Duration, error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return fallback, nil
	}
	if ms, err := strconv.ParseInt(d, 10, 64); err == nil {
		if ms < 0 {
			return 0, fmt.Errorf("duration must not be negative: %s", d)
		}
		return time.Duration(ms) * time.Millisecond, nil
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", d)
	}
	if duration < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", d)
	}
	return duration, nil
}

// QueryInt reads a non-negative integer query parameter
func QueryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

// QueryBool reads an optional boolean query parameter; nil means absent.
func QueryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return &b, nil
}

// QueryTime reads an RFC 3339 timestamp or unix milliseconds; zero means absent.
func QueryTime(r *http.Request, key string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return time.Time{}, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return t, nil
}
