package domain

import (
	"fmt"
	"strings"
	"time"
)

const isoLayout = "2006-01-02T15:04:05.000Z"

var acceptedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseISOTime converts an ISO-8601 string from the API boundary into a UTC
// time. Empty input yields nil.
func ParseISOTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid ISO-8601 date %q", s)
}

// FormatISOTime renders t the way clients expect it (UTC, millisecond
// precision). Nil input yields nil.
func FormatISOTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(isoLayout)
	return &s
}
