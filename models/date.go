package models

import (
	"fmt"
	"time"
)

const dueDateLayout = "2006-01-02"

// ParseDueDate converts a due date entered at the write boundary into the
// store's timestamp type. It accepts RFC 3339 or a bare YYYY-MM-DD date
// (interpreted as UTC midnight, so the calendar date survives a round trip
// through storage and hydration). An empty string means no due date and
// yields nil.
func ParseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.ParseInLocation(dueDateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return &t, nil
}

// FormatDueDate renders a stored due date as an RFC 3339 UTC string.
// A missing due date renders as the current instant; tasks whose due date
// was cleared therefore display (and sort, where the caller sorts on the
// rendered value) as "now" rather than "no date".
func FormatDueDate(t *time.Time) string {
	if t == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return t.UTC().Format(time.RFC3339)
}
