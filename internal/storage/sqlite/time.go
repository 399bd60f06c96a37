package sqlite

import (
	"database/sql"
	"fmt"
	"time"
)

// SQLite has no native datetime type; timestamps are stored as RFC3339 TEXT.
const timeLayout = "2006-01-02T15:04:05.999999999Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

// nullableTime maps an optional timestamp to a NULL-able column value.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

// scanNullableTime converts a NULL-able TEXT column back to *time.Time.
func scanNullableTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
