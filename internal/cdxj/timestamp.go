package cdxj

import (
	"fmt"
	"time"
)

const timestampLayout = "20060102150405"

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04Z",
	"2006-01-02",
}

// Timestamp converts a WARC-Date to the 14-digit form used in index keys.
// Fractional seconds are dropped. A value that is already 14 digits is
// returned unchanged.
func Timestamp(date string) (string, error) {
	if isTimestamp(date) {
		return date, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format(timestampLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", date)
}

func isTimestamp(s string) bool {
	if len(s) != len(timestampLayout) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
