// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// ISOMillisLayout formats instants like JavaScript's Date.toISOString
const ISOMillisLayout = "2006-01-02T15:04:05.000Z07:00"

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowUnix returns the current UTC time as Unix timestamp
func UTCNowUnix() int64 {
	return UTCNow().Unix()
}

// FormatISOMillis renders t in UTC with millisecond precision and a Z suffix
func FormatISOMillis(t time.Time) string {
	return t.UTC().Format(ISOMillisLayout)
}

// ParseISOTimestamp parses an RFC 3339 timestamp with optional fractional seconds
func ParseISOTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
