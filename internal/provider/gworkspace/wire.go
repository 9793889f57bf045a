package gworkspace

import (
	"encoding/base64"
	"time"
)

// parseTimestamp reads an RFC 3339 timestamp, returning the zero time
// when the value does not parse
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func base64URLEncode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}
