package rules

import (
	"regexp"
	"strconv"
	"time"
)

// DefaultDuration is used for duration tokens that cannot be parsed.
const DefaultDuration = 20 * 24 * time.Hour

var durationToken = regexp.MustCompile(`^(\d+)([smhd])$`)

// ParseDuration parses a token of the form <integer><s|m|h|d>.
func ParseDuration(token string) (time.Duration, bool) {
	m := durationToken.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	return time.Duration(n) * unit, true
}

// DurationOf returns the duration of token, or DefaultDuration when the
// token is not recognised.
func DurationOf(token string) time.Duration {
	if d, ok := ParseDuration(token); ok {
		return d
	}
	return DefaultDuration
}
