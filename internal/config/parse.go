package config

import (
	"strconv"
	"strings"
	"time"
)

// ParseTime parses unix seconds, RFC3339, or a YYYY-MM-DD date (UTC).
// An empty input yields the zero time.
func ParseTime(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseInt(input, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		return time.Unix(val, 0).UTC(), nil
	}

	if tm, err := time.Parse(time.DateOnly, input); err == nil {
		return tm, nil
	}
	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return time.Time{}, err
	}
	return tm.UTC(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
