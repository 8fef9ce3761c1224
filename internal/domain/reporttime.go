package domain

import (
	"regexp"
	"strings"
	"time"
)

// issueTimeRe matches the standalone issue-time token, e.g. "251130Z".
var issueTimeRe = regexp.MustCompile(`\b(\d{6}Z)\b`)

// FindIssueTime returns the report's DDHHMMZ token.
func FindIssueTime(raw string) (string, bool) {
	m := issueTimeRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ResolveReportTime turns a DDHHMM(Z) token into a UTC timestamp using ref for
// the month and year. A day later in the month than ref's UTC day is taken to
// belong to the previous month, which handles a report issued on the 31st and
// read on the 1st. Only valid for reports less than a month old.
//
// Day overflow follows time.Date normalization: "31" resolved into a 30-day
// previous month lands on the 1st of ref's month.
func ResolveReportTime(token string, ref time.Time) (time.Time, bool) {
	token = strings.TrimSuffix(token, "Z")
	if len(token) != 6 || !isDigits(token) {
		return time.Time{}, false
	}

	day, hour, minute := atoi(token[0:2]), atoi(token[2:4]), atoi(token[4:6])
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	ref = ref.UTC()
	year, month := ref.Year(), ref.Month()
	if day > ref.Day() {
		month--
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
