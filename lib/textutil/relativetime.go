package textutil

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type relativeUnit struct {
	regex *regexp.Regexp
	apply func(now time.Time, n int) time.Time
}

// ordered by specificity: "2 min" must not be swallowed by the month
// pattern and vice versa
var relativeUnits = []relativeUnit{
	{
		regex: regexp.MustCompile(`(\d+)\s*(mins?|minutes?|m)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.Add(-time.Duration(n) * time.Minute)
		},
	},
	{
		regex: regexp.MustCompile(`(\d+)\s*(hrs?|hours?|h)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.Add(-time.Duration(n) * time.Hour)
		},
	},
	{
		regex: regexp.MustCompile(`(\d+)\s*(days?|d)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.AddDate(0, 0, -n)
		},
	},
	{
		regex: regexp.MustCompile(`(\d+)\s*(wks?|weeks?|w)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.AddDate(0, 0, -n*7)
		},
	},
	{
		regex: regexp.MustCompile(`(\d+)\s*(mos?|months?)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.AddDate(0, -n, 0)
		},
	},
	{
		regex: regexp.MustCompile(`(\d+)\s*(yrs?|years?|y)\b`),
		apply: func(now time.Time, n int) time.Time {
			return now.AddDate(-n, 0, 0)
		},
	},
}

// ParseRelativeTime resolves feed age strings like "2h", "3 days ago" or
// "just now" against the given instant. The second return value is false
// when the string is not a recognized relative time.
func ParseRelativeTime(text string, now time.Time) (time.Time, bool) {
	text = strings.ToLower(NormalizeSpace(text))
	if text == "" {
		return time.Time{}, false
	}
	if strings.Contains(text, "just now") || strings.Contains(text, "agora") {
		return now, true
	}
	for _, unit := range relativeUnits {
		match := unit.regex.FindStringSubmatch(text)
		if match == nil {
			continue
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		return unit.apply(now, n), true
	}
	return time.Time{}, false
}
