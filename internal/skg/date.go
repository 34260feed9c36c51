package skg

import (
	"regexp"
	"strconv"
	"time"
)

// dateLayouts are tried most specific first. Single-digit months and days
// are accepted.
var dateLayouts = []string{"2006-1-2", "2006-1", "2006"}

// timestampLayout renders UTC as +00:00 rather than Z.
const timestampLayout = "2006-01-02T15:04:05-07:00"

// ParseDate parses YYYY-MM-DD, YYYY-MM or YYYY, in that precedence, as UTC
// midnight. The second return value is false when no layout matches.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp formats t as an ISO-8601 timestamp with a numeric offset,
// e.g. 2020-05-17T00:00:00+00:00.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Period is a calendar duration of whole years, months and days.
type Period struct {
	Years  int
	Months int
	Days   int
}

// maxPeriodYears bounds each component of a Period so that subtracting it
// from any four-digit year stays representable.
const maxPeriodYears = 9999

// periodPattern matches the P(nY)?(nM)?(nD)? prefix of an ISO-8601 duration.
var periodPattern = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)D)?`)

// ParsePeriod parses the year, month and day components of an ISO-8601
// duration. Missing components are zero; anything after the day component
// is ignored. Returns false when s does not start with P or a component
// exceeds 9999 years (or the equivalent months or days).
func ParsePeriod(s string) (Period, bool) {
	m := periodPattern.FindStringSubmatch(s)
	if m == nil {
		return Period{}, false
	}
	var p Period
	limits := []int{maxPeriodYears, maxPeriodYears * 12, maxPeriodYears * 366}
	for i, dst := range []*int{&p.Years, &p.Months, &p.Days} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil || n > limits[i] {
			return Period{}, false
		}
		*dst = n
	}
	return p, true
}

// SubtractFrom returns t minus p. Years and months are subtracted first
// with the day clamped to the length of the resulting month, then days are
// subtracted; 2020-03-31 minus P1M is 2020-02-29, not 2020-03-02.
func (p Period) SubtractFrom(t time.Time) time.Time {
	months := t.Year()*12 + int(t.Month()) - 1 - p.Years*12 - p.Months
	year, month := months/12, time.Month(months%12+1)
	day := min(t.Day(), daysIn(year, month))
	shifted := time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	return shifted.AddDate(0, 0, -p.Days)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
