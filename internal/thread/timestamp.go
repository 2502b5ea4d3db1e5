package thread

import (
	"regexp"
	"strconv"
	"time"
)

// TimestampLayout documents the scraped format, e.g. "19:57 22/8/2025".
const TimestampLayout = "H:MM D/M/YYYY"

var timestampRe = regexp.MustCompile(`(\d{1,2}):(\d{2})\s+(\d{1,2})/(\d{1,2})/(\d{4})`)

// ParseTimestamp parses a raw scraped timestamp in the local time zone.
func ParseTimestamp(raw string) (time.Time, bool) {
	return ParseTimestampIn(raw, time.Local)
}

// ParseTimestampIn parses raw in loc. A missing, malformed or impossible
// timestamp (31/4, 29/2 outside leap years, 24:00) reports false.
func ParseTimestampIn(raw string, loc *time.Location) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	m := timestampRe.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, false
	}
	var v [5]int
	for i := range v {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, false
		}
		v[i] = n
	}
	hour, minute, day, month, year := v[0], v[1], v[2], v[3], v[4]
	if hour > 23 || minute > 59 || month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
	// time.Date normalises overflow; a changed day or month means the date did not exist.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}
