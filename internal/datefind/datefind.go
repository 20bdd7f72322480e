// Package datefind recovers timestamps that cameras and apps embed in file
// names, e.g. IMG_20120901_114223.jpg or 2020-01-01 party.jpg.
package datefind

import (
	"regexp"
	"strconv"
	"time"
)

// patterns are tried in order; the first that matches and forms a valid
// calendar value wins. Fields may be separated by one non-digit or nothing.
// The leading .* makes the rightmost candidate in a name win.
var patterns = []struct {
	regex *regexp.Regexp
	desc  string
}{
	{regexp.MustCompile(`^.*(20[012]\d)[^0-9]?([01]\d)[^0-9]?([0-3]\d)[^0-9]?([012]\d)[^0-9]?([0-5]\d)[^0-9]?([0-5]\d)`), "date and time to the second"},
	{regexp.MustCompile(`^.*(20[012]\d)[^0-9]?([01]\d)[^0-9]?([0-3]\d)[^0-9]?([012]\d)[^0-9]?([0-5]\d)`), "date and time to the minute"},
	{regexp.MustCompile(`^.*(20[012]\d)[^0-9]?([01]\d)[^0-9]?([0-3]\d)`), "date only"},
}

// Find scans s for a date in the 2000-2029 range and returns it as a wall
// clock time in loc. Invalid calendar values (day 32, month 13, hour 24)
// fall through to the next, looser pattern.
func Find(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	for _, p := range patterns {
		m := p.regex.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		fields := make([]int, 6)
		for i, g := range m[1:] {
			n, err := strconv.Atoi(g)
			if err != nil {
				break
			}
			fields[i] = n
		}
		if t, ok := build(fields, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// build rejects values that time.Date would silently normalise.
func build(f []int, loc *time.Location) (time.Time, bool) {
	year, month, day, hour, min, sec := f[0], f[1], f[2], f[3], f[4], f[5]
	if month < 1 || month > 12 || day < 1 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, false
	}
	wall := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
	if wall.Day() != day || int(wall.Month()) != month {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, loc)
	if t.Hour() != hour || t.Minute() != min {
		// skipped by a daylight saving jump in loc; keep the wall clock
		return wall, true
	}
	return t, true
}
