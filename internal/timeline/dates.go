package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Romanian month abbreviations, index 0 = January. The display format is
// "{day} {abbrev}. {year}", e.g. "15 ian. 2025".
var monthNames = [12]string{
	"ian", "feb", "mar", "apr", "mai", "iun",
	"iul", "aug", "sep", "oct", "noi", "dec",
}

var monthIndex = map[string]time.Month{
	"ian": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "mai": time.May, "iun": time.June,
	"iul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "noi": time.November, "dec": time.December,
}

// FormatDisplayDate renders a timestamp in the Romanian display format. It is a
// pure function of (day, month, year).
func FormatDisplayDate(t time.Time) string {
	return fmt.Sprintf("%d %s. %d", t.Day(), monthNames[int(t.Month())-1], t.Year())
}

// ParseDisplayDate parses "15 ian. 2025" back into a time. The display format
// is not lexicographically sortable, so chronological ordering goes through
// this parser.
func ParseDisplayDate(s string) (time.Time, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("timeline: malformed display date %q", s)
	}

	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("timeline: malformed day in %q", s)
	}
	month, ok := monthIndex[strings.TrimSuffix(parts[1], ".")]
	if !ok {
		return time.Time{}, fmt.Errorf("timeline: unknown month in %q", s)
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("timeline: malformed year in %q", s)
	}

	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), nil
}

// sortKey converts an item's date to a comparable instant. ISO forms are tried
// first, then the display format. Unparseable dates sort last (zero time).
func sortKey(date string) time.Time {
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", date); err == nil {
		return t
	}
	if t, err := ParseDisplayDate(date); err == nil {
		return t
	}
	return time.Time{}
}
