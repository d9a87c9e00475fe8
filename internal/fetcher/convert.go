package fetcher

import (
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when parsing human-readable dates from the
// feed's date-range field.
var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ConvertClockTime converts a millisecond timestamp into a UTC "HH:MM:SS"
// time-of-day string. The feed emits the marker "TBA" (or omits the field)
// for unscheduled events; those, and anything else non-numeric or
// non-positive, yield nil.
func ConvertClockTime(v any) *string {
	var ms float64
	switch t := v.(type) {
	case float64:
		ms = t
	case int64:
		ms = float64(t)
	case int:
		ms = float64(t)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		ms = parsed
	default:
		return nil
	}

	if ms <= 0 {
		return nil
	}

	s := time.UnixMilli(int64(ms)).UTC().Format("15:04:05")
	return &s
}

// ParseDateRange parses the feed's human-readable date-range string into
// start and end dates. The format is either a single date or two dates
// separated by " - ". Unparseable parts yield nil.
func ParseDateRange(s string) (startDate, endDate *time.Time) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	parts := strings.SplitN(s, " - ", 2)
	startDate = parseDate(parts[0])
	if len(parts) == 2 {
		endDate = parseDate(parts[1])
	}
	return startDate, endDate
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
