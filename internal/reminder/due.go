package reminder

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gxliu28/gas-bot/internal/filter"
)

const millisPerDay = 24 * 60 * 60 * 1000

// dueLayouts are tried in order when a due cell arrives as a string.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// isEmptyCell reports whether a due cell carries no value at all.
func isEmptyCell(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// parseDue interprets a due cell permissively: native times pass through,
// numbers are treated as spreadsheet serial day counts, strings are tried
// against the known layouts in the run's location.
func parseDue(v any, loc *time.Location) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d, nil
	case float64:
		return serialToTime(d, loc), nil
	case int:
		return serialToTime(float64(d), loc), nil
	case int64:
		return serialToTime(float64(d), loc), nil
	case string:
		s := strings.TrimSpace(d)
		for _, layout := range dueLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized due date %q", s)
	default:
		return time.Time{}, fmt.Errorf("unsupported due cell type %T (%s)", v, filter.Stringify(v))
	}
}

// serialToTime converts a spreadsheet serial day number (days since
// 1899-12-30, fractional part is time of day) to a time in loc.
func serialToTime(serial float64, loc *time.Location) time.Time {
	days := math.Floor(serial)
	frac := serial - days
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, loc)
	return epoch.AddDate(0, 0, int(days)).
		Add(time.Duration(frac*float64(millisPerDay)) * time.Millisecond)
}

// diffDays is the whole number of days from now until due, with partial
// days rounding up: a deadline later today is 0 days away only when it is
// exactly now, otherwise it still counts as 1.
func diffDays(due, now time.Time) int {
	ms := due.Sub(now).Milliseconds()
	return int(math.Ceil(float64(ms) / float64(millisPerDay)))
}
