// Package datetime normalises loosely typed timestamps coming from the Nexus
// API and formats them for display.
package datetime

import (
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	LayoutSortable            = "2006-01-02"
	LayoutMonthDayYear        = "January 2, 2006"
	LayoutISO8601             = "2006-01-02T15:04:05.000Z07:00"
	LayoutYearMonthDayMinimal = "060102"
	LayoutDayMonthYearMinimal = "020106"
	LayoutWeekdayMonthDayYear = "Mon, Jan 2, 2006"
)

// isoLayouts are tried first. Layouts without an offset are read as UTC;
// layouts with one keep it.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
}

// Normalize converts value into a time. Accepted inputs are ISO-8601 strings,
// "January 2, 2006", RFC 2822 and HTTP dates (plus the other layouts cast
// understands), epoch milliseconds and time values. ok is false for
// anything else.
func Normalize(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case string:
		return parseString(v)
	case *string:
		if v == nil {
			return time.Time{}, false
		}
		return parseString(*v)
	case int:
		return fromMillis(float64(v))
	case int32:
		return fromMillis(float64(v))
	case int64:
		return fromMillis(float64(v))
	case uint32:
		return fromMillis(float64(v))
	case float64:
		return fromMillis(v)
	case float32:
		return fromMillis(float64(v))
	default:
		return time.Time{}, false
	}
}

// maxMillis bounds epoch milliseconds to ±100,000,000 days.
const maxMillis = 8.64e15

func fromMillis(ms float64) (time.Time, bool) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func parseString(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := time.ParseInLocation(LayoutMonthDayYear, s, time.UTC); err == nil {
		return t, true
	}
	t, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t, true
}

func format(value any, layout string) string {
	t, ok := Normalize(value)
	if !ok {
		return ""
	}
	return t.Format(layout)
}

// FormatSortable renders value as 2006-01-02.
func FormatSortable(value any) string {
	return format(value, LayoutSortable)
}

// FormatMonthDayYear renders value as "January 2, 2006".
func FormatMonthDayYear(value any) string {
	return format(value, LayoutMonthDayYear)
}

// FormatISODate renders the calendar date in ISO form.
func FormatISODate(value any) string {
	return format(value, LayoutSortable)
}

// FormatISO8601 renders a full timestamp with milliseconds and offset.
func FormatISO8601(value any) string {
	return format(value, LayoutISO8601)
}

func FormatYearMonthDayMinimal(value any) string {
	return format(value, LayoutYearMonthDayMinimal)
}

// FormatDayMonthYearMinimal renders value as ddMMyy; nil means now.
func FormatDayMonthYearMinimal(value any) string {
	if value == nil {
		value = UTCNow()
	}
	return format(value, LayoutDayMonthYearMinimal)
}

// FormatWeekdayMonthDayYear renders value as "Tue, Mar 5, 2024".
func FormatWeekdayMonthDayYear(value any) string {
	return format(value, LayoutWeekdayMonthDayYear)
}

// ParseSortable parses a 2006-01-02 date.
func ParseSortable(value string) (time.Time, error) {
	return time.ParseInLocation(LayoutSortable, strings.TrimSpace(value), time.UTC)
}

func UTCNow() time.Time {
	return time.Now().UTC()
}

func LocalNow() time.Time {
	return time.Now()
}
