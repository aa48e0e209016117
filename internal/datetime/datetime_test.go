package datetime

import (
	"math"
	"testing"
	"time"
)

func TestFormatSortableFromISO(t *testing.T) {
	t.Parallel()

	if got := FormatSortable("2024-03-05T00:00:00Z"); got != "2024-03-05" {
		t.Fatalf("FormatSortable() = %q, want %q", got, "2024-03-05")
	}
}

func TestNormalizeAcceptedInputs(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	ts := want

	tests := []struct {
		name  string
		value any
	}{
		{name: "rfc3339", value: "2024-03-05T14:30:00Z"},
		{name: "rfc3339 millis", value: "2024-03-05T14:30:00.000Z"},
		{name: "offset kept", value: "2024-03-05T16:30:00+02:00"},
		{name: "no offset", value: "2024-03-05T14:30:00"},
		{name: "rfc2822", value: "Tue, 05 Mar 2024 14:30:00 +0000"},
		{name: "http date", value: "Tue, 05 Mar 2024 14:30:00 GMT"},
		{name: "epoch millis int64", value: want.UnixMilli()},
		{name: "epoch millis float", value: float64(want.UnixMilli())},
		{name: "time value", value: want},
		{name: "time pointer", value: &ts},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := Normalize(tc.value)
			if !ok {
				t.Fatalf("Normalize(%v) not ok", tc.value)
			}
			if !got.Equal(want) {
				t.Fatalf("Normalize(%v) = %v, want %v", tc.value, got, want)
			}
		})
	}
}

func TestNormalizeKeepsOffset(t *testing.T) {
	t.Parallel()

	got, ok := Normalize("2024-03-05T23:30:00-05:00")
	if !ok {
		t.Fatal("Normalize not ok")
	}
	if _, offset := got.Zone(); offset != -5*3600 {
		t.Fatalf("offset = %d, want -18000", offset)
	}
	if s := FormatSortable("2024-03-05T23:30:00-05:00"); s != "2024-03-05" {
		t.Fatalf("FormatSortable() = %q; the calendar date must follow the original offset", s)
	}
}

func TestMonthDayYearRoundTrip(t *testing.T) {
	t.Parallel()

	if got := FormatSortable("March 5, 2024"); got != "2024-03-05" {
		t.Fatalf("FormatSortable(March 5, 2024) = %q", got)
	}
	if got := FormatMonthDayYear("2024-03-05"); got != "March 5, 2024" {
		t.Fatalf("FormatMonthDayYear() = %q", got)
	}
}

func TestFormatters(t *testing.T) {
	t.Parallel()

	in := "2024-03-05T14:30:15.250Z"
	tests := []struct {
		name string
		fn   func(any) string
		want string
	}{
		{name: "iso date", fn: FormatISODate, want: "2024-03-05"},
		{name: "iso8601", fn: FormatISO8601, want: "2024-03-05T14:30:15.250Z"},
		{name: "yymmdd", fn: FormatYearMonthDayMinimal, want: "240305"},
		{name: "ddmmyy", fn: FormatDayMonthYearMinimal, want: "050324"},
		{name: "weekday", fn: FormatWeekdayMonthDayYear, want: "Tue, Mar 5, 2024"},
	}
	for _, tc := range tests {
		if got := tc.fn(in); got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestFormattersReturnEmptyForInvalidInput(t *testing.T) {
	t.Parallel()

	formatters := map[string]func(any) string{
		"sortable":       FormatSortable,
		"month day year": FormatMonthDayYear,
		"iso date":       FormatISODate,
		"iso8601":        FormatISO8601,
		"yymmdd":         FormatYearMonthDayMinimal,
		"weekday":        FormatWeekdayMonthDayYear,
	}
	inputs := []any{
		"not a date", "", "2024-13-45", struct{}{}, []string{"2024-03-05"}, nil, (*time.Time)(nil),
		math.NaN(), math.Inf(1), math.Inf(-1), int64(math.MaxInt64), float64(-9e15), float32(math.Inf(1)),
	}

	for name, fn := range formatters {
		for _, in := range inputs {
			if got := fn(in); got != "" {
				t.Fatalf("%s(%#v) = %q, want empty", name, in, got)
			}
		}
	}
	if got := FormatDayMonthYearMinimal("garbage"); got != "" {
		t.Fatalf("FormatDayMonthYearMinimal(garbage) = %q", got)
	}
}

func TestFormatDayMonthYearMinimalDefaultsToNow(t *testing.T) {
	t.Parallel()

	before := UTCNow().Format(LayoutDayMonthYearMinimal)
	got := FormatDayMonthYearMinimal(nil)
	after := UTCNow().Format(LayoutDayMonthYearMinimal)
	if got != before && got != after {
		t.Fatalf("FormatDayMonthYearMinimal(nil) = %q, want %q", got, before)
	}
}

func TestParseSortable(t *testing.T) {
	t.Parallel()

	got, err := ParseSortable("2024-03-05")
	if err != nil {
		t.Fatalf("ParseSortable() error = %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 5 {
		t.Fatalf("ParseSortable() = %v", got)
	}
	if _, err := ParseSortable("05/03/2024"); err == nil {
		t.Fatal("ParseSortable() accepted a non-sortable date")
	}
}

func TestNormalizeEpochMillisRange(t *testing.T) {
	t.Parallel()

	if got, ok := Normalize(8.64e15); !ok || got.Year() != 275760 {
		t.Fatalf("Normalize(max) = %v, %v", got, ok)
	}
	if got, ok := Normalize(int64(-8.64e15)); !ok || got.Year() != -271821 {
		t.Fatalf("Normalize(min) = %v, %v", got, ok)
	}
	if _, ok := Normalize(8.64e15 + 1); ok {
		t.Fatal("Normalize accepted millis beyond the representable range")
	}
}
