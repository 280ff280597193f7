package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeBareDate(t *testing.T) {
	got, ok := ParseTime("2024-02-29")
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Format("2006-01-02") != "2024-02-29" {
		t.Fatalf("unexpected date %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestPeriodStart(t *testing.T) {
	// Thursday
	d := time.Date(2024, 3, 14, 15, 4, 5, 0, time.UTC)
	cases := map[string]string{
		"week":  "2024-03-11",
		"month": "2024-03-01",
		"year":  "2024-01-01",
		"bogus": "2024-03-01",
	}
	for iv, want := range cases {
		if got := PeriodStart(d, iv).Format("2006-01-02"); got != want {
			t.Fatalf("%s: got %s want %s", iv, got, want)
		}
	}
	// a Monday maps to itself, a Sunday to the previous Monday
	mon := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	if !PeriodStart(mon, "week").Equal(mon) {
		t.Fatalf("monday should be its own week start")
	}
	sun := time.Date(2024, 3, 17, 23, 0, 0, 0, time.UTC)
	if !PeriodStart(sun, "week").Equal(mon) {
		t.Fatalf("sunday should map to preceding monday")
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	d := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	if got := AddMonths(d, 1).Format("2006-01-02"); got != "2024-02-29" {
		t.Fatalf("got %s", got)
	}
	if got := AddInterval(d, "year", 1).Format("2006-01-02"); got != "2025-01-31" {
		t.Fatalf("got %s", got)
	}
	if got := AddInterval(d, "week", 2).Format("2006-01-02"); got != "2024-02-14" {
		t.Fatalf("got %s", got)
	}
}

func TestPeriodLabel(t *testing.T) {
	d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := PeriodLabel(d, "week"); got != "Week of Jan 01, 2024" {
		t.Fatalf("got %q", got)
	}
	if got := PeriodLabel(d, "month"); got != "Jan 2024" {
		t.Fatalf("got %q", got)
	}
	if got := PeriodLabel(d, "year"); got != "2024" {
		t.Fatalf("got %q", got)
	}
}
