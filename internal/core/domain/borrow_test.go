package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func TestComputeFine(t *testing.T) {
	cases := []struct {
		name   string
		due    string
		asOf   string
		perDay int64
		want   int64
	}{
		{"on due date", "2024-01-01", "2024-01-01", 1, 0},
		{"three days late", "2024-01-01", "2024-01-04", 2, 6},
		{"returned early", "2024-01-10", "2024-01-05", 1, 0},
		{"across month end", "2024-01-30", "2024-02-02", 1, 3},
		{"across leap day", "2024-02-28", "2024-03-01", 5, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeFine(mustDate(t, tc.due), mustDate(t, tc.asOf), decimal.NewFromInt(tc.perDay))
			if !got.Equal(decimal.NewFromInt(tc.want)) {
				t.Fatalf("expected %d, got %s", tc.want, got)
			}
		})
	}
}

func TestComputeFine_FractionalRate(t *testing.T) {
	got := ComputeFine(mustDate(t, "2024-01-01"), mustDate(t, "2024-01-05"), decimal.RequireFromString("0.25"))
	if !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected 1, got %s", got)
	}
}

func TestBorrowRecord_Status(t *testing.T) {
	rec := BorrowRecord{
		BorrowDate: mustDate(t, "2024-01-01"),
		DueDate:    mustDate(t, "2024-01-15"),
	}

	if got := rec.StatusOn(mustDate(t, "2024-01-15")); got != StatusActive {
		t.Fatalf("due day should still be active, got %s", got)
	}
	if got := rec.StatusOn(mustDate(t, "2024-01-16")); got != StatusOverdue {
		t.Fatalf("expected overdue, got %s", got)
	}
	if got := rec.DaysOverdue(mustDate(t, "2024-01-20")); got != 5 {
		t.Fatalf("expected 5 days overdue, got %d", got)
	}

	ret := mustDate(t, "2024-01-20")
	fine := decimal.NewFromInt(5)
	rec.ReturnDate = &ret
	rec.Fine = &fine
	if got := rec.StatusOn(mustDate(t, "2024-02-01")); got != StatusReturned {
		t.Fatalf("expected returned, got %s", got)
	}
	if rec.DaysOverdue(mustDate(t, "2024-02-01")) != 0 {
		t.Fatalf("returned record must not be overdue")
	}
	if !rec.FinalizedFine().Equal(fine) {
		t.Fatalf("unexpected finalized fine %s", rec.FinalizedFine())
	}
}

func TestDateOf_UsesLocation(t *testing.T) {
	instant := time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)

	if got := DateOf(instant, nil).String(); got != "2024-03-10" {
		t.Fatalf("utc day: got %s", got)
	}
	if got := DateOf(instant, tokyo).String(); got != "2024-03-11" {
		t.Fatalf("tokyo day: got %s", got)
	}
}

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.January, 9)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-01-09"` {
		t.Fatalf("unexpected json %s", b)
	}

	var back Date
	if err := back.UnmarshalJSON([]byte(`"2024-01-09T15:04:05Z"`)); err != nil {
		t.Fatalf("unmarshal timestamp: %v", err)
	}
	if !back.Equal(d) {
		t.Fatalf("expected %s, got %s", d, back)
	}

	if err := back.UnmarshalJSON([]byte(`"not-a-date"`)); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2024, time.December, 25)
	due := d.AddDays(14)
	if due.String() != "2025-01-08" {
		t.Fatalf("unexpected due date %s", due)
	}
	if d.DaysUntil(due) != 14 || due.DaysUntil(d) != -14 {
		t.Fatalf("unexpected day difference")
	}
	if !d.Before(due) || !due.After(d) {
		t.Fatalf("ordering broken")
	}
}

func TestDate_DaysUntil_BeyondDurationRange(t *testing.T) {
	cases := []struct {
		from, to Date
		want     int
	}{
		{NewDate(1900, 1, 1), NewDate(2200, 1, 1), 109573},
		{NewDate(2200, 1, 1), NewDate(1900, 1, 1), -109573},
		{NewDate(1, 1, 1), NewDate(9999, 12, 31), 3652058},
		{NewDate(1969, 12, 31), NewDate(1970, 1, 2), 2},
	}
	for _, tc := range cases {
		if got := tc.from.DaysUntil(tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %d days, got %d", tc.from, tc.to, tc.want, got)
		}
	}
}
