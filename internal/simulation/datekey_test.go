package simulation

import (
	"encoding/json"
	"testing"
	"time"
)

func mustDate(t *testing.T, s string) DateKey {
	t.Helper()
	d, err := ParseDateKey(s)
	if err != nil {
		t.Fatalf("parse date %s: %v", s, err)
	}
	return d
}

func TestParseDateKey(t *testing.T) {
	d, err := ParseDateKey("2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2024-01-01" {
		t.Fatalf("unexpected string form %q", d.String())
	}
	if d.YearDay() != 1 {
		t.Fatalf("expected year day 1, got %d", d.YearDay())
	}
}

func TestParseDateKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "2024-02-30", "01/02/2024", "2024-1-1"} {
		if _, err := ParseDateKey(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestNewDateKeyTruncates(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	d := NewDateKey(time.Date(2024, 6, 15, 23, 45, 12, 999, loc))
	if d.String() != "2024-06-15" {
		t.Fatalf("expected 2024-06-15, got %s", d.String())
	}
	if d != mustDate(t, "2024-06-15") {
		t.Fatalf("normalized keys should compare equal")
	}
}

func TestAddDaysAcrossBoundaries(t *testing.T) {
	cases := []struct {
		start string
		n     int
		want  string
	}{
		{"2024-01-31", 1, "2024-02-01"},
		{"2024-02-28", 2, "2024-03-01"}, // leap year
		{"2023-12-31", 1, "2024-01-01"},
		{"2024-01-10", -9, "2024-01-01"},
	}
	for _, c := range cases {
		got := mustDate(t, c.start).AddDays(c.n)
		if got.String() != c.want {
			t.Fatalf("%s + %d days: expected %s, got %s", c.start, c.n, c.want, got.String())
		}
	}
}

func TestDaysUntil(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
	}{
		{"2024-01-01", "2024-01-01", 0},
		{"2024-01-01", "2024-01-02", 1},
		{"2024-01-01", "2024-12-31", 365}, // leap year
		{"2024-01-02", "2024-01-01", -1},
	}
	for _, c := range cases {
		got := mustDate(t, c.from).DaysUntil(mustDate(t, c.to))
		if got != c.want {
			t.Fatalf("%s -> %s: expected %d, got %d", c.from, c.to, c.want, got)
		}
	}
}

func TestIsWeekend(t *testing.T) {
	cases := []struct {
		date string
		want bool
	}{
		{"2024-01-05", false}, // Friday
		{"2024-01-06", true},  // Saturday
		{"2024-01-07", true},  // Sunday
		{"2024-01-08", false}, // Monday
	}
	for _, c := range cases {
		if got := mustDate(t, c.date).IsWeekend(); got != c.want {
			t.Fatalf("%s: expected weekend=%v, got %v", c.date, c.want, got)
		}
	}
}

func TestDateKeyJSONRoundTrip(t *testing.T) {
	d := mustDate(t, "2024-03-09")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2024-03-09"` {
		t.Fatalf("unexpected JSON %s", data)
	}

	var back DateKey
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != d {
		t.Fatalf("round trip mismatch: %s != %s", back, d)
	}

	if err := json.Unmarshal([]byte(`"not-a-date"`), &back); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestDateKeyScan(t *testing.T) {
	var d DateKey
	if err := d.Scan(time.Date(2024, 5, 1, 17, 30, 0, 0, time.Local)); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if d.String() != "2024-05-01" {
		t.Fatalf("expected 2024-05-01, got %s", d)
	}

	if err := d.Scan([]byte("2024-05-02")); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if d.String() != "2024-05-02" {
		t.Fatalf("expected 2024-05-02, got %s", d)
	}

	if err := d.Scan(42); err == nil {
		t.Fatalf("expected error scanning int")
	}
}
