package simulation

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func newTestGenerator(seed int64) *SeriesGenerator {
	return NewSeriesGenerator(rand.New(rand.NewSource(seed)))
}

func TestGenerateRecordCount(t *testing.T) {
	cases := []struct {
		start, end string
		want       int
	}{
		{"2024-01-01", "2024-01-01", 1},
		{"2024-01-01", "2024-01-07", 7},
		{"2024-01-01", "2024-12-31", 366}, // leap year
		{"2023-01-01", "2023-12-31", 365},
	}
	for _, c := range cases {
		records, err := newTestGenerator(1).Generate(mustDate(t, c.start), mustDate(t, c.end))
		if err != nil {
			t.Fatalf("%s..%s: unexpected error: %v", c.start, c.end, err)
		}
		if len(records) != c.want {
			t.Fatalf("%s..%s: expected %d records, got %d", c.start, c.end, c.want, len(records))
		}
	}
}

func TestGenerateConsecutiveDates(t *testing.T) {
	start := mustDate(t, "2024-02-20")
	records, err := newTestGenerator(7).Generate(start, mustDate(t, "2024-03-10"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range records {
		want := start.AddDays(i)
		if r.Date != want {
			t.Fatalf("record %d: expected date %s, got %s", i, want, r.Date)
		}
		if r.ActualSales < 0 {
			t.Fatalf("record %d: negative sales %d", i, r.ActualSales)
		}
	}
}

func TestGenerateSignalShape(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-06-30")
	records, err := newTestGenerator(99).Generate(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Each value must sit within noise-plus-rounding distance of the
	// deterministic part of the signal.
	n := float64(len(records))
	for i, r := range records {
		deterministic := baseDemand + float64(i)/n*trendRise +
			yearlyComponent(r.Date) + weeklyComponent(r.Date)
		if diff := math.Abs(float64(r.ActualSales) - deterministic); diff > noiseHalfWidth+0.5 {
			t.Fatalf("record %d (%s): value %d is %.2f from deterministic level %.2f",
				i, r.Date, r.ActualSales, diff, deterministic)
		}
	}
}

func TestGenerateSeededReproducibility(t *testing.T) {
	start := mustDate(t, "2024-01-01")
	end := mustDate(t, "2024-03-31")

	a, err := newTestGenerator(42).Generate(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := newTestGenerator(42).Generate(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("record %d differs between identically seeded runs: %+v vs %+v", i, a[i], b[i])
		}
	}

	c, err := newTestGenerator(43).Generate(start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("expected differently seeded runs to diverge somewhere")
	}
}

func TestGenerateInvalidRange(t *testing.T) {
	_, err := newTestGenerator(1).Generate(mustDate(t, "2024-02-01"), mustDate(t, "2024-01-01"))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
