package simulation

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// dateKeyLayout is the canonical wire and storage form of a DateKey.
const dateKeyLayout = "2006-01-02"

// DateKey is a calendar day, the join key across all record sequences.
// It always holds midnight UTC so values built through NewDateKey,
// ParseDateKey or Scan compare equal with == and are safe as map keys.
type DateKey struct {
	time.Time
}

// NewDateKey truncates t to its calendar day in UTC.
func NewDateKey(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDateKey parses an ISO YYYY-MM-DD string.
func ParseDateKey(s string) (DateKey, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return DateKey{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDateKey(t), nil
}

// AddDays returns the key n calendar days after d (n may be negative).
func (d DateKey) AddDays(n int) DateKey {
	return NewDateKey(d.Time.AddDate(0, 0, n))
}

// DaysUntil returns the number of calendar days from d to other.
// Negative when other is before d.
func (d DateKey) DaysUntil(other DateKey) int {
	return int(other.Time.Sub(d.Time) / (24 * time.Hour))
}

// IsWeekend reports whether d falls on a Saturday or Sunday.
func (d DateKey) IsWeekend() bool {
	wd := d.Time.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d DateKey) String() string {
	return d.Time.Format(dateKeyLayout)
}

func (d DateKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *DateKey) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %q: expected quoted YYYY-MM-DD", s)
	}
	parsed, err := ParseDateKey(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer so records can be written with sqlx.
func (d DateKey) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner. Postgres DATE columns arrive as time.Time;
// text scans are accepted for drivers that return raw bytes.
func (d *DateKey) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDateKey(v)
		return nil
	case []byte:
		parsed, err := ParseDateKey(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDateKey(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into DateKey", src)
	}
}
