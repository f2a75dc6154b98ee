package core

import (
	"fmt"
	"time"
)

// Period is a calendar month bucket. Month is 1-12.
type Period struct {
	Year  int
	Month int
}

// PeriodOf buckets t by its UTC calendar month.
func PeriodOf(t time.Time) Period {
	u := t.UTC()
	return Period{Year: u.Year(), Month: int(u.Month())}
}

// Prev returns the preceding month; January wraps to December of year-1.
func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// Next returns the following month.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

// Start is the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the last instant of the month in UTC.
func (p Period) End() time.Time {
	return p.Next().Start().Add(-time.Nanosecond)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// PeriodsBetween lists the months from `to` back to `from`, newest first.
// It returns nil when from is after to.
func PeriodsBetween(from, to Period) []Period {
	if to.Before(from) {
		return nil
	}
	var out []Period
	for p := to; !p.Before(from); p = p.Prev() {
		out = append(out, p)
	}
	return out
}
