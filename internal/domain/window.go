package domain

import (
	"fmt"
	"time"
)

// MonthWindow is a single (year, month) unit of fetch granularity.
type MonthWindow struct {
	Year  int
	Month time.Month
}

// String renders the zero-padded "YYYY-MM" form used in record payloads.
func (w MonthWindow) String() string {
	return fmt.Sprintf("%04d-%02d", w.Year, int(w.Month))
}

// QueryValue renders the unpadded "YYYY-M" form the police API expects as
// its date parameter.
func (w MonthWindow) QueryValue() string {
	return fmt.Sprintf("%d-%d", w.Year, int(w.Month))
}

// Before reports whether w is strictly earlier than other.
func (w MonthWindow) Before(other MonthWindow) bool {
	if w.Year != other.Year {
		return w.Year < other.Year
	}
	return w.Month < other.Month
}

// After reports whether w is strictly later than other.
func (w MonthWindow) After(other MonthWindow) bool {
	return other.Before(w)
}

// IsZero reports whether w is the zero window.
func (w MonthWindow) IsZero() bool {
	return w.Year == 0 && w.Month == 0
}

// MarshalJSON renders the window as its "YYYY-MM" string form.
func (w MonthWindow) MarshalJSON() ([]byte, error) {
	return []byte(`"` + w.String() + `"`), nil
}

// UnmarshalJSON parses the "YYYY-MM" string form.
func (w *MonthWindow) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("month window must be a JSON string, got %s", s)
	}
	parsed, err := ParseMonth(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseMonth parses a "YYYY-MM" month string into a MonthWindow.
func ParseMonth(s string) (MonthWindow, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return MonthWindow{}, fmt.Errorf("parse month %q: %w", s, err)
	}
	return MonthWindow{Year: t.Year(), Month: t.Month()}, nil
}

// EnumerateWindows produces the ordered, contiguous sequence of month windows
// from January of startYear up to the publication-lag cutoff: past years
// contribute all twelve months, the reference year contributes months
// 1..(referenceMonth-2). When referenceMonth-2 < 1 the reference year
// contributes nothing. The result is strictly ordered by (year, month).
func EnumerateWindows(startYear int, reference time.Time) []MonthWindow {
	var windows []MonthWindow
	for year := startYear; year <= reference.Year(); year++ {
		last := 12
		if year == reference.Year() {
			last = int(reference.Month()) - 2
		}
		for month := 1; month <= last; month++ {
			windows = append(windows, MonthWindow{Year: year, Month: time.Month(month)})
		}
	}
	return windows
}
