package model

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// DateOnly is a calendar date in the organization's single timezone.
// Wire format is ISO-8601 date-only, "YYYY-MM-DD".
type DateOnly struct {
	t time.Time
}

func ParseDateOnly(s string) (DateOnly, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return DateOnly{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOnly{t: t}, nil
}

func NewDateOnly(year int, month time.Month, day int) DateOnly {
	return DateOnly{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d DateOnly) String() string {
	return d.t.Format(dateLayout)
}

func (d DateOnly) IsZero() bool {
	return d.t.IsZero()
}

func (d DateOnly) Before(other DateOnly) bool {
	return d.t.Before(other.t)
}

func (d DateOnly) After(other DateOnly) bool {
	return d.t.After(other.t)
}

func (d DateOnly) Equal(other DateOnly) bool {
	return d.t.Equal(other.t)
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("unquote date: %w", err)
	}

	parsed, err := ParseDateOnly(s)
	if err != nil {
		return err
	}

	*d = parsed
	return nil
}
