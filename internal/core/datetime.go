package core

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// LocalDateTimeLayout is the ISO local date-time the backend exchanges.
const LocalDateTimeLayout = "2006-01-02T15:04:05"

// DateLayout is used by HTML date inputs and date-range filters.
const DateLayout = "2006-01-02"

var dateTimeLayouts = []string{
	LocalDateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	time.RFC3339Nano,
	DateLayout,
}

// DateTime is a wall-clock timestamp without zone, as the backend models it.
type DateTime struct {
	time.Time
}

// NewDateTime creates a DateTime at midnight of the given day.
func NewDateTime(year, month, day int) DateTime {
	return DateTime{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDateTime accepts the local date-time layouts, RFC 3339 and plain dates.
func ParseDateTime(s string) (DateTime, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateTime{Time: t}, nil
		}
	}
	return DateTime{}, fmt.Errorf("invalid date %q", s)
}

// String formats the value the way the backend expects it.
func (d DateTime) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(LocalDateTimeLayout)
}

// DateString formats only the day part, for date inputs.
func (d DateTime) DateString() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.Quote(d.Format(LocalDateTimeLayout))), nil
}

func (d *DateTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("invalid date %s", data)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	parsed, err := ParseDateTime(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
