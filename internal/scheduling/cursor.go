package scheduling

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxYear is the last year appointments can be booked in.
const MaxYear = 2030

// ErrInvalidCursor is returned when the calendar hidden fields do not hold a month and year.
var ErrInvalidCursor = errors.New("scheduling: invalid calendar cursor")

// Cursor is the month shown by the calendar, kept in the page's mesActual
// and anioActual hidden fields.
type Cursor struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// ParseCursor reads a cursor from the hidden field values.
func ParseCursor(month, year string) (Cursor, error) {
	m, err := strconv.Atoi(strings.TrimSpace(month))
	if err != nil || m < 1 || m > 12 {
		return Cursor{}, fmt.Errorf("%w: month %q", ErrInvalidCursor, month)
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: year %q", ErrInvalidCursor, year)
	}
	return Cursor{Month: m, Year: y}, nil
}

// CursorAt returns the cursor for the month containing t.
func CursorAt(t time.Time) Cursor {
	return Cursor{Month: int(t.Month()), Year: t.Year()}
}

// Shift moves the cursor by delta months, rolling the year over.
func (c Cursor) Shift(delta int) Cursor {
	idx := c.Year*12 + (c.Month - 1) + delta
	year := idx / 12
	month := idx % 12
	if month < 0 {
		month += 12
		year--
	}
	return Cursor{Month: month + 1, Year: year}
}

// Before reports whether c is an earlier month than o.
func (c Cursor) Before(o Cursor) bool {
	return c.Year < o.Year || (c.Year == o.Year && c.Month < o.Month)
}

// MonthValue is the mesActual field value.
func (c Cursor) MonthValue() string { return strconv.Itoa(c.Month) }

// YearValue is the anioActual field value.
func (c Cursor) YearValue() string { return strconv.Itoa(c.Year) }

func (c Cursor) String() string {
	name := MonthName(c.Month)
	if name == "" {
		return fmt.Sprintf("%d/%d", c.Month, c.Year)
	}
	return name + " de " + strconv.Itoa(c.Year)
}

// lastBookableDay is December 31 of maxYear at midnight in loc.
func lastBookableDay(maxYear int, loc *time.Location) time.Time {
	return time.Date(maxYear, time.December, 31, 0, 0, 0, 0, loc)
}
