package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthName returns the Spanish name of a 1-based month, or "" when out of range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}

// FormatDateLong renders "YYYY-MM-DD" as "<day> de <mes> de <year>". The day
// is kept as given ("05" stays "05"). Input that is not a three-part date with
// a valid month is returned unchanged.
func FormatDateLong(date string) string {
	parts := strings.Split(strings.TrimSpace(date), "-")
	if len(parts) != 3 {
		return date
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return date
	}
	name := MonthName(month)
	if name == "" {
		return date
	}
	return parts[2] + " de " + name + " de " + parts[0]
}

// EndTime adds minutes to an "HH:MM" start time, wrapping at midnight.
// Empty or malformed input yields "".
func EndTime(start string, minutes int) string {
	start = strings.TrimSpace(start)
	if start == "" {
		return ""
	}
	hh, mm, ok := strings.Cut(start, ":")
	if !ok {
		return ""
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return ""
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return ""
	}
	total := ((h*60+m+minutes)%(24*60) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// EndTime30m is EndTime for the standard 30 minute slot.
func EndTime30m(start string) string { return EndTime(start, 30) }

// SlotRange renders "HH:MM - HH:MM" for a slot starting at start.
func SlotRange(start string, minutes int) string {
	return start + " - " + EndTime(start, minutes)
}
