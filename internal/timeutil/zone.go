package timeutil

import (
	"time"
)

// DefaultZone is used when the configured zone cannot be loaded
const DefaultZone = "America/Mexico_City"

// Local is the business time zone every date is interpreted in
var Local *time.Location

func init() {
	SetZone(DefaultZone)
}

// SetZone switches the business zone; unknown names fall back to UTC-6
func SetZone(name string) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		loc = time.FixedZone("CST", -6*60*60)
	}
	Local = loc
}

// Now returns the current time in the business zone
func Now() time.Time {
	return time.Now().In(Local)
}

// ParseDate parses a YYYY-MM-DD date at midnight in the business zone
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Local)
}

// Today returns midnight of the current business day
func Today() time.Time {
	return StartOfDay(Now())
}

// FormatDate formats t as YYYY-MM-DD in the business zone
func FormatDate(t time.Time) string {
	return t.In(Local).Format(DateLayout)
}

// StartOfDay returns 00:00:00 of t's day in the business zone
func StartOfDay(t time.Time) time.Time {
	l := t.In(Local)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, Local)
}

// EndOfDay returns 23:59:59.999999999 of t's day in the business zone
func EndOfDay(t time.Time) time.Time {
	l := t.In(Local)
	return time.Date(l.Year(), l.Month(), l.Day(), 23, 59, 59, 999999999, Local)
}

// ValidClock reports whether value is a HH:MM wall clock time
func ValidClock(value string) bool {
	_, err := time.Parse(ClockLayout, value)
	return err == nil
}

const (
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
	DateTimeLayout = "2006-01-02 15:04:05"
	DisplayLayout  = "02/01/2006 15:04"
)
