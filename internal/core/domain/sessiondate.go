package domain

import (
	"strconv"
	"strings"
	"time"
)

// sessionDateLayout is the Go layout of a SessionDate.
const sessionDateLayout = "060102"

// SessionDate is a six digit year-month-day code (YYMMDD).
// Years are read as 2000+YY.
type SessionDate string

// NewSessionDate formats t as a SessionDate.
func NewSessionDate(t time.Time) SessionDate {
	return SessionDate(t.Format(sessionDateLayout))
}

// String returns the string representation.
func (d SessionDate) String() string {
	return string(d)
}

// Time parses the date at midnight in loc.
// It returns false when the code is missing or not a real calendar day.
func (d SessionDate) Time(loc *time.Location) (time.Time, bool) {
	s := string(d)
	if len(s) != 6 {
		return time.Time{}, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
	}

	yy, _ := strconv.Atoi(s[0:2])
	mm, _ := strconv.Atoi(s[2:4])
	dd, _ := strconv.Atoi(s[4:6])
	if loc == nil {
		loc = time.Local
	}

	t := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, loc)
	// time.Date normalises out-of-range values (Feb 30 -> Mar 2); reject those.
	if t.Year() != 2000+yy || int(t.Month()) != mm || t.Day() != dd {
		return time.Time{}, false
	}
	return t, true
}

// IsValid reports whether the code is a real calendar day.
func (d SessionDate) IsValid() bool {
	_, ok := d.Time(time.UTC)
	return ok
}

// SessionDateFromID extracts the date prefix of session IDs shaped like
// "240101_a". It returns "" when the prefix is not a valid date.
func SessionDateFromID(sessionID string) SessionDate {
	prefix, _, _ := strings.Cut(sessionID, "_")
	d := SessionDate(prefix)
	if !d.IsValid() {
		return ""
	}
	return d
}

// ResolveSessionDate prefers an explicit date and falls back to the session ID prefix.
func ResolveSessionDate(date SessionDate, sessionID string) SessionDate {
	if date.IsValid() {
		return date
	}
	return SessionDateFromID(sessionID)
}
