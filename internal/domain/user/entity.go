package user

import (
	"fmt"
	"time"
)

// DateLayout is the ISO-8601 calendar date layout used for birth dates.
const DateLayout = "2006-01-02"

// User represents a registered individual.
type User struct {
	ID        int64     // ID is assigned by storage on creation and never reassigned
	Name      string    // Name is the full name of the user
	Email     string    // Email is unique across all users
	CPF       string    // CPF is the taxpayer registry number, unique across all users
	BirthDate time.Time // BirthDate is a calendar date at UTC midnight
}

// BornAfter reports whether the user was born strictly after the given date.
func (u User) BornAfter(date time.Time) bool {
	return Truncate(u.BirthDate).After(Truncate(date))
}

// ParseDate parses a YYYY-MM-DD string into a calendar date at UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Truncate drops the clock part of t, keeping its calendar date in UTC.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
