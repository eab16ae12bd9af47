package engine

import (
	"time"

	"github.com/pieme/nzpoints/internal/questionnaire"
)

// AgeAt returns the number of whole years between dob and the calendar
// date of now. A birthday on 29 February falls on 28 February in common
// years. Dates of birth after now give a negative age.
func AgeAt(dob questionnaire.Date, now time.Time) int {
	today := questionnaire.DateOf(now)
	if today.Before(dob) {
		return -AgeAt(today, time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC))
	}
	years := today.Year() - dob.Year()
	month, day := dob.Month(), dob.Day()
	if last := daysIn(month, today.Year()); day > last {
		day = last
	}
	if today.Month() < month || (today.Month() == month && today.Day() < day) {
		years--
	}
	return years
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
