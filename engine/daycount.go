package engine

import "time"

// =============================================================================
// DAY COUNT - Leap-aware year basis, re-checked per window
// =============================================================================

// IsLeap reports whether year is a Gregorian leap year.
func IsLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns the year basis for the inclusive window [from, to]:
// 366 only when the window encloses a real Feb 29, otherwise 365.
//
// This is not fixed Actual/365: a leap year window that misses Feb 29
// (e.g. Mar 1 -> Apr 1) still uses 365.
func DaysInYear(from, to Date) int {
	if to.Before(from) {
		return 365
	}
	for y := from.Year(); y <= to.Year(); y++ {
		if !IsLeap(y) {
			continue
		}
		feb29 := NewDate(y, time.February, 29)
		if !feb29.Before(from) && !feb29.After(to) {
			return 366
		}
	}
	return 365
}

// windowDays returns the inclusive length of [from, to], never negative.
func windowDays(from, to Date) int {
	n := DaysBetween(from, to) + 1
	if n < 0 {
		return 0
	}
	return n
}
