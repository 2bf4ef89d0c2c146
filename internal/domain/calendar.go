package domain

import (
	"fmt"
	"time"
)

// Window is the inclusive ISO week range of the growing season.
type Window struct {
	StartWeek int `json:"start_week"`
	EndWeek   int `json:"end_week"`
}

// DefaultWindow covers early April to late October.
var DefaultWindow = Window{StartWeek: 14, EndWeek: 44}

// Validate requires 1 <= StartWeek <= EndWeek <= 53.
func (w Window) Validate() error {
	if w.StartWeek < 1 || w.EndWeek > 53 || w.EndWeek < w.StartWeek {
		return fmt.Errorf("%w: start=%d end=%d", ErrInvalidWindow, w.StartWeek, w.EndWeek)
	}
	return nil
}

// Weeks lists the window's weeks that exist in the given ISO year.
func (w Window) Weeks(year int) []int {
	last := min(w.EndWeek, WeeksInISOYear(year))
	if last < w.StartWeek {
		return nil
	}
	weeks := make([]int, 0, last-w.StartWeek+1)
	for wk := w.StartWeek; wk <= last; wk++ {
		weeks = append(weeks, wk)
	}
	return weeks
}

// WeekStart returns the Monday (UTC) of the given ISO week.
func WeekStart(year, week int) time.Time {
	// January 4th always falls in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// WeeksInISOYear returns 52 or 53.
func WeeksInISOYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

type yearWeek struct {
	year int
	week int
}

