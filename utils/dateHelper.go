package utils

import (
	"strconv"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02T15:04:05Z"
	PeriodLayout    = "2006-01"
)

func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Period is the accounting period (calendar month) a date falls into.
func Period(t time.Time) string {
	return t.UTC().Format(PeriodLayout)
}

func FirstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func LastOfMonth(t time.Time) time.Time {
	return FirstOfMonth(t).AddDate(0, 1, -1)
}

// MonthsBetween lists the first day of every month from start to end, inclusive.
func MonthsBetween(start, end time.Time) []time.Time {
	months := make([]time.Time, 0)
	if end.Before(start) {
		return months
	}
	last := FirstOfMonth(end)
	for m := FirstOfMonth(start); !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}

// TruncateDay drops the time of day.
func TruncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatInt(n int) string {
	return strconv.Itoa(n)
}

func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}
