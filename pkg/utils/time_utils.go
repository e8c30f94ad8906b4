package utils

import (
	"time"
)

// ISODateLayout is the yyyy-MM-dd layout mandated by NextGenPSD2 for all
// date-only fields.
const ISODateLayout = "2006-01-02"

// GetCurrentTimeMillis returns current time in milliseconds since epoch
func GetCurrentTimeMillis() int64 {
	return time.Now().UnixNano() / int64(time.Millisecond)
}

// MillisToTime converts milliseconds since epoch to time.Time in UTC.
// Date-only values are persisted as UTC midnight, so formatting them back
// must not shift through the server's local zone.
func MillisToTime(millis int64) time.Time {
	return time.Unix(0, millis*int64(time.Millisecond)).UTC()
}

// TimeToMillis converts time.Time to milliseconds since epoch
func TimeToMillis(t time.Time) int64 {
	return t.UnixNano() / int64(time.Millisecond)
}

// ParseISODate parses a yyyy-MM-dd date string.
func ParseISODate(dateStr string) (time.Time, error) {
	return time.Parse(ISODateLayout, dateStr)
}

// FormatISODate formats a time as yyyy-MM-dd.
func FormatISODate(t time.Time) string {
	return t.Format(ISODateLayout)
}

// TodayUTC returns today's date at midnight UTC. Berlin date semantics are
// evaluated against UTC, not server local time.
func TodayUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// IsPastDate reports whether the given date-only value is strictly before
// today UTC.
func IsPastDate(date time.Time) bool {
	return date.Before(TodayUTC())
}

// DaysFromToday returns today UTC plus the given number of days.
func DaysFromToday(days int) time.Time {
	return TodayUTC().AddDate(0, 0, days)
}
