package specfmt

import (
	"math"
	"time"
)

// TimeLayout is the readable timestamp used on #D lines, e.g. "Fri Feb 19 14:01:35 2016".
const TimeLayout = "Mon Jan 02 15:04:05 2006"

// ToSpecTime renders t in the #D layout.
func ToSpecTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// FromSpecTime parses a #D timestamp in loc.
// A nil loc means time.Local.
func FromSpecTime(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(TimeLayout, s, loc)
}

// UnixTime converts fractional epoch seconds into a time in loc.
func UnixTime(epoch float64, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*1e9)).In(loc)
}

// Epoch truncates fractional epoch seconds toward zero, as on #E lines and data rows.
func Epoch(epoch float64) int64 {
	return int64(epoch)
}
