package utils

import "time"

// All persisted timestamps are unix seconds; rendering normalizes to ICT.
var vnLoc = func() *time.Location {
	if loc, err := time.LoadLocation("Asia/Ho_Chi_Minh"); err == nil {
		return loc
	}
	return time.FixedZone("ICT", 7*3600)
}()

func NowUnixSeconds() int64 { return time.Now().Unix() }

// FromUnixSecondsVN returns zero time for t<=0 so callers decide how to render.
func FromUnixSecondsVN(t int64) time.Time {
	if t <= 0 {
		return time.Time{}
	}
	return time.Unix(t, 0).In(vnLoc)
}

func FormatRFC3339VN(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(vnLoc).Format(time.RFC3339)
}

// DaysUntil is the whole number of days (rounded up) between now and a unix
// deadline. A deadline under 24h away counts as 1 day remaining.
func DaysUntil(now, deadline int64) int {
	diff := deadline - now
	if diff <= 0 {
		return 0
	}
	const day = 24 * 60 * 60
	return int((diff + day - 1) / day)
}
