package report

import "time"

// The header stamps are labeled PT, so renders are pinned to Pacific
// time wherever the binary runs. Falls back to local time when the
// zone database is unavailable.
var pacific = func() *time.Location {
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		return time.Local
	}
	return loc
}()

// Stamps formats the two header timestamps for a render at t:
// "Jan 02, 2006 at 03:04 PM PT" and "2006-01-02 (latest ds)".
func Stamps(t time.Time) (retrievedAt, dataAsOf string) {
	t = t.In(pacific)
	return t.Format("Jan 02, 2006 at 03:04 PM PT"), t.Format("2006-01-02") + " (latest ds)"
}
