package test_test

import "time"

// UTCTime creates a time in the UTC timezone so tests behave the same regardless of the
// local timezone of the machine running them.
func UTCTime(sec int64) time.Time {
	return time.Unix(sec, 0).In(time.UTC)
}
