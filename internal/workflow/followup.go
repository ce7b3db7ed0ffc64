package workflow

import "time"

// DefaultFollowUpWindow is how long a recorded follow-up suppresses the
// next timestamp update.
const DefaultFollowUpWindow = 7 * 24 * time.Hour

const week = 7 * 24 * time.Hour

// BacklogWeeks is the "weeks waiting" indicator shown next to a quotation.
// It counts whole weeks since creation until the first follow-up; a
// follow-up visually resets the indicator to zero and counting resumes from
// the follow-up instant. This dual counter is intentional: the backlog
// column drops to 0 the moment a quotation is followed up, then climbs
// again week by week.
func BacklogWeeks(createdAt time.Time, lastFollowUp *time.Time, now time.Time) int {
	anchor := createdAt
	if lastFollowUp != nil {
		anchor = *lastFollowUp
	}
	if now.Before(anchor) {
		return 0
	}
	return int(now.Sub(anchor) / week)
}

// FollowUpSuppressed reports whether a new follow-up should leave the
// timestamp untouched because the previous one is less than the window ago.
// External notifications still go out when suppressed; only the recorded
// timestamp holds still.
func FollowUpSuppressed(lastFollowUp *time.Time, now time.Time, window time.Duration) bool {
	if lastFollowUp == nil {
		return false
	}
	if window <= 0 {
		window = DefaultFollowUpWindow
	}
	return now.Sub(*lastFollowUp) < window
}
