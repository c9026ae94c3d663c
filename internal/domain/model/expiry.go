package model

import "time"

// Status classifies a record relative to a point in time.
type Status string

const (
	StatusActive       Status = "active"
	StatusExpiringSoon Status = "expiring_soon"
	StatusExpired      Status = "expired"
)

// DefaultExpiringSoonWindow is how close to expiry a record must be before it
// is flagged as expiring soon.
const DefaultExpiringSoonWindow = 72 * time.Hour

// ExpiryStatus is a transient view of a record's validity, computed at query
// time and never persisted.
type ExpiryStatus struct {
	Status        Status
	DaysRemaining int
}

// Expired reports whether the status is StatusExpired.
func (s ExpiryStatus) Expired() bool {
	return s.Status == StatusExpired
}

// ComputeExpiryStatus classifies r at now. soonWindow <= 0 disables the
// expiring-soon state.
func ComputeExpiryStatus(r Record, now time.Time, soonWindow time.Duration) ExpiryStatus {
	if r.IsExpired(now) {
		return ExpiryStatus{Status: StatusExpired, DaysRemaining: 0}
	}

	status := StatusActive
	if soonWindow > 0 && r.ExpiresAt.Sub(now) <= soonWindow {
		status = StatusExpiringSoon
	}

	return ExpiryStatus{Status: status, DaysRemaining: calendarDaysBetween(now, r.ExpiresAt)}
}

// calendarDaysBetween counts calendar dates from from to to in to's location.
func calendarDaysBetween(from, to time.Time) int {
	loc := to.Location()
	from = from.In(loc)
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
