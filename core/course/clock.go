package course

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// SessionState is the lifecycle state of a live session at a given instant.
type SessionState string

const (
	StateUpcoming     SessionState = "UPCOMING"
	StateStartingSoon SessionState = "STARTING_SOON"
	StateLiveNow      SessionState = "LIVE_NOW"
	StateEnded        SessionState = "ENDED"
)

const (
	// StartingSoonLead is how long before start a session reads as
	// STARTING_SOON. The reminder window below shares the 10 minute figure;
	// the two must not drift apart or reminder emails land while the UI
	// still says "upcoming".
	StartingSoonLead = 10 * time.Minute

	// Reminder window: sessions starting within [now+ReminderLeadMin,
	// now+ReminderLeadMax] are due for reminder notifications.
	ReminderLeadMin = 10 * time.Minute
	ReminderLeadMax = 15 * time.Minute
)

// ErrInvalidSchedule is returned when a session's schedule data is malformed.
var ErrInvalidSchedule = errors.New("invalid session schedule")

// Classify determines the lifecycle state of a session at `now`.
// States are evaluated most urgent first; both the end instant and the
// 10-minute mark are inclusive boundaries.
func Classify(now, startTime time.Time, durationMinutes int) (SessionState, error) {
	if durationMinutes <= 0 || startTime.IsZero() {
		return "", ErrInvalidSchedule
	}

	end := startTime.Add(time.Duration(durationMinutes) * time.Minute)
	switch {
	case !now.Before(end):
		return StateEnded, nil
	case !now.Before(startTime):
		return StateLiveNow, nil
	case startTime.Sub(now) <= StartingSoonLead:
		return StateStartingSoon, nil
	default:
		return StateUpcoming, nil
	}
}

// StateAt classifies the session's lifecycle state at `now`.
func (s Session) StateAt(now time.Time) (SessionState, error) {
	return Classify(now, s.StartTime, s.DurationMinutes)
}

// TimeRemaining is the duration until the session starts. Display only;
// never use it to derive state.
func TimeRemaining(now, startTime time.Time) time.Duration {
	if d := startTime.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Countdown renders the time remaining as short human-readable text.
func Countdown(now, startTime time.Time) string {
	d := TimeRemaining(now, startTime)
	if d == 0 {
		return "starting now"
	}

	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d % (24 * time.Hour) / time.Hour)
	mins := int(d % time.Hour / time.Minute)

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
