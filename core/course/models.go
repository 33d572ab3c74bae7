package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core"
)

var ErrNotFound = errors.New("course not found")

// Type discriminates live workshops from recorded (self-paced) courses.
type Type string

const (
	TypeLive     Type = "live"
	TypeRecorded Type = "recorded"
)

// Session is the scheduled live event embedded in a live-type Course.
// LastReminderSentAt, once set, is never cleared for the same StartTime;
// RemindedStartTime records which schedule the reminder was sent for, so an
// edited StartTime re-arms reminder eligibility.
type Session struct {
	StartTime            time.Time   `json:"start_time"`
	DurationMinutes      int         `json:"duration_minutes"`
	MeetingLink          string      `json:"meeting_link,omitempty"`
	RecordingLink        null.String `json:"recording_link,omitempty"`
	IsRecordingAvailable bool        `json:"is_recording_available"`
	LastReminderSentAt   null.Time   `json:"last_reminder_sent_at,omitempty"`
	RemindedStartTime    null.Time   `json:"-"`
}

type Course struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Type          Type      `json:"type"`
	Price         int64     `json:"price"` // minor currency units; 0 = free
	Published     bool      `json:"published"`
	EnrolledCount int       `json:"enrolled_count"`
	Session       Session   `json:"session"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

func (c *Course) IsFree() bool { return c.Price == 0 }
func (c *Course) IsLive() bool { return c.Type == TypeLive }

type Repository interface {
	CreateCourse(ctx context.Context, crs Course) (Course, error)
	GetCourseByID(ctx context.Context, id string) (Course, error)
	QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
	UpdateCourse(ctx context.Context, crs Course) (Course, error)
	IncrementEnrolledCount(ctx context.Context, id string) error

	// FindSessionsDue returns published live courses whose session starts
	// within [from, to] and which have not been reminded for their current
	// start time.
	FindSessionsDue(ctx context.Context, from, to time.Time) ([]Course, error)
	// MarkSessionReminded conditionally records that reminders went out for
	// the session schedule identified by (id, startTime). It reports whether
	// this call won the mark; a false return with nil error means another
	// invocation already marked it (or the schedule changed underneath).
	MarkSessionReminded(ctx context.Context, id string, startTime, sentAt time.Time) (bool, error)
}

type QueryFilter struct {
	Search        string `query:"search"`
	Type          Type   `query:"type"`
	PublishedOnly bool   `query:"-"`
	OwnerID       string `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// NewCourse contains information needed to author a course.
type NewCourse struct {
	Title           string `json:"title" validate:"required"`
	Description     string `json:"description"`
	Type            Type   `json:"type" validate:"required,oneof=live recorded"`
	Price           int64  `json:"price" validate:"min=0"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MeetingLink     string `json:"meeting_link"`
}

// UpdateCourse defines what information may be provided to modify a course.
// A changed StartTime re-arms reminder eligibility (the reminded mark is
// keyed to the start time it was sent for).
type UpdateCourse struct {
	Title           string  `json:"title"`
	Description     *string `json:"description"`
	Price           *int64  `json:"price" validate:"omitempty,min=0"`
	StartTime       string  `json:"start_time"`
	DurationMinutes *int    `json:"duration_minutes"`
	MeetingLink     *string `json:"meeting_link"`
	RecordingLink   *string `json:"recording_link"`
}
