package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/user"
)

var errLiveFieldsRequired = "start_time, duration_minutes and meeting_link are required for live courses"

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, owner user.User, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		OwnerID:     owner.ID,
		Title:       core.CleanString(nc.Title),
		Description: core.CleanString(nc.Description),
		Type:        nc.Type,
		Price:       nc.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if nc.Type == TypeLive {
		start, err := parseStartTime(nc.StartTime)
		if err != nil {
			return Course{}, err
		}
		if nc.DurationMinutes <= 0 || nc.MeetingLink == "" {
			return Course{}, core.NewValidationError(errors.New(errLiveFieldsRequired))
		}
		crs.Session = Session{
			StartTime:       start,
			DurationMinutes: nc.DurationMinutes,
			MeetingLink:     nc.MeetingLink,
		}
	}

	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Course, error) {
	filter.Clean()
	return svc.repo.QueryCourses(ctx, filter)
}

// Update applies the provided changes. Changing a live session's start time
// leaves the reminded mark pointing at the old schedule, which re-arms
// reminder eligibility for the new one.
func (svc *Service) Update(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	if title := core.CleanString(uc.Title); title != "" {
		crs.Title = title
	}
	if uc.Description != nil {
		crs.Description = core.CleanString(*uc.Description)
	}
	if uc.Price != nil {
		crs.Price = *uc.Price
	}
	if crs.IsLive() {
		if uc.StartTime != "" {
			start, err := parseStartTime(uc.StartTime)
			if err != nil {
				return Course{}, err
			}
			crs.Session.StartTime = start
		}
		if uc.DurationMinutes != nil {
			if *uc.DurationMinutes <= 0 {
				return Course{}, core.NewValidationError(
					errors.New("duration must be positive"),
					core.FieldError{Field: "duration_minutes", Error: "must be a positive number of minutes"},
				)
			}
			crs.Session.DurationMinutes = *uc.DurationMinutes
		}
		if uc.MeetingLink != nil {
			crs.Session.MeetingLink = *uc.MeetingLink
		}
		if uc.RecordingLink != nil {
			crs.Session.RecordingLink = null.StringFrom(*uc.RecordingLink)
			crs.Session.IsRecordingAvailable = *uc.RecordingLink != ""
		}
	}
	crs.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateCourse(ctx, crs)
}

// SetPublished flips the admin approval flag.
func (svc *Service) SetPublished(ctx context.Context, id string, published bool) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	crs.Published = published
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func parseStartTime(val string) (time.Time, error) {
	start, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(
			ErrInvalidSchedule,
			core.FieldError{Field: "start_time", Error: "must be a valid RFC3339 timestamp"},
		)
	}
	return start.UTC(), nil
}
