package reminder

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
)

// Service runs one reminder pass per invocation: it finds published live
// sessions starting 10-15 minutes from now that have not been reminded for
// their current schedule, emails every enrolled participant, and marks each
// session reminded with a conditional update. Invocations may overlap (cron
// ticks, retries); the query-time filter plus the conditional mark keep
// aggregate sends at one per participant per schedule.
type Service struct {
	courses     course.Repository
	enrollments enroll.Repository
	mailSvc     core.EmailService
	logger      core.Logger

	nowFunc func() time.Time // mockable
}

type (
	// SessionResult summarizes one session's reminder pass.
	SessionResult struct {
		SessionID     string `json:"sessionId"`
		Title         string `json:"title"`
		RemindersSent int    `json:"remindersSent"`
		Error         string `json:"error,omitempty"`
	}

	// Summary is the whole pass outcome, also serialized to the cron caller.
	Summary struct {
		Success            bool            `json:"success"`
		TotalEmailsSent    int             `json:"totalEmailsSent"`
		WorkshopsProcessed int             `json:"workshopsProcessed"`
		Results            []SessionResult `json:"results"`
	}
)

func NewService(courses course.Repository, enrollments enroll.Repository, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		courses:     courses,
		enrollments: enrollments,
		mailSvc:     mailSvc,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// Run executes a single reminder pass. A store failure on the initial query
// aborts the run; a failure on an individual session is recorded in its
// result and does not stop the others.
func (svc *Service) Run(ctx context.Context) (Summary, error) {
	now := svc.nowFunc().UTC()

	due, err := svc.courses.FindSessionsDue(ctx, now.Add(course.ReminderLeadMin), now.Add(course.ReminderLeadMax))
	if err != nil {
		return Summary{}, errors.Wrap(err, "querying due sessions")
	}

	summary := Summary{Success: true, Results: make([]SessionResult, 0, len(due))}
	for _, crs := range due {
		res := svc.processSession(ctx, crs, now)
		summary.Results = append(summary.Results, res)
		summary.WorkshopsProcessed++
		summary.TotalEmailsSent += res.RemindersSent
	}
	return summary, nil
}

func (svc *Service) processSession(ctx context.Context, crs course.Course, now time.Time) SessionResult {
	res := SessionResult{SessionID: crs.ID, Title: crs.Title}

	participants, err := svc.enrollments.QueryCourseParticipants(ctx, crs.ID)
	if err != nil {
		res.Error = "loading participants failed"
		svc.logger.Error(fmt.Sprintf("reminder: loading participants for course %s: %v", crs.ID, err), err)
		return res
	}

	for _, p := range participants {
		if svc.sendReminder(crs, p) {
			res.RemindersSent++
		}
	}

	// mark after the send loop, win-once: overlapping passes race here and
	// the conditional update picks a single winner
	marked, err := svc.courses.MarkSessionReminded(ctx, crs.ID, crs.Session.StartTime, now)
	if err != nil {
		res.Error = "marking session reminded failed"
		svc.logger.Error(fmt.Sprintf("reminder: marking course %s reminded: %v", crs.ID, err), err)
		return res
	}
	if !marked {
		svc.logger.Info(fmt.Sprintf("reminder: course %s already marked by a concurrent pass", crs.ID))
	}
	return res
}

// sendReminder emails one participant. A missing or unparseable address
// counts as a failed send; it never aborts the session's pass.
func (svc *Service) sendReminder(crs course.Course, p enroll.Participant) bool {
	addr, err := mail.ParseAddress(p.Email)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("reminder: participant %s has no valid contact address", p.UserID))
		return false
	}
	addr.Name = p.Name

	msg := &core.EmailMessage{
		To:           []mail.Address{*addr},
		Subject:      fmt.Sprintf("Reminder: %q starts soon", crs.Title),
		TemplateName: "workshop-reminder",
		TemplateData: struct {
			Name        string
			CourseTitle string
			StartTime   string
			MeetingLink string
		}{
			Name:        p.Name,
			CourseTitle: crs.Title,
			StartTime:   crs.Session.StartTime.Local().Format("Mon, 02 Jan 2006 at 15:04 MST"),
			MeetingLink: crs.Session.MeetingLink,
		},
	}
	return svc.mailSvc.SendMessage(msg)
}
