// Package testutil provides shared fixtures for the test suites.
package testutil

import (
	"context"
	"fmt"
	"net/mail"
	"testing"
	"time"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/user"
)

// NewConfig returns a minimal config for tests.
func NewConfig() *core.Config {
	conf := &core.Config{
		Debug:            false,
		TestMode:         true,
		Env:              "TEST",
		AppName:          "InnoAccess",
		WorkDir:          core.Getwd(),
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Name: "InnoAccess", Address: "noreply@test.local"},
		CronSecret:       "test-cron-secret",
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = time.Hour
	conf.Gateway.ServerKey = "test-server-key"
	return conf
}

// Logger is a core.Logger that writes to the test log.
type Logger struct {
	T *testing.T
}

func (l Logger) log(lvl, msg string, args []interface{}) {
	if l.T == nil {
		return
	}
	l.T.Helper()
	l.T.Logf("%s: %s %v", lvl, msg, args)
}

func (l Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser(): %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

// CreateLiveCourse creates a published live course starting at `start`.
func CreateLiveCourse(
	t *testing.T,
	repo course.Repository,
	ownerID, title string,
	price int64,
	start time.Time,
	durationMinutes int,
) course.Course {
	t.Helper()
	now := time.Now().UTC()
	crs := course.Course{
		OwnerID:     ownerID,
		Title:       title,
		Description: "test workshop",
		Type:        course.TypeLive,
		Price:       price,
		Published:   true,
		Session: course.Session{
			StartTime:       start.UTC(),
			DurationMinutes: durationMinutes,
			MeetingLink:     "https://meet.test.local/" + title,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	crs, err := repo.CreateCourse(context.Background(), crs)
	if err != nil {
		t.Fatalf("CreateLiveCourse(): %v", err)
	}
	return crs
}

// Enroll creates an enrollment for the given user and course.
func Enroll(t *testing.T, repo enroll.Repository, userID, courseID string) enroll.Enrollment {
	t.Helper()
	enr, err := repo.CreateEnrollment(context.Background(), enroll.Enrollment{
		ID:            fmt.Sprintf("enr-%s-%s", userID, courseID),
		UserID:        userID,
		CourseID:      courseID,
		PaymentStatus: enroll.PaymentFree,
		Progress:      []string{},
		EnrolledAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enroll(): %v", err)
	}
	return enr
}
