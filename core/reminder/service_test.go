package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/user"
	emailsvc "github.com/innoaccess/backend/services/email"
	dummydb "github.com/innoaccess/backend/storage/database/dummy"
	testutil "github.com/innoaccess/backend/tests"
)

func setup(t *testing.T, now time.Time) (*Service, *dummydb.DB) {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.Logger{T: t}
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	db, err := dummydb.Open()
	require.NoError(t, err)

	svc := NewService(
		dummydb.NewCourseRepository(db),
		dummydb.NewEnrollmentRepository(db),
		emailsvc.NewConsoleServiceMock(conf),
		logger,
	)
	svc.nowFunc = func() time.Time { return now }
	return svc, db
}

func seedParticipants(t *testing.T, db *dummydb.DB, courseID string, users ...user.User) {
	t.Helper()
	enrRepo := dummydb.NewEnrollmentRepository(db)
	for _, usr := range users {
		enrRepo.SeedUser(usr)
		testutil.Enroll(t, enrRepo, usr.ID, courseID)
	}
}

func Test_Service_Run(t *testing.T) {
	now := time.Date(2026, 3, 15, 17, 48, 0, 0, time.UTC)
	svc, db := setup(t, now)
	crsRepo := dummydb.NewCourseRepository(db)

	// starts in 12 minutes: in the window
	due := testutil.CreateLiveCourse(t, crsRepo, "owner-1", "Go Concurrency", 0, now.Add(12*time.Minute), 60)
	// starts in 30 minutes: out of the window
	testutil.CreateLiveCourse(t, crsRepo, "owner-1", "Later Workshop", 0, now.Add(30*time.Minute), 60)

	seedParticipants(t, db, due.ID,
		user.User{ID: "u1", Name: "Ada", Email: "ada@test.cd"},
		user.User{ID: "u2", Name: "Grace", Email: "grace@test.cd"},
		user.User{ID: "u3", Name: "No Address", Email: "not-an-email"},
	)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.WorkshopsProcessed)
	assert.Equal(t, 2, summary.TotalEmailsSent)
	require.Len(t, summary.Results, 1)
	res := summary.Results[0]
	assert.Equal(t, due.ID, res.SessionID)
	assert.Equal(t, "Go Concurrency", res.Title)
	assert.Equal(t, 2, res.RemindersSent)
	assert.Empty(t, res.Error)

	assert.Len(t, emailsvc.SentMessages, 2)

	// the session is marked for its current start time
	crs, err := crsRepo.GetCourseByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.True(t, crs.Session.RemindedStartTime.Valid)
	assert.True(t, crs.Session.RemindedStartTime.Time.Equal(due.Session.StartTime))
	assert.True(t, crs.Session.LastReminderSentAt.Valid)
}

func Test_Service_Run_idempotent(t *testing.T) {
	now := time.Date(2026, 3, 15, 17, 48, 0, 0, time.UTC)
	svc, db := setup(t, now)
	crsRepo := dummydb.NewCourseRepository(db)

	due := testutil.CreateLiveCourse(t, crsRepo, "owner-1", "Go Concurrency", 0, now.Add(12*time.Minute), 60)
	seedParticipants(t, db, due.ID, user.User{ID: "u1", Name: "Ada", Email: "ada@test.cd"})

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalEmailsSent)

	// second pass in the same window: session already marked, nothing sent
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.WorkshopsProcessed)
	assert.Equal(t, 0, second.TotalEmailsSent)
	assert.Len(t, emailsvc.SentMessages, 1)
}

func Test_Service_Run_rescheduleReArms(t *testing.T) {
	now := time.Date(2026, 3, 15, 17, 48, 0, 0, time.UTC)
	svc, db := setup(t, now)
	crsRepo := dummydb.NewCourseRepository(db)

	due := testutil.CreateLiveCourse(t, crsRepo, "owner-1", "Go Concurrency", 0, now.Add(12*time.Minute), 60)
	seedParticipants(t, db, due.ID, user.User{ID: "u1", Name: "Ada", Email: "ada@test.cd"})

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	// move the session out and back into a later window
	crs, err := crsRepo.GetCourseByID(context.Background(), due.ID)
	require.NoError(t, err)
	newStart := now.Add(2 * time.Hour)
	crs.Session.StartTime = newStart
	_, err = crsRepo.UpdateCourse(context.Background(), crs)
	require.NoError(t, err)

	svc.nowFunc = func() time.Time { return newStart.Add(-12 * time.Minute) }
	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.WorkshopsProcessed)
	assert.Equal(t, 1, summary.TotalEmailsSent)
	assert.Len(t, emailsvc.SentMessages, 2)
}

func Test_Service_Run_zeroEnrollments(t *testing.T) {
	now := time.Date(2026, 3, 15, 17, 48, 0, 0, time.UTC)
	svc, db := setup(t, now)
	crsRepo := dummydb.NewCourseRepository(db)

	due := testutil.CreateLiveCourse(t, crsRepo, "owner-1", "Lonely Workshop", 0, now.Add(12*time.Minute), 60)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.WorkshopsProcessed)
	assert.Equal(t, 0, summary.TotalEmailsSent)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 0, summary.Results[0].RemindersSent)

	// still marked so the empty session is not reprocessed forever
	crs, err := crsRepo.GetCourseByID(context.Background(), due.ID)
	require.NoError(t, err)
	assert.True(t, crs.Session.RemindedStartTime.Valid)
}

func Test_Service_Run_boundaries(t *testing.T) {
	now := time.Date(2026, 3, 15, 17, 48, 0, 0, time.UTC)
	svc, db := setup(t, now)
	crsRepo := dummydb.NewCourseRepository(db)

	// both window edges are inclusive
	atMin := testutil.CreateLiveCourse(t, crsRepo, "o", "At Min", 0, now.Add(10*time.Minute), 60)
	atMax := testutil.CreateLiveCourse(t, crsRepo, "o", "At Max", 0, now.Add(15*time.Minute), 60)
	testutil.CreateLiveCourse(t, crsRepo, "o", "Too Soon", 0, now.Add(9*time.Minute), 60)
	testutil.CreateLiveCourse(t, crsRepo, "o", "Too Late", 0, now.Add(16*time.Minute), 60)

	summary, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.WorkshopsProcessed)

	ids := make(map[string]bool, len(summary.Results))
	for _, res := range summary.Results {
		ids[res.SessionID] = true
	}
	assert.True(t, ids[atMin.ID])
	assert.True(t, ids[atMax.ID])
}
