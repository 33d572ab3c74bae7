package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innoaccess/backend/core/reminder"
	"github.com/innoaccess/backend/core/user"
	emailsvc "github.com/innoaccess/backend/services/email"
	testutil "github.com/innoaccess/backend/tests"
)

func Test_cronApi_remind_auth(t *testing.T) {
	srv := setup(t)

	tests := []httpTest{
		{
			name:     "no token",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "missing bearer token"}),
		},
		{
			name:     "wrong scheme",
			token:    "", // raw header set below via extra
			extra:    "Basic dXNlcjpwYXNz",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "missing bearer token"}),
		},
		{
			name:     "wrong secret",
			token:    "not-the-secret",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid bearer token"}),
		},
		{
			name:     "valid secret",
			token:    conf.CronSecret,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, reminder.Summary{
				Success: true,
				Results: []reminder.SessionResult{},
			}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/workshops/remind", tt.token)
			if h, ok := tt.extra.(string); ok && h != "" {
				req.Header.Set("Authorization", h)
			}
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_cronApi_remind_unconfiguredSecret(t *testing.T) {
	srv := setup(t)
	conf.CronSecret = ""

	req, rec := newAuthRequest(http.MethodGet, "/v1/workshops/remind", "anything")
	srv.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{
		wantCode: http.StatusUnauthorized,
		wantData: marchallObj(t, httpErr{Error: "scheduler secret not configured"}),
	}, rec)
}

func Test_cronApi_remind(t *testing.T) {
	srv := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Ida Instructor", "ida", "ida@test.local", "", []string{user.RoleInstructor}, true)
	alice := testutil.CreateUser(t, usrRepo, "Alice", "alice", "alice@test.local", "", []string{user.RoleStudent}, true)
	bob := testutil.CreateUser(t, usrRepo, "Bob", "bob", "bob@test.local", "", []string{user.RoleStudent}, true)

	start := time.Now().UTC().Add(12 * time.Minute).Truncate(time.Second)
	crs := testutil.CreateLiveCourse(t, crsRepo, owner.ID, "Go Concurrency", 0, start, 90)
	testutil.Enroll(t, enrRepo, alice.ID, crs.ID)
	testutil.Enroll(t, enrRepo, bob.ID, crs.ID)

	req, rec := newAuthRequest(http.MethodGet, "/v1/workshops/remind", conf.CronSecret)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary reminder.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 2, summary.TotalEmailsSent)
	assert.Equal(t, 1, summary.WorkshopsProcessed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, crs.ID, summary.Results[0].SessionID)
	assert.Equal(t, 2, summary.Results[0].RemindersSent)
	assert.Len(t, emailsvc.SentMessages, 2)

	// a second trigger within the same window is a no-op
	req, rec = newAuthRequest(http.MethodGet, "/v1/workshops/remind", conf.CronSecret)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.True(t, summary.Success)
	assert.Equal(t, 0, summary.TotalEmailsSent)
	assert.Equal(t, 0, summary.WorkshopsProcessed)
	assert.Len(t, emailsvc.SentMessages, 2)
}
