package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/innoaccess/backend/apps/api/echo"
	"github.com/innoaccess/backend/core/user"
	testutil "github.com/innoaccess/backend/tests"
)

func Test_userApi_login(t *testing.T) {
	srv := setup(t)

	testutil.CreateUser(t, usrRepo, "Sam Student", "samstudent", "sam@test.local", "LePassword", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Dee Activated", "deactivated", "dee@test.local", "LePassword", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name:     "empty body",
			body:     []byte("{}"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "ghost1", Password: "LePassword"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: "samstudent", Password: "NotIt"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: "deactivated", Password: "LePassword"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "username is case-insensitive",
			body:     marchallObj(t, LoginRequest{Username: "SamStudent", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login by email",
			body:     marchallObj(t, LoginRequest{Username: "sam@test.local", Password: "LePassword"}),
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			srv.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				var res LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.NotEmpty(t, res.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_login_rateLimited(t *testing.T) {
	srv := setup(t)

	testutil.CreateUser(t, usrRepo, "Sam Student", "samstudent", "sam@test.local", "LePassword", []string{user.RoleStudent}, true)
	body := marchallObj(t, LoginRequest{Username: "samstudent", Password: "NotIt"})

	// failed attempts count against the limit
	for i := 0; i < 5; i++ {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}

	// the sixth attempt is throttled even with the right password
	req, rec := newRequest(http.MethodPost, "/v1/users/login",
		marchallObj(t, LoginRequest{Username: "samstudent", Password: "LePassword"}))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// other accounts are unaffected
	testutil.CreateUser(t, usrRepo, "Other", "otherone", "other@test.local", "LePassword", []string{user.RoleStudent}, true)
	req, rec = newRequest(http.MethodPost, "/v1/users/login",
		marchallObj(t, LoginRequest{Username: "otherone", Password: "LePassword"}))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_register(t *testing.T) {
	srv := setup(t)

	body := marchallObj(t, map[string]interface{}{
		"name":             "New Student",
		"username":         "newstudent",
		"email":            "new@test.local",
		"password":         "LePassword",
		"password_confirm": "LePassword",
		"roles":            []string{user.RoleAdmin}, // must be ignored
	})
	req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var usr user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
	assert.Equal(t, "newstudent", usr.Username)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)

	t.Run("duplicate username", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("password mismatch", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{
			"name":             "Other Student",
			"username":         "otherstudent",
			"email":            "other@test.local",
			"password":         "LePassword",
			"password_confirm": "SomethingElse",
		})
		req, rec := newRequest(http.MethodPost, "/v1/users/register", body)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func Test_userApi_me(t *testing.T) {
	srv := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Sam Student", "samstudent", "sam@test.local", "LePassword", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{
			name:     "auth required",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "ok",
			token:    getToken(t, usr),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users/me", tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_query(t *testing.T) {
	srv := setup(t)
	student := testutil.CreateUser(t, usrRepo, "Sam Student", "samstudent", "sam@test.local", "LePassword", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Ada Admin", "adaadmin", "ada@test.local", "LePassword", user.AllRoles, true)

	tests := []httpTest{
		{
			name:     "students cannot list users",
			token:    getToken(t, student),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admins can",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallList(t, student, admin),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	srv := setup(t)
	usr := testutil.CreateUser(t, usrRepo, "Sam Student", "samstudent", "sam@test.local", "LePassword", []string{user.RoleStudent}, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Token)
}
