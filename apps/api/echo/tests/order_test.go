package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/innoaccess/backend/apps/api/echo"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/order"
	"github.com/innoaccess/backend/core/user"
	testutil "github.com/innoaccess/backend/tests"
)

func notification(ref string, amount int64, success bool) order.Notification {
	n := order.Notification{Transaction: order.Transaction{
		ID:          "txn-" + ref,
		OrderRef:    ref,
		Amount:      strconv.FormatInt(amount, 10),
		Success:     success,
		PaymentType: "card",
		Time:        time.Now().UTC().Format("2006-01-02 15:04:05"),
	}}
	if success {
		n.Transaction.StatusCode = "200"
	} else {
		n.Transaction.StatusCode = "202"
		n.Transaction.StatusMessage = "card declined by issuer"
	}
	return n
}

func notifyPath(signature string) string {
	return "/v1/payments/notify?signature=" + signature
}

func Test_orderApi_checkout(t *testing.T) {
	srv := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Ida Instructor", "ida", "ida@test.local", "", []string{user.RoleInstructor}, true)
	student := testutil.CreateUser(t, usrRepo, "Sam Student", "sam", "sam@test.local", "secret", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	start := time.Now().UTC().Add(48 * time.Hour)
	paid := testutil.CreateLiveCourse(t, crsRepo, owner.ID, "Distributed Systems", 25000, start, 120)
	free := testutil.CreateLiveCourse(t, crsRepo, owner.ID, "Intro to Go", 0, start, 60)

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/courses/"+paid.ID+"/checkout")
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		}, rec)
	})

	t.Run("paid course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+paid.ID+"/checkout", token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var res order.CheckoutResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, student.ID, res.Order.UserID)
		assert.Equal(t, paid.ID, res.Order.CourseID)
		assert.Equal(t, paid.Price, res.Order.Amount)
		assert.Equal(t, order.StatusPending, res.Order.Status)
		assert.NotEmpty(t, res.Order.Reference)
		assert.Equal(t, "stub-token-"+res.Order.Reference, res.Checkout.Token)
		assert.NotEmpty(t, res.Checkout.RedirectURL)
	})

	t.Run("free course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+free.ID+"/checkout", token)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "this course is free; enroll directly"}),
		}, rec)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses/nope/checkout", token)
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})
}

func Test_orderApi_notify(t *testing.T) {
	srv := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Ida Instructor", "ida", "ida@test.local", "", []string{user.RoleInstructor}, true)
	student := testutil.CreateUser(t, usrRepo, "Sam Student", "sam", "sam@test.local", "secret", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	start := time.Now().UTC().Add(48 * time.Hour)
	crs := testutil.CreateLiveCourse(t, crsRepo, owner.ID, "Distributed Systems", 25000, start, 120)

	// create the pending order through the API
	req, rec := newAuthRequest(http.MethodPost, "/v1/courses/"+crs.ID+"/checkout", token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var chk order.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chk))
	ref := chk.Order.Reference

	key := conf.Gateway.ServerKey
	good := notification(ref, crs.Price, true)

	t.Run("bad signature", func(t *testing.T) {
		tests := []httpTest{
			{name: "missing", path: notifyPath("")},
			{name: "garbage", path: notifyPath("deadbeef")},
			{name: "wrong key", path: notifyPath(good.Signature("other-key"))},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req, rec := newRequest(http.MethodPost, tt.path, marchallObj(t, good))
				srv.ServeHTTP(rec, req)
				checkCodeAndData(t, httpTest{
					wantCode: http.StatusForbidden,
					wantData: marchallObj(t, httpErr{Error: order.ErrAuthenticationFailed.Error()}),
				}, rec)
			})
		}

		// order untouched
		ord, err := ordRepo.GetOrderByReference(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, order.StatusPending, ord.Status)
	})

	t.Run("malformed payload", func(t *testing.T) {
		n := notification("", crs.Price, true)
		req, rec := newRequest(http.MethodPost, notifyPath(n.Signature(key)), marchallObj(t, n))
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: order.ErrMalformedPayload.Error()}),
		}, rec)
	})

	t.Run("unknown order", func(t *testing.T) {
		n := notification("IA-doesnotexist", crs.Price, true)
		req, rec := newRequest(http.MethodPost, notifyPath(n.Signature(key)), marchallObj(t, n))
		srv.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: order.ErrOrderNotFound.Error()}),
		}, rec)
	})

	t.Run("settlement", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, notifyPath(good.Signature(key)), marchallObj(t, good))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res NotifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, string(order.StatusCompleted), res.Status)
		assert.False(t, res.AlreadyProcessed)

		ord, err := ordRepo.GetOrderByReference(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCompleted, ord.Status)

		enr, err := enrRepo.GetEnrollment(context.Background(), student.ID, crs.ID)
		require.NoError(t, err)
		assert.Equal(t, enroll.PaymentPaid, enr.PaymentStatus)
	})

	t.Run("redelivery", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, notifyPath(good.Signature(key)), marchallObj(t, good))
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var res NotifyResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, string(order.StatusCompleted), res.Status)
		assert.True(t, res.AlreadyProcessed)
	})
}

func Test_orderApi_notify_rejection(t *testing.T) {
	srv := setup(t)

	owner := testutil.CreateUser(t, usrRepo, "Ida Instructor", "ida", "ida@test.local", "", []string{user.RoleInstructor}, true)
	student := testutil.CreateUser(t, usrRepo, "Sam Student", "sam", "sam@test.local", "secret", []string{user.RoleStudent}, true)
	token := getToken(t, student)

	start := time.Now().UTC().Add(48 * time.Hour)
	crs := testutil.CreateLiveCourse(t, crsRepo, owner.ID, "Distributed Systems", 25000, start, 120)

	req, rec := newAuthRequest(http.MethodPost, fmt.Sprintf("/v1/courses/%s/checkout", crs.ID), token)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var chk order.CheckoutResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chk))

	n := notification(chk.Order.Reference, crs.Price, false)
	req, rec = newRequest(http.MethodPost, notifyPath(n.Signature(conf.Gateway.ServerKey)), marchallObj(t, n))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res NotifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, string(order.StatusRejected), res.Status)

	ord, err := ordRepo.GetOrderByReference(context.Background(), chk.Order.Reference)
	require.NoError(t, err)
	assert.Equal(t, order.StatusRejected, ord.Status)
	assert.Equal(t, "card declined by issuer", ord.RejectionReason.String)

	_, err = enrRepo.GetEnrollment(context.Background(), student.ID, crs.ID)
	assert.Equal(t, enroll.ErrNotFound, err)
}
