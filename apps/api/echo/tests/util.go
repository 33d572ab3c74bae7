package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/innoaccess/backend/apps/api/echo"
	"github.com/innoaccess/backend/core"
	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/order"
	"github.com/innoaccess/backend/core/reminder"
	"github.com/innoaccess/backend/core/user"
	emailsvc "github.com/innoaccess/backend/services/email"
	dummydb "github.com/innoaccess/backend/storage/database/dummy"
	testutil "github.com/innoaccess/backend/tests"
)

var (
	conf *core.Config

	usrRepo user.Repository
	crsRepo course.Repository
	enrRepo enroll.Repository
	ordRepo order.Repository

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// gatewayStub stands in for the payment provider.
type gatewayStub struct{}

func (gatewayStub) CreateCheckout(ctx context.Context, ord order.Order, cust order.Customer) (order.Checkout, error) {
	return order.Checkout{
		Token:       "stub-token-" + ord.Reference,
		RedirectURL: "https://pay.test.local/" + ord.Reference,
	}, nil
}

func setup(t *testing.T) Server {
	t.Helper()

	conf = testutil.NewConfig()
	logger := testutil.Logger{T: t}
	core.ParseEmailTemplates(conf, logger)
	emailsvc.ResetSentMessages()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	crsRepo = dummydb.NewCourseRepository(db)
	enrRepo = dummydb.NewEnrollmentRepository(db)
	ordRepo = dummydb.NewOrderRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// set up server
	return NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     user.NewService(usrRepo),
		CourseSvc:   course.NewService(crsRepo),
		EnrollSvc:   enroll.NewService(enrRepo, crsRepo),
		CheckoutSvc: order.NewService(ordRepo, crsRepo, enrRepo, gatewayStub{}),
		Reconciler:  order.NewReconciler(ordRepo, enrRepo, crsRepo, conf.Gateway.ServerKey, logger),
		ReminderSvc: reminder.NewService(crsRepo, enrRepo, mailSvc, logger),
		RateLimiter: core.NewMemoryRateLimiter(),
		Validate:    validate,
		Translator:  translator,
	})
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(conf, usr)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
