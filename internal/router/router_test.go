package router_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/tutoring-sessions/internal/model"
	"github.com/iliyamo/tutoring-sessions/internal/repository"
	"github.com/iliyamo/tutoring-sessions/internal/router"
	"github.com/iliyamo/tutoring-sessions/internal/service"
	"github.com/iliyamo/tutoring-sessions/internal/testutil"
)

const secret = "router-test-secret"

type api struct {
	t       *testing.T
	e       *echo.Echo
	store   *repository.Store
	svc     *service.Services
	admin   model.User
	tutor   model.User
	student model.User
	course  model.Course
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := testutil.NewStore(t)
	clock := testutil.NewClock(time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC))
	svc := service.New(store, &service.RecordingNotifier{}, zap.NewNop(), service.Options{Now: clock.Now})
	return &api{
		t:       t,
		e:       router.New(router.Deps{DB: store.DB(), Services: svc, Logger: zap.NewNop(), JWTSecret: secret, Timeout: 5 * time.Second}),
		store:   store,
		svc:     svc,
		admin:   testutil.SeedUser(t, store, model.RoleAdmin, "Ada Admin"),
		tutor:   testutil.SeedUser(t, store, model.RoleTutor, "Tom Tutor"),
		student: testutil.SeedUser(t, store, model.RoleStudent, "Sam Student"),
		course:  testutil.SeedCourse(t, store, "Algebra"),
	}
}

func (a *api) do(method, path string, as *model.User, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if as != nil {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+testutil.Token(a.t, secret, *as))
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticated(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/sessions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProposeApproveJoinOverHTTP(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/v1/wallets/add-minutes", &a.admin,
		`{"student_id":"`+a.student.ID+`","course_id":"`+a.course.ID+`","minutes":30}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(http.MethodPost, "/v1/proposals", &a.student, `{
		"tutor_id":"`+a.tutor.ID+`",
		"course_id":"`+a.course.ID+`",
		"proposed_start":"2025-03-10T14:00:00Z",
		"proposed_end":"2025-03-10T15:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	proposalID := decode(t, rec)["id"].(string)

	rec = a.do(http.MethodPost, "/v1/proposals/"+proposalID+"/approve", &a.tutor, `{"response":"see you"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decode(t, rec)["session"].(map[string]interface{})
	sessionID := sess["id"].(string)
	assert.Equal(t, "scheduled", sess["status"])

	rec = a.do(http.MethodPost, "/v1/proposals/"+proposalID+"/approve", &a.tutor, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = a.do(http.MethodPost, "/v1/sessions/"+sessionID+"/join", &a.student, "")
	require.Equal(t, http.StatusPaymentRequired, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 60, body["required"])
	assert.EqualValues(t, 30, body["balance"])
	assert.EqualValues(t, 30, body["shortfall"])

	rec = a.do(http.MethodGet, "/v1/sessions/"+sessionID, &a.student, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode(t, rec)["student_join_time"])
}

func TestStaffOnlyRoutes(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/wallets/add-minutes", &a.student,
		`{"student_id":"`+a.student.ID+`","course_id":"`+a.course.ID+`","minutes":30}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(http.MethodPost, "/v1/availability", &a.student,
		`{"day_of_week":1,"start_time":"09:00","end_time":"17:00"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestValidationErrorsNameFields(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/wallets/add-minutes", &a.admin, `{"minutes":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "validation failed", body["error"])
	fields := body["fields"].(map[string]interface{})
	assert.Contains(t, fields, "student_id")
	assert.Contains(t, fields, "minutes")

	rec = a.do(http.MethodPost, "/v1/wallets/allocate", &a.admin, `{
		"student_id":"`+a.student.ID+`",
		"total_hours":10,
		"allocations":{"`+a.course.ID+`":6}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["fields"], "allocations")
}

func TestNotFound(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/sessions/does-not-exist", &a.student, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvailabilityOverHTTP(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/availability", &a.tutor,
		`{"day_of_week":1,"start_time":"09:00","end_time":"17:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, "/v1/tutors/"+a.tutor.ID+"/availability", &a.student, "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode(t, rec)["items"].([]interface{})
	assert.Len(t, items, 1)

	windows, err := a.svc.Availability.ListByTutor(context.Background(), a.tutor.ID, true)
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "09:00", windows[0].StartTime)
}
