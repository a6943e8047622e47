package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"csp-portal/internal/auth"
	"csp-portal/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret"
	testIssuer = "csp-portal-test"
)

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t     *testing.T
	srv   *Server
	store *repo.Memory
	clock time.Time
}

func newTestEnv(t *testing.T, basePath string) *testEnv {
	t.Helper()
	env := &testEnv{t: t, clock: testNow}
	env.store = repo.NewMemory(repo.WithClock(env.now))
	env.srv = New(Config{
		BasePath:       basePath,
		AllowedOrigins: []string{"*"},
		JWTSecret:      testSecret,
		JWTIssuer:      testIssuer,
		TokenTTL:       time.Hour,
	}, env.store, zap.NewNop(), nil)
	env.srv.now = env.now
	return env
}

func (e *testEnv) now() time.Time { return e.clock }

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) user(username string, role auth.Role) *repo.User {
	e.t.Helper()
	u, err := e.store.CreateUser(context.Background(), repo.NewUser{
		Username: username,
		Password: "unused",
		FullName: "User " + username,
		Email:    username + "@example.com",
		Role:     string(role),
	})
	require.NoError(e.t, err)
	return u
}

func (e *testEnv) token(u *repo.User) string {
	e.t.Helper()
	token, err := auth.NewAccessToken(testSecret, testIssuer, time.Hour, auth.Claims{UserID: u.ID, Role: auth.Role(u.Role)})
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) csp(owner *repo.User, code string) *repo.CSP {
	e.t.Helper()
	c, err := e.store.CreateCSP(context.Background(), repo.NewCSP{UserID: owner.ID, Code: code, Address: "1 Main St", District: "Pune", State: "Maharashtra"})
	require.NoError(e.t, err)
	return c
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGuardAnswersBeforeReadingPayload(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.user("root", auth.RoleAdmin)
	agent := env.user("agent", auth.RoleCSP)

	rec := env.do(http.MethodGet, "/api/csps", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Unauthorized"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/csps", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign, err := auth.NewAccessToken("other-secret", testIssuer, time.Hour, auth.Claims{UserID: admin.ID, Role: auth.RoleAdmin})
	require.NoError(t, err)
	rec = env.do(http.MethodGet, "/api/csps", nil, foreign)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/csps", "{broken", env.token(agent))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Forbidden"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/csps", map[string]any{
		"userId": agent.ID, "cspId": "CSP-100", "address": "Station Rd", "district": "Pune", "state": "Maharashtra",
	}, env.token(admin))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[repo.CSP](t, rec)
	assert.Equal(t, 100, created.RiskScore)
	assert.Equal(t, "active", created.Status)

	fi := env.user("lender", auth.RoleFI)
	rec = env.do(http.MethodPost, "/api/csps", map[string]any{
		"userId": agent.ID, "cspId": "CSP-101", "address": "Station Rd", "district": "Pune", "state": "Maharashtra",
	}, env.token(fi))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateUserReportsEveryViolation(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(http.MethodPost, "/api/users", map[string]any{"role": "pilot", "email": "nope"}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "Invalid request", body["message"])
	for _, want := range []string{"username is required", "password is required", "fullName is required", "email must be a valid email address", "role must be one of"} {
		assert.Contains(t, body["detail"], want)
	}

	rec = env.do(http.MethodPost, "/api/users", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "request body is required")
}

func TestCreateUserRejectsOverlongPassword(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(http.MethodPost, "/api/users", map[string]any{
		"username": "long",
		"password": strings.Repeat("p", 80),
		"fullName": "Long Password",
		"email":    "long@example.com",
		"role":     "csp",
	}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decodeBody[map[string]string](t, rec)["detail"], "password must be at most 72 bytes")

	u, err := env.store.GetUserByUsername(context.Background(), "long")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestRegisterLoginAndMe(t *testing.T) {
	env := newTestEnv(t, "")
	payload := map[string]any{
		"username": "kavya",
		"password": "s3cret-pass",
		"fullName": "Kavya Iyer",
		"email":    "kavya@example.com",
		"role":     "auditor",
	}

	rec := env.do(http.MethodPost, "/api/users", payload, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")
	assert.NotContains(t, rec.Body.String(), "s3cret-pass")
	created := decodeBody[repo.User](t, rec)
	assert.Equal(t, "active", created.Status)

	stored, err := env.store.GetUser(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(stored.PasswordHash, "s3cret-pass"))

	rec = env.do(http.MethodPost, "/api/users", payload, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"message":"Username already exists"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "kavya", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "ghost", "password": "x"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "kavya", "password": "s3cret-pass"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "s3cret-pass")
	login := decodeBody[struct {
		Token string    `json:"token"`
		User  repo.User `json:"user"`
	}](t, rec)
	require.NotEmpty(t, login.Token)
	require.NotNil(t, login.User.LastLogin)
	assert.True(t, testNow.Equal(*login.User.LastLogin))

	claims, err := auth.ParseToken(testSecret, testIssuer, login.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)
	assert.Equal(t, auth.RoleAuditor, claims.Role)

	rec = env.do(http.MethodGet, "/api/auth/me", nil, login.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeBody[repo.User](t, rec)
	assert.Equal(t, "kavya", me.Username)
}

func TestGuardChecksStoredUser(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	admin := env.user("root", auth.RoleAdmin)
	token := env.token(admin)
	patch := map[string]any{"level": 2}

	rec := env.do(http.MethodPut, "/api/war-mode", patch, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	demoted := string(auth.RoleCustomer)
	_, err := env.store.UpdateUser(ctx, admin.ID, repo.UserPatch{Role: &demoted})
	require.NoError(t, err)
	rec = env.do(http.MethodPut, "/api/war-mode", patch, token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	suspended := "suspended"
	_, err = env.store.UpdateUser(ctx, admin.ID, repo.UserPatch{Status: &suspended})
	require.NoError(t, err)
	rec = env.do(http.MethodPut, "/api/war-mode", patch, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodGet, "/api/auth/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ghost, err := auth.NewAccessToken(testSecret, testIssuer, time.Hour, auth.Claims{UserID: 999, Role: auth.RoleAdmin})
	require.NoError(t, err)
	rec = env.do(http.MethodGet, "/api/auth/me", nil, ghost)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRefusesInactiveAccount(t *testing.T) {
	env := newTestEnv(t, "")
	rec := env.do(http.MethodPost, "/api/users", map[string]any{
		"username": "dormant",
		"password": "s3cret-pass",
		"fullName": "Dormant User",
		"email":    "dormant@example.com",
		"role":     "bank",
		"status":   "inactive",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/auth/login", map[string]string{"username": "dormant", "password": "s3cret-pass"}, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Account is not active"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "token")
}

func TestUpdateUserIsAdminOnly(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.user("root", auth.RoleAdmin)
	target := env.user("agent", auth.RoleCSP)
	path := fmt.Sprintf("/api/users/%d", target.ID)

	rec := env.do(http.MethodPut, path, map[string]string{"status": "suspended"}, env.token(target))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPut, path, map[string]string{"status": "suspended"}, env.token(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "suspended", decodeBody[repo.User](t, rec).Status)

	rec = env.do(http.MethodPut, path, map[string]string{"status": "banished"}, env.token(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/users/999", map[string]string{"status": "active"}, env.token(admin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathAndLimitValidation(t *testing.T) {
	env := newTestEnv(t, "")

	for _, path := range []string{"/api/users/abc", "/api/users/0", "/api/users/-3", "/api/csps/1.5"} {
		rec := env.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}

	rec := env.do(http.MethodGet, "/api/users/99", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/transactions/csp/1?limit=many", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/alerts?cspId=x", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListCSPsFilters(t *testing.T) {
	env := newTestEnv(t, "")
	ctx := context.Background()
	viewer := env.user("viewer", auth.RoleBank)
	a := env.csp(viewer, "CSP-A")
	b := env.csp(viewer, "CSP-B")
	env.csp(viewer, "CSP-C")

	flagged, red := "flagged", true
	_, err := env.store.UpdateCSP(ctx, a.ID, repo.CSPPatch{Status: &flagged, IsRedZone: &red})
	require.NoError(t, err)
	_, err = env.store.UpdateCSP(ctx, b.ID, repo.CSPPatch{Status: &flagged})
	require.NoError(t, err)

	rec := env.do(http.MethodGet, "/api/csps?isRedZone=maybe", nil, env.token(viewer))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/csps?status=flagged&isRedZone=true", nil, env.token(viewer))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]repo.CSP](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "CSP-A", list[0].Code)

	rec = env.do(http.MethodGet, "/api/csps?status=suspended", nil, env.token(viewer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/csps/user/%d", viewer.ID), nil, env.token(viewer))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, a.ID, decodeBody[repo.CSP](t, rec).ID)

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/csps/%d", b.ID), map[string]any{"deviceId": "DEV-7", "riskScore": 40}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[repo.CSP](t, rec)
	assert.Equal(t, 40, updated.RiskScore)
	assert.Equal(t, "DEV-7", *updated.DeviceID)

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/csps/%d", b.ID), map[string]any{"riskScore": 140}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTransactionsDefaultLimitNewestFirst(t *testing.T) {
	env := newTestEnv(t, "")
	owner := env.user("owner", auth.RoleCSP)
	c := env.csp(owner, "CSP-A")

	for i := 1; i <= 12; i++ {
		rec := env.do(http.MethodPost, "/api/transactions", map[string]any{
			"transactionId": fmt.Sprintf("TXN-%02d", i),
			"cspId":         c.ID,
			"customerName":  "Meera",
			"type":          "deposit",
			"amount":        1000 * i,
			"status":        "completed",
			"location":      map[string]float64{"lat": 18.5, "lng": 73.8},
		}, "")
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		env.advance(time.Minute)
	}

	rec := env.do(http.MethodGet, fmt.Sprintf("/api/transactions/csp/%d", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	all := decodeBody[[]repo.Transaction](t, rec)
	require.Len(t, all, 10)
	assert.Equal(t, "TXN-12", all[0].Code)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/transactions/csp/%d?limit=2", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	top := decodeBody[[]repo.Transaction](t, rec)
	require.Len(t, top, 2)
	assert.Equal(t, []string{"TXN-12", "TXN-11"}, []string{top[0].Code, top[1].Code})

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/transactions/csp/%d?limit=0", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/transactions/csp/%d?limit=-1", c.ID), nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/alerts/csp/%d?limit=0", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/transactions/%d", top[1].ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"lat":18.5,"lng":73.8}`, string(decodeBody[repo.Transaction](t, rec).Location))

	rec = env.do(http.MethodPost, "/api/transactions", map[string]any{
		"transactionId": "TXN-X", "cspId": c.ID, "customerName": "M", "type": "deposit", "amount": -5, "status": "completed",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/transactions", map[string]any{
		"transactionId": "TXN-Y", "cspId": 999, "customerName": "M", "type": "deposit", "amount": 5, "status": "completed",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Referenced record does not exist")

	rec = env.do(http.MethodPost, "/api/transactions", map[string]any{
		"transactionId": "TXN-01", "cspId": c.ID, "customerName": "M", "type": "deposit", "amount": 5, "status": "completed",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolvingAlertStampsResolvedAt(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.user("root", auth.RoleAdmin)
	c := env.csp(admin, "CSP-A")

	rec := env.do(http.MethodPost, "/api/alerts", map[string]any{
		"alertId": "ALT-1", "cspId": c.ID, "description": "Cash velocity spike", "severity": "high",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alert := decodeBody[repo.Alert](t, rec)
	assert.Equal(t, "pending", alert.Status)

	env.advance(time.Hour)
	rec = env.do(http.MethodPut, fmt.Sprintf("/api/alerts/%d", alert.ID), map[string]any{"status": "resolved", "resolvedBy": admin.ID}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resolved := decodeBody[repo.Alert](t, rec)
	require.NotNil(t, resolved.ResolvedAt)
	assert.True(t, env.now().Equal(*resolved.ResolvedAt))
	assert.Equal(t, admin.ID, *resolved.ResolvedBy)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/alerts/csp/%d", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	byCSP := decodeBody[[]repo.Alert](t, rec)
	require.Len(t, byCSP, 1)
	assert.Equal(t, "resolved", byCSP[0].Status)

	rec = env.do(http.MethodGet, "/api/alerts?severity=high&status=resolved", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]repo.Alert](t, rec), 1)

	rec = env.do(http.MethodPut, "/api/alerts/77", map[string]any{"status": "escalated"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Alert not found"}`, rec.Body.String())
}

func TestCompletingAuditRecordsLastAudit(t *testing.T) {
	env := newTestEnv(t, "")
	auditor := env.user("auditor", auth.RoleAuditor)
	c := env.csp(auditor, "CSP-A")

	rec := env.do(http.MethodPost, "/api/audits", map[string]any{
		"cspId": c.ID, "auditorId": auditor.ID, "scheduledDate": "2024-07-05T09:00:00Z", "status": "scheduled",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	audit := decodeBody[repo.Audit](t, rec)

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/audits/%d", audit.ID), map[string]any{
		"status": "completed", "findings": map[string]bool{"cashVerified": true}, "faceVerified": true,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decodeBody[repo.Audit](t, rec)
	require.NotNil(t, done.CompletedDate)
	assert.True(t, testNow.Equal(*done.CompletedDate))

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/csps/%d", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeBody[repo.CSP](t, rec)
	require.NotNil(t, updated.LastAudit)
	assert.True(t, testNow.Equal(*updated.LastAudit))

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/audits/auditor/%d", auditor.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]repo.Audit](t, rec), 1)
}

func TestComplaintLifecycle(t *testing.T) {
	env := newTestEnv(t, "")
	owner := env.user("owner", auth.RoleCSP)
	c := env.csp(owner, "CSP-A")

	rec := env.do(http.MethodPost, "/api/complaints", map[string]any{
		"customerName": "Ravi", "cspId": c.ID, "description": "Charged twice", "transactionId": "TXN-9",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	complaint := decodeBody[repo.Complaint](t, rec)
	assert.Equal(t, "open", complaint.Status)

	rec = env.do(http.MethodPut, fmt.Sprintf("/api/complaints/%d", complaint.ID), map[string]any{"status": "resolved"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decodeBody[repo.Complaint](t, rec)
	require.NotNil(t, resolved.ResolvedAt)

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/complaints/csp/%d", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]repo.Complaint](t, rec), 1)
}

func TestCheckInUpdatesCSP(t *testing.T) {
	env := newTestEnv(t, "")
	owner := env.user("owner", auth.RoleCSP)
	c := env.csp(owner, "CSP-A")
	latest := fmt.Sprintf("/api/check-ins/csp/%d/latest", c.ID)

	rec := env.do(http.MethodGet, latest, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"No check-ins found for this CSP"}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/check-ins", map[string]any{"cspId": c.ID, "location": map[string]float64{"lat": 1}}, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkIn := decodeBody[repo.CheckIn](t, rec)
	assert.False(t, checkIn.Verified)

	rec = env.do(http.MethodGet, latest, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, checkIn.ID, decodeBody[repo.CheckIn](t, rec).ID)

	stored, err := env.store.GetCSP(context.Background(), c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastCheckIn)
	assert.True(t, checkIn.Timestamp.Equal(*stored.LastCheckIn))

	rec = env.do(http.MethodGet, fmt.Sprintf("/api/check-ins/csp/%d?limit=5", c.ID), nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]repo.CheckIn](t, rec), 1)
}

func TestSystemStatus(t *testing.T) {
	env := newTestEnv(t, "")

	rec := env.do(http.MethodGet, "/api/system-status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]repo.SystemStatusItem](t, rec), 5)

	env.advance(time.Minute)
	rec = env.do(http.MethodPut, "/api/system-status/AEPS%20Services", map[string]any{"status": "down", "details": "switch timeout"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decodeBody[repo.SystemStatusItem](t, rec)
	assert.Equal(t, "AEPS Services", item.Service)
	assert.Equal(t, "down", item.Status)
	assert.True(t, env.now().Equal(item.LastUpdated))

	rec = env.do(http.MethodPut, "/api/system-status/Teleport", map[string]any{"status": "down"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Service not found"}`, rec.Body.String())

	rec = env.do(http.MethodPut, "/api/system-status/Fraud%20Engine", map[string]any{"status": "melting", "performance": 101}, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeBody[map[string]string](t, rec)["detail"]
	assert.Contains(t, detail, "status must be one of")
	assert.Contains(t, detail, "performance must be at most 100")
}

func TestWarModeActivation(t *testing.T) {
	env := newTestEnv(t, "")
	admin := env.user("root", auth.RoleAdmin)
	agent := env.user("agent", auth.RoleCSP)

	rec := env.do(http.MethodGet, "/api/war-mode", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[repo.WarModeStatus](t, rec).IsActive)

	body := map[string]any{"level": 2, "affectedAreas": []string{"Pune"}, "instructions": []string{"Verify every withdrawal"}}
	rec = env.do(http.MethodPost, "/api/war-mode/activate", body, env.token(agent))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/war-mode/activate", body, env.token(admin))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	active := decodeBody[repo.WarModeStatus](t, rec)
	assert.True(t, active.IsActive)
	assert.Equal(t, 2, active.Level)
	assert.Equal(t, admin.ID, *active.ActivatedBy)
	assert.True(t, testNow.Equal(*active.ActivatedAt))
	assert.Nil(t, active.DeactivatedAt)
	assert.Equal(t, []string{"Pune"}, active.AffectedAreas)

	rec = env.do(http.MethodPost, "/api/war-mode/activate", map[string]any{"level": 9}, env.token(admin))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.advance(time.Hour)
	rec = env.do(http.MethodPost, "/api/war-mode/deactivate", nil, env.token(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	inactive := decodeBody[repo.WarModeStatus](t, rec)
	assert.False(t, inactive.IsActive)
	require.NotNil(t, inactive.DeactivatedAt)
	assert.True(t, env.now().Equal(*inactive.DeactivatedAt))
	assert.Equal(t, active.ID, inactive.ID)

	rec = env.do(http.MethodPut, "/api/war-mode", map[string]any{"level": 3, "instructions": nil}, env.token(admin))
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decodeBody[repo.WarModeStatus](t, rec)
	assert.Equal(t, 3, patched.Level)
	assert.Nil(t, patched.Instructions)
	assert.Equal(t, []string{"Pune"}, patched.AffectedAreas)
}

func TestBasePathMounting(t *testing.T) {
	env := newTestEnv(t, "portal/")

	rec := env.do(http.MethodGet, "/portal/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, path := range []string{"/healthz", "/portalx/healthz"} {
		rec = env.do(http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	rec = env.do(http.MethodGet, "/portal/api/system-status", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer  abc "))
	assert.Empty(t, bearerToken("Basic abc"))
	assert.Empty(t, bearerToken(""))
	assert.False(t, strings.Contains(bearerToken("Bearer"), " "))
}
