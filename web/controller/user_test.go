package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub/userhub/config"
	"github.com/userhub/userhub/database"
	"github.com/userhub/userhub/util/crypto"
	"github.com/userhub/userhub/util/metrics"
	"github.com/userhub/userhub/web/entity"
	"github.com/userhub/userhub/web/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	db      *gorm.DB
	engine  *gin.Engine
	svc     *service.UserService
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(&config.DatabaseConfig{
		Path:    filepath.Join(t.TempDir(), "user.db"),
		Pragmas: "_journal_mode=WAL&_busy_timeout=5000",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.CloseDB(db) })

	svc := service.NewUserService(db, crypto.NewBcryptHasher(bcrypt.MinCost))
	m := metrics.NewMetrics()

	engine := gin.New()
	g := engine.Group("/")
	NewUserController(g, svc, m)
	NewIndexController(g, m)
	return &testServer{db: db, engine: engine, svc: svc, metrics: m}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) addUser(t *testing.T, name, password, role string) {
	t.Helper()
	rec := s.do(http.MethodPost, "/add_user", gin.H{"Name": name, "Password": password, "Role": role})
	require.Equal(t, http.StatusSeeOther, rec.Code, rec.Body.String())
	require.Equal(t, "/get_users", rec.Header().Get("Location"))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestAddUserThenGetById(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "pw123", "admin")

	stored, err := s.svc.GetUserByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123", stored.PasswordHash)

	rec := s.do(http.MethodGet, fmt.Sprintf("/get_userbyId/%d", stored.Id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.UserResponse{Name: "alice", Role: "admin"}, decode[entity.UserResponse](t, rec))
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.UsersCreated))
}

func TestGetUserByIdNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/get_userbyId/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, entity.ErrorDetail{Detail: "User not found"}, decode[entity.ErrorDetail](t, rec))
}

func TestGetUserByIdRejectsNonInteger(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/get_userbyId/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetUsers(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/get_users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	want := map[string]string{"alice": "admin", "bob": "reader", "carol": "reader"}
	for name, role := range want {
		s.addUser(t, name, "secret-"+name, role)
	}

	rec = s.do(http.MethodGet, "/get_users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[[]entity.UserResponse](t, rec)
	require.Len(t, users, len(want))
	for _, u := range users {
		assert.Equal(t, want[u.Name], u.Role)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "pw123", "admin")

	tests := []struct {
		name     string
		body     any
		wantCode int
	}{
		{"correct credentials", gin.H{"name": "alice", "password": "pw123"}, http.StatusOK},
		{"wrong password", gin.H{"name": "alice", "password": "wrong"}, http.StatusUnauthorized},
		{"unknown name", gin.H{"name": "mallory", "password": "pw123"}, http.StatusUnauthorized},
		{"empty password", gin.H{"name": "alice", "password": ""}, http.StatusUnauthorized},
		{"empty name", gin.H{"name": "", "password": "pw123"}, http.StatusUnauthorized},
		{"missing password", gin.H{"name": "alice"}, http.StatusUnprocessableEntity},
		{"null password", `{"name": "alice", "password": null}`, http.StatusUnprocessableEntity},
		{"malformed body", `{"name": "alice",`, http.StatusUnprocessableEntity},
		{"wrong type", `{"name": 7, "password": "pw123"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/login", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			switch tt.wantCode {
			case http.StatusOK:
				assert.Equal(t, entity.UserResponse{Name: "alice", Role: "admin"}, decode[entity.UserResponse](t, rec))
			case http.StatusUnauthorized:
				assert.Equal(t, entity.ErrorDetail{Detail: "Invalid username or password"}, decode[entity.ErrorDetail](t, rec))
			}
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues(metrics.LoginSuccess)))
	assert.Equal(t, 4.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues(metrics.LoginFailure)))
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "pw123", "admin")

	wrongPassword := s.do(http.MethodPost, "/login", gin.H{"name": "alice", "password": "nope"})
	unknownName := s.do(http.MethodPost, "/login", gin.H{"name": "bob", "password": "nope"})

	assert.Equal(t, wrongPassword.Code, unknownName.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownName.Body.String())
}

func TestAddUserValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"missing role", gin.H{"Name": "alice", "Password": "pw123"}},
		{"missing name", gin.H{"Password": "pw123", "Role": "admin"}},
		{"null password", `{"Name": "alice", "Password": null, "Role": "admin"}`},
		{"not json", "Name=alice"},
		{"wrong type", `{"Name": "alice", "Password": 123, "Role": "admin"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/add_user", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.NotEmpty(t, decode[entity.ErrorDetail](t, rec).Detail)
		})
	}

	rec := s.do(http.MethodGet, "/get_users", nil)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestAddUserDuplicateName(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "pw123", "admin")

	rec := s.do(http.MethodPost, "/add_user", gin.H{"Name": "alice", "Password": "other", "Role": "reader"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, entity.ErrorDetail{Detail: "User already exists"}, decode[entity.ErrorDetail](t, rec))

	// the original record is untouched
	rec = s.do(http.MethodPost, "/login", gin.H{"name": "alice", "password": "pw123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddUserAcceptsEmptyStrings(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "eve", "", "admin")
	s.addUser(t, "frank", "pw123", "")

	rec := s.do(http.MethodPost, "/login", gin.H{"name": "eve", "password": ""})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, entity.UserResponse{Name: "eve", Role: "admin"}, decode[entity.UserResponse](t, rec))

	rec = s.do(http.MethodPost, "/login", gin.H{"name": "frank", "password": ""})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/login", gin.H{"name": "frank", "password": "pw123"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.UserResponse{Name: "frank", Role: ""}, decode[entity.UserResponse](t, rec))
}

func TestAddUserLongPassword(t *testing.T) {
	s := newTestServer(t)
	long := strings.Repeat("p", 100)
	s.addUser(t, "alice", long, "admin")

	rec := s.do(http.MethodPost, "/login", gin.H{"name": "alice", "password": long})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodPost, "/login", gin.H{"name": "alice", "password": long[:72]})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStorageFailureIsInternalError(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "alice", "pw123", "admin")

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/add_user", gin.H{"Name": "bob", "Password": "pw", "Role": "reader"}},
		{http.MethodGet, "/get_users", nil},
		{http.MethodGet, "/get_userbyId/1", nil},
		{http.MethodPost, "/login", gin.H{"name": "alice", "password": "pw123"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, entity.ErrorDetail{Detail: "Internal Server Error"}, decode[entity.ErrorDetail](t, rec))
		})
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.LoginAttempts.WithLabelValues(metrics.LoginError)))
}

func TestAddUserAcceptsLowercaseKeys(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/add_user", `{"name": "dave", "password": "pw", "role": "ops"}`)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok":true`)

	s.addUser(t, "alice", "pw123", "admin")
	rec = s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "userhub_users_created_total 1")
}

func TestGetRemoteIp(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"x-real-ip", map[string]string{"X-Real-IP": "10.0.0.1"}, "1.2.3.4:5", "10.0.0.1"},
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "10.0.0.2, 10.0.0.3"}, "1.2.3.4:5", "10.0.0.2"},
		{"remote addr", nil, "1.2.3.4:5", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getRemoteIp(c))
		})
	}
}
