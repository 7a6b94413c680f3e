package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/config"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/observability"
	"github.com/spec-kit/account-service/internal/repository"
	"github.com/spec-kit/account-service/internal/service"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []domain.User
}

func (r *memUserRepo) QueryByEmail(_ context.Context, email string) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.rows {
		if u.Email == email {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memUserRepo) Insert(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	user.ID = r.nextID
	r.rows = append(r.rows, *user)
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for i := range r.rows {
		if r.rows[i].ID == user.ID {
			r.rows[i].Name = user.Name
			r.rows[i].Age = user.Age
			n++
		}
	}
	return n, nil
}

func (r *memUserRepo) Delete(ctx context.Context, id int64) (int64, error) {
	return r.DeleteWithRollback(ctx, id)
}

func (r *memUserRepo) DeleteWithRollback(_ context.Context, id int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.rows[:0]
	var n int64
	for _, u := range r.rows {
		if u.ID == id {
			n++
			continue
		}
		kept = append(kept, u)
	}
	r.rows = kept
	return n, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app     *fiber.App
	users   *memUserRepo
	mr      *miniredis.Miniredis
	metrics *observability.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	users := &memUserRepo{}
	tokens := auth.NewTokenManager("test-secret",
		auth.WithDenylist(repository.NewRevocationRepository(client, time.Second)))
	accounts := service.NewAccountService(config.AuthConfig{BcryptCost: 4, RevokeOnLogout: true}, service.AccountDependencies{
		UserRepo:     users,
		SessionRepo:  repository.NewSessionRepository(client, time.Second),
		TokenManager: tokens,
		Logger:       zap.NewNop(),
	})

	metrics := observability.NewMetrics()
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("account-service", "test", map[string]handlers.Pinger{"postgres": stubPinger{}}),
		Accounts: handlers.NewAccountsHandler(accounts),
		Metrics:  handlers.NewMetricsHandler(metrics),
	})

	return &testServer{app: app, users: users, mr: mr, metrics: metrics}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else {
		out["raw"] = string(raw)
	}
	return resp.StatusCode, out
}

func (s *testServer) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "email": email, "age": 30, "pwd": "pw1"})
	require.Equal(t, http.StatusCreated, status)
	status, body := s.do(t, http.MethodPost, "/login", "", map[string]any{"email": email, "pwd": "pw1"})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHeartbeat(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/hb", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["raw"])
}

func TestAccountLifecycle(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "email": "a@x.com", "age": 30, "pwd": "pw1"})
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "User created successfully", body["message"])
	assert.Equal(t, "200", body["code"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.NotContains(t, body, "pwd")

	status, body = s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "bob", "email": "a@x.com", "age": 40, "pwd": "pw2"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "DUPLICATE_EMAIL", body["error"])
	assert.Equal(t, "500", body["code"])

	status, body = s.do(t, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "pwd": "wrong"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])

	status, body = s.do(t, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "pwd": "pw1"})
	require.Equal(t, http.StatusOK, status)
	token := body["token"].(string)

	_, again := s.do(t, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "pwd": "pw1"})
	assert.Equal(t, token, again["token"], "live session is reused")

	status, body = s.do(t, http.MethodGet, "/user_info", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alice", body["name"])
	assert.Equal(t, "ColonD", body["iss"])
	assert.Equal(t, "guest", body["typ"])
	exp, iat := body["exp"].(float64), body["iat"].(float64)
	assert.Equal(t, float64(3600), exp-iat)

	status, body = s.do(t, http.MethodPost, "/update_info", token, map[string]any{"name": "alicia", "age": 31})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "alicia", body["name"])
	assert.Equal(t, float64(31), body["age"])

	status, body = s.do(t, http.MethodPost, "/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User logged out successfully", body["message"])

	status, body = s.do(t, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "logged out token is revoked")
	assert.Equal(t, "INVALID_TOKEN", body["error"])
}

func TestDeleteUser(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "a@x.com")

	status, body := s.do(t, http.MethodPost, "/delete_user", token, map[string]any{"pwd": "nope"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])

	status, body = s.do(t, http.MethodPost, "/delete_user", token, map[string]any{"pwd": "pw1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "User deleted successfully", body["message"])
	assert.False(t, s.mr.Exists("a@x.com"))

	status, _ = s.do(t, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "pwd": "pw1"})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestUpdateInfo_EmailWithoutRow(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t, "a@x.com")

	s.users.mu.Lock()
	s.users.rows = nil
	s.users.mu.Unlock()

	status, body := s.do(t, http.MethodPost, "/update_info", token, map[string]any{"name": "x", "age": 1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMAIL_NOT_FOUND", body["error"])
}

func TestAuthHeaderErrors(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/user_info", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "MISSING_TOKEN", body["error"])

	status, body = s.do(t, http.MethodGet, "/user_info", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", body["error"])
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "age": 30})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"])

	status, body = s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "email": "a@x.com", "age": 201, "pwd": "pw1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"])

	status, _ = s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "email": "no-at-sign", "age": 20, "pwd": "pw1"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, s.users.rows)

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{broken")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister_OverlongPasswordIsBadRequest(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/register", "", map[string]any{
		"name": "alice", "email": "a@x.com", "age": 30, "pwd": strings.Repeat("p", auth.MaxPasswordBytes+1),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"])
	assert.Empty(t, s.users.rows)

	status, _ = s.do(t, http.MethodPost, "/register", "", map[string]any{
		"name": "alice", "email": "a@x.com", "age": 30, "pwd": strings.Repeat("p", auth.MaxPasswordBytes),
	})
	assert.Equal(t, http.StatusCreated, status)

	status, body = s.do(t, http.MethodPost, "/login", "", map[string]any{
		"email": "a@x.com", "pwd": strings.Repeat("p", auth.MaxPasswordBytes+1),
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])
}

func TestCacheOutage(t *testing.T) {
	s := newTestServer(t)
	status, _ := s.do(t, http.MethodPost, "/register", "", map[string]any{"name": "alice", "email": "a@x.com", "age": 30, "pwd": "pw1"})
	require.Equal(t, http.StatusCreated, status)

	s.mr.Close()

	status, body := s.do(t, http.MethodPost, "/login", "", map[string]any{"email": "a@x.com", "pwd": "pw1"})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "CACHE_UNAVAILABLE", body["error"])
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	status, body := s.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"])
	assert.Equal(t, "500", body["code"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", body["message"])

	status, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, status)
	requests, _ := body["requests"].(map[string]any)
	assert.Contains(t, requests, "/health/ready|GET|200")
}

func TestReadyReportsFailingDependency(t *testing.T) {
	app := fiber.New()
	h := handlers.NewHealthHandler("account-service", "test", map[string]handlers.Pinger{
		"redis": stubPinger{err: errors.New("connection refused")},
	})
	app.Get("/health/ready", h.Ready)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestPanicIsRecovered(t *testing.T) {
	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), nil, 0)
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
