package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/user-management-api/config"
	"github.com/oksasatya/user-management-api/internal/domain/entity"
	"github.com/oksasatya/user-management-api/internal/infrastructure/memory"
	"github.com/oksasatya/user-management-api/pkg/helpers"
	"github.com/oksasatya/user-management-api/pkg/metrics"
)

type memDenylist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func (m *memDenylist) Revoke(_ context.Context, id string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[id] = until
	return nil
}

func (m *memDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok, nil
}

type downRepo struct{ *memory.UserRepository }

func (downRepo) Ping(context.Context) error { return errors.New("connection refused") }

type testApp struct {
	engine *gin.Engine
	repo   *memory.UserRepository
	tokens *helpers.TokenManager
	reg    *prometheus.Registry
}

func newTestConfig() *config.Config {
	return &config.Config{
		AppName:           "user-management-api",
		Env:               "test",
		JWTSecret:         "test-secret",
		AccessTTL:         time.Hour,
		BcryptCost:        bcrypt.MinCost,
		PasswordMinLength: 6,
		DBDriver:          config.DriverMemory,
		MetricsEnabled:    true,
	}
}

func newTestApp(t *testing.T, mutate func(*config.Config, *Deps)) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := newTestConfig()
	tokens, err := helpers.NewTokenManager(cfg.JWTSecret, cfg.AccessTTL)
	require.NoError(t, err)
	hasher, err := helpers.NewPasswordHasher(cfg.BcryptCost)
	require.NoError(t, err)
	repo := memory.NewUserRepository()
	promReg := prometheus.NewRegistry()

	d := Deps{
		Config:   cfg,
		Logger:   helpers.NewDiscardLogger(),
		Repo:     repo,
		Tokens:   tokens,
		Hasher:   hasher,
		Metrics:  metrics.NewCollector(promReg),
		Gatherer: promReg,
	}
	if mutate != nil {
		mutate(cfg, &d)
	}
	engine, reg := New(d)
	t.Cleanup(reg.Close)
	return &testApp{engine: engine, repo: repo, tokens: tokens, reg: promReg}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type authBody struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Token   string `json:"token"`
}

type errBody struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details"`
	RequestID string            `json:"request_id"`
}

func (a *testApp) signup(t *testing.T, name, email string) authBody {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"name": name, "email": email, "password": "secret1", "age": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authBody](t, w)
}

func TestSignupMeDuplicate(t *testing.T) {
	app := newTestApp(t, nil)

	w := app.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "A", "email": "a@b.com", "password": "secret1", "age": 30,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	signed := decode[authBody](t, w)
	assert.Equal(t, "A", signed.Name)
	assert.Equal(t, "a@b.com", signed.Email)
	assert.NotZero(t, signed.ID)
	assert.NotEmpty(t, signed.Token)
	assert.NotEmpty(t, signed.Message)
	assert.NotContains(t, w.Body.String(), "password")

	w = app.do(t, http.MethodGet, "/auth/me", signed.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		User entity.PublicProfile `json:"user"`
	}](t, w)
	assert.Equal(t, entity.PublicProfile{ID: signed.ID, Name: "A", Email: "a@b.com"}, me.User)
	assert.NotContains(t, w.Body.String(), "password")

	w = app.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "A2", "email": "a@b.com", "password": "secret2", "age": 31,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already registered", decode[errBody](t, w).Error)
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t, nil)

	tests := []struct {
		name   string
		body   any
		status int
		msg    string
	}{
		{"missing fields", map[string]any{"name": "A"}, http.StatusBadRequest, "missing required fields: email, password"},
		{"bad email", map[string]any{"name": "A", "email": "nope", "password": "secret1"}, http.StatusBadRequest, "invalid email format"},
		{"short password", map[string]any{"name": "A", "email": "a@b.com", "password": "abc"}, http.StatusBadRequest, "password too short: minimum length is 6 characters"},
		{"long name", map[string]any{"name": strings.Repeat("n", 5000), "email": "a@b.com", "password": "secret1"}, http.StatusBadRequest, "name must be at most 255 characters long"},
		{"long email", map[string]any{"name": "A", "email": strings.Repeat("a", 400) + "@b.com", "password": "secret1"}, http.StatusBadRequest, "email must be at most 255 characters long"},
		{"long password", map[string]any{"name": "A", "email": "a@b.com", "password": strings.Repeat("x", 73)}, http.StatusBadRequest, "password too long: maximum length is 72 bytes"},
		{"malformed json", `{"name":`, http.StatusBadRequest, ""},
		{"wrong type", `{"name":"A","email":"a@b.com","password":"secret1","age":"thirty"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, http.MethodPost, "/auth/signup", "", tt.body)
			assert.Equal(t, tt.status, w.Code)
			body := decode[errBody](t, w)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.RequestID)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, body.Error)
			}
		})
	}
}

func TestSignupRequireAge(t *testing.T) {
	app := newTestApp(t, func(c *config.Config, _ *Deps) { c.RequireAge = true })

	w := app.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"name": "A", "email": "a@b.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing required fields: age", decode[errBody](t, w).Error)
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(t, nil)
	signed := app.signup(t, "A", "a@b.com")
	before, err := app.repo.GetByID(context.Background(), signed.ID)
	require.NoError(t, err)

	wrong := app.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.com", "password": "bad-password"})
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.NotContains(t, wrong.Body.String(), "token")

	unknown := app.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "x@b.com", "password": "bad-password"})
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, decode[errBody](t, wrong).Error, decode[errBody](t, unknown).Error)

	after, err := app.repo.GetByID(context.Background(), signed.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ok := app.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, ok.Code)
	logged := decode[authBody](t, ok)
	assert.Equal(t, signed.ID, logged.ID)
	assert.NotEmpty(t, logged.Token)
	assert.Empty(t, logged.Message)
}

func TestGate(t *testing.T) {
	app := newTestApp(t, nil)
	signed := app.signup(t, "A", "a@b.com")

	stale, err := helpers.NewTokenManager("test-secret", time.Hour,
		helpers.WithClock(func() time.Time { return time.Now().Add(-3 * time.Hour) }))
	require.NoError(t, err)
	expired, _, err := stale.Issue(signed.ID, signed.Email)
	require.NoError(t, err)

	for _, path := range []string{"/auth/me", "/users"} {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, path, "", nil).Code, path)
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, path, "garbage", nil).Code, path)
		assert.Equal(t, http.StatusForbidden, app.do(t, http.MethodGet, path, expired, nil).Code, path)
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, path, signed.Token, nil).Code, path)
	}

	for _, r := range []struct{ method, path string }{
		{http.MethodPost, "/users"},
		{http.MethodPut, "/users/1"},
		{http.MethodDelete, "/users/1"},
		{http.MethodGet, "/users/1"},
	} {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, r.method, r.path, "", nil).Code, r.path)
	}
}

func TestMeAfterAccountDeleted(t *testing.T) {
	app := newTestApp(t, nil)
	signed := app.signup(t, "A", "a@b.com")

	w := app.do(t, http.MethodDelete, "/users/"+strconv.FormatInt(signed.ID, 10), signed.Token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/auth/me", signed.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConcurrentSignupSameEmail(t *testing.T) {
	app := newTestApp(t, nil)
	const n = 8

	codes := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := app.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
				"name": "R", "email": "race@b.com", "password": "secret1",
			})
			codes <- w.Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for c := range codes {
		counts[c]++
	}
	assert.Equal(t, 1, counts[http.StatusCreated])
	assert.Equal(t, n-1, counts[http.StatusConflict])
}

func TestUserCRUD(t *testing.T) {
	app := newTestApp(t, nil)
	tok := app.signup(t, "Admin", "admin@b.com").Token

	w := app.do(t, http.MethodPost, "/users", tok, map[string]any{"name": "B", "email": "b@b.com", "age": 22})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[entity.User](t, w)
	assert.Equal(t, "B", created.Name)
	require.NotNil(t, created.Age)
	assert.Equal(t, 22, *created.Age)
	assert.NotContains(t, w.Body.String(), "password")

	w = app.do(t, http.MethodPost, "/users", tok, map[string]any{"name": "B", "email": "b@b.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(t, http.MethodPost, "/users", tok, map[string]any{"name": "B", "email": "b@b.com", "age": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	id := strconv.FormatInt(created.ID, 10)
	w = app.do(t, http.MethodGet, "/users/"+id, tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodPut, "/users/"+id, tok, map[string]any{"name": "Bee"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Bee", decode[entity.User](t, w).Name)

	w = app.do(t, http.MethodPut, "/users/"+id, tok, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = app.do(t, http.MethodPut, "/users/"+id, tok, map[string]any{"email": "admin@b.com"})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = app.do(t, http.MethodPut, "/users/999", tok, map[string]any{"name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodGet, "/users/abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/users?limit=1&offset=1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[[]entity.User](t, w)
	require.Len(t, page, 1)
	assert.Equal(t, created.ID, page[0].ID)

	w = app.do(t, http.MethodGet, "/users?limit=-1", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/users/search?q=bee", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = app.do(t, http.MethodDelete, "/users/"+id, tok, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = app.do(t, http.MethodDelete, "/users/"+id, tok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOpenUserCreate(t *testing.T) {
	closed := newTestApp(t, nil)
	w := closed.do(t, http.MethodPost, "/auth/users", "", map[string]any{"name": "B", "email": "b@b.com", "age": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)

	open := newTestApp(t, func(c *config.Config, _ *Deps) { c.OpenUserCreate = true })
	w = open.do(t, http.MethodPost, "/auth/users", "", map[string]any{"name": "B", "email": "b@b.com", "age": 3})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	deny := &memDenylist{ids: map[string]time.Time{}}
	app := newTestApp(t, func(_ *config.Config, d *Deps) { d.Denylist = deny })
	tok := app.signup(t, "A", "a@b.com").Token

	w := app.do(t, http.MethodPost, "/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"logged_out":true,"revoked":true}`, w.Body.String())

	w = app.do(t, http.MethodGet, "/auth/me", tok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, nil)
	w := app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	app.do(t, http.MethodGet, "/auth/me", "", nil)
	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `usermgmt_auth_gate_rejections_total{reason="missing_token"} 1`)

	down := newTestApp(t, func(c *config.Config, d *Deps) {
		c.MetricsEnabled = false
		d.Repo = downRepo{memory.NewUserRepository()}
	})
	w = down.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "database unavailable", decode[errBody](t, w).Error)
	assert.Equal(t, http.StatusNotFound, down.do(t, http.MethodGet, "/metrics", "", nil).Code)
}

func TestSignupRateLimited(t *testing.T) {
	app := newTestApp(t, nil)
	var last int
	for i := 0; i < 11; i++ {
		last = app.do(t, http.MethodPost, "/auth/signup", "", map[string]any{}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestGlobalRateLimitSkipsHealthAndMetrics(t *testing.T) {
	app := newTestApp(t, func(c *config.Config, _ *Deps) { c.GlobalRateLimit = 3 })

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusUnauthorized, app.do(t, http.MethodGet, "/users", "", nil).Code)
	}
	w := app.do(t, http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate limit exceeded", decode[errBody](t, w).Error)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/health", "", nil).Code)
	}
}

func TestRateLimitSkipPrivate(t *testing.T) {
	app := newTestApp(t, func(c *config.Config, _ *Deps) { c.RateLimitSkipPrivate = true })

	signupFrom := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		app.engine.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 12; i++ {
		assert.Equal(t, http.StatusBadRequest, signupFrom("10.1.2.3:40000"))
	}
	var last int
	for i := 0; i < 11; i++ {
		last = signupFrom("203.0.113.9:40000")
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
