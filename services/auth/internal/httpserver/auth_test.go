package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisx "github.com/Skotchmaster/forum_auth/pkg/cache/redis"
	"github.com/Skotchmaster/forum_auth/pkg/db"
	"github.com/Skotchmaster/forum_auth/pkg/events"
	"github.com/Skotchmaster/forum_auth/pkg/hash"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
	loggingmw "github.com/Skotchmaster/forum_auth/pkg/middleware/logging"
	"github.com/Skotchmaster/forum_auth/pkg/revocation"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/models"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/repo"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/service"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/transport"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Reason     string          `json:"reason"`
	Message    string          `json:"message"`
	Metadata   json.RawMessage `json:"metadata"`
}

type stack struct {
	auth      *echo.Echo
	protected *echo.Echo
}

// newStack wires the auth service plus a second app guarded by the same
// filter, standing in for any downstream consumer of the tokens.
func newStack(t *testing.T) *stack {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(gdb))
	rp := repo.New(gdb)
	require.NoError(t, rp.SeedRoles(ctx, models.AllRoles...))

	codec, err := tokens.NewCodec([]byte("shared-secret"), "forum-auth", 15*time.Minute)
	require.NoError(t, err)
	logger := logging.NewWithWriter(&bytes.Buffer{}, "debug")
	cache := redisx.New(redisx.Config{Addr: miniredis.RunT(t).Addr()}, logger)
	t.Cleanup(cache.Close)
	registry := revocation.NewRegistry(cache, "", time.Second)
	hasher, err := hash.New(hash.Bcrypt)
	require.NoError(t, err)

	svc := &service.AuthService{
		Users: rp,
		RefreshTokens: &service.RefreshTokenService{
			Store: rp,
			Users: rp,
			TTL:   720 * time.Hour,
		},
		Codec:    codec,
		Registry: registry,
		Hasher:   hasher,
		Events:   events.Nop{},
	}
	verifier := authmw.NewVerifier(codec, registry)

	a := echo.New()
	a.HTTPErrorHandler = httpx.ErrorHandler(logger)
	a.Use(loggingmw.RequestLogger(logger))
	Register(a, &Deps{
		AuthHandler: &AuthHTTP{Svc: svc},
		Verifier:    verifier,
		Ready: map[string]httpx.Check{
			"db":    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
			"redis": cache.Ping,
		},
	})

	p := echo.New()
	p.HTTPErrorHandler = httpx.ErrorHandler(logger)
	p.Use(authmw.Filter(authmw.FilterConfig{Verifier: verifier}))
	p.GET("/posts", func(c echo.Context) error {
		id, _ := authmw.IdentityFromEcho(c)
		return c.String(http.StatusOK, id.Username)
	})

	return &stack{auth: a, protected: p}
}

func call(t *testing.T, e *echo.Echo, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func tokensOf(t *testing.T, env envelope) transport.TokenResponse {
	t.Helper()
	var tr transport.TokenResponse
	require.NoError(t, json.Unmarshal(env.Metadata, &tr))
	return tr
}

func TestEndToEnd(t *testing.T) {
	s := newStack(t)

	rec, env := call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reg transport.RegisterResponse
	require.NoError(t, json.Unmarshal(env.Metadata, &reg))
	assert.NotEmpty(t, reg.UserID)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/login", "",
		transport.LoginRequest{Username: "alice", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := tokensOf(t, env)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	assert.Equal(t, int64(900), login.AccessTokenExpiresInSeconds)
	assert.Positive(t, login.RefreshTokenExpiresInSeconds)

	rec, _ = call(t, s.protected, http.MethodGet, "/posts", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice", rec.Body.String())

	rec, env = call(t, s.auth, http.MethodPost, "/auth/refresh", "",
		transport.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	refreshed := tokensOf(t, env)
	assert.NotEqual(t, login.AccessToken, refreshed.AccessToken)
	assert.Equal(t, login.RefreshToken, refreshed.RefreshToken)

	rec, _ = call(t, s.auth, http.MethodPost, "/auth/logout", login.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = call(t, s.protected, http.MethodGet, "/posts", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/refresh", "",
		transport.RefreshRequest{RefreshToken: login.RefreshToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", env.Reason)

	rec, _ = call(t, s.auth, http.MethodPost, "/auth/logout", login.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a revoked token cannot log out twice")
}

func TestRegister_ConflictAndValidation(t *testing.T) {
	s := newStack(t)
	body := transport.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"}

	rec, _ := call(t, s.auth, http.MethodPost, "/auth/register", "", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := call(t, s.auth, http.MethodPost, "/auth/register", "", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "bob"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "bob", Email: "b@x.com", Password: strings.Repeat("p", 80)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "bob", Email: "Alice <A@x.com>", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "bob", Email: "A@X.COM", Password: "pw"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Conflict", env.Reason)
}

func TestLogin_WrongPassword(t *testing.T) {
	s := newStack(t)
	rec, _ := call(t, s.auth, http.MethodPost, "/auth/register", "",
		transport.RegisterRequest{Username: "alice", Email: "a@x.com", Password: "pw"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := call(t, s.auth, http.MethodPost, "/auth/login", "",
		transport.LoginRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "InvalidCredentials", env.Reason)

	rec, env = call(t, s.auth, http.MethodPost, "/auth/login", "",
		transport.LoginRequest{Username: "ghost", Password: "pw"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UserNotFound", env.Reason)
}

func TestLogout_RequiresToken(t *testing.T) {
	s := newStack(t)

	rec, env := call(t, s.auth, http.MethodPost, "/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", env.Reason)
}

func TestHealth(t *testing.T) {
	s := newStack(t)

	rec, _ := call(t, s.auth, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = call(t, s.auth, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
