package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/forum_auth/gateway/internal/middleware"
	redisx "github.com/Skotchmaster/forum_auth/pkg/cache/redis"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
	"github.com/Skotchmaster/forum_auth/pkg/revocation"
	"github.com/Skotchmaster/forum_auth/pkg/tokens"
)

type seen struct {
	Path          string `json:"path"`
	UserName      string `json:"userName"`
	UserID        string `json:"userId"`
	Roles         string `json:"roles"`
	Authorization string `json:"authorization"`
}

type upstream struct {
	srv  *httptest.Server
	hits atomic.Int32
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(seen{
			Path:          r.URL.Path,
			UserName:      r.Header.Get(middleware.HeaderUserName),
			UserID:        r.Header.Get(middleware.HeaderUserID),
			Roles:         r.Header.Get(middleware.HeaderUserRoles),
			Authorization: r.Header.Get(echo.HeaderAuthorization),
		})
	}))
	t.Cleanup(u.srv.Close)
	return u
}

type gateway struct {
	e        *echo.Echo
	codec    *tokens.Codec
	registry *revocation.Registry
	auth     *upstream
	forum    *upstream
}

func newGateway(t *testing.T, forumURL string) *gateway {
	t.Helper()
	now := time.Now()
	clock := func() time.Time { return now }

	codec, err := tokens.NewCodec([]byte("gateway-secret"), "forum-auth", 15*time.Minute, tokens.WithClock(clock))
	require.NoError(t, err)
	logger := logging.NewWithWriter(&bytes.Buffer{}, "debug")
	store := redisx.New(redisx.Config{Addr: miniredis.RunT(t).Addr()}, logger)
	t.Cleanup(store.Close)

	g := &gateway{
		e:        echo.New(),
		codec:    codec,
		registry: revocation.NewRegistry(store, revocation.DefaultPrefix, time.Second),
		auth:     newUpstream(t),
		forum:    newUpstream(t),
	}
	if forumURL == "" {
		forumURL = g.forum.srv.URL
	}

	g.e.HTTPErrorHandler = httpx.ErrorHandler(logger)
	require.NoError(t, Register(g.e, &Deps{
		AuthURL:  g.auth.srv.URL,
		ForumURL: forumURL,
		Verifier: authmw.NewVerifier(codec, g.registry),
		Ready:    map[string]httpx.Check{"redis": store.Ping},
		Logger:   logger,
	}))
	return g
}

func (g *gateway) token(t *testing.T, username string, roles ...string) string {
	t.Helper()
	tok, _, err := g.codec.Issue(username, "id-"+username, roles)
	require.NoError(t, err)
	return tok
}

func (g *gateway) do(method, path, token string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	g.e.ServeHTTP(rec, req)
	return rec
}

func decodeSeen(t *testing.T, rec *httptest.ResponseRecorder) seen {
	t.Helper()
	var s seen
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return s
}

func TestGateway_PublicAuthRoutesStripPrefix(t *testing.T) {
	g := newGateway(t, "")

	rec := g.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		middleware.HeaderUserName:  "mallory",
		middleware.HeaderUserRoles: "ADMIN",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	s := decodeSeen(t, rec)
	assert.Equal(t, "/auth/login", s.Path)
	assert.Empty(t, s.UserName, "client supplied identity must not reach upstream")
	assert.Empty(t, s.Roles)
}

func TestGateway_ProtectedWithoutTokenNeverReachesUpstream(t *testing.T) {
	g := newGateway(t, "")

	for _, path := range []string{"/api/v1/posts", "/api/v1/auth/logout", "/api/v1/admin/users", "/nope"} {
		rec := g.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := g.do(http.MethodPost, "/api/v1/auth/logout", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, g.forum.hits.Load())
	assert.Zero(t, g.auth.hits.Load())
}

func TestGateway_ForwardsVerifiedIdentity(t *testing.T) {
	g := newGateway(t, "")
	tok := g.token(t, "alice", "USER", "MOD")

	rec := g.do(http.MethodGet, "/api/v1/posts/42", tok, map[string]string{
		middleware.HeaderUserRoles: "ADMIN",
		middleware.HeaderUserID:    "someone-else",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	s := decodeSeen(t, rec)
	assert.Equal(t, "/api/v1/posts/42", s.Path)
	assert.Equal(t, "alice", s.UserName)
	assert.Equal(t, "id-alice", s.UserID)
	assert.Equal(t, "USER,MOD", s.Roles)
	assert.Equal(t, "Bearer "+tok, s.Authorization)
}

func TestGateway_LogoutIsProxiedWithToken(t *testing.T) {
	g := newGateway(t, "")
	tok := g.token(t, "alice", "USER")

	rec := g.do(http.MethodPost, "/api/v1/auth/logout", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	s := decodeSeen(t, rec)
	assert.Equal(t, "/auth/logout", s.Path)
	assert.Equal(t, "Bearer "+tok, s.Authorization)
	assert.Equal(t, "alice", s.UserName)
}

func TestGateway_BlacklistedTokenRejected(t *testing.T) {
	g := newGateway(t, "")
	tok := g.token(t, "alice", "USER")
	require.NoError(t, g.registry.Blacklist(context.Background(), tok, time.Minute))

	rec := g.do(http.MethodGet, "/api/v1/posts", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, g.forum.hits.Load())
}

func TestGateway_AdminRoutesRequireRole(t *testing.T) {
	g := newGateway(t, "")

	rec := g.do(http.MethodGet, "/api/v1/admin/users", g.token(t, "bob", "USER"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, g.forum.hits.Load())

	rec = g.do(http.MethodGet, "/api/v1/admin/users", g.token(t, "root", "ADMIN"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/api/v1/admin/users", decodeSeen(t, rec).Path)
}

func TestGateway_DotSegmentsCannotSkipRoleGuard(t *testing.T) {
	g := newGateway(t, "")
	tok := g.token(t, "bob", "USER")

	for _, p := range []string{
		"/api/v1/x/../admin/users",
		"/api/v1/x/%2e%2e/admin/users",
		"/api/v1/./admin/users",
		"/api/v1//admin/users",
	} {
		rec := g.do(http.MethodGet, p, tok, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, p)

		var env httpx.Envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), p)
		assert.Equal(t, "ValidationError", env.Reason, p)
	}
	assert.Zero(t, g.forum.hits.Load())

	rec := g.do(http.MethodGet, "/api/v1/admin/users", tok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGateway_UpstreamDown(t *testing.T) {
	g := newGateway(t, "http://127.0.0.1:1")

	rec := g.do(http.MethodGet, "/api/v1/posts", g.token(t, "alice", "USER"), nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "BadGateway", env.Reason)
}

func TestGateway_Health(t *testing.T) {
	g := newGateway(t, "")

	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/health/live", "", nil).Code)
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/health/ready", "", nil).Code)
}
