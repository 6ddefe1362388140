package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/auth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/domain"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/oauth"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/internal/service"
	apperrors "github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/errors"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/health"
	"github.com/wirapratamaz185/MandalaChain-Forum-sub000/pkg/middleware"
)

// ============================================================================
// Fakes
// ============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type nopPublisher struct{}

func (nopPublisher) PublishUserRegistered(context.Context, *domain.User) error        { return nil }
func (nopPublisher) PublishUserLoggedIn(context.Context, *domain.User, string) error { return nil }

type fakeProvider struct {
	profile *domain.ExternalProfile
	err     error
	code    string
}

func (p *fakeProvider) Name() string { return "google" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, code string) (*domain.ExternalProfile, error) {
	p.code = code
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

type memoryStates struct {
	mu     sync.Mutex
	states map[string]bool
}

func (s *memoryStates) Save(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = true
	return nil
}

func (s *memoryStates) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.states[state]
	delete(s.states, state)
	return ok, nil
}

// ============================================================================
// Test Setup
// ============================================================================

const testCookie = "access_token"

type testEnv struct {
	router   http.Handler
	repo     *mockUserRepo
	tokens   *auth.TokenManager
	hasher   *auth.BcryptHasher
	provider *fakeProvider
	states   *memoryStates
}

type envOption func(*RouterDeps)

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	hasher, err := auth.NewBcryptHasher(4)
	require.NoError(t, err)
	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		Secret: []byte("test-secret-key-for-handler-tests!!"),
		TTL:    time.Hour,
		Issuer: "forum",
	})
	require.NoError(t, err)

	env := &testEnv{
		repo:     new(mockUserRepo),
		tokens:   tokens,
		hasher:   hasher,
		provider: &fakeProvider{},
		states:   &memoryStates{states: map[string]bool{}},
	}

	deps := RouterDeps{
		ServiceName: "forum-auth-test",
		Sessions:    service.NewSessionService(env.repo, hasher, tokens, nopPublisher{}, logger),
		Users:       service.NewUserService(env.repo, hasher, logger),
		Extractor:   auth.NewExtractor(tokens, testCookie),
		Cookies:     auth.CookieConfig{Name: testCookie, Secure: true},
		Providers:   oauth.NewRegistry(env.provider),
		States:      env.states,
		OAuth:       OAuthConfig{SuccessRedirect: "https://forum.example.com/"},
		Health:      health.NewHandler(time.Second),
		CORS:        middleware.DefaultCORSConfig([]string{"https://forum.example.com"}),
		Logger:      logger,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	env.router = NewRouter(deps)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) storedUser(t *testing.T) *domain.User {
	t.Helper()
	hash, err := e.hasher.Hash("correct-horse")
	require.NoError(t, err)
	return &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: hash,
		Provider:     domain.ProviderLocal,
		IsActive:     true,
	}
}

func (e *testEnv) bearer(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(userID, "alice@example.com")
	require.NoError(t, err)
	return "Bearer " + tok.Value
}

func jsonRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	_ = json.NewEncoder(&buf).Encode(body)
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type envelope struct {
	Status    bool              `json:"status"`
	Data      json.RawMessage   `json:"data"`
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Fields    map[string]string `json:"fields"`
	RequestID string            `json:"request_id"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ============================================================================
// Signup / Login / Logout
// ============================================================================

func TestSignup(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).Return(nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "Carol@Example.com",
		"password": "long-enough",
		"username": "carol",
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password")

	body := decodeEnvelope(t, rec)
	assert.True(t, body.Status)

	var data SessionResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.NotEmpty(t, data.Token)
	assert.Equal(t, "carol@example.com", data.User.Email)

	c := findCookie(rec, testCookie)
	require.NotNil(t, c)
	assert.Equal(t, data.Token, c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.InDelta(t, 3600, c.MaxAge, 5)
}

func TestSignup_ValidationError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email":    "not-an-email",
		"password": "short",
		"username": "bad name!",
	}))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.False(t, body.Status)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Contains(t, body.Fields, "email")
	assert.Contains(t, body.Fields, "password")
	assert.Contains(t, body.Fields, "username")
	env.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSignup_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("Create", mock.Anything, mock.Anything).
		Return(apperrors.AlreadyExists("user", "email", "carol@example.com"))

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"email": "carol@example.com", "password": "long-enough", "username": "carol",
	}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_EXISTS", decodeEnvelope(t, rec).Code)
}

func TestSignup_RequiresJSON(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := env.do(req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(env.storedUser(t), nil)

	rec := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "alice@example.com", "password": "correct-horse",
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var data SessionResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))

	claims, err := env.tokens.Decode(data.Token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.WithinDuration(t, time.Now().Add(time.Hour), data.ExpiresAt, 5*time.Second)
	require.NotNil(t, findCookie(rec, testCookie))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		found      bool
		wantStatus int
		wantCode   string
	}{
		{"unknown email", "correct-horse", false, http.StatusNotFound, "NOT_FOUND"},
		{"wrong password", "wrong-horse", true, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.found {
				env.repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(env.storedUser(t), nil)
			} else {
				env.repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, apperrors.ErrNotFound)
			}

			rec := env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
				"email": "alice@example.com", "password": tt.password,
			}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, "invalid email or password", body.Message)
			assert.NotEmpty(t, body.RequestID)
			assert.Nil(t, findCookie(rec, testCookie))
		})
	}
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RPS: 0.001, Burst: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	env := newTestEnv(t, func(d *RouterDeps) { d.LoginLimiter = limiter })
	env.repo.On("GetByEmail", mock.Anything, "alice@example.com").Return(nil, apperrors.ErrNotFound)

	login := func() *httptest.ResponseRecorder {
		return env.do(jsonRequest(http.MethodPost, "/api/v1/auth/login", map[string]string{
			"email": "alice@example.com", "password": "whatever1",
		}))
	}

	assert.Equal(t, http.StatusNotFound, login().Code)
	rec := login()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope(t, rec).Code)
	env.repo.AssertNumberOfCalls(t, "GetByEmail", 1)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeEnvelope(t, rec).Status)
	c := findCookie(rec, testCookie)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}

// ============================================================================
// Guarded routes
// ============================================================================

func TestMe_RequiresAuthentication(t *testing.T) {
	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no credentials", func(*http.Request) {}},
		{"garbage bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer not-a-jwt") }},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic dXNlcjpwYXNz") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			tt.setup(req)

			rec := env.do(req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			body := decodeEnvelope(t, rec)
			assert.False(t, body.Status)
			assert.Equal(t, "unauthorized", body.Message)
			env.repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		})
	}
}

func TestMe_WithBearer(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("GetByID", mock.Anything, "user-1").Return(env.storedUser(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", env.bearer(t, "user-1"))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var user domain.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &user))
	assert.Equal(t, "user-1", user.ID)
	assert.Empty(t, user.PasswordHash)
}

func TestMe_WithCookie(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("GetByID", mock.Anything, "user-1").Return(env.storedUser(t), nil)

	tok, err := env.tokens.Issue("user-1", "alice@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: testCookie, Value: tok.Value})

	assert.Equal(t, http.StatusOK, env.do(req).Code)
}

func TestMe_BadHeaderDoesNotFallBackToCookie(t *testing.T) {
	env := newTestEnv(t)
	tok, err := env.tokens.Issue("user-1", "alice@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer tampered")
	req.AddCookie(&http.Cookie{Name: testCookie, Value: tok.Value})

	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("GetByID", mock.Anything, "user-1").Return(env.storedUser(t), nil)
	env.repo.On("Update", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Bio == "hello forum" && u.Username == "alice"
	})).Return(nil)

	req := jsonRequest(http.MethodPatch, "/api/v1/users/me", map[string]string{"bio": "hello forum"})
	req.Header.Set("Authorization", env.bearer(t, "user-1"))
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env.repo.AssertExpectations(t)
}

func TestUpdateProfile_InvalidAvatar(t *testing.T) {
	env := newTestEnv(t)

	req := jsonRequest(http.MethodPatch, "/api/v1/users/me", map[string]string{"avatar_url": "not a url"})
	req.Header.Set("Authorization", env.bearer(t, "user-1"))
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Fields, "avatar_url")
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	env := newTestEnv(t)
	env.repo.On("GetByID", mock.Anything, "user-1").Return(env.storedUser(t), nil)

	req := jsonRequest(http.MethodPost, "/api/v1/users/me/password", map[string]string{
		"current_password": "guess-horse",
		"new_password":     "brand-new-horse",
	})
	req.Header.Set("Authorization", env.bearer(t, "user-1"))
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Code)
	env.repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestSessionStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var anon SessionStatus
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &anon))
	assert.False(t, anon.Authenticated)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", env.bearer(t, "user-1"))
	rec = env.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	var signedIn SessionStatus
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &signedIn))
	assert.True(t, signedIn.Authenticated)
	assert.Equal(t, "user-1", signedIn.UserID)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/session", nil)
	req.Header.Set("Authorization", "Bearer expired-or-forged")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)
}

// ============================================================================
// OAuth
// ============================================================================

func startOAuth(t *testing.T, env *testEnv) (state string, stateCookie *http.Cookie) {
	t.Helper()
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/login", nil))
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", loc.Host)
	state = loc.Query().Get("state")
	require.NotEmpty(t, state)

	stateCookie = findCookie(rec, stateCookieName)
	require.NotNil(t, stateCookie)
	assert.Equal(t, state, stateCookie.Value)
	assert.True(t, stateCookie.HttpOnly)
	return state, stateCookie
}

func callback(env *testEnv, state string, c *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
	if c != nil {
		req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return env.do(req)
}

func TestOAuth_FullFlow(t *testing.T) {
	env := newTestEnv(t)
	env.provider.profile = &domain.ExternalProfile{Provider: "google", Subject: "g-1", Email: "dave@example.com", Name: "Dave"}
	env.repo.On("UpsertByEmail", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.Email == "dave@example.com"
	})).Return(&domain.User{ID: "user-9", Email: "dave@example.com", Provider: "google", IsActive: true}, nil)

	state, c := startOAuth(t, env)
	rec := callback(env, state, c)

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "https://forum.example.com/", rec.Header().Get("Location"))
	assert.Equal(t, "abc", env.provider.code)

	session := findCookie(rec, testCookie)
	require.NotNil(t, session)
	claims, err := env.tokens.Decode(session.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)

	cleared := findCookie(rec, stateCookieName)
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestOAuth_StateIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.provider.profile = &domain.ExternalProfile{Provider: "google", Email: "dave@example.com"}
	env.repo.On("UpsertByEmail", mock.Anything, mock.Anything).
		Return(&domain.User{ID: "user-9", Email: "dave@example.com", IsActive: true}, nil)

	state, c := startOAuth(t, env)
	require.Equal(t, http.StatusFound, callback(env, state, c).Code)

	rec := callback(env, state, c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	env.repo.AssertNumberOfCalls(t, "UpsertByEmail", 1)
}

func TestOAuth_StateMustMatchCookie(t *testing.T) {
	env := newTestEnv(t)
	state, _ := startOAuth(t, env)

	rec := callback(env, state, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = callback(env, state, &http.Cookie{Name: stateCookieName, Value: "someone-elses-state"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.provider.code)
}

func TestOAuth_ProviderDenied(t *testing.T) {
	env := newTestEnv(t)
	state, c := startOAuth(t, env)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?error=access_denied&state="+state, nil)
	req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	rec := env.do(req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, env.provider.code)
}

func TestOAuth_ProviderFailure(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = apperrors.ProviderError("google", errors.New("token endpoint said invalid_grant"))

	state, c := startOAuth(t, env)
	rec := callback(env, state, c)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "PROVIDER_ERROR", body.Code)
	assert.NotContains(t, rec.Body.String(), "invalid_grant")
	assert.Nil(t, findCookie(rec, testCookie))
}

func TestOAuth_UnknownProvider(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/v1/auth/myspace/login", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOAuth_CallbackReturnsJSONWithoutRedirect(t *testing.T) {
	env := newTestEnv(t, func(d *RouterDeps) { d.OAuth.SuccessRedirect = "" })
	env.provider.profile = &domain.ExternalProfile{Provider: "google", Email: "dave@example.com"}
	env.repo.On("UpsertByEmail", mock.Anything, mock.Anything).
		Return(&domain.User{ID: "user-9", Email: "dave@example.com", IsActive: true}, nil)

	state, c := startOAuth(t, env)
	rec := callback(env, state, c)

	require.Equal(t, http.StatusOK, rec.Code)
	var data SessionResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &data))
	assert.Equal(t, "user-9", data.User.ID)
}

// ============================================================================
// Infrastructure routes
// ============================================================================

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health/live", nil)).Code)
	assert.Equal(t, http.StatusOK, env.do(httptest.NewRequest(http.MethodGet, "/health/ready", nil)).Code)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Code)
}
