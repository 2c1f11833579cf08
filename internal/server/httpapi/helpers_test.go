package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/ratelimit"
	"github.com/dmitrijs2005/medibook/internal/server/config"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medibook/internal/server/services"
	"github.com/dmitrijs2005/medibook/internal/server/sessions"
)

const strongPassword = "Str0ng!Pass"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Dispatch(_ context.Context, msg mail.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

var tokenRe = regexp.MustCompile(`token=([0-9a-f]+)`)

func (o *outbox) lastToken(t *testing.T, to string) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.msgs) - 1; i >= 0; i-- {
		if o.msgs[i].To != to {
			continue
		}
		m := tokenRe.FindStringSubmatch(o.msgs[i].Body)
		require.Len(t, m, 2, "no token in message body")
		return m[1]
	}
	t.Fatalf("no message sent to %s", to)
	return ""
}

// allowAll never limits.
type allowAll struct{}

func (allowAll) Allow(context.Context, string, ratelimit.Rule) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: true}, nil
}

type testEnv struct {
	handler http.Handler
	clock   *fakeClock
	outbox  *outbox
	repos   *repomanager.MemoryRepositoryManager
	sm      *sessions.Manager
	cfg     *config.Config
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.Storage = config.StorageMemory
	cfg.BcryptCost = bcrypt.MinCost
	cfg.SecretKey = "0123456789abcdef0123456789abcdef"
	cfg.AllowedOrigins = []string{"https://app.medibook.test"}
	return cfg
}

func newTestEnv(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()
	cfg := testConfig()
	clock := &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	repos := repomanager.NewMemoryRepositoryManager()
	sm := sessions.NewManager(repos, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration,
		logging.Nop{}, sessions.WithClock(clock.Now))
	ob := &outbox{}
	svc := services.NewAuthService(repos, sm, ob, cfg, logging.Nop{}, services.WithClock(clock.Now))
	if limiter == nil {
		limiter = allowAll{}
	}
	return &testEnv{
		handler: NewRouter(svc, limiter, cfg, logging.Nop{}),
		clock:   clock,
		outbox:  ob,
		repos:   repos,
		sm:      sm,
		cfg:     cfg,
	}
}

type request struct {
	method  string
	path    string
	body    any
	bearer  string
	cookies []*http.Cookie
	headers map[string]string
	remote  string
}

func (e *testEnv) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if req.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(req.body))
	}
	method := req.method
	if method == "" {
		method = http.MethodPost
	}
	r := httptest.NewRequest(method, req.path, &buf)
	r.Header.Set("Content-Type", "application/json")
	if req.bearer != "" {
		r.Header.Set("Authorization", "Bearer "+req.bearer)
	}
	for _, c := range req.cookies {
		r.AddCookie(c)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	if req.remote != "" {
		r.RemoteAddr = req.remote
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", refreshCookieName)
	return nil
}

// registerAndVerify creates a verified account and returns a logged-in
// session response with its refresh cookie.
func (e *testEnv) registerAndVerify(t *testing.T, email, role string) (sessionResponse, *http.Cookie) {
	t.Helper()
	rec := e.do(t, request{path: "/api/auth/register", body: map[string]string{"email": email, "password": strongPassword, "role": role}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = e.do(t, request{path: "/api/auth/verify-email", body: map[string]string{"token": e.outbox.lastToken(t, email)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = e.do(t, request{path: "/api/auth/login", body: map[string]string{"email": email, "password": strongPassword}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeBody[sessionResponse](t, rec), refreshCookie(t, rec)
}
