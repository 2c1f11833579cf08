package services

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/server/config"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
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

// outbox records dispatched mail synchronously.
type outbox struct {
	mu   sync.Mutex
	msgs []mail.Message
}

func (o *outbox) Dispatch(_ context.Context, msg mail.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

var tokenRe = regexp.MustCompile(`token=([0-9a-f]+)`)

// lastToken extracts the raw token from the newest message sent to "to".
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

type fixture struct {
	svc    *AuthService
	repos  *repomanager.MemoryRepositoryManager
	sm     *sessions.Manager
	clock  *fakeClock
	outbox *outbox
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.SecretKey = "0123456789abcdef0123456789abcdef"
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := testConfig()
	clock := &fakeClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	repos := repomanager.NewMemoryRepositoryManager()
	sm := sessions.NewManager(repos, []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration,
		logging.Nop{}, sessions.WithClock(clock.Now))
	ob := &outbox{}
	svc := NewAuthService(repos, sm, ob, cfg, logging.Nop{}, WithClock(clock.Now))
	return &fixture{svc: svc, repos: repos, sm: sm, clock: clock, outbox: ob}
}

// registerVerified registers email as a patient and verifies it.
func (f *fixture) registerVerified(t *testing.T, email string) string {
	t.Helper()
	ctx := context.Background()
	u, err := f.svc.Register(ctx, RegisterInput{Email: email, Password: strongPassword, Role: "patient"})
	require.NoError(t, err)
	require.NoError(t, f.svc.VerifyEmail(ctx, f.outbox.lastToken(t, email)))
	return u.ID
}
