package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medibook/internal/server/auth"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

func TestDoctorLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	const email = "doctor@example.com"
	creds := map[string]string{"email": email, "password": strongPassword}
	wrong := map[string]string{"email": email, "password": "Wr0ng!Pass"}

	rec := env.do(t, request{path: "/api/auth/register", body: map[string]string{
		"email": email, "password": strongPassword, "role": "doctor",
		"firstName": "Gregory", "lastName": "House", "specialty": "Diagnostics", "licenseNumber": "MD-1",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reg := decodeBody[registerResponse](t, rec)
	assert.NotEmpty(t, reg.Message)
	assert.Equal(t, email, reg.User.Email)
	assert.Equal(t, models.RoleDoctor, reg.User.Role)
	assert.False(t, reg.User.IsEmailVerified)

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeEmailNotVerified, decodeBody[errorResponse](t, rec).Code)

	rec = env.do(t, request{path: "/api/auth/verify-email", body: map[string]string{"token": env.outbox.lastToken(t, email)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sess := decodeBody[sessionResponse](t, rec)
	assert.NotEmpty(t, sess.AccessToken)
	assert.True(t, sess.User.IsEmailVerified)
	assert.True(t, sess.ExpiresAt.After(env.clock.Now()))
	assert.NotEmpty(t, refreshCookie(t, rec).Value)

	for i := 0; i < 5; i++ {
		rec = env.do(t, request{path: "/api/auth/login", body: wrong})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
		assert.Equal(t, codeInvalidCredentials, decodeBody[errorResponse](t, rec).Code)
	}

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	require.Equal(t, http.StatusLocked, rec.Code)
	locked := decodeBody[errorResponse](t, rec)
	assert.Equal(t, codeAccountLocked, locked.Code)
	assert.Equal(t, int((2 * time.Hour).Seconds()), locked.RetryAfterSeconds)
	assert.Equal(t, strconv.Itoa(locked.RetryAfterSeconds), rec.Header().Get("Retry-After"))

	env.clock.Advance(2*time.Hour + time.Second)

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, request{path: "/api/auth/register", body: map[string]string{"email": "a@example.com", "password": strongPassword, "role": "patient"}})
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"duplicate", map[string]string{"email": "A@Example.com", "password": strongPassword, "role": "patient"}, http.StatusConflict, codeDuplicateEmail},
		{"weak password", map[string]string{"email": "b@example.com", "password": "weak", "role": "patient"}, http.StatusBadRequest, codeValidation},
		{"admin role", map[string]string{"email": "c@example.com", "password": strongPassword, "role": "admin"}, http.StatusBadRequest, codeValidation},
		{"bad json", "not an object", http.StatusBadRequest, codeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, request{path: "/api/auth/register", body: tt.body})
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody[errorResponse](t, rec).Code)
		})
	}
}

func TestRefreshAndLogout(t *testing.T) {
	env := newTestEnv(t, nil)
	sess, cookie := env.registerAndVerify(t, "p@example.com", "patient")

	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, refreshCookiePath, cookie.Path)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), cookie.MaxAge)
	assert.False(t, cookie.Secure)

	rec := env.do(t, request{path: "/api/auth/refresh", cookies: []*http.Cookie{cookie}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rotated := refreshCookie(t, rec)
	assert.NotEqual(t, cookie.Value, rotated.Value)

	rec = env.do(t, request{path: "/api/auth/refresh", cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "old refresh token is single use")

	rec = env.do(t, request{path: "/api/auth/logout", cookies: []*http.Cookie{rotated}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "logout needs a bearer token")

	rec = env.do(t, request{path: "/api/auth/logout", bearer: sess.AccessToken, cookies: []*http.Cookie{rotated}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, -1, refreshCookie(t, rec).MaxAge)

	rec = env.do(t, request{path: "/api/auth/refresh", cookies: []*http.Cookie{rotated}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, request{path: "/api/auth/refresh"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decodeBody[errorResponse](t, rec).Code)
}

func TestMe(t *testing.T) {
	env := newTestEnv(t, nil)
	sess, _ := env.registerAndVerify(t, "p@example.com", "patient")

	rec := env.do(t, request{method: http.MethodGet, path: "/api/auth/me", bearer: sess.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, `"email":"p@example.com"`)
	assert.NotContains(t, body, "passwordHash")
	assert.NotContains(t, body, "twoFactorSecret")

	rec = env.do(t, request{method: http.MethodGet, path: "/api/auth/me", bearer: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeUnauthorized, decodeBody[errorResponse](t, rec).Code)
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t, nil)
	const email = "p@example.com"
	_, cookie := env.registerAndVerify(t, email, "patient")

	rec := env.do(t, request{path: "/api/auth/forgot-password", body: map[string]string{"email": "nobody@example.com"}})
	require.Equal(t, http.StatusOK, rec.Code)
	generic := rec.Body.String()

	rec = env.do(t, request{path: "/api/auth/forgot-password", body: map[string]string{"email": email}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, generic, rec.Body.String(), "response must not reveal whether the account exists")

	token := env.outbox.lastToken(t, email)
	const newPassword = "N3w!Passw0rd"

	rec = env.do(t, request{path: "/api/auth/reset-password", body: map[string]string{"token": token, "password": newPassword}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{path: "/api/auth/reset-password", body: map[string]string{"token": token, "password": newPassword}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidOrExpired, decodeBody[errorResponse](t, rec).Code)

	rec = env.do(t, request{path: "/api/auth/refresh", cookies: []*http.Cookie{cookie}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "sessions issued before the reset are revoked")

	rec = env.do(t, request{path: "/api/auth/login", body: map[string]string{"email": email, "password": newPassword}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyEmail_InvalidToken(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, request{path: "/api/auth/verify-email", body: map[string]string{"token": "deadbeef"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeInvalidOrExpired, decodeBody[errorResponse](t, rec).Code)
}

func TestResendVerification(t *testing.T) {
	env := newTestEnv(t, nil)
	const email = "p@example.com"

	rec := env.do(t, request{path: "/api/auth/register", body: map[string]string{"email": email, "password": strongPassword, "role": "patient"}})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := env.outbox.lastToken(t, email)

	rec = env.do(t, request{path: "/api/auth/resend-verification", body: map[string]string{"email": email}})
	require.Equal(t, http.StatusOK, rec.Code)
	second := env.outbox.lastToken(t, email)
	assert.NotEqual(t, first, second)

	rec = env.do(t, request{path: "/api/auth/verify-email", body: map[string]string{"token": second}})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTwoFactorFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	const email = "p@example.com"
	sess, _ := env.registerAndVerify(t, email, "patient")
	creds := map[string]string{"email": email, "password": strongPassword}

	rec := env.do(t, request{path: "/api/auth/2fa/enable", bearer: sess.AccessToken, body: map[string]string{"token": "123456"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeTwoFactorNotEnabled, decodeBody[errorResponse](t, rec).Code)

	rec = env.do(t, request{path: "/api/auth/2fa/generate", bearer: sess.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	setup := decodeBody[twoFactorSetupResponse](t, rec)
	require.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.OTPAuthURL, "otpauth://totp/")

	code, err := auth.GenerateTOTPCode(setup.Secret, env.clock.Now())
	require.NoError(t, err)

	rec = env.do(t, request{path: "/api/auth/2fa/enable", bearer: sess.AccessToken, body: map[string]string{"token": code}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeTwoFactorRequired, decodeBody[errorResponse](t, rec).Code)

	stale, err := auth.GenerateTOTPCode(setup.Secret, env.clock.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	rec = env.do(t, request{path: "/api/auth/login", body: map[string]string{"email": email, "password": strongPassword, "twoFactorToken": stale}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, codeInvalidTwoFactor, decodeBody[errorResponse](t, rec).Code)

	rec = env.do(t, request{path: "/api/auth/login", body: map[string]string{"email": email, "password": strongPassword, "twoFactorToken": code}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{path: "/api/auth/2fa/disable", bearer: sess.AccessToken, body: map[string]string{"token": code}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, request{path: "/api/auth/login", body: creds})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTwoFactor_RequiresVerifiedEmail(t *testing.T) {
	env := newTestEnv(t, nil)
	sess, _ := env.registerAndVerify(t, "p@example.com", "patient")

	rec := env.do(t, request{path: "/api/auth/2fa/generate"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := context.Background()
	u, err := env.repos.Users().Create(ctx, &models.User{Email: "u@example.com", PasswordHash: "x", Role: models.RolePatient})
	require.NoError(t, err)
	pair, err := env.sm.CreateSession(ctx, u.ID, "", "")
	require.NoError(t, err)

	rec = env.do(t, request{path: "/api/auth/2fa/generate", bearer: pair.AccessToken})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, codeEmailNotVerified, decodeBody[errorResponse](t, rec).Code)

	rec = env.do(t, request{path: "/api/auth/2fa/generate", bearer: sess.AccessToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, request{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
