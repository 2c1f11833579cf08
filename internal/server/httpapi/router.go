// Package httpapi exposes the auth workflows as a JSON API under /api/auth.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/ratelimit"
	"github.com/dmitrijs2005/medibook/internal/server/config"
)

var (
	// AuthRule covers register and login together.
	AuthRule = ratelimit.Rule{Limit: 5, Window: 15 * time.Minute}
	// PasswordRule covers forgot-password and reset-password together.
	PasswordRule = ratelimit.Rule{Limit: 3, Window: time.Hour}
)

type api struct {
	svc            AuthService
	limiter        ratelimit.Limiter
	log            logging.Logger
	refreshTTL     time.Duration
	secureCookies  bool
	allowedOrigins map[string]struct{}
}

// NewRouter builds the HTTP handler for the auth API.
func NewRouter(svc AuthService, limiter ratelimit.Limiter, cfg *config.Config, log logging.Logger) http.Handler {
	a := &api{
		svc:            svc,
		limiter:        limiter,
		log:            log.With("module", "http_server"),
		refreshTTL:     cfg.RefreshTokenValidityDuration,
		secureCookies:  cfg.IsProduction(),
		allowedOrigins: make(map[string]struct{}, len(cfg.AllowedOrigins)),
	}
	for _, o := range cfg.AllowedOrigins {
		a.allowedOrigins[o] = struct{}{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(a.cors)

	r.Get("/healthz", handleHealth)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(a.rateLimit("auth", AuthRule)).Post("/register", a.handleRegister)
		r.With(a.rateLimit("auth", AuthRule)).Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/verify-email", a.handleVerifyEmail)
		r.Post("/resend-verification", a.handleResendVerification)
		r.With(a.rateLimit("password", PasswordRule)).Post("/forgot-password", a.handleForgotPassword)
		r.With(a.rateLimit("password", PasswordRule)).Post("/reset-password", a.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)
			r.Post("/logout", a.handleLogout)
			r.Get("/me", a.handleMe)

			r.Group(func(r chi.Router) {
				r.Use(a.requireVerifiedEmail)
				r.Post("/2fa/generate", a.handleGenerate2FA)
				r.Post("/2fa/enable", a.handleEnable2FA)
				r.Post("/2fa/disable", a.handleDisable2FA)
			})
		})
	})

	return r
}
