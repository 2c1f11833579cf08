package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
	"github.com/dmitrijs2005/medibook/internal/server/services"
)

// AuthService is the part of services.AuthService the handlers call.
type AuthService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.UserSummary, error)
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*services.AuthResult, error)
	Authenticate(ctx context.Context, accessToken string) (*models.User, error)
	Me(ctx context.Context, userID string) (*models.SanitizedUser, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	Generate2FASecret(ctx context.Context, userID string) (*services.TwoFactorSetup, error)
	Enable2FA(ctx context.Context, userID, code string) error
	Disable2FA(ctx context.Context, userID, code string) error
}

const maxBodyBytes = 1 << 20

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Phone         string `json:"phone"`
	Specialty     string `json:"specialty"`
	LicenseNumber string `json:"licenseNumber"`
}

type registerResponse struct {
	Message string             `json:"message"`
	User    models.UserSummary `json:"user"`
}

type loginRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	TwoFactorToken string `json:"twoFactorToken"`
}

type sessionResponse struct {
	User        models.UserSummary `json:"user"`
	AccessToken string             `json:"accessToken"`
	ExpiresAt   time.Time          `json:"expiresAt"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type twoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
}

// decode reads a JSON body into v. A failure has already been written to w.
func (a *api) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		a.writeError(w, r, common.ValidationError("invalid request body"))
		return false
	}
	return true
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !a.decode(w, r, &req) {
		return
	}

	user, err := a.svc.Register(r.Context(), services.RegisterInput{
		Email:         req.Email,
		Password:      req.Password,
		Role:          req.Role,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		Phone:         req.Phone,
		Specialty:     req.Specialty,
		LicenseNumber: req.LicenseNumber,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		Message: "Registration successful. Please check your email to verify your account.",
		User:    *user,
	})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !a.decode(w, r, &req) {
		return
	}

	res, err := a.svc.Login(r.Context(), services.LoginInput{
		Email:          req.Email,
		Password:       req.Password,
		TwoFactorToken: req.TwoFactorToken,
		UserAgent:      r.UserAgent(),
		IPAddress:      clientIP(r),
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeSession(w, res)
}

func (a *api) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(r)
	if token == "" {
		a.writeError(w, r, common.ErrorUnauthorized)
		return
	}

	res, err := a.svc.Refresh(r.Context(), token, r.UserAgent(), clientIP(r))
	if err != nil {
		a.clearRefreshCookie(w)
		a.writeError(w, r, err)
		return
	}

	a.writeSession(w, res)
}

func (a *api) writeSession(w http.ResponseWriter, res *services.AuthResult) {
	a.setRefreshCookie(w, res.Tokens.RefreshToken)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:        res.User,
		AccessToken: res.Tokens.AccessToken,
		ExpiresAt:   res.Tokens.ExpiresAt,
	})
}

func (a *api) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.Logout(r.Context(), refreshTokenFrom(r)); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.clearRefreshCookie(w)
	writeMessage(w, http.StatusOK, "Logged out successfully")
}

func (a *api) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.VerifyEmail(r.Context(), req.Token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Email verified successfully")
}

func (a *api) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.ResendVerification(r.Context(), req.Email); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "If the account exists and is not yet verified, a new verification email has been sent")
}

func (a *api) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !a.decode(w, r, &req) {
		return
	}
	// The response never depends on whether the account exists.
	if err := a.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		a.log.Error(r.Context(), "forgot password failed", "error", err)
	}
	writeMessage(w, http.StatusOK, "If an account with that email exists, a password reset link has been sent")
}

func (a *api) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password reset successfully")
}

func (a *api) handleGenerate2FA(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	setup, err := a.svc.Generate2FASecret(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, twoFactorSetupResponse{Secret: setup.Secret, OTPAuthURL: setup.OTPAuthURL})
}

func (a *api) handleEnable2FA(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req tokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Enable2FA(r.Context(), user.ID, req.Token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Two-factor authentication enabled")
}

func (a *api) handleDisable2FA(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	var req tokenRequest
	if !a.decode(w, r, &req) {
		return
	}
	if err := a.svc.Disable2FA(r.Context(), user.ID, req.Token); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Two-factor authentication disabled")
}

func (a *api) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r.Context())

	me, err := a.svc.Me(r.Context(), user.ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": me})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
