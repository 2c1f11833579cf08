package httpapi

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/medibook/internal/common"
)

// errorResponse is the JSON envelope of every failed request.
type errorResponse struct {
	Error             string `json:"error"`
	Code              string `json:"code"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

const (
	codeValidation          = "VALIDATION_ERROR"
	codeDuplicateEmail      = "DUPLICATE_EMAIL"
	codeInvalidCredentials  = "INVALID_CREDENTIALS"
	codeAccountLocked       = "ACCOUNT_LOCKED"
	codeEmailNotVerified    = "EMAIL_NOT_VERIFIED"
	codeTwoFactorRequired   = "2FA_REQUIRED"
	codeInvalidTwoFactor    = "INVALID_2FA_CODE"
	codeTwoFactorNotEnabled = "2FA_NOT_CONFIGURED"
	codeInvalidOrExpired    = "INVALID_OR_EXPIRED_TOKEN"
	codeInvalidToken        = "INVALID_TOKEN"
	codeUnauthorized        = "UNAUTHORIZED"
	codeRateLimited         = "RATE_LIMITED"
	codeNotFound            = "NOT_FOUND"
	codeInternal            = "INTERNAL_ERROR"
)

// errorStatuses maps service errors to responses. Order matters only for
// errors that wrap one another.
var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{common.ErrDuplicateEmail, http.StatusConflict, codeDuplicateEmail},
	{common.ErrInvalidCredentials, http.StatusUnauthorized, codeInvalidCredentials},
	{common.ErrEmailNotVerified, http.StatusForbidden, codeEmailNotVerified},
	{common.ErrTwoFactorRequired, http.StatusForbidden, codeTwoFactorRequired},
	{common.ErrInvalidTwoFactorCode, http.StatusUnauthorized, codeInvalidTwoFactor},
	{common.ErrTwoFactorNotConfigured, http.StatusBadRequest, codeTwoFactorNotEnabled},
	{common.ErrInvalidOrExpiredToken, http.StatusBadRequest, codeInvalidOrExpired},
	{common.ErrInvalidToken, http.StatusUnauthorized, codeInvalidToken},
	{common.ErrTokenExpired, http.StatusUnauthorized, codeInvalidToken},
	{common.ErrorUnauthorized, http.StatusUnauthorized, codeUnauthorized},
	{common.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited},
	{common.ErrorNotFound, http.StatusNotFound, codeNotFound},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeError renders err. Anything not recognised is logged and hidden
// behind a generic 500.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *common.LockedError
	if errors.As(err, &locked) {
		secs := retrySeconds(locked.Remaining)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusLocked, errorResponse{
			Error:             "account temporarily locked due to too many failed login attempts",
			Code:              codeAccountLocked,
			RetryAfterSeconds: secs,
		})
		return
	}

	if errors.Is(err, common.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationReason(err), Code: codeValidation})
		return
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, errorResponse{Error: e.err.Error(), Code: e.code})
			return
		}
	}

	a.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Code: codeInternal})
}

func (a *api) tooManyRequests(w http.ResponseWriter, retryAfter time.Duration) {
	secs := retrySeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:             common.ErrRateLimited.Error(),
		Code:              codeRateLimited,
		RetryAfterSeconds: secs,
	})
}

func retrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

func validationReason(err error) string {
	msg := err.Error()
	if reason, ok := strings.CutPrefix(msg, common.ErrValidation.Error()+": "); ok {
		return reason
	}
	return msg
}
