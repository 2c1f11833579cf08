package mail

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// VerificationMessage builds the e-mail carrying the raw verification token.
func VerificationMessage(baseURL, to, token string, validity time.Duration) Message {
	link := tokenLink(baseURL, "/verify-email", token)
	return Message{
		To:      to,
		Subject: "Verify your MediBook account",
		Body: fmt.Sprintf("Welcome to MediBook.\n\nConfirm your e-mail address by opening the link below:\n\n%s\n\nThe link expires in %s.\n",
			link, humanDuration(validity)),
	}
}

// PasswordResetMessage builds the e-mail carrying the raw reset token.
func PasswordResetMessage(baseURL, to, token string, validity time.Duration) Message {
	link := tokenLink(baseURL, "/reset-password", token)
	return Message{
		To:      to,
		Subject: "Reset your MediBook password",
		Body: fmt.Sprintf("A password reset was requested for your account.\n\nChoose a new password here:\n\n%s\n\nThe link expires in %s. If you did not ask for this, ignore this e-mail.\n",
			link, humanDuration(validity)),
	}
}

func tokenLink(baseURL, path, token string) string {
	return strings.TrimRight(baseURL, "/") + path + "?token=" + url.QueryEscape(token)
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
