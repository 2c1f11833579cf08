package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTOTPSecret(t *testing.T) {
	t.Parallel()

	secret, uri, err := GenerateTOTPSecret("MediBook", "doctor@example.com")
	require.NoError(t, err)

	assert.NotEmpty(t, secret)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"), uri)
	assert.Contains(t, uri, "secret="+secret)
	assert.Contains(t, uri, "issuer=MediBook")
}

func TestValidateTOTP_Window(t *testing.T) {
	t.Parallel()

	secret, _, err := GenerateTOTPSecret("MediBook", "a@example.com")
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 15, 0, time.UTC)

	for _, offset := range []time.Duration{0, -30 * time.Second, -60 * time.Second, 30 * time.Second, 60 * time.Second} {
		code, err := GenerateTOTPCode(secret, now.Add(offset))
		require.NoError(t, err)
		assert.True(t, ValidateTOTP(code, secret, now), "offset %s should be accepted", offset)
	}

	for _, offset := range []time.Duration{-120 * time.Second, 120 * time.Second} {
		code, err := GenerateTOTPCode(secret, now.Add(offset))
		require.NoError(t, err)
		assert.False(t, ValidateTOTP(code, secret, now), "offset %s should be rejected", offset)
	}
}

func TestValidateTOTP_BadInput(t *testing.T) {
	t.Parallel()

	secret, _, err := GenerateTOTPSecret("MediBook", "a@example.com")
	require.NoError(t, err)
	now := time.Now()
	code, err := GenerateTOTPCode(secret, now)
	require.NoError(t, err)

	assert.True(t, ValidateTOTP(" "+code+" ", secret, now), "surrounding spaces are tolerated")
	assert.False(t, ValidateTOTP("", secret, now))
	assert.False(t, ValidateTOTP("12345", secret, now))
	assert.False(t, ValidateTOTP("abcdef", secret, now))
	assert.False(t, ValidateTOTP(code, "", now))
}
