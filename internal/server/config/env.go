package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// envPrefix namespaces every variable read by parseEnv.
const envPrefix = "MEDIBOOK_"

// dotenvFiles are loaded in order; variables already present in the process
// environment are never overwritten.
var dotenvFiles = []string{".env.local", ".env"}

type lookupFunc func(key string) (string, bool)

// parseEnv loads .env files (missing files are ignored) and overlays
// MEDIBOOK_* variables onto config.
//
// Recognised variables: HTTP_ADDR, DATABASE_DSN, STORAGE, SECRET_KEY, ENV,
// BCRYPT_COST, ACCESS_TOKEN_TTL, REFRESH_TOKEN_TTL, LOCKOUT_THRESHOLD,
// LOCKOUT_DURATION, TOTP_ISSUER, APP_BASE_URL, ALLOWED_ORIGINS (comma list),
// SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD, SMTP_FROM, REDIS_ADDR,
// SESSION_PURGE_INTERVAL.
func parseEnv(config *Config, lookup lookupFunc) error {
	for _, f := range dotenvFiles {
		_ = godotenv.Load(f)
	}

	get := func(name string) (string, bool) {
		v, ok := lookup(envPrefix + name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	strs := map[string]*string{
		"HTTP_ADDR":     &config.HTTPAddr,
		"DATABASE_DSN":  &config.DatabaseDSN,
		"STORAGE":       &config.Storage,
		"SECRET_KEY":    &config.SecretKey,
		"ENV":           &config.Environment,
		"TOTP_ISSUER":   &config.TOTPIssuer,
		"APP_BASE_URL":  &config.AppBaseURL,
		"SMTP_HOST":     &config.SMTP.Host,
		"SMTP_USERNAME": &config.SMTP.Username,
		"SMTP_PASSWORD": &config.SMTP.Password,
		"SMTP_FROM":     &config.SMTP.From,
		"REDIS_ADDR":    &config.RedisAddr,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BCRYPT_COST":       &config.BcryptCost,
		"LOCKOUT_THRESHOLD": &config.LockoutThreshold,
		"SMTP_PORT":         &config.SMTP.Port,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":       &config.AccessTokenValidityDuration,
		"REFRESH_TOKEN_TTL":      &config.RefreshTokenValidityDuration,
		"LOCKOUT_DURATION":       &config.LockoutDuration,
		"SESSION_PURGE_INTERVAL": &config.SessionPurgeInterval,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, name, err)
			}
			*dst = d
		}
	}

	if v, ok := get("ALLOWED_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}

	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
