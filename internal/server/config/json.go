package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/medibook/internal/timex"
)

// JsonConfig is the on-disk shape of the -c/-config file. Durations accept
// "15m"-style strings or integer nanoseconds. Only non-zero fields override
// the values already in Config.
type JsonConfig struct {
	HTTPAddr                          string         `json:"http_addr"`
	DatabaseDSN                       string         `json:"database_dsn"`
	Storage                           string         `json:"storage"`
	SecretKey                         string         `json:"secret_key"`
	Environment                       string         `json:"environment"`
	BcryptCost                        int            `json:"bcrypt_cost"`
	AccessTokenValidityDuration       timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration      timex.Duration `json:"refresh_token_validity_duration"`
	VerificationTokenValidityDuration timex.Duration `json:"verification_token_validity_duration"`
	ResetTokenValidityDuration        timex.Duration `json:"reset_token_validity_duration"`
	LockoutThreshold                  int            `json:"lockout_threshold"`
	LockoutDuration                   timex.Duration `json:"lockout_duration"`
	TOTPIssuer                        string         `json:"totp_issuer"`
	AppBaseURL                        string         `json:"app_base_url"`
	AllowedOrigins                    []string       `json:"allowed_origins"`
	SMTPHost                          string         `json:"smtp_host"`
	SMTPPort                          int            `json:"smtp_port"`
	SMTPUsername                      string         `json:"smtp_username"`
	SMTPPassword                      string         `json:"smtp_password"`
	SMTPFrom                          string         `json:"smtp_from"`
	RedisAddr                         string         `json:"redis_addr"`
	SessionPurgeInterval              timex.Duration `json:"session_purge_interval"`
}

// parseJson reads path (if non-empty) and overlays it onto config.
func parseJSON(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Storage, c.Storage)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.Environment, c.Environment)
	setInt(&config.BcryptCost, c.BcryptCost)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.VerificationTokenValidityDuration, c.VerificationTokenValidityDuration)
	setDuration(&config.ResetTokenValidityDuration, c.ResetTokenValidityDuration)
	setInt(&config.LockoutThreshold, c.LockoutThreshold)
	setDuration(&config.LockoutDuration, c.LockoutDuration)
	setString(&config.TOTPIssuer, c.TOTPIssuer)
	setString(&config.AppBaseURL, c.AppBaseURL)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.SMTP.Host, c.SMTPHost)
	setInt(&config.SMTP.Port, c.SMTPPort)
	setString(&config.SMTP.Username, c.SMTPUsername)
	setString(&config.SMTP.Password, c.SMTPPassword)
	setString(&config.SMTP.From, c.SMTPFrom)
	setString(&config.RedisAddr, c.RedisAddr)
	setDuration(&config.SessionPurgeInterval, c.SessionPurgeInterval)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
