package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config fields from command-line flags and returns
// the arguments left after the first non-flag one.
//
// Supported flags:
//
//	-a string        HTTP bind address (e.g. ":8080")
//	-d string        PostgreSQL DSN
//	-storage string  "postgres" or "memory"
//	-s string        JWT HMAC secret key
//	-env string      "development" or "production"
//	-bcrypt-cost int password hashing cost
//	-t int           access token validity, minutes
//	-r int           refresh token validity, minutes
//	-redis string    Redis address for shared rate limits
//	-c/-config       JSON config file (consumed by parseJSON)
func parseFlags(config *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("medibook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.Storage, "storage", config.Storage, "storage backend: postgres or memory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.Environment, "env", config.Environment, "environment: development or production")
	fs.IntVar(&config.BcryptCost, "bcrypt-cost", config.BcryptCost, "bcrypt cost (0 = by environment)")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address for rate limiting")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh token validity (in minutes)")

	var ignored string
	fs.StringVar(&ignored, "c", "", "path to JSON config file")
	fs.StringVar(&ignored, "config", "", "path to JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
	return fs.Args(), nil
}
