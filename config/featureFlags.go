package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// SkipMigrations disables AutoMigrate on server startup (run `payablesctl migrate` instead).
//
// Set via env:
// - SKIP_MIGRATIONS=true
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

// SeedOnStart loads the initial suppliers, transactions, invoices and users on server startup.
//
// Set via env:
// - SEED_ON_START=true
func SeedOnStart() bool {
	return boolFromEnv("SEED_ON_START")
}

// IsProduction is true when GO_ENV=production.
func IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production")
}

// TokenLifespan is how long a login session stays valid (TOKEN_HOUR_LIFESPAN, default 24h).
func TokenLifespan() time.Duration {
	hours := intFromEnv("TOKEN_HOUR_LIFESPAN", 24)
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// DefaultPhoneRegion is the region used to parse supplier phone numbers without a country prefix.
func DefaultPhoneRegion() string {
	region := strings.ToUpper(strings.TrimSpace(os.Getenv("DEFAULT_PHONE_REGION")))
	if region == "" {
		return "MM"
	}
	return region
}
