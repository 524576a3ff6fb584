package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env              string
	HTTPPort         string
	DatabaseURL      string
	DefaultCurrency  string
	JWTSecret        string
	PublicBaseURL    string
	UploadDir        string
	UploadSessionTTL time.Duration
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	SeedAdminUser    string
	SeedAdminPass    string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:              getEnv("APP_ENV", "development"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DefaultCurrency:  getEnv("CURRENCY_CODE", "ETB"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		PublicBaseURL:    getEnv("PUBLIC_BASE_URL", ""),
		UploadDir:        getEnv("UPLOAD_DIR", "uploads"),
		UploadSessionTTL: getDuration("UPLOAD_SESSION_TTL", 30*time.Minute),
		AccessTokenTTL:   getDuration("ACCESS_TOKEN_TTL", 12*time.Hour),
		RefreshTokenTTL:  getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		SeedAdminUser:    getEnv("SEED_ADMIN_USERNAME", ""),
		SeedAdminPass:    getEnv("SEED_ADMIN_PASSWORD", ""),
		ReadTimeout:      getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:     getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:      getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:  getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
