package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=printshop port=5432 sslmode=disable"

type Config struct {
	HTTPPort         string
	DatabaseDSN      string
	DBConnectRetries int
	JWTSecret        string
	CORSOrigins      string
	RedisAddr        string // empty: cache and locks run in no-op mode
	RedisPassword    string
	CacheTTL         time.Duration
	DeletePasscode   string
	LoginRateLimit   string // ulule/limiter format, e.g. "10-M"
	LogLevel         string
}

// Load reads .env (if present) and the process environment. Missing
// security settings are fatal.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, using environment variables")
	}

	cfg, problems := FromEnv()
	for _, p := range problems {
		logrus.Fatal(p)
	}

	if cfg.DatabaseDSN == defaultDSN {
		logrus.Warn("DATABASE_DSN uses the default value, set your own Postgres DSN for production")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		logrus.Warn("CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	if cfg.RedisAddr == "" {
		logrus.Warn("REDIS_ADDRESS not set, dashboard cache and write locks are disabled")
	}

	return cfg
}

// FromEnv builds the config without side effects and returns the list of
// fatal problems found.
func FromEnv() (*Config, []string) {
	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", defaultDSN),
		DBConnectRetries: getEnvInt("DB_CONNECT_RETRIES", 2),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		RedisAddr:        getEnv("REDIS_ADDRESS", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		CacheTTL:         time.Duration(getEnvInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		DeletePasscode:   getEnv("DELETE_PASSCODE", ""),
		LoginRateLimit:   getEnv("LOGIN_RATE_LIMIT", "10-M"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var problems []string
	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is not set")
	} else if len(cfg.JWTSecret) < 32 {
		problems = append(problems, "JWT_SECRET must be at least 32 characters")
	}
	if cfg.DeletePasscode == "" {
		problems = append(problems, "DELETE_PASSCODE is not set")
	}
	if cfg.DBConnectRetries < 0 {
		cfg.DBConnectRetries = 0
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	return cfg, problems
}

// CORSOriginList splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
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
