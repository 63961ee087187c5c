// Package config loads server settings from .env, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPort      = 8080
	DefaultDBPath    = "shifts.db"
	DefaultDraftCron = "0 6 * * 5"
)

type Config struct {
	Port            int
	DBPath          string
	LogLevel        logrus.Level
	LogJSON         bool
	DraftCron       string
	DraftJobEnabled bool
	CORSOrigins     []string
}

// Load reads .env when present, then the environment, then args.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	level, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Port:            getEnvAsInt("PORT", DefaultPort),
		DBPath:          getEnv("DB_PATH", DefaultDBPath),
		LogLevel:        level,
		LogJSON:         strings.EqualFold(getEnv("LOG_FORMAT", "text"), "json"),
		DraftCron:       getEnv("DRAFT_CRON", DefaultDraftCron),
		DraftJobEnabled: getEnvAsBool("DRAFT_JOB_ENABLED", true),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
	}

	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fset.StringVar(&cfg.DBPath, "db", cfg.DBPath, `SQLite database path (":memory:" allowed)`)
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// Addr is the listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsBool(name string, defaultVal bool) bool {
	valStr := getEnv(name, "")
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsInt(name string, defaultVal int) int {
	valStr := getEnv(name, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
