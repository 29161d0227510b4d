// Package config reads server settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/confucious/gamebot/internal/store"
)

type Config struct {
	HTTPAddr  string
	Store     store.Options
	WordsFile string
	LogLevel  zapcore.Level
	LogDev    bool
	// SweepSpec is the cron schedule for stopping idle lobbies; empty disables it.
	SweepSpec string
	IdleAfter time.Duration
	// WSOrigins are extra Origin host patterns, in path.Match syntax, allowed
	// to open sockets. Same-host origins are always allowed.
	WSOrigins []string
}

// Load reads files (".env" when none are given) into the environment, then
// parses the environment. Missing files are skipped.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv parses settings through lookup and reports every bad value at once.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	get := func(name, def string) string {
		if v, ok := lookup(name); ok && v != "" {
			return v
		}
		return def
	}

	var errs error
	integer := func(name string, def int) int {
		raw := get(name, strconv.Itoa(def))
		n, err := strconv.Atoi(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return n
	}
	duration := func(name string, def time.Duration) time.Duration {
		raw := get(name, def.String())
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return d
	}
	boolean := func(name string) bool {
		raw := get(name, "false")
		b, err := strconv.ParseBool(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", name, err))
		}
		return b
	}

	hostPatterns := func(name string) []string {
		var patterns []string
		for _, p := range strings.Split(get(name, ""), ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, err := path.Match(p, ""); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %q: %w", name, p, err))
				continue
			}
			patterns = append(patterns, p)
		}
		return patterns
	}

	cfg := Config{
		HTTPAddr: get("HTTP_ADDR", ":8080"),
		Store: store.Options{
			Backend:       get("STORE", "memory"),
			DatabaseURL:   get("DATABASE_URL", ""),
			SQLitePath:    get("SQLITE_PATH", "./data/gamebot.db"),
			RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
			RedisPassword: get("REDIS_PASSWORD", ""),
			RedisDB:       integer("REDIS_DB", 0),
			TTL:           duration("STATE_TTL", 0),
		},
		WordsFile: get("WORDS_FILE", ""),
		LogDev:    boolean("LOG_DEV"),
		SweepSpec: get("IDLE_SWEEP", "@every 10m"),
		IdleAfter: duration("LOBBY_IDLE", 30*time.Minute),
		WSOrigins: hostPatterns("WS_ORIGINS"),
	}
	if cfg.SweepSpec == "off" {
		cfg.SweepSpec = ""
	}

	level, err := zapcore.ParseLevel(get("LOG_LEVEL", "info"))
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	switch cfg.Store.Backend {
	case "memory", "sqlite", "redis":
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			errs = multierr.Append(errs, errors.New("STORE=postgres needs DATABASE_URL"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("STORE: %w: %q", store.ErrUnknownBackend, cfg.Store.Backend))
	}
	return cfg, errs
}

// Logger builds the process logger: JSON production output, or the console
// development encoder when LogDev is set.
func (c Config) Logger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(c.LogLevel)
	return zc.Build()
}
