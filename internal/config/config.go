// Package config loads server settings.
//
// Sources, later ones winning:
//
//  1. built-in defaults
//  2. an optional TOML file (--config or CONFIG_FILE)
//  3. a .env file in the working directory, if present
//  4. the process environment
//
// A .env entry never overrides a variable that is already set in the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/sakif/socialfeed/internal/cipher"
)

// MinSecretLength is the shortest accepted token-signing secret.
const MinSecretLength = 16

// Config holds every setting the server reads at startup.
type Config struct {
	Port          int    `toml:"port"`
	StoreURI      string `toml:"store_uri"`      // sqlite path, or mongodb:// / mongodb+srv:// URI
	StoreDatabase string `toml:"store_database"` // MongoDB database name

	JWTSecret       string `toml:"jwt_secret"`
	EncryptionKey   string `toml:"encryption_key"` // base64, 32 bytes decoded
	TokenTTLMinutes int    `toml:"token_ttl_minutes"`

	RateLimit      string   `toml:"rate_limit"`      // "5/minute" or "5 per minute"
	EncryptContent string   `toml:"encrypt_content"` // comma list: posts, comments
	OriginPatterns []string `toml:"ws_origin_patterns"`

	FeedSendTimeoutSeconds int `toml:"feed_send_timeout_seconds"`
	BroadcastWorkers       int `toml:"broadcast_workers"`
	BroadcastQueue         int `toml:"broadcast_queue"`

	LogLevel string `toml:"log_level"`
}

// Default returns the built-in settings. JWTSecret and EncryptionKey have no
// default and must be supplied.
func Default() *Config {
	return &Config{
		Port:                   8080,
		StoreURI:               "data/socialfeed.db",
		StoreDatabase:          "socialfeed",
		TokenTTLMinutes:        60,
		RateLimit:              "5/minute",
		EncryptContent:         "posts",
		FeedSendTimeoutSeconds: 5,
		BroadcastWorkers:       2,
		BroadcastQueue:         64,
		LogLevel:               "info",
	}
}

// Load builds the configuration from all sources and validates it. path may
// be empty, in which case CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readFile overlays the TOML file at path. Unknown keys are an error so a
// typo doesn't silently fall back to a default.
func (c *Config) readFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// applyEnv overlays environment variables. lookup is os.LookupEnv outside tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s must be an integer, got %q", key, v)
		}
		*dst = n
		return nil
	}

	str("STORE_URI", &c.StoreURI)
	str("STORE_DATABASE", &c.StoreDatabase)
	str("JWT_SECRET", &c.JWTSecret)
	str("ENCRYPTION_KEY", &c.EncryptionKey)
	str("RATE_LIMIT", &c.RateLimit)
	str("ENCRYPT_CONTENT", &c.EncryptContent)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("WS_ORIGIN_PATTERNS"); ok {
		c.OriginPatterns = splitList(v)
	}

	for key, dst := range map[string]*int{
		"PORT":                      &c.Port,
		"TOKEN_TTL_MINUTES":         &c.TokenTTLMinutes,
		"FEED_SEND_TIMEOUT_SECONDS": &c.FeedSendTimeoutSeconds,
		"BROADCAST_WORKERS":         &c.BroadcastWorkers,
		"BROADCAST_QUEUE":           &c.BroadcastQueue,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.StoreURI) == "" {
		errs = append(errs, errors.New("store_uri is required"))
	}

	switch {
	case c.JWTSecret == "":
		errs = append(errs, errors.New("jwt_secret is required"))
	case len(c.JWTSecret) < MinSecretLength:
		errs = append(errs, fmt.Errorf("jwt_secret must be at least %d characters", MinSecretLength))
	}

	if c.EncryptionKey == "" {
		errs = append(errs, errors.New("encryption_key is required"))
	} else if _, err := cipher.DecodeKey(c.EncryptionKey); err != nil {
		errs = append(errs, fmt.Errorf("encryption_key: %w", err))
	}

	if c.TokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("token_ttl_minutes must be positive"))
	}
	if _, _, err := ParseRate(c.RateLimit); err != nil {
		errs = append(errs, err)
	}
	if _, err := cipher.ParsePolicy(c.EncryptContent); err != nil {
		errs = append(errs, fmt.Errorf("encrypt_content: %w", err))
	}
	if c.FeedSendTimeoutSeconds <= 0 {
		errs = append(errs, errors.New("feed_send_timeout_seconds must be positive"))
	}
	if c.BroadcastWorkers <= 0 {
		errs = append(errs, errors.New("broadcast_workers must be positive"))
	}
	if c.BroadcastQueue <= 0 {
		errs = append(errs, errors.New("broadcast_queue must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) FeedSendTimeout() time.Duration {
	return time.Duration(c.FeedSendTimeoutSeconds) * time.Second
}

// IsMongo reports whether StoreURI selects the MongoDB backend.
func (c *Config) IsMongo() bool {
	return strings.HasPrefix(c.StoreURI, "mongodb://") || strings.HasPrefix(c.StoreURI, "mongodb+srv://")
}

// Policy returns the parsed encrypt_content setting. Call after Validate.
func (c *Config) Policy() cipher.Policy {
	p, err := cipher.ParsePolicy(c.EncryptContent)
	if err != nil {
		return cipher.DefaultPolicy()
	}
	return p
}

// Rate returns the parsed rate_limit setting. Call after Validate.
func (c *Config) Rate() (int, time.Duration) {
	n, window, err := ParseRate(c.RateLimit)
	if err != nil {
		return 5, time.Minute
	}
	return n, window
}

// NewLogger returns a text logger at the configured level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

var rateUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "second": time.Second,
	"m": time.Minute, "min": time.Minute, "minute": time.Minute,
	"h": time.Hour, "hour": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour,
}

// ParseRate parses a rate expression such as "5/minute", "100 per hour" or
// "10/s" into a request count and a window.
func ParseRate(expr string) (int, time.Duration, error) {
	s := strings.ToLower(strings.TrimSpace(expr))

	count, unit, ok := strings.Cut(s, "/")
	if !ok {
		count, unit, ok = strings.Cut(s, " per ")
	}
	if !ok {
		return 0, 0, fmt.Errorf("rate_limit %q: want N/unit or N per unit", expr)
	}

	n, err := strconv.Atoi(strings.TrimSpace(count))
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("rate_limit %q: count must be a positive integer", expr)
	}

	unit = strings.TrimSpace(unit)
	window, ok := rateUnits[unit]
	if !ok {
		window, ok = rateUnits[strings.TrimSuffix(unit, "s")]
	}
	if !ok {
		return 0, 0, fmt.Errorf("rate_limit %q: unknown unit %q", expr, unit)
	}
	return n, window, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log_level %q: want debug, info, warn or error", s)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
