package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type HTTP struct {
	Host              string
	Port              string
	ReadHeaderTimeout time.Duration
	AllowedOrigins    []string
}

type Log struct {
	Level string
	JSON  bool
	Color bool
}

type FluentBit struct {
	Enabled bool
	Host    string
	Port    int
	Level   string
}

type RabbitMQ struct {
	URL        string
	Exchange   string
	Queue      string
	RoutingKey string
}

type Search struct {
	DefaultPageSize int
	MaxPageSize     int
	MaxStayNights   int
}

type Config struct {
	AppName     string
	HTTP        HTTP
	Log         Log
	FluentBit   FluentBit
	DatabaseURL string
	// RefreshInterval of zero disables periodic snapshot reloads.
	RefreshInterval time.Duration
	RabbitMQ        RabbitMQ
	Search          Search
	// Warnings lists values that could not be parsed and fell back to defaults.
	Warnings []string
}

// Load reads an optional .env file (the first path given, else ./.env) and
// then the process environment. Variables already set in the environment win.
func Load(envPath ...string) (*Config, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	return fromEnv()
}

func fromEnv() (*Config, error) {
	r := &reader{} //nolint:exhaustruct

	//nolint:exhaustruct
	cfg := &Config{
		AppName: r.str("APP_NAME", "rentals"),
		HTTP: HTTP{
			Host:              r.str("HTTP_HOST", "localhost"),
			Port:              r.str("HTTP_PORT", "8092"),
			ReadHeaderTimeout: r.duration("HTTP_READ_HEADER_TIMEOUT", 20*time.Second), //nolint:gomnd
			AllowedOrigins:    r.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Log: Log{
			Level: r.str("LOG_LEVEL", "info"),
			JSON:  r.boolean("LOG_JSON", false),
			Color: r.boolean("LOG_COLOR", true),
		},
		FluentBit: FluentBit{
			Enabled: r.boolean("FLUENTBIT_ENABLED", false),
			Host:    r.str("FLUENTBIT_HOST", ""),
			Port:    r.integer("FLUENTBIT_PORT", 24224), //nolint:gomnd
			Level:   r.str("FLUENTBIT_LEVEL", "info"),
		},
		DatabaseURL:     r.str("DATABASE_URL", ""),
		RefreshInterval: r.duration("SNAPSHOT_REFRESH_INTERVAL", 0),
		RabbitMQ: RabbitMQ{
			URL:        r.str("RABBITMQ_URL", ""),
			Exchange:   r.str("RABBITMQ_EXCHANGE", "catalog"),
			Queue:      r.str("RABBITMQ_QUEUE", "rentals.catalog-refresh"),
			RoutingKey: r.str("RABBITMQ_ROUTING_KEY", "catalog.changed"),
		},
		Search: Search{
			DefaultPageSize: r.integer("SEARCH_DEFAULT_PAGE_SIZE", 20),  //nolint:gomnd
			MaxPageSize:     r.integer("SEARCH_MAX_PAGE_SIZE", 100),     //nolint:gomnd
			MaxStayNights:   r.integer("SEARCH_MAX_STAY_NIGHTS", 365),   //nolint:gomnd
		},
	}

	if cfg.FluentBit.Enabled && cfg.FluentBit.Host == "" {
		r.warnf("FLUENTBIT_ENABLED is true but FLUENTBIT_HOST is empty, fluent bit disabled")
		cfg.FluentBit.Enabled = false
	}

	cfg.Warnings = r.warnings

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var ErrInvalidConfig = errors.New("invalid config")

func (c *Config) validate() error {
	if c.Search.MaxPageSize < 1 {
		return fmt.Errorf("SEARCH_MAX_PAGE_SIZE must be positive: %w", ErrInvalidConfig)
	}

	if c.Search.DefaultPageSize < 1 || c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("SEARCH_DEFAULT_PAGE_SIZE must be between 1 and %d: %w", c.Search.MaxPageSize, ErrInvalidConfig)
	}

	if c.Search.MaxStayNights < 0 {
		return fmt.Errorf("SEARCH_MAX_STAY_NIGHTS must not be negative: %w", ErrInvalidConfig)
	}

	if c.RefreshInterval < 0 {
		return fmt.Errorf("SNAPSHOT_REFRESH_INTERVAL must not be negative: %w", ErrInvalidConfig)
	}

	return nil
}

type reader struct {
	warnings []string
}

func (r *reader) warnf(format string, v ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, v...))
}

func (r *reader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}

	return def
}

func (r *reader) integer(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.warnf("%s=%q is not an integer, using %d", key, v, def)

		return def
	}

	return n
}

func (r *reader) boolean(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.warnf("%s=%q is not a boolean, using %t", key, v, def)

		return def
	}

	return b
}

// duration accepts Go duration syntax ("30s", "5m") or a bare number of seconds.
func (r *reader) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	v = strings.TrimSpace(v)

	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		r.warnf("%s=%q is not a duration, using %s", key, v, def)

		return def
	}

	return d
}

func (r *reader) list(key string, def []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}

	var out []string

	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		return def
	}

	return out
}
