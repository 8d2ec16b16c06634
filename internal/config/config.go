package config

import (
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	yaml "gopkg.in/yaml.v3"

	"nithronos/secheaders/pkg/secheaders"
)

type Config struct {
	Bind       string
	LogLevel   zerolog.Level
	CORSOrigin string

	// Environment is the stage this daemon itself runs in; it selects the
	// header defaults applied to its own responses.
	Environment secheaders.Environment

	StoreDriver string
	StorePath   string

	SessionHashKey  []byte
	SessionBlockKey []byte
	APIToken        string
	AuthDisabled    bool

	MetricsEnabled bool
	AuditSchedule  string

	// WritesPerMinute caps config writes per acting user; 0 disables.
	WritesPerMinute int
	RateStatePath   string
}

type fileConfig struct {
	HTTP struct {
		Bind string `yaml:"bind"`
	} `yaml:"http"`
	CORS struct {
		Origin string `yaml:"origin"`
	} `yaml:"cors"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Environment string `yaml:"environment"`
	Store       struct {
		Driver string `yaml:"driver"`
		Path   string `yaml:"path"`
	} `yaml:"store"`
	Auth struct {
		HashKey  string `yaml:"hashKey"`
		BlockKey string `yaml:"blockKey"`
		APIToken string `yaml:"apiToken"`
		Disabled *bool  `yaml:"disabled"`
	} `yaml:"auth"`
	Metrics struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"metrics"`
	Audit struct {
		Schedule *string `yaml:"schedule"`
	} `yaml:"audit"`
	Rate struct {
		WritesPerMinute *int   `yaml:"writesPerMinute"`
		Path            string `yaml:"path"`
	} `yaml:"rate"`
}

func Defaults() Config {
	return Config{
		Bind:           "127.0.0.1:9100",
		LogLevel:       zerolog.InfoLevel,
		Environment:    secheaders.Production,
		StoreDriver:    "sqlite",
		StorePath:      "/var/lib/shd/headers.db",
		MetricsEnabled: true,
		AuditSchedule:  "@every 15m",

		WritesPerMinute: 30,
		RateStatePath:   "/var/lib/shd/ratelimit.json",
	}
}

// FromEnv loads the file named by SHD_CONFIG (default /etc/shd/config.yaml)
// and applies environment overrides.
func FromEnv() Config {
	path := os.Getenv("SHD_CONFIG")
	if strings.TrimSpace(path) == "" {
		path = "/etc/shd/config.yaml"
	}
	return Load(path)
}

// Load builds a Config from defaults, then the YAML file at path when it
// exists, then SHD_* environment variables. Unparseable values are ignored.
func Load(path string) Config {
	cfg := Defaults()
	if b, err := os.ReadFile(path); err == nil {
		var fc fileConfig
		if yaml.Unmarshal(b, &fc) == nil {
			applyFile(&cfg, fc)
		}
	}
	applyEnv(&cfg)
	return cfg
}

func applyFile(cfg *Config, fc fileConfig) {
	setString(&cfg.Bind, fc.HTTP.Bind)
	setString(&cfg.CORSOrigin, fc.CORS.Origin)
	setLevel(&cfg.LogLevel, fc.Logging.Level)
	setEnvironment(&cfg.Environment, fc.Environment)
	setString(&cfg.StoreDriver, fc.Store.Driver)
	setString(&cfg.StorePath, fc.Store.Path)
	setKey(&cfg.SessionHashKey, fc.Auth.HashKey)
	setKey(&cfg.SessionBlockKey, fc.Auth.BlockKey)
	setString(&cfg.APIToken, fc.Auth.APIToken)
	if fc.Auth.Disabled != nil {
		cfg.AuthDisabled = *fc.Auth.Disabled
	}
	if fc.Metrics.Enabled != nil {
		cfg.MetricsEnabled = *fc.Metrics.Enabled
	}
	if fc.Audit.Schedule != nil {
		cfg.AuditSchedule = strings.TrimSpace(*fc.Audit.Schedule)
	}
	if fc.Rate.WritesPerMinute != nil && *fc.Rate.WritesPerMinute >= 0 {
		cfg.WritesPerMinute = *fc.Rate.WritesPerMinute
	}
	setString(&cfg.RateStatePath, fc.Rate.Path)
}

func applyEnv(cfg *Config) {
	setString(&cfg.Bind, os.Getenv("SHD_HTTP_BIND"))
	if v := os.Getenv("SHD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			host := "127.0.0.1"
			if i := strings.LastIndex(cfg.Bind, ":"); i > 0 {
				host = cfg.Bind[:i]
			}
			cfg.Bind = host + ":" + strconv.Itoa(p)
		}
	}
	setString(&cfg.CORSOrigin, os.Getenv("SHD_CORS_ORIGIN"))
	setLevel(&cfg.LogLevel, os.Getenv("SHD_LOG"))
	setEnvironment(&cfg.Environment, os.Getenv("SHD_ENVIRONMENT"))
	setString(&cfg.StoreDriver, os.Getenv("SHD_STORE"))
	setString(&cfg.StorePath, os.Getenv("SHD_STORE_PATH"))
	setKey(&cfg.SessionHashKey, os.Getenv("SHD_SESSION_HASH_KEY"))
	setKey(&cfg.SessionBlockKey, os.Getenv("SHD_SESSION_BLOCK_KEY"))
	setString(&cfg.APIToken, os.Getenv("SHD_API_TOKEN"))
	setBool(&cfg.AuthDisabled, os.Getenv("SHD_AUTH_DISABLED"))
	setBool(&cfg.MetricsEnabled, os.Getenv("SHD_METRICS"))
	if v, ok := os.LookupEnv("SHD_AUDIT_SCHEDULE"); ok {
		cfg.AuditSchedule = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHD_RATE_WRITES_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.WritesPerMinute = n
		}
	}
	setString(&cfg.RateStatePath, os.Getenv("SHD_RATE_PATH"))
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setLevel(dst *zerolog.Level, v string) {
	if v == "" {
		return
	}
	if l, err := zerolog.ParseLevel(v); err == nil {
		*dst = l
	}
}

func setEnvironment(dst *secheaders.Environment, v string) {
	if v == "" {
		return
	}
	if env, err := secheaders.ParseEnvironment(v); err == nil {
		*dst = env
	}
}

// setKey decodes a hex encoded secret.
func setKey(dst *[]byte, v string) {
	if v = strings.TrimSpace(v); v == "" {
		return
	}
	if b, err := hex.DecodeString(v); err == nil {
		*dst = b
	}
}

func setBool(dst *bool, v string) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}
