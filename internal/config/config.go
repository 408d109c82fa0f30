package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pageaudit/internal/log"
)

const (
	SERVER_ADDR         = "SERVER_ADDR"
	METRICS_ADDR        = "METRICS_ADDR"
	PPROF_ADDR          = "PPROF_ADDR"
	IS_DEV              = "IS_DEV"
	LOG_LEVEL           = "LOG_LEVEL"
	BASIC_AUTH_USER     = "BASIC_AUTH_USER"
	BASIC_AUTH_PASS     = "BASIC_AUTH_PASS"
	RATE_LIMIT_RPS      = "RATE_LIMIT_RPS"
	RATE_LIMIT_BURST    = "RATE_LIMIT_BURST"
	FETCH_TIMEOUT       = "FETCH_TIMEOUT"
	PROXY_ENDPOINTS     = "PROXY_ENDPOINTS"
	MAX_BODY_BYTES      = "MAX_BODY_BYTES"
	MAX_STYLESHEETS     = "MAX_STYLESHEETS"
	BROWSER_ENABLED     = "BROWSER_ENABLED"
	BROWSER_TIMEOUT     = "BROWSER_TIMEOUT"
	BROWSER_BIN         = "BROWSER_BIN"
	PROBE_LIMIT         = "PROBE_LIMIT"
	PROBE_WORKERS       = "PROBE_WORKERS"
	LINK_PROBE_TIMEOUT  = "LINK_PROBE_TIMEOUT"
	IMAGE_PROBE_TIMEOUT = "IMAGE_PROBE_TIMEOUT"
	CACHE_TTL           = "CACHE_TTL"
)

type Config struct {
	ServerAddr  string `mapstructure:"SERVER_ADDR"`
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
	PprofAddr   string `mapstructure:"PPROF_ADDR"`
	IsDev       bool   `mapstructure:"IS_DEV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	BasicAuthUser string `mapstructure:"BASIC_AUTH_USER"`
	BasicAuthPass string `mapstructure:"BASIC_AUTH_PASS"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	FetchTimeout   time.Duration `mapstructure:"FETCH_TIMEOUT"`
	ProxyEndpoints string        `mapstructure:"PROXY_ENDPOINTS"`
	MaxBodyBytes   int64         `mapstructure:"MAX_BODY_BYTES"`
	MaxStyleSheets int           `mapstructure:"MAX_STYLESHEETS"`

	BrowserEnabled bool          `mapstructure:"BROWSER_ENABLED"`
	BrowserTimeout time.Duration `mapstructure:"BROWSER_TIMEOUT"`
	BrowserBin     string        `mapstructure:"BROWSER_BIN"`

	ProbeLimit        int           `mapstructure:"PROBE_LIMIT"`
	ProbeWorkers      int           `mapstructure:"PROBE_WORKERS"`
	LinkProbeTimeout  time.Duration `mapstructure:"LINK_PROBE_TIMEOUT"`
	ImageProbeTimeout time.Duration `mapstructure:"IMAGE_PROBE_TIMEOUT"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

// Proxies returns the configured proxy names in order. An empty list means
// the built-in chain.
func (c *Config) Proxies() []string {
	var out []string
	for _, p := range strings.Split(c.ProxyEndpoints, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	if (c.BasicAuthUser == "") != (c.BasicAuthPass == "") {
		return errors.New("BASIC_AUTH_USER and BASIC_AUTH_PASS must be set together")
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be positive, got %v", c.RateLimitRPS)
	}
	if c.ProbeWorkers <= 0 {
		return fmt.Errorf("PROBE_WORKERS must be positive, got %d", c.ProbeWorkers)
	}
	return nil
}

// AuthEnabled reports whether basic auth credentials are configured.
func (c *Config) AuthEnabled() bool {
	return c.BasicAuthUser != "" && c.BasicAuthPass != ""
}

var AppConfig *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault(SERVER_ADDR, ":8080")
	v.SetDefault(METRICS_ADDR, ":8081")
	v.SetDefault(PPROF_ADDR, ":6060")
	v.SetDefault(IS_DEV, false)
	v.SetDefault(LOG_LEVEL, "info")
	v.SetDefault(BASIC_AUTH_USER, "")
	v.SetDefault(BASIC_AUTH_PASS, "")
	v.SetDefault(RATE_LIMIT_RPS, 1.0)
	v.SetDefault(RATE_LIMIT_BURST, 3)
	v.SetDefault(FETCH_TIMEOUT, 30*time.Second)
	v.SetDefault(PROXY_ENDPOINTS, "")
	v.SetDefault(MAX_BODY_BYTES, int64(10<<20))
	v.SetDefault(MAX_STYLESHEETS, 10)
	v.SetDefault(BROWSER_ENABLED, false)
	v.SetDefault(BROWSER_TIMEOUT, 45*time.Second)
	v.SetDefault(BROWSER_BIN, "")
	v.SetDefault(PROBE_LIMIT, 50)
	v.SetDefault(PROBE_WORKERS, 20)
	v.SetDefault(LINK_PROBE_TIMEOUT, 5*time.Second)
	v.SetDefault(IMAGE_PROBE_TIMEOUT, 6*time.Second)
	v.SetDefault(CACHE_TTL, 10*time.Minute)
}

// Load reads .env (when present) and the environment into a Config.
func Load(envFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(envFile)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		log.Logger.Debug(".env file not found", zap.String("file", envFile))
	}

	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func LoadEnv() {
	cfg, err := Load(".env")
	if err != nil {
		log.Logger.Fatal("Failed to unmarshal config", zap.Error(err))
	}

	if err := cfg.Validate(); err != nil {
		log.Logger.Fatal("Invalid config", zap.Error(err))
	}

	AppConfig = cfg
}
