package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App     AppConfig
	Gateway GatewayConfig
	Redis   RedisConfig
	Cookie  CookieConfig
	Log     LogConfig
	HTTP    HTTPConfig
	Refdata RefdataConfig
	Warmup  WarmupConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// GatewayConfig holds upstream API gateway settings
type GatewayConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds Redis connection settings for the reference-data
// cache. When disabled the portal falls back to an in-memory cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// CookieConfig holds settings for the auth cookie pair
type CookieConfig struct {
	Domain        string // Domain for cookies (empty = current domain)
	Path          string // Path for cookies
	Secure        bool   // Secure flag (should be true in production for HTTPS)
	SameSite      string // SameSite policy: "strict", "lax", or "none"
	AccessName    string // Access token cookie name
	RefreshName   string // Refresh token cookie name
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodyBytes     int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
	LoginRateLimit   int           // Credential requests allowed per window per IP
	LoginRateWindow  time.Duration // Credential throttle window
}

// RefdataConfig holds reference-data cache settings
type RefdataConfig struct {
	TTL time.Duration
}

// WarmupConfig holds the readiness gate settings
type WarmupConfig struct {
	Services     []string      // Expected backend services, all must report ready
	RetryDelay   time.Duration // Fixed wait before retrying a failed attempt
	PollInterval time.Duration // Status polling cadence when the stream is unavailable
	MinVisible   time.Duration // Minimum overlay visibility from gate start
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PORTAL_ prefix (e.g., PORTAL_GATEWAY_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Gateway: GatewayConfig{
			BaseURL: v.GetString("gateway.base_url"),
			Timeout: v.GetDuration("gateway.timeout"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Cookie: CookieConfig{
			Domain:        v.GetString("cookie.domain"),
			Path:          v.GetString("cookie.path"),
			Secure:        v.GetBool("cookie.secure"),
			SameSite:      v.GetString("cookie.same_site"),
			AccessName:    v.GetString("cookie.access_name"),
			RefreshName:   v.GetString("cookie.refresh_name"),
			AccessMaxAge:  v.GetDuration("cookie.access_max_age"),
			RefreshMaxAge: v.GetDuration("cookie.refresh_max_age"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodyBytes:     v.GetInt64("http.max_body_bytes"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
			LoginRateLimit:   v.GetInt("http.login_rate_limit"),
			LoginRateWindow:  v.GetDuration("http.login_rate_window"),
		},
		Refdata: RefdataConfig{
			TTL: v.GetDuration("refdata.ttl"),
		},
		Warmup: WarmupConfig{
			Services:     v.GetStringSlice("warmup.services"),
			RetryDelay:   v.GetDuration("warmup.retry_delay"),
			PollInterval: v.GetDuration("warmup.poll_interval"),
			MinVisible:   v.GetDuration("warmup.min_visible"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "procurement-portal"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Gateway.BaseURL == "" {
		cfg.Gateway.BaseURL = "http://localhost:9000/api/v1"
	}
	if cfg.Gateway.Timeout == 0 {
		cfg.Gateway.Timeout = 15 * time.Second
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	// Cookie defaults
	if cfg.Cookie.Path == "" {
		cfg.Cookie.Path = "/"
	}
	if cfg.Cookie.SameSite == "" {
		cfg.Cookie.SameSite = "lax"
	}
	if cfg.Cookie.AccessName == "" {
		cfg.Cookie.AccessName = "portal_access_token"
	}
	if cfg.Cookie.RefreshName == "" {
		cfg.Cookie.RefreshName = "portal_refresh_token"
	}
	if cfg.Cookie.AccessMaxAge == 0 {
		cfg.Cookie.AccessMaxAge = 10 * time.Minute
	}
	if cfg.Cookie.RefreshMaxAge == 0 {
		cfg.Cookie.RefreshMaxAge = 720 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// The warm-up stream endpoint holds its response open, so the
		// write timeout must comfortably exceed one warm-up attempt.
		cfg.HTTP.WriteTimeout = 120 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodyBytes == 0 {
		cfg.HTTP.MaxBodyBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.LoginRateLimit == 0 {
		cfg.HTTP.LoginRateLimit = 10
	}
	if cfg.HTTP.LoginRateWindow == 0 {
		cfg.HTTP.LoginRateWindow = time.Minute
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Refdata.TTL == 0 {
		cfg.Refdata.TTL = 10 * time.Minute
	}
	if len(cfg.Warmup.Services) == 0 {
		cfg.Warmup.Services = []string{
			"auth-service",
			"catalog-service",
			"supplier-service",
			"purchase-service",
			"user-service",
			"notification-service",
		}
	}
	if cfg.Warmup.RetryDelay == 0 {
		cfg.Warmup.RetryDelay = 10 * time.Second
	}
	if cfg.Warmup.PollInterval == 0 {
		cfg.Warmup.PollInterval = 1200 * time.Millisecond
	}
	if cfg.Warmup.MinVisible == 0 {
		cfg.Warmup.MinVisible = 1200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if !strings.HasPrefix(c.Gateway.BaseURL, "http://") && !strings.HasPrefix(c.Gateway.BaseURL, "https://") {
		return fmt.Errorf("gateway.base_url must be an absolute http(s) URL")
	}

	switch c.Cookie.SameSite {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("cookie.same_site must be one of strict, lax, none")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if !c.Cookie.Secure {
			return fmt.Errorf("cookie.secure must be true in production (HTTPS required for secure cookies)")
		}
		if c.Cookie.SameSite == "none" && !c.Cookie.Secure {
			return fmt.Errorf("cookie.same_site=none requires cookie.secure=true")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if strings.HasPrefix(c.Gateway.BaseURL, "http://") && !strings.Contains(c.Gateway.BaseURL, "localhost") {
			return fmt.Errorf("gateway.base_url must use https in production")
		}
	}

	return nil
}
