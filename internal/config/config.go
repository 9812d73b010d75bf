package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"instaguard/internal/validation"
)

// maxAccountSlots bounds the IG_USERNAME<n>/IG_PASSWORD<n> scan.
const maxAccountSlots = 20

// Account is one primary-source credential pair.
type Account struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Environment
	Env string // "development", "production", etc.

	// Server
	ServerAddr string
	BaseURL    string

	// TLS
	TLSCertFile string
	TLSKeyFile  string

	// Storage
	DatabaseURL string // postgres://... or sqlite://path
	RedisURL    string // optional; shared session cache and rate limiter storage

	// OIDC
	OIDCIssuer       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCRedirectURL  string
	AdminEmails      []string // users promoted to admin on first login

	// Session
	SessionSecret string // Used for encrypting cookies (base64, 32 bytes)

	// CORS
	CORSOrigins string // Comma-separated allowed origins

	// Rate limiting of /api/classify
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Classifier
	ModelPath    string
	ModelVersion string

	// Primary source
	PrimaryBaseURL   string
	PrimaryLoginURL  string
	PrimaryAppID     string
	PrimaryTimeout   time.Duration
	Accounts         []Account
	SessionTTL       time.Duration
	SessionWarmEvery time.Duration

	// Fallback collectors
	CollectorOrder    []string
	CollectorTimeout  time.Duration
	UserAgent         string
	CurlPath          string
	BrowserEnabled    bool
	BrowserBin        string
	BrowserControlURL string
	BrowserMaxPages   int

	// Events
	KafkaBrokers []string
	KafkaTopic   string

	// Site
	SiteTitle string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Env:         getEnv("ENV", "development"),
		ServerAddr:  getEnv("SERVER_ADDR", ":3000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:3000"),
		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/instaguard?sslmode=disable"),
		RedisURL:    getEnv("REDIS_URL", ""),

		OIDCIssuer:       getEnv("OIDC_ISSUER", ""),
		OIDCClientID:     getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret: getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:  getEnv("OIDC_REDIRECT_URL", "http://localhost:3000/auth/callback"),
		AdminEmails:      getList("ADMIN_EMAILS"),

		SessionSecret: getEnv("SESSION_SECRET", ""),
		CORSOrigins:   getEnv("CORS_ORIGINS", ""),

		RateLimitMax:    getInt("RATE_LIMIT_MAX", 10),
		RateLimitWindow: getDuration("RATE_LIMIT_WINDOW", time.Minute),

		ModelPath:    getEnv("MODEL_PATH", "model/final_hybrid_model.json"),
		ModelVersion: getEnv("MODEL_VERSION", "v1.0"),

		PrimaryBaseURL:   getEnv("PRIMARY_BASE_URL", "https://www.instagram.com"),
		PrimaryLoginURL:  getEnv("PRIMARY_LOGIN_URL", ""),
		PrimaryAppID:     getEnv("PRIMARY_APP_ID", "936619743392459"),
		PrimaryTimeout:   getDuration("PRIMARY_TIMEOUT", 45*time.Second),
		Accounts:         accountsFromEnv(),
		SessionTTL:       getDuration("SESSION_TTL", 24*time.Hour),
		SessionWarmEvery: getDuration("SESSION_WARM_INTERVAL", 30*time.Minute),

		CollectorOrder:    getList("COLLECTOR_ORDER"),
		CollectorTimeout:  getDuration("COLLECTOR_TIMEOUT", 30*time.Second),
		UserAgent:         getEnv("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
		CurlPath:          getEnv("CURL_PATH", "curl"),
		BrowserEnabled:    getEnv("BROWSER_ENABLED", "true") == "true",
		BrowserBin:        getEnv("BROWSER_BIN", ""),
		BrowserControlURL: getEnv("BROWSER_CONTROL_URL", ""),
		BrowserMaxPages:   getInt("BROWSER_MAX_PAGES", 2),

		KafkaBrokers: getList("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "instaguard.decisions"),

		SiteTitle: getEnv("SITE_TITLE", "InstaGuard"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", raw)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", raw)
		return fallback
	}
	return d
}

// getList splits a comma-separated variable, dropping empty items.
func getList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// accountsFromEnv reads IG_USERNAME1/IG_PASSWORD1, IG_USERNAME2/... in order.
// Gaps are allowed.
func accountsFromEnv() []Account {
	var accounts []Account
	for i := 1; i <= maxAccountSlots; i++ {
		user := os.Getenv(fmt.Sprintf("IG_USERNAME%d", i))
		pass := os.Getenv(fmt.Sprintf("IG_PASSWORD%d", i))
		if user != "" && pass != "" {
			accounts = append(accounts, Account{Username: user, Password: pass})
		}
	}
	return accounts
}

// IsDev returns true if the environment is set to development.
func (c *Config) IsDev() bool {
	return c.Env == "development" || c.Env == "dev"
}

// IsOIDCEnabled returns true if an OIDC provider is configured.
func (c *Config) IsOIDCEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCClientID != ""
}

// IsTLSEnabled returns true if a certificate pair is configured.
func (c *Config) IsTLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// AllowedOrigins returns the trimmed CORS origin list: CORS_ORIGINS when set,
// otherwise BASE_URL.
func (c *Config) AllowedOrigins() []string {
	raw := c.BaseURL
	if c.CORSOrigins != "" {
		raw = c.CORSOrigins
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		origins = append(origins, strings.TrimSpace(p))
	}
	return origins
}

// IsAdminEmail reports whether email is listed in ADMIN_EMAILS.
func (c *Config) IsAdminEmail(email string) bool {
	for _, e := range c.AdminEmails {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// Apply merges the optional YAML file into the env configuration. Env-provided
// collector order wins; YAML accounts are appended after env accounts.
func (c *Config) Apply(y *YAMLConfig) {
	if y == nil {
		return
	}
	if len(c.CollectorOrder) == 0 && len(y.Collectors.Order) > 0 {
		c.CollectorOrder = y.Collectors.Order
	}
	if y.Collectors.Timeout > 0 && os.Getenv("COLLECTOR_TIMEOUT") == "" {
		c.CollectorTimeout = y.Collectors.Timeout
	}
	if y.Primary.Timeout > 0 && os.Getenv("PRIMARY_TIMEOUT") == "" {
		c.PrimaryTimeout = y.Primary.Timeout
	}
	for _, a := range y.Primary.Accounts {
		if a.Username != "" && a.Password != "" {
			c.Accounts = append(c.Accounts, a)
		}
	}
	if y.Browser.Enabled != nil {
		c.BrowserEnabled = *y.Browser.Enabled
	}
	if y.Browser.MaxPages > 0 && os.Getenv("BROWSER_MAX_PAGES") == "" {
		c.BrowserMaxPages = y.Browser.MaxPages
	}
	if y.Browser.Bin != "" && c.BrowserBin == "" {
		c.BrowserBin = y.Browser.Bin
	}
	if y.Browser.ControlURL != "" && c.BrowserControlURL == "" {
		c.BrowserControlURL = y.Browser.ControlURL
	}
}

// Validate reports settings the process cannot run with.
func (c *Config) Validate() error {
	if c.SessionSecret == "" && !c.IsDev() {
		return fmt.Errorf("SESSION_SECRET is required outside development")
	}
	if ok, msg := validation.ValidateURL(c.PrimaryBaseURL); !ok {
		return fmt.Errorf("PRIMARY_BASE_URL: %s", msg)
	}
	if c.PrimaryLoginURL != "" {
		if ok, msg := validation.ValidateURL(c.PrimaryLoginURL); !ok {
			return fmt.Errorf("PRIMARY_LOGIN_URL: %s", msg)
		}
	}
	for _, origin := range c.AllowedOrigins() {
		if origin == "*" {
			continue
		}
		if ok, msg := validation.ValidateURL(origin); !ok {
			return fmt.Errorf("CORS origin %q: %s", origin, msg)
		}
		if u, _ := url.Parse(origin); u.Path != "" || u.RawQuery != "" {
			return fmt.Errorf("CORS origin %q: must be scheme://host[:port]", origin)
		}
	}
	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit must be positive (got %d per %v)", c.RateLimitMax, c.RateLimitWindow)
	}
	if c.BrowserEnabled && c.BrowserMaxPages <= 0 {
		return fmt.Errorf("BROWSER_MAX_PAGES must be positive")
	}
	return nil
}
