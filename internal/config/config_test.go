package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.ModelPath != "model/final_hybrid_model.json" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ModelVersion != "v1.0" {
		t.Errorf("ModelVersion = %q", cfg.ModelVersion)
	}
	if cfg.CollectorTimeout != 30*time.Second {
		t.Errorf("CollectorTimeout = %v", cfg.CollectorTimeout)
	}
	if !cfg.IsDev() {
		t.Error("IsDev() = false for default env")
	}
}

func TestLoad_AccountsAndLists(t *testing.T) {
	t.Setenv("IG_USERNAME1", "scout1")
	t.Setenv("IG_PASSWORD1", "pw1")
	t.Setenv("IG_USERNAME2", "no-password")
	t.Setenv("IG_USERNAME4", "scout4")
	t.Setenv("IG_PASSWORD4", "pw4")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")
	t.Setenv("COLLECTOR_TIMEOUT", "5s")
	t.Setenv("BROWSER_MAX_PAGES", "not-a-number")

	cfg := Load()

	want := []Account{{"scout1", "pw1"}, {"scout4", "pw4"}}
	if diff := cmp.Diff(want, cfg.Accounts); diff != "" {
		t.Errorf("Accounts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers); diff != "" {
		t.Errorf("KafkaBrokers mismatch (-want +got):\n%s", diff)
	}
	if cfg.CollectorTimeout != 5*time.Second {
		t.Errorf("CollectorTimeout = %v, want 5s", cfg.CollectorTimeout)
	}
	if cfg.BrowserMaxPages != 2 {
		t.Errorf("BrowserMaxPages = %d, want fallback 2", cfg.BrowserMaxPages)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
collectors:
  order: [static, scripted]
  timeout: 12s
primary:
  accounts:
    - username: yaml-scout
      password: secret
  timeout: 20s
browser:
  enabled: false
  max_pages: 4
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	y, err := LoadYAMLFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLFile() error = %v", err)
	}

	t.Setenv("IG_USERNAME1", "env-scout")
	t.Setenv("IG_PASSWORD1", "pw")
	cfg := Load()
	cfg.Apply(y)

	if diff := cmp.Diff([]string{"static", "scripted"}, cfg.CollectorOrder); diff != "" {
		t.Errorf("CollectorOrder mismatch (-want +got):\n%s", diff)
	}
	if cfg.CollectorTimeout != 12*time.Second || cfg.PrimaryTimeout != 20*time.Second {
		t.Errorf("timeouts = %v / %v", cfg.CollectorTimeout, cfg.PrimaryTimeout)
	}
	wantAccounts := []Account{{"env-scout", "pw"}, {"yaml-scout", "secret"}}
	if diff := cmp.Diff(wantAccounts, cfg.Accounts); diff != "" {
		t.Errorf("Accounts mismatch (-want +got):\n%s", diff)
	}
	if cfg.BrowserEnabled || cfg.BrowserMaxPages != 4 {
		t.Errorf("browser = %v / %d", cfg.BrowserEnabled, cfg.BrowserMaxPages)
	}
}

func TestLoadYAMLFile_Missing(t *testing.T) {
	y, err := LoadYAMLFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil || y != nil {
		t.Errorf("LoadYAMLFile(missing) = %v, %v; want nil, nil", y, err)
	}
}

func TestIsAdminEmail(t *testing.T) {
	cfg := &Config{AdminEmails: []string{"Ops@Example.com"}}
	if !cfg.IsAdminEmail("ops@example.com") {
		t.Error("IsAdminEmail() should be case-insensitive")
	}
	if cfg.IsAdminEmail("someone@example.com") {
		t.Error("IsAdminEmail() matched an unlisted email")
	}
}

func TestValidate(t *testing.T) {
	const (
		base = "https://www.instagram.com"
		site = "http://localhost:3000"
	)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"dev without secret", Config{BaseURL: site, Env: "development", PrimaryBaseURL: base, RateLimitMax: 10, RateLimitWindow: time.Minute}, false},
		{"prod without secret", Config{BaseURL: site, Env: "production", PrimaryBaseURL: base, RateLimitMax: 10, RateLimitWindow: time.Minute}, true},
		{"prod with secret", Config{BaseURL: site, Env: "production", PrimaryBaseURL: base, SessionSecret: "s", RateLimitMax: 10, RateLimitWindow: time.Minute}, false},
		{"zero rate limit", Config{BaseURL: site, Env: "development", PrimaryBaseURL: base, RateLimitWindow: time.Minute}, true},
		{"browser without pages", Config{BaseURL: site, Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute, BrowserEnabled: true}, true},
		{"bad base url", Config{BaseURL: site, Env: "development", PrimaryBaseURL: "ftp://example.com", RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"cors list", Config{BaseURL: site, CORSOrigins: "https://a.example.com, https://b.example.com:8443", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, false},
		{"cors wildcard", Config{BaseURL: site, CORSOrigins: "*", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, false},
		{"cors empty entry", Config{BaseURL: site, CORSOrigins: "https://a.example.com,,https://b.example.com", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"cors blank entry", Config{BaseURL: site, CORSOrigins: "https://a.example.com, ", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"cors malformed", Config{BaseURL: site, CORSOrigins: "a.example.com", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"cors with path", Config{BaseURL: site, CORSOrigins: "https://a.example.com/app", Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"empty base url", Config{Env: "development", PrimaryBaseURL: base, RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
		{"bad login url", Config{BaseURL: site, Env: "development", PrimaryBaseURL: base, PrimaryLoginURL: "/login", RateLimitMax: 1, RateLimitWindow: time.Minute}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowedOrigins(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{"base url fallback", Config{BaseURL: "http://localhost:3000"}, []string{"http://localhost:3000"}},
		{"trimmed list", Config{BaseURL: "http://localhost:3000", CORSOrigins: " https://a.example.com ,https://b.example.com"}, []string{"https://a.example.com", "https://b.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.cfg.AllowedOrigins()); diff != "" {
				t.Errorf("AllowedOrigins() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
