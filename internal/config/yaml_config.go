package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Structured settings that are awkward as env vars.
type YAMLConfig struct {
	Collectors CollectorsConfig `yaml:"collectors"`
	Primary    PrimaryConfig    `yaml:"primary"`
	Browser    BrowserConfig    `yaml:"browser"`
}

// CollectorsConfig controls the fallback chain.
type CollectorsConfig struct {
	Order   []string      `yaml:"order"`   // collector names, tried in this order
	Timeout time.Duration `yaml:"timeout"` // per-collector deadline, e.g. "30s"
}

// PrimaryConfig adds credentials for the primary source.
type PrimaryConfig struct {
	Accounts []Account     `yaml:"accounts"`
	Timeout  time.Duration `yaml:"timeout"`
}

// BrowserConfig controls the shared headless browser.
type BrowserConfig struct {
	Enabled    *bool  `yaml:"enabled,omitempty"`
	MaxPages   int    `yaml:"max_pages"`
	Bin        string `yaml:"bin"`
	ControlURL string `yaml:"control_url"`
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLFile(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLFile loads the YAML configuration at path.
func LoadYAMLFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
