// Package config loads client configuration from environment variables
// with an optional YAML overlay, matching the composition-root pattern
// of the teacher's cmd/server/main.go (env vars first, `gopkg.in/yaml.v3`
// file second). The API key additionally supports hot reload from a
// file path, watched via fsnotify.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the client-relevant subset of spec.md §6's environment
// variables, plus the two tunables spec.md §9 leaves as Open Questions.
type Config struct {
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	Address     string `yaml:"address"`
	Port        int    `yaml:"port"`
	SSLVerify   bool   `yaml:"ssl_verify"`
	APIKey      string `yaml:"api_key"`
	Timezone    string `yaml:"timezone"`

	EchoSuppressTTL  time.Duration `yaml:"echo_suppress_ttl"`
	RingResetTimeout time.Duration `yaml:"ring_reset_timeout"`
}

// defaults mirror spec.md §6 ("UFP_PORT default 443, UFP_SSL_VERIFY
// default true") plus this client's own Open Question defaults
// (DESIGN.md).
func defaults() Config {
	return Config{
		Port:             443,
		SSLVerify:        true,
		EchoSuppressTTL:  2 * time.Second,
		RingResetTimeout: 3 * time.Second,
	}
}

// Load builds a Config from environment variables, optionally
// overlaying a YAML file first (env vars always win over the file, per
// the teacher's "yaml defaults, env overrides" composition order).
// yamlPath may be empty to skip the file entirely.
func Load(yamlPath string) (Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, err
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("UFP_USERNAME"); v != "" {
		cfg.Username = v
	}
	if v := os.Getenv("UFP_PASSWORD"); v != "" {
		cfg.Password = v
	}
	if v := os.Getenv("UFP_ADDRESS"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("UFP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("UFP_SSL_VERIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SSLVerify = b
		}
	}
	if v := os.Getenv("UFP_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("TZ"); v != "" {
		cfg.Timezone = v
	}
}

// UsesAPIKeyFile reports whether APIKey is a `file:` reference rather
// than a literal key value (spec.md §6: API keys may be rotated on
// disk without a process restart).
func (c Config) UsesAPIKeyFile() bool {
	return len(c.APIKey) > len("file:") && c.APIKey[:5] == "file:"
}

// APIKeyFilePath returns the path portion of a `file:`-prefixed APIKey,
// or "" if APIKey is not file-backed.
func (c Config) APIKeyFilePath() string {
	if !c.UsesAPIKeyFile() {
		return ""
	}
	return c.APIKey[len("file:"):]
}
