package dashboard

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort       = 8080
	DefaultSessionTTL = 12 * time.Hour
)

var ErrInvalidConfig = errors.New("dashboard: config is invalid")

// Config of the dashboard server.
type Config struct {
	// Port to listen.
	Port int `yaml:"port"`

	// ApiRoot of the remote API. Empty means the profile is used.
	ApiRoot string `yaml:"apiRoot"`

	// SessionSecret signs session cookies. Empty means a random secret for each start.
	SessionSecret string `yaml:"sessionSecret"`

	// SessionTTL is how long an idle session is kept.
	SessionTTL time.Duration `yaml:"sessionTTL"`

	LogLevel string `yaml:"loglevel"`

	// Timeout of each request to the remote API, in seconds. 0 means no timeout.
	Timeout int `yaml:"timeout"`
}

func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	raw := struct {
		Port          *int   `yaml:"port"`
		ApiRoot       string `yaml:"apiRoot"`
		SessionSecret string `yaml:"sessionSecret"`
		SessionTTL    string `yaml:"sessionTTL"`
		LogLevel      string `yaml:"loglevel"`
		Timeout       int    `yaml:"timeout"`
	}{}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*c = *Default()
	if raw.Port != nil {
		if *raw.Port <= 0 || 65535 < *raw.Port {
			return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, *raw.Port)
		}
		c.Port = *raw.Port
	}
	if raw.SessionTTL != "" {
		ttl, err := time.ParseDuration(raw.SessionTTL)
		if err != nil {
			return fmt.Errorf("%w: sessionTTL: %w", ErrInvalidConfig, err)
		}
		if ttl <= 0 {
			return fmt.Errorf("%w: sessionTTL should be positive: %s", ErrInvalidConfig, raw.SessionTTL)
		}
		c.SessionTTL = ttl
	}
	if raw.Timeout < 0 {
		return fmt.Errorf("%w: timeout should not be negative: %d", ErrInvalidConfig, raw.Timeout)
	}
	c.ApiRoot = raw.ApiRoot
	c.SessionSecret = raw.SessionSecret
	if raw.LogLevel != "" {
		c.LogLevel = raw.LogLevel
	}
	c.Timeout = raw.Timeout
	return nil
}

func Default() *Config {
	return &Config{Port: DefaultPort, SessionTTL: DefaultSessionTTL, LogLevel: "info"}
}

// LoadDashboardConfig reads config file. Empty filepath gives Default.
func LoadDashboardConfig(filepath string) (*Config, error) {
	if filepath == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, err
	}
	return Unmarshal(content)
}

func Unmarshal(conf []byte) (*Config, error) {
	out := Default()
	if err := yaml.Unmarshal(conf, out); err != nil {
		return nil, err
	}
	return out, nil
}
