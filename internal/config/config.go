package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models jobdesk.yml.
type Config struct {
	Company struct {
		ID         string `yaml:"id"`
		DefaultJob string `yaml:"default_job"`
	} `yaml:"company"`
	Comparison struct {
		BaseURL string   `yaml:"base_url"`
		Timeout Duration `yaml:"timeout"`
	} `yaml:"comparison"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Duration is a time.Duration written as "30s" in YAML.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with jobdesk config init --company <id>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Company.ID) == "" {
		return fmt.Errorf("config.company.id is required")
	}
	if c.Comparison.BaseURL != "" {
		u, err := url.Parse(c.Comparison.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config.comparison.base_url must be an absolute URL")
		}
	}
	if c.Comparison.Timeout < 0 {
		return fmt.Errorf("config.comparison.timeout must not be negative")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("config.log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("config.log.format %q is not one of json, console", c.Log.Format)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "jobdesk.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(companyID string) string {
	return fmt.Sprintf(defaultTemplate, companyID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a company.
func Default(companyID string) *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(GenerateDefault(companyID)), &cfg)
	cfg.Company.ID = companyID
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Unset server,
// timeout and log fields take their defaults.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// YAML renders the config back to its file form.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Config) applyDefaults() {
	if c.Comparison.Timeout == 0 {
		c.Comparison.Timeout = Duration(30 * time.Second)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = "127.0.0.1:8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

const defaultTemplate = `company:
  id: %s
  default_job: ""

comparison:
  base_url: ""
  timeout: 30s

server:
  addr: 127.0.0.1:8080
  base_path: ""

log:
  level: info
  format: json
`
