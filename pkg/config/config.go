package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	xdgAppName = "cyclecal"
	configFile = "config.yaml"
	envPrefix  = "CYCLECAL"
)

type Config struct {
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Cycle   CycleConfig   `yaml:"cycle" mapstructure:"cycle"`
	Advice  AdviceConfig  `yaml:"advice" mapstructure:"advice"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Google  GoogleConfig  `yaml:"google" mapstructure:"google"`
}

// StorageConfig selects the key-value backend. An empty Path means the
// backend's default location.
type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

type CycleConfig struct {
	Policy string `yaml:"policy" mapstructure:"policy"`
}

type AdviceConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Locale  string        `yaml:"locale" mapstructure:"locale"`
}

// ServerConfig is read by the advice service. Knowledge is an optional
// YAML knowledge base replacing the built-in one.
type ServerConfig struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Model     string `yaml:"model" mapstructure:"model"`
	Knowledge string `yaml:"knowledge,omitempty" mapstructure:"knowledge"`
}

type GoogleConfig struct {
	Calendar string `yaml:"calendar" mapstructure:"calendar"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{Backend: "file"},
		Cycle:   CycleConfig{Policy: "cyclic"},
		Advice: AdviceConfig{
			Enabled: true,
			URL:     "http://127.0.0.1:8000",
			Timeout: 10 * time.Second,
			Locale:  "en",
		},
		Server: ServerConfig{Addr: "127.0.0.1:8000", Model: "gemini-1.5-flash"},
		Google: GoogleConfig{Calendar: "Cycle"},
	}
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads path over the defaults, then applies CYCLECAL_* environment
// overrides (CYCLECAL_ADVICE_URL and so on). A missing file is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Google.Calendar == "" {
		cfg.Google.Calendar = "Cycle"
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("cycle.policy", d.Cycle.Policy)
	v.SetDefault("advice.enabled", d.Advice.Enabled)
	v.SetDefault("advice.url", d.Advice.URL)
	v.SetDefault("advice.timeout", d.Advice.Timeout)
	v.SetDefault("advice.locale", d.Advice.Locale)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.model", d.Server.Model)
	v.SetDefault("server.knowledge", d.Server.Knowledge)
	v.SetDefault("google.calendar", d.Google.Calendar)
}

func Save(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)
	if err := encoder.Encode(toFile(cfg)); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return encoder.Close()
}

// Marshal renders cfg as it would be saved.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(toFile(cfg))
}

// fileConfig mirrors Config with the timeout spelled as "10s" rather than
// nanoseconds.
type fileConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Cycle   CycleConfig   `yaml:"cycle"`
	Advice  struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		Locale  string `yaml:"locale"`
	} `yaml:"advice"`
	Server ServerConfig `yaml:"server"`
	Google GoogleConfig `yaml:"google"`
}

func toFile(cfg *Config) fileConfig {
	var out fileConfig
	out.Storage = cfg.Storage
	out.Cycle = cfg.Cycle
	out.Advice.Enabled = cfg.Advice.Enabled
	out.Advice.URL = cfg.Advice.URL
	out.Advice.Timeout = cfg.Advice.Timeout.String()
	out.Advice.Locale = cfg.Advice.Locale
	out.Server = cfg.Server
	out.Google = cfg.Google
	return out
}
