package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. K2_API_BASE_URL.
const EnvPrefix = "K2"

// Config holds all client configuration
type Config struct {
	Env            string        `mapstructure:"env"`
	API            APIConfig     `mapstructure:"api"`
	DataDir        string        `mapstructure:"data_dir"`
	SessionKey     string        `mapstructure:"session_key"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	MetricsFile    string        `mapstructure:"metrics_file"`
	ReceiptDir     string        `mapstructure:"receipt_dir"`
}

// APIConfig holds the entries service connection settings
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"env":             "production",
	"api.base_url":    "http://localhost:5000/api",
	"api.timeout":     10 * time.Second,
	"data_dir":        "./k2_data",
	"session_key":     "",
	"search_debounce": 300 * time.Millisecond,
	"metrics_file":    "",
	"receipt_dir":     ".",
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"env":      "env",
	"api-url":  "api.base_url",
	"timeout":  "api.timeout",
	"data-dir": "data_dir",
}

// RegisterFlags adds the global overrides to fs. Only flags the user sets take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("env", "", "environment (dev enables debug logging)")
	fs.String("api-url", "", "entries service base URL, e.g. https://host/api")
	fs.Duration("timeout", 0, "per-request timeout")
	fs.String("data-dir", "", "local store directory")
}

// Load reads .env (if present), then the optional YAML/TOML file at path,
// then K2_* environment variables, then flags set on fs. Later sources win.
func Load(path string, fs ...*pflag.FlagSet) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	for _, set := range fs {
		var bindErr error
		set.Visit(func(f *pflag.Flag) {
			if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values the client cannot run without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search_debounce must not be negative, got %s", c.SearchDebounce)
	}
	return nil
}

// IsDev reports whether debug behaviour is on.
func (c *Config) IsDev() bool {
	return c.Env == "dev"
}
