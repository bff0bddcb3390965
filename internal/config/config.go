// Package config loads scraper settings.
//
// Precedence (highest to lowest): explicitly set flags > VELIB_* environment
// variables > .env file > YAML config file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	EnvPrefix = "VELIB_"

	DefaultLoginURL   = "https://www.velib-metropole.fr/login"
	DefaultListingURL = "https://www.velib-metropole.fr/private/account#/my-runs"
	DefaultOutput     = "runs.csv"

	// PostLoginNavigate opens the listing once after submitting credentials.
	PostLoginNavigate = "navigate"
	// PostLoginReload opens the listing, reloads it and waits SettleDelay.
	PostLoginReload = "reload"
)

var ErrMissingCredentials = errors.New("missing credentials")

// configFiles are looked up in the working directory when --config is not given.
var configFiles = []string{"velib-runs.yaml", "velib-runs.yml"}

// Selectors locate elements on the login and listing pages.
type Selectors struct {
	UsernameField string `koanf:"username_field"`
	PasswordField string `koanf:"password_field"`
	Pagination    string `koanf:"pagination"`
	Entries       string `koanf:"entries"`
	Date          string `koanf:"date"`
	Distance      string `koanf:"distance"`
	Duration      string `koanf:"duration"`
}

// Config holds every scraper option.
type Config struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	LoginURL   string `koanf:"login_url"`
	ListingURL string `koanf:"listing_url"`
	Output     string `koanf:"output"`

	Headless   bool   `koanf:"headless"`
	ChromePath string `koanf:"chrome_path"`
	PostLogin  string `koanf:"post_login"`

	PageLoadTimeout time.Duration `koanf:"page_load_timeout"`
	RenderTimeout   time.Duration `koanf:"render_timeout"`
	PollInterval    time.Duration `koanf:"poll_interval"`
	SettleDelay     time.Duration `koanf:"settle_delay"`

	SkipInvalid  bool `koanf:"skip_invalid"`
	WritePartial bool `koanf:"write_partial"`

	Archive     string `koanf:"archive"`
	MetricsFile string `koanf:"metrics_file"`
	Verbose     bool   `koanf:"verbose"`

	Selectors Selectors `koanf:"selectors"`

	// File is the YAML file that was loaded, if any.
	File string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"login_url":         DefaultLoginURL,
		"listing_url":       DefaultListingURL,
		"output":            DefaultOutput,
		"headless":          true,
		"post_login":        PostLoginNavigate,
		"page_load_timeout": 5 * time.Second,
		"render_timeout":    10 * time.Second,
		"poll_interval":     250 * time.Millisecond,
		"settle_delay":      time.Second,

		"selectors.username_field": `input[name="_username"]`,
		"selectors.password_field": `input[name="_password"]`,
		"selectors.pagination":     "ul.pagination > li > a",
		"selectors.entries":        "body > app-account > div > app-my-runs > div > div > div:nth-child(2) > div:nth-child(2) > div > div.container.runs",
		"selectors.date":           "div.operation-date",
		"selectors.distance":       "div.row.align-items-center > div:nth-child(2) > div > div",
		"selectors.duration":       "div.row.align-items-center > div:nth-child(3) > div > div",
	}
}

// nonConfigFlags select files rather than settings.
var nonConfigFlags = map[string]bool{"config": true, "env-file": true}

// Load builds the configuration. cfgFile and envFile may be empty to use the
// defaults; flags may be nil.
func Load(cfgFile, envFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	if _, err := LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	// VELIB_RENDER_TIMEOUT -> render_timeout, VELIB_SELECTORS__DATE -> selectors.date
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || nonConfigFlags[f.Name] {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	return &cfg, nil
}

// Validate checks the settings a scrape needs.
func (c *Config) Validate() error {
	var missing []string
	if c.Username == "" {
		missing = append(missing, EnvPrefix+"USERNAME")
	}
	if c.Password == "" {
		missing = append(missing, EnvPrefix+"PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrMissingCredentials, strings.Join(missing, " and "))
	}

	switch c.PostLogin {
	case PostLoginNavigate, PostLoginReload:
	default:
		return fmt.Errorf("invalid post_login %q (want %s or %s)", c.PostLogin, PostLoginNavigate, PostLoginReload)
	}

	if c.Output == "" {
		return errors.New("output path is empty")
	}
	if c.PageLoadTimeout <= 0 || c.RenderTimeout <= 0 || c.PollInterval <= 0 {
		return errors.New("timeouts and poll interval must be positive")
	}
	if c.SettleDelay < 0 {
		return errors.New("settle_delay must not be negative")
	}
	return nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}
