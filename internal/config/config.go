// Load envs from .env
// Load YAML config
// Override with env vars
// Validate config

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"go-cvbankas-scraper/internal/browser"
	"go-cvbankas-scraper/internal/consent"
	"go-cvbankas-scraper/internal/extract"
)

const DefaultPath = "configs/config.yaml"

type Config struct {
	LogLevel string          `yaml:"log_level"`
	Server   Server          `yaml:"server"`
	Browser  browser.Options `yaml:"browser"`
	Search   Search          `yaml:"search"`
	Consent  consent.Config  `yaml:"consent"`
	Extract  extract.Rules   `yaml:"extract"`
	Output   Output          `yaml:"output"`
	Telegram Telegram        `yaml:"telegram"`
}

type Server struct {
	Port            string        `yaml:"port" env:"PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Search holds the target endpoint and the wait bounds around it.
type Search struct {
	// URLTemplate must contain {job} and {city}.
	URLTemplate       string        `yaml:"url_template"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	BodyTimeout       time.Duration `yaml:"body_timeout"`
	SettleMax         time.Duration `yaml:"settle_max"`
	SettleInterval    time.Duration `yaml:"settle_interval"`
	// StampJobs attaches scrapedAt to every record.
	StampJobs bool `yaml:"stamp_jobs"`
}

type Output struct {
	Dir        string `yaml:"dir"`
	Screenshot bool   `yaml:"screenshot"`
}

type Telegram struct {
	Token   string `yaml:"token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID  int64  `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	MaxJobs int    `yaml:"max_jobs"`
}

// Enabled reports whether both credentials are present.
func (t Telegram) Enabled() bool {
	return t.Token != "" && t.ChatID != 0
}

func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: Server{
			Port:            "3000",
			ShutdownTimeout: 10 * time.Second,
		},
		Browser: browser.DefaultOptions(),
		Search: Search{
			URLTemplate:       "https://www.cvbankas.lt/?keyw={job}&city={city}",
			NavigationTimeout: 30 * time.Second,
			BodyTimeout:       15 * time.Second,
			SettleMax:         3 * time.Second,
			SettleInterval:    500 * time.Millisecond,
		},
		Consent: consent.DefaultConfig(),
		Extract: extract.DefaultRules(),
		Output: Output{
			Dir:        ".",
			Screenshot: true,
		},
		Telegram: Telegram{MaxJobs: 10},
	}
}

// Load builds the config from defaults, an optional .env, the YAML file at
// path and the environment, in that order. A missing YAML file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults", "path", path)
		case err != nil:
			return nil, fmt.Errorf("reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Port = port
	}
	if driver := os.Getenv("SCRAPER_DRIVER"); driver != "" {
		c.Browser.Driver = driver
	}
	if exe := os.Getenv("CHROME_PATH"); exe != "" {
		c.Browser.ExecutablePath = exe
	}
	if dir := os.Getenv("SCRAPER_PROFILE_DIR"); dir != "" {
		c.Browser.ProfileDir = dir
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		c.Telegram.ChatID = id
	}
	return nil
}

// Validate rejects configs the scraper can not run with. Selector syntax is
// checked later by extract.Compile.
func (c *Config) Validate() error {
	var errs []error

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", c.Server.Port))
	}

	switch c.Browser.Driver {
	case browser.DriverPlaywright, browser.DriverChromedp:
	default:
		errs = append(errs, fmt.Errorf("browser.driver %q must be %s or %s",
			c.Browser.Driver, browser.DriverPlaywright, browser.DriverChromedp))
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		errs = append(errs, errors.New("browser window size must be positive"))
	}

	tpl := c.Search.URLTemplate
	if !strings.Contains(tpl, "{job}") || !strings.Contains(tpl, "{city}") {
		errs = append(errs, fmt.Errorf("search.url_template %q needs {job} and {city}", tpl))
	}
	if c.Search.NavigationTimeout <= 0 || c.Search.BodyTimeout <= 0 {
		errs = append(errs, errors.New("search timeouts must be positive"))
	}
	if c.Search.SettleInterval <= 0 && c.Search.SettleMax > 0 {
		errs = append(errs, errors.New("search.settle_interval must be positive"))
	}

	if len(c.Extract.Cards) == 0 || len(c.Extract.Title) == 0 {
		errs = append(errs, errors.New("extract.cards and extract.title need at least one selector"))
	}

	if c.Telegram.MaxJobs < 0 {
		errs = append(errs, errors.New("telegram.max_jobs can not be negative"))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// ParseLevel maps debug|info|warn|error onto slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", s, err)
	}
	return level, nil
}
