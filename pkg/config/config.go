package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	ApiKey         string        `yaml:"api_key"`
	CORSOrigins    []string      `yaml:"cors_origins"`
	BodyLimit      string        `yaml:"body_limit"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Viewport is the emulated window size of every payment page.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// BrowserConfig holds the browser pool and page emulation settings.
type BrowserConfig struct {
	Workers        string        `yaml:"workers"`
	Headless       bool          `yaml:"headless"`
	NoSandbox      bool          `yaml:"no_sandbox"`
	Bin            string        `yaml:"bin"`
	SlowMotion     time.Duration `yaml:"slow_motion"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	Locale         string        `yaml:"locale"`
	Timezone       string        `yaml:"timezone"`
	Viewport       Viewport      `yaml:"viewport"`
}

// Timeouts bounds every wait of the FedEx payment flow.
type Timeouts struct {
	Navigation    time.Duration `yaml:"navigation"`
	Element       time.Duration `yaml:"element"`
	EmailField    time.Duration `yaml:"email_field"`
	VerifyError   time.Duration `yaml:"verify_error"`
	VerifySuccess time.Duration `yaml:"verify_success"`
	Outcome       time.Duration `yaml:"outcome"`
}

// FedExConfig holds settings specific to the FedEx invoice payment page.
type FedExConfig struct {
	PaymentURL     string   `yaml:"payment_url"`
	InvoiceType    string   `yaml:"invoice_type"`
	DefaultCountry string   `yaml:"default_country"`
	Currency       string   `yaml:"currency"`
	Timeouts       Timeouts `yaml:"timeouts"`
}

// DatabaseConfig locates the SQLite file that keeps the payment attempt history.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DebugConfig controls the page snapshots written when a flow fails.
type DebugConfig struct {
	Dir         string `yaml:"dir"`
	Snapshots   bool   `yaml:"snapshots"`
	Screenshots bool   `yaml:"screenshots"`
}

// NotifierConfig configures the optional result webhook.
type NotifierConfig struct {
	URL      string        `yaml:"url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Config is the complete structure for the config.yml file.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Browser  BrowserConfig  `yaml:"browser"`
	FedEx    FedExConfig    `yaml:"fedex"`
	Database DatabaseConfig `yaml:"database"`
	Debug    DebugConfig    `yaml:"debug"`
	Notifier NotifierConfig `yaml:"notifier"`
}

// Default returns the configuration used when config.yml leaves a field unset.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			CORSOrigins:    []string{"*"},
			BodyLimit:      "64K",
			RequestTimeout: 5 * time.Minute,
		},
		Browser: BrowserConfig{
			Workers:        "auto",
			Headless:       true,
			NoSandbox:      true,
			AcquireTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
			Locale:         "en-US",
			Timezone:       "America/New_York",
			Viewport:       Viewport{Width: 1280, Height: 720},
		},
		FedEx: FedExConfig{
			PaymentURL:     "https://www.fedex.com/payment/invoice",
			InvoiceType:    "FEDEX",
			DefaultCountry: "IL",
			Currency:       "USD",
			Timeouts: Timeouts{
				Navigation:    60 * time.Second,
				Element:       30 * time.Second,
				EmailField:    5 * time.Second,
				VerifyError:   10 * time.Second,
				VerifySuccess: 5 * time.Second,
				Outcome:       5 * time.Second,
			},
		},
		Database: DatabaseConfig{Path: "payments.db"},
		Debug:    DebugConfig{Dir: "debug", Snapshots: true},
		Notifier: NotifierConfig{Timeout: 15 * time.Second},
	}
}

// LoadConfig reads the YAML file on top of the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func LoadConfig(filepath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config file %s not found, using defaults.", filepath)
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error unmarshalling config YAML: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("WARN: could not load .env file: %v", err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Server.ApiKey = v
	}
	if v := os.Getenv("PAYMENTS_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("BROWSER_BIN"); v != "" {
		cfg.Browser.Bin = v
	}
	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid BROWSER_HEADLESS value %q: %w", v, err)
		}
		cfg.Browser.Headless = headless
	}
	if v := os.Getenv("NOTIFY_URL"); v != "" {
		cfg.Notifier.URL = v
	}
	if v := os.Getenv("NOTIFY_PASSWORD"); v != "" {
		cfg.Notifier.Password = v
	}
	return nil
}
