package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

const DefaultPath = "removal-agent.toml"

type Config struct {
	Profile   entity.Profile  `toml:"profile" validate:"-"`
	Browser   BrowserConfig   `toml:"browser"`
	LLM       LLMConfig       `toml:"llm"`
	Captcha   CaptchaConfig   `toml:"captcha"`
	SMTP      SMTPConfig      `toml:"smtp"`
	Storage   StorageConfig   `toml:"storage"`
	Artifacts ArtifactsConfig `toml:"artifacts"`
	Workflow  WorkflowConfig  `toml:"workflow"`
	Logging   LoggingConfig   `toml:"logging"`
	Schedule  ScheduleConfig  `toml:"schedule"`
}

type BrowserConfig struct {
	Driver     string `toml:"driver" validate:"oneof=rod chromedp"`
	Headless   bool   `toml:"headless"`
	NoSandbox  bool   `toml:"no_sandbox"`
	BinPath    string `toml:"bin_path"`
	UserAgent  string `toml:"user_agent"`
	Timeout    string `toml:"timeout" validate:"duration"`
	SlowMotion string `toml:"slow_motion" validate:"omitempty,duration"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider" validate:"oneof=none anthropic claude openrouter gemini"`
	Model       string  `toml:"model"`
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url" validate:"omitempty,url"`
	Temperature float32 `toml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `toml:"max_tokens" validate:"gte=1"`
	Timeout     string  `toml:"timeout" validate:"duration"`
}

type CaptchaConfig struct {
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url" validate:"omitempty,url"`
	PollInterval string `toml:"poll_interval" validate:"duration"`
	Timeout      string `toml:"timeout" validate:"duration"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port" validate:"gte=1,lte=65535"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from" validate:"omitempty,email"`
	FromName string `toml:"from_name"`
	Security string `toml:"security" validate:"oneof=starttls tls none"`
}

type StorageConfig struct {
	Driver          string `toml:"driver" validate:"oneof=badger mongo"`
	Path            string `toml:"path"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

type ArtifactsConfig struct {
	Dir      string `toml:"dir" validate:"required"`
	MaxWidth int    `toml:"max_width" validate:"gte=0"`
}

type WorkflowConfig struct {
	Concurrency         int    `toml:"concurrency" validate:"gte=1,lte=32"`
	StepTimeout         string `toml:"step_timeout" validate:"duration"`
	PerHostInterval     string `toml:"per_host_interval" validate:"duration"`
	DiscoveryScreenshot bool   `toml:"discovery_screenshot"`
}

type LoggingConfig struct {
	Dir     string `toml:"dir"`
	Level   string `toml:"level" validate:"oneof=debug info warn error"`
	Console bool   `toml:"console"`
}

type ScheduleConfig struct {
	Cron string `toml:"cron"`
}

func Default() *Config {
	return &Config{
		Profile: entity.DefaultProfile(),
		Browser: BrowserConfig{
			Driver:   "rod",
			Headless: true,
			Timeout:  "10s",
		},
		LLM: LLMConfig{
			Provider:    "none",
			Temperature: 0.2,
			MaxTokens:   256,
			Timeout:     "60s",
		},
		Captcha: CaptchaConfig{
			PollInterval: "5s",
			Timeout:      "180s",
		},
		SMTP: SMTPConfig{
			Port:     587,
			Security: "starttls",
		},
		Storage: StorageConfig{
			Driver:          "badger",
			Path:            "data/ledger",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "removal_agent",
			MongoCollection: "brokers",
		},
		Artifacts: ArtifactsConfig{
			Dir:      "screenshots",
			MaxWidth: 1280,
		},
		Workflow: WorkflowConfig{
			Concurrency:         2,
			StepTimeout:         "60s",
			PerHostInterval:     "2s",
			DiscoveryScreenshot: true,
		},
		Logging: LoggingConfig{
			Dir:   "log",
			Level: "info",
		},
		Schedule: ScheduleConfig{
			Cron: "0 3 * * *",
		},
	}
}

// Load applies defaults, then the TOML file, then environment overrides, and
// validates the result. A missing file at the default path is not an error.
func Load(path string, env output.ConfigPort) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if env != nil {
		applyEnvOverrides(cfg, env)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config, env output.ConfigPort) {
	switch cfg.LLM.Provider {
	case "anthropic", "claude":
		cfg.LLM.APIKey = env.GetWithDefault("ANTHROPIC_API_KEY", cfg.LLM.APIKey)
	case "openrouter":
		cfg.LLM.APIKey = env.GetWithDefault("OPENROUTER_API_KEY", cfg.LLM.APIKey)
	case "gemini":
		cfg.LLM.APIKey = env.GetWithDefault("GEMINI_API_KEY", cfg.LLM.APIKey)
	}
	cfg.LLM.Model = env.GetWithDefault("LLM_MODEL", cfg.LLM.Model)

	cfg.Captcha.APIKey = env.GetWithDefault("TWOCAPTCHA_API_KEY", cfg.Captcha.APIKey)

	cfg.SMTP.Host = env.GetWithDefault("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = env.GetInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.Username = env.GetWithDefault("SMTP_USERNAME", cfg.SMTP.Username)
	cfg.SMTP.Password = env.GetWithDefault("SMTP_PASSWORD", cfg.SMTP.Password)

	cfg.Storage.MongoURI = env.GetWithDefault("MONGO_URI", cfg.Storage.MongoURI)
	cfg.Browser.Headless = env.GetBool("BROWSER_HEADLESS", cfg.Browser.Headless)
	cfg.Logging.Level = env.GetWithDefault("LOG_LEVEL", cfg.Logging.Level)
}

func (c *Config) Validate() error {
	if err := newValidator().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateProfile checks the fields a removal run needs. Commands that only
// touch the ledger skip it.
func (c *Config) ValidateProfile() error {
	if err := newValidator().Struct(c.Profile); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
	return v
}

func (b BrowserConfig) TimeoutDuration() time.Duration { return mustDuration(b.Timeout) }
func (b BrowserConfig) SlowMotionDuration() time.Duration { return mustDuration(b.SlowMotion) }
func (l LLMConfig) TimeoutDuration() time.Duration { return mustDuration(l.Timeout) }
func (c CaptchaConfig) PollIntervalDuration() time.Duration { return mustDuration(c.PollInterval) }
func (c CaptchaConfig) TimeoutDuration() time.Duration { return mustDuration(c.Timeout) }
func (w WorkflowConfig) StepTimeoutDuration() time.Duration { return mustDuration(w.StepTimeout) }
func (w WorkflowConfig) PerHostIntervalDuration() time.Duration {
	return mustDuration(w.PerHostInterval)
}

// mustDuration is only called after Validate, so a parse error means an empty
// optional field.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
