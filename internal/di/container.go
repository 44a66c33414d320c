package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"removal-agent/internal/application/port/input"
	"removal-agent/internal/application/port/output"
	"removal-agent/internal/application/service"
	"removal-agent/internal/infrastructure/artifacts"
	"removal-agent/internal/infrastructure/browser/chromedp"
	"removal-agent/internal/infrastructure/browser/rod"
	"removal-agent/internal/infrastructure/captcha/twocaptcha"
	"removal-agent/internal/infrastructure/config"
	"removal-agent/internal/infrastructure/llm"
	"removal-agent/internal/infrastructure/logger"
	"removal-agent/internal/infrastructure/mail/smtp"
	"removal-agent/internal/infrastructure/storage/badger"
	"removal-agent/internal/infrastructure/storage/mongo"
	"removal-agent/internal/infrastructure/userinteraction"
	"removal-agent/internal/usecase/advisor"
	"removal-agent/internal/usecase/batch"
	"removal-agent/internal/usecase/captcha"
	"removal-agent/internal/usecase/email"
	"removal-agent/internal/usecase/extraction"
	"removal-agent/internal/usecase/form"
	"removal-agent/internal/usecase/orchestrator"
)

// Container holds the ledger-side dependencies. The browser and the workflow
// are built on demand by InitWorkflow so ledger-only commands never start
// Chromium.
type Container struct {
	Config          *config.Config
	Logger          output.LoggerPort
	Ledger          output.LedgerPort
	UserInteraction output.UserInteractionPort

	Browser output.BrowserPort
	Runner  input.WorkflowRunner
	Batch   input.BatchProcessor
}

func NewContainer(ctx context.Context, cfg *config.Config, logName string) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Config{
		Dir:     cfg.Logging.Dir,
		Name:    logName,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	ledger, err := openLedger(ctx, cfg.Storage, log)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	return &Container{
		Config:          cfg,
		Logger:          log,
		Ledger:          service.NewSerializedLedger(ledger, service.NewLockRegistry()),
		UserInteraction: userinteraction.NewConsoleUserInteraction(),
	}, nil
}

func openLedger(ctx context.Context, cfg config.StorageConfig, log output.LoggerPort) (output.LedgerPort, error) {
	switch cfg.Driver {
	case "mongo":
		mcfg := mongo.DefaultConfig()
		mcfg.URI = cfg.MongoURI
		if cfg.MongoDatabase != "" {
			mcfg.Database = cfg.MongoDatabase
		}
		if cfg.MongoCollection != "" {
			mcfg.Collection = cfg.MongoCollection
		}
		return mongo.Open(ctx, mcfg, log)
	default:
		return badger.Open(badger.Config{Path: cfg.Path}, log)
	}
}

// InitWorkflow starts the browser and wires every removal step.
func (c *Container) InitWorkflow(ctx context.Context) error {
	if c.Runner != nil {
		return nil
	}
	cfg := c.Config

	browser, err := newBrowser(ctx, cfg.Browser)
	if err != nil {
		return fmt.Errorf("failed to create browser: %w", err)
	}
	c.Browser = browser

	llmPort, err := llm.New(ctx, llm.Config{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
		Timeout:  cfg.LLM.TimeoutDuration(),
	}, c.Logger)
	if err != nil {
		return fmt.Errorf("failed to create llm: %w", err)
	}

	var solver output.CaptchaSolverPort
	if cfg.Captcha.APIKey != "" {
		ccfg := twocaptcha.DefaultConfig(cfg.Captcha.APIKey)
		if cfg.Captcha.BaseURL != "" {
			ccfg.BaseURL = cfg.Captcha.BaseURL
		}
		ccfg.PollInterval = cfg.Captcha.PollIntervalDuration()
		ccfg.Timeout = cfg.Captcha.TimeoutDuration()
		solver = twocaptcha.NewClient(ccfg, nil, c.Logger)
	} else {
		c.Logger.Warn("TWOCAPTCHA_API_KEY not set, captchas will not be solved")
	}

	var sender output.EmailSenderPort
	if cfg.SMTP.Host != "" {
		sender = smtp.NewSender(smtp.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     firstNonEmpty(cfg.SMTP.From, cfg.Profile.Email),
			FromName: firstNonEmpty(cfg.SMTP.FromName, cfg.Profile.Name),
			Security: cfg.SMTP.Security,
		}, c.Logger)
	} else {
		c.Logger.Warn("SMTP not configured, removal emails cannot be sent")
	}

	sink := artifacts.NewScreenshotSink(artifacts.Config{
		Dir:      cfg.Artifacts.Dir,
		MaxWidth: cfg.Artifacts.MaxWidth,
	})

	advisorCfg := advisor.DefaultConfig()
	advisorCfg.Temperature = cfg.LLM.Temperature
	advisorCfg.MaxTokens = cfg.LLM.MaxTokens

	resolverCfg := captcha.DefaultResolverConfig()
	runner := orchestrator.New(orchestrator.Deps{
		Browser:         browser,
		Ledger:          c.Ledger,
		Screenshots:     sink,
		Logger:          c.Logger,
		UserInteraction: c.UserInteraction,
		Extractor:       extraction.NewExtractor(),
		Advisor:         advisor.New(llmPort, c.Logger, advisorCfg),
		Classifier:      captcha.NewClassifier(),
		Resolver:        captcha.NewResolver(solver, &http.Client{Timeout: resolverCfg.DownloadTimeout}, c.Logger, resolverCfg),
		Executor:        form.NewExecutor(browser, sink, c.Logger),
		Dispatcher:      email.NewDispatcher(sender, c.Logger, ""),
	}, orchestrator.Config{
		Profile:             cfg.Profile,
		StepTimeout:         cfg.Workflow.StepTimeoutDuration(),
		CaptchaTimeout:      cfg.Captcha.TimeoutDuration() + cfg.Captcha.PollIntervalDuration(),
		DiscoveryScreenshot: cfg.Workflow.DiscoveryScreenshot,
		Now:                 time.Now,
	})

	c.Runner = runner
	c.Batch = batch.New(runner, c.Ledger, c.Logger, c.UserInteraction, batch.Config{
		Concurrency:     cfg.Workflow.Concurrency,
		PerHostInterval: cfg.Workflow.PerHostIntervalDuration(),
	})
	return nil
}

func newBrowser(ctx context.Context, cfg config.BrowserConfig) (output.BrowserPort, error) {
	if cfg.Driver == "chromedp" {
		ccfg := chromedp.DefaultConfig()
		ccfg.Headless = cfg.Headless
		ccfg.NoSandbox = cfg.NoSandbox
		ccfg.UserAgent = cfg.UserAgent
		ccfg.ExecPath = cfg.BinPath
		ccfg.Timeout = cfg.TimeoutDuration()
		return chromedp.NewBrowserAdapter(ccfg), nil
	}

	rcfg := rod.DefaultConfig()
	rcfg.Headless = cfg.Headless
	rcfg.NoSandbox = cfg.NoSandbox
	rcfg.BinPath = cfg.BinPath
	rcfg.Timeout = cfg.TimeoutDuration()
	rcfg.SlowMotion = cfg.SlowMotionDuration()
	return rod.NewBrowserAdapter(ctx, rcfg)
}

func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Ledger != nil {
		if err := c.Ledger.Close(); err != nil {
			c.Logger.Warn("Failed to close ledger", "error", err)
		}
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
