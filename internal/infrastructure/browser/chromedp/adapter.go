package chromedp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"strings"
	"sync"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"github.com/chromedp/chromedp"
)

const defaultTimeout = 10 * time.Second

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrClosed          = errors.New("browser closed")
)

var (
	_ output.BrowserPort    = (*BrowserAdapter)(nil)
	_ output.BrowserSession = (*Session)(nil)
)

type Config struct {
	Headless          bool
	NoSandbox         bool
	DisableGPU        bool
	UserAgent         string
	ExecPath          string
	Timeout           time.Duration
	ScreenshotQuality int
}

func DefaultConfig() Config {
	return Config{
		Headless:          true,
		DisableGPU:        true,
		Timeout:           defaultTimeout,
		ScreenshotQuality: 100,
	}
}

// BrowserAdapter holds an exec allocator. Every session started from it runs
// in its own browser process.
type BrowserAdapter struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	cfg         Config

	mu     sync.Mutex
	closed bool
}

func NewBrowserAdapter(cfg Config) *BrowserAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.DisableGPU),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &BrowserAdapter{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		cfg:         cfg,
	}
}

func (b *BrowserAdapter) NewSession(ctx context.Context) (output.BrowserSession, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	s := &Session{ctx: tabCtx, cancel: cancel, cfg: b.cfg}

	// The first Run starts the browser process.
	if err := s.run(ctx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.allocCancel()
}

type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}
	if err := s.run(ctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	if strings.TrimSpace(selector) == "" {
		return ErrInvalidSelector
	}
	if err := s.run(ctx,
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("field not found: %s: %w", selector, err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	if strings.TrimSpace(selector) == "" {
		return ErrInvalidSelector
	}
	if err := s.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click failed: %s: %w", selector, err)
	}
	return nil
}

func (s *Session) Evaluate(ctx context.Context, script string) (any, error) {
	var res any
	if err := s.run(ctx, chromedp.Evaluate(script, &res)); err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return res, nil
}

func (s *Session) SubmitNative(ctx context.Context, formSelector string) error {
	if strings.TrimSpace(formSelector) == "" {
		return ErrInvalidSelector
	}
	if err := s.run(ctx, chromedp.Submit(formSelector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("native submit failed: %w", err)
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	var data []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&data, s.cfg.ScreenshotQuality)); err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   data,
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}, nil
}

func (s *Session) CurrentURL() string {
	var location string
	if err := s.run(context.Background(), chromedp.Location(&location)); err != nil {
		return ""
	}
	return location
}

func (s *Session) Close() error {
	s.cancel()
	return nil
}

// run executes actions on the session's tab, bounded by the configured
// timeout and cancelled together with the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
