package rod

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

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultSlowMotion = 0
	idleWait          = 2 * time.Second
)

var (
	ErrInvalidURL      = errors.New("invalid url")
	ErrInvalidSelector = errors.New("invalid selector")
	ErrClosed          = errors.New("browser closed")
)

var (
	_ output.BrowserPort    = (*BrowserAdapter)(nil)
	_ output.BrowserSession = (*Session)(nil)
)

type BrowserConfig struct {
	Headless          bool
	SlowMotion        time.Duration
	Timeout           time.Duration
	NoSandbox         bool
	DevTools          bool
	BinPath           string
	ScreenshotFormat  string
	ScreenshotQuality int
}

func DefaultConfig() BrowserConfig {
	return BrowserConfig{
		Headless:          true,
		SlowMotion:        defaultSlowMotion,
		Timeout:           defaultTimeout,
		ScreenshotFormat:  "png",
		ScreenshotQuality: 80,
	}
}

// BrowserAdapter owns one Chromium process. Sessions are incognito contexts
// on top of it, so parallel runs never share cookies or storage.
type BrowserAdapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      BrowserConfig

	mu     sync.Mutex
	closed bool
}

func NewBrowserAdapter(ctx context.Context, cfg BrowserConfig) (*BrowserAdapter, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain")
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(controlURL).
		SlowMotion(cfg.SlowMotion)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return &BrowserAdapter{
		browser:  browser,
		launcher: l,
		cfg:      cfg,
	}, nil
}

func (b *BrowserAdapter) NewSession(ctx context.Context) (output.BrowserSession, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("create browser context: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}

	return &Session{
		browser: incognito,
		page:    page,
		cfg:     b.cfg,
	}, nil
}

func (b *BrowserAdapter) IsReady() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.closed && b.browser != nil
}

func (b *BrowserAdapter) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true

	if b.browser != nil {
		_ = b.browser.Close()
	}
	if b.launcher != nil {
		b.launcher.Kill()
		b.launcher.Cleanup()
	}
}

type Session struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     BrowserConfig
}

func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if err := validateURL(rawURL); err != nil {
		return err
	}

	page := s.page.Context(ctx)
	if err := page.Navigate(rawURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	_ = page.WaitIdle(idleWait)
	return nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	return html, nil
}

func (s *Session) Fill(ctx context.Context, selector, value string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return fmt.Errorf("field not found: %s: %w", selector, err)
	}

	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input failed: %w", err)
	}
	return nil
}

func (s *Session) Click(ctx context.Context, selector string) error {
	el, err := s.element(ctx, selector)
	if err != nil {
		return fmt.Errorf("element not found: %s: %w", selector, err)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	_ = s.page.Context(ctx).WaitIdle(idleWait)
	return nil
}

// Evaluate runs a JavaScript expression in the page and returns its JSON value.
func (s *Session) Evaluate(ctx context.Context, script string) (any, error) {
	res, err := s.page.Context(ctx).Timeout(s.cfg.Timeout).Eval(fmt.Sprintf("() => (%s)", script))
	if err != nil {
		return nil, fmt.Errorf("evaluate failed: %w", err)
	}
	return res.Value.Val(), nil
}

func (s *Session) SubmitNative(ctx context.Context, formSelector string) error {
	if strings.TrimSpace(formSelector) == "" {
		return ErrInvalidSelector
	}

	_, err := s.page.Context(ctx).Timeout(s.cfg.Timeout).Eval(`(sel) => {
		const form = document.querySelector(sel);
		if (!form) throw new Error("form not found: " + sel);
		form.submit();
	}`, formSelector)
	if err != nil {
		return fmt.Errorf("native submit failed: %w", err)
	}
	_ = s.page.Context(ctx).WaitIdle(idleWait)
	return nil
}

func (s *Session) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	format := "png"
	if strings.EqualFold(s.cfg.ScreenshotFormat, "jpeg") {
		req.Format = proto.PageCaptureScreenshotFormatJpeg
		req.Quality = gson.Int(s.cfg.ScreenshotQuality)
		format = "jpeg"
	}

	data, err := s.page.Context(ctx).Screenshot(true, req)
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
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
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *Session) Close() error {
	_ = s.page.Close()
	return s.browser.Close()
}

func (s *Session) element(ctx context.Context, selector string) (*rod.Element, error) {
	if strings.TrimSpace(selector) == "" {
		return nil, ErrInvalidSelector
	}

	page := s.page.Context(ctx).Timeout(s.cfg.Timeout)
	if isXPathSelector(selector) {
		return page.ElementX(selector)
	}
	return page.Element(selector)
}

func isXPathSelector(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
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
