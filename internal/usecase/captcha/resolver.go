package captcha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
)

var (
	ErrNoSitekey         = errors.New("recaptcha site key not found")
	ErrSolverUnavailable = errors.New("captcha solver unavailable")
)

const maxTokenInHistory = 48

type ResolverConfig struct {
	TempDir         string
	DownloadTimeout time.Duration
}

func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		TempDir:         os.TempDir(),
		DownloadTimeout: 30 * time.Second,
	}
}

// Resolution carries the token, if any, and the notes destined for the run
// history. A missing token is never an error.
type Resolution struct {
	Token string
	Notes []string
}

type Resolver struct {
	solver output.CaptchaSolverPort
	client *http.Client
	logger output.LoggerPort
	cfg    ResolverConfig
}

func NewResolver(solver output.CaptchaSolverPort, client *http.Client, logger output.LoggerPort, cfg ResolverConfig) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: cfg.DownloadTimeout}
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Resolver{
		solver: solver,
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

func (r *Resolver) Resolve(ctx context.Context, d entity.CaptchaDescriptor, pageURL string) Resolution {
	if !d.Present() {
		return Resolution{}
	}

	var res Resolution
	note := func(format string, args ...any) {
		res.Notes = append(res.Notes, fmt.Sprintf(format, args...))
	}

	token, err := r.solve(ctx, d, pageURL)
	switch {
	case errors.Is(err, entity.ErrUnsupportedCaptcha):
		note("Captcha type %s detected but not implemented for solving.", d.Kind)
		return res
	case err != nil:
		r.logger.Warn("Captcha solving failed", "kind", d.Kind, "error", err)
		note("Error solving captcha: %v", err)
		return res
	case token == "":
		note("Could not solve captcha of type %s", d.Kind)
		return res
	}

	r.logger.Info("Captcha solved", "kind", d.Kind)
	note("Captcha solved: %s", abbreviate(token))
	res.Token = token
	return res
}

func (r *Resolver) solve(ctx context.Context, d entity.CaptchaDescriptor, pageURL string) (string, error) {
	req := entity.CaptchaRequest{Kind: d.Kind, PageURL: pageURL}

	switch d.Kind {
	case entity.CaptchaRecaptchaV2, entity.CaptchaRecaptchaV3:
		if d.SiteKey == "" {
			return "", ErrNoSitekey
		}
		req.SiteKey = d.SiteKey
	case entity.CaptchaNormalImage:
		path, err := r.download(ctx, d.ImageSrc, pageURL)
		if err != nil {
			return "", err
		}
		defer os.Remove(path)
		req.ImagePath = path
	case entity.CaptchaTextQuestion:
		req.Question = d.Question
	default:
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedCaptcha, d.Kind)
	}

	if r.solver == nil {
		return "", ErrSolverUnavailable
	}

	solution, err := r.solver.Solve(ctx, req)
	if err != nil {
		return "", err
	}
	if solution == nil {
		return "", nil
	}
	return solution.Token, nil
}

// download fetches the challenge image into a temp file the caller removes.
func (r *Resolver) download(ctx context.Context, src, pageURL string) (string, error) {
	imageURL, err := resolveURL(src, pageURL)
	if err != nil {
		return "", fmt.Errorf("resolve captcha image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download captcha image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download captcha image: status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp(r.cfg.TempDir, "captcha-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.Body); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("write captcha image: %w", err)
	}

	return file.Name(), nil
}

func resolveURL(src, pageURL string) (string, error) {
	ref, err := url.Parse(src)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func abbreviate(token string) string {
	runes := []rune(token)
	if len(runes) <= maxTokenInHistory {
		return token
	}
	return string(runes[:maxTokenInHistory]) + "..."
}
