package twocaptcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
)

const notReady = "CAPCHA_NOT_READY"

var (
	ErrTimeout  = errors.New("captcha solving timed out")
	ErrRejected = errors.New("captcha service rejected the request")
)

var _ output.CaptchaSolverPort = (*Client)(nil)

type Config struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
}

func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:       apiKey,
		BaseURL:      "https://2captcha.com",
		PollInterval: 5 * time.Second,
		Timeout:      180 * time.Second,
	}
}

// Client speaks the 2captcha in.php/res.php protocol: submit a task, then
// poll until the answer is ready or the timeout passes.
type Client struct {
	cfg    Config
	http   *http.Client
	logger output.LoggerPort
}

func NewClient(cfg Config, httpClient *http.Client, logger output.LoggerPort) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig("").BaseURL
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger}
}

type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

func (c *Client) Solve(ctx context.Context, req entity.CaptchaRequest) (*entity.CaptchaSolution, error) {
	params, err := taskParams(req)
	if err != nil {
		return nil, err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	id, err := c.submit(ctx, params)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Captcha task submitted", "kind", req.Kind, "task_id", id)

	token, err := c.poll(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.CaptchaSolution{Kind: req.Kind, Token: token}, nil
}

func taskParams(req entity.CaptchaRequest) (url.Values, error) {
	params := url.Values{}

	switch req.Kind {
	case entity.CaptchaRecaptchaV2, entity.CaptchaRecaptchaV3:
		params.Set("method", "userrecaptcha")
		params.Set("googlekey", req.SiteKey)
		params.Set("pageurl", req.PageURL)
		if req.Kind == entity.CaptchaRecaptchaV3 {
			params.Set("version", "v3")
		}
	case entity.CaptchaNormalImage:
		data, err := os.ReadFile(req.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("read captcha image: %w", err)
		}
		params.Set("method", "base64")
		params.Set("body", base64.StdEncoding.EncodeToString(data))
	case entity.CaptchaTextQuestion:
		params.Set("textcaptcha", req.Question)
	default:
		return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedCaptcha, req.Kind)
	}
	return params, nil
}

func (c *Client) submit(ctx context.Context, params url.Values) (string, error) {
	params.Set("key", c.cfg.APIKey)
	params.Set("json", "1")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/in.php", strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(httpReq)
	if err != nil {
		return "", fmt.Errorf("submit captcha: %w", err)
	}
	if resp.Status != 1 {
		return "", fmt.Errorf("%w: %s", ErrRejected, resp.Request)
	}
	return resp.Request, nil
}

func (c *Client) poll(ctx context.Context, id string) (string, error) {
	query := url.Values{}
	query.Set("key", c.cfg.APIKey)
	query.Set("action", "get")
	query.Set("id", id)
	query.Set("json", "1")
	endpoint := c.cfg.BaseURL + "/res.php?" + query.Encode()

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrTimeout
			}
			return "", ctx.Err()
		case <-ticker.C:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("build poll request: %w", err)
		}

		resp, err := c.do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			return "", fmt.Errorf("poll captcha: %w", err)
		}

		switch {
		case resp.Status == 1:
			return resp.Request, nil
		case resp.Request == notReady:
			continue
		default:
			return "", fmt.Errorf("%w: %s", ErrRejected, resp.Request)
		}
	}
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
