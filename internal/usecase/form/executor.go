package form

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
)

const (
	fallbackSubmitSelector = "form button, form input[type=submit]"
	submitScreenshotStep   = "submit_form"
)

var ErrRecaptchaFieldMissing = errors.New("recaptcha response field not found")

// Submission is everything needed to replay a discovered form in a fresh
// browser session.
type Submission struct {
	Target       entity.Target
	Form         *entity.DiscoveredForm
	Mappings     []entity.FieldMapping
	Profile      entity.Profile
	CaptchaKind  entity.CaptchaKind
	CaptchaToken string
}

// Report lists what happened. Fill, injection and click problems are notes,
// not errors.
type Report struct {
	Filled     int
	Notes      []string
	Screenshot string
	Submitted  bool
}

type Executor struct {
	browser output.BrowserPort
	sink    output.ScreenshotSinkPort
	logger  output.LoggerPort
}

func NewExecutor(browser output.BrowserPort, sink output.ScreenshotSinkPort, logger output.LoggerPort) *Executor {
	return &Executor{
		browser: browser,
		sink:    sink,
		logger:  logger,
	}
}

// Submit returns an error only when the page cannot be opened again.
func (e *Executor) Submit(ctx context.Context, sub Submission) (*Report, error) {
	session, err := e.browser.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			e.logger.Warn("Failed to close browser session", "error", err)
		}
	}()

	if err := session.Navigate(ctx, sub.Target.URL); err != nil {
		return nil, fmt.Errorf("navigate for submission: %w", err)
	}

	report := &Report{}
	note := func(format string, args ...any) {
		report.Notes = append(report.Notes, fmt.Sprintf(format, args...))
	}

	for _, m := range sub.Mappings {
		value := sub.Profile.Value(m.Field)
		if err := session.Fill(ctx, m.Selector, value); err != nil {
			e.logger.Warn("Field fill failed", "field", m.Name, "error", err)
			note("Could not fill %s: %v", m.Name, err)
			continue
		}
		e.logger.Debug("Field filled", "field", m.Name, "profile_field", m.Field)
		report.Filled++
	}

	if sub.CaptchaToken != "" {
		if err := e.injectCaptcha(ctx, session, sub); err != nil {
			e.logger.Warn("Captcha injection failed", "kind", sub.CaptchaKind, "error", err)
			note("Could not inject captcha solution: %v", err)
		} else {
			note("Injected captcha solution for %s", sub.CaptchaKind)
		}
	}

	if err := session.Click(ctx, submitSelector(sub.Form)); err != nil {
		e.logger.Warn("Submit click failed, trying native submit", "error", err)
		if err := session.SubmitNative(ctx, sub.Form.Selector); err != nil {
			e.logger.Error("Native submit failed", "error", err)
			note("Could not submit the form: %v", err)
		} else {
			note("Submitted the form via native submit.")
			report.Submitted = true
		}
	} else {
		report.Submitted = true
	}

	report.Screenshot = e.capture(ctx, session, sub.Target.BrokerName)
	return report, nil
}

func (e *Executor) injectCaptcha(ctx context.Context, session output.BrowserSession, sub Submission) error {
	switch sub.CaptchaKind {
	case entity.CaptchaRecaptchaV2, entity.CaptchaRecaptchaV3:
		literal, err := json.Marshal(sub.CaptchaToken)
		if err != nil {
			return err
		}
		script := fmt.Sprintf(`(() => {
			const el = document.querySelector('[name="g-recaptcha-response"]');
			if (!el) { return false; }
			el.value = %s;
			return true;
		})()`, literal)
		res, err := session.Evaluate(ctx, script)
		if err != nil {
			return err
		}
		if injected, _ := res.(bool); !injected {
			return ErrRecaptchaFieldMissing
		}
		return nil
	case entity.CaptchaNormalImage, entity.CaptchaTextQuestion:
		selector := captchaInputSelector(sub.Form)
		if selector == "" {
			return fmt.Errorf("no captcha input in form")
		}
		return session.Fill(ctx, selector, sub.CaptchaToken)
	default:
		return fmt.Errorf("%w: %s", entity.ErrUnsupportedCaptcha, sub.CaptchaKind)
	}
}

func (e *Executor) capture(ctx context.Context, session output.BrowserSession, brokerName string) string {
	shot, err := session.Screenshot(ctx)
	if err != nil {
		e.logger.Warn("Submission screenshot failed", "error", err)
		return ""
	}
	path, err := e.sink.Save(ctx, shot, brokerName, submitScreenshotStep)
	if err != nil {
		e.logger.Warn("Saving submission screenshot failed", "error", err)
		return ""
	}
	return path
}

func submitSelector(form *entity.DiscoveredForm) string {
	if form.Submit != nil && form.Submit.Name != "" {
		return NameSelector(form.Submit.Name)
	}
	return fallbackSubmitSelector
}
