package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"removal-agent/internal/application/port/input"
	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"
	"removal-agent/internal/usecase/advisor"
	"removal-agent/internal/usecase/captcha"
	"removal-agent/internal/usecase/email"
	"removal-agent/internal/usecase/extraction"
	"removal-agent/internal/usecase/form"

	"github.com/google/uuid"
)

const (
	resultNoRemovalPath = "Could not find removal path."
	resultNoFormOrEmail = "No form or email found."
	resultFormSubmitted = "Form submitted"

	stepNavigate        = "navigate"
	stepFindRemovalPath = "find_removal_path"
	stepSubmitForm      = "submit_form"
)

var (
	ErrNavigation  = errors.New("navigation failed")
	ErrSubmission  = errors.New("form submission failed")
	ErrLedgerWrite = errors.New("ledger update failed")
)

var _ input.WorkflowRunner = (*UseCase)(nil)

type Config struct {
	Profile     entity.Profile
	StepTimeout time.Duration
	// CaptchaTimeout bounds solving inside submit_form. Submission itself gets
	// a fresh StepTimeout afterwards.
	CaptchaTimeout time.Duration
	// DiscoveryScreenshot reloads the page once more after discovery to
	// capture its state.
	DiscoveryScreenshot bool
	Now                 func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Profile:             entity.DefaultProfile(),
		StepTimeout:         60 * time.Second,
		CaptchaTimeout:      190 * time.Second,
		DiscoveryScreenshot: true,
		Now:                 time.Now,
	}
}

// Deps are the collaborators a run needs. UserInteraction may be nil.
type Deps struct {
	Browser         output.BrowserPort
	Ledger          output.LedgerPort
	Screenshots     output.ScreenshotSinkPort
	Logger          output.LoggerPort
	UserInteraction output.UserInteractionPort

	Extractor  *extraction.Extractor
	Advisor    *advisor.Advisor
	Classifier *captcha.Classifier
	Resolver   *captcha.Resolver
	Executor   *form.Executor
	Dispatcher *email.Dispatcher
}

type UseCase struct {
	deps Deps
	cfg  Config
}

func New(deps Deps, cfg Config) *UseCase {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultConfig().StepTimeout
	}
	if cfg.CaptchaTimeout <= 0 {
		cfg.CaptchaTimeout = DefaultConfig().CaptchaTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if deps.Extractor == nil {
		deps.Extractor = extraction.NewExtractor()
	}
	if deps.Classifier == nil {
		deps.Classifier = captcha.NewClassifier()
	}
	return &UseCase{deps: deps, cfg: cfg}
}

type stepFunc func(ctx context.Context, run *run) error

// run binds one state to its logger for the lifetime of Run.
type run struct {
	state  *entity.WorkflowState
	logger output.LoggerPort
}

// Run drives one target through the state machine until a terminal status.
// The returned state is never nil; the error is set only for failed runs.
func (uc *UseCase) Run(ctx context.Context, target entity.Target) (*entity.WorkflowState, error) {
	r := &run{
		state:  entity.NewWorkflowState(target),
		logger: uc.deps.Logger.WithFields(map[string]any{
			"run_id":      uuid.NewString(),
			"broker_id":   target.BrokerID,
			"broker_name": target.BrokerName,
			"url":         target.URL,
		}),
	}

	r.logger.Info("Removal run started")
	if uc.deps.UserInteraction != nil {
		uc.deps.UserInteraction.ShowRunStart(ctx, target)
	}

	for !r.state.IsTerminal() {
		step, name, err := uc.next(r.state.Status())
		if err != nil {
			return r.state, uc.fail(ctx, r, err)
		}

		r.logger.Debug("Running step", "step", name, "status", r.state.Status())

		// submit_form sets its own deadlines per phase.
		stepCtx, cancel := ctx, context.CancelFunc(func() {})
		if name != stepSubmitForm {
			stepCtx, cancel = context.WithTimeout(ctx, uc.cfg.StepTimeout)
		}
		err = step(stepCtx, r)
		cancel()

		if err != nil {
			return r.state, uc.fail(ctx, r, err)
		}
	}

	uc.report(ctx, r)
	return r.state, nil
}

// next maps every status to its step. Terminal statuses never reach here.
func (uc *UseCase) next(status entity.Status) (stepFunc, string, error) {
	switch status {
	case entity.StatusInitialized:
		return uc.navigate, stepNavigate, nil
	case entity.StatusNavigated:
		return uc.findRemovalPath, stepFindRemovalPath, nil
	case entity.StatusRemovalPathFound:
		return uc.findFormOrEmail, "find_form_or_email", nil
	case entity.StatusFormFound:
		return uc.submitForm, stepSubmitForm, nil
	case entity.StatusEmailFound:
		return uc.sendEmail, "send_email", nil
	case entity.StatusManualIntervention, entity.StatusFormSubmitted, entity.StatusEmailSent, entity.StatusFailed:
		return nil, "", fmt.Errorf("%w: %s is terminal", entity.ErrInvalidTransition, status)
	default:
		return nil, "", fmt.Errorf("%w: unknown status %q", entity.ErrInvalidTransition, status)
	}
}

func (uc *UseCase) navigate(ctx context.Context, r *run) error {
	url := r.state.TargetURL()
	uc.record(ctx, r, "Navigating to %s", url)

	snapshot, err := uc.load(ctx, url, r.state.Target().BrokerName, stepNavigate, r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNavigation, err)
	}

	if err := r.state.MarkNavigated(snapshot); err != nil {
		return err
	}
	uc.record(ctx, r, "Navigation complete.")
	return nil
}

func (uc *UseCase) findRemovalPath(ctx context.Context, r *run) error {
	html := r.state.Page().HTML

	candidates, err := uc.deps.Extractor.Extract(html)
	if err != nil {
		r.logger.Warn("Candidate extraction failed", "error", err)
	}
	r.logger.Info("Removal candidates extracted", "count", len(candidates))

	if uc.deps.Advisor != nil {
		advice := uc.deps.Advisor.Advise(ctx, candidates)
		uc.record(ctx, r, "Oracle suggestion: %s", advice.Reply)
		if advice.Choice != nil {
			uc.record(ctx, r, "Oracle picked %s %q (%s)", advice.Choice.ElementType, advice.Choice.Text, advice.Choice.Selector)
		}
	}

	if match, ok := extraction.FindRemovalPath(html); ok {
		if err := r.state.MarkRemovalPathFound(); err != nil {
			return err
		}
		uc.record(ctx, r, "Found likely removal path: %s", match)
	} else if err := r.state.Finish(entity.StatusManualIntervention, resultNoRemovalPath); err != nil {
		return err
	}

	if uc.cfg.DiscoveryScreenshot {
		if _, err := uc.load(ctx, r.state.TargetURL(), r.state.Target().BrokerName, stepFindRemovalPath, r); err != nil {
			r.logger.Warn("Discovery screenshot failed", "error", err)
		}
	}
	return nil
}

func (uc *UseCase) findFormOrEmail(ctx context.Context, r *run) error {
	html := r.state.Page().HTML

	discovered, err := extraction.FindForm(html, r.state.TargetURL())
	if err != nil {
		r.logger.Warn("Form discovery failed", "error", err)
	}
	if discovered != nil {
		if err := r.state.MarkFormFound(discovered); err != nil {
			return err
		}
		uc.record(ctx, r, "Found removal form.")
		uc.record(ctx, r, "Form action: %s, method: %s", discovered.Action, discovered.Method)
		return nil
	}

	if addr := extraction.FindEmail(html); addr != "" {
		if err := r.state.MarkEmailFound(addr); err != nil {
			return err
		}
		uc.record(ctx, r, "Found email address: %s", addr)
		return nil
	}

	return r.state.Finish(entity.StatusManualIntervention, resultNoFormOrEmail)
}

func (uc *UseCase) submitForm(ctx context.Context, r *run) error {
	discovered := r.state.Form()
	pageURL := r.state.TargetURL()

	descriptor := uc.deps.Classifier.Classify(r.state.Page().HTML)
	var resolution captcha.Resolution
	if descriptor.Present() {
		uc.record(ctx, r, "Detected captcha type: %s", descriptor.Kind)
		if uc.deps.Resolver != nil {
			solveCtx, cancelSolve := context.WithTimeout(ctx, uc.cfg.CaptchaTimeout)
			resolution = uc.deps.Resolver.Resolve(solveCtx, descriptor, pageURL)
			cancelSolve()
		} else {
			resolution.Notes = []string{fmt.Sprintf("Error solving captcha: %v", captcha.ErrSolverUnavailable)}
		}
		for _, note := range resolution.Notes {
			uc.record(ctx, r, "%s", note)
		}
	}

	mappings := form.MapFields(discovered)
	r.logger.Info("Form fields mapped", "mapped", len(mappings), "fields", len(discovered.Fields))

	submitCtx, cancel := context.WithTimeout(ctx, uc.cfg.StepTimeout)
	defer cancel()

	report, err := uc.deps.Executor.Submit(submitCtx, form.Submission{
		Target:       r.state.Target(),
		Form:         discovered,
		Mappings:     mappings,
		Profile:      uc.cfg.Profile,
		CaptchaKind:  descriptor.Kind,
		CaptchaToken: resolution.Token,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	for _, note := range report.Notes {
		uc.record(ctx, r, "%s", note)
	}
	r.state.AddScreenshot(report.Screenshot)

	if err := uc.markRequested(ctx, r); err != nil {
		return err
	}

	uc.record(ctx, r, "Submitted removal form.")
	return r.state.Finish(entity.StatusFormSubmitted, resultFormSubmitted)
}

func (uc *UseCase) sendEmail(ctx context.Context, r *run) error {
	to := r.state.Email()

	if err := uc.deps.Dispatcher.Dispatch(ctx, to, uc.cfg.Profile); err != nil {
		return err
	}
	uc.record(ctx, r, "Sent removal email to %s.", to)

	if err := uc.markRequested(ctx, r); err != nil {
		return err
	}

	return r.state.Finish(entity.StatusEmailSent, fmt.Sprintf("Email sent to %s", to))
}

// load opens a fresh session, navigates and captures markup plus screenshot.
// The session is closed before returning.
func (uc *UseCase) load(ctx context.Context, url, brokerName, step string, r *run) (*entity.PageSnapshot, error) {
	session, err := uc.deps.Browser.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			r.logger.Warn("Failed to close browser session", "error", err)
		}
	}()

	if err := session.Navigate(ctx, url); err != nil {
		return nil, err
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	snapshot := &entity.PageSnapshot{
		URL:        session.CurrentURL(),
		HTML:       html,
		CapturedAt: uc.cfg.Now(),
	}

	shot, err := session.Screenshot(ctx)
	if err != nil {
		r.logger.Warn("Screenshot failed", "step", step, "error", err)
		return snapshot, nil
	}
	path, err := uc.deps.Screenshots.Save(ctx, shot, brokerName, step)
	if err != nil {
		r.logger.Warn("Saving screenshot failed", "step", step, "error", err)
		return snapshot, nil
	}
	snapshot.Screenshot = path
	r.state.AddScreenshot(path)
	return snapshot, nil
}

func (uc *UseCase) markRequested(ctx context.Context, r *run) error {
	target := r.state.Target()
	if !target.HasBroker() || uc.deps.Ledger == nil {
		return nil
	}

	at := uc.cfg.Now()
	if err := uc.deps.Ledger.MarkRequested(ctx, target.BrokerID, at); err != nil {
		return fmt.Errorf("%w for broker %d: %w", ErrLedgerWrite, target.BrokerID, err)
	}
	uc.record(ctx, r, "Ledger updated: %s at %s", entity.RemovalRequested, at.Format(time.RFC3339))
	return nil
}

func (uc *UseCase) fail(ctx context.Context, r *run, cause error) error {
	r.logger.Error("Removal run failed", "status", r.state.Status(), "error", cause)
	if !r.state.IsTerminal() {
		if err := r.state.Fail(cause); err != nil {
			r.logger.Error("Could not mark run as failed", "error", err)
		}
	}
	uc.report(ctx, r)
	return cause
}

func (uc *UseCase) record(ctx context.Context, r *run, format string, args ...any) {
	entry := fmt.Sprintf(format, args...)
	r.state.Record(entry)
	r.logger.Info(entry, "status", r.state.Status())
	if uc.deps.UserInteraction != nil {
		uc.deps.UserInteraction.ShowStep(ctx, r.state.Status(), entry)
	}
}

func (uc *UseCase) report(ctx context.Context, r *run) {
	r.logger.Info("Removal run finished",
		"status", r.state.Status(),
		"result", r.state.Result(),
		"history", r.state.History(),
		"screenshots", r.state.Screenshots(),
	)
	if uc.deps.UserInteraction != nil {
		uc.deps.UserInteraction.ShowRunResult(ctx, r.state)
	}
}
