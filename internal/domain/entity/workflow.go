package entity

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid workflow transition")

type Status string

const (
	StatusInitialized        Status = "initialized"
	StatusNavigated          Status = "navigated"
	StatusRemovalPathFound   Status = "removal_path_found"
	StatusManualIntervention Status = "manual_intervention_required"
	StatusFormFound          Status = "form_found"
	StatusEmailFound         Status = "email_found"
	StatusFormSubmitted      Status = "form_submitted"
	StatusEmailSent          Status = "email_sent"
	StatusFailed             Status = "failed"
)

// transitions lists every edge of the workflow graph. Statuses without
// outgoing edges are terminal.
var transitions = map[Status][]Status{
	StatusInitialized:        {StatusNavigated, StatusFailed},
	StatusNavigated:          {StatusRemovalPathFound, StatusManualIntervention, StatusFailed},
	StatusRemovalPathFound:   {StatusFormFound, StatusEmailFound, StatusManualIntervention, StatusFailed},
	StatusFormFound:          {StatusFormSubmitted, StatusFailed},
	StatusEmailFound:         {StatusEmailSent, StatusFailed},
	StatusManualIntervention: nil,
	StatusFormSubmitted:      nil,
	StatusEmailSent:          nil,
	StatusFailed:             nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	next, ok := transitions[s]
	return ok && len(next) == 0
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Target identifies what a single run processes. BrokerID zero means the run
// is not correlated to a ledger entry.
type Target struct {
	URL        string
	BrokerID   uint64
	BrokerName string
}

func (t Target) HasBroker() bool {
	return t.BrokerID != 0
}

// WorkflowState is owned by one run. History and screenshots only grow; the
// result is fixed when the run reaches a terminal status. The discovered form
// and email exist only while in form_found and email_found.
type WorkflowState struct {
	target      Target
	status      Status
	page        *PageSnapshot
	form        *DiscoveredForm
	email       string
	history     []string
	screenshots []string
	result      string
	err         error
}

func NewWorkflowState(target Target) *WorkflowState {
	return &WorkflowState{
		target: target,
		status: StatusInitialized,
	}
}

func (s *WorkflowState) Target() Target { return s.target }
func (s *WorkflowState) TargetURL() string { return s.target.URL }
func (s *WorkflowState) Status() Status { return s.status }
func (s *WorkflowState) Page() *PageSnapshot { return s.page }
func (s *WorkflowState) Form() *DiscoveredForm { return s.form }
func (s *WorkflowState) Email() string { return s.email }
func (s *WorkflowState) Result() string { return s.result }
func (s *WorkflowState) Err() error { return s.err }
func (s *WorkflowState) IsTerminal() bool { return s.status.IsTerminal() }
func (s *WorkflowState) Failed() bool { return s.status == StatusFailed }

func (s *WorkflowState) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

func (s *WorkflowState) Screenshots() []string {
	out := make([]string, len(s.screenshots))
	copy(out, s.screenshots)
	return out
}

func (s *WorkflowState) Record(entry string) {
	s.history = append(s.history, entry)
}

func (s *WorkflowState) AddScreenshot(path string) {
	if path == "" {
		return
	}
	s.screenshots = append(s.screenshots, path)
}

func (s *WorkflowState) MarkNavigated(page *PageSnapshot) error {
	if err := s.advance(StatusNavigated); err != nil {
		return err
	}
	s.page = page
	return nil
}

func (s *WorkflowState) MarkRemovalPathFound() error {
	return s.advance(StatusRemovalPathFound)
}

func (s *WorkflowState) MarkFormFound(form *DiscoveredForm) error {
	if form == nil {
		return fmt.Errorf("%w: form_found without a form", ErrInvalidTransition)
	}
	if err := s.advance(StatusFormFound); err != nil {
		return err
	}
	s.form = form
	return nil
}

func (s *WorkflowState) MarkEmailFound(address string) error {
	if address == "" {
		return fmt.Errorf("%w: email_found without an address", ErrInvalidTransition)
	}
	if err := s.advance(StatusEmailFound); err != nil {
		return err
	}
	s.email = address
	return nil
}

// Finish moves the run to a terminal status and fixes its result.
func (s *WorkflowState) Finish(status Status, result string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, status)
	}
	if status == StatusFailed {
		return s.Fail(errors.New(result))
	}
	if err := s.advance(status); err != nil {
		return err
	}
	s.result = result
	return nil
}

// Fail moves any non-terminal run to failed, keeping the cause.
func (s *WorkflowState) Fail(cause error) error {
	if err := s.advance(StatusFailed); err != nil {
		return err
	}
	if cause == nil {
		cause = errors.New("run failed")
	}
	s.err = cause
	s.result = cause.Error()
	return nil
}

func (s *WorkflowState) advance(next Status) error {
	if !s.status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.status, next)
	}
	s.status = next
	if next.IsTerminal() {
		s.form = nil
		s.email = ""
	}
	return nil
}

// RunOutcome summarizes one run inside a batch.
type RunOutcome struct {
	Target Target
	State  *WorkflowState
	Err    error
}
