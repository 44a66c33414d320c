package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"removal-agent/internal/domain/entity"
	"removal-agent/internal/infrastructure/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	mu      sync.Mutex
	active  int32
	peak    int32
	delay   time.Duration
	fail    map[string]error
	started map[string][]time.Time
}

func newRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]error{}, started: map[string][]time.Time{}}
}

func (r *fakeRunner) Run(_ context.Context, target entity.Target) (*entity.WorkflowState, error) {
	n := atomic.AddInt32(&r.active, 1)
	defer atomic.AddInt32(&r.active, -1)
	for {
		p := atomic.LoadInt32(&r.peak)
		if n <= p || atomic.CompareAndSwapInt32(&r.peak, p, n) {
			break
		}
	}

	r.mu.Lock()
	host := hostOf(target.URL)
	r.started[host] = append(r.started[host], time.Now())
	err := r.fail[target.URL]
	r.mu.Unlock()

	time.Sleep(r.delay)
	state := entity.NewWorkflowState(target)
	return state, err
}

type fakeLedger struct {
	entries []entity.BrokerLedgerEntry
	err     error
}

func (l *fakeLedger) ListPending(context.Context) ([]entity.BrokerLedgerEntry, error) {
	return l.entries, l.err
}
func (l *fakeLedger) MarkRequested(context.Context, uint64, time.Time) error { return nil }
func (l *fakeLedger) Reset(context.Context, uint64) error                    { return nil }
func (l *fakeLedger) Get(context.Context, uint64) (*entity.BrokerLedgerEntry, error) {
	return nil, entity.ErrBrokerNotFound
}
func (l *fakeLedger) List(context.Context) ([]entity.BrokerLedgerEntry, error) { return l.entries, nil }
func (l *fakeLedger) Insert(context.Context, string, string) (*entity.BrokerLedgerEntry, error) {
	return nil, nil
}
func (l *fakeLedger) Close() error { return nil }

func targets(urls ...string) []entity.Target {
	out := make([]entity.Target, 0, len(urls))
	for i, u := range urls {
		out = append(out, entity.Target{URL: u, BrokerID: uint64(i + 1)})
	}
	return out
}

func TestProcess_BoundsConcurrency(t *testing.T) {
	runner := newRunner()
	runner.delay = 20 * time.Millisecond
	uc := New(runner, &fakeLedger{}, logger.Nop(), nil, Config{Concurrency: 2})

	outcomes := uc.Process(context.Background(), targets(
		"https://a.example", "https://b.example", "https://c.example",
		"https://d.example", "https://e.example", "https://f.example",
	))

	require.Len(t, outcomes, 6)
	assert.LessOrEqual(t, runner.peak, int32(2))
	assert.Equal(t, int32(2), runner.peak)
	for i, o := range outcomes {
		assert.Equal(t, uint64(i+1), o.Target.BrokerID)
		assert.NoError(t, o.Err)
		assert.NotNil(t, o.State)
	}
}

func TestProcess_FailureDoesNotAbortOthers(t *testing.T) {
	runner := newRunner()
	runner.fail["https://b.example"] = errors.New("smtp down")
	uc := New(runner, &fakeLedger{}, logger.Nop(), nil, Config{Concurrency: 3})

	outcomes := uc.Process(context.Background(), targets("https://a.example", "https://b.example", "https://c.example"))

	assert.NoError(t, outcomes[0].Err)
	assert.EqualError(t, outcomes[1].Err, "smtp down")
	assert.NoError(t, outcomes[2].Err)
}

func TestProcess_RateLimitsSameHost(t *testing.T) {
	runner := newRunner()
	uc := New(runner, &fakeLedger{}, logger.Nop(), nil, Config{Concurrency: 4, PerHostInterval: 50 * time.Millisecond})

	uc.Process(context.Background(), targets(
		"https://same.example/a", "https://SAME.example/b", "https://other.example/",
	))

	starts := runner.started["same.example"]
	require.Len(t, starts, 2)
	gap := starts[1].Sub(starts[0])
	if gap < 0 {
		gap = -gap
	}
	assert.GreaterOrEqual(t, gap, 40*time.Millisecond)
	assert.Len(t, runner.started["other.example"], 1)
}

func TestProcess_CancelledContext(t *testing.T) {
	runner := newRunner()
	uc := New(runner, &fakeLedger{}, logger.Nop(), nil, Config{Concurrency: 1, PerHostInterval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := uc.Process(ctx, targets("https://x.example/1", "https://x.example/2"))
	require.Len(t, outcomes, 2)
	assert.Error(t, outcomes[1].Err)
}

func TestProcessPending(t *testing.T) {
	runner := newRunner()
	ledger := &fakeLedger{entries: []entity.BrokerLedgerEntry{
		{ID: 4, Name: "Acme", URL: "https://acme.example", RemovalState: entity.RemovalNotSubmitted},
	}}
	uc := New(runner, ledger, logger.Nop(), nil, DefaultConfig())

	outcomes, err := uc.ProcessPending(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, entity.Target{URL: "https://acme.example", BrokerID: 4, BrokerName: "Acme"}, outcomes[0].Target)
}

func TestProcessPending_LedgerError(t *testing.T) {
	uc := New(newRunner(), &fakeLedger{err: errors.New("closed")}, logger.Nop(), nil, DefaultConfig())
	_, err := uc.ProcessPending(context.Background())
	assert.ErrorContains(t, err, "closed")
}

func TestNew_ClampsConcurrency(t *testing.T) {
	assert.Equal(t, 1, New(nil, nil, logger.Nop(), nil, Config{}).cfg.Concurrency)
	assert.Equal(t, maxConcurrency, New(nil, nil, logger.Nop(), nil, Config{Concurrency: 100}).cfg.Concurrency)
}
