package batch

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"removal-agent/internal/application/port/input"
	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const maxConcurrency = 32

var _ input.BatchProcessor = (*UseCase)(nil)

type Config struct {
	Concurrency     int
	PerHostInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:     2,
		PerHostInterval: 2 * time.Second,
	}
}

type UseCase struct {
	runner          input.WorkflowRunner
	ledger          output.LedgerPort
	logger          output.LoggerPort
	userInteraction output.UserInteractionPort
	cfg             Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(
	runner input.WorkflowRunner,
	ledger output.LedgerPort,
	logger output.LoggerPort,
	userInteraction output.UserInteractionPort,
	cfg Config,
) *UseCase {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Concurrency > maxConcurrency {
		cfg.Concurrency = maxConcurrency
	}
	return &UseCase{
		runner:          runner,
		ledger:          ledger,
		logger:          logger,
		userInteraction: userInteraction,
		cfg:             cfg,
		limiters:        make(map[string]*rate.Limiter),
	}
}

func (uc *UseCase) ProcessPending(ctx context.Context) ([]entity.RunOutcome, error) {
	entries, err := uc.ledger.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending brokers: %w", err)
	}

	targets := make([]entity.Target, 0, len(entries))
	for _, e := range entries {
		targets = append(targets, e.Target())
	}

	uc.logger.Info("Processing pending brokers", "count", len(targets), "concurrency", uc.cfg.Concurrency)
	return uc.Process(ctx, targets), nil
}

// Process runs every target on a bounded pool. Outcomes keep input order and
// one failed run never cancels the others.
func (uc *UseCase) Process(ctx context.Context, targets []entity.Target) []entity.RunOutcome {
	outcomes := make([]entity.RunOutcome, len(targets))

	var g errgroup.Group
	g.SetLimit(uc.cfg.Concurrency)

	for i, target := range targets {
		g.Go(func() error {
			outcomes[i] = uc.processOne(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	uc.logger.Info("Batch finished", "total", len(outcomes), "failed", failed)

	if uc.userInteraction != nil {
		uc.userInteraction.ShowBatchSummary(ctx, outcomes)
	}
	return outcomes
}

func (uc *UseCase) processOne(ctx context.Context, target entity.Target) entity.RunOutcome {
	if err := uc.limiter(target.URL).Wait(ctx); err != nil {
		return entity.RunOutcome{Target: target, Err: fmt.Errorf("wait for host slot: %w", err)}
	}

	state, err := uc.runner.Run(ctx, target)
	if err != nil {
		uc.logger.Warn("Broker run failed", "broker_id", target.BrokerID, "url", target.URL, "error", err)
	}
	return entity.RunOutcome{Target: target, State: state, Err: err}
}

func (uc *UseCase) limiter(rawURL string) *rate.Limiter {
	host := hostOf(rawURL)

	uc.mu.Lock()
	defer uc.mu.Unlock()

	l, ok := uc.limiters[host]
	if !ok {
		limit := rate.Inf
		if uc.cfg.PerHostInterval > 0 {
			limit = rate.Every(uc.cfg.PerHostInterval)
		}
		l = rate.NewLimiter(limit, 1)
		uc.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return strings.ToLower(u.Hostname())
}
