package userinteraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"

	"removal-agent/internal/application/port/output"
	"removal-agent/internal/domain/entity"

	"github.com/fatih/color"
)

var _ output.UserInteractionPort = (*ConsoleUserInteraction)(nil)

// ConsoleUserInteraction prints run progress. Batch runs call it from several
// goroutines, so every write holds mu.
type ConsoleUserInteraction struct {
	out io.Writer
	mu  sync.Mutex
}

func NewConsoleUserInteraction() *ConsoleUserInteraction {
	return NewConsoleUserInteractionTo(os.Stdout)
}

func NewConsoleUserInteractionTo(w io.Writer) *ConsoleUserInteraction {
	return &ConsoleUserInteraction{out: w}
}

func (u *ConsoleUserInteraction) ShowRunStart(ctx context.Context, target entity.Target) {
	u.mu.Lock()
	defer u.mu.Unlock()

	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintf(u.out, "\n━━━ %s ━━━\n", label(target))
}

func (u *ConsoleUserInteraction) ShowStep(ctx context.Context, status entity.Status, entry string) {
	u.mu.Lock()
	defer u.mu.Unlock()

	dim := color.New(color.Faint)
	dim.Fprintf(u.out, "   [%s] ", status)
	fmt.Fprintln(u.out, truncate(entry, 200))
}

func (u *ConsoleUserInteraction) ShowRunResult(ctx context.Context, state *entity.WorkflowState) {
	if state == nil {
		return
	}
	u.mu.Lock()
	defer u.mu.Unlock()

	statusColor(state.Status()).Fprintf(u.out, "%s %s: %s\n", statusIcon(state.Status()), label(state.Target()), state.Status())
	fmt.Fprintf(u.out, "   Result: %s\n", state.Result())
	for _, path := range state.Screenshots() {
		fmt.Fprintf(u.out, "   📸 %s\n", path)
	}
}

func (u *ConsoleUserInteraction) ShowBatchSummary(ctx context.Context, outcomes []entity.RunOutcome) {
	u.mu.Lock()
	defer u.mu.Unlock()

	counts := make(map[entity.Status]int)
	for _, o := range outcomes {
		status := entity.StatusFailed
		if o.State != nil {
			status = o.State.Status()
		}
		counts[status]++
	}

	bold := color.New(color.Bold)
	bold.Fprintf(u.out, "\nProcessed %d broker(s)\n", len(outcomes))
	for _, s := range []entity.Status{
		entity.StatusFormSubmitted,
		entity.StatusEmailSent,
		entity.StatusManualIntervention,
		entity.StatusFailed,
	} {
		if counts[s] == 0 {
			continue
		}
		statusColor(s).Fprintf(u.out, "  %s %-28s %d\n", statusIcon(s), s, counts[s])
	}

	for _, o := range outcomes {
		if o.Err != nil {
			color.New(color.FgRed).Fprintf(u.out, "  ❌ %s: %v\n", label(o.Target), o.Err)
		}
	}
}

func (u *ConsoleUserInteraction) ShowLedger(ctx context.Context, entries []entity.BrokerLedgerEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(entries) == 0 {
		fmt.Fprintln(u.out, "Ledger is empty.")
		return
	}

	tw := tabwriter.NewWriter(u.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATE\tSUBMITTED\tURL")
	for _, e := range entries {
		submitted := "-"
		if e.SubmissionDate != nil {
			submitted = e.SubmissionDate.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, truncate(e.Name, 40), e.RemovalState, submitted, e.URL)
	}
	_ = tw.Flush()
}

func label(t entity.Target) string {
	if t.BrokerName != "" {
		return fmt.Sprintf("%s (%s)", t.BrokerName, t.URL)
	}
	return t.URL
}

func statusIcon(s entity.Status) string {
	switch s {
	case entity.StatusFormSubmitted, entity.StatusEmailSent:
		return "✓"
	case entity.StatusManualIntervention:
		return "⚠"
	case entity.StatusFailed:
		return "✗"
	default:
		return "•"
	}
}

func statusColor(s entity.Status) *color.Color {
	switch s {
	case entity.StatusFormSubmitted, entity.StatusEmailSent:
		return color.New(color.FgGreen, color.Bold)
	case entity.StatusManualIntervention:
		return color.New(color.FgYellow, color.Bold)
	case entity.StatusFailed:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
