package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voxa-ai/voxa/pkg/core"
	"github.com/voxa-ai/voxa/pkg/store"
)

// UsageTickInterval is how often the controller samples connected time while
// a session is active.
const UsageTickInterval = 5 * time.Second

// usageCounterKey is the settings key the persisted counter lives under.
const usageCounterKey = "usage_counter"

// Plan describes a subscription tier's monthly connected-time allowance.
// QuotaSeconds <= 0 means unlimited.
type Plan struct {
	Name         string
	QuotaSeconds int
}

// Unlimited reports whether the plan has no usage cap.
func (p Plan) Unlimited() bool {
	return p.QuotaSeconds <= 0
}

// usageCounter is the persisted accumulator. PeriodKey identifies the
// calendar month ("2026-08"); a mismatch against the current month resets
// the count before any other operation.
type usageCounter struct {
	PeriodKey   string `json:"period_key"`
	SecondsUsed int    `json:"seconds_used"`
}

// PeriodKey returns the calendar-month key for t, e.g. "2026-08".
func PeriodKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// UsageGovernor accumulates connected session time against a monthly plan
// quota and persists the counter across restarts. All methods roll the
// counter over first when the calendar month has changed, so a session
// spanning a month boundary bills the old month only for the seconds ticked
// before the boundary.
type UsageGovernor struct {
	settings store.Settings
	plan     Plan
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	counter usageCounter
	loaded  bool
}

// UsageOption configures a UsageGovernor.
type UsageOption func(*UsageGovernor)

// WithUsageClock overrides the governor's time source.
func WithUsageClock(now func() time.Time) UsageOption {
	return func(g *UsageGovernor) {
		if now != nil {
			g.now = now
		}
	}
}

// WithUsageLogger sets the governor's logger.
func WithUsageLogger(logger *slog.Logger) UsageOption {
	return func(g *UsageGovernor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewUsageGovernor creates a governor persisting through settings.
func NewUsageGovernor(settings store.Settings, plan Plan, opts ...UsageOption) *UsageGovernor {
	g := &UsageGovernor{
		settings: settings,
		plan:     plan,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Plan returns the governor's plan.
func (g *UsageGovernor) Plan() Plan {
	return g.plan
}

// load reads the persisted counter once. Corrupt or missing state starts a
// fresh counter for the current month. Caller holds g.mu.
func (g *UsageGovernor) load(ctx context.Context) {
	if g.loaded {
		return
	}
	g.loaded = true
	g.counter = usageCounter{PeriodKey: PeriodKey(g.now())}

	raw, ok, err := g.settings.Load(ctx, usageCounterKey)
	if err != nil {
		g.logger.Warn("usage counter load failed, starting fresh", "error", err)
		return
	}
	if !ok {
		return
	}
	var c usageCounter
	if err := json.Unmarshal([]byte(raw), &c); err != nil || c.PeriodKey == "" {
		g.logger.Warn("usage counter corrupt, starting fresh", "error", err)
		return
	}
	g.counter = c
}

// rollover resets the counter when the calendar month changed. Caller holds
// g.mu and must have called load.
func (g *UsageGovernor) rollover() {
	period := PeriodKey(g.now())
	if g.counter.PeriodKey != period {
		g.counter = usageCounter{PeriodKey: period}
	}
}

// persist writes the counter through the settings store. Persistence
// failures are logged and do not interrupt the session; the in-memory
// counter remains authoritative until the next successful save.
func (g *UsageGovernor) persist(ctx context.Context, c usageCounter) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := g.settings.Save(ctx, usageCounterKey, string(raw)); err != nil {
		g.logger.Warn("usage counter save failed", "error", err)
	}
}

// Tick records seconds of connected time and reports whether the quota is
// now exceeded. The month rollover applies before accumulation.
func (g *UsageGovernor) Tick(ctx context.Context, seconds int) bool {
	if seconds <= 0 {
		return g.Exceeded(ctx)
	}

	g.mu.Lock()
	g.load(ctx)
	g.rollover()
	g.counter.SecondsUsed += seconds
	snapshot := g.counter
	g.mu.Unlock()

	g.persist(ctx, snapshot)
	return !g.plan.Unlimited() && snapshot.SecondsUsed >= g.plan.QuotaSeconds
}

// Exceeded reports whether the current month's usage has reached the quota.
// Idempotent; does not mutate the counter beyond the month rollover.
func (g *UsageGovernor) Exceeded(ctx context.Context) bool {
	if g.plan.Unlimited() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.load(ctx)
	g.rollover()
	return g.counter.SecondsUsed >= g.plan.QuotaSeconds
}

// Remaining returns the seconds left this month, or -1 for unlimited plans.
func (g *UsageGovernor) Remaining(ctx context.Context) int {
	if g.plan.Unlimited() {
		return -1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.load(ctx)
	g.rollover()
	left := g.plan.QuotaSeconds - g.counter.SecondsUsed
	if left < 0 {
		return 0
	}
	return left
}

// Used returns the seconds accumulated in the current month.
func (g *UsageGovernor) Used(ctx context.Context) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.load(ctx)
	g.rollover()
	return g.counter.SecondsUsed
}

// CheckQuota returns a quota error when the plan is exhausted, for the
// pre-connect gate.
func (g *UsageGovernor) CheckQuota(ctx context.Context) error {
	if !g.Exceeded(ctx) {
		return nil
	}
	return core.NewQuotaExceededError(fmt.Sprintf("monthly voice quota for plan %q exhausted", g.plan.Name))
}
