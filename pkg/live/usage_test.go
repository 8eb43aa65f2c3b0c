package live

import (
	"context"
	"testing"
	"time"

	"github.com/voxa-ai/voxa/pkg/core"
	"github.com/voxa-ai/voxa/pkg/store"
)

func TestPeriodKeyFormat(t *testing.T) {
	got := PeriodKey(time.Date(2026, time.March, 9, 4, 0, 0, 0, time.UTC))
	if got != "2026-03" {
		t.Fatalf("PeriodKey = %q, want 2026-03", got)
	}
}

func TestUsageTickAccumulatesAndTrips(t *testing.T) {
	ctx := context.Background()
	g := NewUsageGovernor(store.NewMemory(), Plan{Name: "starter", QuotaSeconds: 3600})

	// 3595 used, then one 5-second tick lands exactly on the quota.
	if exceeded := g.Tick(ctx, 3595); exceeded {
		t.Fatal("quota must not trip below the cap")
	}
	if exceeded := g.Tick(ctx, 5); !exceeded {
		t.Fatal("tick reaching the cap must report exceeded")
	}
	if !g.Exceeded(ctx) {
		t.Fatal("Exceeded must agree after the tripping tick")
	}
	if g.Remaining(ctx) != 0 {
		t.Fatalf("Remaining = %d, want 0", g.Remaining(ctx))
	}
}

func TestUsageExceededIdempotent(t *testing.T) {
	ctx := context.Background()
	g := NewUsageGovernor(store.NewMemory(), Plan{Name: "starter", QuotaSeconds: 10})
	g.Tick(ctx, 10)

	before := g.Used(ctx)
	g.Exceeded(ctx)
	g.Exceeded(ctx)
	if g.Used(ctx) != before {
		t.Fatalf("Exceeded mutated the counter: %d -> %d", before, g.Used(ctx))
	}
}

func TestUsageUnlimitedPlanNeverTrips(t *testing.T) {
	ctx := context.Background()
	g := NewUsageGovernor(store.NewMemory(), Plan{Name: "unlimited"})
	if g.Tick(ctx, 1<<20) {
		t.Fatal("unlimited plan must never report exceeded")
	}
	if g.Remaining(ctx) != -1 {
		t.Fatalf("Remaining = %d, want -1 for unlimited", g.Remaining(ctx))
	}
}

func TestUsageMonthRolloverResetsCounter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.August, 31, 23, 59, 50, 0, time.UTC)
	g := NewUsageGovernor(store.NewMemory(), Plan{Name: "starter", QuotaSeconds: 100},
		WithUsageClock(func() time.Time { return now }))

	g.Tick(ctx, 95)
	if g.Exceeded(ctx) {
		t.Fatal("95/100 must not be exceeded")
	}

	// Cross into September mid-session: the next tick bills the new month.
	now = now.Add(20 * time.Second)
	if g.Tick(ctx, 5) {
		t.Fatal("tick after rollover must start from zero")
	}
	if used := g.Used(ctx); used != 5 {
		t.Fatalf("used after rollover = %d, want 5", used)
	}
}

func TestUsagePersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	settings := store.NewMemory()

	g1 := NewUsageGovernor(settings, Plan{Name: "starter", QuotaSeconds: 3600})
	g1.Tick(ctx, 120)

	g2 := NewUsageGovernor(settings, Plan{Name: "starter", QuotaSeconds: 3600})
	if used := g2.Used(ctx); used != 120 {
		t.Fatalf("restarted governor used = %d, want 120", used)
	}
}

func TestUsageCorruptCounterStartsFresh(t *testing.T) {
	ctx := context.Background()
	settings := store.NewMemory()
	settings.Save(ctx, "usage_counter", "{not json")

	g := NewUsageGovernor(settings, Plan{Name: "starter", QuotaSeconds: 100})
	if used := g.Used(ctx); used != 0 {
		t.Fatalf("corrupt counter must reset, used = %d", used)
	}
}

func TestUsageCheckQuota(t *testing.T) {
	ctx := context.Background()
	g := NewUsageGovernor(store.NewMemory(), Plan{Name: "starter", QuotaSeconds: 10})
	if err := g.CheckQuota(ctx); err != nil {
		t.Fatalf("CheckQuota before exhaustion: %v", err)
	}
	g.Tick(ctx, 10)
	err := g.CheckQuota(ctx)
	if core.TypeOf(err) != core.ErrQuotaExceeded {
		t.Fatalf("CheckQuota error = %v, want quota_exceeded_error", err)
	}
}
