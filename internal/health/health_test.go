package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOverallStatusAggregation(t *testing.T) {
	c := NewChecker()
	if c.OverallStatus() != StatusUnknown {
		t.Errorf("empty checker status = %v", c.OverallStatus())
	}

	c.RegisterFunc("ok", true, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	c.RegisterFunc("flaky", false, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})
	c.Check(context.Background())

	// A failing non-critical component only degrades.
	if got := c.OverallStatus(); got != StatusDegraded {
		t.Errorf("status = %v, want degraded", got)
	}

	c.RegisterFunc("vital", true, func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy}
	})
	c.Check(context.Background())
	if got := c.OverallStatus(); got != StatusUnhealthy {
		t.Errorf("status = %v, want unhealthy", got)
	}
}

func TestCheckRecoversFromPanic(t *testing.T) {
	c := NewChecker()
	c.RegisterFunc("bomb", true, func(ctx context.Context) CheckResult {
		panic("boom")
	})

	results := c.Check(context.Background())
	if results["bomb"].Status != StatusUnhealthy {
		t.Errorf("panicking check = %+v", results["bomb"])
	}
}

func TestJournalCheck(t *testing.T) {
	ok := JournalCheck(func() error { return nil })
	if r := ok(context.Background()); r.Status != StatusHealthy {
		t.Errorf("clean journal = %+v", r)
	}

	bad := JournalCheck(func() error { return errors.New("record 3 HMAC mismatch") })
	if r := bad(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("tampered journal = %+v", r)
	}
}

func TestModelCheck(t *testing.T) {
	unfitted := ModelCheck(func() (time.Time, bool) { return time.Time{}, false }, 0)
	if r := unfitted(context.Background()); r.Status != StatusUnhealthy {
		t.Errorf("unfitted = %+v", r)
	}

	fresh := ModelCheck(func() (time.Time, bool) { return time.Now(), true }, time.Hour)
	if r := fresh(context.Background()); r.Status != StatusHealthy {
		t.Errorf("fresh = %+v", r)
	}

	stale := ModelCheck(func() (time.Time, bool) { return time.Now().Add(-2 * time.Hour), true }, time.Hour)
	if r := stale(context.Background()); r.Status != StatusDegraded {
		t.Errorf("stale = %+v", r)
	}
}
