package domain

import (
	"testing"
	"time"
)

func TestDeactivateIsMonotonic(t *testing.T) {
	now := time.Now()
	link := &Link{State: StateActive}

	link.Deactivate(StateUsed, now)
	if link.State != StateUsed {
		t.Fatalf("expected state used, got %s", link.State)
	}
	firstDeactivation := *link.DeactivatedAt

	link.Deactivate(StateExpired, now.Add(time.Hour))
	if link.State != StateUsed {
		t.Fatalf("terminal state must not change, got %s", link.State)
	}
	if !link.DeactivatedAt.Equal(firstDeactivation) {
		t.Fatalf("deactivation timestamp must not change")
	}
}

func TestExpiredAtIsDerived(t *testing.T) {
	now := time.Now()
	link := &Link{State: StateActive, ExpiresAt: now.Add(time.Minute)}

	if link.ExpiredAt(now) {
		t.Fatalf("link should not be expired before its deadline")
	}
	if !link.ExpiredAt(now.Add(2 * time.Minute)) {
		t.Fatalf("link should be expired after its deadline")
	}
	if link.State != StateActive {
		t.Fatalf("ExpiredAt must not mutate state")
	}
}

func TestPurgeEligibility(t *testing.T) {
	now := time.Now()
	retention := 24 * time.Hour

	active := &Link{State: StateActive, CreatedAt: now.Add(-100 * time.Hour)}
	if active.PurgeEligible(now, retention) {
		t.Fatalf("active links are never purge eligible")
	}

	old := now.Add(-48 * time.Hour)
	used := &Link{State: StateUsed, DeactivatedAt: &old}
	if !used.PurgeEligible(now, retention) {
		t.Fatalf("used link past retention should be purge eligible")
	}

	recent := now.Add(-time.Hour)
	expired := &Link{State: StateExpired, DeactivatedAt: &recent}
	if expired.PurgeEligible(now, retention) {
		t.Fatalf("recently deactivated link should be retained")
	}
}

func TestMarkUsedIncrementsUsage(t *testing.T) {
	now := time.Now()
	link := &Link{State: StateActive, MaxUsage: 1}

	link.MarkUsed(now)
	if link.UsageCount != 1 {
		t.Fatalf("expected usage count 1, got %d", link.UsageCount)
	}
	if !link.UsageExhausted() {
		t.Fatalf("single-use link should be exhausted after one use")
	}
	if link.State != StateUsed {
		t.Fatalf("expected state used, got %s", link.State)
	}
}
