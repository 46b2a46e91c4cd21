package engage

import (
	"testing"

	"doc-translator/internal/domain"
)

func paidOnly(tier domain.Tier) bool { return tier == domain.TierPaid }

func TestHookFiresOnceAcrossOscillation(t *testing.T) {
	fired := 0
	hook := NewHook(paidOnly, func() bool { return false }, func() { fired++ })

	// Poll timing can make displayed progress hover around the threshold;
	// crossing it repeatedly must not refire.
	for _, progress := range []int{5, 18, 22, 19, 25, 40, 90} {
		hook.Observe(progress, domain.JobStatePolling, domain.TierPaid)
	}

	if fired != 1 {
		t.Fatalf("fired %d times, want 1", fired)
	}
	if !hook.Fired() {
		t.Fatal("Fired() = false after trigger")
	}
}

func TestHookOnlyWhilePolling(t *testing.T) {
	fired := 0
	hook := NewHook(paidOnly, func() bool { return false }, func() { fired++ })

	for _, state := range []domain.JobState{
		domain.JobStateIdle,
		domain.JobStateValidating,
		domain.JobStateSubmitting,
		domain.JobStateSucceeded,
		domain.JobStateFailed,
	} {
		hook.Observe(50, state, domain.TierPaid)
	}

	if fired != 0 {
		t.Fatalf("fired %d times outside polling", fired)
	}
}

func TestHookTierGating(t *testing.T) {
	fired := 0
	hook := NewHook(paidOnly, func() bool { return false }, func() { fired++ })

	hook.Observe(50, domain.JobStatePolling, domain.TierGuest)
	hook.Observe(50, domain.JobStatePolling, domain.TierFree)
	if fired != 0 {
		t.Fatalf("fired %d times for ineligible tiers", fired)
	}

	hook.Observe(50, domain.JobStatePolling, domain.TierPaid)
	if fired != 1 {
		t.Fatalf("fired %d times for eligible tier, want 1", fired)
	}
}

func TestHookBelowThreshold(t *testing.T) {
	fired := 0
	hook := NewHook(paidOnly, func() bool { return false }, func() { fired++ })

	hook.Observe(Threshold-1, domain.JobStatePolling, domain.TierPaid)
	if fired != 0 {
		t.Fatal("fired below threshold")
	}
	hook.Observe(Threshold, domain.JobStatePolling, domain.TierPaid)
	if fired != 1 {
		t.Fatal("did not fire at threshold")
	}
}

func TestHookReadsDismissalAtTriggerTime(t *testing.T) {
	dismissed := true
	fired := 0
	hook := NewHook(paidOnly, func() bool { return dismissed }, func() { fired++ })

	hook.Observe(50, domain.JobStatePolling, domain.TierPaid)
	if fired != 0 {
		t.Fatal("fired despite dismissal")
	}

	// The flag is consulted at each trigger, so flipping it mid-session
	// re-enables the prompt.
	dismissed = false
	hook.Observe(55, domain.JobStatePolling, domain.TierPaid)
	if fired != 1 {
		t.Fatalf("fired %d times after dismissal lifted, want 1", fired)
	}
}
