package jobs

import (
	"testing"

	"doc-translator/internal/domain"
)

func TestTrackerLifecycle(t *testing.T) {
	tracker := NewTracker()

	if got := tracker.Current().State; got != domain.JobStateIdle {
		t.Fatalf("initial state = %s, want idle", got)
	}

	if err := tracker.Start("job-1", "/tmp/report.docx", "en", "de"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := tracker.Current().State; got != domain.JobStateValidating {
		t.Fatalf("state after Start = %s, want validating", got)
	}

	for _, state := range []domain.JobState{
		domain.JobStateSubmitting,
		domain.JobStatePolling,
		domain.JobStateSucceeded,
	} {
		if err := tracker.Transition(state); err != nil {
			t.Fatalf("Transition(%s): %v", state, err)
		}
	}

	job := tracker.Current()
	if job.Progress != 100 {
		t.Fatalf("succeeded progress = %d, want 100", job.Progress)
	}
	if job.SourceFile != "/tmp/report.docx" || job.SourceLang != "en" || job.TargetLang != "de" {
		t.Fatalf("job metadata lost: %+v", job)
	}
}

func TestTrackerRejectsSecondActiveJob(t *testing.T) {
	tracker := NewTracker()

	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tracker.Start("job-2", "b.docx", "en", "fr"); err != ErrJobAlreadyRunning {
		t.Fatalf("second Start error = %v, want ErrJobAlreadyRunning", err)
	}
}

func TestTrackerInvalidTransitions(t *testing.T) {
	cases := []struct {
		name string
		path []domain.JobState
		bad  domain.JobState
	}{
		{"idle to polling", nil, domain.JobStatePolling},
		{"validating to polling", nil, domain.JobStatePolling},
		{"quota blocked to submitting", []domain.JobState{domain.JobStateQuotaBlocked}, domain.JobStateSubmitting},
		{"polling back to submitting", []domain.JobState{domain.JobStateSubmitting, domain.JobStatePolling}, domain.JobStateSubmitting},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := NewTracker()
			if tc.name != "idle to polling" {
				if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
					t.Fatalf("Start: %v", err)
				}
			}
			for _, state := range tc.path {
				if err := tracker.Transition(state); err != nil {
					t.Fatalf("Transition(%s): %v", state, err)
				}
			}
			if err := tracker.Transition(tc.bad); err == nil {
				t.Fatalf("Transition(%s) succeeded, want error", tc.bad)
			}
		})
	}
}

func TestTrackerQuotaBlockedParksUntilReset(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tracker.Transition(domain.JobStateQuotaBlocked); err != nil {
		t.Fatalf("Transition(quota_blocked): %v", err)
	}

	if err := tracker.Transition(domain.JobStateIdle); err != nil {
		t.Fatalf("Transition(idle): %v", err)
	}
	if got := tracker.Current().State; got != domain.JobStateIdle {
		t.Fatalf("state = %s, want idle", got)
	}
}

func TestTrackerProgressMonotonic(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Out-of-order responses regress the raw value; displayed progress
	// must hold its high-water mark.
	inputs := []int{18, 22, 19, 25, 25, 10}
	want := []int{18, 22, 22, 25, 25, 25}
	for i, in := range inputs {
		if got := tracker.SetProgress(in); got != want[i] {
			t.Fatalf("SetProgress(%d) = %d, want %d", in, got, want[i])
		}
	}
}

func TestTrackerProgressClamped(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if got := tracker.SetProgress(-5); got != 0 {
		t.Fatalf("SetProgress(-5) = %d, want 0", got)
	}
	if got := tracker.SetProgress(250); got != 100 {
		t.Fatalf("SetProgress(250) = %d, want 100", got)
	}
}

func TestTrackerFailCarriesErrorKey(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tracker.Transition(domain.JobStateSubmitting); err != nil {
		t.Fatalf("Transition(submitting): %v", err)
	}

	if err := tracker.Fail("error_service_unavailable"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	job := tracker.Current()
	if job.State != domain.JobStateFailed {
		t.Fatalf("state = %s, want failed", job.State)
	}
	if job.ErrorKey != "error_service_unavailable" {
		t.Fatalf("error key = %q", job.ErrorKey)
	}
}

func TestTrackerResetClearsEverything(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	tracker.SetProgress(40)
	tracker.Reset()

	job := tracker.Current()
	if job.State != domain.JobStateIdle || job.ID != "" || job.Progress != 0 || job.SourceFile != "" {
		t.Fatalf("reset left residue: %+v", job)
	}
	if tracker.IsActive() {
		t.Fatal("tracker active after reset")
	}
}

func TestTrackerRestartAfterTerminal(t *testing.T) {
	tracker := NewTracker()
	if err := tracker.Start("job-1", "a.docx", "en", "fr"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := tracker.Transition(domain.JobStateSubmitting); err != nil {
		t.Fatalf("Transition(submitting): %v", err)
	}
	if err := tracker.Fail("error_generic"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	if err := tracker.Start("job-2", "b.docx", "en", "es"); err != nil {
		t.Fatalf("Start after failure: %v", err)
	}
	job := tracker.Current()
	if job.ID != "job-2" || job.State != domain.JobStateValidating {
		t.Fatalf("restarted job = %+v", job)
	}
	if job.Progress != 0 || job.ErrorKey != "" {
		t.Fatalf("previous attempt leaked into new job: %+v", job)
	}
}
