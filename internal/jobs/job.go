package jobs

import (
	"errors"
	"fmt"
	"sync"

	"doc-translator/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// Tracker owns the single allowed translation job and validates its
// transitions. Exactly one component mutates it per event-loop turn; the
// mutex only guards snapshot reads against the UI goroutine.
type Tracker struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewTracker creates a tracker in idle state.
func NewTracker() *Tracker {
	return &Tracker{
		current: domain.Job{State: domain.JobStateIdle},
	}
}

// Start creates a new job for the selected file and language pair and
// moves it to validating state.
func (t *Tracker) Start(jobID, sourceFile, sourceLang, targetLang string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if isActive(t.current.State) {
		return ErrJobAlreadyRunning
	}

	t.current = domain.Job{
		ID:         jobID,
		State:      domain.JobStateValidating,
		SourceFile: sourceFile,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	}
	return nil
}

// Transition validates and applies a state change for the current job.
func (t *Tracker) Transition(state domain.JobState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.ID == "" && state != domain.JobStateIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if state == t.current.State {
		return nil
	}
	if !isValidTransition(t.current.State, state) {
		return fmt.Errorf("invalid transition: %s -> %s", t.current.State, state)
	}

	t.current.State = state
	if state == domain.JobStateSucceeded {
		t.current.Progress = 100
	}
	return nil
}

// SetProgress records a progress observation. Progress is monotonically
// non-decreasing for the lifetime of a job: stale or regressed values are
// ignored and the last-known value retained. The effective value is
// returned.
func (t *Tracker) SetProgress(progress int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	if progress > t.current.Progress {
		t.current.Progress = progress
	}
	return t.current.Progress
}

// SetStatusKey records the localization key for the current status.
func (t *Tracker) SetStatusKey(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.StatusMessageKey = key
}

// Fail moves the job to failed state carrying the classified error key.
func (t *Tracker) Fail(errorKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !isValidTransition(t.current.State, domain.JobStateFailed) {
		return fmt.Errorf("invalid transition: %s -> %s", t.current.State, domain.JobStateFailed)
	}
	t.current.State = domain.JobStateFailed
	t.current.ErrorKey = errorKey
	return nil
}

// Current returns a snapshot of the current job.
func (t *Tracker) Current() domain.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Reset disowns the job: metadata including the owned source file
// reference is cleared and the tracker returns to idle.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = domain.Job{State: domain.JobStateIdle}
}

// IsActive reports whether a submission attempt is in flight.
func (t *Tracker) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return isActive(t.current.State)
}

// isActive checks if a state represents an in-flight attempt.
func isActive(state domain.JobState) bool {
	switch state {
	case domain.JobStateValidating, domain.JobStateSubmitting, domain.JobStatePolling:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobState) bool {
	switch from {
	case domain.JobStateIdle:
		return to == domain.JobStateValidating
	case domain.JobStateValidating:
		return to == domain.JobStateIdle ||
			to == domain.JobStateQuotaBlocked ||
			to == domain.JobStateSubmitting
	case domain.JobStateQuotaBlocked:
		return to == domain.JobStateIdle
	case domain.JobStateSubmitting:
		return to == domain.JobStatePolling ||
			to == domain.JobStateSucceeded ||
			to == domain.JobStateFailed
	case domain.JobStatePolling:
		return to == domain.JobStateSucceeded || to == domain.JobStateFailed
	case domain.JobStateSucceeded, domain.JobStateFailed:
		return to == domain.JobStateIdle || to == domain.JobStateValidating
	default:
		return false
	}
}
