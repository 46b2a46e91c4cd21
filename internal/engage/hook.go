// Package engage fires a one-time engagement prompt when a job's progress
// first crosses a threshold.
package engage

import "doc-translator/internal/domain"

// Threshold is the progress percentage that arms the prompt.
const Threshold = 20

// Hook observes the progress stream of the active job. It fires at most
// once per session even when poll timing makes progress oscillate around
// the threshold.
type Hook struct {
	eligible  func(domain.Tier) bool
	dismissed func() bool
	fire      func()

	firedThisSession bool
}

// NewHook creates a hook. eligible scopes the prompt to qualifying account
// tiers; dismissed is read at trigger time and reports the user's
// persisted permanent opt-out; fire performs the side effect.
func NewHook(eligible func(domain.Tier) bool, dismissed func() bool, fire func()) *Hook {
	return &Hook{eligible: eligible, dismissed: dismissed, fire: fire}
}

// Observe feeds one progress observation. The hook fires only while the
// job is actively polling, for an eligible tier, and only if the user has
// not permanently dismissed the prompt.
func (h *Hook) Observe(progress int, state domain.JobState, tier domain.Tier) {
	if h.firedThisSession {
		return
	}
	if state != domain.JobStatePolling {
		return
	}
	if h.eligible != nil && !h.eligible(tier) {
		return
	}
	if progress < Threshold {
		return
	}
	if h.dismissed != nil && h.dismissed() {
		return
	}

	h.firedThisSession = true
	if h.fire != nil {
		h.fire()
	}
}

// Fired reports whether the prompt has been shown this session.
func (h *Hook) Fired() bool {
	return h.firedThisSession
}
