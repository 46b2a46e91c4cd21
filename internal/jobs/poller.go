package jobs

import (
	"context"
	"fmt"
	"time"

	"doc-translator/internal/backend"
	"doc-translator/internal/domain"
)

// simulatedCeiling caps progress advanced without a real backend
// percentage. Simulated progress never reports completion on its own.
const simulatedCeiling = 90

// simulatedStep is how much the displayed percentage may advance per tick
// while no real percentage has arrived yet.
const simulatedStep = 5

// statusKeys maps raw backend status strings to localization keys. The
// mapping is total: unrecognized statuses fall back to status_processing
// so raw backend text never reaches the UI.
var statusKeys = map[string]string{
	"starting":    "status_starting",
	"queued":      "status_starting",
	"pending":     "status_starting",
	"running":     "status_in_progress",
	"in_progress": "status_in_progress",
	"processing":  "status_processing",
	"downloading": "status_downloading",
	"exporting":   "status_downloading",
	"done":        "status_complete",
	"completed":   "status_complete",
	"complete":    "status_complete",
	"success":     "status_complete",
}

// StatusKeyFor resolves a raw backend status into a localization key.
func StatusKeyFor(raw string) string {
	if key, ok := statusKeys[raw]; ok {
		return key
	}
	return "status_processing"
}

// StatusClient is the polling slice of the backend client.
type StatusClient interface {
	Status(ctx context.Context, jobID string) (backend.StatusResponse, error)
}

// Poller drives the polling phase of a job: it issues one status request
// at a time at a fixed interval, keeps displayed progress monotonic, and
// enforces a client-side ceiling on total poll duration.
type Poller struct {
	client   StatusClient
	interval time.Duration
	timeout  time.Duration
}

// NewPoller creates a poller with the given cadence and total timeout.
func NewPoller(client StatusClient, interval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Poller{client: client, interval: interval, timeout: timeout}
}

// Run polls until the job reaches a terminal backend status, the timeout
// elapses, or the context is cancelled. onUpdate receives each displayed
// progress value with its status message key; it runs on the polling
// goroutine, so polls stay serialized with their own updates.
//
// A nil return means terminal success; the caller fetches the result.
// domain.ErrPollTimeout reports the client-side ceiling; other errors are
// raw causes for the classifier.
func (p *Poller) Run(ctx context.Context, jobID string, onUpdate func(progress int, statusKey string)) error {
	deadline := time.Now().Add(p.timeout)
	displayed := 0
	sawReal := false

	for {
		if time.Now().After(deadline) {
			return domain.ErrPollTimeout
		}

		status, err := p.client.Status(ctx, jobID)
		if err != nil {
			return err
		}

		raw := status.Status
		if isTerminalFailure(raw) {
			return fmt.Errorf("backend reported terminal status %q", raw)
		}

		if status.Progress != nil {
			sawReal = true
			if *status.Progress > displayed {
				displayed = *status.Progress
			}
			if displayed > 100 {
				displayed = 100
			}
		} else if !sawReal && displayed < simulatedCeiling {
			displayed += simulatedStep
			if displayed > simulatedCeiling {
				displayed = simulatedCeiling
			}
		}

		if isTerminalSuccess(raw) {
			onUpdate(100, StatusKeyFor(raw))
			return nil
		}
		onUpdate(displayed, StatusKeyFor(raw))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// isTerminalSuccess reports whether a raw status ends the job well.
func isTerminalSuccess(raw string) bool {
	switch raw {
	case "done", "complete", "completed", "success":
		return true
	default:
		return false
	}
}

// isTerminalFailure reports whether a raw status ends the job badly.
func isTerminalFailure(raw string) bool {
	switch raw {
	case "error", "failed", "failure":
		return true
	default:
		return false
	}
}
