package diagnostics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"doc-translator/internal/domain"
)

// Checker validates the app's external collaborators before a submission
// is attempted: the translation backend, the stored session, and the
// guest quota ledger.
type Checker struct {
	head       func(ctx context.Context, rawURL string) (int, error)
	hasSession func() bool
	peekQuota  func() (int, error)
}

// NewChecker builds a checker using a real HTTP probe. hasSession and
// peekQuota report the session store and guest ledger respectively.
func NewChecker(hasSession func() bool, peekQuota func() (int, error)) *Checker {
	client := &http.Client{Timeout: 10 * time.Second}
	return &Checker{
		head: func(ctx context.Context, rawURL string) (int, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
			if err != nil {
				return 0, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return 0, err
			}
			resp.Body.Close()
			return resp.StatusCode, nil
		},
		hasSession: hasSession,
		peekQuota:  peekQuota,
	}
}

// Run executes all readiness checks and returns a combined report.
func (c *Checker) Run(ctx context.Context, settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBackend(ctx, settings.BackendURL),
		c.checkSession(),
		c.checkLedger(),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBackend verifies the configured backend URL is well-formed and
// answers HTTP at all. Any response code counts as reachable.
func (c *Checker) checkBackend(ctx context.Context, backendURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend",
		Name: "Translation backend",
	}

	if strings.TrimSpace(backendURL) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend URL is empty."
		item.Hint = "Set the translation backend URL in settings."
		return item
	}
	if _, err := url.ParseRequestURI(backendURL); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend URL is not valid: %s", backendURL)
		item.Hint = "Use a full URL including the scheme, e.g. https://api.example.com."
		return item
	}

	if _, err := c.head(ctx, backendURL); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend is not reachable: %s", backendURL)
		item.Hint = "Check your network connection or the backend URL."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Backend reachable: %s", backendURL)
	return item
}

// checkSession reports whether a stored credential exists. Absence is a
// pass: guests operate without one.
func (c *Checker) checkSession() domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:     "session",
		Name:   "Session credential",
		Status: domain.DiagnosticStatusPass,
	}

	if c.hasSession != nil && c.hasSession() {
		item.Message = "Signed-in session found."
		return item
	}

	item.Message = "No session stored; running as guest."
	return item
}

// checkLedger verifies the guest quota ledger is readable.
func (c *Checker) checkLedger() domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "guest_ledger",
		Name: "Guest quota ledger",
	}

	if c.peekQuota == nil {
		item.Status = domain.DiagnosticStatusPass
		item.Message = "No guest ledger configured."
		return item
	}

	remaining, err := c.peekQuota()
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Guest quota ledger is not readable."
		item.Hint = "Check permissions on the app data directory."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Guest translations remaining: %d", remaining)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	head func(ctx context.Context, rawURL string) (int, error),
	hasSession func() bool,
	peekQuota func() (int, error),
) *Checker {
	return &Checker{head: head, hasSession: hasSession, peekQuota: peekQuota}
}
