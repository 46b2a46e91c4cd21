// Package quota gates submissions against per-tier usage policy.
//
// Guests get one lifetime trial tracked in a local ledger that is distinct
// from the session store: logging out and back in must never reset it.
// Free and paid tiers are accounted server-side and always admitted here;
// a server-side limit surfaces later as a classified backend error.
package quota

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Ledger tracks the guest's remaining lifetime uses. Storage access stays
// behind this interface so gating logic is testable without disk.
type Ledger interface {
	// Peek returns the remaining uses without consuming one.
	Peek() (int, error)
	// Consume records one use. Consuming at zero is an error.
	Consume() error
	// Reconcile overwrites local counters with server-reported values.
	Reconcile(remaining, used int) error
}

// ErrExhausted is returned by Consume when no uses remain.
var ErrExhausted = errors.New("guest quota exhausted")

// ledgerState is the on-disk ledger shape.
type ledgerState struct {
	Remaining  int        `json:"remaining"`
	Used       int        `json:"used"`
	ConsumedAt *time.Time `json:"consumedAt,omitempty"`
}

// FileLedger is the production JSON-file ledger.
type FileLedger struct {
	mu   sync.Mutex
	path string
}

// NewFileLedger creates a ledger persisting at path. A missing file means
// the full lifetime allowance of one use.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

// Peek returns the remaining uses without consuming one.
func (l *FileLedger) Peek() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return 0, err
	}
	return state.Remaining, nil
}

// Consume records one use. The consumption is optimistic: callers do not
// roll it back when the subsequent submission fails.
func (l *FileLedger) Consume() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return err
	}
	if state.Remaining <= 0 {
		return ErrExhausted
	}

	now := time.Now().UTC()
	state.Remaining--
	state.Used++
	state.ConsumedAt = &now
	return l.save(state)
}

// Reconcile overwrites local counters with server-reported values, keeping
// the cache honest after session init and after consumption.
func (l *FileLedger) Reconcile(remaining, used int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.load()
	if err != nil {
		return err
	}
	if remaining < 0 {
		remaining = 0
	}
	state.Remaining = remaining
	state.Used = used
	return l.save(state)
}

// load reads the ledger, defaulting to one unspent use when missing.
func (l *FileLedger) load() (ledgerState, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ledgerState{Remaining: 1}, nil
		}
		return ledgerState{}, err
	}

	var state ledgerState
	if err := json.Unmarshal(data, &state); err != nil {
		return ledgerState{}, err
	}
	return state, nil
}

// save writes the ledger and creates parent directories.
func (l *FileLedger) save(state ledgerState) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o600)
}
