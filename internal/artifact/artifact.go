// Package artifact owns the lifecycle of the downloadable translation
// result. A handle references a process-local temp file: never persisted
// to durable storage, never shareable across app restarts.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrHandleLive is returned when creating a handle while one is live.
// Callers revoke the previous handle first; silently replacing it would
// leak the underlying file.
var ErrHandleLive = errors.New("previous artifact handle not revoked")

// Handle is a transient, exclusively-owned reference to the result bytes.
type Handle struct {
	URI               string `json:"uri"`
	SuggestedFilename string `json:"suggestedFilename"`
}

// Manager enforces the single-live-handle invariant per form instance.
type Manager struct {
	mu   sync.Mutex
	dir  string
	live *Handle
}

// NewManager creates a manager writing handles under dir; an empty dir
// uses a per-process temp directory.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "doc-translator")
	}
	return &Manager{dir: dir}
}

// Create writes the payload to a fresh temp file and returns its handle.
// Exactly one handle may be live at a time.
func (m *Manager) Create(payload []byte, suggestedFilename string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live != nil {
		return nil, ErrHandleLive
	}
	if suggestedFilename == "" {
		suggestedFilename = "translated"
	}

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	file, err := os.CreateTemp(m.dir, "result-*"+filepath.Ext(suggestedFilename))
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}
	if _, err := file.Write(payload); err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, fmt.Errorf("write artifact payload: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return nil, fmt.Errorf("close artifact file: %w", err)
	}

	m.live = &Handle{URI: file.Name(), SuggestedFilename: suggestedFilename}
	return m.live, nil
}

// Current returns the live handle, or nil when none exists.
func (m *Manager) Current() *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live
}

// Revoke releases the handle and removes its backing file. Revoking an
// already-revoked or foreign handle is a no-op.
func (m *Manager) Revoke(handle *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if handle == nil || m.live == nil || m.live.URI != handle.URI {
		return
	}
	os.Remove(m.live.URI)
	m.live = nil
}

// RevokeCurrent releases whichever handle is live, if any. Used on reset,
// new file selection, and component teardown.
func (m *Manager) RevokeCurrent() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.live == nil {
		return
	}
	os.Remove(m.live.URI)
	m.live = nil
}
