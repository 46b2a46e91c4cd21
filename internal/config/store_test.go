package config

import (
	"path/filepath"
	"testing"

	"doc-translator/internal/domain"
)

// TestJSONStoreRoundTrip verifies save and reload of settings.
func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store := NewJSONStore(path)

	want := domain.Settings{
		BackendURL:             "https://backend.example",
		MaxFileSizeMB:          50,
		PollIntervalSeconds:    1,
		PollTimeoutSeconds:     120,
		Locale:                 "zh",
		UpgradePromptDismissed: true,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != want {
		t.Fatalf("loaded = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-launch behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	store := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("loaded = %+v, want defaults", got)
	}
	if got.BackendURL != DefaultBackendURL {
		t.Fatalf("backend url = %q", got.BackendURL)
	}
}
