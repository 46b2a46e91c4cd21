package config

import "doc-translator/internal/domain"

// DefaultBackendURL is the production translation backend.
const DefaultBackendURL = "https://api.doc-translator.app"

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		BackendURL:          DefaultBackendURL,
		MaxFileSizeMB:       20,
		PollIntervalSeconds: 2,
		PollTimeoutSeconds:  600,
		Locale:              "",
	}
}
