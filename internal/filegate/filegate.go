// Package filegate validates a candidate document before any network or
// quota activity. Validation is purely local, synchronous, and idempotent.
package filegate

import (
	"path/filepath"
	"strings"

	"doc-translator/internal/domain"
)

// allowedExtensions is the closed document allow-list, compared
// case-insensitively on the suffix after the last dot.
var allowedExtensions = map[string]bool{
	".docx": true,
	".pptx": true,
}

// Rejection explains why a file was refused, keyed for localization.
type Rejection struct {
	MessageKey string
}

// Error satisfies the error interface with the message key; the UI layer
// resolves it to localized text.
func (r *Rejection) Error() string {
	return r.MessageKey
}

// Validate admits or rejects a candidate file. sizeBytes is the file's
// byte length; maxSizeMB is the ceiling for size-limited tiers. The paid
// tier is unbounded in size but still restricted to the extension
// allow-list.
func Validate(filename string, sizeBytes int64, tier domain.Tier, maxSizeMB int) *Rejection {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return &Rejection{MessageKey: "invalid_file_type"}
	}

	if tier != domain.TierPaid && sizeBytes > int64(maxSizeMB)*1024*1024 {
		return &Rejection{MessageKey: "file_size_exceeded"}
	}

	return nil
}
