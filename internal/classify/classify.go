// Package classify maps raw failures (HTTP status, backend error markers,
// local precondition errors) onto a closed set of error kinds consumed
// uniformly by the UI layer. Every network failure passes through here
// before presentation, so error surfacing has a single funnel.
package classify

import (
	"errors"
	"net/http"
	"strings"

	"doc-translator/internal/backend"
	"doc-translator/internal/domain"
)

// Kind is one member of the closed error vocabulary.
type Kind string

const (
	KindAuthenticationExpired Kind = "authentication_expired"
	KindWeeklyLimitReached    Kind = "weekly_limit_reached"
	KindInvitationCodeInvalid Kind = "invitation_code_invalid"
	KindCharacterLimitReached Kind = "character_limit_reached"
	KindServiceUnavailable    Kind = "service_unavailable"
	KindTaskNotFound          Kind = "task_not_found"
	KindFileNotFound          Kind = "file_not_found"
	KindSameLanguage          Kind = "same_language"
	KindNoFileSelected        Kind = "no_file_selected"
	KindTimeout               Kind = "timeout"
	KindGeneric               Kind = "generic"
)

// messageKeys is the total mapping from kind to localization key.
var messageKeys = map[Kind]string{
	KindAuthenticationExpired: "error_session_expired",
	KindWeeklyLimitReached:    "error_weekly_limit",
	KindInvitationCodeInvalid: "error_invitation_code",
	KindCharacterLimitReached: "error_character_limit",
	KindServiceUnavailable:    "error_service_unavailable",
	KindTaskNotFound:          "error_task_not_found",
	KindFileNotFound:          "error_file_not_found",
	KindSameLanguage:          "error_same_language",
	KindNoFileSelected:        "error_no_file_selected",
	KindTimeout:               "error_timeout",
	KindGeneric:               "error_generic",
}

// MessageKey returns the localization key for the kind.
func (k Kind) MessageKey() string {
	if key, ok := messageKeys[k]; ok {
		return key
	}
	return messageKeys[KindGeneric]
}

// CallbackRouted reports whether the kind bypasses the generic toast sink
// and triggers a dedicated caller-provided callback instead.
func (k Kind) CallbackRouted() bool {
	switch k {
	case KindAuthenticationExpired, KindWeeklyLimitReached,
		KindInvitationCodeInvalid, KindCharacterLimitReached:
		return true
	default:
		return false
	}
}

// Result is one classified failure. Detail carries the backend-supplied
// message for generic failures and is empty for callback-routed kinds so
// raw backend text never reaches the user for those.
type Result struct {
	Kind       Kind
	MessageKey string
	Detail     string
}

// Classify resolves a raw error into the closed kind set. The backend
// envelope's error_key takes precedence, then free-text marker matching,
// then the HTTP status code.
func Classify(err error) Result {
	switch {
	case errors.Is(err, domain.ErrSameLanguage):
		return resultFor(KindSameLanguage, "")
	case errors.Is(err, domain.ErrNoFileSelected):
		return resultFor(KindNoFileSelected, "")
	case errors.Is(err, domain.ErrPollTimeout):
		return resultFor(KindTimeout, "")
	}

	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := kindForErrorKey(apiErr.ErrorKey); ok {
			return resultFor(kind, "")
		}
		if kind, ok := kindForMarkerText(apiErr.ErrorMsg + " " + apiErr.Message); ok {
			return resultFor(kind, "")
		}
		if kind, ok := kindForStatusCode(apiErr.StatusCode); ok {
			return resultFor(kind, "")
		}
		return resultFor(KindGeneric, apiErr.Detail())
	}

	return resultFor(KindGeneric, "")
}

// resultFor builds a Result, suppressing detail for callback-routed kinds.
func resultFor(kind Kind, detail string) Result {
	if kind.CallbackRouted() {
		detail = ""
	}
	return Result{Kind: kind, MessageKey: kind.MessageKey(), Detail: detail}
}

// kindForErrorKey resolves the structured error_key markers.
func kindForErrorKey(key string) (Kind, bool) {
	switch key {
	case "token_expired", "session_expired":
		return KindAuthenticationExpired, true
	case "weekly_limit_reached", "period_limit_reached":
		return KindWeeklyLimitReached, true
	case "invitation_code_invalid", "invitation_code_used":
		return KindInvitationCodeInvalid, true
	case "character_limit_reached":
		return KindCharacterLimitReached, true
	case "service_unavailable":
		return KindServiceUnavailable, true
	case "task_not_found":
		return KindTaskNotFound, true
	case "file_not_found":
		return KindFileNotFound, true
	default:
		return "", false
	}
}

// kindForMarkerText matches legacy free-text markers in error/message.
func kindForMarkerText(text string) (Kind, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	switch {
	case text == "":
		return "", false
	case strings.Contains(text, "token expired"), strings.Contains(text, "token has expired"):
		return KindAuthenticationExpired, true
	case strings.Contains(text, "weekly limit"), strings.Contains(text, "quota exceeded"):
		return KindWeeklyLimitReached, true
	case strings.Contains(text, "invitation code"):
		return KindInvitationCodeInvalid, true
	case strings.Contains(text, "character limit"), strings.Contains(text, "monthly character"):
		return KindCharacterLimitReached, true
	case strings.Contains(text, "service unavailable"), strings.Contains(text, "temporarily unavailable"):
		return KindServiceUnavailable, true
	case strings.Contains(text, "task not found"):
		return KindTaskNotFound, true
	case strings.Contains(text, "file not found"):
		return KindFileNotFound, true
	default:
		return "", false
	}
}

// kindForStatusCode is the last resort when no marker matched.
func kindForStatusCode(code int) (Kind, bool) {
	switch code {
	case http.StatusUnauthorized:
		return KindAuthenticationExpired, true
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable, true
	case http.StatusNotFound:
		return KindTaskNotFound, true
	default:
		return "", false
	}
}
