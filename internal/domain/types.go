package domain

import "errors"

// Tier is the usage class the current user belongs to. Each tier carries
// distinct quota and file-size policy.
type Tier string

const (
	TierGuest Tier = "guest"
	TierFree  Tier = "free"
	TierPaid  Tier = "paid"
)

// JobState tracks the lifecycle of a single translation submission.
type JobState string

const (
	JobStateIdle         JobState = "idle"
	JobStateValidating   JobState = "validating"
	JobStateQuotaBlocked JobState = "quota_blocked"
	JobStateSubmitting   JobState = "submitting"
	JobStatePolling      JobState = "polling"
	JobStateSucceeded    JobState = "succeeded"
	JobStateFailed       JobState = "failed"
)

// Terminal reports whether the state is a terminal outcome.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}

// Job is a snapshot of the current translation attempt, shaped for the UI.
type Job struct {
	ID               string   `json:"id"`
	State            JobState `json:"state"`
	Progress         int      `json:"progress"`
	StatusMessageKey string   `json:"statusMessageKey"`
	SourceLang       string   `json:"sourceLang"`
	TargetLang       string   `json:"targetLang"`
	SourceFile       string   `json:"sourceFile"`
	ErrorKey         string   `json:"errorKey,omitempty"`
}

// QuotaState mirrors the guest ledger for UI display. Free/paid quotas are
// accounted server-side and never cached here.
type QuotaState struct {
	Tier          Tier `json:"tier"`
	RemainingUses int  `json:"remainingUses"`
}

// Settings contains user-adjustable runtime configuration.
type Settings struct {
	BackendURL             string `json:"backendUrl"`
	MaxFileSizeMB          int    `json:"maxFileSizeMb"`
	PollIntervalSeconds    int    `json:"pollIntervalSeconds"`
	PollTimeoutSeconds     int    `json:"pollTimeoutSeconds"`
	Locale                 string `json:"locale"`
	UpgradePromptDismissed bool   `json:"upgradePromptDismissed"`
}

// Local precondition failures, rejected before any network activity.
var (
	ErrSameLanguage   = errors.New("source and target language are identical")
	ErrNoFileSelected = errors.New("no file selected")
)

// ErrPollTimeout is the client-side ceiling on total poll duration; the job
// is forced to a failed state regardless of backend progress.
var ErrPollTimeout = errors.New("translation polling timed out")
