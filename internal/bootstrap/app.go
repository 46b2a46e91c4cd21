package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"doc-translator/internal/artifact"
	"doc-translator/internal/backend"
	"doc-translator/internal/classify"
	"doc-translator/internal/config"
	"doc-translator/internal/diagnostics"
	"doc-translator/internal/domain"
	"doc-translator/internal/engage"
	"doc-translator/internal/filegate"
	"doc-translator/internal/i18n"
	"doc-translator/internal/jobs"
	"doc-translator/internal/quota"
	"doc-translator/internal/session"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var documentDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Documents",
		Pattern:     "*.docx;*.pptx",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// forcedLogoutDelay gives the user time to read the session-expired
// message before the credential is dropped.
const forcedLogoutDelay = 3 * time.Second

// Callbacks is the explicit signal set the orchestrator emits. Each
// component of the UI declares exactly which signals it consumes instead
// of subscribing to ambient global events. Nil members fall back to
// event-bus publications.
type Callbacks struct {
	OnToast                func(messageKey, detail string)
	OnRegistrationRequired func()
	OnForcedLogout         func()
	OnUpgradeRequired      func(messageKey string)
	OnCodeInvalid          func()
	OnEngagementPrompt     func()
}

// submitter isolates the backend protocol client behind an interface.
type submitter interface {
	Submit(ctx context.Context, req backend.SubmitRequest) (*backend.SubmitResult, error)
	Status(ctx context.Context, jobID string) (backend.StatusResponse, error)
	Result(ctx context.Context, jobID string) ([]byte, string, error)
	GuestStatus(ctx context.Context) (backend.GuestQuota, error)
}

// App wires configuration, quota, the backend client, the job state
// machine, and UI runtime callbacks.
type App struct {
	Store       config.Store
	Session     *session.Store
	Ledger      quota.Ledger
	Gate        *quota.Gatekeeper
	Tracker     *jobs.Tracker
	Artifacts   *artifact.Manager
	Diagnostics domain.DiagnosticReport

	callbacks   Callbacks
	hook        *engage.Hook
	checker     *diagnostics.Checker
	assets      fs.FS
	logoutDelay time.Duration

	mu           sync.Mutex
	settings     domain.Settings
	client       submitter
	selectedFile string
	activeJobID  string
	cancel       context.CancelFunc
	events       *jobs.EventBus
	runtimeCtx   context.Context
}

// New builds the application with persisted settings and startup
// diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	dataDir := filepath.Join(homeDir, ".doc-translator")

	store := config.NewJSONStore(filepath.Join(dataDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	i18n.Init(settings.Locale)

	sess := session.NewStore(filepath.Join(dataDir, "session.json"))
	ledger := quota.NewFileLedger(filepath.Join(dataDir, "guest_quota.json"))

	app := &App{
		Store:       store,
		Session:     sess,
		Ledger:      ledger,
		Gate:        quota.NewGatekeeper(ledger),
		Tracker:     jobs.NewTracker(),
		Artifacts:   artifact.NewManager(""),
		assets:      assets,
		settings:    settings,
		client:      backend.NewClient(settings.BackendURL, sess),
		logoutDelay: forcedLogoutDelay,
		events:      jobs.NewEventBus(1000),
	}
	app.hook = engage.NewHook(
		func(tier domain.Tier) bool { return tier == domain.TierPaid },
		app.upgradePromptDismissed,
		app.fireEngagementPrompt,
	)
	app.checker = diagnostics.NewChecker(sess.Authenticated, ledger.Peek)
	app.Diagnostics = app.checker.Run(context.Background(), settings)

	return app, nil
}

// SetCallbacks installs the explicit signal set. Call before Run; UI
// embedders use this instead of listening for broadcast events.
func (a *App) SetCallbacks(callbacks Callbacks) {
	a.callbacks = callbacks
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Document Translator",
		Width:       1024,
		Height:      720,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.Teardown()
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	// Keep the local ledger honest against the server's counters.
	a.ReconcileGuestQuota()
}

// Teardown disowns any in-flight job and revokes the live artifact.
func (a *App) Teardown() {
	a.Reset()
	a.mu.Lock()
	a.runtimeCtx = nil
	a.mu.Unlock()
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns readiness checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	a.Diagnostics = a.checker.Run(context.Background(), settings)
	return a.Diagnostics, nil
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then rebuilds the
// backend client for the possibly-changed URL.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.settings = normalized
	a.client = backend.NewClient(normalized.BackendURL, a.Session)
	a.mu.Unlock()

	i18n.Init(normalized.Locale)
	return normalized, nil
}

// PickDocument opens a native file dialog and selects the chosen file.
func (a *App) PickDocument() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select document",
		Filters: documentDialogFilter,
	})
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if err := a.SelectFile(path); err != nil {
		return "", err
	}
	return path, nil
}

// SelectFile validates a candidate file and takes ownership of it for the
// next submission. Selecting a new file disowns any previous job and
// revokes the live artifact. Rejections surface as warning toasts keyed
// for localization and leave the job idle.
func (a *App) SelectFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat selected file: %w", err)
	}

	a.mu.Lock()
	settings := a.settings
	a.mu.Unlock()

	if rej := filegate.Validate(path, info.Size(), a.Session.Tier(), settings.MaxFileSizeMB); rej != nil {
		a.toast(rej.MessageKey, "")
		return rej
	}

	a.disownActiveJob()
	a.Tracker.Reset()
	a.Artifacts.RevokeCurrent()

	a.mu.Lock()
	a.selectedFile = path
	a.mu.Unlock()
	return nil
}

// StartTranslation runs the gate chain for the selected file and, when
// admitted, submits and polls asynchronously. The returned snapshot
// reflects the state reached synchronously (validating, quota blocked,
// or submitting).
func (a *App) StartTranslation(sourceLang, targetLang string) (domain.Job, error) {
	a.mu.Lock()
	settings := a.settings
	sourceFile := a.selectedFile
	client := a.client
	a.mu.Unlock()

	if sourceFile == "" {
		a.toast(classify.KindNoFileSelected.MessageKey(), "")
		return a.Tracker.Current(), domain.ErrNoFileSelected
	}
	if sourceLang == targetLang {
		a.toast(classify.KindSameLanguage.MessageKey(), "")
		return a.Tracker.Current(), domain.ErrSameLanguage
	}

	jobID := uuid.NewString()
	if err := a.Tracker.Start(jobID, sourceFile, sourceLang, targetLang); err != nil {
		return a.Tracker.Current(), err
	}

	// A re-run supersedes the previous result; release its handle before
	// the new attempt can produce one.
	a.Artifacts.RevokeCurrent()

	info, err := os.Stat(sourceFile)
	if err != nil {
		a.Tracker.Reset()
		return a.Tracker.Current(), fmt.Errorf("stat selected file: %w", err)
	}
	tier := a.Session.Tier()
	if rej := filegate.Validate(sourceFile, info.Size(), tier, settings.MaxFileSizeMB); rej != nil {
		_ = a.Tracker.Transition(domain.JobStateIdle)
		a.toast(rej.MessageKey, "")
		return a.Tracker.Current(), rej
	}

	// One admission decision per submission attempt. Guest consumption is
	// optimistic and is not rolled back if the submission later fails.
	admitted, err := a.Gate.Admit(tier)
	if err != nil {
		_ = a.Tracker.Transition(domain.JobStateIdle)
		return a.Tracker.Current(), fmt.Errorf("quota admission: %w", err)
	}
	if !admitted {
		_ = a.Tracker.Transition(domain.JobStateQuotaBlocked)
		a.publishStatus(jobID, domain.JobStateQuotaBlocked, "registration_required")
		if a.callbacks.OnRegistrationRequired != nil {
			a.callbacks.OnRegistrationRequired()
		} else {
			a.toast("registration_required", "")
		}
		return a.Tracker.Current(), nil
	}

	if err := a.Tracker.Transition(domain.JobStateSubmitting); err != nil {
		return a.Tracker.Current(), err
	}
	a.Tracker.SetStatusKey("status_starting")
	a.publishStatus(jobID, domain.JobStateSubmitting, "status_starting")

	ctx, cancel := context.WithCancel(context.Background())
	a.mu.Lock()
	a.activeJobID = jobID
	a.cancel = cancel
	a.mu.Unlock()

	go a.runTranslationJob(ctx, client, jobID, sourceFile, sourceLang, targetLang, tier, settings)
	return a.Tracker.Current(), nil
}

// runTranslationJob executes submit and poll phases and maps outcomes to
// job events. It is the only goroutine mutating the tracker once started.
func (a *App) runTranslationJob(ctx context.Context, client submitter, jobID, sourceFile, sourceLang, targetLang string, tier domain.Tier, settings domain.Settings) {
	if tier == domain.TierGuest {
		// The admission consumed the trial; refresh the ledger from the
		// server once the attempt settles.
		defer a.ReconcileGuestQuota()
	}

	file, err := os.Open(sourceFile)
	if err != nil {
		a.failJob(jobID, fmt.Errorf("open selected file: %w", err))
		return
	}

	result, err := client.Submit(ctx, backend.SubmitRequest{
		Filename:   filepath.Base(sourceFile),
		Content:    file,
		SourceLang: sourceLang,
		TargetLang: targetLang,
	})
	file.Close()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.failJob(jobID, err)
		return
	}

	// Synchronous path: the backend answered with the document directly.
	if result.Completed {
		a.finishSuccess(jobID, result.Payload, result.Filename, sourceFile)
		return
	}

	if err := a.Tracker.Transition(domain.JobStatePolling); err != nil {
		a.failJob(jobID, err)
		return
	}
	a.publishStatus(jobID, domain.JobStatePolling, "status_starting")

	poller := jobs.NewPoller(
		client,
		time.Duration(settings.PollIntervalSeconds)*time.Second,
		time.Duration(settings.PollTimeoutSeconds)*time.Second,
	)
	err = poller.Run(ctx, result.JobID, func(progress int, statusKey string) {
		effective := a.Tracker.SetProgress(progress)
		a.Tracker.SetStatusKey(statusKey)
		a.publishProgress(jobID, effective, statusKey)
		a.hook.Observe(effective, a.Tracker.Current().State, tier)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.failJob(jobID, err)
		return
	}

	payload, filename, err := client.Result(ctx, result.JobID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		a.failJob(jobID, err)
		return
	}
	a.finishSuccess(jobID, payload, filename, sourceFile)
}

// finishSuccess stores the artifact and moves the job to succeeded.
func (a *App) finishSuccess(jobID string, payload []byte, filename, sourceFile string) {
	if filename == "" {
		filename = "translated_" + filepath.Base(sourceFile)
	}

	handle, err := a.Artifacts.Create(payload, filename)
	if err != nil {
		a.failJob(jobID, fmt.Errorf("store result artifact: %w", err))
		return
	}

	if err := a.Tracker.Transition(domain.JobStateSucceeded); err != nil {
		a.Artifacts.Revoke(handle)
		a.failJob(jobID, err)
		return
	}
	a.Tracker.SetStatusKey("status_complete")
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeResult,
		State:      domain.JobStateSucceeded,
		Progress:   100,
		MessageKey: "status_complete",
		Filename:   handle.SuggestedFilename,
	})
	a.clearActiveJob(jobID)
}

// failJob classifies the raw cause, moves the job to failed, and routes
// the outcome: four kinds trigger dedicated callbacks, the rest surface
// through the generic toast sink. Raw backend text never reaches the user
// for callback-routed kinds.
func (a *App) failJob(jobID string, cause error) {
	// A disowned job has no listeners; its late failure must not disturb
	// the reset tracker or surface stale toasts.
	if a.Tracker.Current().ID != jobID {
		a.clearActiveJob(jobID)
		return
	}

	result := classify.Classify(cause)

	_ = a.Tracker.Fail(result.MessageKey)
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeError,
		State:      domain.JobStateFailed,
		MessageKey: result.MessageKey,
		Detail:     result.Detail,
	})

	switch result.Kind {
	case classify.KindAuthenticationExpired:
		a.forceLogout()
	case classify.KindWeeklyLimitReached, classify.KindCharacterLimitReached:
		if a.callbacks.OnUpgradeRequired != nil {
			a.callbacks.OnUpgradeRequired(result.MessageKey)
		}
	case classify.KindInvitationCodeInvalid:
		if a.callbacks.OnCodeInvalid != nil {
			a.callbacks.OnCodeInvalid()
		}
	default:
		a.toast(result.MessageKey, result.Detail)
	}

	a.clearActiveJob(jobID)
}

// forceLogout drops the session after a short user-visible delay. This is
// the sole path that resets a session, regardless of which component
// detected the expired credential.
func (a *App) forceLogout() {
	if a.callbacks.OnForcedLogout != nil {
		a.callbacks.OnForcedLogout()
	}
	time.AfterFunc(a.logoutDelay, func() {
		_ = a.Session.Clear()
	})
}

// Reset disowns the current job: polling stops, the artifact is revoked,
// and the form returns to idle. The backend is not notified; there is no
// mid-flight abort of a submitted job.
func (a *App) Reset() {
	a.disownActiveJob()
	a.Tracker.Reset()
	a.Artifacts.RevokeCurrent()

	a.mu.Lock()
	a.selectedFile = ""
	a.mu.Unlock()
}

// SaveResult copies the live artifact to a user-chosen location via the
// native save dialog and returns the destination path.
func (a *App) SaveResult() (string, error) {
	handle := a.Artifacts.Current()
	if handle == nil {
		return "", fmt.Errorf("no result available")
	}

	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	target, err := wailsruntime.SaveFileDialog(ctx, wailsruntime.SaveDialogOptions{
		Title:           "Save translated document",
		DefaultFilename: handle.SuggestedFilename,
	})
	if err != nil {
		return "", err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", nil
	}

	if err := copyFile(handle.URI, target); err != nil {
		return "", fmt.Errorf("save result: %w", err)
	}
	return target, nil
}

// Localize resolves a message key to text in the configured locale.
func (a *App) Localize(key string) string {
	return i18n.T(key)
}

// CurrentJob returns current job metadata and state.
func (a *App) CurrentJob() domain.Job {
	return a.Tracker.Current()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// GuestQuota returns the cached guest ledger state for UI display.
func (a *App) GuestQuota() (domain.QuotaState, error) {
	remaining, err := a.Ledger.Peek()
	if err != nil {
		return domain.QuotaState{}, err
	}
	return domain.QuotaState{
		Tier:          a.Session.Tier(),
		RemainingUses: remaining,
	}, nil
}

// ReconcileGuestQuota refreshes the local ledger from the server. Errors
// are swallowed: the cached value keeps serving until the next attempt.
func (a *App) ReconcileGuestQuota() {
	a.mu.Lock()
	client := a.client
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	serverQuota, err := client.GuestStatus(ctx)
	if err != nil {
		return
	}
	_ = a.Ledger.Reconcile(serverQuota.Remaining, serverQuota.Used)
}

// Login stores an authenticated session credential and tier.
func (a *App) Login(token string, tier domain.Tier) error {
	return a.Session.Save(token, tier)
}

// Logout clears the session credential. The guest quota ledger is not
// touched: a spent trial stays spent across login cycles.
func (a *App) Logout() error {
	return a.Session.Clear()
}

// DismissEngagementPrompt persists the permanent opt-out consulted by the
// engagement hook at trigger time.
func (a *App) DismissEngagementPrompt() error {
	settings, err := a.Store.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	settings.UpgradePromptDismissed = true
	if _, err := a.SaveSettings(settings); err != nil {
		return err
	}
	return nil
}

// upgradePromptDismissed reads the persisted opt-out at trigger time.
func (a *App) upgradePromptDismissed() bool {
	settings, err := a.Store.Load()
	if err != nil {
		return false
	}
	return settings.UpgradePromptDismissed
}

// fireEngagementPrompt routes the one-time engagement side effect.
func (a *App) fireEngagementPrompt() {
	if a.callbacks.OnEngagementPrompt != nil {
		a.callbacks.OnEngagementPrompt()
		return
	}
	a.toast("upgrade_prompt", "")
}

// toast routes a user-visible message through the notification sink.
func (a *App) toast(messageKey, detail string) {
	if a.callbacks.OnToast != nil {
		a.callbacks.OnToast(messageKey, detail)
		return
	}
	a.publishEvent(jobs.Event{
		Type:       jobs.EventTypeToast,
		MessageKey: messageKey,
		Detail:     detail,
	})
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(jobID string, state domain.JobState, messageKey string) {
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeStatus,
		State:      state,
		MessageKey: messageKey,
	})
}

// publishProgress sends one progress observation.
func (a *App) publishProgress(jobID string, progress int, messageKey string) {
	a.publishEvent(jobs.Event{
		JobID:      jobID,
		Type:       jobs.EventTypeProgress,
		State:      domain.JobStatePolling,
		Progress:   progress,
		MessageKey: messageKey,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", published)
	}
}

// disownActiveJob stops polling for the active job, if any.
func (a *App) disownActiveJob() {
	a.mu.Lock()
	cancel := a.cancel
	a.activeJobID = ""
	a.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// clearActiveJob clears cancellation handles for completed job IDs.
func (a *App) clearActiveJob(jobID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeJobID == jobID {
		a.activeJobID = ""
		a.cancel = nil
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims inputs and applies defaults for empty fields.
func normalizeSettings(settings domain.Settings) domain.Settings {
	defaults := config.DefaultSettings()

	settings.BackendURL = strings.TrimRight(strings.TrimSpace(settings.BackendURL), "/")
	if settings.BackendURL == "" {
		settings.BackendURL = defaults.BackendURL
	}
	if settings.MaxFileSizeMB <= 0 {
		settings.MaxFileSizeMB = defaults.MaxFileSizeMB
	}
	if settings.PollIntervalSeconds <= 0 {
		settings.PollIntervalSeconds = defaults.PollIntervalSeconds
	}
	if settings.PollTimeoutSeconds <= 0 {
		settings.PollTimeoutSeconds = defaults.PollTimeoutSeconds
	}
	settings.Locale = strings.TrimSpace(settings.Locale)
	return settings
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
