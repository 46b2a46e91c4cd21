// doc-translate — headless CLI for the document translation backend.
// Drives the same submission, polling, and quota machinery as the desktop
// app without a webview.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"doc-translator/internal/backend"
	"doc-translator/internal/classify"
	"doc-translator/internal/config"
	"doc-translator/internal/filegate"
	"doc-translator/internal/i18n"
	"doc-translator/internal/jobs"
	"doc-translator/internal/quota"
	"doc-translator/internal/session"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// Global persistent flag
var backendURL string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "doc-translate",
		Short: "Translate office documents from the command line",
		Long: `doc-translate — headless client for the document translation service.

Submits a .docx or .pptx document, polls until the translation finishes,
and writes the translated document to disk. Shares settings, session, and
guest quota state with the desktop app.

Commands:
  translate   Submit a document and wait for the translated result
  quota       Show the guest trial ledger
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&backendURL, "backend", "", "Backend base URL (default: from settings)")

	root.AddCommand(
		newTranslateCmd(),
		newQuotaCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("doc-translate version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}
}

func newQuotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the guest trial ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := appDataDir()
			if err != nil {
				return err
			}

			sess := session.NewStore(filepath.Join(dataDir, "session.json"))
			if sess.Authenticated() {
				fmt.Printf("Signed in (%s tier); usage is accounted server-side.\n", sess.Tier())
				return nil
			}

			ledger := quota.NewFileLedger(filepath.Join(dataDir, "guest_quota.json"))
			remaining, err := ledger.Peek()
			if err != nil {
				return fmt.Errorf("read guest ledger: %w", err)
			}
			fmt.Printf("Guest translations remaining: %d\n", remaining)
			return nil
		},
	}
}

func newTranslateCmd() *cobra.Command {
	var (
		srcLang  string
		destLang string
		outPath  string
	)

	cmd := &cobra.Command{
		Use:   "translate <document>",
		Short: "Submit a document and wait for the translated result",
		Long: `Submit a .docx or .pptx document for translation and poll until done.

The translated document is written next to the source file unless --out
names an explicit destination.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(args[0], srcLang, destLang, outPath)
		},
	}

	cmd.Flags().StringVar(&srcLang, "src", "", "Source language code (required)")
	cmd.Flags().StringVar(&destLang, "dest", "", "Target language code (required)")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file path")
	cmd.MarkFlagRequired("src")
	cmd.MarkFlagRequired("dest")

	return cmd
}

func runTranslate(sourceFile, srcLang, destLang, outPath string) error {
	dataDir, err := appDataDir()
	if err != nil {
		return err
	}

	settings, err := config.NewJSONStore(filepath.Join(dataDir, "settings.json")).Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if backendURL != "" {
		settings.BackendURL = strings.TrimRight(backendURL, "/")
	}

	sess := session.NewStore(filepath.Join(dataDir, "session.json"))
	ledger := quota.NewFileLedger(filepath.Join(dataDir, "guest_quota.json"))

	info, err := os.Stat(sourceFile)
	if err != nil {
		return fmt.Errorf("stat %s: %w", sourceFile, err)
	}
	if rej := filegate.Validate(sourceFile, info.Size(), sess.Tier(), settings.MaxFileSizeMB); rej != nil {
		return fmt.Errorf("%s", i18n.T(rej.MessageKey))
	}

	admitted, err := quota.NewGatekeeper(ledger).Admit(sess.Tier())
	if err != nil {
		return fmt.Errorf("quota admission: %w", err)
	}
	if !admitted {
		return fmt.Errorf("%s", i18n.T("registration_required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := backend.NewClient(settings.BackendURL, sess)

	file, err := os.Open(sourceFile)
	if err != nil {
		return fmt.Errorf("open %s: %w", sourceFile, err)
	}
	defer file.Close()

	logInfo("Submitting %s (%s -> %s)", filepath.Base(sourceFile), srcLang, destLang)
	result, err := client.Submit(ctx, backend.SubmitRequest{
		Filename:   filepath.Base(sourceFile),
		Content:    file,
		SourceLang: srcLang,
		TargetLang: destLang,
	})
	if err != nil {
		return translationError(err)
	}

	var payload []byte
	filename := result.Filename
	if result.Completed {
		payload = result.Payload
	} else {
		logInfo("Job %s accepted, polling", result.JobID)
		poller := jobs.NewPoller(
			client,
			time.Duration(settings.PollIntervalSeconds)*time.Second,
			time.Duration(settings.PollTimeoutSeconds)*time.Second,
		)
		lastProgress := -1
		err = poller.Run(ctx, result.JobID, func(progress int, statusKey string) {
			if progress != lastProgress {
				lastProgress = progress
				logInfo("%3d%%  %s", progress, i18n.T(statusKey))
			}
		})
		if err != nil {
			return translationError(err)
		}

		payload, filename, err = client.Result(ctx, result.JobID)
		if err != nil {
			return translationError(err)
		}
	}

	if filename == "" {
		filename = "translated_" + filepath.Base(sourceFile)
	}
	if outPath == "" {
		outPath = filepath.Join(filepath.Dir(sourceFile), filename)
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	logSuccess("Translated document written to %s", outPath)
	return nil
}

// translationError localizes a failure through the shared classifier so
// the CLI and the desktop app report the same vocabulary.
func translationError(err error) error {
	result := classify.Classify(err)
	msg := i18n.T(result.MessageKey)
	if result.Detail != "" {
		return fmt.Errorf("%s (%s)", msg, result.Detail)
	}
	return fmt.Errorf("%s", msg)
}

func appDataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	return filepath.Join(homeDir, ".doc-translator"), nil
}
