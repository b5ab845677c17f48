package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"paragoniusz-backend/internal/scanflow"
)

func main() {
	fs := ff.NewFlagSet("paragoniusz-scan")
	var (
		apiURL       = fs.StringLong("api-url", "http://localhost:8080", "Paragoniusz API base URL")
		token        = fs.StringLong("token", "", "Supabase access token (or set PARAGONIUSZ_TOKEN env var)")
		imagePath    = fs.StringLong("file", "", "Receipt image to scan (JPEG, PNG or HEIC)")
		grantConsent = fs.BoolLong("grant-consent", "Grant AI processing consent if not yet given")
		save         = fs.BoolLong("save", "Save the extracted expenses without manual review")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PARAGONIUSZ"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *token == "" {
		slog.Error("access token is required, set --token or PARAGONIUSZ_TOKEN")
		os.Exit(1)
	}
	if *imagePath == "" {
		slog.Error("receipt image is required, set --file")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		slog.Error("failed to read image", "error", err)
		os.Exit(1)
	}

	client := scanflow.NewClient(*apiURL, *token)
	flow, err := scanflow.NewFlow(ctx, client, scanflow.Config{AIScanEnabled: true})
	if err != nil {
		slog.Error("failed to start scan flow", "error", err)
		os.Exit(1)
	}

	if flow.Step() == scanflow.StepConsent {
		if !*grantConsent {
			slog.Error("AI processing consent has not been granted, re-run with --grant-consent")
			os.Exit(1)
		}
		if err := flow.GrantConsent(ctx); err != nil {
			slog.Error("failed to grant consent", "error", err)
			os.Exit(1)
		}
		slog.Info("AI processing consent granted")
	}

	filename := filepath.Base(*imagePath)
	upload := scanflow.PendingUpload{
		Filename: filename,
		MIMEType: mimeTypeFor(filename),
		Data:     data,
	}

	done := make(chan struct{})
	go watchProcessing(os.Stdout, flow, scanflow.DefaultPollInterval, done)
	err = flow.Submit(ctx, upload)
	close(done)
	if err != nil {
		actions := flow.ErrActions()
		slog.Error("scan failed",
			"error", err,
			"can_retry", actions.CanRetry,
			"can_add_manually", actions.CanAddManually,
		)
		os.Exit(1)
	}

	verification := flow.Verification()
	fmt.Printf("Receipt from %s (%s)\n", verification.ReceiptDate().Format("2006-01-02"), verification.Currency())
	for i, candidate := range verification.Candidates() {
		fmt.Printf("  %d. %-24s %8s  %s\n",
			i+1,
			candidate.CategoryName,
			candidate.Amount.StringFixed(2),
			strings.Join(candidate.Items, ", "),
		)
	}
	fmt.Printf("Total: %s\n", verification.CalculatedTotal().StringFixed(2))
	if verification.HasDiscrepancy() {
		fmt.Println("Warning: calculated total differs from the receipt total")
	}

	if !*save {
		fmt.Println("Dry run, nothing saved. Re-run with --save to create the expenses.")
		return
	}

	if err := flow.Save(ctx); err != nil {
		slog.Error("failed to save expenses", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Saved %d expenses.\n", verification.Count())
}

type processingStatus interface {
	ProcessingWarned() bool
}

// watchProcessing polls the in-flight extraction and prints a one-time notice
// once it passes the warning threshold. It returns when done is closed or the
// notice has been printed.
func watchProcessing(w io.Writer, status processingStatus, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if status.ProcessingWarned() {
				fmt.Fprintln(w, "Processing is taking longer than usual, please wait...")
				return
			}
		}
	}
}

func mimeTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	default:
		return "image/jpeg"
	}
}
