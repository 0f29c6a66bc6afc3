package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/felo/warranty-tracker/internal/config"
	"github.com/felo/warranty-tracker/internal/credential"
	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/handlers"
	"github.com/felo/warranty-tracker/internal/indexer"
	"github.com/felo/warranty-tracker/internal/mailbox"
	"github.com/felo/warranty-tracker/internal/notify"
	"github.com/felo/warranty-tracker/internal/notify/ses"
	"github.com/felo/warranty-tracker/internal/notify/stdout"
	"github.com/felo/warranty-tracker/internal/purchase"
	"github.com/felo/warranty-tracker/internal/reminder"
	"github.com/felo/warranty-tracker/internal/scanner"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("warranty tracker stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.Logging.NewLogger(os.Stderr))

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database opened", "path", cfg.Database.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idx := indexer.NewIndexer(database, purchase.New()).WithConcurrency(cfg.Indexer.Workers)
	sources := sourceSet(cfg)
	logEmailsDir(ctx, cfg.Emails.Path)

	if cfg.Emails.IndexOnStartup {
		result, err := idx.IndexAll(ctx, sources(), nil)
		if err != nil {
			slog.Warn("startup indexing failed", "error", err)
		} else {
			slog.Info("startup indexing complete",
				"new", result.NewIndexed,
				"candidates", result.Candidates,
				"skipped", result.Skipped,
				"failed", result.Failed,
			)
		}
	}

	var reminders *reminder.Service
	if cfg.Reminders.Enabled {
		provider, err := newProvider(ctx, cfg.Notifier)
		if err != nil {
			return err
		}

		var recipients []string
		if cfg.Reminders.Recipient != "" {
			recipients = []string{cfg.Reminders.Recipient}
		}
		reminders = reminder.New(database, provider, reminder.Config{
			DaysBefore: cfg.Reminders.DaysBefore,
			Interval:   cfg.Reminders.Interval,
			Recipients: recipients,
		})
		go reminders.Start(ctx)
		slog.Info("warranty reminders enabled",
			"provider", provider.Name(),
			"days_before", cfg.Reminders.DaysBefore,
			"interval", cfg.Reminders.Interval,
		)
	}

	h := handlers.New(database, handlers.Options{
		Indexer:  idx,
		Sources:  sources,
		Reminder: reminders,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Mount("/api", h.Routes())

	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // SSE scan progress
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "url", cfg.URL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// sourceSet returns the configured email sources. The folder source is
// only used while the folder exists.
func sourceSet(cfg *config.Config) func() []indexer.Source {
	var imapSource indexer.Source
	if cfg.IMAP.Enabled {
		imapSource = indexer.NewIMAPSource(mailbox.NewClient(mailbox.Config{
			Host:      cfg.IMAP.Host,
			Port:      cfg.IMAP.Port,
			Username:  cfg.IMAP.Username,
			Password:  imapPassword(cfg.IMAP),
			TLS:       cfg.IMAP.TLS,
			Mailbox:   cfg.IMAP.Mailbox,
			SinceDays: cfg.IMAP.SinceDays,
			Limit:     cfg.IMAP.Limit,
		}))
	}

	return func() []indexer.Source {
		var sources []indexer.Source
		if info, err := os.Stat(cfg.Emails.Path); err == nil && info.IsDir() {
			sources = append(sources, indexer.NewFileSource(cfg.Emails.Path))
		} else {
			slog.Warn("emails directory not found", "path", cfg.Emails.Path)
		}
		if imapSource != nil {
			sources = append(sources, imapSource)
		}
		return sources
	}
}

// logEmailsDir reports how many .eml files the emails folder holds
func logEmailsDir(ctx context.Context, path string) {
	count, err := scanner.NewScanner(path).CountEMLFiles(ctx)
	if err != nil {
		slog.Warn("emails directory not readable", "path", path, "error", err)
		return
	}
	slog.Info("emails directory found", "path", path, "files", count)
}

// imapPassword prefers the configured password and falls back to the OS
// keyring entry written by warrantyctl set-password
func imapPassword(cfg config.IMAPConfig) string {
	if cfg.Password != "" {
		return cfg.Password
	}

	store, err := credential.Open()
	if err != nil {
		slog.Warn("keyring unavailable", "error", err)
		return ""
	}
	password, err := store.Get(credential.IMAPKey(cfg.Username))
	if err != nil {
		slog.Warn("no IMAP password in keyring", "username", cfg.Username, "error", err)
		return ""
	}
	return password
}

func newProvider(ctx context.Context, cfg config.NotifierConfig) (notify.Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ses":
		return ses.New(ctx, ses.Config{
			Region:          cfg.SES.Region,
			AccessKeyID:     cfg.SES.AccessKeyID,
			SecretAccessKey: cfg.SES.SecretAccessKey,
			Sender:          cfg.SES.Sender,
		})
	default:
		return stdout.New(), nil
	}
}
