package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mitul002/prayersync/internal/client/api"
	"github.com/mitul002/prayersync/internal/client/auth"
	"github.com/mitul002/prayersync/internal/client/cli"
	"github.com/mitul002/prayersync/internal/client/events"
	"github.com/mitul002/prayersync/internal/client/guard"
	"github.com/mitul002/prayersync/internal/client/iocli"
	"github.com/mitul002/prayersync/internal/client/storage/boltdb"
	"github.com/mitul002/prayersync/internal/client/storage/memstore"
	"github.com/mitul002/prayersync/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// notifierUsers adapts the auth notifier to the queue's UserSource.
type notifierUsers struct {
	notifier *auth.Notifier
}

func (u notifierUsers) Current() string {
	userID, ok := u.notifier.Current()
	if !ok {
		return ""
	}
	return userID
}

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "prayersync-client.db", "Path to local database")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	bus := events.NewBus()
	notifier := auth.NewNotifier()
	authService := auth.NewService(apiClient, boltStorage, notifier, bus, logger)

	// The session store holds reconciliation flags and queued entries
	// for the lifetime of this process only.
	sessionStore := memstore.New()
	state := sync.NewSession(sessionStore)
	stopWatch := state.WatchLogout(bus)
	defer stopWatch()

	guarded := guard.New(boltStorage, logger, state.InProgress)
	transfer := sync.NewTransfer(guarded, apiClient, logger, "cli")
	integrity := sync.NewIntegrity(guarded, logger)
	queue := sync.NewQueue(guarded, sessionStore, apiClient, transfer, state, notifierUsers{notifier}, logger, "cli")

	reconciler := sync.NewReconciler(guarded, apiClient, transfer, integrity, state, queue, cli.NewConflictPrompter(), bus, logger, "cli")
	reconciler.Alert = func(msg string) { fmt.Fprintln(os.Stderr, msg) }

	backup := sync.NewBackup(queue, integrity, logger)

	// Restore any persisted session up front so queue writes carry the
	// user id and the API client holds the access token. Commands that
	// require auth re-check and fail with a hint themselves.
	if _, err := authService.Restore(ctx); err != nil {
		logger.Warn("failed to restore session", "error", err)
	}

	c := cli.New(iocli.NewStdio(), authService, queue, queue, reconciler, backup)
	c.Run(ctx, command, args[1:])
}

func printVersion() {
	fmt.Printf("PrayerSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
