// Package cli implements the interactive command surface of the
// prayersync client. Each command is a thin adapter: it reads input
// through the iocli.IO abstraction, calls the underlying service, and
// prints the result. All business rules live in the service packages.
package cli

import (
	"context"
	"fmt"

	"github.com/mitul002/prayersync/internal/client/auth"
	"github.com/mitul002/prayersync/internal/client/iocli"
	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/client/sync"
)

type Cli struct {
	io         iocli.IO
	auth       *auth.Service
	store      storage.KV // queue-decorated store; writes propagate
	queue      *sync.Queue
	reconciler *sync.Reconciler
	backup     *sync.Backup
}

func New(
	io iocli.IO,
	authService *auth.Service,
	store storage.KV,
	queue *sync.Queue,
	reconciler *sync.Reconciler,
	backup *sync.Backup,
) *Cli {
	return &Cli{
		io:         io,
		auth:       authService,
		store:      store,
		queue:      queue,
		reconciler: reconciler,
		backup:     backup,
	}
}

// requireSession restores the persisted session and fails with a hint
// when the user is not logged in. Commands that talk to the server (or
// need the current user id) call this first.
func (c *Cli) requireSession(ctx context.Context) (*storage.AuthData, error) {
	authData, err := c.auth.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if authData == nil {
		return nil, fmt.Errorf("not authenticated. Please run 'prayersync login' first")
	}
	return authData, nil
}

func PrintUsage() {
	fmt.Println("PrayerSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  prayersync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version      Show version information")
	fmt.Println("  --server URL   Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH      Path to local database (default: prayersync-client.db)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register               Register new account")
	fmt.Println("  login                  Login and reconcile local data with the cloud")
	fmt.Println("  logout                 Logout and revoke tokens")
	fmt.Println("  status                 Show authentication and sync queue status")
	fmt.Println("  sync                   Run reconciliation and flush queued changes")
	fmt.Println("  force-sync             Upload the full local snapshot, overriding cloud values")
	fmt.Println("  set <key> <value>      Store a value locally (synced when possible)")
	fmt.Println("  get <key>              Show a stored value")
	fmt.Println("  remove <key>           Remove a stored value")
	fmt.Println("  keys                   List stored keys")
	fmt.Println("  export [file]          Export local data to a backup file")
	fmt.Println("  import <file>          Import a backup file")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  prayersync register")
	fmt.Println("  prayersync login")
	fmt.Println("  prayersync set qaza_count 5")
	fmt.Println("  prayersync get prayer_log")
	fmt.Println("  prayersync export ~/prayersync-backup.json")
	fmt.Println("  prayersync --server https://example.com login")
}
