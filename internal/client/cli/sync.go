package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runSync(ctx context.Context) error {
	authData, err := c.requireSession(ctx)
	if err != nil {
		return err
	}

	c.io.Println("Syncing...")

	if err := c.reconciler.Reconcile(ctx, authData.UserID); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if err := c.queue.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush queued changes: %w", err)
	}

	c.io.Println("Sync complete.")
	return nil
}

// runForceSync pushes the entire local snapshot to the server,
// overriding whatever the cloud holds. Queued entries become redundant
// and are dropped.
func (c *Cli) runForceSync(ctx context.Context) error {
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	answer, err := c.io.ReadInput("This will overwrite your cloud data with this device's data. Continue? [y/N]: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if answer != "y" && answer != "Y" {
		c.io.Println("Aborted.")
		return nil
	}

	if err := c.queue.ForceSyncAll(ctx); err != nil {
		return fmt.Errorf("force sync failed: %w", err)
	}

	c.io.Println("Local data uploaded.")
	return nil
}
