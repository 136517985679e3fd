package cli

import (
	"context"
	"fmt"
)

// runLogin authenticates against the server and immediately runs the
// one-shot reconciliation for the signed-in user, then flushes any
// changes queued while offline.
func (c *Cli) runLogin(ctx context.Context) error {
	c.io.Println("=== Login ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	c.io.Println()
	c.io.Println("Authenticating...")

	authData, err := c.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	c.io.Println("Login successful!")
	c.io.Printf("Username: %s\n", authData.Username)
	c.io.Println()
	c.io.Println("Reconciling your data...")

	if err := c.reconciler.Reconcile(ctx, authData.UserID); err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if err := c.queue.Flush(ctx); err != nil {
		c.io.Printf("Warning: some queued changes were not synced: %v\n", err)
	}

	c.io.Println("Your data is in sync.")
	return nil
}
