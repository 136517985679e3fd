package cli

import (
	"context"
	"fmt"
	"time"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	authData, err := c.auth.Restore(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	if authData == nil {
		c.io.Println("Status: Not authenticated")
		c.io.Println()
		c.io.Println("Run 'prayersync login' to authenticate.")
		return nil
	}

	expiresAt := time.Unix(authData.ExpiresAt, 0)
	c.io.Println("Status: Authenticated")
	c.io.Printf("Username:      %s\n", authData.Username)
	c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))

	status := c.queue.Status()
	c.io.Println()
	if status.QueueLength > 0 {
		c.io.Printf("Pending sync: %d change(s) queued\n", status.QueueLength)
		c.io.Println("Run 'prayersync sync' to push them to the server.")
	} else {
		c.io.Println("All changes synced.")
	}
	return nil
}
