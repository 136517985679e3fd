package cli

import "context"

func (c *Cli) runLogout(ctx context.Context) error {
	if _, err := c.requireSession(ctx); err != nil {
		return err
	}
	if err := c.auth.Logout(ctx); err != nil {
		return err
	}
	c.io.Println("Logged out.")
	return nil
}
