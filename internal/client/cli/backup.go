package cli

import (
	"context"
	"fmt"
	"os"
)

const defaultBackupFile = "prayersync-backup.json"

func (c *Cli) runExport(_ context.Context, args []string) error {
	path := defaultBackupFile
	if len(args) > 0 {
		path = args[0]
	}

	data, err := c.backup.Export()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup file: %w", err)
	}

	c.io.Printf("Backup written to %s\n", path)
	return nil
}

// runImport restores a backup file into the local store. Restored
// writes go through the realtime queue, so synchronizable keys are
// pushed to the server like any other mutation.
func (c *Cli) runImport(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: prayersync import <file>")
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	applied, err := c.backup.Restore(data)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	c.io.Printf("Restored %d value(s) from %s\n", applied, path)
	return nil
}
