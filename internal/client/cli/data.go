package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// runSet stores a value locally. Writes go through the realtime queue,
// so synchronizable keys reach the server when the client is online
// and authenticated; other keys stay device-local.
func (c *Cli) runSet(_ context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: prayersync set <key> <value>")
	}
	key, value := args[0], args[1]

	if err := c.store.Set(key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}

	if keyreg.IsSyncable(key) {
		c.io.Printf("Set %s.\n", key)
	} else {
		c.io.Printf("Set %s (device-local key, not synced).\n", key)
	}
	return nil
}

func (c *Cli) runGet(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: prayersync get <key>")
	}
	key := args[0]

	value, err := c.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return fmt.Errorf("no value stored under %s", key)
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}

	c.io.Printf("%s\n", value)
	return nil
}

func (c *Cli) runRemove(_ context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: prayersync remove <key>")
	}
	key := args[0]

	if err := c.store.Remove(key); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	c.io.Printf("Removed %s.\n", key)
	return nil
}

func (c *Cli) runKeys(_ context.Context) error {
	keys, err := c.store.Keys()
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}
	if len(keys) == 0 {
		c.io.Println("No data stored.")
		return nil
	}
	sort.Strings(keys)
	for _, key := range keys {
		c.io.Println(key)
	}
	return nil
}
