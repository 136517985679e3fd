package sync

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// BackupSnapshot is the portable export format: every registered key
// present locally, decoded to its JSON form.
type BackupSnapshot struct {
	ExportedAt time.Time      `json:"exported_at"`
	Version    string         `json:"version"`
	Data       map[string]any `json:"data"`
}

// Backup exports and restores the registered key set as a single JSON
// document, independent of any remote account.
type Backup struct {
	local     storage.KV
	integrity *Integrity
	logger    *slog.Logger
	now       func() time.Time
}

// NewBackup wires backup over the local store.
func NewBackup(local storage.KV, integrity *Integrity, logger *slog.Logger) *Backup {
	return &Backup{local: local, integrity: integrity, logger: logger, now: time.Now}
}

// Export serializes every registered key with a local value.
func (b *Backup) Export() ([]byte, error) {
	snap := BackupSnapshot{
		ExportedAt: b.now().UTC(),
		Version:    SyncVersion,
		Data:       make(map[string]any),
	}
	for _, key := range keyreg.Keys() {
		value, err := b.local.Get(key)
		if err != nil {
			continue
		}
		snap.Data[key] = decodeLocal(value)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	b.logger.Info("backup exported", "keys", len(snap.Data))
	return data, nil
}

// Restore applies a backup to the local store. Unregistered keys in
// the payload are skipped with a warning; the integrity checker runs
// afterwards so a hand-edited backup cannot leave broken state. It
// returns the number of keys applied.
func (b *Backup) Restore(data []byte) (int, error) {
	var snap BackupSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("failed to parse backup: %w", err)
	}

	applied := 0
	for key, value := range snap.Data {
		if !keyreg.IsSyncable(key) {
			b.logger.Warn("skipping unregistered backup key", "key", key)
			continue
		}
		encoded, err := encodeRemote(value)
		if err != nil {
			b.logger.Warn("skipping unencodable backup key", "key", key, "error", err)
			continue
		}
		if err := b.local.Set(key, encoded); err != nil {
			return applied, fmt.Errorf("failed to restore %q: %w", key, err)
		}
		applied++
	}

	b.integrity.Run()
	b.logger.Info("backup restored", "keys", applied)
	return applied, nil
}
