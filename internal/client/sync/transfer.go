package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitul002/prayersync/internal/client/remote"
	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// SyncVersion tags every uploaded document with the sync protocol
// version.
const SyncVersion = "2.0"

// Remote metadata field names.
const (
	fieldLastSync    = "lastSync"
	fieldSyncSource  = "syncSource"
	fieldSyncVersion = "syncVersion"
)

// Transfer implements the one-shot whole-snapshot upload and download
// primitives. It never retries; failures surface to the caller.
type Transfer struct {
	local  storage.KV
	remote remote.Store
	logger *slog.Logger
	page   string // originating-page identifier recorded in metadata
	now    func() time.Time
}

// NewTransfer creates the upload/download primitives. page identifies
// the surface this client runs as (recorded as syncSource).
func NewTransfer(local storage.KV, rs remote.Store, logger *slog.Logger, page string) *Transfer {
	return &Transfer{
		local:  local,
		remote: rs,
		logger: logger,
		page:   page,
		now:    time.Now,
	}
}

// UploadResult reports a completed upload.
type UploadResult struct {
	ItemCount int
}

// UploadLocalToRemote collects every registered key present locally
// into a snapshot and merge-writes it to the user's document. Remote
// fields not in the snapshot survive untouched.
func (t *Transfer) UploadLocalToRemote(ctx context.Context, userID string) (UploadResult, error) {
	if userID == "" {
		t.logger.Warn("upload skipped: no user id")
		return UploadResult{}, nil
	}

	fields := make(map[string]any)
	count := 0
	for _, key := range keyreg.Keys() {
		value, err := t.local.Get(key)
		if err != nil {
			if err == storage.ErrKeyNotFound {
				continue
			}
			return UploadResult{}, fmt.Errorf("failed to read %q: %w", key, err)
		}
		fields[keyreg.RemoteField(key)] = decodeLocal(value)
		count++
	}

	fields[fieldLastSync] = t.now().UTC().Format(time.RFC3339)
	fields[fieldSyncSource] = t.page
	fields[fieldSyncVersion] = SyncVersion

	if err := t.remote.SetDocumentMerged(ctx, userID, fields); err != nil {
		return UploadResult{}, fmt.Errorf("failed to upload snapshot: %w", err)
	}

	t.logger.Info("uploaded local snapshot", "user_id", userID, "items", count)
	return UploadResult{ItemCount: count}, nil
}

// DownloadResult reports a completed download.
type DownloadResult struct {
	Found     bool
	ItemCount int
}

// DownloadRemoteToLocal fetches the user's document and overwrites all
// registered local keys with its validated contents. An absent
// document is a valid state, not an error.
func (t *Transfer) DownloadRemoteToLocal(ctx context.Context, userID string) (DownloadResult, error) {
	if userID == "" {
		t.logger.Warn("download skipped: no user id")
		return DownloadResult{}, nil
	}

	doc, found, err := t.remote.GetDocument(ctx, userID)
	if err != nil {
		return DownloadResult{}, fmt.Errorf("failed to fetch document: %w", err)
	}
	if !found {
		t.logger.Info("no remote document", "user_id", userID)
		return DownloadResult{Found: false}, nil
	}

	// full overwrite: clear every registered key, then set what the
	// document has; missing keys are left for the integrity checker
	for _, key := range keyreg.Keys() {
		if err := t.local.Remove(key); err != nil {
			return DownloadResult{}, fmt.Errorf("failed to clear %q: %w", key, err)
		}
	}

	count := 0
	for _, key := range keyreg.Keys() {
		value, ok := doc[keyreg.RemoteField(key)]
		if !ok {
			continue
		}
		sanitized, err := t.sanitizeRemoteValue(key, value)
		if err != nil {
			return DownloadResult{}, err
		}
		if err := t.local.Set(key, sanitized); err != nil {
			return DownloadResult{}, fmt.Errorf("failed to store %q: %w", key, err)
		}
		count++
	}

	// refresh remote metadata; failure must not fail the download
	meta := map[string]any{
		fieldLastSync:   t.now().UTC().Format(time.RFC3339),
		fieldSyncSource: t.page,
	}
	if err := t.remote.SetDocumentMerged(ctx, userID, meta); err != nil {
		t.logger.Warn("failed to update sync metadata", "user_id", userID, "error", err)
	}

	t.logger.Info("downloaded remote snapshot", "user_id", userID, "items", count)
	return DownloadResult{Found: true, ItemCount: count}, nil
}

// sanitizeRemoteValue validates one downloaded field before it is
// written locally.
func (t *Transfer) sanitizeRemoteValue(key string, value any) (string, error) {
	// a numeric zero only survives for keys where zero is legitimate
	if n, ok := asNumber(value); ok && n == 0 && keyreg.IsNumeric(key) && !keyreg.ZeroAllowed(key) {
		def, ok := keyreg.Default(key)
		if !ok {
			def = "0"
		}
		t.logger.Warn("treating remote zero as missing", "key", key, "default", def)
		return def, nil
	}

	if value == nil || value == "null" {
		if sub, ok := keyreg.NullSubstitute(key); ok {
			t.logger.Warn("substituting remote null", "key", key, "default", sub)
			return sub, nil
		}
	}

	if def, ok := keyreg.NumericPreferenceDefault(key); ok && isFalsy(value) {
		t.logger.Warn("substituting falsy preference value", "key", key, "default", def)
		return def, nil
	}

	return encodeRemote(value)
}
