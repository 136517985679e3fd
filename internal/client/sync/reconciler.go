// Package sync implements the offline-first synchronization layer: the
// one-shot reconciliation run at login, the per-key merge engine, the
// realtime mutation queue, and the post-download integrity checker.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mitul002/prayersync/internal/client/events"
	"github.com/mitul002/prayersync/internal/client/remote"
	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// Resolution is the user's answer to the conflict prompt.
type Resolution int

const (
	// ResolutionKeepLocal uploads this device's data, overriding cloud values.
	ResolutionKeepLocal Resolution = iota
	// ResolutionKeepCloud downloads the cloud data, discarding local values.
	ResolutionKeepCloud
	// ResolutionMerge combines both sides with the per-key merge rules.
	ResolutionMerge
)

// ConflictPrompter presents the three-way conflict choice and blocks
// until the user decides. No timeout is applied: an unanswered prompt
// keeps reconciliation (and the paused queue) waiting, by choice of
// data safety over liveness.
type ConflictPrompter interface {
	Choose(ctx context.Context) (Resolution, error)
}

// Pausable is the realtime queue surface the reconciler controls while
// it owns the remote document.
type Pausable interface {
	Pause()
	Resume()
}

// Reconciler decides, once per login per session, how to unify local
// and remote state, then hands continuous synchronization back to the
// realtime queue.
type Reconciler struct {
	local     storage.KV
	remote    remote.Store
	transfer  *Transfer
	integrity *Integrity
	session   *Session
	queue     Pausable
	prompter  ConflictPrompter
	bus       *events.Bus
	logger    *slog.Logger
	page      string

	// Alert surfaces rare user-visible failures (merge fallback).
	// Optional; nil drops the message after logging.
	Alert func(msg string)

	now func() time.Time
}

// NewReconciler wires the conflict resolution engine. queue and
// prompter may be nil (no queue to pause; conflicts then fall back to
// cloud data).
func NewReconciler(
	local storage.KV,
	rs remote.Store,
	transfer *Transfer,
	integrity *Integrity,
	session *Session,
	queue Pausable,
	prompter ConflictPrompter,
	bus *events.Bus,
	logger *slog.Logger,
	page string,
) *Reconciler {
	return &Reconciler{
		local:     local,
		remote:    rs,
		transfer:  transfer,
		integrity: integrity,
		session:   session,
		queue:     queue,
		prompter:  prompter,
		bus:       bus,
		logger:    logger,
		page:      page,
		now:       time.Now,
	}
}

// Reconcile runs the one-shot reconciliation for userID. It is a no-op
// when a run is already in progress or this user already completed one
// in this session. Reconciliation always marks itself complete and
// emits the sync-complete event, even on error, to avoid retry storms;
// the queue is resumed unconditionally.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) error {
	if userID == "" {
		r.logger.Warn("reconciliation skipped: no user id")
		return nil
	}
	if !r.session.TryBegin(userID) {
		r.logger.Debug("reconciliation already done or in progress", "user_id", userID)
		return nil
	}

	if r.queue != nil {
		r.queue.Pause()
	}

	outcome := "noop"
	defer func() {
		r.session.MarkComplete(userID)
		r.bus.Publish(events.Event{Topic: events.TopicSyncComplete, UserID: userID, Detail: outcome})
		if r.queue != nil {
			r.queue.Resume()
		}
	}()

	r.logger.Info("starting reconciliation", "user_id", userID)

	doc, found, err := r.remote.GetDocument(ctx, userID)
	if err != nil {
		r.logger.Warn("reconciliation check failed, falling back", "user_id", userID, "error", err)
		outcome = r.recover(ctx, userID)
		return nil
	}

	// simple preferences never participate in conflicts: pull them
	// from the remote document before anything else
	if found {
		r.pullSimplePreferences(doc)
	}

	// Note: this existence scan runs after the preference pull and
	// does not exclude preference keys, mirroring the app's behavior.
	// A remote document holding only preferences therefore counts as
	// local data from here on; the cost is at most one extra prompt,
	// never data loss.
	localExists := r.localDataExists()

	switch {
	case !localExists && found:
		if _, err := r.transfer.DownloadRemoteToLocal(ctx, userID); err != nil {
			r.logger.Error("download failed", "user_id", userID, "error", err)
			outcome = "error"
			return nil
		}
		r.integrity.Run()
		outcome = "download"

	case localExists && found:
		outcome = r.resolveConflict(ctx, userID)

	case localExists && !found:
		if _, err := r.transfer.UploadLocalToRemote(ctx, userID); err != nil {
			r.logger.Error("upload failed", "user_id", userID, "error", err)
			outcome = "error"
			return nil
		}
		outcome = "upload"
	}

	r.logger.Info("reconciliation complete", "user_id", userID, "outcome", outcome)
	return nil
}

// resolveConflict runs the three-way prompt and applies the decision.
func (r *Reconciler) resolveConflict(ctx context.Context, userID string) string {
	if r.prompter == nil {
		r.logger.Warn("no conflict prompter wired, keeping cloud data", "user_id", userID)
		return r.fallbackToCloud(ctx, userID)
	}

	resolution, err := r.prompter.Choose(ctx)
	if err != nil {
		r.logger.Warn("conflict prompt failed, keeping cloud data", "user_id", userID, "error", err)
		return r.fallbackToCloud(ctx, userID)
	}

	switch resolution {
	case ResolutionKeepLocal:
		if _, err := r.transfer.UploadLocalToRemote(ctx, userID); err != nil {
			r.logger.Error("keep-local upload failed", "user_id", userID, "error", err)
			return "error"
		}
		return "keep-local"

	case ResolutionKeepCloud:
		return r.fallbackToCloud(ctx, userID)

	case ResolutionMerge:
		if err := r.smartMerge(ctx, userID); err != nil {
			r.logger.Error("merge failed, keeping cloud data", "user_id", userID, "error", err)
			r.alert("Merging your data failed; your cloud data was kept.")
			return r.fallbackToCloud(ctx, userID)
		}
		return "merge"
	}

	return "noop"
}

// smartMerge combines both snapshots, uploads the result, and applies
// it locally with the same clear-then-set discipline as a download.
func (r *Reconciler) smartMerge(ctx context.Context, userID string) error {
	doc, found, err := r.remote.GetDocument(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch document for merge: %w", err)
	}
	if !found {
		doc = remote.Document{}
	}

	localSnap := r.localSnapshot()
	remoteSnap := make(map[string]any)
	for _, key := range keyreg.Keys() {
		if value, ok := doc[keyreg.RemoteField(key)]; ok {
			remoteSnap[key] = value
		}
	}

	merged := MergeSnapshots(localSnap, remoteSnap, r.logger)

	fields := make(map[string]any, len(merged)+3)
	for key, value := range merged {
		fields[keyreg.RemoteField(key)] = value
	}
	fields[fieldLastSync] = r.now().UTC().Format(time.RFC3339)
	fields[fieldSyncSource] = r.page
	fields[fieldSyncVersion] = SyncVersion

	if err := r.remote.SetDocumentMerged(ctx, userID, fields); err != nil {
		return fmt.Errorf("failed to upload merged snapshot: %w", err)
	}

	for _, key := range keyreg.Keys() {
		if err := r.local.Remove(key); err != nil {
			return fmt.Errorf("failed to clear %q: %w", key, err)
		}
	}
	for key, value := range merged {
		encoded, err := encodeRemote(value)
		if err != nil {
			return fmt.Errorf("failed to encode merged %q: %w", key, err)
		}
		if err := r.local.Set(key, encoded); err != nil {
			return fmt.Errorf("failed to store merged %q: %w", key, err)
		}
	}

	r.integrity.Run()
	r.logger.Info("smart merge applied", "user_id", userID, "keys", len(merged))
	return nil
}

// fallbackToCloud makes the remote copy authoritative.
func (r *Reconciler) fallbackToCloud(ctx context.Context, userID string) string {
	if _, err := r.transfer.DownloadRemoteToLocal(ctx, userID); err != nil {
		r.logger.Error("cloud fallback download failed", "user_id", userID, "error", err)
		return "error"
	}
	r.integrity.Run()
	return "keep-cloud"
}

// recover handles an error during the conflict check: retry the
// existence probe once, download if a document exists, otherwise
// proceed without syncing.
func (r *Reconciler) recover(ctx context.Context, userID string) string {
	_, found, err := r.remote.GetDocument(ctx, userID)
	if err != nil {
		r.logger.Warn("recovery probe failed, proceeding without sync", "user_id", userID, "error", err)
		return "error"
	}
	if !found {
		return "noop"
	}
	return r.fallbackToCloud(ctx, userID)
}

// pullSimplePreferences overwrites local preference keys from the
// remote document.
func (r *Reconciler) pullSimplePreferences(doc remote.Document) {
	for _, key := range keyreg.SimplePreferences() {
		value, ok := doc[keyreg.RemoteField(key)]
		if !ok {
			continue
		}
		sanitized, err := r.transfer.sanitizeRemoteValue(key, value)
		if err != nil {
			r.logger.Warn("skipping unusable preference", "key", key, "error", err)
			continue
		}
		if err := r.local.Set(key, sanitized); err != nil {
			r.logger.Warn("failed to apply preference", "key", key, "error", err)
		}
	}
}

// localDataExists reports whether any registered key holds a non-null
// local value. The scan walks the keys already present in the store
// instead of probing every registered key: a probing Get through the
// guarded store repairs missing defaults on read, which would make an
// empty device look populated.
func (r *Reconciler) localDataExists() bool {
	keys, err := r.local.Keys()
	if err != nil {
		return false
	}
	for _, key := range keys {
		if !keyreg.IsSyncable(key) {
			continue
		}
		value, err := r.local.Get(key)
		if err != nil {
			continue
		}
		switch value {
		case "", "null", "undefined":
			continue
		}
		return true
	}
	return false
}

// localSnapshot reads the registered keys present in the store into a
// decoded snapshot. Like the existence scan it never probes absent
// keys, so guard repair cannot inject defaults into a merge.
func (r *Reconciler) localSnapshot() map[string]any {
	snap := make(map[string]any)
	keys, err := r.local.Keys()
	if err != nil {
		return snap
	}
	for _, key := range keys {
		if !keyreg.IsSyncable(key) {
			continue
		}
		value, err := r.local.Get(key)
		if err != nil {
			continue
		}
		snap[key] = decodeLocal(value)
	}
	return snap
}

func (r *Reconciler) alert(msg string) {
	if r.Alert != nil {
		r.Alert(msg)
	}
}
