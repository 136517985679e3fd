package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/mitul002/prayersync/internal/client/remote"
	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
	"github.com/mitul002/prayersync/internal/models"
)

const (
	// queueStorageKey holds the persisted queue in the session store.
	queueStorageKey = "syncQueue"

	// flushItemDelay spaces out per-entry merge-writes during a flush
	// so a long queue does not hammer the remote.
	flushItemDelay = 250 * time.Millisecond

	// A flush triggered before reconciliation finished waits for the
	// completion flag. After flushWaitAttempts polls it proceeds
	// unconditionally rather than stalling the queue forever.
	flushWaitAttempts = 30
	flushWaitInterval = time.Second
)

// UserSource reports the currently signed-in user, empty when signed
// out.
type UserSource interface {
	Current() string
}

// Status is a point-in-time snapshot of the queue's state.
type Status struct {
	Online         bool
	Authenticated  bool
	QueueLength    int
	SyncInProgress bool
}

// Queue wraps the local store and propagates every mutation of a
// synchronizable key to the remote document. When online and
// authenticated it pushes field-level merge-writes immediately; when
// not, it queues entries durably (deduplicated by key) in the session
// store and flushes them on reconnect or sign-in.
//
// Queue implements storage.KV; application code writes through it,
// never through the raw store.
type Queue struct {
	local    storage.KV
	session  storage.KV // session-scoped, survives reloads only
	remote   remote.Store
	transfer *Transfer
	state    *Session
	users    UserSource
	logger   *slog.Logger
	page     string
	now      func() time.Time

	// sleep is swapped out in tests to skip real flush delays.
	sleep func(time.Duration)

	mu       gosync.Mutex
	online   bool
	paused   bool
	flushing bool
	entries  []models.QueueEntry
}

// NewQueue builds the realtime queue around local, restoring any
// entries persisted from an earlier page load in this session.
func NewQueue(
	local storage.KV,
	session storage.KV,
	rs remote.Store,
	transfer *Transfer,
	state *Session,
	users UserSource,
	logger *slog.Logger,
	page string,
) *Queue {
	q := &Queue{
		local:    local,
		session:  session,
		remote:   rs,
		transfer: transfer,
		state:    state,
		users:    users,
		logger:   logger,
		page:     page,
		now:      time.Now,
		sleep:    time.Sleep,
		online:   true,
	}
	q.restore()
	return q
}

// Get reads through to the local store.
func (q *Queue) Get(key string) (string, error) { return q.local.Get(key) }

// Keys reads through to the local store.
func (q *Queue) Keys() ([]string, error) { return q.local.Keys() }

// Clear clears the local store without producing queue entries.
// Reconciliation uses this for its clear-then-set passes.
func (q *Queue) Clear() error { return q.local.Clear() }

// Set writes the value locally and propagates it if the key is
// synchronizable. Invalid language values are rewritten to the default
// before they can reach the remote.
func (q *Queue) Set(key, value string) error {
	if key == keyreg.KeyLanguage {
		switch value {
		case "", "null", "undefined":
			q.logger.Warn("rewriting invalid language value", "value", value)
			value = "en"
		}
	}

	if err := q.local.Set(key, value); err != nil {
		return err
	}
	if keyreg.IsSyncable(key) {
		q.propagate(models.QueueEntry{
			Timestamp:  q.now(),
			Key:        key,
			Value:      value,
			Op:         models.OpSet,
			OriginPage: q.page,
		})
	}
	return nil
}

// Remove deletes the key locally and propagates a field deletion.
func (q *Queue) Remove(key string) error {
	if err := q.local.Remove(key); err != nil {
		return err
	}
	if keyreg.IsSyncable(key) {
		q.propagate(models.QueueEntry{
			Timestamp:  q.now(),
			Key:        key,
			Op:         models.OpRemove,
			OriginPage: q.page,
		})
	}
	return nil
}

// propagate pushes an entry to the remote immediately when possible,
// otherwise queues it. A failed push is queued, not dropped; the next
// mutation, reconnect, or force-sync retries it.
func (q *Queue) propagate(entry models.QueueEntry) {
	userID := q.users.Current()

	q.mu.Lock()
	ready := q.online && !q.paused && userID != ""
	q.mu.Unlock()

	if !ready {
		q.enqueue(entry)
		return
	}

	if err := q.push(context.Background(), userID, entry); err != nil {
		q.logger.Warn("push failed, queueing entry", "key", entry.Key, "error", err)
		q.enqueue(entry)
	}
}

// push performs the single-field merge-write for one entry.
func (q *Queue) push(ctx context.Context, userID string, entry models.QueueEntry) error {
	var value any
	if entry.Op == models.OpSet {
		value = decodeLocal(entry.Value)
	}

	fields := map[string]any{
		keyreg.RemoteField(entry.Key): value,
		fieldLastSync:                 q.now().UTC().Format(time.RFC3339),
		fieldSyncSource:               entry.OriginPage,
	}
	if err := q.remote.SetDocumentMerged(ctx, userID, fields); err != nil {
		return err
	}
	q.logger.Debug("pushed change", "key", entry.Key, "op", entry.Op)
	return nil
}

// enqueue adds an entry, superseding any queued entry for the same
// key, and persists the queue immediately.
func (q *Queue) enqueue(entry models.QueueEntry) {
	q.mu.Lock()
	kept := q.entries[:0]
	for _, e := range q.entries {
		if e.Key != entry.Key {
			kept = append(kept, e)
		}
	}
	q.entries = append(kept, entry)
	snapshot := make([]models.QueueEntry, len(q.entries))
	copy(snapshot, q.entries)
	q.mu.Unlock()

	q.persist(snapshot)
}

// Flush drains the queue to the remote, one merge-write per entry with
// a small delay between items. If reconciliation has not completed for
// the current user it waits (bounded) for the completion flag first,
// then proceeds regardless, preferring eventual delivery over a stuck
// queue.
func (q *Queue) Flush(ctx context.Context) error {
	userID := q.users.Current()
	if userID == "" {
		return nil
	}

	q.mu.Lock()
	if q.flushing || q.paused || !q.online || len(q.entries) == 0 {
		q.mu.Unlock()
		return nil
	}
	q.flushing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	q.awaitReconciliation(ctx, userID)

	for {
		q.mu.Lock()
		if len(q.entries) == 0 {
			q.mu.Unlock()
			break
		}
		entry := q.entries[0]
		q.mu.Unlock()

		if err := q.push(ctx, userID, entry); err != nil {
			q.logger.Warn("flush stopped, entry kept", "key", entry.Key, "error", err)
			return fmt.Errorf("failed to flush %q: %w", entry.Key, err)
		}

		q.mu.Lock()
		// the head may have been superseded while we pushed; only
		// drop it if it is still the entry we sent
		if len(q.entries) > 0 && q.entries[0].Key == entry.Key && q.entries[0].Timestamp.Equal(entry.Timestamp) {
			q.entries = q.entries[1:]
		}
		snapshot := make([]models.QueueEntry, len(q.entries))
		copy(snapshot, q.entries)
		remaining := len(snapshot)
		q.mu.Unlock()

		q.persist(snapshot)
		if remaining > 0 {
			q.sleep(flushItemDelay)
		}
	}

	q.logger.Info("queue flushed", "user_id", userID)
	return nil
}

// awaitReconciliation polls the session completion flag before a flush.
func (q *Queue) awaitReconciliation(ctx context.Context, userID string) {
	if q.state.Completed(userID) {
		return
	}
	for attempt := 0; attempt < flushWaitAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		q.sleep(flushWaitInterval)
		if q.state.Completed(userID) {
			return
		}
	}
	q.logger.Warn("proceeding with flush before reconciliation completed", "user_id", userID)
}

// ForceSyncAll uploads a full snapshot of every synchronizable key in
// one merge-write. Used for explicit "sync now" actions and writes
// that need immediate durability.
func (q *Queue) ForceSyncAll(ctx context.Context) error {
	userID := q.users.Current()
	if userID == "" {
		return nil
	}
	if _, err := q.transfer.UploadLocalToRemote(ctx, userID); err != nil {
		return fmt.Errorf("force sync failed: %w", err)
	}
	// a full snapshot subsumes everything queued
	q.mu.Lock()
	q.entries = nil
	q.mu.Unlock()
	q.persist(nil)
	return nil
}

// SetOnline records connectivity. Coming back online flushes the queue
// in the background.
func (q *Queue) SetOnline(online bool) {
	q.mu.Lock()
	wasOnline := q.online
	q.online = online
	pending := len(q.entries)
	q.mu.Unlock()

	if online && !wasOnline && pending > 0 {
		go func() {
			if err := q.Flush(context.Background()); err != nil {
				q.logger.Warn("reconnect flush failed", "error", err)
			}
		}()
	}
}

// Pause stops all remote propagation; mutations queue locally.
// Reconciliation holds the queue paused while it owns the document.
func (q *Queue) Pause() {
	q.mu.Lock()
	q.paused = true
	q.mu.Unlock()
}

// Resume lifts a pause and flushes anything queued meanwhile.
func (q *Queue) Resume() {
	q.mu.Lock()
	q.paused = false
	pending := len(q.entries)
	online := q.online
	q.mu.Unlock()

	if online && pending > 0 {
		go func() {
			if err := q.Flush(context.Background()); err != nil {
				q.logger.Warn("resume flush failed", "error", err)
			}
		}()
	}
}

// Status reports the queue's current state.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Status{
		Online:         q.online,
		Authenticated:  q.users.Current() != "",
		QueueLength:    len(q.entries),
		SyncInProgress: q.flushing || q.state.InProgress(),
	}
}

// Len returns the number of queued entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// persist writes the queue snapshot to the session store so it
// survives a reload. An empty queue removes the key.
func (q *Queue) persist(entries []models.QueueEntry) {
	if len(entries) == 0 {
		if err := q.session.Remove(queueStorageKey); err != nil {
			q.logger.Warn("failed to clear persisted queue", "error", err)
		}
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		q.logger.Warn("failed to encode queue", "error", err)
		return
	}
	if err := q.session.Set(queueStorageKey, string(data)); err != nil {
		q.logger.Warn("failed to persist queue", "error", err)
	}
}

// restore loads a persisted queue from an earlier load of this
// session. A corrupt payload is dropped rather than blocking startup.
func (q *Queue) restore() {
	raw, err := q.session.Get(queueStorageKey)
	if err != nil {
		return
	}
	var entries []models.QueueEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		q.logger.Warn("dropping corrupt persisted queue", "error", err)
		_ = q.session.Remove(queueStorageKey)
		return
	}
	q.entries = entries
}
