package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitul002/prayersync/internal/client/remote"
	"github.com/mitul002/prayersync/internal/client/storage/memstore"
	"github.com/mitul002/prayersync/internal/keyreg"
)

type staticUser struct{ id string }

func (s *staticUser) Current() string { return s.id }

// flakyRemote fails merge-writes on demand.
type flakyRemote struct {
	*remote.Memory
	fail bool
}

func (f *flakyRemote) SetDocumentMerged(ctx context.Context, userID string, fields map[string]any) error {
	if f.fail {
		return errors.New("remote unavailable")
	}
	return f.Memory.SetDocumentMerged(ctx, userID, fields)
}

type queueFixture struct {
	queue   *Queue
	local   *memstore.Store
	session *memstore.Store
	remote  *flakyRemote
	state   *Session
}

func newQueueFixture(t *testing.T) *queueFixture {
	t.Helper()
	local := memstore.New()
	session := memstore.New()
	rs := &flakyRemote{Memory: remote.NewMemory()}
	logger := testLogger()
	transfer := NewTransfer(local, rs, logger, "test")
	state := NewSession(session)

	// reconciliation already done for this user
	require.True(t, state.TryBegin(testUser))
	state.MarkComplete(testUser)

	q := NewQueue(local, session, rs, transfer, state, &staticUser{id: testUser}, logger, "test")
	q.sleep = func(time.Duration) {}
	return &queueFixture{queue: q, local: local, session: session, remote: rs, state: state}
}

// goOnline flips connectivity without the background reconnect flush,
// so tests drive Flush themselves.
func (f *queueFixture) goOnline() {
	f.queue.mu.Lock()
	f.queue.online = true
	f.queue.mu.Unlock()
}

func (f *queueFixture) doc(t *testing.T) remote.Document {
	t.Helper()
	doc, _, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	return doc
}

func TestQueue_PushesImmediatelyWhenOnline(t *testing.T) {
	f := newQueueFixture(t)

	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "light"))

	doc := f.doc(t)
	assert.Equal(t, "light", doc["theme"])
	assert.Equal(t, "test", doc["syncSource"])
	assert.Zero(t, f.queue.Len())

	local, err := f.local.Get(keyreg.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "light", local)
}

func TestQueue_IgnoresUnregisteredKeys(t *testing.T) {
	f := newQueueFixture(t)

	require.NoError(t, f.queue.Set("scratch", "x"))

	_, found, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestQueue_RewritesInvalidLanguage(t *testing.T) {
	f := newQueueFixture(t)

	require.NoError(t, f.queue.Set(keyreg.KeyLanguage, "null"))

	local, err := f.local.Get(keyreg.KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "en", local)
	assert.Equal(t, "en", f.doc(t)["language"])
}

func TestQueue_OfflineDeduplicatesByKey(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.SetOnline(false)

	require.NoError(t, f.queue.Set(keyreg.KeyQazaCount, "1"))
	require.NoError(t, f.queue.Set(keyreg.KeyQazaCount, "2"))
	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))

	assert.Equal(t, 2, f.queue.Len())

	_, found, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, found)

	f.goOnline()
	require.NoError(t, f.queue.Flush(context.Background()))

	doc := f.doc(t)
	assert.Equal(t, float64(2), doc["qaza-count"]) // later write superseded the first
	assert.Equal(t, "dark", doc["theme"])
	assert.Zero(t, f.queue.Len())
}

func TestQueue_PersistsAcrossReload(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.SetOnline(false)

	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))
	require.NoError(t, f.queue.Set(keyreg.KeyQazaCount, "3"))

	// a new queue over the same session store models a page reload
	logger := testLogger()
	transfer := NewTransfer(f.local, f.remote, logger, "test")
	reloaded := NewQueue(f.local, f.session, f.remote, transfer, f.state, &staticUser{id: testUser}, logger, "test")
	reloaded.sleep = func(time.Duration) {}

	assert.Equal(t, 2, reloaded.Len())

	require.NoError(t, reloaded.Flush(context.Background()))
	assert.Zero(t, reloaded.Len())

	// the persisted queue key is removed once drained
	_, err := f.session.Get(queueStorageKey)
	assert.Error(t, err)
}

func TestQueue_RequeuesOnPushFailure(t *testing.T) {
	f := newQueueFixture(t)
	f.remote.fail = true

	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))
	assert.Equal(t, 1, f.queue.Len())

	f.remote.fail = false
	require.NoError(t, f.queue.Flush(context.Background()))
	assert.Zero(t, f.queue.Len())
	assert.Equal(t, "dark", f.doc(t)["theme"])
}

func TestQueue_FlushStopsOnFailureAndKeepsEntries(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.SetOnline(false)
	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))
	f.goOnline()

	f.remote.fail = true
	err := f.queue.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, f.queue.Len())
}

func TestQueue_RemoveDeletesRemoteField(t *testing.T) {
	f := newQueueFixture(t)
	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))
	require.Contains(t, f.doc(t), "theme")

	require.NoError(t, f.queue.Remove(keyreg.KeyTheme))

	assert.NotContains(t, f.doc(t), "theme")
}

func TestQueue_PauseQueuesAndResumeFlushes(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.Pause()

	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "light"))
	assert.Equal(t, 1, f.queue.Len())

	f.queue.Resume()
	assert.Eventually(t, func() bool {
		return f.queue.Len() == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "light", f.doc(t)["theme"])
}

func TestQueue_ForceSyncAllUploadsSnapshot(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.SetOnline(false)
	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))
	require.NoError(t, f.queue.Set(keyreg.KeyQazaCount, "4"))
	require.Equal(t, 2, f.queue.Len())
	f.goOnline()

	require.NoError(t, f.queue.ForceSyncAll(context.Background()))

	doc := f.doc(t)
	assert.Equal(t, "dark", doc["theme"])
	assert.Equal(t, float64(4), doc["qaza-count"])
	assert.Zero(t, f.queue.Len())
}

func TestFlush_WaitsBoundedForReconciliationThenProceeds(t *testing.T) {
	local := memstore.New()
	session := memstore.New()
	rs := &flakyRemote{Memory: remote.NewMemory()}
	logger := testLogger()
	transfer := NewTransfer(local, rs, logger, "test")
	// reconciliation never completes for this user
	state := NewSession(session)

	q := NewQueue(local, session, rs, transfer, state, &staticUser{id: testUser}, logger, "test")
	var polls int
	q.sleep = func(d time.Duration) {
		if d == flushWaitInterval {
			polls++
		}
	}

	q.SetOnline(false)
	require.NoError(t, q.Set(keyreg.KeyTheme, "light"))
	require.Equal(t, 1, q.Len())
	q.mu.Lock()
	q.online = true
	q.mu.Unlock()

	require.NoError(t, q.Flush(context.Background()))

	// polled the full bound, then delivered anyway
	assert.Equal(t, flushWaitAttempts, polls)
	assert.Zero(t, q.Len())

	doc, _, err := rs.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "light", doc["theme"])
}

func TestQueue_Status(t *testing.T) {
	f := newQueueFixture(t)
	f.queue.SetOnline(false)
	require.NoError(t, f.queue.Set(keyreg.KeyTheme, "dark"))

	status := f.queue.Status()
	assert.False(t, status.Online)
	assert.True(t, status.Authenticated)
	assert.Equal(t, 1, status.QueueLength)
	assert.False(t, status.SyncInProgress)
}
