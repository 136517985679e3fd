package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitul002/prayersync/internal/client/events"
	"github.com/mitul002/prayersync/internal/client/guard"
	"github.com/mitul002/prayersync/internal/client/remote"
	"github.com/mitul002/prayersync/internal/client/storage/memstore"
	"github.com/mitul002/prayersync/internal/keyreg"
)

type stubPrompter struct {
	resolution Resolution
	err        error
	calls      int
}

func (p *stubPrompter) Choose(ctx context.Context) (Resolution, error) {
	p.calls++
	return p.resolution, p.err
}

type recordingPausable struct {
	pauses  int
	resumes int
}

func (r *recordingPausable) Pause()  { r.pauses++ }
func (r *recordingPausable) Resume() { r.resumes++ }

type reconcilerFixture struct {
	reconciler *Reconciler
	local      *memstore.Store
	remote     *flakyRemote
	state      *Session
	prompter   *stubPrompter
	pausable   *recordingPausable
	bus        *events.Bus
}

func newReconcilerFixture(t *testing.T) *reconcilerFixture {
	t.Helper()
	local := memstore.New()
	rs := &flakyRemote{Memory: remote.NewMemory()}
	logger := testLogger()
	transfer := NewTransfer(local, rs, logger, "test")
	integrity := NewIntegrity(local, logger)
	state := NewSession(memstore.New())
	prompter := &stubPrompter{}
	pausable := &recordingPausable{}
	bus := events.NewBus()

	r := NewReconciler(local, rs, transfer, integrity, state, pausable, prompter, bus, logger, "test")
	return &reconcilerFixture{
		reconciler: r,
		local:      local,
		remote:     rs,
		state:      state,
		prompter:   prompter,
		pausable:   pausable,
		bus:        bus,
	}
}

func (f *reconcilerFixture) seedRemote(t *testing.T, fields map[string]any) {
	t.Helper()
	require.NoError(t, f.remote.SetDocumentMerged(context.Background(), testUser, fields))
}

func TestReconcile_FreshDeviceDownloads(t *testing.T) {
	f := newReconcilerFixture(t)
	// no simple preferences in the document: pulling those first would
	// make the local store non-empty and route into the conflict branch
	f.seedRemote(t, map[string]any{
		"qaza-count": float64(6),
		"prayer-log": map[string]any{"2026-08-01": map[string]any{"fajr": "completed"}},
	})

	done, unsub := f.bus.Subscribe(events.TopicSyncComplete)
	defer unsub()

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	qaza, err := f.local.Get(keyreg.KeyQazaCount)
	require.NoError(t, err)
	assert.Equal(t, "6", qaza)

	// integrity filled keys the document lacked
	theme, err := f.local.Get(keyreg.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)

	assert.Zero(t, f.prompter.calls)
	assert.True(t, f.state.Completed(testUser))
	assert.Equal(t, 1, f.pausable.pauses)
	assert.Equal(t, 1, f.pausable.resumes)

	select {
	case evt := <-done:
		assert.Equal(t, testUser, evt.UserID)
		assert.Equal(t, "download", evt.Detail)
	case <-time.After(time.Second):
		t.Fatal("no sync-complete event")
	}
}

func TestReconcile_NewUserUploads(t *testing.T) {
	f := newReconcilerFixture(t)
	require.NoError(t, f.local.Set(keyreg.KeyTheme, "light"))
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "2"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	doc, found, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "light", doc["theme"])
	assert.Equal(t, float64(2), doc["qaza-count"])
	assert.Zero(t, f.prompter.calls)
}

func TestReconcile_NothingAnywhereIsNoop(t *testing.T) {
	f := newReconcilerFixture(t)

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	_, found, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, f.state.Completed(testUser))
}

func TestReconcile_ConflictKeepLocal(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.resolution = ResolutionKeepLocal
	f.seedRemote(t, map[string]any{"qaza-count": float64(9)})
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "2"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	assert.Equal(t, 1, f.prompter.calls)
	doc, _, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, float64(2), doc["qaza-count"])
}

func TestReconcile_ConflictKeepCloud(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.resolution = ResolutionKeepCloud
	f.seedRemote(t, map[string]any{"qaza-count": float64(9)})
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "2"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	qaza, err := f.local.Get(keyreg.KeyQazaCount)
	require.NoError(t, err)
	assert.Equal(t, "9", qaza)
}

func TestReconcile_ConflictMerge(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.resolution = ResolutionMerge
	f.seedRemote(t, map[string]any{
		"qaza-count": float64(4),
		"prayer-log": map[string]any{"2026-08-01": map[string]any{"fajr": "missed"}},
	})
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "3"))
	require.NoError(t, f.local.Set(keyreg.KeyPrayerLog, `{"2026-08-01":{"fajr":"completed","dhuhr":"qaza"}}`))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	// both sides land on the combined snapshot
	doc, _, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, float64(7), doc["qaza-count"])

	qaza, err := f.local.Get(keyreg.KeyQazaCount)
	require.NoError(t, err)
	assert.Equal(t, "7", qaza)

	log, err := f.local.Get(keyreg.KeyPrayerLog)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2026-08-01":{"fajr":"completed","dhuhr":"qaza"}}`, log)
}

func TestReconcile_PromptFailureFallsBackToCloud(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.err = errors.New("prompt dismissed")
	f.seedRemote(t, map[string]any{"theme": "dark"})
	require.NoError(t, f.local.Set(keyreg.KeyTheme, "light"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	theme, err := f.local.Get(keyreg.KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
}

func TestReconcile_SimplePreferencesNeverConflict(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.resolution = ResolutionKeepLocal
	f.seedRemote(t, map[string]any{
		"language":   "ar",
		"qaza-count": float64(1),
	})
	require.NoError(t, f.local.Set(keyreg.KeyLanguage, "en"))
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "5"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	// the preference was pulled from remote before the prompt
	lang, err := f.local.Get(keyreg.KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "ar", lang)
}

func TestReconcile_SecondRunIsNoop(t *testing.T) {
	f := newReconcilerFixture(t)
	f.prompter.resolution = ResolutionKeepLocal
	f.seedRemote(t, map[string]any{"qaza-count": float64(9)})
	require.NoError(t, f.local.Set(keyreg.KeyQazaCount, "2"))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))
	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	assert.Equal(t, 1, f.prompter.calls)
	assert.Equal(t, 1, f.pausable.pauses)
}

func TestReconcile_EmptyUserIsNoop(t *testing.T) {
	f := newReconcilerFixture(t)

	require.NoError(t, f.reconciler.Reconcile(context.Background(), ""))

	assert.False(t, f.state.InProgress())
	assert.Zero(t, f.pausable.pauses)
}

// guardedFixture composes the reconciler over the repairing store
// decorator, matching the production wiring. The existence scan must
// not count defaults the decorator conjures on read.
type guardedFixture struct {
	reconciler *Reconciler
	raw        *memstore.Store
	remote     *remote.Memory
	prompter   *stubPrompter
	bus        *events.Bus
}

func newGuardedFixture(t *testing.T) *guardedFixture {
	t.Helper()
	logger := testLogger()
	raw := memstore.New()
	guarded := guard.New(raw, logger, nil)
	rs := remote.NewMemory()
	transfer := NewTransfer(guarded, rs, logger, "test")
	integrity := NewIntegrity(guarded, logger)
	state := NewSession(memstore.New())
	prompter := &stubPrompter{}
	bus := events.NewBus()

	r := NewReconciler(guarded, rs, transfer, integrity, state, nil, prompter, bus, logger, "test")
	return &guardedFixture{reconciler: r, raw: raw, remote: rs, prompter: prompter, bus: bus}
}

func TestReconcile_GuardedStoreFreshDeviceDownloads(t *testing.T) {
	f := newGuardedFixture(t)
	require.NoError(t, f.remote.SetDocumentMerged(context.Background(), testUser, map[string]any{
		"qaza-count": float64(5),
	}))

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	assert.Zero(t, f.prompter.calls)
	qaza, err := f.raw.Get(keyreg.KeyQazaCount)
	require.NoError(t, err)
	assert.Equal(t, "5", qaza)
}

func TestReconcile_GuardedStoreEmptyBothSidesIsNoop(t *testing.T) {
	f := newGuardedFixture(t)

	done, unsub := f.bus.Subscribe(events.TopicSyncComplete)
	defer unsub()

	require.NoError(t, f.reconciler.Reconcile(context.Background(), testUser))

	select {
	case evt := <-done:
		assert.Equal(t, "noop", evt.Detail)
	case <-time.After(time.Second):
		t.Fatal("no sync-complete event")
	}

	// no data moved in either direction
	_, found, err := f.remote.GetDocument(context.Background(), testUser)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Zero(t, f.prompter.calls)
}
