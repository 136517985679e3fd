package sync

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitul002/prayersync/internal/client/storage/memstore"
	"github.com/mitul002/prayersync/internal/keyreg"
)

func newBackup(t *testing.T) (*Backup, *memstore.Store) {
	t.Helper()
	local := memstore.New()
	return NewBackup(local, NewIntegrity(local, testLogger()), testLogger()), local
}

func TestBackup_ExportRestoreRoundTrip(t *testing.T) {
	b, local := newBackup(t)
	require.NoError(t, local.Set(keyreg.KeyLanguage, "bn"))
	require.NoError(t, local.Set(keyreg.KeyQazaCount, "8"))
	require.NoError(t, local.Set(keyreg.KeyPrayerLog, `{"2026-08-01":{"fajr":"completed"}}`))
	require.NoError(t, local.Set("scratch", "ignored"))

	data, err := b.Export()
	require.NoError(t, err)

	var snap BackupSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, SyncVersion, snap.Version)
	assert.NotContains(t, snap.Data, "scratch")

	// restore into a blank store
	b2, local2 := newBackup(t)
	applied, err := b2.Restore(data)
	require.NoError(t, err)
	assert.Equal(t, 3, applied)

	lang, err := local2.Get(keyreg.KeyLanguage)
	require.NoError(t, err)
	assert.Equal(t, "bn", lang)

	log, err := local2.Get(keyreg.KeyPrayerLog)
	require.NoError(t, err)
	assert.JSONEq(t, `{"2026-08-01":{"fajr":"completed"}}`, log)
}

func TestBackup_RestoreSkipsUnregisteredKeys(t *testing.T) {
	b, local := newBackup(t)

	applied, err := b.Restore([]byte(`{"version":"2.0","data":{"language":"ar","rogue":"x"}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	_, err = local.Get("rogue")
	assert.Error(t, err)
}

func TestBackup_RestoreRejectsGarbage(t *testing.T) {
	b, _ := newBackup(t)

	_, err := b.Restore([]byte("not json"))
	assert.Error(t, err)
}

func TestBackup_RestoreRunsIntegrity(t *testing.T) {
	b, local := newBackup(t)

	// a hand-edited backup with a negative counter gets repaired
	_, err := b.Restore([]byte(`{"version":"2.0","data":{"qaza_count":-3}}`))
	require.NoError(t, err)

	qaza, err := local.Get(keyreg.KeyQazaCount)
	require.NoError(t, err)
	assert.Equal(t, "0", qaza)
}
