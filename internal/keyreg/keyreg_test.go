package keyreg

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteFieldRoundTrip(t *testing.T) {
	for _, key := range Keys() {
		remote := RemoteField(key)
		assert.Equal(t, key, LocalKey(remote), "mapping must be bidirectional for %s", key)
	}
}

func TestRemoteFieldUnmappedPassthrough(t *testing.T) {
	assert.Equal(t, "language", RemoteField("language"))
	assert.Equal(t, "not_registered", RemoteField("not_registered"))
	assert.Equal(t, "not-registered", LocalKey("not-registered"))
}

func TestSimplePreferencesAreSyncable(t *testing.T) {
	for _, key := range SimplePreferences() {
		assert.True(t, IsSyncable(key), "%s must be in the syncable set", key)
		assert.True(t, IsSimplePreference(key))
	}
	assert.False(t, IsSimplePreference(KeyQazaCount))
	assert.False(t, IsSimplePreference(KeyPrayerLog))
}

func TestZeroAllowList(t *testing.T) {
	assert.True(t, ZeroAllowed(KeyQazaCount))
	assert.True(t, ZeroAllowed(KeyPrayerSchool))
	assert.True(t, ZeroAllowed(KeyNotificationMode))
	assert.False(t, ZeroAllowed(KeyCalculationMethod))
}

func TestDefaults(t *testing.T) {
	lang, ok := Default(KeyLanguage)
	require.True(t, ok)
	assert.Equal(t, "en", lang)

	theme, ok := Default(KeyTheme)
	require.True(t, ok)
	assert.Equal(t, "dark", theme)

	_, ok = Default(KeyPrayerLog)
	assert.False(t, ok, "structured keys have object defaults, not scalar ones")
}

func TestRequiredObjectDefaultsAreValidJSON(t *testing.T) {
	for _, key := range RequiredObjectKeys() {
		raw, ok := RequiredObjectDefault(key)
		require.True(t, ok, "missing required object default for %s", key)

		var parsed map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &parsed), "default for %s must parse", key)
	}
}

func TestStatsDefaultShape(t *testing.T) {
	raw, ok := RequiredObjectDefault(KeyDhikrStats)
	require.True(t, ok)

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &stats))
	assert.Contains(t, stats, "streak")
	assert.Contains(t, stats, "dailyHistory")
	assert.Contains(t, stats, "dhikrCounts")
}
