// Package keyreg is the authoritative registry of synchronizable keys.
//
// It is pure data: the full key set, the "simple preference" subset that
// is always taken from the remote document without conflict prompting,
// the bidirectional mapping between local key names and remote document
// field names, and the default-value tables used by the store guard, the
// download validator and the integrity checker.
package keyreg

// Local key names. The local store uses underscore names; the remote
// document uses the hyphenated equivalents (see remoteFields below).
const (
	KeyLanguage          = "language"
	KeyTheme             = "theme"
	KeyCalculationMethod = "calculation_method"
	KeyPrayerSchool      = "prayer_school"
	KeyTimeFormat        = "time_format"
	KeyNotificationMode  = "notification_mode"
	KeySortOrder         = "sort_order"
	KeyQazaCount         = "qaza_count"
	KeyLastPrayerDate    = "last_prayer_date"
	KeyPrayerLog         = "prayer_log"
	KeyDhikrSettings     = "dhikr_settings"
	KeyDhikrStats        = "dhikr_stats"
	KeyDhikrSession      = "dhikr_session"
	KeyFavoriteDhikrs    = "favorite_dhikrs"
	KeyFavoritePlaces    = "favorite_places"
)

// syncableKeys lists every key that participates in synchronization,
// in upload order.
var syncableKeys = []string{
	KeyLanguage,
	KeyTheme,
	KeyCalculationMethod,
	KeyPrayerSchool,
	KeyTimeFormat,
	KeyNotificationMode,
	KeySortOrder,
	KeyQazaCount,
	KeyLastPrayerDate,
	KeyPrayerLog,
	KeyDhikrSettings,
	KeyDhikrStats,
	KeyDhikrSession,
	KeyFavoriteDhikrs,
	KeyFavoritePlaces,
}

var syncableSet = toSet(syncableKeys)

// simplePreferences are pulled from the remote document whenever it
// exists, before any conflict detection. Remote wins if present.
var simplePreferences = []string{
	KeyLanguage,
	KeyTheme,
	KeyCalculationMethod,
	KeyPrayerSchool,
	KeyTimeFormat,
	KeyNotificationMode,
}

var simplePreferenceSet = toSet(simplePreferences)

// remoteFields maps local key names to remote document field names.
// Keys absent from this table use the same name on both sides.
var remoteFields = map[string]string{
	KeyCalculationMethod: "calculation-method",
	KeyPrayerSchool:      "prayer-school",
	KeyTimeFormat:        "time-format",
	KeyNotificationMode:  "notification-mode",
	KeySortOrder:         "sort-order",
	KeyQazaCount:         "qaza-count",
	KeyLastPrayerDate:    "last-prayer-date",
	KeyPrayerLog:         "prayer-log",
	KeyDhikrSettings:     "dhikr-settings",
	KeyDhikrStats:        "dhikr-stats",
	KeyDhikrSession:      "dhikr-session",
	KeyFavoriteDhikrs:    "favorite-dhikrs",
	KeyFavoritePlaces:    "favorite-places",
}

var localKeys = invert(remoteFields)

// defaults is the default-value table consulted by the store guard and
// the integrity checker.
var defaults = map[string]string{
	KeyLanguage:          "en",
	KeyTheme:             "dark",
	KeyCalculationMethod: "3",
	KeyPrayerSchool:      "0",
	KeyTimeFormat:        "12h",
	KeyNotificationMode:  "0",
	KeySortOrder:         "default",
	KeyQazaCount:         "0",
}

// numericKeys hold integer values stored as strings.
var numericKeys = toSet([]string{
	KeyCalculationMethod,
	KeyPrayerSchool,
	KeyNotificationMode,
	KeyQazaCount,
})

// zeroAllowed lists numeric keys where zero is a legitimate stored
// value. For any other numeric key a downloaded zero is treated as
// missing data.
var zeroAllowed = toSet([]string{
	KeyNotificationMode,
	KeyPrayerSchool,
	KeyQazaCount,
})

// nullSubstitutes replace a downloaded literal null (or the string
// "null") for specific keys. Other keys keep the value as-is.
var nullSubstitutes = map[string]string{
	KeyLanguage:          "en",
	KeyTheme:             "dark",
	KeyCalculationMethod: "3",
}

// numericPreferenceDefaults replace falsy-but-not-zero downloaded values
// for the numeric preference selectors.
var numericPreferenceDefaults = map[string]string{
	KeyCalculationMethod: "3",
	KeyPrayerSchool:      "0",
	KeyNotificationMode:  "0",
}

// requiredObjects are the structured blobs the integrity checker
// guarantees to exist after every full download, with their empty
// default shapes.
var requiredObjects = map[string]string{
	KeyPrayerLog:     `{}`,
	KeyDhikrSettings: `{"sound":false,"vibration":true,"targets":{}}`,
	KeyDhikrStats:    `{"streak":0,"completedSessions":0,"totalCount":0,"dailyHistory":{},"dhikrCounts":{}}`,
}

// Keys returns the full synchronizable key set.
func Keys() []string {
	out := make([]string, len(syncableKeys))
	copy(out, syncableKeys)
	return out
}

// SimplePreferences returns the simple-preference subset.
func SimplePreferences() []string {
	out := make([]string, len(simplePreferences))
	copy(out, simplePreferences)
	return out
}

// IsSyncable reports whether key participates in synchronization.
func IsSyncable(key string) bool { return syncableSet[key] }

// IsSimplePreference reports whether key is exempt from conflict
// prompting (remote always wins when present).
func IsSimplePreference(key string) bool { return simplePreferenceSet[key] }

// RemoteField returns the remote document field name for a local key,
// or the key unchanged if unmapped.
func RemoteField(localKey string) string {
	if f, ok := remoteFields[localKey]; ok {
		return f
	}
	return localKey
}

// LocalKey returns the local key name for a remote field, or the field
// unchanged if unmapped.
func LocalKey(remoteField string) string {
	if k, ok := localKeys[remoteField]; ok {
		return k
	}
	return remoteField
}

// Default returns the registered default value for key, if any.
func Default(key string) (string, bool) {
	v, ok := defaults[key]
	return v, ok
}

// IsNumeric reports whether key holds a numeric value.
func IsNumeric(key string) bool { return numericKeys[key] }

// ZeroAllowed reports whether a numeric zero is a legitimate value for
// key.
func ZeroAllowed(key string) bool { return zeroAllowed[key] }

// NullSubstitute returns the replacement for a null value of key.
func NullSubstitute(key string) (string, bool) {
	v, ok := nullSubstitutes[key]
	return v, ok
}

// NumericPreferenceDefault returns the fallback for a falsy-but-not-zero
// numeric preference value.
func NumericPreferenceDefault(key string) (string, bool) {
	v, ok := numericPreferenceDefaults[key]
	return v, ok
}

// RequiredObjectDefault returns the default JSON shape for a required
// structured key.
func RequiredObjectDefault(key string) (string, bool) {
	v, ok := requiredObjects[key]
	return v, ok
}

// RequiredObjectKeys returns the keys of the required-object table.
func RequiredObjectKeys() []string {
	return []string{KeyDhikrSettings, KeyDhikrStats, KeyPrayerLog}
}

// DefaultKeys returns the keys of the default-value table.
func DefaultKeys() []string {
	out := make([]string, 0, len(defaults))
	for _, k := range syncableKeys {
		if _, ok := defaults[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func invert(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[v] = k
	}
	return out
}
