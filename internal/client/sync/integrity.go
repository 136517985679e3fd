package sync

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// Integrity repairs missing or malformed required keys after a full
// download. All repairs are silent toward the user; each one logs a
// warning.
type Integrity struct {
	local  storage.KV
	logger *slog.Logger
}

// NewIntegrity creates the post-download integrity checker.
func NewIntegrity(local storage.KV, logger *slog.Logger) *Integrity {
	return &Integrity{local: local, logger: logger}
}

// Run checks and repairs every key in the default-value and
// required-object tables. It returns the number of repairs applied.
func (i *Integrity) Run() int {
	repairs := 0

	for _, key := range keyreg.DefaultKeys() {
		if i.repairDefault(key) {
			repairs++
		}
	}
	for _, key := range keyreg.RequiredObjectKeys() {
		if i.repairObject(key) {
			repairs++
		}
	}

	if repairs > 0 {
		i.logger.Info("integrity check repaired keys", "repairs", repairs)
	}
	return repairs
}

// repairDefault validates one scalar key against the default table.
func (i *Integrity) repairDefault(key string) bool {
	def, _ := keyreg.Default(key)

	value, err := i.local.Get(key)
	if err != nil || value == "null" || value == "undefined" || value == "" {
		i.replace(key, def, "missing or null value")
		return true
	}

	if keyreg.IsNumeric(key) {
		n, convErr := strconv.Atoi(value)
		if convErr != nil || n < 0 {
			i.replace(key, def, "non-numeric or negative value")
			return true
		}
	}

	return false
}

// repairObject validates one structured key against the
// required-object table.
func (i *Integrity) repairObject(key string) bool {
	def, _ := keyreg.RequiredObjectDefault(key)

	value, err := i.local.Get(key)
	if err != nil {
		i.replace(key, def, "missing required object")
		return true
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		i.replace(key, def, "unparseable required object")
		return true
	}

	if key == keyreg.KeyDhikrStats && i.repairStats(parsed) {
		data, err := json.Marshal(parsed)
		if err != nil {
			i.replace(key, def, "unencodable stats object")
			return true
		}
		i.replace(key, string(data), "malformed stats subfields")
		return true
	}

	return false
}

// repairStats validates the stats blob in place: numeric subfields
// must be non-negative numbers and the two sub-maps must exist.
// Reports whether anything was changed.
func (i *Integrity) repairStats(stats map[string]any) bool {
	changed := false

	for _, field := range []string{"streak", "completedSessions", "totalCount"} {
		n, ok := asNumber(stats[field])
		if !ok || n < 0 {
			stats[field] = float64(0)
			changed = true
		}
	}
	for _, field := range []string{"dailyHistory", "dhikrCounts"} {
		if _, ok := asMap(stats[field]); !ok {
			stats[field] = map[string]any{}
			changed = true
		}
	}

	return changed
}

func (i *Integrity) replace(key, value, reason string) {
	i.logger.Warn("repairing key", "key", key, "reason", reason)
	if err := i.local.Set(key, value); err != nil {
		i.logger.Error("failed to repair key", "key", key, "error", err)
	}
}
