// Package guard wraps the local store and keeps critical keys valid.
//
// The Store decorator intercepts every read and write. Writes of
// null-ish values to keys with a registered default are rewritten to
// the default; reads of missing values repair the underlying store and
// return the default. Callers compose it around the raw store at
// construction time and depend only on the storage.KV interface.
package guard

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/mitul002/prayersync/internal/client/storage"
	"github.com/mitul002/prayersync/internal/keyreg"
)

// graceWindow is how long after construction diagnostic warnings stay
// suppressed. Startup races (auth still settling, first reconciliation
// in flight) routinely read keys before they are populated.
const graceWindow = 5 * time.Second

// Store decorates a storage.KV with validation and repair.
type Store struct {
	kv       storage.KV
	logger   *slog.Logger
	start    time.Time
	settling func() bool // optional; true while reconciliation/auth is settling
}

// New creates a guard around kv. settling may be nil.
func New(kv storage.KV, logger *slog.Logger, settling func() bool) *Store {
	return &Store{
		kv:       kv,
		logger:   logger,
		start:    time.Now(),
		settling: settling,
	}
}

// Get retrieves the value stored under key. A missing or null-ish value
// for a key with a registered default repairs the store and returns the
// default instead.
func (s *Store) Get(key string) (string, error) {
	value, err := s.kv.Get(key)
	if err == nil && !isNullish(value) {
		return value, nil
	}
	if err != nil && err != storage.ErrKeyNotFound {
		return "", err
	}

	def, ok := keyreg.Default(key)
	if !ok {
		return value, err
	}

	s.warn("repairing missing value on read", "key", key, "default", def)
	if setErr := s.kv.Set(key, def); setErr != nil {
		return def, setErr
	}
	return def, nil
}

// Set stores value under key, substituting the registered default for
// invalid values.
func (s *Store) Set(key, value string) error {
	if isNullish(value) {
		if def, ok := keyreg.Default(key); ok {
			s.warn("rejecting invalid write", "key", key, "value", value, "default", def)
			value = def
		}
	}

	if keyreg.IsNumeric(key) && !isNumeric(value) {
		def, ok := keyreg.Default(key)
		if !ok {
			def = "0"
		}
		s.warn("rejecting non-numeric write", "key", key, "value", value, "default", def)
		value = def
	}

	return s.kv.Set(key, value)
}

// Remove deletes the value stored under key.
func (s *Store) Remove(key string) error { return s.kv.Remove(key) }

// Clear removes every stored value.
func (s *Store) Clear() error { return s.kv.Clear() }

// Keys returns every stored key.
func (s *Store) Keys() ([]string, error) { return s.kv.Keys() }

// warn logs a repair warning unless the startup grace window is still
// open or the session is still settling.
func (s *Store) warn(msg string, args ...any) {
	if time.Since(s.start) < graceWindow {
		return
	}
	if s.settling != nil && s.settling() {
		return
	}
	s.logger.Warn(msg, args...)
}

func isNullish(value string) bool {
	switch value {
	case "", "null", "undefined":
		return true
	}
	return false
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	_, err := strconv.Atoi(value)
	return err == nil
}
