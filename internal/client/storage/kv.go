package storage

// KV is the synchronous string key-value store the sync layer is built
// on. Two instances back the client: a persistent one (BoltDB) holding
// user state, and a session-scoped one (in-memory) holding the
// reconciliation flags and the pending sync queue.
//
// Values are stored as strings; structured values are JSON-encoded by
// the caller. Get returns ErrKeyNotFound when no value is stored.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Remove(key string) error
	Clear() error
	Keys() ([]string, error)
}
