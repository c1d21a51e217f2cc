package store

// Store is the durable backing for the dedup cache.
//
// Persist replaces the entire stored set with ids: callers always hand
// over the full current in-memory set, never a delta. Load tolerates a
// missing backing store and returns an empty set on first run.
type Store interface {
	Load() (map[string]struct{}, error)
	Persist(ids []string) error
	Close() error
}
