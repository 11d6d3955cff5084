// Package kv provides the terminal's persistent key-value blob storage.
// The sale queue serializes itself into a single value here, so the same
// queue logic runs against any backend that can hold a string per key.
package kv

// Store persists string blobs under well-known keys.
type Store interface {
	// Get returns the value for key. The bool reports whether the key exists.
	Get(key string) (string, bool, error)
	// Set writes the value for key, creating or replacing it.
	Set(key, value string) error
}
