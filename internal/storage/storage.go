// Package storage is the console's client-side persistent key/value
// storage. It plays the role a browser's localStorage plays for the web
// console: the anti-forgery token and the cookie jar live here between runs.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("storage: key not found")

// Store defines the persistent storage operations.
// Remove must succeed when the key is already absent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Backend names accepted by Open
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
	BackendSQLite  = "sqlite"
	BackendMemory  = "memory"
)

// Open builds the store for the configured backend.
// namespace separates values of different API servers sharing one backend.
// The keyring scopes entries itself; shared files and databases get
// prefixed keys.
func Open(backend, path, namespace string) (Store, error) {
	var store Store
	switch backend {
	case BackendFile:
		store = NewFileStore(path)
	case BackendKeyring:
		return NewKeyringStore(namespace), nil
	case BackendSQLite:
		sqliteStore, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend '%s'", backend)
	}

	if namespace == "" {
		return store, nil
	}
	return NewNamespaced(store, namespace), nil
}
