package storage

import (
	"context"
	"io"
)

// Namespaced prefixes every key so that several API servers can share
// one file or database.
type Namespaced struct {
	inner  Store
	prefix string
}

func NewNamespaced(inner Store, namespace string) *Namespaced {
	return &Namespaced{inner: inner, prefix: namespace + "/"}
}

func (n *Namespaced) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *Namespaced) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.prefix+key, value)
}

func (n *Namespaced) Remove(ctx context.Context, key string) error {
	return n.inner.Remove(ctx, n.prefix+key)
}

// Close closes the underlying store when it holds resources
func (n *Namespaced) Close() error {
	if closer, ok := n.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
