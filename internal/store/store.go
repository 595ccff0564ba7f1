// Package store implements the durable key/value State Store (spec.md §4.1,
// "Component A"): a namespace-partitioned string store with atomic writes,
// backing the pipeline's per-request checkpointing.
package store

import "context"

// Store is the abstract contract the processor and supervisor depend on. A
// namespace groups related keys (e.g. one namespace per user's requests);
// within a namespace, keys are opaque strings.
//
// Implementations must make Save atomic: a crash mid-write must never leave
// a caller observing a torn value on the next Get.
type Store interface {
	Get(ctx context.Context, namespace, key string) (value []byte, ok bool, err error)
	GetAll(ctx context.Context, namespace string) (map[string][]byte, error)
	Save(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error

	// ListNamespaces enumerates every namespace that currently has at least
	// one key. The supervisor uses this at startup to discover every
	// (user, request) pair left mid-flight by a prior crash (spec.md §4.5).
	ListNamespaces(ctx context.Context) ([]string, error)
}
