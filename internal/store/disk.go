package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// DiskStore persists namespace/key pairs as individual files under
// root/<namespace>/<key>. Saves are atomic: write to a temp file in the same
// directory, then rename — the same pattern the teacher uses to persist the
// master playlist (internal/playlist/store.go), generalized here from "one
// big JSON document" to "one file per key" to match this store's narrower,
// per-request access pattern (spec.md §6 "Filesystem layout").
type DiskStore struct {
	root string
}

// NewDiskStore returns a DiskStore rooted at root. The root directory is
// created if it does not already exist.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state store root %q: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

func (d *DiskStore) namespaceDir(namespace string) string {
	return filepath.Join(d.root, namespace)
}

func (d *DiskStore) keyPath(namespace, key string) string {
	return filepath.Join(d.namespaceDir(namespace), key)
}

// Get reads a single key. ok is false when the key does not exist.
func (d *DiskStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	value, err := os.ReadFile(d.keyPath(namespace, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

// GetAll reads every key in a namespace. A namespace with no entries yet
// (directory absent) returns an empty map, not an error — this is the path
// the supervisor takes on first startup against a fresh state directory.
func (d *DiskStore) GetAll(_ context.Context, namespace string) (map[string][]byte, error) {
	dir := d.namespaceDir(namespace)

	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list namespace %q: %w", namespace, err)
	}

	values := make(map[string][]byte, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		value, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s/%s: %w", namespace, entry.Name(), err)
		}
		values[entry.Name()] = value
	}
	return values, nil
}

// Save writes value atomically: a temp file in the namespace directory is
// written, fsynced, closed, then renamed over the target path.
func (d *DiskStore) Save(_ context.Context, namespace, key string, value []byte) error {
	dir := d.namespaceDir(namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create namespace directory %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s/%s: %w", namespace, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file for %s/%s: %w", namespace, key, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file for %s/%s: %w", namespace, key, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s/%s: %w", namespace, key, err)
	}

	target := d.keyPath(namespace, key)
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file to %q: %w", target, err)
	}

	slog.Debug("State saved to disk", "namespace", namespace, "key", key, "bytes", len(value))
	return nil
}

// ListNamespaces lists the immediate subdirectories of root, each one a
// namespace with at least one key on disk (empty namespace directories are
// never left behind by Save/Delete).
func (d *DiskStore) ListNamespaces(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list state store root %q: %w", d.root, err)
	}

	namespaces := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			namespaces = append(namespaces, entry.Name())
		}
	}
	return namespaces, nil
}

// Delete removes a key. Deleting an absent key is not an error. If the
// namespace directory is left empty, it is removed too, so ListNamespaces
// never reports a namespace with nothing in it.
func (d *DiskStore) Delete(_ context.Context, namespace, key string) error {
	err := os.Remove(d.keyPath(namespace, key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", namespace, key, err)
	}

	os.Remove(d.namespaceDir(namespace)) // best-effort; fails harmlessly if non-empty
	return nil
}
