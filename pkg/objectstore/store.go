// Package objectstore provides a capability abstraction over a blob store.
// Every pipeline stage reads its inputs and writes its outputs through this
// interface; the store makes no decisions about artifact schemas, it only
// moves bytes under caller-supplied keys.
package objectstore

import (
	"context"
	"encoding/json"
)

// Store is the capability contract every stage depends on. Keys are
// '/'-separated, relative to the store's configured root (bucket + output
// prefix in a cloud deployment; a base directory under afero in this
// implementation).
type Store interface {
	// List returns all keys under prefix, in lexicographic order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// ReadBytes returns the raw contents of key.
	ReadBytes(ctx context.Context, key string) ([]byte, error)

	// WriteBytes writes b to key, creating parent directories as needed.
	// It does not guarantee atomicity against concurrent readers; use
	// UploadAtomic for that.
	WriteBytes(ctx context.Context, key string, b []byte) error

	// ReadJSON reads key and unmarshals it into v.
	ReadJSON(ctx context.Context, key string, v any) error

	// WriteJSON marshals v and writes it to key via UploadAtomic.
	WriteJSON(ctx context.Context, key string, v any) error

	// UploadAtomic writes b to key such that concurrent readers never observe
	// a partial write: the content lands at a temporary sibling path and is
	// renamed into place.
	UploadAtomic(ctx context.Context, key string, b []byte) error

	// Move relocates the object at src to dst (used to archive artifacts).
	Move(ctx context.Context, src, dst string) error

	// Delete removes every key under prefix.
	Delete(ctx context.Context, prefix string) error
}

// unmarshalOrFatal is a convenience used by implementations of ReadJSON: decode
// b into v, returning a wrapped fatal error on malformed JSON (malformed
// stored JSON is never a transient condition).
func unmarshalOrFatal(key string, b []byte, v any) error {
	if err := json.Unmarshal(b, v); err != nil {
		return NewOpError("read", key, wrapFatal(err))
	}
	return nil
}

func wrapFatal(err error) error {
	return &wrappedKind{kind: ErrFatal, err: err}
}

type wrappedKind struct {
	kind error
	err  error
}

func (w *wrappedKind) Error() string { return w.err.Error() }
func (w *wrappedKind) Unwrap() []error {
	return []error{w.kind, w.err}
}
