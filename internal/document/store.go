// Package document defines the interface to the encrypted blob collaborator.
// The engine only verifies that a submitted document ref resolves; storage and
// encryption internals live elsewhere.
package document

import "context"

// Ref is the opaque handle into the document store.
type Ref string

// Store exposes put/get of encrypted blobs keyed by document id.
type Store interface {
	Put(ctx context.Context, blob []byte) (Ref, error)
	Get(ctx context.Context, ref Ref) ([]byte, error)
}
