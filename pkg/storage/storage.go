// Package storage provides read/write access to history documents held
// in a backend (local filesystem or S3). The document store and the
// background indexer use it without knowing the underlying storage details.
package storage

import "context"

// Backend persists named history documents.
type Backend interface {
	// List returns the names of all stored documents.
	List(ctx context.Context) ([]string, error)

	// Get reads a document by name. Returns (nil, nil) when the
	// document does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a document by name, replacing any previous content.
	// The write is atomic: readers never observe a partial document.
	Put(ctx context.Context, name string, data []byte) error
}
