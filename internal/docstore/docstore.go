// Package docstore is a small schemaless document store: keyed upsert and lookup plus
// field-equality queries, backed by Postgres, MongoDB or memory.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document has the id.
var ErrNotFound = errors.New("docstore: document not found")

// Collection is a named set of documents.
type Collection interface {
	// Set creates or fully replaces the document stored under id.
	Set(ctx context.Context, id string, doc any) error
	// Get decodes the document stored under id into dst.
	Get(ctx context.Context, id string, dst any) error
	// Where returns every document whose top-level field equals value, ordered by id.
	Where(ctx context.Context, field string, value any) ([]Document, error)
}

// Store hands out collections by name.
type Store interface {
	Collection(name string) Collection
}

// Document is one query result.
type Document struct {
	ID     string
	decode func(dst any) error
}

// Decode unmarshals the document body into dst.
func (d Document) Decode(dst any) error {
	if d.decode == nil {
		return errors.New("docstore: empty document")
	}
	return d.decode(dst)
}
