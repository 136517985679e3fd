// Package remote defines the remote document store the client syncs
// against: one JSON document per user, written only with merge
// semantics.
package remote

import "context"

// Document is the per-user remote document. Values are the result of
// generic JSON decoding (string, float64, bool, map[string]any,
// []any, nil).
type Document map[string]any

// Store is the remote per-user document store.
//
// SetDocumentMerged performs a field-level upsert: fields absent from
// the call survive untouched, and a nil field value deletes that field.
// The document is created on first merge.
type Store interface {
	// GetDocument fetches the user's document. found is false when the
	// document does not exist yet, which is a valid state for a new user.
	GetDocument(ctx context.Context, userID string) (doc Document, found bool, err error)

	// SetDocumentMerged merges fields into the user's document.
	SetDocumentMerged(ctx context.Context, userID string, fields map[string]any) error

	// DeleteDocument removes the user's document entirely.
	DeleteDocument(ctx context.Context, userID string) error
}
