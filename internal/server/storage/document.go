package storage

import "context"

// DocumentStorage defines interface for the per-user sync document.
// Each user has at most one document, a flat JSON object of remote
// field names to values.
type DocumentStorage interface {
	// GetDocument retrieves the user's document. The second return is
	// false when the user has never uploaded, which is a valid state.
	GetDocument(ctx context.Context, userID string) (map[string]any, bool, error)

	// MergeDocument applies a field-level upsert inside a single
	// transaction: fields present in the request overwrite or create
	// document fields, a nil field value deletes the field, and fields
	// absent from the request are left untouched. An absent document
	// is created.
	MergeDocument(ctx context.Context, userID string, fields map[string]any) error

	// DeleteDocument removes the user's document. Deleting an absent
	// document is a no-op.
	DeleteDocument(ctx context.Context, userID string) error
}
