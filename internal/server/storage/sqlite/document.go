package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// GetDocument retrieves the user's sync document
func (s *Storage) GetDocument(ctx context.Context, userID string) (map[string]any, bool, error) {
	query := `SELECT doc FROM documents WHERE user_id = ?`

	var raw string
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("failed to decode document: %w", err)
	}

	return doc, true, nil
}

// MergeDocument applies a field-level upsert in one transaction. A nil
// field value deletes the field; absent fields survive untouched.
func (s *Storage) MergeDocument(ctx context.Context, userID string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	doc := make(map[string]any)

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM documents WHERE user_id = ?`, userID).Scan(&raw)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first write creates the document
	case err != nil:
		return fmt.Errorf("failed to read document: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
	}

	for field, value := range fields {
		if value == nil {
			delete(doc, field)
			continue
		}
		doc[field] = value
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	query := `
		INSERT INTO documents (user_id, doc, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, userID, string(data), time.Now()); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit merge: %w", err)
	}

	return nil
}

// DeleteDocument removes the user's document, no-op when absent
func (s *Storage) DeleteDocument(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}
