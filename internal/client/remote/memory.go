package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-memory Store. It backs tests and the offline demo
// mode; merge semantics match the server implementation.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

// GetDocument fetches the user's document.
func (m *Memory) GetDocument(ctx context.Context, userID string) (Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[userID]
	if !ok {
		return nil, false, nil
	}
	return cloneDocument(doc), true, nil
}

// SetDocumentMerged merges fields into the user's document, creating it
// if absent. A nil field value deletes the field.
func (m *Memory) SetDocumentMerged(ctx context.Context, userID string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[userID]
	if !ok {
		doc = make(Document)
		m.docs[userID] = doc
	}

	for field, value := range fields {
		if value == nil {
			delete(doc, field)
			continue
		}
		doc[field] = value
	}
	return nil
}

// DeleteDocument removes the user's document.
func (m *Memory) DeleteDocument(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.docs, userID)
	return nil
}

// cloneDocument deep-copies through a JSON round trip so callers cannot
// mutate stored state.
func cloneDocument(doc Document) Document {
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("unmarshalable document: %v", err))
	}
	out := make(Document, len(doc))
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("uncloneable document: %v", err))
	}
	return out
}
