package api

// DocumentResponse is the body of GET /api/v1/document.
//
// Exists is false for a brand-new user who has never uploaded; this is
// a valid state, not an error.
type DocumentResponse struct {
	Document map[string]any `json:"document,omitempty"`
	Exists   bool           `json:"exists"`
}

// MergeRequest is the body of PATCH /api/v1/document. Fields are
// merged into the document (field-level upsert); a null field value
// deletes that field.
type MergeRequest struct {
	Fields map[string]any `json:"fields"`
}
