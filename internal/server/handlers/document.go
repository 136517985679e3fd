package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mitul002/prayersync/internal/server/storage"
	"github.com/mitul002/prayersync/pkg/api"
)

// DocumentHandler serves the per-user sync document endpoints. All of
// them require an authenticated request; the user is taken from the
// token, never from the URL.
type DocumentHandler struct {
	logger  *slog.Logger
	storage storage.DocumentStorage
}

// NewDocumentHandler creates the document endpoint handler
func NewDocumentHandler(logger *slog.Logger, ds storage.DocumentStorage) *DocumentHandler {
	return &DocumentHandler{
		logger:  logger,
		storage: ds,
	}
}

// Get handles GET /api/v1/document
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	doc, exists, err := h.storage.GetDocument(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get document",
			slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.DocumentResponse{Document: doc, Exists: exists}, http.StatusOK)
}

// Merge handles PATCH /api/v1/document. The body carries a partial
// field map; a null field deletes that field, everything else upserts.
func (h *DocumentHandler) Merge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req api.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode merge request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Fields) == 0 {
		h.sendError(w, "fields is required", http.StatusBadRequest)
		return
	}

	if err := h.storage.MergeDocument(ctx, userID, req.Fields); err != nil {
		h.logger.ErrorContext(ctx, "failed to merge document",
			slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.DebugContext(ctx, "document merged",
		slog.String("user_id", userID), slog.Int("fields", len(req.Fields)))

	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/document
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserID(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.storage.DeleteDocument(ctx, userID); err != nil {
		h.logger.ErrorContext(ctx, "failed to delete document",
			slog.String("user_id", userID), slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "document deleted", slog.String("user_id", userID))
	w.WriteHeader(http.StatusNoContent)
}

func (h *DocumentHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func (h *DocumentHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}, statusCode)
}
