package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitul002/prayersync/pkg/api"
)

func TestGetDocument_Exists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/document", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(api.DocumentResponse{
			Exists:   true,
			Document: map[string]any{"theme": "light"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetAccessToken("token-1")

	doc, found, err := client.GetDocument(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "light", doc["theme"])
}

func TestGetDocument_Missing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.DocumentResponse{Exists: false})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, found, err := client.GetDocument(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSetDocumentMerged(t *testing.T) {
	var got api.MergeRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	err := client.SetDocumentMerged(context.Background(), "u1", map[string]any{"theme": "dark"})
	require.NoError(t, err)
	assert.Equal(t, "dark", got.Fields["theme"])
}

func TestServerErrorSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "storage unavailable"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, _, err := client.GetDocument(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage unavailable")
}

func TestLogout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.SetAccessToken("token-1")
	require.NoError(t, client.Logout(context.Background()))
}

func TestLogin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)

		var req api.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-user", req.Username)

		json.NewEncoder(w).Encode(api.TokenResponse{
			AccessToken: "at", RefreshToken: "rt", UserID: "u1", ExpiresIn: 900,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.Login(context.Background(), api.LoginRequest{Username: "test-user", AuthKeyHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.UserID)
	assert.Equal(t, int64(900), resp.ExpiresIn)
}
