package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/extract", r.URL.Path)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "analize.pdf", header.Filename)

		json.NewEncoder(w).Encode(extractResponse{
			Success:   true,
			Text:      "Hemoglobina 14.5 g/dL",
			PageCount: 2,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.Extract(context.Background(), "analize.pdf", []byte("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobina 14.5 g/dL", result.Text)
	assert.Equal(t, 2, result.PageCount)
}

func TestExtractSidecarFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Success: false, Error: "encrypted document"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Extract(context.Background(), "analize.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encrypted document")
}

func TestExtractEmptyTextIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(extractResponse{Success: true, Text: ""})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Extract(context.Background(), "scan.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text extracted")
}

func TestExtractEmptyDocument(t *testing.T) {
	client := NewClient("http://localhost:0")
	_, err := client.Extract(context.Background(), "empty.pdf", nil)
	require.Error(t, err)
}

func TestExtractHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.Extract(context.Background(), "analize.pdf", []byte("%PDF"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		json.NewEncoder(w).Encode(HealthResponse{Status: "ok", Version: "1.2.0"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)
}
