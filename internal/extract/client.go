// Package extract provides a client for the document extraction sidecar
// service, which converts uploaded PDF documents to plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/medicore/clinic-platform/pkg/logging"
)

// Result is the extracted content of one document.
type Result struct {
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
}

// extractResponse is the sidecar wire response.
type extractResponse struct {
	Success   bool   `json:"success"`
	Text      string `json:"text"`
	PageCount int    `json:"pageCount"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is the health check response from the sidecar.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  int    `json:"uptime"` // seconds
}

// Client is an HTTP client for the extraction sidecar service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

// ClientOption is a functional option for configuring the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a new extraction sidecar client.
// baseURL should be the sidecar service URL (e.g., "http://localhost:3100").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logging.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Health checks the health of the extraction sidecar.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("extract: create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: health request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extract: health check failed with status %d: %s", resp.StatusCode, string(body))
	}

	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("extract: decode health response: %w", err)
	}

	return &health, nil
}

// Extract sends a PDF document to the sidecar and returns its plain text. An
// empty extraction result is an error: downstream structuring has nothing to
// work with.
func (c *Client) Extract(ctx context.Context, filename string, data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("extract: empty document %q", filename)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("extract: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("extract: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("extract: close multipart writer: %w", err)
	}

	c.logger.Debug("extracting document text", "filename", filename, "bytes", len(data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/extract", &body)
	if err != nil {
		return nil, fmt.Errorf("extract: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extract: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extract: sidecar returned status %d: %s", resp.StatusCode, string(raw))
	}

	var result extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("extract: decode response: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("extract: sidecar failed for %q: %s", filename, result.Error)
	}
	if result.Text == "" {
		return nil, fmt.Errorf("extract: no text extracted from %q", filename)
	}

	c.logger.Info("document text extracted",
		"filename", filename, "pages", result.PageCount, "chars", len(result.Text))

	return &Result{Text: result.Text, PageCount: result.PageCount}, nil
}
