package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"pantrybook/internal/models"
)

// HTTPClient talks to a document-store HTTP API. Per-request timeouts come
// from the caller's context; the embedded client timeout is only a backstop.
type HTTPClient struct {
	httpClient *http.Client
	BaseURL    string
}

// NewHTTPClient creates a client for the store at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
		BaseURL: baseURL,
	}
}

// ListFiles enumerates the store's entries.
func (c *HTTPClient) ListFiles(ctx context.Context) ([]FileInfo, error) {
	body, err := c.get(ctx, c.BaseURL+"/files", "")
	if err != nil {
		return nil, err
	}
	var files []FileInfo
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("decode file list: %w", err)
	}
	return files, nil
}

// FetchDocument retrieves one document as plain JSON.
func (c *HTTPClient) FetchDocument(ctx context.Context, name string) (*models.RecipeDocument, error) {
	body, err := c.get(ctx, c.fileURL(name), name)
	if err != nil {
		return nil, err
	}
	var doc models.RecipeDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &RetrievalError{Name: name, Err: fmt.Errorf("decode document: %w", err)}
	}
	return &doc, nil
}

// FetchDocumentBase64 retrieves one document as a base64-wrapped payload.
func (c *HTTPClient) FetchDocumentBase64(ctx context.Context, name string) (*models.RecipeDocument, error) {
	body, err := c.get(ctx, c.fileURL(name)+"?encoding=base64", name)
	if err != nil {
		return nil, err
	}

	var wrapper struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, &RetrievalError{Name: name, Err: fmt.Errorf("decode wrapper: %w", err)}
	}
	raw, err := base64.StdEncoding.DecodeString(wrapper.Content)
	if err != nil {
		return nil, &RetrievalError{Name: name, Err: fmt.Errorf("decode base64 payload: %w", err)}
	}

	var doc models.RecipeDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &RetrievalError{Name: name, Err: fmt.Errorf("decode document: %w", err)}
	}
	return &doc, nil
}

// WriteDocument stores a document under name.
func (c *HTTPClient) WriteDocument(ctx context.Context, name string, doc *models.RecipeDocument) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.fileURL(name), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("write %s failed with status code: %d", name, resp.StatusCode)
	}
	return nil
}

// DocumentExists probes the store for name.
func (c *HTTPClient) DocumentExists(ctx context.Context, name string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.fileURL(name), nil)
	if err != nil {
		return false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, &RetrievalError{Name: name, StatusCode: resp.StatusCode}
	}
}

func (c *HTTPClient) fileURL(name string) string {
	return c.BaseURL + "/files/" + url.PathEscape(name)
}

func (c *HTTPClient) get(ctx context.Context, rawURL, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RetrievalError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RetrievalError{Name: name, StatusCode: resp.StatusCode}
	}
	return io.ReadAll(resp.Body)
}
