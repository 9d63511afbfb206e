// Package transport defines the remote document-store collaborator the
// loader and repository talk to, plus its HTTP implementation.
package transport

import (
	"context"
	"errors"
	"fmt"

	"pantrybook/internal/models"
)

// FileInfo describes one discovered remote entry.
type FileInfo struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// Transport is the minimal capability surface of the remote document store.
type Transport interface {
	// ListFiles enumerates available entries; callers filter to files
	// with a .json suffix.
	ListFiles(ctx context.Context) ([]FileInfo, error)

	// FetchDocument retrieves and decodes one recipe document.
	FetchDocument(ctx context.Context, name string) (*models.RecipeDocument, error)

	// FetchDocumentBase64 retrieves a base64-wrapped payload and decodes
	// it before JSON-parsing.
	FetchDocumentBase64(ctx context.Context, name string) (*models.RecipeDocument, error)

	// WriteDocument stores a document under name.
	WriteDocument(ctx context.Context, name string, doc *models.RecipeDocument) error

	// DocumentExists reports whether name is present remotely.
	DocumentExists(ctx context.Context, name string) (bool, error)
}

// ErrNotFound is returned when a named document does not exist.
var ErrNotFound = errors.New("document not found")

// RetrievalError is a retrieval failure carrying the transport status code
// when one is available (zero otherwise).
type RetrievalError struct {
	Name       string
	StatusCode int
	Err        error
}

func (e *RetrievalError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("retrieve %s: status %d", e.Name, e.StatusCode)
	}
	return fmt.Sprintf("retrieve %s: %v", e.Name, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
