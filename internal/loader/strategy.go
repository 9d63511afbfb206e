package loader

import (
	"context"
	"time"

	"pantrybook/internal/models"
	"pantrybook/internal/transport"
)

// Strategy is one way of retrieving a recipe document. Strategies are
// tried in order with uniform timeout and error handling; each carries its
// own time budget.
type Strategy interface {
	Name() string
	Timeout() time.Duration
	Retrieve(ctx context.Context, t transport.Transport, name string) (*models.RecipeDocument, error)
}

// Default strategy budgets, escalating so that slower but more reliable
// channels get more room.
const (
	DirectTimeout   = 8 * time.Second
	Base64Timeout   = 10 * time.Second
	VerifiedTimeout = 15 * time.Second
)

// DefaultStrategies returns the standard chain: plain fetch, base64 fetch,
// existence-checked fetch.
func DefaultStrategies() []Strategy {
	return []Strategy{
		directFetch{timeout: DirectTimeout},
		base64Fetch{timeout: Base64Timeout},
		verifiedFetch{timeout: VerifiedTimeout},
	}
}

type directFetch struct {
	timeout time.Duration
}

func (s directFetch) Name() string           { return "direct" }
func (s directFetch) Timeout() time.Duration { return s.timeout }

func (s directFetch) Retrieve(ctx context.Context, t transport.Transport, name string) (*models.RecipeDocument, error) {
	return t.FetchDocument(ctx, name)
}

type base64Fetch struct {
	timeout time.Duration
}

func (s base64Fetch) Name() string           { return "base64" }
func (s base64Fetch) Timeout() time.Duration { return s.timeout }

func (s base64Fetch) Retrieve(ctx context.Context, t transport.Transport, name string) (*models.RecipeDocument, error) {
	return t.FetchDocumentBase64(ctx, name)
}

// verifiedFetch confirms the document exists before fetching, catching
// stores whose plain fetch errors are indistinguishable from transient
// failures.
type verifiedFetch struct {
	timeout time.Duration
}

func (s verifiedFetch) Name() string           { return "verified" }
func (s verifiedFetch) Timeout() time.Duration { return s.timeout }

func (s verifiedFetch) Retrieve(ctx context.Context, t transport.Transport, name string) (*models.RecipeDocument, error) {
	exists, err := t.DocumentExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, &transport.RetrievalError{Name: name, Err: transport.ErrNotFound}
	}
	return t.FetchDocument(ctx, name)
}
