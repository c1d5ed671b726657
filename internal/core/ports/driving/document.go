package driving

import (
	"context"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

// DocumentService manages stored requirement documents.
type DocumentService interface {
	// Add stores a document, deriving the title from its first markdown
	// heading or the URI when no heading exists. Returns the stored
	// document with its generated ID.
	Add(ctx context.Context, uri, content string) (*domain.Document, error)

	// List returns all stored documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Remove deletes a document by ID.
	Remove(ctx context.Context, id string) error
}
