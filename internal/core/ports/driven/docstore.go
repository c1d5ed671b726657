package driven

import (
	"context"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

// DocumentStore persists requirement documents.
// Backed by SQLite for durable storage; an in-memory implementation exists
// for tests and one-shot runs.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all stored documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document.
	DeleteDocument(ctx context.Context, id string) error
}
