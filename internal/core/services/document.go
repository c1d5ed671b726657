package services

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/core/ports/driven"
	"github.com/quarrylabs/reqspan/internal/core/ports/driving"
	"github.com/quarrylabs/reqspan/internal/docindex"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages stored requirement documents.
type DocumentService struct {
	docStore driven.DocumentStore
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{docStore: docStore}
}

// Add stores a document, deriving the title from its first markdown heading
// or the URI when no heading exists.
func (s *DocumentService) Add(ctx context.Context, uri, content string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:        uuid.NewString(),
		Title:     deriveTitle(uri, content),
		URI:       uri,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// List returns all stored documents, newest first.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, id)
}

// Remove deletes a document by ID.
func (s *DocumentService) Remove(ctx context.Context, id string) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	return s.docStore.DeleteDocument(ctx, id)
}

// deriveTitle picks the first markdown heading, falling back to the URI
// base name, then to a fixed label.
func deriveTitle(uri, content string) string {
	for _, line := range strings.Split(content, "\n") {
		if text, ok := docindex.HeadingText(strings.TrimSpace(line)); ok {
			return text
		}
	}
	if base := strings.TrimSuffix(filepath.Base(uri), filepath.Ext(uri)); base != "" && base != "." {
		return base
	}
	return "Untitled document"
}
