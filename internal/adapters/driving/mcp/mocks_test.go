package mcp

import (
	"context"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/core/ports/driving"
)

// mockExtractionService implements driving.ExtractionService for tests.
type mockExtractionService struct {
	descriptors []domain.ModuleDescriptor
	matches     []domain.ModuleMatch
	match       domain.ModuleMatch
	err         error

	lastDoc string
}

var _ driving.ExtractionService = (*mockExtractionService)(nil)

func (m *mockExtractionService) ExtractModules(_ context.Context, doc string) ([]domain.ModuleDescriptor, error) {
	m.lastDoc = doc
	return m.descriptors, m.err
}

func (m *mockExtractionService) ExtractWithContent(_ context.Context, doc string) ([]domain.ModuleMatch, error) {
	m.lastDoc = doc
	return m.matches, m.err
}

func (m *mockExtractionService) Rematch(
	_ context.Context,
	doc string,
	_ domain.ModuleDescriptor,
) (domain.ModuleMatch, error) {
	m.lastDoc = doc
	return m.match, m.err
}

// mockDocumentService implements driving.DocumentService for tests.
type mockDocumentService struct {
	docs map[string]domain.Document
	err  error
}

var _ driving.DocumentService = (*mockDocumentService)(nil)

func (m *mockDocumentService) Add(_ context.Context, uri, content string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc := domain.Document{ID: "new", URI: uri, Content: content}
	return &doc, nil
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	var docs []domain.Document
	for _, doc := range m.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (m *mockDocumentService) Remove(_ context.Context, id string) error {
	delete(m.docs, id)
	return m.err
}
