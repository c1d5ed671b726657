package cli

import (
	"context"
	"time"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

// mockExtractionService implements driving.ExtractionService for tests.
type mockExtractionService struct {
	descriptors []domain.ModuleDescriptor
	matches     []domain.ModuleMatch
	match       domain.ModuleMatch
	err         error
}

func (m *mockExtractionService) ExtractModules(_ context.Context, _ string) ([]domain.ModuleDescriptor, error) {
	return m.descriptors, m.err
}

func (m *mockExtractionService) ExtractWithContent(_ context.Context, _ string) ([]domain.ModuleMatch, error) {
	return m.matches, m.err
}

func (m *mockExtractionService) Rematch(
	_ context.Context,
	_ string,
	_ domain.ModuleDescriptor,
) (domain.ModuleMatch, error) {
	return m.match, m.err
}

// mockDocumentService implements driving.DocumentService for tests.
type mockDocumentService struct {
	docs map[string]domain.Document
	err  error
}

func (m *mockDocumentService) Add(_ context.Context, uri, content string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	doc := domain.Document{
		ID:        "doc-new",
		Title:     "Test Document",
		URI:       uri,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if m.docs == nil {
		m.docs = make(map[string]domain.Document)
	}
	m.docs[doc.ID] = doc
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

// setupTestServices installs mock services and returns a cleanup func
// restoring the previous wiring.
func setupTestServices() func() {
	oldExtraction := extractionService
	oldDocument := documentService

	extractionService = &mockExtractionService{
		matches: []domain.ModuleMatch{
			{
				ID: "module_1",
				ModuleDescriptor: domain.ModuleDescriptor{
					Name:     "睡眠评分",
					Keywords: []string{"评分弹窗"},
				},
				MatchedContent: "## 睡眠评分\n评分弹窗展示昨晚睡眠评分",
				Positions:      [2]int{3, 8},
				Confidence:     domain.ConfidenceHigh,
				IsMainModule:   true,
			},
		},
		descriptors: []domain.ModuleDescriptor{
			{Name: "睡眠评分", Keywords: []string{"评分弹窗"}},
		},
	}
	documentService = &mockDocumentService{
		docs: map[string]domain.Document{
			"doc-1": {
				ID:      "doc-1",
				Title:   "Test Document 1",
				URI:     "/docs/test.md",
				Content: "## 睡眠评分\n评分弹窗展示昨晚睡眠评分",
			},
		},
	}

	return func() {
		extractionService = oldExtraction
		documentService = oldDocument
	}
}
