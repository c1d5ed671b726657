package driving

import (
	"context"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

// ExtractionService turns a requirement document into positioned function
// modules.
type ExtractionService interface {
	// ExtractModules proposes, validates, and deduplicates the function
	// modules of a document without matching their content.
	ExtractModules(ctx context.Context, doc string) ([]domain.ModuleDescriptor, error)

	// ExtractWithContent runs the full pipeline: module proposal, anchor
	// search, hierarchy classification, and span refinement. Every returned
	// match carries non-empty content, degrading to a fallback excerpt with
	// low confidence when positional matching fails.
	ExtractWithContent(ctx context.Context, doc string) ([]domain.ModuleMatch, error)

	// Rematch recomputes the span of a single module against a document,
	// reusing a caller-supplied descriptor.
	Rematch(ctx context.Context, doc string, desc domain.ModuleDescriptor) (domain.ModuleMatch, error)
}
