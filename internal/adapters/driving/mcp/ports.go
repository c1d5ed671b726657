package mcp

import (
	"github.com/quarrylabs/reqspan/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Extraction runs module extraction and positional matching.
	Extraction driving.ExtractionService

	// Document manages stored requirement documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Extraction == nil {
		return ErrMissingExtractionService
	}
	// Document is optional; document resources degrade gracefully
	return nil
}
