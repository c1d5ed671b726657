// Package mcp provides an MCP (Model Context Protocol) server adapter for reqspan.
// It enables AI assistants to run module extraction against requirement documents.
package mcp

import "errors"

// ErrMissingExtractionService is returned when the extraction service is not provided.
var ErrMissingExtractionService = errors.New("mcp: extraction service is required")
