package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quarrylabs/reqspan/internal/core/domain"
)

// ExtractInput is the input schema for the extract_modules tool.
type ExtractInput struct {
	Content    string `json:"content,omitempty" jsonschema:"requirement document text to analyse"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"ID of a stored document to analyse instead of inline content"`
}

// ExtractOutput is the output schema for the extract_modules tool.
type ExtractOutput struct {
	Modules []ModuleOutput `json:"modules"`
	Count   int            `json:"count"`
}

// ModuleOutput represents a single matched module.
type ModuleOutput struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Content      string   `json:"matched_content"`
	StartLine    int      `json:"start_line"`
	EndLine      int      `json:"end_line"`
	Confidence   string   `json:"match_confidence"`
	IsMainModule bool     `json:"is_main_module"`
	ParentModule string   `json:"parent_module,omitempty"`
}

// LocateInput is the input schema for the locate_module tool.
type LocateInput struct {
	Content    string   `json:"content,omitempty" jsonschema:"requirement document text to search"`
	DocumentID string   `json:"document_id,omitempty" jsonschema:"ID of a stored document to search instead of inline content"`
	Name       string   `json:"name" jsonschema:"module name to locate"`
	Keywords   []string `json:"keywords,omitempty" jsonschema:"locating keywords taken from the document"`
	Phrases    []string `json:"phrases,omitempty" jsonschema:"verbatim phrases expected inside the module section"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "extract_modules",
		Description: "Extract function modules from a requirement document and locate each one in the text",
	}, s.handleExtract)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "locate_module",
		Description: "Locate a single named module inside a requirement document",
	}, s.handleLocate)
}

// handleExtract handles the extract_modules tool invocation.
func (s *Server) handleExtract(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ExtractInput,
) (*mcp.CallToolResult, ExtractOutput, error) {
	content, err := s.resolveContent(ctx, input.Content, input.DocumentID)
	if err != nil {
		return nil, ExtractOutput{}, err
	}

	matches, err := s.ports.Extraction.ExtractWithContent(ctx, content)
	if err != nil {
		return nil, ExtractOutput{}, err
	}

	output := ExtractOutput{
		Modules: make([]ModuleOutput, len(matches)),
		Count:   len(matches),
	}
	for i := range matches {
		output.Modules[i] = moduleOutput(matches[i])
	}

	return nil, output, nil
}

// handleLocate handles the locate_module tool invocation.
func (s *Server) handleLocate(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LocateInput,
) (*mcp.CallToolResult, ModuleOutput, error) {
	if input.Name == "" {
		return nil, ModuleOutput{}, errors.New("mcp: module name is required")
	}

	content, err := s.resolveContent(ctx, input.Content, input.DocumentID)
	if err != nil {
		return nil, ModuleOutput{}, err
	}

	desc := domain.ModuleDescriptor{
		Name:         input.Name,
		Keywords:     input.Keywords,
		ExactPhrases: input.Phrases,
	}

	match, err := s.ports.Extraction.Rematch(ctx, content, desc)
	if err != nil {
		return nil, ModuleOutput{}, err
	}

	return nil, moduleOutput(match), nil
}

// resolveContent returns inline content, or loads a stored document when a
// document ID was given instead.
func (s *Server) resolveContent(ctx context.Context, content, documentID string) (string, error) {
	if content != "" {
		return content, nil
	}
	if documentID == "" {
		return "", errors.New("mcp: either content or document_id is required")
	}
	if s.ports.Document == nil {
		return "", errors.New("mcp: document store not configured")
	}

	doc, err := s.ports.Document.Get(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("loading document %s: %w", documentID, err)
	}
	return doc.Content, nil
}

func moduleOutput(match domain.ModuleMatch) ModuleOutput {
	return ModuleOutput{
		ID:           match.ID,
		Name:         match.Name,
		Description:  match.Description,
		Keywords:     match.Keywords,
		Content:      match.MatchedContent,
		StartLine:    match.Positions[0],
		EndLine:      match.Positions[1],
		Confidence:   match.Confidence.String(),
		IsMainModule: match.IsMainModule,
		ParentModule: match.ParentModule,
	}
}
