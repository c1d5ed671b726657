package domain

// ModuleDescriptor describes one function module proposed by the
// upstream language model. Descriptors are untrusted input: names may be
// hallucinated and every optional field may be missing. The validator
// decides what survives.
type ModuleDescriptor struct {
	// Name is the module name as proposed by the model.
	Name string `json:"name"`

	// Description is a short free-form summary.
	Description string `json:"description"`

	// Keywords are locating hints; generic words are ignored during
	// matching (see matcher.IsStrongKeyword).
	Keywords []string `json:"keywords"`

	// ExactPhrases are verbatim phrases expected to occur in the document.
	ExactPhrases []string `json:"exact_phrases"`

	// SectionHint optionally names the section the module belongs to.
	SectionHint string `json:"section_hint,omitempty"`

	// IsMain reports the model's own main/sub classification.
	// nil means the model did not decide; the hierarchy resolver fills
	// the gap from document structure.
	IsMain *bool `json:"is_main_module,omitempty"`

	// Parent names the parent module when the model classified this one
	// as a sub-module.
	Parent string `json:"parent_module,omitempty"`
}

// ModuleList is the decoded shape of the model's extraction response.
type ModuleList struct {
	FunctionModules []ModuleDescriptor `json:"function_modules"`
}

// ModuleMatch is the result of locating one module inside a document.
type ModuleMatch struct {
	// ID is a per-run ordinal identifier ("module_1", "module_2", ...).
	ID string `json:"id"`

	// Descriptor echoes the (validated, deduplicated) input module.
	ModuleDescriptor

	// MatchedContent is the extracted excerpt. It may be shorter than the
	// span named by Positions when length shaping truncated the text.
	MatchedContent string `json:"matched_content"`

	// Positions is the 1-indexed inclusive [start_line, end_line] range
	// selected by boundary search, before any final truncation.
	Positions [2]int `json:"matched_positions"`

	// Confidence reports how strongly the excerpt is believed to
	// correspond to the requested module.
	Confidence Confidence `json:"match_confidence"`

	// IsMainModule is the resolved main/sub classification.
	IsMainModule bool `json:"is_main_module"`

	// ParentModule names the resolved parent, empty for main modules.
	ParentModule string `json:"parent_module,omitempty"`
}
