package extractor

// Config holds the span-shaping and window bounds. All scans are bounded by
// these windows, so extraction always terminates.
type Config struct {
	// FallbackSnippetLength bounds the leading document slice returned when
	// no anchor can be located at all.
	FallbackSnippetLength int

	// MinSnippetLength and MaxSnippetLength shape the final text length.
	MinSnippetLength int
	MaxSnippetLength int

	// ContextBefore and ContextAfter pad a matched line when no enclosing
	// section is known.
	ContextBefore int
	ContextAfter  int

	// ExtendedContextBefore and ExtendedContextAfter are the enlarged pads
	// used when a first pass came back below MinSnippetLength.
	ExtendedContextBefore int
	ExtendedContextAfter  int

	// SectionExtraBefore and SectionExtraAfter pad the enclosing section
	// window around a matched line.
	SectionExtraBefore int
	SectionExtraAfter  int

	// MaxMatchPositions caps how many candidate lines feed the fallback
	// section builder.
	MaxMatchPositions int

	// MaxBackwardSearchLines bounds the backward start search.
	MaxBackwardSearchLines int

	// BoundarySearchExtend extends the forward boundary scan past the
	// initial section edge.
	BoundarySearchExtend int

	// MainBoundarySearchExtend bounds the scan for the next main-module
	// heading.
	MainBoundarySearchExtend int

	// ContentExtendRange is how far a too-short span may grow forward.
	ContentExtendRange int

	// CheckLastLines is how many tail lines are re-checked for a missed
	// stop-token heading after a successful boundary search.
	CheckLastLines int

	// MinTermLength mirrors the matcher's shortest meaningful term; lines
	// shorter than this terminate the backward start search like blanks.
	MinTermLength int
}

// DefaultConfig returns the extraction bounds used in production.
func DefaultConfig() Config {
	return Config{
		FallbackSnippetLength:    2000,
		MinSnippetLength:         400,
		MaxSnippetLength:         1200,
		ContextBefore:            80,
		ContextAfter:             200,
		ExtendedContextBefore:    100,
		ExtendedContextAfter:     400,
		SectionExtraBefore:       20,
		SectionExtraAfter:        80,
		MaxMatchPositions:        10,
		MaxBackwardSearchLines:   10,
		BoundarySearchExtend:     50,
		MainBoundarySearchExtend: 200,
		ContentExtendRange:       50,
		CheckLastLines:           5,
		MinTermLength:            3,
	}
}
