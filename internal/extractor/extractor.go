// Package extractor computes the final line span and text for a matched
// module: backward start search, forward boundary search with hierarchy
// clamping, defensive re-trimming, and length shaping. Every scan is bounded
// by the windows in Config, and every failure path degrades to a fallback
// excerpt rather than an error.
package extractor

import (
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
	"github.com/quarrylabs/reqspan/internal/matcher"
)

// Boundaries carries the batch context for one module's extraction: the stop
// tokens of the other modules and the hierarchy position, if known.
type Boundaries struct {
	// OtherTokens are the normalized identifiers of every other module.
	OtherTokens []string

	// MainTokens are the normalized names of the other main modules. When
	// non-empty, only main-module headings terminate the forward scan, so a
	// sibling sub-heading does not truncate its parent.
	MainTokens []string

	// ParentAnchor is the parent module's anchor line for sub-modules.
	ParentAnchor int
	HasParent    bool
}

// Extractor computes module spans. Immutable after construction; all
// per-call state is local, so one Extractor serves concurrent calls over a
// shared read-only index.
type Extractor struct {
	cfg       Config
	normalize func(string) string
	matcher   *matcher.Matcher
}

// New creates an extractor sharing the matcher's normalize discipline.
func New(normalize func(string) string, m *matcher.Matcher, cfg Config) *Extractor {
	return &Extractor{cfg: cfg, normalize: normalize, matcher: m}
}

// Refine produces the text and 1-indexed inclusive line range for a module
// anchored at anchor. The fallback excerpt is returned, clipped, whenever
// the span degenerates to nothing.
func (e *Extractor) Refine(idx *docindex.Index, desc domain.ModuleDescriptor, anchor int, bounds Boundaries, fallback string) (string, [2]int) {
	if anchor >= len(idx.Lines) {
		return e.clipFallback(fallback), [2]int{0, 0}
	}

	anchor = e.reanchorPastHeader(idx, desc, anchor)

	startIdx := e.searchStart(idx, desc, anchor, bounds.OtherTokens)
	endIdx, exact := e.searchEnd(idx, anchor, bounds)

	startIdx = min(startIdx, anchor)
	if endIdx > idx.ContentEnd {
		endIdx = idx.ContentEnd
		exact = false
	}

	if endIdx <= startIdx {
		return e.clipFallback(fallback), [2]int{anchor + 1, anchor + 1}
	}
	snippet := idx.Lines[startIdx:endIdx]

	// Defensive re-trim for stop headings the boundary search missed. A
	// confirmed stop heading already bounds the span, so only the tail is
	// re-checked then; an unconfirmed boundary gets the full scan. Either
	// way the cut is refused when it would leave too little content.
	if !exact || e.tailHasModuleTitle(snippet, bounds.OtherTokens) {
		snippet = e.trimAtBoundary(snippet, bounds.OtherTokens)
	}

	// Too short: grow forward, stopping at the next module title, then
	// re-trim the grown span.
	if runeLen(joinLines(snippet)) < e.cfg.MinSnippetLength {
		extendedEnd := min(len(idx.Lines), startIdx+len(snippet)+e.cfg.ContentExtendRange)
		for i := endIdx; i < extendedEnd; i++ {
			line := strings.TrimSpace(idx.Lines[i])
			if line == "" {
				continue
			}
			if e.matcher.IsModuleTitleLine(e.normalize(line), bounds.OtherTokens) {
				extendedEnd = i
				break
			}
		}
		if extendedEnd > endIdx {
			endIdx = extendedEnd
			snippet = e.trimAtBoundary(idx.Lines[startIdx:endIdx], bounds.OtherTokens)
		}
	}

	// The reported range reflects the span before length truncation, so the
	// range and the displayed text may legitimately differ in extent.
	spanLines := len(snippet)
	snippet = e.shrinkToLimit(snippet)
	text := joinLines(snippet)

	if text == "" {
		return e.clipFallback(fallback), [2]int{anchor + 1, anchor + 1}
	}

	startLine := startIdx + 1
	endLine := startIdx + spanLines
	if spanLines == 0 {
		endLine = anchor + 1
	}
	return text, [2]int{startLine, endLine}
}

// Confidence grades how strongly the produced text corresponds to the
// descriptor: an exact phrase occurring post-normalization inside the text
// is High, a keyword is Medium, anything else Low.
func (e *Extractor) Confidence(desc domain.ModuleDescriptor, text string) domain.Confidence {
	normalized := e.normalize(text)
	if normalized == "" {
		return domain.ConfidenceLow
	}
	for _, phrase := range desc.ExactPhrases {
		if p := e.normalize(phrase); p != "" && strings.Contains(normalized, p) {
			return domain.ConfidenceHigh
		}
	}
	for _, keyword := range desc.Keywords {
		if k := e.normalize(keyword); k != "" && strings.Contains(normalized, k) {
			return domain.ConfidenceMedium
		}
	}
	return domain.ConfidenceLow
}

// reanchorPastHeader moves an anchor that landed inside the header region to
// the first proper occurrence of the module name after it, when one exists.
func (e *Extractor) reanchorPastHeader(idx *docindex.Index, desc domain.ModuleDescriptor, anchor int) int {
	if anchor >= idx.HeaderEnd {
		return anchor
	}
	name := e.normalize(desc.Name)
	if name == "" {
		return anchor
	}
	for i := idx.HeaderEnd; i < len(idx.Lines); i++ {
		line := idx.NormalizedLines[i]
		if line == name || strings.HasPrefix(line, name) {
			return i
		}
	}
	return anchor
}

// searchStart scans backward from the anchor for a better span start: a
// heading-like line sharing a descriptor keyword, else the line after the
// first blank or other-module heading. Never past the bounded window, never
// later than the anchor.
func (e *Extractor) searchStart(idx *docindex.Index, desc domain.ModuleDescriptor, anchor int, otherTokens []string) int {
	start := anchor

	limit := max(0, anchor-e.cfg.MaxBackwardSearchLines)
	for i := anchor - 1; i >= limit; i-- {
		line := strings.TrimSpace(idx.Lines[i])
		if line == "" {
			continue
		}
		normalized := e.normalize(line)
		for _, keyword := range desc.Keywords {
			if k := e.normalize(keyword); k != "" && k == normalized {
				return i
			}
		}
	}

	for i := start - 1; i >= limit; i-- {
		line := strings.TrimSpace(idx.Lines[i])
		if line == "" || runeLen(line) < e.cfg.MinTermLength {
			if i+1 <= anchor {
				start = i + 1
			}
			break
		}
		if text, ok := docindex.HeadingText(line); ok {
			if contains(otherTokens, e.normalize(text)) {
				if i+1 <= anchor {
					start = i + 1
				}
				break
			}
		}
	}

	return start
}

// searchEnd runs the forward boundary search: initial edge at the next
// detected section, extended scan for a stop-token heading, parent clamp for
// sub-modules, and the content-end fallback when nothing stops the scan.
func (e *Extractor) searchEnd(idx *docindex.Index, anchor int, bounds Boundaries) (int, bool) {
	initialEnd := len(idx.Lines)
	if next, ok := idx.NextSectionAfter(anchor); ok {
		initialEnd = next
	}

	boundary, found := e.findBoundary(idx, anchor, initialEnd, bounds)

	if bounds.HasParent {
		parentEnd := e.findParentEnd(idx, bounds)
		end := initialEnd
		if found {
			end = boundary
		}
		return min(end, parentEnd), found && boundary <= parentEnd
	}

	if found {
		// Without hierarchy info a level-3 stop heading may still be a
		// sub-section of this module; keep scanning for the next main
		// heading instead. With main tokens supplied, findBoundary already
		// skips non-main headings.
		if docindex.TitleLevel(lineAt(idx, boundary)) == 3 && len(bounds.MainTokens) == 0 {
			searchEnd := min(len(idx.Lines), boundary+e.cfg.MainBoundarySearchExtend)
			for i := boundary + 1; i < searchEnd; i++ {
				text, ok := docindex.MainHeadingText(lineAt(idx, i))
				if !ok {
					continue
				}
				if contains(bounds.MainTokens, e.normalize(text)) || contains(bounds.OtherTokens, e.normalize(text)) {
					return i, true
				}
			}
			return min(idx.ContentEnd, boundary+e.cfg.MainBoundarySearchExtend), false
		}
		return boundary, true
	}

	// No stop heading found: fall back to the content-end boundary, extended
	// by at most one line, never into the appendix.
	return min(idx.ContentEnd, boundary+1), false
}

// tailHasModuleTitle checks the last few span lines for a stop-token title
// that slipped past a confirmed boundary.
func (e *Extractor) tailHasModuleTitle(snippet []string, otherTokens []string) bool {
	stop := max(0, len(snippet)-e.cfg.CheckLastLines)
	for i := len(snippet) - 1; i > stop; i-- {
		line := strings.TrimSpace(snippet[i])
		if line == "" {
			continue
		}
		if text, ok := docindex.HeadingText(line); ok && contains(otherTokens, e.normalize(text)) {
			return true
		}
		if e.matcher.IsModuleTitleLine(e.normalize(line), otherTokens) {
			return true
		}
	}
	return false
}

// findBoundary scans forward for the first heading belonging to the stop
// token set. With main tokens supplied, only level-2 markdown headings
// qualify.
func (e *Extractor) findBoundary(idx *docindex.Index, anchor, initialEnd int, bounds Boundaries) (int, bool) {
	tokens := bounds.OtherTokens
	mainOnly := len(bounds.MainTokens) > 0
	if mainOnly {
		tokens = bounds.MainTokens
	}

	searchEnd := min(len(idx.Lines), initialEnd+e.cfg.BoundarySearchExtend)
	for i := anchor + 1; i < searchEnd; i++ {
		line := strings.TrimSpace(idx.Lines[i])
		if line == "" {
			continue
		}

		if text, ok := docindex.HeadingText(line); ok {
			level := docindex.TitleLevel(line)
			if mainOnly && level != 2 {
				continue
			}
			if contains(tokens, e.normalize(text)) {
				return i, true
			}
			continue
		}

		if e.matcher.IsModuleTitleLine(e.normalize(line), tokens) {
			return i, true
		}
	}
	return initialEnd, false
}

// findParentEnd locates where a sub-module's parent ends: the nearest
// following main-module heading after the parent's anchor.
func (e *Extractor) findParentEnd(idx *docindex.Index, bounds Boundaries) int {
	tokens := bounds.MainTokens
	if len(tokens) == 0 {
		tokens = bounds.OtherTokens
	}

	searchEnd := min(len(idx.Lines), bounds.ParentAnchor+e.cfg.MainBoundarySearchExtend)
	for i := bounds.ParentAnchor + 1; i < searchEnd; i++ {
		text, ok := docindex.MainHeadingText(lineAt(idx, i))
		if !ok {
			continue
		}
		if contains(tokens, e.normalize(text)) {
			return i
		}
	}
	return len(idx.Lines)
}

// trimAtBoundary re-scans a span from its tail for a stop-token heading and
// cuts there, but only when the cut leaves at least the minimum content
// length; otherwise the untrimmed span is kept.
func (e *Extractor) trimAtBoundary(snippet []string, otherTokens []string) []string {
	if len(snippet) == 0 {
		return snippet
	}

	for i := len(snippet) - 1; i >= 0; i-- {
		line := strings.TrimSpace(snippet[i])
		if line == "" {
			continue
		}

		isTitle := false
		if text, ok := docindex.HeadingText(line); ok {
			isTitle = contains(otherTokens, e.normalize(text))
		}
		if !isTitle {
			isTitle = e.matcher.IsModuleTitleLine(e.normalize(line), otherTokens)
		}
		if !isTitle {
			continue
		}

		if runeLen(joinLines(snippet[:i])) >= e.cfg.MinSnippetLength {
			return snippet[:i]
		}
		return snippet
	}
	return snippet
}

// shrinkToLimit drops trailing lines until the joined text fits the maximum
// length, never going below one line. Line numbering is preserved by the
// caller reporting the pre-shrink span.
func (e *Extractor) shrinkToLimit(lines []string) []string {
	if len(lines) == 0 {
		return lines
	}
	if runeLen(joinLines(lines)) <= e.cfg.MaxSnippetLength {
		return lines
	}

	trimmed := lines
	for len(trimmed) > 1 && runeLen(joinLines(trimmed)) > e.cfg.MaxSnippetLength {
		trimmed = trimmed[:len(trimmed)-1]
	}
	return trimmed
}

func (e *Extractor) clipFallback(fallback string) string {
	cleaned := strings.TrimSpace(fallback)
	if runeLen(cleaned) > e.cfg.MaxSnippetLength {
		runes := []rune(cleaned)
		cleaned = string(runes[:e.cfg.MaxSnippetLength])
	}
	return cleaned
}

func joinLines(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func lineAt(idx *docindex.Index, line int) string {
	if line < 0 || line >= len(idx.Lines) {
		return ""
	}
	return idx.Lines[line]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
