package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
)

var tokenSplitPattern = regexp.MustCompile(`[、，,;；：:（）()\s-]+`)

// weakKeywords are too generic to drive the keyword vote on their own.
var weakKeywords = map[string]bool{
	"关闭": true, "操作": true, "显示": true, "点击": true, "按钮": true,
}

// RelevantSection builds the fallback excerpt for a target term: candidate
// lines are located by exact phrases, then a keyword vote, then containment
// of the normalized target, then all-token matches, then fuzzy similarity;
// the surrounding section windows are merged into one excerpt. When nothing
// matches, a bounded leading slice of the document is returned, so the
// result is never empty for a non-empty document.
func (e *Extractor) RelevantSection(idx *docindex.Index, target string, desc *domain.ModuleDescriptor) string {
	doc := strings.Join(idx.Lines, "\n")

	var candidates []int
	if desc != nil {
		candidates = e.descriptorCandidates(idx, desc)
	}

	if len(candidates) == 0 {
		normalizedTarget := e.normalize(target)
		if normalizedTarget == "" {
			return leadingSlice(doc, e.cfg.FallbackSnippetLength)
		}
		candidates = e.targetCandidates(idx, target, normalizedTarget)
	}

	if len(candidates) == 0 {
		return leadingSlice(doc, e.cfg.FallbackSnippetLength)
	}

	if len(candidates) > e.cfg.MaxMatchPositions {
		candidates = candidates[:e.cfg.MaxMatchPositions]
	}

	collected := make(map[int]bool)
	for _, candidate := range candidates {
		start, end := idx.SectionWindow(candidate, e.cfg.SectionExtraBefore, e.cfg.SectionExtraAfter)
		for i := start; i < end; i++ {
			collected[i] = true
		}
	}

	if len(collected) == 0 {
		first := candidates[0]
		start := max(0, first-e.cfg.ContextBefore)
		end := min(len(idx.Lines), first+e.cfg.ContextAfter)
		for i := start; i < end; i++ {
			collected[i] = true
		}
	}

	ordered := make([]int, 0, len(collected))
	for i := range collected {
		ordered = append(ordered, i)
	}
	sort.Ints(ordered)

	lines := make([]string, 0, len(ordered))
	for _, i := range ordered {
		lines = append(lines, idx.Lines[i])
	}
	section := joinLines(lines)

	if runeLen(section) < e.cfg.MinSnippetLength {
		first := candidates[0]
		start := max(0, first-e.cfg.ExtendedContextBefore)
		end := min(len(idx.Lines), first+e.cfg.ExtendedContextAfter)
		section = joinLines(idx.Lines[start:end])
	}

	return section
}

// descriptorCandidates locates candidate lines from the model-provided
// clues: a line per exact phrase, else a keyword vote needing at least half
// of the filtered keywords, narrowed by the section hint when one is given.
func (e *Extractor) descriptorCandidates(idx *docindex.Index, desc *domain.ModuleDescriptor) []int {
	var candidates []int

	for _, phrase := range desc.ExactPhrases {
		normalized := e.normalize(phrase)
		if normalized == "" {
			continue
		}
		for i, line := range idx.NormalizedLines {
			if strings.Contains(line, normalized) {
				candidates = append(candidates, i)
				break
			}
		}
	}

	if len(candidates) == 0 && len(desc.Keywords) > 0 {
		var filtered []string
		for _, keyword := range desc.Keywords {
			stripped := strings.TrimSpace(keyword)
			if utf8.RuneCountInString(stripped) < 2 || weakKeywords[strings.ToLower(stripped)] {
				continue
			}
			filtered = append(filtered, e.normalize(stripped))
		}
		if len(filtered) > 0 {
			minMatch := max(1, len(filtered)/2)
			for i, line := range idx.NormalizedLines {
				matched := 0
				for _, keyword := range filtered {
					if keyword != "" && strings.Contains(line, keyword) {
						matched++
					}
				}
				if matched >= minMatch {
					candidates = append(candidates, i)
				}
			}
		}
	}

	if len(candidates) > 0 && desc.SectionHint != "" {
		hint := strings.ToLower(desc.SectionHint)
		var hintLines []int
		for i, line := range idx.Lines {
			if strings.Contains(strings.ToLower(line), hint) {
				hintLines = append(hintLines, i)
			}
		}
		if len(hintLines) > 0 {
			var filtered []int
			for _, candidate := range candidates {
				for _, hintLine := range hintLines {
					if candidate >= hintLine && candidate < hintLine+e.cfg.BoundarySearchExtend {
						filtered = append(filtered, candidate)
						break
					}
				}
			}
			if len(filtered) > 0 {
				candidates = filtered
			}
		}
	}

	return candidates
}

// targetCandidates is the clue-free ladder: normalized containment of the
// target, then lines holding every strong token of it, then the single best
// fuzzy line.
func (e *Extractor) targetCandidates(idx *docindex.Index, target, normalizedTarget string) []int {
	var candidates []int

	for i, line := range idx.NormalizedLines {
		if strings.Contains(line, normalizedTarget) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) > 0 {
		return candidates
	}

	var strongTokens []string
	for _, token := range tokenSplitPattern.Split(target, -1) {
		normalized := e.normalize(token)
		if utf8.RuneCountInString(normalized) >= 2 {
			strongTokens = append(strongTokens, normalized)
		}
	}
	if len(strongTokens) > 0 {
		for i, line := range idx.NormalizedLines {
			all := true
			for _, token := range strongTokens {
				if !strings.Contains(line, token) {
					all = false
					break
				}
			}
			if all {
				candidates = append(candidates, i)
			}
		}
	}
	if len(candidates) > 0 {
		return candidates
	}

	if line, ok := e.matcher.FuzzyAnchor(idx, target); ok {
		candidates = append(candidates, line)
	}
	return candidates
}

func leadingSlice(doc string, length int) string {
	runes := []rune(doc)
	if len(runes) <= length {
		return doc
	}
	return string(runes[:length])
}
