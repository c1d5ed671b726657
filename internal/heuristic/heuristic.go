// Package heuristic proposes function modules from document structure
// alone. It is the fallback path when the model collaborator fails or its
// output cannot be decoded: heading-like lines become module candidates,
// with nearby prose as the description. Precision over recall; downstream
// validation drops anything without a real document footprint.
package heuristic

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/logger"
)

const (
	minHeadingRunes = 3
	maxHeadingRunes = 30

	// Candidates satisfying an indicator also need this tighter window.
	minIndicatedRunes = 4
	maxIndicatedRunes = 25

	maxDescriptionScan   = 20
	maxDescriptionLines  = 5
	keptDescriptionLines = 3
	maxKeywords          = 5
	sectionHintRunes     = 10
)

var (
	enumeratedLinePattern = regexp.MustCompile(`^\d+[\.、]`)
	bareNumberPattern     = regexp.MustCompile(`^\d+[\.、]?\s*$`)
	optionLinePattern     = regexp.MustCompile(`^[A-Z][\.、]\s*`)
	abbreviationPattern   = regexp.MustCompile(`[A-Z]{2,}`)
	keywordSplitPattern   = regexp.MustCompile(`[^A-Za-z0-9\x{4e00}-\x{9fa5}]+`)
)

// coreIndicators mark a line as naming a functional unit.
var coreIndicators = []string{"模块", "功能", "弹窗", "对话", "中心", "系统", "平台"}

// structuralWords mark short headings as document scaffolding, not modules.
var structuralWords = []string{"说明", "范围", "涉及", "机制", "输出", "选择", "时间", "方式"}

// Propose extracts module candidates from heading-like lines. Every
// candidate carries its heading as the single exact phrase, so positional
// matching can anchor on it directly.
func Propose(doc string) []domain.ModuleDescriptor {
	lines := strings.Split(doc, "\n")

	type candidate struct {
		line    int
		heading string
	}
	var candidates []candidate
	seen := make(map[string]bool)

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if looksLikeModuleHeading(stripped, i, lines) && !seen[stripped] {
			candidates = append(candidates, candidate{line: i, heading: stripped})
			seen[stripped] = true
		}
	}

	modules := make([]domain.ModuleDescriptor, 0, len(candidates))
	for _, c := range candidates {
		var descLines []string
		for offset := 1; offset < maxDescriptionScan && c.line+offset < len(lines); offset++ {
			descLine := strings.TrimSpace(lines[c.line+offset])
			if descLine == "" {
				continue
			}
			if looksLikeModuleHeading(descLine, c.line+offset, lines) {
				break
			}
			if strings.HasPrefix(descLine, "[图片]") || strings.HasPrefix(descLine, "图片") {
				continue
			}
			if enumeratedLinePattern.MatchString(descLine) {
				continue
			}
			descLines = append(descLines, descLine)
			if len(descLines) >= maxDescriptionLines {
				break
			}
		}

		description := c.heading
		if len(descLines) > 0 {
			description = strings.Join(descLines[:min(len(descLines), keptDescriptionLines)], " ")
		}

		modules = append(modules, domain.ModuleDescriptor{
			Name:         c.heading,
			Description:  description,
			Keywords:     headingKeywords(c.heading),
			ExactPhrases: []string{c.heading},
			SectionHint:  truncateRunes(c.heading, sectionHintRunes),
		})
	}

	logger.Info("heuristic proposal found %d module candidates", len(modules))
	return modules
}

// looksLikeModuleHeading applies the layered filters that separate a module
// title from prose, enumerations, questions, and document scaffolding.
func looksLikeModuleHeading(text string, lineIdx int, lines []string) bool {
	runes := utf8.RuneCountInString(text)
	if runes < minHeadingRunes || runes > maxHeadingRunes {
		return false
	}

	for _, prefix := range []string{"*", "-", "[", "（", "(",
		"1.", "2.", "3.", "4.", "5.", "6.", "7.", "8.", "9.", "0."} {
		if strings.HasPrefix(text, prefix) {
			return false
		}
	}

	if strings.HasSuffix(text, "？") || strings.HasSuffix(text, "?") {
		return false
	}
	if strings.Contains(text, "是否") || strings.Contains(text, "能否") || strings.Contains(text, "如何") {
		return false
	}

	if bareNumberPattern.MatchString(text) || optionLinePattern.MatchString(text) {
		return false
	}

	punctuation := 0
	for _, r := range text {
		if strings.ContainsRune("，。、；：！？", r) {
			punctuation++
		}
	}
	if punctuation > 2 {
		return false
	}

	if strings.HasSuffix(text, "：") || strings.HasSuffix(text, ":") {
		return false
	}

	if runes <= 8 {
		for _, word := range structuralWords {
			if strings.Contains(text, word) {
				return false
			}
		}
	}

	if strings.Contains(text, "邀请") && (strings.Contains(text, "评分") || strings.Contains(text, "评价")) {
		return false
	}
	if strings.Contains(text, "请根据") || strings.Contains(text, "请回答") {
		return false
	}

	// Short copula sentences read as descriptions, not titles.
	if strings.Contains(text, "是") && runes < 15 &&
		(strings.Contains(truncateRunes(text, 5), "是") || strings.HasSuffix(text, "：")) {
		return false
	}

	hasIndicator := false
	for _, indicator := range coreIndicators {
		if strings.Contains(text, indicator) {
			hasIndicator = true
			break
		}
	}
	hasAbbreviation := abbreviationPattern.MatchString(text)

	isolated := false
	if lineIdx > 0 && lineIdx < len(lines)-1 {
		prev := strings.TrimSpace(lines[lineIdx-1])
		next := strings.TrimSpace(lines[lineIdx+1])
		prevOK := prev == "" || utf8.RuneCountInString(prev) < 5
		nextOK := next == "" || (!strings.HasPrefix(next, "1.") &&
			!strings.HasPrefix(next, "2.") && !strings.HasPrefix(next, "3."))
		isolated = prevOK && nextOK
	}

	if (hasIndicator || hasAbbreviation) && isolated &&
		runes >= minIndicatedRunes && runes <= maxIndicatedRunes {
		return true
	}

	// A compact abbreviation like OKR or KPI can stand alone as a name.
	return hasAbbreviation && runes >= 2 && runes <= 8
}

func headingKeywords(heading string) []string {
	var keywords []string
	for _, token := range keywordSplitPattern.Split(heading, -1) {
		if utf8.RuneCountInString(token) >= 2 {
			keywords = append(keywords, token)
		}
	}
	if len(keywords) == 0 {
		keywords = append(keywords, heading)
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
