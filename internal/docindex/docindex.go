// Package docindex builds the per-document structural index shared by the
// matching and extraction stages: raw lines, normalized lines, detected
// section headings, the header-region boundary and the content-end boundary.
//
// An Index is built once per document and is read-only afterwards, so it is
// safe to share across concurrent extraction calls.
package docindex

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DocumentStart is the synthetic heading inserted when no real heading
// precedes line zero.
const DocumentStart = "__document_start__"

// maxHeadingLength is the longest line that still qualifies as a heading.
const maxHeadingLength = 80

var (
	markdownHeadingPattern   = regexp.MustCompile(`^#{1,6}\s+(.+)$`)
	markdownHeading12Pattern = regexp.MustCompile(`^#{1,2}\s+(.+)$`)
	plainHeadingPattern      = regexp.MustCompile(`^[A-Za-z\x{4e00}-\x{9fff}【].*$`)
	bulletPattern            = regexp.MustCompile(`^\s*(?:[-*•●◦·①②③④⑤⑥⑦⑧⑨⑩\d]+\s)`)
)

// Section is a detected heading with its zero-based line index.
type Section struct {
	Line    int
	Heading string
}

// Config holds the structural detection bounds.
type Config struct {
	// MinHeaderLines and MaxHeaderLines bound the header-end scan.
	MinHeaderLines int
	MaxHeaderLines int

	// ContentEndScanLines is how far back from the end of the document the
	// content-end detector looks for a metadata section heading.
	ContentEndScanLines int

	// MetadataKeywords mark trailing appendix/boilerplate sections
	// (post-launch notes, localisation docs, design artifacts, sign-off).
	MetadataKeywords []string
}

// DefaultConfig returns the detection bounds used in production.
func DefaultConfig() Config {
	return Config{
		MinHeaderLines:      3,
		MaxHeaderLines:      15,
		ContentEndScanLines: 50,
		MetadataKeywords: []string{
			"上线后", "数据准备", "准备策略",
			"多语言文档", "多语言", "语言文档",
			"设计稿", "设计", "交互稿",
			"逻辑补充", "补充说明",
			"审批", "签名", "审批与签名",
			"参考设计稿", "参考设计",
		},
	}
}

// Index is the immutable structural view of one document.
type Index struct {
	Lines           []string
	NormalizedLines []string
	Sections        []Section
	HeaderEnd       int
	ContentEnd      int
}

// Build constructs the index for a document. The normalize function produces
// the comparison form of each line; the result is 1:1 with Lines.
func Build(text string, normalize func(string) string, cfg Config) *Index {
	lines := strings.Split(text, "\n")
	normalized := make([]string, len(lines))
	for i, line := range lines {
		normalized[i] = normalize(line)
	}

	return &Index{
		Lines:           lines,
		NormalizedLines: normalized,
		Sections:        detectSections(lines),
		HeaderEnd:       detectHeaderEnd(lines, cfg),
		ContentEnd:      detectContentEnd(lines, cfg),
	}
}

// HeadingText returns the heading text of a markdown heading line with the
// marker prefix stripped, and whether the line is a markdown heading.
func HeadingText(line string) (string, bool) {
	m := markdownHeadingPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// MainHeadingText is like HeadingText but only accepts level-1 and level-2
// markdown headings.
func MainHeadingText(line string) (string, bool) {
	m := markdownHeading12Pattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// TitleLevel reports the markdown heading level of a line: 2 for "## ",
// 3 for "### ", 0 otherwise.
func TitleLevel(line string) int {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "### "):
		return 3
	case strings.HasPrefix(trimmed, "## "):
		return 2
	default:
		return 0
	}
}

// IsBulletLine reports whether a line starts with a bullet or enumerator
// marker.
func IsBulletLine(line string) bool {
	return bulletPattern.MatchString(line)
}

// IsHeadingCandidate reports whether a line qualifies as a heading: non-empty,
// at most 80 runes, not a bullet, and either a markdown heading or starting
// with a letter, ideograph or bracket.
func IsHeadingCandidate(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxHeadingLength {
		return false
	}
	if bulletPattern.MatchString(trimmed) {
		return false
	}
	if markdownHeadingPattern.MatchString(trimmed) {
		return true
	}
	return plainHeadingPattern.MatchString(trimmed)
}

func detectSections(lines []string) []Section {
	var sections []Section
	for idx, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || utf8.RuneCountInString(line) > maxHeadingLength {
			continue
		}
		if bulletPattern.MatchString(line) {
			continue
		}

		if text, ok := HeadingText(line); ok {
			sections = append(sections, Section{Line: idx, Heading: text})
			continue
		}
		if plainHeadingPattern.MatchString(line) {
			sections = append(sections, Section{Line: idx, Heading: line})
		}
	}

	if len(sections) == 0 || sections[0].Line != 0 {
		sections = append([]Section{{Line: 0, Heading: DocumentStart}}, sections...)
	}
	return sections
}

func detectHeaderEnd(lines []string, cfg Config) int {
	maxCheck := min(cfg.MaxHeaderLines, len(lines))
	for idx := cfg.MinHeaderLines; idx < maxCheck; idx++ {
		line := strings.TrimSpace(lines[idx])
		if line == "" {
			continue
		}
		if !plainHeadingPattern.MatchString(line) || bulletPattern.MatchString(line) {
			continue
		}

		prevBlank := idx == 0 || strings.TrimSpace(lines[idx-1]) == ""
		nextBlank := idx+1 >= len(lines) || strings.TrimSpace(lines[idx+1]) == ""
		if prevBlank || nextBlank {
			return idx
		}
	}
	return min(cfg.MaxHeaderLines, len(lines))
}

func detectContentEnd(lines []string, cfg Config) int {
	if len(lines) == 0 {
		return 0
	}

	stop := max(0, len(lines)-cfg.ContentEndScanLines)
	for idx := len(lines) - 1; idx > stop; idx-- {
		line := strings.TrimSpace(lines[idx])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "# ") && !strings.HasPrefix(line, "## ") {
			continue
		}
		for _, keyword := range cfg.MetadataKeywords {
			if strings.Contains(line, keyword) {
				return idx
			}
		}
	}
	return len(lines)
}

// SectionWindow returns the [start, end) line range covering the section
// that contains the given line, padded by the extra context on each side.
func (idx *Index) SectionWindow(line, extraBefore, extraAfter int) (int, int) {
	start := 0
	end := len(idx.Lines)

	if len(idx.Sections) == 0 {
		start = max(0, line-extraBefore)
		end = min(len(idx.Lines), line+extraAfter)
		return start, end
	}

	for i, section := range idx.Sections {
		if section.Line > line {
			break
		}
		start = section.Line
		if i+1 < len(idx.Sections) {
			end = idx.Sections[i+1].Line
		} else {
			end = len(idx.Lines)
		}
	}

	start = max(0, start-extraBefore)
	end = min(len(idx.Lines), end+extraAfter)
	return start, end
}

// NextSectionAfter returns the line index of the first detected section
// strictly after the given line.
func (idx *Index) NextSectionAfter(line int) (int, bool) {
	for _, section := range idx.Sections {
		if section.Line > line {
			return section.Line, true
		}
	}
	return 0, false
}
