package docindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/reqspan/internal/textnorm"
)

func buildIndex(t *testing.T, text string) *Index {
	t.Helper()
	return Build(text, textnorm.Normalize, DefaultConfig())
}

func TestBuild_LinesAndNormalizedAreParallel(t *testing.T) {
	idx := buildIndex(t, "# Title\n\nSome Body Text\n")

	require.Len(t, idx.NormalizedLines, len(idx.Lines))
	assert.Equal(t, "title", idx.NormalizedLines[0])
	assert.Equal(t, "somebodytext", idx.NormalizedLines[2])
}

func TestDetectSections_MarkdownHeadings(t *testing.T) {
	idx := buildIndex(t, "# Overview\n\ntext\n\n## Alpha\n\ncontent\n\n## Beta\n")

	require.NotEmpty(t, idx.Sections)
	assert.Equal(t, Section{Line: 0, Heading: "Overview"}, idx.Sections[0])

	headings := make([]string, 0, len(idx.Sections))
	for _, s := range idx.Sections {
		headings = append(headings, s.Heading)
	}
	assert.Contains(t, headings, "Alpha")
	assert.Contains(t, headings, "Beta")
}

func TestDetectSections_SyntheticDocumentStart(t *testing.T) {
	idx := buildIndex(t, "\n\nintro paragraph only\n")

	require.NotEmpty(t, idx.Sections)
	assert.Equal(t, 0, idx.Sections[0].Line)
	assert.Equal(t, DocumentStart, idx.Sections[0].Heading)
}

func TestDetectSections_SkipsBulletsAndLongLines(t *testing.T) {
	long := strings.Repeat("x", 120)
	idx := buildIndex(t, "- bullet item\n* another bullet\n" + long + "\nReal Heading\n")

	for _, s := range idx.Sections {
		assert.NotEqual(t, "- bullet item", s.Heading)
		assert.NotEqual(t, long, s.Heading)
	}

	headings := make([]string, 0, len(idx.Sections))
	for _, s := range idx.Sections {
		headings = append(headings, s.Heading)
	}
	assert.Contains(t, headings, "Real Heading")
}

func TestDetectHeaderEnd_FindsIsolatedHeading(t *testing.T) {
	lines := []string{
		"doc title",
		"- author: someone",
		"- version 1.0",
		"- more preamble",
		"",
		"First Real Section",
		"",
		"content",
	}
	idx := buildIndex(t, strings.Join(lines, "\n"))

	// Line 5 is the first heading candidate past MinHeaderLines with a blank
	// neighbour.
	assert.Equal(t, 5, idx.HeaderEnd)
}

func TestDetectHeaderEnd_FallsBackToMax(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = "- bullet line with content"
	}
	idx := buildIndex(t, strings.Join(lines, "\n"))

	assert.Equal(t, DefaultConfig().MaxHeaderLines, idx.HeaderEnd)
}

func TestDetectContentEnd_MetadataHeading(t *testing.T) {
	var lines []string
	lines = append(lines, "## Alpha")
	for i := 0; i < 20; i++ {
		lines = append(lines, "content line")
	}
	metadataLine := len(lines)
	lines = append(lines, "## 上线后数据准备")
	lines = append(lines, "appendix content")

	idx := buildIndex(t, strings.Join(lines, "\n"))
	assert.Equal(t, metadataLine, idx.ContentEnd)
}

func TestDetectContentEnd_NoMetadata(t *testing.T) {
	idx := buildIndex(t, "## Alpha\ncontent\nmore content")
	assert.Equal(t, len(idx.Lines), idx.ContentEnd)
}

func TestTitleLevel(t *testing.T) {
	assert.Equal(t, 2, TitleLevel("## Alpha"))
	assert.Equal(t, 3, TitleLevel("### Alpha Settings"))
	assert.Equal(t, 0, TitleLevel("plain text"))
	assert.Equal(t, 0, TitleLevel(""))
}

func TestHeadingText(t *testing.T) {
	text, ok := HeadingText("## Alpha Module")
	require.True(t, ok)
	assert.Equal(t, "Alpha Module", text)

	_, ok = HeadingText("not a heading")
	assert.False(t, ok)
}

func TestMainHeadingText_RejectsLevelThree(t *testing.T) {
	_, ok := MainHeadingText("### Sub Section")
	assert.False(t, ok)

	text, ok := MainHeadingText("## Main Section")
	require.True(t, ok)
	assert.Equal(t, "Main Section", text)
}

func TestSectionWindow_EnclosingSection(t *testing.T) {
	idx := buildIndex(t, "## Alpha\n- item one\n- item two\n- item three\n## Beta\n- item four\n")

	start, end := idx.SectionWindow(2, 0, 0)
	assert.Equal(t, 0, start)
	assert.Equal(t, 4, end)
}

func TestCache_ReusesIndexForSameContent(t *testing.T) {
	cache := NewCache(textnorm.Normalize, DefaultConfig())

	first := cache.Get("## Alpha\ncontent")
	second := cache.Get("## Alpha\ncontent")
	assert.Same(t, first, second)

	other := cache.Get("## Beta\ncontent")
	assert.NotSame(t, first, other)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(textnorm.Normalize, DefaultConfig())
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				idx := cache.Get("## Alpha\nshared document")
				assert.NotNil(t, idx)
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
