package extractor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrylabs/reqspan/internal/core/domain"
	"github.com/quarrylabs/reqspan/internal/docindex"
	"github.com/quarrylabs/reqspan/internal/matcher"
	"github.com/quarrylabs/reqspan/internal/textnorm"
)

// testConfig shrinks the length thresholds so small fixture documents
// exercise the span logic directly.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MinSnippetLength = 10
	cfg.MaxSnippetLength = 2000
	return cfg
}

func newExtractor(cfg Config) *Extractor {
	m := matcher.New(textnorm.Normalize, nil, matcher.DefaultConfig())
	return New(textnorm.Normalize, m, cfg)
}

func buildIndex(t *testing.T, lines ...string) *docindex.Index {
	t.Helper()
	return docindex.Build(strings.Join(lines, "\n"), textnorm.Normalize, docindex.DefaultConfig())
}

func TestRefine_StopsBeforeNextModuleHeading(t *testing.T) {
	e := newExtractor(testConfig())

	var lines []string
	lines = append(lines, "## Alpha")
	for i := 0; i < 9; i++ {
		lines = append(lines, "- alpha content line")
	}
	lines = append(lines, "## Beta")
	lines = append(lines, "- beta content")
	idx := buildIndex(t, lines...)

	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{
		OtherTokens: []string{"beta"},
	}, "fallback")

	assert.NotContains(t, text, "## Beta")
	assert.NotContains(t, text, "beta content")
	assert.Equal(t, 1, pos[0])
	assert.LessOrEqual(t, pos[1], 10)
}

func TestRefine_SubHeadingDoesNotTruncateParent(t *testing.T) {
	e := newExtractor(testConfig())

	var lines []string
	lines = append(lines, "## Alpha")                    // 0
	lines = append(lines, "- intro", "- intro", "- intro", "- intro")
	lines = append(lines, "### Alpha Settings (popup)") // 5
	for i := 0; i < 14; i++ {
		lines = append(lines, "- settings detail")
	}
	lines = append(lines, "## Beta") // 20
	lines = append(lines, "- beta content")
	idx := buildIndex(t, lines...)

	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{
		OtherTokens: []string{"beta", "alphasettingspopup"},
		MainTokens:  []string{"beta"},
	}, "fallback")

	// The sub-heading at line 5 must not end the span; Beta at line 20 does.
	assert.Contains(t, text, "### Alpha Settings (popup)")
	assert.NotContains(t, text, "## Beta")
	assert.Equal(t, 1, pos[0])
	assert.Equal(t, 20, pos[1])
}

func TestRefine_LevelThreeBoundaryExtendsWithoutHierarchy(t *testing.T) {
	cfg := testConfig()
	cfg.MinSnippetLength = 200
	e := newExtractor(cfg)

	idx := buildIndex(t,
		"## Alpha",             // 0
		"- alpha content line", // 1
		"- alpha content line", // 2
		"### Beta",             // 3
		"- beta detail",        // 4
		"## Gamma",             // 5
		"- gamma content",      // 6
	)

	// No main tokens means no hierarchy was resolved. The level-3 heading at
	// line 3 may be a sub-section of Alpha, so the span runs on to the next
	// level-2 heading.
	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{
		OtherTokens: []string{"beta", "gamma"},
	}, "fallback")

	assert.Contains(t, text, "### Beta")
	assert.NotContains(t, text, "## Gamma")
	assert.Equal(t, 1, pos[0])
	assert.Equal(t, 5, pos[1])
}

func TestRefine_SubModuleClampedToParentEnd(t *testing.T) {
	e := newExtractor(testConfig())

	var lines []string
	lines = append(lines, "## Alpha") // 0 parent anchor
	lines = append(lines, "- intro")
	lines = append(lines, "### Alpha Settings") // 2 sub anchor
	for i := 0; i < 5; i++ {
		lines = append(lines, "- settings detail")
	}
	lines = append(lines, "## Beta") // 8
	lines = append(lines, "- beta content")
	idx := buildIndex(t, lines...)

	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha Settings"}, 2, Boundaries{
		OtherTokens:  []string{"alpha", "beta"},
		MainTokens:   []string{"alpha", "beta"},
		ParentAnchor: 0,
		HasParent:    true,
	}, "fallback")

	assert.NotContains(t, text, "## Beta")
	assert.NotContains(t, text, "beta content")
	assert.LessOrEqual(t, pos[1], 8)
}

func TestRefine_AnchorInsideHeaderMovesForward(t *testing.T) {
	e := newExtractor(testConfig())

	idx := buildIndex(t,
		"- this preamble mentions Alpha in passing",
		"- more preamble",
		"- more preamble",
		"- more preamble",
		"",
		"Overview",
		"",
		"- general notes",
		"Alpha",
		"- alpha content",
	)

	_, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{}, "fallback")

	// The anchor is re-homed past the header region onto line 8.
	assert.GreaterOrEqual(t, pos[0], idx.HeaderEnd+1)
}

func TestRefine_TruncationKeepsReportedRange(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSnippetLength = 60
	e := newExtractor(cfg)

	var lines []string
	lines = append(lines, "## Alpha")
	for i := 0; i < 10; i++ {
		lines = append(lines, "- a reasonably long alpha content line")
	}
	idx := buildIndex(t, lines...)

	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{}, "fallback")

	require.NotEmpty(t, text)
	// The text was truncated but the range still covers the full span.
	assert.Less(t, len(strings.Split(text, "\n")), 11)
	assert.Equal(t, 1, pos[0])
	assert.Equal(t, 11, pos[1])
	assert.GreaterOrEqual(t, pos[1], pos[0])
}

func TestRefine_AnchorPastDocumentReturnsFallback(t *testing.T) {
	e := newExtractor(testConfig())
	idx := buildIndex(t, "- line one", "- line two")

	text, pos := e.Refine(idx, domain.ModuleDescriptor{Name: "Ghost"}, 500, Boundaries{}, "fallback excerpt")

	assert.Equal(t, "fallback excerpt", text)
	assert.Equal(t, [2]int{0, 0}, pos)
}

func TestRefine_TrimKeepsSpanWhenCutTooShort(t *testing.T) {
	cfg := testConfig()
	cfg.MinSnippetLength = 500
	e := newExtractor(cfg)

	idx := buildIndex(t,
		"## Alpha",
		"- short",
		"## Beta",
	)

	text, _ := e.Refine(idx, domain.ModuleDescriptor{Name: "Alpha"}, 0, Boundaries{
		OtherTokens: []string{"beta"},
	}, "fallback")

	// Cutting at Beta would leave almost nothing, so the span survives.
	assert.NotEmpty(t, text)
}

func TestConfidence(t *testing.T) {
	e := newExtractor(testConfig())

	desc := domain.ModuleDescriptor{
		Name:         "Alpha",
		Keywords:     []string{"sleep banner"},
		ExactPhrases: []string{"nightly sleep score"},
	}

	assert.Equal(t, domain.ConfidenceHigh, e.Confidence(desc, "shows the Nightly Sleep-Score here"))
	assert.Equal(t, domain.ConfidenceMedium, e.Confidence(desc, "tap the sleep banner to open"))
	assert.Equal(t, domain.ConfidenceLow, e.Confidence(desc, "unrelated content"))
	assert.Equal(t, domain.ConfidenceLow, e.Confidence(desc, ""))
}

func TestRelevantSection_ExactPhraseHit(t *testing.T) {
	e := newExtractor(testConfig())

	var lines []string
	lines = append(lines, "## Intro", "- filler")
	lines = append(lines, "## Scores")
	lines = append(lines, "- the nightly sleep score appears here")
	lines = append(lines, "- more score details")
	idx := buildIndex(t, lines...)

	section := e.RelevantSection(idx, "Scores", &domain.ModuleDescriptor{
		Name:         "Scores",
		ExactPhrases: []string{"nightly sleep score"},
	})

	assert.Contains(t, section, "nightly sleep score")
}

func TestRelevantSection_FallbackToLeadingSlice(t *testing.T) {
	cfg := testConfig()
	cfg.FallbackSnippetLength = 20
	e := newExtractor(cfg)

	idx := buildIndex(t, "- some document content that goes on for a while")

	section := e.RelevantSection(idx, "zzqq", nil)

	require.NotEmpty(t, section)
	assert.LessOrEqual(t, len([]rune(section)), 20)
}

func TestRelevantSection_NeverEmptyForMissingModule(t *testing.T) {
	e := newExtractor(testConfig())

	idx := buildIndex(t, "## Something", "- content about other things entirely")

	section := e.RelevantSection(idx, "Completely Absent Module", nil)
	assert.NotEmpty(t, section)
}

func TestRelevantSection_KeywordVote(t *testing.T) {
	e := newExtractor(testConfig())

	var lines []string
	lines = append(lines, "## Intro", "- filler filler")
	lines = append(lines, "## Panel")
	lines = append(lines, "- the heart panel and stress panel share layout")
	idx := buildIndex(t, lines...)

	section := e.RelevantSection(idx, "Panel", &domain.ModuleDescriptor{
		Name:     "Panel",
		Keywords: []string{"heart panel", "stress panel"},
	})

	assert.Contains(t, section, "heart panel")
}
